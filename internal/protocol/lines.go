package protocol

import (
	"bufio"
	"io"
	"strings"
	"sync"
)

// LineSource is the inbound channel. Poll never blocks: no pending line is
// the common case, not an error.
type LineSource interface {
	Poll() (string, bool)
}

// LineQueue buffers lines read from r by a background goroutine.
type LineQueue struct {
	lines chan string
	mu    sync.Mutex
	err   error
}

// NewLineQueue starts reading r. At most capacity lines are buffered; the
// reader waits when the queue is full.
func NewLineQueue(r io.Reader, capacity int) *LineQueue {
	if capacity <= 0 {
		capacity = 8
	}
	q := &LineQueue{lines: make(chan string, capacity)}
	go q.read(r)
	return q
}

func (q *LineQueue) read(r io.Reader) {
	defer close(q.lines)
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		q.lines <- sc.Text()
	}
	q.mu.Lock()
	q.err = sc.Err()
	q.mu.Unlock()
}

func (q *LineQueue) Poll() (string, bool) {
	select {
	case l, ok := <-q.lines:
		return l, ok
	default:
		return "", false
	}
}

// Err returns the read error that stopped the queue, if any.
func (q *LineQueue) Err() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.err
}

// ByteSource is a buffered UART-style input.
type ByteSource interface {
	Buffered() int
	ReadByte() (byte, error)
}

// DefaultMaxLine bounds a command line on the wire.
const DefaultMaxLine = 128

// LineAssembler collects bytes from src into lines without blocking. Lines
// longer than max are discarded whole.
type LineAssembler struct {
	src      ByteSource
	buf      []byte
	max      int
	overflow bool
}

func NewLineAssembler(src ByteSource, max int) *LineAssembler {
	if max <= 0 {
		max = DefaultMaxLine
	}
	return &LineAssembler{src: src, buf: make([]byte, 0, max), max: max}
}

// Poll drains buffered bytes until one complete line is found.
func (a *LineAssembler) Poll() (string, bool) {
	for a.src.Buffered() > 0 {
		b, err := a.src.ReadByte()
		if err != nil {
			return "", false
		}
		if b != '\n' {
			if len(a.buf) >= a.max {
				a.overflow = true
				continue
			}
			a.buf = append(a.buf, b)
			continue
		}
		line := strings.TrimRight(string(a.buf), "\r")
		a.buf = a.buf[:0]
		if a.overflow {
			a.overflow = false
			continue
		}
		return line, true
	}
	return "", false
}
