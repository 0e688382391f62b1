// Package link is the supervisor side of the controller's line protocol. It
// reads the outbound stream, keeps the latest record fresh in a TTL cache and
// sends one command at a time.
package link

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/patrickmn/go-cache"

	"irrigation_controller/internal/logger"
	"irrigation_controller/internal/models"
	"irrigation_controller/internal/protocol"
	"irrigation_controller/internal/telemetry"
)

var (
	// ErrCommandTimeout means no ACK/ERROR arrived within the command timeout.
	// The command may still run on a later tick; its late reply is skipped by
	// the next Send unless that Send repeats the same command.
	ErrCommandTimeout = errors.New("controller did not answer in time")
	// ErrNotConnected means the link has stopped reading.
	ErrNotConnected = errors.New("controller link is closed")
	// ErrCommandRejected wraps an ERROR response.
	ErrCommandRejected = errors.New("controller rejected command")
)

const latestKey = "latest"

// Sample is a record together with the time the supervisor received it.
type Sample struct {
	Record     telemetry.Record
	ReceivedAt time.Time
}

// Link multiplexes one controller connection.
type Link struct {
	rw      io.ReadWriter
	timeout time.Duration
	log     *logger.Logger
	now     func() time.Time

	latest *cache.Cache

	sendMu  sync.Mutex
	waiting atomic.Bool
	replies chan telemetry.Line
	closed  atomic.Bool

	stateMu sync.RWMutex
	status  protocol.Status
	known   bool

	subsMu sync.RWMutex
	subs   map[int]chan telemetry.Line
	nextID int
}

// New builds a link over rw. Records older than staleAfter are treated as
// absent, which is how a silent controller shows up as disconnected.
func New(rw io.ReadWriter, commandTimeout, staleAfter time.Duration, log *logger.Logger) *Link {
	return &Link{
		rw:      rw,
		timeout: commandTimeout,
		log:     log,
		now:     time.Now,
		latest:  cache.New(staleAfter, 2*staleAfter),
		replies: make(chan telemetry.Line, 1),
		subs:    make(map[int]chan telemetry.Line),
	}
}

// Run reads lines until the stream ends or ctx is canceled. It returns the
// read error, or nil on a clean end of stream. Subscriber channels are closed
// when it returns.
func (l *Link) Run(ctx context.Context) error {
	defer l.shutdown()

	r := bufio.NewReader(l.rw)
	for {
		if ctx.Err() != nil {
			return nil
		}
		raw, err := r.ReadString('\n')
		if raw != "" {
			l.dispatch(telemetry.Classify(raw))
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				l.log.Warnw("controller_stream_closed")
				return nil
			}
			return fmt.Errorf("read controller stream: %w", err)
		}
	}
}

func (l *Link) dispatch(line telemetry.Line) {
	switch line.Kind {
	case telemetry.KindRecord:
		l.latest.SetDefault(latestKey, Sample{Record: line.Record, ReceivedAt: l.now()})
		l.stateMu.Lock()
		l.status.PumpOn = line.Record.PumpOn()
		l.stateMu.Unlock()
	case telemetry.KindAck, telemetry.KindError:
		if st, ok := protocol.ParseResponse(line.Text); ok {
			l.stateMu.Lock()
			l.status, l.known = st, true
			l.stateMu.Unlock()
		}
		if l.waiting.Load() {
			select {
			case l.replies <- line:
			default:
			}
		} else {
			l.log.Debugw("unsolicited_response", "line", line.Text)
		}
	case telemetry.KindDiagnostic:
		if telemetry.IsExpiry(line) {
			l.stateMu.Lock()
			l.status.Mode, l.known = models.ModeAuto, true
			l.stateMu.Unlock()
		}
	case telemetry.KindOther:
		if line.Text == "" {
			return
		}
		l.log.Debugw("unclassified_line", "line", line.Text)
	}
	l.broadcast(line)
}

// Send writes one command line and waits for its ACK or ERROR. Commands are
// serialized: the controller answers at most one per tick, in order.
func (l *Link) Send(ctx context.Context, command string) (string, error) {
	if l.closed.Load() {
		return "", ErrNotConnected
	}
	l.sendMu.Lock()
	defer l.sendMu.Unlock()

	// drop a late reply to a previous, timed-out command
	select {
	case <-l.replies:
	default:
	}
	l.waiting.Store(true)
	defer l.waiting.Store(false)

	if _, err := io.WriteString(l.rw, command+"\n"); err != nil {
		return "", fmt.Errorf("write %q: %w", command, err)
	}

	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	for {
		select {
		case reply := <-l.replies:
			if !protocol.Answers(command, reply.Text) {
				l.log.Debugw("stale_response", "command", command, "line", reply.Text)
				continue
			}
			if reply.Kind == telemetry.KindError {
				return reply.Text, fmt.Errorf("%w: %s", ErrCommandRejected, reply.Text)
			}
			return reply.Text, nil
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return "", ErrCommandTimeout
			}
			return "", ctx.Err()
		}
	}
}

// Latest returns the newest record if it is still fresh.
func (l *Link) Latest() (Sample, bool) {
	v, ok := l.latest.Get(latestKey)
	if !ok {
		return Sample{}, false
	}
	return v.(Sample), true
}

// Connected reports whether a fresh record has been received.
func (l *Link) Connected() bool {
	if l.closed.Load() {
		return false
	}
	_, ok := l.latest.Get(latestKey)
	return ok
}

// Status returns the last pump level and mode reported by the controller.
// known is false until a command response or expiry notice carried the mode.
func (l *Link) Status() (st protocol.Status, known bool) {
	l.stateMu.RLock()
	defer l.stateMu.RUnlock()
	return l.status, l.known
}

// Subscribe registers a buffered listener for every classified line. Slow
// listeners miss lines rather than stall the reader. The channel is closed by
// the cancel func or when the link stops, whichever comes first. Subscribing
// to a stopped link returns an already closed channel.
func (l *Link) Subscribe(buffer int) (<-chan telemetry.Line, func()) {
	ch := make(chan telemetry.Line, buffer)
	l.subsMu.Lock()
	defer l.subsMu.Unlock()
	if l.closed.Load() {
		close(ch)
		return ch, func() {}
	}
	id := l.nextID
	l.nextID++
	l.subs[id] = ch

	return ch, func() {
		l.subsMu.Lock()
		defer l.subsMu.Unlock()
		if sub, ok := l.subs[id]; ok {
			delete(l.subs, id)
			close(sub)
		}
	}
}

// shutdown marks the link closed and ends every subscription.
func (l *Link) shutdown() {
	l.closed.Store(true)
	l.subsMu.Lock()
	defer l.subsMu.Unlock()
	for id, ch := range l.subs {
		delete(l.subs, id)
		close(ch)
	}
}

func (l *Link) broadcast(line telemetry.Line) {
	l.subsMu.RLock()
	defer l.subsMu.RUnlock()
	for id, ch := range l.subs {
		select {
		case ch <- line:
		default:
			l.log.Debugw("subscriber_lagging", "subscriber", id, "kind", line.Kind.String())
		}
	}
}
