package link

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"

	"github.com/tarm/serial"
)

// OpenSerial opens the UART the controller firmware is attached to.
// Reads block until data arrives; Close unblocks them.
func OpenSerial(port string, baud int) (io.ReadWriteCloser, error) {
	p, err := serial.OpenPort(&serial.Config{Name: port, Baud: baud})
	if err != nil {
		return nil, fmt.Errorf("open serial %s: %w", port, err)
	}
	return p, nil
}

// process joins a child's stdout (read side) and stdin (write side).
type process struct {
	cmd *exec.Cmd
	io.Reader
	io.WriteCloser
}

func (p *process) Close() error {
	err := p.WriteCloser.Close()
	var exitErr *exec.ExitError
	if werr := p.cmd.Wait(); werr != nil && !errors.As(werr, &exitErr) {
		err = errors.Join(err, werr)
	}
	return err
}

// StartProcess runs the host controller binary and talks to it over pipes.
// Its stderr (structured logs) is passed through. ctx kills the child.
func StartProcess(ctx context.Context, argv []string) (io.ReadWriteCloser, error) {
	if len(argv) == 0 {
		return nil, errors.New("controller command is empty")
	}
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Stderr = os.Stderr

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("controller stdin: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("controller stdout: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start %s: %w", argv[0], err)
	}
	return &process{cmd: cmd, Reader: stdout, WriteCloser: stdin}, nil
}
