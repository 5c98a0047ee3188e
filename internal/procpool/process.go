package procpool

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
	"syscall"
)

// ErrProcessExited is returned by Call when the child is gone.
var ErrProcessExited = errors.New("worker process exited")

// Command describes how to launch a child.
type Command struct {
	Path string
	Args []string
}

// SelfCommand launches the running executable with no arguments.
func SelfCommand() (Command, error) {
	exe, err := os.Executable()
	if err != nil {
		return Command{}, fmt.Errorf("resolve executable: %w", err)
	}
	return Command{Path: exe}, nil
}

// Process is one running child. Calls are serialised: a Process handles a
// single request at a time, which matches one pool worker owning one child.
type Process struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	enc    *json.Encoder
	dec    *json.Decoder
	stderr *lockedBuffer

	mu     sync.Mutex
	nextID int64
	closed bool
}

// Start launches a child described by c. The child is killed if ctx ends
// before Close.
func Start(ctx context.Context, c Command) (*Process, error) {
	cmd := exec.CommandContext(ctx, c.Path, c.Args...)
	cmd.Env = append(os.Environ(), EnvWorker+"=1")

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("stdout pipe: %w", err)
	}
	stderr := &lockedBuffer{}
	cmd.Stderr = stderr

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start %s: %w", c.Path, err)
	}

	return &Process{
		cmd:    cmd,
		stdin:  stdin,
		enc:    json.NewEncoder(stdin),
		dec:    json.NewDecoder(bufio.NewReader(stdout)),
		stderr: stderr,
	}, nil
}

// Pid returns the child's process id.
func (p *Process) Pid() int {
	return p.cmd.Process.Pid
}

// Call sends req and waits for the matching response. The request ID is
// assigned by the Process. Any transport failure is final for this child.
func (p *Process) Call(req Request) (Response, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return Response{}, ErrProcessExited
	}

	p.nextID++
	req.ID = p.nextID

	if err := p.enc.Encode(req); err != nil {
		return Response{}, p.transportErr("send request", err)
	}

	var resp Response
	if err := p.dec.Decode(&resp); err != nil {
		return Response{}, p.transportErr("read response", err)
	}
	if resp.ID != req.ID {
		return Response{}, fmt.Errorf("response id %d does not match request %d", resp.ID, req.ID)
	}
	return resp, nil
}

// Close ends the child's input and waits for it to exit.
func (p *Process) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	p.mu.Unlock()

	_ = p.stdin.Close()
	if err := p.cmd.Wait(); err != nil {
		return fmt.Errorf("worker process %d: %w", p.cmd.Process.Pid, err)
	}
	return nil
}

func (p *Process) transportErr(op string, err error) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, os.ErrClosed) || errors.Is(err, syscall.EPIPE) {
		err = ErrProcessExited
	}
	if msg := strings.TrimSpace(p.stderr.String()); msg != "" {
		return fmt.Errorf("%s: %w: %s", op, err, msg)
	}
	return fmt.Errorf("%s: %w", op, err)
}

// lockedBuffer collects child stderr, which exec copies from its own goroutine.
type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}
