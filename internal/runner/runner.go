package runner

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"iter"
	"os"
	"os/exec"
	"sync"
	"syscall"

	"golang.org/x/sys/unix"
)

const maxLineBytes = 1 << 20

// Kind classifies how a process finished.
type Kind int

const (
	Success Kind = iota
	NonzeroExit
	LaunchFailed
)

func (k Kind) String() string {
	switch k {
	case Success:
		return "success"
	case NonzeroExit:
		return "nonzero_exit"
	case LaunchFailed:
		return "launch_failed"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Outcome is the terminal result of a process. Code is the exit code for
// NonzeroExit (-1 when the process was killed by a signal).
type Outcome struct {
	Kind Kind
	Code int
	Err  error
}

// OK reports whether the process exited zero.
func (o Outcome) OK() bool { return o.Kind == Success }

func (o Outcome) String() string {
	switch o.Kind {
	case NonzeroExit:
		return fmt.Sprintf("nonzero_exit(%d)", o.Code)
	case LaunchFailed:
		if o.Err != nil {
			return fmt.Sprintf("launch_failed(%v)", o.Err)
		}
	}
	return o.Kind.String()
}

// LaunchError reports an executable that could not be started.
type LaunchError struct {
	Binary string
	Err    error
}

func (e *LaunchError) Error() string {
	return fmt.Sprintf("launch %s: %v", e.Binary, e.Err)
}

func (e *LaunchError) Unwrap() error { return e.Err }

// Process is one running external tool.
type Process struct {
	cmd    *exec.Cmd
	ctx    context.Context
	reader *os.File
	lines  chan string

	scanErr error

	exited  chan struct{}
	waitErr error

	waitOnce sync.Once
	outcome  Outcome
}

// Start launches binary with args in dir. A *LaunchError is returned when the
// executable is missing or not runnable.
func Start(ctx context.Context, binary string, args []string, dir string) (*Process, error) {
	if binary == "" {
		return nil, &LaunchError{Binary: binary, Err: exec.ErrNotFound}
	}
	reader, writer, err := os.Pipe()
	if err != nil {
		return nil, fmt.Errorf("output pipe: %w", err)
	}

	cmd := exec.CommandContext(ctx, binary, args...) //nolint:gosec
	cmd.Dir = dir
	cmd.Stdout = writer
	cmd.Stderr = writer
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		return killGroup(cmd)
	}

	if err := cmd.Start(); err != nil {
		_ = reader.Close()
		_ = writer.Close()
		return nil, &LaunchError{Binary: binary, Err: err}
	}
	// The child holds its own copy; ours must close so EOF arrives on exit.
	_ = writer.Close()

	p := &Process{
		cmd:    cmd,
		ctx:    ctx,
		reader: reader,
		lines:  make(chan string, 64),
		exited: make(chan struct{}),
	}
	go p.scan()
	go p.reap()
	return p, nil
}

// reap waits for the tool itself, then kills whatever is left of its process
// group so descendants holding the output pipe cannot keep Lines open.
func (p *Process) reap() {
	p.waitErr = p.cmd.Wait()
	_ = killGroup(p.cmd)
	close(p.exited)
}

func (p *Process) scan() {
	defer close(p.lines)
	defer p.reader.Close()
	scanner := bufio.NewScanner(p.reader)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	scanner.Split(scanLines)
	for scanner.Scan() {
		p.lines <- scanner.Text()
	}
	if err := scanner.Err(); err != nil && !errors.Is(err, os.ErrClosed) {
		p.scanErr = err
	}
}

// Lines yields output lines in emission order until the process closes its
// output. Breaking out early is allowed; Wait or Close still reaps the child.
func (p *Process) Lines() iter.Seq[string] {
	return func(yield func(string) bool) {
		for line := range p.lines {
			if !yield(line) {
				return
			}
		}
	}
}

// Wait drains unread output, reaps the child, and returns its outcome.
func (p *Process) Wait() Outcome {
	p.waitOnce.Do(func() {
		for range p.lines {
		}
		<-p.exited
		p.outcome = classify(p.ctx, p.waitErr)
		if p.outcome.OK() && p.scanErr != nil {
			p.outcome.Err = p.scanErr
		}
	})
	return p.outcome
}

// Close kills the process group if it is still running and reaps it.
func (p *Process) Close() Outcome {
	select {
	case <-p.exited:
	default:
		_ = killGroup(p.cmd)
	}
	return p.Wait()
}

// Pid returns the operating system process id.
func (p *Process) Pid() int {
	if p.cmd.Process == nil {
		return 0
	}
	return p.cmd.Process.Pid
}

// Run starts binary, forwards each output line to onLine, and waits for exit.
func Run(ctx context.Context, binary string, args []string, dir string, onLine func(string)) Outcome {
	proc, err := Start(ctx, binary, args, dir)
	if err != nil {
		return Outcome{Kind: LaunchFailed, Code: -1, Err: err}
	}
	defer proc.Close()
	for line := range proc.Lines() {
		if onLine != nil {
			onLine(line)
		}
	}
	return proc.Wait()
}

func classify(ctx context.Context, err error) Outcome {
	if err == nil {
		return Outcome{Kind: Success}
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		out := Outcome{Kind: NonzeroExit, Code: exitErr.ExitCode(), Err: err}
		if ctxErr := ctx.Err(); ctxErr != nil {
			out.Err = ctxErr
		}
		return out
	}
	return Outcome{Kind: NonzeroExit, Code: -1, Err: err}
}

func killGroup(cmd *exec.Cmd) error {
	if cmd.Process == nil {
		return nil
	}
	err := unix.Kill(-cmd.Process.Pid, unix.SIGKILL)
	if errors.Is(err, unix.ESRCH) {
		return os.ErrProcessDone
	}
	return err
}

// scanLines splits on \n, \r, or \r\n.
func scanLines(data []byte, atEOF bool) (int, []byte, error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	if i := bytes.IndexAny(data, "\r\n"); i >= 0 {
		advance := i + 1
		if data[i] == '\r' {
			if i+1 < len(data) {
				if data[i+1] == '\n' {
					advance++
				}
			} else if !atEOF {
				return 0, nil, nil
			}
		}
		return advance, data[:i], nil
	}
	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}
