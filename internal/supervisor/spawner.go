package supervisor

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"os/exec"
	"sync"
	"time"

	"tsbridge/internal/engine"
	"tsbridge/internal/slogutil"
	"tsbridge/internal/worker"
)

// Spawner starts a worker and returns the byte stream connected to it.
// Closing the stream stops the worker.
type Spawner interface {
	Spawn(ctx context.Context) (io.ReadWriteCloser, error)
	Mode() string
}

// InProcessSpawner runs the worker in a goroutine on the far end of an
// in-memory pipe. Nothing but protocol messages crosses the pipe.
type InProcessSpawner struct {
	Factory engine.Factory
	Logger  *slog.Logger
}

func (s *InProcessSpawner) Mode() string { return "inprocess" }

func (s *InProcessSpawner) Spawn(ctx context.Context) (io.ReadWriteCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.Factory == nil {
		return nil, fmt.Errorf("in-process spawner has no engine factory")
	}
	serverSide, clientSide := net.Pipe()
	ep := worker.NewEndpoint(s.Factory, s.Logger)
	go func() {
		// the worker outlives the request that spawned it
		_ = worker.Serve(context.Background(), serverSide, ep, s.Logger)
	}()
	return clientSide, nil
}

// ProcessSpawner runs the worker as a child process speaking the protocol
// over stdin/stdout. Stderr lines are forwarded to the logger.
type ProcessSpawner struct {
	Command string
	Args    []string
	Dir     string
	Env     []string
	// StopTimeout bounds how long Close waits before killing the child.
	StopTimeout time.Duration
	Logger      *slog.Logger
}

func (s *ProcessSpawner) Mode() string { return "process" }

func (s *ProcessSpawner) Spawn(ctx context.Context) (io.ReadWriteCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	cmd := exec.Command(s.Command, s.Args...)
	cmd.Dir = s.Dir
	if len(s.Env) > 0 {
		cmd.Env = s.Env
	}

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to create stdin pipe: %w", err)
	}
	// stdout is a pipe we own, so Wait never closes it under the reader
	stdout, childStdout, err := os.Pipe()
	if err != nil {
		return nil, fmt.Errorf("failed to create stdout pipe: %w", err)
	}
	cmd.Stdout = childStdout
	stderr, err := cmd.StderrPipe()
	if err != nil {
		_ = stdout.Close()
		_ = childStdout.Close()
		return nil, fmt.Errorf("failed to create stderr pipe: %w", err)
	}
	err = cmd.Start()
	_ = childStdout.Close()
	if err != nil {
		_ = stdout.Close()
		return nil, fmt.Errorf("failed to start worker process: %w", err)
	}

	logger := slogutil.Component(s.Logger, "worker.process").With("pid", cmd.Process.Pid)
	p := &processStream{
		cmd:     cmd,
		stdin:   stdin,
		stdout:  stdout,
		timeout: s.StopTimeout,
		exited:  make(chan struct{}),
		logger:  logger,
	}
	if p.timeout <= 0 {
		p.timeout = 2 * time.Second
	}
	go p.stderrLoop(stderr)
	go func() {
		err := cmd.Wait()
		logger.Debug("worker process exited", "err", err)
		close(p.exited)
	}()
	logger.Debug("worker process started", "command", s.Command)
	return p, nil
}

type processStream struct {
	cmd     *exec.Cmd
	stdin   io.WriteCloser
	stdout  *os.File
	timeout time.Duration
	exited  chan struct{}
	logger  *slog.Logger

	closeOnce sync.Once
}

// Read returns io.EOF once the child and everything sharing its stdout
// have exited, after every byte written before that has been read.
func (p *processStream) Read(b []byte) (int, error)  { return p.stdout.Read(b) }
func (p *processStream) Write(b []byte) (int, error) { return p.stdin.Write(b) }

// Close closes stdin, which makes a well-behaved worker exit, and kills the
// child if it is still running after the stop timeout. The read end of
// stdout is closed last, which also unblocks a reader waiting on output
// from a process that inherited it.
func (p *processStream) Close() error {
	p.closeOnce.Do(func() {
		_ = p.stdin.Close()
		select {
		case <-p.exited:
		case <-time.After(p.timeout):
			p.logger.Warn("worker process did not exit, killing")
			_ = p.cmd.Process.Kill()
			<-p.exited
		}
		_ = p.stdout.Close()
	})
	return nil
}

func (p *processStream) stderrLoop(r io.Reader) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		p.logger.Debug("worker stderr", "line", scanner.Text())
	}
}
