package transcoder

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/smazurov/camrelay/internal/logging"
)

// Defaults applied by Start for zero-valued Options fields.
const (
	DefaultGracefulTimeout = 2 * time.Second
	DefaultKillTimeout     = 5 * time.Second
	DefaultStderrLimit     = 64 * 1024
)

// LogParser parses a diagnostic line and returns its log level and message.
type LogParser func(line string) (slog.Level, string)

// Options configures a Process.
type Options struct {
	// ID identifies the process in logs. A random UUID is used when empty.
	ID string

	// GracefulTimeout is how long Terminate waits after SIGINT before SIGKILL.
	GracefulTimeout time.Duration

	// KillTimeout is how long Terminate waits after SIGKILL before giving up.
	KillTimeout time.Duration

	// StderrLimit bounds the retained diagnostic tail in bytes.
	StderrLimit int

	Logger        *slog.Logger // lifecycle events
	ProcessLogger *slog.Logger // stderr lines (nil = Logger)
	LogParser     LogParser    // nil logs every line at info

	// Redact is applied to every stderr line before it is logged or retained.
	Redact func(string) string
}

// Process is one running transcoder. It is owned by exactly one caller,
// which must call Terminate before discarding it.
type Process struct {
	id      string
	opts    Options
	cmd     *exec.Cmd
	stdout  *os.File
	logger  *slog.Logger
	started time.Time

	mu       sync.Mutex
	state    State
	stderr   []byte
	exitCode int

	done          chan struct{}
	terminateOnce sync.Once
}

// Start spawns argv[0] with the remaining arguments. The process's stdout
// must be consumed through Stdout.
func Start(argv []string, opts Options) (*Process, error) {
	if len(argv) == 0 {
		return nil, &SpawnError{Err: errors.New("empty command")}
	}

	if opts.ID == "" {
		opts.ID = uuid.NewString()
	}
	if opts.GracefulTimeout <= 0 {
		opts.GracefulTimeout = DefaultGracefulTimeout
	}
	if opts.KillTimeout <= 0 {
		opts.KillTimeout = DefaultKillTimeout
	}
	if opts.StderrLimit <= 0 {
		opts.StderrLimit = DefaultStderrLimit
	}
	if opts.Logger == nil {
		opts.Logger = logging.GetLogger("transcoder")
	}
	if opts.ProcessLogger == nil {
		opts.ProcessLogger = opts.Logger
	}
	if opts.Redact == nil {
		opts.Redact = func(s string) string { return s }
	}

	p := &Process{
		id:     opts.ID,
		opts:   opts,
		logger: opts.Logger.With("process_id", opts.ID),
		state:  StateStarting,
		done:   make(chan struct{}),
	}

	// The parent owns both read ends. exec.Cmd never closes an *os.File
	// it did not create, so Wait cannot race the caller's reads.
	stdoutR, stdoutW, err := os.Pipe()
	if err != nil {
		return nil, &SpawnError{Binary: argv[0], Err: fmt.Errorf("stdout pipe: %w", err)}
	}
	stderrR, stderrW, err := os.Pipe()
	if err != nil {
		stdoutR.Close()
		stdoutW.Close()
		return nil, &SpawnError{Binary: argv[0], Err: fmt.Errorf("stderr pipe: %w", err)}
	}

	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.Stdout = stdoutW
	cmd.Stderr = stderrW
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	if err := cmd.Start(); err != nil {
		stdoutR.Close()
		stdoutW.Close()
		stderrR.Close()
		stderrW.Close()
		p.logger.Error("Failed to start transcoder", "binary", argv[0], "error", err)
		return nil, &SpawnError{Binary: argv[0], Err: err}
	}

	// Child holds its own copies of the write ends.
	stdoutW.Close()
	stderrW.Close()

	p.cmd = cmd
	p.stdout = stdoutR
	p.started = time.Now()
	p.setState(StateRunning)
	p.logger.Info("Transcoder started", "pid", cmd.Process.Pid)

	stderrDone := make(chan struct{})
	go func() {
		defer close(stderrDone)
		p.drainStderr(stderrR)
		stderrR.Close()
	}()

	go func() {
		err := cmd.Wait()
		<-stderrDone
		p.finish(err)
	}()

	return p, nil
}

// ID returns the process identifier used in logs.
func (p *Process) ID() string {
	return p.id
}

// PID returns the OS process id.
func (p *Process) PID() int {
	return p.cmd.Process.Pid
}

// Stdout returns the media output stream. Reads return io.EOF once the
// process has exited and all buffered output was consumed.
func (p *Process) Stdout() io.Reader {
	return p.stdout
}

// Done is closed when the process has exited and stderr is fully drained.
func (p *Process) Done() <-chan struct{} {
	return p.done
}

// State returns the current lifecycle state.
func (p *Process) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Stderr returns the retained diagnostic tail, already redacted.
func (p *Process) Stderr() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return string(p.stderr)
}

// ExitCode returns the exit code, or -1 while the process is running.
func (p *Process) ExitCode() int {
	select {
	case <-p.done:
	default:
		return -1
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.exitCode
}

// Wait blocks until the process exits. A non-zero exit yields *ExitError
// carrying the diagnostic tail. Wait may be called more than once.
func (p *Process) Wait() (int, error) {
	<-p.done

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.exitCode == 0 {
		return 0, nil
	}
	return p.exitCode, &ExitError{Code: p.exitCode, Stderr: string(p.stderr)}
}

// Terminate stops the process: SIGINT, then SIGKILL after the graceful
// timeout. It returns once the process has exited (or the kill timeout
// elapsed) and releases the stdout pipe. Safe to call repeatedly.
func (p *Process) Terminate() {
	p.terminateOnce.Do(func() {
		defer p.stdout.Close()

		select {
		case <-p.done:
			return
		default:
		}

		p.setState(StateStopping)
		p.sendStopSignal()

		select {
		case <-p.done:
			return
		case <-time.After(p.opts.GracefulTimeout):
		}

		p.logger.Warn("Graceful shutdown timeout, forcing kill", "timeout", p.opts.GracefulTimeout)
		p.kill()

		select {
		case <-p.done:
		case <-time.After(p.opts.KillTimeout):
			p.logger.Error("Transcoder did not exit after kill signal", "pid", p.PID())
		}
	})
}

// sendStopSignal sends SIGINT to the process group without waiting.
func (p *Process) sendStopSignal() {
	pid := p.PID()
	p.logger.Debug("Sending SIGINT to transcoder", "pid", pid)
	if err := syscall.Kill(-pid, syscall.SIGINT); err != nil {
		if err := p.cmd.Process.Signal(syscall.SIGINT); err != nil && !errors.Is(err, os.ErrProcessDone) {
			p.logger.Warn("Failed to send SIGINT", "error", err)
		}
	}
}

// kill sends SIGKILL to the whole process group.
func (p *Process) kill() {
	pid := p.PID()
	if err := syscall.Kill(-pid, syscall.SIGKILL); err != nil {
		if err := p.cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
			p.logger.Error("Failed to kill transcoder", "pid", pid, "error", err)
		}
	}
}

// finish records the exit status and releases waiters.
func (p *Process) finish(waitErr error) {
	code := exitCodeFromError(waitErr)

	p.mu.Lock()
	p.exitCode = code
	if p.state == StateStopping {
		p.state = StateKilled
	} else {
		p.state = StateExited
	}
	state := p.state
	p.mu.Unlock()

	p.logger.Info("Transcoder exited",
		"exit_code", code,
		"state", string(state),
		"runtime", time.Since(p.started).Round(time.Millisecond))
	close(p.done)
}

func (p *Process) setState(s State) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state.Done() {
		return
	}
	p.state = s
}

// drainStderr reads diagnostic output until EOF, logging each line and
// keeping the last StderrLimit bytes.
func (p *Process) drainStderr(r io.Reader) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 4096), 1024*1024)

	for scanner.Scan() {
		line := p.opts.Redact(scanner.Text())
		p.appendStderr(line)
		p.logLine(line)
	}

	if err := scanner.Err(); err != nil {
		p.logger.Warn("Error reading transcoder stderr", "error", err)
		// Keep the pipe empty so the child never blocks on it.
		_, _ = io.Copy(io.Discard, r)
	}
}

func (p *Process) appendStderr(line string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.stderr = append(p.stderr, line...)
	p.stderr = append(p.stderr, '\n')
	if over := len(p.stderr) - p.opts.StderrLimit; over > 0 {
		p.stderr = p.stderr[over:]
	}
}

func (p *Process) logLine(line string) {
	level, msg := slog.LevelInfo, line
	if p.opts.LogParser != nil {
		level, msg = p.opts.LogParser(line)
	}
	p.opts.ProcessLogger.Log(context.Background(), level, msg, "process_id", p.id)
}
