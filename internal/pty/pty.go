// Package pty wraps a real pseudo-terminal hosting one child shell
// process: write/read/resize/kill/wait, with a background reader
// goroutine continuously draining the master side into an in-memory
// ring buffer. Grounded on the general worker-goroutine-with-channel
// shape used throughout the pack's crawler code, adapted here to a PTY
// reader loop; no original_source file covers PTY allocation directly
// (it shells out to a native PTY facility), so the Go idiom comes
// straight from github.com/creack/pty's own documented usage.
package pty

import (
	"bufio"
	"io"
	"os"
	"os/exec"
	"sync"
	"time"

	ptylib "github.com/creack/pty"

	coreerrors "skhoot/internal/core/errors"
	"skhoot/internal/core/ids"
)

// Stream tags the origin of a buffered output line.
type Stream string

const (
	StreamStdout Stream = "stdout"
	StreamStderr Stream = "stderr"
)

// OutputLine is one ring-buffered, timestamped line of child output.
type OutputLine struct {
	Timestamp time.Time
	Stream    Stream
	Content   string
}

// ringCapacity bounds the in-memory output ring buffer per session.
const ringCapacity = 4096

// Config describes how to launch a session's shell.
type Config struct {
	Shell string
	Cols  int
	Rows  int
	Env   []string
	Dir   string
}

// DefaultConfig mirrors the original's session defaults.
func DefaultConfig() Config {
	shell := os.Getenv("SHELL")
	if shell == "" {
		shell = "/bin/sh"
	}
	return Config{Shell: shell, Cols: 80, Rows: 24}
}

// Session is one pseudo-terminal hosting a single child process.
type Session struct {
	ID      string
	Config  Config
	created time.Time

	mu           sync.Mutex
	lastActivity time.Time
	cmd          *exec.Cmd
	master       *os.File
	ring         []OutputLine
	exited       bool
	exitCode     int
	waitErr      error
	waitDone     chan struct{}
}

// New allocates a real PTY and starts cfg.Shell inside it.
func New(cfg Config) (*Session, error) {
	if cfg.Shell == "" {
		cfg = DefaultConfig()
	}
	if cfg.Cols <= 0 {
		cfg.Cols = 80
	}
	if cfg.Rows <= 0 {
		cfg.Rows = 24
	}

	cmd := exec.Command(cfg.Shell)
	if cfg.Dir != "" {
		cmd.Dir = cfg.Dir
	}
	if len(cfg.Env) > 0 {
		cmd.Env = cfg.Env
	}

	master, err := ptylib.StartWithSize(cmd, &ptylib.Winsize{
		Rows: uint16(cfg.Rows),
		Cols: uint16(cfg.Cols),
	})
	if err != nil {
		return nil, coreerrors.Wrap(coreerrors.CodeInternal, "failed to start pty", err)
	}

	now := time.Now()
	s := &Session{
		ID:           ids.NewWithPrefix("term"),
		Config:       cfg,
		created:      now,
		lastActivity: now,
		cmd:          cmd,
		master:       master,
		waitDone:     make(chan struct{}),
	}

	go s.drain()
	go s.waitForExit()

	return s, nil
}

// drain is the background reader continuously filling the ring buffer,
// preserving ANSI escape sequences byte-for-byte (no stripping, no
// line-ending normalization: each line keeps its trailing newline).
func (s *Session) drain() {
	reader := bufio.NewReaderSize(s.master, 64*1024)
	var line []byte
	for {
		chunk, err := reader.ReadBytes('\n')
		line = append(line, chunk...)
		if len(line) > 0 {
			s.appendLine(string(line))
			line = line[:0]
		}
		if err != nil {
			if err != io.EOF {
				s.appendLine("[pty read error: " + err.Error() + "]")
			}
			return
		}
	}
}

func (s *Session) appendLine(content string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ring = append(s.ring, OutputLine{Timestamp: time.Now(), Stream: StreamStdout, Content: content})
	if len(s.ring) > ringCapacity {
		s.ring = s.ring[len(s.ring)-ringCapacity:]
	}
}

func (s *Session) waitForExit() {
	err := s.cmd.Wait()
	s.mu.Lock()
	s.exited = true
	s.waitErr = err
	if s.cmd.ProcessState != nil {
		s.exitCode = s.cmd.ProcessState.ExitCode()
	}
	s.mu.Unlock()
	close(s.waitDone)
}

func (s *Session) isExited() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.exited
}

// Write appends a newline to text and flushes it to the child's stdin.
func (s *Session) Write(text string) error {
	if s.isExited() {
		return coreerrors.ProcessExited(s.ID)
	}
	s.mu.Lock()
	s.lastActivity = time.Now()
	s.mu.Unlock()

	if _, err := s.master.Write([]byte(text + "\n")); err != nil {
		return coreerrors.Wrap(coreerrors.CodeIo, "write to pty failed", err)
	}
	return nil
}

// Read returns buffered output since the previous Read and clears the
// ring. Non-blocking: it never waits on new child output.
func (s *Session) Read() ([]OutputLine, error) {
	if s.isExited() && len(s.pendingRing()) == 0 {
		return nil, coreerrors.ProcessExited(s.ID)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastActivity = time.Now()
	out := s.ring
	s.ring = nil
	return out, nil
}

func (s *Session) pendingRing() []OutputLine {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ring
}

// Resize adjusts the underlying PTY's window size.
func (s *Session) Resize(cols, rows int) error {
	if cols <= 0 || rows <= 0 {
		return coreerrors.InvalidArgument("cols/rows", "must be > 0")
	}
	if s.isExited() {
		return coreerrors.ProcessExited(s.ID)
	}
	if err := ptylib.Setsize(s.master, &ptylib.Winsize{Rows: uint16(rows), Cols: uint16(cols)}); err != nil {
		return coreerrors.Wrap(coreerrors.CodeIo, "resize pty failed", err)
	}
	s.mu.Lock()
	s.Config.Cols = cols
	s.Config.Rows = rows
	s.mu.Unlock()
	return nil
}

// Kill terminates the child process and closes the master side.
func (s *Session) Kill() error {
	if s.cmd.Process != nil {
		_ = s.cmd.Process.Kill()
	}
	return s.master.Close()
}

// Wait blocks until the child exits and returns its exit code.
func (s *Session) Wait() (int, error) {
	<-s.waitDone
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.exitCode, nil
}

// LastActivity reports the most recent write/read timestamp.
func (s *Session) LastActivity() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActivity
}

// CreatedAt reports session creation time.
func (s *Session) CreatedAt() time.Time { return s.created }
