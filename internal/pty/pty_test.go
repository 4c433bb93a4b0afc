package pty

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSession(t *testing.T) *Session {
	t.Helper()
	s, err := New(Config{Shell: "/bin/sh", Cols: 80, Rows: 24})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Kill() })
	return s
}

func TestWriteReadRoundTrip(t *testing.T) {
	s := newTestSession(t)

	require.NoError(t, s.Write("echo hello-pty-test"))

	var found bool
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		lines, err := s.Read()
		require.NoError(t, err)
		for _, l := range lines {
			if strings.Contains(l.Content, "hello-pty-test") {
				found = true
			}
		}
		if found {
			break
		}
		time.Sleep(50 * time.Millisecond)
	}
	assert.True(t, found, "expected echoed output to appear in ring buffer")
}

func TestResizeRejectsNonPositiveDimensions(t *testing.T) {
	s := newTestSession(t)
	err := s.Resize(0, 24)
	assert.Error(t, err)
}

func TestResizeSucceeds(t *testing.T) {
	s := newTestSession(t)
	require.NoError(t, s.Resize(100, 40))
	assert.Equal(t, 100, s.Config.Cols)
	assert.Equal(t, 40, s.Config.Rows)
}

func TestKillThenWriteReturnsProcessExited(t *testing.T) {
	s := newTestSession(t)
	require.NoError(t, s.Kill())
	_, _ = s.Wait()

	err := s.Write("echo too-late")
	assert.Error(t, err)
}

func TestWaitReturnsAfterKill(t *testing.T) {
	s := newTestSession(t)
	require.NoError(t, s.Kill())

	done := make(chan struct{})
	go func() {
		_, _ = s.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("Wait did not return after Kill")
	}
}
