// Package render implements the Render Bridge: a client that delegates
// HTML rendering to a separate headless-browser process (cmd/renderhost),
// correlating requests and responses by job_id over a websocket
// connection. Grounded on the teacher's chromedp_crawler.go for the
// underlying Navigate/WaitReady/OuterHTML sequence (run host-side), with
// one websocket connection per render job.
package render

import (
	"context"
	"fmt"
	"time"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"
	jsoniter "github.com/json-iterator/go"

	coreerrors "skhoot/internal/core/errors"
	"skhoot/internal/core/ids"
	"skhoot/internal/core/logging"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// WaitMode controls when the render host considers a navigation settled.
type WaitMode string

const (
	WaitLoad             WaitMode = "Load"
	WaitDOMContentLoaded WaitMode = "DomContentLoaded"
	WaitNetworkIdle      WaitMode = "NetworkIdle"
)

// Job is sent to the render host.
type Job struct {
	JobID     string   `json:"job_id"`
	URL       string   `json:"url"`
	WaitMode  WaitMode `json:"wait_mode"`
	TimeoutMs int64    `json:"timeout_ms"`
}

// Result is returned by the render host.
type Result struct {
	JobID     string `json:"job_id"`
	FinalURL  string `json:"final_url"`
	HTML      string `json:"html"`
	ElapsedMs int64  `json:"elapsed_ms"`
	Err       string `json:"error,omitempty"`
}

// Bridge dials the render host once per job and correlates the
// request/response pair by job_id; concurrent Render calls from the same
// Bridge are independent connections, which is sufficient since the host
// is itself single-job-per-connection (see cmd/renderhost).
type Bridge struct {
	addr string
}

// New builds a Bridge targeting the render host at addr (e.g.
// "ws://127.0.0.1:8901/render").
func New(addr string) *Bridge {
	return &Bridge{addr: addr}
}

// Available probes whether the render host is reachable.
func (b *Bridge) Available(ctx context.Context) bool {
	conn, _, _, err := ws.Dial(ctx, b.addr)
	if err != nil {
		return false
	}
	_ = conn.Close()
	return true
}

// Render submits a job and awaits the matching result, up to the job's
// timeout.
func (b *Bridge) Render(ctx context.Context, url string, waitMode WaitMode, timeout time.Duration) (*Result, error) {
	log := logging.New("render")

	conn, _, _, err := ws.Dial(ctx, b.addr)
	if err != nil {
		return nil, coreerrors.RenderFailed(url, err)
	}
	defer conn.Close()

	job := Job{
		JobID:     ids.NewWithPrefix("render"),
		URL:       url,
		WaitMode:  waitMode,
		TimeoutMs: timeout.Milliseconds(),
	}
	payload, err := json.Marshal(job)
	if err != nil {
		return nil, coreerrors.Internal("marshal render job", err)
	}
	if err := wsutil.WriteClientMessage(conn, ws.OpText, payload); err != nil {
		return nil, coreerrors.RenderFailed(url, err)
	}

	deadline := time.Now().Add(timeout)
	readCtx, cancel := context.WithDeadline(ctx, deadline)
	defer cancel()

	resultCh := make(chan *Result, 1)
	errCh := make(chan error, 1)
	go func() {
		msg, _, err := wsutil.ReadServerData(conn)
		if err != nil {
			errCh <- err
			return
		}
		var result Result
		if err := json.Unmarshal(msg, &result); err != nil {
			errCh <- err
			return
		}
		resultCh <- &result
	}()

	select {
	case <-readCtx.Done():
		return nil, coreerrors.RenderFailed(url, fmt.Errorf("render bridge timed out after %s", timeout))
	case err := <-errCh:
		return nil, coreerrors.RenderFailed(url, err)
	case result := <-resultCh:
		if result.JobID != job.JobID {
			return nil, coreerrors.RenderFailed(url, fmt.Errorf("job_id mismatch: sent %s, got %s", job.JobID, result.JobID))
		}
		if result.Err != "" {
			return nil, coreerrors.RenderFailed(url, fmt.Errorf("%s", result.Err))
		}
		log.Debug().Str("url", url).Int64("elapsed_ms", result.ElapsedMs).Msg("rendered")
		return &result, nil
	}
}
