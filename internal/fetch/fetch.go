// Package fetch implements the byte-bounded fetcher: a GET with a hard
// response-size ceiling, a global deadline, and per-redirect SSRF
// revalidation. Grounded on the teacher's requests_crawler.go fetch loop
// and on the original http_fetcher.rs defaults.
package fetch

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/saintfish/chardet"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/transform"

	coreerrors "skhoot/internal/core/errors"
	"skhoot/internal/core/logging"
	"skhoot/internal/safety"
)

const (
	// DefaultMaxBytes is the default response size ceiling (10 MiB).
	DefaultMaxBytes = 10 * 1024 * 1024
	// DefaultTimeout is the default global request deadline.
	DefaultTimeout = 15 * time.Second
	// MaxRedirects bounds the redirect chain length.
	MaxRedirects = 10
	// readChunkSize is how much we read at a time while enforcing the cap.
	readChunkSize = 32 * 1024
)

const userAgent = "skhoot-fetcher/1.0 (+content-extraction-core)"

// Result is the outcome of a successful fetch.
type Result struct {
	FinalURL      string
	Status        int
	ContentType   string
	HTML          string
	FetchDuration time.Duration
}

// Fetcher performs size- and time-bounded GETs, revalidating every
// redirect hop against the safety validator.
type Fetcher struct {
	MaxBytes  int64
	Timeout   time.Duration
	Validator *safety.Validator
}

// New builds a Fetcher with the spec defaults.
func New(validator *safety.Validator) *Fetcher {
	return &Fetcher{
		MaxBytes:  DefaultMaxBytes,
		Timeout:   DefaultTimeout,
		Validator: validator,
	}
}

func (f *Fetcher) client(ctx context.Context) *http.Client {
	return &http.Client{
		Timeout: f.Timeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= MaxRedirects {
				return fmt.Errorf("stopped after %d redirects", MaxRedirects)
			}
			if err := f.Validator.Validate(ctx, req.URL.String()); err != nil {
				return err
			}
			return nil
		},
	}
}

// Fetch performs the GET, streaming the body under the byte cap.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*Result, error) {
	log := logging.New("fetch")
	start := time.Now()

	ctx, cancel := context.WithTimeout(ctx, f.Timeout)
	defer cancel()

	if err := f.Validator.Validate(ctx, rawURL); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, coreerrors.InvalidUrl(rawURL, err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")

	resp, err := f.client(ctx).Do(req)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, coreerrors.FetchTimeout(rawURL, err)
		}
		if ce, ok := asCoreError(err); ok {
			return nil, ce
		}
		return nil, coreerrors.Wrap(coreerrors.CodeIo, "request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, coreerrors.HttpError(resp.StatusCode, rawURL)
	}

	maxBytes := f.MaxBytes
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}

	var buf bytes.Buffer
	var total int64
	chunk := make([]byte, readChunkSize)
	for {
		n, readErr := resp.Body.Read(chunk)
		if n > 0 {
			total += int64(n)
			if total > maxBytes {
				return nil, coreerrors.SizeLimitExceeded(rawURL, maxBytes)
			}
			buf.Write(chunk[:n])
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			if ctx.Err() == context.DeadlineExceeded {
				return nil, coreerrors.FetchTimeout(rawURL, readErr)
			}
			return nil, coreerrors.Wrap(coreerrors.CodeIo, "stream read failed", readErr)
		}
	}

	html := decodeLossyUTF8(buf.Bytes())

	log.Debug().Str("url", rawURL).Int64("bytes", total).Dur("elapsed", time.Since(start)).Msg("fetched")

	return &Result{
		FinalURL:      resp.Request.URL.String(),
		Status:        resp.StatusCode,
		ContentType:   resp.Header.Get("Content-Type"),
		HTML:          html,
		FetchDuration: time.Since(start),
	}, nil
}

func asCoreError(err error) (*coreerrors.CoreError, bool) {
	var ce *coreerrors.CoreError
	for u := err; u != nil; {
		if c, ok := u.(*coreerrors.CoreError); ok {
			ce = c
			break
		}
		unwrapper, ok := u.(interface{ Unwrap() error })
		if !ok {
			break
		}
		u = unwrapper.Unwrap()
	}
	return ce, ce != nil
}

// decodeLossyUTF8 sniffs charset with chardet and transcodes through the
// detected encoding's decoder before the UTF-8 validity pass, falling
// back to treating the bytes as UTF-8 (replacing invalid sequences) when
// detection fails, the charset is unrecognized, or transcoding errors.
func decodeLossyUTF8(body []byte) string {
	detector := chardet.NewTextDetector()
	result, err := detector.DetectBest(body)
	if err == nil && result != nil && result.Charset != "" {
		if enc, ierr := htmlindex.Get(result.Charset); ierr == nil {
			if decoded, _, derr := transform.Bytes(enc.NewDecoder(), body); derr == nil {
				return string(bytes.ToValidUTF8(decoded, []byte("�")))
			}
		}
	}
	return string(bytes.ToValidUTF8(body, []byte("�")))
}
