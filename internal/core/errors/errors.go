// Package errors implements the five-bucket error taxonomy shared by every
// core: Input, Policy, Resource, Transport, Internal. Each bucket wraps an
// inner error and knows how to render itself as a user-visible ErrorReport.
package errors

import (
	"fmt"
	"time"
)

// Severity mirrors the report severities of the taxonomy.
type Severity string

const (
	SeverityWarning  Severity = "Warning"
	SeverityError    Severity = "Error"
	SeverityCritical Severity = "Critical"
)

// Code names one of the stable error kinds.
type Code string

const (
	CodeInvalidUrl           Code = "InvalidUrl"
	CodeInvalidArgument      Code = "InvalidArgument"
	CodeSessionNotFound      Code = "SessionNotFound"
	CodeUnknownTool          Code = "UnknownTool"
	CodeSsrfViolation        Code = "SsrfViolation"
	CodeDangerousCommand     Code = "DangerousCommand"
	CodePermissionDenied     Code = "PermissionDenied"
	CodeFetchTimeout         Code = "FetchTimeout"
	CodeSizeLimitExceeded    Code = "SizeLimitExceeded"
	CodeResourceLimitExceeded Code = "ResourceLimitExceeded"
	CodeHttpError            Code = "HttpError"
	CodeRenderFailed         Code = "RenderFailed"
	CodeIo                   Code = "Io"
	CodeExecutionFailed      Code = "ExecutionFailed"
	CodeProcessExited        Code = "ProcessExited"
	CodeInternal             Code = "Internal"
)

var severityByCode = map[Code]Severity{
	CodeInvalidUrl:            SeverityWarning,
	CodeInvalidArgument:       SeverityWarning,
	CodeSessionNotFound:       SeverityWarning,
	CodeUnknownTool:           SeverityWarning,
	CodeSsrfViolation:         SeverityCritical,
	CodeDangerousCommand:      SeverityCritical,
	CodePermissionDenied:      SeverityCritical,
	CodeFetchTimeout:          SeverityError,
	CodeSizeLimitExceeded:     SeverityError,
	CodeResourceLimitExceeded: SeverityError,
	CodeHttpError:             SeverityError,
	CodeRenderFailed:          SeverityError,
	CodeIo:                    SeverityError,
	CodeExecutionFailed:       SeverityError,
	CodeProcessExited:        SeverityWarning,
	CodeInternal:              SeverityError,
}

// CoreError is the concrete type returned by every component in this
// module. It carries enough context to render an ErrorReport without the
// caller needing to know which bucket produced it.
type CoreError struct {
	Code        Code
	Message     string
	Context     map[string]string
	Suggestions []string
	Err         error
}

func (e *CoreError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *CoreError) Unwrap() error { return e.Err }

// Severity reports the taxonomy-mandated severity for this error's code.
func (e *CoreError) Severity() Severity {
	if s, ok := severityByCode[e.Code]; ok {
		return s
	}
	return SeverityError
}

// Recoverable is true iff severity is Error (per spec: recoverable iff
// severity = Error).
func (e *CoreError) Recoverable() bool {
	return e.Severity() == SeverityError
}

// Report is the user-visible shape of an error.
type Report struct {
	ErrorType   Code              `json:"error_type"`
	Message     string            `json:"message"`
	Timestamp   time.Time         `json:"timestamp"`
	Severity    Severity          `json:"severity"`
	Recoverable bool              `json:"recoverable"`
	Context     map[string]string `json:"context"`
	Suggestions []string          `json:"suggestions"`
}

// ReportAt renders this error as its user-visible report, stamped with
// the given time.
func (e *CoreError) ReportAt(now time.Time) Report {
	ctx := e.Context
	if ctx == nil {
		ctx = map[string]string{}
	}
	sugg := e.Suggestions
	if sugg == nil {
		sugg = []string{}
	}
	return Report{
		ErrorType:   e.Code,
		Message:     e.Error(),
		Timestamp:   now,
		Severity:    e.Severity(),
		Recoverable: e.Recoverable(),
		Context:     ctx,
		Suggestions: sugg,
	}
}

func newErr(code Code, msg string, err error) *CoreError {
	return &CoreError{Code: code, Message: msg, Err: err}
}

// New constructs a bare CoreError for the given code.
func New(code Code, msg string) *CoreError { return newErr(code, msg, nil) }

// Wrap constructs a CoreError that wraps an underlying cause.
func Wrap(code Code, msg string, err error) *CoreError { return newErr(code, msg, err) }

// WithContext attaches key/value context, returning the same error for
// chaining.
func (e *CoreError) WithContext(key, value string) *CoreError {
	if e.Context == nil {
		e.Context = map[string]string{}
	}
	e.Context[key] = value
	return e
}

// WithSuggestion appends a recovery suggestion, returning the same error
// for chaining.
func (e *CoreError) WithSuggestion(s string) *CoreError {
	e.Suggestions = append(e.Suggestions, s)
	return e
}

// Convenience constructors for the most commonly raised codes.

func InvalidUrl(url string, err error) *CoreError {
	return Wrap(CodeInvalidUrl, fmt.Sprintf("invalid url %q", url), err)
}

func InvalidArgument(field, msg string) *CoreError {
	return New(CodeInvalidArgument, fmt.Sprintf("%s: %s", field, msg)).WithContext("field", field)
}

func SessionNotFound(id string) *CoreError {
	return New(CodeSessionNotFound, fmt.Sprintf("session %q not found", id)).WithContext("session_id", id)
}

func UnknownTool(name string) *CoreError {
	return New(CodeUnknownTool, fmt.Sprintf("unknown tool %q", name)).WithContext("tool", name)
}

func SsrfViolation(url, reason string) *CoreError {
	return New(CodeSsrfViolation, fmt.Sprintf("blocked request to %q: %s", url, reason)).WithContext("url", url)
}

func DangerousCommand(cmd string) *CoreError {
	return New(CodeDangerousCommand, fmt.Sprintf("refused to run %q", cmd)).WithContext("command", cmd)
}

func PermissionDenied(op string) *CoreError {
	return New(CodePermissionDenied, fmt.Sprintf("permission denied: %s", op))
}

func FetchTimeout(url string, err error) *CoreError {
	return Wrap(CodeFetchTimeout, fmt.Sprintf("fetch timed out: %s", url), err).WithContext("url", url)
}

func SizeLimitExceeded(url string, limit int64) *CoreError {
	return New(CodeSizeLimitExceeded, fmt.Sprintf("response exceeded %d bytes", limit)).WithContext("url", url)
}

func ResourceLimitExceeded(resource string) *CoreError {
	return New(CodeResourceLimitExceeded, fmt.Sprintf("%s limit exceeded", resource))
}

func HttpError(status int, url string) *CoreError {
	return New(CodeHttpError, fmt.Sprintf("http status %d for %q", status, url)).WithContext("url", url)
}

func RenderFailed(url string, err error) *CoreError {
	return Wrap(CodeRenderFailed, fmt.Sprintf("render failed for %q", url), err).WithContext("url", url)
}

func Io(op string, err error) *CoreError {
	return Wrap(CodeIo, op, err)
}

func ExecutionFailed(tool string, err error) *CoreError {
	return Wrap(CodeExecutionFailed, fmt.Sprintf("execution of %q failed", tool), err).WithContext("tool", tool)
}

func Internal(msg string, err error) *CoreError {
	return Wrap(CodeInternal, msg, err)
}

func ProcessExited(sessionID string) *CoreError {
	return New(CodeProcessExited, fmt.Sprintf("session %q's process has exited", sessionID)).WithContext("session_id", sessionID)
}
