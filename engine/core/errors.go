package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// -----------------------------------------------------------------------------
// Error kinds
// -----------------------------------------------------------------------------

// Kind classifies every error surfaced by the migration engine.
type Kind string

const (
	KindConfiguration Kind = "configuration"
	KindValidation    Kind = "validation"
	KindConnection    Kind = "connection"
	KindAuth          Kind = "auth"
	KindData          Kind = "data"
	KindPermission    Kind = "permission"
)

func (k Kind) String() string {
	return string(k)
}

// AuthFailure narrows KindAuth errors to the device-code and refresh outcomes.
type AuthFailure string

const (
	AuthDeclined       AuthFailure = "declined"
	AuthExpired        AuthFailure = "expired"
	AuthPendingTimeout AuthFailure = "pending_timeout"
	AuthInvalidCode    AuthFailure = "invalid_code"
	AuthRefresh        AuthFailure = "refresh"
)

// -----------------------------------------------------------------------------
// Error type
// -----------------------------------------------------------------------------

// Error is the single error type crossing component boundaries. Every
// surfaced error carries an actionable hint; when none is set explicitly it
// is inferred from the message.
type Error struct {
	Kind       Kind           `json:"kind"`
	Message    string         `json:"message"`
	Hint       string         `json:"hint"`
	Context    map[string]any `json:"context,omitempty"`
	StatusCode int            `json:"status_code,omitempty"`
	RetryAfter time.Duration  `json:"retry_after,omitempty"`
	Auth       AuthFailure    `json:"auth_failure,omitempty"`
	Err        error          `json:"-"`
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// WithContext attaches a key/value pair and returns the error for chaining.
func (e *Error) WithContext(key string, value any) *Error {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}

// ActionableHint returns the explicit hint or an inferred one.
func (e *Error) ActionableHint() string {
	if e.Hint != "" {
		return e.Hint
	}
	return inferHint(e)
}

func newError(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Err: cause}
}

func NewConfigurationError(message string) *Error {
	return newError(KindConfiguration, message, nil)
}

func NewValidationError(message string) *Error {
	return newError(KindValidation, message, nil)
}

func NewConnectionError(message string, cause error) *Error {
	return newError(KindConnection, message, cause)
}

// NewRateLimitError surfaces a throttled response as a connection error that
// carries the server-indicated wait.
func NewRateLimitError(message string, retryAfter time.Duration, cause error) *Error {
	err := newError(KindConnection, message, cause)
	err.StatusCode = 429
	err.RetryAfter = retryAfter
	err.Hint = fmt.Sprintf("Rate limited; wait %s and retry.", retryAfter)
	return err
}

func NewAuthError(failure AuthFailure, message string, cause error) *Error {
	err := newError(KindAuth, message, cause)
	err.Auth = failure
	return err
}

func NewDataError(message string, cause error) *Error {
	return newError(KindData, message, cause)
}

func NewPermissionError(message string) *Error {
	return newError(KindPermission, message, nil)
}

// WrapError attaches kind and message to an existing error.
func WrapError(kind Kind, message string, cause error) *Error {
	return newError(kind, message, cause)
}

// -----------------------------------------------------------------------------
// Inspection helpers
// -----------------------------------------------------------------------------

// AsError extracts an *Error from err's chain.
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// IsKind reports whether err's chain contains an *Error of the given kind.
func IsKind(err error, kind Kind) bool {
	if e, ok := AsError(err); ok {
		return e.Kind == kind
	}
	return false
}

// StatusCode returns the HTTP status attached to err, or 0.
func StatusCode(err error) int {
	if e, ok := AsError(err); ok {
		return e.StatusCode
	}
	return 0
}

// RetryAfter returns the server-indicated wait attached to err, or 0.
func RetryAfter(err error) time.Duration {
	if e, ok := AsError(err); ok {
		return e.RetryAfter
	}
	return 0
}

func inferHint(e *Error) string {
	msg := strings.ToLower(e.Message)
	switch {
	case strings.Contains(msg, "rate limit") || e.StatusCode == 429:
		return "Rate limited by the API; the run will back off and retry automatically."
	case strings.Contains(msg, "token") || strings.Contains(msg, "credential") || e.Kind == KindAuth:
		return "Check SMARTSHEET_API_TOKEN, TENANT_ID and CLIENT_ID, then run 'sheetbridge auth clear' and retry."
	case e.Kind == KindConfiguration:
		return "Review the environment configuration (.env) against 'sheetbridge config'."
	case e.Kind == KindPermission:
		return "The account needs owner access to the target workspace; ask a Smartsheet admin."
	case strings.Contains(msg, "timeout") || strings.Contains(msg, "connect"):
		return "Transient network failure; verify connectivity and rerun, the migration resumes where it left off."
	default:
		return "Rerun with LOG_LEVEL=DEBUG for details; the migration is safe to rerun."
	}
}
