package portal

import (
	goerrors "github.com/goliatone/go-errors"
)

const (
	textCodeAuthRejected      = "AUTH_REJECTED"
	textCodeNetworkFailure    = "AUTH_NETWORK_FAILURE"
	textCodeAuthInProgress    = "AUTH_IN_PROGRESS"
	textCodeInvalidTransition = "INVALID_SESSION_TRANSITION"
	textCodeNotAuthenticated  = "NOT_AUTHENTICATED"
)

// MsgNetworkFailure is the generic connectivity message surfaced to users
// when the API could not be reached at all.
const MsgNetworkFailure = "Unable to reach the server. Please try again."

// ErrLoginInProgress is returned when a login or registration call is issued
// while another one is still in flight.
var ErrLoginInProgress = goerrors.New("authentication already in progress", goerrors.CategoryConflict).
	WithTextCode(textCodeAuthInProgress).
	WithCode(goerrors.CodeConflict)

// ErrInvalidTransition is returned when a requested session status change is
// not allowed by the session lifecycle.
var ErrInvalidTransition = goerrors.New("invalid session state transition", goerrors.CategoryValidation).
	WithTextCode(textCodeInvalidTransition).
	WithCode(goerrors.CodeBadRequest)

// ErrNotAuthenticated is returned by API clients that require a bearer token
// when the session has none.
var ErrNotAuthenticated = goerrors.New("not authenticated", goerrors.CategoryAuth).
	WithTextCode(textCodeNotAuthenticated).
	WithCode(goerrors.CodeUnauthorized)

// NewRejectedError wraps a server-side rejection (non-2xx with an optional
// message payload) into the auth error taxonomy.
func NewRejectedError(message string) *goerrors.Error {
	if message == "" {
		message = "Authentication rejected"
	}
	return goerrors.New(message, goerrors.CategoryAuth).
		WithTextCode(textCodeAuthRejected).
		WithCode(goerrors.CodeUnauthorized)
}

// NewNetworkError wraps a transport failure (no HTTP response at all).
func NewNetworkError(cause error) *goerrors.Error {
	return goerrors.Wrap(cause, goerrors.CategoryOperation, MsgNetworkFailure).
		WithTextCode(textCodeNetworkFailure)
}

// IsRejected reports whether err represents a server-side auth rejection.
func IsRejected(err error) bool {
	return hasTextCode(err, textCodeAuthRejected)
}

// IsNetworkFailure reports whether err represents a transport failure.
func IsNetworkFailure(err error) bool {
	return hasTextCode(err, textCodeNetworkFailure)
}

// IsInProgress reports whether err means another auth call was in flight.
func IsInProgress(err error) bool {
	return hasTextCode(err, textCodeAuthInProgress)
}

// IsNotAuthenticated reports whether err means the session holds no token.
func IsNotAuthenticated(err error) bool {
	return hasTextCode(err, textCodeNotAuthenticated)
}

func hasTextCode(err error, code string) bool {
	if err == nil {
		return false
	}
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) {
		return false
	}
	return richErr.TextCode == code
}
