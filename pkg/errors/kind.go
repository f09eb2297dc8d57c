package errors

import (
	"context"
	stderrors "errors"
	"net"
	"net/http"
	"strings"
)

// Kind is the coarse category an error falls into
type Kind string

// Error kinds, from HTTP status codes or message heuristics
const (
	KindNetwork    Kind = "network"
	KindValidation Kind = "validation"
	KindAuth       Kind = "auth"
	KindServer     Kind = "server"
	KindPermission Kind = "permission"
	KindNotFound   Kind = "not_found"
	KindUnknown    Kind = "unknown"
)

// StatusCoder is implemented by errors that carry an HTTP status code
type StatusCoder interface {
	StatusCode() int
}

// kindError tags a cause with an explicit kind
type kindError struct {
	kind  Kind
	cause error
}

func (e *kindError) Error() string { return e.cause.Error() }
func (e *kindError) Unwrap() error { return e.cause }

// Wrap tags err with kind. Classify returns kind for the result and for
// anything that wraps it.
func Wrap(kind Kind, err error) error {
	if err == nil {
		return nil
	}
	return &kindError{kind: kind, cause: err}
}

// New creates an error of the given kind
func New(kind Kind, msg string) error {
	return &kindError{kind: kind, cause: stderrors.New(msg)}
}

// FromStatus maps an HTTP status code to a kind
func FromStatus(code int) Kind {
	switch {
	case code == http.StatusUnauthorized:
		return KindAuth
	case code == http.StatusForbidden:
		return KindPermission
	case code == http.StatusNotFound:
		return KindNotFound
	case code == http.StatusBadRequest || code == http.StatusUnprocessableEntity || code == http.StatusConflict:
		return KindValidation
	case code >= 500:
		return KindServer
	default:
		return KindUnknown
	}
}

// Status maps a kind back to the HTTP status a handler should answer with
func Status(kind Kind) int {
	switch kind {
	case KindValidation:
		return http.StatusBadRequest
	case KindAuth:
		return http.StatusUnauthorized
	case KindPermission:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindNetwork:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// messageHints are checked in order; the first substring hit wins
var messageHints = []struct {
	kind    Kind
	phrases []string
}{
	{KindAuth, []string{"unauthorized", "401", "invalid token", "token expired", "authentication"}},
	{KindPermission, []string{"forbidden", "403", "permission denied", "not allowed"}},
	{KindNetwork, []string{"connection refused", "network", "timeout", "no such host", "connection reset", "unexpected eof"}},
	{KindNotFound, []string{"not found", "404", "no such"}},
	{KindValidation, []string{"invalid", "validation", "required", "missing", "cannot be empty", "already exists"}},
	{KindServer, []string{"internal server", "500", "502", "503", "server error"}},
}

// Classify determines the kind of err.
// Explicit tags win, then status codes, then well-known network errors, and
// finally message substring heuristics.
func Classify(err error) Kind {
	if err == nil {
		return ""
	}

	var ke *kindError
	if stderrors.As(err, &ke) {
		return ke.kind
	}

	var oe *OperationalError
	if stderrors.As(err, &oe) && oe.Kind != "" {
		return oe.Kind
	}

	var sc StatusCoder
	if stderrors.As(err, &sc) {
		if kind := FromStatus(sc.StatusCode()); kind != KindUnknown {
			return kind
		}
	}

	if stderrors.Is(err, context.DeadlineExceeded) {
		return KindNetwork
	}
	var netErr net.Error
	if stderrors.As(err, &netErr) {
		return KindNetwork
	}

	msg := strings.ToLower(err.Error())
	for _, hint := range messageHints {
		for _, phrase := range hint.phrases {
			if strings.Contains(msg, phrase) {
				return hint.kind
			}
		}
	}

	return KindUnknown
}
