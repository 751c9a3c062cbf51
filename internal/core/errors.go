package core

import (
	"errors"
	"strings"
)

// ErrorKind classifies failures so callers can branch without matching
// message text.
type ErrorKind string

const (
	NotFound      ErrorKind = "not_found"
	AlreadyExists ErrorKind = "already_exists"
	InvalidInput  ErrorKind = "invalid_input"
	Persistence   ErrorKind = "persistence_error"
)

// Error carries a kind, the failing operation and an optional cause.
type Error struct {
	Kind    ErrorKind
	Op      string
	Message string
	Err     error
}

// Kind sentinels. errors.Is(err, ErrNotFound) matches any *Error of that
// kind anywhere in the chain.
var (
	ErrNotFound      = &Error{Kind: NotFound}
	ErrAlreadyExists = &Error{Kind: AlreadyExists}
	ErrInvalidInput  = &Error{Kind: InvalidInput}
	ErrPersistence   = &Error{Kind: Persistence}
)

// Session failures surfaced to the authentication UI.
var (
	ErrUserNotFound       = &Error{Kind: NotFound, Message: "user not found"}
	ErrInvalidCredentials = &Error{Kind: InvalidInput, Message: "invalid credentials"}
	ErrEmailAlreadyExists = &Error{Kind: AlreadyExists, Message: "email already exists"}
	ErrNotAuthenticated   = &Error{Kind: NotFound, Message: "no authenticated user"}
)

func (e *Error) Error() string {
	parts := make([]string, 0, 3)
	if e.Op != "" {
		parts = append(parts, e.Op)
	}
	if e.Message != "" {
		parts = append(parts, e.Message)
	}
	if e.Err != nil {
		parts = append(parts, e.Err.Error())
	}
	if len(parts) == 0 {
		return string(e.Kind)
	}
	return strings.Join(parts, ": ")
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches kind sentinels; named errors match by identity through the
// default errors.Is walk.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Op == "" && t.Message == "" && t.Err == nil {
		return e.Kind == t.Kind
	}
	return false
}

// E builds an *Error. err may be nil.
func E(kind ErrorKind, op, message string, err error) *Error {
	return &Error{Kind: kind, Op: op, Message: message, Err: err}
}

// PersistenceError wraps a storage failure.
func PersistenceError(op string, err error) *Error {
	return &Error{Kind: Persistence, Op: op, Err: err}
}

// KindOf returns the kind of the first *Error in err's chain, or "" when
// there is none.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// UserMessage returns a human-readable message for the UI: the message of
// the outermost *Error that has one, or a generic text.
func UserMessage(err error) string {
	for err != nil {
		var e *Error
		if !errors.As(err, &e) {
			break
		}
		if e.Message != "" {
			return e.Message
		}
		err = e.Err
	}
	return "something went wrong"
}
