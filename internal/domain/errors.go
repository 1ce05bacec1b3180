package domain

import (
	"errors"
	"fmt"
)

// ErrorKind classifies failures by how the orchestrator reacts to them.
type ErrorKind int

const (
	// KindAuth is a rejected or failed login. Fatal for the process run.
	KindAuth ErrorKind = iota + 1
	// KindSession is a well-formed session the server no longer honours.
	// Triggers interactive login.
	KindSession
	// KindAPI is a failed check-in, check-out or project listing.
	KindAPI
	// KindConfig is unreadable or corrupt persisted state. Treated as absence.
	KindConfig
)

func (k ErrorKind) String() string {
	switch k {
	case KindAuth:
		return "auth"
	case KindSession:
		return "session"
	case KindAPI:
		return "api"
	case KindConfig:
		return "config"
	}
	return "unknown"
}

// Error is the error type returned across the core's boundaries.
type Error struct {
	Kind ErrorKind
	Op   string // e.g. "login", "check-in"
	// Status is the HTTP status the server answered with. Zero means the
	// request never got an answer.
	Status int
	Err    error
}

func (e *Error) Error() string {
	msg := e.Kind.String() + " error"
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Status != 0 {
		msg += fmt.Sprintf(" (status %d)", e.Status)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches the kind sentinels below, so errors.Is(err, ErrSession) works
// for any session error.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Op == "" && t.Status == 0 && t.Err == nil && t.Kind == e.Kind
}

// Unreachable reports whether the request failed before the server answered.
func (e *Error) Unreachable() bool { return e.Status == 0 }

var (
	ErrAuth    = &Error{Kind: KindAuth}
	ErrSession = &Error{Kind: KindSession}
	ErrAPI     = &Error{Kind: KindAPI}
	ErrConfig  = &Error{Kind: KindConfig}
)

var (
	// ErrInvalidSession is returned when an authenticated call is made with
	// a session missing its identifiers. It is a programming error.
	ErrInvalidSession = errors.New("session is not valid")
	// ErrBusy is returned when an action is dispatched while another one is
	// still waiting on the network.
	ErrBusy = errors.New("another action is in progress")
)

func NewAuthError(op string, status int, err error) *Error {
	return &Error{Kind: KindAuth, Op: op, Status: status, Err: err}
}

func NewSessionError(op string, status int, err error) *Error {
	return &Error{Kind: KindSession, Op: op, Status: status, Err: err}
}

func NewAPIError(op string, status int, err error) *Error {
	return &Error{Kind: KindAPI, Op: op, Status: status, Err: err}
}

func NewConfigError(op string, err error) *Error {
	return &Error{Kind: KindConfig, Op: op, Err: err}
}

// KindOf returns the kind of err, or 0 when err is not an *Error.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}
