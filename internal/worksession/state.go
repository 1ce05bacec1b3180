package worksession

import (
	"errors"
	"fmt"
	"strings"
)

// State is the orchestrator's position in the session lifecycle.
type State int

const (
	StateUnauthenticated State = iota
	StateAuthenticating
	StateOffline // ready, not checked in
	StateWorking // ready, checked in
	StateTerminated
)

var stateNames = map[State]string{
	StateUnauthenticated: "unauthenticated",
	StateAuthenticating:  "authenticating",
	StateOffline:         "offline",
	StateWorking:         "working",
	StateTerminated:      "terminated",
}

func (s State) String() string {
	if n, ok := stateNames[s]; ok {
		return n
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Ready reports whether the orchestrator accepts user actions.
func (s State) Ready() bool { return s == StateOffline || s == StateWorking }

var (
	ErrInvalidTransition = errors.New("action not allowed in current state")
	ErrTerminated        = errors.New("work session terminated")
	ErrUnknownAction     = errors.New("unknown action")
)

// ActionKind is what the user asked for.
type ActionKind int

const (
	ActionCheckIn ActionKind = iota + 1
	ActionCheckOut
	ActionQuit
)

// Action is a parsed UI action token.
type Action struct {
	Kind      ActionKind
	ProjectID string
}

// String renders the action back to its token form.
func (a Action) String() string {
	switch a.Kind {
	case ActionCheckIn:
		return "checkin:" + a.ProjectID
	case ActionCheckOut:
		return "checkout"
	case ActionQuit:
		return "quit"
	}
	return ""
}

// ParseAction parses "checkin:<projectId>", "checkout" or "quit".
func ParseAction(token string) (Action, error) {
	switch {
	case token == "checkout":
		return Action{Kind: ActionCheckOut}, nil
	case token == "quit":
		return Action{Kind: ActionQuit}, nil
	case strings.HasPrefix(token, "checkin:"):
		id := strings.TrimPrefix(token, "checkin:")
		if id == "" {
			return Action{}, fmt.Errorf("%w: check-in without project", ErrUnknownAction)
		}
		return Action{Kind: ActionCheckIn, ProjectID: id}, nil
	}
	return Action{}, fmt.Errorf("%w: %q", ErrUnknownAction, token)
}
