package risk

import "fmt"

// ErrorKind classifies why an action was rejected.
type ErrorKind int

const (
	KindNotFound ErrorKind = iota + 1
	KindIllegalTurn
	KindIllegalPhase
	KindIllegalMove
	KindInvariantViolation
)

func (k ErrorKind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindIllegalTurn:
		return "illegal_turn"
	case KindIllegalPhase:
		return "illegal_phase"
	case KindIllegalMove:
		return "illegal_move"
	case KindInvariantViolation:
		return "invariant_violation"
	}
	return "unknown"
}

// Error is returned by every engine operation that rejects an action.
// No state has been modified when an Error is returned.
type Error struct {
	Kind    ErrorKind
	Message string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return e.Kind.String()
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Is reports kind equality so callers can match with errors.Is against the
// package sentinels.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && (t.Message == "" || t.Message == e.Message)
}

var (
	ErrNotFound           = &Error{Kind: KindNotFound}
	ErrIllegalTurn        = &Error{Kind: KindIllegalTurn}
	ErrIllegalPhase       = &Error{Kind: KindIllegalPhase}
	ErrIllegalMove        = &Error{Kind: KindIllegalMove}
	ErrInvariantViolation = &Error{Kind: KindInvariantViolation}
)

func notFound(format string, args ...any) error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

func illegalTurn(format string, args ...any) error {
	return &Error{Kind: KindIllegalTurn, Message: fmt.Sprintf(format, args...)}
}

func illegalPhase(format string, args ...any) error {
	return &Error{Kind: KindIllegalPhase, Message: fmt.Sprintf(format, args...)}
}

func illegalMove(format string, args ...any) error {
	return &Error{Kind: KindIllegalMove, Message: fmt.Sprintf(format, args...)}
}

func invariant(format string, args ...any) error {
	return &Error{Kind: KindInvariantViolation, Message: fmt.Sprintf(format, args...)}
}
