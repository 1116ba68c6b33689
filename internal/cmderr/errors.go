// Package cmderr defines the wire-visible error taxonomy for the command
// engine. Every error a handler can return is one of these kinds; the
// server formats them as Error messages on the wire and, for TypeConflict,
// never replicates the record that produced them.
package cmderr

import "fmt"

// Kind distinguishes the handful of error shapes a command handler, the
// replication path, or argument coercion can produce.
type Kind int

const (
	// UnknownCmd is returned for a command name not in the dispatch table,
	// or a REPL_ONLY command invoked directly by a client.
	UnknownCmd Kind = iota
	// UnknownSubCmd is returned for an unrecognized sub-command of a
	// control command such as NODE or CLIENT.
	UnknownSubCmd
	// WrongArity is returned when the argument iterator is exhausted
	// before a handler finishes reading its expected arguments.
	WrongArity
	// InvalidRequestMsg is returned when an argument cannot be coerced to
	// the type a handler expects (e.g. a non-numeric string where an
	// integer is required).
	InvalidRequestMsg
	// InvalidType is returned when a command is applied to an object whose
	// stored CRDT variant does not support that operation.
	InvalidType
	// TypeConflict is returned internally when two objects with
	// incompatible CRDT variants are merged. It never reaches a client;
	// replica links log it and skip the record.
	TypeConflict
)

func (k Kind) String() string {
	switch k {
	case UnknownCmd:
		return "UnknownCmd"
	case UnknownSubCmd:
		return "UnknownSubCmd"
	case WrongArity:
		return "WrongArity"
	case InvalidRequestMsg:
		return "InvalidRequestMsg"
	case InvalidType:
		return "InvalidType"
	case TypeConflict:
		return "TypeConflict"
	default:
		return "Unknown"
	}
}

// Error is the concrete error type returned by command handlers and the
// merge path. Callers distinguish taxonomy members with errors.As and the
// Kind field rather than by matching message text.
type Error struct {
	Kind Kind
	Msg  string
}

func (e *Error) Error() string {
	if e.Msg == "" {
		return e.Kind.String()
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

// Is lets errors.Is(err, cmderr.New(cmderr.UnknownCmd, "")) style
// comparisons match any *Error of the same Kind, whatever its Msg.
func (e *Error) Is(target error) bool {
	other, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == other.Kind
}

// New constructs an Error of the given kind with a human-readable detail.
func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

// UnknownCommand reports a dispatch-table miss or a REPL_ONLY command
// attempted by a client.
func UnknownCommand(name string) *Error {
	return &Error{Kind: UnknownCmd, Msg: fmt.Sprintf("unknown command %q", name)}
}

// UnknownSubCommand reports an unrecognized sub-command under parent.
func UnknownSubCommand(sub, parent string) *Error {
	return &Error{Kind: UnknownSubCmd, Msg: fmt.Sprintf("unknown subcommand %q for %s", sub, parent)}
}

// ErrWrongArity reports that the argument iterator ran out early.
func ErrWrongArity() *Error {
	return &Error{Kind: WrongArity, Msg: "wrong number of arguments"}
}

// InvalidRequest reports an argument type-coercion failure.
func InvalidRequest(detail string) *Error {
	return &Error{Kind: InvalidRequestMsg, Msg: detail}
}

// ErrInvalidType reports an operation applied to the wrong CRDT variant.
func ErrInvalidType() *Error {
	return &Error{Kind: InvalidType, Msg: "operation not supported by stored type"}
}

// ErrTypeConflict reports a merge across mismatched CRDT variants.
func ErrTypeConflict() *Error {
	return &Error{Kind: TypeConflict, Msg: "merge across mismatched encodings"}
}
