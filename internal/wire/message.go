// Package wire defines the request/reply message model for the client
// protocol and the argument-coercion helper the command engine uses to
// read typed arguments off a request. The byte-level framing lives in
// codec.go behind the Codec interface; this file only knows about the
// seven message kinds themselves.
package wire

import (
	"strconv"

	"github.com/cshekharsharma/constdb/internal/cmderr"
)

// Kind enumerates the wire message shapes.
type Kind int

const (
	KindInteger Kind = iota
	KindString
	KindBulkString
	KindArray
	KindError
	KindNil
	KindNone
)

// Message is a tagged union over the seven wire kinds. Only the field(s)
// matching Kind are meaningful.
type Message struct {
	Kind  Kind
	Int   int64
	Bytes []byte
	Items []Message
}

// Int builds an Integer message.
func Int(v int64) Message { return Message{Kind: KindInteger, Int: v} }

// Str builds a simple String message (short status strings; no bulk length).
func Str(s string) Message { return Message{Kind: KindString, Bytes: []byte(s)} }

// Bulk builds a BulkString message carrying arbitrary bytes.
func Bulk(b []byte) Message { return Message{Kind: KindBulkString, Bytes: b} }

// Arr builds an Array message.
func Arr(items []Message) Message { return Message{Kind: KindArray, Items: items} }

// Err builds an Error message.
func Err(msg string) Message { return Message{Kind: KindError, Bytes: []byte(msg)} }

// ErrFrom renders a cmderr.Error (or any error) as a wire Error message.
func ErrFrom(err error) Message { return Err(err.Error()) }

// Nil is the typed-absence reply (e.g. GET on a missing key).
var Nil = Message{Kind: KindNil}

// None is the no-reply placeholder used by control commands such as SYNC.
var None = Message{Kind: KindNone}

// OK is the conventional simple-string acknowledgement.
func OK() Message { return Str("OK") }

// ArgReader walks a request's argument messages, coercing as it goes.
// It mirrors the original implementation's NextArg trait: every accessor
// fails with WrongArity once exhausted, and with InvalidRequestMsg on a
// type it cannot coerce.
type ArgReader struct {
	items []Message
	pos   int
}

// NewArgReader wraps a command's argument slice (the request array minus
// the command name) for sequential, typed consumption.
func NewArgReader(items []Message) *ArgReader {
	return &ArgReader{items: items}
}

// Remaining reports how many unconsumed arguments are left.
func (a *ArgReader) Remaining() int { return len(a.items) - a.pos }

// Next returns the next raw message, or WrongArity if exhausted.
func (a *ArgReader) Next() (Message, error) {
	if a.pos >= len(a.items) {
		return Message{}, cmderr.ErrWrongArity()
	}
	m := a.items[a.pos]
	a.pos++
	return m, nil
}

// NextBytes coerces the next argument to bytes. Integer, String, Error and
// BulkString are all acceptable sources, matching the original protocol's
// leniency: any non-Array scalar can stand in for bytes.
func (a *ArgReader) NextBytes() ([]byte, error) {
	m, err := a.Next()
	if err != nil {
		return nil, err
	}
	switch m.Kind {
	case KindInteger:
		return []byte(strconv.FormatInt(m.Int, 10)), nil
	case KindString, KindBulkString, KindError:
		return m.Bytes, nil
	default:
		return nil, cmderr.InvalidRequest("argument should be a non-array type")
	}
}

// NextString is NextBytes with a string conversion.
func (a *ArgReader) NextString() (string, error) {
	b, err := a.NextBytes()
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// NextI64 coerces the next argument to a signed integer, parsing decimal
// text for String/BulkString arguments.
func (a *ArgReader) NextI64() (int64, error) {
	m, err := a.Next()
	if err != nil {
		return 0, err
	}
	switch m.Kind {
	case KindInteger:
		return m.Int, nil
	case KindString, KindBulkString:
		v, perr := strconv.ParseInt(string(m.Bytes), 10, 64)
		if perr != nil {
			return 0, cmderr.InvalidRequest("argument should be an integer")
		}
		return v, nil
	default:
		return 0, cmderr.InvalidRequest("argument should be of type Integer, String or BulkString")
	}
}

// NextU64 is NextI64 with a non-negative check.
func (a *ArgReader) NextU64() (uint64, error) {
	v, err := a.NextI64()
	if err != nil {
		return 0, err
	}
	if v < 0 {
		return 0, cmderr.InvalidRequest("argument should be an unsigned integer")
	}
	return uint64(v), nil
}
