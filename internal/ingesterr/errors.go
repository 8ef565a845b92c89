// Package ingesterr defines the error kinds produced while ingesting a
// telemetry stream.
//
// Every failure is one of four kinds:
//   - IO: the input file cannot be opened or read
//   - Decode: the decompressor rejected the stream
//   - Parse: a single line is malformed (bad field, short line, bad timestamp)
//   - Persistence: the store rejected a single record
//
// IO and Decode abort the run. Parse and Persistence affect one line or one
// record only; callers log them and keep going.
package ingesterr

import (
	"errors"
	"fmt"
)

// Kind categorizes ingestion errors.
type Kind string

const (
	// KindIO indicates the input file could not be opened or read.
	KindIO Kind = "IO_ERROR"

	// KindDecode indicates the decompressed stream is unusable.
	KindDecode Kind = "DECODE_ERROR"

	// KindParse indicates a single line could not be parsed.
	KindParse Kind = "PARSE_ERROR"

	// KindPersistence indicates a single record could not be stored.
	KindPersistence Kind = "PERSISTENCE_ERROR"
)

// Error is an ingestion failure with its kind and a human-readable cause.
type Error struct {
	// Kind identifies the error category.
	Kind Kind

	// Op names the operation that failed ("read chunk", "parse stats", ...).
	Op string

	// Message is a human-readable description.
	Message string

	// Err is the underlying error, if any.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Message
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, msg)
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// IO returns a KindIO error.
func IO(op, message string, err error) *Error {
	return &Error{Kind: KindIO, Op: op, Message: message, Err: err}
}

// Decode returns a KindDecode error.
func Decode(op, message string, err error) *Error {
	return &Error{Kind: KindDecode, Op: op, Message: message, Err: err}
}

// Parse returns a KindParse error.
func Parse(op, message string, err error) *Error {
	return &Error{Kind: KindParse, Op: op, Message: message, Err: err}
}

// Persistence returns a KindPersistence error.
func Persistence(op, message string, err error) *Error {
	return &Error{Kind: KindPersistence, Op: op, Message: message, Err: err}
}

// KindOf returns the kind of err, or "" if err is not an *Error.
// Uses errors.As to handle wrapped errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// IsFatal reports whether err must abort the whole run.
func IsFatal(err error) bool {
	switch KindOf(err) {
	case KindIO, KindDecode:
		return true
	}
	return false
}
