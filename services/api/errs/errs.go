// Package errs classifies failures raised while ingesting and composing
// datasets so the host can map them to diagnostics and HTTP statuses.
package errs

import (
	"errors"
	"fmt"
)

// Kind is the failure category of an Error.
type Kind int

const (
	// KindAcquisition covers network, status and format failures while fetching.
	KindAcquisition Kind = iota
	// KindParse covers malformed payloads.
	KindParse
	// KindConfiguration covers missing or invalid column references and duplicate names/URLs.
	KindConfiguration
	// KindComputation covers degenerate inputs to classification.
	KindComputation
)

// String returns the string representation of Kind.
func (k Kind) String() string {
	switch k {
	case KindAcquisition:
		return "acquisition"
	case KindParse:
		return "parse"
	case KindConfiguration:
		return "configuration"
	case KindComputation:
		return "computation"
	default:
		return "unknown"
	}
}

// Standard causes wrapped by Error.
var (
	ErrUnsupportedFormat = errors.New("unsupported format")
	ErrDuplicateName     = errors.New("duplicate dataset name")
	ErrDuplicateURL      = errors.New("duplicate url")
	ErrNotFound          = errors.New("dataset not found")
	ErrColumnNotFound    = errors.New("column not found")
	ErrUnknownColormap   = errors.New("unknown colormap")
	ErrNoNumericValues   = errors.New("no numeric values")
	ErrNoValues          = errors.New("column has no values")
	ErrInvalidBandCount  = errors.New("band count must be positive")
	ErrInvalidTransition = errors.New("invalid state transition")
	ErrEmptyPayload      = errors.New("empty payload")
)

// Error wraps a cause with its Kind and the operation that raised it.
type Error struct {
	Kind  Kind
	Op    string
	Entry string
	Err   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Op
	if e.Entry != "" {
		msg += " " + e.Entry
	}
	if e.Err != nil {
		if msg != "" {
			msg += ": "
		}
		msg += e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

func newError(kind Kind, op, entry string, err error) *Error {
	return &Error{Kind: kind, Op: op, Entry: entry, Err: err}
}

// Acquisition builds a KindAcquisition error.
func Acquisition(op, entry string, err error) *Error {
	return newError(KindAcquisition, op, entry, err)
}

// Parse builds a KindParse error.
func Parse(op, entry string, err error) *Error {
	return newError(KindParse, op, entry, err)
}

// Configuration builds a KindConfiguration error.
func Configuration(op, entry string, err error) *Error {
	return newError(KindConfiguration, op, entry, err)
}

// Computation builds a KindComputation error.
func Computation(op, entry string, err error) *Error {
	return newError(KindComputation, op, entry, err)
}

// Configurationf builds a KindConfiguration error from a format string.
func Configurationf(op, entry, format string, args ...any) *Error {
	return newError(KindConfiguration, op, entry, fmt.Errorf(format, args...))
}

// IsKind reports whether err carries the given Kind anywhere in its chain.
func IsKind(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

// KindOf returns the Kind of err, and false if err was never classified.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return 0, false
}
