package core

import (
	"errors"
	"fmt"
)

// Error kinds. Every failure surfaced by peerstore matches exactly one of
// these through errors.Is.
var (
	// ErrCorrupt reports a stored value that is not valid JSON for its collection.
	ErrCorrupt = errors.New("stored value is corrupt")
	// ErrQuotaExceeded reports a write rejected by the medium's size ceiling.
	ErrQuotaExceeded = errors.New("storage quota exceeded")
	// ErrUnavailable reports a medium that cannot currently be read or written.
	ErrUnavailable = errors.New("durable storage unavailable")
	// ErrInvalid reports an entity or patch that cannot be encoded or fails validation.
	ErrInvalid = errors.New("invalid entity")
	// ErrUnknownKey reports a key outside the logical key enumeration.
	ErrUnknownKey = errors.New("unknown collection key")
	// ErrRemote reports a failure of the asynchronous record service.
	ErrRemote = errors.New("record service failure")
	// ErrNotFound reports a missing record in a record service.
	ErrNotFound = errors.New("record not found")
)

// OpError describes a failed operation on a key or record.
// It matches both its Kind and the underlying cause with errors.Is.
type OpError struct {
	Op   string // e.g. "get", "set", "upsert", "create"
	Key  string // logical key, scope address or record id
	Kind error
	Err  error
}

func (e *OpError) Error() string {
	msg := e.Op
	if e.Key != "" {
		msg += " " + e.Key
	}
	if e.Kind != nil {
		msg += ": " + e.Kind.Error()
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *OpError) Unwrap() []error {
	var errs []error
	if e.Kind != nil {
		errs = append(errs, e.Kind)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

// Errorf builds an OpError whose cause is formatted from format and args.
func Errorf(op, key string, kind error, format string, args ...any) *OpError {
	return &OpError{Op: op, Key: key, Kind: kind, Err: fmt.Errorf(format, args...)}
}

// KindOf returns the error kind carried by err, or nil when err carries none.
func KindOf(err error) error {
	for _, kind := range []error{ErrCorrupt, ErrQuotaExceeded, ErrUnavailable, ErrInvalid, ErrUnknownKey, ErrRemote, ErrNotFound} {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return nil
}
