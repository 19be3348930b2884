// Package errors defines the error kinds and common errors used by the
// configurator.
package errors

import (
	"errors"
	"fmt"
)

// Kind classifies an error by the collaborator that produced it.
type Kind uint8

const (
	// KindUnknown is the zero Kind
	KindUnknown Kind = iota
	// CoordinationUnavailable covers connect, watch, create and delete
	// failures against the coordination service.
	CoordinationUnavailable
	// SchedulerUnavailable covers task queries and webhook (de)registration
	// failures against the scheduler.
	SchedulerUnavailable
	// StoreCommandFailed covers database command errors, including a
	// rejected reconfigure because of a version mismatch.
	StoreCommandFailed
	// ConfigInvariantViolation is returned for malformed replica set
	// configuration documents.
	ConfigInvariantViolation
)

var kindNames = map[Kind]string{
	KindUnknown:              "Unknown",
	CoordinationUnavailable:  "CoordinationUnavailable",
	SchedulerUnavailable:     "SchedulerUnavailable",
	StoreCommandFailed:       "StoreCommandFailed",
	ConfigInvariantViolation: "ConfigInvariantViolation",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

// Error is an error annotated with its Kind and the operation that failed.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

// E returns a new *Error. A nil err returns nil.
func E(kind Kind, op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

func (e *Error) Error() string {
	if e.Op == "" {
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

// Unwrap returns the wrapped error
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports a match against another *Error of the same Kind, so that
// errors.Is(err, &Error{Kind: k}) works as a kind check.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Op == "" && t.Err == nil
}

// KindOf returns the Kind of the outermost *Error in err's chain
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// IsKind returns true if err has an *Error of the given kind in its chain
func IsKind(err error, kind Kind) bool {
	return errors.Is(err, &Error{Kind: kind})
}

// Common errors
var (
	ErrMissingMembers        = errors.New("replica set config has no members array")
	ErrMissingConfigID       = errors.New("replica set config has no _id")
	ErrNotPrimary            = errors.New("this instance is not the replica set primary")
	ErrNoDatabasePort        = errors.New("task does not expose a database port")
	ErrUnexpectedStatus      = errors.New("unexpected response status")
	ErrQueueFull             = errors.New("reconfiguration queue is full")
	ErrInvalidAppID          = errors.New("application id is empty")
	ErrInvalidReplicaSetName = errors.New("replica set name is empty")
)
