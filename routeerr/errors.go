package routeerr

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies a failure so callers can tell "no safe route exists"
// apart from a broken input or a malfunction.
type Kind string

const (
	// MalformedTopology means the input road graph violates its invariants.
	MalformedTopology Kind = "MALFORMED_TOPOLOGY"

	// UnresolvableEndpoint means a query point could not be matched to a node.
	UnresolvableEndpoint Kind = "UNRESOLVABLE_ENDPOINT"

	// NoPathFound means origin and destination are not connected.
	NoPathFound Kind = "NO_PATH_FOUND"

	// SerializationError means a persisted graph is corrupt or incompatible.
	SerializationError Kind = "SERIALIZATION_ERROR"

	// InvalidInput means a caller supplied an out-of-range parameter.
	InvalidInput Kind = "INVALID_INPUT"

	// Unavailable means a required resource (graph, geocoder) is missing.
	Unavailable Kind = "UNAVAILABLE"

	// Internal is everything else.
	Internal Kind = "INTERNAL"
)

// Stage names the pipeline step that failed.
type Stage string

const (
	StageLoadTopology  Stage = "load-topology"
	StageLoadIncidents Stage = "load-incidents"
	StageAggregate     Stage = "aggregate"
	StagePersist       Stage = "persist"
	StageSnap          Stage = "snap"
	StageSolve         Stage = "solve"
	StageGeocode       Stage = "geocode"
	StageQuery         Stage = "query"
)

// Error is the typed error returned across package boundaries.
type Error struct {
	Kind  Kind
	Stage Stage
	Op    string
	Err   error
}

// Sentinels for errors.Is. They match any *Error of the same kind.
var (
	ErrMalformedTopology    = &Error{Kind: MalformedTopology}
	ErrUnresolvableEndpoint = &Error{Kind: UnresolvableEndpoint}
	ErrNoPathFound          = &Error{Kind: NoPathFound}
	ErrSerialization        = &Error{Kind: SerializationError}
	ErrInvalidInput         = &Error{Kind: InvalidInput}
	ErrUnavailable          = &Error{Kind: Unavailable}
)

// New wraps err with a kind and the stage/operation it happened in.
func New(kind Kind, stage Stage, op string, err error) *Error {
	return &Error{Kind: kind, Stage: stage, Op: op, Err: err}
}

// Errorf is New with a formatted cause.
func Errorf(kind Kind, stage Stage, op string, format string, args ...interface{}) *Error {
	return New(kind, stage, op, fmt.Errorf(format, args...))
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.Stage != "" {
		b.WriteString(string(e.Stage))
		b.WriteString(": ")
	}
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(": ")
	}
	b.WriteString(string(e.Kind))
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches sentinels by kind. A target with a stage set must match the
// stage as well.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Kind != e.Kind {
		return false
	}
	return t.Stage == "" || t.Stage == e.Stage
}

// KindOf returns the kind of the outermost *Error in err's chain, Internal
// for foreign errors and "" for nil.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Internal
}

// StageOf returns the stage of the outermost *Error in err's chain.
func StageOf(err error) Stage {
	var e *Error
	if errors.As(err, &e) {
		return e.Stage
	}
	return ""
}

// Message returns the innermost cause text, without the kind/stage prefix.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Err != nil {
		return Message(e.Err)
	}
	if err == nil {
		return ""
	}
	return err.Error()
}
