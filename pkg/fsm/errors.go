package fsm

import (
	"fmt"

	"github.com/projectdiscovery/gologger"
)

// Kind classifies why an operation was rejected. Query
// functions still return sentinel values and mutation functions still
// return bool (the reference library's propagation policy), but every
// rejection is classified internally so diagnostics can name a precise
// reason instead of a generic message.
type Kind int

const (
	_ Kind = iota
	// InvalidIdentifier: an id or symbol is out of range or refers to
	// a cleared used-id slot.
	InvalidIdentifier
	// UndefinedTransition: delta(s,a) = NullState where a value was required.
	UndefinedTransition
	// InvariantViolation: a write would break a data-model invariant.
	InvariantViolation
	// Capability: the operation is disallowed for this variant.
	Capability
	// IO: open/read/parse failure on load/save.
	IO
)

func (k Kind) String() string {
	switch k {
	case InvalidIdentifier:
		return "invalid identifier"
	case UndefinedTransition:
		return "undefined transition"
	case InvariantViolation:
		return "invariant violation"
	case Capability:
		return "capability"
	case IO:
		return "io"
	default:
		return "unknown"
	}
}

// Error lets a bare Kind stand in for the error it names, so it can be
// used directly as the target of errors.Is.
func (k Kind) Error() string { return k.String() }

// OpError is the typed reason behind a rejected call. It is never
// returned directly from the public API (which keeps sentinel/bool
// returns) — it exists so the diagnostics layer can log the exact
// constraint that failed.
type OpError struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *OpError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *OpError) Unwrap() error { return e.Err }

// Is lets callers test an OpError's classification with
// errors.Is(err, fsm.InvalidIdentifier) style matching, treating the
// bare Kind value as the sentinel target.
func (e *OpError) Is(target error) bool {
	k, ok := target.(Kind)
	return ok && e.Kind == k
}

// reject builds an OpError, logs it at the level appropriate to its
// kind, and returns it — callers typically discard the return value
// and just report false/sentinel to the caller, keeping the logged
// detail for diagnostics.
func reject(typeName string, op string, kind Kind, format string, args ...any) *OpError {
	err := &OpError{Kind: kind, Op: typeName + "." + op, Err: fmt.Errorf(format, args...)}
	switch kind {
	case Capability, InvariantViolation:
		gologger.Warning().Msgf("%s", err.Error())
	case IO:
		gologger.Error().Msgf("%s", err.Error())
	default:
		gologger.Debug().Msgf("%s", err.Error())
	}
	return err
}
