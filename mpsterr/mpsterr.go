// Package mpsterr provides the shared error taxonomy used across the
// projection pipeline: source locations, wrapping helpers, and the
// InternalError kind reserved for invariant violations.
package mpsterr

import "fmt"

// Location is a position in protocol source text, attached to errors and
// AST nodes so the CLI can print "file:line:col" (spec.md §7).
type Location struct {
	File   string
	Line   int
	Column int
}

func (l Location) String() string {
	if l.File == "" && l.Line == 0 {
		return ""
	}
	return fmt.Sprintf("%s:%d:%d", l.File, l.Line, l.Column)
}

// IsZero reports whether no location information is available.
func (l Location) IsZero() bool {
	return l.File == "" && l.Line == 0 && l.Column == 0
}

// InternalError signals an invariant the implementation believes it
// maintains was violated; it carries a snapshot for postmortem.
type InternalError struct {
	Message  string
	Snapshot map[string]any
	Cause    error
}

func (e *InternalError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("internal error: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("internal error: %s", e.Message)
}

func (e *InternalError) Unwrap() error { return e.Cause }

// NewInternalError builds an InternalError with an optional state snapshot.
func NewInternalError(message string, snapshot map[string]any, cause error) *InternalError {
	return &InternalError{Message: message, Snapshot: snapshot, Cause: cause}
}

// Located decorates any error with a source location, implementing Unwrap
// so callers can still test the underlying kind with errors.As/Is.
type Located struct {
	Loc   Location
	Cause error
}

func (e *Located) Error() string {
	if loc := e.Loc.String(); loc != "" {
		return fmt.Sprintf("%s: %v", loc, e.Cause)
	}
	return e.Cause.Error()
}

func (e *Located) Unwrap() error { return e.Cause }

// At wraps err with a location. Returns nil if err is nil.
func At(loc Location, err error) error {
	if err == nil {
		return nil
	}
	return &Located{Loc: loc, Cause: err}
}

// Aggregate collects multiple errors into one, matching the verifier's
// requirement that well-formedness errors accumulate rather than stop at
// the first failure (spec.md §4.6/§7). Grounded on the teacher's
// ShutdownError aggregation idiom (coreengine/kernel/kernel.go).
type Aggregate struct {
	Errors []error
}

func (e *Aggregate) Error() string {
	switch len(e.Errors) {
	case 0:
		return "no errors"
	case 1:
		return e.Errors[0].Error()
	default:
		return fmt.Sprintf("%d errors, first: %v", len(e.Errors), e.Errors[0])
	}
}

// Unwrap returns the first error for compatibility with errors.Is/As.
func (e *Aggregate) Unwrap() error {
	if len(e.Errors) == 0 {
		return nil
	}
	return e.Errors[0]
}

// Add appends err to the aggregate if non-nil.
func (e *Aggregate) Add(err error) {
	if err != nil {
		e.Errors = append(e.Errors, err)
	}
}

// Empty reports whether the aggregate holds no errors.
func (e *Aggregate) Empty() bool { return len(e.Errors) == 0 }

// ErrOrNil returns e as an error if it holds at least one error, else nil.
func (e *Aggregate) ErrOrNil() error {
	if e.Empty() {
		return nil
	}
	return e
}
