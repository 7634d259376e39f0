package verifier

import (
	"fmt"
	"strings"

	"github.com/scribble-mpst/mpst-core/ast"
	"github.com/scribble-mpst/mpst-core/mpsterr"
)

// Kind tags a WellFormednessError's specific violation. The set is the
// union of spec.md §7's WellFormednessError sub-kinds and §4.6's signal
// names, which name overlapping but not identical things (e.g. §4.6's
// "Disconnected" has no direct counterpart in §7's list) — see
// DESIGN.md for the reconciliation.
type Kind string

const (
	KindUndefinedRole          Kind = "UndefinedRole"
	KindDisconnected           Kind = "Disconnected"
	KindSelfCommunication      Kind = "SelfCommunication"
	KindUndefinedRecursionLabel Kind = "UndefinedRecursionLabel"
	KindNonDeterministicChoice Kind = "NonDeterministicChoice"
	KindUnguardedRecursion     Kind = "UnguardedRecursion"
	KindDoArity                Kind = "DoArity"
	KindRoleAliasing           Kind = "RoleAliasing"
	KindUndeclaredRoleInDo     Kind = "UndeclaredRoleInDo"
	KindRace                   Kind = "Race"
	KindDeadlock               Kind = "Deadlock"
)

// WellFormednessError is one well-formedness violation (spec.md §7,
// item 2). Multiple are collected into a Report rather than aborting on
// the first.
type WellFormednessError struct {
	Kind     Kind
	Protocol string
	Role     ast.Role
	Label    string // message label, recursion label, or branch identifier
	Detail   string
	Loc      mpsterr.Location
}

func (e *WellFormednessError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s", e.Kind)
	if e.Protocol != "" {
		fmt.Fprintf(&b, " in %s", e.Protocol)
	}
	if e.Role != "" {
		fmt.Fprintf(&b, " (role %s)", e.Role)
	}
	if e.Label != "" {
		fmt.Fprintf(&b, " [%s]", e.Label)
	}
	if e.Detail != "" {
		fmt.Fprintf(&b, ": %s", e.Detail)
	}
	if !e.Loc.IsZero() {
		fmt.Fprintf(&b, " at %s", e.Loc)
	}
	return b.String()
}

// Report accumulates every WellFormednessError found for one protocol,
// per spec.md §7's propagation policy: "verification errors are
// accumulated into a report before projection".
type Report struct {
	Protocol string
	Errors   []*WellFormednessError
}

func (r *Report) add(e *WellFormednessError) {
	r.Errors = append(r.Errors, e)
}

// Empty reports whether the protocol is well-formed (no errors).
func (r *Report) Empty() bool {
	return len(r.Errors) == 0
}

func (r *Report) Error() string {
	if r.Empty() {
		return ""
	}
	msgs := make([]string, len(r.Errors))
	for i, e := range r.Errors {
		msgs[i] = e.Error()
	}
	return fmt.Sprintf("protocol %s failed verification:\n  %s", r.Protocol, strings.Join(msgs, "\n  "))
}
