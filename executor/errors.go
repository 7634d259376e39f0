package executor

import (
	"fmt"

	"github.com/scribble-mpst/mpst-core/ast"
)

// ProtocolViolationError is a SimulationError sub-kind (spec.md §7): the
// executor reached a state inconsistent with its CFSM — an internal
// invariant the projector is supposed to prevent, surfaced per-step
// rather than treated as fatal for the whole run.
type ProtocolViolationError struct {
	Role   ast.Role
	Detail string
}

func (e *ProtocolViolationError) Error() string {
	return fmt.Sprintf("protocol violation for role %s: %s", e.Role, e.Detail)
}

// AlreadyCompletedError is a SimulationError sub-kind: Step was called
// again after the role's root frame already reached a terminal state.
type AlreadyCompletedError struct {
	Role ast.Role
}

func (e *AlreadyCompletedError) Error() string {
	return fmt.Sprintf("role %s has already completed", e.Role)
}
