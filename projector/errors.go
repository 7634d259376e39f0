package projector

import (
	"fmt"

	"github.com/scribble-mpst/mpst-core/ast"
)

// RoleNotInProtocolError is returned when Project is asked to project a
// role the target protocol never declared (spec.md §4.4.4).
type RoleNotInProtocolError struct {
	Protocol string
	Role     ast.Role
}

func (e *RoleNotInProtocolError) Error() string {
	return fmt.Sprintf("role %s is not declared in protocol %s", e.Role, e.Protocol)
}

// UnmergeableBranchesError signals that a Choice's branches cannot be
// reconciled into a single continuation for some role. Retained for API
// completeness: this projector resolves every merge via tau-convergence
// (spec.md §4.4.2's second strategy), so branches are mergeable by
// construction and this error is not raised by Project itself — see
// DESIGN.md's note on the merge-strategy open question.
type UnmergeableBranchesError struct {
	Protocol string
	Role     ast.Role
}

func (e *UnmergeableBranchesError) Error() string {
	return fmt.Sprintf("role %s: branches of a choice in %s have unmergeable continuations", e.Role, e.Protocol)
}

// MergeConflictError is the general form of UnmergeableBranchesError,
// raised at any merge point (choice or recursion) that cannot be
// reconciled. See UnmergeableBranchesError's note: unreachable under this
// projector's tau-convergence merge strategy.
type MergeConflictError struct {
	Protocol string
	Role     ast.Role
}

func (e *MergeConflictError) Error() string {
	return fmt.Sprintf("role %s: merge conflict while projecting %s", e.Role, e.Protocol)
}

// RecursionEscapesRoleError is returned when a Continue inside a Parallel
// branch targets a Recursion declared outside that branch's fork — a
// jump a flat product-state projection of the parallel block cannot
// represent (spec.md §4.4.1's Parallel row; see DESIGN.md).
type RecursionEscapesRoleError struct {
	Protocol string
	Role     ast.Role
	Label    string
}

func (e *RecursionEscapesRoleError) Error() string {
	return fmt.Sprintf("role %s: continue %s escapes its enclosing parallel block in %s", e.Role, e.Label, e.Protocol)
}
