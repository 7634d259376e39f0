// Package reducer implements the context reducer (spec.md §4.7): eager
// tau-closure over a CFSM, applied after every observable step so the
// executor and simulator only ever see a state's tau-closed enabled set,
// never a raw tau edge. Grounded on the same BFS-closure idiom as
// ltsanalysis (itself adapted from the teacher's
// coreengine/config/pipeline.go topological traversal).
package reducer

import "github.com/scribble-mpst/mpst-core/cfsm"

// Closure returns the set of states reachable from s via zero or more
// tau transitions, s included.
func Closure(m *cfsm.CFSM, s cfsm.StateID) map[cfsm.StateID]bool {
	closure := map[cfsm.StateID]bool{s: true}
	queue := []cfsm.StateID{s}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, t := range m.Out(cur) {
			if t.Action.Kind == cfsm.ActionTau && !closure[t.To] {
				closure[t.To] = true
				queue = append(queue, t.To)
			}
		}
	}
	return closure
}

// Enabled returns the observable transitions reachable from s after
// eagerly following every tau edge, i.e. the set the executor actually
// offers as choices at s. Duplicate (action, destination) pairs reached
// through different tau paths are reported once.
func Enabled(m *cfsm.CFSM, s cfsm.StateID) []cfsm.Transition {
	closure := Closure(m, s)
	seen := make(map[cfsm.Transition]bool)
	var out []cfsm.Transition
	for state := range closure {
		for _, t := range m.OutNonTau(state) {
			key := cfsm.Transition{From: s, To: t.To, Action: t.Action}
			if !seen[key] {
				seen[key] = true
				out = append(out, cfsm.Transition{From: s, To: t.To, Action: t.Action})
			}
		}
	}
	return out
}

// IsTerminal reports whether s's tau-closure contains a terminal state —
// a role "done" if it can silently reach termination without any further
// observable action.
func IsTerminal(m *cfsm.CFSM, s cfsm.StateID) bool {
	for state := range Closure(m, s) {
		if m.IsTerminal(state) {
			return true
		}
	}
	return false
}

// HasAmbiguousTau reports whether s has both a tau transition and a
// non-tau transition enabled directly (not through closure) — the
// per-state determinism condition spec.md §4.7/§8 requires the verifier
// to reject ("at most one tau enabled per state", read together with "no
// state mixes tau and observable transitions").
func HasAmbiguousTau(m *cfsm.CFSM, s cfsm.StateID) bool {
	hasTau, hasObservable := false, false
	for _, t := range m.Out(s) {
		if t.Action.Kind == cfsm.ActionTau {
			hasTau = true
		} else {
			hasObservable = true
		}
	}
	return hasTau && hasObservable
}

// MultipleTauEnabled reports whether s has more than one outgoing tau
// transition, the other half of spec.md §4.7's determinism condition.
func MultipleTauEnabled(m *cfsm.CFSM, s cfsm.StateID) bool {
	count := 0
	for _, t := range m.Out(s) {
		if t.Action.Kind == cfsm.ActionTau {
			count++
		}
	}
	return count > 1
}
