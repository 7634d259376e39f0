// Package ltsanalysis provides the pure LTS-analysis primitives the
// verifier relies on (spec.md §4.5). Each function is specified by
// formula over a cfsm.CFSM, never over CFG structure — the verifier is
// forbidden from reaching past this boundary into CFG internals.
//
// The traversal idioms (adjacency built on the fly, BFS/DFS with visited
// sets, queue-based level order) are grounded on the teacher's
// coreengine/config/pipeline.go topological-sort/cycle-detection code,
// adapted here from a stage-dependency DAG to a (possibly cyclic) CFSM.
package ltsanalysis

import (
	"github.com/scribble-mpst/mpst-core/cfsm"
)

// BranchingStates returns { q : |{(q,a,q') in -> : a != tau}| > 1 }.
func BranchingStates(m *cfsm.CFSM) []cfsm.StateID {
	var out []cfsm.StateID
	for _, s := range m.States {
		if len(m.OutNonTau(s.ID)) > 1 {
			out = append(out, s.ID)
		}
	}
	return out
}

// MergeStates returns { q : |{(q',a,q) in -> : a != tau}| > 1 }.
func MergeStates(m *cfsm.CFSM) []cfsm.StateID {
	counts := make(map[cfsm.StateID]int)
	for _, t := range m.Transitions {
		if t.Action.IsObservable() {
			counts[t.To]++
		}
	}
	var out []cfsm.StateID
	for id, c := range counts {
		if c > 1 {
			out = append(out, id)
		}
	}
	return out
}

// HasCycles reports whether there is a path q0 ->* q ->+ q, via DFS with
// back-edge detection (white/gray/black colouring).
func HasCycles(m *cfsm.CFSM) bool {
	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := make(map[cfsm.StateID]int)
	var visit func(id cfsm.StateID) bool
	visit = func(id cfsm.StateID) bool {
		color[id] = gray
		for _, t := range m.Out(id) {
			switch color[t.To] {
			case gray:
				return true
			case white:
				if visit(t.To) {
					return true
				}
			}
		}
		color[id] = black
		return false
	}
	return visit(m.Initial)
}

// BackEdges returns transitions whose target has an earlier BFS index
// than their source, i.e. the back-edges discovered by a BFS from q0.
func BackEdges(m *cfsm.CFSM) []cfsm.Transition {
	bfsIndex := make(map[cfsm.StateID]int)
	order := []cfsm.StateID{m.Initial}
	bfsIndex[m.Initial] = 0
	for i := 0; i < len(order); i++ {
		for _, t := range m.Out(order[i]) {
			if _, seen := bfsIndex[t.To]; !seen {
				bfsIndex[t.To] = len(order)
				order = append(order, t.To)
			}
		}
	}

	var back []cfsm.Transition
	for _, t := range m.Transitions {
		fromIdx, fromOK := bfsIndex[t.From]
		toIdx, toOK := bfsIndex[t.To]
		if fromOK && toOK && toIdx < fromIdx {
			back = append(back, t)
		}
	}
	return back
}

// CanReachTerminal reports whether a BFS from q0 reaches some q in Qterm.
func CanReachTerminal(m *cfsm.CFSM) bool {
	visited := map[cfsm.StateID]bool{m.Initial: true}
	queue := []cfsm.StateID{m.Initial}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if m.IsTerminal(cur) {
			return true
		}
		for _, t := range m.Out(cur) {
			if !visited[t.To] {
				visited[t.To] = true
				queue = append(queue, t.To)
			}
		}
	}
	return false
}

// EveryStateReachesTerminal reports whether *every* state in Q can reach
// some terminal state — the stronger per-state progress property that
// the universal invariant in spec.md §8 requires (CanReachTerminal alone
// only checks it from q0).
func EveryStateReachesTerminal(m *cfsm.CFSM) bool {
	reachesTerm := make(map[cfsm.StateID]bool, len(m.States))
	changed := true
	for changed {
		changed = false
		for _, s := range m.States {
			if reachesTerm[s.ID] {
				continue
			}
			if m.IsTerminal(s.ID) {
				reachesTerm[s.ID] = true
				changed = true
				continue
			}
			for _, t := range m.Out(s.ID) {
				if reachesTerm[t.To] {
					reachesTerm[s.ID] = true
					changed = true
					break
				}
			}
		}
	}
	for _, s := range m.States {
		if !reachesTerm[s.ID] {
			return false
		}
	}
	return true
}

// EveryStateReachable reports whether every state in Q is reachable from
// q0, the other half of the universal invariant in spec.md §8.
func EveryStateReachable(m *cfsm.CFSM) bool {
	visited := map[cfsm.StateID]bool{m.Initial: true}
	queue := []cfsm.StateID{m.Initial}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, t := range m.Out(cur) {
			if !visited[t.To] {
				visited[t.To] = true
				queue = append(queue, t.To)
			}
		}
	}
	return len(visited) == len(m.States)
}

// ChoiceDeterministic reports whether, at every branching state, the
// outgoing non-tau action labels are pairwise distinct (spec.md §4.5).
func ChoiceDeterministic(m *cfsm.CFSM) bool {
	return len(NonDeterministicStates(m)) == 0
}

// NonDeterministicStates returns the branching states that violate
// choice determinism, for precise error reporting.
func NonDeterministicStates(m *cfsm.CFSM) []cfsm.StateID {
	var bad []cfsm.StateID
	for _, s := range m.States {
		out := m.OutNonTau(s.ID)
		if len(out) < 2 {
			continue
		}
		labels := make(map[string]bool, len(out))
		dup := false
		for _, t := range out {
			l := t.Action.Label()
			if labels[l] {
				dup = true
				break
			}
			labels[l] = true
		}
		if dup {
			bad = append(bad, s.ID)
		}
	}
	return bad
}

// Traces enumerates action sequences q0 ->* q for q in Qterm, bounded by
// depth (spec.md §4.5). Cycles mean the full trace set can be infinite;
// depth bounds the search so the function always terminates.
func Traces(m *cfsm.CFSM, depth int) [][]cfsm.Action {
	var out [][]cfsm.Action
	var walk func(id cfsm.StateID, path []cfsm.Action)
	walk = func(id cfsm.StateID, path []cfsm.Action) {
		if m.IsTerminal(id) {
			out = append(out, append([]cfsm.Action(nil), path...))
		}
		if len(path) >= depth {
			return
		}
		for _, t := range m.Out(id) {
			walk(t.To, append(path, t.Action))
		}
	}
	walk(m.Initial, nil)
	return out
}

// ObservableTraces is Traces filtered to non-tau actions, the form used
// for the tau-free-observable-traces equivalence in spec.md §8.
func ObservableTraces(m *cfsm.CFSM, depth int) [][]cfsm.Action {
	raw := Traces(m, depth)
	out := make([][]cfsm.Action, 0, len(raw))
	for _, trace := range raw {
		var obs []cfsm.Action
		for _, a := range trace {
			if a.IsObservable() {
				obs = append(obs, a)
			}
		}
		out = append(out, obs)
	}
	return out
}

// CountActions returns the number of transitions whose action is of
// kind, optionally also filtered by label (empty label = no filter).
func CountActions(m *cfsm.CFSM, kind cfsm.ActionKind, label string) int {
	count := 0
	for _, t := range m.Transitions {
		if t.Action.Kind != kind {
			continue
		}
		if label != "" && t.Action.Label() != label {
			continue
		}
		count++
	}
	return count
}

// MessageLabels returns the set of distinct message labels appearing on
// any send/receive action in the CFSM.
func MessageLabels(m *cfsm.CFSM) []string {
	seen := make(map[string]bool)
	var labels []string
	for _, t := range m.Transitions {
		if l := t.Action.Label(); l != "" && !seen[l] {
			seen[l] = true
			labels = append(labels, l)
		}
	}
	return labels
}
