package projector

import (
	"fmt"
	"sort"

	"github.com/scribble-mpst/mpst-core/ast"
	"github.com/scribble-mpst/mpst-core/cfg"
	"github.com/scribble-mpst/mpst-core/cfsm"
)

// projectParallel handles a cfg.NodeFork node, following spec.md
// §4.4.1's Parallel row: a role absent from every branch sees a single
// tau; a role present in exactly one branch gets that branch's
// sequential projection; a role present in two or more branches gets
// the synchronous product of those branches' projections.
func (p *projector) projectParallel(id cfg.NodeID, node *cfg.Node, stopAt map[cfg.NodeID]bool) error {
	joinID, err := p.findJoin(node.ParallelID)
	if err != nil {
		return err
	}

	edges := append([]*cfg.Edge(nil), p.g.Out(id)...)
	sort.Slice(edges, func(i, j int) bool { return edges[i].BranchIndex < edges[j].BranchIndex })

	var participating []*cfg.Edge
	for _, e := range edges {
		if p.branchParticipates(e.To, joinID) {
			participating = append(participating, e)
		}
	}

	switch len(participating) {
	case 0:
		from := p.stateOf[id]
		to := p.newState(joinID, "after-parallel")
		p.m.AddTransition(from, to, cfsm.Action{Kind: cfsm.ActionTau})
		return p.projectFrom(joinID, stopAt)

	case 1:
		state := p.stateOf[id]
		if err := p.alias(participating[0].To, state); err != nil {
			return err
		}
		if err := p.projectFrom(participating[0].To, map[cfg.NodeID]bool{joinID: true}); err != nil {
			return err
		}
		return p.projectFrom(joinID, stopAt)

	default:
		return p.projectInterleaving(id, joinID, participating, stopAt)
	}
}

// findJoin locates the NodeJoin sharing a ParallelID with its fork.
func (p *projector) findJoin(parallelID int) (cfg.NodeID, error) {
	for _, n := range p.g.Nodes {
		if n.Kind == cfg.NodeJoin && n.ParallelID == parallelID {
			return n.ID, nil
		}
	}
	return 0, fmt.Errorf("projector: no join found for parallel group %d", parallelID)
}

// branchParticipates reports whether the role appears as sender,
// receiver, or do-argument on any action reachable within one branch of
// a Parallel, without crossing into the join.
func (p *projector) branchParticipates(entry cfg.NodeID, joinID cfg.NodeID) bool {
	visited := map[cfg.NodeID]bool{}
	participates := false
	var walk func(id cfg.NodeID)
	walk = func(id cfg.NodeID) {
		if visited[id] || id == joinID {
			return
		}
		visited[id] = true
		n := p.g.Node(id)
		if n.Kind == cfg.NodeAction && n.Interaction != nil {
			switch n.Interaction.Kind {
			case ast.KindMessageTransfer:
				if n.Interaction.Sender == p.role || containsRole(n.Interaction.Receivers, p.role) {
					participates = true
				}
			case ast.KindDo:
				if containsRole(n.Interaction.RoleArgs, p.role) {
					participates = true
				}
			}
		}
		for _, e := range p.g.Out(id) {
			if e.Kind != cfg.EdgeContinue {
				walk(e.To)
			}
		}
	}
	walk(entry)
	return participates
}

// projectInterleaving builds the synchronous product of the branch-local
// projections for every branch the role participates in, so actions from
// distinct branches may fire in any order until every branch reaches its
// local completion point (the fork's join).
func (p *projector) projectInterleaving(id cfg.NodeID, joinID cfg.NodeID, participating []*cfg.Edge, stopAt map[cfg.NodeID]bool) error {
	locals := make([]*cfsm.CFSM, len(participating))
	for i, e := range participating {
		lp := &projector{
			g:       p.g,
			role:    p.role,
			reg:     p.reg,
			m:       cfsm.New(p.role, p.g.ProtocolName, nil),
			stateOf: map[cfg.NodeID]cfsm.StateID{},
		}
		lp.stateOf[e.To] = lp.m.Initial
		if err := lp.projectFrom(e.To, map[cfg.NodeID]bool{joinID: true}); err != nil {
			return err
		}
		if s, ok := lp.stateOf[joinID]; ok {
			lp.m.MarkTerminal(s)
		}
		locals[i] = lp.m
	}

	key := func(vec []cfsm.StateID) string { return fmt.Sprint(vec) }

	start := make([]cfsm.StateID, len(locals))
	for i, lm := range locals {
		start[i] = lm.Initial
	}

	tupleState := map[string]cfsm.StateID{key(start): p.stateOf[id]}
	visited := map[string]bool{key(start): true}
	queue := [][]cfsm.StateID{start}

	var joinState cfsm.StateID
	joinAssigned := false

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		curState := tupleState[key(cur)]

		allTerminal := true
		for i, lm := range locals {
			if !lm.IsTerminal(cur[i]) {
				allTerminal = false
				break
			}
		}
		if allTerminal {
			if !joinAssigned {
				joinState, joinAssigned = curState, true
			} else if joinState != curState {
				p.m.AddTransition(curState, joinState, cfsm.Action{Kind: cfsm.ActionTau})
			}
			continue
		}

		for i, lm := range locals {
			for _, t := range lm.Out(cur[i]) {
				next := append([]cfsm.StateID(nil), cur...)
				next[i] = t.To
				nk := key(next)
				ns, ok := tupleState[nk]
				if !ok {
					ns = p.m.AddState(fmt.Sprintf("par-%d", len(tupleState)))
					tupleState[nk] = ns
				}
				p.m.AddTransition(curState, ns, t.Action)
				if !visited[nk] {
					visited[nk] = true
					queue = append(queue, next)
				}
			}
		}
	}

	if !joinAssigned {
		// No interleaving of the participating branches ever reaches
		// local completion together (one of them never returns, e.g. an
		// unbounded loop) — nothing to wire onward past the join.
		return nil
	}

	if err := p.alias(joinID, joinState); err != nil {
		return err
	}
	return p.projectFrom(joinID, stopAt)
}
