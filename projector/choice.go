package projector

import (
	"sort"

	"github.com/scribble-mpst/mpst-core/cfg"
)

// projectChoice handles a cfg.NodeBranch node. Both the internal case
// (role == decider) and the external case (role != decider) reduce to
// the same mechanism here: the branch node contributes no state of its
// own — it is aliased to its predecessor's state — so every branch's
// first action fires as a distinct outgoing transition directly from
// that single shared state (spec.md §4.4.1's Choice row, both rows).
func (p *projector) projectChoice(id cfg.NodeID, node *cfg.Node, stopAt map[cfg.NodeID]bool) error {
	state := p.stateOf[id]
	edges := append([]*cfg.Edge(nil), p.g.Out(id)...)
	sort.Slice(edges, func(i, j int) bool { return edges[i].BranchIndex < edges[j].BranchIndex })

	for _, e := range edges {
		if err := p.alias(e.To, state); err != nil {
			return err
		}
		if err := p.projectFrom(e.To, stopAt); err != nil {
			return err
		}
	}
	return nil
}
