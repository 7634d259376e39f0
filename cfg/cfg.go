// Package cfg builds the per-protocol control-flow graph used internally
// by the projector (spec.md §3 "CFG (intermediate)", §4.3). The CFG never
// escapes this boundary: the verifier and simulator see only CFSMs
// (spec.md §9 "CFG as internal IR, not as formal model").
package cfg

import (
	"fmt"

	"github.com/scribble-mpst/mpst-core/ast"
	"github.com/scribble-mpst/mpst-core/mpsterr"
)

// NodeKind tags the CFG's node alphabet (spec.md §3).
type NodeKind int

const (
	NodeInitial NodeKind = iota
	NodeTerminal
	NodeAction
	NodeBranch
	NodeMerge
	NodeFork
	NodeJoin
	NodeRecursive
)

func (k NodeKind) String() string {
	switch k {
	case NodeInitial:
		return "initial"
	case NodeTerminal:
		return "terminal"
	case NodeAction:
		return "action"
	case NodeBranch:
		return "branch"
	case NodeMerge:
		return "merge"
	case NodeFork:
		return "fork"
	case NodeJoin:
		return "join"
	case NodeRecursive:
		return "recursive"
	default:
		return "unknown"
	}
}

// EdgeKind tags the CFG's edge alphabet (spec.md §3).
type EdgeKind int

const (
	EdgeNext EdgeKind = iota
	EdgeBranch
	EdgeMerge
	EdgeFork
	EdgeJoin
	EdgeContinue
)

// NodeID indexes Nodes within a CFG.
type NodeID int

// Node is one CFG vertex. Only the fields relevant to Kind are populated.
type Node struct {
	ID   NodeID
	Kind NodeKind

	// NodeAction: the single interaction this node represents, a
	// KindMessageTransfer or KindDo leaf (Seq/Choice/Parallel/Recursion
	// are structural and never become an action node themselves). A
	// Continue becomes a placeholder action node whose Interaction is nil
	// and whose single edge leads back to its Recursive node.
	Interaction *ast.Interaction

	// NodeBranch: the decider role of the Choice this node opens.
	Decider ast.Role
	// NodeBranch/NodeFork: index of the branch each outgoing edge leads
	// into, recorded on the edge instead (BranchIndex), not the node.

	// NodeFork/NodeJoin: shared identifier pairing a fork with its join.
	ParallelID int

	// NodeRecursive: the label bound at this node, target of Continue.
	Label string

	Loc mpsterr.Location
}

// Edge is one CFG arc.
type Edge struct {
	From, To    NodeID
	Kind        EdgeKind
	BranchIndex int // for EdgeBranch/EdgeFork: which sibling branch
}

// CFG is the control-flow graph for a single global protocol declaration.
type CFG struct {
	ProtocolName string
	Roles        []ast.Role

	Nodes     []*Node
	Edges     []*Edge
	Initial   NodeID
	Terminals []NodeID
}

// AddNode appends a new node and returns its ID.
func (g *CFG) AddNode(kind NodeKind) *Node {
	n := &Node{ID: NodeID(len(g.Nodes)), Kind: kind}
	g.Nodes = append(g.Nodes, n)
	return n
}

// AddEdge records an edge from -> to of the given kind.
func (g *CFG) AddEdge(from, to NodeID, kind EdgeKind) {
	g.Edges = append(g.Edges, &Edge{From: from, To: to, Kind: kind})
}

// AddBranchEdge records a branch/fork edge carrying its sibling index.
func (g *CFG) AddBranchEdge(from, to NodeID, kind EdgeKind, branchIndex int) {
	g.Edges = append(g.Edges, &Edge{From: from, To: to, Kind: kind, BranchIndex: branchIndex})
}

// Out returns the outgoing edges from a node, in insertion order.
func (g *CFG) Out(id NodeID) []*Edge {
	var out []*Edge
	for _, e := range g.Edges {
		if e.From == id {
			out = append(out, e)
		}
	}
	return out
}

// Node dereferences a NodeID.
func (g *CFG) Node(id NodeID) *Node {
	return g.Nodes[id]
}

// IsTerminal reports whether id is one of the CFG's terminal nodes.
func (g *CFG) IsTerminal(id NodeID) bool {
	for _, t := range g.Terminals {
		if t == id {
			return true
		}
	}
	return false
}

// Validate checks the structural guarantees §4.3 promises every builder
// output: exactly one initial, at least one terminal, every fork matched
// by a join sharing its ParallelID, and every continue edge targeting an
// in-scope recursive node (checked by the builder itself via scoping, so
// here we only check the edge exists and points at a NodeRecursive).
func (g *CFG) Validate() error {
	if len(g.Nodes) == 0 || g.Nodes[g.Initial].Kind != NodeInitial {
		return mpsterr.NewInternalError("cfg has no valid initial node", nil, nil)
	}
	if len(g.Terminals) == 0 {
		return mpsterr.NewInternalError("cfg has no terminal node", nil, nil)
	}

	forkSiblings := map[int]int{}
	joinSiblings := map[int]int{}
	for _, n := range g.Nodes {
		switch n.Kind {
		case NodeFork:
			forkSiblings[n.ParallelID]++
		case NodeJoin:
			joinSiblings[n.ParallelID]++
		}
	}
	for id, count := range forkSiblings {
		if joinSiblings[id] != count {
			return fmt.Errorf("fork/join mismatch for parallel group %d: %d forks, %d joins", id, count, joinSiblings[id])
		}
	}

	for _, e := range g.Edges {
		if e.Kind == EdgeContinue {
			if g.Node(e.To).Kind != NodeRecursive {
				return fmt.Errorf("continue edge does not target a recursive node: %d -> %d", e.From, e.To)
			}
		}
	}
	return nil
}
