package cfg

import (
	"fmt"

	"github.com/scribble-mpst/mpst-core/ast"
)

// Build transforms a single global protocol declaration into a CFG,
// following the AST-form -> CFG-pattern table in spec.md §4.3.
func Build(p *ast.GlobalProtocol) (*CFG, error) {
	b := &builder{
		g: &CFG{ProtocolName: p.Name, Roles: append([]ast.Role(nil), p.Roles...)},
	}

	initial := b.g.AddNode(NodeInitial)
	b.g.Initial = initial.ID

	entry, exits, err := b.build(p.Body, nil)
	if err != nil {
		return nil, err
	}

	b.g.AddEdge(initial.ID, entry, EdgeNext)

	terminal := b.g.AddNode(NodeTerminal)
	for _, exit := range exits {
		b.g.AddEdge(exit, terminal.ID, EdgeNext)
	}
	b.g.Terminals = append(b.g.Terminals, terminal.ID)

	if err := b.g.Validate(); err != nil {
		return nil, err
	}
	return b.g, nil
}

// recScope tracks recursion labels in lexical scope so Continue(L) can be
// resolved to the enclosing Recursion's entry node (spec.md §3).
type recScope struct {
	label  string
	nodeID NodeID
	parent *recScope
}

func (s *recScope) resolve(label string) (NodeID, bool) {
	for cur := s; cur != nil; cur = cur.parent {
		if cur.label == label {
			return cur.nodeID, true
		}
	}
	return 0, false
}

type builder struct {
	g           *CFG
	parallelSeq int
}

// build returns the entry node of the built subgraph and the set of
// "exit" nodes: the dangling edge sources a sequential successor should
// be wired from. A Continue node has no exit (spec.md §3: "no syntactic
// context may follow it in its branch").
func (b *builder) build(n *ast.Interaction, scope *recScope) (NodeID, []NodeID, error) {
	if n == nil || n.Kind == ast.KindEmpty {
		// Empty sequence: a single pass-through merge node, so callers
		// always get a concrete node to wire edges to/from (spec.md §4.3
		// "Empty sequence" row).
		pass := b.g.AddNode(NodeMerge)
		return pass.ID, []NodeID{pass.ID}, nil
	}

	switch n.Kind {
	case ast.KindMessageTransfer:
		node := b.g.AddNode(NodeAction)
		node.Interaction = n
		node.Loc = n.Loc
		return node.ID, []NodeID{node.ID}, nil

	case ast.KindDo:
		node := b.g.AddNode(NodeAction)
		node.Interaction = n
		node.Loc = n.Loc
		return node.ID, []NodeID{node.ID}, nil

	case ast.KindSeq:
		firstEntry, firstExits, err := b.build(n.First, scope)
		if err != nil {
			return 0, nil, err
		}
		secondEntry, secondExits, err := b.build(n.Second, scope)
		if err != nil {
			return 0, nil, err
		}
		for _, exit := range firstExits {
			b.g.AddEdge(exit, secondEntry, EdgeNext)
		}
		return firstEntry, secondExits, nil

	case ast.KindChoice:
		branch := b.g.AddNode(NodeBranch)
		branch.Decider = n.Decider
		branch.Loc = n.Loc
		merge := b.g.AddNode(NodeMerge)

		var allExits []NodeID
		for i, br := range n.Branches {
			entry, exits, err := b.build(br, scope)
			if err != nil {
				return 0, nil, err
			}
			b.g.AddBranchEdge(branch.ID, entry, EdgeBranch, i)
			for _, exit := range exits {
				b.g.AddEdge(exit, merge.ID, EdgeMerge)
			}
			allExits = append(allExits, exits...)
		}
		_ = allExits
		return branch.ID, []NodeID{merge.ID}, nil

	case ast.KindParallel:
		b.parallelSeq++
		pid := b.parallelSeq
		fork := b.g.AddNode(NodeFork)
		fork.ParallelID = pid
		join := b.g.AddNode(NodeJoin)
		join.ParallelID = pid

		for i, br := range n.Branches {
			entry, exits, err := b.build(br, scope)
			if err != nil {
				return 0, nil, err
			}
			b.g.AddBranchEdge(fork.ID, entry, EdgeFork, i)
			for _, exit := range exits {
				b.g.AddEdge(exit, join.ID, EdgeJoin)
			}
		}
		return fork.ID, []NodeID{join.ID}, nil

	case ast.KindRecursion:
		recNode := b.g.AddNode(NodeRecursive)
		recNode.Label = n.Label
		recNode.Loc = n.Loc
		childScope := &recScope{label: n.Label, nodeID: recNode.ID, parent: scope}

		bodyEntry, bodyExits, err := b.build(n.Body, childScope)
		if err != nil {
			return 0, nil, err
		}
		b.g.AddEdge(recNode.ID, bodyEntry, EdgeNext)

		merge := b.g.AddNode(NodeMerge)
		for _, exit := range bodyExits {
			b.g.AddEdge(exit, merge.ID, EdgeMerge)
		}
		return recNode.ID, []NodeID{merge.ID}, nil

	case ast.KindContinue:
		target, ok := scope.resolve(n.Label)
		if !ok {
			return 0, nil, fmt.Errorf("continue %s: no enclosing recursion with that label", n.Label)
		}
		node := b.g.AddNode(NodeAction) // structural placeholder; carries no interaction
		b.g.AddEdge(node.ID, target, EdgeContinue)
		return node.ID, nil, nil // no exits: nothing may follow a continue

	default:
		return 0, nil, fmt.Errorf("cfg builder: unhandled interaction kind %s", n.Kind)
	}
}
