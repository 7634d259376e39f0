package cfg

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scribble-mpst/mpst-core/ast"
)

func transfer(sender ast.Role, receivers []ast.Role, label string) *ast.Interaction {
	return &ast.Interaction{
		Kind: ast.KindMessageTransfer, Sender: sender, Receivers: receivers,
		Message: ast.MessageSignature{Label: label},
	}
}

func TestBuildSimpleSequence(t *testing.T) {
	p := &ast.GlobalProtocol{
		Name:  "P",
		Roles: []ast.Role{"A", "B"},
		Body: ast.Seq(
			transfer("A", []ast.Role{"B"}, "Req"),
			transfer("B", []ast.Role{"A"}, "Resp"),
		),
	}
	g, err := Build(p)
	require.NoError(t, err)
	require.NoError(t, g.Validate())

	assert.Equal(t, NodeInitial, g.Node(g.Initial).Kind)
	require.Len(t, g.Terminals, 1)
	assert.Equal(t, NodeTerminal, g.Node(g.Terminals[0]).Kind)
}

func TestBuildEmptyBodyIsPassThrough(t *testing.T) {
	p := &ast.GlobalProtocol{Name: "P", Roles: []ast.Role{"A"}, Body: ast.Empty()}
	g, err := Build(p)
	require.NoError(t, err)
	require.NoError(t, g.Validate())
}

func TestBuildChoiceProducesBranchAndMerge(t *testing.T) {
	choice := &ast.Interaction{
		Kind:    ast.KindChoice,
		Decider: "A",
		Branches: []*ast.Interaction{
			transfer("A", []ast.Role{"B"}, "Yes"),
			transfer("A", []ast.Role{"B"}, "No"),
		},
	}
	p := &ast.GlobalProtocol{Name: "P", Roles: []ast.Role{"A", "B"}, Body: choice}
	g, err := Build(p)
	require.NoError(t, err)
	require.NoError(t, g.Validate())

	var branchNodes int
	for _, n := range g.Nodes {
		if n.Kind == NodeBranch {
			branchNodes++
			assert.Equal(t, ast.Role("A"), n.Decider)
		}
	}
	assert.Equal(t, 1, branchNodes)
}

func TestBuildParallelProducesMatchedForkJoin(t *testing.T) {
	par := &ast.Interaction{
		Kind: ast.KindParallel,
		Branches: []*ast.Interaction{
			transfer("A", []ast.Role{"B"}, "X"),
			transfer("A", []ast.Role{"C"}, "Y"),
		},
	}
	p := &ast.GlobalProtocol{Name: "P", Roles: []ast.Role{"A", "B", "C"}, Body: par}
	g, err := Build(p)
	require.NoError(t, err)
	require.NoError(t, g.Validate())

	var forks, joins int
	for _, n := range g.Nodes {
		switch n.Kind {
		case NodeFork:
			forks++
		case NodeJoin:
			joins++
		}
	}
	assert.Equal(t, 1, forks)
	assert.Equal(t, 1, joins)
}

func TestBuildRecursionAndContinue(t *testing.T) {
	body := ast.Seq(
		transfer("A", []ast.Role{"B"}, "Ping"),
		&ast.Interaction{Kind: ast.KindContinue, Label: "Loop"},
	)
	rec := &ast.Interaction{Kind: ast.KindRecursion, Label: "Loop", Body: body}
	p := &ast.GlobalProtocol{Name: "P", Roles: []ast.Role{"A", "B"}, Body: rec}
	g, err := Build(p)
	require.NoError(t, err)
	require.NoError(t, g.Validate())

	var continueEdges int
	for _, e := range g.Edges {
		if e.Kind == EdgeContinue {
			continueEdges++
			assert.Equal(t, NodeRecursive, g.Node(e.To).Kind)
		}
	}
	assert.Equal(t, 1, continueEdges)
}

func TestBuildContinueWithoutEnclosingRecursionErrors(t *testing.T) {
	p := &ast.GlobalProtocol{
		Name:  "P",
		Roles: []ast.Role{"A"},
		Body:  &ast.Interaction{Kind: ast.KindContinue, Label: "Nowhere"},
	}
	_, err := Build(p)
	require.Error(t, err)
}

func TestValidateRejectsMismatchedForkJoin(t *testing.T) {
	g := &CFG{}
	init := g.AddNode(NodeInitial)
	g.Initial = init.ID
	fork := g.AddNode(NodeFork)
	fork.ParallelID = 1
	term := g.AddNode(NodeTerminal)
	g.Terminals = []NodeID{term.ID}

	err := g.Validate()
	require.Error(t, err)
}

func TestNodeKindString(t *testing.T) {
	assert.Equal(t, "initial", NodeInitial.String())
	assert.Equal(t, "unknown", NodeKind(99).String())
}
