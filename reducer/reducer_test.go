package reducer

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/scribble-mpst/mpst-core/ast"
	"github.com/scribble-mpst/mpst-core/cfsm"
)

func sendTo(peer ast.Role, label string) cfsm.Action {
	return cfsm.Action{Kind: cfsm.ActionSend, Peer: peer, Message: ast.MessageSignature{Label: label}}
}

func TestClosureIncludesSelfAndTauReachable(t *testing.T) {
	m := cfsm.New("A", "P", nil)
	s1 := m.AddState("s1")
	s2 := m.AddState("s2")
	m.AddTransition(m.Initial, s1, cfsm.Action{Kind: cfsm.ActionTau})
	m.AddTransition(s1, s2, cfsm.Action{Kind: cfsm.ActionTau})

	closure := Closure(m, m.Initial)
	assert.True(t, closure[m.Initial])
	assert.True(t, closure[s1])
	assert.True(t, closure[s2])
}

func TestClosureStopsAtObservableTransitions(t *testing.T) {
	m := cfsm.New("A", "P", nil)
	s1 := m.AddState("s1")
	m.AddTransition(m.Initial, s1, sendTo("B", "Req"))

	closure := Closure(m, m.Initial)
	assert.Len(t, closure, 1)
	assert.True(t, closure[m.Initial])
}

func TestEnabledFollowsTauThenReturnsObservable(t *testing.T) {
	m := cfsm.New("A", "P", nil)
	tauState := m.AddState("tau")
	final := m.AddState("final")
	m.AddTransition(m.Initial, tauState, cfsm.Action{Kind: cfsm.ActionTau})
	m.AddTransition(tauState, final, sendTo("B", "Req"))

	enabled := Enabled(m, m.Initial)
	if assert.Len(t, enabled, 1) {
		assert.Equal(t, final, enabled[0].To)
		assert.Equal(t, "Req", enabled[0].Action.Label())
	}
}

func TestEnabledDedupsIdenticalPairsFromDifferentTauPaths(t *testing.T) {
	m := cfsm.New("A", "P", nil)
	branch1 := m.AddState("b1")
	branch2 := m.AddState("b2")
	dest := m.AddState("dest")
	m.AddTransition(m.Initial, branch1, cfsm.Action{Kind: cfsm.ActionTau})
	m.AddTransition(m.Initial, branch2, cfsm.Action{Kind: cfsm.ActionTau})
	m.AddTransition(branch1, dest, sendTo("B", "Req"))
	m.AddTransition(branch2, dest, sendTo("B", "Req"))

	enabled := Enabled(m, m.Initial)
	assert.Len(t, enabled, 1)
}

func TestIsTerminalThroughTauClosure(t *testing.T) {
	m := cfsm.New("A", "P", nil)
	s1 := m.AddState("s1")
	m.AddTransition(m.Initial, s1, cfsm.Action{Kind: cfsm.ActionTau})
	m.MarkTerminal(s1)

	assert.True(t, IsTerminal(m, m.Initial))
}

func TestIsTerminalFalseWhenNoTerminalReachable(t *testing.T) {
	m := cfsm.New("A", "P", nil)
	s1 := m.AddState("s1")
	m.AddTransition(m.Initial, s1, sendTo("B", "Req"))

	assert.False(t, IsTerminal(m, m.Initial))
}

func TestHasAmbiguousTau(t *testing.T) {
	m := cfsm.New("A", "P", nil)
	s1 := m.AddState("s1")
	s2 := m.AddState("s2")
	m.AddTransition(m.Initial, s1, cfsm.Action{Kind: cfsm.ActionTau})
	m.AddTransition(m.Initial, s2, sendTo("B", "Req"))

	assert.True(t, HasAmbiguousTau(m, m.Initial))
	assert.False(t, HasAmbiguousTau(m, s1))
}

func TestMultipleTauEnabled(t *testing.T) {
	m := cfsm.New("A", "P", nil)
	s1 := m.AddState("s1")
	s2 := m.AddState("s2")
	m.AddTransition(m.Initial, s1, cfsm.Action{Kind: cfsm.ActionTau})
	m.AddTransition(m.Initial, s2, cfsm.Action{Kind: cfsm.ActionTau})

	assert.True(t, MultipleTauEnabled(m, m.Initial))
	assert.False(t, MultipleTauEnabled(m, s1))
}
