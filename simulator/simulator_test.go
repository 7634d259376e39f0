package simulator

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scribble-mpst/mpst-core/ast"
	"github.com/scribble-mpst/mpst-core/cfsm"
	"github.com/scribble-mpst/mpst-core/config"
)

const (
	roleA ast.Role = "A"
	roleB ast.Role = "B"
)

// nilResolver satisfies executor.Resolver for protocols with no `do`
// calls, where CFSMFor is never actually invoked.
type nilResolver struct{}

func (nilResolver) CFSMFor(protocol string, role ast.Role) (*cfsm.CFSM, error) {
	panic("unexpected call: no sub-protocol calls in this fixture")
}

// pingPongCFSMs builds a two-role ping/pong protocol directly at the
// CFSM level: A sends "ping" to B, B receives it, both terminate.
func pingPongCFSMs() map[ast.Role]*cfsm.CFSM {
	msg := ast.MessageSignature{Label: "ping"}

	a := cfsm.New(roleA, "PingPong", nil)
	aDone := a.AddState("q1")
	a.AddTransition(a.Initial, aDone, cfsm.Action{Kind: cfsm.ActionSend, Peer: roleB, Message: msg})
	a.MarkTerminal(aDone)

	b := cfsm.New(roleB, "PingPong", nil)
	bDone := b.AddState("q1")
	b.AddTransition(b.Initial, bDone, cfsm.Action{Kind: cfsm.ActionReceive, Peer: roleA, Message: msg})
	b.MarkTerminal(bDone)

	return map[ast.Role]*cfsm.CFSM{roleA: a, roleB: b}
}

// mismatchedCFSMs builds a two-role fixture where both roles only wait
// to receive from each other and neither ever sends, so no role can
// ever progress: a deadlock fixture.
func mismatchedCFSMs() map[ast.Role]*cfsm.CFSM {
	a := cfsm.New(roleA, "Stuck", nil)
	aDone := a.AddState("q1")
	a.AddTransition(a.Initial, aDone, cfsm.Action{Kind: cfsm.ActionReceive, Peer: roleB, Message: ast.MessageSignature{Label: "pong"}})
	a.MarkTerminal(aDone)

	b := cfsm.New(roleB, "Stuck", nil)
	bDone := b.AddState("q1")
	b.AddTransition(b.Initial, bDone, cfsm.Action{Kind: cfsm.ActionReceive, Peer: roleA, Message: ast.MessageSignature{Label: "ping"}})
	b.MarkTerminal(bDone)

	return map[ast.Role]*cfsm.CFSM{roleA: a, roleB: b}
}

func testConfig(strategy string) config.SimulatorConfig {
	c := config.DefaultSimulatorConfig()
	c.Strategy = strategy
	c.MaxSteps = 50
	return c
}

func TestSimulatorRunCompletesRoundRobin(t *testing.T) {
	sim, err := New("PingPong", pingPongCFSMs(), nilResolver{}, testConfig("round-robin"), nil)
	require.NoError(t, err)

	report, err := sim.Run(context.Background())
	require.NoError(t, err)
	assert.True(t, report.Done)
	assert.False(t, report.Deadlocked)
	assert.True(t, sim.Done())

	traces := sim.GetTraces()
	require.Len(t, traces[roleA], 1)
	require.Len(t, traces[roleB], 1)
	assert.Equal(t, cfsm.ActionSend, traces[roleA][0].Kind)
	assert.Equal(t, cfsm.ActionReceive, traces[roleB][0].Kind)
}

func TestSimulatorRunCompletesFairAndRandom(t *testing.T) {
	for _, strategy := range []string{"fair", "random"} {
		t.Run(strategy, func(t *testing.T) {
			sim, err := New("PingPong", pingPongCFSMs(), nilResolver{}, testConfig(strategy), nil)
			require.NoError(t, err)

			report, err := sim.Run(context.Background())
			require.NoError(t, err)
			assert.True(t, report.Done)
		})
	}
}

func TestSimulatorDetectsDeadlock(t *testing.T) {
	sim, err := New("Stuck", mismatchedCFSMs(), nilResolver{}, testConfig("round-robin"), nil)
	require.NoError(t, err)

	report, err := sim.Run(context.Background())
	require.Error(t, err)
	var deadlockErr *DeadlockError
	require.ErrorAs(t, err, &deadlockErr)
	assert.True(t, report.Deadlocked)
	assert.False(t, report.Done)
}

func TestSimulatorStepIsIncremental(t *testing.T) {
	sim, err := New("PingPong", pingPongCFSMs(), nilResolver{}, testConfig("round-robin"), nil)
	require.NoError(t, err)

	assert.False(t, sim.Done())

	for i := 0; i < 10 && !sim.Done(); i++ {
		_, _, err := sim.Step()
		require.NoError(t, err)
	}
	assert.True(t, sim.Done())
	assert.Len(t, sim.History(), 2)
}

func TestSimulatorStepAfterCompletionErrors(t *testing.T) {
	sim, err := New("PingPong", pingPongCFSMs(), nilResolver{}, testConfig("round-robin"), nil)
	require.NoError(t, err)

	_, err = sim.Run(context.Background())
	require.NoError(t, err)

	_, _, err = sim.Step()
	require.Error(t, err)
	var doneErr *SimulationCompleteError
	require.ErrorAs(t, err, &doneErr)
}

func TestNewRejectsUnknownStrategy(t *testing.T) {
	_, err := New("PingPong", pingPongCFSMs(), nilResolver{}, testConfig("bogus"), nil)
	require.Error(t, err)
}

func TestNewRejectsEmptyCFSMSet(t *testing.T) {
	_, err := New("Empty", map[ast.Role]*cfsm.CFSM{}, nilResolver{}, testConfig("round-robin"), nil)
	require.Error(t, err)
}
