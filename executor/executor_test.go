package executor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scribble-mpst/mpst-core/ast"
	"github.com/scribble-mpst/mpst-core/cfsm"
	"github.com/scribble-mpst/mpst-core/logging"
	"github.com/scribble-mpst/mpst-core/registry"
	"github.com/scribble-mpst/mpst-core/transport"
)

type stubResolver struct {
	cfsms map[string]*cfsm.CFSM
}

func (r stubResolver) CFSMFor(protocol string, role ast.Role) (*cfsm.CFSM, error) {
	m, ok := r.cfsms[protocol+"/"+string(role)]
	if !ok {
		return nil, &ProtocolViolationError{Role: role, Detail: "no such callee cfsm"}
	}
	return m, nil
}

func pingPongPair() (client, server *cfsm.CFSM) {
	client = cfsm.New("Client", "P", nil)
	done := client.AddState("done")
	client.AddTransition(client.Initial, done, cfsm.Action{
		Kind: cfsm.ActionSend, Peer: "Server", Message: ast.MessageSignature{Label: "Ping"},
	})
	client.MarkTerminal(done)

	server = cfsm.New("Server", "P", nil)
	sdone := server.AddState("done")
	server.AddTransition(server.Initial, sdone, cfsm.Action{
		Kind: cfsm.ActionReceive, Peer: "Client", Message: ast.MessageSignature{Label: "Ping"},
	})
	server.MarkTerminal(sdone)
	return client, server
}

func TestStepFiresSendAndEnqueuesMessage(t *testing.T) {
	client, _ := pingPongPair()
	bus := transport.New(0, false, logging.Noop())
	e := New("Client", client, bus, stubResolver{}, First, NoopObserver(), logging.Noop())

	res, err := e.Step()
	require.NoError(t, err)
	assert.True(t, res.Fired)
	assert.Equal(t, 1, bus.Pending("Client", "Server"))
	assert.True(t, e.IsDone())
}

func TestStepBlocksOnEmptyQueueThenFiresOnceAvailable(t *testing.T) {
	_, server := pingPongPair()
	bus := transport.New(0, false, logging.Noop())
	e := New("Server", server, bus, stubResolver{}, First, NoopObserver(), logging.Noop())

	res, err := e.Step()
	require.NoError(t, err)
	assert.True(t, res.Blocked)
	assert.False(t, e.IsDone())

	require.NoError(t, bus.Send("Client", "Server", cfsm.Action{Kind: cfsm.ActionSend, Message: ast.MessageSignature{Label: "Ping"}}))

	res, err = e.Step()
	require.NoError(t, err)
	assert.True(t, res.Fired)
	assert.True(t, e.IsDone())
}

func TestStepAfterCompletionErrors(t *testing.T) {
	client, _ := pingPongPair()
	bus := transport.New(0, false, logging.Noop())
	e := New("Client", client, bus, stubResolver{}, First, NoopObserver(), logging.Noop())

	_, err := e.Step()
	require.NoError(t, err)

	_, err = e.Step()
	require.Error(t, err)
	var already *AlreadyCompletedError
	require.ErrorAs(t, err, &already)
}

func TestStepRejectsMismatchedLabel(t *testing.T) {
	_, server := pingPongPair()
	bus := transport.New(0, false, logging.Noop())
	e := New("Server", server, bus, stubResolver{}, First, NoopObserver(), logging.Noop())

	require.NoError(t, bus.Send("Client", "Server", cfsm.Action{Kind: cfsm.ActionSend, Message: ast.MessageSignature{Label: "Wrong"}}))

	_, err := e.Step()
	require.Error(t, err)
	var violation *ProtocolViolationError
	require.ErrorAs(t, err, &violation)
}

func TestFireCallPushesAndUnwindsFrame(t *testing.T) {
	caller := cfsm.New("A", "Caller", nil)
	ret := caller.AddState("ret")
	roleMap := registry.RoleMap{"X": "A"}
	caller.AddTransition(caller.Initial, ret, cfsm.Action{
		Kind: cfsm.ActionCall, Protocol: "Sub", RoleMap: roleMap, ReturnTo: ret,
	})
	caller.MarkTerminal(ret)

	callee := cfsm.New("X", "Sub", nil)
	cdone := callee.AddState("done")
	callee.AddTransition(callee.Initial, cdone, cfsm.Action{
		Kind: cfsm.ActionSend, Peer: "Y", Message: ast.MessageSignature{Label: "Hi"},
	})
	callee.MarkTerminal(cdone)

	resolver := stubResolver{cfsms: map[string]*cfsm.CFSM{"Sub/X": callee}}
	bus := transport.New(0, false, logging.Noop())
	e := New("A", caller, bus, resolver, First, NoopObserver(), logging.Noop())

	res, err := e.Step()
	require.NoError(t, err)
	assert.True(t, res.Fired)
	assert.False(t, e.IsDone())

	res, err = e.Step()
	require.NoError(t, err)
	assert.True(t, res.Fired)
	assert.True(t, e.IsDone())
	assert.Equal(t, 1, bus.Pending("A", "Y"))
}

func TestEnabledReflectsTauClosedTransitions(t *testing.T) {
	m := cfsm.New("A", "P", nil)
	tau := m.AddState("tau")
	send := m.AddState("send")
	m.AddTransition(m.Initial, tau, cfsm.Action{Kind: cfsm.ActionTau})
	m.AddTransition(tau, send, cfsm.Action{Kind: cfsm.ActionSend, Peer: "B", Message: ast.MessageSignature{Label: "X"}})

	bus := transport.New(0, false, logging.Noop())
	e := New("A", m, bus, stubResolver{}, First, NoopObserver(), logging.Noop())

	enabled := e.Enabled()
	require.Len(t, enabled, 1)
	assert.Equal(t, "X", enabled[0].Action.Label())
}
