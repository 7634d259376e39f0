package transport

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scribble-mpst/mpst-core/ast"
	"github.com/scribble-mpst/mpst-core/cfsm"
	"github.com/scribble-mpst/mpst-core/logging"
)

func action(label string) cfsm.Action {
	return cfsm.Action{Kind: cfsm.ActionSend, Message: ast.MessageSignature{Label: label}}
}

func TestSendThenReceiveRoundTrips(t *testing.T) {
	tr := New(0, true, logging.Noop())
	require.NoError(t, tr.Send("A", "B", action("Req")))

	assert.Equal(t, 1, tr.Pending("A", "B"))

	msg, err := tr.Receive("A", "B")
	require.NoError(t, err)
	assert.Equal(t, "Req", msg.Label)
	assert.Equal(t, 0, tr.Pending("A", "B"))
}

func TestReceiveOnEmptyChannelErrors(t *testing.T) {
	tr := New(0, false, logging.Noop())
	_, err := tr.Receive("A", "B")
	require.Error(t, err)
	var notReady *MessageNotReadyError
	require.ErrorAs(t, err, &notReady)
}

func TestPeekDoesNotConsume(t *testing.T) {
	tr := New(0, false, logging.Noop())
	require.NoError(t, tr.Send("A", "B", action("Req")))

	msg, ok := tr.Peek("A", "B")
	require.True(t, ok)
	assert.Equal(t, "Req", msg.Label)
	assert.Equal(t, 1, tr.Pending("A", "B"))
}

func TestMulticastEnqueuesToEachReceiver(t *testing.T) {
	tr := New(0, false, logging.Noop())
	require.NoError(t, tr.Multicast("A", []ast.Role{"B", "C"}, action("Announce")))

	assert.Equal(t, 1, tr.Pending("A", "B"))
	assert.Equal(t, 1, tr.Pending("A", "C"))
}

func TestSendRespectsBufferBound(t *testing.T) {
	tr := New(1, false, logging.Noop())
	require.NoError(t, tr.Send("A", "B", action("One")))

	err := tr.Send("A", "B", action("Two"))
	require.Error(t, err)
	var overflow *BufferOverflowError
	require.ErrorAs(t, err, &overflow)
}

func TestFIFOOrderingPreservedPerPair(t *testing.T) {
	tr := New(0, true, logging.Noop())
	require.NoError(t, tr.Send("A", "B", action("First")))
	require.NoError(t, tr.Send("A", "B", action("Second")))

	first, err := tr.Receive("A", "B")
	require.NoError(t, err)
	assert.Equal(t, "First", first.Label)

	second, err := tr.Receive("A", "B")
	require.NoError(t, err)
	assert.Equal(t, "Second", second.Label)
}

func TestIdleReportsWhetherAnyChannelHasMessages(t *testing.T) {
	tr := New(0, false, logging.Noop())
	assert.True(t, tr.Idle())

	require.NoError(t, tr.Send("A", "B", action("Req")))
	assert.False(t, tr.Idle())

	_, err := tr.Receive("A", "B")
	require.NoError(t, err)
	assert.True(t, tr.Idle())
}

func TestResetEmptiesAllChannels(t *testing.T) {
	tr := New(0, false, logging.Noop())
	require.NoError(t, tr.Send("A", "B", action("Req")))
	tr.Reset()

	assert.True(t, tr.Idle())
	assert.Equal(t, 0, tr.Pending("A", "B"))
}

func TestIndependentPairsDoNotInterfere(t *testing.T) {
	tr := New(0, false, logging.Noop())
	require.NoError(t, tr.Send("A", "B", action("ToB")))
	require.NoError(t, tr.Send("A", "C", action("ToC")))

	assert.Equal(t, 1, tr.Pending("A", "B"))
	assert.Equal(t, 1, tr.Pending("A", "C"))
}
