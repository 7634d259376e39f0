package ast

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func msg(label string) *Interaction {
	return &Interaction{Kind: KindMessageTransfer, Sender: "A", Receivers: []Role{"B"}, Message: MessageSignature{Label: label}}
}

func TestSeqCollapsesEmptyOperands(t *testing.T) {
	a := msg("A")
	assert.Same(t, a, Seq(a, Empty()))
	assert.Same(t, a, Seq(Empty(), a))
	assert.Same(t, a, Seq(a, nil))
	assert.Same(t, a, Seq(nil, a))
}

func TestSeqBuildsSeqNodeForTwoOperands(t *testing.T) {
	a, b := msg("A"), msg("B")
	seq := Seq(a, b)
	assert.Equal(t, KindSeq, seq.Kind)
	assert.Same(t, a, seq.First)
	assert.Same(t, b, seq.Second)
}

func TestSeqOfTwoEmptiesIsEmpty(t *testing.T) {
	e1, e2 := Empty(), Empty()
	result := Seq(e1, e2)
	assert.Equal(t, KindEmpty, result.Kind)
}

func TestGlobalProtocolHasRole(t *testing.T) {
	p := &GlobalProtocol{Roles: []Role{"Client", "Server"}}
	assert.True(t, p.HasRole("Client"))
	assert.False(t, p.HasRole("Other"))
}

func TestModuleLookup(t *testing.T) {
	p1 := &GlobalProtocol{Name: "P1"}
	p2 := &GlobalProtocol{Name: "P2"}
	m := &Module{Protocols: []*GlobalProtocol{p1, p2}}

	assert.Same(t, p2, m.Lookup("P2"))
	assert.Nil(t, m.Lookup("Missing"))
}

func TestInteractionKindString(t *testing.T) {
	cases := map[InteractionKind]string{
		KindMessageTransfer: "MessageTransfer",
		KindChoice:          "Choice",
		KindParallel:        "Parallel",
		KindRecursion:       "Recursion",
		KindContinue:        "Continue",
		KindDo:              "Do",
		KindSeq:             "Seq",
		KindEmpty:           "Empty",
	}
	for kind, want := range cases {
		assert.Equal(t, want, kind.String())
	}
	assert.Equal(t, "Unknown", InteractionKind(99).String())
}
