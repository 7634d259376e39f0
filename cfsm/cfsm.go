// Package cfsm defines the Communicating Finite-State Machine: the pure
// LTS (Q, q0, A, ->, Qterm) produced by projection (spec.md §3). A CFSM
// is represented as a state set and a transition list, never as linked
// nodes with owning pointers, so that the cyclic structures recursion
// produces are ordinary graph data, discovered by graph algorithms rather
// than baked into the type (spec.md §9 "Cyclic structures").
package cfsm

import (
	"fmt"

	"github.com/scribble-mpst/mpst-core/ast"
	"github.com/scribble-mpst/mpst-core/registry"
)

// ActionKind tags the CFSM action alphabet A (spec.md §3).
type ActionKind int

const (
	// ActionSend is !r<m>: send message m to role r.
	ActionSend ActionKind = iota
	// ActionReceive is ?r<m>: receive message m from role r.
	ActionReceive
	// ActionTau is the silent/internal transition.
	ActionTau
	// ActionCall is call(P, rho, qret): sub-protocol invocation.
	ActionCall
)

func (k ActionKind) String() string {
	switch k {
	case ActionSend:
		return "send"
	case ActionReceive:
		return "receive"
	case ActionTau:
		return "tau"
	case ActionCall:
		return "call"
	default:
		return "unknown"
	}
}

// Action is the CFSM's action alphabet A. Only fields relevant to Kind
// are populated.
type Action struct {
	Kind ActionKind

	// ActionSend/ActionReceive
	Peer    ast.Role // the role being sent to / received from
	Peers   []ast.Role // for multicast sends: the full receiver set
	Message ast.MessageSignature

	// ActionCall
	Protocol   string
	RoleMap    registry.RoleMap
	ReturnTo   StateID
}

// IsObservable reports whether the action appears in observable traces
// (everything except tau, per spec.md §4.3/§4.7).
func (a Action) IsObservable() bool {
	return a.Kind != ActionTau
}

// Label returns the message label an action carries, or "" for tau/call
// actions which carry no message label.
func (a Action) Label() string {
	if a.Kind == ActionSend || a.Kind == ActionReceive {
		return a.Message.Label
	}
	return ""
}

func (a Action) String() string {
	switch a.Kind {
	case ActionSend:
		if len(a.Peers) > 1 {
			return fmt.Sprintf("!%v<%s>", a.Peers, a.Message.Label)
		}
		return fmt.Sprintf("!%s<%s>", a.Peer, a.Message.Label)
	case ActionReceive:
		return fmt.Sprintf("?%s<%s>", a.Peer, a.Message.Label)
	case ActionTau:
		return "tau"
	case ActionCall:
		return fmt.Sprintf("call(%s)", a.Protocol)
	default:
		return "?"
	}
}

// StateID indexes States within a CFSM.
type StateID int

// State is one CFSM vertex, an opaque identifier that may carry a
// display label for pretty-printing/debugging.
type State struct {
	ID    StateID
	Label string
}

// Transition is one element of ->  (spec.md §3).
type Transition struct {
	From, To StateID
	Action   Action
}

// CFSM is the local protocol for one role: (role, protocolName,
// parameters, Q, q0, Qterm, ->) from spec.md §3.
type CFSM struct {
	Role         ast.Role
	ProtocolName string
	Parameters   []string

	States      []State
	Initial     StateID
	Terminals   map[StateID]bool
	Transitions []Transition
}

// New builds an empty CFSM with a single initial state, for the
// projector to grow incrementally.
func New(role ast.Role, protocolName string, parameters []string) *CFSM {
	m := &CFSM{
		Role:         role,
		ProtocolName: protocolName,
		Parameters:   parameters,
		Terminals:    make(map[StateID]bool),
	}
	m.Initial = m.AddState("q0")
	return m
}

// AddState appends a new state and returns its ID.
func (m *CFSM) AddState(label string) StateID {
	id := StateID(len(m.States))
	m.States = append(m.States, State{ID: id, Label: label})
	return id
}

// AddTransition records a transition from -> to under action a.
func (m *CFSM) AddTransition(from, to StateID, a Action) {
	m.Transitions = append(m.Transitions, Transition{From: from, To: to, Action: a})
}

// MarkTerminal flags id as a member of Qterm.
func (m *CFSM) MarkTerminal(id StateID) {
	m.Terminals[id] = true
}

// IsTerminal reports whether id is in Qterm.
func (m *CFSM) IsTerminal(id StateID) bool {
	return m.Terminals[id]
}

// Out returns the outgoing transitions from a state, in insertion order.
func (m *CFSM) Out(id StateID) []Transition {
	var out []Transition
	for _, t := range m.Transitions {
		if t.From == id {
			out = append(out, t)
		}
	}
	return out
}

// OutNonTau returns the outgoing transitions from a state whose action is
// observable (non-tau).
func (m *CFSM) OutNonTau(id StateID) []Transition {
	var out []Transition
	for _, t := range m.Transitions {
		if t.From == id && t.Action.IsObservable() {
			out = append(out, t)
		}
	}
	return out
}

// In returns the incoming transitions to a state, in insertion order.
func (m *CFSM) In(id StateID) []Transition {
	var in []Transition
	for _, t := range m.Transitions {
		if t.To == id {
			in = append(in, t)
		}
	}
	return in
}
