// Package persist implements the optional JSON serialization of a CFSM
// described in spec.md §6.3: role, protocolName, parameters, states,
// transitions, initialState, terminalStates, with state and message
// shapes exactly as specified. Grounded on the teacher's extensive use
// of `json:"..."` struct tags across coreengine/envelope and
// coreengine/kernel — plain encoding/json, no custom codec.
package persist

import (
	"encoding/json"
	"fmt"

	"github.com/scribble-mpst/mpst-core/ast"
	"github.com/scribble-mpst/mpst-core/cfsm"
)

// State is one persisted CFSM state.
type State struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// Message is a persisted message signature.
type Message struct {
	Label   string   `json:"label"`
	Payload []string `json:"payload,omitempty"`
}

// Action is a persisted transition action. Only the fields relevant to
// Type are populated, mirroring cfsm.Action.
type Action struct {
	Type string `json:"type"` // "send", "receive", "tau", "call"

	To   string   `json:"to,omitempty"`   // send
	Tos  []string `json:"tos,omitempty"`  // send, multicast
	From string   `json:"from,omitempty"` // receive

	Message *Message `json:"message,omitempty"`

	Protocol string            `json:"protocol,omitempty"` // call
	RoleMap  map[string]string `json:"roleMap,omitempty"`  // call
	ReturnTo string            `json:"returnTo,omitempty"` // call
}

// Transition is one persisted CFSM edge.
type Transition struct {
	ID     string `json:"id"`
	From   string `json:"from"`
	To     string `json:"to"`
	Action Action `json:"action"`
}

// CFSM is the persisted form of a cfsm.CFSM (spec.md §6.3).
type CFSM struct {
	Role           string       `json:"role"`
	ProtocolName   string       `json:"protocolName"`
	Parameters     []string     `json:"parameters,omitempty"`
	States         []State      `json:"states"`
	Transitions    []Transition `json:"transitions"`
	InitialState   string       `json:"initialState"`
	TerminalStates []string     `json:"terminalStates"`
}

func stateID(id cfsm.StateID) string {
	return fmt.Sprintf("s%d", int(id))
}

// FromCFSM converts a cfsm.CFSM into its persisted form.
func FromCFSM(m *cfsm.CFSM) *CFSM {
	out := &CFSM{
		Role:         string(m.Role),
		ProtocolName: m.ProtocolName,
		Parameters:   append([]string(nil), m.Parameters...),
	}

	for _, s := range m.States {
		out.States = append(out.States, State{ID: stateID(s.ID), Label: s.Label})
	}
	out.InitialState = stateID(m.Initial)

	for id := range m.Terminals {
		out.TerminalStates = append(out.TerminalStates, stateID(id))
	}

	for i, t := range m.Transitions {
		out.Transitions = append(out.Transitions, Transition{
			ID:     fmt.Sprintf("t%d", i),
			From:   stateID(t.From),
			To:     stateID(t.To),
			Action: actionToPersist(t.Action),
		})
	}
	return out
}

func actionToPersist(a cfsm.Action) Action {
	switch a.Kind {
	case cfsm.ActionSend:
		p := Action{Type: "send", Message: messageToPersist(a.Message)}
		if len(a.Peers) > 0 {
			for _, peer := range a.Peers {
				p.Tos = append(p.Tos, string(peer))
			}
		} else {
			p.To = string(a.Peer)
		}
		return p
	case cfsm.ActionReceive:
		return Action{Type: "receive", From: string(a.Peer), Message: messageToPersist(a.Message)}
	case cfsm.ActionCall:
		roleMap := make(map[string]string, len(a.RoleMap))
		for formal, actual := range a.RoleMap {
			roleMap[string(formal)] = string(actual)
		}
		return Action{Type: "call", Protocol: a.Protocol, RoleMap: roleMap, ReturnTo: stateID(a.ReturnTo)}
	default:
		return Action{Type: "tau"}
	}
}

func messageToPersist(m ast.MessageSignature) *Message {
	out := &Message{Label: m.Label}
	out.Payload = append(out.Payload, m.PayloadTypes...)
	return out
}

// Marshal serializes a CFSM to its spec.md §6.3 JSON shape.
func Marshal(m *cfsm.CFSM) ([]byte, error) {
	return json.MarshalIndent(FromCFSM(m), "", "  ")
}

// Unmarshal parses the spec.md §6.3 JSON shape back into a persist.CFSM
// tree (not a cfsm.CFSM directly — ToCFSM performs that reconstruction,
// since it requires resolving string state IDs back to cfsm.StateID
// indices).
func Unmarshal(data []byte) (*CFSM, error) {
	var out CFSM
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("persist: decoding CFSM: %w", err)
	}
	return &out, nil
}

// ToCFSM reconstructs a cfsm.CFSM from its persisted form, completing
// the round trip spec.md §8 requires (project_all . parse . serialize .
// project_all is idempotent modulo state renaming). State identity is
// reassigned in the persisted states' order; the original string IDs are
// only used to resolve From/To/terminalStates/initialState references.
func ToCFSM(p *CFSM) (*cfsm.CFSM, error) {
	m := &cfsm.CFSM{
		Role:         ast.Role(p.Role),
		ProtocolName: p.ProtocolName,
		Parameters:   append([]string(nil), p.Parameters...),
		Terminals:    make(map[cfsm.StateID]bool),
	}

	idByName := make(map[string]cfsm.StateID, len(p.States))
	for _, s := range p.States {
		id := m.AddState(s.Label)
		idByName[s.ID] = id
	}

	initial, ok := idByName[p.InitialState]
	if !ok {
		return nil, fmt.Errorf("persist: initialState %q not among states", p.InitialState)
	}
	m.Initial = initial

	for _, name := range p.TerminalStates {
		id, ok := idByName[name]
		if !ok {
			return nil, fmt.Errorf("persist: terminalStates entry %q not among states", name)
		}
		m.MarkTerminal(id)
	}

	for _, t := range p.Transitions {
		from, ok := idByName[t.From]
		if !ok {
			return nil, fmt.Errorf("persist: transition %q references unknown from-state %q", t.ID, t.From)
		}
		to, ok := idByName[t.To]
		if !ok {
			return nil, fmt.Errorf("persist: transition %q references unknown to-state %q", t.ID, t.To)
		}
		action, err := actionFromPersist(t.Action, idByName)
		if err != nil {
			return nil, fmt.Errorf("persist: transition %q: %w", t.ID, err)
		}
		m.AddTransition(from, to, action)
	}
	return m, nil
}

func actionFromPersist(p Action, idByName map[string]cfsm.StateID) (cfsm.Action, error) {
	switch p.Type {
	case "send":
		a := cfsm.Action{Kind: cfsm.ActionSend, Message: messageFromPersist(p.Message)}
		if len(p.Tos) > 0 {
			for _, to := range p.Tos {
				a.Peers = append(a.Peers, ast.Role(to))
			}
		} else {
			a.Peer = ast.Role(p.To)
		}
		return a, nil
	case "receive":
		return cfsm.Action{Kind: cfsm.ActionReceive, Peer: ast.Role(p.From), Message: messageFromPersist(p.Message)}, nil
	case "call":
		roleMap := make(map[ast.Role]ast.Role, len(p.RoleMap))
		for formal, actual := range p.RoleMap {
			roleMap[ast.Role(formal)] = ast.Role(actual)
		}
		returnTo, ok := idByName[p.ReturnTo]
		if !ok && p.ReturnTo != "" {
			return cfsm.Action{}, fmt.Errorf("call action references unknown returnTo state %q", p.ReturnTo)
		}
		return cfsm.Action{Kind: cfsm.ActionCall, Protocol: p.Protocol, RoleMap: roleMap, ReturnTo: returnTo}, nil
	case "tau", "":
		return cfsm.Action{Kind: cfsm.ActionTau}, nil
	default:
		return cfsm.Action{}, fmt.Errorf("unknown action type %q", p.Type)
	}
}

func messageFromPersist(m *Message) ast.MessageSignature {
	if m == nil {
		return ast.MessageSignature{}
	}
	return ast.MessageSignature{Label: m.Label, PayloadTypes: append([]string(nil), m.Payload...)}
}
