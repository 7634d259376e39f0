package projector

import (
	"fmt"

	"github.com/scribble-mpst/mpst-core/ast"
	"github.com/scribble-mpst/mpst-core/cfg"
	"github.com/scribble-mpst/mpst-core/cfsm"
)

// projectAction handles a cfg.NodeAction node: either a message transfer,
// a sub-protocol call, or (Interaction == nil) the structural placeholder
// the CFG builder emits for a Continue, whose single outgoing edge points
// back at the already-projected Recursive node's state.
func (p *projector) projectAction(id cfg.NodeID, node *cfg.Node, stopAt map[cfg.NodeID]bool) error {
	out := p.g.Out(id)
	if len(out) != 1 {
		return fmt.Errorf("projector: action node %d has %d outgoing edges, want 1", id, len(out))
	}
	edge := out[0]
	from := p.stateOf[id]

	if node.Interaction == nil {
		target, ok := p.stateOf[edge.To]
		if !ok {
			// The target Recursive node was never visited within the
			// current (possibly bounded) walk: a continue jumping out of
			// a parallel branch into an enclosing recursion, which a flat
			// product-state projection of that branch cannot represent.
			return &RecursionEscapesRoleError{
				Protocol: p.g.ProtocolName,
				Role:     p.role,
				Label:    p.g.Node(edge.To).Label,
			}
		}
		p.m.AddTransition(from, target, cfsm.Action{Kind: cfsm.ActionTau})
		return nil
	}

	switch node.Interaction.Kind {
	case ast.KindMessageTransfer:
		action, err := p.messageAction(node.Interaction)
		if err != nil {
			return err
		}
		return p.linkAction(id, edge, action, "after-"+action.Label(), stopAt)

	case ast.KindDo:
		// The call's ReturnTo is the state the caller resumes at once the
		// callee completes (spec.md §3 "call(P, rho, q_ret)"), i.e. edge.To's
		// own state — resolved (or minted) before computing the action so it
		// can be threaded into callAction, not computed after the fact.
		to, isNew := p.resolveState(edge.To, "after-call")
		action, err := p.callAction(node.Interaction, to)
		if err != nil {
			return err
		}
		p.m.AddTransition(from, to, action)
		if isNew {
			return p.projectFrom(edge.To, stopAt)
		}
		return nil

	default:
		return fmt.Errorf("projector: action node carries unexpected interaction kind %s", node.Interaction.Kind)
	}
}

// linkAction wires a single outgoing transition from id's state to
// edge.To's state (minting it on first arrival, or converging into it via
// the same transition if another path already projected it), then
// recurses past edge.To unless it was already expanded.
func (p *projector) linkAction(id cfg.NodeID, edge *cfg.Edge, action cfsm.Action, label string, stopAt map[cfg.NodeID]bool) error {
	from := p.stateOf[id]
	if existing, ok := p.stateOf[edge.To]; ok {
		p.m.AddTransition(from, existing, action)
		return nil
	}
	to := p.newState(edge.To, label)
	p.m.AddTransition(from, to, action)
	return p.projectFrom(edge.To, stopAt)
}

// resolveState returns the CFSM state edge.To already maps to, or mints a
// fresh one labelled label if this is the first arrival. The bool result
// reports whether the state is new, i.e. whether the caller must still
// project past it.
func (p *projector) resolveState(id cfg.NodeID, label string) (cfsm.StateID, bool) {
	if existing, ok := p.stateOf[id]; ok {
		return existing, false
	}
	return p.newState(id, label), true
}

// messageAction computes the per-role projection of a MessageTransfer: a
// send for the sender, a receive for any receiver, tau otherwise
// (spec.md §4.4.1).
func (p *projector) messageAction(n *ast.Interaction) (cfsm.Action, error) {
	switch {
	case n.Sender == p.role:
		a := cfsm.Action{Kind: cfsm.ActionSend, Message: n.Message}
		if len(n.Receivers) == 1 {
			a.Peer = n.Receivers[0]
		} else {
			a.Peers = append([]ast.Role(nil), n.Receivers...)
		}
		return a, nil
	case containsRole(n.Receivers, p.role):
		return cfsm.Action{Kind: cfsm.ActionReceive, Peer: n.Sender, Message: n.Message}, nil
	default:
		return cfsm.Action{Kind: cfsm.ActionTau}, nil
	}
}

// callAction computes the per-role projection of a Do: a call action for
// a role bound to one of the sub-protocol's actual roles, tau otherwise.
// returnTo is the caller's own state to resume at once the callee
// completes, carried on the action so the executor knows where to return
// (spec.md §4.9).
func (p *projector) callAction(n *ast.Interaction, returnTo cfsm.StateID) (cfsm.Action, error) {
	caller, err := p.reg.Lookup(p.g.ProtocolName)
	if err != nil {
		return cfsm.Action{}, err
	}
	mapping, err := p.reg.ValidateDo(caller, n.ProtocolName, n.RoleArgs)
	if err != nil {
		return cfsm.Action{}, err
	}
	if !containsRole(n.RoleArgs, p.role) {
		return cfsm.Action{Kind: cfsm.ActionTau}, nil
	}
	return cfsm.Action{Kind: cfsm.ActionCall, Protocol: n.ProtocolName, RoleMap: mapping, ReturnTo: returnTo}, nil
}

func containsRole(rs []ast.Role, r ast.Role) bool {
	for _, x := range rs {
		if x == r {
			return true
		}
	}
	return false
}
