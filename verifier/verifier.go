// Package verifier checks a global protocol's well-formedness
// (spec.md §4.6): connectedness, self-communication, choice determinism,
// race freedom, progress/deadlock, guarded recursion, and the `do`
// arity/scope checks from spec.md §4.2. Per spec.md §4.5, every check
// that operates on a projected role runs only through ltsanalysis's
// primitives — it never reaches into CFSM transition lists by hand.
package verifier

import (
	"strconv"

	"github.com/scribble-mpst/mpst-core/ast"
	"github.com/scribble-mpst/mpst-core/cfsm"
	"github.com/scribble-mpst/mpst-core/ltsanalysis"
	"github.com/scribble-mpst/mpst-core/registry"
)

// Verify runs every well-formedness check against one protocol
// declaration and its already-projected CFSM set, returning a Report
// that accumulates every violation found (spec.md §7: "multiple may be
// reported per protocol").
func Verify(p *ast.GlobalProtocol, cfsms map[ast.Role]*cfsm.CFSM, reg *registry.Registry) *Report {
	v := &verifier{protocol: p, report: &Report{Protocol: p.Name}, reg: reg}
	v.checkConnectedness()
	v.checkSelfCommunication()
	v.checkUnguardedRecursion(p.Body)
	v.checkDoCalls(p.Body)
	v.checkRaceFreedom(p.Body)
	v.checkProjectedCFSMs(cfsms)
	return v.report
}

type verifier struct {
	protocol *ast.GlobalProtocol
	report   *Report
	reg      *registry.Registry
}

// checkConnectedness flags any declared role that never appears as a
// sender, receiver, or do-argument anywhere in the protocol body.
func (v *verifier) checkConnectedness() {
	used := ast.Roles(v.protocol.Body)
	for _, r := range v.protocol.Roles {
		if !used[r] {
			v.report.add(&WellFormednessError{
				Kind:     KindDisconnected,
				Protocol: v.protocol.Name,
				Role:     r,
				Loc:      v.protocol.Loc,
			})
		}
	}
}

// checkSelfCommunication flags any MessageTransfer whose sender is also
// one of its own receivers.
func (v *verifier) checkSelfCommunication() {
	ast.Walk(v.protocol.Body, func(n *ast.Interaction) bool {
		if n.Kind == ast.KindMessageTransfer {
			for _, recv := range n.Receivers {
				if recv == n.Sender {
					v.report.add(&WellFormednessError{
						Kind:     KindSelfCommunication,
						Protocol: v.protocol.Name,
						Role:     n.Sender,
						Label:    n.Message.Label,
						Loc:      n.Loc,
					})
				}
			}
		}
		return true
	})
}

// recCtx tracks, for each lexically-enclosing Recursion on the current
// path, whether an observable action has been seen yet on that path.
type recCtx struct {
	label string
	seen  bool
}

// checkUnguardedRecursion flags a Continue(L) reached without any
// MessageTransfer/Do having fired since L's Recursion was entered on
// that path (spec.md §4.6 "guarded recursion").
func (v *verifier) checkUnguardedRecursion(n *ast.Interaction) {
	var walk func(n *ast.Interaction, stack []recCtx)
	walk = func(n *ast.Interaction, stack []recCtx) {
		if n == nil {
			return
		}
		switch n.Kind {
		case ast.KindMessageTransfer, ast.KindDo:
			for i := range stack {
				stack[i].seen = true
			}
		case ast.KindSeq:
			walk(n.First, stack)
			walk(n.Second, stack)
		case ast.KindChoice, ast.KindParallel:
			for _, br := range n.Branches {
				walk(br, append([]recCtx(nil), stack...))
			}
		case ast.KindRecursion:
			walk(n.Body, append(append([]recCtx(nil), stack...), recCtx{label: n.Label}))
		case ast.KindContinue:
			for _, c := range stack {
				if c.label == n.Label && !c.seen {
					v.report.add(&WellFormednessError{
						Kind:     KindUnguardedRecursion,
						Protocol: v.protocol.Name,
						Label:    n.Label,
						Loc:      n.Loc,
					})
				}
			}
		}
	}
	walk(n, nil)
}

// checkDoCalls re-validates every `do` invocation's arity/uniqueness/
// scope (spec.md §4.2), surfacing registry violations as
// WellFormednessErrors so they appear in the same report as every other
// static check rather than only failing lazily during projection.
func (v *verifier) checkDoCalls(n *ast.Interaction) {
	ast.Walk(n, func(n *ast.Interaction) bool {
		if n.Kind != ast.KindDo {
			return true
		}
		if _, err := v.reg.ValidateDo(v.protocol, n.ProtocolName, n.RoleArgs); err != nil {
			kind := KindUndefinedRole
			switch err.(type) {
			case *registry.DoArityError:
				kind = KindDoArity
			case *registry.RoleAliasingError:
				kind = KindRoleAliasing
			case *registry.UndeclaredRoleError:
				kind = KindUndeclaredRoleInDo
			}
			v.report.add(&WellFormednessError{
				Kind:     kind,
				Protocol: v.protocol.Name,
				Label:    n.ProtocolName,
				Detail:   err.Error(),
				Loc:      n.Loc,
			})
		}
		return true
	})
}

// channel identifies an ordered communication pair, the unit race
// freedom is checked over (spec.md §4.6: "channel(p->q:m)={(p,q)}").
type channel struct{ from, to ast.Role }

// checkRaceFreedom flags any Parallel whose branches share a channel.
func (v *verifier) checkRaceFreedom(n *ast.Interaction) {
	ast.Walk(n, func(n *ast.Interaction) bool {
		if n.Kind != ast.KindParallel {
			return true
		}
		channelSets := make([]map[channel]bool, len(n.Branches))
		for i, br := range n.Branches {
			channelSets[i] = branchChannels(br)
		}
		for i := 0; i < len(channelSets); i++ {
			for j := i + 1; j < len(channelSets); j++ {
				for c := range channelSets[i] {
					if channelSets[j][c] {
						v.report.add(&WellFormednessError{
							Kind:     KindRace,
							Protocol: v.protocol.Name,
							Detail:   string(c.from) + "->" + string(c.to),
							Loc:      n.Loc,
						})
					}
				}
			}
		}
		return true
	})
}

func branchChannels(n *ast.Interaction) map[channel]bool {
	out := make(map[channel]bool)
	ast.Walk(n, func(n *ast.Interaction) bool {
		if n.Kind == ast.KindMessageTransfer {
			for _, recv := range n.Receivers {
				out[channel{from: n.Sender, to: recv}] = true
			}
		}
		return true
	})
	return out
}

// checkProjectedCFSMs runs the ltsanalysis-only checks (spec.md §4.5's
// closing line forbids anything stronger) over each role's projection:
// choice determinism and progress.
func (v *verifier) checkProjectedCFSMs(cfsms map[ast.Role]*cfsm.CFSM) {
	for role, m := range cfsms {
		for _, s := range ltsanalysis.NonDeterministicStates(m) {
			v.report.add(&WellFormednessError{
				Kind:     KindNonDeterministicChoice,
				Protocol: v.protocol.Name,
				Role:     role,
				Detail:   stateLabel(s),
			})
		}
		if !ltsanalysis.EveryStateReachesTerminal(m) {
			v.report.add(&WellFormednessError{
				Kind:     KindDeadlock,
				Protocol: v.protocol.Name,
				Role:     role,
				Detail:   "not every state can reach a terminal state",
			})
		}
	}
}

func stateLabel(s cfsm.StateID) string {
	return "state#" + strconv.Itoa(int(s))
}
