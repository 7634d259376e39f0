// Package executor drives a single role's CFSM forward one action at a
// time over a shared transport (spec.md §4.8/§4.9). Sub-protocol calls
// push a frame onto a call stack rather than inlining the callee's CFSM
// (spec.md §4.4's call/return model), grounded on the teacher's
// coreengine/agents.Agent: a named, logged single-unit-of-work driver
// whose Process method records start/complete and reports outcome
// through injected hooks — adapted here from one LLM-backed agent step
// to one CFSM transition.
package executor

import (
	"github.com/scribble-mpst/mpst-core/ast"
	"github.com/scribble-mpst/mpst-core/cfsm"
	"github.com/scribble-mpst/mpst-core/logging"
	"github.com/scribble-mpst/mpst-core/reducer"
	"github.com/scribble-mpst/mpst-core/registry"
	"github.com/scribble-mpst/mpst-core/transport"
)

// Resolver looks up a protocol's per-role projection, used to fetch a
// callee's CFSM on a sub-protocol call without the caller's CFSM ever
// embedding it.
type Resolver interface {
	CFSMFor(protocol string, role ast.Role) (*cfsm.CFSM, error)
}

// Observer is notified of every action an Executor takes, for tracing,
// metrics, and tests (spec.md §4.9 "observer notification").
type Observer interface {
	OnAction(role ast.Role, action cfsm.Action)
	OnBlocked(role ast.Role, action cfsm.Action)
	OnDone(role ast.Role)
}

type noopObserver struct{}

func (noopObserver) OnAction(ast.Role, cfsm.Action)  {}
func (noopObserver) OnBlocked(ast.Role, cfsm.Action) {}
func (noopObserver) OnDone(ast.Role)                 {}

// NoopObserver returns an Observer that discards every notification.
func NoopObserver() Observer { return noopObserver{} }

// Select picks which of several currently-enabled transitions to fire,
// implementing one role's local selection policy (first/random/manual;
// the scheduling strategies themselves live in package simulator, which
// chooses which role steps next — this chooses among one role's own
// simultaneously-enabled actions, e.g. an internal choice's branches).
type Select func(enabled []cfsm.Transition) int

// First always selects the first enabled transition, in CFSM
// construction order — deterministic, the default for tests.
func First(enabled []cfsm.Transition) int { return 0 }

// frame is one entry of the sub-protocol call stack (spec.md §4.4: calls
// are modelled via a call stack in execution state, never by inlining
// the callee's CFSM into the caller's).
type frame struct {
	m        *cfsm.CFSM
	state    cfsm.StateID
	roleMap  registry.RoleMap // formal -> actual, empty/nil at the root frame
	returnTo cfsm.StateID     // state in the *parent* frame to resume at
}

// Executor drives one role through its CFSM (and any nested sub-protocol
// frames) over a shared transport.
type Executor struct {
	Role     ast.Role
	resolver Resolver
	bus      *transport.FIFO
	select_  Select
	observer Observer
	logger   logging.Logger

	stack []frame
	trace []cfsm.Action
	done  bool
}

// New builds an Executor for role starting at m's initial state.
func New(role ast.Role, m *cfsm.CFSM, t *transport.FIFO, resolver Resolver, sel Select, obs Observer, logger logging.Logger) *Executor {
	if sel == nil {
		sel = First
	}
	if obs == nil {
		obs = NoopObserver()
	}
	return &Executor{
		Role:     role,
		resolver: resolver,
		bus:      t,
		select_:  sel,
		observer: obs,
		logger:   logging.OrNoop(logger).Bind("role", role),
		stack:    []frame{{m: m, state: m.Initial}},
	}
}

// IsDone reports whether the root frame has reached a terminal state
// with no pending sub-protocol calls.
func (e *Executor) IsDone() bool { return e.done }

// Trace returns every observable action fired so far, across every
// frame, in execution order.
func (e *Executor) Trace() []cfsm.Action { return e.trace }

// current returns the active (innermost) frame.
func (e *Executor) current() *frame { return &e.stack[len(e.stack)-1] }

// translate maps a peer role through the active frame's formal->actual
// substitution. At the root frame (roleMap nil) it is the identity.
func (e *Executor) translate(r ast.Role) ast.Role {
	if m := e.current().roleMap; m != nil {
		if actual, ok := m[r]; ok {
			return actual
		}
	}
	return r
}

// Enabled returns the tau-closed enabled transitions at the current
// frame's state, for manual-mode callers that want to present choices.
func (e *Executor) Enabled() []cfsm.Transition {
	f := e.current()
	return reducer.Enabled(f.m, f.state)
}

// StepResult reports what one Step call accomplished.
type StepResult struct {
	Fired   bool // an observable action was executed
	Blocked bool // an enabled receive had nothing queued yet
	Action  cfsm.Action
}

// Step attempts to advance the executor by exactly one observable
// action: it first unwinds any completed call frames, then fires one
// enabled transition chosen by Select, translating peer roles through
// the active frame's role map before touching the transport.
func (e *Executor) Step() (StepResult, error) {
	if e.unwindCompletedFrames() {
		e.observer.OnDone(e.Role)
	}
	if e.done {
		return StepResult{}, &AlreadyCompletedError{Role: e.Role}
	}

	enabled := reducer.Enabled(e.current().m, e.current().state)
	if len(enabled) == 0 {
		return StepResult{}, &ProtocolViolationError{Role: e.Role, Detail: "no enabled transition and not terminal"}
	}

	idx := e.select_(enabled)
	if idx < 0 || idx >= len(enabled) {
		idx = 0
	}
	chosen := enabled[idx]

	switch chosen.Action.Kind {
	case cfsm.ActionSend:
		if err := e.fireSend(chosen.Action); err != nil {
			return StepResult{}, err
		}
	case cfsm.ActionReceive:
		ok, err := e.fireReceive(chosen.Action)
		if err != nil {
			return StepResult{}, err
		}
		if !ok {
			e.observer.OnBlocked(e.Role, chosen.Action)
			return StepResult{Blocked: true, Action: chosen.Action}, nil
		}
	case cfsm.ActionCall:
		if err := e.fireCall(chosen.Action); err != nil {
			return StepResult{}, err
		}
	}

	// A call pushes a new frame (fireCall, above) whose state is the
	// callee's own initial state; chosen.To is the caller's post-call
	// continuation in the caller's own frame, already recorded as that
	// frame's returnTo, and must not overwrite the frame fireCall just
	// pushed.
	if chosen.Action.Kind != cfsm.ActionCall {
		e.current().state = chosen.To
	}
	e.trace = append(e.trace, chosen.Action)
	e.observer.OnAction(e.Role, chosen.Action)
	e.logger.Debug("fired action", "action", chosen.Action.String())

	// The transition just fired may itself have landed on a terminal
	// state (of a call frame or the root): unwind immediately so IsDone
	// reflects completion as soon as the completing action fires, rather
	// than waiting for a caller's next Step to discover it.
	if e.unwindCompletedFrames() {
		e.observer.OnDone(e.Role)
	}
	return StepResult{Fired: true, Action: chosen.Action}, nil
}

func (e *Executor) fireSend(a cfsm.Action) error {
	if len(a.Peers) > 0 {
		actual := make([]ast.Role, len(a.Peers))
		for i, p := range a.Peers {
			actual[i] = e.translate(p)
		}
		return e.bus.Multicast(e.Role, actual, a)
	}
	return e.bus.Send(e.Role, e.translate(a.Peer), a)
}

func (e *Executor) fireReceive(a cfsm.Action) (bool, error) {
	from := e.translate(a.Peer)
	msg, err := e.bus.Receive(from, e.Role)
	if err != nil {
		if _, notReady := err.(*transport.MessageNotReadyError); notReady {
			return false, nil
		}
		return false, err
	}
	if msg.Label != a.Message.Label {
		return false, &ProtocolViolationError{
			Role:   e.Role,
			Detail: "received label " + msg.Label + " but CFSM expects " + a.Message.Label,
		}
	}
	return true, nil
}

func (e *Executor) fireCall(a cfsm.Action) error {
	var formal ast.Role
	for k, v := range a.RoleMap {
		if v == e.Role {
			formal = k
			break
		}
	}
	callee, err := e.resolver.CFSMFor(a.Protocol, formal)
	if err != nil {
		return err
	}
	e.stack = append(e.stack, frame{
		m:        callee,
		state:    callee.Initial,
		roleMap:  a.RoleMap,
		returnTo: a.ReturnTo,
	})
	return nil
}

// unwindCompletedFrames pops every completed non-root frame, resuming
// the parent at its recorded return state, and marks the executor done
// once the root frame itself completes. Returns whether it finished the
// whole stack this call.
func (e *Executor) unwindCompletedFrames() bool {
	if e.done {
		return false // already collapsed; avoid re-notifying OnDone on repeat calls.
	}
	for {
		f := e.current()
		if !reducer.IsTerminal(f.m, f.state) {
			return false
		}
		if len(e.stack) == 1 {
			e.done = true
			return true
		}
		returnTo := f.returnTo
		e.stack = e.stack[:len(e.stack)-1]
		e.current().state = returnTo
	}
}
