// Package mpsttest provides shared test fixtures reused across the
// projector, verifier, and simulator test suites: small hand-built
// global protocols and a RecordingObserver that collects simulator
// events for assertions. Grounded on the teacher's
// coreengine/testutil package: small, composable mock/fixture builders
// with a mutex-guarded call log, adapted here from mocked LLM/agent
// collaborators to fixed protocol fixtures and a recording
// executor.Observer.
package mpsttest

import (
	"sync"

	"github.com/scribble-mpst/mpst-core/ast"
	"github.com/scribble-mpst/mpst-core/cfsm"
)

// RequestResponse builds a two-role request/response protocol: Client
// asks, Server answers.
func RequestResponse() *ast.GlobalProtocol {
	return &ast.GlobalProtocol{
		Name:  "RequestResponse",
		Roles: []ast.Role{"Client", "Server"},
		Body: ast.Seq(
			transfer("Client", []ast.Role{"Server"}, "Request", "string"),
			transfer("Server", []ast.Role{"Client"}, "Response", "string"),
		),
	}
}

// TwoPhaseCommit builds a three-role two-phase-commit-style protocol: a
// Coordinator proposes, the first Participant decides Commit or Abort
// (a distinct label per branch, as choice determinism requires), and
// the Coordinator relays the decision to the second Participant.
func TwoPhaseCommit() *ast.GlobalProtocol {
	commit := ast.Seq(
		transfer("P1", []ast.Role{"Coordinator"}, "Commit", ""),
		transfer("Coordinator", []ast.Role{"P2"}, "Commit", ""),
	)
	abort := ast.Seq(
		transfer("P1", []ast.Role{"Coordinator"}, "Abort", ""),
		transfer("Coordinator", []ast.Role{"P2"}, "Abort", ""),
	)
	return &ast.GlobalProtocol{
		Name:  "TwoPhaseCommit",
		Roles: []ast.Role{"Coordinator", "P1", "P2"},
		Body: ast.Seq(
			transfer("Coordinator", []ast.Role{"P1", "P2"}, "Propose", ""),
			&ast.Interaction{Kind: ast.KindChoice, Decider: "P1", Branches: []*ast.Interaction{commit, abort}},
		),
	}
}

// PingPong builds a two-role protocol that sends Ping/Pong forever
// inside a named recursion, for projector/verifier fixtures that need a
// cyclic CFG.
func PingPong() *ast.GlobalProtocol {
	body := ast.Seq(
		transfer("A", []ast.Role{"B"}, "Ping", ""),
		ast.Seq(
			transfer("B", []ast.Role{"A"}, "Pong", ""),
			&ast.Interaction{Kind: ast.KindContinue, Label: "Loop"},
		),
	)
	return &ast.GlobalProtocol{
		Name:  "PingPong",
		Roles: []ast.Role{"A", "B"},
		Body:  &ast.Interaction{Kind: ast.KindRecursion, Label: "Loop", Body: body},
	}
}

// ThreeRoleOAuth builds a three-role authorization-code-style protocol:
// Client asks the AuthServer for a code via the User's approval, then
// redeems it.
func ThreeRoleOAuth() *ast.GlobalProtocol {
	return &ast.GlobalProtocol{
		Name:  "OAuth",
		Roles: []ast.Role{"Client", "User", "AuthServer"},
		Body: ast.Seq(
			transfer("Client", []ast.Role{"User"}, "Redirect", ""),
			ast.Seq(
				transfer("User", []ast.Role{"AuthServer"}, "Approve", ""),
				ast.Seq(
					transfer("AuthServer", []ast.Role{"Client"}, "Code", ""),
					transfer("Client", []ast.Role{"AuthServer"}, "Token", ""),
				),
			),
		),
	}
}

func transfer(sender ast.Role, receivers []ast.Role, label, payloadType string) *ast.Interaction {
	msg := ast.MessageSignature{Label: label}
	if payloadType != "" {
		msg.PayloadTypes = []string{payloadType}
	}
	return &ast.Interaction{
		Kind: ast.KindMessageTransfer, Sender: sender, Receivers: receivers, Message: msg,
	}
}

// RecordedEvent is one notification captured by RecordingObserver.
type RecordedEvent struct {
	Role    ast.Role
	Kind    string // "action", "blocked", "done"
	Action  cfsm.Action
}

// RecordingObserver implements executor.Observer, collecting every
// notification for test assertions. Safe for concurrent use.
type RecordingObserver struct {
	mu     sync.Mutex
	Events []RecordedEvent
}

// NewRecordingObserver returns an empty RecordingObserver.
func NewRecordingObserver() *RecordingObserver {
	return &RecordingObserver{}
}

func (o *RecordingObserver) OnAction(role ast.Role, action cfsm.Action) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.Events = append(o.Events, RecordedEvent{Role: role, Kind: "action", Action: action})
}

func (o *RecordingObserver) OnBlocked(role ast.Role, action cfsm.Action) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.Events = append(o.Events, RecordedEvent{Role: role, Kind: "blocked", Action: action})
}

func (o *RecordingObserver) OnDone(role ast.Role) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.Events = append(o.Events, RecordedEvent{Role: role, Kind: "done"})
}

// All returns a snapshot of every event recorded so far.
func (o *RecordingObserver) All() []RecordedEvent {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]RecordedEvent(nil), o.Events...)
}
