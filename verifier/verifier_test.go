package verifier

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scribble-mpst/mpst-core/ast"
	"github.com/scribble-mpst/mpst-core/cfg"
	"github.com/scribble-mpst/mpst-core/cfsm"
	"github.com/scribble-mpst/mpst-core/projector"
	"github.com/scribble-mpst/mpst-core/registry"
)

func transfer(sender ast.Role, receivers []ast.Role, label string) *ast.Interaction {
	return &ast.Interaction{
		Kind: ast.KindMessageTransfer, Sender: sender, Receivers: receivers,
		Message: ast.MessageSignature{Label: label},
	}
}

func projectedReport(t *testing.T, p *ast.GlobalProtocol) *Report {
	t.Helper()
	reg, err := registry.FromModule(&ast.Module{Protocols: []*ast.GlobalProtocol{p}})
	require.NoError(t, err)
	g, err := cfg.Build(p)
	require.NoError(t, err)
	cfsms, err := projector.ProjectAll(g, reg)
	require.NoError(t, err)
	return Verify(p, cfsms, reg)
}

func TestVerifyWellFormedProtocolHasEmptyReport(t *testing.T) {
	p := &ast.GlobalProtocol{
		Name:  "RequestResponse",
		Roles: []ast.Role{"Client", "Server"},
		Body: ast.Seq(
			transfer("Client", []ast.Role{"Server"}, "Request"),
			transfer("Server", []ast.Role{"Client"}, "Response"),
		),
	}
	report := projectedReport(t, p)
	assert.True(t, report.Empty())
}

func TestVerifyFlagsDisconnectedRole(t *testing.T) {
	p := &ast.GlobalProtocol{
		Name:  "P",
		Roles: []ast.Role{"A", "B", "Unused"},
		Body:  transfer("A", []ast.Role{"B"}, "X"),
	}
	report := projectedReport(t, p)
	require.False(t, report.Empty())

	var found bool
	for _, e := range report.Errors {
		if e.Kind == KindDisconnected && e.Role == "Unused" {
			found = true
		}
	}
	assert.True(t, found)
}

func TestVerifyFlagsSelfCommunication(t *testing.T) {
	v := &verifier{
		protocol: &ast.GlobalProtocol{Name: "P", Roles: []ast.Role{"A"}},
		report:   &Report{Protocol: "P"},
	}
	v.protocol.Body = transfer("A", []ast.Role{"A"}, "Loop")
	v.checkSelfCommunication()

	require.Len(t, v.report.Errors, 1)
	assert.Equal(t, KindSelfCommunication, v.report.Errors[0].Kind)
}

func TestVerifyFlagsUnguardedRecursion(t *testing.T) {
	v := &verifier{
		protocol: &ast.GlobalProtocol{Name: "P"},
		report:   &Report{Protocol: "P"},
	}
	body := &ast.Interaction{Kind: ast.KindContinue, Label: "Loop"}
	rec := &ast.Interaction{Kind: ast.KindRecursion, Label: "Loop", Body: body}
	v.checkUnguardedRecursion(rec)

	require.Len(t, v.report.Errors, 1)
	assert.Equal(t, KindUnguardedRecursion, v.report.Errors[0].Kind)
}

func TestVerifyGuardedRecursionHasNoError(t *testing.T) {
	v := &verifier{
		protocol: &ast.GlobalProtocol{Name: "P"},
		report:   &Report{Protocol: "P"},
	}
	body := ast.Seq(
		transfer("A", []ast.Role{"B"}, "Ping"),
		&ast.Interaction{Kind: ast.KindContinue, Label: "Loop"},
	)
	rec := &ast.Interaction{Kind: ast.KindRecursion, Label: "Loop", Body: body}
	v.checkUnguardedRecursion(rec)

	assert.Empty(t, v.report.Errors)
}

func TestVerifyFlagsRaceBetweenParallelBranchesSharingChannel(t *testing.T) {
	par := &ast.Interaction{
		Kind: ast.KindParallel,
		Branches: []*ast.Interaction{
			transfer("A", []ast.Role{"B"}, "X"),
			transfer("A", []ast.Role{"B"}, "Y"),
		},
	}
	v := &verifier{
		protocol: &ast.GlobalProtocol{Name: "P"},
		report:   &Report{Protocol: "P"},
	}
	v.checkRaceFreedom(par)

	require.Len(t, v.report.Errors, 1)
	assert.Equal(t, KindRace, v.report.Errors[0].Kind)
}

func TestVerifyNoRaceWhenBranchesUseDistinctChannels(t *testing.T) {
	par := &ast.Interaction{
		Kind: ast.KindParallel,
		Branches: []*ast.Interaction{
			transfer("A", []ast.Role{"B"}, "X"),
			transfer("A", []ast.Role{"C"}, "Y"),
		},
	}
	v := &verifier{
		protocol: &ast.GlobalProtocol{Name: "P"},
		report:   &Report{Protocol: "P"},
	}
	v.checkRaceFreedom(par)

	assert.Empty(t, v.report.Errors)
}

func TestVerifyFlagsDoArityMismatch(t *testing.T) {
	sub := &ast.GlobalProtocol{Name: "Sub", Roles: []ast.Role{"X", "Y"}}
	caller := &ast.GlobalProtocol{
		Name:  "Caller",
		Roles: []ast.Role{"A"},
		Body:  &ast.Interaction{Kind: ast.KindDo, ProtocolName: "Sub", RoleArgs: []ast.Role{"A"}},
	}
	reg, err := registry.FromModule(&ast.Module{Protocols: []*ast.GlobalProtocol{sub, caller}})
	require.NoError(t, err)

	v := &verifier{protocol: caller, report: &Report{Protocol: "Caller"}, reg: reg}
	v.checkDoCalls(caller.Body)

	require.Len(t, v.report.Errors, 1)
	assert.Equal(t, KindDoArity, v.report.Errors[0].Kind)
}

func TestVerifyFlagsNonDeterministicProjectedChoice(t *testing.T) {
	m := cfsm.New("A", "P", nil)
	b1 := m.AddState("b1")
	b2 := m.AddState("b2")
	m.AddTransition(m.Initial, b1, cfsm.Action{Kind: cfsm.ActionSend, Peer: "B", Message: ast.MessageSignature{Label: "Same"}})
	m.AddTransition(m.Initial, b2, cfsm.Action{Kind: cfsm.ActionSend, Peer: "B", Message: ast.MessageSignature{Label: "Same"}})
	m.MarkTerminal(b1)
	m.MarkTerminal(b2)

	v := &verifier{protocol: &ast.GlobalProtocol{Name: "P"}, report: &Report{Protocol: "P"}}
	v.checkProjectedCFSMs(map[ast.Role]*cfsm.CFSM{"A": m})

	var found bool
	for _, e := range v.report.Errors {
		if e.Kind == KindNonDeterministicChoice {
			found = true
		}
	}
	assert.True(t, found)
}

func TestReportErrorFormatting(t *testing.T) {
	report := &Report{Protocol: "P"}
	assert.Equal(t, "", report.Error())

	report.add(&WellFormednessError{Kind: KindDisconnected, Protocol: "P", Role: "X"})
	assert.Contains(t, report.Error(), "P")
	assert.Contains(t, report.Error(), "Disconnected")
}
