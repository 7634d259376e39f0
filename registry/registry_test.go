package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scribble-mpst/mpst-core/ast"
)

func subProtocol() *ast.GlobalProtocol {
	return &ast.GlobalProtocol{Name: "Sub", Roles: []ast.Role{"X", "Y"}}
}

func callerProtocol() *ast.GlobalProtocol {
	return &ast.GlobalProtocol{Name: "Caller", Roles: []ast.Role{"A", "B"}}
}

func TestRegisterAndLookup(t *testing.T) {
	r := New()
	require.NoError(t, r.Register(subProtocol()))

	p, err := r.Lookup("Sub")
	require.NoError(t, err)
	assert.Equal(t, "Sub", p.Name)
}

func TestRegisterDuplicateRejected(t *testing.T) {
	r := New()
	require.NoError(t, r.Register(subProtocol()))
	err := r.Register(subProtocol())
	require.Error(t, err)
	var dup *DuplicateProtocolError
	require.ErrorAs(t, err, &dup)
}

func TestLookupUndefined(t *testing.T) {
	r := New()
	_, err := r.Lookup("Missing")
	require.Error(t, err)
	var undef *UndefinedProtocolError
	require.ErrorAs(t, err, &undef)
}

func TestFromModuleRejectsDuplicates(t *testing.T) {
	mod := &ast.Module{Protocols: []*ast.GlobalProtocol{subProtocol(), subProtocol()}}
	_, err := FromModule(mod)
	require.Error(t, err)
}

func TestValidateDoSuccess(t *testing.T) {
	r := New()
	require.NoError(t, r.Register(subProtocol()))

	mapping, err := r.ValidateDo(callerProtocol(), "Sub", []ast.Role{"A", "B"})
	require.NoError(t, err)
	assert.Equal(t, ast.Role("A"), mapping["X"])
	assert.Equal(t, ast.Role("B"), mapping["Y"])
}

func TestValidateDoArityMismatch(t *testing.T) {
	r := New()
	require.NoError(t, r.Register(subProtocol()))

	_, err := r.ValidateDo(callerProtocol(), "Sub", []ast.Role{"A"})
	require.Error(t, err)
	var arity *DoArityError
	require.ErrorAs(t, err, &arity)
}

func TestValidateDoAliasingRejected(t *testing.T) {
	r := New()
	require.NoError(t, r.Register(subProtocol()))

	_, err := r.ValidateDo(callerProtocol(), "Sub", []ast.Role{"A", "A"})
	require.Error(t, err)
	var aliasing *RoleAliasingError
	require.ErrorAs(t, err, &aliasing)
}

func TestValidateDoUndeclaredRoleRejected(t *testing.T) {
	r := New()
	require.NoError(t, r.Register(subProtocol()))

	_, err := r.ValidateDo(callerProtocol(), "Sub", []ast.Role{"A", "Z"})
	require.Error(t, err)
	var undeclared *UndeclaredRoleError
	require.ErrorAs(t, err, &undeclared)
}

func TestValidateDoUnknownProtocol(t *testing.T) {
	r := New()
	_, err := r.ValidateDo(callerProtocol(), "Sub", []ast.Role{"A", "B"})
	require.Error(t, err)
	var undef *UndefinedProtocolError
	require.ErrorAs(t, err, &undef)
}
