// Package registry associates protocol names with their declarations and
// validates `do` invocations against them (spec.md §4.2). Grounded on the
// teacher's ServiceRegistry (coreengine/kernel/services.go): a
// mutex-guarded name->declaration map with typed lookup/registration
// errors, adapted from service dispatch to protocol lookup.
package registry

import (
	"fmt"
	"sync"

	"github.com/scribble-mpst/mpst-core/ast"
)

// Registry is the protocol registry: named global protocol declarations,
// safe for concurrent lookup (projection of different roles/protocols may
// run concurrently against the same registry).
type Registry struct {
	mu        sync.RWMutex
	protocols map[string]*ast.GlobalProtocol
}

// New builds an empty Registry.
func New() *Registry {
	return &Registry{protocols: make(map[string]*ast.GlobalProtocol)}
}

// FromModule builds a Registry preloaded with every protocol declared in
// a parsed module. Returns an error on duplicate protocol names.
func FromModule(m *ast.Module) (*Registry, error) {
	r := New()
	for _, p := range m.Protocols {
		if err := r.Register(p); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register adds a protocol declaration under its name.
func (r *Registry) Register(p *ast.GlobalProtocol) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.protocols[p.Name]; exists {
		return &DuplicateProtocolError{Name: p.Name}
	}
	r.protocols[p.Name] = p
	return nil
}

// Lookup returns the declaration for name, or an UndefinedProtocolError.
func (r *Registry) Lookup(name string) (*ast.GlobalProtocol, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.protocols[name]
	if !ok {
		return nil, &UndefinedProtocolError{Name: name}
	}
	return p, nil
}

// Names returns every registered protocol name.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.protocols))
	for n := range r.protocols {
		names = append(names, n)
	}
	return names
}

// RoleMap is the formal->actual role substitution produced by ValidateDo.
type RoleMap map[ast.Role]ast.Role

// ValidateDo checks a `do P(args...)` node against P's declaration: arity
// (actuals == formals), uniqueness (actuals pairwise distinct), and scope
// (actuals declared on the caller). Returns the formal->actual role map
// on success (spec.md §4.2).
func (r *Registry) ValidateDo(caller *ast.GlobalProtocol, protocolName string, actuals []ast.Role) (RoleMap, error) {
	callee, err := r.Lookup(protocolName)
	if err != nil {
		return nil, err
	}

	if len(actuals) != len(callee.Roles) {
		return nil, &DoArityError{
			Protocol: protocolName,
			Expected: len(callee.Roles),
			Actual:   len(actuals),
		}
	}

	seen := make(map[ast.Role]bool, len(actuals))
	for _, a := range actuals {
		if seen[a] {
			return nil, &RoleAliasingError{Protocol: protocolName, Role: a}
		}
		seen[a] = true
		if !caller.HasRole(a) {
			return nil, &UndeclaredRoleError{Protocol: protocolName, Role: a}
		}
	}

	mapping := make(RoleMap, len(actuals))
	for i, formal := range callee.Roles {
		mapping[formal] = actuals[i]
	}
	return mapping, nil
}

// =============================================================================
// Errors
// =============================================================================

// DuplicateProtocolError is raised registering a name already present.
type DuplicateProtocolError struct{ Name string }

func (e *DuplicateProtocolError) Error() string {
	return fmt.Sprintf("protocol already registered: %s", e.Name)
}

// UndefinedProtocolError is raised looking up a name that was never
// registered.
type UndefinedProtocolError struct{ Name string }

func (e *UndefinedProtocolError) Error() string {
	return fmt.Sprintf("undefined protocol: %s", e.Name)
}

// DoArityError signals a `do` call whose actual role count does not
// match the callee's formal role count.
type DoArityError struct {
	Protocol       string
	Expected, Actual int
}

func (e *DoArityError) Error() string {
	return fmt.Sprintf("do %s: expected %d roles, got %d", e.Protocol, e.Expected, e.Actual)
}

// RoleAliasingError signals the same actual role bound twice in a `do`
// call's argument list.
type RoleAliasingError struct {
	Protocol string
	Role     ast.Role
}

func (e *RoleAliasingError) Error() string {
	return fmt.Sprintf("do %s: role %s supplied more than once", e.Protocol, e.Role)
}

// UndeclaredRoleError signals a `do` actual role not declared by the
// calling protocol.
type UndeclaredRoleError struct {
	Protocol string
	Role     ast.Role
}

func (e *UndeclaredRoleError) Error() string {
	return fmt.Sprintf("do %s: role %s not declared by caller", e.Protocol, e.Role)
}
