package projector

import (
	"fmt"

	"github.com/scribble-mpst/mpst-core/ast"
	"github.com/scribble-mpst/mpst-core/cfg"
	"github.com/scribble-mpst/mpst-core/cfsm"
	"github.com/scribble-mpst/mpst-core/registry"
)

// Projections holds every protocol's per-role CFSMs, keyed by protocol
// name then role — the full output of projecting an entire registry,
// and the lookup table a call stack frame needs to fetch a sub-protocol
// call's callee CFSM (spec.md §4.4).
type Projections map[string]map[ast.Role]*cfsm.CFSM

// CFSMFor implements executor.Resolver.
func (p Projections) CFSMFor(protocol string, role ast.Role) (*cfsm.CFSM, error) {
	byRole, ok := p[protocol]
	if !ok {
		return nil, fmt.Errorf("projector: no projections built for protocol %s", protocol)
	}
	m, ok := byRole[role]
	if !ok {
		return nil, &RoleNotInProtocolError{Protocol: protocol, Role: role}
	}
	return m, nil
}

// BuildAll builds the CFG and full per-role projection set for every
// protocol registered in reg.
func BuildAll(reg *registry.Registry) (Projections, error) {
	out := make(Projections)
	for _, name := range reg.Names() {
		p, err := reg.Lookup(name)
		if err != nil {
			return nil, err
		}
		g, err := cfg.Build(p)
		if err != nil {
			return nil, fmt.Errorf("building cfg for %s: %w", name, err)
		}
		byRole, err := ProjectAll(g, reg)
		if err != nil {
			return nil, fmt.Errorf("projecting %s: %w", name, err)
		}
		out[name] = byRole
	}
	return out, nil
}
