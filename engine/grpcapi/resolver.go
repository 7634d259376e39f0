package grpcapi

import (
	"fmt"
	"sync"

	"github.com/scribble-mpst/mpst-core/ast"
	"github.com/scribble-mpst/mpst-core/cfg"
	"github.com/scribble-mpst/mpst-core/cfsm"
	"github.com/scribble-mpst/mpst-core/projector"
	"github.com/scribble-mpst/mpst-core/registry"
)

// moduleResolver implements executor.Resolver over every protocol
// declared in one parsed module, projecting and caching each callee's
// CFSMs the first time a `do` reaches it. Grounded on cmd/mpst's single-
// protocol projection plus executor_test.go's stubResolver shape,
// generalized to resolve any protocol in scope rather than just the one
// named on the command line.
type moduleResolver struct {
	reg *registry.Registry

	mu    sync.Mutex
	cache map[string]map[ast.Role]*cfsm.CFSM
}

func newModuleResolver(reg *registry.Registry) *moduleResolver {
	return &moduleResolver{reg: reg, cache: make(map[string]map[ast.Role]*cfsm.CFSM)}
}

func (r *moduleResolver) CFSMFor(protocol string, role ast.Role) (*cfsm.CFSM, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	byRole, ok := r.cache[protocol]
	if !ok {
		p, err := r.reg.Lookup(protocol)
		if err != nil {
			return nil, err
		}
		g, err := cfg.Build(p)
		if err != nil {
			return nil, err
		}
		byRole, err = projector.ProjectAll(g, r.reg)
		if err != nil {
			return nil, err
		}
		r.cache[protocol] = byRole
	}

	m, ok := byRole[role]
	if !ok {
		return nil, fmt.Errorf("grpcapi: protocol %s has no role %s", protocol, role)
	}
	return m, nil
}
