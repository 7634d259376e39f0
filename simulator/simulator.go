// Package simulator drives a set of per-role executors over a shared
// transport until every role completes, a global deadlock is detected,
// or a configured bound is hit (spec.md §4.9). The step loop itself is
// grounded on the teacher's coreengine/runtime.DAGExecutor: a
// mutex-guarded shared state advanced one unit of work at a time, with
// completion and error conditions checked after every step rather than
// via a separate supervisor goroutine.
package simulator

import (
	"container/heap"
	"context"
	"fmt"
	"math/rand"
	"sort"
	"sync"

	"github.com/scribble-mpst/mpst-core/ast"
	"github.com/scribble-mpst/mpst-core/cfsm"
	"github.com/scribble-mpst/mpst-core/config"
	"github.com/scribble-mpst/mpst-core/executor"
	"github.com/scribble-mpst/mpst-core/logging"
	"github.com/scribble-mpst/mpst-core/transport"
)

// Simulator coordinates the executors for every role of one protocol
// instance, picking which role steps next according to a Strategy.
type Simulator struct {
	mu sync.Mutex

	protocol string
	cfg      config.SimulatorConfig
	strategy Strategy
	bus      *transport.FIFO
	logger   logging.Logger

	roles   []ast.Role
	byRole  map[ast.Role]*executor.Executor
	steps   map[ast.Role]int // for the fair strategy
	rrNext  int              // round-robin cursor into roles
	rng     *rand.Rand
	seq     int // submission counter, for fair tie-breaking
	history []StepRecord

	totalSteps int
	deadlock   bool
}

// StepRecord is one entry of the simulator-wide execution history.
type StepRecord struct {
	Step   int
	Role   ast.Role
	Result executor.StepResult
}

// New builds a Simulator for protocol, with one Executor per entry of
// cfsms, all sharing a single transport built from cfg's buffering and
// FIFO-checking settings.
func New(protocol string, cfsms map[ast.Role]*cfsm.CFSM, resolver executor.Resolver, cfg config.SimulatorConfig, logger logging.Logger) (*Simulator, error) {
	if err := (&cfg).Validate(); err != nil {
		return nil, err
	}
	strategy, ok := ParseStrategy(cfg.Strategy)
	if !ok {
		return nil, fmt.Errorf("simulator: unknown strategy %q", cfg.Strategy)
	}
	if len(cfsms) == 0 {
		return nil, fmt.Errorf("simulator: no role CFSMs supplied for protocol %s", protocol)
	}

	logger = logging.OrNoop(logger).Bind("protocol", protocol)
	bus := transport.New(cfg.BufferBound, cfg.FIFOCheck, logger)

	s := &Simulator{
		protocol: protocol,
		cfg:      cfg,
		strategy: strategy,
		bus:      bus,
		logger:   logger,
		byRole:   make(map[ast.Role]*executor.Executor, len(cfsms)),
		steps:    make(map[ast.Role]int, len(cfsms)),
		rng:      rand.New(rand.NewSource(1)),
	}

	for role, m := range cfsms {
		s.roles = append(s.roles, role)
	}
	sort.Slice(s.roles, func(i, j int) bool { return s.roles[i] < s.roles[j] })

	for _, role := range s.roles {
		s.byRole[role] = executor.New(role, cfsms[role], bus, resolver, executor.First, executor.NoopObserver(), logger)
	}
	return s, nil
}

// Roles returns the participating roles in deterministic order.
func (s *Simulator) Roles() []ast.Role { return s.roles }

// Executor returns the underlying per-role Executor directly, for
// Manual-strategy callers driving individual roles' steps themselves
// instead of going through Simulator.Step.
func (s *Simulator) Executor(role ast.Role) (*executor.Executor, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.byRole[role]
	return e, ok
}

// Done reports whether every role's executor has completed.
func (s *Simulator) Done() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.allDone()
}

func (s *Simulator) allDone() bool {
	for _, r := range s.roles {
		if !s.byRole[r].IsDone() {
			return false
		}
	}
	return true
}

// Deadlocked reports whether the last Run/Step call detected a global
// deadlock: every non-done role is blocked, and none can progress.
func (s *Simulator) Deadlocked() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.deadlock
}

// GetTraces returns each role's fired-action trace so far.
func (s *Simulator) GetTraces() map[ast.Role][]cfsm.Action {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[ast.Role][]cfsm.Action, len(s.roles))
	for _, r := range s.roles {
		out[r] = append([]cfsm.Action(nil), s.byRole[r].Trace()...)
	}
	return out
}

// History returns the global, interleaved sequence of per-role steps
// taken by Run/Step so far, in the order the scheduler chose them.
func (s *Simulator) History() []StepRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]StepRecord(nil), s.history...)
}

// Reset discards all executor progress by rebuilding them against a
// fresh transport, for re-running a simulation without re-projecting
// the CFSMs. The strategy, configuration and random source are kept.
func (s *Simulator) Reset(cfsms map[ast.Role]*cfsm.CFSM, resolver executor.Resolver) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bus = transport.New(s.cfg.BufferBound, s.cfg.FIFOCheck, s.logger)
	s.byRole = make(map[ast.Role]*executor.Executor, len(s.roles))
	for _, role := range s.roles {
		s.byRole[role] = executor.New(role, cfsms[role], s.bus, resolver, executor.First, executor.NoopObserver(), s.logger)
	}
	s.steps = make(map[ast.Role]int, len(s.roles))
	s.rrNext = 0
	s.seq = 0
	s.history = nil
	s.totalSteps = 0
	s.deadlock = false
}

// Step advances the simulation by exactly one role-step, chosen
// according to the configured Strategy. It returns the role stepped and
// the result, or an error if no role is currently steppable (all done,
// or a global deadlock).
func (s *Simulator) Step() (ast.Role, executor.StepResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stepLocked()
}

func (s *Simulator) stepLocked() (ast.Role, executor.StepResult, error) {
	if s.allDone() {
		return "", executor.StepResult{}, &SimulationCompleteError{Protocol: s.protocol}
	}

	order := s.candidateOrder()
	var lastRole ast.Role
	var lastResult executor.StepResult
	progressed := false

	for _, role := range order {
		e := s.byRole[role]
		if e.IsDone() {
			continue
		}
		res, err := e.Step()
		if err != nil {
			return role, executor.StepResult{}, err
		}
		lastRole, lastResult = role, res
		if res.Blocked {
			continue
		}
		progressed = true
		break
	}

	if !progressed {
		if s.allDone() {
			s.deadlock = false
			return lastRole, lastResult, nil
		}
		s.deadlock = true
		return "", executor.StepResult{}, &DeadlockError{Protocol: s.protocol}
	}

	s.deadlock = false
	s.totalSteps++
	s.steps[lastRole]++
	if s.cfg.RecordTrace {
		s.history = append(s.history, StepRecord{Step: s.totalSteps, Role: lastRole, Result: lastResult})
	}
	return lastRole, lastResult, nil
}

// candidateOrder returns the roles to try this step, in priority order,
// per the configured Strategy. Manual mode uses the same rotating order
// as round-robin when Step is called; a Manual caller can instead drive
// selection via per-role Executors directly.
func (s *Simulator) candidateOrder() []ast.Role {
	switch s.strategy {
	case Random:
		shuffled := append([]ast.Role(nil), s.roles...)
		s.rng.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })
		return shuffled
	case Fair:
		return s.fairOrder()
	case RoundRobin, Manual:
		fallthrough
	default:
		return s.roundRobinOrder()
	}
}

func (s *Simulator) roundRobinOrder() []ast.Role {
	n := len(s.roles)
	order := make([]ast.Role, 0, n)
	for i := 0; i < n; i++ {
		order = append(order, s.roles[(s.rrNext+i)%n])
	}
	s.rrNext = (s.rrNext + 1) % n
	return order
}

func (s *Simulator) fairOrder() []ast.Role {
	h := make(fairHeap, 0, len(s.roles))
	for _, r := range s.roles {
		s.seq++
		h = append(h, &fairItem{role: r, steps: s.steps[r], seq: s.seq})
	}
	heap.Init(&h)
	order := make([]ast.Role, 0, len(h))
	for h.Len() > 0 {
		order = append(order, heap.Pop(&h).(*fairItem).role)
	}
	return order
}

// Run steps the simulation until every role completes, a global
// deadlock is detected, MaxSteps is reached, or ctx is cancelled.
func (s *Simulator) Run(ctx context.Context) (*RunReport, error) {
	s.mu.Lock()
	maxSteps := s.cfg.MaxSteps
	s.mu.Unlock()

	for i := 0; i < maxSteps; i++ {
		select {
		case <-ctx.Done():
			return s.buildReport(), ctx.Err()
		default:
		}

		s.mu.Lock()
		if s.allDone() {
			s.mu.Unlock()
			return s.buildReport(), nil
		}
		_, _, err := s.stepLocked()
		s.mu.Unlock()

		if err != nil {
			if _, deadlocked := err.(*DeadlockError); deadlocked {
				return s.buildReport(), err
			}
			if _, done := err.(*SimulationCompleteError); done {
				return s.buildReport(), nil
			}
			return s.buildReport(), err
		}
	}

	s.mu.Lock()
	complete := s.allDone()
	s.mu.Unlock()
	if !complete {
		return s.buildReport(), &StepBudgetExceededError{Protocol: s.protocol, MaxSteps: maxSteps}
	}
	return s.buildReport(), nil
}

// buildReport acquires s.mu itself; callers must not already hold it.
func (s *Simulator) buildReport() *RunReport {
	s.mu.Lock()
	defer s.mu.Unlock()
	traces := make(map[ast.Role][]cfsm.Action, len(s.roles))
	for _, r := range s.roles {
		traces[r] = append([]cfsm.Action(nil), s.byRole[r].Trace()...)
	}
	return &RunReport{
		Protocol:   s.protocol,
		TotalSteps: s.totalSteps,
		Done:       s.allDone(),
		Deadlocked: s.deadlock,
		Traces:     traces,
	}
}

// RunReport summarizes the outcome of a completed Run.
type RunReport struct {
	Protocol   string
	TotalSteps int
	Done       bool
	Deadlocked bool
	Traces     map[ast.Role][]cfsm.Action
}
