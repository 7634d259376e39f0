package grpcapi

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/scribble-mpst/mpst-core/ast"
	"github.com/scribble-mpst/mpst-core/cfg"
	"github.com/scribble-mpst/mpst-core/cfsm"
	"github.com/scribble-mpst/mpst-core/config"
	"github.com/scribble-mpst/mpst-core/executor"
	"github.com/scribble-mpst/mpst-core/logging"
	"github.com/scribble-mpst/mpst-core/observability"
	"github.com/scribble-mpst/mpst-core/parser"
	"github.com/scribble-mpst/mpst-core/persist"
	"github.com/scribble-mpst/mpst-core/projector"
	"github.com/scribble-mpst/mpst-core/registry"
	"github.com/scribble-mpst/mpst-core/simulator"
	"github.com/scribble-mpst/mpst-core/verifier"
)

// EngineServer implements EngineServiceServer.
// Thread-safe: the one mutable field is protected by cfgMu.
type EngineServer struct {
	logger logging.Logger

	cfgMu      sync.RWMutex
	simDefault config.SimulatorConfig
}

// NewEngineServer creates a gRPC server backed by the projection,
// verification, and simulation packages, logging through logger.
func NewEngineServer(logger logging.Logger) *EngineServer {
	return &EngineServer{
		logger:     logging.OrNoop(logger),
		simDefault: config.DefaultSimulatorConfig(),
	}
}

// SetDefaultSimulatorConfig overrides the configuration Simulate starts
// from. A request's non-zero Strategy, MaxSteps and TimeoutMS replace
// the matching defaults; its BufferBound, FIFOCheck and RecordTrace
// always replace them. Thread-safe:
// can be called concurrently with in-flight RPCs.
func (s *EngineServer) SetDefaultSimulatorConfig(c config.SimulatorConfig) {
	s.cfgMu.Lock()
	defer s.cfgMu.Unlock()
	s.simDefault = c
}

func (s *EngineServer) defaultSimulatorConfig() config.SimulatorConfig {
	s.cfgMu.RLock()
	defer s.cfgMu.RUnlock()
	return s.simDefault
}

// parsed holds the outcome of parsing and registering one request's
// source text, shared by all three RPCs.
type parsed struct {
	reg    *registry.Registry
	target *ast.GlobalProtocol
}

func (s *EngineServer) parse(source string) (*parsed, error) {
	mod, err := parser.Parse("<grpc>", source)
	if err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "parse error: %v", err)
	}
	if len(mod.Protocols) == 0 {
		return nil, status.Error(codes.InvalidArgument, "no protocol declarations found")
	}
	reg, err := registry.FromModule(mod)
	if err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "parse error: %v", err)
	}
	// As in cmd/mpst: the last declared protocol is the one acted on;
	// earlier declarations exist only to be `do`-invoked from it.
	target := mod.Protocols[len(mod.Protocols)-1]
	return &parsed{reg: reg, target: target}, nil
}

func (s *EngineServer) project(target *ast.GlobalProtocol, reg *registry.Registry) (map[ast.Role]*cfsm.CFSM, error) {
	g, err := cfg.Build(target)
	if err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "projection error: %v", err)
	}
	cfsms, err := projector.ProjectAll(g, reg)
	if err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "projection error: %v", err)
	}
	return cfsms, nil
}

// Project parses req's source, verifies it (unless skipped), and
// returns every (or one named) role's projected CFSM.
func (s *EngineServer) Project(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	start := time.Now()
	ctx, span := observability.Tracer("mpst.engine.grpcapi").Start(ctx, "EngineService/Project")
	defer span.End()

	in, err := decodeProjectRequest(req)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	s.logger.Debug("project_requested", "role", in.Role)

	p, err := s.parse(in.Source)
	if err != nil {
		s.finishGRPC("Project", start, err)
		return nil, err
	}

	cfsms, err := s.project(p.target, p.reg)
	if err != nil {
		observability.RecordProjection(p.target.Name, "error", int(time.Since(start).Milliseconds()))
		s.finishGRPC("Project", start, err)
		return nil, err
	}

	if !in.SkipVerification {
		report := verifier.Verify(p.target, cfsms, p.reg)
		if !report.Empty() {
			observability.RecordProjection(p.target.Name, "error", int(time.Since(start).Milliseconds()))
			err := status.Error(codes.FailedPrecondition, report.Error())
			s.finishGRPC("Project", start, err)
			return nil, err
		}
	}

	if in.Role != "" {
		m, ok := cfsms[ast.Role(in.Role)]
		if !ok {
			err := status.Errorf(codes.NotFound, "role %s is not declared in protocol %s", in.Role, p.target.Name)
			s.finishGRPC("Project", start, err)
			return nil, err
		}
		cfsms = map[ast.Role]*cfsm.CFSM{ast.Role(in.Role): m}
	}

	out := ProjectResponse{Protocol: p.target.Name, Roles: make(map[string]*persist.CFSM, len(cfsms))}
	for role, m := range cfsms {
		out.Roles[string(role)] = persist.FromCFSM(m)
	}

	resp, err := encodeStruct(out)
	if err != nil {
		err = status.Error(codes.Internal, err.Error())
		s.finishGRPC("Project", start, err)
		return nil, err
	}

	observability.RecordProjection(p.target.Name, "success", int(time.Since(start).Milliseconds()))
	s.logger.Info("project_completed", "protocol", p.target.Name, "roles", len(out.Roles))
	s.finishGRPC("Project", start, nil)
	return resp, nil
}

// Verify parses req's source and reports every well-formedness
// violation found across projection, without writing any result out.
func (s *EngineServer) Verify(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	start := time.Now()
	ctx, span := observability.Tracer("mpst.engine.grpcapi").Start(ctx, "EngineService/Verify")
	defer span.End()

	in, err := decodeVerifyRequest(req)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	s.logger.Debug("verify_requested")

	p, err := s.parse(in.Source)
	if err != nil {
		s.finishGRPC("Verify", start, err)
		return nil, err
	}

	cfsms, err := s.project(p.target, p.reg)
	if err != nil {
		s.finishGRPC("Verify", start, err)
		return nil, err
	}

	report := verifier.Verify(p.target, cfsms, p.reg)
	out := VerifyResponse{Protocol: p.target.Name, WellFormed: report.Empty()}
	kinds := make([]string, 0, len(report.Errors))
	for _, e := range report.Errors {
		out.Findings = append(out.Findings, VerifyFinding{
			Kind: string(e.Kind), Role: string(e.Role), Label: e.Label, Detail: e.Detail,
		})
		kinds = append(kinds, string(e.Kind))
	}

	status_ := "well_formed"
	if !report.Empty() {
		status_ = "ill_formed"
	}
	observability.RecordVerification(p.target.Name, status_, kinds)

	resp, err := encodeStruct(out)
	if err != nil {
		err = status.Error(codes.Internal, err.Error())
		s.finishGRPC("Verify", start, err)
		return nil, err
	}
	s.logger.Info("verify_completed", "protocol", p.target.Name, "well_formed", out.WellFormed)
	s.finishGRPC("Verify", start, nil)
	return resp, nil
}

// Simulate parses req's source, projects and verifies it, then drives
// the distributed simulator to completion (or deadlock, or its step
// budget) and returns the per-role trace.
func (s *EngineServer) Simulate(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	start := time.Now()
	ctx, span := observability.Tracer("mpst.engine.grpcapi").Start(ctx, "EngineService/Simulate")
	defer span.End()

	in, err := decodeSimulateRequest(req)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	runID := uuid.New().String()
	s.logger.Debug("simulate_requested", "run_id", runID, "strategy", in.Strategy)

	p, err := s.parse(in.Source)
	if err != nil {
		s.finishGRPC("Simulate", start, err)
		return nil, err
	}

	cfsms, err := s.project(p.target, p.reg)
	if err != nil {
		s.finishGRPC("Simulate", start, err)
		return nil, err
	}

	if report := verifier.Verify(p.target, cfsms, p.reg); !report.Empty() {
		err := status.Error(codes.FailedPrecondition, report.Error())
		s.finishGRPC("Simulate", start, err)
		return nil, err
	}

	simCfg := s.defaultSimulatorConfig()
	if in.Strategy != "" {
		simCfg.Strategy = in.Strategy
	}
	if in.MaxSteps > 0 {
		simCfg.MaxSteps = in.MaxSteps
	}
	simCfg.BufferBound = in.BufferBound
	simCfg.FIFOCheck = in.FIFOCheck
	simCfg.RecordTrace = in.RecordTrace
	if in.TimeoutMS > 0 {
		simCfg.Timeout = time.Duration(in.TimeoutMS) * time.Millisecond
	}

	resolver := newModuleResolver(p.reg)
	sim, err := simulator.New(p.target.Name, cfsms, resolver, simCfg, s.logger.Bind("protocol", p.target.Name))
	if err != nil {
		err = status.Error(codes.InvalidArgument, err.Error())
		s.finishGRPC("Simulate", start, err)
		return nil, err
	}

	runCtx := ctx
	if simCfg.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, simCfg.Timeout)
		defer cancel()
	}

	report, runErr := sim.Run(runCtx)

	outcome := "completed"
	switch {
	case report.Deadlocked:
		outcome = "deadlocked"
	case !report.Done:
		outcome = "step_budget_exceeded"
	}
	observability.RecordSimulationRun(p.target.Name, simCfg.Strategy, outcome, report.TotalSteps)

	out := SimulateResponse{
		RunID:      runID,
		Protocol:   report.Protocol,
		TotalSteps: report.TotalSteps,
		Done:       report.Done,
		Deadlocked: report.Deadlocked,
		Traces:     make(map[string][]TraceAction, len(report.Traces)),
	}
	for role, trace := range report.Traces {
		actions := make([]TraceAction, 0, len(trace))
		for _, a := range trace {
			actions = append(actions, TraceAction{Kind: a.Kind.String(), Peer: string(a.Peer), Label: a.Message.Label})
		}
		out.Traces[string(role)] = actions
	}

	resp, encErr := encodeStruct(out)
	if encErr != nil {
		err := status.Error(codes.Internal, encErr.Error())
		s.finishGRPC("Simulate", start, err)
		return nil, err
	}

	s.logger.Info("simulate_completed", "run_id", runID, "protocol", report.Protocol, "steps", report.TotalSteps, "outcome", outcome)

	// A deadlock or step-budget overrun is a meaningful simulation
	// result, not an RPC failure: the caller asked what would happen,
	// and the response above says so. Only a genuinely unexpected error
	// (not DeadlockError/StepBudgetExceededError) fails the call.
	if runErr != nil {
		if !isExpectedSimulationOutcome(runErr) {
			err := status.Error(codes.Internal, runErr.Error())
			s.finishGRPC("Simulate", start, err)
			return nil, err
		}
	}

	s.finishGRPC("Simulate", start, nil)
	return resp, nil
}

func isExpectedSimulationOutcome(err error) bool {
	switch err.(type) {
	case *simulator.DeadlockError, *simulator.StepBudgetExceededError:
		return true
	default:
		return false
	}
}

func (s *EngineServer) finishGRPC(method string, start time.Time, err error) {
	st := "success"
	if err != nil {
		st = "error"
	}
	observability.RecordGRPCRequest(method, st, int(time.Since(start).Milliseconds()))
}

var _ executor.Resolver = (*moduleResolver)(nil)
