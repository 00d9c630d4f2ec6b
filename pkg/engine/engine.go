// Package engine wires the parser, dispatcher and report into the single
// entry point the conversation layer calls with a model's raw output.
package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/harun/toolplan/internal/config"
	"github.com/harun/toolplan/internal/metrics"
	"github.com/harun/toolplan/internal/observability"
	"github.com/harun/toolplan/internal/tracing"
	"github.com/harun/toolplan/pkg/capabilities/clock"
	"github.com/harun/toolplan/pkg/capability"
	"github.com/harun/toolplan/pkg/dispatcher"
	"github.com/harun/toolplan/pkg/plan"
	"github.com/harun/toolplan/pkg/report"
)

// ErrRegistryNotSealed is returned by New for a registry that still accepts registrations.
var ErrRegistryNotSealed = errors.New("capability registry is not sealed")

// Engine turns model output into an ExecutionReport
type Engine struct {
	registry   *capability.Registry
	parser     *plan.Parser
	dispatcher *dispatcher.Dispatcher
	metrics    *metrics.Metrics
}

// Options configures an Engine
type Options struct {
	Parser     []plan.Option
	Dispatcher []dispatcher.Option
	Metrics    *metrics.Metrics
}

// New creates an Engine over a sealed registry
func New(reg *capability.Registry, opts Options) (*Engine, error) {
	if reg == nil {
		return nil, errors.New("capability registry is required")
	}
	if !reg.Sealed() {
		return nil, ErrRegistryNotSealed
	}

	dispatcherOpts := opts.Dispatcher
	if opts.Metrics != nil {
		dispatcherOpts = append(dispatcherOpts, dispatcher.WithMetrics(opts.Metrics))
	}

	return &Engine{
		registry:   reg,
		parser:     plan.NewParser(opts.Parser...),
		dispatcher: dispatcher.New(reg, dispatcherOpts...),
		metrics:    opts.Metrics,
	}, nil
}

// NewFromConfig registers the built-in capabilities not disabled by cfg,
// seals the registry and builds an Engine with cfg's dispatch and parser settings
func NewFromConfig(cfg *config.Config, m *metrics.Metrics) (*Engine, error) {
	reg := capability.NewRegistry()
	if err := clock.Register(reg, clock.Options{Disabled: cfg.Capabilities.Disabled}); err != nil {
		return nil, fmt.Errorf("failed to register built-in capabilities: %w", err)
	}
	reg.Seal()

	var parserOpts []plan.Option
	if cfg.Parser.EmbeddedPlan {
		parserOpts = append(parserOpts, plan.WithEmbeddedPlan())
	}

	return New(reg, Options{
		Parser: parserOpts,
		Dispatcher: []dispatcher.Option{
			dispatcher.WithCallTimeout(cfg.Dispatch.CallTimeout),
			dispatcher.WithMaxConcurrency(cfg.Dispatch.MaxConcurrency),
			dispatcher.WithMaxOutputBytes(cfg.Dispatch.MaxOutputBytes),
		},
		Metrics: m,
	})
}

// Registry returns the engine's sealed capability registry
func (e *Engine) Registry() *capability.Registry {
	return e.registry
}

// Run parses text and dispatches the resulting plan. A malformed plan is
// returned as an error matching plan.ErrMalformed together with an empty
// report; nothing is executed. Empty text yields an empty report.
func (e *Engine) Run(ctx context.Context, text string) (report.ExecutionReport, error) {
	p, err := e.parser.Parse(text)
	if err != nil {
		e.observeParse(ctx, "malformed", map[string]any{"error": err.Error()})
		log.Warn().
			Str("trace_id", tracing.GetTraceID(ctx)).
			Err(err).
			Msg("Rejected malformed tool plan")
		return report.Aggregate("", nil), err
	}

	status := "ok"
	if p.IsEmpty() {
		status = "empty"
	}
	e.observeParse(ctx, status, map[string]any{"calls": p.Len()})

	return e.dispatcher.Dispatch(ctx, p), nil
}

// RunOptional is Run for a model turn that may carry no plan at all
func (e *Engine) RunOptional(ctx context.Context, text *string) (report.ExecutionReport, error) {
	if text == nil {
		return e.Run(ctx, "")
	}
	return e.Run(ctx, *text)
}

func (e *Engine) observeParse(ctx context.Context, status string, metadata map[string]any) {
	if e.metrics != nil {
		e.metrics.ObserveParse(status)
	}
	observability.RecordPlanAudit(ctx, status, metadata)
}
