// Package dispatcher executes a parsed tool plan against a sealed capability
// registry and packages every call's outcome, in plan order, into an
// ExecutionReport.
//
// Dispatch never returns an error: unknown capabilities, bad arguments,
// failing or panicking invokers, timeouts and cancellation all become
// per-call failure outcomes.
package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
	"unicode/utf8"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/harun/toolplan/internal/logger"
	"github.com/harun/toolplan/internal/metrics"
	"github.com/harun/toolplan/internal/observability"
	"github.com/harun/toolplan/internal/tracing"
	"github.com/harun/toolplan/pkg/binder"
	"github.com/harun/toolplan/pkg/capability"
	"github.com/harun/toolplan/pkg/plan"
	"github.com/harun/toolplan/pkg/report"
)

// DefaultCallTimeout bounds a single invocation when no timeout is configured.
const DefaultCallTimeout = 30 * time.Second

// Resolver looks up capabilities. *capability.Registry satisfies it once sealed.
type Resolver interface {
	Resolve(namespace, function string) (*capability.Descriptor, bool)
}

// Dispatcher runs tool plans. It holds no per-dispatch state and is safe
// for concurrent use.
type Dispatcher struct {
	resolver       Resolver
	callTimeout    time.Duration
	maxConcurrency int
	maxOutputBytes int
	metrics        *metrics.Metrics
	logger         zerolog.Logger
}

// Option is a functional option for configuring the Dispatcher
type Option func(*Dispatcher)

// WithCallTimeout sets the per-call deadline. Non-positive values keep the default.
func WithCallTimeout(timeout time.Duration) Option {
	return func(d *Dispatcher) {
		if timeout > 0 {
			d.callTimeout = timeout
		}
	}
}

// WithMaxConcurrency limits how many calls of one plan run at once.
// 0 starts every call immediately; 1 runs them sequentially.
func WithMaxConcurrency(max int) Option {
	return func(d *Dispatcher) {
		if max >= 0 {
			d.maxConcurrency = max
		}
	}
}

// WithMaxOutputBytes truncates success values longer than max bytes. 0 disables truncation.
func WithMaxOutputBytes(max int) Option {
	return func(d *Dispatcher) {
		if max >= 0 {
			d.maxOutputBytes = max
		}
	}
}

// WithMetrics records dispatch and call metrics
func WithMetrics(m *metrics.Metrics) Option {
	return func(d *Dispatcher) {
		d.metrics = m
	}
}

// WithLogger sets the logger for the dispatcher
func WithLogger(l zerolog.Logger) Option {
	return func(d *Dispatcher) {
		d.logger = l
	}
}

// New creates a Dispatcher over resolver
func New(resolver Resolver, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		resolver:    resolver,
		callTimeout: DefaultCallTimeout,
		logger:      log.Logger,
	}

	for _, opt := range opts {
		opt(d)
	}

	return d
}

// Dispatch executes every call of p and returns one outcome per call, in
// plan order. Calls are independent: one call's failure never changes
// another call's outcome.
//
// Cancelling ctx stops the dispatch promptly. Outcomes that completed are
// kept; every other call is reported as Cancelled.
func (d *Dispatcher) Dispatch(ctx context.Context, p plan.ToolPlan) report.ExecutionReport {
	startTime := time.Now()

	ctx = tracing.NewRunContext(ctx)
	runID := tracing.GetRunID(ctx)

	ctx, span := tracing.StartSpan(ctx, "toolplan.dispatch",
		attribute.String("run_id", runID),
		attribute.Int("calls", p.Len()),
	)
	defer span.End()

	runLog := tracing.LoggerFromContext(ctx, d.logger)
	runLog.Debug().Int("calls", p.Len()).Int("max_concurrency", d.maxConcurrency).Msg("Dispatching tool plan")

	outcomes := make([]report.CallOutcome, p.Len())

	var sem chan struct{}
	if d.maxConcurrency > 0 {
		sem = make(chan struct{}, d.maxConcurrency)
	}

	var wg sync.WaitGroup
	for i, call := range p.Calls {
		if !acquire(ctx, sem) {
			outcomes[i] = d.skip(ctx, call)
			continue
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			defer release(sem)
			outcomes[i] = d.runCall(ctx, call)
		}()
	}
	wg.Wait()

	rep := report.Aggregate(runID, outcomes)
	duration := time.Since(startTime)
	cancelled := ctx.Err() != nil

	if d.metrics != nil {
		d.metrics.ObserveDispatch(p.Len(), duration, cancelled)
	}

	failures := len(rep.Failures())
	span.SetAttributes(attribute.Int("failures", failures), attribute.Bool("cancelled", cancelled))

	runLog.Info().
		Int("calls", rep.Len()).
		Int("failures", failures).
		Bool("cancelled", cancelled).
		Dur("duration", duration).
		Msg("Tool plan dispatched")

	return rep
}

// acquire takes a concurrency slot, or reports false once ctx is done
func acquire(ctx context.Context, sem chan struct{}) bool {
	if ctx.Err() != nil {
		return false
	}
	if sem == nil {
		return true
	}

	select {
	case sem <- struct{}{}:
		if ctx.Err() != nil {
			<-sem
			return false
		}
		return true
	case <-ctx.Done():
		return false
	}
}

func release(sem chan struct{}) {
	if sem != nil {
		<-sem
	}
}

// skip reports a call that never started because the dispatch was cancelled
func (d *Dispatcher) skip(ctx context.Context, call plan.PlannedCall) report.CallOutcome {
	outcome := cancelled(ctx)
	outcome.CallID = newCallID()
	outcome.Namespace = call.Namespace
	outcome.Function = call.Function

	_, known := d.resolver.Resolve(call.Namespace, call.Function)
	d.record(tracing.WithCallID(ctx, outcome.CallID), outcome, known, false)
	return outcome
}

// runCall resolves, binds and invokes one planned call
func (d *Dispatcher) runCall(ctx context.Context, call plan.PlannedCall) report.CallOutcome {
	startTime := time.Now()
	callID := newCallID()
	name := call.QualifiedName()

	ctx = tracing.WithCallID(ctx, callID)
	ctx, span := tracing.StartSpan(ctx, "toolplan.call",
		attribute.String("capability", name),
		attribute.String("call_id", callID),
	)
	defer span.End()

	callLog := tracing.LoggerFromContext(ctx, d.logger).With().Str("capability", name).Logger()

	outcome, invoked := d.execute(ctx, call, callLog)
	outcome.CallID = callID
	outcome.Namespace = call.Namespace
	outcome.Function = call.Function
	outcome.Duration = time.Since(startTime)

	span.SetAttributes(attribute.String("status", outcome.Status()))
	if !outcome.Success {
		span.SetStatus(codes.Error, outcome.Detail)
		callLog.Warn().
			Str("error_kind", string(outcome.Kind)).
			Str("error", outcome.Detail).
			Dur("duration", outcome.Duration).
			Msg("Tool call failed")
	} else {
		callLog.Debug().
			Dur("duration", outcome.Duration).
			Bool("truncated", outcome.Truncated).
			Msg("Tool call completed")
	}

	d.record(ctx, outcome, outcome.Kind != report.UnknownCapability, invoked)
	return outcome
}

// execute returns the call's outcome and whether the invoker was reached
func (d *Dispatcher) execute(ctx context.Context, call plan.PlannedCall, callLog zerolog.Logger) (report.CallOutcome, bool) {
	desc, ok := d.resolver.Resolve(call.Namespace, call.Function)
	if !ok {
		return report.Failed(report.UnknownCapability, call.QualifiedName()), false
	}

	bound, err := binder.Bind(call.Arguments, desc.Parameters)
	if err != nil {
		return report.Failed(report.InvalidArguments, err.Error()), false
	}

	callLog.Debug().
		Interface("arguments", logger.RedactArguments(call.Arguments)).
		Msg("Invoking capability")

	if d.metrics != nil {
		d.metrics.CallStarted()
		defer d.metrics.CallFinished()
	}

	return d.invoke(ctx, desc, bound), true
}

type invokeResult struct {
	value string
	err   error
}

// invoke runs the invoker under the per-call deadline. The invoker runs on
// its own goroutine so an invoker that ignores its context cannot hold up
// the dispatch.
func (d *Dispatcher) invoke(ctx context.Context, desc *capability.Descriptor, bound capability.BoundArguments) report.CallOutcome {
	callCtx, cancel := context.WithTimeout(ctx, d.callTimeout)
	defer cancel()

	resultChan := make(chan invokeResult, 1)

	go func() {
		completed := false
		defer func() {
			if r := recover(); r != nil {
				resultChan <- invokeResult{err: fmt.Errorf("capability panicked: %v", r)}
			} else if !completed {
				// runtime.Goexit unwinds without a panic value
				resultChan <- invokeResult{err: errors.New("capability exited without returning")}
			}
		}()

		value, err := desc.Invoke(callCtx, bound)
		completed = true
		resultChan <- invokeResult{value: value, err: err}
	}()

	select {
	case res := <-resultChan:
		return d.settle(ctx, callCtx, res)
	case <-callCtx.Done():
		// prefer a result that raced the deadline
		select {
		case res := <-resultChan:
			return d.settle(ctx, callCtx, res)
		default:
		}
		return cancelled(ctx)
	}
}

func (d *Dispatcher) settle(ctx, callCtx context.Context, res invokeResult) report.CallOutcome {
	if res.err != nil {
		if callCtx.Err() != nil && isContextError(res.err) {
			return cancelled(ctx)
		}
		return report.Failed(report.ExecutionFailed, res.err.Error())
	}

	outcome := report.Succeeded(res.value)
	outcome.Value, outcome.Truncated = truncate(res.value, d.maxOutputBytes)
	return outcome
}

// cancelled classifies a call stopped by a deadline. ctx is the dispatch
// context: if it is done the whole dispatch was cancelled, otherwise only
// the call's own timeout fired.
func cancelled(ctx context.Context) report.CallOutcome {
	if err := ctx.Err(); err != nil {
		return report.Failed(report.Cancelled, "dispatch cancelled: "+err.Error())
	}
	return report.Failed(report.Cancelled, "timeout")
}

func isContextError(err error) bool {
	return errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled)
}

// truncate cuts s to at most max bytes without splitting a UTF-8 sequence
func truncate(s string, max int) (string, bool) {
	if max <= 0 || len(s) <= max {
		return s, false
	}

	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut], true
}

// record writes the outcome to the metrics and audit sinks
func (d *Dispatcher) record(ctx context.Context, outcome report.CallOutcome, known, invoked bool) {
	name := outcome.QualifiedName()

	if d.metrics != nil {
		// unresolved names come from model output; keep them out of label values
		label := name
		if !known {
			label = "unknown"
		}
		d.metrics.ObserveCall(label, outcome.Status(), invoked, outcome.Duration)
	}

	metadata := map[string]any{
		"duration_ms": outcome.Duration.Milliseconds(),
		"invoked":     invoked,
	}
	if !outcome.Success {
		metadata["error"] = outcome.Detail
	}
	if outcome.Truncated {
		metadata["truncated"] = true
	}
	observability.RecordCallAudit(ctx, name, outcome.Status(), metadata)
}

func newCallID() string {
	id, err := gonanoid.New()
	if err != nil {
		return tracing.NewRunID()
	}
	return id
}
