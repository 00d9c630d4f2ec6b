package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harun/toolplan/internal/config"
	"github.com/harun/toolplan/internal/metrics"
	"github.com/harun/toolplan/internal/observability"
	"github.com/harun/toolplan/pkg/capabilities/clock"
	"github.com/harun/toolplan/pkg/capability"
	"github.com/harun/toolplan/pkg/plan"
	"github.com/harun/toolplan/pkg/report"
)

var fixed = time.Date(2026, 10, 15, 9, 30, 0, 0, time.UTC)

func newEngine(t *testing.T, m *metrics.Metrics) *Engine {
	t.Helper()
	reg := capability.NewRegistry()
	require.NoError(t, clock.Register(reg, clock.Options{
		Now:      func() time.Time { return fixed },
		Location: time.UTC,
	}))
	reg.Seal()

	e, err := New(reg, Options{Metrics: m})
	require.NoError(t, err)
	return e
}

func TestNew_RequiresSealedRegistry(t *testing.T) {
	_, err := New(capability.NewRegistry(), Options{})
	assert.ErrorIs(t, err, ErrRegistryNotSealed)

	_, err = New(nil, Options{})
	assert.Error(t, err)
}

func TestRun_EmptyInput(t *testing.T) {
	m := metrics.NewMetrics()
	e := newEngine(t, m)

	rep, err := e.Run(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, 0, rep.Len())
	assert.Equal(t, 1.0, testutil.ToFloat64(m.PlansParsedTotal.WithLabelValues("empty")))

	rep, err = e.RunOptional(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 0, rep.Len())
}

func TestRun_GetTime(t *testing.T) {
	e := newEngine(t, nil)

	rep, err := e.Run(context.Background(),
		`{"tool_calls":[{"plugin_name":"time","function_name":"get_time","arguments":{}}]}`)
	require.NoError(t, err)

	require.Equal(t, 1, rep.Len())
	assert.True(t, rep.Outcomes[0].Success)
	assert.Equal(t, "2026-10-15T09:30:00Z", rep.Outcomes[0].Value)
}

func TestRun_Malformed(t *testing.T) {
	m := metrics.NewMetrics()
	e := newEngine(t, m)

	rep, err := e.Run(context.Background(), "{not valid")
	require.Error(t, err)
	assert.True(t, errors.Is(err, plan.ErrMalformed))
	assert.Equal(t, 0, rep.Len())
	assert.NotNil(t, rep.Outcomes)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.PlansParsedTotal.WithLabelValues("malformed")))
}

func TestRun_UnknownThenKnown(t *testing.T) {
	m := metrics.NewMetrics()
	e := newEngine(t, m)

	rep, err := e.Run(context.Background(), `{"tool_calls":[
		{"plugin_name":"unknown","function_name":"fn","arguments":{}},
		{"plugin_name":"time","function_name":"get_time","arguments":{"utc":"true"}}
	]}`)
	require.NoError(t, err)

	require.Equal(t, 2, rep.Len())
	assert.Equal(t, report.UnknownCapability, rep.Outcomes[0].Kind)
	assert.True(t, rep.Outcomes[1].Success)
	assert.Equal(t, "2026-10-15T09:30:00Z", rep.Outcomes[1].Value)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.PlansParsedTotal.WithLabelValues("ok")))
}

func TestRun_AddDaysMissingArgument(t *testing.T) {
	e := newEngine(t, nil)

	rep, err := e.Run(context.Background(), `{"tool_calls":[
		{"plugin_name":"time","function_name":"add_days","arguments":{"date":"2026-10-15"}},
		{"plugin_name":"time","function_name":"add_days","arguments":{"date":"2026-10-15","days":3}}
	]}`)
	require.NoError(t, err)

	assert.Equal(t, report.InvalidArguments, rep.Outcomes[0].Kind)
	assert.Equal(t, "missing required argument: days", rep.Outcomes[0].Detail)
	assert.Equal(t, "2026-10-18T00:00:00Z", rep.Outcomes[1].Value)
}

func TestRun_WritesAuditTrail(t *testing.T) {
	var buf bytes.Buffer
	observability.SetAuditLogger(observability.NewAuditLogger(&buf))
	t.Cleanup(func() { observability.SetAuditLogger(observability.NewAuditLogger(io.Discard)) })

	e := newEngine(t, nil)
	_, err := e.Run(context.Background(),
		`{"tool_calls":[{"plugin_name":"time","function_name":"get_time"}]}`)
	require.NoError(t, err)

	var types []string
	dec := json.NewDecoder(&buf)
	for dec.More() {
		var event map[string]any
		require.NoError(t, dec.Decode(&event))
		types = append(types, event["type"].(string))
	}
	assert.Equal(t, []string{"plan", "call"}, types)
}

func TestNewFromConfig(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Capabilities.Disabled = []string{"time.get_time"}
	cfg.Parser.EmbeddedPlan = true

	e, err := NewFromConfig(cfg, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, e.Registry().Len())

	rep, err := e.Run(context.Background(),
		"Checking now: {\"tool_calls\":[{\"plugin_name\":\"time\",\"function_name\":\"get_time\"}]}")
	require.NoError(t, err)
	require.Equal(t, 1, rep.Len())
	assert.Equal(t, report.UnknownCapability, rep.Outcomes[0].Kind)
}
