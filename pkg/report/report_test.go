package report

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleOutcomes() []CallOutcome {
	first := Failed(UnknownCapability, "unknown.fn")
	first.Namespace, first.Function = "unknown", "fn"

	second := Succeeded("2026-10-15T09:30:00Z")
	second.Namespace, second.Function = "time", "get_time"

	third := Failed(InvalidArguments, "missing required argument: days")
	third.Namespace, third.Function = "time", "add_days"

	return []CallOutcome{first, second, third}
}

func TestAggregate_PreservesOrder(t *testing.T) {
	outcomes := sampleOutcomes()

	r := Aggregate("run-1", outcomes)

	require.Equal(t, 3, r.Len())
	assert.Equal(t, "run-1", r.RunID)
	assert.Equal(t, "unknown.fn", r.Outcomes[0].QualifiedName())
	assert.Equal(t, "time.get_time", r.Outcomes[1].QualifiedName())
	assert.Equal(t, "time.add_days", r.Outcomes[2].QualifiedName())
}

func TestAggregate_CopiesInput(t *testing.T) {
	outcomes := sampleOutcomes()

	r := Aggregate("", outcomes)
	outcomes[0] = Succeeded("mutated")

	assert.False(t, r.Outcomes[0].Success)
}

func TestAggregate_Empty(t *testing.T) {
	r := Aggregate("", nil)

	assert.Equal(t, 0, r.Len())
	assert.NotNil(t, r.Outcomes)
	assert.True(t, r.AllSucceeded())
	assert.Empty(t, r.Failures())
}

func TestExecutionReport_Queries(t *testing.T) {
	r := Aggregate("", sampleOutcomes())

	assert.False(t, r.AllSucceeded())
	assert.Len(t, r.Failures(), 2)
	assert.Equal(t, map[string]int{
		"ok":                 1,
		"unknown_capability": 1,
		"invalid_arguments":  1,
	}, r.CountByStatus())
}

func TestCallOutcome_Err(t *testing.T) {
	assert.NoError(t, Succeeded("x").Err())

	err := Failed(Cancelled, "timeout").Err()
	require.Error(t, err)
	assert.Equal(t, "cancelled: timeout", err.Error())

	var outcomeErr *OutcomeError
	require.ErrorAs(t, err, &outcomeErr)
	assert.Equal(t, Cancelled, outcomeErr.Kind)
}

func TestTextFormatter(t *testing.T) {
	r := Aggregate("", sampleOutcomes())
	r.Outcomes[1].Truncated = true

	text, err := TextFormatter{}.Format(r)
	require.NoError(t, err)

	assert.Equal(t,
		"[1] unknown.fn failed (unknown_capability): unknown.fn\n"+
			"[2] time.get_time succeeded: 2026-10-15T09:30:00Z [output truncated]\n"+
			"[3] time.add_days failed (invalid_arguments): missing required argument: days",
		text)
}

func TestTextFormatter_Empty(t *testing.T) {
	text, err := TextFormatter{}.Format(ExecutionReport{})
	require.NoError(t, err)
	assert.Equal(t, "No tools were called.", text)
}

func TestJSONFormatter(t *testing.T) {
	r := Aggregate("run-42", sampleOutcomes())

	for _, indent := range []bool{false, true} {
		out, err := JSONFormatter{Indent: indent}.Format(r)
		require.NoError(t, err)

		var decoded struct {
			RunID    string `json:"run_id"`
			Outcomes []struct {
				PluginName string `json:"plugin_name"`
				Success    bool   `json:"success"`
				Value      string `json:"value"`
				ErrorKind  string `json:"error_kind"`
			} `json:"outcomes"`
		}
		require.NoError(t, json.Unmarshal([]byte(out), &decoded))
		assert.Equal(t, "run-42", decoded.RunID)
		require.Len(t, decoded.Outcomes, 3)
		assert.Equal(t, "unknown_capability", decoded.Outcomes[0].ErrorKind)
		assert.True(t, decoded.Outcomes[1].Success)
		assert.Equal(t, "time", decoded.Outcomes[1].PluginName)
	}
}

func TestJSONFormatter_EmptyReportHasArray(t *testing.T) {
	out, err := JSONFormatter{}.Format(ExecutionReport{})
	require.NoError(t, err)
	assert.JSONEq(t, `{"outcomes":[]}`, out)
}

func TestFormatterInterface(t *testing.T) {
	var formatters = []Formatter{TextFormatter{}, JSONFormatter{}}
	for _, f := range formatters {
		_, err := f.Format(Aggregate("", sampleOutcomes()))
		assert.NoError(t, err)
	}
}
