package report

// ExecutionReport is the ordered list of outcomes for one dispatched plan.
// Outcomes[i] belongs to the i-th planned call.
type ExecutionReport struct {
	RunID    string        `json:"run_id,omitempty"`
	Outcomes []CallOutcome `json:"outcomes"`
}

// Aggregate packages outcomes into a report. The slice is copied and its
// order preserved.
func Aggregate(runID string, outcomes []CallOutcome) ExecutionReport {
	out := make([]CallOutcome, len(outcomes))
	copy(out, outcomes)
	return ExecutionReport{RunID: runID, Outcomes: out}
}

// Len returns the number of outcomes.
func (r ExecutionReport) Len() int {
	return len(r.Outcomes)
}

// AllSucceeded reports whether every call succeeded. An empty report has
// nothing that failed.
func (r ExecutionReport) AllSucceeded() bool {
	for _, o := range r.Outcomes {
		if !o.Success {
			return false
		}
	}
	return true
}

// Failures returns the failed outcomes in report order.
func (r ExecutionReport) Failures() []CallOutcome {
	var failed []CallOutcome
	for _, o := range r.Outcomes {
		if !o.Success {
			failed = append(failed, o)
		}
	}
	return failed
}

// CountByStatus tallies outcomes by Status.
func (r ExecutionReport) CountByStatus() map[string]int {
	counts := make(map[string]int)
	for _, o := range r.Outcomes {
		counts[o.Status()]++
	}
	return counts
}
