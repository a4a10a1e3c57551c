package domain

import "time"

// CaseStatus classifies the outcome of one executed case.
type CaseStatus string

const (
	// StatusPassed means the case was scored and met its threshold.
	StatusPassed CaseStatus = "passed"
	// StatusFailed means the case was scored but fell below its threshold.
	StatusFailed CaseStatus = "failed"
	// StatusError means execution or judging failed; the case carries no
	// trustworthy score and is excluded from suite averages.
	StatusError CaseStatus = "error"
)

// CaseResult is the immutable outcome of one evaluation case run.
// Score is nil when Status is StatusError. Errors holds the execution
// error descriptions (tool loop exceeded, judge failure, timeout) that
// produced an error status; embedded tool failures live in the transcript
// instead.
type CaseResult struct {
	CaseName   string
	Transcript Transcript
	Score      *Score
	Passed     bool
	Status     CaseStatus
	Duration   time.Duration
	Errors     []string
}

// NewScoredResult builds the result for a case that reached a Score,
// deriving pass/fail from the case threshold.
func NewScoredResult(c EvaluationCase, transcript Transcript, score Score, duration time.Duration) CaseResult {
	passed := score.Average >= c.EffectiveThreshold()
	status := StatusFailed
	if passed {
		status = StatusPassed
	}
	return CaseResult{
		CaseName:   c.Name,
		Transcript: transcript,
		Score:      &score,
		Passed:     passed,
		Status:     status,
		Duration:   duration,
	}
}

// NewErrorResult builds the result for a case whose execution or judging
// failed. The partial transcript captured before the failure is preserved.
func NewErrorResult(c EvaluationCase, transcript Transcript, duration time.Duration, errs ...error) CaseResult {
	msgs := make([]string, 0, len(errs))
	for _, err := range errs {
		if err != nil {
			msgs = append(msgs, err.Error())
		}
	}
	return CaseResult{
		CaseName:   c.Name,
		Transcript: transcript,
		Status:     StatusError,
		Duration:   duration,
		Errors:     msgs,
	}
}

// SuiteResult combines every CaseResult of one run, in declared
// configuration order regardless of execution order.
type SuiteResult struct {
	Cases          []CaseResult
	Total          int
	Passed         int
	Failed         int
	Errored        int
	OverallAverage float64
	Duration       time.Duration
}

// AllGreen reports whether the suite had no failed and no errored cases.
func (s SuiteResult) AllGreen() bool { return s.Failed == 0 && s.Errored == 0 }
