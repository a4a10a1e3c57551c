package domain

import "time"

// AggregateResults combines per-case results into a SuiteResult. It is a
// pure function: the input slice order (declared configuration order) is
// preserved, counts are derived from case status, and the overall average
// is the mean of Score.Average over scored cases only. Errored cases are
// excluded from the average rather than treated as zero.
func AggregateResults(cases []CaseResult, duration time.Duration) SuiteResult {
	suite := SuiteResult{
		Cases:    cases,
		Total:    len(cases),
		Duration: duration,
	}

	var sum float64
	var scored int
	for _, cr := range cases {
		switch cr.Status {
		case StatusPassed:
			suite.Passed++
		case StatusFailed:
			suite.Failed++
		case StatusError:
			suite.Errored++
		}
		if cr.Score != nil {
			sum += cr.Score.Average
			scored++
		}
	}
	if scored > 0 {
		suite.OverallAverage = sum / float64(scored)
	}

	return suite
}
