package report

import (
	"encoding/json"
	"io"

	"github.com/akshay5995/mcpevals/internal/domain"
)

// jsonSuite is the machine-readable result shape.
type jsonSuite struct {
	Total          int        `json:"total"`
	Passed         int        `json:"passed"`
	Failed         int        `json:"failed"`
	Errored        int        `json:"errored"`
	OverallAverage float64    `json:"overall_average"`
	DurationMS     int64      `json:"duration_ms"`
	Cases          []jsonCase `json:"cases"`
}

type jsonCase struct {
	Name            string         `json:"name"`
	Status          string         `json:"status"`
	Passed          bool           `json:"passed"`
	Score           *domain.Score  `json:"score,omitempty"`
	ToolsUsed       []string       `json:"tools_used"`
	FailedToolCalls int            `json:"failed_tool_calls"`
	ToolLatencyMS   int64          `json:"tool_latency_ms"`
	FinalResponse   string         `json:"final_response,omitempty"`
	Errors          []string       `json:"errors,omitempty"`
	DurationMS      int64          `json:"duration_ms"`
	Invocations     []jsonToolCall `json:"tool_calls,omitempty"`
}

type jsonToolCall struct {
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments,omitempty"`
	Output    string         `json:"output,omitempty"`
	Error     string         `json:"error,omitempty"`
	LatencyMS int64          `json:"latency_ms"`
}

// JSONWriter renders suite results as indented JSON.
type JSONWriter struct{}

// Write renders the suite to w.
func (JSONWriter) Write(w io.Writer, suite domain.SuiteResult) error {
	out := jsonSuite{
		Total:          suite.Total,
		Passed:         suite.Passed,
		Failed:         suite.Failed,
		Errored:        suite.Errored,
		OverallAverage: suite.OverallAverage,
		DurationMS:     suite.Duration.Milliseconds(),
		Cases:          make([]jsonCase, 0, len(suite.Cases)),
	}

	for _, cr := range suite.Cases {
		jc := jsonCase{
			Name:            cr.CaseName,
			Status:          string(cr.Status),
			Passed:          cr.Passed,
			Score:           cr.Score,
			ToolsUsed:       cr.Transcript.ToolsUsed(),
			FailedToolCalls: cr.Transcript.FailedToolCalls(),
			ToolLatencyMS:   cr.Transcript.ToolLatencyTotal().Milliseconds(),
			FinalResponse:   cr.Transcript.FinalResponse(),
			Errors:          cr.Errors,
			DurationMS:      cr.Duration.Milliseconds(),
		}
		for _, ev := range cr.Transcript.Events {
			if ev.Invocation == nil {
				continue
			}
			jc.Invocations = append(jc.Invocations, jsonToolCall{
				Name:      ev.Invocation.Name,
				Arguments: ev.Invocation.Arguments,
				Output:    ev.Invocation.Output,
				Error:     ev.Invocation.Error,
				LatencyMS: ev.Invocation.Latency.Milliseconds(),
			})
		}
		out.Cases = append(out.Cases, jc)
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
