package report

import (
	"bytes"
	"encoding/json"
	"encoding/xml"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akshay5995/mcpevals/internal/domain"
)

func sampleSuite(t *testing.T) domain.SuiteResult {
	t.Helper()

	goodScore, err := domain.NewScore(4, 4, 5, 4, 4, "Handled everything well.")
	require.NoError(t, err)
	badScore, err := domain.NewScore(2, 3, 2, 3, 2, "Called the wrong tool.")
	require.NoError(t, err)

	goodTr := domain.NewTranscript("good_case")
	goodTr.AppendMessage("user", "Add 15 and 27.")
	goodTr.AppendInvocation(domain.ToolInvocation{Name: "add", Arguments: map[string]any{"a": 15, "b": 27}, Output: "42", Latency: 5 * time.Millisecond})
	goodTr.AppendMessage("assistant", "The answer is 42.")

	badTr := domain.NewTranscript("bad_case")
	badTr.AppendMessage("user", "Multiply 2 by 3.")
	badTr.AppendInvocation(domain.ToolInvocation{Name: "multply", Output: "6", Latency: 2 * time.Millisecond})
	badTr.AppendMessage("assistant", "It is 6.")

	good := domain.NewScoredResult(domain.EvaluationCase{Name: "good_case", Prompt: "p"}, goodTr, goodScore, time.Second)
	bad := domain.NewScoredResult(domain.EvaluationCase{Name: "bad_case", Prompt: "p"}, badTr, badScore, 2*time.Second)
	errored := domain.NewErrorResult(domain.EvaluationCase{Name: "broken_case", Prompt: "p"}, domain.NewTranscript("broken_case"), time.Second, assert.AnError)

	return domain.AggregateResults([]domain.CaseResult{good, bad, errored}, 4*time.Second)
}

func TestTableWriter(t *testing.T) {
	suite := sampleSuite(t)
	writer := TableWriter{ExpectedTools: map[string][]string{
		"good_case": {"add"},
		"bad_case":  {"multiply"},
	}}

	var buf bytes.Buffer
	require.NoError(t, writer.Write(&buf, suite))
	out := buf.String()

	assert.Contains(t, out, "good_case")
	assert.Contains(t, out, "PASS")
	assert.Contains(t, out, "FAIL")
	assert.Contains(t, out, "ERROR")
	// Dimension headers are title-cased.
	assert.Contains(t, out, "Accuracy")
	assert.Contains(t, out, "Reasoning")
	assert.Contains(t, out, "1/3 passed, 1 errored")
	// The judge comment surfaces for failed cases.
	assert.Contains(t, out, "Called the wrong tool.")
}

func TestTableWriterNearMissHint(t *testing.T) {
	suite := sampleSuite(t)
	writer := TableWriter{ExpectedTools: map[string][]string{
		"bad_case": {"multiply"},
	}}

	var buf bytes.Buffer
	require.NoError(t, writer.Write(&buf, suite))
	out := buf.String()

	// "multply" is one edit away from "multiply".
	assert.Contains(t, out, `expected tool "multiply" was not called`)
	assert.Contains(t, out, `did you mean "multply"?`)
}

func TestTableWriterNoHintWhenToolUsed(t *testing.T) {
	suite := sampleSuite(t)
	writer := TableWriter{ExpectedTools: map[string][]string{
		"good_case": {"add"},
	}}

	var buf bytes.Buffer
	require.NoError(t, writer.Write(&buf, suite))
	assert.NotContains(t, buf.String(), `expected tool "add"`)
}

func TestJSONWriter(t *testing.T) {
	suite := sampleSuite(t)

	var buf bytes.Buffer
	require.NoError(t, JSONWriter{}.Write(&buf, suite))

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))

	assert.Equal(t, float64(3), decoded["total"])
	assert.Equal(t, float64(1), decoded["passed"])
	assert.Equal(t, float64(1), decoded["errored"])

	cases, ok := decoded["cases"].([]any)
	require.True(t, ok)
	require.Len(t, cases, 3)

	first, ok := cases[0].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "good_case", first["name"])
	assert.Equal(t, "passed", first["status"])
	assert.Equal(t, "The answer is 42.", first["final_response"])

	score, ok := first["score"].(map[string]any)
	require.True(t, ok)
	assert.InDelta(t, 4.2, score["average"].(float64), 1e-9)

	third, ok := cases[2].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "error", third["status"])
	assert.Nil(t, third["score"])
}

func TestJUnitWriter(t *testing.T) {
	suite := sampleSuite(t)

	var buf bytes.Buffer
	require.NoError(t, JUnitWriter{}.Write(&buf, suite))
	out := buf.String()

	assert.Contains(t, out, xml.Header)
	assert.Contains(t, out, `tests="3"`)
	assert.Contains(t, out, `failures="1"`)
	assert.Contains(t, out, `errors="1"`)
	assert.Contains(t, out, `name="good_case"`)
	// Scored-below-threshold and infrastructure failures are distinct.
	assert.Contains(t, out, "<failure")
	assert.Contains(t, out, "<error")
	assert.Contains(t, out, "score 2.40 below threshold")

	var decoded struct {
		Cases []struct {
			Name    string `xml:"name,attr"`
			Failure *struct {
				Message string `xml:"message,attr"`
			} `xml:"failure"`
			Error *struct {
				Message string `xml:"message,attr"`
			} `xml:"error"`
		} `xml:"testcase"`
	}
	require.NoError(t, xml.Unmarshal(buf.Bytes(), &decoded))
	require.Len(t, decoded.Cases, 3)
	assert.Nil(t, decoded.Cases[0].Failure)
	assert.NotNil(t, decoded.Cases[1].Failure)
	assert.NotNil(t, decoded.Cases[2].Error)
}
