package application

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"text/template"

	"github.com/akshay5995/mcpevals/infrastructure/llm"
	"github.com/akshay5995/mcpevals/internal/domain"
	"github.com/akshay5995/mcpevals/internal/ports"
)

// judgePromptTemplate asks the judge model for a strict JSON rubric score
// over the rendered transcript.
const judgePromptTemplate = `You are evaluating how well an MCP server performed across a conversation.

Conversation transcript:
{{.Transcript}}
{{- if .ExpectedTools}}

Expected tools: {{join .ExpectedTools ", "}}
Actual tools used: {{if .ActualTools}}{{join .ActualTools ", "}}{{else}}None{{end}}
{{- end}}
{{- if .ExpectedResult}}

Expected Outcome: {{.ExpectedResult}}
{{- end}}

Please evaluate the server's performance on the following criteria, scoring each from 1-5:

1. **Accuracy** (1-5): How accurate was the information provided across all turns?
2. **Completeness** (1-5): Did the server fully address all user requests in the conversation?
3. **Relevance** (1-5): Were the responses relevant to the conversation flow?
4. **Clarity** (1-5): Were the responses clear and easy to understand throughout?
5. **Reasoning** (1-5): Did the server show good reasoning and appropriate tool usage?

Consider:
- Tool usage appropriateness and effectiveness
- Conversation flow and coherence
- Achievement of the overall objective
- Handling of multi-step scenarios

Provide your evaluation in the following JSON format:
{
    "accuracy": <score>,
    "completeness": <score>,
    "relevance": <score>,
    "clarity": <score>,
    "reasoning": <score>,
    "overall_comments": "<brief summary of strengths and weaknesses>"
}

Only respond with the JSON object, no additional text.`

var judgeTemplate = template.Must(
	template.New("judge").
		Funcs(template.FuncMap{"join": strings.Join}).
		Parse(judgePromptTemplate),
)

// judgeResponse is the wire shape of the judge model's JSON reply. The
// average is never read from the response; it is recomputed from the
// dimensions.
type judgeResponse struct {
	Accuracy     float64 `json:"accuracy" validate:"required,min=1,max=5"`
	Completeness float64 `json:"completeness" validate:"required,min=1,max=5"`
	Relevance    float64 `json:"relevance" validate:"required,min=1,max=5"`
	Clarity      float64 `json:"clarity" validate:"required,min=1,max=5"`
	Reasoning    float64 `json:"reasoning" validate:"required,min=1,max=5"`
	Comments     string  `json:"overall_comments"`
}

// Judge scores transcripts against the five-dimension rubric using an
// LLM.
type Judge struct {
	llm    ports.LLMClient
	logger *slog.Logger
}

// NewJudge creates a judge over the given model client.
func NewJudge(client ports.LLMClient, logger *slog.Logger) *Judge {
	if logger == nil {
		logger = slog.Default()
	}
	return &Judge{llm: client, logger: logger}
}

// Score evaluates a completed transcript. Transport failures wrap
// domain.ErrJudgeUnavailable; malformed or out-of-range judge output
// wraps domain.ErrJudgeParse. Out-of-range dimension values are rejected,
// never clamped.
func (j *Judge) Score(ctx context.Context, c domain.EvaluationCase, transcript domain.Transcript) (domain.Score, error) {
	prompt, err := j.buildPrompt(c, transcript)
	if err != nil {
		return domain.Score{}, err
	}

	raw, err := j.llm.Complete(ctx, prompt, map[string]any{
		llm.OptionTemperature:  0.0,
		llm.OptionJSONResponse: true,
	})
	if err != nil {
		return domain.Score{}, fmt.Errorf("%w: %v", domain.ErrJudgeUnavailable, err)
	}

	return j.parseScore(raw)
}

func (j *Judge) buildPrompt(c domain.EvaluationCase, transcript domain.Transcript) (string, error) {
	data := struct {
		Transcript     string
		ExpectedTools  []string
		ActualTools    []string
		ExpectedResult string
	}{
		Transcript:     transcript.Render(),
		ExpectedTools:  c.AllExpectedTools(),
		ActualTools:    transcript.ToolsUsed(),
		ExpectedResult: c.ExpectedResult,
	}

	var sb strings.Builder
	if err := judgeTemplate.Execute(&sb, data); err != nil {
		return "", fmt.Errorf("failed to render judge prompt: %w", err)
	}
	return sb.String(), nil
}

func (j *Judge) parseScore(raw string) (domain.Score, error) {
	jsonText, err := extractJSON(raw)
	if err != nil {
		return domain.Score{}, fmt.Errorf("%w: %v", domain.ErrJudgeParse, err)
	}

	var resp judgeResponse
	if err := json.Unmarshal([]byte(jsonText), &resp); err != nil {
		return domain.Score{}, fmt.Errorf("%w: invalid JSON: %v", domain.ErrJudgeParse, err)
	}
	if err := validate.Struct(resp); err != nil {
		return domain.Score{}, fmt.Errorf("%w: %v", domain.ErrJudgeParse, err)
	}

	score, err := domain.NewScore(
		resp.Accuracy, resp.Completeness, resp.Relevance, resp.Clarity, resp.Reasoning,
		resp.Comments,
	)
	if err != nil {
		return domain.Score{}, fmt.Errorf("%w: %v", domain.ErrJudgeParse, err)
	}
	return score, nil
}

// extractJSON pulls a JSON object out of a model response that may wrap
// it in markdown fences or surrounding prose.
func extractJSON(response string) (string, error) {
	response = strings.TrimSpace(response)

	if idx := strings.Index(response, "```json"); idx != -1 {
		response = response[idx+len("```json"):]
		if end := strings.Index(response, "```"); end != -1 {
			response = response[:end]
		}
		response = strings.TrimSpace(response)
	} else if idx := strings.Index(response, "```"); idx != -1 {
		response = response[idx+len("```"):]
		if end := strings.Index(response, "```"); end != -1 {
			response = response[:end]
		}
		response = strings.TrimSpace(response)
	}

	start := strings.Index(response, "{")
	if start == -1 {
		return "", fmt.Errorf("no JSON object found in response")
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(response); i++ {
		ch := response[i]
		switch {
		case escaped:
			escaped = false
		case ch == '\\' && inString:
			escaped = true
		case ch == '"':
			inString = !inString
		case !inString && ch == '{':
			depth++
		case !inString && ch == '}':
			depth--
			if depth == 0 {
				return response[start : i+1], nil
			}
		}
	}
	return "", fmt.Errorf("unbalanced JSON object in response")
}
