package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"google.golang.org/api/googleapi"
	"google.golang.org/genai"

	"github.com/akshay5995/mcpevals/internal/ports"
)

func init() {
	RegisterProviderFactory("google", func(config ClientConfig) (CoreLLM, error) {
		return NewGoogleProvider(context.Background(), config)
	})
}

// GoogleProvider implements CoreLLM over the Gemini API with function
// declarations.
type GoogleProvider struct {
	client     *genai.Client
	model      string
	classifier *ErrorClassifier
}

// NewGoogleProvider creates a Gemini provider from client configuration.
func NewGoogleProvider(ctx context.Context, config ClientConfig) (*GoogleProvider, error) {
	if config.APIKey == "" {
		return nil, ErrEmptyAPIKey
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  config.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	return &GoogleProvider{
		client:     client,
		model:      config.Model,
		classifier: &ErrorClassifier{Provider: "google"},
	}, nil
}

// DoChat sends the conversation and tool catalog to the Gemini API and
// normalizes the first candidate.
func (p *GoogleProvider) DoChat(ctx context.Context, req ChatRequest) (ports.ChatResponse, error) {
	genConfig := &genai.GenerateContentConfig{
		Tools: toGenaiTools(req.Tools),
	}

	if temp, ok := ExtractOptionalFloat(req.Options, OptionTemperature); ok {
		genConfig.Temperature = genai.Ptr(float32(temp))
	}
	if maxTokens, ok := ExtractOptionalInt(req.Options, OptionMaxTokens); ok {
		genConfig.MaxOutputTokens = int32(maxTokens)
	}
	if jsonResp, ok := ExtractOptionalBool(req.Options, OptionJSONResponse); ok && jsonResp {
		genConfig.ResponseMIMEType = "application/json"
	}

	contents, system := toGenaiContents(req.Messages)
	if system != "" {
		genConfig.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{{Text: system}},
		}
	}

	resp, err := p.client.Models.GenerateContent(ctx, p.model, contents, genConfig)
	if err != nil {
		return ports.ChatResponse{}, p.classifyError(err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ports.ChatResponse{}, NewProviderError("google", ErrorTypeUnknown, 0, "", ErrNoResponseChoice)
	}

	var out ports.ChatResponse
	if resp.UsageMetadata != nil {
		out.TokensIn = int(resp.UsageMetadata.PromptTokenCount)
		out.TokensOut = int(resp.UsageMetadata.CandidatesTokenCount)
	}
	for _, part := range resp.Candidates[0].Content.Parts {
		if part.Text != "" {
			out.Content += part.Text
		}
		if part.FunctionCall != nil {
			args, err := json.Marshal(part.FunctionCall.Args)
			if err != nil {
				return ports.ChatResponse{}, fmt.Errorf("failed to encode function call args: %w", err)
			}
			// Gemini omits call IDs, so the tool name stands in. The
			// function response path relies on this to name the result.
			id := part.FunctionCall.ID
			if id == "" {
				id = part.FunctionCall.Name
			}
			out.ToolCalls = append(out.ToolCalls, ports.ToolCall{
				ID:        id,
				Name:      part.FunctionCall.Name,
				Arguments: args,
			})
		}
	}
	return out, nil
}

// GetModel returns the configured model name.
func (p *GoogleProvider) GetModel() string { return p.model }

// SetModel switches the model for subsequent requests.
func (p *GoogleProvider) SetModel(model string) { p.model = model }

func (p *GoogleProvider) classifyError(err error) error {
	if isContextError(err) {
		return p.classifier.ClassifyContextError(err)
	}
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		return p.classifier.ClassifyHTTPError(apiErr.Code, apiErr.Message, err)
	}
	return NewProviderError("google", ErrorTypeNetwork, 0, "request failed", err)
}

// toGenaiContents converts portable messages to Gemini contents. System
// messages are hoisted into the system instruction; tool results become
// user-role function responses.
func toGenaiContents(messages []ports.ChatMessage) ([]*genai.Content, string) {
	var system string
	out := make([]*genai.Content, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case "system":
			if system != "" {
				system += "\n\n"
			}
			system += m.Content
		case "assistant":
			parts := make([]*genai.Part, 0, 1+len(m.ToolCalls))
			if m.Content != "" {
				parts = append(parts, &genai.Part{Text: m.Content})
			}
			for _, tc := range m.ToolCalls {
				var args map[string]any
				if len(tc.Arguments) > 0 {
					_ = json.Unmarshal(tc.Arguments, &args)
				}
				parts = append(parts, &genai.Part{
					FunctionCall: &genai.FunctionCall{Name: tc.Name, Args: args},
				})
			}
			out = append(out, &genai.Content{Role: genai.RoleModel, Parts: parts})
		case "tool":
			out = append(out, &genai.Content{
				Role: genai.RoleUser,
				Parts: []*genai.Part{{
					FunctionResponse: &genai.FunctionResponse{
						Name:     m.ToolCallID,
						Response: map[string]any{"result": m.Content},
					},
				}},
			})
		default:
			out = append(out, &genai.Content{
				Role:  genai.RoleUser,
				Parts: []*genai.Part{{Text: m.Content}},
			})
		}
	}
	return out, system
}

func toGenaiTools(tools []ports.ToolSpec) []*genai.Tool {
	if len(tools) == 0 {
		return nil
	}
	declarations := make([]*genai.FunctionDeclaration, 0, len(tools))
	for _, t := range tools {
		declarations = append(declarations, &genai.FunctionDeclaration{
			Name:                 t.Name,
			Description:          t.Description,
			ParametersJsonSchema: t.InputSchema,
		})
	}
	return []*genai.Tool{{FunctionDeclarations: declarations}}
}
