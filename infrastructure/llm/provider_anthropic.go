package llm

import (
	"context"
	"errors"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/anthropics/anthropic-sdk-go/shared/constant"

	"github.com/akshay5995/mcpevals/internal/ports"
)

func init() {
	RegisterProviderFactory("anthropic", func(config ClientConfig) (CoreLLM, error) {
		return NewAnthropicProvider(config)
	})
}

// defaultAnthropicMaxTokens bounds responses when the caller sets no limit.
// The Messages API requires an explicit max_tokens.
const defaultAnthropicMaxTokens = 4096

// AnthropicProvider implements CoreLLM over the Anthropic Messages API
// with tool use blocks.
type AnthropicProvider struct {
	client     anthropic.Client
	model      string
	classifier *ErrorClassifier
}

// NewAnthropicProvider creates an Anthropic provider from client
// configuration.
func NewAnthropicProvider(config ClientConfig) (*AnthropicProvider, error) {
	if config.APIKey == "" {
		return nil, ErrEmptyAPIKey
	}

	opts := []option.RequestOption{option.WithAPIKey(config.APIKey)}
	if config.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(config.BaseURL))
	}

	return &AnthropicProvider{
		client:     anthropic.NewClient(opts...),
		model:      config.Model,
		classifier: &ErrorClassifier{Provider: "anthropic"},
	}, nil
}

// DoChat sends the conversation and tool catalog to the Messages API and
// normalizes the returned content blocks.
func (p *AnthropicProvider) DoChat(ctx context.Context, req ChatRequest) (ports.ChatResponse, error) {
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(p.model),
		MaxTokens: defaultAnthropicMaxTokens,
		Tools:     toAnthropicTools(req.Tools),
	}

	if temp, ok := ExtractOptionalFloat(req.Options, OptionTemperature); ok {
		params.Temperature = anthropic.Float(temp)
	}
	if maxTokens, ok := ExtractOptionalInt(req.Options, OptionMaxTokens); ok {
		params.MaxTokens = int64(maxTokens)
	}

	messages, system := toAnthropicMessages(req.Messages)
	params.Messages = messages
	if system != "" {
		params.System = []anthropic.TextBlockParam{{Text: system}}
	}

	message, err := p.client.Messages.New(ctx, params)
	if err != nil {
		return ports.ChatResponse{}, p.classifyError(err)
	}

	out := ports.ChatResponse{
		TokensIn:  int(message.Usage.InputTokens),
		TokensOut: int(message.Usage.OutputTokens),
	}
	for _, block := range message.Content {
		switch block.Type {
		case "text":
			out.Content += block.AsText().Text
		case "tool_use":
			use := block.AsToolUse()
			out.ToolCalls = append(out.ToolCalls, ports.ToolCall{
				ID:        use.ID,
				Name:      use.Name,
				Arguments: use.Input,
			})
		}
	}
	return out, nil
}

// GetModel returns the configured model name.
func (p *AnthropicProvider) GetModel() string { return p.model }

// SetModel switches the model for subsequent requests.
func (p *AnthropicProvider) SetModel(model string) { p.model = model }

func (p *AnthropicProvider) classifyError(err error) error {
	if isContextError(err) {
		return p.classifier.ClassifyContextError(err)
	}
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		return p.classifier.ClassifyHTTPError(apiErr.StatusCode, apiErr.Error(), err)
	}
	return NewProviderError("anthropic", ErrorTypeNetwork, 0, "request failed", err)
}

// toAnthropicMessages converts portable messages into Messages API params.
// System messages are hoisted out because the API carries them as a
// top-level field; tool results become user messages with tool_result
// blocks, matching the API's turn structure.
func toAnthropicMessages(messages []ports.ChatMessage) ([]anthropic.MessageParam, string) {
	var system string
	out := make([]anthropic.MessageParam, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case "system":
			if system != "" {
				system += "\n\n"
			}
			system += m.Content
		case "assistant":
			blocks := make([]anthropic.ContentBlockParamUnion, 0, 1+len(m.ToolCalls))
			if m.Content != "" {
				blocks = append(blocks, anthropic.NewTextBlock(m.Content))
			}
			for _, tc := range m.ToolCalls {
				blocks = append(blocks, anthropic.NewToolUseBlock(tc.ID, tc.Arguments, tc.Name))
			}
			out = append(out, anthropic.NewAssistantMessage(blocks...))
		case "tool":
			out = append(out, anthropic.NewUserMessage(
				anthropic.NewToolResultBlock(m.ToolCallID, m.Content, false),
			))
		default:
			out = append(out, anthropic.NewUserMessage(anthropic.NewTextBlock(m.Content)))
		}
	}
	return out, system
}

func toAnthropicTools(tools []ports.ToolSpec) []anthropic.ToolUnionParam {
	if len(tools) == 0 {
		return nil
	}
	out := make([]anthropic.ToolUnionParam, 0, len(tools))
	for _, t := range tools {
		schema := anthropic.ToolInputSchemaParam{Type: constant.Object("object")}
		if props, ok := t.InputSchema["properties"]; ok {
			schema.Properties = props
		}
		if required, ok := t.InputSchema["required"].([]any); ok {
			for _, r := range required {
				if s, ok := r.(string); ok {
					schema.Required = append(schema.Required, s)
				}
			}
		}
		tool := anthropic.ToolUnionParamOfTool(schema, t.Name)
		if t.Description != "" {
			tool.OfTool.Description = anthropic.String(t.Description)
		}
		out = append(out, tool)
	}
	return out
}
