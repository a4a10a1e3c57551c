package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	openai "github.com/sashabaranov/go-openai"

	"github.com/akshay5995/mcpevals/internal/ports"
)

func init() {
	RegisterProviderFactory("openai", func(config ClientConfig) (CoreLLM, error) {
		return NewOpenAIProvider(config)
	})
}

// OpenAIProvider implements CoreLLM over the OpenAI chat completions API
// with function-calling tools.
type OpenAIProvider struct {
	client     *openai.Client
	model      string
	classifier *ErrorClassifier
}

// NewOpenAIProvider creates an OpenAI provider from client configuration.
func NewOpenAIProvider(config ClientConfig) (*OpenAIProvider, error) {
	if config.APIKey == "" {
		return nil, ErrEmptyAPIKey
	}

	clientConfig := openai.DefaultConfig(config.APIKey)
	if config.BaseURL != "" {
		clientConfig.BaseURL = config.BaseURL
	}
	if config.Timeout > 0 {
		clientConfig.HTTPClient = &http.Client{Timeout: config.Timeout}
	}

	return &OpenAIProvider{
		client:     openai.NewClientWithConfig(clientConfig),
		model:      config.Model,
		classifier: &ErrorClassifier{Provider: "openai"},
	}, nil
}

// DoChat sends the conversation and tool catalog to the chat completions
// endpoint and normalizes the first choice.
func (p *OpenAIProvider) DoChat(ctx context.Context, req ChatRequest) (ports.ChatResponse, error) {
	request := openai.ChatCompletionRequest{
		Model:    p.model,
		Messages: toOpenAIMessages(req.Messages),
		Tools:    toOpenAITools(req.Tools),
	}

	if temp, ok := ExtractOptionalFloat(req.Options, OptionTemperature); ok {
		request.Temperature = float32(temp)
	}
	if maxTokens, ok := ExtractOptionalInt(req.Options, OptionMaxTokens); ok {
		request.MaxTokens = maxTokens
	}
	if jsonResp, ok := ExtractOptionalBool(req.Options, OptionJSONResponse); ok && jsonResp {
		request.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	resp, err := p.client.CreateChatCompletion(ctx, request)
	if err != nil {
		return ports.ChatResponse{}, p.classifyError(err)
	}
	if len(resp.Choices) == 0 {
		return ports.ChatResponse{}, NewProviderError("openai", ErrorTypeUnknown, 0, "", ErrNoResponseChoice)
	}

	choice := resp.Choices[0].Message
	out := ports.ChatResponse{
		Content:   choice.Content,
		TokensIn:  resp.Usage.PromptTokens,
		TokensOut: resp.Usage.CompletionTokens,
	}
	for _, tc := range choice.ToolCalls {
		out.ToolCalls = append(out.ToolCalls, ports.ToolCall{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: json.RawMessage(tc.Function.Arguments),
		})
	}
	return out, nil
}

// GetModel returns the configured model name.
func (p *OpenAIProvider) GetModel() string { return p.model }

// SetModel switches the model for subsequent requests.
func (p *OpenAIProvider) SetModel(model string) { p.model = model }

func (p *OpenAIProvider) classifyError(err error) error {
	if isContextError(err) {
		return p.classifier.ClassifyContextError(err)
	}
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return p.classifier.ClassifyHTTPError(apiErr.HTTPStatusCode, apiErr.Message, err)
	}
	return NewProviderError("openai", ErrorTypeNetwork, 0, "request failed", err)
}

func toOpenAIMessages(messages []ports.ChatMessage) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(messages))
	for _, m := range messages {
		msg := openai.ChatCompletionMessage{
			Role:       m.Role,
			Content:    m.Content,
			ToolCallID: m.ToolCallID,
		}
		for _, tc := range m.ToolCalls {
			msg.ToolCalls = append(msg.ToolCalls, openai.ToolCall{
				ID:   tc.ID,
				Type: openai.ToolTypeFunction,
				Function: openai.FunctionCall{
					Name:      tc.Name,
					Arguments: string(tc.Arguments),
				},
			})
		}
		out = append(out, msg)
	}
	return out
}

func toOpenAITools(tools []ports.ToolSpec) []openai.Tool {
	if len(tools) == 0 {
		return nil
	}
	out := make([]openai.Tool, 0, len(tools))
	for _, t := range tools {
		out = append(out, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  t.InputSchema,
			},
		})
	}
	return out
}
