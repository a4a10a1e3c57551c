// Package mcpclient connects to MCP tool servers over stdio or streamable
// HTTP and exposes their tools through the ports.ToolSession interface.
package mcpclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/akshay5995/mcpevals/internal/domain"
	"github.com/akshay5995/mcpevals/internal/ports"
)

// clientImpl identifies this client to MCP servers during initialization.
var clientImpl = &mcp.Implementation{Name: "mcpevals", Version: "0.1.0"}

// Descriptor describes how to reach an MCP server: either a command to
// spawn and speak stdio with, or an HTTP endpoint. Exactly one of Command
// and URL must be set.
type Descriptor struct {
	// Command is the server executable and its arguments.
	Command []string
	// Env is added to the spawned server's environment on top of the
	// parent process environment. Stdio transport only.
	Env map[string]string
	// URL is the streamable HTTP endpoint of a remote server.
	URL string
	// Headers is sent with every HTTP request, typically authorization.
	Headers map[string]string
}

// Validate checks that the descriptor names exactly one transport.
func (d Descriptor) Validate() error {
	hasCommand := len(d.Command) > 0
	hasURL := d.URL != ""
	switch {
	case hasCommand && hasURL:
		return fmt.Errorf("server config cannot set both command and url")
	case !hasCommand && !hasURL:
		return fmt.Errorf("server config must set either command or url")
	case hasURL && len(d.Env) > 0:
		return fmt.Errorf("server env applies to command transport only")
	case hasCommand && len(d.Headers) > 0:
		return fmt.Errorf("server headers apply to url transport only")
	}
	return nil
}

// Session is a live connection to one MCP server.
type Session struct {
	descriptor Descriptor
	session    *mcp.ClientSession
}

var _ ports.ToolSession = (*Session)(nil)

// Dial connects to the server described by the descriptor and completes
// the MCP initialization handshake. Failures wrap
// domain.ErrServerConnection, which the runner treats as fatal for the
// whole run.
func Dial(ctx context.Context, descriptor Descriptor) (*Session, error) {
	if err := descriptor.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrServerConnection, err)
	}

	client := mcp.NewClient(clientImpl, nil)

	var transport mcp.Transport
	if len(descriptor.Command) > 0 {
		cmd := exec.Command(descriptor.Command[0], descriptor.Command[1:]...)
		cmd.Env = os.Environ()
		for k, v := range descriptor.Env {
			cmd.Env = append(cmd.Env, k+"="+v)
		}
		transport = &mcp.CommandTransport{Command: cmd}
	} else {
		httpClient := http.DefaultClient
		if len(descriptor.Headers) > 0 {
			httpClient = &http.Client{
				Transport: &headerTransport{headers: descriptor.Headers},
			}
		}
		transport = &mcp.StreamableClientTransport{
			Endpoint:   descriptor.URL,
			HTTPClient: httpClient,
		}
	}

	session, err := client.Connect(ctx, transport, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrServerConnection, err)
	}

	return &Session{descriptor: descriptor, session: session}, nil
}

// ListTools returns the server's tool catalog with input schemas decoded
// into plain maps for the LLM providers.
func (s *Session) ListTools(ctx context.Context) ([]ports.ToolSpec, error) {
	result, err := s.session.ListTools(ctx, &mcp.ListToolsParams{})
	if err != nil {
		return nil, fmt.Errorf("failed to list tools: %w", err)
	}

	specs := make([]ports.ToolSpec, 0, len(result.Tools))
	for _, tool := range result.Tools {
		spec := ports.ToolSpec{Name: tool.Name, Description: tool.Description}
		if tool.InputSchema != nil {
			raw, err := json.Marshal(tool.InputSchema)
			if err != nil {
				return nil, fmt.Errorf("failed to encode schema for tool %s: %w", tool.Name, err)
			}
			if err := json.Unmarshal(raw, &spec.InputSchema); err != nil {
				return nil, fmt.Errorf("failed to decode schema for tool %s: %w", tool.Name, err)
			}
		}
		specs = append(specs, spec)
	}
	return specs, nil
}

// CallTool invokes a tool and flattens its text content. A result marked
// IsError comes back with ToolResult.IsError set rather than as a Go
// error, so callers can feed the failure back into the conversation.
func (s *Session) CallTool(ctx context.Context, name string, args map[string]any) (ports.ToolResult, error) {
	result, err := s.session.CallTool(ctx, &mcp.CallToolParams{Name: name, Arguments: args})
	if err != nil {
		return ports.ToolResult{}, fmt.Errorf("tool %s call failed: %w", name, err)
	}

	var parts []string
	for _, content := range result.Content {
		if text, ok := content.(*mcp.TextContent); ok {
			parts = append(parts, text.Text)
		}
	}
	return ports.ToolResult{
		Text:    strings.Join(parts, "\n"),
		IsError: result.IsError,
	}, nil
}

// Clone opens an independent connection to the same server, giving
// parallel cases isolated sessions.
func (s *Session) Clone(ctx context.Context) (ports.ToolSession, error) {
	return Dial(ctx, s.descriptor)
}

// Close terminates the connection and, for stdio transports, the spawned
// server process.
func (s *Session) Close() error {
	return s.session.Close()
}

// headerTransport injects static headers into every request.
type headerTransport struct {
	headers map[string]string
}

func (t *headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	clone := req.Clone(req.Context())
	for k, v := range t.headers {
		clone.Header.Set(k, v)
	}
	return http.DefaultTransport.RoundTrip(clone)
}
