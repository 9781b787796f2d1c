package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/thefirstwind/mcp-client-demo/internal/domain"
)

const (
	clientName    = "mcp-client-demo"
	clientVersion = "0.1.0"
)

// ErrSessionUnavailable marks a call that failed before an MCP session was
// established, so the endpoint may not speak MCP at all.
var ErrSessionUnavailable = errors.New("mcp session unavailable")

// DialFunc opens an MCP transport for an endpoint URL.
type DialFunc func(ctx context.Context, endpoint string, tool domain.Tool) (mcp.Transport, error)

type MCPInvokerOptions struct {
	Path       string
	HTTPClient *http.Client
	MaxRetries int
	Dial       DialFunc
	Logger     *zap.Logger
}

// MCPInvoker calls tools over an MCP session opened per call.
type MCPInvoker struct {
	path   string
	dial   DialFunc
	client *mcp.Client
	logger *zap.Logger
}

func NewMCPInvoker(opts MCPInvokerOptions) *MCPInvoker {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	path := opts.Path
	if path == "" {
		path = domain.DefaultProviderMCPPath
	}
	dial := opts.Dial
	if dial == nil {
		dial = streamableDialer(opts.HTTPClient, opts.MaxRetries)
	}
	return &MCPInvoker{
		path:   path,
		dial:   dial,
		client: mcp.NewClient(&mcp.Implementation{Name: clientName, Version: clientVersion}, nil),
		logger: logger.Named("mcp_invoker"),
	}
}

func (m *MCPInvoker) Invoke(ctx context.Context, tool domain.Tool, args map[string]any) (json.RawMessage, error) {
	address := tool.Address()
	if address == "" {
		return nil, fmt.Errorf("tool %s has no endpoint address", tool.Name)
	}
	endpoint := "http://" + address + m.path

	transport, err := m.dial(ctx, endpoint, tool)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w: %w", endpoint, ErrSessionUnavailable, err)
	}
	session, err := m.client.Connect(ctx, transport, nil)
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w: %w", endpoint, ErrSessionUnavailable, err)
	}
	defer func() {
		if err := session.Close(); err != nil {
			m.logger.Debug("close session failed", zap.String("endpoint", endpoint), zap.Error(err))
		}
	}()

	result, err := session.CallTool(ctx, &mcp.CallToolParams{Name: tool.Name, Arguments: args})
	if err != nil {
		return nil, fmt.Errorf("call tool %s: %w", tool.Name, err)
	}
	return resultPayload(tool.Name, result)
}

// resultPayload prefers structured content and falls back to the text blocks.
func resultPayload(name string, result *mcp.CallToolResult) (json.RawMessage, error) {
	text := joinText(result.Content)
	if result.IsError {
		if text == "" {
			text = "tool reported an error"
		}
		return nil, fmt.Errorf("tool %s: %s", name, text)
	}
	if result.StructuredContent != nil {
		raw, err := json.Marshal(result.StructuredContent)
		if err != nil {
			return nil, fmt.Errorf("encode structured content: %w", err)
		}
		return raw, nil
	}
	if text == "" {
		return nil, errors.New("tool " + name + " returned no content")
	}
	if !json.Valid([]byte(text)) {
		return nil, fmt.Errorf("tool %s returned non-JSON text", name)
	}
	return json.RawMessage(text), nil
}

func joinText(content []mcp.Content) string {
	var parts []string
	for _, item := range content {
		if text, ok := item.(*mcp.TextContent); ok && text.Text != "" {
			parts = append(parts, text.Text)
		}
	}
	return strings.Join(parts, "")
}

func streamableDialer(client *http.Client, maxRetries int) DialFunc {
	return func(_ context.Context, endpoint string, tool domain.Tool) (mcp.Transport, error) {
		base := client
		if base == nil {
			base = &http.Client{}
		}
		headers := http.Header{}
		if version := tool.ConnectionDetails[domain.ConnVersion]; version != "" {
			headers.Set("X-MCP-Tool-Version", version)
		}
		withHeaders := *base
		withHeaders.Transport = &headerRoundTripper{base: roundTripper(base), headers: headers}
		return &mcp.StreamableClientTransport{
			Endpoint:   endpoint,
			HTTPClient: &withHeaders,
			MaxRetries: maxRetries,
		}, nil
	}
}

func roundTripper(client *http.Client) http.RoundTripper {
	if client.Transport != nil {
		return client.Transport
	}
	return http.DefaultTransport
}

type headerRoundTripper struct {
	base    http.RoundTripper
	headers http.Header
}

func (h *headerRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	if len(h.headers) > 0 {
		req = req.Clone(req.Context())
		for key, values := range h.headers {
			req.Header.Del(key)
			for _, value := range values {
				req.Header.Add(key, value)
			}
		}
	}
	return h.base.RoundTrip(req)
}
