package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/thefirstwind/mcp-client-demo/internal/domain"
	"github.com/thefirstwind/mcp-client-demo/internal/infra/telemetry"
	"github.com/thefirstwind/mcp-client-demo/internal/infra/toolcatalog"
)

// Invoker executes one tool call against the tool's published endpoint.
type Invoker interface {
	Invoke(ctx context.Context, tool domain.Tool, args map[string]any) (json.RawMessage, error)
}

type CallerOptions struct {
	Catalog   domain.CatalogReader
	Transport domain.ProviderTransport
	MCP       Invoker
	HTTP      Invoker
	Timeout   time.Duration
	Logger    *zap.Logger
	Metrics   domain.Metrics
}

// Caller locates data tools in the catalog by name and invokes them.
type Caller struct {
	catalog   domain.CatalogReader
	transport domain.ProviderTransport
	mcp       Invoker
	http      Invoker
	timeout   time.Duration
	logger    *zap.Logger
	metrics   domain.Metrics
}

func NewCaller(opts CallerOptions) *Caller {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	metrics := opts.Metrics
	if metrics == nil {
		metrics = telemetry.NewNoopMetrics()
	}
	transport := opts.Transport
	if transport == "" {
		transport = domain.DefaultProviderTransport
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = time.Duration(domain.DefaultProviderTimeoutSeconds) * time.Second
	}
	mcpInvoker := opts.MCP
	if mcpInvoker == nil {
		mcpInvoker = NewMCPInvoker(MCPInvokerOptions{Logger: logger})
	}
	httpInvoker := opts.HTTP
	if httpInvoker == nil {
		httpInvoker = NewHTTPInvoker("", nil)
	}
	return &Caller{
		catalog:   opts.Catalog,
		transport: transport,
		mcp:       mcpInvoker,
		http:      httpInvoker,
		timeout:   timeout,
		logger:    logger.Named("provider"),
		metrics:   metrics,
	}
}

// Call invokes the named tool and unwraps its data envelope. A null or absent
// data field yields domain.ErrRecordNotFound.
func (c *Caller) Call(ctx context.Context, toolName string, args map[string]any) (record domain.Record, err error) {
	started := time.Now()
	defer func() {
		duration := time.Since(started)
		c.metrics.ObserveProviderCall(toolName, duration, err)
		c.logger.Debug("provider call",
			telemetry.EventField(telemetry.EventProviderCall),
			telemetry.ToolField(toolName),
			telemetry.ArgsField(args),
			telemetry.DurationField(duration),
			zap.Error(err),
		)
	}()

	if c.catalog == nil {
		return nil, fmt.Errorf("%s: %w", toolName, domain.ErrToolNotFound)
	}
	tool, ok := c.catalog.ToolByName(toolName)
	if !ok {
		return nil, fmt.Errorf("%s: %w", toolName, domain.ErrToolNotFound)
	}
	if err := validateArguments(tool, args); err != nil {
		return nil, err
	}

	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	invoker, fallback := c.invokersFor(tool)
	payload, err := invoker.Invoke(callCtx, tool, args)
	if err != nil && fallback != nil && errors.Is(err, ErrSessionUnavailable) {
		c.logger.Debug("mcp session unavailable, retrying over http",
			telemetry.ToolField(toolName),
			zap.Error(err),
		)
		payload, err = fallback.Invoke(callCtx, tool, args)
	}
	if err != nil {
		return nil, err
	}
	return decodeEnvelope(toolName, payload)
}

// invokersFor picks the invoker for a tool. In auto mode an MCP-protocol tool
// falls back to HTTP when no MCP session can be opened.
func (c *Caller) invokersFor(tool domain.Tool) (Invoker, Invoker) {
	switch c.transport {
	case domain.ProviderTransportMCP:
		return c.mcp, nil
	case domain.ProviderTransportHTTP:
		return c.http, nil
	}
	switch strings.ToLower(tool.ConnectionDetails[domain.ConnProtocol]) {
	case "http", "https", "rest":
		return c.http, nil
	default:
		return c.mcp, c.http
	}
}

func validateArguments(tool domain.Tool, args map[string]any) error {
	if len(tool.InputSchema) == 0 {
		return nil
	}
	resolved, err := toolcatalog.ParseSchema(tool.InputSchema)
	if err != nil {
		return fmt.Errorf("tool %s input schema: %w", tool.Name, err)
	}
	// Round-trip through JSON so numbers match what the tool will receive.
	raw, err := json.Marshal(args)
	if err != nil {
		return fmt.Errorf("encode arguments: %w", err)
	}
	var instance any
	if err := json.Unmarshal(raw, &instance); err != nil {
		return fmt.Errorf("decode arguments: %w", err)
	}
	if err := resolved.Validate(instance); err != nil {
		return fmt.Errorf("tool %s arguments: %w", tool.Name, err)
	}
	return nil
}

func decodeEnvelope(toolName string, payload json.RawMessage) (domain.Record, error) {
	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(payload, &envelope); err != nil {
		return nil, fmt.Errorf("decode %s response: %w", toolName, err)
	}
	data := bytes.TrimSpace(envelope.Data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil, fmt.Errorf("%s: %w", toolName, domain.ErrRecordNotFound)
	}

	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.UseNumber()
	var record domain.Record
	if err := decoder.Decode(&record); err != nil {
		return nil, fmt.Errorf("decode %s data: %w", toolName, err)
	}
	return record, nil
}
