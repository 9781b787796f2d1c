package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/thefirstwind/mcp-client-demo/internal/domain"
)

const maxResponseBytes = 4 << 20

// HTTPInvoker posts tool arguments as JSON to http://ip:port{prefix}{tool}.
type HTTPInvoker struct {
	prefix string
	client *http.Client
}

func NewHTTPInvoker(prefix string, client *http.Client) *HTTPInvoker {
	if prefix == "" {
		prefix = domain.DefaultProviderHTTPPathPrefix
	}
	if client == nil {
		client = &http.Client{}
	}
	return &HTTPInvoker{prefix: prefix, client: client}
}

func (h *HTTPInvoker) Invoke(ctx context.Context, tool domain.Tool, args map[string]any) (json.RawMessage, error) {
	address := tool.Address()
	if address == "" {
		return nil, fmt.Errorf("tool %s has no endpoint address", tool.Name)
	}
	target := "http://" + address + h.prefix + url.PathEscape(tool.Name)

	body, err := json.Marshal(args)
	if err != nil {
		return nil, fmt.Errorf("encode arguments: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("post %s: %w", target, err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", target, err)
	}
	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("%s: %w", tool.Name, domain.ErrRecordNotFound)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("post %s: unexpected status %d", target, resp.StatusCode)
	}
	return payload, nil
}
