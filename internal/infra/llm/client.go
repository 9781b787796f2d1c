package llm

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"go.uber.org/zap"

	"github.com/thefirstwind/mcp-client-demo/internal/domain"
	"github.com/thefirstwind/mcp-client-demo/internal/infra/telemetry"
)

// Client performs chat completions against an OpenAI-compatible endpoint.
type Client struct {
	model       model.BaseChatModel
	provider    string
	modelName   string
	maxTokens   int
	temperature float32
	timeout     time.Duration
	logger      *zap.Logger
	metrics     domain.Metrics
}

type Options struct {
	Logger  *zap.Logger
	Metrics domain.Metrics
	// Model replaces the configured provider, mainly for tests.
	Model model.BaseChatModel
}

// NewClient builds a completion client from configuration.
func NewClient(ctx context.Context, config domain.LLMConfig, opts Options) (*Client, error) {
	chatModel := opts.Model
	if chatModel == nil {
		var err error
		chatModel, err = initializeModel(ctx, config)
		if err != nil {
			return nil, err
		}
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	metrics := opts.Metrics
	if metrics == nil {
		metrics = telemetry.NewNoopMetrics()
	}
	timeout := time.Duration(config.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = time.Duration(domain.DefaultLLMTimeoutSeconds) * time.Second
	}
	return &Client{
		model:       chatModel,
		provider:    config.Provider,
		modelName:   config.Model,
		maxTokens:   config.MaxTokens,
		temperature: config.Temperature,
		timeout:     timeout,
		logger:      logger.Named("llm"),
		metrics:     metrics,
	}, nil
}

// Complete sends the ordered messages and returns the first choice's text.
func (c *Client) Complete(ctx context.Context, messages []domain.CompletionMessage) (string, error) {
	input, err := toMessages(messages)
	if err != nil {
		return "", err
	}

	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	options := []model.Option{model.WithTemperature(c.temperature)}
	if c.maxTokens > 0 {
		options = append(options, model.WithMaxTokens(c.maxTokens))
	}

	started := time.Now()
	response, err := c.model.Generate(callCtx, input, options...)
	duration := time.Since(started)
	c.metrics.ObserveCompletionLatency(c.provider, c.modelName, duration)
	if err != nil {
		return "", fmt.Errorf("completion generate: %w", err)
	}
	if response == nil || strings.TrimSpace(response.Content) == "" {
		return "", domain.ErrNoCompletion
	}

	tokens := 0
	if response.ResponseMeta != nil && response.ResponseMeta.Usage != nil {
		tokens = response.ResponseMeta.Usage.TotalTokens
		c.metrics.ObserveCompletionTokens(c.provider, c.modelName, tokens)
	}
	c.logger.Debug("completion finished",
		telemetry.EventField(telemetry.EventCompletion),
		telemetry.DurationField(duration),
		zap.String("model", c.modelName),
		zap.Int("messages", len(input)),
		zap.Int("tokens", tokens),
	)
	return response.Content, nil
}

func toMessages(messages []domain.CompletionMessage) ([]*schema.Message, error) {
	out := make([]*schema.Message, 0, len(messages))
	for _, msg := range messages {
		switch msg.Role {
		case domain.RoleSystem:
			out = append(out, schema.SystemMessage(msg.Content))
		case domain.RoleUser:
			out = append(out, schema.UserMessage(msg.Content))
		case domain.RoleAssistant:
			out = append(out, schema.AssistantMessage(msg.Content, nil))
		default:
			return nil, fmt.Errorf("unsupported role: %s", msg.Role)
		}
	}
	return out, nil
}

func initializeModel(ctx context.Context, config domain.LLMConfig) (model.BaseChatModel, error) {
	apiKey, err := resolveAPIKey(config)
	if err != nil {
		return nil, err
	}

	switch config.Provider {
	case "openai", "":
		cfg := &openai.ChatModelConfig{
			Model:  config.Model,
			APIKey: apiKey,
		}
		if config.BaseURL != "" {
			cfg.BaseURL = config.BaseURL
		}
		if config.TimeoutSeconds > 0 {
			cfg.Timeout = time.Duration(config.TimeoutSeconds) * time.Second
		}
		return openai.NewChatModel(ctx, cfg)
	default:
		return nil, fmt.Errorf("unsupported provider: %s", config.Provider)
	}
}

func resolveAPIKey(config domain.LLMConfig) (string, error) {
	apiKey := strings.TrimSpace(config.APIKey)
	if apiKey != "" {
		return apiKey, nil
	}
	envVar := strings.TrimSpace(config.APIKeyEnvVar)
	if envVar == "" {
		return "", fmt.Errorf("API key is required: set llm.apiKey or llm.apiKeyEnvVar")
	}
	apiKey = strings.TrimSpace(os.Getenv(envVar))
	if apiKey == "" {
		return "", fmt.Errorf("API key not found in env var %s", envVar)
	}
	return apiKey, nil
}

var _ domain.CompletionClient = (*Client)(nil)
