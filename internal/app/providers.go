package app

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/thefirstwind/mcp-client-demo/internal/domain"
	"github.com/thefirstwind/mcp-client-demo/internal/infra/cards"
	"github.com/thefirstwind/mcp-client-demo/internal/infra/chat"
	"github.com/thefirstwind/mcp-client-demo/internal/infra/conversation"
	"github.com/thefirstwind/mcp-client-demo/internal/infra/discovery"
	"github.com/thefirstwind/mcp-client-demo/internal/infra/httpapi"
	"github.com/thefirstwind/mcp-client-demo/internal/infra/llm"
	"github.com/thefirstwind/mcp-client-demo/internal/infra/provider"
	"github.com/thefirstwind/mcp-client-demo/internal/infra/resolver"
	"github.com/thefirstwind/mcp-client-demo/internal/infra/telemetry"
	"github.com/thefirstwind/mcp-client-demo/internal/infra/toolcatalog"
)

func NewMetricsRegistry() *prometheus.Registry {
	registry := prometheus.NewRegistry()
	registry.MustRegister(prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}))
	registry.MustRegister(prometheus.NewGoCollector())
	return registry
}

func NewMetrics(registry *prometheus.Registry) domain.Metrics {
	return telemetry.NewPrometheusMetrics(registry)
}

func NewHealthTracker() *telemetry.HealthTracker {
	return telemetry.NewHealthTracker()
}

// NewServiceRegistry returns the configured registry client. The static
// registry is also returned so config reloads can replace its services.
func NewServiceRegistry(cfg domain.RegistryConfig, logger *zap.Logger) (domain.ServiceRegistry, *discovery.StaticRegistry) {
	if cfg.Kind == domain.RegistryKindStatic {
		static := discovery.NewStaticRegistry(cfg.Services)
		return static, static
	}
	return discovery.NewNacosClient(discovery.NacosConfig{
		ServerAddr: cfg.ServerAddr,
		Namespace:  cfg.Namespace,
		Username:   cfg.Username,
		Password:   cfg.Password,
		Timeout:    time.Duration(cfg.TimeoutSeconds) * time.Second,
		Logger:     logger,
	}), nil
}

// NewPoller builds the registry poller. A zero interval disables the ticker,
// which one-shot commands use.
func NewPoller(
	cfg domain.Config,
	registry domain.ServiceRegistry,
	catalog *toolcatalog.Catalog,
	interval time.Duration,
	health *telemetry.HealthTracker,
	metrics domain.Metrics,
	logger *zap.Logger,
) *discovery.Poller {
	return discovery.NewPoller(discovery.PollerOptions{
		Registry:      registry,
		Catalog:       catalog,
		Group:         cfg.Registry.Group,
		TargetDomains: cfg.Discovery.TargetDomains,
		Interval:      interval,
		Concurrency:   cfg.Discovery.FetchConcurrency,
		FetchTimeout:  time.Duration(cfg.Registry.TimeoutSeconds) * time.Second,
		Health:        health,
		Logger:        logger,
		Metrics:       metrics,
	})
}

func NewToolCaller(cfg domain.ProviderConfig, catalog domain.CatalogReader, metrics domain.Metrics, logger *zap.Logger) *provider.Caller {
	return provider.NewCaller(provider.CallerOptions{
		Catalog:   catalog,
		Transport: cfg.Transport,
		MCP:       provider.NewMCPInvoker(provider.MCPInvokerOptions{Path: cfg.MCPPath, Logger: logger}),
		HTTP:      provider.NewHTTPInvoker(cfg.HTTPPathPrefix, nil),
		Timeout:   time.Duration(cfg.TimeoutSeconds) * time.Second,
		Logger:    logger,
		Metrics:   metrics,
	})
}

func NewCardEngine(cfg domain.ProviderConfig, caller *provider.Caller, metrics domain.Metrics, logger *zap.Logger) *cards.Engine {
	return cards.NewEngine(cards.Options{
		Store:   cards.NewStore(nil),
		Orders:  provider.NewOrders(caller, cfg.OrderTool),
		Users:   provider.NewUsers(caller, cfg.UserTool),
		Logger:  logger,
		Metrics: metrics,
	})
}

// NewCompletionClient builds the LLM client. A client that cannot be built
// leaves completion unconfigured; card replies keep working without it.
func NewCompletionClient(ctx context.Context, cfg domain.LLMConfig, metrics domain.Metrics, logger *zap.Logger) domain.CompletionClient {
	client, err := llm.NewClient(ctx, cfg, llm.Options{Logger: logger, Metrics: metrics})
	if err != nil {
		logger.Warn("completion client disabled",
			zap.String("provider", cfg.Provider),
			zap.String("model", cfg.Model),
			zap.Error(err),
		)
		return nil
	}
	return client
}

func NewOrchestrator(
	catalog *toolcatalog.Catalog,
	engine *cards.Engine,
	completion domain.CompletionClient,
	conversations *conversation.Store,
	metrics domain.Metrics,
	logger *zap.Logger,
) *chat.Orchestrator {
	return chat.NewOrchestrator(chat.Options{
		Catalog:       catalog,
		Resolver:      resolver.New(catalog, logger),
		Cards:         engine,
		Completion:    completion,
		Conversations: conversations,
		Logger:        logger,
		Metrics:       metrics,
	})
}

func NewHTTPServer(
	cfg domain.HTTPConfig,
	orchestrator *chat.Orchestrator,
	conversations *conversation.Store,
	catalog *toolcatalog.Catalog,
	poller *discovery.Poller,
	engine *cards.Engine,
	logger *zap.Logger,
) *httpapi.Server {
	return httpapi.NewServer(httpapi.Options{
		Config:        cfg,
		Chat:          orchestrator,
		Conversations: conversations,
		Catalog:       catalog,
		Refresher:     poller,
		Cards:         engine.Store(),
		Samples:       engine,
		Logger:        logger,
	})
}
