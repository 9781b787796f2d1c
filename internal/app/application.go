package app

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/thefirstwind/mcp-client-demo/internal/domain"
	"github.com/thefirstwind/mcp-client-demo/internal/infra/cards"
	"github.com/thefirstwind/mcp-client-demo/internal/infra/chat"
	"github.com/thefirstwind/mcp-client-demo/internal/infra/config"
	"github.com/thefirstwind/mcp-client-demo/internal/infra/conversation"
	"github.com/thefirstwind/mcp-client-demo/internal/infra/discovery"
	"github.com/thefirstwind/mcp-client-demo/internal/infra/httpapi"
	"github.com/thefirstwind/mcp-client-demo/internal/infra/telemetry"
	"github.com/thefirstwind/mcp-client-demo/internal/infra/toolcatalog"
)

// Application wires the aggregator runtime and its dependencies.
type Application struct {
	cfg        domain.Config
	configPath string
	watch      bool
	loader     *config.Loader

	logger        *zap.Logger
	registry      *prometheus.Registry
	metrics       domain.Metrics
	health        *telemetry.HealthTracker
	catalog       *toolcatalog.Catalog
	static        *discovery.StaticRegistry
	poller        *discovery.Poller
	engine        *cards.Engine
	conversations *conversation.Store
	orchestrator  *chat.Orchestrator
	httpServer    *httpapi.Server
}

// ApplicationOptions captures dependencies and settings for Application.
type ApplicationOptions struct {
	Config     domain.Config
	ConfigPath string
	Watch      bool
	Loader     *config.Loader
	Logger     *zap.Logger
	// PollInterval overrides the configured refresh interval. Zero keeps it and
	// a negative value disables the ticker.
	PollInterval time.Duration
	// Registry, when nil, gets a fresh registry with process and Go collectors.
	Registry *prometheus.Registry
}

// NewApplication constructs every component from the loaded configuration.
func NewApplication(ctx context.Context, opts ApplicationOptions) *Application {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg := opts.Config

	registry := opts.Registry
	if registry == nil {
		registry = NewMetricsRegistry()
	}
	metrics := NewMetrics(registry)
	health := NewHealthTracker()

	interval := opts.PollInterval
	if interval == 0 {
		interval = time.Duration(cfg.Discovery.RefreshIntervalSeconds) * time.Second
	}

	catalog := toolcatalog.NewCatalog()
	serviceRegistry, static := NewServiceRegistry(cfg.Registry, logger)
	poller := NewPoller(cfg, serviceRegistry, catalog, interval, health, metrics, logger)
	caller := NewToolCaller(cfg.Provider, catalog, metrics, logger)
	engine := NewCardEngine(cfg.Provider, caller, metrics, logger)
	completion := NewCompletionClient(ctx, cfg.LLM, metrics, logger)
	conversations := conversation.NewStore(cfg.Conversation.MaxHistoryLength)
	orchestrator := NewOrchestrator(catalog, engine, completion, conversations, metrics, logger)
	httpServer := NewHTTPServer(cfg.HTTP, orchestrator, conversations, catalog, poller, engine, logger)

	loader := opts.Loader
	if loader == nil {
		loader = config.NewLoader(logger)
	}

	return &Application{
		cfg:           cfg,
		configPath:    opts.ConfigPath,
		watch:         opts.Watch,
		loader:        loader,
		logger:        logger,
		registry:      registry,
		metrics:       metrics,
		health:        health,
		catalog:       catalog,
		static:        static,
		poller:        poller,
		engine:        engine,
		conversations: conversations,
		orchestrator:  orchestrator,
		httpServer:    httpServer,
	}
}

// Run starts polling and both HTTP listeners, and blocks until ctx is done
// or a listener fails.
func (a *Application) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	a.logger.Info("starting aggregator",
		zap.String("config", a.configPath),
		zap.String("registry", string(a.cfg.Registry.Kind)),
		zap.Strings("targetDomains", a.cfg.Discovery.TargetDomains),
	)

	a.poller.Start(ctx)
	defer a.poller.Stop()

	if a.watch && a.configPath != "" {
		if err := a.loader.Watch(ctx, a.configPath, func(next domain.Config) {
			a.applyConfig(ctx, next)
		}); err != nil {
			a.logger.Warn("config watch disabled", zap.Error(err))
		}
	}

	obsErr := make(chan error, 1)
	go func() {
		obsErr <- telemetry.StartHTTPServer(ctx, telemetry.HTTPServerOptions{
			Addr:          a.cfg.Observability.ListenAddress,
			EnableMetrics: a.cfg.Observability.Metrics,
			EnableHealthz: a.cfg.Observability.Healthz,
			Health:        a.health,
			Registry:      a.registry,
			Status:        a.status,
		}, a.logger)
	}()

	apiErr := make(chan error, 1)
	go func() {
		apiErr <- a.httpServer.Run(ctx)
	}()

	for {
		select {
		case err := <-apiErr:
			cancel()
			return err
		case err := <-obsErr:
			if err != nil {
				cancel()
				<-apiErr
				return err
			}
			obsErr = nil
		}
	}
}

// applyConfig pushes reloadable settings into the running components.
func (a *Application) applyConfig(ctx context.Context, next domain.Config) {
	a.poller.SetTargetDomains(next.Discovery.TargetDomains)
	if a.static != nil {
		a.static.Set(next.Registry.Services)
	}
	if _, err := a.poller.Refresh(ctx); err != nil {
		a.logger.Warn("refresh after config reload failed", zap.Error(err))
	}
}

// StatusSnapshot is served as JSON on /statusz.
type StatusSnapshot struct {
	Catalog       toolcatalog.Stats      `json:"catalog"`
	Poll          discovery.PollStatus   `json:"poll"`
	TargetDomains []string               `json:"targetDomains"`
	Cards         int                    `json:"cards"`
	Sessions      int                    `json:"sessions"`
	Health        telemetry.HealthReport `json:"health"`
}

func (a *Application) status() any {
	return StatusSnapshot{
		Catalog:       a.catalog.Stats(),
		Poll:          a.poller.Status(),
		TargetDomains: a.poller.TargetDomains(),
		Cards:         a.engine.Store().Len(),
		Sessions:      a.conversations.Sessions(),
		Health:        a.health.Report(),
	}
}
