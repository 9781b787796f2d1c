package app

import (
	"context"
	"strings"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/thefirstwind/mcp-client-demo/internal/domain"
	"github.com/thefirstwind/mcp-client-demo/internal/infra/config"
)

type App struct {
	logger *zap.Logger
	flags  *pflag.FlagSet
}

type ServeConfig struct {
	ConfigPath string
	// Watch reloads target domains and static services when the file changes.
	Watch bool
}

type ValidateConfig struct {
	ConfigPath string
}

type ListToolsConfig struct {
	ConfigPath string
	Domain     string
}

type ChatConfig struct {
	ConfigPath string
	SessionID  string
	Domain     string
	Message    string
}

func New(logger *zap.Logger) *App {
	logging := NewLogging(LoggingConfig{Logger: logger})
	return &App{logger: logging.Logger}
}

// WithFlags applies command-line overrides registered by config.BindFlags.
func (a *App) WithFlags(flags *pflag.FlagSet) *App {
	next := *a
	next.flags = flags
	return &next
}

func (a *App) loader() *config.Loader {
	loader := config.NewLoader(a.logger)
	if a.flags != nil {
		loader = loader.WithFlags(a.flags)
	}
	return loader
}

func (a *App) Serve(ctx context.Context, cfg ServeConfig) error {
	loader := a.loader()
	loaded, err := loader.Load(ctx, cfg.ConfigPath)
	if err != nil {
		return err
	}
	a.logger.Info("configuration loaded",
		zap.String("config", cfg.ConfigPath),
		zap.String("registry", string(loaded.Registry.Kind)),
		zap.String("listen", loaded.HTTP.ListenAddress),
	)

	application := NewApplication(ctx, ApplicationOptions{
		Config:     loaded,
		ConfigPath: cfg.ConfigPath,
		Watch:      cfg.Watch,
		Loader:     loader,
		Logger:     a.logger,
	})
	return application.Run(ctx)
}

func (a *App) ValidateConfig(ctx context.Context, cfg ValidateConfig) error {
	loaded, err := a.loader().Load(ctx, cfg.ConfigPath)
	if err != nil {
		return err
	}
	a.logger.Info("configuration validated",
		zap.String("config", cfg.ConfigPath),
		zap.String("registry", string(loaded.Registry.Kind)),
		zap.Int("staticServices", len(loaded.Registry.Services)),
		zap.Strings("targetDomains", loaded.Discovery.TargetDomains),
	)
	return nil
}

// ListTools runs one registry poll and returns the discovered services,
// restricted to one domain when cfg.Domain is set.
func (a *App) ListTools(ctx context.Context, cfg ListToolsConfig) ([]domain.Service, error) {
	application, err := a.oneShot(ctx, cfg.ConfigPath)
	if err != nil {
		return nil, err
	}
	if _, err := application.poller.Refresh(ctx); err != nil {
		return nil, err
	}

	services := application.catalog.AllServices()
	want := strings.TrimSpace(cfg.Domain)
	if want == "" {
		return services, nil
	}
	filtered := make([]domain.Service, 0, len(services))
	for _, svc := range services {
		if strings.EqualFold(svc.Domain, want) {
			filtered = append(filtered, svc)
		}
	}
	return filtered, nil
}

// Chat answers a single message against a freshly polled catalog. A failed
// poll is logged and the message is still answered.
func (a *App) Chat(ctx context.Context, cfg ChatConfig) (domain.ChatReply, error) {
	application, err := a.oneShot(ctx, cfg.ConfigPath)
	if err != nil {
		return domain.ChatReply{}, err
	}
	if _, err := application.poller.Refresh(ctx); err != nil {
		a.logger.Warn("registry poll failed, answering without tools", zap.Error(err))
	}
	return application.orchestrator.ProcessChat(ctx, domain.ChatRequest{
		SessionID: cfg.SessionID,
		Domain:    cfg.Domain,
		Message:   cfg.Message,
	}), nil
}

// oneShot builds the runtime without a poll ticker for single commands.
func (a *App) oneShot(ctx context.Context, path string) (*Application, error) {
	loader := a.loader()
	loaded, err := loader.Load(ctx, path)
	if err != nil {
		return nil, err
	}
	return NewApplication(ctx, ApplicationOptions{
		Config:       loaded,
		ConfigPath:   path,
		Loader:       loader,
		Logger:       a.logger,
		PollInterval: -1,
	}), nil
}
