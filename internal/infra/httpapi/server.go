package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/thefirstwind/mcp-client-demo/internal/domain"
	"github.com/thefirstwind/mcp-client-demo/internal/infra/cards"
	"github.com/thefirstwind/mcp-client-demo/internal/infra/telemetry"
)

// HeaderSessionID carries the conversation session between requests.
const HeaderSessionID = "X-Session-ID"

const (
	headerETag        = "ETag"
	headerIfNoneMatch = "If-None-Match"
)

// ChatService answers one chat message.
type ChatService interface {
	ProcessChat(ctx context.Context, req domain.ChatRequest) domain.ChatReply
}

// Refresher forces one registry poll and reports the stored service count.
type Refresher interface {
	Refresh(ctx context.Context) (int, error)
}

// SampleSeeder stores demo cards.
type SampleSeeder interface {
	SeedSamples() ([]domain.Card, error)
	SeedSample(cardType domain.CardType) (domain.Card, error)
}

type Options struct {
	Config        domain.HTTPConfig
	Chat          ChatService
	Conversations domain.ConversationStore
	Catalog       domain.CatalogReader
	Refresher     Refresher
	Cards         *cards.Store
	Samples       SampleSeeder
	Logger        *zap.Logger
}

// Server is the REST surface over the chat orchestrator, catalog and card store.
type Server struct {
	echo   *echo.Echo
	cfg    domain.HTTPConfig
	logger *zap.Logger
}

func NewServer(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("http")

	cfg := opts.Config
	if cfg.ListenAddress == "" {
		cfg.ListenAddress = domain.DefaultHTTPListenAddress
	}
	if cfg.ShutdownTimeoutSeconds <= 0 {
		cfg.ShutdownTimeoutSeconds = domain.DefaultShutdownTimeoutSeconds
	}

	store := opts.Cards
	if store == nil {
		store = cards.NewStore(nil)
	}

	e := newEcho(cfg, logger)
	h := &handlers{
		chat:          opts.Chat,
		conversations: opts.Conversations,
		catalog:       opts.Catalog,
		refresher:     opts.Refresher,
		cards:         store,
		samples:       opts.Samples,
		logger:        logger,
	}
	h.register(e)

	return &Server{echo: e, cfg: cfg, logger: logger}
}

func newEcho(cfg domain.HTTPConfig, logger *zap.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	if cfg.BodyLimit != "" {
		e.Use(middleware.BodyLimit(cfg.BodyLimit))
	}
	if len(cfg.AllowedOrigins) > 0 {
		e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
			AllowOrigins: cfg.AllowedOrigins,
			AllowMethods: []string{
				http.MethodGet,
				http.MethodPost,
				http.MethodDelete,
				http.MethodOptions,
			},
			AllowHeaders: []string{
				echo.HeaderOrigin,
				echo.HeaderContentType,
				echo.HeaderAccept,
				HeaderSessionID,
			},
			ExposeHeaders: []string{HeaderSessionID, echo.HeaderXRequestID, headerETag},
		}))
	}
	e.Use(middleware.RequestID())
	if cfg.RateLimit > 0 {
		e.Use(middleware.RateLimiter(middleware.NewRateLimiterMemoryStore(rate.Limit(cfg.RateLimit))))
	}
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:    true,
		LogMethod:    true,
		LogURI:       true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		LogValuesFunc: func(_ echo.Context, v middleware.RequestLoggerValues) error {
			fields := []zap.Field{
				zap.String(telemetry.FieldLogSource, telemetry.LogSourceHTTP),
				zap.String("method", v.Method),
				zap.String("uri", v.URI),
				zap.Int("status", v.Status),
				telemetry.DurationField(v.Latency),
				telemetry.RequestIDField(v.RequestID),
			}
			if v.Error != nil {
				logger.Warn("request failed", append(fields, zap.Error(v.Error))...)
				return nil
			}
			logger.Debug("request served", fields...)
			return nil
		},
	}))
	return e
}

// Handler exposes the router for in-process use.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Run serves until ctx is done, then shuts down within the configured timeout.
func (s *Server) Run(ctx context.Context) error {
	s.echo.Server.ReadHeaderTimeout = 5 * time.Second

	errChan := make(chan error, 1)
	go func() {
		s.logger.Info("http api listening", zap.String("addr", s.cfg.ListenAddress))
		if err := s.echo.Start(s.cfg.ListenAddress); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	select {
	case err := <-errChan:
		return fmt.Errorf("http api failed to start: %w", err)
	case <-ctx.Done():
		return s.shutdown(time.Duration(s.cfg.ShutdownTimeoutSeconds) * time.Second)
	}
}

func (s *Server) shutdown(timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	s.logger.Info("http api shutting down")
	if err := s.echo.Shutdown(ctx); err != nil {
		return fmt.Errorf("http api shutdown failed: %w", err)
	}
	s.logger.Info("http api stopped")
	return nil
}
