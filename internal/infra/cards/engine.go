package cards

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/thefirstwind/mcp-client-demo/internal/domain"
	"github.com/thefirstwind/mcp-client-demo/internal/infra/telemetry"
)

// Options configures an Engine.
type Options struct {
	Store   *Store
	Orders  domain.OrderProvider
	Users   domain.UserProvider
	Logger  *zap.Logger
	Metrics domain.Metrics
	Now     func() time.Time
}

// Engine turns chat messages into structured cards and records them in the store.
type Engine struct {
	store   *Store
	orders  domain.OrderProvider
	users   domain.UserProvider
	logger  *zap.Logger
	metrics domain.Metrics
	now     func() time.Time
}

func NewEngine(opts Options) *Engine {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	metrics := opts.Metrics
	if metrics == nil {
		metrics = telemetry.NewNoopMetrics()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	store := opts.Store
	if store == nil {
		store = NewStore(now)
	}
	return &Engine{
		store:   store,
		orders:  opts.Orders,
		users:   opts.Users,
		logger:  logger.Named("cards"),
		metrics: metrics,
		now:     now,
	}
}

// Store returns the backing card store.
func (e *Engine) Store() *Store {
	return e.store
}

// DetectAndBuildCard builds at most one card for a message. An order keyword
// needs an order status word; a logistics keyword yields a tracking card when
// the message also asks for details. It returns nil when nothing applies.
func (e *Engine) DetectAndBuildCard(ctx context.Context, message string) (*domain.Card, error) {
	lower := strings.ToLower(message)
	switch {
	case containsAny(lower, orderKeywords) && containsAny(lower, detectOrderStatuses):
		return e.BuildOrderCard(ctx, message)
	case containsAny(lower, detectLogisticsKeywords):
		if containsAny(lower, trackingKeywords) {
			return e.BuildTrackingCard(ctx, message, nil)
		}
		return e.BuildLogisticsCard(ctx, message, nil)
	default:
		return nil, nil
	}
}

// persistBuilt stamps and stores a freshly built card.
func (e *Engine) persistBuilt(card domain.Card) (*domain.Card, error) {
	if card.ID == "" {
		card.ID = uuid.NewString()
	}
	if card.CreatedTime.IsZero() {
		card.CreatedTime = e.now()
	}
	saved, err := e.store.Save(card)
	if err != nil {
		e.metrics.ObserveCardSynthesis(card.Type, false)
		return nil, err
	}
	e.metrics.ObserveCardSynthesis(saved.Type, true)
	e.logger.Debug("card built",
		telemetry.EventField(telemetry.EventCardBuilt),
		telemetry.CardIDField(saved.ID),
		telemetry.CardTypeField(string(saved.Type)),
	)
	return &saved, nil
}
