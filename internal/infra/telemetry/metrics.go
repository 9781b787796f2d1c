package telemetry

import (
	"time"

	"github.com/thefirstwind/mcp-client-demo/internal/domain"
)

type NoopMetrics struct{}

func NewNoopMetrics() *NoopMetrics {
	return &NoopMetrics{}
}

func (n *NoopMetrics) ObservePoll(_ domain.PollOutcome, _ time.Duration) {}

func (n *NoopMetrics) SetCatalogSize(_ int, _ int) {}

func (n *NoopMetrics) ObserveCardSynthesis(_ domain.CardType, _ bool) {}

func (n *NoopMetrics) ObserveCompletionLatency(_ string, _ string, _ time.Duration) {}

func (n *NoopMetrics) ObserveCompletionTokens(_ string, _ string, _ int) {}

func (n *NoopMetrics) ObserveChat(_ domain.ChatPath) {}

func (n *NoopMetrics) ObserveProviderCall(_ string, _ time.Duration, _ error) {}

var _ domain.Metrics = (*NoopMetrics)(nil)
