package telemetry

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thefirstwind/mcp-client-demo/internal/domain"
)

func TestNewPrometheusMetrics(t *testing.T) {
	m := NewPrometheusMetrics(prometheus.NewRegistry())
	assert.NotNil(t, m)
	assert.NotNil(t, m.pollDuration)
	assert.NotNil(t, m.pollTotal)
	assert.NotNil(t, m.catalogServices)
	assert.NotNil(t, m.catalogTools)
	assert.NotNil(t, m.cardSynthesis)
	assert.NotNil(t, m.completionLatency)
	assert.NotNil(t, m.completionTokens)
	assert.NotNil(t, m.chatReplies)
	assert.NotNil(t, m.providerDuration)
}

func TestNewPrometheusMetrics_UsesProvidedRegistry(t *testing.T) {
	registry := prometheus.NewRegistry()

	m := NewPrometheusMetrics(registry)
	m.ObservePoll(domain.PollOutcomeSuccess, 20*time.Millisecond)
	m.SetCatalogSize(2, 5)
	m.ObserveCardSynthesis(domain.CardTypeOrder, true)
	m.ObserveCompletionLatency("openai", "deepseek-chat", 500*time.Millisecond)
	m.ObserveCompletionTokens("openai", "deepseek-chat", 128)
	m.ObserveChat(domain.ChatPathCard)
	m.ObserveProviderCall("getUserById", 10*time.Millisecond, nil)

	metrics, err := registry.Gather()
	require.NoError(t, err)

	names := make([]string, 0, len(metrics))
	for _, m := range metrics {
		names = append(names, m.GetName())
	}

	assert.Contains(t, names, "mcpclient_registry_poll_duration_seconds")
	assert.Contains(t, names, "mcpclient_registry_polls_total")
	assert.Contains(t, names, "mcpclient_catalog_services")
	assert.Contains(t, names, "mcpclient_catalog_tools")
	assert.Contains(t, names, "mcpclient_card_synthesis_total")
	assert.Contains(t, names, "mcpclient_completion_latency_seconds")
	assert.Contains(t, names, "mcpclient_completion_tokens_total")
	assert.Contains(t, names, "mcpclient_chat_replies_total")
	assert.Contains(t, names, "mcpclient_provider_call_duration_seconds")
}

func TestPrometheusMetrics_ImplementsInterface(t *testing.T) {
	var _ domain.Metrics = (*PrometheusMetrics)(nil)
	var _ domain.Metrics = (*NoopMetrics)(nil)
}

func TestPrometheusMetrics_CatalogGauges(t *testing.T) {
	m := NewPrometheusMetrics(prometheus.NewRegistry())

	m.SetCatalogSize(3, 7)
	assert.Equal(t, float64(3), testutil.ToFloat64(m.catalogServices))
	assert.Equal(t, float64(7), testutil.ToFloat64(m.catalogTools))

	m.SetCatalogSize(0, 0)
	assert.Equal(t, float64(0), testutil.ToFloat64(m.catalogServices))
}

func TestPrometheusMetrics_CardSynthesisLabels(t *testing.T) {
	m := NewPrometheusMetrics(prometheus.NewRegistry())

	m.ObserveCardSynthesis(domain.CardTypeOrder, true)
	m.ObserveCardSynthesis(domain.CardTypeOrder, false)
	m.ObserveCardSynthesis(domain.CardTypeOrder, false)

	assert.Equal(t, float64(1), testutil.ToFloat64(m.cardSynthesis.WithLabelValues("order", "built")))
	assert.Equal(t, float64(2), testutil.ToFloat64(m.cardSynthesis.WithLabelValues("order", "missing")))
}

func TestPrometheusMetrics_ProviderCallStatus(t *testing.T) {
	m := NewPrometheusMetrics(prometheus.NewRegistry())
	assert.NotPanics(t, func() {
		m.ObserveProviderCall("getOrder", time.Millisecond, nil)
		m.ObserveProviderCall("getOrder", time.Millisecond, assert.AnError)
	})
	assert.Equal(t, 2, testutil.CollectAndCount(m.providerDuration))
}

func TestNoopMetrics(t *testing.T) {
	n := NewNoopMetrics()
	assert.NotPanics(t, func() {
		n.ObservePoll(domain.PollOutcomeError, time.Second)
		n.SetCatalogSize(1, 1)
		n.ObserveCardSynthesis(domain.CardTypeTracking, false)
		n.ObserveCompletionLatency("openai", "m", time.Second)
		n.ObserveCompletionTokens("openai", "m", 1)
		n.ObserveChat(domain.ChatPathError)
		n.ObserveProviderCall("t", time.Second, nil)
	})
}
