package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/thefirstwind/mcp-client-demo/internal/domain"
)

type PrometheusMetrics struct {
	pollDuration      *prometheus.HistogramVec
	pollTotal         *prometheus.CounterVec
	catalogServices   prometheus.Gauge
	catalogTools      prometheus.Gauge
	cardSynthesis     *prometheus.CounterVec
	completionLatency *prometheus.HistogramVec
	completionTokens  *prometheus.CounterVec
	chatReplies       *prometheus.CounterVec
	providerDuration  *prometheus.HistogramVec
}

func NewPrometheusMetrics(registerer prometheus.Registerer) *PrometheusMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	factory := promauto.With(registerer)

	return &PrometheusMetrics{
		pollDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "mcpclient_registry_poll_duration_seconds",
				Help:    "Duration of registry poll cycles in seconds",
				Buckets: []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
			},
			[]string{"outcome"},
		),
		pollTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mcpclient_registry_polls_total",
				Help: "Total number of registry poll cycles",
			},
			[]string{"outcome"},
		),
		catalogServices: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "mcpclient_catalog_services",
				Help: "Number of services in the tool catalog",
			},
		),
		catalogTools: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "mcpclient_catalog_tools",
				Help: "Number of tools in the tool catalog",
			},
		),
		cardSynthesis: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mcpclient_card_synthesis_total",
				Help: "Total number of card synthesis attempts",
			},
			[]string{"type", "result"},
		),
		completionLatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "mcpclient_completion_latency_seconds",
				Help:    "Latency of completion calls in seconds",
				Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
			},
			[]string{"provider", "model"},
		),
		completionTokens: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mcpclient_completion_tokens_total",
				Help: "Total number of tokens consumed by completion calls",
			},
			[]string{"provider", "model"},
		),
		chatReplies: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mcpclient_chat_replies_total",
				Help: "Total number of chat replies by answer path",
			},
			[]string{"path"},
		),
		providerDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "mcpclient_provider_call_duration_seconds",
				Help:    "Duration of data provider tool calls in seconds",
				Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"tool", "status"},
		),
	}
}

func (p *PrometheusMetrics) ObservePoll(outcome domain.PollOutcome, duration time.Duration) {
	p.pollDuration.WithLabelValues(string(outcome)).Observe(duration.Seconds())
	p.pollTotal.WithLabelValues(string(outcome)).Inc()
}

func (p *PrometheusMetrics) SetCatalogSize(services int, tools int) {
	p.catalogServices.Set(float64(services))
	p.catalogTools.Set(float64(tools))
}

func (p *PrometheusMetrics) ObserveCardSynthesis(cardType domain.CardType, built bool) {
	result := "built"
	if !built {
		result = "missing"
	}
	p.cardSynthesis.WithLabelValues(string(cardType), result).Inc()
}

func (p *PrometheusMetrics) ObserveCompletionLatency(provider string, model string, duration time.Duration) {
	p.completionLatency.WithLabelValues(provider, model).Observe(duration.Seconds())
}

func (p *PrometheusMetrics) ObserveCompletionTokens(provider string, model string, tokens int) {
	p.completionTokens.WithLabelValues(provider, model).Add(float64(tokens))
}

func (p *PrometheusMetrics) ObserveChat(path domain.ChatPath) {
	p.chatReplies.WithLabelValues(string(path)).Inc()
}

func (p *PrometheusMetrics) ObserveProviderCall(tool string, duration time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	p.providerDuration.WithLabelValues(tool, status).Observe(duration.Seconds())
}

var _ domain.Metrics = (*PrometheusMetrics)(nil)
