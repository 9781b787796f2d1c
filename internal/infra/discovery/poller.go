package discovery

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/thefirstwind/mcp-client-demo/internal/domain"
	"github.com/thefirstwind/mcp-client-demo/internal/infra/telemetry"
	"github.com/thefirstwind/mcp-client-demo/internal/infra/toolcatalog"
)

// CatalogWriter receives the services built by each poll cycle.
type CatalogWriter interface {
	ReplaceAll(services []domain.Service) domain.CatalogDiff
}

type PollerOptions struct {
	Registry      domain.ServiceRegistry
	Catalog       CatalogWriter
	Group         string
	TargetDomains []string
	Interval      time.Duration
	Concurrency   int
	FetchTimeout  time.Duration
	Gate          *PollGate
	Health        *telemetry.HealthTracker
	Logger        *zap.Logger
	Metrics       domain.Metrics
}

// Poller refreshes the tool catalog from the service registry once at start
// and then on every tick. Cycles never overlap.
type Poller struct {
	registry     domain.ServiceRegistry
	catalog      CatalogWriter
	group        string
	interval     time.Duration
	concurrency  int
	fetchTimeout time.Duration
	gate         *PollGate
	health       *telemetry.HealthTracker
	logger       *zap.Logger
	metrics      domain.Metrics

	mu        sync.Mutex
	targets   []string
	started   bool
	ticker    *time.Ticker
	stop      chan struct{}
	heartbeat *telemetry.Heartbeat
	lastRun   time.Time
	lastErr   error
}

// PollStatus describes the last completed cycle.
type PollStatus struct {
	LastRun time.Time `json:"lastRun"`
	Error   string    `json:"error,omitempty"`
}

func NewPoller(opts PollerOptions) *Poller {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	metrics := opts.Metrics
	if metrics == nil {
		metrics = telemetry.NewNoopMetrics()
	}
	gate := opts.Gate
	if gate == nil {
		gate = NewPollGate()
	}
	fetchTimeout := opts.FetchTimeout
	if fetchTimeout <= 0 {
		fetchTimeout = time.Duration(domain.DefaultRegistryTimeoutSeconds) * time.Second
	}
	return &Poller{
		registry:     opts.Registry,
		catalog:      opts.Catalog,
		group:        opts.Group,
		interval:     opts.Interval,
		concurrency:  opts.Concurrency,
		fetchTimeout: fetchTimeout,
		gate:         gate,
		health:       opts.Health,
		logger:       logger.Named("discovery"),
		metrics:      metrics,
		targets:      normalizeTargets(opts.TargetDomains),
		stop:         make(chan struct{}),
	}
}

// Start runs one synchronous poll and then schedules the periodic ticker.
func (p *Poller) Start(ctx context.Context) {
	p.mu.Lock()
	if p.started {
		p.mu.Unlock()
		return
	}
	p.started = true
	if p.stop == nil {
		p.stop = make(chan struct{})
	}
	stopCh := p.stop
	if p.interval > 0 && p.health != nil && p.heartbeat == nil {
		p.heartbeat = p.health.Register("registry.poll", p.interval*3)
	}
	heartbeat := p.heartbeat
	p.mu.Unlock()

	heartbeat.Beat()
	if _, err := p.Refresh(ctx); err != nil {
		p.logger.Warn("initial registry poll failed", zap.Error(err))
	}
	if p.interval <= 0 {
		return
	}

	p.mu.Lock()
	if p.ticker != nil {
		p.mu.Unlock()
		return
	}
	ticker := time.NewTicker(p.interval)
	p.ticker = ticker
	p.mu.Unlock()

	go func() {
		for {
			select {
			case <-ticker.C:
				heartbeat.Beat()
				if _, err := p.Refresh(ctx); err != nil {
					p.logger.Warn("registry poll failed", zap.Error(err))
				}
			case <-stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
}

func (p *Poller) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ticker != nil {
		p.ticker.Stop()
		p.ticker = nil
	}
	if p.heartbeat != nil {
		p.heartbeat.Stop()
		p.heartbeat = nil
	}
	if p.stop != nil {
		close(p.stop)
		p.stop = nil
	}
	p.started = false
}

// SetTargetDomains replaces the service-name filter used by later cycles.
func (p *Poller) SetTargetDomains(targets []string) {
	normalized := normalizeTargets(targets)
	p.mu.Lock()
	p.targets = normalized
	p.mu.Unlock()
	p.logger.Info("target domains updated", zap.Strings("targetDomains", normalized))
}

func (p *Poller) TargetDomains() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.targets...)
}

func (p *Poller) Status() PollStatus {
	p.mu.Lock()
	defer p.mu.Unlock()
	status := PollStatus{LastRun: p.lastRun}
	if p.lastErr != nil {
		status.Error = p.lastErr.Error()
	}
	return status
}

// Refresh runs one poll cycle and returns the number of services stored.
// A registry listing failure leaves the catalog untouched.
func (p *Poller) Refresh(ctx context.Context) (int, error) {
	if err := p.gate.Acquire(ctx); err != nil {
		return 0, err
	}
	defer p.gate.Release()

	start := time.Now()
	count, outcome, err := p.poll(ctx)
	duration := time.Since(start)
	p.metrics.ObservePoll(outcome, duration)

	p.mu.Lock()
	p.lastRun = start
	p.lastErr = err
	p.mu.Unlock()

	if err != nil {
		p.logger.Warn("registry poll failed",
			telemetry.EventField(telemetry.EventPollFailure),
			telemetry.DurationField(duration),
			zap.Error(err),
		)
		return 0, err
	}
	p.logger.Info("registry poll completed",
		telemetry.EventField(telemetry.EventPollSuccess),
		zap.Int(telemetry.FieldServices, count),
		zap.String("outcome", string(outcome)),
		telemetry.DurationField(duration),
	)
	return count, nil
}

type fetchResult struct {
	name    string
	service domain.Service
	skip    bool
	err     error
}

func (p *Poller) poll(ctx context.Context) (int, domain.PollOutcome, error) {
	if p.registry == nil {
		return 0, domain.PollOutcomeError, fmt.Errorf("%w: no registry configured", domain.ErrRegistryUnavailable)
	}
	names, err := p.registry.ListServices(ctx, p.group)
	if err != nil {
		if !errors.Is(err, domain.ErrRegistryUnavailable) {
			err = fmt.Errorf("%w: %v", domain.ErrRegistryUnavailable, err)
		}
		return 0, domain.PollOutcomeError, err
	}

	names = filterServices(names, p.TargetDomains())
	results := p.fetchAll(ctx, names)

	services := make([]domain.Service, 0, len(results))
	failures := 0
	tools := 0
	for _, res := range results {
		switch {
		case res.err != nil:
			failures++
			p.logger.Warn("service fetch failed",
				telemetry.EventField(telemetry.EventServiceFailure),
				telemetry.ServiceField(res.name),
				zap.Error(res.err),
			)
		case res.skip:
			p.logger.Debug("service has no instances",
				telemetry.EventField(telemetry.EventServiceSkipped),
				telemetry.ServiceField(res.name),
			)
		default:
			services = append(services, res.service)
			tools += len(res.service.Tools)
		}
	}
	if err := ctx.Err(); err != nil {
		return 0, domain.PollOutcomeError, err
	}

	diff := p.catalog.ReplaceAll(services)
	p.metrics.SetCatalogSize(len(services), tools)
	if !diff.IsEmpty() {
		p.logger.Info("tool catalog changed",
			telemetry.EventField(telemetry.EventCatalogChanged),
			zap.Strings("added", diff.Added),
			zap.Strings("removed", diff.Removed),
			zap.Strings("updated", diff.Updated),
		)
	}

	outcome := domain.PollOutcomeSuccess
	if failures > 0 {
		outcome = domain.PollOutcomePartial
	}
	return len(services), outcome, nil
}

func (p *Poller) fetchAll(ctx context.Context, names []string) []fetchResult {
	workers := fetchWorkerCount(p.concurrency, len(names))
	if workers == 0 {
		return nil
	}

	jobs := make(chan string, len(names))
	out := make(chan fetchResult, len(names))
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for name := range jobs {
				if ctx.Err() != nil {
					out <- fetchResult{name: name, err: ctx.Err()}
					continue
				}
				out <- p.fetchService(ctx, name)
			}
		}()
	}
	for _, name := range names {
		jobs <- name
	}
	close(jobs)
	wg.Wait()
	close(out)

	results := make([]fetchResult, 0, len(names))
	for res := range out {
		results = append(results, res)
	}
	sort.Slice(results, func(i, j int) bool { return results[i].name < results[j].name })
	return results
}

func (p *Poller) fetchService(ctx context.Context, name string) (res fetchResult) {
	res.name = name
	defer func() {
		if r := recover(); r != nil {
			res.err = fmt.Errorf("decode service %s: %v", name, r)
		}
	}()

	fetchCtx, cancel := context.WithTimeout(ctx, p.fetchTimeout)
	defer cancel()

	instances, err := p.registry.ListInstances(fetchCtx, name, p.group)
	if err != nil {
		res.err = fmt.Errorf("list instances: %w", err)
		return res
	}
	if len(instances) == 0 {
		res.skip = true
		return res
	}

	svc, warnings := toolcatalog.BuildService(name, instances)
	for _, warning := range warnings {
		p.logger.Warn("tool metadata dropped", telemetry.ServiceField(name), zap.String("detail", warning))
	}
	res.service = svc
	return res
}

func filterServices(names []string, targets []string) []string {
	if len(targets) == 0 {
		return append([]string(nil), names...)
	}
	var out []string
	for _, name := range names {
		lower := strings.ToLower(name)
		for _, target := range targets {
			if strings.Contains(lower, target) {
				out = append(out, name)
				break
			}
		}
	}
	return out
}

func normalizeTargets(targets []string) []string {
	var out []string
	for _, target := range targets {
		target = strings.ToLower(strings.TrimSpace(target))
		if target != "" {
			out = append(out, target)
		}
	}
	return out
}
