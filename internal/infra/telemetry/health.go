package telemetry

import (
	"sort"
	"sync"
	"time"
)

// HealthTracker aggregates heartbeats from background loops.
type HealthTracker struct {
	mu    sync.Mutex
	beats map[string]*Heartbeat
}

// Heartbeat is one registered background loop.
type Heartbeat struct {
	tracker *HealthTracker
	name    string
	ttl     time.Duration

	mu   sync.Mutex
	last time.Time
}

// HealthCheck reports one heartbeat.
type HealthCheck struct {
	Name     string    `json:"name"`
	Status   string    `json:"status"`
	LastBeat time.Time `json:"lastBeat,omitempty"`
}

// HealthReport is served by /healthz.
type HealthReport struct {
	Status string        `json:"status"`
	Checks []HealthCheck `json:"checks,omitempty"`
}

func NewHealthTracker() *HealthTracker {
	return &HealthTracker{beats: make(map[string]*Heartbeat)}
}

// Register adds a heartbeat that is stale when not beaten within ttl.
func (h *HealthTracker) Register(name string, ttl time.Duration) *Heartbeat {
	beat := &Heartbeat{tracker: h, name: name, ttl: ttl}
	h.mu.Lock()
	h.beats[name] = beat
	h.mu.Unlock()
	return beat
}

func (h *HealthTracker) Report() HealthReport {
	h.mu.Lock()
	beats := make([]*Heartbeat, 0, len(h.beats))
	for _, beat := range h.beats {
		beats = append(beats, beat)
	}
	h.mu.Unlock()
	sort.Slice(beats, func(i, j int) bool { return beats[i].name < beats[j].name })

	report := HealthReport{Status: "ok"}
	now := time.Now()
	for _, beat := range beats {
		last := beat.lastBeat()
		check := HealthCheck{Name: beat.name, Status: "ok", LastBeat: last}
		if last.IsZero() || now.Sub(last) > beat.ttl {
			check.Status = "stale"
			report.Status = "degraded"
		}
		report.Checks = append(report.Checks, check)
	}
	return report
}

func (b *Heartbeat) Beat() {
	if b == nil {
		return
	}
	b.mu.Lock()
	b.last = time.Now()
	b.mu.Unlock()
}

// Stop unregisters the heartbeat.
func (b *Heartbeat) Stop() {
	if b == nil {
		return
	}
	b.tracker.mu.Lock()
	if b.tracker.beats[b.name] == b {
		delete(b.tracker.beats, b.name)
	}
	b.tracker.mu.Unlock()
}

func (b *Heartbeat) lastBeat() time.Time {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.last
}
