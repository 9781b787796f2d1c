package discovery

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/thefirstwind/mcp-client-demo/internal/domain"
	"github.com/thefirstwind/mcp-client-demo/internal/infra/telemetry"
	"github.com/thefirstwind/mcp-client-demo/internal/infra/toolcatalog"
)

type fakeRegistry struct {
	mu        sync.Mutex
	services  map[string][]domain.RegistryInstance
	listErr   error
	failing   map[string]error
	listCalls atomic.Int32
	groups    []string
}

func (f *fakeRegistry) ListServices(_ context.Context, group string) ([]string, error) {
	f.listCalls.Add(1)
	f.mu.Lock()
	defer f.mu.Unlock()
	f.groups = append(f.groups, group)
	if f.listErr != nil {
		return nil, f.listErr
	}
	names := make([]string, 0, len(f.services))
	for name := range f.services {
		names = append(names, name)
	}
	return names, nil
}

func (f *fakeRegistry) ListInstances(_ context.Context, name string, _ string) ([]domain.RegistryInstance, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failing[name]; err != nil {
		return nil, err
	}
	return f.services[name], nil
}

func (f *fakeRegistry) set(fn func(f *fakeRegistry)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fn(f)
}

func toolInstance(tools ...string) []domain.RegistryInstance {
	meta := map[string]string{"mcp-tools-count": strconv.Itoa(len(tools))}
	for i, tool := range tools {
		meta[fmt.Sprintf("tool-%d-name", i)] = tool
	}
	return []domain.RegistryInstance{{IP: "127.0.0.1", Port: 9000, Healthy: true, Metadata: meta}}
}

func newTestPoller(reg domain.ServiceRegistry, catalog *toolcatalog.Catalog, targets []string) *Poller {
	return NewPoller(PollerOptions{
		Registry:      reg,
		Catalog:       catalog,
		Group:         "mcp-server",
		TargetDomains: targets,
		Logger:        zap.NewNop(),
	})
}

func TestPoller_RefreshBuildsCatalog(t *testing.T) {
	reg := &fakeRegistry{services: map[string][]domain.RegistryInstance{
		"order-mcp": toolInstance("getOrder", "cancelOrder"),
		"user-mcp":  toolInstance("getUserById"),
	}}
	catalog := toolcatalog.NewCatalog()

	count, err := newTestPoller(reg, catalog, nil).Refresh(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, count)
	require.Len(t, catalog.ToolsByDomain("order"), 2)
	require.Len(t, catalog.ToolsByDomain("user"), 1)
	require.Equal(t, []string{"mcp-server"}, reg.groups)
}

func TestPoller_FiltersByTargetDomain(t *testing.T) {
	reg := &fakeRegistry{services: map[string][]domain.RegistryInstance{
		"Order-mcp":   toolInstance("getOrder"),
		"user-mcp":    toolInstance("getUserById"),
		"payment-mcp": toolInstance("pay"),
	}}
	catalog := toolcatalog.NewCatalog()
	poller := newTestPoller(reg, catalog, []string{" ORDER ", ""})

	count, err := poller.Refresh(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, count)
	_, ok := catalog.ServiceByName("Order-mcp")
	require.True(t, ok)

	poller.SetTargetDomains([]string{"user", "pay"})
	count, err = poller.Refresh(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, count)
	_, ok = catalog.ServiceByName("Order-mcp")
	require.False(t, ok)
}

func TestPoller_SkipsEmptyAndIsolatesFailures(t *testing.T) {
	reg := &fakeRegistry{
		services: map[string][]domain.RegistryInstance{
			"order-mcp":  toolInstance("getOrder"),
			"empty-mcp":  nil,
			"broken-mcp": toolInstance("x"),
		},
		failing: map[string]error{"broken-mcp": errors.New("boom")},
	}
	catalog := toolcatalog.NewCatalog()

	count, err := newTestPoller(reg, catalog, nil).Refresh(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, count)
	_, ok := catalog.ServiceByName("order-mcp")
	require.True(t, ok)
	_, ok = catalog.ServiceByName("empty-mcp")
	require.False(t, ok)
}

func TestPoller_RegistryUnavailableKeepsStaleCatalog(t *testing.T) {
	reg := &fakeRegistry{services: map[string][]domain.RegistryInstance{
		"order-mcp": toolInstance("getOrder"),
	}}
	catalog := toolcatalog.NewCatalog()
	poller := newTestPoller(reg, catalog, nil)

	_, err := poller.Refresh(context.Background())
	require.NoError(t, err)

	reg.set(func(f *fakeRegistry) { f.listErr = errors.New("connection refused") })
	_, err = poller.Refresh(context.Background())
	require.ErrorIs(t, err, domain.ErrRegistryUnavailable)
	require.Len(t, catalog.AllTools(), 1)
	require.NotEmpty(t, poller.Status().Error)
}

func TestPoller_StartPollsSynchronouslyThenTicks(t *testing.T) {
	reg := &fakeRegistry{services: map[string][]domain.RegistryInstance{
		"order-mcp": toolInstance("getOrder"),
	}}
	catalog := toolcatalog.NewCatalog()
	health := telemetry.NewHealthTracker()
	poller := NewPoller(PollerOptions{
		Registry: reg,
		Catalog:  catalog,
		Interval: 20 * time.Millisecond,
		Health:   health,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	poller.Start(ctx)
	require.Len(t, catalog.AllTools(), 1)
	require.Equal(t, "ok", health.Report().Status)

	reg.set(func(f *fakeRegistry) {
		f.services["user-mcp"] = toolInstance("getUserById")
	})
	require.Eventually(t, func() bool {
		return len(catalog.AllTools()) == 2
	}, 2*time.Second, 10*time.Millisecond)

	poller.Stop()
	calls := reg.listCalls.Load()
	time.Sleep(80 * time.Millisecond)
	require.LessOrEqual(t, reg.listCalls.Load(), calls+1)
	require.Empty(t, health.Report().Checks)
}

func TestPoller_NilRegistry(t *testing.T) {
	_, err := newTestPoller(nil, toolcatalog.NewCatalog(), nil).Refresh(context.Background())
	require.ErrorIs(t, err, domain.ErrRegistryUnavailable)
}

func TestPollGate_Serializes(t *testing.T) {
	gate := NewPollGate()
	require.NoError(t, gate.Acquire(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	require.ErrorIs(t, gate.Acquire(ctx), context.DeadlineExceeded)

	gate.Release()
	require.NoError(t, gate.Acquire(context.Background()))
	gate.Release()
}

func TestFilterServices(t *testing.T) {
	names := []string{"order-mcp", "user-mcp", "logistics-mcp"}
	require.Equal(t, names, filterServices(names, nil))
	require.Equal(t, []string{"order-mcp"}, filterServices(names, []string{"ord"}))
	require.Empty(t, filterServices(names, []string{"payment"}))
}
