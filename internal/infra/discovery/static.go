package discovery

import (
	"context"
	"sort"
	"sync"

	"github.com/thefirstwind/mcp-client-demo/internal/domain"
)

// StaticRegistry serves services declared in configuration. Groups are ignored.
type StaticRegistry struct {
	mu       sync.RWMutex
	services map[string][]domain.RegistryInstance
}

func NewStaticRegistry(services []domain.StaticService) *StaticRegistry {
	r := &StaticRegistry{}
	r.Set(services)
	return r
}

// Set replaces the declared services.
func (r *StaticRegistry) Set(services []domain.StaticService) {
	next := make(map[string][]domain.RegistryInstance, len(services))
	for _, svc := range services {
		next[svc.Name] = append([]domain.RegistryInstance(nil), svc.Instances...)
	}
	r.mu.Lock()
	r.services = next
	r.mu.Unlock()
}

func (r *StaticRegistry) ListServices(ctx context.Context, _ string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.services))
	for name := range r.services {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func (r *StaticRegistry) ListInstances(ctx context.Context, serviceName string, _ string) ([]domain.RegistryInstance, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	instances, ok := r.services[serviceName]
	if !ok {
		return nil, domain.ErrServiceNotFound
	}
	return append([]domain.RegistryInstance(nil), instances...), nil
}

var _ domain.ServiceRegistry = (*StaticRegistry)(nil)
