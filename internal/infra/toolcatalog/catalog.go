package toolcatalog

import (
	"sort"
	"strings"
	"sync/atomic"

	"github.com/thefirstwind/mcp-client-demo/internal/domain"
)

type catalogState struct {
	services   map[string]domain.Service
	order      []string
	generation uint64
}

// Catalog is the shared in-memory view of discovered services and tools.
// A single poller writes through ReplaceAll; readers load an immutable state
// and always receive copies.
type Catalog struct {
	state atomic.Value
}

// Stats summarizes the current catalog content.
type Stats struct {
	Services   int    `json:"services"`
	Tools      int    `json:"tools"`
	Domains    int    `json:"domains"`
	Generation uint64 `json:"generation"`
}

func NewCatalog() *Catalog {
	c := &Catalog{}
	c.state.Store(catalogState{services: map[string]domain.Service{}})
	return c
}

func (c *Catalog) load() catalogState {
	return c.state.Load().(catalogState)
}

// ReplaceAll swaps the whole service mapping in a single store and reports
// what changed relative to the previous mapping.
func (c *Catalog) ReplaceAll(services []domain.Service) domain.CatalogDiff {
	prev := c.load()
	next := catalogState{
		services:   make(map[string]domain.Service, len(services)),
		order:      make([]string, 0, len(services)),
		generation: prev.generation + 1,
	}
	for _, svc := range services {
		if _, exists := next.services[svc.ServiceName]; !exists {
			next.order = append(next.order, svc.ServiceName)
		}
		next.services[svc.ServiceName] = svc.Clone()
	}
	sort.Strings(next.order)
	c.state.Store(next)
	return domain.DiffServices(prev.services, next.services)
}

// AllServices returns every service ordered by service name.
func (c *Catalog) AllServices() []domain.Service {
	state := c.load()
	out := make([]domain.Service, 0, len(state.order))
	for _, name := range state.order {
		out = append(out, state.services[name].Clone())
	}
	return out
}

// AllTools returns every tool, grouped by service in name order.
func (c *Catalog) AllTools() []domain.Tool {
	return c.ToolsByDomain("")
}

// ToolsByDomain returns the tools of services whose domain equals the given
// name case-insensitively. An empty domain returns all tools.
func (c *Catalog) ToolsByDomain(domainName string) []domain.Tool {
	state := c.load()
	domainName = strings.TrimSpace(domainName)
	out := []domain.Tool{}
	for _, name := range state.order {
		svc := state.services[name]
		if domainName != "" && !strings.EqualFold(svc.Domain, domainName) {
			continue
		}
		for _, tool := range svc.Tools {
			out = append(out, tool.Clone())
		}
	}
	return out
}

func (c *Catalog) ServiceByName(name string) (domain.Service, bool) {
	svc, ok := c.load().services[name]
	if !ok {
		return domain.Service{}, false
	}
	return svc.Clone(), true
}

// ToolByName returns the first tool with the given name. Services are
// scanned in name order, so duplicates resolve to the lowest service name.
func (c *Catalog) ToolByName(name string) (domain.Tool, bool) {
	state := c.load()
	for _, svcName := range state.order {
		for _, tool := range state.services[svcName].Tools {
			if tool.Name == name {
				return tool.Clone(), true
			}
		}
	}
	return domain.Tool{}, false
}

// ToolsGroupedByDomain returns one group per domain, sorted by domain name.
func (c *Catalog) ToolsGroupedByDomain() []domain.DomainTools {
	state := c.load()
	index := make(map[string]int)
	var groups []domain.DomainTools
	for _, name := range state.order {
		svc := state.services[name]
		pos, ok := index[svc.Domain]
		if !ok {
			pos = len(groups)
			index[svc.Domain] = pos
			groups = append(groups, domain.DomainTools{Domain: svc.Domain, Tools: []domain.Tool{}})
		}
		for _, tool := range svc.Tools {
			groups[pos].Tools = append(groups[pos].Tools, tool.Clone())
		}
	}
	sort.SliceStable(groups, func(i, j int) bool { return groups[i].Domain < groups[j].Domain })
	return groups
}

func (c *Catalog) Stats() Stats {
	state := c.load()
	stats := Stats{Services: len(state.services), Generation: state.generation}
	domains := make(map[string]struct{})
	for _, svc := range state.services {
		stats.Tools += len(svc.Tools)
		domains[svc.Domain] = struct{}{}
	}
	stats.Domains = len(domains)
	return stats
}

var _ domain.CatalogReader = (*Catalog)(nil)
