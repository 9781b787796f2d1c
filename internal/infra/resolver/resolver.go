package resolver

import (
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/thefirstwind/mcp-client-demo/internal/domain"
)

const (
	toolNameWeight    = 3
	descriptionWeight = 1
	minDescWordRunes  = 4
)

// Resolve picks the business domain most relevant to a message.
//
// A domain name contained in the message wins outright, first in group order.
// Otherwise each domain scores toolNameWeight for every tool name found in the
// message and descriptionWeight for every description word longer than three
// characters found in it. The strictly highest score wins and ties keep the
// earlier group. Callers pass groups sorted by domain name.
func Resolve(message string, groups []domain.DomainTools) (string, bool) {
	if len(groups) == 0 {
		return "", false
	}
	lower := strings.ToLower(message)

	for _, group := range groups {
		if group.Domain == "" {
			continue
		}
		if strings.Contains(lower, strings.ToLower(group.Domain)) {
			return group.Domain, true
		}
	}

	best := ""
	bestScore := 0
	for _, group := range groups {
		score := Score(lower, group.Tools)
		if score > bestScore {
			best = group.Domain
			bestScore = score
		}
	}
	if bestScore == 0 {
		return "", false
	}
	return best, true
}

// Score rates how well the tools of one domain match a lower-cased message.
func Score(lowerMessage string, tools []domain.Tool) int {
	score := 0
	for _, tool := range tools {
		name := strings.ToLower(tool.Name)
		if name != "" && strings.Contains(lowerMessage, name) {
			score += toolNameWeight
		}
		for _, word := range strings.Fields(strings.ToLower(tool.Description)) {
			if utf8.RuneCountInString(word) >= minDescWordRunes && strings.Contains(lowerMessage, word) {
				score += descriptionWeight
			}
		}
	}
	return score
}

// Resolver resolves domains against the live tool catalog.
type Resolver struct {
	catalog domain.CatalogReader
	logger  *zap.Logger
}

func New(catalog domain.CatalogReader, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{catalog: catalog, logger: logger.Named("resolver")}
}

// ResolveDomain returns the best domain for the message, or false.
func (r *Resolver) ResolveDomain(message string) (string, bool) {
	domainName, ok := Resolve(message, r.catalog.ToolsGroupedByDomain())
	if ok {
		r.logger.Debug("domain resolved", zap.String("domain", domainName))
	}
	return domainName, ok
}
