package domain

import (
	"context"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// ServiceRegistry is the external service discovery system.
type ServiceRegistry interface {
	ListServices(ctx context.Context, group string) ([]string, error)
	ListInstances(ctx context.Context, serviceName string, group string) ([]RegistryInstance, error)
}

// CatalogReader exposes read-only queries over the tool catalog.
type CatalogReader interface {
	AllServices() []Service
	AllTools() []Tool
	ToolsByDomain(domain string) []Tool
	ToolByName(name string) (Tool, bool)
	ToolsGroupedByDomain() []DomainTools
}

// CompletionClient performs one synchronous chat completion.
type CompletionClient interface {
	Complete(ctx context.Context, messages []CompletionMessage) (string, error)
}

// OrderProvider looks up an order by its number. A missing order yields ErrRecordNotFound.
type OrderProvider interface {
	OrderByNumber(ctx context.Context, orderNo string) (Record, error)
}

// UserProvider looks up a user by id. A missing user yields ErrRecordNotFound.
type UserProvider interface {
	UserByID(ctx context.Context, id int64) (Record, error)
}

// ConversationStore keeps per-session chat history.
type ConversationStore interface {
	Append(sessionID string, turn ConversationTurn)
	History(sessionID string) []ConversationTurn
	Clear(sessionID string)
}

// Record is a loosely typed provider payload. Field presence is checked on access.
type Record map[string]any

// String returns the field as text, formatting numbers when needed.
func (r Record) String(key string) (string, bool) {
	v, ok := r[key]
	if !ok || v == nil {
		return "", false
	}
	switch val := v.(type) {
	case string:
		return val, true
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64), true
	case json.Number:
		return val.String(), true
	case int:
		return strconv.Itoa(val), true
	case int64:
		return strconv.FormatInt(val, 10), true
	case bool:
		return strconv.FormatBool(val), true
	default:
		return "", false
	}
}

// Int returns the field as an integer.
func (r Record) Int(key string) (int64, bool) {
	v, ok := r[key]
	if !ok || v == nil {
		return 0, false
	}
	switch val := v.(type) {
	case float64:
		return int64(math.Trunc(val)), true
	case int:
		return int64(val), true
	case int64:
		return val, true
	case json.Number:
		if n, err := val.Int64(); err == nil {
			return n, true
		}
		if f, err := val.Float64(); err == nil {
			return int64(f), true
		}
	case string:
		if n, err := strconv.ParseInt(strings.TrimSpace(val), 10, 64); err == nil {
			return n, true
		}
	}
	return 0, false
}

// Float returns the field as a float.
func (r Record) Float(key string) (float64, bool) {
	v, ok := r[key]
	if !ok || v == nil {
		return 0, false
	}
	switch val := v.(type) {
	case float64:
		return val, true
	case int:
		return float64(val), true
	case int64:
		return float64(val), true
	case json.Number:
		if f, err := val.Float64(); err == nil {
			return f, true
		}
	case string:
		if f, err := strconv.ParseFloat(strings.TrimSpace(val), 64); err == nil {
			return f, true
		}
	}
	return 0, false
}
