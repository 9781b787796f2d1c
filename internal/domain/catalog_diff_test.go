package domain

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDiffServices(t *testing.T) {
	prev := map[string]Service{
		"order-mcp": {ServiceName: "order-mcp", Tools: []Tool{{Name: "getOrder"}}},
		"user-mcp":  {ServiceName: "user-mcp"},
		"stock-mcp": {ServiceName: "stock-mcp"},
	}
	next := map[string]Service{
		"order-mcp":   {ServiceName: "order-mcp", Tools: []Tool{{Name: "getOrder"}, {Name: "cancelOrder"}}},
		"user-mcp":    {ServiceName: "user-mcp"},
		"weather-mcp": {ServiceName: "weather-mcp"},
		"alpha-mcp":   {ServiceName: "alpha-mcp"},
	}

	diff := DiffServices(prev, next)
	require.Equal(t, []string{"alpha-mcp", "weather-mcp"}, diff.Added)
	require.Equal(t, []string{"stock-mcp"}, diff.Removed)
	require.Equal(t, []string{"order-mcp"}, diff.Updated)
	require.False(t, diff.IsEmpty())
}

func TestDiffServices_Unchanged(t *testing.T) {
	services := map[string]Service{"order-mcp": {ServiceName: "order-mcp", Domain: "order"}}
	require.True(t, DiffServices(services, services).IsEmpty())
	require.True(t, DiffServices(nil, nil).IsEmpty())
}
