package resolver

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/thefirstwind/mcp-client-demo/internal/domain"
	"github.com/thefirstwind/mcp-client-demo/internal/infra/toolcatalog"
)

func group(name string, tools ...domain.Tool) domain.DomainTools {
	return domain.DomainTools{Domain: name, Tools: tools}
}

func tool(name, description string) domain.Tool {
	return domain.Tool{Name: name, Description: description}
}

func TestResolve_EmptyCatalog(t *testing.T) {
	for _, msg := range []string{"", "order status", "查询订单"} {
		_, ok := Resolve(msg, nil)
		require.False(t, ok)
	}
}

func TestResolve_DirectMatchBeatsScores(t *testing.T) {
	groups := []domain.DomainTools{
		group("order", tool("getOrder", "fetch order details")),
		group("user", tool("getUserById", "lookup user profile details")),
	}

	got, ok := Resolve("please call getUserById and check the ORDER", groups)
	require.True(t, ok)
	require.Equal(t, "order", got)
}

func TestResolve_DirectMatchFirstInGroupOrder(t *testing.T) {
	groups := []domain.DomainTools{group("logistics"), group("order")}

	got, ok := Resolve("order logistics", groups)
	require.True(t, ok)
	require.Equal(t, "logistics", got)
}

func TestResolve_ScoresToolNamesAndDescriptions(t *testing.T) {
	groups := []domain.DomainTools{
		group("billing", tool("createInvoice", "create invoice for payment")),
		group("account", tool("getProfile", "read profile settings")),
	}

	got, ok := Resolve("I want to createinvoice now", groups)
	require.True(t, ok)
	require.Equal(t, "billing", got)

	got, ok = Resolve("change my profile settings", groups)
	require.True(t, ok)
	require.Equal(t, "account", got)
}

func TestResolve_ShortDescriptionWordsIgnored(t *testing.T) {
	groups := []domain.DomainTools{group("billing", tool("x1", "get the map for you"))}

	_, ok := Resolve("get the map for you", groups)
	require.False(t, ok)
}

func TestResolve_TieKeepsFirstGroup(t *testing.T) {
	groups := []domain.DomainTools{
		group("alpha", tool("a", "shared keyword")),
		group("beta", tool("b", "shared keyword")),
	}

	got, ok := Resolve("shared", groups)
	require.True(t, ok)
	require.Equal(t, "alpha", got)
}

func TestResolve_NoScore(t *testing.T) {
	groups := []domain.DomainTools{group("billing", tool("createInvoice", "create invoice"))}

	_, ok := Resolve("hello there", groups)
	require.False(t, ok)
}

func TestScore(t *testing.T) {
	tools := []domain.Tool{
		tool("getOrder", "fetch order details"),
		tool("cancelOrder", "cancel order"),
	}
	// getorder +3, fetch +1, order +1 for each tool.
	require.Equal(t, 6, Score("getorder fetch order", tools))
}

func TestResolver_UsesCatalog(t *testing.T) {
	catalog := toolcatalog.NewCatalog()
	r := New(catalog, zap.NewNop())

	_, ok := r.ResolveDomain("anything about order")
	require.False(t, ok)

	catalog.ReplaceAll([]domain.Service{
		{ServiceName: "user-mcp", Domain: "user", Tools: []domain.Tool{{Name: "getUserById", Description: "lookup user"}}},
		{ServiceName: "order-mcp", Domain: "order", Tools: []domain.Tool{{Name: "getOrder"}}},
	})

	got, ok := r.ResolveDomain("Where is my ORDER?")
	require.True(t, ok)
	require.Equal(t, "order", got)

	got, ok = r.ResolveDomain("please getuserbyid 7")
	require.True(t, ok)
	require.Equal(t, "user", got)
}
