package cards

import (
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thefirstwind/mcp-client-demo/internal/domain"
)

func TestStore_SaveAssignsIdentity(t *testing.T) {
	store := NewStore(func() time.Time { return fixedNow })

	saved, err := store.Save(domain.Card{
		CardHeader: domain.CardHeader{Type: domain.CardTypeOrder, Title: "订单详情"},
		Order:      &domain.OrderCard{OrderNumber: "OD1", Items: []domain.OrderItem{{ProductName: "智能手表"}}},
	})
	require.NoError(t, err)
	require.NotEmpty(t, saved.ID)
	require.Equal(t, fixedNow, saved.CreatedTime)

	got, ok := store.Get(saved.ID)
	require.True(t, ok)
	if diff := cmp.Diff(saved, got); diff != "" {
		t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
	}

	got.Order.Items[0].ProductName = "changed"
	again, _ := store.Get(saved.ID)
	require.Equal(t, "智能手表", again.Order.Items[0].ProductName)
}

func TestStore_SaveRejectsMismatchedVariant(t *testing.T) {
	store := NewStore(nil)
	_, err := store.Save(domain.Card{CardHeader: domain.CardHeader{Type: domain.CardTypeTracking}})
	require.Error(t, err)
	require.Zero(t, store.Len())
}

func TestStore_UpsertDeleteAndList(t *testing.T) {
	store := NewStore(nil)
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	_, err := store.Save(domain.Card{
		CardHeader: domain.CardHeader{ID: "b", Type: domain.CardTypeLogistics, CreatedTime: base.Add(time.Hour)},
		Logistics:  &domain.LogisticsCard{Status: "运输中"},
	})
	require.NoError(t, err)
	_, err = store.Save(domain.Card{
		CardHeader: domain.CardHeader{ID: "a", Type: domain.CardTypeOrder, CreatedTime: base},
		Order:      &domain.OrderCard{},
	})
	require.NoError(t, err)
	_, err = store.Save(domain.Card{
		CardHeader: domain.CardHeader{ID: "b", Type: domain.CardTypeLogistics, CreatedTime: base.Add(time.Hour)},
		Logistics:  &domain.LogisticsCard{Status: "已签收"},
	})
	require.NoError(t, err)

	all := store.List()
	require.Len(t, all, 2)
	require.Equal(t, "a", all[0].ID)
	require.Equal(t, "已签收", all[1].Logistics.Status)
	require.Len(t, store.ListByType(domain.CardTypeLogistics), 1)

	require.True(t, store.Delete("a"))
	require.False(t, store.Delete("a"))
	_, ok := store.Get("a")
	require.False(t, ok)
}

func TestStore_ConcurrentSaves(t *testing.T) {
	store := NewStore(nil)
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := store.Save(domain.Card{
				CardHeader: domain.CardHeader{Type: domain.CardTypeOrder},
				Order:      &domain.OrderCard{},
			})
			assert.NoError(t, err)
			_ = store.List()
		}()
	}
	wg.Wait()
	require.Equal(t, 20, store.Len())
}
