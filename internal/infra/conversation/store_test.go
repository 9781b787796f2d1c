package conversation

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/thefirstwind/mcp-client-demo/internal/domain"
)

func TestStore_AppendTrimsToLimit(t *testing.T) {
	store := NewStore(3)
	for i := 0; i < 5; i++ {
		store.Append("s1", domain.ConversationTurn{Role: domain.RoleUser, Content: fmt.Sprintf("m%d", i)})
	}

	history := store.History("s1")
	require.Len(t, history, 3)
	require.Equal(t, "m2", history[0].Content)
	require.Equal(t, "m4", history[2].Content)
	for _, turn := range history {
		require.NotEmpty(t, turn.ID)
		require.False(t, turn.Timestamp.IsZero())
	}
}

func TestStore_SessionsAreIsolated(t *testing.T) {
	store := NewStore(0)
	store.Append("a", domain.ConversationTurn{Role: domain.RoleUser, Content: "hi"})
	store.Append("b", domain.ConversationTurn{Role: domain.RoleUser, Content: "yo"})
	store.Append("", domain.ConversationTurn{Role: domain.RoleUser, Content: "dropped"})

	require.Len(t, store.History("a"), 1)
	require.Equal(t, 2, store.Sessions())

	store.Clear("a")
	require.Empty(t, store.History("a"))
	require.Len(t, store.History("b"), 1)
}

func TestStore_HistoryIsACopy(t *testing.T) {
	store := NewStore(10)
	store.Append("s", domain.ConversationTurn{Role: domain.RoleUser, Content: "original"})

	history := store.History("s")
	history[0].Content = "changed"
	require.Equal(t, "original", store.History("s")[0].Content)
}

func TestStore_ConcurrentAppend(t *testing.T) {
	store := NewStore(1000)
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			store.Append("s", domain.ConversationTurn{Role: domain.RoleUser, Content: "x"})
			_ = store.History("s")
		}()
	}
	wg.Wait()
	require.Len(t, store.History("s"), 50)
}
