package conversation

import (
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/thefirstwind/mcp-client-demo/internal/domain"
)

// Store keeps the most recent turns of every chat session in memory.
type Store struct {
	mu       sync.RWMutex
	sessions map[string][]domain.ConversationTurn
	limit    int
	now      func() time.Time
}

// NewStore creates a store that keeps at most limit turns per session.
func NewStore(limit int) *Store {
	if limit <= 0 {
		limit = domain.DefaultMaxHistoryLength
	}
	return &Store{
		sessions: make(map[string][]domain.ConversationTurn),
		limit:    limit,
		now:      time.Now,
	}
}

// Append records a turn, filling in id and timestamp, and drops the oldest
// turns beyond the limit.
func (s *Store) Append(sessionID string, turn domain.ConversationTurn) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return
	}
	if turn.ID == "" {
		turn.ID = uuid.NewString()
	}
	if turn.Timestamp.IsZero() {
		turn.Timestamp = s.now()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	history := append(s.sessions[sessionID], turn)
	if len(history) > s.limit {
		trimmed := make([]domain.ConversationTurn, s.limit)
		copy(trimmed, history[len(history)-s.limit:])
		history = trimmed
	}
	s.sessions[sessionID] = history
}

// History returns a copy of the session's turns, oldest first.
func (s *Store) History(sessionID string) []domain.ConversationTurn {
	s.mu.RLock()
	defer s.mu.RUnlock()
	history := s.sessions[strings.TrimSpace(sessionID)]
	out := make([]domain.ConversationTurn, len(history))
	copy(out, history)
	return out
}

func (s *Store) Clear(sessionID string) {
	s.mu.Lock()
	delete(s.sessions, strings.TrimSpace(sessionID))
	s.mu.Unlock()
}

// Sessions reports how many sessions hold history.
func (s *Store) Sessions() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

var _ domain.ConversationStore = (*Store)(nil)
