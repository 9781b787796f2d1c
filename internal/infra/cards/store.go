package cards

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/thefirstwind/mcp-client-demo/internal/domain"
)

// Store keeps synthesized cards in memory, keyed by id.
type Store struct {
	mu    sync.RWMutex
	cards map[string]domain.Card
	now   func() time.Time
}

// NewStore creates an empty store. A nil clock uses time.Now.
func NewStore(now func() time.Time) *Store {
	if now == nil {
		now = time.Now
	}
	return &Store{
		cards: make(map[string]domain.Card),
		now:   now,
	}
}

// Save validates and upserts a card, assigning an id and creation time when absent.
func (s *Store) Save(card domain.Card) (domain.Card, error) {
	if err := card.Validate(); err != nil {
		return domain.Card{}, err
	}
	stored := card.Clone()
	if stored.ID == "" {
		stored.ID = uuid.NewString()
	}
	if stored.CreatedTime.IsZero() {
		stored.CreatedTime = s.now()
	}

	s.mu.Lock()
	s.cards[stored.ID] = stored
	s.mu.Unlock()

	return stored.Clone(), nil
}

func (s *Store) Get(id string) (domain.Card, bool) {
	s.mu.RLock()
	card, ok := s.cards[id]
	s.mu.RUnlock()
	if !ok {
		return domain.Card{}, false
	}
	return card.Clone(), true
}

// Delete removes a card and reports whether it existed.
func (s *Store) Delete(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.cards[id]; !ok {
		return false
	}
	delete(s.cards, id)
	return true
}

// List returns every card ordered by creation time, then id.
func (s *Store) List() []domain.Card {
	return s.collect(func(domain.Card) bool { return true })
}

// ListByType returns the cards of one variant in List order.
func (s *Store) ListByType(cardType domain.CardType) []domain.Card {
	return s.collect(func(card domain.Card) bool { return card.Type == cardType })
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.cards)
}

func (s *Store) collect(keep func(domain.Card) bool) []domain.Card {
	s.mu.RLock()
	out := make([]domain.Card, 0, len(s.cards))
	for _, card := range s.cards {
		if keep(card) {
			out = append(out, card.Clone())
		}
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedTime.Equal(out[j].CreatedTime) {
			return out[i].CreatedTime.Before(out[j].CreatedTime)
		}
		return out[i].ID < out[j].ID
	})
	return out
}
