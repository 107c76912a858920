package answercache

import (
	"bytes"
	"fmt"
	"slices"
	"sync"

	"github.com/google/uuid"
	"github.com/mcdev12/classroom/go/internal/models"
	"github.com/rs/zerolog/log"
)

// Store is the teacher's local question cache. Every mutation is saved
// through the persister before it returns.
type Store struct {
	mu        sync.RWMutex
	questions []models.Question
	persister Persister
	// removed holds IDs deleted locally so a refresh does not bring them back
	removed map[uuid.UUID]bool
}

// NewStore loads the cache from persister. A nil persister keeps the cache in
// memory only.
func NewStore(persister Persister) (*Store, error) {
	s := &Store{persister: persister, removed: make(map[uuid.UUID]bool)}
	if persister == nil {
		return s, nil
	}

	state, err := persister.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load question cache: %w", err)
	}
	for _, id := range state.Removed {
		s.removed[id] = true
	}
	kept := make([]models.Question, 0, len(state.Questions))
	for _, q := range state.Questions {
		if !s.removed[q.ID] {
			kept = append(kept, q)
		}
	}
	// Merging with nothing normalizes counts and drops duplicate IDs.
	s.questions = Merge(kept, nil)

	log.Debug().
		Int("questions", len(s.questions)).
		Int("removed", len(s.removed)).
		Msg("question cache loaded")
	return s, nil
}

// Questions returns a copy of the cached questions in display order
func (s *Store) Questions() []models.Question {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Merge(s.questions, nil)
}

// Get returns one cached question
func (s *Store) Get(id uuid.UUID) (models.Question, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, q := range s.questions {
		if q.ID == id {
			return copyQuestion(q), true
		}
	}
	return models.Question{}, false
}

// Apply merges the server's questions into the cache
func (s *Store) Apply(remote []models.Question) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := make([]models.Question, 0, len(remote))
	for _, q := range remote {
		if !s.removed[q.ID] {
			kept = append(kept, q)
		}
	}
	s.questions = Merge(s.questions, kept)
	return s.saveLocked()
}

// Add inserts q, or merges it into the cached question with the same ID
func (s *Store) Add(q models.Question) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.removed, q.ID)
	s.questions = Merge(s.questions, []models.Question{q})
	return s.saveLocked()
}

// Remove deletes a question from the cache. It reports whether it was cached.
func (s *Store) Remove(id uuid.UUID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	known := s.removed[id]
	s.removed[id] = true
	for i, q := range s.questions {
		if q.ID == id {
			s.questions = append(s.questions[:i:i], s.questions[i+1:]...)
			return true, s.saveLocked()
		}
	}
	if !known {
		// The server may still list it; remember the removal across restarts.
		return false, s.saveLocked()
	}
	return false, nil
}

func (s *Store) saveLocked() error {
	if s.persister == nil {
		return nil
	}
	removed := make([]uuid.UUID, 0, len(s.removed))
	for id := range s.removed {
		removed = append(removed, id)
	}
	slices.SortFunc(removed, func(a, b uuid.UUID) int { return bytes.Compare(a[:], b[:]) })

	if err := s.persister.Save(CacheState{Questions: s.questions, Removed: removed}); err != nil {
		log.Error().Err(err).Msg("failed to save question cache")
		return fmt.Errorf("failed to save question cache: %w", err)
	}
	return nil
}
