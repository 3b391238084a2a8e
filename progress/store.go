package progress

import (
	"context"
	"sync"

	"github.com/healthmate/healthmate/vitals"
)

// Store loads and saves one user's progress.
//
// Save persists p only if the stored version still equals p.Version, and
// advances the stored version by one. Load returns ErrNotFound for a user with
// no progress yet and ErrUnknownUser for an identity the store does not know.
type Store interface {
	Load(ctx context.Context, userID uint) (UserProgress, error)
	Save(ctx context.Context, userID uint, p UserProgress) error
}

// MemoryStore keeps progress in process memory. Every user id is considered
// known. It backs tests and the replay command.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[uint]UserProgress
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[uint]UserProgress)}
}

func (s *MemoryStore) Load(ctx context.Context, userID uint) (UserProgress, error) {
	if err := ctx.Err(); err != nil {
		return UserProgress{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.data[userID]
	if !ok {
		return UserProgress{}, ErrNotFound
	}
	return clone(p), nil
}

func (s *MemoryStore) Save(ctx context.Context, userID uint, p UserProgress) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := s.data[userID]
	if stored.Version != p.Version {
		return ErrConflict
	}
	if !extends(stored.History, p.History) {
		return ErrHistoryRewrite
	}
	saved := clone(p)
	saved.Version = p.Version + 1
	s.data[userID] = saved
	return nil
}

// extends reports whether next starts with every reading of prev, in order.
func extends(prev, next []vitals.Reading) bool {
	if len(next) < len(prev) {
		return false
	}
	for i := range prev {
		if !sameReading(prev[i], next[i]) {
			return false
		}
	}
	return true
}

func sameReading(a, b vitals.Reading) bool {
	return a.HeartRate == b.HeartRate &&
		a.SpO2 == b.SpO2 &&
		a.Systolic == b.Systolic &&
		a.Diastolic == b.Diastolic &&
		a.TemperatureF == b.TemperatureF &&
		a.Steps == b.Steps &&
		a.TakenAt.Equal(b.TakenAt)
}
