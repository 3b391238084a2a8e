package progress

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/healthmate/healthmate/gamify"
	"github.com/healthmate/healthmate/vitals"
)

const (
	defaultTimeout  = 5 * time.Second
	defaultCacheTTL = 10 * time.Minute
)

// Cache stores rendered snapshots. Misses and failures are both reported as
// a miss.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, b []byte, ttl time.Duration)
	Delete(ctx context.Context, key string)
}

// CriticalNotifier is told about readings that need immediate attention.
type CriticalNotifier interface {
	NotifyCritical(ctx context.Context, userID uint, issue *vitals.CriticalIssue, r vitals.Reading)
}

// Service records readings for many users, one submission per user at a time.
type Service struct {
	store    Store
	locker   Locker
	cache    Cache
	cacheTTL time.Duration
	notifier CriticalNotifier
	now      func() time.Time
	loc      *time.Location
	timeout  time.Duration
	log      *zap.Logger
}

// Option configures a Service.
type Option func(*Service)

func WithLocker(l Locker) Option { return func(s *Service) { s.locker = l } }

func WithCache(c Cache, ttl time.Duration) Option {
	return func(s *Service) {
		s.cache = c
		if ttl > 0 {
			s.cacheTTL = ttl
		}
	}
}

func WithNotifier(n CriticalNotifier) Option { return func(s *Service) { s.notifier = n } }

func WithClock(now func() time.Time) Option { return func(s *Service) { s.now = now } }

// WithLocation sets the zone that decides which calendar day a reading belongs to.
func WithLocation(loc *time.Location) Option { return func(s *Service) { s.loc = loc } }

// WithTimeout bounds every store call.
func WithTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.timeout = d
		}
	}
}

func WithLogger(l *zap.Logger) Option { return func(s *Service) { s.log = l } }

// NewService builds a Service on top of store. Without options it uses an
// in-process lock, no cache, the wall clock and the local zone.
func NewService(store Store, opts ...Option) *Service {
	s := &Service{
		store:    store,
		locker:   NewKeyedMutex(),
		cacheTTL: defaultCacheTTL,
		now:      time.Now,
		loc:      time.Local,
		timeout:  defaultTimeout,
		log:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Record folds r into the user's progress and persists it. A reading without
// a timestamp is stamped with the service clock.
func (s *Service) Record(ctx context.Context, userID uint, r vitals.Reading) (Summary, error) {
	if r.TakenAt.IsZero() {
		r.TakenAt = s.now()
	}

	unlock, err := s.lock(ctx, userID)
	if err != nil {
		return Summary{}, err
	}
	defer unlock()

	pctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	current, err := s.store.Load(pctx, userID)
	if errors.Is(err, ErrNotFound) {
		current, err = UserProgress{}, nil
	}
	if err != nil {
		return Summary{}, timeoutOr(err)
	}

	next, summary := RecordReading(current, r, gamify.DateIn(r.TakenAt, s.loc))
	if err := s.store.Save(pctx, userID, next); err != nil {
		s.log.Warn("progress save failed", zap.Uint("user_id", userID), zap.Error(err))
		return Summary{}, timeoutOr(err)
	}
	s.Invalidate(ctx, userID)

	if summary.Critical != nil {
		s.log.Warn("critical reading",
			zap.Uint("user_id", userID),
			zap.String("issue", summary.Critical.Issue),
			zap.String("value", summary.Critical.Value))
		if s.notifier != nil {
			s.notifier.NotifyCritical(ctx, userID, summary.Critical, r)
		}
	}
	return summary, nil
}

// Progress loads the full progress record. A user with no readings yet gets a
// zero value.
func (s *Service) Progress(ctx context.Context, userID uint) (UserProgress, error) {
	pctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	p, err := s.store.Load(pctx, userID)
	if errors.Is(err, ErrNotFound) {
		return UserProgress{}, nil
	}
	if err != nil {
		return UserProgress{}, timeoutOr(err)
	}
	return p, nil
}

// Snapshot returns the read-only view, served from the cache when possible.
func (s *Service) Snapshot(ctx context.Context, userID uint) (Snapshot, error) {
	key := snapshotKey(userID)
	if s.cache != nil {
		if b, ok := s.cache.Get(ctx, key); ok {
			var snap Snapshot
			if err := json.Unmarshal(b, &snap); err == nil {
				return snap, nil
			}
		}
	}

	// Record invalidates under the same lock, so a snapshot loaded here
	// cannot be cached after a newer save.
	unlock, err := s.lock(ctx, userID)
	if err != nil {
		return Snapshot{}, err
	}
	defer unlock()

	p, err := s.Progress(ctx, userID)
	if err != nil {
		return Snapshot{}, err
	}
	snap := p.Snapshot()

	if s.cache != nil {
		if b, err := json.Marshal(snap); err == nil {
			s.cache.Set(ctx, key, b, s.cacheTTL)
		}
	}
	return snap, nil
}

// Invalidate drops the cached snapshot of userID.
func (s *Service) Invalidate(ctx context.Context, userID uint) {
	if s.cache != nil {
		s.cache.Delete(ctx, snapshotKey(userID))
	}
}

// lock takes the per-user lock. Failures are reported as store errors.
func (s *Service) lock(ctx context.Context, userID uint) (func(), error) {
	unlock, err := s.locker.Lock(ctx, userKey(userID))
	if err != nil {
		return nil, timeoutOr(&PersistenceError{Op: "lock", Err: err})
	}
	return unlock, nil
}

func userKey(userID uint) string {
	return strconv.FormatUint(uint64(userID), 10)
}

func snapshotKey(userID uint) string {
	return "progress:snapshot:" + userKey(userID)
}
