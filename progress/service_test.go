package progress

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/healthmate/healthmate/gamify"
	"github.com/healthmate/healthmate/vitals"
)

type mapCache struct {
	mu      sync.Mutex
	entries map[string][]byte
	deletes int
}

func newMapCache() *mapCache { return &mapCache{entries: map[string][]byte{}} }

func (c *mapCache) Get(_ context.Context, key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	b, ok := c.entries[key]
	return b, ok
}

func (c *mapCache) Set(_ context.Context, key string, b []byte, _ time.Duration) {
	c.mu.Lock()
	c.entries[key] = b
	c.mu.Unlock()
}

func (c *mapCache) Delete(_ context.Context, key string) {
	c.mu.Lock()
	delete(c.entries, key)
	c.deletes++
	c.mu.Unlock()
}

type recordingNotifier struct {
	mu     sync.Mutex
	issues []string
}

func (n *recordingNotifier) NotifyCritical(_ context.Context, _ uint, issue *vitals.CriticalIssue, _ vitals.Reading) {
	n.mu.Lock()
	n.issues = append(n.issues, issue.Issue)
	n.mu.Unlock()
}

// stallingStore blocks until the caller's deadline passes.
type stallingStore struct{}

func (stallingStore) Load(ctx context.Context, _ uint) (UserProgress, error) {
	<-ctx.Done()
	return UserProgress{}, &PersistenceError{Op: "load user", Err: ctx.Err()}
}

func (stallingStore) Save(ctx context.Context, _ uint, _ UserProgress) error {
	<-ctx.Done()
	return ctx.Err()
}

type failingStore struct{ err error }

func (f failingStore) Load(context.Context, uint) (UserProgress, error) { return UserProgress{}, f.err }
func (f failingStore) Save(context.Context, uint, UserProgress) error   { return f.err }

func fixedClock(s string) func() time.Time {
	ts, err := time.Parse(time.RFC3339, s)
	if err != nil {
		panic(err)
	}
	return func() time.Time { return ts }
}

func TestServiceRecordScenario(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	require.NoError(t, store.Save(ctx, 1, seeded(2, 40, "2024-01-05")))

	svc := NewService(store, WithClock(fixedClock("2024-01-06T09:00:00Z")), WithLocation(time.UTC))
	sum, err := svc.Record(ctx, 1, healthyAt(time.Time{}))
	require.NoError(t, err)

	assert.Equal(t, 3, sum.NewStreak)
	assert.Equal(t, 35, sum.PointsEarned)
	assert.Equal(t, 75, sum.TotalPoints)
	assert.Equal(t, []string{"Getting Started"}, gamify.BadgeNames(sum.Badges))
	assert.Empty(t, sum.Alerts)

	p, err := svc.Progress(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(2), p.Version)
	assert.Len(t, p.History, 2)
	assert.Equal(t, "2024-01-06", p.LastLogDate.String())
}

func TestServiceRecordUsesConfiguredZone(t *testing.T) {
	ctx := context.Background()
	loc, err := time.LoadLocation("Asia/Tokyo")
	require.NoError(t, err)

	store := NewMemoryStore()
	require.NoError(t, store.Save(ctx, 1, seeded(2, 40, "2024-01-05")))
	svc := NewService(store, WithLocation(loc))

	// 16:00 UTC on the 5th is already the 6th in Tokyo.
	sum, err := svc.Record(ctx, 1, healthyAt(time.Date(2024, 1, 5, 16, 0, 0, 0, time.UTC)))
	require.NoError(t, err)
	assert.Equal(t, 3, sum.NewStreak)
}

func TestServiceRecordFirstReading(t *testing.T) {
	svc := NewService(NewMemoryStore(), WithClock(fixedClock("2024-01-06T09:00:00Z")))
	sum, err := svc.Record(context.Background(), 5, healthyAt(time.Time{}))
	require.NoError(t, err)
	assert.Equal(t, 1, sum.NewStreak)
	assert.Equal(t, 35, sum.TotalPoints)
}

func TestServiceRecordConcurrentSubmissions(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	svc := NewService(store, WithClock(fixedClock("2024-01-06T09:00:00Z")))

	const n = 25
	var wg sync.WaitGroup
	errs := make(chan error, n*2)
	for i := 0; i < n; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, err := svc.Record(ctx, 1, healthyAt(time.Time{}))
			errs <- err
		}()
		go func() {
			defer wg.Done()
			_, err := svc.Record(ctx, 2, healthyAt(time.Time{}))
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	for _, id := range []uint{1, 2} {
		p, err := svc.Progress(ctx, id)
		require.NoError(t, err)
		assert.Len(t, p.History, n)
		assert.Equal(t, n*35, p.TotalPoints)
		assert.Equal(t, int64(n), p.Version)
		assert.Equal(t, 1, p.CurrentStreakDays)
	}
}

func TestServiceRecordTimeout(t *testing.T) {
	svc := NewService(stallingStore{}, WithTimeout(20*time.Millisecond))

	_, err := svc.Record(context.Background(), 1, healthyAt(time.Now()))
	assert.ErrorIs(t, err, ErrPersistenceTimeout)

	_, err = svc.Snapshot(context.Background(), 1)
	assert.ErrorIs(t, err, ErrPersistenceTimeout)
}

func TestServiceRecordSurfacesStoreErrors(t *testing.T) {
	boom := &PersistenceError{Op: "load user", Err: errors.New("connection refused")}
	svc := NewService(failingStore{err: boom})

	_, err := svc.Record(context.Background(), 1, healthyAt(time.Now()))
	var perr *PersistenceError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "load user", perr.Op)

	svc = NewService(failingStore{err: ErrUnknownUser})
	_, err = svc.Record(context.Background(), 1, healthyAt(time.Now()))
	assert.ErrorIs(t, err, ErrUnknownUser)
}

func TestServiceSnapshotCache(t *testing.T) {
	ctx := context.Background()
	cache := newMapCache()
	svc := NewService(NewMemoryStore(), WithCache(cache, time.Minute), WithClock(fixedClock("2024-01-06T09:00:00Z")))

	snap, err := svc.Snapshot(ctx, 1)
	require.NoError(t, err)
	assert.Zero(t, snap.CurrentStreakDays)
	assert.Contains(t, cache.entries, "progress:snapshot:1")

	_, err = svc.Record(ctx, 1, healthyAt(time.Time{}))
	require.NoError(t, err)
	assert.NotContains(t, cache.entries, "progress:snapshot:1")

	snap, err = svc.Snapshot(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, snap.CurrentStreakDays)
	assert.Equal(t, 35, snap.TotalPoints)
	require.NotNil(t, snap.LastLogDate)

	// second read is served from the cache
	cached, err := svc.Snapshot(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, snap, cached)
}

func TestServiceNotifiesCriticalReadings(t *testing.T) {
	notifier := &recordingNotifier{}
	svc := NewService(NewMemoryStore(), WithNotifier(notifier))

	r := healthyAt(time.Now())
	r.SpO2 = 85
	sum, err := svc.Record(context.Background(), 1, r)
	require.NoError(t, err)
	require.NotNil(t, sum.Critical)
	assert.Equal(t, []string{"Oxygen Emergency"}, notifier.issues)

	_, err = svc.Record(context.Background(), 1, healthyAt(time.Now()))
	require.NoError(t, err)
	assert.Len(t, notifier.issues, 1)
}

// gatedStore pauses the first Load until release is closed.
type gatedStore struct {
	*MemoryStore
	once    sync.Once
	entered chan struct{}
	release chan struct{}
}

func (g *gatedStore) Load(ctx context.Context, userID uint) (UserProgress, error) {
	first := false
	g.once.Do(func() { first = true })
	if first {
		close(g.entered)
		<-g.release
	}
	return g.MemoryStore.Load(ctx, userID)
}

func TestServiceSnapshotNotCachedAcrossRecord(t *testing.T) {
	ctx := context.Background()
	cache := newMapCache()
	store := &gatedStore{MemoryStore: NewMemoryStore(), entered: make(chan struct{}), release: make(chan struct{})}
	svc := NewService(store, WithCache(cache, time.Minute), WithClock(fixedClock("2024-01-06T09:00:00Z")))

	snapDone := make(chan error, 1)
	go func() {
		_, err := svc.Snapshot(ctx, 1)
		snapDone <- err
	}()
	<-store.entered

	recDone := make(chan error, 1)
	go func() {
		_, err := svc.Record(ctx, 1, healthyAt(time.Time{}))
		recDone <- err
	}()
	select {
	case err := <-recDone:
		recDone <- err
	case <-time.After(50 * time.Millisecond):
	}
	close(store.release)

	require.NoError(t, <-snapDone)
	require.NoError(t, <-recDone)

	snap, err := svc.Snapshot(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, snap.CurrentStreakDays)
	assert.Equal(t, 35, snap.TotalPoints)
}

type brokenLocker struct{ err error }

func (l brokenLocker) Lock(context.Context, string) (func(), error) { return nil, l.err }

func TestServiceLockFailureIsPersistenceError(t *testing.T) {
	down := errors.New("dial tcp 127.0.0.1:6379: connect: connection refused")
	svc := NewService(NewMemoryStore(), WithLocker(brokenLocker{err: down}))

	_, err := svc.Record(context.Background(), 1, healthyAt(time.Now()))
	var perr *PersistenceError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "lock", perr.Op)
	assert.ErrorIs(t, err, down)

	_, err = svc.Snapshot(context.Background(), 1)
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "lock", perr.Op)

	svc = NewService(NewMemoryStore(), WithLocker(brokenLocker{err: context.DeadlineExceeded}))
	_, err = svc.Record(context.Background(), 1, healthyAt(time.Now()))
	assert.ErrorIs(t, err, ErrPersistenceTimeout)
}
