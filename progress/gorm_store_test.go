package progress

import (
	"context"
	"database/sql/driver"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/healthmate/healthmate/gamify"
	"github.com/healthmate/healthmate/vitals"
)

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	db, err := gorm.Open(mysql.New(mysql.Config{Conn: sqlDB, SkipInitializeWithVersion: true}), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	return db, mock
}

var (
	userColumns   = []string{"id", "name", "email", "streak", "longest_streak", "points", "last_log_date", "progress_version"}
	vitalsColumns = []string{"id", "user_id", "heart_rate", "spo2", "systolic", "diastolic", "temperature_f", "steps", "points_awarded", "taken_at"}
)

// storedRows renders readings as the vitals_records rows of user 1.
func storedRows(rs ...vitals.Reading) *sqlmock.Rows {
	rows := sqlmock.NewRows(vitalsColumns)
	for i, r := range rs {
		rows.AddRow(i+1, 1, r.HeartRate, r.SpO2, r.Systolic, r.Diastolic, r.TemperatureF, r.Steps,
			gamify.PointsForReading(r), r.TakenAt)
	}
	return rows
}

func TestGormStoreLoad(t *testing.T) {
	db, mock := newMockDB(t)
	store := NewGormStore(db)
	last := time.Date(2024, 1, 5, 0, 0, 0, 0, time.Local)
	taken := time.Date(2024, 1, 5, 8, 30, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM `users` WHERE `users`.`id` = ?")).
		WillReturnRows(sqlmock.NewRows(userColumns).AddRow(1, "Ada", "ada@example.com", 2, 5, 40, last, 3))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM `vitals_records` WHERE user_id = ? ORDER BY id ASC")).
		WithArgs(1).
		WillReturnRows(sqlmock.NewRows(vitalsColumns).AddRow(9, 1, 72.0, 98.0, 118, 76, 98.6, 6000, 35, taken))

	p, err := store.Load(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 2, p.CurrentStreakDays)
	assert.Equal(t, 5, p.LongestStreakDays)
	assert.Equal(t, 40, p.TotalPoints)
	assert.Equal(t, int64(3), p.Version)
	require.NotNil(t, p.LastLogDate)
	assert.Equal(t, gamify.MustDate("2024-01-05"), *p.LastLogDate)
	require.Len(t, p.History, 1)
	assert.Equal(t, "118/76", p.History[0].BloodPressure())
	assert.True(t, taken.Equal(p.History[0].TakenAt))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormStoreLoadUnknownUser(t *testing.T) {
	db, mock := newMockDB(t)
	store := NewGormStore(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM `users`")).
		WillReturnRows(sqlmock.NewRows(userColumns))

	_, err := store.Load(context.Background(), 99)
	assert.ErrorIs(t, err, ErrUnknownUser)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormStoreLoadNoProgress(t *testing.T) {
	db, mock := newMockDB(t)
	store := NewGormStore(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM `users`")).
		WillReturnRows(sqlmock.NewRows(userColumns).AddRow(1, "Ada", "ada@example.com", 0, 0, 0, nil, 0))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM `vitals_records`")).
		WillReturnRows(sqlmock.NewRows(vitalsColumns))

	_, err := store.Load(context.Background(), 1)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGormStoreLoadDatabaseError(t *testing.T) {
	db, mock := newMockDB(t)
	store := NewGormStore(db)
	boom := errors.New("connection reset")

	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM `users`")).WillReturnError(boom)

	_, err := store.Load(context.Background(), 1)
	var perr *PersistenceError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "load user", perr.Op)
	assert.ErrorIs(t, err, boom)
}

func TestGormStoreSaveAppendsNewReadings(t *testing.T) {
	db, mock := newMockDB(t)
	store := NewGormStore(db)

	prev := seeded(2, 40, "2024-01-05")
	prev.Version = 3
	today := gamify.MustDate("2024-01-06")
	next, _ := RecordReading(prev, healthyAt(today.Time()), today)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT .+ FROM `users` .+ FOR UPDATE").
		WillReturnRows(sqlmock.NewRows([]string{"id", "progress_version"}).AddRow(1, 3))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM `vitals_records` WHERE user_id = ? ORDER BY id ASC")).
		WithArgs(1).
		WillReturnRows(storedRows(prev.History...))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO `vitals_records`")).
		WillReturnResult(sqlmock.NewResult(10, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE `users` SET")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, store.Save(context.Background(), 1, next))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormStoreSaveStaleVersion(t *testing.T) {
	db, mock := newMockDB(t)
	store := NewGormStore(db)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT .+ FROM `users` .+ FOR UPDATE").
		WillReturnRows(sqlmock.NewRows([]string{"id", "progress_version"}).AddRow(1, 4))
	mock.ExpectRollback()

	p := seeded(2, 40, "2024-01-05")
	p.Version = 3
	assert.ErrorIs(t, store.Save(context.Background(), 1, p), ErrConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormStoreSaveLostUpdate(t *testing.T) {
	db, mock := newMockDB(t)
	store := NewGormStore(db)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT .+ FROM `users` .+ FOR UPDATE").
		WillReturnRows(sqlmock.NewRows([]string{"id", "progress_version"}).AddRow(1, 0))
	p := seeded(2, 40, "2024-01-05")
	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM `vitals_records`")).
		WillReturnRows(storedRows(p.History...))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE `users` SET")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	assert.ErrorIs(t, store.Save(context.Background(), 1, p), ErrConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormStoreSaveRejectsShorterHistory(t *testing.T) {
	db, mock := newMockDB(t)
	store := NewGormStore(db)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT .+ FROM `users` .+ FOR UPDATE").
		WillReturnRows(sqlmock.NewRows([]string{"id", "progress_version"}).AddRow(1, 0))
	p := seeded(2, 40, "2024-01-05")
	older := healthyAt(p.History[0].TakenAt.Add(-24 * time.Hour))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM `vitals_records`")).
		WillReturnRows(storedRows(older, p.History[0], healthyAt(p.History[0].TakenAt.Add(time.Hour))))
	mock.ExpectRollback()

	assert.ErrorIs(t, store.Save(context.Background(), 1, p), ErrHistoryRewrite)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormStoreSaveRejectsDivergentHistory(t *testing.T) {
	db, mock := newMockDB(t)
	store := NewGormStore(db)

	p := seeded(2, 40, "2024-01-05")
	p.Version = 1
	edited := p.History[0]
	edited.HeartRate = 140

	// same row count as the stored history, but the stored reading differs
	mock.ExpectBegin()
	mock.ExpectQuery("SELECT .+ FROM `users` .+ FOR UPDATE").
		WillReturnRows(sqlmock.NewRows([]string{"id", "progress_version"}).AddRow(1, 1))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM `vitals_records`")).
		WillReturnRows(storedRows(edited))
	mock.ExpectRollback()

	assert.ErrorIs(t, store.Save(context.Background(), 1, p), ErrHistoryRewrite)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormStoreSaveUnknownUser(t *testing.T) {
	db, mock := newMockDB(t)
	store := NewGormStore(db)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT .+ FROM `users` .+ FOR UPDATE").
		WillReturnRows(sqlmock.NewRows([]string{"id", "progress_version"}))
	mock.ExpectRollback()

	assert.ErrorIs(t, store.Save(context.Background(), 42, seeded(1, 10, "2024-01-05")), ErrUnknownUser)
}

func TestGormStoreSaveInsertFailure(t *testing.T) {
	db, mock := newMockDB(t)
	store := NewGormStore(db)
	boom := errors.New("disk full")

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT .+ FROM `users` .+ FOR UPDATE").
		WillReturnRows(sqlmock.NewRows([]string{"id", "progress_version"}).AddRow(1, 0))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM `vitals_records`")).
		WillReturnRows(storedRows())
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO `vitals_records`")).WillReturnError(boom)
	mock.ExpectRollback()

	err := store.Save(context.Background(), 1, seeded(1, 10, "2024-01-05"))
	var perr *PersistenceError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "save", perr.Op)
	assert.ErrorIs(t, err, boom)
}

// localDate matches a time argument by its calendar date once shifted into
// time.Local, the way the mysql driver renders it for a loc=Local connection.
type localDate gamify.Date

func (d localDate) Match(v driver.Value) bool {
	t, ok := v.(time.Time)
	return ok && gamify.DateOf(t.In(time.Local)) == gamify.Date(d)
}

func TestGormStoreLastLogDateWestOfUTC(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skipf("zoneinfo unavailable: %v", err)
	}
	prevLocal := time.Local
	time.Local = ny
	t.Cleanup(func() { time.Local = prevLocal })

	db, mock := newMockDB(t)
	store := NewGormStore(db)
	today := gamify.MustDate("2024-01-06")
	next, _ := RecordReading(UserProgress{}, healthyAt(time.Date(2024, 1, 6, 9, 0, 0, 0, ny)), today)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT .+ FROM `users` .+ FOR UPDATE").
		WillReturnRows(sqlmock.NewRows([]string{"id", "progress_version"}).AddRow(1, 0))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM `vitals_records`")).
		WillReturnRows(storedRows())
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO `vitals_records`")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE `users` SET")).
		WithArgs(localDate(today), 1, 35, 1, 1, sqlmock.AnyArg(), 1, 0).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()
	require.NoError(t, store.Save(context.Background(), 1, next))

	// the driver parses a DATE into midnight of the connection zone
	column := time.Date(2024, 1, 6, 0, 0, 0, 0, time.Local)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM `users`")).
		WillReturnRows(sqlmock.NewRows(userColumns).AddRow(1, "Ada", "ada@example.com", 1, 1, 35, column, 1))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM `vitals_records`")).
		WillReturnRows(storedRows(next.History...))

	loaded, err := store.Load(context.Background(), 1)
	require.NoError(t, err)
	require.NotNil(t, loaded.LastLogDate)
	assert.Equal(t, today, *loaded.LastLogDate)
	assert.NoError(t, mock.ExpectationsWereMet())

	// a second reading the same evening keeps the streak
	again, sum := RecordReading(loaded, healthyAt(time.Date(2024, 1, 6, 21, 0, 0, 0, ny)), today)
	assert.Equal(t, 1, sum.NewStreak)
	assert.Equal(t, 1, again.CurrentStreakDays)
}
