package progress

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/healthmate/healthmate/gamify"
	"github.com/healthmate/healthmate/models"
	"github.com/healthmate/healthmate/vitals"
)

// GormStore keeps the counters on the users row and the history in
// vitals_records.
//
// last_log_date is a DATE column. The driver shifts time values into the
// connection zone (loc=Local) on the way out, so dates are written and read
// as midnight in that zone.
type GormStore struct {
	db  *gorm.DB
	loc *time.Location
}

// NewGormStore creates a store on top of db.
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db, loc: time.Local}
}

func (s *GormStore) Load(ctx context.Context, userID uint) (UserProgress, error) {
	db := s.db.WithContext(ctx)

	var user models.User
	if err := db.First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return UserProgress{}, ErrUnknownUser
		}
		return UserProgress{}, &PersistenceError{Op: "load user", Err: err}
	}

	var records []models.VitalsRecord
	if err := db.Where("user_id = ?", userID).Order("id ASC").Find(&records).Error; err != nil {
		return UserProgress{}, &PersistenceError{Op: "load history", Err: err}
	}
	if user.LastLogDate == nil && len(records) == 0 {
		return UserProgress{}, ErrNotFound
	}

	p := UserProgress{
		CurrentStreakDays: user.Streak,
		LongestStreakDays: user.LongestStreak,
		TotalPoints:       user.Points,
		Version:           user.ProgressVersion,
	}
	if user.LastLogDate != nil {
		d := gamify.DateIn(*user.LastLogDate, s.loc)
		p.LastLogDate = &d
	}
	for _, rec := range records {
		p.History = append(p.History, rec.Reading())
	}
	return p, nil
}

// Save locks the user row, inserts the readings the database has not seen yet
// and bumps progress_version with an optimistic check.
func (s *GormStore) Save(ctx context.Context, userID uint, p UserProgress) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var user models.User
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Select("id", "progress_version").First(&user, userID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrUnknownUser
			}
			return err
		}
		if user.ProgressVersion != p.Version {
			return ErrConflict
		}

		var stored []models.VitalsRecord
		if err := tx.Where("user_id = ?", userID).Order("id ASC").Find(&stored).Error; err != nil {
			return err
		}
		prev := make([]vitals.Reading, 0, len(stored))
		for _, rec := range stored {
			prev = append(prev, rec.Reading())
		}
		if !extends(prev, p.History) {
			return ErrHistoryRewrite
		}
		if fresh := p.History[len(prev):]; len(fresh) > 0 {
			rows := make([]models.VitalsRecord, 0, len(fresh))
			for _, r := range fresh {
				rows = append(rows, models.NewVitalsRecord(userID, r, gamify.PointsForReading(r)))
			}
			if err := tx.Create(&rows).Error; err != nil {
				return err
			}
		}

		var lastLog *time.Time
		if p.LastLogDate != nil {
			d := *p.LastLogDate
			t := time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, s.loc)
			lastLog = &t
		}
		res := tx.Model(&models.User{}).
			Where("id = ? AND progress_version = ?", userID, p.Version).
			Updates(map[string]interface{}{
				"streak":           p.CurrentStreakDays,
				"longest_streak":   p.LongestStreakDays,
				"points":           p.TotalPoints,
				"last_log_date":    lastLog,
				"progress_version": p.Version + 1,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrConflict
		}
		return nil
	})

	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrConflict), errors.Is(err, ErrUnknownUser), errors.Is(err, ErrHistoryRewrite):
		return err
	default:
		return &PersistenceError{Op: "save", Err: err}
	}
}
