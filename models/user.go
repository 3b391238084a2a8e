package models

import (
	"time"

	"gorm.io/gorm"
)

// User is an account plus its denormalised progress counters. Passwords are
// stored as bcrypt hashes only.
type User struct {
	ID              uint           `gorm:"primaryKey" json:"id"`
	Name            string         `gorm:"size:64;not null" json:"name"`
	Email           string         `gorm:"size:255;uniqueIndex" json:"email"`
	PasswordHash    string         `gorm:"size:255" json:"-"`
	Provider        string         `gorm:"size:32" json:"provider"`
	ProviderID      string         `gorm:"size:255" json:"provider_id"`
	AvatarURL       string         `gorm:"size:512" json:"avatar_url"`
	EmergencyEmail  string         `gorm:"size:255" json:"emergency_email"`
	Streak          int            `gorm:"default:0" json:"streak"`
	LongestStreak   int            `gorm:"default:0" json:"longest_streak"`
	Points          int            `gorm:"default:0" json:"points"`
	LastLogDate     *time.Time     `gorm:"type:date" json:"last_log_date"`
	ProgressVersion int64          `gorm:"default:0" json:"-"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
	DeletedAt       gorm.DeletedAt `gorm:"index" json:"-"`
	Vitals          []VitalsRecord `json:"-"`
}

// BeforeCreate hook ensures timestamps are set even when not provided.
func (u *User) BeforeCreate(tx *gorm.DB) error {
	now := time.Now()
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now
	}
	u.UpdatedAt = now
	return nil
}
