package models

import (
	"time"

	"github.com/healthmate/healthmate/vitals"
)

// VitalsRecord is one stored reading. Rows are only ever inserted.
type VitalsRecord struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	UserID        uint      `gorm:"index;not null" json:"user_id"`
	HeartRate     float64   `gorm:"not null" json:"heart_rate"`
	SpO2          float64   `gorm:"column:spo2;not null" json:"spo2"`
	Systolic      int       `gorm:"not null" json:"systolic"`
	Diastolic     int       `gorm:"not null" json:"diastolic"`
	TemperatureF  float64   `gorm:"not null" json:"temperature_f"`
	Steps         int       `gorm:"not null" json:"steps"`
	PointsAwarded int       `json:"points_awarded"`
	TakenAt       time.Time `gorm:"index;not null" json:"taken_at"`
	CreatedAt     time.Time `json:"created_at"`
}

// NewVitalsRecord maps a reading onto a row for userID.
func NewVitalsRecord(userID uint, r vitals.Reading, points int) VitalsRecord {
	return VitalsRecord{
		UserID:        userID,
		HeartRate:     r.HeartRate,
		SpO2:          r.SpO2,
		Systolic:      r.Systolic,
		Diastolic:     r.Diastolic,
		TemperatureF:  r.TemperatureF,
		Steps:         r.Steps,
		PointsAwarded: points,
		TakenAt:       r.TakenAt,
	}
}

// Reading converts the row back into a domain reading.
func (v VitalsRecord) Reading() vitals.Reading {
	return vitals.Reading{
		HeartRate:    v.HeartRate,
		SpO2:         v.SpO2,
		Systolic:     v.Systolic,
		Diastolic:    v.Diastolic,
		TemperatureF: v.TemperatureF,
		Steps:        v.Steps,
		TakenAt:      v.TakenAt,
	}
}
