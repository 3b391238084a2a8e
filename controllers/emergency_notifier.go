package controllers

import (
	"context"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/healthmate/healthmate/models"
	"github.com/healthmate/healthmate/utils"
	"github.com/healthmate/healthmate/vitals"
)

const emergencySubject = "HealthMate emergency alert"

// EmergencyNotifier mails a user's emergency contact when a recorded reading
// is critical. Delivery is best effort and never fails the request.
type EmergencyNotifier struct {
	db       *gorm.DB
	send     func(to, subject, body string) error
	enabled  func() bool
	dispatch func(func())
}

// NewEmergencyNotifier sends through the configured SMTP server.
func NewEmergencyNotifier(db *gorm.DB) *EmergencyNotifier {
	return &EmergencyNotifier{
		db:       db,
		send:     utils.SendMail,
		enabled:  utils.MailConfigured,
		dispatch: func(f func()) { go f() },
	}
}

// NotifyCritical implements progress.CriticalNotifier.
func (n *EmergencyNotifier) NotifyCritical(ctx context.Context, userID uint, issue *vitals.CriticalIssue, r vitals.Reading) {
	if issue == nil || !n.enabled() {
		return
	}

	lctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	var user models.User
	if err := n.db.WithContext(lctx).Select("id", "name", "emergency_email").First(&user, userID).Error; err != nil {
		utils.Logger.Warn("emergency contact lookup failed", zap.Uint("user_id", userID), zap.Error(err))
		return
	}
	if user.EmergencyEmail == "" {
		return
	}

	body := vitals.EmergencyMessage(user.Name, issue, r)
	to := user.EmergencyEmail
	n.dispatch(func() {
		if err := n.send(to, emergencySubject, body); err != nil {
			utils.Logger.Warn("emergency alert not delivered", zap.Uint("user_id", userID), zap.Error(err))
			return
		}
		utils.Logger.Info("emergency alert sent", zap.Uint("user_id", userID), zap.String("issue", issue.Issue))
	})
}
