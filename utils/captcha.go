package utils

import (
	"time"

	"github.com/mojocn/base64Captcha"
)

var captchaStore base64Captcha.Store = base64Captcha.DefaultMemStore

// InitCaptchaStore moves captcha answers into Redis when it is configured so
// every instance behind a load balancer can verify them.
func InitCaptchaStore() {
	if GetRedis() != nil {
		captchaStore = NewRedisCaptchaStore(10 * time.Minute)
	}
}

// GenerateCaptcha creates a digit captcha and returns (id, dataURI) for the client to display.
func GenerateCaptcha() (string, string, error) {
	driver := base64Captcha.NewDriverDigit(40, 120, 5, 0.7, 80)
	c := base64Captcha.NewCaptcha(driver, captchaStore)
	id, b64, _, err := c.Generate()
	return id, b64, err
}

// VerifyCaptcha verifies the provided answer; it consumes the captcha either way.
func VerifyCaptcha(id, answer string) bool {
	if id == "" || answer == "" {
		return false
	}
	return captchaStore.Verify(id, answer, true)
}
