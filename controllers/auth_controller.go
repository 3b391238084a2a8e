package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/mail"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/github"
	"golang.org/x/oauth2/google"
	"gorm.io/gorm"

	"github.com/healthmate/healthmate/config"
	"github.com/healthmate/healthmate/middleware"
	"github.com/healthmate/healthmate/models"
	"github.com/healthmate/healthmate/progress"
	"github.com/healthmate/healthmate/utils"
)

const (
	maxNameLength = 64
	oauthStateTTL = 10 * time.Minute
)

var (
	githubAPIBase     = "https://api.github.com"
	googleUserInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"
)

// AuthController handles authentication related endpoints including local and third-party providers.
type AuthController struct {
	db  *gorm.DB
	svc *progress.Service
}

// NewAuthController creates a new AuthController. svc may be nil when no
// progress cache needs invalidating.
func NewAuthController(db *gorm.DB, svc *progress.Service) *AuthController {
	return &AuthController{db: db, svc: svc}
}

type userResponse struct {
	ID             uint       `json:"id"`
	Name           string     `json:"name"`
	Email          string     `json:"email"`
	Provider       string     `json:"provider,omitempty"`
	AvatarURL      string     `json:"avatar_url,omitempty"`
	EmergencyEmail string     `json:"emergency_email"`
	Streak         int        `json:"streak"`
	LongestStreak  int        `json:"longest_streak"`
	Points         int        `json:"points"`
	LastLogDate    *time.Time `json:"last_log_date"`
	CreatedAt      time.Time  `json:"created_at"`
}

func sanitizeUserResponse(u models.User) userResponse {
	return userResponse{
		ID:             u.ID,
		Name:           u.Name,
		Email:          u.Email,
		Provider:       u.Provider,
		AvatarURL:      u.AvatarURL,
		EmergencyEmail: u.EmergencyEmail,
		Streak:         u.Streak,
		LongestStreak:  u.LongestStreak,
		Points:         u.Points,
		LastLogDate:    u.LastLogDate,
		CreatedAt:      u.CreatedAt,
	}
}

// Register creates a local account with email and password.
func (a *AuthController) Register(ctx *gin.Context) {
	var req struct {
		Name          string `json:"name" binding:"required"`
		Email         string `json:"email" binding:"required"`
		Password      string `json:"password" binding:"required"`
		CaptchaID     string `json:"captcha_id"`
		CaptchaAnswer string `json:"captcha_answer"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40001, "invalid request payload")
		return
	}

	if config.Get().RegisterCaptchaEnabled {
		if !utils.VerifyCaptcha(strings.TrimSpace(req.CaptchaID), strings.TrimSpace(req.CaptchaAnswer)) {
			utils.Error(ctx, http.StatusBadRequest, 40042, "captcha is wrong or expired")
			return
		}
	}

	name := utils.SanitizeText(req.Name)
	if name == "" || len([]rune(name)) > maxNameLength {
		utils.Error(ctx, http.StatusBadRequest, 40010, "name must be 1 to 64 characters")
		return
	}
	email, ok := normalizeEmail(req.Email)
	if !ok {
		utils.Error(ctx, http.StatusBadRequest, 40011, "invalid email address")
		return
	}
	if err := utils.ValidatePassword(req.Password); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40012, err.Error())
		return
	}

	var count int64
	if err := a.db.Model(&models.User{}).Where("email = ?", email).Count(&count).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50001, "failed to check email")
		return
	}
	if count > 0 {
		utils.Error(ctx, http.StatusConflict, 40903, "email already registered")
		return
	}

	hash, err := utils.HashPassword(req.Password)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50002, "failed to hash password")
		return
	}

	user := models.User{Name: name, Email: email, PasswordHash: hash, Provider: "local"}
	if err := a.db.Create(&user).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50003, "failed to create user")
		return
	}

	a.issueToken(ctx, user, http.StatusCreated)
}

// Captcha returns a fresh captcha id and base64 image (data URI)
func (a *AuthController) Captcha(ctx *gin.Context) {
	id, b64, err := utils.GenerateCaptcha()
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50060, "failed to generate captcha")
		return
	}
	utils.Success(ctx, gin.H{"id": id, "image": b64})
}

// Login verifies user credentials and issues a JWT.
func (a *AuthController) Login(ctx *gin.Context) {
	var req struct {
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40003, "invalid request payload")
		return
	}

	email, _ := normalizeEmail(req.Email)
	var user models.User
	if err := a.db.Where("email = ?", email).First(&user).Error; err != nil {
		utils.Error(ctx, http.StatusUnauthorized, 40106, "invalid email or password")
		return
	}
	if user.PasswordHash == "" || !utils.CheckPassword(user.PasswordHash, req.Password) {
		utils.Error(ctx, http.StatusUnauthorized, 40106, "invalid email or password")
		return
	}

	a.issueToken(ctx, user, http.StatusOK)
}

func (a *AuthController) issueToken(ctx *gin.Context, user models.User, status int) {
	token, err := utils.GenerateToken(user.ID, user.Email, config.Get().TokenTTL())
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50004, "failed to generate token")
		return
	}
	payload := gin.H{"token": token, "user": sanitizeUserResponse(user)}
	if status == http.StatusCreated {
		utils.Created(ctx, payload)
		return
	}
	utils.Success(ctx, payload)
}

// Logout invalidates the token by blacklisting it until expiration.
func (a *AuthController) Logout(ctx *gin.Context) {
	token := ctx.GetString(middleware.ContextTokenKey)
	if token == "" {
		utils.Error(ctx, http.StatusUnauthorized, 40107, "invalid authorization header")
		return
	}
	revoke(token)
	utils.Success(ctx, gin.H{"message": "logged out"})
}

func revoke(token string) {
	expiresAt := time.Now().Add(config.Get().TokenTTL())
	if claims, err := utils.ParseToken(token); err == nil && claims.ExpiresAt != nil {
		expiresAt = claims.ExpiresAt.Time
	}
	utils.BlacklistToken(token, expiresAt)
}

// OAuthRedirect generates a provider-specific authorization URL.
func (a *AuthController) OAuthRedirect(ctx *gin.Context) {
	provider := ctx.Param("provider")
	cfg, err := oauthConfig(provider)
	if err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40004, err.Error())
		return
	}

	state := uuid.NewString()
	utils.SaveState(state, oauthStateTTL)

	url := cfg.AuthCodeURL(state, oauth2.AccessTypeOffline)
	utils.Success(ctx, gin.H{"authorization_url": url, "state": state})
}

// OAuthCallback exchanges the authorization code for a user identity and issues a JWT.
func (a *AuthController) OAuthCallback(ctx *gin.Context) {
	provider := strings.ToLower(ctx.Param("provider"))
	code := ctx.Query("code")
	state := ctx.Query("state")

	if code == "" || state == "" {
		utils.Error(ctx, http.StatusBadRequest, 40005, "missing code or state")
		return
	}
	if !utils.ConsumeState(state) {
		utils.Error(ctx, http.StatusBadRequest, 40006, "invalid or expired state")
		return
	}

	cfg, err := oauthConfig(provider)
	if err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40004, err.Error())
		return
	}

	rctx := ctx.Request.Context()
	token, err := cfg.Exchange(rctx, code)
	if err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40007, "failed to exchange code")
		return
	}

	info, err := fetchOAuthUser(rctx, provider, cfg.Client(rctx, token))
	if err != nil {
		utils.Logger.Warn("oauth profile fetch failed", zap.String("provider", provider), zap.Error(err))
		utils.Error(ctx, http.StatusBadGateway, 50201, "failed to fetch provider profile")
		return
	}

	user, err := a.findOrCreateOAuthUser(provider, info)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50006, "failed to persist user")
		return
	}

	a.issueToken(ctx, *user, http.StatusOK)
}

// Me returns the current authenticated user's information.
func (a *AuthController) Me(ctx *gin.Context) {
	userID, ok := mustUserID(ctx)
	if !ok {
		return
	}

	var user models.User
	if err := a.db.First(&user, userID).Error; err != nil {
		utils.Error(ctx, http.StatusNotFound, 40401, "user not found")
		return
	}
	utils.Success(ctx, sanitizeUserResponse(user))
}

// UpdateProfile changes the display name and the emergency contact. An empty
// emergency_email removes the contact.
func (a *AuthController) UpdateProfile(ctx *gin.Context) {
	userID, ok := mustUserID(ctx)
	if !ok {
		return
	}

	var req struct {
		Name           *string `json:"name"`
		EmergencyEmail *string `json:"emergency_email"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40030, "invalid request payload")
		return
	}

	updates := map[string]interface{}{}
	if req.Name != nil {
		name := utils.SanitizeText(*req.Name)
		if name == "" || len([]rune(name)) > maxNameLength {
			utils.Error(ctx, http.StatusBadRequest, 40010, "name must be 1 to 64 characters")
			return
		}
		updates["name"] = name
	}
	if req.EmergencyEmail != nil {
		contact := strings.TrimSpace(*req.EmergencyEmail)
		if contact != "" {
			normalized, ok := normalizeEmail(contact)
			if !ok {
				utils.Error(ctx, http.StatusBadRequest, 40011, "invalid email address")
				return
			}
			contact = normalized
		}
		updates["emergency_email"] = contact
	}

	var user models.User
	if err := a.db.First(&user, userID).Error; err != nil {
		utils.Error(ctx, http.StatusNotFound, 40401, "user not found")
		return
	}
	if len(updates) > 0 {
		if err := a.db.Model(&user).Updates(updates).Error; err != nil {
			utils.Error(ctx, http.StatusInternalServerError, 50031, "failed to update profile")
			return
		}
		if v, ok := updates["name"].(string); ok {
			user.Name = v
		}
		if v, ok := updates["emergency_email"].(string); ok {
			user.EmergencyEmail = v
		}
	}
	utils.Success(ctx, sanitizeUserResponse(user))
}

// DeleteAccount removes the user together with every stored reading and
// revokes the token used for the request.
func (a *AuthController) DeleteAccount(ctx *gin.Context) {
	userID, ok := mustUserID(ctx)
	if !ok {
		return
	}

	err := a.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", userID).Delete(&models.VitalsRecord{}).Error; err != nil {
			return err
		}
		res := tx.Unscoped().Delete(&models.User{}, userID)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		utils.Error(ctx, http.StatusNotFound, 40401, "user not found")
		return
	}
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50032, "failed to delete account")
		return
	}

	if a.svc != nil {
		a.svc.Invalidate(ctx.Request.Context(), userID)
	}
	if token := ctx.GetString(middleware.ContextTokenKey); token != "" {
		revoke(token)
	}
	utils.Success(ctx, gin.H{"message": "account deleted"})
}

func normalizeEmail(s string) (string, bool) {
	addr, err := mail.ParseAddress(strings.TrimSpace(s))
	if err != nil || addr.Name != "" {
		return "", false
	}
	return strings.ToLower(addr.Address), true
}

func oauthConfig(provider string) (*oauth2.Config, error) {
	cfg := config.Get()
	switch strings.ToLower(provider) {
	case "github":
		if cfg.GitHubClientID == "" || cfg.GitHubClientSecret == "" {
			return nil, fmt.Errorf("github oauth not configured")
		}
		return &oauth2.Config{
			ClientID:     cfg.GitHubClientID,
			ClientSecret: cfg.GitHubClientSecret,
			RedirectURL:  fmt.Sprintf("%s/api/v1/auth/oauth/github/callback", cfg.OAuthRedirectBase),
			Scopes:       []string{"read:user", "user:email"},
			Endpoint:     github.Endpoint,
		}, nil
	case "google":
		if cfg.GoogleClientID == "" || cfg.GoogleClientSecret == "" {
			return nil, fmt.Errorf("google oauth not configured")
		}
		return &oauth2.Config{
			ClientID:     cfg.GoogleClientID,
			ClientSecret: cfg.GoogleClientSecret,
			RedirectURL:  fmt.Sprintf("%s/api/v1/auth/oauth/google/callback", cfg.OAuthRedirectBase),
			Scopes:       []string{"openid", "profile", "email"},
			Endpoint:     google.Endpoint,
		}, nil
	default:
		return nil, fmt.Errorf("unsupported provider: %s", provider)
	}
}

type oauthUser struct {
	ID          string
	DisplayName string
	Email       string
	AvatarURL   string
}

func fetchOAuthUser(ctx context.Context, provider string, client *http.Client) (*oauthUser, error) {
	switch provider {
	case "github":
		return fetchGitHubUser(ctx, client)
	case "google":
		return fetchGoogleUser(ctx, client)
	default:
		return nil, fmt.Errorf("unsupported provider: %s", provider)
	}
}

func (a *AuthController) findOrCreateOAuthUser(provider string, data *oauthUser) (*models.User, error) {
	email, _ := normalizeEmail(data.Email)
	name := utils.SanitizeText(fallback(data.DisplayName, email, provider+" user"))
	if len([]rune(name)) > maxNameLength {
		name = string([]rune(name)[:maxNameLength])
	}

	var user models.User
	err := a.db.Where("provider = ? AND provider_id = ?", provider, data.ID).First(&user).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		user = models.User{
			Name:       name,
			Provider:   provider,
			ProviderID: data.ID,
			AvatarURL:  data.AvatarURL,
		}
		if email != "" {
			var taken int64
			a.db.Model(&models.User{}).Where("email = ?", email).Count(&taken)
			if taken == 0 {
				user.Email = email
			}
		}
		if user.Email == "" {
			// keeps the unique index satisfied for providers that hide the address
			user.Email = fmt.Sprintf("%s-%s@users.noreply.healthmate", provider, data.ID)
		}
		if err := a.db.Create(&user).Error; err != nil {
			return nil, err
		}
	case err != nil:
		return nil, err
	default:
		_ = a.db.Model(&user).Updates(map[string]interface{}{"avatar_url": data.AvatarURL})
	}
	return &user, nil
}

func getJSON(ctx context.Context, client *http.Client, url string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("GET %s failed: %s", url, resp.Status)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func fetchGitHubUser(ctx context.Context, client *http.Client) (*oauthUser, error) {
	var payload struct {
		ID        int64  `json:"id"`
		Login     string `json:"login"`
		Name      string `json:"name"`
		AvatarURL string `json:"avatar_url"`
	}
	if err := getJSON(ctx, client, githubAPIBase+"/user", &payload); err != nil {
		return nil, err
	}

	email, _ := fetchGitHubEmail(ctx, client)

	return &oauthUser{
		ID:          fmt.Sprintf("%d", payload.ID),
		DisplayName: fallback(payload.Name, payload.Login),
		Email:       email,
		AvatarURL:   payload.AvatarURL,
	}, nil
}

func fetchGitHubEmail(ctx context.Context, client *http.Client) (string, error) {
	var emails []struct {
		Email    string `json:"email"`
		Primary  bool   `json:"primary"`
		Verified bool   `json:"verified"`
	}
	if err := getJSON(ctx, client, githubAPIBase+"/user/emails", &emails); err != nil {
		return "", err
	}

	for _, email := range emails {
		if email.Primary && email.Verified {
			return email.Email, nil
		}
	}
	if len(emails) > 0 {
		return emails[0].Email, nil
	}
	return "", nil
}

func fetchGoogleUser(ctx context.Context, client *http.Client) (*oauthUser, error) {
	var payload struct {
		ID      string `json:"id"`
		Email   string `json:"email"`
		Name    string `json:"name"`
		Picture string `json:"picture"`
	}
	if err := getJSON(ctx, client, googleUserInfoURL, &payload); err != nil {
		return nil, err
	}

	return &oauthUser{
		ID:          payload.ID,
		DisplayName: fallback(payload.Name, payload.Email),
		Email:       payload.Email,
		AvatarURL:   payload.Picture,
	}, nil
}

func fallback(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
