package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2"
	"gorm.io/gorm"

	"github.com/sevasangh/portal-api/internal/config"
	"github.com/sevasangh/portal-api/internal/models"
)

const (
	GoogleAuthorizeEndpoint = "https://accounts.google.com/o/oauth2/auth"
	GoogleTokenEndpoint     = "https://oauth2.googleapis.com/token"
	GoogleUserInfoAPI       = "https://www.googleapis.com/oauth2/v2/userinfo"

	TokenDuration = 24 * time.Hour
)

type AuthHandler struct {
	oauthConfig *oauth2.Config
	db          *gorm.DB
	cfg         *config.Config
}

func NewAuthHandler(cfg *config.Config, db *gorm.DB) *AuthHandler {
	return &AuthHandler{
		oauthConfig: &oauth2.Config{
			ClientID:     cfg.GoogleClientID,
			ClientSecret: cfg.GoogleClientSecret,
			RedirectURL:  cfg.GoogleRedirectURL,
			Scopes:       []string{"openid", "email", "profile"},
			Endpoint: oauth2.Endpoint{
				AuthURL:  GoogleAuthorizeEndpoint,
				TokenURL: GoogleTokenEndpoint,
			},
		},
		db:  db,
		cfg: cfg,
	}
}

func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	url := h.oauthConfig.AuthCodeURL("state", oauth2.AccessTypeOnline)
	http.Redirect(w, r, url, http.StatusTemporaryRedirect)
}

func (h *AuthHandler) HandleCallback(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("code")
	if code == "" {
		http.Error(w, "Code not found", http.StatusBadRequest)
		return
	}

	token, err := h.oauthConfig.Exchange(context.Background(), code)
	if err != nil {
		http.Error(w, "Failed to exchange token", http.StatusInternalServerError)
		return
	}

	client := h.oauthConfig.Client(context.Background(), token)

	resp, err := client.Get(GoogleUserInfoAPI)
	if err != nil {
		http.Error(w, "Failed to get user info", http.StatusInternalServerError)
		return
	}
	defer resp.Body.Close()

	var googleUser struct {
		ID    string `json:"id"`
		Name  string `json:"name"`
		Email string `json:"email"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&googleUser); err != nil {
		http.Error(w, "Failed to decode user info", http.StatusInternalServerError)
		return
	}

	var member models.Member
	if err := h.db.FirstOrInit(&member, models.Member{GoogleID: googleUser.ID}).Error; err != nil {
		http.Error(w, "Database error", http.StatusInternalServerError)
		return
	}
	member.Name = googleUser.Name
	member.Email = googleUser.Email
	if member.ID == 0 {
		// First login: the member waits for staff approval in the
		// directory before they may register or donate.
		member.Status = models.MemberPending
	}

	if err := h.db.Save(&member).Error; err != nil {
		http.Error(w, "Failed to save member", http.StatusInternalServerError)
		return
	}

	jwtToken, err := h.GenerateToken(member.ID)
	if err != nil {
		http.Error(w, "Failed to generate token", http.StatusInternalServerError)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     "auth_token",
		Value:    jwtToken,
		Expires:  time.Now().Add(TokenDuration),
		HttpOnly: true,
		Path:     "/",
	})

	w.Write([]byte(fmt.Sprintf("Welcome %s! You are logged in.", member.Name)))
}

func (h *AuthHandler) GenerateToken(memberID uint) (string, error) {
	claims := jwt.MapClaims{
		"member_id": memberID,
		"exp":       time.Now().Add(TokenDuration).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(h.cfg.JWTSecret))
}
