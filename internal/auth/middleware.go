package auth

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/sevasangh/portal-api/internal/models"
)

type contextKey string

const MemberIDKey contextKey = "member_id"

// MemberID pulls the authenticated member id out of a request context.
func MemberID(ctx context.Context) (uint, bool) {
	id, ok := ctx.Value(MemberIDKey).(uint)
	return id, ok
}

func (h *AuthHandler) AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// 1. Check for API Key Header
		apiKey := r.Header.Get("X-API-KEY")
		if apiKey != "" {
			var keyModel models.APIKey
			if err := h.db.Where("key = ?", apiKey).First(&keyModel).Error; err == nil {
				if keyModel.ExpiresAt != nil && time.Now().After(*keyModel.ExpiresAt) {
					http.Error(w, "Unauthorized: API Key expired", http.StatusUnauthorized)
					return
				}

				h.db.Model(&keyModel).Update("last_used_at", time.Now())

				ctx := context.WithValue(r.Context(), MemberIDKey, keyModel.MemberID)
				next.ServeHTTP(w, r.WithContext(ctx))
				return
			}
		}

		// 2. Fallback to JWT Cookie
		cookie, err := r.Cookie("auth_token")
		if err != nil {
			if err == http.ErrNoCookie {
				http.Error(w, "Unauthorized: No token found", http.StatusUnauthorized)
				return
			}
			http.Error(w, "Bad Request", http.StatusBadRequest)
			return
		}

		tokenString := cookie.Value
		token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return []byte(h.cfg.JWTSecret), nil
		})

		if err != nil || !token.Valid {
			http.Error(w, "Unauthorized: Invalid token", http.StatusUnauthorized)
			return
		}

		if claims, ok := token.Claims.(jwt.MapClaims); ok {
			memberIDFloat, ok := claims["member_id"].(float64)
			if !ok {
				http.Error(w, "Unauthorized: Invalid token claims", http.StatusUnauthorized)
				return
			}
			memberID := uint(memberIDFloat)

			// Sliding session: refresh token if it's more than halfway through its duration
			if exp, ok := claims["exp"].(float64); ok {
				remaining := time.Until(time.Unix(int64(exp), 0))
				if remaining < TokenDuration/2 {
					newToken, err := h.GenerateToken(memberID)
					if err == nil {
						cookie := &http.Cookie{
							Name:     "auth_token",
							Value:    newToken,
							Expires:  time.Now().Add(TokenDuration),
							HttpOnly: true,
							Path:     "/",
						}
						http.SetCookie(w, cookie)
					}
				}
			}

			ctx := context.WithValue(r.Context(), MemberIDKey, memberID)
			next.ServeHTTP(w, r.WithContext(ctx))
		} else {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
		}
	})
}

// StaffMiddleware sits behind AuthMiddleware and admits only members
// flagged as staff in the directory.
func (h *AuthHandler) StaffMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		memberID, ok := MemberID(r.Context())
		if !ok {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		var member models.Member
		if err := h.db.First(&member, memberID).Error; err != nil {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		if !member.IsStaff {
			http.Error(w, "Forbidden: staff only", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}
