package auth

import (
	"net/http"
	"time"

	"github.com/mira-pos/api/internal/enum"
)

// CookieName is the session cookie set on login.
const CookieName = "mira_session"

// SetSessionCookie writes the session token as an HttpOnly cookie.
func SetSessionCookie(w http.ResponseWriter, token string, expiresAt time.Time, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		Expires:  expiresAt,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearSessionCookie expires the session cookie in the browser.
func ClearSessionCookie(w http.ResponseWriter, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// HomeFor returns the landing page for a role after login.
func HomeFor(role string) string {
	switch role {
	case enum.UserRoleAdmin:
		return "/admin/dashboard"
	case enum.UserRoleCook:
		return "/cook/dashboard"
	default:
		return "/"
	}
}
