package auth

import (
	"net/http"
	"time"
)

const oauthStateCookie = "oauth_state"

// SetOAuthStateCookie stores the state parameter between the redirect to the
// provider and the callback, httpOnly so scripts cannot read it.
func SetOAuthStateCookie(w http.ResponseWriter, state string, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     oauthStateCookie,
		Value:    state,
		Path:     "/",
		Expires:  time.Now().Add(10 * time.Minute),
		MaxAge:   600,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// ReadOAuthStateCookie returns the stored state, or empty when absent.
func ReadOAuthStateCookie(r *http.Request) string {
	cookie, err := r.Cookie(oauthStateCookie)
	if err != nil {
		return ""
	}
	return cookie.Value
}

// ClearOAuthStateCookie removes the state cookie once the callback completes.
func ClearOAuthStateCookie(w http.ResponseWriter, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     oauthStateCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}
