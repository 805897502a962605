package security

import (
	"net/http"
	"time"

	"github.com/google/uuid"
)

// SessionCookieName is the cookie holding the login session id
const SessionCookieName = "studycards_session"

func NewSessionID() string {
	return uuid.NewString()
}

// IsSecureRequest reports whether the request arrived over HTTPS, directly or
// through a proxy that sets X-Forwarded-Proto.
func IsSecureRequest(r *http.Request) bool {
	if r.TLS != nil {
		return true
	}
	if r.Header.Get("X-Forwarded-Proto") == "https" {
		return true
	}
	return r.URL.Scheme == "https"
}

// SessionCookie builds an HttpOnly, Lax cookie that expires at expires
func SessionCookie(r *http.Request, name, value string, expires time.Time) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		Secure:   IsSecureRequest(r),
		SameSite: http.SameSiteLaxMode,
	}
}

// ExpiredCookie clears a cookie set by SessionCookie
func ExpiredCookie(r *http.Request, name string) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   IsSecureRequest(r),
		SameSite: http.SameSiteLaxMode,
	}
}
