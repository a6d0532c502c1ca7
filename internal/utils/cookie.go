package utils

import (
	"net/http"
	"time"
)

// SessionCookies writes and clears the cookie that transports the session
// token.  It is the only session transport of the platform.
type SessionCookies struct {
	Name   string
	Secure bool
	MaxAge time.Duration
}

// Set returns the cookie carrying token.
func (s SessionCookies) Set(token string) *http.Cookie {
	return &http.Cookie{
		Name:     s.Name,
		Value:    token,
		Path:     "/",
		MaxAge:   int(s.MaxAge / time.Second),
		HttpOnly: true,
		Secure:   s.Secure,
		SameSite: http.SameSiteLaxMode,
	}
}

// Clear returns a cookie that makes the browser drop the session.
func (s SessionCookies) Clear() *http.Cookie {
	return &http.Cookie{
		Name:     s.Name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
		Secure:   s.Secure,
		SameSite: http.SameSiteLaxMode,
	}
}

// Read extracts the token from r, or "" when the cookie is absent.
func (s SessionCookies) Read(r *http.Request) string {
	c, err := r.Cookie(s.Name)
	if err != nil {
		return ""
	}
	return c.Value
}
