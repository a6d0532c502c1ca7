package utils

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSetCookieAttributes(t *testing.T) {
	sc := SessionCookies{Name: "auth_token", Secure: true, MaxAge: 24 * time.Hour}
	c := sc.Set("tok")

	assert.Equal(t, "auth_token", c.Name)
	assert.Equal(t, "tok", c.Value)
	assert.Equal(t, "/", c.Path)
	assert.Equal(t, 86400, c.MaxAge)
	assert.True(t, c.HttpOnly)
	assert.True(t, c.Secure)
	assert.Equal(t, http.SameSiteLaxMode, c.SameSite)
}

func TestClearCookie(t *testing.T) {
	sc := SessionCookies{Name: "auth_token", MaxAge: 24 * time.Hour}
	c := sc.Clear()

	assert.Equal(t, "auth_token", c.Name)
	assert.Empty(t, c.Value)
	assert.Equal(t, -1, c.MaxAge)
	assert.True(t, c.HttpOnly)
	assert.False(t, c.Secure)
}

func TestReadCookie(t *testing.T) {
	sc := SessionCookies{Name: "auth_token"}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.Empty(t, sc.Read(req))

	req.AddCookie(&http.Cookie{Name: "auth-token", Value: "other"})
	assert.Empty(t, sc.Read(req), "differently cased cookie is not a session")

	req.AddCookie(&http.Cookie{Name: "auth_token", Value: "tok"})
	assert.Equal(t, "tok", sc.Read(req))
}
