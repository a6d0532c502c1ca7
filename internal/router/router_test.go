package router

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/iliyamo/ev-asset-platform/internal/middleware"
	"github.com/iliyamo/ev-asset-platform/internal/model"
	"github.com/iliyamo/ev-asset-platform/internal/repository"
	"github.com/iliyamo/ev-asset-platform/internal/service"
	"github.com/iliyamo/ev-asset-platform/internal/testutil"
	"github.com/iliyamo/ev-asset-platform/internal/utils"
)

const testSecret = "router-test-secret"

type app struct {
	e        *echo.Echo
	accounts *testutil.Accounts
	verifier *utils.TokenVerifier
	now      time.Time
}

func newApp(t *testing.T) *app {
	t.Helper()
	a := &app{accounts: testutil.NewAccounts(), now: time.Date(2026, 4, 2, 8, 0, 0, 0, time.UTC)}
	clock := func() time.Time { return a.now }
	a.verifier = utils.NewTokenVerifier(testSecret, clock)

	hasher := utils.NewPasswordHasher(bcrypt.MinCost)
	for _, acc := range []struct {
		id     string
		email  string
		role   model.Role
		status model.Status
	}{
		{"adm-1", "admin@example.com", model.RoleAdmin, model.StatusActive},
		{"inv-1", "investor@example.com", model.RoleInvestor, model.StatusActive},
		{"op-1", "operator@example.com", model.RoleOperator, model.StatusActive},
		{"inv-off", "off@example.com", model.RoleInvestor, model.StatusInactive},
	} {
		hash, err := hasher.Hash("correct-horse")
		require.NoError(t, err)
		a.accounts.Put(&model.Account{ID: acc.id, Name: acc.id, Email: acc.email, PasswordHash: hash, Role: acc.role, Status: acc.status})
	}

	svc := service.NewAuthService(service.Deps{
		Accounts:    a.accounts,
		Hasher:      hasher,
		Issuer:      utils.NewTokenIssuer(testSecret, "test", 24*time.Hour, clock),
		Verifier:    a.verifier,
		Revocations: repository.NewMemoryRevocations(clock),
		Events:      &testutil.Publisher{},
		Clock:       clock,
	})
	reg := prometheus.NewRegistry()
	a.e = New(Deps{
		Service:  svc,
		Cookies:  utils.SessionCookies{Name: "auth_token", MaxAge: 24 * time.Hour},
		Metrics:  middleware.NewMetrics(reg),
		Gatherer: reg,
	})
	return a
}

func (a *app) request(method, target, body string, cookie *http.Cookie) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	a.e.ServeHTTP(rec, req)
	return rec
}

func sessionCookie(rec *httptest.ResponseRecorder) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == "auth_token" {
			return c
		}
	}
	return nil
}

func (a *app) login(t *testing.T, email string) *http.Cookie {
	t.Helper()
	rec := a.request(http.MethodPost, "/auth/login", `{"email":"`+email+`","password":"correct-horse"}`, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	c := sessionCookie(rec)
	require.NotNil(t, c)
	return c
}

func TestLoginSetsCookieWithStoredRole(t *testing.T) {
	a := newApp(t)
	rec := a.request(http.MethodPost, "/auth/login", `{"email":"operator@example.com","password":"correct-horse"}`, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	c := sessionCookie(rec)
	require.NotNil(t, c)
	assert.True(t, c.HttpOnly)
	assert.Equal(t, "/", c.Path)
	assert.Equal(t, 86400, c.MaxAge)
	assert.Equal(t, http.SameSiteLaxMode, c.SameSite)

	claims, err := a.verifier.Verify(c.Value)
	require.NoError(t, err)
	assert.Equal(t, model.RoleOperator, claims.Role)

	var body struct {
		User model.Profile `json:"user"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "op-1", body.User.ID)
	assert.NotContains(t, rec.Body.String(), "password")
}

func TestLoginFailureBodiesAreIdentical(t *testing.T) {
	a := newApp(t)
	wrong := a.request(http.MethodPost, "/auth/login", `{"email":"investor@example.com","password":"nope-nope"}`, nil)
	unknown := a.request(http.MethodPost, "/auth/login", `{"email":"nobody@example.com","password":"nope-nope"}`, nil)

	assert.Equal(t, http.StatusUnauthorized, wrong.Code)
	assert.Equal(t, http.StatusUnauthorized, unknown.Code)
	assert.JSONEq(t, wrong.Body.String(), unknown.Body.String())
	assert.Nil(t, sessionCookie(wrong))
}

func TestLoginBadRequestAndInactive(t *testing.T) {
	a := newApp(t)
	rec := a.request(http.MethodPost, "/auth/login", `{"email":""}`, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = a.request(http.MethodPost, "/auth/login", `{"email":"off@example.com","password":"correct-horse"}`, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Nil(t, sessionCookie(rec))
}

func TestAdminLogin(t *testing.T) {
	a := newApp(t)
	rec := a.request(http.MethodPost, "/auth/admin-login", `{"email":"investor@example.com","password":"correct-horse"}`, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = a.request(http.MethodPost, "/auth/admin-login", `{"email":"admin@example.com","password":"correct-horse"}`, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotNil(t, sessionCookie(rec))
}

func TestSignup(t *testing.T) {
	a := newApp(t)
	rec := a.request(http.MethodPost, "/auth/signup", `{"name":"Nia","email":"nia@example.com","password":"long-password","role":"operator"}`, nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	c := sessionCookie(rec)
	require.NotNil(t, c)

	me := a.request(http.MethodGet, "/auth/me", "", c)
	assert.Equal(t, http.StatusOK, me.Code)
	assert.Contains(t, me.Body.String(), `"role":"operator"`)
}

func TestSignupDuplicateAndAdminRole(t *testing.T) {
	a := newApp(t)
	before, _ := a.accounts.Snapshot("inv-1")

	rec := a.request(http.MethodPost, "/auth/signup", `{"name":"X","email":"Investor@example.com","password":"long-password","role":"operator"}`, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	after, _ := a.accounts.Snapshot("inv-1")
	assert.Equal(t, before, after)

	rec = a.request(http.MethodPost, "/auth/signup", `{"name":"X","email":"x@example.com","password":"long-password","role":"admin"}`, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, 4, a.accounts.Len())
}

func TestMeWithoutCookie(t *testing.T) {
	a := newApp(t)
	rec := a.request(http.MethodGet, "/auth/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestMeExpiredTokenClearsCookie(t *testing.T) {
	a := newApp(t)
	c := a.login(t, "investor@example.com")
	a.now = a.now.Add(24*time.Hour + time.Minute)

	rec := a.request(http.MethodGet, "/auth/me", "", c)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	cleared := sessionCookie(rec)
	require.NotNil(t, cleared)
	assert.Equal(t, -1, cleared.MaxAge)

	rec = a.request(http.MethodGet, "/dashboard/investor", "", c)
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, middleware.LoginPath, rec.Header().Get(echo.HeaderLocation))
}

func TestMeAccountGone(t *testing.T) {
	a := newApp(t)
	c := a.login(t, "investor@example.com")
	a.accounts.Delete("inv-1")

	rec := a.request(http.MethodGet, "/auth/me", "", c)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	require.NotNil(t, sessionCookie(rec))
	assert.Equal(t, -1, sessionCookie(rec).MaxAge)
}

func TestLogoutThenMe(t *testing.T) {
	a := newApp(t)
	c := a.login(t, "investor@example.com")

	rec := a.request(http.MethodPost, "/auth/logout", "", c)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{}`, rec.Body.String())
	require.NotNil(t, sessionCookie(rec))
	assert.Equal(t, -1, sessionCookie(rec).MaxAge)

	// The old token is replayed as if the browser ignored the clear.
	rec = a.request(http.MethodGet, "/auth/me", "", c)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestDashboardAccess(t *testing.T) {
	a := newApp(t)
	c := a.login(t, "investor@example.com")

	rec := a.request(http.MethodGet, "/dashboard/admin/x", "", c)
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/dashboard/investor", rec.Header().Get(echo.HeaderLocation))

	rec = a.request(http.MethodGet, "/dashboard/investor/portfolio", "", c)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"section":"portfolio"`)

	rec = a.request(http.MethodGet, "/dashboard/operator", "", nil)
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, middleware.LoginPath, rec.Header().Get(echo.HeaderLocation))
}

func TestValidateEndpoint(t *testing.T) {
	a := newApp(t)
	c := a.login(t, "investor@example.com")

	rec := a.request(http.MethodPost, "/auth/validate", `{"token":"`+c.Value+`"}`, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = a.request(http.MethodPost, "/auth/validate", `{"token":"garbage"}`, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	stored, _ := a.accounts.Snapshot("inv-1")
	stored.Status = model.StatusInactive
	a.accounts.Put(&stored)
	rec = a.request(http.MethodPost, "/auth/validate", `{"token":"`+c.Value+`"}`, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	a.accounts.Delete("inv-1")
	rec = a.request(http.MethodPost, "/auth/validate", `{"token":"`+c.Value+`"}`, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestOperationalRoutes(t *testing.T) {
	a := newApp(t)
	rec := a.request(http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())

	a.request(http.MethodGet, "/dashboard/admin", "", nil)
	rec = a.request(http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "evplatform_gate_decisions_total")

	rec = a.request(http.MethodGet, "/login/unified", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestMeStoreFailureClearsCookie(t *testing.T) {
	a := newApp(t)
	c := a.login(t, "investor@example.com")
	a.accounts.FailAll = errors.New("connection refused")

	rec := a.request(http.MethodGet, "/auth/me", "", c)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"internal error"}`, rec.Body.String())
	cleared := sessionCookie(rec)
	require.NotNil(t, cleared)
	assert.Equal(t, -1, cleared.MaxAge)
}

func TestDotSegmentsNeverReachDashboards(t *testing.T) {
	a := newApp(t)

	rec := a.request(http.MethodGet, "/dashboard/admin/../../login/x", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.NotContains(t, rec.Body.String(), "not authenticated")
	assert.NotContains(t, rec.Body.String(), "dashboard")

	rec = a.request(http.MethodGet, "/login/../dashboard/admin", "", nil)
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, middleware.LoginPath, rec.Header().Get(echo.HeaderLocation))

	c := a.login(t, "investor@example.com")
	rec = a.request(http.MethodGet, "/dashboard/investor/../admin", "", c)
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/dashboard/investor", rec.Header().Get(echo.HeaderLocation))
}
