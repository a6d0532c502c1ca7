package middleware

import (
	"context"
	"errors"
	"net/http"
	"path"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/ev-asset-platform/internal/logger"
	"github.com/iliyamo/ev-asset-platform/internal/model"
	"github.com/iliyamo/ev-asset-platform/internal/service"
	"github.com/iliyamo/ev-asset-platform/internal/utils"
)

// GateState is the outcome of evaluating one request.
type GateState string

const (
	StatePublic          GateState = "PUBLIC"
	StateAuthenticated   GateState = "AUTHENTICATED"
	StateUnauthenticated GateState = "UNAUTHENTICATED"
	StateWrongRole       GateState = "WRONG_ROLE"
)

// LoginPath is where unauthenticated visitors are sent.
const LoginPath = "/login/unified"

var (
	publicExact    = []string{"/", "/login", "/signup", "/auth", "/test", "/favicon.ico", "/healthz", "/metrics"}
	publicPrefixes = []string{"/login/", "/signup/", "/auth/", "/test/", "/images/", "/static/", "/_next/"}
)

// IsPublicPath reports whether p is reachable without a session.
func IsPublicPath(p string) bool {
	for _, e := range publicExact {
		if p == e {
			return true
		}
	}
	for _, pre := range publicPrefixes {
		if strings.HasPrefix(p, pre) {
			return true
		}
	}
	return false
}

// Authenticator turns a raw session token into verified claims.
type Authenticator interface {
	Authenticate(ctx context.Context, raw string) (*utils.Claims, error)
}

// GateConfig wires the route authorization gate.
type GateConfig struct {
	Auth    Authenticator
	Cookies utils.SessionCookies
	Log     *logger.Logger
	Metrics *Metrics
}

// Gate runs before every route.  It never answers with an error body:
// requests are either forwarded or redirected.
func Gate(cfg GateConfig) echo.MiddlewareFunc {
	if cfg.Log == nil {
		cfg.Log = logger.Nop()
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw := c.Request().URL.Path
			p := cleanPath(raw)

			// Dot segments are never public: the router matches the raw path.
			if IsPublicPath(p) && canonical(raw, p) {
				c.Set(GateStateKey, string(StatePublic))
				cfg.Metrics.ObserveGate(string(StatePublic), "allow_list")
				return next(c)
			}

			token := cfg.Cookies.Read(c.Request())
			if token == "" {
				return deny(c, cfg, p, "no_cookie", false)
			}

			claims, err := cfg.Auth.Authenticate(c.Request().Context(), token)
			if err != nil {
				reason := failureReason(err)
				if reason == "lookup_error" {
					cfg.Log.Error().Err(err).Str("path", p).Msg("session lookup failed")
				}
				return deny(c, cfg, p, reason, true)
			}

			if p == model.DashboardPrefix || strings.HasPrefix(p, model.DashboardPrefix+"/") {
				seg := strings.TrimPrefix(strings.TrimPrefix(p, model.DashboardPrefix), "/")
				if i := strings.IndexByte(seg, '/'); i >= 0 {
					seg = seg[:i]
				}
				required, ok := model.RoleForDashboard(seg)
				if !ok || required != claims.Role {
					target, has := claims.Role.DashboardPath()
					if !has {
						target = LoginPath
					}
					c.Set(GateStateKey, string(StateWrongRole))
					cfg.Metrics.ObserveGate(string(StateWrongRole), "role_mismatch")
					cfg.Log.Debug().Str("path", p).Str("role", string(claims.Role)).Str("to", target).Msg("gate redirect")
					return c.Redirect(http.StatusFound, target)
				}
			}

			c.Set(ClaimsKey, claims)
			c.Set(GateStateKey, string(StateAuthenticated))
			cfg.Metrics.ObserveGate(string(StateAuthenticated), "ok")
			return next(c)
		}
	}
}

func deny(c echo.Context, cfg GateConfig, p, reason string, clear bool) error {
	if clear {
		c.SetCookie(cfg.Cookies.Clear())
	}
	c.Set(GateStateKey, string(StateUnauthenticated))
	cfg.Metrics.ObserveGate(string(StateUnauthenticated), reason)
	cfg.Log.Debug().Str("path", p).Str("reason", reason).Msg("gate redirect to login")
	return c.Redirect(http.StatusFound, LoginPath)
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, utils.ErrTokenExpired):
		return "expired"
	case errors.Is(err, utils.ErrTokenInvalid):
		return "invalid"
	case errors.Is(err, service.ErrSessionRevoked):
		return "revoked"
	default:
		return "lookup_error"
	}
}

// canonical reports whether raw only differs from its cleaned form p by a
// trailing slash.
func canonical(raw, p string) bool {
	return raw == p || raw == p+"/"
}

// CleanPath rewrites the request path to its cleaned form before routing,
// so the router and the gate see the same path.  Register it with e.Pre.
func CleanPath() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			u := c.Request().URL
			if p := cleanPath(u.Path); !canonical(u.Path, p) {
				u.Path = p
				u.RawPath = ""
			}
			return next(c)
		}
	}
}

// cleanPath collapses dot segments and trailing slashes so that
// "/static/../dashboard/admin" is judged as "/dashboard/admin".
func cleanPath(p string) string {
	if p == "" {
		return "/"
	}
	if p[0] != '/' {
		p = "/" + p
	}
	return path.Clean(p)
}
