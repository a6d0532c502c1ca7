package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/ev-asset-platform/internal/apperr"
	"github.com/iliyamo/ev-asset-platform/internal/logger"
	"github.com/iliyamo/ev-asset-platform/internal/middleware"
	"github.com/iliyamo/ev-asset-platform/internal/model"
	"github.com/iliyamo/ev-asset-platform/internal/service"
	"github.com/iliyamo/ev-asset-platform/internal/utils"
)

// requestTimeout bounds store, hash and sign work per request.
const requestTimeout = 5 * time.Second

// AuthHandler bundles dependencies for auth endpoints.
type AuthHandler struct {
	Svc     *service.AuthService
	Cookies utils.SessionCookies
	Log     *logger.Logger
	Metrics *middleware.Metrics
}

func NewAuthHandler(svc *service.AuthService, cookies utils.SessionCookies, log *logger.Logger, m *middleware.Metrics) *AuthHandler {
	if log == nil {
		log = logger.Nop()
	}
	return &AuthHandler{Svc: svc, Cookies: cookies, Log: log, Metrics: m}
}

// ----- DTOs -----

type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}
type signupReq struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"` // investor | operator
}
type validateReq struct {
	Token string `json:"token"`
}
type userResp struct {
	User model.Profile `json:"user"`
}

// Login: check credentials, set the session cookie and return the profile.
func (h *AuthHandler) Login(c echo.Context) error {
	return h.login(c, "login", h.Svc.Login)
}

// AdminLogin is Login for the admin console; non-admins get 401.
func (h *AuthHandler) AdminLogin(c echo.Context) error {
	return h.login(c, "admin_login", h.Svc.AdminLogin)
}

type loginFunc func(ctx context.Context, email, password string, meta service.Meta) (*service.Session, error)

func (h *AuthHandler) login(c echo.Context, endpoint string, fn loginFunc) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		h.Metrics.ObserveAuth(endpoint, apperr.KindValidation.String())
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	sess, err := fn(ctx, req.Email, req.Password, meta(c))
	if err != nil {
		return h.fail(c, endpoint, err)
	}
	c.SetCookie(h.Cookies.Set(sess.Token.Token))
	h.Metrics.ObserveAuth(endpoint, "ok")
	return c.JSON(http.StatusOK, userResp{User: sess.Account.Profile()})
}

// Signup: create an investor or operator account and log it in.
func (h *AuthHandler) Signup(c echo.Context) error {
	var req signupReq
	if err := c.Bind(&req); err != nil {
		h.Metrics.ObserveAuth("signup", apperr.KindValidation.String())
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	sess, err := h.Svc.Signup(ctx, service.SignupInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Role:     req.Role,
	}, meta(c))
	if err != nil {
		return h.fail(c, "signup", err)
	}
	c.SetCookie(h.Cookies.Set(sess.Token.Token))
	h.Metrics.ObserveAuth("signup", "ok")
	return c.JSON(http.StatusCreated, userResp{User: sess.Account.Profile()})
}

// Logout: revoke the current token if any and always clear the cookie.
func (h *AuthHandler) Logout(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	h.Svc.Logout(ctx, h.Cookies.Read(c.Request()), meta(c))
	c.SetCookie(h.Cookies.Clear())
	h.Metrics.ObserveAuth("logout", "ok")
	return c.JSON(http.StatusOK, echo.Map{})
}

// Me is the session bootstrap endpoint: the client calls it on load to
// learn who is signed in.  Every failure clears the session cookie.
func (h *AuthHandler) Me(c echo.Context) error {
	raw := h.Cookies.Read(c.Request())
	if raw == "" {
		c.SetCookie(h.Cookies.Clear())
		h.Metrics.ObserveAuth("me", apperr.KindAuthentication.String())
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "not authenticated"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	acc, err := h.Svc.CurrentAccount(ctx, raw)
	if err != nil {
		c.SetCookie(h.Cookies.Clear())
		return h.fail(c, "me", err)
	}
	h.Metrics.ObserveAuth("me", "ok")
	return c.JSON(http.StatusOK, userResp{User: acc.Profile()})
}

// Validate checks a token handed over in the body, for clients that hold
// the token outside the cookie jar.
func (h *AuthHandler) Validate(c echo.Context) error {
	var req validateReq
	if err := c.Bind(&req); err != nil {
		h.Metrics.ObserveAuth("validate", apperr.KindValidation.String())
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	acc, err := h.Svc.ValidateToken(ctx, req.Token)
	if err != nil {
		return h.fail(c, "validate", err)
	}
	h.Metrics.ObserveAuth("validate", "ok")
	return c.JSON(http.StatusOK, userResp{User: acc.Profile()})
}

// fail maps err to its status and a client-safe body.  Causes of
// unexpected errors are only logged.
func (h *AuthHandler) fail(c echo.Context, endpoint string, err error) error {
	kind := apperr.KindOf(err)
	h.Metrics.ObserveAuth(endpoint, kind.String())
	if kind == apperr.KindUnexpected {
		h.Log.Error().Err(err).Str("endpoint", endpoint).Msg("auth request failed")
	} else {
		h.Log.Debug().Err(err).Str("endpoint", endpoint).Str("kind", kind.String()).Msg("auth request rejected")
	}
	return c.JSON(kind.Status(), echo.Map{"error": apperr.Message(err)})
}

func meta(c echo.Context) service.Meta {
	return service.Meta{Endpoint: c.Path(), RemoteIP: c.RealIP()}
}
