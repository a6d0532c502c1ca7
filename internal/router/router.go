package router

import (
	"database/sql"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/ev-asset-platform/internal/config"
	"github.com/iliyamo/ev-asset-platform/internal/handler"
	"github.com/iliyamo/ev-asset-platform/internal/logger"
	"github.com/iliyamo/ev-asset-platform/internal/middleware"
	"github.com/iliyamo/ev-asset-platform/internal/service"
	"github.com/iliyamo/ev-asset-platform/internal/utils"
)

// Deps carries everything the HTTP layer needs.  DB, Redis and Gatherer are
// optional.
type Deps struct {
	Service   *service.AuthService
	Cookies   utils.SessionCookies
	DB        *sql.DB
	Redis     *redis.Client
	RateLimit config.RateLimitConfig
	Log       *logger.Logger
	Metrics   *middleware.Metrics
	Gatherer  prometheus.Gatherer
}

// New builds the echo instance with global middleware and all routes.
func New(d Deps) *echo.Echo {
	if d.Log == nil {
		d.Log = logger.Nop()
	}
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Pre(middleware.CleanPath())
	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())
	e.Use(middleware.RequestLog(d.Log.Child("http"), d.Metrics))
	e.Use(middleware.Gate(middleware.GateConfig{
		Auth:    d.Service,
		Cookies: d.Cookies,
		Log:     d.Log.Child("gate"),
		Metrics: d.Metrics,
	}))

	RegisterRoutes(e, d)
	return e
}

// RegisterRoutes registers operational, auth, page and dashboard routes.
func RegisterRoutes(e *echo.Echo, d Deps) {
	e.GET("/healthz", handler.Health(d.DB))
	if d.Gatherer != nil {
		e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{})))
	}

	a := handler.NewAuthHandler(d.Service, d.Cookies, d.Log.Child("auth"), d.Metrics)
	g := e.Group("/auth", middleware.RateLimit(d.RateLimit, d.Redis, d.Log.Child("ratelimit"), d.Metrics))
	g.POST("/login", a.Login)
	g.POST("/admin-login", a.AdminLogin)
	g.POST("/signup", a.Signup)
	g.POST("/logout", a.Logout)
	g.POST("/validate", a.Validate)
	g.GET("/me", a.Me)

	e.GET("/", handler.Page("home"))
	e.GET("/login/unified", handler.Page("login"))
	e.GET("/login/admin", handler.Page("admin-login"))
	e.GET("/signup/investor", handler.Page("signup-investor"))
	e.GET("/signup/operator", handler.Page("signup-operator"))

	e.GET("/dashboard/:type", handler.Dashboard)
	e.GET("/dashboard/:type/*", handler.Dashboard)
}
