package middleware

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/ev-asset-platform/internal/logger"
)

// RequestLog writes one structured line per request and records its
// duration.
func RequestLog(log *logger.Logger, m *Metrics) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}

			req := c.Request()
			res := c.Response()
			latency := time.Since(start)

			state, _ := c.Get(GateStateKey).(string)
			ev := log.Info()
			if res.Status >= 500 {
				ev = log.Error().Err(err)
			}
			ev.Str("method", req.Method).
				Str("path", req.URL.Path).
				Int("status", res.Status).
				Dur("latency", latency).
				Str("request_id", res.Header().Get(echo.HeaderXRequestID)).
				Str("gate", state).
				Str("ip", c.RealIP()).
				Msg("request")

			if m != nil {
				route := c.Path()
				if route == "" {
					route = "unmatched"
				}
				m.RequestDuration.WithLabelValues(req.Method, route, strconv.Itoa(res.Status)).Observe(latency.Seconds())
			}
			return nil
		}
	}
}
