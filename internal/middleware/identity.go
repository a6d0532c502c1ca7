package middleware

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/ev-asset-platform/internal/utils"
)

// Context keys set by the gate.
const (
	ClaimsKey    = "claims"
	GateStateKey = "gate_state"
)

// Claims returns the verified session claims the gate stored on c, or nil
// for public routes.
func Claims(c echo.Context) *utils.Claims {
	cl, _ := c.Get(ClaimsKey).(*utils.Claims)
	return cl
}
