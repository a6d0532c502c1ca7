package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/ev-asset-platform/internal/middleware"
	"github.com/iliyamo/ev-asset-platform/internal/model"
)

// Page answers a public route with a small JSON document naming it.  The
// real pages are rendered by the frontend.
func Page(name string) echo.HandlerFunc {
	return func(c echo.Context) error {
		return c.JSON(http.StatusOK, echo.Map{"page": name})
	}
}

// Dashboard answers a role dashboard route.  The gate has already checked
// that the session role owns the dashboard segment.
func Dashboard(c echo.Context) error {
	cl := middleware.Claims(c)
	if cl == nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "not authenticated"})
	}
	role, ok := model.RoleForDashboard(c.Param("type"))
	if !ok || role != cl.Role {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"dashboard":  string(role),
		"section":    c.Param("*"),
		"account_id": cl.AccountID,
		"email":      cl.Email,
	})
}
