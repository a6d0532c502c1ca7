package model

import "strings"

// Role is the closed set of account roles.  Every authorization decision
// goes through the dashboards table below.
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleInvestor Role = "investor"
	RoleOperator Role = "operator"
)

// DashboardPrefix is the root of all role-scoped pages.
const DashboardPrefix = "/dashboard"

// dashboards maps each role to the URL segment of its dashboard area.
var dashboards = map[Role]string{
	RoleAdmin:    "admin",
	RoleInvestor: "investor",
	RoleOperator: "operator",
}

// ParseRole normalizes s and returns the matching role.
func ParseRole(s string) (Role, bool) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	_, ok := dashboards[r]
	return r, ok
}

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	_, ok := dashboards[r]
	return ok
}

// SelfService reports whether accounts with this role may be created
// through public signup.  Admins are provisioned out-of-band.
func (r Role) SelfService() bool {
	return r == RoleInvestor || r == RoleOperator
}

// DashboardPath returns the landing page for the role, or false when the
// role has no dashboard.
func (r Role) DashboardPath() (string, bool) {
	seg, ok := dashboards[r]
	if !ok {
		return "", false
	}
	return DashboardPrefix + "/" + seg, true
}

// RoleForDashboard returns the role required by a dashboard segment
// (the part right after /dashboard/).
func RoleForDashboard(segment string) (Role, bool) {
	for r, seg := range dashboards {
		if seg == segment {
			return r, true
		}
	}
	return "", false
}
