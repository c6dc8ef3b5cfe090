package access

import (
	"net/url"
	"path"
	"strings"
)

const LoginRoute = "/auth/login"

// RouteRule restricts every path under Prefix to Roles. No roles means any authenticated user.
type RouteRule struct {
	Prefix string
	Roles  []Role
}

var staffRoles = []Role{RoleAgentSFD, RoleSuperviseurSFD, RoleAdminSFD, RoleAdminPlateforme}

// ProtectedRoutes lists the dashboard areas. Longest prefix wins.
var ProtectedRoutes = []RouteRule{
	{Prefix: "/dashboards/dashboard-client", Roles: []Role{RoleClient}},
	{Prefix: "/dashboards/dashboard-agent", Roles: []Role{RoleAgentSFD}},
	{Prefix: "/dashboards/dashboard-superviseur", Roles: []Role{RoleSuperviseurSFD}},
	{Prefix: "/dashboards/dashboard-admin-sfd", Roles: []Role{RoleAdminSFD}},
	{Prefix: "/dashboards/dashboard-admin-plateforme", Roles: []Role{RoleAdminPlateforme}},
	{Prefix: "/dashboards"},
	{Prefix: "/carnets"},
	{Prefix: "/tontines", Roles: staffRoles},
	{Prefix: "/clients", Roles: staffRoles},
	{Prefix: "/admin", Roles: []Role{RoleAdminSFD, RoleAdminPlateforme}},
	{Prefix: "/admin/plateforme", Roles: []Role{RoleAdminPlateforme}},
}

// RuleFor returns the most specific rule covering path.
func RuleFor(path string) (RouteRule, bool) {
	path = normalizePath(path)

	var best RouteRule
	found := false
	for _, rule := range ProtectedRoutes {
		if !matchesPrefix(path, rule.Prefix) {
			continue
		}
		if !found || len(rule.Prefix) > len(best.Prefix) {
			best = rule
			found = true
		}
	}
	return best, found
}

// AuthorizePath runs Authorize with the roles of the rule covering path.
// Paths without a rule only require an authenticated session.
func AuthorizePath(s Session, path string) (Decision, error) {
	rule, _ := RuleFor(path)
	return Authorize(s, rule.Roles)
}

// normalizePath reduces p to the canonical path the router would serve, so
// dot segments and doubled slashes cannot step out of a rule.
func normalizePath(p string) string {
	if i := strings.IndexAny(p, "?#"); i >= 0 {
		p = p[:i]
	}
	if u, err := url.PathUnescape(p); err == nil {
		p = u
	}
	return path.Clean("/" + p)
}

// prefixes match whole segments: /admin covers /admin/users but not /administration
func matchesPrefix(path, prefix string) bool {
	return path == prefix || strings.HasPrefix(path, prefix+"/")
}
