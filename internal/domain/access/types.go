package access

import "strings"

type Role string

const (
	RoleClient          Role = "CLIENT"
	RoleAgentSFD        Role = "AGENT_SFD"
	RoleSuperviseurSFD  Role = "SUPERVISEUR_SFD"
	RoleAdminSFD        Role = "ADMIN_SFD"
	RoleAdminPlateforme Role = "ADMIN_PLATEFORME"
)

type SidebarVariant string

const (
	SidebarClient          SidebarVariant = "client"
	SidebarAgent           SidebarVariant = "agent"
	SidebarSuperviseur     SidebarVariant = "superviseur"
	SidebarAdminSFD        SidebarVariant = "admin-sfd"
	SidebarAdminPlateforme SidebarVariant = "admin-plateforme"
)

// RoleProfile is everything the platform derives from a role.
type RoleProfile struct {
	Role           Role
	DefaultRoute   string
	SidebarVariant SidebarVariant
	Label          string
}

// allRoles keeps a stable order for listings. roleTable must have one entry per element.
var allRoles = []Role{
	RoleClient,
	RoleAgentSFD,
	RoleSuperviseurSFD,
	RoleAdminSFD,
	RoleAdminPlateforme,
}

var roleTable = map[Role]RoleProfile{
	RoleClient: {
		Role:           RoleClient,
		DefaultRoute:   "/dashboards/dashboard-client",
		SidebarVariant: SidebarClient,
		Label:          "Client",
	},
	RoleAgentSFD: {
		Role:           RoleAgentSFD,
		DefaultRoute:   "/dashboards/dashboard-agent",
		SidebarVariant: SidebarAgent,
		Label:          "Agent SFD",
	},
	RoleSuperviseurSFD: {
		Role:           RoleSuperviseurSFD,
		DefaultRoute:   "/dashboards/dashboard-superviseur",
		SidebarVariant: SidebarSuperviseur,
		Label:          "Superviseur SFD",
	},
	RoleAdminSFD: {
		Role:           RoleAdminSFD,
		DefaultRoute:   "/dashboards/dashboard-admin-sfd",
		SidebarVariant: SidebarAdminSFD,
		Label:          "Administrateur SFD",
	},
	RoleAdminPlateforme: {
		Role:           RoleAdminPlateforme,
		DefaultRoute:   "/dashboards/dashboard-admin-plateforme",
		SidebarVariant: SidebarAdminPlateforme,
		Label:          "Administrateur Plateforme",
	},
}

func init() {
	if len(roleTable) != len(allRoles) {
		panic("access: role table is not total")
	}
	for _, r := range allRoles {
		p, ok := roleTable[r]
		if !ok || p.DefaultRoute == "" {
			panic("access: role " + string(r) + " has no profile")
		}
	}
}

// Roles returns every known role.
func Roles() []Role {
	out := make([]Role, len(allRoles))
	copy(out, allRoles)
	return out
}

func (r Role) Valid() bool {
	_, ok := roleTable[r]
	return ok
}

// ParseRole accepts the canonical upper-case names, ignoring surrounding whitespace.
func ParseRole(s string) (Role, error) {
	r := Role(strings.ToUpper(strings.TrimSpace(s)))
	if !r.Valid() {
		return "", unknownRole(Role(s))
	}
	return r, nil
}

func ProfileFor(r Role) (RoleProfile, error) {
	p, ok := roleTable[r]
	if !ok {
		return RoleProfile{}, unknownRole(r)
	}
	return p, nil
}

// DefaultRoute returns the landing route of a role.
func DefaultRoute(r Role) (string, error) {
	p, err := ProfileFor(r)
	if err != nil {
		return "", err
	}
	return p.DefaultRoute, nil
}

// MustDefaultRoute panics on an unknown role. Only for wiring code where a bad role is a deploy bug.
func MustDefaultRoute(r Role) string {
	route, err := DefaultRoute(r)
	if err != nil {
		panic(err)
	}
	return route
}

// IsSFDStaff reports whether the role belongs to an SFD back office or the platform itself.
func IsSFDStaff(r Role) bool {
	switch r {
	case RoleAgentSFD, RoleSuperviseurSFD, RoleAdminSFD, RoleAdminPlateforme:
		return true
	}
	return false
}
