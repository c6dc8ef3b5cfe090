package access

// Session is the identity snapshot the gate decides on. Callers build it explicitly.
type Session struct {
	IdentityID    string
	Role          Role
	Authenticated bool
	Loading       bool
}

type Outcome string

const (
	OutcomeAllow    Outcome = "allow"
	OutcomeRedirect Outcome = "redirect"
	OutcomePending  Outcome = "pending"
)

type Decision struct {
	Outcome Outcome
	Target  string
}

func (d Decision) Allowed() bool { return d.Outcome == OutcomeAllow }

func allow() Decision { return Decision{Outcome: OutcomeAllow} }

func pending() Decision { return Decision{Outcome: OutcomePending} }

func redirect(target string) Decision {
	return Decision{Outcome: OutcomeRedirect, Target: target}
}

// Authorize decides whether the session may reach a route restricted to allowed.
// An empty allowed set admits any authenticated role.
//
// Denial is returned as a REDIRECT decision. The error is reserved for roles
// outside the known set, in the session or in allowed.
func Authorize(s Session, allowed []Role) (Decision, error) {
	// identity still resolving: no redirect may be decided on partial data
	if s.Loading {
		return pending(), nil
	}
	if !s.Authenticated {
		return redirect(LoginRoute), nil
	}

	for _, r := range allowed {
		if !r.Valid() {
			return Decision{}, unknownRole(r)
		}
	}

	home, err := DefaultRoute(s.Role)
	if err != nil {
		return Decision{}, err
	}

	if len(allowed) == 0 {
		return allow(), nil
	}
	for _, r := range allowed {
		if r == s.Role {
			return allow(), nil
		}
	}
	return redirect(home), nil
}
