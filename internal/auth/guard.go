package auth

// Capability is the access rule attached to an endpoint.
type Capability string

const (
	CapOpen        Capability = "open"
	CapSelfOrScout Capability = "self-or-scout"
	CapAthleteOnly Capability = "athlete-only"
	CapScoutOnly   Capability = "scout-only"
)

// Decision is the outcome of Authorize. Reason is safe to return to clients
// and never says whether the target resource exists.
type Decision struct {
	Allowed bool
	Reason  string
}

const denyReason = "access denied"

func allow() Decision { return Decision{Allowed: true} }

func deny() Decision { return Decision{Reason: denyReason} }

// Authorize evaluates a capability against verified claims. ownerID is the
// user id that owns the target resource and is only read for CapSelfOrScout.
func Authorize(claims Claims, capability Capability, ownerID int64) Decision {
	switch capability {
	case CapOpen:
		return allow()
	case CapSelfOrScout:
		if claims.Role == RoleScout || (claims.UserID > 0 && claims.UserID == ownerID) {
			return allow()
		}
		return deny()
	case CapAthleteOnly:
		if claims.Role == RoleAthlete {
			return allow()
		}
		return deny()
	case CapScoutOnly:
		if claims.Role == RoleScout {
			return allow()
		}
		return deny()
	default:
		return deny()
	}
}
