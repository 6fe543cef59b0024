// Package guard gates protected views on session resolution state.
package guard

import "faceconsole/internal/session"

// Decision is what a gated view should do for the current session state.
// Exactly one decision applies to any (state, identity) pair.
type Decision int

const (
	// Wait: session is still resolving; show a neutral placeholder, render
	// nothing protected and do not redirect yet.
	Wait Decision = iota
	// SignIn: resolved with no identity; send the user to the entry route,
	// preserving the requested location for post-login return.
	SignIn
	// Landing: logged in but not authorized for this view; send to the
	// default authenticated landing route instead of the entry route.
	Landing
	// Allow: render the requested content.
	Allow
)

func (d Decision) String() string {
	switch d {
	case Wait:
		return "wait"
	case SignIn:
		return "sign-in"
	case Landing:
		return "landing"
	case Allow:
		return "allow"
	}
	return "unknown"
}

// Check gates a view that only requires an authenticated session.
func Check(state session.State, identity *session.Identity) Decision {
	switch {
	case state == session.StateResolving:
		return Wait
	case identity == nil:
		return SignIn
	default:
		return Allow
	}
}

// CheckAdmin gates a view that additionally requires the administrator
// role. A logged-in non-administrator is sent to the landing route, which
// distinguishes "not logged in" from "logged in but unauthorized".
func CheckAdmin(state session.State, identity *session.Identity) Decision {
	if d := Check(state, identity); d != Allow {
		return d
	}
	if identity.Role != session.RoleAdmin {
		return Landing
	}
	return Allow
}
