package guard

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"faceconsole/internal/session"
)

func TestCheck(t *testing.T) {
	admin := &session.Identity{ID: "root", Role: session.RoleAdmin}
	user := &session.Identity{ID: "alice", Role: session.RoleUser}

	tests := []struct {
		name     string
		state    session.State
		identity *session.Identity
		want     Decision
	}{
		{"resolving waits", session.StateResolving, nil, Wait},
		{"resolving waits even with stale identity", session.StateResolving, user, Wait},
		{"anonymous goes to sign-in", session.StateAnonymous, nil, SignIn},
		{"authenticated user allowed", session.StateAuthenticated, user, Allow},
		{"authenticated admin allowed", session.StateAuthenticated, admin, Allow},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Check(tt.state, tt.identity))
		})
	}
}

func TestCheckAdmin(t *testing.T) {
	admin := &session.Identity{ID: "root", Role: session.RoleAdmin}
	user := &session.Identity{ID: "alice", Role: session.RoleUser}

	tests := []struct {
		name     string
		state    session.State
		identity *session.Identity
		want     Decision
	}{
		{"resolving waits", session.StateResolving, nil, Wait},
		{"anonymous goes to sign-in", session.StateAnonymous, nil, SignIn},
		// A signed-in non-admin lands on the default route, never the
		// sign-in route.
		{"non-admin goes to landing", session.StateAuthenticated, user, Landing},
		{"admin allowed", session.StateAuthenticated, admin, Allow},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CheckAdmin(tt.state, tt.identity))
		})
	}
}
