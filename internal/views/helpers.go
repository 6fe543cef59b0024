package views

import (
	"context"
	"errors"

	"faceconsole/internal/app"
	"faceconsole/internal/guard"
	"faceconsole/internal/session"
)

var (
	errNotSignedIn  = errors.New("not signed in: run 'faceconsole login' first")
	errNotAdmin     = errors.New("administrator role required")
	errStillLoading = errors.New("session still resolving, try again")
)

// requireAuth restores the session once and gates the command on it. The
// restore resolves before any protected output is produced, so nothing
// protected ever renders while the state is still resolving.
func requireAuth(ctx context.Context, a *app.App) error {
	restoreOnce(ctx, a)

	switch guard.Check(a.Session.State(), a.Session.Identity()) {
	case guard.Wait:
		return errStillLoading
	case guard.SignIn:
		return errNotSignedIn
	default:
		return nil
	}
}

// requireAdmin additionally demands the administrator role.
func requireAdmin(ctx context.Context, a *app.App) error {
	restoreOnce(ctx, a)

	switch guard.CheckAdmin(a.Session.State(), a.Session.Identity()) {
	case guard.Wait:
		return errStillLoading
	case guard.SignIn:
		return errNotSignedIn
	case guard.Landing:
		return errNotAdmin
	default:
		return nil
	}
}

func restoreOnce(ctx context.Context, a *app.App) {
	if a.Session.State() == session.StateResolving {
		a.Session.Restore(ctx)
	}
}

// boolFlag turns a changed cobra bool flag into an optional field.
func boolFlag(changed bool, value bool) *bool {
	if !changed {
		return nil
	}
	return &value
}

// intFlag turns a changed cobra int flag into an optional field.
func intFlag(changed bool, value int) *int {
	if !changed {
		return nil
	}
	return &value
}
