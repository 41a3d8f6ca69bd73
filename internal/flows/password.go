package flows

import (
	"context"
	"unicode/utf8"
)

// ChangePasswordMetrics carries metric IDs used by the password flow.
type ChangePasswordMetrics struct {
	PasswordChanged int
}

// ChangePasswordErrors carries host-level sentinels used by the password flow.
type ChangePasswordErrors struct {
	NotReady     error
	InvalidUTF8  error
	UserNotFound error
	Unavailable  error
}

// ChangePasswordDeps captures set_password dependencies.
type ChangePasswordDeps struct {
	HashPassword       func(string) (string, error)
	UpdatePasswordHash func(context.Context, string, string) error
	IsUserNotFound     func(error) bool

	MetricInc func(int)
	EmitAudit func(ctx context.Context, user string, err error)
	Warn      func(string, ...any)
	Metrics   ChangePasswordMetrics
	Errors    ChangePasswordErrors
}

// RunChangePassword replaces the stored hash of user with a hash of
// newPassword. The write is committed before it returns, so the next
// request observes the new credential. Existing sessions are unaffected.
func RunChangePassword(ctx context.Context, user string, newPassword []byte, deps ChangePasswordDeps) error {
	if deps.MetricInc == nil {
		deps.MetricInc = func(int) {}
	}
	if deps.EmitAudit == nil {
		deps.EmitAudit = func(context.Context, string, error) {}
	}
	if deps.Warn == nil {
		deps.Warn = func(string, ...any) {}
	}
	if deps.IsUserNotFound == nil {
		deps.IsUserNotFound = func(error) bool { return false }
	}
	if deps.HashPassword == nil || deps.UpdatePasswordHash == nil {
		return deps.Errors.NotReady
	}

	if !utf8.Valid(newPassword) {
		deps.EmitAudit(ctx, user, deps.Errors.InvalidUTF8)
		return deps.Errors.InvalidUTF8
	}

	hash, err := deps.HashPassword(string(newPassword))
	if err != nil {
		deps.EmitAudit(ctx, user, err)
		return err
	}

	if err := deps.UpdatePasswordHash(ctx, user, hash); err != nil {
		if deps.IsUserNotFound(err) {
			deps.EmitAudit(ctx, user, deps.Errors.UserNotFound)
			return deps.Errors.UserNotFound
		}
		deps.Warn("ledgergate: password update failed", "user", user, "error", err)
		deps.EmitAudit(ctx, user, deps.Errors.Unavailable)
		return deps.Errors.Unavailable
	}

	deps.MetricInc(deps.Metrics.PasswordChanged)
	deps.EmitAudit(ctx, user, nil)
	return nil
}
