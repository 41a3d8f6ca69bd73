package flows

import (
	"context"
	"time"

	"github.com/MrEthical07/ledgergate/permission"
)

// GuardUser is the flow-local view of a stored user.
type GuardUser struct {
	Name         string
	PasswordHash string
	Permission   permission.Level
}

// GuardSession is the flow-local view of a stored session.
type GuardSession struct {
	ID    string
	User  string
	Until time.Time
}

// GuardRequest carries the credential fields of one request.
type GuardRequest struct {
	Operation  string
	User       string
	Password   string
	SessionKey string
}

// GuardMetrics carries metric IDs for each guard outcome.
type GuardMetrics struct {
	AuthenticationFailure int
	AuthorizationFailure  int
	SessionNotFound       int
	SessionNotOwned       int
	SessionExpired        int
	StoreError            int
	Authorized            int
}

// GuardErrors carries the host-level sentinels returned for each denial.
type GuardErrors struct {
	NotReady        error
	Authentication  error
	Authorization   error
	SessionNotFound error
	SessionNotOwned error
	SessionExpired  error
}

// GuardDeps captures everything the ordered credential and session checks
// need. The guard only reads through these functions.
type GuardDeps struct {
	Now func() time.Time

	FindUser       func(context.Context, string) (*GuardUser, error)
	IsUserNotFound func(error) bool
	VerifyPassword func(plaintext, hash string) (bool, error)
	// BurnPassword runs one hash verification with no stored hash, so that an
	// unknown user costs the same as a wrong password.
	BurnPassword func(string)

	// ResolveSessionKey turns a client session key into a session id.
	ResolveSessionKey func(string) (string, error)
	FindSession       func(context.Context, string) (*GuardSession, error)
	IsSessionNotFound func(error) bool

	MetricInc  func(int)
	EmitDenied func(ctx context.Context, req GuardRequest, reason string, err error)
	Warn       func(string, ...any)
	Metrics    GuardMetrics
	Errors     GuardErrors
}

func (d *GuardDeps) normalize() bool {
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.MetricInc == nil {
		d.MetricInc = func(int) {}
	}
	if d.EmitDenied == nil {
		d.EmitDenied = func(context.Context, GuardRequest, string, error) {}
	}
	if d.Warn == nil {
		d.Warn = func(string, ...any) {}
	}
	if d.BurnPassword == nil {
		d.BurnPassword = func(string) {}
	}
	if d.IsUserNotFound == nil {
		d.IsUserNotFound = func(error) bool { return false }
	}
	if d.IsSessionNotFound == nil {
		d.IsSessionNotFound = func(error) bool { return false }
	}
	return d.FindUser != nil && d.VerifyPassword != nil
}

func (d *GuardDeps) deny(ctx context.Context, req GuardRequest, metric int, reason string, err error) error {
	d.MetricInc(metric)
	d.EmitDenied(ctx, req, reason, err)
	return err
}

// RunAuthenticate performs the first guard check alone: the user must exist
// and the password must verify. Both failures return Errors.Authentication.
func RunAuthenticate(ctx context.Context, req GuardRequest, deps GuardDeps) (*GuardUser, error) {
	if !deps.normalize() {
		return nil, deps.Errors.NotReady
	}
	return authenticate(ctx, req, &deps)
}

func authenticate(ctx context.Context, req GuardRequest, deps *GuardDeps) (*GuardUser, error) {
	user, err := deps.FindUser(ctx, req.User)
	if err != nil {
		deps.BurnPassword(req.Password)
		if deps.IsUserNotFound(err) {
			return nil, deps.deny(ctx, req, deps.Metrics.AuthenticationFailure, "user_not_found", deps.Errors.Authentication)
		}
		deps.Warn("ledgergate: user lookup failed", "operation", req.Operation, "error", err)
		deps.MetricInc(deps.Metrics.StoreError)
		return nil, deps.deny(ctx, req, deps.Metrics.AuthenticationFailure, "user_store_error", deps.Errors.Authentication)
	}

	ok, err := deps.VerifyPassword(req.Password, user.PasswordHash)
	if err != nil {
		deps.Warn("ledgergate: stored password hash unusable", "operation", req.Operation, "error", err)
		return nil, deps.deny(ctx, req, deps.Metrics.AuthenticationFailure, "hash_invalid", deps.Errors.Authentication)
	}
	if !ok {
		return nil, deps.deny(ctx, req, deps.Metrics.AuthenticationFailure, "password_mismatch", deps.Errors.Authentication)
	}
	return user, nil
}

// RunGuard executes the ordered checks for an operation that requires
// level required. The first failing check decides the returned error:
//
//  1. user exists and password verifies
//  2. user permission satisfies required
//  3. session key resolves to a stored session
//  4. session belongs to the authenticated user
//  5. now is before the session's Until
//
// Backend errors fail closed with the error of the check that was running.
func RunGuard(ctx context.Context, req GuardRequest, required permission.Level, deps GuardDeps) (*GuardUser, *GuardSession, error) {
	if !deps.normalize() || deps.ResolveSessionKey == nil || deps.FindSession == nil {
		return nil, nil, deps.Errors.NotReady
	}

	user, err := authenticate(ctx, req, &deps)
	if err != nil {
		return nil, nil, err
	}

	if !user.Permission.Satisfies(required) {
		return nil, nil, deps.deny(ctx, req, deps.Metrics.AuthorizationFailure, "insufficient_permission", deps.Errors.Authorization)
	}

	if req.SessionKey == "" {
		return nil, nil, deps.deny(ctx, req, deps.Metrics.SessionNotFound, "session_key_missing", deps.Errors.SessionNotFound)
	}
	sessionID, err := deps.ResolveSessionKey(req.SessionKey)
	if err != nil {
		return nil, nil, deps.deny(ctx, req, deps.Metrics.SessionNotFound, "session_key_invalid", deps.Errors.SessionNotFound)
	}
	sess, err := deps.FindSession(ctx, sessionID)
	if err != nil {
		if deps.IsSessionNotFound(err) {
			return nil, nil, deps.deny(ctx, req, deps.Metrics.SessionNotFound, "session_not_found", deps.Errors.SessionNotFound)
		}
		deps.Warn("ledgergate: session lookup failed", "operation", req.Operation, "error", err)
		deps.MetricInc(deps.Metrics.StoreError)
		return nil, nil, deps.deny(ctx, req, deps.Metrics.SessionNotFound, "session_store_error", deps.Errors.SessionNotFound)
	}

	if sess.User != user.Name {
		return nil, nil, deps.deny(ctx, req, deps.Metrics.SessionNotOwned, "session_not_owned", deps.Errors.SessionNotOwned)
	}

	if !deps.Now().Before(sess.Until) {
		return nil, nil, deps.deny(ctx, req, deps.Metrics.SessionExpired, "session_expired", deps.Errors.SessionExpired)
	}

	deps.MetricInc(deps.Metrics.Authorized)
	return user, sess, nil
}
