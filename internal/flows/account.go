package flows

import (
	"context"
	"time"

	"github.com/MrEthical07/ledgergate/permission"
)

// CreateUserRequest is the decoded new_user payload.
type CreateUserRequest struct {
	Name       string
	Password   string
	Permission string
}

// CreateUserRecord is what the flow asks the store to persist.
type CreateUserRecord struct {
	Name         string
	PasswordHash string
	Permission   permission.Level
	CreatedAt    time.Time
}

// CreateUserMetrics carries metric IDs used by the account flow.
type CreateUserMetrics struct {
	UserCreated          int
	UserCreationRejected int
}

// CreateUserErrors carries host-level sentinels used by the account flow.
// Their messages reach the client inside the handler failure text.
type CreateUserErrors struct {
	NotReady            error
	InvalidName         error
	InvalidPermission   error
	PermissionEscalates error
	UserExists          error
	Unavailable         error
}

// CreateUserDeps captures user provisioning dependencies.
type CreateUserDeps struct {
	DefaultPermission permission.Level
	Now               func() time.Time

	ValidateName  func(string) error
	CheckPassword func(string) error
	HashPassword  func(string) (string, error)
	CreateUser    func(context.Context, CreateUserRecord) error
	IsUserExists  func(error) bool

	MetricInc func(int)
	EmitAudit func(ctx context.Context, caller, created string, level permission.Level, err error)
	Warn      func(string, ...any)
	Metrics   CreateUserMetrics
	Errors    CreateUserErrors
}

// RunCreateUser provisions a user on behalf of caller. An explicit
// permission may not be stronger than caller's own level.
func RunCreateUser(ctx context.Context, caller *GuardUser, req CreateUserRequest, deps CreateUserDeps) (string, error) {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.MetricInc == nil {
		deps.MetricInc = func(int) {}
	}
	if deps.EmitAudit == nil {
		deps.EmitAudit = func(context.Context, string, string, permission.Level, error) {}
	}
	if deps.Warn == nil {
		deps.Warn = func(string, ...any) {}
	}
	if deps.IsUserExists == nil {
		deps.IsUserExists = func(error) bool { return false }
	}
	if caller == nil ||
		deps.ValidateName == nil ||
		deps.HashPassword == nil ||
		deps.CreateUser == nil {
		return "", deps.Errors.NotReady
	}

	reject := func(err error) (string, error) {
		deps.MetricInc(deps.Metrics.UserCreationRejected)
		deps.EmitAudit(ctx, caller.Name, req.Name, deps.DefaultPermission, err)
		return "", err
	}

	if err := deps.ValidateName(req.Name); err != nil {
		return reject(deps.Errors.InvalidName)
	}
	if deps.CheckPassword != nil {
		if err := deps.CheckPassword(req.Password); err != nil {
			return reject(err)
		}
	}

	level := deps.DefaultPermission
	if req.Permission != "" {
		parsed, err := permission.ParseLevel(req.Permission)
		if err != nil {
			return reject(deps.Errors.InvalidPermission)
		}
		level = parsed
	}
	if !caller.Permission.Satisfies(level) {
		return reject(deps.Errors.PermissionEscalates)
	}

	hash, err := deps.HashPassword(req.Password)
	if err != nil {
		return reject(err)
	}

	err = deps.CreateUser(ctx, CreateUserRecord{
		Name:         req.Name,
		PasswordHash: hash,
		Permission:   level,
		CreatedAt:    deps.Now(),
	})
	if err != nil {
		if deps.IsUserExists(err) {
			return reject(deps.Errors.UserExists)
		}
		deps.Warn("ledgergate: user create failed", "user", req.Name, "error", err)
		return reject(deps.Errors.Unavailable)
	}

	deps.MetricInc(deps.Metrics.UserCreated)
	deps.EmitAudit(ctx, caller.Name, req.Name, level, nil)
	return req.Name, nil
}
