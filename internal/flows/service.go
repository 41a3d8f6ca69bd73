package flows

import (
	"context"

	"github.com/MrEthical07/ledgergate/permission"
)

// Service is the flow runner built once by the gateway.
type Service struct {
	deps Deps
}

// New returns a flow service with immutable dependency wiring.
func New(deps Deps) Service {
	return Service{deps: deps}
}

// Initialized reports whether the guard has been wired.
func (s Service) Initialized() bool {
	return s.deps.Guard.FindUser != nil && s.deps.Guard.FindSession != nil
}

func (s Service) Guard(ctx context.Context, req GuardRequest, required permission.Level) (*GuardUser, *GuardSession, error) {
	return RunGuard(ctx, req, required, s.deps.Guard)
}

func (s Service) Authenticate(ctx context.Context, req GuardRequest) (*GuardUser, error) {
	return RunAuthenticate(ctx, req, s.deps.Guard)
}

func (s Service) IssueSession(ctx context.Context, req GuardRequest) (*IssueSessionResult, error) {
	return RunIssueSession(ctx, req, s.deps.IssueSession)
}

func (s Service) CreateUser(ctx context.Context, caller *GuardUser, req CreateUserRequest) (string, error) {
	return RunCreateUser(ctx, caller, req, s.deps.CreateUser)
}

func (s Service) ChangePassword(ctx context.Context, user string, newPassword []byte) error {
	return RunChangePassword(ctx, user, newPassword, s.deps.ChangePassword)
}
