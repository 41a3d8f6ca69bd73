package flows

import (
	"context"
	"time"

	"github.com/MrEthical07/ledgergate/session"
)

// DefaultSessionIDAttempts bounds id generation retries on collision.
const DefaultSessionIDAttempts = 3

// IssueSessionResult is returned by a successful RunIssueSession.
type IssueSessionResult struct {
	Key     string
	Session *session.Session
}

// IssueSessionMetrics carries metric IDs used by the session flow.
type IssueSessionMetrics struct {
	SessionCreated     int
	SessionIDCollision int
	PasswordRehashed   int
}

// IssueSessionErrors carries host-level sentinels used by the session flow.
type IssueSessionErrors struct {
	NotReady           error
	SessionUnavailable error
}

// IssueSessionDeps captures the session issuance dependencies. Guard
// supplies the authentication step.
type IssueSessionDeps struct {
	Guard    GuardDeps
	Lifetime time.Duration
	Attempts int

	NewSessionID   func() (string, error)
	CreateSession  func(context.Context, *session.Session) error
	IsIDCollision  func(error) bool
	SignSessionKey func(*session.Session) (string, error)

	// Optional rehash on successful authentication.
	RehashOnAuth       bool
	NeedsRehash        func(string) (bool, error)
	HashPassword       func(string) (string, error)
	UpdatePasswordHash func(context.Context, string, string) error

	MetricInc func(int)
	EmitAudit func(ctx context.Context, user, sessionID string, err error)
	Warn      func(string, ...any)
	Metrics   IssueSessionMetrics
	Errors    IssueSessionErrors
}

// RunIssueSession authenticates req and stores a new session for the user
// with Registered = now and Until = now + Lifetime. The returned key is the
// signed client-facing token.
func RunIssueSession(ctx context.Context, req GuardRequest, deps IssueSessionDeps) (*IssueSessionResult, error) {
	if deps.MetricInc == nil {
		deps.MetricInc = func(int) {}
	}
	if deps.EmitAudit == nil {
		deps.EmitAudit = func(context.Context, string, string, error) {}
	}
	if deps.Warn == nil {
		deps.Warn = func(string, ...any) {}
	}
	if deps.IsIDCollision == nil {
		deps.IsIDCollision = func(error) bool { return false }
	}
	if deps.Attempts <= 0 {
		deps.Attempts = DefaultSessionIDAttempts
	}
	if deps.Lifetime <= 0 ||
		deps.NewSessionID == nil ||
		deps.CreateSession == nil ||
		deps.SignSessionKey == nil {
		return nil, deps.Errors.NotReady
	}

	user, err := RunAuthenticate(ctx, req, deps.Guard)
	if err != nil {
		return nil, err
	}

	if deps.RehashOnAuth {
		maybeRehash(ctx, user, req.Password, &deps)
	}

	now := time.Now()
	if deps.Guard.Now != nil {
		now = deps.Guard.Now()
	}

	var sess *session.Session
	for attempt := 0; attempt < deps.Attempts; attempt++ {
		id, err := deps.NewSessionID()
		if err != nil {
			deps.Warn("ledgergate: session id generation failed", "error", err)
			return nil, deps.Errors.SessionUnavailable
		}

		candidate := session.New(id, user.Name, now, deps.Lifetime)
		err = deps.CreateSession(ctx, candidate)
		if err == nil {
			sess = candidate
			break
		}
		if !deps.IsIDCollision(err) {
			deps.Warn("ledgergate: session persist failed", "user", user.Name, "error", err)
			deps.EmitAudit(ctx, user.Name, "", deps.Errors.SessionUnavailable)
			return nil, deps.Errors.SessionUnavailable
		}
		deps.MetricInc(deps.Metrics.SessionIDCollision)
	}
	if sess == nil {
		deps.EmitAudit(ctx, user.Name, "", deps.Errors.SessionUnavailable)
		return nil, deps.Errors.SessionUnavailable
	}

	key, err := deps.SignSessionKey(sess)
	if err != nil {
		deps.Warn("ledgergate: session key signing failed", "error", err)
		return nil, deps.Errors.SessionUnavailable
	}

	deps.MetricInc(deps.Metrics.SessionCreated)
	deps.EmitAudit(ctx, user.Name, sess.ID, nil)
	return &IssueSessionResult{Key: key, Session: sess}, nil
}

func maybeRehash(ctx context.Context, user *GuardUser, plaintext string, deps *IssueSessionDeps) {
	if deps.NeedsRehash == nil || deps.HashPassword == nil || deps.UpdatePasswordHash == nil {
		return
	}
	needs, err := deps.NeedsRehash(user.PasswordHash)
	if err != nil || !needs {
		return
	}
	hash, err := deps.HashPassword(plaintext)
	if err != nil {
		deps.Warn("ledgergate: password rehash generation failed", "user", user.Name)
		return
	}
	if err := deps.UpdatePasswordHash(ctx, user.Name, hash); err != nil {
		deps.Warn("ledgergate: password rehash update failed", "user", user.Name, "error", err)
		return
	}
	deps.MetricInc(deps.Metrics.PasswordRehashed)
}
