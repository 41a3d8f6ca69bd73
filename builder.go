package ledgergate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/MrEthical07/ledgergate/internal"
	"github.com/MrEthical07/ledgergate/internal/audit"
	"github.com/MrEthical07/ledgergate/internal/flows"
	"github.com/MrEthical07/ledgergate/internal/logging"
	"github.com/MrEthical07/ledgergate/internal/metrics"
	"github.com/MrEthical07/ledgergate/password"
	"github.com/MrEthical07/ledgergate/permission"
	"github.com/MrEthical07/ledgergate/session"
	"github.com/MrEthical07/ledgergate/sessionkey"
	"github.com/MrEthical07/ledgergate/users"
	"github.com/redis/go-redis/v9"
)

// Builder assembles a [Gateway]. It is configured during initialization
// and can be built once.
type Builder struct {
	config Config
	redis  redis.UniversalClient

	userStore    UserStore
	sessionStore SessionStore
	ledger       Ledger
	logger       *slog.Logger
	auditSink    AuditSink
	now          func() time.Time

	operations []operationSpec

	built bool
}

type operationSpec struct {
	name        string
	requirement permission.Requirement
	handler     HandlerFunc
}

// New returns a Builder holding the default configuration.
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig replaces the whole configuration. The value is copied.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis sets the client backing the default user and session stores.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithUserStore overrides the Redis user store.
func (b *Builder) WithUserStore(store UserStore) *Builder {
	b.userStore = store
	return b
}

// WithSessionStore overrides the Redis session store.
func (b *Builder) WithSessionStore(store SessionStore) *Builder {
	b.sessionStore = store
	return b
}

// WithLedger sets the backend for status, contracts, verify, call and api.
// Without one, those operations fail with ErrLedgerUnavailable.
func (b *Builder) WithLedger(l Ledger) *Builder {
	b.ledger = l
	return b
}

// WithLogger sets the logger. Its handler is wrapped so credentials are
// redacted.
func (b *Builder) WithLogger(logger *slog.Logger) *Builder {
	b.logger = logger
	return b
}

// WithAuditSink sets the audit destination and enables audit dispatch.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	b.config.Audit.Enabled = sink != nil
	return b
}

// WithClock replaces time.Now for session issuance and expiry checks.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.now = now
	return b
}

// WithOperation registers an additional operation. Names already used by a
// built-in operation are rejected at Build.
func (b *Builder) WithOperation(name string, req permission.Requirement, handler HandlerFunc) *Builder {
	b.operations = append(b.operations, operationSpec{name: name, requirement: req, handler: handler})
	return b
}

// WithMetricsEnabled toggles in-process metrics.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// WithLatencyHistograms toggles the dispatch latency histogram.
func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration, wires the stores, hasher, signer and
// flows, and freezes the operation registry.
func (b *Builder) Build() (*Gateway, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger := b.logger
	if logger == nil {
		logger = logging.Discard()
	}
	logger = slog.New(logging.Wrap(logger.Handler(), logging.Options{}))

	now := b.now
	if now == nil {
		now = time.Now
	}

	// -------- STORES --------
	userStore := b.userStore
	sessionStore := b.sessionStore
	if userStore == nil || sessionStore == nil {
		if b.redis == nil {
			return nil, errors.New("redis client required unless both stores are provided")
		}
		if userStore == nil {
			userStore = users.NewStore(b.redis, cfg.Account.RedisPrefix)
		}
		if sessionStore == nil {
			sessionStore = session.NewStore(b.redis, cfg.Session.RedisPrefix, cfg.Session.Retention)
		}
	}

	ledger := b.ledger
	if ledger == nil {
		ledger = unavailableLedger{}
	}

	// -------- CREDENTIALS --------
	hasher, err := password.NewArgon2(cfg.Password.argon2())
	if err != nil {
		return nil, err
	}

	if len(cfg.Session.SigningSecret) == 0 {
		secret, err := internal.NewSecret(sessionkey.MinSecretLength)
		if err != nil {
			return nil, fmt.Errorf("generate signing secret: %w", err)
		}
		cfg.Session.SigningSecret = secret
		logger.Warn("ledgergate: no session signing secret configured, generated an ephemeral one")
	}
	signer, err := sessionkey.NewSigner(sessionkey.Config{
		Secret:     cfg.Session.SigningSecret,
		Issuer:     cfg.Session.Issuer,
		KeyID:      cfg.Session.KeyID,
		VerifyKeys: cfg.Session.VerifyKeys,
	})
	if err != nil {
		return nil, err
	}

	g := &Gateway{
		config:   cfg,
		users:    userStore,
		sessions: sessionStore,
		ledger:   ledger,
		hasher:   hasher,
		signer:   signer,
		logger:   logger,
		now:      now,
		metrics: metrics.New(metrics.Config{
			Enabled:                 cfg.Metrics.Enabled,
			EnableLatencyHistograms: cfg.Metrics.EnableLatencyHistograms,
		}),
	}

	sink := b.auditSink
	if cfg.Audit.Enabled && sink == nil {
		sink = audit.NewSlogSink(logger)
	}
	g.audit = audit.NewDispatcher(audit.Config{
		Enabled:    cfg.Audit.Enabled,
		BufferSize: cfg.Audit.BufferSize,
		DropIfFull: cfg.Audit.DropIfFull,
	}, sink)

	// -------- OPERATION REGISTRY --------
	registry := permission.NewRegistry[HandlerFunc]()
	for _, op := range g.builtinOperations() {
		if err := registry.Register(op.name, op.requirement, op.handler); err != nil {
			return nil, err
		}
	}
	for _, op := range b.operations {
		if op.handler == nil {
			return nil, fmt.Errorf("operation %q has no handler", op.name)
		}
		if err := registry.Register(op.name, op.requirement, op.handler); err != nil {
			return nil, fmt.Errorf("operation %q: %w", op.name, err)
		}
	}
	registry.Freeze()
	g.registry = registry

	g.flows = flows.New(g.flowDeps())
	if !g.flows.Initialized() {
		return nil, ErrGatewayNotReady
	}

	b.built = true
	return g, nil
}

func (g *Gateway) flowDeps() flows.Deps {
	inc := func(id int) { g.metrics.Inc(metrics.ID(id)) }
	warn := func(msg string, args ...any) { g.logger.Warn(msg, args...) }

	guard := flows.GuardDeps{
		Now: g.now,
		FindUser: func(ctx context.Context, name string) (*flows.GuardUser, error) {
			u, err := g.users.FindUserByName(ctx, name)
			if err != nil {
				return nil, err
			}
			return &flows.GuardUser{Name: u.Name, PasswordHash: u.PasswordHash, Permission: u.Permission}, nil
		},
		IsUserNotFound: func(err error) bool { return errors.Is(err, users.ErrNotFound) },
		VerifyPassword: g.hasher.Verify,
		BurnPassword:   g.hasher.Burn,
		ResolveSessionKey: func(key string) (string, error) {
			claims, err := g.signer.Parse(key)
			if err != nil {
				return "", err
			}
			if !internal.ValidSessionID(claims.SessionID) {
				return "", sessionkey.ErrInvalidKey
			}
			return claims.SessionID, nil
		},
		FindSession: func(ctx context.Context, id string) (*flows.GuardSession, error) {
			s, err := g.sessions.FindSession(ctx, id)
			if err != nil {
				return nil, err
			}
			return &flows.GuardSession{ID: s.ID, User: s.User, Until: s.Until}, nil
		},
		IsSessionNotFound: func(err error) bool { return errors.Is(err, session.ErrNotFound) },
		MetricInc:         inc,
		EmitDenied: func(ctx context.Context, req flows.GuardRequest, reason string, err error) {
			g.logger.Debug("ledgergate: request denied", "operation", req.Operation, "user", req.User, "reason", reason)
			g.emitAudit(ctx, AuditEvent{
				EventType: AuditRequestDenied,
				User:      req.User,
				Operation: req.Operation,
				Error:     err.Error(),
				Metadata:  map[string]string{"reason": reason},
			})
		},
		Warn: warn,
		Metrics: flows.GuardMetrics{
			AuthenticationFailure: int(metrics.AuthenticationFailure),
			AuthorizationFailure:  int(metrics.AuthorizationFailure),
			SessionNotFound:       int(metrics.SessionNotFound),
			SessionNotOwned:       int(metrics.SessionNotOwned),
			SessionExpired:        int(metrics.SessionExpired),
			StoreError:            int(metrics.GuardStoreError),
			Authorized:            int(metrics.Authorized),
		},
		Errors: flows.GuardErrors{
			NotReady:        ErrGatewayNotReady,
			Authentication:  ErrAuthentication,
			Authorization:   ErrAuthorization,
			SessionNotFound: ErrSessionNotFound,
			SessionNotOwned: ErrSessionNotOwned,
			SessionExpired:  ErrSessionExpired,
		},
	}

	return flows.Deps{
		Guard: guard,
		IssueSession: flows.IssueSessionDeps{
			Guard:          guard,
			Lifetime:       g.config.Session.Lifetime,
			Attempts:       g.config.Session.IDAttempts,
			NewSessionID:   internal.NewSessionID,
			CreateSession:  g.sessions.CreateSession,
			IsIDCollision:  func(err error) bool { return errors.Is(err, session.ErrIDExists) },
			SignSessionKey: g.signer.Issue,

			RehashOnAuth:       g.config.Password.UpgradeOnLogin,
			NeedsRehash:        g.hasher.NeedsRehash,
			HashPassword:       g.hasher.Hash,
			UpdatePasswordHash: g.users.UpdatePasswordHash,

			MetricInc: inc,
			EmitAudit: func(ctx context.Context, user, sessionID string, err error) {
				g.emitAudit(ctx, AuditEvent{
					EventType: AuditSessionCreated,
					User:      user,
					Operation: opSession,
					SessionID: sessionID,
					Success:   err == nil,
					Error:     errorString(err),
				})
			},
			Warn: warn,
			Metrics: flows.IssueSessionMetrics{
				SessionCreated:     int(metrics.SessionCreated),
				SessionIDCollision: int(metrics.SessionIDCollision),
				PasswordRehashed:   int(metrics.PasswordRehashed),
			},
			Errors: flows.IssueSessionErrors{
				NotReady:           ErrGatewayNotReady,
				SessionUnavailable: ErrSessionUnavailable,
			},
		},
		CreateUser: flows.CreateUserDeps{
			DefaultPermission: g.config.Account.DefaultPermission,
			Now:               g.now,
			ValidateName:      users.ValidateName,
			CheckPassword:     g.hasher.CheckPolicy,
			HashPassword:      g.hasher.Hash,
			CreateUser: func(ctx context.Context, rec flows.CreateUserRecord) error {
				return g.users.CreateUser(ctx, &users.User{
					Name:         rec.Name,
					PasswordHash: rec.PasswordHash,
					Permission:   rec.Permission,
					CreatedAt:    rec.CreatedAt,
				})
			},
			IsUserExists: func(err error) bool { return errors.Is(err, users.ErrExists) },
			MetricInc:    inc,
			EmitAudit: func(ctx context.Context, caller, created string, level permission.Level, err error) {
				g.emitAudit(ctx, AuditEvent{
					EventType: AuditUserCreated,
					User:      caller,
					Operation: opNewUser,
					Success:   err == nil,
					Error:     errorString(err),
					Metadata:  map[string]string{"new_user": created, "permission": level.String()},
				})
			},
			Warn: warn,
			Metrics: flows.CreateUserMetrics{
				UserCreated:          int(metrics.UserCreated),
				UserCreationRejected: int(metrics.UserCreationRejected),
			},
			Errors: flows.CreateUserErrors{
				NotReady:            ErrGatewayNotReady,
				InvalidName:         ErrInvalidUserName,
				InvalidPermission:   ErrInvalidPermission,
				PermissionEscalates: ErrPermissionEscalation,
				UserExists:          ErrUserExists,
				Unavailable:         ErrStoreUnavailable,
			},
		},
		ChangePassword: flows.ChangePasswordDeps{
			HashPassword:       g.hasher.Hash,
			UpdatePasswordHash: g.users.UpdatePasswordHash,
			IsUserNotFound:     func(err error) bool { return errors.Is(err, users.ErrNotFound) },
			MetricInc:          inc,
			EmitAudit: func(ctx context.Context, user string, err error) {
				g.emitAudit(ctx, AuditEvent{
					EventType: AuditPasswordChanged,
					User:      user,
					Operation: opSetPassword,
					Success:   err == nil,
					Error:     errorString(err),
				})
			},
			Warn: warn,
			Metrics: flows.ChangePasswordMetrics{
				PasswordChanged: int(metrics.PasswordChanged),
			},
			Errors: flows.ChangePasswordErrors{
				NotReady:     ErrGatewayNotReady,
				InvalidUTF8:  ErrInvalidPasswordFormat,
				UserNotFound: ErrUserNotFound,
				Unavailable:  ErrStoreUnavailable,
			},
		},
	}
}

func errorString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
