package ledgergate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/MrEthical07/ledgergate/internal/audit"
	"github.com/MrEthical07/ledgergate/internal/flows"
	"github.com/MrEthical07/ledgergate/internal/metrics"
	"github.com/MrEthical07/ledgergate/password"
	"github.com/MrEthical07/ledgergate/permission"
	"github.com/MrEthical07/ledgergate/sessionkey"
	"github.com/MrEthical07/ledgergate/wire"
)

// Gateway decodes, authorizes and dispatches requests. It is safe for
// concurrent use; nothing on the request path takes a global lock.
type Gateway struct {
	config   Config
	registry *permission.Registry[HandlerFunc]
	flows    flows.Service

	users    UserStore
	sessions SessionStore
	ledger   Ledger
	hasher   *password.Argon2
	signer   *sessionkey.Signer

	logger  *slog.Logger
	metrics *metrics.Metrics
	audit   *audit.Dispatcher
	now     func() time.Time
}

// Handle is the single entry point: raw request bytes in, encoded response
// bytes out. It never panics and never returns an error; every failure is
// an unsuccessful response.
func (g *Gateway) Handle(ctx context.Context, raw []byte) []byte {
	return wire.EncodeResponse(g.Process(ctx, raw))
}

// Process is Handle without the final encoding step.
func (g *Gateway) Process(ctx context.Context, raw []byte) wire.Response {
	if ctx == nil {
		ctx = context.Background()
	}
	start := time.Now()
	defer func() {
		g.metrics.Observe(metrics.DispatchLatency, time.Since(start))
	}()

	req, err := wire.DecodeRequest(raw)
	if err != nil {
		g.metrics.Inc(metrics.DecodeFailure)
		g.logger.Debug("ledgergate: request decode failed", "bytes", len(raw), "error", err)
		return wire.Failure(ErrMalformedRequest.Error())
	}

	entry, ok := g.registry.Lookup(req.Request)
	if !ok {
		g.metrics.Inc(metrics.UnknownOperation)
		g.logger.Debug("ledgergate: unknown operation", "operation", req.Request)
		return wire.Failure(ErrUnknownOperation.Error())
	}

	call := &Call{Operation: entry.Name, Request: req}
	if required, restricted := entry.Requirement.Level(); restricted {
		user, sess, err := g.flows.Guard(ctx, guardRequest(req), required)
		if err != nil {
			return wire.Failure(DiagnosticMessage(err))
		}
		call.Caller = &Caller{Name: user.Name, Permission: user.Permission, SessionID: sess.ID}
	}

	result, err := g.invoke(ctx, entry.Handler, call)
	if err != nil {
		var hd *handlerDenial
		if errors.As(err, &hd) {
			return wire.Failure(handlerMessage(err))
		}
		g.metrics.Inc(metrics.HandlerFailure)
		g.logger.Warn("ledgergate: handler failed", "operation", call.Operation, "user", req.User, "error", err)
		g.emitAudit(ctx, AuditEvent{
			EventType: AuditHandlerFailure,
			User:      req.User,
			Operation: call.Operation,
			Error:     err.Error(),
		})
		return wire.Failure(handlerMessage(err))
	}

	g.metrics.Inc(metrics.Dispatched)
	return wire.Response{Successful: result.Successful, Data: result.Data}
}

// invoke runs h, turning a panic into a handler failure.
func (g *Gateway) invoke(ctx context.Context, h HandlerFunc, call *Call) (result Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			g.metrics.Inc(metrics.HandlerPanic)
			result = Result{}
			if e, ok := r.(error); ok {
				err = HandlerFailure(e.Error())
				return
			}
			err = HandlerFailure(fmt.Sprint(r))
		}
	}()
	return h(ctx, call)
}

func guardRequest(req *wire.Request) flows.GuardRequest {
	return flows.GuardRequest{
		Operation:  req.Request,
		User:       req.User,
		Password:   req.Password,
		SessionKey: req.SessionKey,
	}
}

func (g *Gateway) emitAudit(ctx context.Context, e AuditEvent) {
	if g.audit == nil {
		return
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = g.now()
	}
	if e.RemoteAddr == "" {
		e.RemoteAddr = remoteAddrFromContext(ctx)
	}
	g.audit.Emit(ctx, e)
}

// Operations returns the registered operation names in sorted order.
func (g *Gateway) Operations() []string {
	return g.registry.Names()
}

// Requirement returns the registered requirement of an operation.
func (g *Gateway) Requirement(name string) (permission.Requirement, bool) {
	entry, ok := g.registry.Lookup(name)
	if !ok {
		return permission.Requirement{}, false
	}
	return entry.Requirement, true
}

// SessionLifetime returns the configured lifetime of new sessions.
func (g *Gateway) SessionLifetime() time.Duration {
	return g.config.Session.Lifetime
}

// MetricsSnapshot returns a point-in-time copy of the counters.
func (g *Gateway) MetricsSnapshot() MetricsSnapshot {
	return g.metrics.Snapshot()
}

// AuditDropped returns the number of audit events discarded because the
// buffer was full.
func (g *Gateway) AuditDropped() uint64 {
	return g.audit.Dropped()
}

// RecordRateLimited counts a request rejected by a transport before it
// reached Handle.
func (g *Gateway) RecordRateLimited() {
	g.metrics.Inc(metrics.RateLimited)
}

// Ping checks every store that can report its health.
func (g *Gateway) Ping(ctx context.Context) error {
	var errs []error
	for _, s := range []any{g.users, g.sessions} {
		if p, ok := s.(Pinger); ok {
			if err := p.Ping(ctx); err != nil {
				errs = append(errs, err)
			}
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrStoreUnavailable, errors.Join(errs...))
	}
	return nil
}

// Close flushes pending audit events. The gateway must not be used after.
func (g *Gateway) Close() {
	g.audit.Close()
}

// Bootstrap creates a user directly in the store, bypassing the guard. It
// exists to provision the first ROOT account; it fails with ErrUserExists
// when the name is taken.
func (g *Gateway) Bootstrap(ctx context.Context, name, plaintext string, level permission.Level) error {
	caller := &flows.GuardUser{Name: "bootstrap", Permission: permission.Root}
	_, err := g.flows.CreateUser(ctx, caller, flows.CreateUserRequest{
		Name:       name,
		Password:   plaintext,
		Permission: level.String(),
	})
	return err
}
