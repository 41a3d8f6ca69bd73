package ledgergate

import (
	"context"
	"io"

	"github.com/MrEthical07/ledgergate/internal/audit"
	"github.com/MrEthical07/ledgergate/internal/metrics"
	"github.com/MrEthical07/ledgergate/permission"
	"github.com/MrEthical07/ledgergate/session"
	"github.com/MrEthical07/ledgergate/users"
	"github.com/MrEthical07/ledgergate/wire"
)

// Result is what a handler returns on normal completion. A handler may
// report its own unsuccessful outcome by leaving Successful false.
type Result struct {
	Successful bool
	Data       []byte
}

// OK returns a successful Result carrying data.
func OK(data []byte) Result {
	return Result{Successful: true, Data: data}
}

// Caller is the identity established by the guard. It is nil for public
// operations.
type Caller struct {
	Name       string
	Permission permission.Level
	SessionID  string
}

// Call is the input to a handler.
type Call struct {
	Operation string
	Request   *wire.Request
	Caller    *Caller
}

// HandlerFunc implements one operation. A returned error or a panic becomes
// "Exception in user function: <message>".
type HandlerFunc func(ctx context.Context, call *Call) (Result, error)

// UserStore persists users. Implementations return [users.ErrNotFound] and
// [users.ErrExists] for the corresponding conditions; any other error is
// treated as a backend failure.
type UserStore interface {
	FindUserByName(ctx context.Context, name string) (*users.User, error)
	CreateUser(ctx context.Context, u *users.User) error
	UpdatePasswordHash(ctx context.Context, name, hash string) error
}

// SessionStore persists sessions. FindSession returns
// [session.ErrNotFound] for unknown ids; CreateSession returns
// [session.ErrIDExists] instead of overwriting.
type SessionStore interface {
	FindSession(ctx context.Context, id string) (*session.Session, error)
	CreateSession(ctx context.Context, s *session.Session) error
}

// Ledger serves the ledger operations. All of them are public.
type Ledger interface {
	Status(ctx context.Context, call *Call) (Result, error)
	Contracts(ctx context.Context, call *Call) (Result, error)
	Verify(ctx context.Context, call *Call) (Result, error)
	Call(ctx context.Context, call *Call) (Result, error)
	API(ctx context.Context, call *Call) (Result, error)
}

// Pinger is implemented by stores that can report backend health.
type Pinger interface {
	Ping(ctx context.Context) error
}

// AuditEvent is one audit record.
type AuditEvent = audit.Event

// AuditSink receives audit events.
type AuditSink = audit.Sink

// Audit event types.
const (
	AuditRequestDenied   = audit.EventRequestDenied
	AuditHandlerFailure  = audit.EventHandlerFailure
	AuditUserCreated     = audit.EventUserCreated
	AuditPasswordChanged = audit.EventPasswordChanged
	AuditSessionCreated  = audit.EventSessionCreated
)

// NewChannelSink returns a sink that buffers events on a channel.
func NewChannelSink(buffer int) *audit.ChannelSink {
	return audit.NewChannelSink(buffer)
}

// NewJSONWriterSink returns a sink that writes one JSON object per line.
func NewJSONWriterSink(w io.Writer) *audit.JSONWriterSink {
	return audit.NewJSONWriterSink(w)
}

// MetricsSnapshot is a point-in-time copy of the gateway counters.
type MetricsSnapshot = metrics.Snapshot

// MetricID identifies one gateway counter.
type MetricID = metrics.ID
