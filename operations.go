package ledgergate

import (
	"context"
	"fmt"

	"github.com/MrEthical07/ledgergate/internal/flows"
	"github.com/MrEthical07/ledgergate/permission"
	"github.com/MrEthical07/ledgergate/wire"
)

// Built-in operation names.
const (
	opNewUser     = "new_user"
	opSetPassword = "set_password"
	opSession     = "session"
	opEcho        = "echo"
	opStatus      = "status"
	opContracts   = "contracts"
	opVerify      = "verify"
	opCall        = "call"
	opAPI         = "api"
)

func (g *Gateway) builtinOperations() []operationSpec {
	return []operationSpec{
		{name: opNewUser, requirement: permission.Require(permission.Root), handler: g.newUser},
		{name: opSetPassword, requirement: permission.Require(permission.User), handler: g.setPassword},
		{name: opSession, requirement: permission.Public(), handler: g.openSession},
		{name: opEcho, requirement: permission.Public(), handler: echo},
		{name: opStatus, requirement: permission.Public(), handler: g.forward(Ledger.Status)},
		{name: opContracts, requirement: permission.Public(), handler: g.forward(Ledger.Contracts)},
		{name: opVerify, requirement: permission.Public(), handler: g.forward(Ledger.Verify)},
		{name: opCall, requirement: permission.Public(), handler: g.forward(Ledger.Call)},
		{name: opAPI, requirement: permission.Public(), handler: g.forward(Ledger.API)},
	}
}

// newUser expects a wire.Credentials payload and returns the new name.
func (g *Gateway) newUser(ctx context.Context, call *Call) (Result, error) {
	creds, err := wire.DecodeCredentials(call.Request.Data)
	if err != nil {
		return Result{}, fmt.Errorf("%w: new_user expects a credentials message", ErrInvalidPayload)
	}
	name, err := g.flows.CreateUser(ctx, callerOf(call), flows.CreateUserRequest{
		Name:       creds.Name,
		Password:   creds.Password,
		Permission: creds.Permission,
	})
	if err != nil {
		return Result{}, err
	}
	return OK([]byte(name)), nil
}

// setPassword replaces the caller's password with the payload bytes.
func (g *Gateway) setPassword(ctx context.Context, call *Call) (Result, error) {
	if err := g.flows.ChangePassword(ctx, call.Caller.Name, call.Request.Data); err != nil {
		return Result{}, err
	}
	return OK([]byte(call.Caller.Name)), nil
}

// openSession authenticates with user and password and returns a new
// session key. Authentication failures keep their fixed message.
func (g *Gateway) openSession(ctx context.Context, call *Call) (Result, error) {
	res, err := g.flows.IssueSession(ctx, guardRequest(call.Request))
	if err != nil {
		if IsDenial(err) {
			return Result{}, &handlerDenial{err: err}
		}
		return Result{}, err
	}
	g.logger.Info("ledgergate: session opened", "user", res.Session.User, "session_id", res.Session.ID)
	return OK([]byte(res.Key)), nil
}

func echo(_ context.Context, call *Call) (Result, error) {
	return OK(call.Request.Data), nil
}

func (g *Gateway) forward(method func(Ledger, context.Context, *Call) (Result, error)) HandlerFunc {
	return func(ctx context.Context, call *Call) (Result, error) {
		return method(g.ledger, ctx, call)
	}
}

func callerOf(call *Call) *flows.GuardUser {
	if call.Caller == nil {
		return nil
	}
	return &flows.GuardUser{Name: call.Caller.Name, Permission: call.Caller.Permission}
}

type unavailableLedger struct{}

func (unavailableLedger) Status(context.Context, *Call) (Result, error) {
	return Result{}, ErrLedgerUnavailable
}

func (unavailableLedger) Contracts(context.Context, *Call) (Result, error) {
	return Result{}, ErrLedgerUnavailable
}

func (unavailableLedger) Verify(context.Context, *Call) (Result, error) {
	return Result{}, ErrLedgerUnavailable
}

func (unavailableLedger) Call(context.Context, *Call) (Result, error) {
	return Result{}, ErrLedgerUnavailable
}

func (unavailableLedger) API(context.Context, *Call) (Result, error) {
	return Result{}, ErrLedgerUnavailable
}
