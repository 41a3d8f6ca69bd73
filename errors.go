package ledgergate

import (
	"errors"
	"fmt"
)

// Request-level failures. Their text is the exact diagnostic sent to the
// client.
var (
	ErrMalformedRequest = errors.New("Message not properly formatted")
	ErrUnknownOperation = errors.New("Request type not available")
	ErrAuthentication   = errors.New("Wrong user and/or password")
	ErrAuthorization    = errors.New("Not enough permissions")
	ErrSessionNotFound  = errors.New("Session not available")
	ErrSessionNotOwned  = errors.New("Session not owned by this user")
	ErrSessionExpired   = errors.New("Session expired, restart your client")
	ErrHandlerFailure   = errors.New("Exception in user function")
)

// Handler-level failures. They reach the client wrapped in the
// ErrHandlerFailure prefix.
var (
	ErrGatewayNotReady       = errors.New("gateway not ready")
	ErrInvalidUserName       = errors.New("invalid user name")
	ErrInvalidPermission     = errors.New("unknown permission level")
	ErrPermissionEscalation  = errors.New("cannot grant a permission stronger than your own")
	ErrUserExists            = errors.New("user already exists")
	ErrUserNotFound          = errors.New("user not found")
	ErrInvalidPasswordFormat = errors.New("password must be valid UTF-8")
	ErrInvalidPayload        = errors.New("invalid payload")
	ErrStoreUnavailable      = errors.New("store unavailable")
	ErrSessionUnavailable    = errors.New("session could not be created")
	ErrLedgerUnavailable     = errors.New("ledger backend not configured")
)

var denials = []error{
	ErrMalformedRequest,
	ErrUnknownOperation,
	ErrAuthentication,
	ErrAuthorization,
	ErrSessionNotFound,
	ErrSessionNotOwned,
	ErrSessionExpired,
}

// IsDenial reports whether err is one of the request-level rejections that
// happen before a handler runs.
func IsDenial(err error) bool {
	return denialOf(err) != nil
}

func denialOf(err error) error {
	for _, d := range denials {
		if errors.Is(err, d) {
			return d
		}
	}
	return nil
}

// HandlerFailure wraps a handler fault so that its text is
// "Exception in user function: <message>".
func HandlerFailure(message string) error {
	return fmt.Errorf("%w: %s", ErrHandlerFailure, message)
}

// handlerDenial marks a denial raised by a builtin handler that runs its own
// credential check. It is the only handler error reported with the fixed
// denial text instead of the handler failure prefix.
type handlerDenial struct {
	err error
}

func (d *handlerDenial) Error() string { return d.err.Error() }

func (d *handlerDenial) Unwrap() error { return d.err }

// handlerMessage returns the text a client sees for an error returned by a
// handler.
func handlerMessage(err error) string {
	var hd *handlerDenial
	if errors.As(err, &hd) {
		return DiagnosticMessage(hd.err)
	}
	if errors.Is(err, ErrHandlerFailure) {
		return err.Error()
	}
	return HandlerFailure(err.Error()).Error()
}

// DiagnosticMessage returns the text a client sees for err. Denials map to
// their fixed message even when wrapped; anything else is reported as a
// handler failure.
func DiagnosticMessage(err error) string {
	if err == nil {
		return ""
	}
	if d := denialOf(err); d != nil {
		return d.Error()
	}
	if errors.Is(err, ErrHandlerFailure) {
		return err.Error()
	}
	return HandlerFailure(err.Error()).Error()
}
