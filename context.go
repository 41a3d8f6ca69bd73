package ledgergate

import "context"

type remoteAddrContextKey struct{}

// WithRemoteAddr attaches the client address to ctx. It is recorded on audit
// events.
func WithRemoteAddr(ctx context.Context, addr string) context.Context {
	return context.WithValue(ctx, remoteAddrContextKey{}, addr)
}

func remoteAddrFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	addr, _ := ctx.Value(remoteAddrContextKey{}).(string)
	return addr
}
