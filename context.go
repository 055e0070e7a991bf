package authtokens

import "context"

type clientIPContextKey struct{}

// WithClientIP attaches the caller's remote address to the context for audit
// enrichment. The engine never uses it for any decision.
func WithClientIP(ctx context.Context, ip string) context.Context {
	if ip == "" {
		return ctx
	}
	return context.WithValue(ctx, clientIPContextKey{}, ip)
}

func clientIPFromContext(ctx context.Context) string {
	ip, _ := ctx.Value(clientIPContextKey{}).(string)
	return ip
}
