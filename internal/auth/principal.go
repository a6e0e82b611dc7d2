package auth

import "context"

// Principal is the authenticated user an operation runs on behalf of.
type Principal struct {
	UserID string `json:"id"`
	Email  string `json:"email"`
}

type principalKey struct{}

type sessionErrKey struct{}

// WithPrincipal returns a child context carrying p.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFromContext returns the principal stored in ctx, if any.
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	if !ok || p.UserID == "" {
		return Principal{}, false
	}
	return p, true
}

// WithSessionError records why a presented session token was rejected.
func WithSessionError(ctx context.Context, err error) context.Context {
	return context.WithValue(ctx, sessionErrKey{}, err)
}

// SessionErrorFromContext returns the recorded session rejection, if any.
func SessionErrorFromContext(ctx context.Context) error {
	err, _ := ctx.Value(sessionErrKey{}).(error)
	return err
}
