package auth

import "context"

// session is the per-request authentication state: the verified
// principal and the raw bearer token it was minted from. Both live
// under one context key so middleware installs them together and
// handlers read a consistent pair.
type session struct {
	principal Principal
	token     string
}

type sessionContextKey struct{}

func sessionFromContext(ctx context.Context) (session, bool) {
	if ctx == nil {
		return session{}, false
	}
	s, ok := ctx.Value(sessionContextKey{}).(session)
	return s, ok
}

// ContextWithPrincipal returns a context carrying the verified
// principal. An existing bearer token on the context is preserved.
func ContextWithPrincipal(ctx context.Context, principal Principal) context.Context {
	s, _ := sessionFromContext(ctx)
	s.principal = principal
	return context.WithValue(ctx, sessionContextKey{}, s)
}

// PrincipalFromContext reports the verified principal for the request,
// if authentication middleware installed one.
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	s, ok := sessionFromContext(ctx)
	if !ok || s.principal.UserID == "" {
		return Principal{}, false
	}
	return s.principal, true
}

// ContextWithToken returns a context carrying the raw bearer token the
// request authenticated with. Empty tokens are not stored.
func ContextWithToken(ctx context.Context, token string) context.Context {
	if token == "" {
		return ctx
	}
	s, _ := sessionFromContext(ctx)
	s.token = token
	return context.WithValue(ctx, sessionContextKey{}, s)
}

// TokenFromContext reports the raw bearer token for the request, if
// one was attached.
func TokenFromContext(ctx context.Context) (string, bool) {
	s, ok := sessionFromContext(ctx)
	if !ok || s.token == "" {
		return "", false
	}
	return s.token, true
}
