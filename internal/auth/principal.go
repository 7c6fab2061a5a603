package auth

import "context"

// Principal is the authenticated identity of one request. It is rebuilt from
// the token on every request and never persisted.
type Principal struct {
	Subject   string
	Role      string
	Authority string
}

// Anonymous reports whether p carries no identity.
func (p Principal) Anonymous() bool {
	return p.Subject == ""
}

// HasAuthority reports whether p was granted one of authorities.
func (p Principal) HasAuthority(authorities ...string) bool {
	if p.Anonymous() {
		return false
	}
	for _, a := range authorities {
		if p.Authority == Authority(a) {
			return true
		}
	}
	return false
}

type principalKey struct{}

// WithPrincipal returns a copy of ctx carrying p.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFrom returns the principal stored in ctx, if any.
func PrincipalFrom(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	if !ok || p.Anonymous() {
		return Principal{}, false
	}
	return p, true
}
