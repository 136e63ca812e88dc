package server

import "context"

// Principal is the authenticated caller: the account plus the employee row it
// is bound to.
type Principal struct {
	AccountID  string
	EmployeeID int
	Email      string
	RoleSlug   string
	Status     string
}

type principalContextKey struct{}

func withPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalContextKey{}, p)
}

func currentPrincipal(ctx context.Context) (Principal, bool) {
	v := ctx.Value(principalContextKey{})
	if v == nil {
		return Principal{}, false
	}
	p, ok := v.(Principal)
	return p, ok
}
