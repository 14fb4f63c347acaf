package session

import (
	"context"

	"github.com/npezzotti/go-roomboard/internal/types"
)

type contextKey string

const principalKey contextKey = "principal"

func WithPrincipal(ctx context.Context, p types.Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

func CurrentPrincipal(ctx context.Context) (types.Principal, bool) {
	p, ok := ctx.Value(principalKey).(types.Principal)
	return p, ok
}
