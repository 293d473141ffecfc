package auth

import "context"

type ctxKey string

const ctxKeyName ctxKey = "name"

func WithDisplayName(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, ctxKeyName, name)
}

func DisplayNameFromContext(ctx context.Context) string {
	if v := ctx.Value(ctxKeyName); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}
