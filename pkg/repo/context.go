package repo

import "context"

type contextKey struct{}

func InjectContext(ctx context.Context, r *Repository) context.Context {
	return context.WithValue(ctx, contextKey{}, r)
}

func FromContext(ctx context.Context) *Repository {
	if r, ok := ctx.Value(contextKey{}).(*Repository); ok {
		return r
	}
	return nil
}
