package ctxutil

import "context"

// Default guards callers that accept an optional context, such as the
// mailer's retry loop. A nil ctx becomes context.Background().
func Default(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}
