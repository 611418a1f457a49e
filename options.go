package derive

import "go.uber.org/zap"

// ContextOption configures a Context created by NewContext.
type ContextOption func(*Context)

// WithLogger attaches a zap.Logger that receives Debug-level
// diagnostic events (cache hit/miss/recompute/clear/mock) for every
// selector created on this Context. Without this option the
// Context logs nothing (zap.NewNop()).
func WithLogger(logger *zap.Logger) ContextOption {
	return func(ctx *Context) {
		ctx.logger = logger
	}
}

// WithPrivateStack gives this Context its own call-stack instead of
// the process-wide default. Selectors on this Context can no longer
// discover dependencies on observers from any other Context, trading
// the ability to compose across Contexts for a hard isolation
// guarantee enforced at the call-stack level, not just the cache
// level.
func WithPrivateStack() ContextOption {
	return func(ctx *Context) {
		ctx.stack = &callStack{}
	}
}
