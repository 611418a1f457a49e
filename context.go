package derive

import (
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
)

// Context is the unit of isolation for this engine: it owns a state
// value. Its caches never
// leak into any other Context — a selector's Computation only ever
// records dependencies on the observers it actually called, so a
// Context whose selectors never reach across a boundary is never
// invalidated by another Context's state changes.
//
// The call-stack that discovers those dependencies is, by default,
// shared process-wide rather than owned per-Context. That is a
// deliberate departure from a literal "each Context has its own
// stack" reading: composing a selector in one Context out of
// observers that live in another (a legitimate, spec'd pattern) only
// works if the enclosing frame is visible to the inner call, and a
// call-stack partitioned strictly by Context can never see across
// the boundary it's partitioned on. The shared stack is just
// bookkeeping for "which computations are currently being built" —
// it carries no state and no cached results, so it does not
// reintroduce any of the coupling isolation is meant to prevent. A
// Context constructed with WithPrivateStack gets its own call-stack
// instead, for callers who want hard isolation even between
// deliberately composed Contexts.
//
// The model is single-threaded and cooperative per spec — a selector
// computation may itself invoke other selectors and observers
// synchronously, and that reentrancy is expected. Concurrent,
// interleaved selector evaluation *from multiple goroutines* is not a
// scenario the call-stack protocol is designed for; give each
// goroutine (or each request) its own Context created with
// WithPrivateStack, rather than sharing one across concurrent
// evaluations. Separate Contexts without that option still share the
// default call-stack.
type Context struct {
	mu     sync.Mutex
	state  any
	stack  *callStack
	logger *zap.Logger
}

// globalObserverID assigns observer ids across every Context in the
// process, not just the one that created a given observer. A
// per-Context counter is not enough: the shared call-stack lets a
// selector in one Context compose observers living in another, which
// means their observerCalls land in the very same Computation.index
// map. Two Contexts each minting their own "1" would collide there
// and silently overwrite one another's dependency — this counter is
// what keeps every ObserverKey in the process unique regardless of
// which Context's observer it names.
var globalObserverID atomic.Int64

// callStack is the shared bookkeeping structure for in-progress
// selector computations. Its frames carry no reference to the
// Context that pushed them, which is what lets a selector in one
// Context enclose an observer call from another.
type callStack struct {
	mu     sync.Mutex
	frames []*computation
}

// defaultStack backs every Context created without WithPrivateStack.
var defaultStack = &callStack{}

// NewContext creates a Context seeded with initialState.
func NewContext(initialState any, opts ...ContextOption) *Context {
	ctx := &Context{state: initialState, logger: zap.NewNop(), stack: defaultStack}
	for _, opt := range opts {
		opt(ctx)
	}
	if ctx.logger == nil {
		ctx.logger = zap.NewNop()
	}
	return ctx
}

// SetState atomically swaps the Context's state value. It never
// mutates any existing Computation; it only changes what the next
// change-detection pass will observe.
func (c *Context) SetState(newState any) {
	c.mu.Lock()
	c.state = newState
	c.mu.Unlock()
}

func (c *Context) currentState() any {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Context) nextObserverID() int64 {
	return globalObserverID.Add(1)
}

// push places comp atop the call-stack, for the duration of one
// selector compute invocation.
func (c *Context) push(comp *computation) {
	c.stack.mu.Lock()
	defer c.stack.mu.Unlock()
	c.stack.frames = append(c.stack.frames, comp)
}

// pop removes the top of the call-stack. Callers must defer this
// immediately after push so it runs on every exit path, including a
// panic unwinding out of compute.
func (c *Context) pop() {
	c.stack.mu.Lock()
	defer c.stack.mu.Unlock()
	c.stack.frames = c.stack.frames[:len(c.stack.frames)-1]
}

// registerDependency records call on every Computation currently on
// the call-stack — not only the top — which is what causes a child
// selector's dependencies to propagate transitively into every
// selector enclosing it, including one belonging to a different
// Context than the observer being called.
func (c *Context) registerDependency(call observerCall) {
	c.stack.mu.Lock()
	frames := make([]*computation, len(c.stack.frames))
	copy(frames, c.stack.frames)
	c.stack.mu.Unlock()

	for _, comp := range frames {
		comp.record(call)
	}
}

// mergeIntoEnclosing merges comp's dependency set into every
// Computation on the call-stack strictly below comp's own frame (or
// every frame, if comp was never pushed — the mock and hit paths).
func (c *Context) mergeIntoEnclosing(comp *computation, belowIndex int) {
	c.stack.mu.Lock()
	frames := make([]*computation, len(c.stack.frames))
	copy(frames, c.stack.frames)
	c.stack.mu.Unlock()

	for i := 0; i < belowIndex && i < len(frames); i++ {
		frames[i].merge(comp)
	}
}

// stackLen reports the current call-stack depth, used by Selector to
// know how many enclosing frames existed before it pushed its own.
func (c *Context) stackLen() int {
	c.stack.mu.Lock()
	defer c.stack.mu.Unlock()
	return len(c.stack.frames)
}
