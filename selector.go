package derive

import "sync/atomic"

// Selector is a memoized derived computation over a Context's state.
// Args is whatever a call needs to pass: NoArgs for a nullary
// selector (see Selector0), a primitive for a single argument, or a
// struct for several. Its dependencies on observers (and other
// selectors) are discovered automatically by watching which ones get
// invoked inside compute, and the cached result is invalidated only
// when a replay of those dependencies reports a changed value.
type Selector[Args, R any] struct {
	ctx            *Context
	name           string
	compute        func(Args) R
	cache          Cache
	serialize      Serialize[Args]
	recomputations atomic.Int64
}

// SelectorOption configures a Selector created by NewSelector.
type SelectorOption[Args, R any] func(*Selector[Args, R])

// WithCache replaces the default unbounded map cache.
func WithCache[Args, R any](cache Cache) SelectorOption[Args, R] {
	return func(s *Selector[Args, R]) { s.cache = cache }
}

// WithSerialize replaces the default argument-to-cache-key rules.
func WithSerialize[Args, R any](fn Serialize[Args]) SelectorOption[Args, R] {
	return func(s *Selector[Args, R]) { s.serialize = fn }
}

// WithSelectorName attaches a label used in diagnostic log lines.
func WithSelectorName[Args, R any](name string) SelectorOption[Args, R] {
	return func(s *Selector[Args, R]) { s.name = name }
}

// NewSelector creates a selector wrapping compute.
func NewSelector[Args, R any](ctx *Context, compute func(Args) R, opts ...SelectorOption[Args, R]) *Selector[Args, R] {
	s := &Selector[Args, R]{
		ctx:       ctx,
		compute:   compute,
		cache:     newMapCache(),
		serialize: defaultSerialize[Args],
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Call runs the invocation algorithm: look up the Computation for
// serialize(args); if it is absent, or replaying its recorded
// observer calls against the current state reports a change, treat
// it as a miss, recompute while pushing a fresh (or reused) frame
// onto the Context's call-stack, then merge the resulting dependency
// set into every selector enclosing this call. A panic out of
// compute still pops the call-stack and leaves no usable cached
// result behind for this cache key.
func (s *Selector[Args, R]) Call(args Args) R {
	key := s.serialize(args)
	comp, found := s.cache.Get(key)

	if found && comp.hasResult && !comp.detectChange() {
		logCacheEvent(s.ctx.logger, eventHit, s.name, key)
		s.ctx.mergeIntoEnclosing(comp, s.ctx.stackLen())
		return comp.result.(R)
	}

	logCacheEvent(s.ctx.logger, eventMiss, s.name, key)
	if !found {
		comp = newComputation(key)
	}
	// A reused Computation holds no result until compute returns, so a
	// panic below cannot leave its previous result looking valid.
	comp.hasResult = false

	below := s.ctx.stackLen()
	s.ctx.push(comp)
	s.recomputations.Add(1)
	result := func() (r R) {
		defer s.ctx.pop()
		return s.compute(args)
	}()

	comp.result = result
	comp.hasResult = true
	s.cache.Set(key, comp)
	logCacheEvent(s.ctx.logger, eventRecompute, s.name, key)

	s.ctx.mergeIntoEnclosing(comp, below)
	return result
}

// Dependencies returns the ObserverKeys recorded for the Computation
// at serialize(args), or an empty slice if there is none.
func (s *Selector[Args, R]) Dependencies(args Args) []string {
	comp, found := s.cache.Get(s.serialize(args))
	if !found {
		return []string{}
	}
	return comp.dependencies()
}

// Recomputations reports how many times compute has actually run.
func (s *Selector[Args, R]) Recomputations() int64 {
	return s.recomputations.Load()
}

// ClearCache discards every cached Computation; the next call for
// any argument is a guaranteed miss.
func (s *Selector[Args, R]) ClearCache() {
	s.cache.Clear()
	logCacheEvent(s.ctx.logger, eventClear, s.name, "*")
}

// Mock installs a Computation for args whose dependency set is
// empty, so change detection trivially succeeds and the mocked
// result persists until ClearCache or another Mock call for the
// same args.
func (s *Selector[Args, R]) Mock(args Args) *MockBuilder[Args, R] {
	return &MockBuilder[Args, R]{sel: s, key: s.serialize(args)}
}

// MockBuilder installs the mocked result for the Selector.Mock call
// that created it.
type MockBuilder[Args, R any] struct {
	sel *Selector[Args, R]
	key string
}

// Result installs value as the mocked result. Subsequent calls with
// the mocked cache key return value without running compute and
// without incrementing Recomputations.
func (m *MockBuilder[Args, R]) Result(value R) {
	comp := newComputation(m.key)
	comp.result = value
	comp.hasResult = true
	m.sel.cache.Set(m.key, comp)
	logCacheEvent(m.sel.ctx.logger, eventMock, m.sel.name, m.key)
}

// Selector0 is the ergonomic wrapper for a nullary Selector — the Go
// rendering of a selector invoked with the empty argument tuple —
// so callers write sel.Call() instead of sel.Call(derive.NoArgs{}).
type Selector0[R any] struct {
	*Selector[NoArgs, R]
}

// NewSelector0 creates a nullary selector.
func NewSelector0[R any](ctx *Context, compute func() R, opts ...SelectorOption[NoArgs, R]) *Selector0[R] {
	inner := NewSelector(ctx, func(NoArgs) R { return compute() }, opts...)
	return &Selector0[R]{inner}
}

// Call runs the selector with no arguments.
func (s *Selector0[R]) Call() R { return s.Selector.Call(NoArgs{}) }

// Dependencies returns the ObserverKeys for the no-argument call.
func (s *Selector0[R]) Dependencies() []string { return s.Selector.Dependencies(NoArgs{}) }

// Mock installs a mocked result for the no-argument call.
func (s *Selector0[R]) Mock() *MockBuilder[NoArgs, R] { return s.Selector.Mock(NoArgs{}) }
