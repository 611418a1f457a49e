package derive

import (
	"reflect"
	"strconv"
)

// observerConfig holds the options shared by Observer0 and Observer1.
type observerConfig[V any] struct {
	isEqual func(a, b V) bool
}

// ObserverOption configures an observer created by NewObserver0 or
// NewObserver1.
type ObserverOption[V any] func(*observerConfig[V])

// WithIsEqual replaces the default equality predicate used during
// change detection for this observer's results. The default is a
// structural comparison (reflect.DeepEqual); supply this to use
// identity comparison for pointer-heavy results, or a custom
// tolerance for floats.
func WithIsEqual[V any](eq func(a, b V) bool) ObserverOption[V] {
	return func(cfg *observerConfig[V]) {
		cfg.isEqual = eq
	}
}

func defaultIsEqual[V any](a, b V) bool {
	return reflect.DeepEqual(a, b)
}

func newObserverConfig[V any](opts []ObserverOption[V]) *observerConfig[V] {
	cfg := &observerConfig[V]{isEqual: defaultIsEqual[V]}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// Observer0 is a non-memoized reader of a Context's state value that
// takes no argument. Each call reads the current state and, if it is
// invoked from inside a selector computation, registers itself as a
// dependency of every enclosing computation on the call-stack.
type Observer0[S, V any] struct {
	ctx     *Context
	idStr   string
	reader  func(S) V
	isEqual func(a, b V) bool
}

// NewObserver0 creates an observer whose reader takes only the state.
// A fresh, monotonically increasing id is assigned from ctx.
func NewObserver0[S, V any](ctx *Context, reader func(S) V, opts ...ObserverOption[V]) *Observer0[S, V] {
	cfg := newObserverConfig(opts)
	return &Observer0[S, V]{
		ctx:     ctx,
		idStr:   strconv.FormatInt(ctx.nextObserverID(), 10),
		reader:  reader,
		isEqual: cfg.isEqual,
	}
}

// ID reports the observer's unique, stable identifier.
func (o *Observer0[S, V]) ID() string { return o.idStr }

// Key returns the ObserverKey this observer uses when invoked with no
// argument.
func (o *Observer0[S, V]) Key() string { return observerKey(o.idStr, nil, false) }

// Call reads the current state, registers this observation with any
// in-progress selector computations, and returns the value.
func (o *Observer0[S, V]) Call() V {
	state, _ := o.ctx.currentState().(S)
	result := o.reader(state)
	o.ctx.registerDependency(observerCall{
		id:     o.idStr,
		hasArg: false,
		result: result,
		replay: func() any {
			typed, _ := o.ctx.currentState().(S)
			return o.reader(typed)
		},
		isEqual: func(a, b any) bool { return o.isEqual(a.(V), b.(V)) },
	})
	return result
}

// Observer1 is a non-memoized reader parameterized by a single
// argument. The same observer invoked with different arguments
// contributes distinct dependency edges, one per (id, arg) pair.
type Observer1[S, A, V any] struct {
	ctx     *Context
	idStr   string
	reader  func(S, A) V
	isEqual func(a, b V) bool
}

// NewObserver1 creates an observer whose reader takes the state and
// one argument.
func NewObserver1[S, A, V any](ctx *Context, reader func(S, A) V, opts ...ObserverOption[V]) *Observer1[S, A, V] {
	cfg := newObserverConfig(opts)
	return &Observer1[S, A, V]{
		ctx:     ctx,
		idStr:   strconv.FormatInt(ctx.nextObserverID(), 10),
		reader:  reader,
		isEqual: cfg.isEqual,
	}
}

// ID reports the observer's unique, stable identifier.
func (o *Observer1[S, A, V]) ID() string { return o.idStr }

// Key returns the ObserverKey this observer uses when invoked with arg.
func (o *Observer1[S, A, V]) Key(arg A) string { return observerKey(o.idStr, arg, true) }

// Call reads the current state with arg, registers this observation
// with any in-progress selector computations, and returns the value.
func (o *Observer1[S, A, V]) Call(arg A) V {
	state, _ := o.ctx.currentState().(S)
	result := o.reader(state, arg)
	o.ctx.registerDependency(observerCall{
		id:     o.idStr,
		arg:    arg,
		hasArg: true,
		result: result,
		replay: func() any {
			typed, _ := o.ctx.currentState().(S)
			return o.reader(typed, arg)
		},
		isEqual: func(a, b any) bool { return o.isEqual(a.(V), b.(V)) },
	})
	return result
}
