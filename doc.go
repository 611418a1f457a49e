// Package derive is a reactive memoization engine for derived
// computations over a shared, user-supplied state value.
//
// A Context owns a state value. Observer ids come from one process-wide
// counter, and in-progress selector computations are tracked on a
// call-stack that every Context shares unless it is created with
// WithPrivateStack. Observers are cheap,
// non-memoized state readers; Selectors are memoized derived computations
// whose dependencies on observers are discovered automatically by watching
// which observers get invoked during a selector's evaluation.
//
//	ctx := derive.NewContext(cart{items: []item{{price: 10}, {price: 20}}})
//	items := derive.NewObserver0(ctx, func(s cart) []item { return s.items })
//	total := derive.NewSelector0(ctx, func() float64 {
//		var sum float64
//		for _, it := range items.Call() {
//			sum += it.price
//		}
//		return sum
//	})
//
//	total.Call()       // recomputes, walks items
//	total.Call()       // cache hit, items unchanged
//	ctx.SetState(cart{items: []item{{price: 10}, {price: 30}}})
//	total.Call()       // recomputes, items changed
//
// Selectors cache their result until the observers they depend on report a
// changed value; the engine never calls back into consumer code to announce
// this, it is purely pull-based. Nested selectors propagate their
// dependency sets into every enclosing selector on the call-stack, so a
// selector composed of other selectors inherits their observer
// dependencies transitively.
//
// Multiple Contexts never share state or a cache: a Context whose
// selectors never read an observer belonging to another Context is never
// invalidated by that Context's state changes. A selector may
// deliberately compose observers from more than one Context, in which
// case a state change in any of them can invalidate it — see
// WithPrivateStack for opting a Context out of that composition
// entirely.
package derive
