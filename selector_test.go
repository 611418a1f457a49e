package derive_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deriveflow/derive"
)

type abcState struct{ a, b, c float64 }

// E1: composition — a selector built from selectors built from
// observers must expose the full transitive dependency set, and each
// intermediate selector must expose only what it actually touched.
func TestE1Composition(t *testing.T) {
	ctx := derive.NewContext(abcState{a: 1, b: 1, c: 1})

	getA := derive.NewObserver0(ctx, func(s abcState) float64 { return s.a })
	getB := derive.NewObserver0(ctx, func(s abcState) float64 { return s.b })
	getC := derive.NewObserver0(ctx, func(s abcState) float64 { return s.c })

	get2B := derive.NewSelector0(ctx, func() float64 { return getB.Call() * 2 })
	get2C := derive.NewSelector0(ctx, func() float64 { return getC.Call() * 2 })
	getA2B := derive.NewSelector0(ctx, func() float64 { return getA.Call() + get2B.Call() })
	getA2C := derive.NewSelector0(ctx, func() float64 { return getA.Call() + get2C.Call() })
	getABC := derive.NewSelector0(ctx, func() float64 { return (getA2B.Call() + getA2C.Call()) / 2 })

	require.InDelta(t, 3.0, getABC.Call(), 0.0001)

	assert.ElementsMatch(t, []string{getA.ID(), getB.ID(), getC.ID()}, getABC.Dependencies())
	assert.ElementsMatch(t, []string{getB.ID()}, get2B.Dependencies())
}

type abState struct{ a, b int }

// E2: conditional dependency discovery — a branch not taken on one
// evaluation must not be tracked as a dependency of that evaluation.
func TestE2ConditionalDependencyDiscovery(t *testing.T) {
	ctx := derive.NewContext(abState{a: 20, b: 5})

	getA := derive.NewObserver0(ctx, func(s abState) int { return s.a })
	getB := derive.NewObserver0(ctx, func(s abState) int { return s.b })

	sel := derive.NewSelector(ctx, func(c int) int {
		result := getA.Call()
		if c < 5 {
			result += getB.Call()
		}
		return result + c
	})

	assert.Equal(t, 25, sel.Call(5))
	assert.NotContains(t, sel.Dependencies(5), getB.ID())

	assert.Equal(t, 26, sel.Call(1))
	assert.Contains(t, sel.Dependencies(1), getB.ID())

	ctx.SetState(abState{a: 20, b: 6})
	assert.Equal(t, 27, sel.Call(1))

	assert.Equal(t, int64(3), sel.Recomputations())
}

type sizesState struct{ sizes []string }

// E3: a selector only recomputes when an observer it actually
// recorded reports a changed value — not on every state replacement.
func TestE3RecomputesOnlyOnObservedChange(t *testing.T) {
	ctx := derive.NewContext(sizesState{sizes: []string{"S", "M", "L"}})

	first := derive.NewObserver0(ctx, func(s sizesState) string { return s.sizes[0] })
	last := derive.NewObserver0(ctx, func(s sizesState) string { return s.sizes[len(s.sizes)-1] })

	minMax := derive.NewSelector0(ctx, func() string { return first.Call() + "-" + last.Call() })

	assert.Equal(t, "S-L", minMax.Call())

	ctx.SetState(sizesState{sizes: []string{"S", "S+", "M", "M+", "L"}})
	assert.Equal(t, "S-L", minMax.Call())
	assert.Equal(t, int64(1), minMax.Recomputations())
}

// E4: the same observer invoked with two different arguments
// contributes two distinct dependency edges.
func TestE4SharedObserverDifferentArgs(t *testing.T) {
	ctx := derive.NewContext("/")

	obs := derive.NewObserver1(ctx, func(s string, opt string) string { return s + opt })
	sel := derive.NewSelector0(ctx, func() string { return obs.Call("a") + obs.Call("b") })

	assert.Equal(t, "/a/b", sel.Call())
	assert.ElementsMatch(t, []string{obs.Key("a"), obs.Key("b")}, sel.Dependencies())
}

type fooState struct{ foo string }
type barState struct{ bar string }

// E5: a selector composed of observers from two different Contexts
// tracks dependencies in both, and a state change in either one
// invalidates it.
func TestE5MultiContextIsolation(t *testing.T) {
	ctx1 := derive.NewContext(fooState{foo: "a1"})
	ctx2 := derive.NewContext(barState{bar: "a2"})

	getA1 := derive.NewObserver0(ctx1, func(s fooState) string { return s.foo })
	getA2 := derive.NewObserver0(ctx2, func(s barState) string { return s.bar })

	sel1 := derive.NewSelector0(ctx1, func() string { return getA1.Call() + getA2.Call() })

	assert.Equal(t, "a1a2", sel1.Call())

	ctx2.SetState(barState{bar: "a3"})
	assert.Equal(t, "a1a3", sel1.Call())

	ctx1.SetState(fooState{foo: "b1"})
	assert.Equal(t, "b1a3", sel1.Call())
}

// E6: a panicking compute still pops the call-stack, still counts as
// a recomputation attempt, and leaves no stale cached result behind.
func TestE6ExceptionBehavior(t *testing.T) {
	ctx := derive.NewContext(abcState{a: 1})
	getA := derive.NewObserver0(ctx, func(s abcState) float64 { return s.a })

	boom := errors.New("boom")
	sel := derive.NewSelector0(ctx, func() float64 {
		getA.Call()
		panic(boom)
	})

	assert.PanicsWithValue(t, boom, func() { sel.Call() })
	assert.PanicsWithValue(t, boom, func() { sel.Call() })
	assert.Equal(t, int64(2), sel.Recomputations())
}

// I1: observer ids are non-empty and unique within a Context.
func TestI1ObserverIDsUniqueAndNonEmpty(t *testing.T) {
	ctx := derive.NewContext(abcState{})
	a := derive.NewObserver0(ctx, func(s abcState) float64 { return s.a })
	b := derive.NewObserver0(ctx, func(s abcState) float64 { return s.b })

	assert.NotEmpty(t, a.ID())
	assert.NotEmpty(t, b.ID())
	assert.NotEqual(t, a.ID(), b.ID())
}

// I2: with state unchanged, calling twice is exactly one miss then
// one hit.
func TestI2UnchangedStateHitsOnSecondCall(t *testing.T) {
	ctx := derive.NewContext(abcState{a: 5})
	getA := derive.NewObserver0(ctx, func(s abcState) float64 { return s.a })
	sel := derive.NewSelector0(ctx, func() float64 { return getA.Call() * 2 })

	r1 := sel.Call()
	r2 := sel.Call()
	assert.Equal(t, r1, r2)
	assert.Equal(t, int64(1), sel.Recomputations())
}

// I3/I4: a hit requires every recorded observer to replay unchanged;
// any single changed observer forces exactly one recompute.
func TestI3I4HitOrMissTracksObservedValues(t *testing.T) {
	ctx := derive.NewContext(abcState{a: 1, b: 2})
	getA := derive.NewObserver0(ctx, func(s abcState) float64 { return s.a })
	getB := derive.NewObserver0(ctx, func(s abcState) float64 { return s.b })
	sel := derive.NewSelector0(ctx, func() float64 { return getA.Call() + getB.Call() })

	sel.Call()
	ctx.SetState(abcState{a: 1, b: 2}) // structurally equal, no observed change
	sel.Call()
	assert.Equal(t, int64(1), sel.Recomputations())

	ctx.SetState(abcState{a: 1, b: 3})
	sel.Call()
	assert.Equal(t, int64(2), sel.Recomputations())
}

// I5: Dependencies reflects the transitive union recorded by the
// most recent computation at that cache key.
func TestI5DependenciesIsTransitiveUnion(t *testing.T) {
	ctx := derive.NewContext(abcState{a: 1, b: 1, c: 1})
	getA := derive.NewObserver0(ctx, func(s abcState) float64 { return s.a })
	getB := derive.NewObserver0(ctx, func(s abcState) float64 { return s.b })

	inner := derive.NewSelector0(ctx, func() float64 { return getB.Call() })
	outer := derive.NewSelector0(ctx, func() float64 { return getA.Call() + inner.Call() })

	outer.Call()
	assert.ElementsMatch(t, []string{getA.ID(), getB.ID()}, outer.Dependencies())
}

// I6: a mocked result bypasses compute entirely and never counts as
// a recomputation.
func TestI6MockBypassesComputeAndCounter(t *testing.T) {
	ctx := derive.NewContext(abcState{a: 1})
	calls := 0
	sel := derive.NewSelector0(ctx, func() float64 {
		calls++
		return 99
	})

	sel.Mock().Result(42)
	assert.Equal(t, float64(42), sel.Call())
	assert.Equal(t, int64(0), sel.Recomputations())
	assert.Zero(t, calls)
}

// I7: ClearCache forces the next call to be a miss.
func TestI7ClearCacheForcesMiss(t *testing.T) {
	ctx := derive.NewContext(abcState{a: 1})
	getA := derive.NewObserver0(ctx, func(s abcState) float64 { return s.a })
	sel := derive.NewSelector0(ctx, func() float64 { return getA.Call() })

	sel.Call()
	sel.Call()
	assert.Equal(t, int64(1), sel.Recomputations())

	sel.ClearCache()
	sel.Call()
	assert.Equal(t, int64(2), sel.Recomputations())
}

// I8: unrelated Contexts are isolated — a state change in one never
// invalidates a selector that never read from it.
func TestI8UnrelatedContextsAreIsolated(t *testing.T) {
	ctx1 := derive.NewContext(fooState{foo: "x"})
	ctx2 := derive.NewContext(barState{bar: "y"})

	getFoo := derive.NewObserver0(ctx1, func(s fooState) string { return s.foo })
	selFoo := derive.NewSelector0(ctx1, func() string { return getFoo.Call() })

	selFoo.Call()
	ctx2.SetState(barState{bar: "z"})
	selFoo.Call()

	assert.Equal(t, int64(1), selFoo.Recomputations())
}

// A mocked selector nested inside an enclosing selector still merges
// its (empty) dependency set upward, and the enclosing selector
// observes the mocked value.
func TestMockedChildMergesEmptyDependencySetUpward(t *testing.T) {
	ctx := derive.NewContext(abcState{a: 1})
	getA := derive.NewObserver0(ctx, func(s abcState) float64 { return s.a })
	child := derive.NewSelector0(ctx, func() float64 { return getA.Call() })
	parent := derive.NewSelector0(ctx, func() float64 { return child.Call() + 1 })

	child.Mock().Result(10)
	assert.Equal(t, float64(11), parent.Call())
	assert.Empty(t, parent.Dependencies())
}
