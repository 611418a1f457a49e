package derive

// observerCall is one observer invocation recorded inside a
// Computation. It carries enough to replay the invocation during
// change detection without touching the originating Observer again.
type observerCall struct {
	id      string
	arg     any
	hasArg  bool
	result  any
	replay  func() any
	isEqual func(a, b any) bool
}

func (c observerCall) key() string {
	return observerKey(c.id, c.arg, c.hasArg)
}

// changed re-invokes the call's reader and reports whether the result
// differs from the one recorded at call time. The replay closure
// reads state from the observer's own bound Context — never from
// whichever Context's selector happens to be checking for a change —
// which is what makes a dependency on an observer from a different
// Context behave correctly: it always reflects that Context's own
// current state. It never registers a new dependency; change
// detection happens outside the call-stack protocol.
func (c observerCall) changed() bool {
	return !c.isEqual(c.result, c.replay())
}

// computation is the cached product of one selector invocation: a
// result paired with the set of observer calls that result depends
// on. The index is the source of truth for membership and for each
// key's latest recorded call; order tracks first-insertion order
// separately so iteration stays deterministic without needing to
// sort or regenerate anything on every mutation.
type computation struct {
	cacheKey  string
	result    any
	hasResult bool
	index     map[string]observerCall
	order     []string // insertion order of index, for ordered iteration
}

func newComputation(cacheKey string) *computation {
	return &computation{
		cacheKey: cacheKey,
		index:    make(map[string]observerCall),
	}
}

// record inserts or overwrites a dependency by its ObserverKey.
// Overwriting lets an observer invoked more than once in a single
// computation keep only its most recently observed value, without
// duplicating its slot in the iteration order.
func (c *computation) record(call observerCall) {
	k := call.key()
	if _, exists := c.index[k]; !exists {
		c.order = append(c.order, k)
	}
	c.index[k] = call
}

// merge copies another computation's dependency index over this
// one's, preserving this computation's existing order for keys it
// already has and appending any new ones. This is how a child
// selector's dependencies are inherited by every selector enclosing
// it on the call-stack.
func (c *computation) merge(other *computation) {
	if other == nil || len(other.index) == 0 {
		return
	}
	for _, k := range other.order {
		if _, exists := c.index[k]; !exists {
			c.order = append(c.order, k)
		}
		c.index[k] = other.index[k]
	}
}

// detectChange replays every recorded observer call, short-circuiting
// on the first one whose replayed value differs from the value
// recorded when this computation was built.
func (c *computation) detectChange() bool {
	for _, k := range c.order {
		if c.index[k].changed() {
			return true
		}
	}
	return false
}

// dependencies returns the ObserverKeys recorded for this
// computation, in recording order.
func (c *computation) dependencies() []string {
	keys := make([]string, len(c.order))
	copy(keys, c.order)
	return keys
}
