package derive

import "go.uber.org/zap"

// cacheEvent is a selector cache lifecycle event, logged for
// diagnostics only. Unlike the teacher's Observer/EventData pair,
// this never reaches consumer code — it is purely an internal
// zap.Logger sink, since the engine's contract is pull-based and
// must never call back into callers (spec's Non-goals, §1).
type cacheEvent int

const (
	eventHit cacheEvent = iota
	eventMiss
	eventRecompute
	eventClear
	eventMock
	eventFetchHit
	eventFetchMiss
	eventFetchDedup
)

func (e cacheEvent) String() string {
	switch e {
	case eventHit:
		return "hit"
	case eventMiss:
		return "miss"
	case eventRecompute:
		return "recompute"
	case eventClear:
		return "clear"
	case eventMock:
		return "mock"
	case eventFetchHit:
		return "fetch_hit"
	case eventFetchMiss:
		return "fetch_miss"
	case eventFetchDedup:
		return "fetch_dedup"
	default:
		return "unknown"
	}
}

// logCacheEvent writes a single Debug-level structured log line for
// a selector cache event. A nil logger is never passed in; Context
// always resolves an absent WithLogger option to zap.NewNop().
func logCacheEvent(logger *zap.Logger, event cacheEvent, selector, key string) {
	logger.Debug("derive: selector cache event",
		zap.String("event", event.String()),
		zap.String("selector", selector),
		zap.String("cache_key", key),
	)
}

// logFetchEvent writes a single Debug-level structured log line for a
// FetchCache event. Unlike logCacheEvent there is no enclosing
// selector name to attach, only the fetch key and, for a dedup event,
// whether this caller rode in on another caller's in-flight fn call.
func logFetchEvent(logger *zap.Logger, event cacheEvent, key string, shared bool) {
	logger.Debug("derive: fetch cache event",
		zap.String("event", event.String()),
		zap.String("fetch_key", key),
		zap.Bool("shared", shared),
	)
}
