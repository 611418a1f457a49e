package derive

import (
	"encoding/json"
	"fmt"
)

// noArgsKey is the cache key used for a selector invoked with no
// arguments. It is deliberately not producible by JSON-encoding or
// stringifying any real argument value, so sel() and sel("") never
// collide.
const noArgsKey = "\x00derive:no-args\x00"

// NoArgs is the Args type for a zero-argument Selector; it is the Go
// encoding of the "empty argument tuple" from the spec this engine
// implements. Use Selector0, which passes NoArgs{} for you, rather
// than spelling it out at call sites.
type NoArgs struct{}

// Serialize converts a selector's argument value into a cache key.
// The default implementation follows the rules in defaultSerialize;
// a SelectorOption may replace it wholesale.
type Serialize[Args any] func(args Args) string

// defaultSerialize implements the default key derivation rules: no
// args gets a sentinel, a lone non-string primitive stringifies
// directly, everything else (including strings) goes through JSON so
// a string argument can never collide with a stringified number.
func defaultSerialize[Args any](args Args) string {
	switch v := any(args).(type) {
	case NoArgs:
		return noArgsKey
	case nil:
		return noArgsKey
	case string:
		return mustJSON(v)
	case bool, int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64:
		return fmt.Sprint(v)
	default:
		return mustJSON(v)
	}
}

func mustJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		// Args types are caller-controlled plain data; a marshal
		// failure here means the caller built an unserializable Args
		// type (e.g. a channel or func field).
		panic(fmt.Errorf("derive: cannot serialize selector arguments: %w", err))
	}
	return string(b)
}

// observerKey derives the ObserverKey for one (id, arg) pair: "id"
// when there is no argument, "id:arg" when arg is a primitive other
// than string, and "id:JSON(arg)" otherwise — the same
// string-vs-primitive collision avoidance as defaultSerialize.
func observerKey(id string, arg any, hasArg bool) string {
	if !hasArg {
		return id
	}
	switch v := arg.(type) {
	case string:
		return id + ":" + mustJSON(v)
	case bool, int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64:
		return id + ":" + fmt.Sprint(v)
	default:
		return id + ":" + mustJSON(v)
	}
}
