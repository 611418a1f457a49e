package derive

import (
	"fmt"
	"reflect"
	"strconv"
)

// DynamicObserver is a reflection-checked observer for callers who
// want the reader's argument count validated at runtime against the
// exact error text of §6/§7, rather than encoded in the type the way
// Observer0/Observer1 do. Most callers should prefer the typed
// constructors; DynamicObserver exists for cases where the reader's
// shape isn't known until runtime (e.g. built from configuration).
type DynamicObserver struct {
	ctx     *Context
	idStr   string
	fn      reflect.Value
	arity   int
	isEqual func(a, b any) bool
}

// DynamicObserverOption configures a DynamicObserver.
type DynamicObserverOption func(*dynObserverConfig)

type dynObserverConfig struct {
	isEqual func(a, b any) bool
}

// WithDynamicIsEqual replaces the default equality predicate
// (reflect.DeepEqual) used during change detection.
func WithDynamicIsEqual(eq func(a, b any) bool) DynamicObserverOption {
	return func(cfg *dynObserverConfig) { cfg.isEqual = eq }
}

// NewDynamicObserver validates reader's declared arity and, if it is
// at most two parameters (state, optional arg), wraps it as an
// observer. A reader declaring more than two formal parameters is
// rejected with ErrObserverArity.
func NewDynamicObserver(ctx *Context, reader any, opts ...DynamicObserverOption) (*DynamicObserver, error) {
	fv := reflect.ValueOf(reader)
	if fv.Kind() != reflect.Func {
		return nil, fmt.Errorf("derive: reader must be a function, got %T", reader)
	}
	numIn := fv.Type().NumIn()
	if numIn > 2 {
		return nil, ErrObserverArity
	}
	if numIn == 0 {
		return nil, fmt.Errorf("derive: reader must accept at least the state argument")
	}
	if fv.Type().NumOut() != 1 {
		return nil, fmt.Errorf("derive: reader must return exactly one value")
	}

	cfg := &dynObserverConfig{isEqual: reflect.DeepEqual}
	for _, opt := range opts {
		opt(cfg)
	}

	return &DynamicObserver{
		ctx:     ctx,
		idStr:   strconv.FormatInt(ctx.nextObserverID(), 10),
		fn:      fv,
		arity:   numIn,
		isEqual: cfg.isEqual,
	}, nil
}

// ID reports the observer's unique, stable identifier.
func (o *DynamicObserver) ID() string { return o.idStr }

// Key returns the ObserverKey for an invocation with the given
// argument list (zero or one argument, mirroring Call).
func (o *DynamicObserver) Key(args ...any) (string, error) {
	if len(args) > 1 {
		return "", ErrInvocationArity
	}
	if len(args) == 1 && o.arity == 2 {
		return observerKey(o.idStr, args[0], true), nil
	}
	return observerKey(o.idStr, nil, false), nil
}

// Call invokes the reader with zero or one argument. More than one
// argument is rejected with ErrInvocationArity.
func (o *DynamicObserver) Call(args ...any) (any, error) {
	if len(args) > 1 {
		return nil, ErrInvocationArity
	}

	state := o.ctx.currentState()
	hasArg := len(args) == 1 && o.arity == 2
	var arg any
	if hasArg {
		arg = args[0]
	}

	result := o.invoke(state, arg, hasArg)

	o.ctx.registerDependency(observerCall{
		id:      o.idStr,
		arg:     arg,
		hasArg:  hasArg,
		result:  result,
		replay:  func() any { return o.invoke(o.ctx.currentState(), arg, hasArg) },
		isEqual: o.isEqual,
	})
	return result, nil
}

func (o *DynamicObserver) invoke(state, arg any, hasArg bool) any {
	in := []reflect.Value{reflect.ValueOf(state)}
	if hasArg {
		in = append(in, reflect.ValueOf(arg))
	}
	out := o.fn.Call(in)
	return out[0].Interface()
}
