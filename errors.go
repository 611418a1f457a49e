package derive

import "errors"

// ErrObserverArity is the error reported by NewDynamicObserver when the
// supplied reader declares more than the two formal parameters
// (state, arg) an observer reader is allowed to have.
var ErrObserverArity = errors.New("Observer methods cannot receive more than two arguments")

// ErrInvocationArity is the error reported by a DynamicObserver's Call
// when invoked with more than one argument.
var ErrInvocationArity = errors.New("Observer methods cannot be invoked with more than one argument")
