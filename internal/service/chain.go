package service

import (
	"context"

	"github.com/central73/intentgate/internal/domain/constitution"
)

// Executor runs the innermost stage of a governed invocation: the action
// itself, or the next interceptor down the chain.
type Executor func(ctx context.Context, inv *constitution.Invocation) (any, error)

// Interceptor wraps the execution of a governed invocation. An interceptor
// must call next exactly once to let nested stages and the underlying
// action run. The only sanctioned short-circuit is a policy block, which
// returns an error instead of calling next.
type Interceptor interface {
	Intercept(ctx context.Context, inv *constitution.Invocation, next Executor) (any, error)
}

// InterceptorFunc adapts a function to the Interceptor interface.
type InterceptorFunc func(ctx context.Context, inv *constitution.Invocation, next Executor) (any, error)

func (f InterceptorFunc) Intercept(ctx context.Context, inv *constitution.Invocation, next Executor) (any, error) {
	return f(ctx, inv, next)
}

// Chain composes interceptors around a terminal executor at construction
// time. The first interceptor is outermost. The composed chain is a fixed
// value: later mutation of the input slice has no effect on it.
func Chain(terminal Executor, interceptors ...Interceptor) Executor {
	exec := terminal
	for i := len(interceptors) - 1; i >= 0; i-- {
		stage := interceptors[i]
		next := exec
		exec = func(ctx context.Context, inv *constitution.Invocation) (any, error) {
			return stage.Intercept(ctx, inv, next)
		}
	}
	return exec
}
