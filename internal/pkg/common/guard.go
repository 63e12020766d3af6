package common

import (
	"context"
	"errors"
	"sync"

	"github.com/samber/do/v2"
	"go.uber.org/atomic"
)

var (
	ErrReentrantCall = errors.New("call re-entered while already in progress")
	ErrUnauthorized  = errors.New("caller is not the administrator")
)

type guardKey struct{}

// CallGuard serializes external calls. Every mutating operation runs inside Run, and
// a nested Run on the context handed to fn is rejected instead of deadlocking.
type CallGuard struct {
	mu sync.Mutex

	active atomic.Bool
	calls  atomic.Uint64
}

func NewCallGuard(_ do.Injector) (*CallGuard, error) {
	return &CallGuard{}, nil
}

func (g *CallGuard) Run(ctx context.Context, fn func(ctx context.Context) error) error {
	if owner, ok := ctx.Value(guardKey{}).(*CallGuard); ok && owner == g {
		return ErrReentrantCall
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	g.active.Store(true)
	defer g.active.Store(false)

	g.calls.Inc()

	return fn(context.WithValue(ctx, guardKey{}, g))
}

func (g *CallGuard) Active() bool {
	return g.active.Load()
}

// Calls is the number of calls admitted so far.
func (g *CallGuard) Calls() uint64 {
	return g.calls.Load()
}

func Authorize(admin string, caller string) error {
	if admin == "" || caller != admin {
		return ErrUnauthorized
	}

	return nil
}
