package dispatch

import (
	"context"
	"errors"
	"sync"

	"github.com/xtding233/wish-backend/internal/gacha"
)

// Dispatcher applies one resolved reward action to an account. Callers treat
// it as fire-and-forget: an error is logged, never rolled back.
type Dispatcher interface {
	Apply(ctx context.Context, account string, action gacha.Action) error
}

// Func adapts a function to Dispatcher.
type Func func(ctx context.Context, account string, action gacha.Action) error

func (f Func) Apply(ctx context.Context, account string, action gacha.Action) error {
	return f(ctx, account, action)
}

// Multi fans one action out to every dispatcher.
type Multi []Dispatcher

func (m Multi) Apply(ctx context.Context, account string, action gacha.Action) error {
	var errs []error
	for _, d := range m {
		if err := d.Apply(ctx, account, action); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Applied is one call seen by a Recorder.
type Applied struct {
	Account string
	Action  gacha.Action
}

// Recorder remembers every applied action.
type Recorder struct {
	mu  sync.Mutex
	log []Applied
}

func (r *Recorder) Apply(_ context.Context, account string, action gacha.Action) error {
	r.mu.Lock()
	r.log = append(r.log, Applied{Account: account, Action: action})
	r.mu.Unlock()
	return nil
}

func (r *Recorder) Applied() []Applied {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Applied(nil), r.log...)
}

func (r *Recorder) Reset() {
	r.mu.Lock()
	r.log = nil
	r.mu.Unlock()
}
