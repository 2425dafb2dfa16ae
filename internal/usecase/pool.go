package usecase

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"

	applogger "FinCast/pkg/logger"
)

// trainPool bounds concurrent model training and keeps panics inside the worker.
type trainPool struct {
	sem chan struct{}
	wg  sync.WaitGroup
	l   *applogger.Logger
}

func newTrainPool(workers int, l *applogger.Logger) *trainPool {
	if workers < 1 {
		workers = 1
	}
	return &trainPool{sem: make(chan struct{}, workers), l: l}
}

// run waits for a free slot, then executes fn on its own goroutine. It
// returns when fn finishes or ctx ends, whichever comes first; fn keeps
// running in the latter case and must observe ctx itself.
func (p *trainPool) run(ctx context.Context, name string, fn func(context.Context) error) error {
	select {
	case p.sem <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}

	done := make(chan error, 1)
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		defer func() { <-p.sem }()
		defer func() {
			if r := recover(); r != nil {
				p.l.Error("recovered from panic in training worker",
					applogger.String("job", name),
					applogger.String("panic", fmt.Sprintf("%v", r)),
					applogger.String("stack", string(debug.Stack())))
				done <- fmt.Errorf("training panicked: %v", r)
			}
		}()
		done <- fn(ctx)
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// wait blocks until every started worker has returned.
func (p *trainPool) wait() { p.wg.Wait() }
