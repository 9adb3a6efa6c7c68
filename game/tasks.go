package game

import (
	"context"

	"github.com/ardacey/Lexo/shared/logger"
	"golang.org/x/sync/errgroup"
)

// roomTasks supervises the goroutines of one room. Stopping it cancels
// every task context; Wait blocks until they all returned.
type roomTasks struct {
	roomID string
	ctx    context.Context
	cancel context.CancelFunc
	group  *errgroup.Group
}

func newRoomTasks(parent context.Context, roomID string) *roomTasks {
	ctx, cancel := context.WithCancel(parent)
	return &roomTasks{
		roomID: roomID,
		ctx:    ctx,
		cancel: cancel,
		group:  &errgroup.Group{},
	}
}

func (t *roomTasks) Go(name string, fn func(ctx context.Context)) {
	t.GoWithin(t.ctx, name, fn)
}

// GoWithin runs fn with a context derived from the room, such as the
// context of a single match.
func (t *roomTasks) GoWithin(ctx context.Context, name string, fn func(ctx context.Context)) {
	t.group.Go(func() error {
		defer func() {
			if rec := recover(); rec != nil {
				logger.Criticalf("[Room %s] task %s panicked: %v", t.roomID, name, rec)
			}
		}()
		fn(ctx)
		return nil
	})
}

func (t *roomTasks) Context() context.Context {
	return t.ctx
}

func (t *roomTasks) Stop() {
	t.cancel()
}

func (t *roomTasks) Wait() {
	_ = t.group.Wait()
}
