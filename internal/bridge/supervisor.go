package bridge

import (
	"context"
	"errors"

	"golang.org/x/sync/errgroup"
)

// errTaskDone is the sentinel a task wrapper returns on clean completion so
// the group context is cancelled for the remaining tasks. It never escapes
// Supervise.
var errTaskDone = errors.New("bridge: task finished")

// Supervise runs tasks concurrently with first-completion-wins semantics:
// when any task returns — cleanly or with an error — the contexts of the
// remaining tasks are cancelled, all tasks are joined, and the result of the
// first task to finish is returned (nil for a clean finish). Tasks must be
// cooperative: they are expected to return promptly once their context is
// done.
func Supervise(ctx context.Context, tasks ...func(context.Context) error) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, task := range tasks {
		g.Go(func() error {
			if err := task(gctx); err != nil {
				return err
			}
			return errTaskDone
		})
	}

	// The group records the first non-nil return; a clean first finish
	// surfaces as the sentinel and maps back to nil here.
	err := g.Wait()
	if errors.Is(err, errTaskDone) {
		return nil
	}
	return err
}
