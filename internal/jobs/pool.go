package jobs

import (
	"context"
	"fmt"
	"log"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
)

// Summary counts the outcome of one batch.
type Summary struct {
	Succeeded int
	Failed    int
}

// ForEach runs fn over items with at most limit in flight. A failing or
// panicking item is logged and never cancels its siblings.
func ForEach[T any](ctx context.Context, name string, limit int, items []T, fn func(context.Context, T) error) Summary {
	if limit <= 0 {
		limit = 1
	}

	var ok, failed atomic.Int64
	var g errgroup.Group
	g.SetLimit(limit)

	for _, item := range items {
		g.Go(func() error {
			if err := safeCall(ctx, item, fn); err != nil {
				failed.Add(1)
				log.Printf("[%s] %v", name, err)
				return nil
			}
			ok.Add(1)
			return nil
		})
	}
	g.Wait()

	return Summary{Succeeded: int(ok.Load()), Failed: int(failed.Load())}
}

func safeCall[T any](ctx context.Context, item T, fn func(context.Context, T) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return fn(ctx, item)
}

// Drain processes queue items and deletes each one after its single attempt,
// whatever the outcome. A failed side effect is dropped rather than retried.
func Drain[T any](ctx context.Context, name string, limit int, items []T, id func(T) string, process func(context.Context, T) error, remove func(string) error) Summary {
	return ForEach(ctx, name, limit, items, func(ctx context.Context, item T) error {
		defer func() {
			if derr := remove(id(item)); derr != nil {
				log.Printf("[%s] Failed to delete queue item %s: %v", name, id(item), derr)
			}
		}()
		if err := process(ctx, item); err != nil {
			return fmt.Errorf("failed to process queue item %s: %w", id(item), err)
		}
		return nil
	})
}
