// MIT License
//
// Copyright (c) 2024-2026 Gregory Ledenev
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.

package extension

import (
	"context"

	"go.uber.org/atomic"
	"golang.org/x/sync/errgroup"
)

// asyncExecutor runs async operation handlers on a bounded group of worker
// goroutines. Shutdown waits for in-flight tasks before releasing.
type asyncExecutor struct {
	group   *errgroup.Group
	ctx     context.Context
	cancel  context.CancelFunc
	stopped *atomic.Bool
}

func newAsyncExecutor(limit int) *asyncExecutor {
	ctx, cancel := context.WithCancel(context.Background())
	group, groupCtx := errgroup.WithContext(ctx)
	if limit > 0 {
		group.SetLimit(limit)
	}
	return &asyncExecutor{
		group:   group,
		ctx:     groupCtx,
		cancel:  cancel,
		stopped: atomic.NewBool(false),
	}
}

// submit schedules task for execution, rejecting submissions after
// shutdown.
func (e *asyncExecutor) submit(task func()) error {
	if e.stopped.Load() {
		return ErrExecutorStopped
	}
	e.group.Go(func() error {
		select {
		case <-e.ctx.Done():
			return nil
		default:
		}
		task()
		return nil
	})
	return nil
}

// shutdown stops accepting tasks, waits for in-flight ones and releases the
// executor. It is idempotent.
func (e *asyncExecutor) shutdown() error {
	if !e.stopped.CompareAndSwap(false, true) {
		return nil
	}
	err := e.group.Wait()
	e.cancel()
	return err
}
