package main

import (
	"context"
	"sync"
)

// taskHandle is what every Spawn* call hands back to the owner. Abort
// cancels the task's context; Wait blocks until the task has returned.
type taskHandle struct {
	name   string
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

// startTask runs fn on its own goroutine under a child context of parent.
// A panic inside fn is logged and ends only that task.
func startTask(parent context.Context, name string, fn func(ctx context.Context)) *taskHandle {
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancel(parent)
	h := &taskHandle{
		name:   name,
		cancel: cancel,
		done:   make(chan struct{}),
	}
	go func() {
		defer close(h.done)
		defer cancel()
		defer func() {
			if r := recover(); r != nil {
				logger.Error("task panic", "task", name, "error", r)
			}
		}()
		fn(ctx)
	}()
	return h
}

// Abort cancels the task. In-flight network calls are abandoned.
func (h *taskHandle) Abort() {
	if h == nil {
		return
	}
	h.once.Do(h.cancel)
}

// Done is closed once the task has returned.
func (h *taskHandle) Done() <-chan struct{} {
	return h.done
}

// Wait blocks until the task has returned.
func (h *taskHandle) Wait() {
	if h == nil {
		return
	}
	<-h.done
}

// Name identifies the task in log lines.
func (h *taskHandle) Name() string {
	return h.name
}
