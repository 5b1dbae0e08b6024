// Package jobs runs periodic maintenance tasks (expired-lock sweeps, audit
// retention) on background goroutines.
package jobs

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Task is one periodic maintenance action.
type Task struct {
	Name     string
	Interval time.Duration
	Run      func(context.Context) error
}

// Runner executes registered tasks on their own tickers until stopped.
type Runner struct {
	logger *zap.Logger

	mu      sync.Mutex
	tasks   []Task
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	started bool
}

// NewRunner constructs an idle runner.
func NewRunner(logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{logger: logger}
}

// Add registers a task. Tasks added after Start are ignored until the next
// Start.
func (r *Runner) Add(task Task) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if task.Interval <= 0 {
		task.Interval = time.Minute
	}
	r.tasks = append(r.tasks, task)
}

// Start launches one goroutine per task. Safe to call once.
func (r *Runner) Start(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.started {
		return
	}
	ctx, r.cancel = context.WithCancel(ctx)
	for _, task := range r.tasks {
		r.wg.Add(1)
		go r.loop(ctx, task)
	}
	r.started = true
	r.logger.Info("maintenance runner started", zap.Int("tasks", len(r.tasks)))
}

// Stop cancels every task loop and waits for them to exit.
func (r *Runner) Stop() {
	r.mu.Lock()
	if !r.started {
		r.mu.Unlock()
		return
	}
	r.cancel()
	r.started = false
	r.mu.Unlock()
	r.wg.Wait()
	r.logger.Info("maintenance runner stopped")
}

func (r *Runner) loop(ctx context.Context, task Task) {
	defer r.wg.Done()
	ticker := time.NewTicker(task.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := task.Run(ctx); err != nil {
				r.logger.Warn("maintenance task failed",
					zap.String("task", task.Name),
					zap.Error(err))
			}
		}
	}
}
