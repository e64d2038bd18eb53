package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/yungbote/terrenos-crm-backend/internal/platform/logger"
)

// Task is one unit of periodic background work.
type Task interface {
	Name() string
	Run(ctx context.Context) error
}

type RunMetrics interface {
	IncWorkerRun(worker, status string)
}

type nopRunMetrics struct{}

func (nopRunMetrics) IncWorkerRun(string, string) {}

// Worker runs a Task on a fixed interval until its context ends. Runs never
// overlap; a slow run delays the next tick.
type Worker struct {
	log      *logger.Logger
	clock    clockwork.Clock
	task     Task
	interval time.Duration
	metrics  RunMetrics

	wg sync.WaitGroup
}

func NewWorker(baseLog *logger.Logger, clock clockwork.Clock, task Task, interval time.Duration, metrics RunMetrics) *Worker {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if metrics == nil {
		metrics = nopRunMetrics{}
	}
	if interval <= 0 {
		interval = time.Minute
	}
	return &Worker{
		log:      baseLog.With("component", "Worker", "task", task.Name()),
		clock:    clock,
		task:     task,
		interval: interval,
		metrics:  metrics,
	}
}

func (w *Worker) Start(ctx context.Context) {
	w.log.Info("Starting worker", "interval", w.interval.String())
	w.wg.Add(1)
	go w.runLoop(ctx)
}

// Wait blocks until the loop started by Start has returned.
func (w *Worker) Wait() { w.wg.Wait() }

func (w *Worker) runLoop(ctx context.Context) {
	defer w.wg.Done()
	ticker := w.clock.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info("Worker loop stopped")
			return
		case <-ticker.Chan():
			w.RunOnce(ctx)
		}
	}
}

// RunOnce executes the task a single time, recovering from panics.
func (w *Worker) RunOnce(ctx context.Context) {
	start := w.clock.Now()
	err := func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				w.log.Error("Worker task panic", "panic", r)
				err = &panicError{Val: r}
			}
		}()
		return w.task.Run(ctx)
	}()
	if err != nil {
		if ctx.Err() == nil {
			w.log.Warn("Worker task failed", "error", err, "duration", w.clock.Since(start).String())
		}
		w.metrics.IncWorkerRun(w.task.Name(), "error")
		return
	}
	w.metrics.IncWorkerRun(w.task.Name(), "ok")
}

type panicError struct{ Val any }

func (e *panicError) Error() string { return fmt.Sprintf("panic: %v", e.Val) }
