// Package workerpool runs analysis tasks on a fixed number of goroutines fed
// from a bounded backlog. Dispatch never blocks the caller: a full backlog is
// reported as a temporary failure.
package workerpool

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/kirillkom/plagiarism-analysis/internal/core/domain"
	"github.com/kirillkom/plagiarism-analysis/internal/core/ports"
)

// Observer receives execution events. *metrics.AnalysisMetrics implements it.
type Observer interface {
	StartAnalysis(lag time.Duration)
	FinishAnalysis(status string, duration time.Duration)
	SetBacklog(n int)
	RecordRejected(reason string)
}

// Abandoner is implemented by executors that can settle a task the pool drops
// without running it. The ctx passed in is not cancelled by shutdown.
type Abandoner interface {
	Abandon(ctx context.Context, task domain.AnalysisTask, reason string) error
}

const abandonTimeout = 5 * time.Second

type Options struct {
	Workers     int
	Backlog     int
	TaskTimeout time.Duration
	Logger      *slog.Logger
	Observer    Observer
}

type Pool struct {
	executor ports.AnalysisExecutor
	tasks    chan domain.AnalysisTask
	workers  int
	timeout  time.Duration
	logger   *slog.Logger
	observer Observer

	mu      sync.RWMutex
	started bool
	closed  bool
	wg      sync.WaitGroup
	cancel  context.CancelFunc
}

func New(executor ports.AnalysisExecutor, opts Options) *Pool {
	workers := opts.Workers
	if workers <= 0 {
		workers = 4
	}
	backlog := opts.Backlog
	if backlog <= 0 {
		backlog = 256
	}
	timeout := opts.TaskTimeout
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	observer := opts.Observer
	if observer == nil {
		observer = noopObserver{}
	}
	return &Pool{
		executor: executor,
		tasks:    make(chan domain.AnalysisTask, backlog),
		workers:  workers,
		timeout:  timeout,
		logger:   logger,
		observer: observer,
	}
}

// Start launches the workers. ctx bounds task execution: cancelling it aborts
// in-flight analyses, which then end in Failed.
func (p *Pool) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started || p.closed {
		return
	}
	p.started = true

	runCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker(runCtx, i)
	}
	p.logger.Info("worker_pool_started", "workers", p.workers, "backlog_capacity", cap(p.tasks))
}

// Dispatch enqueues task without waiting for a free worker.
func (p *Pool) Dispatch(_ context.Context, task domain.AnalysisTask) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		p.observer.RecordRejected("shutdown")
		return domain.WrapError(domain.ErrTemporary, "dispatch analysis", errors.New("worker pool is shut down"))
	}

	select {
	case p.tasks <- task:
		p.observer.SetBacklog(len(p.tasks))
		return nil
	default:
		p.observer.RecordRejected("backlog_full")
		return domain.WrapError(domain.ErrTemporary, "dispatch analysis", fmt.Errorf("backlog full (%d tasks)", cap(p.tasks)))
	}
}

// Submit enqueues task, waiting for backlog space until ctx is done. Broker
// consumers use it so backpressure reaches the broker instead of dropping work.
func (p *Pool) Submit(ctx context.Context, task domain.AnalysisTask) error {
	for {
		err := p.Dispatch(ctx, task)
		if err == nil || !p.backlogFull() {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(50 * time.Millisecond):
		}
	}
}

func (p *Pool) backlogFull() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return !p.closed && len(p.tasks) == cap(p.tasks)
}

// Backlog is the number of accepted tasks not yet picked up by a worker.
func (p *Pool) Backlog() int {
	return len(p.tasks)
}

func (p *Pool) Capacity() int {
	return cap(p.tasks)
}

// Shutdown stops accepting tasks and waits for queued and in-flight ones.
// When ctx expires first, in-flight tasks are cancelled, tasks still queued
// are abandoned without running, and ctx.Err is returned.
func (p *Pool) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	close(p.tasks)
	cancel := p.cancel
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		if cancel != nil {
			cancel()
		}
		return nil
	case <-ctx.Done():
		if cancel != nil {
			cancel()
		}
		<-done
		return ctx.Err()
	}
}

func (p *Pool) worker(ctx context.Context, id int) {
	defer p.wg.Done()
	for task := range p.tasks {
		p.observer.SetBacklog(len(p.tasks))
		if ctx.Err() != nil {
			p.abandon(ctx, id, task)
			continue
		}
		p.run(ctx, id, task)
	}
}

// abandon settles a queued task picked up after the run context is gone,
// instead of executing it with a dead context.
func (p *Pool) abandon(ctx context.Context, workerID int, task domain.AnalysisTask) {
	p.observer.RecordRejected("shutdown")
	ab, ok := p.executor.(Abandoner)
	if !ok {
		p.logger.Warn("analysis_abandoned", "report_id", task.ReportID, "worker", workerID, "settled", false)
		return
	}

	settleCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), abandonTimeout)
	defer cancel()
	if err := ab.Abandon(settleCtx, task, "analysis abandoned: worker pool shut down"); err != nil {
		p.logger.Error("analysis_abandon_failed", "report_id", task.ReportID, "worker", workerID, "error", err)
		return
	}
	p.logger.Warn("analysis_abandoned", "report_id", task.ReportID, "worker", workerID, "settled", true)
}

func (p *Pool) run(ctx context.Context, workerID int, task domain.AnalysisTask) {
	start := time.Now()
	lag := time.Duration(-1)
	if !task.EnqueuedAt.IsZero() {
		lag = start.Sub(task.EnqueuedAt)
	}
	p.observer.StartAnalysis(lag)

	status := ""
	defer func() {
		if rec := recover(); rec != nil {
			p.logger.Error("analysis_panic", "report_id", task.ReportID, "worker", workerID, "panic", fmt.Sprint(rec))
			status = ""
		}
		p.observer.FinishAnalysis(status, time.Since(start))
	}()

	taskCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	outcome, err := p.executor.Execute(taskCtx, task)
	if outcome != nil {
		status = string(outcome.FinalStatus)
	}
	if err != nil {
		p.logger.Error("analysis_execute_failed", "report_id", task.ReportID, "worker", workerID, "error", err)
		return
	}
	p.logger.Info("analysis_executed",
		"report_id", task.ReportID,
		"work_id", task.WorkID,
		"status", status,
		"worker", workerID,
		"duration_ms", time.Since(start).Milliseconds(),
	)
}

type noopObserver struct{}

func (noopObserver) StartAnalysis(time.Duration)          {}
func (noopObserver) FinishAnalysis(string, time.Duration) {}
func (noopObserver) SetBacklog(int)                       {}
func (noopObserver) RecordRejected(string)                {}
