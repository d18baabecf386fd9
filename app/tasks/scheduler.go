package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

var _ TaskSchedulerInterface = (*Scheduler)(nil)

const taskTimeout = 5 * time.Minute

type Options struct {
	Interval    time.Duration
	WorkerCount int
	// ExtractContent enables the article extraction task on every tick.
	ExtractContent    bool
	ExtractionTimeout time.Duration
}

type Scheduler struct {
	syncer           Syncer
	contentRepo      ContentStore
	contentExtractor ContentExtractor
	opts             Options
	ctx              context.Context
	cancel           context.CancelFunc
	wg               sync.WaitGroup
	taskQueue        chan TaskInterface
}

func NewScheduler(syncer Syncer, contentRepo ContentStore, contentExtractor ContentExtractor, opts Options) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())

	if opts.WorkerCount <= 0 {
		opts.WorkerCount = 1
	}
	if opts.ExtractionTimeout <= 0 {
		opts.ExtractionTimeout = 30 * time.Second
	}

	return &Scheduler{
		syncer:           syncer,
		contentRepo:      contentRepo,
		contentExtractor: contentExtractor,
		opts:             opts,
		ctx:              ctx,
		cancel:           cancel,
		taskQueue:        make(chan TaskInterface, 300),
	}
}

func (s *Scheduler) Start() {
	for i := 0; i < s.opts.WorkerCount; i++ {
		s.wg.Add(1)
		go s.worker(i)
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ticker := time.NewTicker(s.opts.Interval)
		defer ticker.Stop()

		s.enqueueTasks()

		for {
			select {
			case <-s.ctx.Done():
				return
			case <-ticker.C:
				s.enqueueTasks()
			}
		}
	}()
}

func (s *Scheduler) Stop() {
	s.cancel()
	s.wg.Wait()
}

func (s *Scheduler) EnqueueTask(task TaskInterface) error {
	select {
	case <-s.ctx.Done():
		return s.ctx.Err()
	default:
	}

	select {
	case s.taskQueue <- task:
		return nil
	default:
		return fmt.Errorf("task queue is full")
	}
}

func (s *Scheduler) enqueueTasks() {
	if err := s.EnqueueTask(NewSyncItemsTask(s.syncer)); err != nil {
		slog.Warn("Failed to enqueue SyncItemsTask", "error", err)
	}

	if !s.opts.ExtractContent {
		return
	}

	extractTask := NewExtractContentTask(s.contentRepo, s.contentExtractor, s.opts.ExtractionTimeout)
	if err := s.EnqueueTask(extractTask); err != nil {
		slog.Warn("Failed to enqueue ExtractContentTask", "error", err)
	}
}

func (s *Scheduler) worker(id int) {
	defer s.wg.Done()

	for {
		select {
		case task := <-s.taskQueue:
			s.executeTask(id, task)

		case <-s.ctx.Done():
			return
		}
	}
}

func (s *Scheduler) executeTask(workerID int, task TaskInterface) {
	state := task.State()
	state.begin()

	taskCtx, cancel := context.WithTimeout(s.ctx, taskTimeout)
	defer cancel()

	err := task.Execute(taskCtx)
	if err == nil {
		return
	}

	slog.Error("Worker task execution failed",
		"worker_id", workerID,
		"type", string(state.Type),
		"id", state.ID,
		"attempt", state.Attempts,
		"error", err)

	if !state.CanRetry() {
		if state.MaxRetries > 0 {
			slog.Error("Task failed after maximum retries",
				"type", string(state.Type),
				"id", state.ID,
				"attempts", state.Attempts,
				"last_error", err)
		}
		return
	}

	delay := state.RetryDelay()
	slog.Warn("Task retry scheduled",
		"type", string(state.Type),
		"id", state.ID,
		"retry", state.Retries()+1,
		"max_retries", state.MaxRetries,
		"delay", delay.String())

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		timer := time.NewTimer(delay)
		defer timer.Stop()

		select {
		case <-s.ctx.Done():
			slog.Debug("Scheduler stopped, skipping task retry", "type", string(state.Type), "id", state.ID)
		case <-timer.C:
			if err := s.EnqueueTask(task); err != nil {
				slog.Error("Failed to re-enqueue task for retry", "type", string(state.Type), "id", state.ID, "error", err)
			}
		}
	}()
}
