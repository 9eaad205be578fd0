// Package pipeline implements the asynchronous document processing
// pipeline: an in-process FIFO queue, a task registry enforcing at most
// one in-flight task per document, worker loops, a staged orchestrator
// with progress checkpoints, and a bounded linear-backoff retry policy.
package pipeline

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/ingestd/internal/document"
)

// Config holds pipeline tuning parameters.
type Config struct {
	// Workers is the number of dispatch goroutines. The default of 1
	// serializes document processing; higher values are allowed and
	// leave cross-document ordering unspecified.
	Workers int

	// ExecutorSize bounds the pool running blocking extract and embed
	// calls. Default: NumCPU.
	ExecutorSize int

	// MaxRetries is the per-document retry budget. Default: 3.
	MaxRetries int

	// BaseDelay is the linear backoff unit. Default: 60s.
	BaseDelay time.Duration

	// WorkerBackoff is the pause after an unexpected worker failure.
	// Default: 5s.
	WorkerBackoff time.Duration
}

func (c *Config) applyDefaults() {
	if c.Workers < 1 {
		c.Workers = 1
	}
	if c.ExecutorSize < 1 {
		c.ExecutorSize = runtime.NumCPU()
		if c.ExecutorSize < 1 {
			c.ExecutorSize = 1
		}
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = 3
	}
	if c.BaseDelay <= 0 {
		c.BaseDelay = 60 * time.Second
	}
	if c.WorkerBackoff <= 0 {
		c.WorkerBackoff = 5 * time.Second
	}
}

// Deps carries the processor's collaborators. Knowledge is optional;
// everything else is required.
type Deps struct {
	Records   document.RecordStore
	Extractor Extractor
	Embedder  Embedder
	Vectors   VectorWriter
	Knowledge KnowledgeWriter
	Logger    *zap.Logger
}

// StatusReport is a point-in-time view of a document: the persisted
// record merged with live processing state.
type StatusReport struct {
	Record       *document.Record `json:"record"`
	IsProcessing bool             `json:"is_processing"`
}

// Processor is the document processing service. It owns the queue, the
// worker loops, the task registry and the retry timers. All record
// status writes for an in-flight document flow through its task.
type Processor struct {
	config   Config
	policy   RetryPolicy
	records  document.RecordStore
	orch     *orchestrator
	queue    *queue
	registry *taskRegistry
	executor *executor
	logger   *zap.Logger
	metrics  *Metrics

	baseCtx    context.Context
	baseCancel context.CancelFunc
	wg         sync.WaitGroup

	mu          sync.Mutex
	retryTimers map[string]*time.Timer
	started     bool
	stopped     bool
}

// New creates a Processor. Call Start to begin consuming the queue.
func New(config Config, deps Deps) (*Processor, error) {
	if deps.Records == nil {
		return nil, fmt.Errorf("record store is required")
	}
	if deps.Extractor == nil {
		return nil, fmt.Errorf("extractor is required")
	}
	if deps.Embedder == nil {
		return nil, fmt.Errorf("embedder is required")
	}
	if deps.Vectors == nil {
		return nil, fmt.Errorf("vector writer is required")
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}

	config.applyDefaults()

	exec, err := newExecutor(config.ExecutorSize)
	if err != nil {
		return nil, err
	}

	logger := deps.Logger.Named("pipeline")
	metrics := NewMetrics(logger)

	baseCtx, baseCancel := context.WithCancel(context.Background())

	p := &Processor{
		config:   config,
		policy:   RetryPolicy{MaxRetries: config.MaxRetries, BaseDelay: config.BaseDelay},
		records:  deps.Records,
		queue:    newQueue(),
		registry: newTaskRegistry(),
		executor: exec,
		logger:   logger,
		metrics:  metrics,

		baseCtx:     baseCtx,
		baseCancel:  baseCancel,
		retryTimers: make(map[string]*time.Timer),
	}
	p.orch = &orchestrator{
		records:   deps.Records,
		extractor: deps.Extractor,
		embedder:  deps.Embedder,
		vectors:   deps.Vectors,
		knowledge: deps.Knowledge,
		executor:  exec,
		logger:    logger,
		metrics:   metrics,
	}
	return p, nil
}

// Start launches the worker loops. It is idempotent.
func (p *Processor) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.stopped {
		return ErrNotRunning
	}
	if p.started {
		return nil
	}
	p.started = true

	for i := 0; i < p.config.Workers; i++ {
		p.wg.Add(1)
		go p.workerLoop(i)
	}

	p.logger.Info("pipeline started",
		zap.Int("workers", p.config.Workers),
		zap.Int("executor_size", p.config.ExecutorSize),
		zap.Int("max_retries", p.config.MaxRetries),
		zap.Duration("base_delay", p.config.BaseDelay),
	)
	return nil
}

// Stop shuts the processor down: intake stops, pending retry timers are
// cancelled, queued items drain, and in-flight tasks run until ctx
// expires, at which point their contexts are cancelled and the tasks
// finish at their next checkpoint.
func (p *Processor) Stop(ctx context.Context) error {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return nil
	}
	p.stopped = true
	for id, timer := range p.retryTimers {
		timer.Stop()
		delete(p.retryTimers, id)
	}
	p.mu.Unlock()

	p.queue.close()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	var stopErr error
	select {
	case <-done:
	case <-ctx.Done():
		stopErr = ctx.Err()
		p.registry.cancelAll()
		p.baseCancel()
		<-done
	}

	p.baseCancel()
	p.executor.release()
	p.logger.Info("pipeline stopped")
	return stopErr
}

// Enqueue admits an uploaded document into the queue. It returns false
// when the document is already in flight, already queued, has a pending
// retry, or is not in the UPLOADED state.
func (p *Processor) Enqueue(ctx context.Context, id string) bool {
	// Admission is serialized so concurrent callers cannot both observe
	// UPLOADED and both win.
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.stopped {
		return false
	}
	if _, pending := p.retryTimers[id]; pending {
		p.logger.Debug("enqueue rejected, retry pending", zap.String("document_id", id))
		return false
	}
	if p.registry.contains(id) {
		p.logger.Debug("enqueue rejected, task in flight", zap.String("document_id", id))
		return false
	}

	rec, err := p.records.Get(ctx, id)
	if err != nil {
		p.logger.Warn("enqueue failed", zap.String("document_id", id), zap.Error(err))
		return false
	}
	if rec.Status != document.StatusUploaded {
		p.logger.Debug("enqueue rejected, wrong state",
			zap.String("document_id", id),
			zap.String("status", string(rec.Status)),
		)
		return false
	}

	queued := document.StatusQueued
	if _, err := p.records.Update(ctx, id, document.UpdateFields{Status: &queued}); err != nil {
		p.logger.Warn("enqueue transition failed", zap.String("document_id", id), zap.Error(err))
		return false
	}

	if !p.queue.push(id) {
		return false
	}
	p.logger.Info("document enqueued", zap.String("document_id", id))
	return true
}

// GetStatus returns the persisted record merged with live processing
// state from the task registry.
func (p *Processor) GetStatus(ctx context.Context, id string) (*StatusReport, error) {
	rec, err := p.records.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return &StatusReport{
		Record:       rec,
		IsProcessing: p.registry.contains(id),
	}, nil
}

// Cancel requests cancellation of a document. Pending retries are
// aborted immediately, queued documents are marked CANCELLED before a
// worker picks them up, and in-flight tasks are cancelled cooperatively
// at their next checkpoint. Terminal or unknown documents return false.
func (p *Processor) Cancel(ctx context.Context, id string) bool {
	// Pending retry: stop the timer and settle the record directly.
	p.mu.Lock()
	if timer, ok := p.retryTimers[id]; ok {
		timer.Stop()
		delete(p.retryTimers, id)
		p.mu.Unlock()

		cancelled := document.StatusCancelled
		if _, err := p.records.Update(ctx, id, document.UpdateFields{Status: &cancelled}); err != nil {
			p.logger.Warn("cancel of pending retry failed", zap.String("document_id", id), zap.Error(err))
			return false
		}
		p.logger.Info("pending retry cancelled", zap.String("document_id", id))
		return true
	}
	p.mu.Unlock()

	// In flight: cooperative cancellation through the task context.
	if handle, ok := p.registry.get(id); ok {
		handle.cancel()
		p.logger.Info("cancellation requested", zap.String("document_id", id))
		return true
	}

	// Not yet dispatched: settle the record; the worker skips ids whose
	// status is no longer QUEUED.
	rec, err := p.records.Get(ctx, id)
	if err != nil {
		return false
	}
	if rec.Status.Terminal() {
		return false
	}
	switch rec.Status {
	case document.StatusUploaded, document.StatusQueued, document.StatusRetrying:
		cancelled := document.StatusCancelled
		if _, err := p.records.Update(ctx, id, document.UpdateFields{Status: &cancelled}); err != nil {
			p.logger.Warn("cancel failed", zap.String("document_id", id), zap.Error(err))
			return false
		}
		p.logger.Info("document cancelled", zap.String("document_id", id))
		return true
	default:
		// An active status without a registry entry is a dispatch race;
		// the task will observe cancellation through its own handle.
		return false
	}
}

// Retry re-admits a FAILED or CANCELLED document, consuming one unit of
// the retry budget. Returns false when the budget is exhausted or the
// document is in any other state.
func (p *Processor) Retry(ctx context.Context, id string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.stopped {
		return false
	}

	rec, err := p.records.Get(ctx, id)
	if err != nil {
		return false
	}
	if rec.Status != document.StatusFailed && rec.Status != document.StatusCancelled {
		return false
	}
	if p.policy.Exhausted(rec.RetryCount) {
		p.logger.Info("retry rejected, budget exhausted",
			zap.String("document_id", id),
			zap.Int("retry_count", rec.RetryCount),
		)
		return false
	}

	queued := document.StatusQueued
	if _, err := p.records.Update(ctx, id, document.UpdateFields{
		Status:     &queued,
		RetryCount: document.Ptr(rec.RetryCount + 1),
	}); err != nil {
		p.logger.Warn("retry transition failed", zap.String("document_id", id), zap.Error(err))
		return false
	}

	if !p.queue.push(id) {
		return false
	}
	p.metrics.RecordRetry(ctx)
	p.logger.Info("document retry requested",
		zap.String("document_id", id),
		zap.Int("retry_count", rec.RetryCount+1),
	)
	return true
}

// QueueDepth returns the number of documents waiting for a worker.
func (p *Processor) QueueDepth() int {
	return p.queue.len()
}

// ActiveTasks returns the number of in-flight document tasks.
func (p *Processor) ActiveTasks() int {
	return p.registry.active()
}

func (p *Processor) workerLoop(n int) {
	defer p.wg.Done()
	log := p.logger.With(zap.Int("worker", n))

	for {
		id, ok := p.queue.dequeue(p.baseCtx)
		if !ok {
			log.Debug("worker exiting")
			return
		}
		if panicked := p.dispatch(id); panicked {
			select {
			case <-time.After(p.config.WorkerBackoff):
			case <-p.baseCtx.Done():
			}
		}
	}
}

// dispatch runs one dequeued document. It reports whether the task
// panicked so the loop can back off.
func (p *Processor) dispatch(id string) (panicked bool) {
	rec, err := p.records.Get(p.baseCtx, id)
	if err != nil {
		p.logger.Warn("dequeued unknown document", zap.String("document_id", id), zap.Error(err))
		return false
	}
	// Cancelled while waiting in the queue.
	if rec.Status != document.StatusQueued {
		p.logger.Debug("skipping dequeued document",
			zap.String("document_id", id),
			zap.String("status", string(rec.Status)),
		)
		return false
	}

	taskCtx, cancel := context.WithCancel(p.baseCtx)
	defer cancel()

	if _, ok := p.registry.acquire(id, cancel); !ok {
		p.logger.Debug("duplicate dispatch suppressed", zap.String("document_id", id))
		return false
	}
	defer p.registry.release(id)

	p.metrics.TaskStarted(taskCtx)
	defer p.metrics.TaskEnded(context.Background())

	var runErr error
	func() {
		defer func() {
			if r := recover(); r != nil {
				panicked = true
				runErr = fmt.Errorf("%w: task panic: %v", ErrExtraction, r)
				p.logger.Error("task panicked",
					zap.String("document_id", id),
					zap.Any("panic", r),
				)
			}
		}()
		runErr = p.orch.run(taskCtx, rec)
	}()

	p.finish(id, runErr)
	return panicked
}

// finish settles the record after a task exits. Writes use a background
// context; the task context is typically already cancelled here.
func (p *Processor) finish(id string, runErr error) {
	ctx := context.Background()

	switch {
	case runErr == nil:
		p.metrics.RecordOutcome(ctx, "completed")

	case canceled(runErr):
		cancelled := document.StatusCancelled
		if _, err := p.records.Update(ctx, id, document.UpdateFields{Status: &cancelled}); err != nil {
			p.logger.Debug("cancellation settle skipped", zap.String("document_id", id), zap.Error(err))
		}
		p.metrics.RecordOutcome(ctx, "cancelled")
		p.logger.Info("document cancelled", zap.String("document_id", id))

	case recoverable(runErr):
		p.scheduleRetry(ctx, id, runErr)

	default:
		p.fail(ctx, id, runErr)
	}
}

// scheduleRetry moves the record to RETRYING and arms a timer that
// re-queues it after the backoff. The worker slot is freed immediately;
// a document sleeping out its backoff never occupies a worker.
func (p *Processor) scheduleRetry(ctx context.Context, id string, cause error) {
	rec, err := p.records.Get(ctx, id)
	if err != nil {
		p.logger.Warn("retry scheduling failed", zap.String("document_id", id), zap.Error(err))
		return
	}

	if p.policy.Exhausted(rec.RetryCount) {
		p.fail(ctx, id, cause)
		return
	}

	attempt := rec.RetryCount + 1
	retrying := document.StatusRetrying
	if _, err := p.records.Update(ctx, id, document.UpdateFields{
		Status:     &retrying,
		RetryCount: document.Ptr(attempt),
		Error:      document.Ptr(cause.Error()),
	}); err != nil {
		p.logger.Warn("retry transition failed", zap.String("document_id", id), zap.Error(err))
		return
	}

	delay := p.policy.Delay(attempt)

	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return
	}
	p.retryTimers[id] = time.AfterFunc(delay, func() {
		p.completeRetry(id)
	})
	p.mu.Unlock()

	p.metrics.RecordRetry(ctx)
	p.metrics.RecordOutcome(ctx, "retrying")
	p.logger.Info("retry scheduled",
		zap.String("document_id", id),
		zap.Int("attempt", attempt),
		zap.Duration("delay", delay),
		zap.String("cause", cause.Error()),
	)
}

// completeRetry fires when a backoff timer expires: the document goes
// back to QUEUED (resetting progress and error) and rejoins the queue.
func (p *Processor) completeRetry(id string) {
	p.mu.Lock()
	delete(p.retryTimers, id)
	stopped := p.stopped
	p.mu.Unlock()
	if stopped {
		return
	}

	ctx := context.Background()
	queued := document.StatusQueued
	if _, err := p.records.Update(ctx, id, document.UpdateFields{Status: &queued}); err != nil {
		p.logger.Warn("retry re-queue failed", zap.String("document_id", id), zap.Error(err))
		return
	}
	if p.queue.push(id) {
		p.logger.Info("document re-queued after backoff", zap.String("document_id", id))
	}
}

func (p *Processor) fail(ctx context.Context, id string, cause error) {
	failed := document.StatusFailed
	if _, err := p.records.Update(ctx, id, document.UpdateFields{
		Status: &failed,
		Error:  document.Ptr(cause.Error()),
	}); err != nil {
		p.logger.Debug("failure settle skipped", zap.String("document_id", id), zap.Error(err))
		return
	}
	p.metrics.RecordOutcome(ctx, "failed")
	p.logger.Warn("document processing failed",
		zap.String("document_id", id),
		zap.String("error", cause.Error()),
	)
}
