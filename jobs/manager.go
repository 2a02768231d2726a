package jobs

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/BaSui01/extrudeflow/internal/ctxkeys"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrNotStarted is returned by Stop on a manager that was never started.
var ErrNotStarted = errors.New("job manager not started")

// ManagerConfig configures the scheduler.
type ManagerConfig struct {
	Pool          PoolConfig
	ScaleInterval time.Duration
}

// DefaultManagerConfig returns one always-on worker scaling to four.
func DefaultManagerConfig() ManagerConfig {
	return ManagerConfig{
		Pool:          PoolConfig{Min: 1, Max: 4, Ratio: 2},
		ScaleInterval: DefaultScaleInterval,
	}
}

// Manager is the scheduler context: it owns the queue, the worker pool,
// the dispatcher and the result store.
type Manager struct {
	queue      *Queue
	pool       *Pool
	dispatcher *Dispatcher
	store      ResultStore
	interval   time.Duration
	logger     *zap.Logger
	metrics    Observer

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewManager wires a scheduler around dispatcher. store defaults to an
// in-memory table.
func NewManager(dispatcher *Dispatcher, store ResultStore, cfg ManagerConfig, logger *zap.Logger, metrics Observer) (*Manager, error) {
	if err := cfg.Pool.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if metrics == nil {
		metrics = nopObserver{}
	}
	if store == nil {
		store = NewMemoryStore()
	}
	m := &Manager{
		queue:      NewQueue(),
		dispatcher: dispatcher,
		store:      store,
		interval:   cfg.ScaleInterval,
		logger:     logger.With(zap.String("component", "job_manager")),
		metrics:    metrics,
	}
	m.pool = NewPool(m.queue, m.handle, cfg.Pool, logger, metrics)
	return m, nil
}

// Start runs the scaling loop in the background until Stop.
func (m *Manager) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	m.done = make(chan struct{})

	go func() {
		defer close(m.done)
		m.pool.Run(ctx, m.scaleInterval())
	}()
	m.logger.Info("job manager started", zap.Duration("scale_interval", m.scaleInterval()))
}

func (m *Manager) scaleInterval() time.Duration {
	if m.interval <= 0 {
		return DefaultScaleInterval
	}
	return m.interval
}

// Submit validates job and enqueues it. An invalid job is recorded as a
// failed result right away and the validation error is returned.
func (m *Manager) Submit(ctx context.Context, job *Job) error {
	if err := m.dispatcher.Validate(job); err != nil {
		filename := job.Filename()
		if job.Meta == nil || job.Meta.Filename == nil {
			filename = missingFilename
		}
		m.metrics.JobSubmitted(string(job.Type), false)
		if perr := m.store.Put(ctx, uuid.NewString(), Failed(filename, err)); perr != nil {
			m.logger.Error("failed to record rejected job", zap.Error(perr))
		}
		m.logger.Info("job rejected",
			zap.String("type", string(job.Type)),
			zap.String("filename", filename),
			zap.Error(err),
		)
		return err
	}

	job.submitted = time.Now()
	if err := m.queue.Submit(job); err != nil {
		return err
	}
	m.metrics.JobSubmitted(string(job.Type), true)
	m.metrics.QueueDepth(m.queue.Len())
	m.logger.Debug("job queued", zap.String("type", string(job.Type)), zap.String("filename", job.Filename()))
	return nil
}

func (m *Manager) handle(ctx context.Context, workerID int, job *Job) {
	id := uuid.NewString()
	ctx = ctxkeys.WithJobID(ctx, id)

	m.logger.Debug("job claimed",
		zap.String("job_id", id),
		zap.Int("worker_id", workerID),
		zap.Duration("waited", time.Since(job.submitted)),
	)
	res := m.dispatcher.Dispatch(ctx, job)

	// a result must land even when the job context was cancelled
	if err := m.store.Put(context.WithoutCancel(ctx), id, res); err != nil {
		m.logger.Error("failed to store result",
			zap.String("job_id", id),
			zap.String("filename", res.Filename),
			zap.Error(err),
		)
	}
}

// Pending returns the filenames of queued jobs in order.
func (m *Manager) Pending() []string {
	return m.queue.Peek()
}

// Workers returns the status of every living worker.
func (m *Manager) Workers() map[int]string {
	return m.pool.Status()
}

// Completed lists stored results without payloads.
func (m *Manager) Completed(ctx context.Context) (map[string]Summary, error) {
	return m.store.Summaries(ctx)
}

// Download returns and removes the result under id.
func (m *Manager) Download(ctx context.Context, id string) (Result, error) {
	return m.store.Take(ctx, id)
}

// Config returns the pool bounds.
func (m *Manager) Config() PoolConfig {
	return m.pool.Config()
}

// SetConfig replaces the pool bounds; they apply on the next cycle.
func (m *Manager) SetConfig(cfg PoolConfig) error {
	return m.pool.SetConfig(cfg)
}

// Stop rejects new jobs, stops scaling and waits for running jobs.
func (m *Manager) Stop(ctx context.Context) error {
	m.mu.Lock()
	cancel, done := m.cancel, m.done
	m.cancel = nil
	m.mu.Unlock()
	if cancel == nil {
		return ErrNotStarted
	}

	m.queue.Close()
	cancel()
	<-done

	err := m.pool.Stop(ctx)
	if pending := m.queue.Len(); pending > 0 {
		m.logger.Warn("jobs left in queue at shutdown", zap.Int("pending", pending))
	}
	m.logger.Info("job manager stopped")
	return err
}
