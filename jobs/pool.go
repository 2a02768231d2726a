package jobs

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/BaSui01/extrudeflow/internal/ctxkeys"
	"github.com/BaSui01/extrudeflow/types"
	"go.uber.org/zap"
)

// StatusIdle is the status of a worker waiting for a job.
const StatusIdle = "idle"

// DefaultScaleInterval is the period of the scaling cycle.
const DefaultScaleInterval = 30 * time.Second

// PoolConfig bounds the worker count. Ratio is the queue depth each worker
// is expected to absorb; 0 is treated as 1.
type PoolConfig struct {
	Min   uint `json:"min" yaml:"min"`
	Max   uint `json:"max" yaml:"max"`
	Ratio uint `json:"ratio" yaml:"ratio"`
}

// Validate checks the bounds.
func (c PoolConfig) Validate() error {
	if c.Min > c.Max {
		return types.ValidationError(fmt.Sprintf("min (%d) must not exceed max (%d)", c.Min, c.Max))
	}
	return nil
}

// Handler processes one dequeued job on behalf of a worker.
type Handler func(ctx context.Context, workerID int, job *Job)

// Worker is a pool slot. A worker that is not living finishes its current
// job and is reaped once idle.
type Worker struct {
	ID     int    `json:"id"`
	Status string `json:"status"`
	Living bool   `json:"living"`

	cancel context.CancelFunc
}

// Pool runs workers that pull from a Queue. The worker count follows the
// queue depth within [Min, Max], re-evaluated by Cycle.
type Pool struct {
	queue   *Queue
	handle  Handler
	logger  *zap.Logger
	metrics Observer

	// jobCtx outlives worker cancellation so in-flight jobs finish.
	jobCtx    context.Context
	jobCancel context.CancelFunc

	mu      sync.Mutex
	cfg     PoolConfig
	workers []*Worker // indexed by id; nil once reaped
	stopped bool
	wg      sync.WaitGroup
}

// NewPool creates a pool with no workers. Call Cycle or Run to spawn them.
func NewPool(queue *Queue, handle Handler, cfg PoolConfig, logger *zap.Logger, metrics Observer) *Pool {
	if logger == nil {
		logger = zap.NewNop()
	}
	if metrics == nil {
		metrics = nopObserver{}
	}
	jobCtx, jobCancel := context.WithCancel(context.Background())
	return &Pool{
		queue:     queue,
		handle:    handle,
		cfg:       cfg,
		logger:    logger.With(zap.String("component", "worker_pool")),
		metrics:   metrics,
		jobCtx:    jobCtx,
		jobCancel: jobCancel,
	}
}

// Config returns the current bounds.
func (p *Pool) Config() PoolConfig {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cfg
}

// SetConfig replaces the bounds; they take effect on the next cycle.
func (p *Pool) SetConfig(cfg PoolConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	p.mu.Lock()
	p.cfg = cfg
	p.mu.Unlock()
	p.logger.Info("pool config updated",
		zap.Uint("min", cfg.Min), zap.Uint("max", cfg.Max), zap.Uint("ratio", cfg.Ratio))
	return nil
}

// Run cycles once immediately and then every interval until ctx is done.
func (p *Pool) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultScaleInterval
	}
	p.Cycle()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.Cycle()
		}
	}
}

// Cycle reaps retired idle workers, then grows or retires workers so the
// living count respects the bounds and the queue depth. It never shrinks
// toward the depth-derived ideal, only toward Max.
func (p *Pool) Cycle() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stopped {
		return
	}

	for id, w := range p.workers {
		if w != nil && !w.Living && w.Status == StatusIdle {
			w.cancel()
			p.workers[id] = nil
			p.logger.Debug("worker reaped", zap.Int("worker_id", id))
		}
	}

	cfg := p.cfg
	living := uint(p.livingLocked())

	if living < cfg.Min {
		p.spawnLocked(cfg.Min - living)
		living = cfg.Min
	}

	if living > cfg.Max {
		excess := living - cfg.Max
		for id := len(p.workers) - 1; id >= 0 && excess > 0; id-- {
			if w := p.workers[id]; w != nil && w.Living {
				w.Living = false
				excess--
				p.logger.Debug("worker retired", zap.Int("worker_id", id))
			}
		}
		living = cfg.Max
	}

	depth := p.queue.Len()
	ratio := max(cfg.Ratio, 1)
	ideal := min(uint(math.RoundToEven(float64(depth)/float64(ratio))), cfg.Max)
	if living < ideal {
		p.spawnLocked(ideal - living)
		living = ideal
	}

	p.metrics.QueueDepth(depth)
	p.metrics.Workers(int(living))
}

// Status returns the status of every living worker by id.
func (p *Pool) Status() map[int]string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make(map[int]string)
	for _, w := range p.workers {
		if w != nil && w.Living {
			out[w.ID] = w.Status
		}
	}
	return out
}

// Workers returns a snapshot of every non-reaped worker ordered by id.
func (p *Pool) Workers() []Worker {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Worker, 0, len(p.workers))
	for _, w := range p.workers {
		if w != nil {
			out = append(out, Worker{ID: w.ID, Status: w.Status, Living: w.Living})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Living returns the number of living workers.
func (p *Pool) Living() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.livingLocked()
}

// Stop retires every worker and waits for in-flight jobs. When ctx expires
// first, running jobs are cancelled.
func (p *Pool) Stop(ctx context.Context) error {
	p.mu.Lock()
	p.stopped = true
	for _, w := range p.workers {
		if w != nil {
			w.Living = false
			w.cancel()
		}
	}
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		p.jobCancel()
		return nil
	case <-ctx.Done():
		p.jobCancel()
		<-done
		return ctx.Err()
	}
}

func (p *Pool) livingLocked() int {
	n := 0
	for _, w := range p.workers {
		if w != nil && w.Living {
			n++
		}
	}
	return n
}

func (p *Pool) spawnLocked(n uint) {
	for range n {
		ctx, cancel := context.WithCancel(context.Background())
		w := &Worker{ID: len(p.workers), Status: StatusIdle, Living: true, cancel: cancel}
		p.workers = append(p.workers, w)
		p.wg.Add(1)
		go p.work(ctx, w)
		p.logger.Debug("worker spawned", zap.Int("worker_id", w.ID))
	}
}

func (p *Pool) work(ctx context.Context, w *Worker) {
	defer p.wg.Done()
	for {
		job, err := p.queue.Dequeue(ctx)
		if err != nil {
			return
		}

		p.mu.Lock()
		if ctx.Err() != nil {
			// reaped between dequeue and claim
			p.queue.requeueFront(job)
			p.mu.Unlock()
			return
		}
		w.Status = statusFor(job)
		p.mu.Unlock()

		jobCtx := ctxkeys.WithWorkerID(p.jobCtx, w.ID)
		p.handle(jobCtx, w.ID, job)

		p.mu.Lock()
		w.Status = StatusIdle
		living := w.Living
		p.mu.Unlock()
		if !living {
			return
		}
	}
}

func statusFor(job *Job) string {
	name := job.Filename()
	if name == "" {
		name = "unknown filename"
	}
	return fmt.Sprintf("%s / %s", job.Type, name)
}
