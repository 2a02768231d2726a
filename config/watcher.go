// 配置文件变更监听器。
//
// 轮询配置文件修改时间，静默期结束后重新加载并回调。
package config

import (
	"context"
	"errors"
	"os"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ErrNoConfigPath 加载器未设置配置文件路径
var ErrNoConfigPath = errors.New("config: loader has no config path")

// Watcher 监听配置文件并在变更后重新加载
type Watcher struct {
	loader   *Loader
	interval time.Duration
	debounce time.Duration
	logger   *zap.Logger

	mu        sync.Mutex
	callbacks []func(*Config)
	lastMod   time.Time
	pending   time.Time // 检测到变更的时间，零值表示无待处理变更
	running   bool
	stop      chan struct{}
	done      chan struct{}
}

// WatcherOption configures the Watcher
type WatcherOption func(*Watcher)

// WithPollInterval sets how often the file is checked
func WithPollInterval(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		if d > 0 {
			w.interval = d
		}
	}
}

// WithDebounceDelay sets the quiet period before a change is reloaded
func WithDebounceDelay(d time.Duration) WatcherOption {
	return func(w *Watcher) { w.debounce = d }
}

// WithWatcherLogger sets the logger for the watcher
func WithWatcherLogger(logger *zap.Logger) WatcherOption {
	return func(w *Watcher) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// NewWatcher 创建监听器，监听 loader 的配置文件
func NewWatcher(loader *Loader, opts ...WatcherOption) (*Watcher, error) {
	if loader == nil || loader.Path() == "" {
		return nil, ErrNoConfigPath
	}
	w := &Watcher{
		loader:   loader,
		interval: time.Second,
		debounce: 200 * time.Millisecond,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.logger = w.logger.With(zap.String("component", "config_watcher"))
	return w, nil
}

// OnReload 注册重新加载成功后的回调
func (w *Watcher) OnReload(fn func(*Config)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.callbacks = append(w.callbacks, fn)
}

// Start 开始轮询，直到 ctx 结束或调用 Stop
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		return errors.New("watcher already running")
	}
	w.running = true
	w.stop = make(chan struct{})
	w.done = make(chan struct{})
	if info, err := os.Stat(w.loader.Path()); err == nil {
		w.lastMod = info.ModTime()
	}

	go w.loop(ctx)

	w.logger.Info("config watcher started",
		zap.String("path", w.loader.Path()),
		zap.Duration("interval", w.interval))
	return nil
}

// Stop 停止轮询并等待循环退出
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	close(w.stop)
	done := w.done
	w.mu.Unlock()
	<-done
}

func (w *Watcher) loop(ctx context.Context) {
	defer close(w.done)
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stop:
			return
		case now := <-ticker.C:
			if cfg := w.check(now); cfg != nil {
				w.dispatch(cfg)
			}
		}
	}
}

// check 返回需要分发的新配置，没有则返回 nil
func (w *Watcher) check(now time.Time) *Config {
	w.mu.Lock()
	defer w.mu.Unlock()

	info, err := os.Stat(w.loader.Path())
	if err != nil {
		return nil
	}
	if !info.ModTime().Equal(w.lastMod) {
		w.lastMod = info.ModTime()
		w.pending = now
		return nil
	}
	if w.pending.IsZero() || now.Sub(w.pending) < w.debounce {
		return nil
	}
	w.pending = time.Time{}

	cfg, err := w.loader.Load()
	if err != nil {
		w.logger.Warn("config reload failed, keeping previous config", zap.Error(err))
		return nil
	}
	return cfg
}

func (w *Watcher) dispatch(cfg *Config) {
	w.mu.Lock()
	callbacks := make([]func(*Config), len(w.callbacks))
	copy(callbacks, w.callbacks)
	w.mu.Unlock()

	w.logger.Info("config reloaded", zap.String("path", w.loader.Path()))
	for _, cb := range callbacks {
		cb(cfg)
	}
}
