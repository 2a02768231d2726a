package main

import (
	"context"
	"fmt"
	"net/http"
	"runtime"

	"github.com/BaSui01/extrudeflow/api/handlers"
	"github.com/BaSui01/extrudeflow/colour"
	"github.com/BaSui01/extrudeflow/config"
	"github.com/BaSui01/extrudeflow/convert"
	"github.com/BaSui01/extrudeflow/internal/cache"
	"github.com/BaSui01/extrudeflow/internal/metrics"
	"github.com/BaSui01/extrudeflow/internal/pool"
	"github.com/BaSui01/extrudeflow/internal/server"
	"github.com/BaSui01/extrudeflow/internal/tlsutil"
	"github.com/BaSui01/extrudeflow/jobs"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// =============================================================================
// 🖥️ Server 结构
// =============================================================================

// Server 是 ExtrudeFlow 的主服务器
type Server struct {
	cfg    *config.Config
	loader *config.Loader
	logger *zap.Logger

	// 服务器管理器
	httpManager    *server.Manager
	metricsManager *server.Manager

	// 转换与调度
	compute  *pool.GoroutinePool
	pipeline *convert.Pipeline
	jobs     *jobs.Manager
	redis    *cache.Manager

	// Handlers
	healthHandler *handlers.HealthHandler
	jobHandler    *handlers.JobHandler
	colourHandler *handlers.ColourHandler

	metricsCollector *metrics.Collector
	watcher          *config.Watcher

	// Rate limiter 生命周期管理
	rateLimiterCancel context.CancelFunc
}

// NewServer 创建新的服务器实例
func NewServer(cfg *config.Config, loader *config.Loader, logger *zap.Logger) *Server {
	return &Server{
		cfg:    cfg,
		loader: loader,
		logger: logger,
	}
}

// =============================================================================
// 🚀 启动流程
// =============================================================================

// Start 启动所有服务
func (s *Server) Start(ctx context.Context) error {
	s.metricsCollector = metrics.NewCollector("extrudeflow", s.logger)

	if err := s.initJobs(); err != nil {
		return fmt.Errorf("failed to init job manager: %w", err)
	}
	s.initHandlers()

	if err := s.initWatcher(ctx); err != nil {
		return fmt.Errorf("failed to init config watcher: %w", err)
	}

	if err := s.startHTTPServer(); err != nil {
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}

	if err := s.startMetricsServer(); err != nil {
		return fmt.Errorf("failed to start metrics server: %w", err)
	}

	s.logger.Info("All servers started",
		zap.Int("http_port", s.cfg.Server.HTTPPort),
		zap.Int("metrics_port", s.cfg.Server.MetricsPort),
		zap.Bool("hot_reload_enabled", s.watcher != nil),
		zap.Bool("redis_results", s.redis != nil),
	)
	return nil
}

// Errors 返回 HTTP 服务器的异步错误
func (s *Server) Errors() <-chan error {
	if s.httpManager == nil {
		return nil
	}
	return s.httpManager.Errors()
}

// =============================================================================
// 🔧 初始化方法
// =============================================================================

// initJobs 组装转换流水线与任务调度器
func (s *Server) initJobs() error {
	cc := s.cfg.Converter

	classifier := colour.NewClassifier(
		colour.WithBackground(cc.Background...),
		colour.WithLogger(s.logger),
		colour.WithCacheObserver(s.metricsCollector.RecordColourLookup),
	)

	workers := cc.ComputeWorkers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	poolCfg := pool.DefaultGoroutinePoolConfig()
	poolCfg.MaxWorkers = workers
	poolCfg.PanicHandler = func(r any) {
		s.logger.Error("compute task panicked", zap.Any("panic", r))
	}
	s.compute = pool.NewGoroutinePool(poolCfg)

	scratch, err := convert.NewScratch(cc.ScratchDir, s.logger)
	if err != nil {
		return err
	}

	hook := convert.ToolHook(s.metricsCollector.RecordTool)
	tracer := convert.NewPotraceTracer(cc.ConvertPath, cc.PotracePath, scratch, s.logger, hook)
	engine := convert.NewSCADEngine(cc.OpenSCADPath, cc.ColorSCADPath, cc.ColorSCADJobs, scratch, s.logger, hook)

	s.pipeline = convert.NewPipeline(tracer, engine, classifier, scratch,
		convert.WithComputePool(s.compute),
		convert.WithParallelism(cc.Parallelism),
		convert.WithLogger(s.logger),
	)

	store, err := s.openResultStore()
	if err != nil {
		return err
	}

	dispatcher := jobs.NewDispatcher(s.pipeline.Converters(), s.logger, s.metricsCollector)
	s.jobs, err = jobs.NewManager(dispatcher, store, jobs.ManagerConfig{
		Pool:          poolConfig(s.cfg.Worker),
		ScaleInterval: s.cfg.Worker.ScaleInterval,
	}, s.logger, s.metricsCollector)
	if err != nil {
		return err
	}
	s.jobs.Start()
	return nil
}

// openResultStore 启用 Redis 时结果表可在多个进程间共享，否则使用内存表
func (s *Server) openResultStore() (jobs.ResultStore, error) {
	rc := s.cfg.Redis
	if !rc.Enabled {
		return jobs.NewMemoryStore(), nil
	}

	cacheCfg := cache.DefaultConfig()
	cacheCfg.Addr = rc.Addr
	cacheCfg.Password = rc.Password
	cacheCfg.DB = rc.DB
	cacheCfg.PoolSize = rc.PoolSize
	cacheCfg.MinIdleConns = rc.MinIdleConns
	cacheCfg.TLS = rc.TLS

	conn, err := cache.NewManager(cacheCfg, s.logger)
	if err != nil {
		return nil, err
	}
	s.redis = conn
	return jobs.NewRedisStore(conn, rc.KeyPrefix), nil
}

// initHandlers 初始化所有 handlers
func (s *Server) initHandlers() {
	s.healthHandler = handlers.NewHealthHandler(s.logger)
	if s.redis != nil {
		s.healthHandler.RegisterCheck(handlers.NewFuncCheck("redis", s.redis.Ping))
	}
	s.jobHandler = handlers.NewJobHandler(s.jobs, s.logger)
	s.colourHandler = handlers.NewColourHandler(s.pipeline, s.logger)
}

// initWatcher 未指定配置文件时不启用热更新
func (s *Server) initWatcher(ctx context.Context) error {
	if s.loader == nil || s.loader.Path() == "" {
		return nil
	}
	w, err := config.NewWatcher(s.loader, config.WithWatcherLogger(s.logger))
	if err != nil {
		return err
	}
	w.OnReload(s.applyConfig)
	if err := w.Start(ctx); err != nil {
		return err
	}
	s.watcher = w
	return nil
}

// applyConfig 应用重新加载的配置。只有工作池边界可在运行时生效，
// 其余字段需要重启。
func (s *Server) applyConfig(cfg *config.Config) {
	bounds := poolConfig(cfg.Worker)
	if err := s.jobs.SetConfig(bounds); err != nil {
		s.logger.Warn("ignoring reloaded worker bounds", zap.Error(err))
		return
	}
	s.logger.Info("Configuration reloaded",
		zap.Uint("worker_min", bounds.Min),
		zap.Uint("worker_max", bounds.Max),
		zap.Uint("worker_ratio", bounds.Ratio),
	)
}

func poolConfig(w config.WorkerConfig) jobs.PoolConfig {
	return jobs.PoolConfig{Min: w.Min, Max: w.Max, Ratio: w.Ratio}
}

// =============================================================================
// 🌐 HTTP 服务器
// =============================================================================

// routes 构建路由与中间件链
func (s *Server) routes(ctx context.Context) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.healthHandler.HandleHealth)
	mux.HandleFunc("GET /version", s.healthHandler.HandleVersion(handlers.VersionInfo{
		APIVersion: Version,
		BuildTime:  BuildTime,
		GitCommit:  GitCommit,
	}))

	mux.HandleFunc("POST /job/submit/{$}", s.jobHandler.HandleSubmit)
	mux.HandleFunc("GET /job/current/{$}", s.jobHandler.HandleCurrent)
	mux.HandleFunc("GET /job/complete/{$}", s.jobHandler.HandleComplete)
	mux.HandleFunc("GET /job/workers/{$}", s.jobHandler.HandleWorkers)
	mux.HandleFunc("GET /job/download/{$}", s.jobHandler.HandleDownload)
	mux.HandleFunc("GET /job/config/{$}", s.jobHandler.HandleGetConfig)

	// 修改工作池边界是管理操作，单独包装认证
	auth := APIKeyAuth(s.cfg.Server.APIKey, s.logger)
	mux.HandleFunc("POST /job/config/{$}", auth(s.jobHandler.HandleSetConfig))
	if s.cfg.Server.APIKey == "" {
		s.logger.Warn("server.api_key is empty, /job/config/ is unauthenticated")
	}

	mux.HandleFunc("POST /colouridentify/{$}", s.colourHandler.HandleIdentify)

	return Chain(mux,
		Recovery(s.logger),
		RequestID(),
		SecurityHeaders(),
		OTelTracing(),
		MetricsMiddleware(s.metricsCollector),
		RequestLogger(s.logger),
		CORS(s.cfg.Server.AllowedOrigins),
		RateLimiter(ctx, s.cfg.Server.RateLimitRPS, s.cfg.Server.RateLimitBurst, s.logger),
		MaxBody(s.cfg.Server.MaxBodyBytes),
	)
}

// startHTTPServer 启动 API 服务器，配置证书时使用 TLS
func (s *Server) startHTTPServer() error {
	rateLimiterCtx, rateLimiterCancel := context.WithCancel(context.Background())
	s.rateLimiterCancel = rateLimiterCancel

	serverConfig := server.Config{
		Addr:            fmt.Sprintf(":%d", s.cfg.Server.HTTPPort),
		ReadTimeout:     s.cfg.Server.ReadTimeout,
		WriteTimeout:    s.cfg.Server.WriteTimeout,
		IdleTimeout:     2 * s.cfg.Server.ReadTimeout,
		MaxHeaderBytes:  1 << 20,
		ShutdownTimeout: s.cfg.Server.ShutdownTimeout,
	}
	if s.cfg.Server.TLSCertFile != "" {
		tlsCfg, err := tlsutil.ServerConfig(s.cfg.Server.TLSCertFile, s.cfg.Server.TLSKeyFile)
		if err != nil {
			return err
		}
		serverConfig.TLS = tlsCfg
	}

	s.httpManager = server.NewManager(s.routes(rateLimiterCtx), serverConfig, s.logger)
	if err := s.httpManager.Start(); err != nil {
		return err
	}

	s.logger.Info("HTTP server started",
		zap.Int("port", s.cfg.Server.HTTPPort),
		zap.Bool("tls", serverConfig.TLS != nil),
	)
	return nil
}

// =============================================================================
// 📊 Metrics 服务器
// =============================================================================

// startMetricsServer 启动 Metrics 服务器
func (s *Server) startMetricsServer() error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	serverConfig := server.Config{
		Addr:            fmt.Sprintf(":%d", s.cfg.Server.MetricsPort),
		ReadTimeout:     s.cfg.Server.ReadTimeout,
		WriteTimeout:    s.cfg.Server.WriteTimeout,
		ShutdownTimeout: s.cfg.Server.ShutdownTimeout,
	}

	s.metricsManager = server.NewManager(mux, serverConfig, s.logger)
	if err := s.metricsManager.Start(); err != nil {
		return err
	}

	s.logger.Info("Metrics server started", zap.Int("port", s.cfg.Server.MetricsPort))
	return nil
}

// =============================================================================
// 🛑 关闭流程
// =============================================================================

// Shutdown 优雅关闭：停止接收请求 → 停止热更新 → 等待运行中的任务 → 释放资源
func (s *Server) Shutdown(ctx context.Context) {
	s.logger.Info("Starting graceful shutdown...")

	if s.httpManager != nil {
		if err := s.httpManager.Shutdown(ctx); err != nil {
			s.logger.Error("HTTP server shutdown error", zap.Error(err))
		}
	}

	if s.rateLimiterCancel != nil {
		s.rateLimiterCancel()
	}

	if s.watcher != nil {
		s.watcher.Stop()
	}

	if s.jobs != nil {
		if err := s.jobs.Stop(ctx); err != nil {
			s.logger.Error("Job manager shutdown error", zap.Error(err))
		}
	}

	if s.compute != nil {
		s.compute.Close()
	}

	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			s.logger.Error("Redis close error", zap.Error(err))
		}
	}

	if s.metricsManager != nil {
		if err := s.metricsManager.Shutdown(ctx); err != nil {
			s.logger.Error("Metrics server shutdown error", zap.Error(err))
		}
	}

	s.logger.Info("Graceful shutdown completed")
}
