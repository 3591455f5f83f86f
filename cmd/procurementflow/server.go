package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/wideshreck/procurementflow-backend/api/handlers"
	"github.com/wideshreck/procurementflow-backend/config"
	"github.com/wideshreck/procurementflow-backend/directory"
	"github.com/wideshreck/procurementflow-backend/internal/cache"
	"github.com/wideshreck/procurementflow-backend/internal/database"
	"github.com/wideshreck/procurementflow-backend/internal/metrics"
	"github.com/wideshreck/procurementflow-backend/internal/server"
	"github.com/wideshreck/procurementflow-backend/internal/store"
	"github.com/wideshreck/procurementflow-backend/internal/telemetry"
	"github.com/wideshreck/procurementflow-backend/workflow"
)

// =============================================================================
// 🖥️ Server 结构
// =============================================================================

// Server 是 ProcurementFlow 的主服务器
type Server struct {
	cfg    *config.Config
	logger *zap.Logger

	// 服务器管理器
	httpManager    *server.Manager
	metricsManager *server.Manager

	// 基础设施
	dbManager    *database.Manager
	cacheManager *cache.Manager
	otel         *telemetry.Providers

	// 领域组件
	repo   *store.Repository
	engine *workflow.Engine

	// Handlers
	healthHandler   *handlers.HealthHandler
	workflowHandler *handlers.WorkflowHandler
	instanceHandler *handlers.InstanceHandler

	// 指标收集器
	metricsCollector *metrics.Collector

	// Rate limiter 生命周期管理
	rateLimiterCancel context.CancelFunc
}

// NewServer 创建新的服务器实例
func NewServer(cfg *config.Config, logger *zap.Logger, otel *telemetry.Providers) *Server {
	return &Server{
		cfg:    cfg,
		logger: logger,
		otel:   otel,
	}
}

// =============================================================================
// 🚀 启动流程
// =============================================================================

// Start 启动所有服务
func (s *Server) Start() error {
	// 1. 初始化指标收集器
	s.metricsCollector = metrics.NewCollector("procurementflow", s.logger)

	// 2. 初始化存储层（数据库 + 可选 Redis 缓存）
	if err := s.initStores(); err != nil {
		return fmt.Errorf("failed to init stores: %w", err)
	}

	// 3. 初始化工作流引擎和 Handlers
	if err := s.initHandlers(); err != nil {
		return fmt.Errorf("failed to init handlers: %w", err)
	}

	// 4. 启动 HTTP 服务器
	if err := s.startHTTPServer(); err != nil {
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}

	// 5. 启动 Metrics 服务器
	if err := s.startMetricsServer(); err != nil {
		return fmt.Errorf("failed to start metrics server: %w", err)
	}

	s.logger.Info("All servers started",
		zap.Int("http_port", s.cfg.Server.HTTPPort),
		zap.Int("metrics_port", s.cfg.Server.MetricsPort),
		zap.Bool("cache_enabled", s.cfg.Redis.Enabled),
		zap.Bool("auth_enabled", s.cfg.Auth.Enabled),
	)

	return nil
}

// =============================================================================
// 💾 存储层初始化
// =============================================================================

// initStores 打开数据库连接、同步表结构并装配仓储层
func (s *Server) initStores() error {
	db, err := database.Open(s.cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}

	s.dbManager, err = database.NewManager(db, s.cfg.Database, s.logger)
	if err != nil {
		return fmt.Errorf("failed to create database manager: %w", err)
	}

	// AutoMigrate 确保表结构最新
	if err := store.AutoMigrate(db); err != nil {
		return fmt.Errorf("failed to migrate workflow tables: %w", err)
	}
	if err := directory.AutoMigrate(db); err != nil {
		return fmt.Errorf("failed to migrate directory tables: %w", err)
	}

	repoOpts := []store.RepositoryOption{store.WithLogger(s.logger)}

	// Redis 定义缓存（可选）
	if s.cfg.Redis.Enabled {
		s.cacheManager, err = cache.NewManager(s.cfg.Redis, s.logger)
		if err != nil {
			// 缓存不可用时降级为纯数据库读取
			s.logger.Warn("Redis not available, definition cache disabled", zap.Error(err))
		} else {
			defCache := cache.NewDefinitionCache(s.cacheManager, s.logger,
				cache.WithHitRecorder(s.metricsCollector))
			repoOpts = append(repoOpts, store.WithCache(defCache))
			s.logger.Info("Definition cache enabled", zap.String("addr", s.cfg.Redis.Addr))
		}
	}

	s.repo = store.NewRepository(s.dbManager.DB(), repoOpts...)
	return nil
}

// =============================================================================
// 🔧 Handler 初始化
// =============================================================================

// initHandlers 装配工作流引擎和所有 handlers
func (s *Server) initHandlers() error {
	subjects := directory.NewSubjectDirectory(s.dbManager.DB(), s.logger)
	departments := directory.NewDepartmentDirectory(s.dbManager.DB(), s.logger)

	s.engine = workflow.NewEngine(s.repo, subjects, departments,
		workflow.WithLogger(s.logger),
		workflow.WithMetrics(s.metricsCollector),
		workflow.WithMaxSteps(s.cfg.Workflow.MaxSteps),
		workflow.WithLockStripes(s.cfg.Workflow.LockStripes),
	)

	// 健康检查 handler
	s.healthHandler = handlers.NewHealthHandler(s.logger)
	s.healthHandler.RegisterCheck(handlers.NewPingHealthCheck("database", s.dbManager.Ping))
	if s.cacheManager != nil {
		s.healthHandler.RegisterCheck(handlers.NewPingHealthCheck("redis", s.cacheManager.Ping))
	}

	// 业务 handlers
	s.workflowHandler = handlers.NewWorkflowHandler(s.repo, s.engine, s.logger)
	s.instanceHandler = handlers.NewInstanceHandler(s.engine, s.logger)

	s.logger.Info("Handlers initialized")
	return nil
}

// =============================================================================
// 🌐 HTTP 服务器
// =============================================================================

// startHTTPServer 启动 HTTP 服务器
func (s *Server) startHTTPServer() error {
	mux := http.NewServeMux()

	// ========================================
	// 健康检查端点
	// ========================================
	mux.HandleFunc("/health", s.healthHandler.HandleHealth)
	mux.HandleFunc("/healthz", s.healthHandler.HandleHealthz)
	mux.HandleFunc("/ready", s.healthHandler.HandleReady)
	mux.HandleFunc("/readyz", s.healthHandler.HandleReady)

	// 版本信息端点
	mux.HandleFunc("/version", s.healthHandler.HandleVersion(Version, BuildTime, GitCommit))

	// ========================================
	// API 路由
	// ========================================
	mux.HandleFunc("POST /api/v1/workflows", s.workflowHandler.HandleCreateWorkflow)
	mux.HandleFunc("GET /api/v1/workflows", s.workflowHandler.HandleListWorkflows)
	mux.HandleFunc("GET /api/v1/workflows/statistics", s.workflowHandler.HandleStatistics)
	mux.HandleFunc("GET /api/v1/workflows/{id}", s.workflowHandler.HandleGetWorkflow)
	mux.HandleFunc("PATCH /api/v1/workflows/{id}", s.workflowHandler.HandleUpdateWorkflow)
	mux.HandleFunc("DELETE /api/v1/workflows/{id}", s.workflowHandler.HandleDeleteWorkflow)
	mux.HandleFunc("POST /api/v1/workflows/{id}/clone", s.workflowHandler.HandleCloneWorkflow)
	mux.HandleFunc("GET /api/v1/workflows/{id}/instances", s.workflowHandler.HandleListInstances)
	mux.HandleFunc("POST /api/v1/workflows/{id}/start", s.workflowHandler.HandleStartInstance)
	mux.HandleFunc("GET /api/v1/instances/{instanceId}", s.instanceHandler.HandleGetInstance)
	mux.HandleFunc("POST /api/v1/instances/{instanceId}/approve", s.instanceHandler.HandleApprove)
	mux.HandleFunc("GET /api/v1/approvals/pending", s.instanceHandler.HandlePendingApprovals)

	// ========================================
	// 构建中间件链
	// ========================================
	skipAuthPaths := []string{"/health", "/healthz", "/ready", "/readyz", "/version", "/metrics"}
	rateLimiterCtx, rateLimiterCancel := context.WithCancel(context.Background())
	s.rateLimiterCancel = rateLimiterCancel

	middlewares := []Middleware{
		Recovery(s.logger),
		RequestID(),
		SecurityHeaders(),
		RequestLogger(s.logger),
		CORS(s.cfg.Server.CORSAllowedOrigins),
		RateLimiter(rateLimiterCtx, float64(s.cfg.Server.RateLimitRPS), s.cfg.Server.RateLimitBurst, s.logger),
		MetricsMiddleware(s.metricsCollector),
	}
	if s.cfg.Telemetry.Enabled {
		middlewares = append(middlewares, OTelTracing())
	}
	if s.cfg.Auth.Enabled {
		middlewares = append(middlewares, JWTAuth(s.cfg.Auth, skipAuthPaths, s.logger))
	}
	handler := Chain(mux, middlewares...)

	// ========================================
	// 使用 internal/server.Manager
	// ========================================
	s.httpManager = server.NewManager(handler, server.FromServerConfig(s.cfg.Server), s.logger)

	// 启动服务器（非阻塞）
	if err := s.httpManager.Start(); err != nil {
		return err
	}

	s.logger.Info("HTTP server started", zap.Int("port", s.cfg.Server.HTTPPort))
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

	// 启动服务器（非阻塞）
	if err := s.metricsManager.Start(); err != nil {
		return err
	}

	s.logger.Info("Metrics server started", zap.Int("port", s.cfg.Server.MetricsPort))
	return nil
}

// =============================================================================
// 🛑 关闭流程
// =============================================================================

// WaitForShutdown 等待关闭信号并优雅关闭
func (s *Server) WaitForShutdown() {
	// 使用 httpManager 的 WaitForShutdown（它会监听信号）
	if s.httpManager != nil {
		s.httpManager.WaitForShutdown()
	}

	// 执行清理
	s.Shutdown()
}

// Shutdown 优雅关闭所有服务
func (s *Server) Shutdown() {
	s.logger.Info("Starting graceful shutdown...")

	ctx := context.Background()

	// 1. 停止 rate limiter 清理 goroutine
	if s.rateLimiterCancel != nil {
		s.rateLimiterCancel()
	}

	// 2. 关闭 HTTP 服务器
	if s.httpManager != nil {
		if err := s.httpManager.Shutdown(ctx); err != nil {
			s.logger.Error("HTTP server shutdown error", zap.Error(err))
		}
	}

	// 3. 关闭 Metrics 服务器
	if s.metricsManager != nil {
		if err := s.metricsManager.Shutdown(ctx); err != nil {
			s.logger.Error("Metrics server shutdown error", zap.Error(err))
		}
	}

	// 4. 关闭缓存连接
	if s.cacheManager != nil {
		if err := s.cacheManager.Close(); err != nil {
			s.logger.Error("Cache shutdown error", zap.Error(err))
		}
	}

	// 5. 关闭数据库连接
	if s.dbManager != nil {
		if err := s.dbManager.Close(); err != nil {
			s.logger.Error("Database shutdown error", zap.Error(err))
		}
	}

	// 6. 刷新遥测数据
	if s.otel != nil {
		shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := s.otel.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("Telemetry shutdown error", zap.Error(err))
		}
	}

	s.logger.Info("Graceful shutdown completed")
}
