package internal

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"user-registry-api/config"
	"user-registry-api/internal/application/ports"
	"user-registry-api/internal/application/services"
	domain "user-registry-api/internal/domain/user"
	"user-registry-api/internal/infrastructure/db/memory/user"
	"user-registry-api/internal/infrastructure/db/postgres"
	pgUser "user-registry-api/internal/infrastructure/db/postgres/user"
	"user-registry-api/internal/infrastructure/hasher"
	"user-registry-api/internal/infrastructure/logger"
	"user-registry-api/internal/infrastructure/metrics"
	"user-registry-api/internal/infrastructure/mq"
	"user-registry-api/internal/interface/api/rest"
	"user-registry-api/internal/interface/api/rest/middleware"
)

const healthTimeout = 2 * time.Second

type App struct {
	logger     *zap.Logger
	logCleanup func()
	cfg        config.Config
	db         *pgxpool.Pool
	userRepo   domain.Repository
	httpSrv    *http.Server
	router     *gin.Engine
	registry   *prometheus.Registry
	mCounter   *prometheus.CounterVec
	mq         *mq.RabbitMQ
	events     ports.UserEventPublisher
}

func NewApp(ctx context.Context) (*App, error) {
	// config
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	// logger
	log, logCleanup := logger.New(logger.Options{
		Level: cfg.Log.Level,
		JSON:  cfg.Log.JSON,
		Rotate: logger.FileRotate{
			Filename:   cfg.Log.File,
			MaxSizeMB:  cfg.Log.MaxSizeMB,
			MaxBackups: cfg.Log.MaxBackups,
			MaxAgeDays: cfg.Log.MaxAgeDays,
			Compress:   true,
		},
	})

	a := &App{
		logger:     log,
		logCleanup: logCleanup,
		cfg:        cfg,
	}

	// metrics
	a.registry = prometheus.NewRegistry()
	a.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	a.mCounter = metrics.NewCounter(a.registry)
	latency := metrics.NewHTTPLatency(a.registry)

	// router
	switch cfg.App.Env {
	case gin.ReleaseMode, "prod", "production":
		gin.SetMode(gin.ReleaseMode)
	case gin.TestMode:
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.DebugMode)
	}
	r := gin.New()
	r.Use(middleware.RequestID())
	r.Use(ginzap.RecoveryWithZap(log, true))
	if len(cfg.App.CORSOrigins) > 0 {
		corsCfg := cors.DefaultConfig()
		corsCfg.AllowOrigins = cfg.App.CORSOrigins
		corsCfg.AddAllowHeaders(middleware.KeyRequestID)
		corsCfg.AddExposeHeaders(middleware.KeyRequestID, "Location")
		r.Use(cors.New(corsCfg))
	}
	r.Use(middleware.RateLimit(cfg.App.RateLimitRPS, cfg.App.RateLimitBurst))
	r.Use(middleware.RequestLogGin(log, a.mCounter, latency))
	r.Use(middleware.Timeout(cfg.App.RequestTimeout))
	a.router = r

	// httpServer
	a.httpSrv = &http.Server{
		Addr:              cfg.App.Host + ":" + cfg.App.Port,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	// store
	if err = a.initStore(ctx); err != nil {
		a.Close()
		return nil, err
	}

	// rabbitMQ
	if err = a.initEvents(ctx); err != nil {
		a.Close()
		return nil, err
	}

	return a, nil
}

func (a *App) initStore(ctx context.Context) error {
	if a.cfg.DB.Driver == config.DriverMemory {
		a.logger.Warn("using the in-memory store, data is lost on restart")
		a.userRepo = user.NewRepository()
		return nil
	}

	dsn, err := a.cfg.DBDSN()
	if err != nil {
		return fmt.Errorf("DB config error: %w", err)
	}
	a.db, err = postgres.New(ctx, a.logger, dsn, a.cfg.DB.MaxConns)
	if err != nil {
		return err
	}
	if a.cfg.DB.AutoSchema {
		if err = postgres.EnsureSchema(ctx, a.logger, a.db); err != nil {
			return err
		}
	}
	a.userRepo = pgUser.NewRepository(a.db)

	return nil
}

func (a *App) initEvents(ctx context.Context) error {
	if !a.cfg.MQEnabled() {
		a.logger.Info("RABBITMQ_HOST is not set, user events are disabled")
		a.events = mq.Nop{}
		return nil
	}

	dsn, err := a.cfg.AMQPDSN()
	if err != nil {
		return fmt.Errorf("RabbitMQ config error: %w", err)
	}
	rbMQ := mq.New(a.cfg.MQ, a.logger)
	if err = rbMQ.Connect(ctx, dsn); err != nil {
		return fmt.Errorf("failed to connect to rabbitMQ: %w", err)
	}
	a.mq = rbMQ
	if err = rbMQ.Init(); err != nil {
		return fmt.Errorf("failed init rabbitMQ: %w", err)
	}
	a.events = rbMQ

	return nil
}

func (a *App) Close() {
	if a.db != nil {
		a.db.Close()
	}
	if a.mq != nil {
		a.mq.Close()
	}
	if a.logCleanup != nil {
		a.logCleanup()
	}
}

// Run - The central place to launch and manage our application and
// parallel processes through a single context.
func (a *App) Run(ctx context.Context) error {
	// context with os signals cancel chan
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.logger.Info("starting "+a.cfg.App.Name, zap.String("addr", a.httpSrv.Addr))
		if err := a.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server "+a.cfg.App.Name+" error: %w", err)
		}

		return nil
	})

	<-ctx.Done()

	a.logger.Info("shutting down " + a.cfg.App.Name + " gracefully...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), a.cfg.App.ShutdownTimeout)
	defer shutdownCancel()
	if err := a.httpSrv.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("http server shutdown "+a.cfg.App.Name+" error", zap.Error(err))
		return err
	}

	if err := g.Wait(); err != nil {
		a.logger.Error(a.cfg.App.Name+" returning an error", zap.Error(err))
		return err
	}

	a.logger.Info(a.cfg.App.Name + " gracefully stopped")

	return nil
}

func (a *App) InitControllers() {
	// services
	userService := services.NewUserService(
		a.userRepo,
		hasher.NewBcrypt(a.cfg.Security.BcryptCost),
		a.events,
		a.mCounter,
		a.logger,
	)

	// controllers
	rest.NewUserController(a.router, userService, a.logger)

	// ops
	a.router.GET(rest.RouteHealth, a.healthHandler)
	a.router.GET(rest.RouteMetrics, gin.WrapH(promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{})))
}

func (a *App) healthHandler(c *gin.Context) {
	if a.db != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), healthTimeout)
		defer cancel()
		if err := a.db.Ping(ctx); err != nil {
			a.logger.Warn("health check failed", zap.Error(err))
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (a *App) Logger() *zap.Logger { return a.logger }
