// Package cli provides the initialization shared by cmd/arwaeduc,
// cmd/arwaeduc-worker and cmd/reconcile-report.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"arwaeduc/internal/amqp"
	"arwaeduc/internal/backend"
	"arwaeduc/internal/cache"
	"arwaeduc/internal/config"
	"arwaeduc/internal/core"
	"arwaeduc/internal/log"
	"arwaeduc/internal/records"
	"arwaeduc/internal/services"
)

// SetupLogger builds the process logger from cfg and installs it as the
// slog default. A nil cfg gives text output at info level.
func SetupLogger(cfg *config.Config, component string) *log.Logger {
	lc := log.DefaultConfig()
	lc.Component = component
	if cfg != nil {
		if level, err := log.ParseLevel(cfg.LogLevel); err == nil {
			lc.Level = level
		}
		lc.Format = cfg.LogFormat
	}
	logger := log.New(lc)
	log.SetDefault(logger)
	return logger
}

// LoadAndValidateConfig loads configuration and validates it.
// It exits the process on failure.
func LoadAndValidateConfig(component string) (*config.Config, *log.Logger) {
	cfg, err := config.Load()
	if err != nil {
		SetupLogger(nil, component).Error("Failed to load configuration", log.FieldError, err)
		os.Exit(1)
	}
	logger := SetupLogger(cfg, component)
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", log.FieldError, err)
		os.Exit(1)
	}
	return cfg, logger
}

// OpenBackend creates the configured record store or exits.
func OpenBackend(ctx context.Context, cfg *config.Config, logger *log.Logger) *backend.BackendResult {
	bc, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", log.FieldError, err)
		os.Exit(1)
	}
	res, err := backend.NewFactory(logger).CreateBackend(ctx, bc)
	if err != nil {
		logger.Error("Failed to initialize backend", log.FieldError, err, "backend", bc.Type.String())
		os.Exit(1)
	}
	return res
}

// PayrollConfig converts the validated payroll settings.
func PayrollConfig(cfg *config.Config) services.PayrollConfig {
	pc := services.DefaultPayrollConfig()
	pc.HoursPerGroup = cfg.HoursPerGroup
	if cents, err := cfg.RevenuePerStudentCents(); err == nil {
		pc.RevenuePerStudent = core.Money{Cents: cents}
	}
	return pc
}

// Analytics is the analytics service with the cache it reads through.
type Analytics struct {
	Service *services.AnalyticsService
	Cache   cache.Versioned
	Shared  bool
	close   func()
}

// Close releases the cache connection or cleanup goroutine.
func (a *Analytics) Close() {
	if a != nil && a.close != nil {
		a.close()
	}
}

// BuildAnalytics wires the analytics service. With REDIS_ADDR set the cache
// is shared with the other processes; an unreachable Redis falls back to an
// in-process LRU.
func BuildAnalytics(ctx context.Context, cfg *config.Config, store records.RecordStore, logger *log.Logger) (*Analytics, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, fmt.Errorf("timezone: %w", err)
	}
	payroll := services.NewPayrollCalculator(PayrollConfig(cfg))
	cacheLogger := logger.WithComponent(log.ComponentCache)

	if cfg.RedisAddr != "" {
		client, err := cache.Dial(ctx, cfg.RedisAddr)
		if err == nil {
			rc := cache.NewRedis(client, cfg.CacheTTL)
			svc := services.NewAnalyticsService(store, rc, payroll, loc)
			listenCtx, cancel := context.WithCancel(ctx)
			rc.ListenForBumps(listenCtx, dashboardWarmer(listenCtx, svc, cacheLogger))
			cacheLogger.Info("Using shared Redis cache", "addr", cfg.RedisAddr, "ttl", cfg.CacheTTL)
			return &Analytics{
				Service: svc,
				Cache:   rc,
				Shared:  true,
				close: func() {
					cancel()
					_ = client.Close()
				},
			}, nil
		}
		cacheLogger.Warn("Redis unavailable, falling back to in-process cache", log.FieldError, err, "addr", cfg.RedisAddr)
	}

	local := cache.NewLocal(cfg.CacheSize, cfg.CacheTTL)
	manager := cache.NewManager()
	manager.Register(local.Entries())
	manager.StartCleanup(cfg.CacheTTL)
	cacheLogger.Info("Using in-process cache", "size", cfg.CacheSize, "ttl", cfg.CacheTTL)
	return &Analytics{
		Service: services.NewAnalyticsService(store, local, payroll, loc),
		Cache:   local,
		close:   manager.Stop,
	}, nil
}

// dashboardWarmer refills the dashboard entries after each version bump so
// the first page view following a write is served from cache. Bumps that
// arrive while a refill is pending are coalesced into it.
func dashboardWarmer(ctx context.Context, svc *services.AnalyticsService, logger *log.Logger) func(version int64) {
	kick := make(chan int64, 1)
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case version := <-kick:
				wctx, cancel := context.WithTimeout(ctx, 30*time.Second)
				_, err := svc.Dashboard(wctx, svc.Now())
				cancel()
				if err != nil {
					logger.Warn("Dashboard warm-up failed", log.FieldError, err, "version", version)
					continue
				}
				logger.Debug("Dashboard cache warmed", "version", version)
			}
		}
	}()
	return func(version int64) {
		select {
		case kick <- version:
		default:
		}
	}
}

// ConnectAMQP dials the broker. It returns nil when AMQP_URL is unset or,
// unless required, when the broker is unreachable.
func ConnectAMQP(cfg *config.Config, logger *log.Logger, required bool) *amqp.Client {
	amqpLogger := logger.WithComponent(log.ComponentAMQP)
	if cfg.AMQPURL == "" {
		if required {
			amqpLogger.Error("AMQP_URL is required")
			os.Exit(1)
		}
		amqpLogger.Info("AMQP disabled, record events and report requests will not be queued")
		return nil
	}
	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPReportQueue, cfg.AMQPEventQueue)
	if err != nil {
		if required {
			amqpLogger.Error("Failed to initialize AMQP client", log.FieldError, err)
			os.Exit(1)
		}
		amqpLogger.Warn("Failed to initialize AMQP client, continuing without queueing", log.FieldError, err)
		return nil
	}
	amqpLogger.Info("AMQP client initialized", "exchange", cfg.AMQPExchange)
	return client
}

// GracefulShutdown sets up signal handling for graceful shutdown.
// Returns a context that will be cancelled on shutdown signals,
// and a channel that signals when shutdown is complete.
func GracefulShutdown(logger *log.Logger, timeout time.Duration, cleanup func(context.Context)) (context.Context, <-chan struct{}) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), timeout)
		defer shutdownCancel()

		cancel()
		if cleanup != nil {
			cleanup(shutdownCtx)
		}
		if shutdownCtx.Err() != nil {
			logger.Warn("Shutdown timeout reached")
		} else {
			logger.Info("Shutdown complete")
		}
		close(done)
	}()

	return ctx, done
}

// WaitForShutdown blocks until the context is cancelled and cleanup ran.
func WaitForShutdown(ctx context.Context, done <-chan struct{}) {
	<-ctx.Done()
	<-done
}
