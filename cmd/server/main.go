package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/iliyamo/restaurant-table-reservation/internal/config"
	"github.com/iliyamo/restaurant-table-reservation/internal/database"
	"github.com/iliyamo/restaurant-table-reservation/internal/handler"
	"github.com/iliyamo/restaurant-table-reservation/internal/lock"
	"github.com/iliyamo/restaurant-table-reservation/internal/logger"
	"github.com/iliyamo/restaurant-table-reservation/internal/metrics"
	"github.com/iliyamo/restaurant-table-reservation/internal/middleware"
	"github.com/iliyamo/restaurant-table-reservation/internal/queue"
	"github.com/iliyamo/restaurant-table-reservation/internal/realtime"
	"github.com/iliyamo/restaurant-table-reservation/internal/repository"
	"github.com/iliyamo/restaurant-table-reservation/internal/router"
	"github.com/iliyamo/restaurant-table-reservation/internal/service"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log := logger.New(logger.Options{
		ServiceName: "restaurant-table-reservation",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		Format:      cfg.App.LogFormat,
		WarnStack:   cfg.App.WarnStack,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	tables, err := repository.NewTableRegistry(cfg.Tables)
	if err != nil {
		return fmt.Errorf("seeding tables: %w", err)
	}
	loc, err := cfg.Schedule.Location()
	if err != nil {
		return err
	}
	calendar, err := service.NewCalendar(cfg.Schedule.Open, cfg.Schedule.LastSlot, cfg.Schedule.Step, loc)
	if err != nil {
		return fmt.Errorf("slot schedule: %w", err)
	}

	checks := map[string]handler.Check{}
	store, closeStore, err := openStore(ctx, cfg, checks)
	if err != nil {
		return err
	}
	defer closeStore()

	rdb := config.NewRedisClient(cfg.Redis)
	if rdb != nil {
		defer func() { _ = rdb.Close() }()
		checks["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
	} else if cfg.Redis.Addr != "" {
		log.Warn(ctx, "redis unreachable, caching and rate limiting disabled")
	}

	locker, err := newLocker(cfg, rdb)
	if err != nil {
		return err
	}

	hub := realtime.NewHub(log)
	defer hub.Close()
	publisher, closePublisher := newPublisher(cfg, hub)
	defer closePublisher()

	lc := service.NewLifecycle(service.Deps{
		Store:          store,
		Tables:         tables,
		Calendar:       calendar,
		Locker:         locker,
		Events:         publisher,
		PublishTimeout: cfg.Events.PublishTimeout,
		Metrics:        metrics.NewReservationMetrics(reg),
		Logger:         log,
	})

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(echomw.RequestID())
	e.Use(echomw.Recover())
	e.Use(middleware.RequestLogger(log))
	router.RegisterRoutes(e, router.Deps{
		Lifecycle:     lc,
		Hub:           hub,
		JWTSecret:     cfg.JWT.Secret,
		Redis:         rdb,
		Cache:         cfg.Cache,
		RateLimit:     cfg.RateLimit,
		Gatherer:      reg,
		Ready:         checks,
		StreamOrigins: cfg.Events.StreamOrigins,
		Logger:        log,
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		addr := ":" + cfg.App.Port
		log.Info(log.WithFields(gctx, map[string]any{"addr": addr, "env": cfg.App.Env, "store": cfg.Store.Driver}), "listening")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	if cfg.Events.ConsumerEnabled && strings.EqualFold(cfg.Events.Driver, config.EventsAMQP) {
		g.Go(func() error {
			err := queue.StartReservationConsumer(gctx, queue.ConsumerConfig{
				URL:    cfg.Events.AMQPURL,
				Queue:  cfg.Events.Queue,
				LogDir: cfg.Events.LogDir,
			}, log)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		log.Info(shutdownCtx, "shutting down")
		return e.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// openStore builds the configured reservation store and registers its
// readiness check.  The returned func releases the database.
func openStore(ctx context.Context, cfg *config.Config, checks map[string]handler.Check) (repository.ReservationStore, func(), error) {
	if strings.EqualFold(cfg.Store.Driver, config.StoreMemory) {
		return repository.NewMemoryStore(), func() {}, nil
	}
	db, dialect, err := database.Open(cfg.Store)
	if err != nil {
		return nil, nil, err
	}
	if cfg.Store.Migrate {
		if err := database.Migrate(ctx, db, dialect); err != nil {
			_ = db.Close()
			return nil, nil, err
		}
	}
	checks["database"] = db.PingContext
	return repository.NewSQLStore(db), func() { _ = db.Close() }, nil
}

func newLocker(cfg *config.Config, rdb *redis.Client) (lock.Locker, error) {
	if !strings.EqualFold(cfg.Lock.Driver, config.LockRedis) {
		return lock.NewKeyedMutex(), nil
	}
	if rdb == nil {
		return nil, errors.New("LOCK_DRIVER=redis needs a reachable REDIS_ADDR")
	}
	return lock.NewRedisLocker(rdb, cfg.Lock.Prefix, cfg.Lock.TTL, cfg.Lock.Retry), nil
}

// newPublisher always feeds the staff websocket hub and, depending on
// EVENTS_DRIVER, a broker as well.
func newPublisher(cfg *config.Config, hub *realtime.Hub) (service.EventPublisher, func()) {
	switch strings.ToLower(cfg.Events.Driver) {
	case config.EventsAMQP:
		return service.FanoutPublisher{hub, service.NewAMQPPublisher(cfg.Events.AMQPURL, cfg.Events.Queue)}, func() {}
	case config.EventsKafka:
		kp := service.NewKafkaPublisher(cfg.Events.KafkaBrokers, cfg.Events.KafkaTopic)
		return service.FanoutPublisher{hub, kp}, func() { _ = kp.Close() }
	default:
		return service.FanoutPublisher{hub}, func() {}
	}
}
