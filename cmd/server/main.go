package main // Entry point package

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"

	"github.com/halpe-hal/pizza-course-manager-app/internal/clock"
	"github.com/halpe-hal/pizza-course-manager-app/internal/config"
	"github.com/halpe-hal/pizza-course-manager-app/internal/database"
	"github.com/halpe-hal/pizza-course-manager-app/internal/handler"
	"github.com/halpe-hal/pizza-course-manager-app/internal/logger"
	"github.com/halpe-hal/pizza-course-manager-app/internal/middleware"
	"github.com/halpe-hal/pizza-course-manager-app/internal/queue"
	"github.com/halpe-hal/pizza-course-manager-app/internal/repository"
	"github.com/halpe-hal/pizza-course-manager-app/internal/repository/memstore"
	"github.com/halpe-hal/pizza-course-manager-app/internal/router"
	"github.com/halpe-hal/pizza-course-manager-app/internal/service"
)

var log = logger.New("server")

// stores is the storage backend selected by STORE_DRIVER.
type stores struct {
	courses      service.CourseStore
	reservations service.ReservationStore
	progress     service.ProgressStore
	db           *sql.DB // nil for the memory store
}

func openStores(ctx context.Context, cfg config.Config) (*stores, error) {
	if cfg.StoreDriver == config.DriverMemory {
		m, err := memstore.New(cfg.MemorySnapshot)
		if err != nil {
			return nil, err
		}
		log.Info("using in-memory store (snapshot=%q)", cfg.MemorySnapshot)
		return &stores{courses: m, reservations: m, progress: m}, nil
	}
	db, err := database.Open(database.DSN(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName), database.DefaultOptions)
	if err != nil {
		return nil, err
	}
	if err := repository.EnsureSchema(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	log.Info("connected to mysql %s:%s/%s", cfg.DBHost, cfg.DBPort, cfg.DBName)
	return &stores{
		courses:      repository.NewCourseRepo(db),
		reservations: repository.NewReservationRepo(db),
		progress:     repository.NewProgressRepo(db),
		db:           db,
	}, nil
}

func newLocker(cfg config.Config, rdb *redis.Client) service.Locker {
	if rdb == nil {
		log.Info("slot lock: in-process mutex")
		return service.NewMutexLocker()
	}
	log.Info("slot lock: redis lease (ttl=%s)", cfg.LockTTL)
	return service.NewRedisLocker(rdb, cfg.LockPrefix, cfg.LockTTL, cfg.LockWait)
}

func newEventSink(cfg config.Config) queue.Sink {
	if !cfg.Events.Enabled {
		return queue.Discard{}
	}
	log.Info("publishing course events to queue %q", cfg.Events.Queue)
	return queue.NewAsync(queue.NewPublisher(cfg.Events.URL, cfg.Events.Queue), cfg.Events.PublishTimeout)
}

func main() {
	cfg := config.Load() // Load environment config
	logger.SetLevel(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := openStores(ctx, cfg)
	if err != nil {
		log.Error("open store: %v", err)
		os.Exit(1)
	}
	if st.db != nil {
		defer st.db.Close()
	}

	rdb := config.NewRedisClient(config.LoadRedisConfig())
	if rdb == nil {
		log.Warn("redis unavailable: cache and rate limit disabled")
	} else {
		defer rdb.Close()
	}

	sys := clock.System{}
	events := newEventSink(cfg)
	sweeper := service.NewSweeper(st.reservations, events, sys)
	lifecycle := service.NewLifecycle(st.courses, st.reservations, st.progress, newLocker(cfg, rdb), events, sys)
	tracker := service.NewTracker(st.progress, events, sys)
	board := service.NewBoard(st.courses, st.reservations, st.progress, sweeper)
	courses := service.NewCourses(st.courses)

	sweeper.TrySweep(ctx)
	sweeper.Start(cfg.SweepInterval)
	defer sweeper.Stop()

	if cfg.Events.Enabled && cfg.Events.Consumer {
		consumer := queue.NewConsumer(cfg.Events.URL, cfg.Events.Queue, cfg.Events.ActivityLog)
		go func() {
			if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error("activity consumer stopped: %v", err)
			}
		}()
	}

	e := echo.New() // Create Echo instance
	e.HideBanner = true
	e.Logger.SetLevel(logger.ParseLevel(cfg.LogLevel))
	e.Use(echomw.Recover())
	e.Use(echomw.RequestIDWithConfig(echomw.RequestIDConfig{Generator: uuid.NewString}))
	e.Use(echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogValuesFunc: func(c echo.Context, v echomw.RequestLoggerValues) error {
			log.Info("%s %s %d %s id=%s", v.Method, v.URI, v.Status, v.Latency, v.RequestID)
			return nil
		},
	}))

	router.RegisterRoutes(e, router.Handlers{
		Courses:      handler.NewCourseHandler(courses),
		Reservations: handler.NewReservationHandler(lifecycle, board, sys),
		Board:        handler.NewBoardHandler(board, tracker, sys),
	},
		middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb),
		middleware.NewRedisCache(config.LoadCacheConfig(), rdb),
	)

	addr := ":" + cfg.Port
	go func() {
		log.Info("listening on %s (env=%s, store=%s)", addr, cfg.Env, cfg.StoreDriver)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server: %v", err)
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown: %v", err)
	}
	log.Info("stopped")
}
