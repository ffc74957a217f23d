package main // Entry point package

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv" // loads .env in development
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/finance-tracker/internal/config" // Internal config loader
	"github.com/iliyamo/finance-tracker/internal/database"
	"github.com/iliyamo/finance-tracker/internal/handler"
	"github.com/iliyamo/finance-tracker/internal/logging"
	"github.com/iliyamo/finance-tracker/internal/model"
	"github.com/iliyamo/finance-tracker/internal/repository"
	"github.com/iliyamo/finance-tracker/internal/router" // Internal router setup
	"github.com/iliyamo/finance-tracker/internal/service"
	"github.com/iliyamo/finance-tracker/internal/session"
	"github.com/iliyamo/finance-tracker/internal/storage"
	"github.com/iliyamo/finance-tracker/internal/view"
)

// pruneEvery is how often expired web sessions are removed.
const pruneEvery = 15 * time.Minute

func main() {
	_ = godotenv.Load() // a missing .env is fine; the environment wins
	cfg := config.Load()
	log := logging.New(cfg.Env, cfg.LogLevel, nil)

	if err := run(cfg, log); err != nil {
		log.WithError(err).Fatal("server stopped")
	}
}

func run(cfg config.Config, log *logrus.Logger) error {
	db, err := database.Open(cfg, log)
	if err != nil {
		return err
	}
	if err := database.Migrate(db); err != nil {
		return err
	}

	// Redis is optional: without it the API runs unthrottled and uncached.
	var rdb *redis.Client
	if c, err := config.NewRedisClient(); err != nil {
		log.WithError(err).Warn("redis unavailable; rate limiting and caching disabled")
	} else {
		rdb = c
		defer rdb.Close()
	}

	var pub service.Publisher = service.NopPublisher{}
	if cfg.AMQPEnabled {
		pub = service.NewAMQPPublisher(cfg.AMQPURL, log)
	}

	renderer, err := view.New(cfg.AppURL)
	if err != nil {
		return err
	}

	sessions := session.NewManager(repository.NewSessionRepo(db), time.Duration(cfg.SessionTTLMin)*time.Minute, cfg.SessionSecure, log)
	deps := handler.Deps{
		Cfg:        cfg,
		Log:        log,
		Users:      repository.NewUserRepo(db),
		Tokens:     repository.NewTokenRepo(db),
		Categories: repository.NewCategoryRepo(db),
		Expenses:   repository.NewEntryRepo[model.Expense](db),
		Incomes:    repository.NewEntryRepo[model.Income](db),
		Sessions:   sessions,
		Images:     storage.NewImageStore(cfg.UploadDir),
		Dashboard:  service.NewDashboard(db),
		Publisher:  pub,
	}
	e := router.New(router.Options{
		Deps:      deps,
		DB:        db,
		Redis:     rdb,
		RateLimit: config.LoadRateLimitConfig(),
		Cache:     config.LoadCacheConfig(),
		Renderer:  renderer,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go pruneSessions(ctx, sessions, log)

	addr := ":" + cfg.Port
	log.WithField("addr", addr).WithField("env", cfg.Env).Info("listening")
	errc := make(chan error, 1)
	go func() {
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}

// pruneSessions deletes expired sessions until ctx is cancelled.
func pruneSessions(ctx context.Context, m *session.Manager, log *logrus.Logger) {
	t := time.NewTicker(pruneEvery)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			n, err := m.Prune(ctx)
			if err != nil {
				log.WithError(err).Warn("prune sessions")
				continue
			}
			if n > 0 {
				log.WithField("count", n).Debug("expired sessions pruned")
			}
		}
	}
}
