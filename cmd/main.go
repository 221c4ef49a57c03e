// cmd/main.go is the application entry point.
// It wires together all layers and starts the HTTP server.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"github.com/tigertix/tigertix/internal/config"
	"github.com/tigertix/tigertix/internal/database"
	"github.com/tigertix/tigertix/internal/handler"
	"github.com/tigertix/tigertix/internal/ledger"
	"github.com/tigertix/tigertix/internal/logger"
	"github.com/tigertix/tigertix/internal/metrics"
	"github.com/tigertix/tigertix/internal/notify"
	"github.com/tigertix/tigertix/internal/repository"
	"github.com/tigertix/tigertix/internal/serializer"
	"github.com/tigertix/tigertix/internal/service"
)

type options struct {
	seed bool
}

func parseFlags(args []string) (options, error) {
	var opts options
	flagSet := pflag.NewFlagSet("tigertix", pflag.ContinueOnError)
	flagSet.BoolVar(&opts.seed, "seed", false, "insert the demo events when the events table is empty")
	if err := flagSet.Parse(args); err != nil {
		return opts, err
	}
	return opts, nil
}

func main() {
	opts, err := parseFlags(os.Args[1:])
	if errors.Is(err, pflag.ErrHelp) {
		return
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, opts, log); err != nil {
		log.WithError(err).Fatal("tigertix stopped")
	}
	log.Info("server stopped")
}

func run(ctx context.Context, cfg *config.Config, opts options, log *logrus.Logger) error {
	// ── 1. Storage ────────────────────────────────────────────────────────
	store, closeStore, err := openStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeStore()

	if opts.seed {
		n, err := repository.Seed(ctx, store)
		if err != nil {
			return fmt.Errorf("seed: %w", err)
		}
		log.WithField("inserted", n).Info("demo events seeded")
	}

	// ── 2. Notifications ──────────────────────────────────────────────────
	var publisher notify.Publisher = notify.Nop{}
	if cfg.RedisAddr != "" {
		client, err := notify.NewRedisClient(cfg.RedisAddr)
		if err != nil {
			return err
		}
		defer client.Close()
		publisher = notify.NewStreamPublisher(client, cfg.PurchaseStream)
		log.WithField("stream", cfg.PurchaseStream).Info("publishing purchases to redis")
	}

	// ── 3. Wire up layers ────────────────────────────────────────────────
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	queue := serializer.New(serializer.WithObserver(m))
	eventSvc := service.NewEventService(queue, ledger.New(store), publisher, m)
	router := handler.NewRouter(handler.NewEventHandler(eventSvc), m.Handler(), log)

	// ── 4. Serve until the context is cancelled ───────────────────────────
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.WithField("port", cfg.Port).WithField("store", cfg.Store).Info("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		log.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		return nil
	})
	return g.Wait()
}

func openStore(ctx context.Context, cfg *config.Config, log *logrus.Logger) (repository.EventStore, func(), error) {
	switch cfg.Store {
	case config.StorePostgres:
		pool, err := database.NewPostgresPool(ctx, cfg.DatabaseURL, log)
		if err != nil {
			return nil, nil, fmt.Errorf("database: %w", err)
		}
		log.Info("connected to PostgreSQL")
		return repository.NewPostgresEventStore(pool), pool.Close, nil
	default:
		pool, err := database.OpenSQLite(database.SQLiteConfig{
			Path:     cfg.SQLitePath,
			PoolSize: cfg.SQLitePoolSize,
			Logger:   log,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("database: %w", err)
		}
		log.WithField("path", cfg.SQLitePath).Info("opened SQLite database")
		return repository.NewSQLiteEventStore(pool), func() {
			if err := pool.Close(); err != nil {
				log.WithError(err).Warn("closing SQLite pool")
			}
		}, nil
	}
}
