// Command loader watches a directory for sales exports and loads them into the
// sales database.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/diewo77/go-sales-loader/internal/batch"
	"github.com/diewo77/go-sales-loader/internal/config"
	"github.com/diewo77/go-sales-loader/internal/db"
	"github.com/diewo77/go-sales-loader/internal/ingest"
	"github.com/diewo77/go-sales-loader/internal/logging"
	"github.com/diewo77/go-sales-loader/internal/metrics"
)

var (
	onceFlag      = flag.Bool("once", false, "Process the watch directory once and exit")
	seedOnlyFlag  = flag.Bool("seed-only", false, "Insert the fixed company, sale type and status rows and exit")
	bootstrapFlag = flag.Bool("bootstrap", false, "Create missing tables (development databases only) and exit")
)

func main() {
	flag.Parse()

	// Load environment variables from .env file
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	log, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	if err := run(cfg, log); err != nil {
		log.Error("Loader stopped", zap.Error(err))
		_ = log.Sync()
		os.Exit(1)
	}
}

func run(cfg *config.Config, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	conn, err := db.Connect(ctx, cfg.Database, log)
	if err != nil {
		return err
	}
	defer db.Close(conn)

	if *bootstrapFlag {
		if err := db.Bootstrap(conn); err != nil {
			return err
		}
		if err := db.Seed(conn, cfg.Loader); err != nil {
			return err
		}
		log.Info("Schema bootstrapped")
		return nil
	}
	if *seedOnlyFlag {
		if err := db.Seed(conn, cfg.Loader); err != nil {
			return err
		}
		log.Info("Seeding completed successfully")
		return nil
	}

	if err := db.CheckSchema(conn); err != nil {
		return fmt.Errorf("schema check: %w", err)
	}

	m := metrics.NewRegistry()
	in := ingest.NewIngestor(conn, cfg.Loader, ingest.ContractPrefixed, log, m)
	poller := batch.NewPoller(in, cfg.Watch, log, m)
	if err := poller.Prepare(); err != nil {
		return err
	}

	if *onceFlag {
		sum := poller.Tick(ctx)
		if sum.ListError != "" {
			return errors.New(sum.ListError)
		}
		return nil
	}

	if cfg.Status.Addr != "" {
		srv := &http.Server{
			Addr:         cfg.Status.Addr,
			Handler:      NewStatusServer(conn, poller, m, log),
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 10 * time.Second,
		}
		go func() {
			log.Info("Status server listening", zap.String("addr", cfg.Status.Addr))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("Status server error", zap.Error(err))
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				log.Warn("Status server shutdown", zap.Error(err))
			}
		}()
	}

	return poller.Run(ctx)
}
