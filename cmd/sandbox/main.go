package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/example/mototaxi/internal/config"
	"github.com/example/mototaxi/internal/geo"
	"github.com/example/mototaxi/internal/logging"
	"github.com/example/mototaxi/internal/sandbox"
)

func main() {
	cfg, err := config.LoadSandboxConfig()
	if err != nil {
		logging.NewLogger("error", "json").Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	logger := logging.NewLogger(cfg.LogLevel, "json")

	journal := sandbox.Journal(sandbox.NopJournal{})
	if cfg.PGDSN != "" {
		pg, err := sandbox.NewPostgresJournal(cfg.PGDSN)
		if err != nil {
			logger.Error("postgres journal unavailable", "error", err)
			os.Exit(1)
		}
		journal = pg
		logger.Info("journaling requests and trips to postgres")
	}

	var drivers, requests geo.Index
	if cfg.RedisAddr != "" {
		drivers = geo.NewRedisIndex(cfg.RedisAddr, cfg.RedisPassword, cfg.DriversGeoKey)
		requests = geo.NewRedisIndex(cfg.RedisAddr, cfg.RedisPassword, cfg.RequestsGeoKey)
		logger.Info("using redis geo indexes", "addr", cfg.RedisAddr)
	} else {
		drivers = geo.NewMemoryIndex()
		requests = geo.NewMemoryIndex()
	}

	core := sandbox.NewCore(cfg, logger, journal, drivers, requests)

	if len(cfg.KafkaBrokers) > 0 {
		producer := sandbox.NewLocationProducer(cfg.KafkaBrokers, cfg.KafkaTopic)
		defer producer.Close()
		core.SetLocationProducer(producer)
		logger.Info("publishing driver locations", "topic", cfg.KafkaTopic, "brokers", cfg.KafkaBrokers)
	}
	if payments := sandbox.NewPaymentClient("usd"); payments != nil {
		core.SetPayments(payments)
		logger.Info("card payments enabled")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sweepDone := make(chan struct{})
	go func() {
		defer close(sweepDone)
		core.RunExpirySweep(ctx.Done())
	}()

	srv := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      sandbox.NewServer(core, logger),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("sandbox listening", "addr", cfg.HTTPAddr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server stopped", "error", err)
			os.Exit(1)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", "error", err)
	}
	<-sweepDone
}
