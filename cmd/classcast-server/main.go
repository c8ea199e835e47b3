package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/BioHazard786/classcast/internal/audit"
	"github.com/BioHazard786/classcast/internal/conference"
	"github.com/BioHazard786/classcast/internal/config"
	"github.com/BioHazard786/classcast/internal/logging"
	"github.com/BioHazard786/classcast/internal/metrics"
	"github.com/BioHazard786/classcast/internal/server"
	"github.com/BioHazard786/classcast/internal/signaling"
	"github.com/BioHazard786/classcast/internal/version"
)

const (
	exitRuntime = 1
	exitConfig  = 2
)

type configError struct{ err error }

func (e configError) Error() string { return e.err.Error() }
func (e configError) Unwrap() error { return e.err }

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		var cfgErr configError
		if errors.As(err, &cfgErr) {
			os.Exit(exitConfig)
		}
		os.Exit(exitRuntime)
	}
}

func run() error {
	// 1. Configuration & Logger
	cfg, err := config.Load()
	if err != nil {
		return configError{err}
	}
	log, err := logging.New(os.Stdout, cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return configError{err}
	}
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New()

	// 2. Audit sinks
	sink, err := openAudit(ctx, cfg)
	if err != nil {
		return err
	}
	dispatcher := audit.NewDispatcher(sink, cfg.AuditBuffer, log, func(err error) {
		m.AuditFailures.Inc()
	})
	go dispatcher.Run()
	defer func() {
		if err := dispatcher.Close(); err != nil {
			log.Warn("closing audit sink", "err", err)
		}
	}()

	// 3. Create the Hub and run it until the signal arrives
	hub := signaling.NewHub(conference.NewRegistry(), signaling.Options{
		SweepInterval:   cfg.SweepInterval,
		IdleGrace:       cfg.IdleGrace,
		ResponseTimeout: cfg.ResponseTimeout,
		SendBuffer:      cfg.SendBuffer,
	}, log, dispatcher, m)
	hubDone := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(hubDone)
	}()

	// 4. HTTP server
	srv := &http.Server{
		Addr: cfg.Addr(),
		Handler: server.New(hub, m, log, server.Options{
			StaticDir:      cfg.StaticDir,
			AllowedOrigins: cfg.AllowedOrigins(),
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		log.Info("starting classcast server", "addr", cfg.Addr(), "version", version.Version)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("http server: %w", err)
		}
	}()

	// 5. Wait for stop or error
	var runErr error
	select {
	case <-ctx.Done():
		log.Info("shutting down gracefully")
	case runErr = <-errChan:
		stop()
	}

	// The hub broadcasts conference-ended before the listener drains.
	<-hubDone

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn("http shutdown", "err", err)
	}

	log.Info("server stopped")
	return runErr
}

func openAudit(ctx context.Context, cfg config.Config) (audit.Sink, error) {
	var sinks audit.Multi
	if cfg.AuditFile != "" {
		f, err := audit.NewFileSink(cfg.AuditFile)
		if err != nil {
			return nil, fmt.Errorf("open audit file: %w", err)
		}
		sinks = append(sinks, f)
	}
	if cfg.AuditRedisAddr != "" {
		r, err := audit.NewRedisSink(ctx, cfg.AuditRedisAddr, cfg.AuditRedisChannel)
		if err != nil {
			sinks.Close()
			return nil, fmt.Errorf("connect audit redis: %w", err)
		}
		sinks = append(sinks, r)
	}
	if len(sinks) == 0 {
		return audit.Nop, nil
	}
	return sinks, nil
}
