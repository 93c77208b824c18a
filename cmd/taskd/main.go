package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"time"

	gfshutdown "github.com/gelmium/graceful-shutdown"

	"taskd/internal/auth"
	"taskd/internal/config"
	"taskd/internal/server"
	"taskd/internal/storage/sqlite"
	"taskd/internal/tasks"
)

const shutdownTimeout = 5 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	addrFlag := flag.String("addr", cfg.Addr, "HTTP listen address")
	dbFlag := flag.String("db", cfg.DBPath, "Path to sqlite database file")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()}))

	store, err := sqlite.Open(*dbFlag, logger)
	if err != nil {
		logger.Error("unable to open database", slog.String("error", err.Error()))
		os.Exit(1)
	}

	tokens := auth.NewTokenService(store)
	credentials := auth.NewCredentialStore(store, auth.NewPasswordHasher(cfg.BcryptCost))
	authService := auth.NewService(credentials, tokens, cfg.TokenTTL, logger)
	taskEngine := tasks.NewEngine(store, logger)

	srv := server.New(authService, taskEngine, store, logger)

	httpServer := &http.Server{
		Addr:              *addrFlag,
		Handler:           srv.Engine(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("starting server", slog.String("addr", httpServer.Addr), slog.String("db", *dbFlag))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server stopped unexpectedly", slog.String("error", err.Error()))
		}
	}()

	wait := gfshutdown.GracefulShutdown(
		context.Background(),
		shutdownTimeout,
		map[string]gfshutdown.Operation{
			"http-server": func(ctx context.Context) error {
				if err := httpServer.Shutdown(ctx); err != nil {
					return err
				}
				return store.Close()
			},
		},
	)

	exitCode := <-wait
	logger.Info("server stopped", slog.Int("exit_code", exitCode))
	os.Exit(exitCode)
}
