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

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/pragma-notes/pragma/internal/buildinfo"
	"github.com/pragma-notes/pragma/internal/config"
	"github.com/pragma-notes/pragma/internal/httpapi"
	"github.com/pragma-notes/pragma/internal/repo"
	"github.com/pragma-notes/pragma/internal/store"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the sync server",
	Long: `Start the HTTP sync server. The server seeds an empty database with an
example notebook, serves the delta-sync API under /api, and broadcasts
committed changes over the /api/events WebSocket.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func newLogger(cfg *config.Config) zerolog.Logger {
	if cfg.LogFile != "" {
		writer := &lumberjack.Logger{
			Filename:   cfg.LogFile,
			MaxSize:    50, // megabytes
			MaxBackups: 5,
			MaxAge:     30, // days
			Compress:   true,
		}
		return zerolog.New(writer).With().Timestamp().Logger()
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		With().Timestamp().Logger()
}

func runServe() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := newLogger(cfg)
	logger.Info().
		Str("version", buildinfo.Version).
		Str("addr", cfg.Addr()).
		Str("database", cfg.DatabaseURL).
		Msg("starting pragma server")

	token := cfg.AuthToken
	if token == "" {
		token, err = config.RandomToken()
		if err != nil {
			return fmt.Errorf("generate auth token: %w", err)
		}
		logger.Warn().
			Str("token", token).
			Msg("AUTH_TOKEN not set, generated a random token for this run")
	}

	db, err := store.Open(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := db.InitSchema(ctx); err != nil {
		return fmt.Errorf("initialize schema: %w", err)
	}
	if err := db.SeedIfEmpty(ctx); err != nil {
		return fmt.Errorf("seed database: %w", err)
	}

	events := httpapi.NewBroadcaster(logger)
	defer events.Close()

	r := repo.New(db, repo.Options{Listener: events})
	defer r.Close()

	api := httpapi.NewServer(r, token, events, logger)

	server := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      api.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", cfg.Addr()).Msg("listening")
		serveErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
	case <-ctx.Done():
		logger.Info().Msg("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("shutdown did not finish cleanly")
		}
	}

	logger.Info().Msg("stopped")
	return nil
}
