package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/koval01/telegram-gateway/internal/api"
	"github.com/koval01/telegram-gateway/internal/config"
	"github.com/koval01/telegram-gateway/internal/log"
	"github.com/koval01/telegram-gateway/internal/telegram"
	"github.com/koval01/telegram-gateway/internal/token"
)

// stopTimeout bounds the backend session teardown after the listener has
// drained.
const stopTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the gateway HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

// runServe wires configuration, the token codec, the backend session and
// the HTTP server together, then blocks until SIGINT/SIGTERM.
func runServe(parent context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := newLogger(cfg)
	logger.Info("configuration loaded",
		"addr", cfg.Addr,
		"bridge_url", cfg.BridgeURL,
		"allowed_hosts", cfg.AllowedHosts,
		"debug", cfg.Debug,
	)

	codec, err := token.New(cfg.CryptKey, token.DefaultTTL)
	if err != nil {
		return fmt.Errorf("initializing token codec: %w", err)
	}

	client, err := telegram.NewClient(telegram.Config{
		BaseURL: cfg.BridgeURL,
		Session: cfg.Session,
		APIID:   cfg.APIID,
		APIHash: cfg.APIHash,
		Logger:  logger.With("component", "telegram"),
	})
	if err != nil {
		return fmt.Errorf("creating backend client: %w", err)
	}

	ctx, cancel := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// The session must be live before the listener accepts a single
	// request; a dead session at startup is fatal, not degraded.
	if err := client.Start(ctx); err != nil {
		return fmt.Errorf("starting backend session: %w", err)
	}
	defer func() {
		stopCtx, stopCancel := context.WithTimeout(context.Background(), stopTimeout)
		defer stopCancel()
		if err := client.Stop(stopCtx); err != nil {
			logger.Warn("backend session teardown", "error", err)
		}
	}()

	server, err := api.NewServer(api.ServerConfig{
		Logger:       logger,
		Backend:      client,
		Codec:        codec,
		AllowedHosts: cfg.AllowedHosts,
		AppDomain:    cfg.AppDomain,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}

	return server.Run(ctx, cfg.Addr)
}

func newLogger(cfg *config.Config) log.Logger {
	level := slog.LevelInfo
	if cfg.Debug {
		level = slog.LevelDebug
	}
	return log.New(log.Config{Level: level, JSON: !cfg.Debug})
}
