package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/vbonduro/areawizard/internal/web"
	"github.com/vbonduro/areawizard/internal/web/templates"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the wizard web server",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides LISTEN_ADDR)")
}

func runServe(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	addr := a.cfg.ListenAddr
	if serveAddr != "" {
		addr = serveAddr
	}

	sessions := web.NewSessions(a.kv, web.SessionOptions{
		IdleTTL:     a.cfg.SessionIdleTTL,
		MaxSessions: a.cfg.MaxSessions,
		OnExpire:    a.wizard.Restart,
	}, a.logger)
	server := web.NewServer(a.wizard, sessions, templates.FS, a.logger)
	httpServer := server.Handler(addr)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go sessions.Run(ctx, sweepInterval(a.cfg.SessionIdleTTL))

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("starting server", "addr", addr)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("server error", "error", err)
			return err
		}
		return nil
	case <-ctx.Done():
	}

	a.logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("server shutdown failed", "error", err)
		return err
	}
	return nil
}

// sweepInterval checks for idle sessions a few times per TTL, at most once a
// minute.
func sweepInterval(ttl time.Duration) time.Duration {
	return min(max(ttl/4, time.Second), time.Minute)
}
