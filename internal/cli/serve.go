package cli

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/eshaffer321/itemize-reconcile/internal/api"
)

// ServeFlags holds the CLI flags for the serve command.
type ServeFlags struct {
	Port int
}

// ParseServeFlags parses command line flags for the serve command.
func ParseServeFlags(args []string, output io.Writer, defaultPort int) (*ServeFlags, error) {
	flags := &ServeFlags{}
	fs := newFlagSet("serve", output)
	fs.IntVar(&flags.Port, "port", defaultPort, "Port to listen on")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	return flags, nil
}

// RunServe runs the review API until ctx is cancelled.
func RunServe(ctx context.Context, app *App, args []string, out io.Writer) error {
	flags, err := ParseServeFlags(args, out, app.Config.API.Port)
	if err != nil {
		return err
	}

	apiCfg := api.Config{
		Port:           flags.Port,
		AllowedOrigins: app.Config.API.AllowedOrigins,
	}
	logger := app.loggerFor("api")
	server := api.NewServer(apiCfg, app.Store, app.Review, app.Engine, logger)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		logger.Info("received shutdown signal")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", slog.Any("error", err))
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	logger.Info("server stopped")
	return nil
}
