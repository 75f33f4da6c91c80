package cmd

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/joehsn/formify/app"
	"github.com/joehsn/formify/config"
	"github.com/joehsn/formify/database"
	"github.com/joehsn/formify/log"
	"github.com/joehsn/formify/routes"
)

func (c *cli) serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API (default command)",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.cfg.Validate(); err != nil {
				return err
			}

			db, err := database.Open(c.cfg)
			if err != nil {
				return err
			}
			defer db.Close()

			handler := routes.Wire(app.New(db, c.cfg))

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			err = runServer(ctx, c.cfg, handler)
			if !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
	}
}

func runServer(ctx context.Context, cfg config.Config, handler http.Handler) error {
	srv := &http.Server{
		Addr:         cfg.Addr,
		Handler:      handler,
		IdleTimeout:  time.Minute,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		<-ctx.Done()
		log.Info("Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Errorf("server.shutdown: %s", err)
		}
	}()

	log.Info("Listening on " + cfg.URL())
	return srv.ListenAndServe()
}
