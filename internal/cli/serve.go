package cli

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/trackrecord/internal/api"
	"github.com/ppiankov/trackrecord/internal/scheduler"
)

// serveCmd runs the HTTP API and the periodic dispatch scheduler until
// interrupted.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the API server and tracking scheduler",
	Long: `Start the long-running service: the HTTP API accepting posts and
queries, plus the scheduler sweeping open opinions for verification on
the configured interval.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		a, err := newApp(cfg)
		if err != nil {
			return err
		}
		defer a.close()

		pipeline, err := a.pipeline()
		if err != nil {
			return err
		}

		handler := api.NewHandler(a.store, pipeline, a.dispatcher, a.log)
		srv := api.NewHTTPServer(api.NewServer(handler, cfg.API.AccessKey), cfg.API.Addr)
		sched := scheduler.New(a.dispatcher, cfg.Track.SweepInterval, a.log)

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		go sched.Run(ctx)

		errCh := make(chan error, 1)
		go func() {
			a.log.Info("api listening", "addr", cfg.API.Addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
		}()

		select {
		case err := <-errCh:
			return err
		case <-ctx.Done():
		}

		a.log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
