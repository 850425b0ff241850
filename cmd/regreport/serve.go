package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/banshee-data/registration.report/internal/monitoring"
	"github.com/banshee-data/registration.report/internal/server"
	"github.com/banshee-data/registration.report/internal/store"
)

func (a *app) serveCmd() *cobra.Command {
	var listen string
	var admin bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve curves, echarts pages and rendered artifacts over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("listen") {
				a.cfg.Listen = &listen
			}

			db, err := store.OpenDB(a.cfg.GetDBPath())
			if err != nil {
				return err
			}
			defer db.Close()

			h, err := a.serveHandler(db, admin)
			if err != nil {
				return err
			}
			return runHTTP(cmd.Context(), a.cfg.GetListen(), h)
		},
	}
	cmd.Flags().StringVar(&listen, "listen", ":8090", "listen address")
	cmd.Flags().BoolVar(&admin, "admin", true, "mount /debug admin pages over the curve database")
	return cmd
}

// serveHandler wires the report routes over one database handle. Run history
// is always served; computed curves are recorded only when record_runs is set.
func (a *app) serveHandler(db *store.DB, admin bool) (http.Handler, error) {
	curves := store.NewCurveStore(db)
	rep := a.newReporter()
	if a.cfg.GetRecordRuns() {
		rep.Recorder = curves
	}

	srv := server.NewServer(rep, server.Options{
		Dark:       a.cfg.GetDark(),
		AssetsHost: a.cfg.GetAssetsHost(),
		Runs:       curves,
	})
	mux := srv.ServeMux()
	if admin {
		if err := db.AttachAdminRoutes(mux); err != nil {
			return nil, err
		}
	}
	return srv.LoggingMiddleware(mux), nil
}

// runHTTP serves h until ctx is cancelled, then shuts down gracefully.
func runHTTP(ctx context.Context, addr string, h http.Handler) error {
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		monitoring.Logf("listening on %s", addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	monitoring.Logf("shutting down HTTP server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		monitoring.Logf("HTTP server shutdown error: %v", err)
		if err := httpServer.Close(); err != nil {
			monitoring.Logf("HTTP server force close error: %v", err)
		}
	}
	return nil
}
