package commands

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"signet/internal/services/rotation"
)

const shutdownTimeout = 10 * time.Second

func daemonCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "daemon",
		Short: "Rotate the signed pre-key on a schedule and serve metrics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requirePassphrase(); err != nil {
				return err
			}
			log := wire.Log.WithField("component", "daemon")

			reg := prometheus.NewRegistry()
			rotator := wire.NewRotator(passphrase, reg)
			if _, err := rotator.EnsureActive(); err != nil {
				return err
			}

			sched, err := rotation.NewScheduler(rotator, wire.Config.Rotation.Interval)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			var srv *http.Server
			errCh := make(chan error, 1)
			if addr := wire.Config.Metrics.Address; addr != "" {
				mux := http.NewServeMux()
				mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
				srv = &http.Server{
					Addr:              addr,
					Handler:           mux,
					ReadHeaderTimeout: 5 * time.Second,
				}
				go func() {
					log.WithField("addr", addr).Info("Serving metrics")
					if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
						errCh <- err
					}
				}()
			}

			sched.Start()
			log.WithField("interval", wire.Config.Rotation.Interval.String()).Info("Rotation scheduled")

			var runErr error
			select {
			case <-ctx.Done():
				log.Info("Shutting down")
			case runErr = <-errCh:
				log.WithError(runErr).Error("Metrics server failed")
			}

			<-sched.Stop().Done()
			if srv != nil {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
				defer cancel()
				if err := srv.Shutdown(shutdownCtx); err != nil && runErr == nil {
					runErr = err
				}
			}
			return runErr
		},
	}
}
