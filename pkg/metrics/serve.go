package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/cookerz-backend/pkg/logger"
)

const shutdownTimeout = 5 * time.Second

// Serve exposes g at addr for workers that have no API surface of their own.
// The returned func stops the listener.
func Serve(ctx context.Context, addr string, g prometheus.Gatherer, logg *logger.Logger) (stop func()) {
	srv := &http.Server{
		Addr:              addr,
		Handler:           promhttp.HandlerFor(g, promhttp.HandlerOpts{}),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(logg.WithField(ctx, "addr", addr), "metrics server stopped", err)
		}
	}()
	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}
}
