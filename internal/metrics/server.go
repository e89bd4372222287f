package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	apperrors "github.com/agbru/perfmon/internal/errors"
	"github.com/agbru/perfmon/internal/logging"
)

const shutdownGrace = 5 * time.Second

// Handler builds the HTTP handler serving the exporter and the runtime
// collector under /metrics on a private registry, keeping the process's
// default registry untouched.
func Handler(exporter *Exporter) (http.Handler, error) {
	registry := prometheus.NewRegistry()
	for _, c := range []prometheus.Collector{exporter, NewRuntimeCollector()} {
		if err := registry.Register(c); err != nil {
			return nil, apperrors.InitError{Component: "metrics registry", Cause: err}
		}
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	return mux, nil
}

// Serve exposes the exporter on addr under /metrics until ctx is canceled,
// then drains in-flight scrapes. A clean shutdown returns nil.
func Serve(ctx context.Context, addr string, exporter *Exporter, log logging.Logger) error {
	handler, err := Handler(exporter)
	if err != nil {
		return err
	}

	server := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- server.ListenAndServe()
	}()
	log.Info("metrics endpoint listening", logging.String("addr", addr))

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Error("metrics server shutdown", err)
		}
		<-serveErr
		return nil
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return apperrors.WrapError(err, "metrics server on %s", addr)
	}
}
