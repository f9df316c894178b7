package cmd

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/illarion/seedvault/internal/bridge"
	"github.com/illarion/seedvault/internal/config"
	"github.com/illarion/seedvault/internal/metrics"
	"github.com/rs/zerolog/log"
)

// Serve runs the JSON line bridge on stdin/stdout until stdin closes or ctx
// is canceled. When metricsAddr is set, Prometheus metrics are served there.
func Serve(ctx context.Context, cfg *config.Config, metricsAddr string) {
	m := metrics.New()
	e, err := OpenEnv(cfg, m)
	if err != nil {
		HandleError(err)
	}
	defer e.Close()

	if metricsAddr != "" {
		srv := startMetricsServer(metricsAddr, m)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			srv.Shutdown(shutdownCtx)
		}()
	}

	log.Info().Str("database", cfg.Database).Msg("Bridge listening on stdin")
	s := bridge.New(e.Manager, e.Store, log.Logger)
	err = s.Serve(ctx, os.Stdin, os.Stdout)
	e.Manager.ClearSession()
	e.Store.ClearBiometricSession()
	if err != nil && !errors.Is(err, context.Canceled) {
		HandleError(err)
	}
	log.Info().Msg("Bridge stopped")
}

func startMetricsServer(addr string, m *metrics.Metrics) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		log.Info().Str("addr", addr).Msg("Starting metrics server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("Metrics server error")
		}
	}()
	return srv
}
