package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"time"

	"github.com/Sternrassler/harvest-client/pkg/metrics"
	"github.com/Sternrassler/harvest-client/pkg/refresh"
)

func (a *app) runRefresh(ctx context.Context, args []string) int {
	fs := flag.NewFlagSet("refresh", flag.ContinueOnError)
	fs.SetOutput(a.stderr)
	interval := fs.Duration("interval", 0, "repeat the refresh at this interval until interrupted (0 runs once)")
	metricsAddr := fs.String("metrics-addr", "", "serve /metrics and /health on this address while running")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	if err := a.connect(""); err != nil {
		return a.fail(err, "jobs")
	}
	defer a.close()

	store, closeStore, err := a.openStore(ctx, true)
	if err != nil {
		fmt.Fprintf(a.stderr, "Error: %v\n", err)
		return 1
	}
	defer closeStore()

	r := a.newRefresher(store)

	if *metricsAddr != "" {
		srv := &http.Server{
			Addr:              *metricsAddr,
			Handler:           newOpsMux(),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				a.logger.Error().Err(err).Str("addr", *metricsAddr).Msg("Metrics server failed")
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			srv.Shutdown(shutdownCtx)
		}()
		a.logger.Info().Str("addr", *metricsAddr).Msg("Serving metrics")
	}

	code := a.refreshOnce(ctx, r)
	if *interval <= 0 {
		return code
	}

	ticker := time.NewTicker(*interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return 0
		case <-ticker.C:
			a.refreshOnce(ctx, r)
		}
	}
}

func (a *app) refreshOnce(ctx context.Context, r *refresh.Refresher) int {
	result, err := r.RefreshAllCaches(ctx)
	if err != nil {
		return a.fail(err, "jobs")
	}
	fmt.Fprintln(a.stdout, result.Summary())
	return 0
}

func newOpsMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", healthHandler)
	mux.Handle("/metrics", metrics.Handler())
	return mux
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, "OK")
}
