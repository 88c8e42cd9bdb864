// Command bftrelayd serves a bftrelay instance over HTTP.
//
// Payloads of executed requests are POSTed to the URL configured for their
// target. State is held in memory unless a postgres store is configured.
package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"

	"github.com/xraph/bftrelay"
	"github.com/xraph/bftrelay/event"
	"github.com/xraph/bftrelay/extension"
	"github.com/xraph/bftrelay/forward"
	"github.com/xraph/bftrelay/internal/config"
	"github.com/xraph/bftrelay/internal/logger"
	"github.com/xraph/bftrelay/observability"
	relaystore "github.com/xraph/bftrelay/store"
	"github.com/xraph/bftrelay/store/bunstore"
	"github.com/xraph/bftrelay/store/memory"
)

func main() {
	configPath := flag.String("config", "bftrelayd.yaml", "path to the YAML configuration file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "bftrelayd: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	log, closer, err := logger.New(cfg.Logging)
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	defer closer.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	st, err := openStore(cfg.Store)
	if err != nil {
		return fmt.Errorf("store: %w", err)
	}

	fwd := forward.NewHTTPForwarder(cfg.Relay.ForwardTimeout, cfg.TargetURLs())

	ext := extension.New(
		extension.WithConfig(cfg.Relay),
		extension.WithStore(st),
		extension.WithForwarder(fwd),
		extension.WithLogger(log),
		extension.WithRelayOption(bftrelay.WithMetrics(observability.NewMetrics(reg))),
	)
	if err := ext.Init(ctx); err != nil {
		return err
	}
	defer ext.Stop()

	unsubExec := ext.Relay().SubscribeKind(string(event.KindRelayExecuted), func(ctx context.Context, evt *event.Event) {
		log.InfoContext(ctx, "request executed",
			"target", evt.Target.Hex(),
			"fingerprint", evt.Fingerprint.Hex(),
		)
	})
	defer unsubExec()

	unsubMembers := ext.Relay().SubscribeKind("relayer.*", func(ctx context.Context, evt *event.Event) {
		log.WarnContext(ctx, "relayer set changed",
			"kind", evt.Kind,
			"relayer", evt.Relayer.Hex(),
		)
	})
	defer unsubMembers()

	apiHandler, err := ext.Handler()
	if err != nil {
		return err
	}

	mux := http.NewServeMux()
	mux.Handle("/", apiHandler)
	if cfg.Metrics.Enabled {
		mux.Handle(cfg.Metrics.Path, promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	}
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if err := ext.Health(r.Context()); err != nil {
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	})

	srv := &http.Server{
		Addr:    cfg.Listen,
		Handler: mux,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("bftrelayd listening",
			"addr", cfg.Listen,
			"base_path", cfg.Relay.BasePath,
			"targets", len(cfg.Targets),
			"store", cfg.Store.Driver,
		)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown failed", "error", err)
		return err
	}
	return nil
}

func openStore(cfg config.StoreConfig) (relaystore.Store, error) {
	switch cfg.Driver {
	case config.StorePostgres:
		sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(cfg.DSN)))
		return bunstore.New(bun.NewDB(sqldb, pgdialect.New())), nil
	case config.StoreMemory, "":
		return memory.New(), nil
	default:
		return nil, fmt.Errorf("unknown driver %q", cfg.Driver)
	}
}
