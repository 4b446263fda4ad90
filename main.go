package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/sync/errgroup"

	"github.com/ai-teammate/google-signin/internal/auth"
	"github.com/ai-teammate/google-signin/internal/config"
	"github.com/ai-teammate/google-signin/internal/database"
	"github.com/ai-teammate/google-signin/internal/handler"
	"github.com/ai-teammate/google-signin/internal/middleware"
	"github.com/ai-teammate/google-signin/internal/migration"
	"github.com/ai-teammate/google-signin/migrations"
)

const (
	outboundTimeout = 10 * time.Second
	shutdownTimeout = 10 * time.Second
)

func main() {
	log := newLogger(os.Getenv("LOG_LEVEL"))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, log); err != nil {
		log.WithError(err).Fatal("server exited")
	}
}

func run(ctx context.Context, log *logrus.Logger) error {
	boot := config.FromEnv()
	if !boot.Backend.Valid() {
		return errors.New("unknown " + config.EnvBackend + ": " + string(boot.Backend))
	}
	if !boot.Verifier.Valid() {
		return errors.New("unknown " + config.EnvVerifier + ": " + string(boot.Verifier))
	}
	log.WithFields(logrus.Fields{
		"backend":  boot.Backend,
		"verifier": boot.Verifier,
	}).Info("starting")

	outbound := &http.Client{
		Timeout:   outboundTimeout,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}

	verifier, err := newVerifier(ctx, boot.Verifier, outbound)
	if err != nil {
		return err
	}

	var db *sql.DB
	if boot.Backend == config.BackendPostgres {
		db, err = database.Open(ctx)
		if err != nil {
			return err
		}
		defer db.Close()
		if err := migration.RunMigrations(db, migrations.FS, log); err != nil {
			return err
		}
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := middleware.NewMetrics(registry)

	login := handler.NewLoginHandler(handler.LoginDeps{
		Config: func() config.Config {
			cfg := config.FromEnv()
			cfg.Backend = boot.Backend
			cfg.Verifier = boot.Verifier
			return cfg
		},
		Verifier: verifier,
		Open:     newOpener(boot.Backend, outbound, db),
		Observer: metrics,
		Log:      log,
	})

	var pinger handler.Pinger
	if db != nil {
		pinger = db
	}

	srv := &http.Server{
		Addr:              ":" + getenv("PORT", "8080"),
		Handler:           newRouter(login, handler.NewHealthHandler(boot.Backend, pinger, log), metrics, registry, log),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.WithField("addr", srv.Addr).Info("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// newRouter wires the public routes. The login handler answers every method
// itself so that non-POST requests get its JSON 405 rather than the router's.
func newRouter(login, health http.HandlerFunc, metrics *middleware.Metrics, registry *prometheus.Registry, log logrus.FieldLogger) *mux.Router {
	r := mux.NewRouter()
	r.Use(metrics.Instrument, middleware.Recover(log))

	r.Handle("/", login)
	r.Handle("/login", login)
	r.Handle("/health", health).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{})).Methods(http.MethodGet)

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"Not found."}` + "\n"))
	})
	return r
}

func newLogger(level string) *logrus.Logger {
	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})
	log.SetOutput(os.Stdout)
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	log.SetLevel(lvl)
	return log
}

// getenv returns the value of the environment variable named by key, or
// fallback when the variable is unset or empty.
func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func newVerifier(ctx context.Context, kind config.Verifier, client *http.Client) (auth.TokenVerifier, error) {
	if kind == config.VerifierOIDC {
		return auth.NewOIDCVerifier(oidc.ClientContext(ctx, client), auth.GoogleIssuer)
	}
	return auth.NewIDTokenVerifier(ctx, client)
}
