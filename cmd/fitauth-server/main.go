package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"strings"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/fittude/fitauth"
	"github.com/fittude/fitauth/httpapi"
	"github.com/fittude/fitauth/internal/settings"
	"github.com/fittude/fitauth/internal/userdb"
	promexport "github.com/fittude/fitauth/metrics/export/prometheus"
	"github.com/fittude/fitauth/password"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/spf13/pflag"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

func main() {
	configPath := pflag.StringP("config", "c", "", "path to the YAML configuration file")
	pflag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "fitauth-server: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string) (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "recovered from panic: %v\n", r)
			debug.PrintStack()
			returnError = errors.New("panic recovered")
		}
	}()

	cfg, err := settings.Load(configPath, os.Getenv)
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.Log)
	if err != nil {
		return err
	}
	displayAppname(cfg.Server.AppName)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer rdb.Close()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping %s: %w", cfg.Redis.Addr, err)
	}

	var authenticator httpapi.Authenticator
	if cfg.Database.URL != "" {
		pool, err := pgxpool.New(ctx, cfg.Database.URL)
		if err != nil {
			return fmt.Errorf("pgxpool.New: %w", err)
		}
		defer pool.Close()
		if err := pool.Ping(ctx); err != nil {
			return fmt.Errorf("postgres ping: %w", err)
		}

		hasher, err := password.NewArgon2(password.DefaultConfig())
		if err != nil {
			return err
		}
		dir, err := userdb.New(pool, hasher)
		if err != nil {
			return err
		}
		authenticator = dir
	} else {
		logger.Warn().Msg("database.url not set, /login is disabled")
	}

	engine, err := fitauth.New().
		WithConfig(cfg.Auth).
		WithRedis(rdb).
		WithLogger(logger).
		WithAuditSink(fitauth.NewLogSink(logger.With().Str("stream", "audit").Logger())).
		Build()
	if err != nil {
		return fmt.Errorf("build engine: %w", err)
	}
	defer engine.Close()

	var metrics http.Handler
	if cfg.Auth.Metrics.Enabled {
		metrics = promexport.NewCollector(engine).Handler()
	}

	router := httpapi.NewRouter(httpapi.Options{
		Engine:            engine,
		Authenticator:     authenticator,
		Logger:            logger,
		CORSOrigins:       cfg.Server.CORSOrigins,
		TrustForwardedFor: cfg.Server.TrustForwardedFor,
		Metrics:           metrics,
	})

	server := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           otelhttp.NewHandler(router, cfg.Server.AppName),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errs := make(chan error, 1)
	go func() {
		errs <- listenAndServe(server, logger)
	}()

	select {
	case err := <-errs:
		return err
	case sig := <-stopSignal():
		logger.Info().Str("signal", sig.String()).Msg("shutting down")
	}
	return shutdown(server, cfg.Server.ShutdownTimeout)
}

func newLogger(cfg settings.Log) (zerolog.Logger, error) {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil {
		return zerolog.Nop(), fmt.Errorf("log level %q: %w", cfg.Level, err)
	}
	var logger zerolog.Logger
	if cfg.Pretty {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	} else {
		logger = zerolog.New(os.Stderr)
	}
	return logger.Level(level).With().Timestamp().Logger(), nil
}

func listenAndServe(server *http.Server, logger zerolog.Logger) error {
	logger.Info().Str("addr", server.Addr).Msg("server listening")
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server.ListenAndServe: %w", err)
	}
	return nil
}

func stopSignal() <-chan os.Signal {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	return stop
}

func shutdown(server *http.Server, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server.Shutdown: %w", err)
	}
	return nil
}

func displayAppname(appname string) {
	fig := figure.NewFigure(appname, "cybermedium", true)
	fig.Print()
	fmt.Println()
}
