package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/MrEthical07/idrelay"
	"github.com/MrEthical07/idrelay/httpapi"
	promexport "github.com/MrEthical07/idrelay/metrics/export/prometheus"
)

const shutdownTimeout = 10 * time.Second

// auditToLog as audit.path sends audit events through the process logger.
const auditToLog = "log"

func newServeCmd(a *app) *cobra.Command {
	var trustProxy bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the relay HTTP service",
		Example: `  IDRELAY_JWT_SECRET_KEY=... IDRELAY_GOOGLE_CLIENT_ID=... idrelay serve --addr :8080
  idrelay serve -c idrelay.yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return a.serve(ctx, trustProxy)
		},
	}

	cmd.Flags().String("addr", ":8080", "address to listen on")
	_ = a.v.BindPFlag("addr", cmd.Flags().Lookup("addr"))
	cmd.Flags().BoolVar(&trustProxy, "trust-proxy", false, "take the client IP from X-Forwarded-For / X-Real-IP")
	return cmd
}

func (a *app) serve(ctx context.Context, trustProxy bool) error {
	log := a.logger
	s := a.settings

	handler, cleanup, err := a.buildHandler(ctx, trustProxy)
	if err != nil {
		return err
	}
	defer cleanup()

	server := &http.Server{
		Addr:              s.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", s.Addr).Str("provider", s.Provider).Msg("starting server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server crashed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	log.Info().Msg("server exited")
	return nil
}

// buildHandler assembles the relay and its HTTP surface from a.settings. The
// returned cleanup closes the relay, the audit file and the Redis client.
func (a *app) buildHandler(ctx context.Context, trustProxy bool) (http.Handler, func(), error) {
	log := a.logger
	s := a.settings

	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}
	fail := func(err error) (http.Handler, func(), error) {
		cleanup()
		return nil, func() {}, err
	}

	cfg, err := s.RelayConfig()
	if err != nil {
		return fail(err)
	}

	log.Info().Str("provider", s.Provider).Msg("initializing provider")
	provider, err := buildProvider(ctx, s)
	if err != nil {
		return fail(err)
	}

	b := idrelay.New().
		WithConfig(cfg).
		WithProvider(provider).
		WithLogger(log).
		WithClock(a.now)

	if s.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     s.Redis.Addr,
			Password: s.Redis.Password,
			DB:       s.Redis.DB,
		})
		closers = append(closers, func() { _ = client.Close() })

		pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		if err := client.Ping(pingCtx).Err(); err != nil {
			log.Warn().Err(err).Str("addr", s.Redis.Addr).Msg("redis ping failed")
		}
		cancel()
		b = b.WithRedis(client)
	}

	switch {
	case !s.Audit.Enabled:
	case s.Audit.Path == auditToLog:
		b = b.WithAuditSink(idrelay.NewLoggerSink(log.With().Str("component", "audit").Logger()))
	default:
		w, closeAudit, err := openAuditOutput(s.Audit.Path)
		if err != nil {
			return fail(err)
		}
		closers = append(closers, closeAudit)
		b = b.WithAuditSink(idrelay.NewJSONWriterSink(w))
	}

	relay, err := b.Build()
	if err != nil {
		return fail(err)
	}
	// runs before the audit output is closed
	closers = append(closers, relay.Close)

	opts := httpapi.Options{
		AllowedOrigins:    s.CORS.AllowedOrigins,
		TrustProxyHeaders: trustProxy,
		Logger:            log,
	}
	if s.Metrics.Enabled {
		reg, err := promexport.NewRegistry(relay)
		if err != nil {
			return fail(fmt.Errorf("metrics registry: %w", err))
		}
		opts.Metrics = promexport.Handler(reg)
	}

	return httpapi.NewServer(relay, opts).Routes(), cleanup, nil
}

func openAuditOutput(path string) (io.Writer, func(), error) {
	if path == "" || path == "-" {
		return os.Stdout, func() {}, nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: open audit log %s: %w", idrelay.ErrConfiguration, path, err)
	}
	return f, func() { _ = f.Close() }, nil
}
