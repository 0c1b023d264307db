// Command server exposes the account opening HTTP API, the remote payload codec
// endpoint and health/metrics probes.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.temporal.io/sdk/converter"
	"golang.org/x/sync/errgroup"

	"wealth/internal/claimcheck"
	jwttoken "wealth/internal/jwt_token"
	"wealth/internal/opening/handler"
	"wealth/internal/opening/service"
	"wealth/internal/platform/config"
	"wealth/internal/platform/health"
	"wealth/internal/platform/logger"
	"wealth/internal/platform/metrics"
	"wealth/internal/platform/temporal"
	"wealth/pkg/platform/middleware/request"
)

const maxBodyBytes = 8 << 20

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}
	log := logger.New(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("server stopped with error", "error", err)
		os.Exit(1)
	}
	log.Info("server stopped")
}

func run(ctx context.Context, cfg config.Config, log *slog.Logger) error {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	healthHandler := health.New(cfg.Server.Environment)

	var (
		dc    converter.DataConverter
		codec *claimcheck.Codec
	)
	if cfg.ClaimCheck.Enabled {
		cc, err := temporal.NewClaimCheck(ctx, cfg, reg, log)
		if err != nil {
			return err
		}
		defer cc.Close() //nolint:errcheck // shutdown path
		for name, check := range cc.Checks {
			healthHandler.RegisterCheck(name, check)
		}
		codec = cc.Codec
		dc = claimcheck.DataConverter(codec)
	}

	c, err := temporal.Dial(ctx, cfg.Temporal, log, dc)
	if err != nil {
		return err
	}
	defer c.Close()
	healthHandler.RegisterCheck("temporal", temporal.HealthCheck(c))

	svc := service.New(c, cfg.Temporal.TaskQueue,
		service.WithLogger(log),
		service.WithMetrics(metrics.New(reg)),
	)

	var opts []handler.HandlerOption
	if cfg.Server.JWTSigningKey != "" {
		tokens := jwttoken.NewJWTService(cfg.Server.JWTSigningKey, jwttoken.DefaultIssuer, jwttoken.DefaultAudience, 0)
		opts = append(opts, handler.WithValidator(jwttoken.NewJWTServiceAdapter(tokens)))
	} else {
		log.Warn("JWT_SIGNING_KEY not set, approval endpoints are unauthenticated")
	}

	router := newRouter(log, reg, healthHandler, handler.New(svc, log, opts...), codec)
	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	log.Info("starting http server",
		"addr", cfg.Server.Addr,
		"task_queue", cfg.Temporal.TaskQueue,
		"claim_check", cfg.ClaimCheck.Enabled,
	)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		log.Info("shutting down server gracefully")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func newRouter(log *slog.Logger, reg *prometheus.Registry, healthHandler *health.Handler, openings *handler.Handler, codec *claimcheck.Codec) http.Handler {
	r := chi.NewRouter()
	r.Use(request.RequestID)
	r.Use(request.Recovery(log))
	r.Use(request.Logger(log))
	r.Use(request.Instrument(request.NewMetrics(reg), routePattern))
	r.Use(request.BodyLimit(maxBodyBytes))

	healthHandler.Register(r)
	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	r.Group(func(r chi.Router) {
		r.Use(request.ContentTypeJSON)
		openings.Register(r)
		if codec != nil {
			r.Handle("/codec/*", claimcheck.NewHTTPHandler(codec))
		}
	})
	return r
}

func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if p := rctx.RoutePattern(); p != "" {
			return p
		}
	}
	return "unmatched"
}
