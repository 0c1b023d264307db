// Command worker runs the account opening workflow and its activities.
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
	"go.temporal.io/sdk/worker"
	"golang.org/x/sync/errgroup"

	"wealth/internal/accounts"
	accountsclient "wealth/internal/accounts/client"
	"wealth/internal/accounts/memory"
	"wealth/internal/claimcheck"
	"wealth/internal/opening"
	"wealth/internal/platform/config"
	"wealth/internal/platform/health"
	"wealth/internal/platform/logger"
	"wealth/internal/platform/temporal"
	"wealth/internal/relay"
	"wealth/pkg/platform/circuit"
)

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
		log.Error("worker stopped with error", "error", err)
		os.Exit(1)
	}
	log.Info("worker stopped")
}

func run(ctx context.Context, cfg config.Config, log *slog.Logger) error {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	healthHandler := health.New(cfg.Server.Environment)

	var dc converter.DataConverter
	if cfg.ClaimCheck.Enabled {
		cc, err := temporal.NewClaimCheck(ctx, cfg, reg, log)
		if err != nil {
			return err
		}
		defer cc.Close() //nolint:errcheck // shutdown path
		for name, check := range cc.Checks {
			healthHandler.RegisterCheck(name, check)
		}
		dc = claimcheck.DataConverter(cc.Codec)
	}

	c, err := temporal.Dial(ctx, cfg.Temporal, log, dc)
	if err != nil {
		return err
	}
	defer c.Close()
	healthHandler.RegisterCheck("temporal", temporal.HealthCheck(c))

	settings, err := openingSettings(cfg)
	if err != nil {
		return err
	}
	clients, investments := accountsBackend(cfg, log)

	primary := worker.New(c, cfg.Temporal.TaskQueue, worker.Options{})
	opening.NewWorkflow(settings).Register(primary)
	accounts.NewActivities(clients, investments).Register(primary)

	rl := relay.New(c, relay.Routing{
		Address:              cfg.Temporal.Address,
		Namespace:            cfg.Temporal.Namespace,
		TaskQueue:            cfg.Temporal.TaskQueue,
		OpenAccountTaskQueue: cfg.Temporal.OpenAccountTaskQueue,
		CertConfigured:       cfg.Temporal.TLSEnabled(),
	}, relay.WithTimeout(cfg.Notify.Timeout), relay.WithLogger(log))

	workers := []worker.Worker{primary}
	if cfg.Temporal.OpenAccountTaskQueue == cfg.Temporal.TaskQueue {
		rl.Register(primary)
	} else {
		notify := worker.New(c, cfg.Temporal.OpenAccountTaskQueue, worker.Options{})
		rl.Register(notify)
		workers = append(workers, notify)
	}

	router := chi.NewRouter()
	healthHandler.Register(router)
	router.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: cfg.Server.WorkerAddr, Handler: router, ReadHeaderTimeout: 5 * time.Second}

	log.Info("starting worker",
		"task_queue", cfg.Temporal.TaskQueue,
		"open_account_task_queue", cfg.Temporal.OpenAccountTaskQueue,
		"claim_check", cfg.ClaimCheck.Enabled,
		"addr", cfg.Server.WorkerAddr,
	)

	g, ctx := errgroup.WithContext(ctx)
	for _, w := range workers {
		g.Go(func() error {
			if err := w.Start(); err != nil {
				return err
			}
			<-ctx.Done()
			w.Stop()
			return nil
		})
	}
	g.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func openingSettings(cfg config.Config) (opening.Settings, error) {
	policy, err := opening.ParseMissingParentPolicy(cfg.Opening.MissingParent)
	if err != nil {
		return opening.Settings{}, err
	}
	s := opening.DefaultSettings()
	s.TaskQueue = cfg.Temporal.TaskQueue
	s.OpenAccountTaskQueue = cfg.Temporal.OpenAccountTaskQueue
	s.MissingParent = policy
	if cfg.Opening.ActivityTimeout > 0 {
		s.ActivityTimeout = cfg.Opening.ActivityTimeout
	}
	if cfg.Notify.Timeout > 0 {
		s.NotifyTimeout = cfg.Notify.Timeout
	}
	if cfg.Notify.MaxAttempts > 0 {
		s.NotifyMaxAttempts = int32(cfg.Notify.MaxAttempts)
	}
	return s, nil
}

func accountsBackend(cfg config.Config, log *slog.Logger) (accounts.ClientService, accounts.InvestmentService) {
	if cfg.Accounts.APIURL == "" {
		log.Warn("ACCOUNTS_API_URL not set, using in-memory demo accounts")
		svc := memory.NewSeeded()
		return svc, svc
	}
	c := accountsclient.New(cfg.Accounts.APIURL, cfg.Accounts.APIKey, cfg.Accounts.Timeout,
		accountsclient.WithBreaker(circuit.New("accounts-api")))
	return c, c
}
