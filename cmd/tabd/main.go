// Command tabd serves the table order ledger over HTTP.
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

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/xraph/tab"
	"github.com/xraph/tab/api"
	audithook "github.com/xraph/tab/audit_hook"
	"github.com/xraph/tab/broadcast"
	"github.com/xraph/tab/observability"
	"github.com/xraph/tab/store/memory"
)

func main() {
	if err := run(); err != nil {
		slog.Error("tabd: exiting", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.level()}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	opts := []tab.Option{
		tab.WithLogger(logger),
		tab.WithCurrency(cfg.Currency),
		tab.WithFlushInterval(cfg.FlushInterval),
		tab.WithOutboxSize(cfg.OutboxSize),
		tab.WithPlugin(observability.NewMetricsExtension(observability.NewPrometheusFactory(reg))),
		tab.WithPlugin(audithook.New(audithook.RecorderFunc(func(ctx context.Context, e *audithook.AuditEvent) error {
			logger.InfoContext(ctx, "audit",
				"action", e.Action,
				"resource", e.Resource,
				"resource_id", e.ResourceID,
				"outcome", e.Outcome,
			)
			return nil
		}), audithook.WithLogger(logger))),
	}

	if cfg.AMQPURL != "" {
		pub, err := broadcast.Dial(cfg.AMQPURL,
			broadcast.WithExchange(cfg.AMQPExchange),
			broadcast.WithLogger(logger),
		)
		if err != nil {
			return err
		}
		opts = append(opts, tab.WithPlugin(pub))
		logger.Info("tabd: broadcasting events", "exchange", cfg.AMQPExchange)
	}

	ledger := tab.New(memory.New(), opts...)
	if err := ledger.Start(ctx); err != nil {
		return err
	}

	gin.SetMode(gin.ReleaseMode)
	router := api.New(ledger, logger).Router(cfg.BasePath)
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(reg, promhttp.HandlerOpts{
		ErrorHandling: promhttp.ContinueOnError,
	})))

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("tabd: listening", "addr", cfg.HTTPAddr, "base_path", cfg.BasePath)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	serveErr := g.Wait()
	return errors.Join(serveErr, ledger.Stop())
}
