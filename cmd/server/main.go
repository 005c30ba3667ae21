package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"

	"github.com/Mas0n1x/Personalsystem-Dev-sub000/modules"
	"github.com/Mas0n1x/Personalsystem-Dev-sub000/pkg/application"
	"github.com/Mas0n1x/Personalsystem-Dev-sub000/pkg/configuration"
	"github.com/Mas0n1x/Personalsystem-Dev-sub000/pkg/eventbus"
	"github.com/Mas0n1x/Personalsystem-Dev-sub000/pkg/metrics"
	"github.com/Mas0n1x/Personalsystem-Dev-sub000/pkg/middleware"
	"github.com/Mas0n1x/Personalsystem-Dev-sub000/pkg/server"
	"github.com/Mas0n1x/Personalsystem-Dev-sub000/pkg/tracing"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			configuration.Use().Unload()
			log.Println(r)
			debug.PrintStack()
			os.Exit(1)
		}
	}()

	conf := configuration.Use()
	defer conf.Unload()
	logger := conf.Logger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := tracing.Setup(ctx, conf.OpenTelemetry)
	if err != nil {
		panic(err)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), time.Second*5)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			logger.WithError(err).Warn("failed to flush traces")
		}
	}()

	connectCtx, cancel := context.WithTimeout(ctx, time.Second*5)
	pool, err := pgxpool.New(connectCtx, conf.Database.Opts)
	cancel()
	if err != nil {
		panic(err)
	}
	defer pool.Close()

	app := application.New(&application.ApplicationOptions{
		Pool:     pool,
		EventBus: eventbus.NewEventPublisher(logger),
		Logger:   logger,
	})
	app.RegisterMiddleware(
		middleware.WithLogger(logger, middleware.LoggerOptions{
			RequestIDHeader: conf.RequestIDHeader,
			RealIPHeader:    conf.RealIPHeader,
		}),
		middleware.ProvidePool(pool),
		middleware.WithOperator(conf.OperatorHeader),
	)
	if err := modules.Load(app, modules.BuiltInModules(conf)...); err != nil {
		log.Fatalf("failed to load modules: %v", err)
	}
	app.RegisterControllers(metrics.NewHealthController(pool))
	if conf.Prometheus.Enabled {
		app.RegisterControllers(metrics.NewPrometheusController(conf.Prometheus.Path))
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, runner := range app.Runners() {
		g.Go(func() error {
			logger.WithField("runner", runner.Name()).Info("runner started")
			err := runner.Start(gctx)
			if err != nil {
				logger.WithError(err).WithField("runner", runner.Name()).Error("runner stopped")
			}
			return err
		})
	}
	g.Go(func() error {
		logger.Infof("Listening on: %s", conf.SocketAddress)
		return server.NewHTTPServer(app, nil, nil).Serve(gctx, conf.SocketAddress)
	})

	if err := g.Wait(); err != nil {
		logger.WithError(err).Error("server stopped")
		conf.Unload()
		os.Exit(1)
	}
}
