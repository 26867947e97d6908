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
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	cardhandler "cardledger/internal/cards/handler"
	cardmetrics "cardledger/internal/cards/metrics"
	"cardledger/internal/cards/service"
	"cardledger/internal/cards/store/cache"
	"cardledger/internal/platform/config"
	"cardledger/internal/platform/httpserver"
	"cardledger/internal/platform/logger"
	"cardledger/internal/platform/metrics"
	"cardledger/internal/platform/middleware"
	"cardledger/internal/platform/redis"
	"cardledger/pkg/platform/httputil"
	"cardledger/pkg/platform/outbox"
)

// main wires the stores, grader and event relay, then serves the card API until
// SIGINT or SIGTERM.
func main() {
	cfg, err := config.FromEnv()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	log := logger.New(cfg.Log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("cardledger stopped with error", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, log *slog.Logger) error {
	stores, err := openBackends(ctx, cfg.Postgres, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := stores.Close(); err != nil {
			log.Warn("failed to close database", "error", err)
		}
	}()

	grader, err := newGrader(ctx, cfg.Grader, log)
	if err != nil {
		return err
	}

	publisher, closePublisher, err := newPublisher(ctx, cfg.Kafka, log)
	if err != nil {
		return err
	}
	defer closePublisher()

	opts := append(stores.serviceOptions(),
		service.WithLogger(log),
		service.WithMetrics(cardmetrics.New()),
		service.WithMaxImageBytes(cfg.Cards.MaxImageBytes),
		service.WithGradingTimeout(cfg.Grader.Timeout),
	)

	rc, err := redis.New(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	if rc != nil {
		defer rc.Close()
		opts = append(opts, service.WithCache(cache.NewRedis(rc.Client, cfg.Cards.CacheTTL)))
		log.Info("redis card cache enabled")
	}

	cards := service.New(stores.cards, stores.ledger, grader, opts...)
	relay := outbox.NewRelay(stores.outbox, publisher,
		outbox.WithLogger(log),
		outbox.WithMetrics(outbox.NewMetrics()),
		outbox.WithInterval(cfg.Kafka.RelayInterval),
	)

	router := newRouter(cfg, log, cards, func(ctx context.Context) error {
		if err := stores.Ping(ctx); err != nil {
			return err
		}
		if rc != nil {
			return rc.Health(ctx)
		}
		return nil
	})
	srv := httpserver.New(cfg.Server.Addr, router, cfg.Server.RequestTimeout)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting cardledger", "addr", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		if err := relay.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		// deliver whatever committed before the listener closed
		if _, err := relay.Flush(shutdownCtx); err != nil {
			log.Warn("final outbox flush failed", "error", err)
		}
		return nil
	})
	return g.Wait()
}

func newRouter(cfg config.Config, log *slog.Logger, cards *service.Service, health func(context.Context) error) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recovery(log))
	r.Use(middleware.RequestID)
	r.Use(middleware.RequestTime)
	r.Use(middleware.ClientIP)
	r.Use(middleware.Logger(log))
	r.Use(middleware.Timeout(cfg.Server.RequestTimeout))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.Server.CORSAllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	}))
	r.Use(middleware.Latency(metrics.New()))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		if err := health(r.Context()); err != nil {
			log.WarnContext(r.Context(), "health check failed", "error", err)
			httputil.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())

	h := cardhandler.New(cards, log, cfg.Cards.MaxImageBytes,
		cardhandler.WithUploadLimiter(httprate.LimitByIP(cfg.Server.UploadRateLimit, time.Minute)),
	)
	h.Register(r)
	return r
}
