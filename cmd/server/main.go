package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"flightsurety/internal/accounts"
	accountshandler "flightsurety/internal/accounts/handler"
	"flightsurety/internal/governance"
	governancehandler "flightsurety/internal/governance/handler"
	"flightsurety/internal/insurance"
	insurancehandler "flightsurety/internal/insurance/handler"
	jwttoken "flightsurety/internal/jwt_token"
	"flightsurety/internal/ledger/cache"
	"flightsurety/internal/ledger/guard"
	guardhandler "flightsurety/internal/ledger/guard/handler"
	ledgermetrics "flightsurety/internal/ledger/metrics"
	"flightsurety/internal/ledger/models"
	"flightsurety/internal/ledger/store"
	"flightsurety/internal/oracle"
	oraclehandler "flightsurety/internal/oracle/handler"
	"flightsurety/internal/platform/config"
	"flightsurety/internal/platform/httpserver"
	"flightsurety/internal/platform/logger"
	"flightsurety/internal/platform/metrics"
	"flightsurety/internal/platform/postgres"
	"flightsurety/internal/platform/ratelimit"
	"flightsurety/internal/platform/redis"
	"flightsurety/internal/relay"
	relayhandler "flightsurety/internal/relay/handler"
	httptransport "flightsurety/internal/transport/http"
	"flightsurety/pkg/platform/circuit"
)

// main wires the ledger engines, the event relay and the HTTP surface, then
// runs them until SIGINT or SIGTERM.
func main() {
	log := logger.New()
	if err := run(log); err != nil {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(log *slog.Logger) error {
	cfg, err := config.FromEnv()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ledgerMetrics := ledgermetrics.New()
	httpMetrics := metrics.New()
	checks := map[string]httptransport.HealthCheck{}

	st, closeStore, err := openStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeStore()

	rc, err := redis.New(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	if rc != nil {
		defer rc.Close()
		checks["redis"] = rc.Health
	}
	flights := flightCache(cfg, rc, log)

	guardSvc := guard.New(st, guard.WithLogger(log), guard.WithMetrics(ledgerMetrics))
	governanceSvc := governance.New(st, cfg.Ledger,
		governance.WithLogger(log),
		governance.WithMetrics(ledgerMetrics),
		governance.WithFlightCache(flights),
	)
	oracleSvc := oracle.New(st, cfg.Ledger,
		oracle.WithLogger(log),
		oracle.WithMetrics(ledgerMetrics),
		oracle.WithFlightCache(flights),
	)
	insuranceSvc := insurance.New(st, cfg.Ledger, insurance.WithLogger(log), insurance.WithMetrics(ledgerMetrics))
	accountsSvc := accounts.New(st, accounts.WithLogger(log), accounts.WithMetrics(ledgerMetrics))

	if err := governanceSvc.Bootstrap(ctx, cfg.AdminAddress); err != nil {
		return fmt.Errorf("bootstrap ledger: %w", err)
	}
	checks["store"] = func(ctx context.Context) error {
		_, err := guardSvc.IsOperational(ctx)
		return err
	}

	bus := relay.NewBus(1024, ledgerMetrics)
	sinks := []relay.Sink{bus}
	if len(cfg.Kafka.Brokers) > 0 {
		kafka, err := relay.NewKafkaClient(cfg.Kafka)
		if err != nil {
			return err
		}
		defer kafka.Close()
		if err := relay.EnsureTopic(ctx, kafka, cfg.Kafka); err != nil {
			return err
		}
		checks["kafka"] = kafka.Ping
		sinks = append(sinks, relay.NewKafkaSink(kafka, cfg.Kafka.Topic))
		log.Info("kafka sink enabled", "topic", cfg.Kafka.Topic, "brokers", cfg.Kafka.Brokers)
	}

	g, gctx := errgroup.WithContext(ctx)

	dispatcher := relay.NewDispatcher(st, sinks,
		relay.WithLogger(log),
		relay.WithMetrics(ledgerMetrics),
		relay.WithPollInterval(cfg.Relay.PollInterval),
		relay.WithBatchSize(cfg.Relay.BatchSize),
	)
	g.Go(func() error { return dispatcher.Run(gctx) })
	janitor := relay.NewJanitor(oracleSvc, cfg.Relay.JanitorInterval, log)
	g.Go(func() error { return janitor.Run(gctx) })

	if cfg.SimulatedOracles > 0 {
		members, err := relay.ProvisionFleet(ctx, accountsSvc, oracleSvc, cfg.AdminAddress, cfg.SimulatedOracles, oracleSvc.GetRegistrationFee())
		if err != nil {
			return fmt.Errorf("provision simulated oracles: %w", err)
		}
		fleet := relay.NewFleet(oracleSvc, members, relay.WithFleetLogger(log))
		sub := bus.Subscribe(models.EventOracleRequest)
		g.Go(func() error {
			defer sub.Close()
			return sub.Consume(gctx, fleet.Handle, func(e *models.Event, err error) {
				log.WarnContext(gctx, "simulated oracle handler failed", "seq", e.Seq, "error", err)
			})
		})
		log.Info("simulated oracle fleet started", "size", fleet.Size())
	}

	tokens := jwttoken.NewJWTService(cfg.JWTSigningKey, cfg.JWTIssuer, cfg.JWTAudience)
	router := httptransport.NewRouter(httptransport.Config{
		Logger:    log,
		Metrics:   httpMetrics,
		Validator: jwttoken.NewJWTServiceAdapter(tokens),
		Checks:    checks,
		RateLimit: rateLimiter(cfg, rc, log),
	},
		governancehandler.New(governanceSvc, log),
		oraclehandler.New(oracleSvc, log),
		insurancehandler.New(insuranceSvc, log),
		accountshandler.New(accountsSvc, log),
		guardhandler.New(guardSvc, log),
		relayhandler.New(st, log),
	)
	srv := httpserver.New(cfg.Addr, router)

	g.Go(func() error {
		log.Info("starting flightsurety ledger", "addr", cfg.Addr, "admin", cfg.AdminAddress.String())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	log.Info("shutdown complete")
	return nil
}

func openStore(ctx context.Context, cfg config.Server, log *slog.Logger) (store.Store, func(), error) {
	db, err := postgres.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}
	if db == nil {
		log.Warn("DATABASE_URL not set, using in-memory ledger store")
		return store.NewInMemory(), func() {}, nil
	}
	pg := store.NewPostgres(db)
	if err := pg.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("migrate ledger schema: %w", err)
	}
	return pg, func() { _ = db.Close() }, nil
}

func flightCache(cfg config.Server, rc *redis.Client, log *slog.Logger) cache.FlightCache {
	local := cache.NewMemory(cfg.Redis.CacheTTL)
	if rc == nil {
		return local
	}
	breaker := circuit.New("flight-cache", circuit.WithFailureThreshold(5), circuit.WithSuccessThreshold(3))
	return cache.NewTiered(cache.NewRedis(rc.Client, cfg.Redis.CacheTTL), local, breaker, log)
}

func rateLimiter(cfg config.Server, rc *redis.Client, log *slog.Logger) *ratelimit.Middleware {
	var store ratelimit.Store = ratelimit.NewInMemoryStore()
	if rc != nil {
		breaker := circuit.New("ratelimit", circuit.WithFailureThreshold(5), circuit.WithSuccessThreshold(3))
		store = ratelimit.NewTiered(ratelimit.NewRedisStore(rc.Client), store, breaker, log)
	}
	return ratelimit.New(store, log,
		ratelimit.WithDisabled(cfg.RateLimit.Disabled),
		ratelimit.WithLimits(map[ratelimit.Class]ratelimit.Limit{
			ratelimit.ClassRead:  {Requests: cfg.RateLimit.ReadRequests, Window: cfg.RateLimit.Window},
			ratelimit.ClassWrite: {Requests: cfg.RateLimit.WriteRequests, Window: cfg.RateLimit.Window},
		}),
	)
}
