package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"banking-ledger/config"
	httpHandler "banking-ledger/internal/adapter/http/handler"
	kafkaMessaging "banking-ledger/internal/adapter/messaging/kafka"
	memStorage "banking-ledger/internal/adapter/storage/memory"
	pgStorage "banking-ledger/internal/adapter/storage/postgres"
	redisStorage "banking-ledger/internal/adapter/storage/redis"
	"banking-ledger/internal/core/ports"
	"banking-ledger/internal/service"
	"banking-ledger/pkg/logger"
	"banking-ledger/pkg/metrics"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// ledgerStore is the set of repositories backing the services.
type ledgerStore struct {
	accounts     ports.AccountRepository
	transactions ports.TransactionRepository
	idempotency  ports.IdempotencyRepository
	cards        ports.CardRepository
	purchases    ports.CardPurchaseRepository
	loans        ports.LoanRepository
	transactor   ports.DBTransactor
	activity     ports.ActivitySink
	health       ports.HealthChecker
	close        func()
}

func openPostgres(ctx context.Context, cfg config.DatabaseConfig, log zerolog.Logger) (*ledgerStore, error) {
	pool, err := pgStorage.NewPool(ctx, cfg, log)
	if err != nil {
		return nil, err
	}
	if err := pgStorage.Migrate(ctx, pool); err != nil {
		pool.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &ledgerStore{
		accounts:     pgStorage.NewAccountRepo(pool),
		transactions: pgStorage.NewTransactionRepo(pool),
		idempotency:  pgStorage.NewIdempotencyRepo(pool),
		cards:        pgStorage.NewCardRepo(pool),
		purchases:    pgStorage.NewCardPurchaseRepo(pool),
		loans:        pgStorage.NewLoanRepo(pool),
		transactor:   pgStorage.NewTransactor(pool),
		activity:     pgStorage.NewActivityRepo(pool),
		health:       pgStorage.NewHealthCheck(pool),
		close:        pool.Close,
	}, nil
}

func openMemory() *ledgerStore {
	store := memStorage.New()
	return &ledgerStore{
		accounts:     memStorage.NewAccountRepo(store),
		transactions: memStorage.NewTransactionRepo(store),
		idempotency:  memStorage.NewIdempotencyRepo(store),
		cards:        memStorage.NewCardRepo(store),
		purchases:    memStorage.NewCardPurchaseRepo(store),
		loans:        memStorage.NewLoanRepo(store),
		transactor:   memStorage.NewTransactor(store),
		activity:     memStorage.NewActivityFeed(store),
		health:       store,
		close:        func() {},
	}
}

// redisDeps is what the services take from Redis. All fields but close are nil
// when running without it.
type redisDeps struct {
	idempotency ports.IdempotencyCache
	rateLimit   *redisStorage.RateLimitStore
	health      ports.HealthChecker
	close       func()
}

// openRedis connects to Redis. Only the memory store may start without it.
func openRedis(ctx context.Context, cfg config.RedisConfig, store string, log zerolog.Logger) (*redisDeps, error) {
	rdb, err := redisStorage.NewClient(ctx, cfg, log)
	if err != nil {
		if store == config.StoreMemory {
			log.Warn().Err(err).Msg("Redis unavailable, running without idempotency cache and rate limiting")
			return &redisDeps{close: func() {}}, nil
		}
		return nil, err
	}
	return &redisDeps{
		idempotency: redisStorage.NewIdempotencyCache(rdb),
		rateLimit:   redisStorage.NewRateLimitStore(rdb),
		health:      redisStorage.NewHealthCheck(rdb),
		close:       func() { _ = rdb.Close() },
	}, nil
}

func main() {
	// Load configuration
	cfg, err := config.Load("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.New(cfg.Log.Level, cfg.Log.Pretty)
	gin.SetMode(cfg.Server.Mode)

	log.Info().
		Str("mode", cfg.Server.Mode).
		Int("port", cfg.Server.Port).
		Str("store", cfg.Ledger.Store).
		Msg("Starting Banking Ledger")

	ctx := context.Background()

	// Initialize ledger storage
	var store *ledgerStore
	switch cfg.Ledger.Store {
	case config.StoreMemory:
		store = openMemory()
		log.Warn().Msg("Using in-memory store, data is lost on restart")
	default:
		store, err = openPostgres(ctx, cfg.Database, log)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
		}
		log.Info().Msg("PostgreSQL connected and migrated")
	}
	defer store.close()

	// Initialize Redis client
	rds, err := openRedis(ctx, cfg.Redis, cfg.Ledger.Store, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rds.close()

	healthCheckers := []ports.HealthChecker{store.health}
	if rds.health != nil {
		healthCheckers = append(healthCheckers, rds.health)
	}

	// Activity sinks
	sinks := []ports.ActivitySink{store.activity}
	if len(cfg.Activity.KafkaBrokers) > 0 {
		publisher := kafkaMessaging.NewActivityPublisher(
			kafkaMessaging.NewWriter(cfg.Activity.KafkaBrokers, cfg.Activity.KafkaTopic, logger.Component(log, "kafka")),
		)
		defer func() {
			if err := publisher.Close(); err != nil {
				log.Error().Err(err).Msg("Failed to close Kafka writer")
			}
		}()
		sinks = append(sinks, publisher)
		log.Info().Strs("brokers", cfg.Activity.KafkaBrokers).Str("topic", cfg.Activity.KafkaTopic).Msg("Kafka activity sink enabled")
	}

	// Initialize core services
	ledgerMetrics := metrics.NewWithDefaults()
	encSvc, err := service.NewXChaChaEncryptionService(cfg.Crypto.CardKey)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize encryption service")
	}
	secrets := service.NewRandomSecretGenerator()
	tokenSvc := service.NewJWTTokenService(cfg.JWT.Secret, cfg.JWT.Expiry, cfg.JWT.Issuer)
	activitySvc := service.NewActivityService(cfg.Activity.Timeout, ledgerMetrics, logger.Component(log, "activity"), sinks...)

	// Initialize business services
	ledgerSvc := service.NewLedgerService(
		store.accounts,
		store.transactions,
		store.idempotency,
		rds.idempotency,
		secrets,
		activitySvc,
		ledgerMetrics,
		store.transactor,
		service.LedgerOptions{
			TxTimeout:       cfg.Ledger.TxTimeout,
			RoutingNumber:   cfg.Ledger.RoutingNumber,
			DefaultCurrency: cfg.Ledger.DefaultCurrency,
		},
		logger.Component(log, "ledger"),
	)
	cardSvc := service.NewCardService(
		store.cards,
		store.purchases,
		encSvc,
		secrets,
		activitySvc,
		ledgerMetrics,
		store.transactor,
		cfg.Ledger.TxTimeout,
		logger.Component(log, "cards"),
	)
	loanSvc := service.NewLoanService(store.loans, activitySvc, ledgerMetrics, cfg.Ledger.DefaultCurrency, logger.Component(log, "loans"))

	// Setup Gin router with all routes
	router := httpHandler.SetupRouter(httpHandler.RouterDeps{
		LedgerSvc:      ledgerSvc,
		CardSvc:        cardSvc,
		LoanSvc:        loanSvc,
		TokenSvc:       tokenSvc,
		RateLimitStore: rds.rateLimit,
		HealthCheckers: healthCheckers,
		MetricsHandler: ledgerMetrics.Handler(),
		Logger:         log,
	})

	// HTTP Server with graceful shutdown
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	// Drain in-flight activity deliveries before closing sinks.
	activitySvc.Wait()

	log.Info().Msg("Server exited")
}
