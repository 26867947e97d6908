package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"cardledger/internal/cards/grading"
	"cardledger/internal/cards/service"
	cardstore "cardledger/internal/cards/store/card"
	ledgerstore "cardledger/internal/cards/store/ledger"
	"cardledger/internal/platform/config"
	"cardledger/internal/platform/kafka"
	"cardledger/internal/platform/postgres"
	"cardledger/pkg/platform/outbox"
)

// backends holds the stores chosen at startup. Either every store is in memory or every
// store is in Postgres; a transaction never spans both.
type backends struct {
	cards  service.CardStore
	ledger service.Ledger
	outbox interface {
		outbox.Store
		service.OutboxStore
	}
	tx service.StoreTx
	db *sql.DB
}

func openBackends(ctx context.Context, cfg config.PostgresConfig, log *slog.Logger) (*backends, error) {
	if cfg.URL == "" {
		log.Warn("DATABASE_URL not set, using in-memory stores")
		return &backends{
			cards:  cardstore.NewInMemory(),
			ledger: ledgerstore.NewInMemory(),
			outbox: outbox.NewInMemoryStore(),
		}, nil
	}

	db, err := postgres.Open(ctx, postgres.Config{
		URL:          cfg.URL,
		MaxOpenConns: cfg.MaxOpenConns,
		MaxIdleConns: cfg.MaxIdleConns,
	})
	if err != nil {
		return nil, err
	}
	if err := postgres.Migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	log.Info("postgres stores ready")
	return &backends{
		cards:  cardstore.NewPostgres(db),
		ledger: ledgerstore.NewPostgres(db),
		outbox: outbox.NewPostgresStore(db),
		tx:     postgres.NewTxRunner(db),
		db:     db,
	}, nil
}

func (b *backends) serviceOptions() []service.Option {
	opts := []service.Option{service.WithOutbox(b.outbox)}
	if b.tx != nil {
		opts = append(opts, service.WithTx(b.tx))
	}
	return opts
}

func (b *backends) Ping(ctx context.Context) error {
	if b.db == nil {
		return nil
	}
	return b.db.PingContext(ctx)
}

func (b *backends) Close() error {
	if b.db == nil {
		return nil
	}
	return b.db.Close()
}

func newGrader(ctx context.Context, cfg config.GraderConfig, log *slog.Logger) (grading.Gateway, error) {
	if cfg.Mode == config.GraderModeStatic {
		log.Warn("GRADER_MODE=static, every card receives a fixed grade")
		return grading.NewStatic(grading.Labels[1], 0.85), nil
	}

	client, err := grading.NewHTTPClient(grading.Config{URL: cfg.URL, Timeout: cfg.Timeout})
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx); err != nil {
		if cfg.Required {
			return nil, fmt.Errorf("grading service not reachable: %w", err)
		}
		log.Warn("grading service not reachable at startup, uploads will fail until it recovers",
			"url", cfg.URL,
			"error", err,
		)
	}
	return client, nil
}

// newPublisher returns the outbox sink and a close func.
func newPublisher(ctx context.Context, cfg config.KafkaConfig, log *slog.Logger) (outbox.Publisher, func(), error) {
	if len(cfg.Brokers) == 0 {
		log.Info("KAFKA_BROKERS not set, card events are logged only")
		return outbox.LogPublisher{Logger: log}, func() {}, nil
	}

	pub, err := kafka.NewPublisher(cfg.Brokers, cfg.Topic)
	if err != nil {
		return nil, nil, err
	}
	if err := pub.EnsureTopic(ctx, 3, 1); err != nil {
		pub.Close()
		return nil, nil, err
	}
	log.Info("kafka publisher ready", "topic", cfg.Topic)
	return pub, pub.Close, nil
}
