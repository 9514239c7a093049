package main

import (
	"context"
	"os"

	"doc-reconciliation/internal/config"
	"doc-reconciliation/internal/gateway"
	"doc-reconciliation/internal/usecase"

	"github.com/sirupsen/logrus"
)

// app holds the wired dependencies for one command invocation.
type app struct {
	cfg     *config.Config
	logger  *logrus.Logger
	store   *gateway.GormStore
	closers []func()
}

func newApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logger := config.NewLogger(os.Stderr, cfg.LogLevel)

	db, err := config.ConnectDatabase(ctx, cfg.DB, logger)
	if err != nil {
		config.LogError(logger, "main", "newApp", "connect database", nil, err)
		return nil, err
	}
	a := &app{cfg: cfg, logger: logger, store: gateway.NewGormStore(db)}
	if sqlDB, err := db.DB(); err == nil {
		a.closers = append(a.closers, func() { sqlDB.Close() })
	}
	return a, nil
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

func (a *app) matcher() *usecase.Matcher {
	return usecase.NewMatcher(a.store)
}

func (a *app) ingestion() *usecase.IngestionUseCase {
	return usecase.NewIngestionUseCase(a.store, a.logger)
}

func (a *app) lifecycle() *usecase.LifecycleUseCase {
	return usecase.NewLifecycleUseCase(a.store, a.matcher(), a.logger)
}

// reconciliation wires the run guard when REDIS_ADDRESS is set.
func (a *app) reconciliation(ctx context.Context) (*usecase.ReconciliationUseCase, error) {
	lines := usecase.NewLineReconciler(a.matcher(), a.cfg.Matching.Tolerance)
	var opts []usecase.Option

	if a.cfg.Redis.Address != "" {
		rdb, locker, err := config.ConnectRedis(ctx, a.cfg.Redis)
		if err != nil {
			config.LogError(a.logger, "main", "reconciliation", "connect redis", nil, err)
			return nil, err
		}
		a.closers = append(a.closers, func() { rdb.Close() })
		opts = append(opts, usecase.WithRunGuard(gateway.NewRedisRunGuard(locker, a.cfg.Redis.RunLockTTL)))
	}

	notifier, err := a.notifier(ctx)
	if err != nil {
		return nil, err
	}
	opts = append(opts, usecase.WithNotifier(notifier))

	return usecase.NewReconciliationUseCase(lines, a.store, a.store, a.logger, opts...), nil
}

// notifier publishes to Pub/Sub when PUBSUB_TOPIC is set. Otherwise
// summaries are logged.
func (a *app) notifier(ctx context.Context) (usecase.Notifier, error) {
	if a.cfg.PubSub.Topic == "" {
		return gateway.NewLogNotifier(a.logger), nil
	}
	client, topic, err := config.ConnectPubSub(ctx, a.cfg.PubSub)
	if err != nil {
		config.LogError(a.logger, "main", "notifier", "connect pubsub", nil, err)
		return nil, err
	}
	a.closers = append(a.closers, func() { client.Close() }, topic.Stop)
	return gateway.NewPubSubNotifier(topic), nil
}

func (a *app) risk() *usecase.RiskAggregator {
	rules := usecase.RiskRules{
		StaleAfterDays:       a.cfg.Risk.StaleAfterDays,
		UnconfirmedAfterDays: a.cfg.Risk.UnconfirmedAfterDays,
		OverdueGraceDays:     a.cfg.Risk.OverdueGraceDays,
		Limit:                a.cfg.Risk.Limit,
	}
	return usecase.NewRiskAggregator(a.store, rules, a.logger, nil)
}
