package main

import (
	"context"
	"fmt"
	"log/slog"

	"ads-guardrail/internal/config"
	"ads-guardrail/internal/storage"
	chstore "ads-guardrail/internal/storage/clickhouse"
	"ads-guardrail/internal/storage/memory"
	"ads-guardrail/internal/storage/migrations"
	pgstore "ads-guardrail/internal/storage/postgres"
	"ads-guardrail/internal/storage/sqlite"
)

// stores holds the configured storage backends.
type stores struct {
	days    storage.DailyMetricsStore
	reports storage.ReportStore
	closers []func()
}

func (s *stores) close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
}

// openStores connects the configured backends and applies migrations.
// Postgres is shared when both stores use it.
func openStores(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*stores, error) {
	s := &stores{}

	var pool *pgstore.Pool
	postgres := func() (*pgstore.Pool, error) {
		if pool != nil {
			return pool, nil
		}
		p, err := pgstore.NewPool(ctx, cfg.Storage.PostgresDSN, cfg.Storage.PostgresMaxConns)
		if err != nil {
			return nil, fmt.Errorf("connect to postgres: %w", err)
		}
		if err := migrations.RunPostgresMigrations(ctx, p); err != nil {
			p.Close()
			return nil, fmt.Errorf("postgres migrations: %w", err)
		}
		pool = p
		s.closers = append(s.closers, p.Close)
		logger.Info("postgres connected")
		return pool, nil
	}

	switch cfg.Storage.DaysBackend {
	case config.BackendMemory:
		s.days = memory.NewDailyMetricsStore()
	case config.BackendPostgres:
		p, err := postgres()
		if err != nil {
			return nil, err
		}
		s.days = pgstore.NewDailyMetricsStore(p)
	case config.BackendClickHouse:
		conn, err := migrations.RunClickhouseMigrations(ctx, cfg.Storage.ClickHouseDSN)
		if err != nil {
			s.close()
			return nil, fmt.Errorf("clickhouse migrations: %w", err)
		}
		s.closers = append(s.closers, func() { _ = conn.Close() })
		s.days = chstore.NewDailyMetricsStore(conn)
		logger.Info("clickhouse connected")
	}

	switch cfg.Storage.ReportsBackend {
	case config.BackendMemory:
		s.reports = memory.NewReportStore()
	case config.BackendPostgres:
		p, err := postgres()
		if err != nil {
			s.close()
			return nil, err
		}
		s.reports = pgstore.NewReportStore(p)
	case config.BackendSQLite:
		db, err := sqlite.Open(ctx, cfg.Storage.SQLitePath)
		if err != nil {
			s.close()
			return nil, err
		}
		s.closers = append(s.closers, func() { _ = db.Close() })
		s.reports = db
		logger.Info("sqlite report store opened", "path", cfg.Storage.SQLitePath)
	}

	return s, nil
}
