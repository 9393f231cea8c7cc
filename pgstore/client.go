// Package pgstore implements bondbt.MarketData on PostgreSQL via pgx, and
// stores valuation results.
//
// The schema itself is managed outside of this package. The tables read are:
//
//	tb_sec(dt date, code text, dirty float8, clean float8, ytm float8)
//	tb_bond(code text, issue date, term float8, rate float8, freq int4, par float8)
//	tb_calendar(dt date)
//
// and the table written is:
//
//	tb_value(run_id uuid, dt date, cash numeric, asset numeric, total numeric)
package pgstore

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ClientConfig holds connection parameters for the PostgreSQL client.
type ClientConfig struct {
	DSN      string
	MaxConns int
}

// querier is the subset of *pgxpool.Pool used by the store.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error)
}

// Open creates a connection pool configured from cfg and checks it.
func Open(ctx context.Context, cfg ClientConfig) (*Market, error) {
	if strings.TrimSpace(cfg.DSN) == "" {
		return nil, fmt.Errorf("postgres: empty dsn")
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("postgres: parse config: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = int32(cfg.MaxConns)
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("postgres: create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: ping: %w", err)
	}
	m := newMarket(pool)
	m.close = pool.Close
	return m, nil
}

// Close releases the pool.
func (m *Market) Close() {
	if m == nil || m.close == nil {
		return
	}
	m.close()
}
