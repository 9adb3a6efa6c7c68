package storage

import "github.com/jackc/pgx/v5/pgxpool"

// GetPool lets tests query the database directly.
func (pgr *PostgresRepo) GetPool() *pgxpool.Pool {
	return pgr.pool
}
