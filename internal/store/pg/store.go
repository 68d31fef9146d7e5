// Package pg implementa DataAccess sobre PostgreSQL via pgx.
package pg

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/santhoshmp/LearningPlanner-sub010/internal/domain/repository"
)

// querier abstrae pool vs transacción: ambos sirven para los repos.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store implementa repository.DataAccess sobre un pgxpool.
type Store struct {
	pool *pgxpool.Pool
}

// New conecta al DSN dado y verifica la conexión.
func New(ctx context.Context, dsn string) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("store/pg: pool: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("store/pg: ping: %w", err)
	}
	return &Store{pool: pool}, nil
}

func repos(q querier) repository.Repositories {
	return repository.Repositories{
		Accounts: &accountRepo{q: q},
		Links:    &linkRepo{q: q},
		Audit:    &auditRepo{q: q},
	}
}

// Repos retorna repos sin transacción.
func (s *Store) Repos() repository.Repositories {
	return repos(s.pool)
}

// WithinTx corre fn dentro de una transacción read-committed.
// Cualquier error hace rollback completo.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, r repository.Repositories) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("store/pg: begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(ctx, repos(tx)); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// Close libera el pool.
func (s *Store) Close() {
	s.pool.Close()
}

// mapPgError traduce errores del driver a errores de repository.
func mapPgError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return repository.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		// unique_violation: cierra la carrera entre callbacks concurrentes
		return repository.ErrConflict
	}
	return err
}
