package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/iliyamo/table-reservation/internal/model"
)

// PostgresStore is the ReservationStore backed by a pgx connection pool.
// It uses the same `documents` layout as MySQLStore with a JSONB body.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore { return &PostgresStore{pool: pool} }

const pgUpsert = `INSERT INTO documents
    (id, type, status, guest_name, guest_email, table_size, expected_arrival_time, created_at, version, body)
    VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
    ON CONFLICT (id) DO UPDATE SET
        status = EXCLUDED.status, guest_name = EXCLUDED.guest_name, guest_email = EXCLUDED.guest_email,
        table_size = EXCLUDED.table_size, expected_arrival_time = EXCLUDED.expected_arrival_time,
        version = EXCLUDED.version, body = EXCLUDED.body`

func (s *PostgresStore) Put(ctx context.Context, r model.Reservation) error {
	args, err := documentArgs(r)
	if err != nil {
		return err
	}
	if _, err := s.pool.Exec(ctx, pgUpsert, args...); err != nil {
		return fmt.Errorf("put reservation %s: %w", r.ID, err)
	}
	return nil
}

// PutIfVersion implements VersionedStore.
func (s *PostgresStore) PutIfVersion(ctx context.Context, r model.Reservation, expected int64) error {
	args, err := documentArgs(r)
	if err != nil {
		return err
	}
	if expected == 0 {
		const ins = `INSERT INTO documents
            (id, type, status, guest_name, guest_email, table_size, expected_arrival_time, created_at, version, body)
            VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
            ON CONFLICT (id) DO NOTHING`
		tag, err := s.pool.Exec(ctx, ins, args...)
		if err != nil {
			return fmt.Errorf("insert reservation %s: %w", r.ID, err)
		}
		if tag.RowsAffected() == 0 {
			return ErrVersionMismatch
		}
		return nil
	}
	const upd = `UPDATE documents
                 SET status = $1, guest_name = $2, guest_email = $3, table_size = $4,
                     expected_arrival_time = $5, version = $6, body = $7
                 WHERE id = $8 AND type = $9 AND version = $10`
	tag, err := s.pool.Exec(ctx, upd,
		args[2], args[3], args[4], args[5], args[6], args[8], args[9],
		r.ID, model.DocumentTypeReservation, expected)
	if err != nil {
		return fmt.Errorf("update reservation %s: %w", r.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrVersionMismatch
	}
	return nil
}

func (s *PostgresStore) GetByID(ctx context.Context, id string) (model.Reservation, error) {
	var body []byte
	err := s.pool.QueryRow(ctx,
		`SELECT body FROM documents WHERE id = $1 AND type = $2 LIMIT 1`,
		id, model.DocumentTypeReservation).Scan(&body)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Reservation{}, ErrNotFound
		}
		return model.Reservation{}, fmt.Errorf("get reservation %s: %w", id, err)
	}
	return decodeDocument(body)
}

func (s *PostgresStore) QueryByEmail(ctx context.Context, email string) ([]model.Reservation, error) {
	return s.queryBodies(ctx,
		`SELECT body FROM documents WHERE type = $1 AND guest_email = $2 ORDER BY `+orderClause(OrderCreatedDesc),
		model.DocumentTypeReservation, email)
}

func (s *PostgresStore) QueryFiltered(ctx context.Context, q Query) ([]model.Reservation, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	query, args := selectQuery(postgresDialect, q)
	return s.queryBodies(ctx, query, args...)
}

func (s *PostgresStore) Count(ctx context.Context, preds []Predicate) (int, error) {
	query, args := countQuery(postgresDialect, preds)
	var total int64
	if err := s.pool.QueryRow(ctx, query, args...).Scan(&total); err != nil {
		return 0, fmt.Errorf("count reservations: %w", err)
	}
	return int(total), nil
}

func (s *PostgresStore) Delete(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM documents WHERE id = $1 AND type = $2`, id, model.DocumentTypeReservation)
	if err != nil {
		return fmt.Errorf("delete reservation %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) queryBodies(ctx context.Context, query string, args ...any) ([]model.Reservation, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query reservations: %w", err)
	}
	defer rows.Close()
	out := make([]model.Reservation, 0)
	for rows.Next() {
		var body []byte
		if err := rows.Scan(&body); err != nil {
			return nil, err
		}
		r, err := decodeDocument(body)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
