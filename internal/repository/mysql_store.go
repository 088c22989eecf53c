package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/iliyamo/table-reservation/internal/model"
)

// MySQLStore persists reservation documents in the shared `documents`
// table.  The full document is kept in the JSON `body` column; the columns
// the predicates filter on are duplicated next to it so they can be indexed.
type MySQLStore struct {
	db *sql.DB
}

// NewMySQLStore returns a MySQLStore bound to the given database.
func NewMySQLStore(db *sql.DB) *MySQLStore { return &MySQLStore{db: db} }

// DB exposes the underlying handle (used by migrations and health checks).
func (s *MySQLStore) DB() *sql.DB { return s.db }

const mysqlUpsert = `INSERT INTO documents
    (id, type, status, guest_name, guest_email, table_size, expected_arrival_time, created_at, version, body)
    VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
    ON DUPLICATE KEY UPDATE
        status = VALUES(status), guest_name = VALUES(guest_name), guest_email = VALUES(guest_email),
        table_size = VALUES(table_size), expected_arrival_time = VALUES(expected_arrival_time),
        version = VALUES(version), body = VALUES(body)`

func (s *MySQLStore) Put(ctx context.Context, r model.Reservation) error {
	args, err := documentArgs(r)
	if err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, mysqlUpsert, args...); err != nil {
		return fmt.Errorf("put reservation %s: %w", r.ID, err)
	}
	return nil
}

// PutIfVersion implements VersionedStore.  expected == 0 inserts and fails
// on a duplicate key; otherwise the row is updated only when its version
// still matches.
func (s *MySQLStore) PutIfVersion(ctx context.Context, r model.Reservation, expected int64) error {
	args, err := documentArgs(r)
	if err != nil {
		return err
	}
	if expected == 0 {
		const ins = `INSERT INTO documents
            (id, type, status, guest_name, guest_email, table_size, expected_arrival_time, created_at, version, body)
            VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
		if _, err := s.db.ExecContext(ctx, ins, args...); err != nil {
			if isDuplicateKey(err) {
				return ErrVersionMismatch
			}
			return fmt.Errorf("insert reservation %s: %w", r.ID, err)
		}
		return nil
	}
	const upd = `UPDATE documents
                 SET status = ?, guest_name = ?, guest_email = ?, table_size = ?,
                     expected_arrival_time = ?, version = ?, body = ?
                 WHERE id = ? AND type = ? AND version = ?`
	res, err := s.db.ExecContext(ctx, upd,
		args[2], args[3], args[4], args[5], args[6], args[8], args[9],
		r.ID, model.DocumentTypeReservation, expected)
	if err != nil {
		return fmt.Errorf("update reservation %s: %w", r.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrVersionMismatch
	}
	return nil
}

func (s *MySQLStore) GetByID(ctx context.Context, id string) (model.Reservation, error) {
	var body []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT body FROM documents WHERE id = ? AND type = ? LIMIT 1`,
		id, model.DocumentTypeReservation).Scan(&body)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Reservation{}, ErrNotFound
		}
		return model.Reservation{}, fmt.Errorf("get reservation %s: %w", id, err)
	}
	return decodeDocument(body)
}

func (s *MySQLStore) QueryByEmail(ctx context.Context, email string) ([]model.Reservation, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT body FROM documents WHERE type = ? AND guest_email = ? ORDER BY `+orderClause(OrderCreatedDesc),
		model.DocumentTypeReservation, email)
	if err != nil {
		return nil, fmt.Errorf("query reservations by email: %w", err)
	}
	return scanBodies(rows)
}

func (s *MySQLStore) QueryFiltered(ctx context.Context, q Query) ([]model.Reservation, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	query, args := selectQuery(mysqlDialect, q)
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query reservations: %w", err)
	}
	return scanBodies(rows)
}

func (s *MySQLStore) Count(ctx context.Context, preds []Predicate) (int, error) {
	query, args := countQuery(mysqlDialect, preds)
	var total int
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&total); err != nil {
		return 0, fmt.Errorf("count reservations: %w", err)
	}
	return total, nil
}

func (s *MySQLStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE id = ? AND type = ?`, id, model.DocumentTypeReservation)
	if err != nil {
		return fmt.Errorf("delete reservation %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// documentArgs returns the column values in the order used by the insert
// statements: id, type, status, guest_name, guest_email, table_size,
// expected_arrival_time, created_at, version, body.
func documentArgs(r model.Reservation) ([]any, error) {
	body, err := json.Marshal(model.ToDocument(r))
	if err != nil {
		return nil, fmt.Errorf("encode reservation %s: %w", r.ID, err)
	}
	return []any{
		r.ID,
		model.DocumentTypeReservation,
		string(r.Status),
		r.GuestName,
		r.GuestEmail,
		r.TableSize,
		model.Normalize(r.ExpectedArrivalTime),
		model.Normalize(r.CreatedAt),
		r.Version,
		body,
	}, nil
}

func scanBodies(rows *sql.Rows) ([]model.Reservation, error) {
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
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
