package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/fiado-app/fiado/internal/debtor"
)

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

// Expected column order: id, name, phone, note, archived, created_at, updated_at
func scanDebtor(s scanner) (*debtor.Debtor, error) {
	var d debtor.Debtor

	var phone, note sql.NullString

	if err := s.Scan(&d.ID, &d.Name, &phone, &note, &d.Archived, &d.CreatedAt, &d.UpdatedAt); err != nil {
		return nil, err
	}

	d.Phone = phone.String
	d.Note = note.String

	return &d, nil
}

const selectDebtorColumns = `id, name, phone, note, archived, created_at, updated_at`

func (s *Store) CreateDebtor(ctx context.Context, d *debtor.Debtor) error {
	query := `
		INSERT INTO debtors (name, phone, note, archived, created_at)
		VALUES ($1, $2, $3, FALSE, NOW())
		RETURNING id, created_at
	`

	err := s.db.QueryRowContext(ctx, query,
		d.Name, nullString(d.Phone), nullString(d.Note),
	).Scan(&d.ID, &d.CreatedAt)
	if err != nil {
		return fmt.Errorf("creating debtor: %w", err)
	}

	return nil
}

func (s *Store) GetDebtor(ctx context.Context, id uuid.UUID) (*debtor.Debtor, error) {
	query := `SELECT ` + selectDebtorColumns + ` FROM debtors WHERE id = $1`

	d, err := scanDebtor(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, debtor.ErrNotFound
		}

		return nil, fmt.Errorf("getting debtor: %w", err)
	}

	return d, nil
}

func (s *Store) ListDebtors(ctx context.Context, filter debtor.ListFilter) ([]*debtor.Debtor, error) {
	query := `SELECT ` + selectDebtorColumns + ` FROM debtors`

	if !filter.IncludeArchived {
		query += ` WHERE archived = FALSE`
	}

	query += ` ORDER BY name ASC`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("listing debtors: %w", err)
	}
	defer rows.Close()

	var debtors []*debtor.Debtor

	for rows.Next() {
		d, err := scanDebtor(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning debtor: %w", err)
		}

		debtors = append(debtors, d)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing debtors: %w", err)
	}

	return debtors, nil
}

func (s *Store) UpdateDebtor(ctx context.Context, d *debtor.Debtor) error {
	query := `
		UPDATE debtors
		SET name = $1, phone = $2, note = $3, updated_at = NOW()
		WHERE id = $4
	`

	_, err := s.db.ExecContext(ctx, query, d.Name, nullString(d.Phone), nullString(d.Note), d.ID)
	if err != nil {
		return fmt.Errorf("updating debtor: %w", err)
	}

	return nil
}

func (s *Store) SetArchived(ctx context.Context, id uuid.UUID, archived bool) error {
	query := `
		UPDATE debtors
		SET archived = $1, updated_at = NOW()
		WHERE id = $2
	`

	res, err := s.db.ExecContext(ctx, query, archived, id)
	if err != nil {
		return fmt.Errorf("archiving debtor: %w", err)
	}

	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return debtor.ErrNotFound
	}

	return nil
}

func (s *Store) DeleteDebtor(ctx context.Context, id uuid.UUID) error {
	// Agreements, installments and payments cascade via foreign keys.
	res, err := s.db.ExecContext(ctx, `DELETE FROM debtors WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deleting debtor: %w", err)
	}

	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return debtor.ErrNotFound
	}

	return nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
