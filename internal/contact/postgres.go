package contact

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore implements Store on a pgx connection pool.
type PostgresStore struct {
	pool *pgxpool.Pool
}

var _ Store = (*PostgresStore)(nil)

// NewPostgresStore constructs a PostgresStore.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Insert stores a new inquiry, assigning ID and CreatedAt when unset.
func (s *PostgresStore) Insert(ctx context.Context, in *Inquiry) error {
	if in.ID == "" {
		in.ID = uuid.NewString()
	}
	if in.CreatedAt.IsZero() {
		in.CreatedAt = time.Now().UTC()
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO contact_inquiries
			(id, first_name, last_name, email, phone, address, monthly_bill, message, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
	`, in.ID, in.FirstName, in.LastName, in.Email, in.Phone, in.Address,
		in.MonthlyBill, in.Message, in.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert inquiry: %w", err)
	}
	return nil
}

const inquiryColumns = `
	id, first_name, last_name, email, phone, address, monthly_bill, message, created_at`

// List returns all inquiries, newest first.
func (s *PostgresStore) List(ctx context.Context) ([]Inquiry, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+inquiryColumns+` FROM contact_inquiries ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("select inquiries: %w", err)
	}
	defer rows.Close()

	var out []Inquiry
	for rows.Next() {
		var in Inquiry
		if err := rows.Scan(&in.ID, &in.FirstName, &in.LastName, &in.Email, &in.Phone,
			&in.Address, &in.MonthlyBill, &in.Message, &in.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan inquiry: %w", err)
		}
		out = append(out, in)
	}
	return out, rows.Err()
}

// GetByID returns one inquiry or ErrNotFound.
func (s *PostgresStore) GetByID(ctx context.Context, id string) (*Inquiry, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+inquiryColumns+` FROM contact_inquiries WHERE id=$1`, id)
	var in Inquiry
	err := row.Scan(&in.ID, &in.FirstName, &in.LastName, &in.Email, &in.Phone,
		&in.Address, &in.MonthlyBill, &in.Message, &in.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select inquiry: %w", err)
	}
	return &in, nil
}
