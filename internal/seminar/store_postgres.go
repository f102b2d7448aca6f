package seminar

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const dbTimeout = 5 * time.Second

// PostgresStore reads seminars from the seminars table.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a PostgreSQL-backed seminar source.
func NewPostgresStore(pool *pgxpool.Pool) (*PostgresStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is nil")
	}
	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) GetSeminar(ctx context.Context, id string) (*Seminar, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	var sem Seminar
	var title *string
	var program *string
	err := s.pool.QueryRow(ctx,
		`SELECT id::text, title, program::text
		 FROM seminars
		 WHERE id::text = $1
		 LIMIT 1`,
		id,
	).Scan(&sem.ID, &title, &program)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return nil, fmt.Errorf("get seminar: %w", err)
	}

	if title != nil {
		sem.Title = *title
	}
	if program != nil {
		sem.Program = ProgramFromText(*program)
	}
	return &sem, nil
}
