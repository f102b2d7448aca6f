package course

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const dbTimeout = 5 * time.Second

// PostgresStore reads courses from the courses table.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a PostgreSQL-backed course source.
func NewPostgresStore(pool *pgxpool.Pool) (*PostgresStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is nil")
	}
	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) GetCourse(ctx context.Context, id string) (*Course, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	var c Course
	var title, curriculum, materials *string
	err := s.pool.QueryRow(ctx,
		`SELECT id::text, title, curriculum, analysis_materials::text
		 FROM courses
		 WHERE id::text = $1
		 LIMIT 1`,
		id,
	).Scan(&c.ID, &title, &curriculum, &materials)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return nil, fmt.Errorf("get course: %w", err)
	}

	if title != nil {
		c.Title = *title
	}
	if curriculum != nil {
		c.Curriculum = *curriculum
	}
	c.AnalysisMaterials = []Material{}
	if materials != nil {
		list, err := decodeMaterials([]byte(*materials))
		if err != nil {
			slog.Warn("ignoring unreadable analysis materials", "course_id", c.ID, "error", err)
		} else {
			c.AnalysisMaterials = list
		}
	}
	return &c, nil
}

// decodeMaterials reads the analysis_materials column. Ids may be stored as numbers.
func decodeMaterials(data []byte) ([]Material, error) {
	var raw []map[string]any
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return nil, err
	}

	out := make([]Material, 0, len(raw))
	for _, m := range raw {
		out = append(out, Material{
			ID:   field(m, "id"),
			Name: field(m, "name"),
			URL:  field(m, "url"),
			Type: field(m, "type"),
		})
	}
	return out, nil
}

func field(m map[string]any, key string) string {
	v, ok := m[key]
	if !ok || v == nil {
		return ""
	}
	return fmt.Sprint(v)
}
