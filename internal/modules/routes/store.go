// README: Route store backed by PostgreSQL; the path is kept as a JSON array.
package routes

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"trailtrack/internal/geo"
	"trailtrack/internal/types"
)

// Querier is satisfied by *pgxpool.Pool and by pgxmock pools.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const Schema = `
CREATE TABLE IF NOT EXISTS routes (
    id          TEXT PRIMARY KEY,
    owner_id    TEXT NOT NULL,
    name        TEXT NOT NULL,
    length_m    DOUBLE PRECISION NOT NULL,
    duration_s  BIGINT NOT NULL,
    path        JSONB NOT NULL,
    start_lat   DOUBLE PRECISION NOT NULL,
    start_lng   DOUBLE PRECISION NOT NULL,
    is_public   BOOLEAN NOT NULL DEFAULT FALSE,
    created_at  TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS routes_owner_idx ON routes (owner_id, created_at DESC);
CREATE INDEX IF NOT EXISTS routes_public_start_idx ON routes (start_lat, start_lng) WHERE is_public;`

const routeColumns = `id, owner_id, name, length_m, duration_s, path, start_lat, start_lng, is_public, created_at`

type PostgresStore struct {
	db Querier
}

func NewPostgresStore(db Querier) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	_, err := s.db.Exec(ctx, Schema)
	return err
}

func (s *PostgresStore) Create(ctx context.Context, r Route) error {
	path, err := json.Marshal(r.Path)
	if err != nil {
		return fmt.Errorf("encode path: %w", err)
	}
	_, err = s.db.Exec(ctx, `
		INSERT INTO routes (`+routeColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		string(r.ID), string(r.OwnerID), r.Name, r.LengthMeters, r.DurationSeconds,
		path, r.Start.Latitude, r.Start.Longitude, r.Public, r.CreatedAt,
	)
	return err
}

func (s *PostgresStore) Get(ctx context.Context, id types.ID) (Route, error) {
	row := s.db.QueryRow(ctx, `SELECT `+routeColumns+` FROM routes WHERE id = $1`, string(id))
	r, err := scanRoute(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Route{}, ErrNotFound
	}
	return r, err
}

func (s *PostgresStore) ListByOwner(ctx context.Context, owner types.ID, limit int) ([]Route, error) {
	rows, err := s.db.Query(ctx, `
		SELECT `+routeColumns+`
		FROM routes
		WHERE owner_id = $1
		ORDER BY created_at DESC
		LIMIT $2`, string(owner), limit)
	if err != nil {
		return nil, err
	}
	return collectRoutes(rows)
}

func (s *PostgresStore) Delete(ctx context.Context, owner, id types.ID) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM routes WHERE id = $1 AND owner_id = $2`, string(id), string(owner))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) SetPublic(ctx context.Context, owner, id types.ID, public bool) error {
	tag, err := s.db.Exec(ctx, `UPDATE routes SET is_public = $3 WHERE id = $1 AND owner_id = $2`, string(id), string(owner), public)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ListPublicIn returns public routes whose start lies inside b.
func (s *PostgresStore) ListPublicIn(ctx context.Context, b geo.Bounds, limit int) ([]Route, error) {
	lngClause := `start_lng BETWEEN $3 AND $4`
	if b.West > b.East {
		lngClause = `(start_lng >= $3 OR start_lng <= $4)`
	}
	rows, err := s.db.Query(ctx, `
		SELECT `+routeColumns+`
		FROM routes
		WHERE is_public AND start_lat BETWEEN $1 AND $2 AND `+lngClause+`
		ORDER BY created_at DESC
		LIMIT $5`, b.South, b.North, b.West, b.East, limit)
	if err != nil {
		return nil, err
	}
	return collectRoutes(rows)
}

func collectRoutes(rows pgx.Rows) ([]Route, error) {
	defer rows.Close()
	var out []Route
	for rows.Next() {
		r, err := scanRoute(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func scanRoute(row pgx.Row) (Route, error) {
	var r Route
	var path []byte
	err := row.Scan(
		&r.ID, &r.OwnerID, &r.Name, &r.LengthMeters, &r.DurationSeconds,
		&path, &r.Start.Latitude, &r.Start.Longitude, &r.Public, &r.CreatedAt,
	)
	if err != nil {
		return Route{}, err
	}
	if err := json.Unmarshal(path, &r.Path); err != nil {
		return Route{}, fmt.Errorf("decode path of route %s: %w", r.ID, err)
	}
	if r.Path == nil {
		r.Path = geo.Track{}
	}
	return r, nil
}
