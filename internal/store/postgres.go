package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/paulmach/orb/geojson"

	"geowatch/internal/geoindex"
	"geowatch/internal/model"
)

// Postgres backs the store with a pgx pool. Geometry travels as JSONB in
// GeoJSON form; legacy records keep their bare coordinate columns.
type Postgres struct {
	pool *pgxpool.Pool
}

func NewPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("store: connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("store: ping postgres: %w", err)
	}
	return &Postgres{pool: pool}, nil
}

// EnsureSchema creates the record tables when missing. Dev helper; real
// deployments run migrations out of band.
func (p *Postgres) EnsureSchema(ctx context.Context) error {
	_, err := p.pool.Exec(ctx, `
CREATE TABLE IF NOT EXISTS missions (
    id          TEXT PRIMARY KEY,
    title       TEXT NOT NULL DEFAULT '',
    commune     TEXT NOT NULL DEFAULT '',
    prefecture  TEXT NOT NULL DEFAULT '',
    status      TEXT NOT NULL DEFAULT 'PLANNED',
    created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
    surface_ha  DOUBLE PRECISION,
    description TEXT NOT NULL DEFAULT '',
    assignee_id TEXT NOT NULL DEFAULT '',
    geometry    JSONB,
    latitude    DOUBLE PRECISION,
    longitude   DOUBLE PRECISION
);
CREATE TABLE IF NOT EXISTS changes (
    id          TEXT PRIMARY KEY,
    title       TEXT NOT NULL DEFAULT '',
    commune     TEXT NOT NULL DEFAULT '',
    prefecture  TEXT NOT NULL DEFAULT '',
    change_type TEXT NOT NULL DEFAULT '',
    status      TEXT NOT NULL DEFAULT 'DETECTED',
    detected_at TIMESTAMPTZ NOT NULL DEFAULT now(),
    surface_ha  DOUBLE PRECISION,
    description TEXT NOT NULL DEFAULT '',
    reporter_id TEXT NOT NULL DEFAULT '',
    geometry    JSONB,
    latitude    DOUBLE PRECISION,
    longitude   DOUBLE PRECISION
);
`)
	return err
}

func (p *Postgres) ListMissions(ctx context.Context) ([]model.Mission, error) {
	rows, err := p.pool.Query(ctx, `
SELECT id, title, commune, prefecture, status, created_at, surface_ha,
       description, assignee_id, geometry, latitude, longitude
FROM missions ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Mission
	for rows.Next() {
		var m model.Mission
		var geom []byte
		if err := rows.Scan(&m.ID, &m.Title, &m.Commune, &m.Prefecture, &m.Status,
			&m.CreatedAt, &m.SurfaceHa, &m.Description, &m.AssigneeID,
			&geom, &m.Latitude, &m.Longitude); err != nil {
			return nil, err
		}
		m.Geometry = decodeGeometry(geom)
		out = append(out, m)
	}
	return out, rows.Err()
}

func (p *Postgres) ListChanges(ctx context.Context) ([]model.Change, error) {
	rows, err := p.pool.Query(ctx, `
SELECT id, title, commune, prefecture, change_type, status, detected_at,
       surface_ha, description, reporter_id, geometry, latitude, longitude
FROM changes ORDER BY detected_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Change
	for rows.Next() {
		var c model.Change
		var geom []byte
		if err := rows.Scan(&c.ID, &c.Title, &c.Commune, &c.Prefecture, &c.Type,
			&c.Status, &c.DetectedAt, &c.SurfaceHa, &c.Description, &c.ReporterID,
			&geom, &c.Latitude, &c.Longitude); err != nil {
			return nil, err
		}
		c.Geometry = decodeGeometry(geom)
		out = append(out, c)
	}
	return out, rows.Err()
}

func (p *Postgres) GetMission(ctx context.Context, id string) (model.Mission, error) {
	var m model.Mission
	var geom []byte
	err := p.pool.QueryRow(ctx, `
SELECT id, title, commune, prefecture, status, created_at, surface_ha,
       description, assignee_id, geometry, latitude, longitude
FROM missions WHERE id = $1`, id).Scan(
		&m.ID, &m.Title, &m.Commune, &m.Prefecture, &m.Status,
		&m.CreatedAt, &m.SurfaceHa, &m.Description, &m.AssigneeID,
		&geom, &m.Latitude, &m.Longitude)
	if err == pgx.ErrNoRows {
		return model.Mission{}, ErrNotFound
	}
	if err != nil {
		return model.Mission{}, err
	}
	m.Geometry = decodeGeometry(geom)
	return m, nil
}

func (p *Postgres) CreateMission(ctx context.Context, in model.MissionInput) (model.Mission, error) {
	commune := geoindex.Normalize(in.Commune)
	prefecture, _ := geoindex.PrefectureOf(commune)
	status := in.Status
	if status == "" {
		status = model.MissionPlanned
	}
	id := uuid.New().String()
	var geom []byte
	if in.Geometry != nil {
		var err error
		geom, err = in.Geometry.MarshalJSON()
		if err != nil {
			return model.Mission{}, fmt.Errorf("store: encode geometry: %w", err)
		}
	}
	var m model.Mission
	var geomOut []byte
	err := p.pool.QueryRow(ctx, `
INSERT INTO missions (id, title, commune, prefecture, status, surface_ha, description, assignee_id, geometry)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
RETURNING id, title, commune, prefecture, status, created_at, surface_ha,
          description, assignee_id, geometry, latitude, longitude`,
		id, in.Title, commune, prefecture, status, in.SurfaceHa, in.Description, in.AssigneeID, geom,
	).Scan(&m.ID, &m.Title, &m.Commune, &m.Prefecture, &m.Status,
		&m.CreatedAt, &m.SurfaceHa, &m.Description, &m.AssigneeID,
		&geomOut, &m.Latitude, &m.Longitude)
	if err != nil {
		return model.Mission{}, err
	}
	m.Geometry = decodeGeometry(geomOut)
	return m, nil
}

func (p *Postgres) Close() { p.pool.Close() }

// decodeGeometry tolerates NULL and malformed stored geometry; a record
// with an unreadable geometry still renders through the resolver's
// fallback chain.
func decodeGeometry(data []byte) *geojson.Geometry {
	if len(data) == 0 {
		return nil
	}
	g, err := geojson.UnmarshalGeometry(data)
	if err != nil {
		return nil
	}
	return g
}
