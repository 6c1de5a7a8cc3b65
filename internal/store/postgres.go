package store

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/tauron-farm/tauron/internal/model"
)

// Pool is the subset of pgxpool.Pool the store uses. pgxmock satisfies it
// for unit tests.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
	Close()
}

// PostgresStore implements Store using pgxpool. SQLite covers the on-farm
// single-box install; Postgres is for the hosted multi-farm tier.
type PostgresStore struct {
	pool Pool
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS observations (
	id           TEXT PRIMARY KEY,
	cow_id       INTEGER NOT NULL,
	yield_kg     DOUBLE PRECISION,
	pen          TEXT,
	health_event TEXT NOT NULL DEFAULT 'none',
	notes        TEXT,
	source       TEXT NOT NULL,
	recorded_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS predictions (
	id               TEXT PRIMARY KEY,
	cow_id           INTEGER NOT NULL,
	risk_score       DOUBLE PRECISION NOT NULL,
	dominant_disease TEXT,
	status           TEXT NOT NULL,
	outcome          TEXT,
	recorded_at      TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_observations_cow_id ON observations(cow_id);
CREATE INDEX IF NOT EXISTS idx_predictions_cow_id ON predictions(cow_id);
CREATE INDEX IF NOT EXISTS idx_predictions_status ON predictions(status);
`

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}
	pgxCfg.MaxConns = 10
	pgxCfg.MinConns = 2
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) AppendObservation(ctx context.Context, obs model.Observation) (*model.Observation, error) {
	if obs.ID == "" {
		obs.ID = uuid.New().String()
	}
	if obs.Timestamp.IsZero() {
		obs.Timestamp = time.Now().UTC()
	}

	var yield sql.NullFloat64
	if obs.YieldKg != nil {
		yield = sql.NullFloat64{Float64: *obs.YieldKg, Valid: true}
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO observations (id, cow_id, yield_kg, pen, health_event, notes, source, recorded_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		obs.ID, obs.CowID, yield, obs.Pen, string(obs.HealthEvent), obs.Notes, string(obs.Source), obs.Timestamp,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert observation")
	}
	return &obs, nil
}

func (s *PostgresStore) ListObservations(ctx context.Context, filter ObservationFilter) ([]model.Observation, error) {
	query := `SELECT id, cow_id, yield_kg, pen, health_event, notes, source, recorded_at FROM observations`
	var args []any

	if filter.CowID != 0 {
		query += ` WHERE cow_id = $1`
		args = append(args, filter.CowID)
	}
	query += ` ORDER BY recorded_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 500
	}
	query += sqlPlaceholder(` LIMIT `, len(args)+1)
	args = append(args, limit)
	if filter.Offset > 0 {
		query += sqlPlaceholder(` OFFSET `, len(args)+1)
		args = append(args, filter.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list observations")
	}
	defer rows.Close()

	var out []model.Observation
	for rows.Next() {
		obs, err := scanPgObservation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *obs)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list observations iterate")
}

func (s *PostgresStore) CountObservations(ctx context.Context) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM observations`).Scan(&n)
	return n, eris.Wrap(err, "postgres: count observations")
}

func (s *PostgresStore) AppendPrediction(ctx context.Context, p model.Prediction) (*model.Prediction, error) {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	if p.Timestamp.IsZero() {
		p.Timestamp = time.Now().UTC()
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO predictions (id, cow_id, risk_score, dominant_disease, status, outcome, recorded_at)
		 VALUES ($1, $2, $3, $4, $5, NULL, $6)`,
		p.ID, p.CowID, p.RiskScore, string(p.DominantDisease), string(p.Status), p.Timestamp,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert prediction")
	}
	return &p, nil
}

func (s *PostgresStore) ListPredictions(ctx context.Context, filter PredictionFilter) ([]model.Prediction, error) {
	query := `SELECT id, cow_id, risk_score, dominant_disease, status, outcome, recorded_at FROM predictions WHERE 1=1`
	var args []any

	if filter.CowID != 0 {
		query += sqlPlaceholder(` AND cow_id = `, len(args)+1)
		args = append(args, filter.CowID)
	}
	if filter.Status != "" {
		query += sqlPlaceholder(` AND status = `, len(args)+1)
		args = append(args, filter.Status)
	}
	query += ` ORDER BY recorded_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 500
	}
	query += sqlPlaceholder(` LIMIT `, len(args)+1)
	args = append(args, limit)
	if filter.Offset > 0 {
		query += sqlPlaceholder(` OFFSET `, len(args)+1)
		args = append(args, filter.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list predictions")
	}
	defer rows.Close()

	var out []model.Prediction
	for rows.Next() {
		p, err := scanPgPrediction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list predictions iterate")
}

func (s *PostgresStore) GetPrediction(ctx context.Context, id string) (*model.Prediction, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, cow_id, risk_score, dominant_disease, status, outcome, recorded_at FROM predictions WHERE id = $1`,
		id,
	)
	p, err := scanPgPrediction(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrPredictionNotFound
	}
	return p, err
}

// SetOutcome marks a prediction's outcome. The outcome IS NULL guard makes
// set-once atomic; concurrent confirmations resolve to exactly one winner.
func (s *PostgresStore) SetOutcome(ctx context.Context, id string, outcome model.Outcome) (*model.Prediction, error) {
	tag, err := s.pool.Exec(ctx,
		`UPDATE predictions SET outcome = $1 WHERE id = $2 AND outcome IS NULL`,
		string(outcome), id,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: set outcome %s", id)
	}
	if tag.RowsAffected() == 0 {
		if _, err := s.GetPrediction(ctx, id); err != nil {
			return nil, err
		}
		return nil, ErrOutcomeAlreadySet
	}
	return s.GetPrediction(ctx, id)
}

// helpers

func sqlPlaceholder(prefix string, n int) string {
	return prefix + "$" + strconv.Itoa(n)
}

func scanPgObservation(row scannable) (*model.Observation, error) {
	var (
		obs    model.Observation
		yield  sql.NullFloat64
		pen    sql.NullString
		notes  sql.NullString
		event  string
		source string
	)
	err := row.Scan(&obs.ID, &obs.CowID, &yield, &pen, &event, &notes, &source, &obs.Timestamp)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, eris.Wrap(err, "postgres: scan observation")
	}
	if yield.Valid {
		v := yield.Float64
		obs.YieldKg = &v
	}
	obs.Pen = pen.String
	obs.Notes = notes.String
	obs.HealthEvent = model.HealthEvent(event)
	obs.Source = model.Source(source)
	return &obs, nil
}

func scanPgPrediction(row scannable) (*model.Prediction, error) {
	var (
		p       model.Prediction
		disease sql.NullString
		outcome sql.NullString
	)
	err := row.Scan(&p.ID, &p.CowID, &p.RiskScore, &disease, &p.Status, &outcome, &p.Timestamp)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, eris.Wrap(err, "postgres: scan prediction")
	}
	p.DominantDisease = model.Disease(disease.String)
	if outcome.Valid {
		p.Outcome = model.Outcome(outcome.String)
	}
	return &p, nil
}
