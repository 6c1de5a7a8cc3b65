package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/tauron-farm/tauron/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS observations (
	id           TEXT PRIMARY KEY,
	cow_id       INTEGER NOT NULL,
	yield_kg     REAL,
	pen          TEXT,
	health_event TEXT NOT NULL DEFAULT 'none',
	notes        TEXT,
	source       TEXT NOT NULL,
	recorded_at  DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS predictions (
	id               TEXT PRIMARY KEY,
	cow_id           INTEGER NOT NULL,
	risk_score       REAL NOT NULL,
	dominant_disease TEXT,
	status           TEXT NOT NULL,
	outcome          TEXT,
	recorded_at      DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_observations_cow_id ON observations(cow_id);
CREATE INDEX IF NOT EXISTS idx_observations_recorded_at ON observations(recorded_at);
CREATE INDEX IF NOT EXISTS idx_predictions_cow_id ON predictions(cow_id);
CREATE INDEX IF NOT EXISTS idx_predictions_status ON predictions(status);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) AppendObservation(ctx context.Context, obs model.Observation) (*model.Observation, error) {
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

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO observations (id, cow_id, yield_kg, pen, health_event, notes, source, recorded_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		obs.ID, obs.CowID, yield, obs.Pen, string(obs.HealthEvent), obs.Notes, string(obs.Source), obs.Timestamp,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert observation")
	}
	return &obs, nil
}

func (s *SQLiteStore) ListObservations(ctx context.Context, filter ObservationFilter) ([]model.Observation, error) {
	query := `SELECT id, cow_id, yield_kg, pen, health_event, notes, source, recorded_at FROM observations WHERE 1=1`
	var args []any

	if filter.CowID != 0 {
		query += ` AND cow_id = ?`
		args = append(args, filter.CowID)
	}
	query += ` ORDER BY recorded_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 500
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list observations")
	}
	defer rows.Close()

	var out []model.Observation
	for rows.Next() {
		obs, err := scanObservation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *obs)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list observations iterate")
}

func (s *SQLiteStore) CountObservations(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM observations`).Scan(&n)
	return n, eris.Wrap(err, "sqlite: count observations")
}

func (s *SQLiteStore) AppendPrediction(ctx context.Context, p model.Prediction) (*model.Prediction, error) {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	if p.Timestamp.IsZero() {
		p.Timestamp = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO predictions (id, cow_id, risk_score, dominant_disease, status, outcome, recorded_at)
		 VALUES (?, ?, ?, ?, ?, NULL, ?)`,
		p.ID, p.CowID, p.RiskScore, string(p.DominantDisease), string(p.Status), p.Timestamp,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert prediction")
	}
	return &p, nil
}

func (s *SQLiteStore) ListPredictions(ctx context.Context, filter PredictionFilter) ([]model.Prediction, error) {
	query := `SELECT id, cow_id, risk_score, dominant_disease, status, outcome, recorded_at FROM predictions WHERE 1=1`
	var args []any

	if filter.CowID != 0 {
		query += ` AND cow_id = ?`
		args = append(args, filter.CowID)
	}
	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, filter.Status)
	}
	query += ` ORDER BY recorded_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 500
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list predictions")
	}
	defer rows.Close()

	var out []model.Prediction
	for rows.Next() {
		p, err := scanPrediction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list predictions iterate")
}

func (s *SQLiteStore) GetPrediction(ctx context.Context, id string) (*model.Prediction, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, cow_id, risk_score, dominant_disease, status, outcome, recorded_at FROM predictions WHERE id = ?`,
		id,
	)
	p, err := scanPrediction(row)
	if err == sql.ErrNoRows {
		return nil, ErrPredictionNotFound
	}
	return p, err
}

// SetOutcome marks a prediction's outcome. The WHERE outcome IS NULL guard
// makes set-once atomic at the database level, so concurrent confirmations
// resolve deterministically: exactly one wins, the rest see AlreadySet.
func (s *SQLiteStore) SetOutcome(ctx context.Context, id string, outcome model.Outcome) (*model.Prediction, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE predictions SET outcome = ? WHERE id = ? AND outcome IS NULL`,
		string(outcome), id,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: set outcome %s", id)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: rows affected")
	}
	if n == 0 {
		// Distinguish unknown ID from already-set.
		if _, err := s.GetPrediction(ctx, id); err != nil {
			return nil, err
		}
		return nil, ErrOutcomeAlreadySet
	}
	return s.GetPrediction(ctx, id)
}

// helpers

type scannable interface {
	Scan(dest ...any) error
}

func scanObservation(row scannable) (*model.Observation, error) {
	var (
		obs    model.Observation
		yield  sql.NullFloat64
		pen    sql.NullString
		notes  sql.NullString
		event  string
		source string
	)
	err := row.Scan(&obs.ID, &obs.CowID, &yield, &pen, &event, &notes, &source, &obs.Timestamp)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan observation")
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

func scanPrediction(row scannable) (*model.Prediction, error) {
	var (
		p       model.Prediction
		disease sql.NullString
		outcome sql.NullString
	)
	err := row.Scan(&p.ID, &p.CowID, &p.RiskScore, &disease, &p.Status, &outcome, &p.Timestamp)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan prediction")
	}
	p.DominantDisease = model.Disease(disease.String)
	if outcome.Valid {
		p.Outcome = model.Outcome(outcome.String)
	}
	return &p, nil
}
