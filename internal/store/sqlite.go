package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/avanta-group/claims-cli/internal/model"
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
CREATE TABLE IF NOT EXISTS claims (
	id            TEXT PRIMARY KEY,
	policy_number TEXT NOT NULL,
	vehicle_vin   TEXT,
	reported_at   DATETIME,
	created_at    DATETIME NOT NULL DEFAULT (datetime('now')),
	latest_run_id TEXT
);

CREATE TABLE IF NOT EXISTS document_runs (
	id           TEXT PRIMARY KEY,
	claim_id     TEXT NOT NULL REFERENCES claims(id),
	doc_id       TEXT NOT NULL,
	doc_type     TEXT NOT NULL,
	status       TEXT NOT NULL DEFAULT 'running',
	artifact     TEXT,
	created_at   DATETIME NOT NULL DEFAULT (datetime('now')),
	completed_at DATETIME
);

CREATE TABLE IF NOT EXISTS screening_runs (
	id         TEXT PRIMARY KEY,
	claim_id   TEXT NOT NULL REFERENCES claims(id),
	status     TEXT NOT NULL DEFAULT 'running',
	result     TEXT,
	error      TEXT,
	created_at DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_document_runs_claim ON document_runs(claim_id);
CREATE INDEX IF NOT EXISTS idx_document_runs_doc ON document_runs(claim_id, doc_id);
CREATE INDEX IF NOT EXISTS idx_screening_runs_claim ON screening_runs(claim_id);
CREATE INDEX IF NOT EXISTS idx_screening_runs_status ON screening_runs(status);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) CreateClaim(ctx context.Context, claim model.Claim) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO claims (id, policy_number, vehicle_vin, reported_at, created_at) VALUES (?, ?, ?, ?, ?)`,
		claim.ID, claim.PolicyNumber, claim.VehicleVIN, claim.ReportedAt.UTC(), claim.CreatedAt.UTC(),
	)
	return eris.Wrapf(err, "sqlite: insert claim %s", claim.ID)
}

func (s *SQLiteStore) GetClaim(ctx context.Context, claimID string) (*model.Claim, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, policy_number, vehicle_vin, reported_at, created_at FROM claims WHERE id = ?`,
		claimID,
	)
	var c model.Claim
	var vin sql.NullString
	err := row.Scan(&c.ID, &c.PolicyNumber, &vin, &c.ReportedAt, &c.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, eris.Errorf("claim not found: %s", claimID)
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan claim")
	}
	c.VehicleVIN = vin.String
	return &c, nil
}

func (s *SQLiteStore) ListClaims(ctx context.Context, limit, offset int) ([]model.Claim, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, policy_number, vehicle_vin, reported_at, created_at FROM claims
		 ORDER BY created_at DESC LIMIT ? OFFSET ?`,
		limit, offset,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list claims")
	}
	defer rows.Close()

	var claims []model.Claim
	for rows.Next() {
		var c model.Claim
		var vin sql.NullString
		if err := rows.Scan(&c.ID, &c.PolicyNumber, &vin, &c.ReportedAt, &c.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan claim")
		}
		c.VehicleVIN = vin.String
		claims = append(claims, c)
	}
	return claims, eris.Wrap(rows.Err(), "sqlite: list claims iterate")
}

func (s *SQLiteStore) CreateDocumentRun(ctx context.Context, claimID, docID string, docType model.DocType) (*model.DocumentRun, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO document_runs (id, claim_id, doc_id, doc_type, status, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		id, claimID, docID, string(docType), string(model.RunStatusRunning), now,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: insert document run for %s", docID)
	}

	return &model.DocumentRun{
		ID:        id,
		ClaimID:   claimID,
		DocID:     docID,
		DocType:   docType,
		Status:    model.RunStatusRunning,
		CreatedAt: now,
	}, nil
}

func (s *SQLiteStore) CompleteDocumentRun(ctx context.Context, runID string, artifact *model.ExtractionArtifact) error {
	artifactJSON, err := json.Marshal(artifact)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal artifact")
	}
	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx,
		`UPDATE document_runs SET status = ?, artifact = ?, completed_at = ? WHERE id = ?`,
		string(model.RunStatusComplete), string(artifactJSON), now, runID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: complete document run %s", runID)
	}
	return checkRowsAffected(res, "document run", runID)
}

func (s *SQLiteStore) FailDocumentRun(ctx context.Context, runID string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE document_runs SET status = ? WHERE id = ?`,
		string(model.RunStatusFailed), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: fail document run %s", runID)
	}
	return checkRowsAffected(res, "document run", runID)
}

func (s *SQLiteStore) ListDocumentRuns(ctx context.Context, claimID string) ([]model.DocumentRun, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, claim_id, doc_id, doc_type, status, artifact, created_at, completed_at
		 FROM document_runs WHERE claim_id = ? ORDER BY created_at ASC, id ASC`,
		claimID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list document runs")
	}
	defer rows.Close()

	var runs []model.DocumentRun
	for rows.Next() {
		var r model.DocumentRun
		var artifactJSON sql.NullString
		var completedAt sql.NullTime
		if err := rows.Scan(&r.ID, &r.ClaimID, &r.DocID, &r.DocType, &r.Status, &artifactJSON, &r.CreatedAt, &completedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan document run")
		}
		if artifactJSON.Valid {
			r.Artifact = &model.ExtractionArtifact{}
			if err := json.Unmarshal([]byte(artifactJSON.String), r.Artifact); err != nil {
				return nil, eris.Wrap(err, "sqlite: unmarshal artifact")
			}
		}
		if completedAt.Valid {
			t := completedAt.Time
			r.CompletedAt = &t
		}
		runs = append(runs, r)
	}
	return runs, eris.Wrap(rows.Err(), "sqlite: list document runs iterate")
}

func (s *SQLiteStore) CreateScreeningRun(ctx context.Context, claimID string) (*model.ScreeningRun, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO screening_runs (id, claim_id, status, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		id, claimID, string(model.RunStatusRunning), now, now,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: insert screening run for %s", claimID)
	}

	return &model.ScreeningRun{
		ID:        id,
		ClaimID:   claimID,
		Status:    model.RunStatusRunning,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// CompleteScreeningRun writes the result and flips the claim's latest-run
// pointer in one transaction, so readers never observe a half-updated pair.
func (s *SQLiteStore) CompleteScreeningRun(ctx context.Context, runID string, result *model.ScreeningResult) error {
	resultJSON, err := json.Marshal(result)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal result")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin tx")
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	res, err := tx.ExecContext(ctx,
		`UPDATE screening_runs SET status = ?, result = ?, updated_at = ? WHERE id = ?`,
		string(model.RunStatusComplete), string(resultJSON), now, runID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: complete screening run %s", runID)
	}
	if err := checkRowsAffected(res, "screening run", runID); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE claims SET latest_run_id = ? WHERE id = ?`,
		runID, result.ClaimID,
	); err != nil {
		return eris.Wrapf(err, "sqlite: update latest pointer for %s", result.ClaimID)
	}

	return eris.Wrap(tx.Commit(), "sqlite: commit screening run")
}

func (s *SQLiteStore) FailScreeningRun(ctx context.Context, runID string, errMsg string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE screening_runs SET status = ?, error = ?, updated_at = ? WHERE id = ?`,
		string(model.RunStatusFailed), errMsg, time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: fail screening run %s", runID)
	}
	return checkRowsAffected(res, "screening run", runID)
}

func (s *SQLiteStore) GetScreeningRun(ctx context.Context, runID string) (*model.ScreeningRun, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, claim_id, status, result, error, created_at, updated_at FROM screening_runs WHERE id = ?`,
		runID,
	)
	return scanScreeningRun(row)
}

func (s *SQLiteStore) ListScreeningRuns(ctx context.Context, filter RunFilter) ([]model.ScreeningRun, error) {
	query := `SELECT id, claim_id, status, result, error, created_at, updated_at FROM screening_runs WHERE 1=1`
	var args []any

	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	if filter.ClaimID != "" {
		query += ` AND claim_id = ?`
		args = append(args, filter.ClaimID)
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list screening runs")
	}
	defer rows.Close()

	var runs []model.ScreeningRun
	for rows.Next() {
		r, err := scanScreeningRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *r)
	}
	return runs, eris.Wrap(rows.Err(), "sqlite: list screening runs iterate")
}

func (s *SQLiteStore) LatestScreeningRun(ctx context.Context, claimID string) (*model.ScreeningRun, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT r.id, r.claim_id, r.status, r.result, r.error, r.created_at, r.updated_at
		 FROM screening_runs r JOIN claims c ON c.latest_run_id = r.id
		 WHERE c.id = ?`,
		claimID,
	)
	run, err := scanScreeningRun(row)
	if err != nil && eris.Is(err, errRunNotFound) {
		return nil, nil
	}
	return run, err
}

// helpers

var errRunNotFound = eris.New("screening run not found")

func checkRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Errorf("%s not found: %s", entity, id)
	}
	return nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanScreeningRun(row scannable) (*model.ScreeningRun, error) {
	var r model.ScreeningRun
	var resultJSON, errMsg sql.NullString

	err := row.Scan(&r.ID, &r.ClaimID, &r.Status, &resultJSON, &errMsg, &r.CreatedAt, &r.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, errRunNotFound
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan screening run")
	}

	if resultJSON.Valid {
		r.Result = &model.ScreeningResult{}
		if err := json.Unmarshal([]byte(resultJSON.String), r.Result); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal result")
		}
	}
	r.Error = errMsg.String
	return &r, nil
}
