package store

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/avanta-group/claims-cli/internal/model"
)

// Pool is the subset of pgxpool.Pool the store uses. pgxmock satisfies it,
// which keeps the Postgres store unit-testable without a live database.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
	Ping(ctx context.Context) error
	Close()
}

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool Pool
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
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

const postgresMigration = `
CREATE TABLE IF NOT EXISTS claims (
	id            TEXT PRIMARY KEY,
	policy_number TEXT NOT NULL,
	vehicle_vin   TEXT,
	reported_at   TIMESTAMPTZ,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
	latest_run_id TEXT
);

CREATE TABLE IF NOT EXISTS document_runs (
	id           TEXT PRIMARY KEY,
	claim_id     TEXT NOT NULL REFERENCES claims(id),
	doc_id       TEXT NOT NULL,
	doc_type     TEXT NOT NULL,
	status       TEXT NOT NULL DEFAULT 'running',
	artifact     JSONB,
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
	completed_at TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS screening_runs (
	id         TEXT PRIMARY KEY,
	claim_id   TEXT NOT NULL REFERENCES claims(id),
	status     TEXT NOT NULL DEFAULT 'running',
	result     JSONB,
	error      TEXT,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_document_runs_claim ON document_runs(claim_id);
CREATE INDEX IF NOT EXISTS idx_document_runs_doc ON document_runs(claim_id, doc_id);
CREATE INDEX IF NOT EXISTS idx_screening_runs_claim ON screening_runs(claim_id);
CREATE INDEX IF NOT EXISTS idx_screening_runs_status ON screening_runs(status);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) CreateClaim(ctx context.Context, claim model.Claim) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO claims (id, policy_number, vehicle_vin, reported_at, created_at) VALUES ($1, $2, $3, $4, $5)`,
		claim.ID, claim.PolicyNumber, claim.VehicleVIN, claim.ReportedAt.UTC(), claim.CreatedAt.UTC(),
	)
	return eris.Wrapf(err, "postgres: insert claim %s", claim.ID)
}

func (s *PostgresStore) GetClaim(ctx context.Context, claimID string) (*model.Claim, error) {
	var c model.Claim
	var vin *string
	err := s.pool.QueryRow(ctx,
		`SELECT id, policy_number, vehicle_vin, reported_at, created_at FROM claims WHERE id = $1`,
		claimID,
	).Scan(&c.ID, &c.PolicyNumber, &vin, &c.ReportedAt, &c.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Errorf("claim not found: %s", claimID)
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: get claim")
	}
	if vin != nil {
		c.VehicleVIN = *vin
	}
	return &c, nil
}

func (s *PostgresStore) ListClaims(ctx context.Context, limit, offset int) ([]model.Claim, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id, policy_number, vehicle_vin, reported_at, created_at FROM claims
		 ORDER BY created_at DESC LIMIT $1 OFFSET $2`,
		limit, offset,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list claims")
	}
	defer rows.Close()

	var claims []model.Claim
	for rows.Next() {
		var c model.Claim
		var vin *string
		if err := rows.Scan(&c.ID, &c.PolicyNumber, &vin, &c.ReportedAt, &c.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan claim")
		}
		if vin != nil {
			c.VehicleVIN = *vin
		}
		claims = append(claims, c)
	}
	return claims, eris.Wrap(rows.Err(), "postgres: list claims iterate")
}

func (s *PostgresStore) CreateDocumentRun(ctx context.Context, claimID, docID string, docType model.DocType) (*model.DocumentRun, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.pool.Exec(ctx,
		`INSERT INTO document_runs (id, claim_id, doc_id, doc_type, status, created_at) VALUES ($1, $2, $3, $4, $5, $6)`,
		id, claimID, docID, string(docType), string(model.RunStatusRunning), now,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: insert document run for %s", docID)
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

func (s *PostgresStore) CompleteDocumentRun(ctx context.Context, runID string, artifact *model.ExtractionArtifact) error {
	artifactJSON, err := json.Marshal(artifact)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal artifact")
	}
	tag, err := s.pool.Exec(ctx,
		`UPDATE document_runs SET status = $1, artifact = $2, completed_at = $3 WHERE id = $4`,
		string(model.RunStatusComplete), artifactJSON, time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: complete document run %s", runID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("document run not found: %s", runID)
	}
	return nil
}

func (s *PostgresStore) FailDocumentRun(ctx context.Context, runID string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE document_runs SET status = $1 WHERE id = $2`,
		string(model.RunStatusFailed), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: fail document run %s", runID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("document run not found: %s", runID)
	}
	return nil
}

func (s *PostgresStore) ListDocumentRuns(ctx context.Context, claimID string) ([]model.DocumentRun, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, claim_id, doc_id, doc_type, status, artifact, created_at, completed_at
		 FROM document_runs WHERE claim_id = $1 ORDER BY created_at ASC, id ASC`,
		claimID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list document runs")
	}
	defer rows.Close()

	var runs []model.DocumentRun
	for rows.Next() {
		var r model.DocumentRun
		var artifactJSON []byte
		if err := rows.Scan(&r.ID, &r.ClaimID, &r.DocID, &r.DocType, &r.Status, &artifactJSON, &r.CreatedAt, &r.CompletedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan document run")
		}
		if len(artifactJSON) > 0 {
			r.Artifact = &model.ExtractionArtifact{}
			if err := json.Unmarshal(artifactJSON, r.Artifact); err != nil {
				return nil, eris.Wrap(err, "postgres: unmarshal artifact")
			}
		}
		runs = append(runs, r)
	}
	return runs, eris.Wrap(rows.Err(), "postgres: list document runs iterate")
}

func (s *PostgresStore) CreateScreeningRun(ctx context.Context, claimID string) (*model.ScreeningRun, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.pool.Exec(ctx,
		`INSERT INTO screening_runs (id, claim_id, status, created_at, updated_at) VALUES ($1, $2, $3, $4, $5)`,
		id, claimID, string(model.RunStatusRunning), now, now,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: insert screening run for %s", claimID)
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
// pointer in one transaction.
func (s *PostgresStore) CompleteScreeningRun(ctx context.Context, runID string, result *model.ScreeningResult) error {
	resultJSON, err := json.Marshal(result)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal result")
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "postgres: begin tx")
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx,
		`UPDATE screening_runs SET status = $1, result = $2, updated_at = $3 WHERE id = $4`,
		string(model.RunStatusComplete), resultJSON, time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: complete screening run %s", runID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("screening run not found: %s", runID)
	}

	if _, err := tx.Exec(ctx,
		`UPDATE claims SET latest_run_id = $1 WHERE id = $2`,
		runID, result.ClaimID,
	); err != nil {
		return eris.Wrapf(err, "postgres: update latest pointer for %s", result.ClaimID)
	}

	return eris.Wrap(tx.Commit(ctx), "postgres: commit screening run")
}

func (s *PostgresStore) FailScreeningRun(ctx context.Context, runID string, errMsg string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE screening_runs SET status = $1, error = $2, updated_at = $3 WHERE id = $4`,
		string(model.RunStatusFailed), errMsg, time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: fail screening run %s", runID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("screening run not found: %s", runID)
	}
	return nil
}

func (s *PostgresStore) GetScreeningRun(ctx context.Context, runID string) (*model.ScreeningRun, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, claim_id, status, result, error, created_at, updated_at FROM screening_runs WHERE id = $1`,
		runID,
	)
	run, err := scanPgScreeningRun(row)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get screening run %s", runID)
	}
	return run, nil
}

func (s *PostgresStore) ListScreeningRuns(ctx context.Context, filter RunFilter) ([]model.ScreeningRun, error) {
	query := `SELECT id, claim_id, status, result, error, created_at, updated_at FROM screening_runs WHERE 1=1`
	var args []any
	arg := func(v any) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}

	if filter.Status != "" {
		query += ` AND status = ` + arg(string(filter.Status))
	}
	if filter.ClaimID != "" {
		query += ` AND claim_id = ` + arg(filter.ClaimID)
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ` + arg(limit)
	if filter.Offset > 0 {
		query += ` OFFSET ` + arg(filter.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list screening runs")
	}
	defer rows.Close()

	var runs []model.ScreeningRun
	for rows.Next() {
		r, err := scanPgScreeningRun(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan screening run")
		}
		runs = append(runs, *r)
	}
	return runs, eris.Wrap(rows.Err(), "postgres: list screening runs iterate")
}

func (s *PostgresStore) LatestScreeningRun(ctx context.Context, claimID string) (*model.ScreeningRun, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT r.id, r.claim_id, r.status, r.result, r.error, r.created_at, r.updated_at
		 FROM screening_runs r JOIN claims c ON c.latest_run_id = r.id
		 WHERE c.id = $1`,
		claimID,
	)
	run, err := scanPgScreeningRun(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: latest screening run for %s", claimID)
	}
	return run, nil
}

func scanPgScreeningRun(row pgx.Row) (*model.ScreeningRun, error) {
	var r model.ScreeningRun
	var resultJSON []byte
	var errMsg *string

	if err := row.Scan(&r.ID, &r.ClaimID, &r.Status, &resultJSON, &errMsg, &r.CreatedAt, &r.UpdatedAt); err != nil {
		return nil, err
	}
	if len(resultJSON) > 0 {
		r.Result = &model.ScreeningResult{}
		if err := json.Unmarshal(resultJSON, r.Result); err != nil {
			return nil, eris.Wrap(err, "unmarshal result")
		}
	}
	if errMsg != nil {
		r.Error = *errMsg
	}
	return &r, nil
}
