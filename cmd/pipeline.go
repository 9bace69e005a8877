package main

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/avanta-group/claims-cli/internal/coverage"
	"github.com/avanta-group/claims-cli/internal/facts"
	"github.com/avanta-group/claims-cli/internal/ingest"
	"github.com/avanta-group/claims-cli/internal/model"
	"github.com/avanta-group/claims-cli/internal/screening"
	"github.com/avanta-group/claims-cli/internal/store"
	"github.com/avanta-group/claims-cli/pkg/judgment"
)

func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		dsn := cfg.Store.DatabaseURL
		if dsn == "" {
			dsn = "claims.db"
		}
		return store.NewSQLite(dsn)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, nil)
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

// pipelineEnv bundles the wired screening pipeline for commands.
type pipelineEnv struct {
	Store        store.Store
	Schemas      *model.SchemaRegistry
	Aggregator   *facts.Aggregator
	Ingestor     *ingest.Ingestor
	Policy       *model.Policy
	Orchestrator *screening.Orchestrator
}

func (e *pipelineEnv) Close() {
	_ = e.Store.Close()
}

func initPipeline(ctx context.Context) (*pipelineEnv, error) {
	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		st.Close()
		return nil, err
	}

	schemas, err := ingest.LoadSchema(cfg.SchemaPath)
	if err != nil {
		st.Close()
		return nil, err
	}

	tables, err := coverage.LoadTables(cfg.TablesPath)
	if err != nil {
		st.Close()
		return nil, err
	}

	policy, err := screening.LoadPolicy(cfg.PolicyPath)
	if err != nil {
		st.Close()
		return nil, err
	}

	var judge judgment.Matcher
	if cfg.Judgment.Key != "" {
		judge = judgment.NewClient(cfg.Judgment.Key,
			judgment.WithModel(cfg.Judgment.Model),
			judgment.WithMaxTokens(int64(cfg.Judgment.MaxTokens)),
			judgment.WithRequestsPerSec(cfg.Judgment.RequestsPerSec),
		)
	}

	agg := facts.New(st, schemas, cfg.Gate)
	analyzer := coverage.NewAnalyzer(tables, judge, cfg.Coverage)

	return &pipelineEnv{
		Store:        st,
		Schemas:      schemas,
		Aggregator:   agg,
		Ingestor:     ingest.New(st, schemas),
		Policy:       policy,
		Orchestrator: screening.New(st, agg, analyzer, policy, cfg.Screening),
	}, nil
}
