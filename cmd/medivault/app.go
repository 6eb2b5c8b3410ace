package main

import (
	"database/sql"
	"fmt"
	"net/http"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"github.com/skchakri/medi-vault/pkg/aitools"
	"github.com/skchakri/medi-vault/pkg/analysis"
	"github.com/skchakri/medi-vault/pkg/blob"
	"github.com/skchakri/medi-vault/pkg/config"
	"github.com/skchakri/medi-vault/pkg/credential"
	"github.com/skchakri/medi-vault/pkg/embedding"
	"github.com/skchakri/medi-vault/pkg/httpclient"
	"github.com/skchakri/medi-vault/pkg/jobs"
	"github.com/skchakri/medi-vault/pkg/llm"
	"github.com/skchakri/medi-vault/pkg/settings"
	"github.com/skchakri/medi-vault/pkg/workflow"
)

// App wires the stores, tool registry and analysis pipeline from a single
// configuration.
type App struct {
	Config      *config.Config
	DB          *sql.DB
	Blobs       *blob.DiskStore
	Settings    settings.Store
	Credentials credential.Store
	Tags        credential.TagStore
	Embeddings  embedding.Store
	Workflows   *workflow.SQLStore
	Requests    llm.RequestLog
	Runtime     *aitools.Runtime
	Tools       *aitools.Registry
	Pipeline    *analysis.Pipeline
	Queue       *jobs.Queue
}

func newApp(cfg *config.Config) (*App, error) {
	db, err := sql.Open(cfg.Database.DriverName(), cfg.Database.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	blobs, err := blob.NewDiskStore(cfg.Blobs.Root)
	if err != nil {
		db.Close()
		return nil, err
	}

	dialect := cfg.Database.Dialect
	settingsStore, err := settings.NewSQLStore(db, dialect)
	if err != nil {
		db.Close()
		return nil, err
	}
	credentials, err := credential.NewSQLStore(db, dialect)
	if err != nil {
		db.Close()
		return nil, err
	}
	tags, err := credential.NewSQLTagStore(db, dialect)
	if err != nil {
		db.Close()
		return nil, err
	}
	embeddings, err := embedding.NewSQLStore(db, dialect)
	if err != nil {
		db.Close()
		return nil, err
	}
	workflows, err := workflow.NewSQLStore(db, dialect)
	if err != nil {
		db.Close()
		return nil, err
	}
	requests, err := llm.NewSQLRequestLog(db, dialect)
	if err != nil {
		db.Close()
		return nil, err
	}

	rt := &aitools.Runtime{Settings: settingsStore, Blobs: blobs}
	httpClient := httpclient.New(
		httpclient.WithHTTPClient(&http.Client{Timeout: cfg.HTTP.TimeoutDuration()}),
	)

	tools, err := aitools.NewDefaultRegistry(aitools.Dependencies{
		Runtime:     rt,
		Embeddings:  embeddings,
		Credentials: credentials,
		Blobs:       blobs,
		HTTP:        httpClient,
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	pipeline := &analysis.Pipeline{
		Runtime:     rt,
		Credentials: credentials,
		Tags:        tags,
		Requests:    requests,
	}

	queue := jobs.NewQueue(
		jobs.WithWorkers(cfg.Jobs.Workers),
		jobs.WithMaxAttempts(cfg.Jobs.MaxAttempts),
		jobs.WithBaseDelay(cfg.Jobs.BaseDelayDuration()),
	)

	return &App{
		Config:      cfg,
		DB:          db,
		Blobs:       blobs,
		Settings:    settingsStore,
		Credentials: credentials,
		Tags:        tags,
		Embeddings:  embeddings,
		Workflows:   workflows,
		Requests:    requests,
		Runtime:     rt,
		Tools:       tools,
		Pipeline:    pipeline,
		Queue:       queue,
	}, nil
}

func (a *App) Close() error {
	return a.DB.Close()
}
