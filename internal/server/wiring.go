package server

import (
	"context"
	"log/slog"

	"github.com/joseph-ayodele/production-tracker/internal/common"
	"github.com/joseph-ayodele/production-tracker/internal/llm"
	"github.com/joseph-ayodele/production-tracker/internal/llm/openai"
	"github.com/joseph-ayodele/production-tracker/internal/pipeline"
	repo "github.com/joseph-ayodele/production-tracker/internal/repository"
	"github.com/joseph-ayodele/production-tracker/internal/services/production"
)

// Stack is a connected database plus the production service built on it.
type Stack struct {
	DB       *repo.DB
	Pipeline *pipeline.Pipeline
	Service  *production.Service
}

// Close releases the database.
func (s *Stack) Close(logger *slog.Logger) {
	repo.Close(s.DB, logger)
}

// NewStack connects the store and wires repositories, the pipeline and the
// column mapper. The model is only consulted when cfg.AIConfigured().
func NewStack(ctx context.Context, cfg *common.Config, inmem bool, logger *slog.Logger) (*Stack, error) {
	db, err := ConnectDB(ctx, cfg.Database, inmem, logger)
	if err != nil {
		return nil, err
	}

	var mapper llm.ColumnMapper
	if cfg.AIConfigured() {
		mapper = openai.NewClient(openai.ConfigFrom(cfg.LLM), logger)
	} else {
		logger.Info("llm.disabled", "reason", "AI_ENABLED=false or OPENAI_API_KEY unset")
	}

	p := pipeline.New(logger, pipeline.Config{
		AIEnabled: mapper != nil,
		AITimeout: cfg.LLM.MapTimeout,
		Limits: llm.SampleLimits{
			MaxHeaders: cfg.LLM.MaxHeaders,
			MaxRows:    cfg.LLM.SampleRows,
			MaxCellLen: cfg.LLM.MaxCellLen,
		},
	}, mapper)

	svc := production.NewService(production.Config{
		MaxUploadBytes: cfg.Upload.MaxBytes,
		Timeout:        cfg.Upload.Timeout,
	}, p,
		repo.NewItemRepository(db, logger),
		repo.NewUploadRepository(db, logger),
		logger,
	)
	return &Stack{DB: db, Pipeline: p, Service: svc}, nil
}
