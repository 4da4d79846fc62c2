package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/production-tracker/constants"
	"github.com/joseph-ayodele/production-tracker/internal/common"
	"github.com/joseph-ayodele/production-tracker/internal/entity"
	"github.com/joseph-ayodele/production-tracker/internal/extract"
	"github.com/joseph-ayodele/production-tracker/internal/llm"
	"github.com/joseph-ayodele/production-tracker/internal/sanitize"
	"github.com/joseph-ayodele/production-tracker/internal/validate"
	"github.com/joseph-ayodele/production-tracker/internal/workbook"
)

// Config holds the mapping budget and sampling limits.
type Config struct {
	AIEnabled bool
	AITimeout time.Duration // default 10s
	Limits    llm.SampleLimits
}

// Upload is one workbook handed to the pipeline.
type Upload struct {
	ID       uuid.UUID
	Filename string
	Data     []byte
}

// Result is everything a finished upload produced. Items are ready to persist.
type Result struct {
	Items          []*entity.ProductionItem
	ParsingMethod  constants.ParsingMethod
	RejectedCount  int
	Stats          validate.Stats
	Mapping        map[string]string // field -> header, for the upload record
	FallbackReason error             // set when the model was tried and the heuristic took over
	Anomalies      int
	States         []State
	Elapsed        time.Duration
}

// Pipeline turns workbook bytes into validated, sanitized items. It holds no
// per-upload state and is safe for concurrent use.
type Pipeline struct {
	Logger *slog.Logger
	Cfg    Config
	Mapper llm.ColumnMapper // nil means heuristic only
}

func New(logger *slog.Logger, cfg Config, mapper llm.ColumnMapper) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.AITimeout <= 0 {
		cfg.AITimeout = 10 * time.Second
	}
	return &Pipeline{Logger: logger, Cfg: cfg, Mapper: mapper}
}

// Process runs one upload through the state machine. The only errors are
// common.ErrMalformedWorkbook and the context's own error when the caller
// gives up; every model failure ends in the heuristic instead.
func (p *Pipeline) Process(ctx context.Context, up Upload) (Result, error) {
	start := time.Now()
	tr := newTrace()
	log := p.Logger.With("upload_id", up.ID, "filename", up.Filename)
	if rid := common.RequestIDFromContext(ctx); rid != "" {
		log = log.With("req_id", rid)
	}

	fail := func(err error) (Result, error) {
		tr.to(StateFailed)
		log.Warn("pipeline.failed",
			"state", string(tr.states[len(tr.states)-2]),
			"error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return Result{States: tr.states, Elapsed: time.Since(start)}, err
	}

	if err := ctx.Err(); err != nil {
		return fail(err)
	}

	sheet, err := workbook.Decode(up.Data)
	if err != nil {
		return fail(err)
	}
	tr.to(StateParsed)
	headers := extract.NormalizeHeaders(sheet.Headers)
	log.Info("pipeline.parsed",
		"sheet", sheet.Name,
		"header_row", sheet.HeaderRow,
		"columns", len(headers),
		"rows", len(sheet.Rows),
	)

	var (
		mapping  extract.ColumnMapping
		fallback error
	)
	if p.Mapper != nil && p.Cfg.AIEnabled {
		tr.to(StateAttemptingAI)
		m, aiErr := p.mapWithAI(ctx, log, up, sheet, headers)
		if err := ctx.Err(); err != nil {
			return fail(err)
		}
		if aiErr == nil {
			tr.to(StateAISucceeded)
			mapping = m
		} else {
			tr.to(StateAIFailed)
			fallback = aiErr
			log.Warn("pipeline.ai.fallback", "reason", fallbackReason(aiErr), "error", aiErr)
		}
	}
	if mapping.Fields == nil {
		tr.to(StateHeuristic)
		mapping = extract.ResolveHeuristic(headers)
		if !mapping.HasRequired() {
			log.Warn("pipeline.heuristic.incomplete", "mapping", mapping.Describe(headers))
		}
	}

	cands := extract.NewExtractor(headers, mapping, log).ExtractAll(sheet.Rows)
	if err := ctx.Err(); err != nil {
		return fail(err)
	}

	accepted, stats := validate.Filter(cands, log)
	tr.to(StateValidated)

	items, anomalies := toItems(up.ID, mapping.Strategy, accepted)
	tr.to(StateSanitized)
	if anomalies > 0 {
		log.Warn("pipeline.sanitize.anomalies", "count", anomalies)
	}

	tr.to(StateComplete)
	res := Result{
		Items:          items,
		ParsingMethod:  mapping.Strategy,
		RejectedCount:  stats.Rejected,
		Stats:          stats,
		Mapping:        mapping.Describe(headers),
		FallbackReason: fallback,
		Anomalies:      anomalies,
		States:         tr.states,
		Elapsed:        time.Since(start),
	}
	log.Info("pipeline.complete", append([]any{
		"method", string(res.ParsingMethod),
		"elapsed_ms", res.Elapsed.Milliseconds(),
	}, stats.Attrs()...)...)
	return res, nil
}

// mapWithAI asks the model for a column mapping under the configured budget.
// A mapper that ignores its context is abandoned when the budget runs out.
func (p *Pipeline) mapWithAI(ctx context.Context, log *slog.Logger, up Upload, sheet *workbook.Sheet, headers []string) (extract.ColumnMapping, error) {
	req := llm.NewMappingRequest(up.Filename, sheet, headers, p.Cfg.Limits)
	aiCtx, cancel := context.WithTimeout(ctx, p.Cfg.AITimeout)
	defer cancel()

	type answer struct {
		resp llm.MappingResponse
		err  error
	}
	done := make(chan answer, 1)
	go func() {
		resp, _, err := p.Mapper.MapColumns(aiCtx, req)
		done <- answer{resp: resp, err: err}
	}()

	var a answer
	select {
	case a = <-done:
	case <-aiCtx.Done():
		a.err = aiCtx.Err()
	}
	if a.err != nil {
		return extract.ColumnMapping{}, aiError(a.err)
	}

	m, err := llm.ResolveMapping(a.resp, req)
	if err != nil {
		return extract.ColumnMapping{}, err
	}
	log.Info("pipeline.ai.mapped", "mapping", m.Describe(headers), "confidence", a.resp.Confidence)
	return m, nil
}

// aiError makes sure every model failure carries one of the AI sentinels.
func aiError(err error) error {
	switch {
	case errors.Is(err, common.ErrAITimeout), errors.Is(err, common.ErrAIUnavailable), errors.Is(err, common.ErrAIMalformedResponse):
		return err
	case errors.Is(err, context.DeadlineExceeded):
		return errors.Join(common.ErrAITimeout, err)
	default:
		return errors.Join(common.ErrAIUnavailable, err)
	}
}

func fallbackReason(err error) string {
	switch {
	case errors.Is(err, common.ErrAITimeout):
		return "timeout"
	case errors.Is(err, common.ErrAIMalformedResponse):
		return "malformed_response"
	default:
		return "unavailable"
	}
}

func toItems(uploadID uuid.UUID, method constants.ParsingMethod, cands []extract.Candidate) ([]*entity.ProductionItem, int) {
	items := make([]*entity.ProductionItem, 0, len(cands))
	anomalies := 0
	for _, c := range cands {
		raw, n := sanitize.Document(c.RawContext)
		anomalies += n
		rawCtx, _ := raw.(map[string]any)
		items = append(items, &entity.ProductionItem{
			UploadID:      uploadID,
			SourceRow:     c.Row,
			OrderNumber:   c.OrderNumber,
			Style:         c.Style,
			Fabric:        c.Fabric,
			Color:         c.Color,
			Quantity:      *c.Quantity,
			Status:        c.Status,
			Timeline:      c.Timeline,
			RawContext:    rawCtx,
			ParsingMethod: method,
		})
	}
	return items, anomalies
}
