package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/production-tracker/internal/common"
	"github.com/joseph-ayodele/production-tracker/internal/llm"
)

// MapColumns implements llm.ColumnMapper using chat/completions in JSON mode.
// Errors wrap common.ErrAIUnavailable, common.ErrAITimeout or common.ErrAIMalformedResponse.
func (c *Client) MapColumns(ctx context.Context, req llm.MappingRequest) (llm.MappingResponse, []byte, error) {
	rid := uuid.New().String()
	start := time.Now()

	c.logger.Info("llm.map.start",
		"req_id", rid,
		"model", c.cfg.Model,
		"temp", c.cfg.Temperature,
		"columns", len(req.Columns),
		"rows", req.TotalRows,
		"filename", req.FilenameHint,
	)

	if c.cfg.APIKey == "" {
		return llm.MappingResponse{}, nil, fmt.Errorf("%w: no api key configured", common.ErrAIUnavailable)
	}

	schema, err := llm.CompileMappingSchema(req.ColumnNames(), req.Stages)
	if err != nil {
		return llm.MappingResponse{}, nil, fmt.Errorf("%w: %v", common.ErrAIUnavailable, err)
	}
	body := map[string]any{
		"model":           c.cfg.Model,
		"temperature":     c.cfg.Temperature,
		"response_format": map[string]any{"type": "json_object"},
		"messages": []map[string]any{
			{"role": "system", "content": llm.BuildSystemPrompt(req)},
			{"role": "user", "content": llm.BuildUserPrompt(req) + "\n\nReturn ONLY JSON that matches the provided schema."},
			{"role": "system", "content": "JSON Schema:\n" + schema.String()},
		},
	}

	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + "/chat/completions"
	headers := map[string]string{"Authorization": "Bearer " + c.cfg.APIKey}
	raw, httpErr := llm.PostJSON(ctx, c.http, llm.Request{
		URL:     endpoint,
		Body:    body,
		Headers: headers,
		Retries: c.cfg.MaxRetries,
	}, c.logger)
	if httpErr != nil {
		err := classify(ctx, httpErr)
		c.logger.Error("llm.map.http_error",
			"req_id", rid, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return llm.MappingResponse{}, raw, err
	}

	var cc struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(raw, &cc); err != nil {
		c.logger.Error("llm.map.decode_error",
			"req_id", rid, "error", err, "raw_bytes", len(raw),
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return llm.MappingResponse{}, raw, fmt.Errorf("%w: decode openai response: %v", common.ErrAIMalformedResponse, err)
	}
	if len(cc.Choices) == 0 {
		c.logger.Error("llm.map.no_choices",
			"req_id", rid, "raw", string(raw),
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return llm.MappingResponse{}, raw, fmt.Errorf("%w: no choices in openai response", common.ErrAIMalformedResponse)
	}
	rawContent := []byte(stripFences(cc.Choices[0].Message.Content))

	// Validate strictly first.
	if err := schema.Check(rawContent); err != nil {
		if !c.cfg.LenientOptional {
			c.logger.Error("llm.map.schema_validation_failed",
				"req_id", rid, "error", err, "content", string(rawContent),
				"elapsed_ms", time.Since(start).Milliseconds(),
			)
			return llm.MappingResponse{}, rawContent, fmt.Errorf("%w: schema validation failed: %v", common.ErrAIMalformedResponse, err)
		}
		// Try a lenient repair: resolve loose column references, drop offenders, re-validate.
		cleaned, dropped, sErr := llm.SanitizeMappingJSON(rawContent, req)
		if sErr != nil {
			c.logger.Error("llm.map.sanitize_failed",
				"req_id", rid, "error", sErr,
				"elapsed_ms", time.Since(start).Milliseconds(),
			)
			return llm.MappingResponse{}, rawContent, fmt.Errorf("%w: sanitize failed: %v", common.ErrAIMalformedResponse, sErr)
		}
		if vErr := schema.Check(cleaned); vErr != nil {
			c.logger.Error("llm.map.schema_validation_failed",
				"req_id", rid, "error", vErr, "content", string(rawContent),
				"elapsed_ms", time.Since(start).Milliseconds(),
			)
			return llm.MappingResponse{}, rawContent, fmt.Errorf("%w: schema validation failed: %v", common.ErrAIMalformedResponse, vErr)
		}
		c.logger.Warn("llm.map.lenient_sanitize_applied",
			"req_id", rid, "dropped", dropped,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		rawContent = cleaned
	}

	var out llm.MappingResponse
	if err := json.Unmarshal(rawContent, &out); err != nil {
		c.logger.Error("llm.map.unmarshal_failed",
			"req_id", rid, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return llm.MappingResponse{}, rawContent, fmt.Errorf("%w: unmarshal mapping: %v", common.ErrAIMalformedResponse, err)
	}

	c.logger.Info("llm.map.ok",
		"req_id", rid,
		"order_number", deref(out.OrderNumber),
		"quantity", deref(out.Quantity),
		"stages", len(out.Timeline),
		"confidence", out.Confidence,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return out, rawContent, nil
}

// classify sorts transport failures into timeout and unavailable.
func classify(ctx context.Context, err error) error {
	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.Is(ctx.Err(), context.DeadlineExceeded):
		return fmt.Errorf("%w: %w", common.ErrAITimeout, err)
	case errors.As(err, &netErr) && netErr.Timeout():
		return fmt.Errorf("%w: %w", common.ErrAITimeout, err)
	default:
		return fmt.Errorf("%w: %w", common.ErrAIUnavailable, err)
	}
}

// stripFences removes a ```json fence some models wrap around JSON mode output.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
