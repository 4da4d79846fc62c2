package server

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/production-tracker/constants"
	"github.com/joseph-ayodele/production-tracker/internal/common"
)

func TestNewStack_WithoutAI(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	cfg := &common.Config{
		LLM:    common.LLMConfig{Enabled: true, MapTimeout: time.Second},
		Upload: common.UploadConfig{MaxBytes: 1 << 20},
	}
	s, err := NewStack(ctx, cfg, true, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	defer s.Close(nil)

	res, err := s.Service.SubmitUpload(ctx, "week.xlsx", sheet(t,
		[]any{"PO Number", "Order Qty"},
		[]any{"P-9", 40},
	))
	require.NoError(t, err)
	assert.Equal(t, constants.ParsingMethodHeuristic, res.ParsingMethod, "no api key means no model call")
	assert.Equal(t, 1, res.ItemsSaved)

	items, err := s.Service.ListItems(ctx)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "P-9", items[0]["order_number"])
}
