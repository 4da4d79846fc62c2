package production

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/production-tracker/constants"
	"github.com/joseph-ayodele/production-tracker/internal/common"
	"github.com/joseph-ayodele/production-tracker/internal/export"
	"github.com/joseph-ayodele/production-tracker/internal/llm"
	"github.com/joseph-ayodele/production-tracker/internal/pipeline"
	"github.com/joseph-ayodele/production-tracker/internal/repository"
)

type harness struct {
	svc     *Service
	items   repository.ItemRepository
	uploads repository.UploadRepository
}

func newHarness(t *testing.T, cfg Config, mapper llm.ColumnMapper) harness {
	t.Helper()
	ctx := context.Background()
	db, err := repository.Open(ctx, repository.Config{Driver: repository.DriverSQLite, DSN: ":memory:"}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { repository.Close(db, nil) })
	require.NoError(t, repository.Migrate(ctx, db, nil))

	items := repository.NewItemRepository(db, nil)
	uploads := repository.NewUploadRepository(db, nil)
	p := pipeline.New(nil, pipeline.Config{AIEnabled: mapper != nil, AITimeout: time.Second}, mapper)
	return harness{svc: NewService(cfg, p, items, uploads, nil), items: items, uploads: uploads}
}

func workbookBytes(t *testing.T, rows ...[]any) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()
	for i := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &rows[i]))
	}
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}

func orders(t *testing.T) []byte {
	return workbookBytes(t,
		[]any{"Order No", "Qty", "Style", "Cutting Date", "Shipping Date"},
		[]any{"A-126", "500 pcs", "Polo", "01/01/2025", ""},
		[]any{"A-127", 40, "", "2025-01-02", "2025-01-20"},
		[]any{"nan", 10},
		[]any{"A-129", "lots"},
	)
}

func TestSubmitUpload_StoresAcceptedItems(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, Config{}, nil)

	res, err := h.svc.SubmitUpload(ctx, "week12.xlsx", orders(t))
	require.NoError(t, err)
	assert.Equal(t, 2, res.ItemsSaved)
	assert.Equal(t, 2, res.RejectedCount)
	assert.Equal(t, constants.ParsingMethodHeuristic, res.ParsingMethod)
	assert.Positive(t, res.ProcessingTime)

	doc := res.Document()
	assert.Equal(t, res.UploadID, doc["upload_id"])
	assert.IsType(t, float64(0), doc["processing_time"])

	items, err := h.svc.ListItems(ctx)
	require.NoError(t, err)
	require.Len(t, items, 2)

	first := items[0]
	assert.Equal(t, "A-126", first["order_number"])
	assert.Equal(t, int64(500), first["quantity"])
	assert.Equal(t, "Polo", first["style"])
	assert.Nil(t, first["fabric"])
	assert.Equal(t, "in_production", first["status"])
	assert.Equal(t, "heuristic", first["parsing_method"])
	assert.Equal(t, res.UploadID.String(), first["upload_id"])
	assert.Equal(t, map[string]any{"cutting": "2025-01-01", "shipping": nil}, first["timeline"])
	assert.IsType(t, "", first["id"])
	assert.IsType(t, "", first["created_at"])

	second := items[1]
	assert.Equal(t, "A-127", second["order_number"])
	assert.Nil(t, second["style"])
	assert.Equal(t, "completed", second["status"])

	ups, err := h.svc.ListUploads(ctx)
	require.NoError(t, err)
	require.Len(t, ups, 1)
	assert.Equal(t, "COMPLETE", ups[0]["status"])
	assert.Equal(t, "week12.xlsx", ups[0]["filename"])
	assert.Equal(t, int64(2), ups[0]["items_saved"])
	assert.Len(t, ups[0]["content_hash"], 64)
}

func TestSubmitUpload_AIMapping(t *testing.T) {
	m := mapperFunc(func(context.Context, llm.MappingRequest) (llm.MappingResponse, []byte, error) {
		order, qty := "order_no", "qty"
		return llm.MappingResponse{OrderNumber: &order, Quantity: &qty}, nil, nil
	})
	h := newHarness(t, Config{}, m)

	res, err := h.svc.SubmitUpload(context.Background(), "week12.xlsx", orders(t))
	require.NoError(t, err)
	assert.Equal(t, constants.ParsingMethodAI, res.ParsingMethod)
	assert.Equal(t, 2, res.ItemsSaved)

	items, err := h.svc.ListItems(context.Background())
	require.NoError(t, err)
	for _, it := range items {
		assert.Equal(t, "ai", it["parsing_method"])
		assert.Nil(t, it["style"])
	}
}

type mapperFunc func(context.Context, llm.MappingRequest) (llm.MappingResponse, []byte, error)

func (f mapperFunc) MapColumns(ctx context.Context, req llm.MappingRequest) (llm.MappingResponse, []byte, error) {
	return f(ctx, req)
}

func TestSubmitUpload_Rejections(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, Config{MaxUploadBytes: 64}, nil)

	_, err := h.svc.SubmitUpload(ctx, "orders.csv", []byte("a,b"))
	assert.ErrorIs(t, err, common.ErrUnsupportedFile)

	_, err = h.svc.SubmitUpload(ctx, "", []byte("a"))
	assert.ErrorIs(t, err, common.ErrUnsupportedFile)

	_, err = h.svc.SubmitUpload(ctx, "big.xlsx", bytes.Repeat([]byte("x"), 65))
	assert.ErrorIs(t, err, common.ErrUploadTooLarge)

	ups, err := h.uploads.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, ups, "rejected input never reaches the history")
}

func TestSubmitUpload_MalformedWorkbook(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, Config{}, nil)

	_, err := h.svc.SubmitUpload(ctx, "legacy.xls", []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1})
	require.ErrorIs(t, err, common.ErrMalformedWorkbook)

	n, err := h.items.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	ups, err := h.uploads.List(ctx)
	require.NoError(t, err)
	require.Len(t, ups, 1)
	assert.Equal(t, constants.UploadStatusFailed, ups[0].Status)
	require.NotNil(t, ups[0].ErrorMessage)
	assert.Contains(t, *ups[0].ErrorMessage, "malformed workbook")
}

func TestSubmitUpload_CancelledPersistsNothing(t *testing.T) {
	h := newHarness(t, Config{}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := h.svc.SubmitUpload(ctx, "week12.xlsx", orders(t))
	require.ErrorIs(t, err, context.Canceled)

	n, err := h.items.Count(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestSubmitUpload_HeaderOnly(t *testing.T) {
	h := newHarness(t, Config{}, nil)
	res, err := h.svc.SubmitUpload(context.Background(), "empty.xlsx", workbookBytes(t, []any{"Order No", "Qty"}))
	require.NoError(t, err)
	assert.Zero(t, res.ItemsSaved)
	assert.Zero(t, res.RejectedCount)
}

func TestReset(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, Config{}, nil)
	_, err := h.svc.SubmitUpload(ctx, "a.xlsx", orders(t))
	require.NoError(t, err)
	_, err = h.svc.SubmitUpload(ctx, "b.xlsm", orders(t))
	require.NoError(t, err)

	res, err := h.svc.Reset(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, res.DeletedCount)

	items, err := h.svc.ListItems(ctx)
	require.NoError(t, err)
	assert.Empty(t, items)

	res, err = h.svc.Reset(ctx)
	require.NoError(t, err)
	assert.Zero(t, res.DeletedCount)

	ups, err := h.svc.ListUploads(ctx)
	require.NoError(t, err)
	assert.Len(t, ups, 2)
}

func TestExportItems(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, Config{}, nil)
	_, err := h.svc.SubmitUpload(ctx, "a.xlsx", orders(t))
	require.NoError(t, err)

	data, err := h.svc.ExportItems(ctx)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer func() { _ = f.Close() }()
	rows, err := f.GetRows(export.SheetName)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "A-126", rows[1][0])
	assert.Equal(t, "A-127", rows[2][0])
}
