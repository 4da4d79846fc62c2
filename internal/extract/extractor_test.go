package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/production-tracker/constants"
	"github.com/joseph-ayodele/production-tracker/internal/workbook"
)

func row(idx int, vals ...string) workbook.Row {
	cells := make([]workbook.Cell, len(vals))
	for i, v := range vals {
		cells[i] = workbook.Cell{Text: v, Raw: v}
	}
	return workbook.Row{Index: idx, Cells: cells}
}

func TestExtractRowExample(t *testing.T) {
	headers := NormalizeHeaders([]string{"Order No", "Qty", "Cutting Date", "Shipping Date"})
	ex := NewExtractor(headers, ResolveHeuristic(headers), nil)

	c := ex.ExtractRow(row(2, "A-126", "500 pcs", "01/01/2025", ""))

	assert.Equal(t, 2, c.Row)
	assert.Equal(t, "A-126", c.OrderNumber)
	require.NotNil(t, c.Quantity)
	assert.Equal(t, 500.0, *c.Quantity)
	assert.Equal(t, map[string]*string{"cutting": ptr("2025-01-01"), "shipping": nil}, c.Timeline)
	assert.Equal(t, constants.ItemStatusInProduction, c.Status)
	assert.Equal(t, "500 pcs", c.RawFields[FieldQuantity])
	assert.Equal(t, "A-126", c.RawContext["order_no"])
	assert.Nil(t, c.RawContext["shipping_date"])
}

func TestExtractRowCuttingOnlySheet(t *testing.T) {
	headers := NormalizeHeaders([]string{"Order No", "Qty", "Cutting Date"})
	ex := NewExtractor(headers, ResolveHeuristic(headers), nil)

	c := ex.ExtractRow(row(2, "A-1", "10", "01/01/2025"))
	assert.Len(t, c.Timeline, 1)
	assert.Equal(t, constants.ItemStatusInProduction, c.Status)
}

func TestExtractRowNeverFails(t *testing.T) {
	headers := NormalizeHeaders([]string{"Order No", "Qty", "Colour"})
	ex := NewExtractor(headers, ResolveHeuristic(headers), nil)

	c := ex.ExtractRow(row(3, "None"))
	assert.Empty(t, c.OrderNumber)
	assert.Nil(t, c.Quantity)
	assert.Empty(t, c.Color)
	assert.Equal(t, "None", c.RawFields[FieldOrderNumber])
	assert.Equal(t, constants.ItemStatusPending, c.Status)

	c = ex.ExtractRow(row(4, "B-2", "abc", "n/a"))
	assert.Equal(t, "B-2", c.OrderNumber)
	assert.Nil(t, c.Quantity)
	assert.Empty(t, c.Color)
}

func TestExtractAll(t *testing.T) {
	headers := NormalizeHeaders([]string{"PO", "Quantity"})
	ex := NewExtractor(headers, ResolveHeuristic(headers), nil)
	got := ex.ExtractAll([]workbook.Row{row(2, "P1", "1"), row(3, "P2", "2")})
	require.Len(t, got, 2)
	assert.Equal(t, "P2", got[1].OrderNumber)
}

func TestDeriveStatus(t *testing.T) {
	d := ptr("2025-01-01")
	tests := []struct {
		name     string
		timeline map[string]*string
		want     constants.ItemStatus
	}{
		{"empty", map[string]*string{}, constants.ItemStatusPending},
		{"nil map", nil, constants.ItemStatusPending},
		{"none filled", map[string]*string{"cutting": nil, "shipping": nil}, constants.ItemStatusPending},
		{"partial", map[string]*string{"cutting": d, "shipping": nil}, constants.ItemStatusInProduction},
		{"final only", map[string]*string{"cutting": nil, "shipping": d}, constants.ItemStatusInProduction},
		{"all filled", map[string]*string{"cutting": d, "vap": d, "shipping": d}, constants.ItemStatusCompleted},
		{"only stage is cutting", map[string]*string{"cutting": d}, constants.ItemStatusInProduction},
		{"all filled without shipping", map[string]*string{"cutting": d, "sewing": d}, constants.ItemStatusInProduction},
		{"shipping only and filled", map[string]*string{"shipping": d}, constants.ItemStatusCompleted},
		{"shipping empty string", map[string]*string{"cutting": d, "shipping": ptr("")}, constants.ItemStatusInProduction},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DeriveStatus(tt.timeline))
		})
	}
}
