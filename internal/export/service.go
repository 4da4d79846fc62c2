package export

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/production-tracker/constants"
	"github.com/joseph-ayodele/production-tracker/internal/entity"
	"github.com/joseph-ayodele/production-tracker/internal/repository"
)

// SheetName is the worksheet the export writes to.
const SheetName = "Production"

// Service is a tiny façade over the item repository that produces XLSX bytes for exports.
type Service struct {
	items  repository.ItemRepository
	logger *slog.Logger
}

func NewService(items repository.ItemRepository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{items: items, logger: logger}
}

// Headers lists the export columns in order. Stage columns follow process order.
func Headers() []string {
	h := []string{"Order Number", "Style", "Fabric", "Color", "Quantity", "Status"}
	for _, st := range constants.Stages {
		h = append(h, stageTitle(st))
	}
	return append(h, "Parsing Method", "Source Row", "Created At")
}

// ExportItemsXLSX returns an XLSX workbook (as bytes) holding every stored item.
func (s *Service) ExportItemsXLSX(ctx context.Context) ([]byte, error) {
	start := time.Now()

	items, err := s.items.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("query items: %w", err)
	}

	buf, err := Write(items)
	if err != nil {
		return nil, err
	}

	s.logger.Info("export.xlsx.ok",
		"rows", len(items),
		"bytes", len(buf),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf, nil
}

// Write renders items into a new workbook.
func Write(items []*entity.ProductionItem) ([]byte, error) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return nil, err
	}

	headers := Headers()
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(SheetName, cell, h)
	}

	for n, it := range items {
		row := n + 2
		col := 0
		write := func(v any) {
			col++
			cell, _ := excelize.CoordinatesToCellName(col, row)
			_ = f.SetCellValue(SheetName, cell, v)
		}

		write(it.OrderNumber)
		write(it.Style)
		write(it.Fabric)
		write(it.Color)
		write(it.Quantity)
		write(string(it.Status))
		for _, st := range constants.Stages {
			if d := it.Timeline[string(st)]; d != nil {
				write(*d)
			} else {
				write("")
			}
		}
		write(string(it.ParsingMethod))
		write(it.SourceRow)
		if it.CreatedAt.IsZero() {
			write("")
		} else {
			write(it.CreatedAt.UTC().Format(time.RFC3339))
		}
	}

	// Widen a few columns
	last, _ := excelize.ColumnNumberToName(len(headers))
	_ = f.SetColWidth(SheetName, "A", "A", 18) // order number
	_ = f.SetColWidth(SheetName, "B", "D", 16) // style, fabric, color
	_ = f.SetColWidth(SheetName, "E", "F", 14) // quantity, status
	_ = f.SetColWidth(SheetName, "G", last, 14)
	_ = f.SetPanes(SheetName, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"})

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}
	return buf.Bytes(), nil
}

func stageTitle(st constants.Stage) string {
	switch st {
	case constants.StageVAP:
		return "VAP"
	default:
		s := string(st)
		return strings.ToUpper(s[:1]) + s[1:]
	}
}
