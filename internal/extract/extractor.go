package extract

import (
	"log/slog"

	"github.com/joseph-ayodele/production-tracker/constants"
	"github.com/joseph-ayodele/production-tracker/internal/workbook"
)

// Candidate is one worksheet row mapped onto canonical fields, before validation.
type Candidate struct {
	Row         int // 1-based sheet row
	OrderNumber string
	Style       string
	Fabric      string
	Color       string
	Quantity    *float64
	Timeline    map[string]*string
	Status      constants.ItemStatus
	// RawFields holds the untouched cell text behind each mapped field.
	RawFields  map[Field]string
	RawContext map[string]any
}

// Extractor applies a ColumnMapping to rows. The same value parsing runs
// whichever strategy produced the mapping.
type Extractor struct {
	headers []string
	mapping ColumnMapping
	logger  *slog.Logger
}

func NewExtractor(headers []string, mapping ColumnMapping, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{headers: headers, mapping: mapping, logger: logger}
}

func (e *Extractor) Mapping() ColumnMapping { return e.mapping }

// ExtractRow never fails; unmapped or unparseable fields are left empty.
func (e *Extractor) ExtractRow(row workbook.Row) Candidate {
	c := Candidate{
		Row:        row.Index,
		Timeline:   make(map[string]*string, len(e.mapping.Stages)),
		RawFields:  make(map[Field]string, len(e.mapping.Fields)),
		RawContext: make(map[string]any, len(e.headers)),
	}

	for i, h := range e.headers {
		cell := row.Cell(i)
		if txt := cleanText(cell.Text); txt != "" {
			c.RawContext[h] = txt
		} else {
			c.RawContext[h] = nil
		}
	}

	for f, idx := range e.mapping.Fields {
		cell := row.Cell(idx)
		c.RawFields[f] = cell.Text
		switch f {
		case FieldOrderNumber:
			c.OrderNumber = cleanText(cell.Text)
		case FieldStyle:
			c.Style = cleanText(cell.Text)
		case FieldFabric:
			c.Fabric = cleanText(cell.Text)
		case FieldColor:
			c.Color = cleanText(cell.Text)
		case FieldQuantity:
			if q, ok := CellQuantity(cell); ok {
				c.Quantity = &q
			}
		}
	}

	for st, idx := range e.mapping.Stages {
		c.Timeline[string(st)] = ParseStageDate(row.Cell(idx))
	}
	c.Status = DeriveStatus(c.Timeline)
	return c
}

// ExtractAll runs ExtractRow over every row of the sheet.
func (e *Extractor) ExtractAll(rows []workbook.Row) []Candidate {
	out := make([]Candidate, 0, len(rows))
	for _, r := range rows {
		out = append(out, e.ExtractRow(r))
	}
	e.logger.Debug("extract.rows",
		"strategy", string(e.mapping.Strategy),
		"rows", len(rows),
		"mapping", e.mapping.Describe(e.headers),
	)
	return out
}

// DeriveStatus computes status from timeline completeness. The defined
// stages are the timeline keys. An item is completed only when shipping is
// among them and every one is filled; any other filled stage means it is in
// production, and none filled is pending.
func DeriveStatus(timeline map[string]*string) constants.ItemStatus {
	filled := 0
	for _, v := range timeline {
		if v != nil && *v != "" {
			filled++
		}
	}
	final, ok := timeline[string(constants.StageShipping)]
	shipped := ok && final != nil && *final != ""
	switch {
	case filled == 0:
		return constants.ItemStatusPending
	case shipped && filled == len(timeline):
		return constants.ItemStatusCompleted
	default:
		return constants.ItemStatusInProduction
	}
}
