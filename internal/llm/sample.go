package llm

import (
	"unicode/utf8"

	"github.com/joseph-ayodele/production-tracker/constants"
	"github.com/joseph-ayodele/production-tracker/internal/workbook"
)

// SampleLimits bound the size of a mapping request.
type SampleLimits struct {
	MaxHeaders int
	MaxRows    int
	MaxCellLen int
}

func (l SampleLimits) withDefaults() SampleLimits {
	if l.MaxHeaders <= 0 {
		l.MaxHeaders = 60
	}
	if l.MaxRows <= 0 {
		l.MaxRows = 8
	}
	if l.MaxCellLen <= 0 {
		l.MaxCellLen = 80
	}
	return l
}

// NewMappingRequest samples a decoded sheet. normalized must be aligned with sheet.Headers.
// Columns beyond MaxHeaders are not offered; each column carries at most MaxRows
// non-empty example values, each cut to MaxCellLen characters.
func NewMappingRequest(filename string, sheet *workbook.Sheet, normalized []string, limits SampleLimits) MappingRequest {
	limits = limits.withDefaults()

	n := min(len(normalized), limits.MaxHeaders)
	cols := make([]SampleColumn, 0, n)
	for i := 0; i < n; i++ {
		col := SampleColumn{Index: i, Name: normalized[i], Header: truncate(sheet.Headers[i], limits.MaxCellLen)}
		for _, r := range sheet.Rows {
			if len(col.Examples) >= limits.MaxRows {
				break
			}
			txt := r.Cell(i).Text
			if constants.IsSentinel(txt) {
				continue
			}
			col.Examples = append(col.Examples, truncate(txt, limits.MaxCellLen))
		}
		cols = append(cols, col)
	}

	return MappingRequest{
		FilenameHint: filename,
		SheetName:    sheet.Name,
		Columns:      cols,
		Stages:       constants.StageNames(),
		TotalRows:    len(sheet.Rows),
	}
}

// ColumnNames lists the canonical names offered to the model.
func (r MappingRequest) ColumnNames() []string {
	out := make([]string, len(r.Columns))
	for i, c := range r.Columns {
		out[i] = c.Name
	}
	return out
}

func truncate(s string, n int) string {
	if n <= 0 || utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	if n <= 1 {
		return string(r[:n])
	}
	return string(r[:n-1]) + "…"
}
