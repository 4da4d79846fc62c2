// Package workbook decodes uploaded spreadsheet bytes into a header row and aligned data rows.
package workbook

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/production-tracker/internal/common"
)

// headerScanRows bounds how far down a sheet the header row is searched for.
const headerScanRows = 20

// Cell keeps both renditions of a cell: Text as displayed, Raw as stored.
// They differ for dates (Raw is the serial number) and formatted numbers.
type Cell struct {
	Text string
	Raw  string
}

type Row struct {
	Index int // 1-based row number in the sheet
	Cells []Cell
}

// Cell returns the cell at header position i, or an empty cell.
func (r Row) Cell(i int) Cell {
	if i < 0 || i >= len(r.Cells) {
		return Cell{}
	}
	return r.Cells[i]
}

// Sheet is the first tabular sheet of a workbook.
type Sheet struct {
	Name      string
	HeaderRow int
	Headers   []string
	Rows      []Row
}

// Decode reads the first sheet that has a header row. Title rows above the
// header and fully empty rows below it are skipped.
func Decode(data []byte) (*Sheet, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty upload", common.ErrMalformedWorkbook)
	}
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrMalformedWorkbook, err)
	}
	defer func() { _ = f.Close() }()

	type grid struct {
		name      string
		text, raw [][]string
	}
	var grids []grid
	for _, name := range f.GetSheetList() {
		text, err := f.GetRows(name)
		if err != nil {
			continue
		}
		raw, err := f.GetRows(name, excelize.Options{RawCellValue: true})
		if err != nil {
			raw = text
		}
		grids = append(grids, grid{name: name, text: text, raw: raw})
	}

	// A multi-column table anywhere beats a single-column sheet earlier in the workbook.
	for _, allowSingle := range []bool{false, true} {
		for _, g := range grids {
			if sh, ok := buildSheet(g.name, g.text, g.raw, allowSingle); ok {
				return sh, nil
			}
		}
	}
	return nil, fmt.Errorf("%w: no sheet with a header row", common.ErrMalformedWorkbook)
}

func buildSheet(name string, text, raw [][]string, allowSingle bool) (*Sheet, bool) {
	hdr := findHeaderRow(text, allowSingle)
	if hdr < 0 {
		return nil, false
	}

	width := len(text[hdr])
	for _, r := range text[hdr+1:] {
		width = max(width, len(r))
	}

	headers := make([]string, width)
	for i := range headers {
		headers[i] = strings.TrimSpace(at(text[hdr], i))
	}

	sh := &Sheet{Name: name, HeaderRow: hdr + 1, Headers: headers}
	for ri := hdr + 1; ri < len(text); ri++ {
		if isBlank(text[ri]) {
			continue
		}
		var rawRow []string
		if ri < len(raw) {
			rawRow = raw[ri]
		}
		cells := make([]Cell, width)
		for ci := range cells {
			cells[ci] = Cell{Text: strings.TrimSpace(at(text[ri], ci)), Raw: strings.TrimSpace(at(rawRow, ci))}
		}
		sh.Rows = append(sh.Rows, Row{Index: ri + 1, Cells: cells})
	}
	return sh, true
}

// findHeaderRow returns the first row with at least two non-empty cells
// within the scan window. With allowSingle, a one-column sheet uses its
// first non-empty row.
func findHeaderRow(rows [][]string, allowSingle bool) int {
	firstNonEmpty := -1
	maxFilled := 0
	for i := 0; i < len(rows) && i < headerScanRows; i++ {
		n := filled(rows[i])
		if n == 0 {
			continue
		}
		if firstNonEmpty < 0 {
			firstNonEmpty = i
		}
		if n >= 2 {
			return i
		}
		maxFilled = max(maxFilled, n)
	}
	if allowSingle && firstNonEmpty >= 0 && maxFilled == 1 {
		return firstNonEmpty
	}
	return -1
}

func filled(row []string) int {
	n := 0
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			n++
		}
	}
	return n
}

func isBlank(row []string) bool { return filled(row) == 0 }

func at(row []string, i int) string {
	if i < len(row) {
		return row[i]
	}
	return ""
}
