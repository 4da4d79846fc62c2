package extract

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/production-tracker/constants"
	"github.com/joseph-ayodele/production-tracker/internal/workbook"
)

// DateLayout is the ISO form every timeline date is stored in.
const DateLayout = "2006-01-02"

var reNumber = regexp.MustCompile(`[-+]?(?:\d{1,3}(?:[, ]\d{3})+|\d+)(?:\.\d+)?|[-+]?\.\d+`)

var groupSeparators = strings.NewReplacer(",", "", " ", "")

// ParseQuantity returns the first numeric token in s. Thousands separators
// ("1,200" or "1 200") and trailing unit text ("1,200 pcs") are accepted.
// ok is false when s is a sentinel, holds no number, the number is not
// finite, or the token runs on into more digits ("1,2345", "12,34").
func ParseQuantity(s string) (float64, bool) {
	if constants.IsSentinel(s) {
		return 0, false
	}
	loc := reNumber.FindStringIndex(s)
	if loc == nil || runsOn(s[loc[1]:]) {
		return 0, false
	}
	f, err := strconv.ParseFloat(groupSeparators.Replace(s[loc[0]:loc[1]]), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func runsOn(rest string) bool {
	switch {
	case rest == "":
		return false
	case isDigit(rest[0]):
		return true
	case rest[0] == ',' || rest[0] == ' ':
		return len(rest) > 1 && isDigit(rest[1])
	}
	return false
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }

// CellQuantity prefers the stored number over the displayed text, so a
// number format like "0" never rounds the quantity. Text cells ("500 pcs")
// go through ParseQuantity.
func CellQuantity(c workbook.Cell) (float64, bool) {
	if f, err := strconv.ParseFloat(strings.TrimSpace(c.Raw), 64); err == nil && !math.IsNaN(f) && !math.IsInf(f, 0) {
		return f, true
	}
	return ParseQuantity(c.Text)
}

// dateLayouts are tried in order; the first successful parse wins.
// Day-first layouts precede month-first ones.
var dateLayouts = []string{
	// ISO
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	time.RFC3339,
	"2006/01/02",
	"2006.01.02",
	// day/month/year
	"2/1/2006",
	"2-1-2006",
	"2.1.2006",
	"2/1/06",
	"2-1-06",
	"2/1/2006 15:04",
	"2/1/2006 15:04:05",
	// month/day/year
	"1/2/2006",
	"1-2-2006",
	"1/2/06",
	"1-2-06",
	"1/2/2006 15:04",
	// named months
	"2-Jan-2006",
	"2 Jan 2006",
	"Jan 2, 2006",
	"2-Jan-06",
	"January 2, 2006",
	"2 January 2006",
	"Jan 2 2006",
}

// ParseDate parses free-form date text. Sentinels and unparseable text yield ok=false.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if constants.IsSentinel(s) {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// ParseStageDate turns a timeline cell into an ISO date, or nil.
// Cells stored as Excel serial numbers but displayed as dates are converted
// from the serial so day/month order never has to be guessed.
func ParseStageDate(c workbook.Cell) *string {
	if constants.IsSentinel(c.Text) && constants.IsSentinel(c.Raw) {
		return nil
	}
	if t, ok := serialDate(c); ok {
		s := t.Format(DateLayout)
		return &s
	}
	if t, ok := ParseDate(c.Text); ok {
		s := t.Format(DateLayout)
		return &s
	}
	return nil
}

func serialDate(c workbook.Cell) (time.Time, bool) {
	raw := strings.TrimSpace(c.Raw)
	if raw == "" || strings.TrimSpace(c.Text) == raw {
		return time.Time{}, false
	}
	if _, err := strconv.ParseFloat(strings.ReplaceAll(strings.TrimSpace(c.Text), ",", ""), 64); err == nil {
		// displayed as a number, not as a date
		return time.Time{}, false
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || v < 1 || v >= 2958466 {
		return time.Time{}, false
	}
	t, err := excelize.ExcelDateToTime(v, false)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// cleanText trims a cell and maps sentinels to "".
func cleanText(s string) string {
	s = strings.TrimSpace(s)
	if constants.IsSentinel(s) {
		return ""
	}
	return s
}
