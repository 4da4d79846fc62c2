package llm

import (
	"encoding/json"
	"strconv"
	"strings"
)

// BuildSystemPrompt composes the system message: the task, the canonical
// fields and the formatting rules.
func BuildSystemPrompt(req MappingRequest) string {
	parts := []string{
		"You map columns of a garment factory production sheet to canonical fields.",
		"Return ONLY JSON that matches the provided JSON Schema.",
		"Each value MUST be the exact 'name' of one column from the sample, or null when no column holds that field.",
		"Never invent column names and never return cell values.",
		"order_number: the purchase order / order / job identifier of the row.",
		"quantity: the ordered number of pieces.",
		"style: the style or article code. fabric: the fabric or material. color: the colour or colourway.",
		"timeline: for each production stage, the column holding that stage's date. Stages: " + strings.Join(req.Stages, ", ") + ".",
		"Ex-factory, dispatch and delivery dates belong to 'shipping'. Line input belongs to 'feeding'.",
		"Use each column at most once.",
		"Optionally include 'confidence' between 0 and 1.",
	}
	return strings.Join(parts, " ")
}

// BuildUserPrompt packages the sheet sample. Only the bounded sample is sent, never the full sheet.
func BuildUserPrompt(req MappingRequest) string {
	var b strings.Builder
	if f := strings.TrimSpace(req.FilenameHint); f != "" {
		b.WriteString("Filename: ")
		b.WriteString(f)
		b.WriteString("\n")
	}
	if s := strings.TrimSpace(req.SheetName); s != "" {
		b.WriteString("Sheet: ")
		b.WriteString(s)
		b.WriteString("\n")
	}
	b.WriteString("Data rows: ")
	b.WriteString(strconv.Itoa(req.TotalRows))
	b.WriteString("\n\nColumns (name, original header, example values):\n")
	b.WriteString(mustJSON(req.Columns))
	return b.String()
}

func mustJSON(v any) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}
