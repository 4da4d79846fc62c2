package llm

import (
	"encoding/json"
	"fmt"
	"maps"
	"strings"

	"github.com/joseph-ayodele/production-tracker/constants"
	"github.com/joseph-ayodele/production-tracker/internal/extract"
)

var fieldSynonyms = map[string]string{
	"order":        "order_number",
	"order_no":     "order_number",
	"order_id":     "order_number",
	"po":           "order_number",
	"po_number":    "order_number",
	"qty":          "quantity",
	"colour":       "color",
	"style_number": "style",
	"material":     "fabric",
}

var scalarKeys = []string{"order_number", "quantity", "style", "fabric", "color"}

// SanitizeMappingJSON repairs a mapping document so it can still validate:
// - renames known synonyms (qty -> quantity)
// - folds stage keys found at the top level into timeline
// - resolves column references given as original headers or loosely normalized names
// - nulls references to columns that were not offered
// - removes unknown keys
func SanitizeMappingJSON(doc []byte, req MappingRequest) ([]byte, []string, error) {
	var m map[string]any
	if err := json.Unmarshal(doc, &m); err != nil {
		return nil, nil, fmt.Errorf("sanitize: decode: %w", err)
	}

	var dropped []string
	lookup := columnLookup(req)

	for from, to := range fieldSynonyms {
		if v, ok := m[from]; ok {
			if _, exists := m[to]; !exists {
				m[to] = v
			}
			delete(m, from)
			dropped = append(dropped, from+"->"+to)
		}
	}

	timeline := map[string]any{}
	if t, ok := m["timeline"].(map[string]any); ok {
		timeline = t
	}
	for k, v := range maps.Clone(m) {
		if st, ok := constants.CanonicalStage(extract.NormalizeColumn(k)); ok && k != "timeline" {
			if _, exists := timeline[string(st)]; !exists {
				timeline[string(st)] = v
			}
			delete(m, k)
			dropped = append(dropped, k+"->timeline."+string(st))
		}
	}

	resolve := func(label string, v any) any {
		switch t := v.(type) {
		case nil:
			return nil
		case string:
			if name, ok := lookup(t); ok {
				return name
			}
			dropped = append(dropped, label+"(unknown column)")
			return nil
		default:
			dropped = append(dropped, label+"(type)")
			return nil
		}
	}

	for _, k := range scalarKeys {
		if v, ok := m[k]; ok {
			m[k] = resolve(k, v)
		}
	}

	cleanTimeline := map[string]any{}
	for k, v := range timeline {
		st, ok := constants.CanonicalStage(extract.NormalizeColumn(k))
		if !ok {
			dropped = append(dropped, "timeline."+k+"(unknown stage)")
			continue
		}
		cleanTimeline[string(st)] = resolve("timeline."+string(st), v)
	}
	m["timeline"] = cleanTimeline

	if c, ok := m["confidence"]; ok {
		f, isNum := c.(float64)
		if !isNum || f < 0 || f > 1 {
			delete(m, "confidence")
			dropped = append(dropped, "confidence")
		}
	}

	allowed := map[string]struct{}{
		"order_number": {}, "quantity": {}, "style": {}, "fabric": {}, "color": {},
		"timeline": {}, "confidence": {},
	}
	for k := range maps.Clone(m) {
		if _, ok := allowed[k]; !ok {
			delete(m, k)
			dropped = append(dropped, k+"(unknown)")
		}
	}

	out, err := json.Marshal(m)
	if err != nil {
		return nil, dropped, fmt.Errorf("sanitize: encode: %w", err)
	}
	return out, dropped, nil
}

// columnLookup resolves a model's column reference to an offered column name.
func columnLookup(req MappingRequest) func(string) (string, bool) {
	byName := make(map[string]string, len(req.Columns))
	byHeader := make(map[string]string, len(req.Columns))
	for _, c := range req.Columns {
		byName[c.Name] = c.Name
		h := strings.ToLower(strings.TrimSpace(c.Header))
		if _, taken := byHeader[h]; !taken && h != "" {
			byHeader[h] = c.Name
		}
	}
	return func(ref string) (string, bool) {
		if n, ok := byName[ref]; ok {
			return n, true
		}
		if n, ok := byHeader[strings.ToLower(strings.TrimSpace(ref))]; ok {
			return n, true
		}
		if n, ok := byName[extract.NormalizeColumn(ref)]; ok {
			return n, true
		}
		return "", false
	}
}
