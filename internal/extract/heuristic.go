package extract

import (
	"slices"
	"strings"

	"github.com/joseph-ayodele/production-tracker/constants"
)

type matchKind int

const (
	matchExact    matchKind = iota // whole normalized header
	matchToken                     // one underscore-separated token
	matchPrefix                    // a token starts with the value
	matchContains                  // substring of the header
)

type pattern struct {
	kind  matchKind
	value string
}

func (p pattern) matches(header string, toks []string) bool {
	switch p.kind {
	case matchExact:
		return header == p.value
	case matchToken:
		return slices.Contains(toks, p.value)
	case matchPrefix:
		for _, t := range toks {
			if strings.HasPrefix(t, p.value) {
				return true
			}
		}
		return false
	case matchContains:
		return strings.Contains(header, p.value)
	}
	return false
}

// rule is the ordered pattern list for one target. Headers carrying any
// exclude token are never considered for it.
type rule struct {
	field    Field
	stage    constants.Stage
	patterns []pattern
	exclude  []string
}

func exact(vs ...string) []pattern    { return ofKind(matchExact, vs) }
func token(vs ...string) []pattern    { return ofKind(matchToken, vs) }
func prefix(vs ...string) []pattern   { return ofKind(matchPrefix, vs) }
func contains(vs ...string) []pattern { return ofKind(matchContains, vs) }

func ofKind(k matchKind, vs []string) []pattern {
	out := make([]pattern, len(vs))
	for i, v := range vs {
		out[i] = pattern{kind: k, value: v}
	}
	return out
}

func patterns(groups ...[]pattern) []pattern {
	var out []pattern
	for _, g := range groups {
		out = append(out, g...)
	}
	return out
}

// heuristicRules is the priority order: rules run top to bottom, a header
// claimed by an earlier rule is not offered to later ones.
var heuristicRules = []rule{
	{
		field: FieldOrderNumber,
		patterns: patterns(
			exact("order_number", "order_no", "order_num", "order_id", "order", "po_number", "po_no", "po_num", "po",
				"purchase_order", "purchase_order_no", "purchase_order_number", "job_no", "job_number"),
			token("order", "po", "ord", "job"),
			prefix("order"),
			contains("order"),
		),
		exclude: []string{"date", "dt", "qty", "quantity", "status", "type"},
	},
	{
		field: FieldQuantity,
		patterns: patterns(
			exact("quantity", "qty", "order_qty", "order_quantity", "total_qty", "total_quantity", "pcs"),
			token("qty", "quantity", "pcs", "pieces", "units"),
			prefix("qty", "quant"),
			contains("qty"),
		),
		exclude: []string{"date", "dt"},
	},
	{
		field: FieldStyle,
		patterns: patterns(
			exact("style", "style_no", "style_number", "style_name", "style_code"),
			token("style", "article", "model"),
			prefix("style"),
			contains("style"),
		),
		exclude: []string{"date", "dt", "qty"},
	},
	{
		field: FieldFabric,
		patterns: patterns(
			exact("fabric", "fabric_type", "fabric_name"),
			token("fabric", "material", "fabrication"),
			prefix("fabric"),
			contains("fabric"),
		),
		exclude: []string{"date", "dt", "qty"},
	},
	{
		field: FieldColor,
		patterns: patterns(
			exact("color", "colour", "colorway", "colourway", "color_name", "colour_name"),
			token("color", "colour", "colorway", "colourway", "shade"),
			prefix("colo"),
			contains("color", "colour"),
		),
		exclude: []string{"date", "dt", "qty"},
	},
	{
		stage:    constants.StageCutting,
		patterns: patterns(exact("cutting", "cutting_date", "cut_date"), token("cutting", "cut"), prefix("cut")),
		exclude:  []string{"qty", "quantity", "pcs"},
	},
	{
		stage:    constants.StageFeeding,
		patterns: patterns(exact("feeding", "feeding_date", "line_feeding"), token("feeding", "feed", "input"), prefix("feed")),
		exclude:  []string{"qty", "quantity", "pcs"},
	},
	{
		stage:    constants.StageSewing,
		patterns: patterns(exact("sewing", "sewing_date"), token("sewing", "sew", "stitching", "stitch"), prefix("sew")),
		exclude:  []string{"qty", "quantity", "pcs"},
	},
	{
		stage:    constants.StageVAP,
		patterns: patterns(exact("vap", "vap_date"), token("vap"), prefix("vap"), contains("value_add")),
		exclude:  []string{"qty", "quantity", "pcs"},
	},
	{
		stage:    constants.StageFinishing,
		patterns: patterns(exact("finishing", "finishing_date"), token("finishing", "finish", "packing"), prefix("finish")),
		exclude:  []string{"qty", "quantity", "pcs"},
	},
	{
		stage: constants.StageShipping,
		patterns: patterns(
			exact("shipping", "shipping_date", "ship_date", "ex_factory", "ex_factory_date", "etd"),
			token("shipping", "ship", "shipment", "dispatch", "delivery", "exf", "etd"),
			prefix("ship"),
			contains("ex_factory", "ex_fty"),
		),
		exclude: []string{"qty", "quantity", "pcs", "mode", "method"},
	},
}

// ResolveHeuristic maps normalized headers to canonical fields by pattern.
// It never fails; fields with no matching header are simply absent.
func ResolveHeuristic(headers []string) ColumnMapping {
	m := newMapping(constants.ParsingMethodHeuristic)
	toks := make([][]string, len(headers))
	for i, h := range headers {
		toks[i] = tokens(h)
	}
	claimed := make([]bool, len(headers))

	for _, r := range heuristicRules {
		idx := resolveRule(r, headers, toks, claimed)
		if idx < 0 {
			continue
		}
		claimed[idx] = true
		if r.field != "" {
			m.Fields[r.field] = idx
		} else {
			m.Stages[r.stage] = idx
		}
	}
	return m
}

func resolveRule(r rule, headers []string, toks [][]string, claimed []bool) int {
	for _, p := range r.patterns {
		for i, h := range headers {
			if claimed[i] || h == "" || excluded(toks[i], r.exclude) {
				continue
			}
			if p.matches(h, toks[i]) {
				return i
			}
		}
	}
	return -1
}

func excluded(toks, exclude []string) bool {
	for _, x := range exclude {
		if slices.Contains(toks, x) {
			return true
		}
	}
	return false
}
