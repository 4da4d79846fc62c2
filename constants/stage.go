package constants

import (
	"strings"
)

// Stage is a production milestone tracked in an item's timeline.
type Stage string

const (
	StageCutting   Stage = "cutting"
	StageFeeding   Stage = "feeding"
	StageSewing    Stage = "sewing"
	StageVAP       Stage = "vap"
	StageFinishing Stage = "finishing"
	StageShipping  Stage = "shipping"
)

// Stages lists every known stage in process order. Shipping is the final stage.
var Stages = []Stage{
	StageCutting,
	StageFeeding,
	StageSewing,
	StageVAP,
	StageFinishing,
	StageShipping,
}

// StageNames returns Stages as plain strings, in order.
func StageNames() []string {
	result := make([]string, len(Stages))
	for i, st := range Stages {
		result[i] = string(st)
	}
	return result
}

// CanonicalStage maps a loose stage label ("Cut", "ex-factory") to a known stage.
func CanonicalStage(input string) (Stage, bool) {
	normalized := strings.ToLower(strings.TrimSpace(input))
	if normalized == "" {
		return "", false
	}

	synonyms := map[string]Stage{
		"cut":         StageCutting,
		"feed":        StageFeeding,
		"line_feed":   StageFeeding,
		"sew":         StageSewing,
		"stitching":   StageSewing,
		"value_added": StageVAP,
		"finish":      StageFinishing,
		"packing":     StageFinishing,
		"ship":        StageShipping,
		"shipment":    StageShipping,
		"ex_factory":  StageShipping,
		"dispatch":    StageShipping,
	}
	if st, ok := synonyms[normalized]; ok {
		return st, true
	}

	for _, st := range Stages {
		if normalized == string(st) {
			return st, true
		}
	}
	return "", false
}
