// Package validate decides which extracted rows are meaningful enough to persist.
package validate

import (
	"log/slog"
	"math"
	"strings"

	"github.com/joseph-ayodele/production-tracker/constants"
	"github.com/joseph-ayodele/production-tracker/internal/extract"
)

// RejectReason says why a row was dropped.
type RejectReason string

const (
	ReasonMissingOrderNumber  RejectReason = "missing_order_number"
	ReasonSentinelOrderNumber RejectReason = "sentinel_order_number"
	ReasonMissingQuantity     RejectReason = "missing_quantity"
	ReasonInvalidQuantity     RejectReason = "invalid_quantity"
	ReasonNegativeQuantity    RejectReason = "negative_quantity"
	ReasonSentinelValue       RejectReason = "sentinel_value"
)

type Verdict struct {
	Accepted bool
	Reason   RejectReason
}

func accept() Verdict                    { return Verdict{Accepted: true} }
func reject(reason RejectReason) Verdict { return Verdict{Reason: reason} }

// Row applies the rules in order and stops at the first violation.
func Row(c extract.Candidate) Verdict {
	rawOrder, orderMapped := c.RawFields[extract.FieldOrderNumber]
	order := strings.TrimSpace(c.OrderNumber)
	switch {
	case order == "" && orderMapped && constants.IsSentinel(rawOrder) && strings.TrimSpace(rawOrder) != "":
		return reject(ReasonSentinelOrderNumber)
	case order == "":
		return reject(ReasonMissingOrderNumber)
	case constants.IsSentinel(order):
		return reject(ReasonSentinelOrderNumber)
	}

	rawQty, qtyMapped := c.RawFields[extract.FieldQuantity]
	switch {
	case c.Quantity == nil && (!qtyMapped || constants.IsSentinel(rawQty)):
		return reject(ReasonMissingQuantity)
	case c.Quantity == nil:
		return reject(ReasonInvalidQuantity)
	case math.IsNaN(*c.Quantity) || math.IsInf(*c.Quantity, 0):
		return reject(ReasonInvalidQuantity)
	case *c.Quantity < 0:
		return reject(ReasonNegativeQuantity)
	}

	// Rules 1 and 2 already catch sentinel text in cells read as text. This
	// catches a stored value whose display is a sentinel, e.g. a number
	// formatted to render as "n/a".
	for _, f := range extract.RequiredFields {
		if raw, ok := c.RawFields[f]; ok && constants.IsSentinel(raw) {
			return reject(ReasonSentinelValue)
		}
	}
	return accept()
}

// Stats aggregates a batch. Individual rejections are never surfaced.
type Stats struct {
	Accepted int
	Rejected int
	ByReason map[RejectReason]int
}

// Filter keeps accepted candidates in their original order.
func Filter(cands []extract.Candidate, logger *slog.Logger) ([]extract.Candidate, Stats) {
	if logger == nil {
		logger = slog.Default()
	}
	st := Stats{ByReason: map[RejectReason]int{}}
	out := make([]extract.Candidate, 0, len(cands))
	for _, c := range cands {
		v := Row(c)
		if !v.Accepted {
			st.Rejected++
			st.ByReason[v.Reason]++
			logger.Debug("validate.row.rejected", "row", c.Row, "reason", string(v.Reason))
			continue
		}
		st.Accepted++
		out = append(out, c)
	}
	return out, st
}

// Attrs renders the per-reason counts for structured logs.
func (s Stats) Attrs() []any {
	attrs := []any{"accepted", s.Accepted, "rejected", s.Rejected}
	for reason, n := range s.ByReason {
		attrs = append(attrs, "rejected."+string(reason), n)
	}
	return attrs
}
