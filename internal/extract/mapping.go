package extract

import (
	"github.com/joseph-ayodele/production-tracker/constants"
)

// Field is a canonical scalar field of a production item.
type Field string

const (
	FieldOrderNumber Field = "order_number"
	FieldQuantity    Field = "quantity"
	FieldStyle       Field = "style"
	FieldFabric      Field = "fabric"
	FieldColor       Field = "color"
)

// Fields is the fixed resolution order for scalar fields.
var Fields = []Field{FieldOrderNumber, FieldQuantity, FieldStyle, FieldFabric, FieldColor}

// RequiredFields must be mapped for a row to be able to pass validation.
var RequiredFields = []Field{FieldOrderNumber, FieldQuantity}

// Strategy tells which way a ColumnMapping was resolved. One strategy is chosen per upload.
type Strategy = constants.ParsingMethod

// ColumnMapping assigns canonical fields and timeline stages to header positions.
type ColumnMapping struct {
	Strategy Strategy
	Fields   map[Field]int
	Stages   map[constants.Stage]int
}

func newMapping(strategy Strategy) ColumnMapping {
	return ColumnMapping{
		Strategy: strategy,
		Fields:   map[Field]int{},
		Stages:   map[constants.Stage]int{},
	}
}

// NewColumnMapping returns an empty mapping for strategy.
func NewColumnMapping(strategy Strategy) ColumnMapping {
	return newMapping(strategy)
}

// Column returns the header index mapped to f.
func (m ColumnMapping) Column(f Field) (int, bool) {
	i, ok := m.Fields[f]
	return i, ok
}

// HasRequired reports whether every required field has a column.
func (m ColumnMapping) HasRequired() bool {
	for _, f := range RequiredFields {
		if _, ok := m.Fields[f]; !ok {
			return false
		}
	}
	return true
}

// StageOrder lists mapped stages in process order.
func (m ColumnMapping) StageOrder() []constants.Stage {
	out := make([]constants.Stage, 0, len(m.Stages))
	for _, st := range constants.Stages {
		if _, ok := m.Stages[st]; ok {
			out = append(out, st)
		}
	}
	return out
}

// Describe renders the mapping as field -> header name for logs and upload records.
func (m ColumnMapping) Describe(headers []string) map[string]string {
	out := make(map[string]string, len(m.Fields)+len(m.Stages))
	name := func(i int) string {
		if i >= 0 && i < len(headers) {
			return headers[i]
		}
		return ""
	}
	for f, i := range m.Fields {
		out[string(f)] = name(i)
	}
	for st, i := range m.Stages {
		out["timeline."+string(st)] = name(i)
	}
	return out
}
