package llm

import (
	"fmt"

	"github.com/joseph-ayodele/production-tracker/constants"
	"github.com/joseph-ayodele/production-tracker/internal/common"
	"github.com/joseph-ayodele/production-tracker/internal/extract"
)

// ResolveMapping turns a model answer into column positions. It fails with
// ErrAIMalformedResponse when a reference is unknown, a column is used twice,
// or a required field is left unmapped.
func ResolveMapping(resp MappingResponse, req MappingRequest) (extract.ColumnMapping, error) {
	m := extract.NewColumnMapping(constants.ParsingMethodAI)
	index := make(map[string]int, len(req.Columns))
	for _, c := range req.Columns {
		index[c.Name] = c.Index
	}
	used := map[int]string{}

	assign := func(label string, ref *string) (int, bool, error) {
		if ref == nil || *ref == "" {
			return 0, false, nil
		}
		idx, ok := index[*ref]
		if !ok {
			return 0, false, fmt.Errorf("%w: %s references unknown column %q", common.ErrAIMalformedResponse, label, *ref)
		}
		if prev, taken := used[idx]; taken {
			return 0, false, fmt.Errorf("%w: column %q mapped to both %s and %s", common.ErrAIMalformedResponse, *ref, prev, label)
		}
		used[idx] = label
		return idx, true, nil
	}

	scalars := []struct {
		field extract.Field
		ref   *string
	}{
		{extract.FieldOrderNumber, resp.OrderNumber},
		{extract.FieldQuantity, resp.Quantity},
		{extract.FieldStyle, resp.Style},
		{extract.FieldFabric, resp.Fabric},
		{extract.FieldColor, resp.Color},
	}
	for _, s := range scalars {
		idx, ok, err := assign(string(s.field), s.ref)
		if err != nil {
			return extract.ColumnMapping{}, err
		}
		if ok {
			m.Fields[s.field] = idx
		}
	}

	for _, st := range constants.Stages {
		ref, present := resp.Timeline[string(st)]
		if !present {
			continue
		}
		idx, ok, err := assign("timeline."+string(st), ref)
		if err != nil {
			return extract.ColumnMapping{}, err
		}
		if ok {
			m.Stages[st] = idx
		}
	}

	if !m.HasRequired() {
		return extract.ColumnMapping{}, fmt.Errorf("%w: order_number and quantity columns are required", common.ErrAIMalformedResponse)
	}
	return m, nil
}
