package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/production-tracker/constants"
)

func TestResolveHeuristic(t *testing.T) {
	headers := NormalizeHeaders([]string{
		"Order No", "Style #", "Fabric", "Colour", "Qty", "Cutting Date", "Sewing", "VAP", "Ex-Factory Date",
	})
	m := ResolveHeuristic(headers)

	assert.Equal(t, constants.ParsingMethodHeuristic, m.Strategy)
	assert.Equal(t, map[Field]int{
		FieldOrderNumber: 0,
		FieldStyle:       1,
		FieldFabric:      2,
		FieldColor:       3,
		FieldQuantity:    4,
	}, m.Fields)
	assert.Equal(t, map[constants.Stage]int{
		constants.StageCutting:  5,
		constants.StageSewing:   6,
		constants.StageVAP:      7,
		constants.StageShipping: 8,
	}, m.Stages)
	assert.True(t, m.HasRequired())
	assert.Equal(t, []constants.Stage{
		constants.StageCutting, constants.StageSewing, constants.StageVAP, constants.StageShipping,
	}, m.StageOrder())
}

func TestResolveHeuristicPriority(t *testing.T) {
	tests := []struct {
		name    string
		headers []string
		field   Field
		want    int
	}{
		// exact aliases beat token matches even when further right
		{"exact beats token", []string{"Job", "PO Number"}, FieldOrderNumber, 1},
		// same pattern: leftmost header wins
		{"leftmost wins", []string{"Order", "Order"}, FieldOrderNumber, 0},
		// order date must not be taken as the order number
		{"exclusion", []string{"Order Date", "Job No"}, FieldOrderNumber, 1},
		// "po" is a token match, not a substring match
		{"po token only", []string{"Position", "Composition", "PO"}, FieldOrderNumber, 2},
		{"quantity token", []string{"Order Qty (pcs)", "Order"}, FieldQuantity, 0},
		{"colour spelling", []string{"Colourway"}, FieldColor, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := ResolveHeuristic(NormalizeHeaders(tt.headers))
			got, ok := m.Column(tt.field)
			require.True(t, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolveHeuristicClaimsOnce(t *testing.T) {
	// "Order Qty" is claimed by quantity, so the order number stays unmapped.
	m := ResolveHeuristic(NormalizeHeaders([]string{"Order Qty"}))
	_, hasOrder := m.Column(FieldOrderNumber)
	q, hasQty := m.Column(FieldQuantity)
	assert.False(t, hasOrder)
	assert.True(t, hasQty)
	assert.Equal(t, 0, q)
	assert.False(t, m.HasRequired())
}

func TestResolveHeuristicNoMatches(t *testing.T) {
	m := ResolveHeuristic(NormalizeHeaders([]string{"foo", "bar"}))
	assert.Empty(t, m.Fields)
	assert.Empty(t, m.Stages)
}
