package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeColumn(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Order No", "order_no"},
		{"  Order   No.  ", "order_no"},
		{"P/O #", "p_o"},
		{"Ship-Date", "ship_date"},
		{"Qté", "qte"},
		{"Couleur / Colour", "couleur_colour"},
		{"__Cutting__Date__", "cutting_date"},
		{"QTY(pcs)", "qty_pcs"},
		{"***", ""},
		{"", ""},
		{"数量", "数量"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeColumn(tt.in))
		})
	}
}

func TestNormalizeColumnIsIdempotent(t *testing.T) {
	for _, in := range []string{"Order No", "Ex-Factory Date", "Qté (pcs)", "--"} {
		once := NormalizeColumn(in)
		assert.Equal(t, once, NormalizeColumn(once))
	}
}

func TestNormalizeHeaders(t *testing.T) {
	got := NormalizeHeaders([]string{"Qty", "", "qty", "QTY", "!!"})
	assert.Equal(t, []string{"qty", "column_2", "qty_2", "qty_3", "column_5"}, got)
}
