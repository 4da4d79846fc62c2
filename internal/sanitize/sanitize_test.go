package sanitize

import (
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
)

type status string

type row struct {
	Order string   `json:"order_number"`
	Qty   *float64 `json:"quantity"`
	Skip  string   `json:"-"`
}

type objectID [12]byte

func (o objectID) String() string { return "oid" }

type level int

func (l level) String() string { return "warn" }

func TestValueRules(t *testing.T) {
	id := uuid.MustParse("5b8f2f4e-6d0c-4bde-9d6b-0e4f4d1c2a11")
	q := 12.0
	ts := time.Date(2025, 1, 2, 3, 4, 5, 0, time.FixedZone("x", 3600))

	in := map[string]any{
		"nan":      math.NaN(),
		"inf":      math.Inf(1),
		"neg_inf":  math.Inf(-1),
		"integral": 500.0,
		"fraction": 12.5,
		"f32":      float32(2),
		"int":      7,
		"uint":     uint16(9),
		"id":       id,
		"oid":      objectID{},
		"raw_id":   [16]byte(id),
		"when":     ts,
		"status":   status("pending"),
		"ptr":      &q,
		"nil_ptr":  (*float64)(nil),
		"num":      json.Number("42"),
		"nested":   []any{math.NaN(), map[string]float64{"a": 1.5, "b": math.Inf(1)}},
		"typed":    []string{"x", "y"},
		"struct":   row{Order: "A-1", Qty: &q, Skip: "hidden"},
		"elapsed":  1500 * time.Millisecond,
		"level":    level(3),
	}

	got, anomalies := Document(in)
	assert.Equal(t, 0, anomalies)
	want := map[string]any{
		"nan":      nil,
		"inf":      nil,
		"neg_inf":  nil,
		"integral": int64(500),
		"fraction": 12.5,
		"f32":      int64(2),
		"int":      int64(7),
		"uint":     int64(9),
		"id":       id.String(),
		"oid":      "oid",
		"raw_id":   id.String(),
		"when":     "2025-01-02T02:04:05Z",
		"status":   "pending",
		"ptr":      int64(12),
		"nil_ptr":  nil,
		"num":      int64(42),
		"nested":   []any{nil, map[string]any{"a": 1.5, "b": nil}},
		"typed":    []any{"x", "y"},
		"struct":   map[string]any{"order_number": "A-1", "quantity": int64(12)},
		"elapsed":  1.5,
		"level":    int64(3),
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("sanitize mismatch (-want +got):\n%s", diff)
	}
}

func TestValueIsIdempotent(t *testing.T) {
	inputs := []any{
		nil,
		"x",
		math.NaN(),
		3.0,
		1e300,
		map[string]any{"a": []any{1.0, math.Inf(-1), "b", map[string]any{"c": uuid.New()}}},
		[]map[string]float64{{"q": 2.5}},
	}
	for _, in := range inputs {
		once := Value(in)
		twice := Value(once)
		if diff := cmp.Diff(once, twice); diff != "" {
			t.Errorf("not idempotent for %#v (-once +twice):\n%s", in, diff)
		}
	}
}

func TestDocumentCountsAnomalies(t *testing.T) {
	got, anomalies := Document(map[string]any{
		"ch":   make(chan int),
		"fn":   func() {},
		"key":  map[int]string{1: "x"},
		"fine": "ok",
	})
	assert.Equal(t, 3, anomalies)
	assert.Equal(t, map[string]any{"ch": nil, "fn": nil, "key": nil, "fine": "ok"}, got)
}

func TestToStruct(t *testing.T) {
	s, err := ToStruct(map[string]any{
		"items_saved":    int64(3),
		"quantity":       math.NaN(),
		"parsing_method": "heuristic",
	})
	require.NoError(t, err)
	assert.Equal(t, 3.0, s.Fields["items_saved"].GetNumberValue())
	_, isNull := s.Fields["quantity"].GetKind().(*structpb.Value_NullValue)
	assert.True(t, isNull)
	assert.Equal(t, "heuristic", s.Fields["parsing_method"].GetStringValue())

	b, err := protojson.Marshal(s)
	require.NoError(t, err)
	assert.JSONEq(t, `{"items_saved":3,"quantity":null,"parsing_method":"heuristic"}`, string(b))
}

func TestToList(t *testing.T) {
	l, err := ToList([]map[string]any{{"a": 1.0}, {"b": math.Inf(1)}})
	require.NoError(t, err)
	require.Len(t, l.Values, 2)
	assert.Equal(t, 1.0, l.Values[0].GetStructValue().Fields["a"].GetNumberValue())
}
