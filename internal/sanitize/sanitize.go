// Package sanitize rewrites arbitrary nested values into JSON-safe primitives.
//
// Output values are limited to string, bool, int64, finite float64, nil,
// map[string]any and []any. Non-finite floats become nil, integral floats
// within the exactly representable range become int64, identifier types
// become their string form. Durations become seconds. Sanitizing sanitized
// data returns it unchanged.
package sanitize

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"time"

	"github.com/google/uuid"
	"google.golang.org/protobuf/types/known/structpb"
)

// maxExactInt is the largest magnitude at which every integer is a float64.
const maxExactInt = 1 << 53

// Value sanitizes v.
func Value(v any) any {
	out, _ := Document(v)
	return out
}

// Map sanitizes every value of m into a new map.
func Map(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out, _ := Value(m).(map[string]any)
	return out
}

// Document sanitizes v and reports how many values could not be represented
// and were coerced to nil.
func Document(v any) (any, int) {
	w := &walker{}
	return w.visit(v), w.anomalies
}

// ToStruct converts a sanitized map into a protobuf Struct.
func ToStruct(m map[string]any) (*structpb.Struct, error) {
	s, err := structpb.NewStruct(Map(m))
	if err != nil {
		return nil, fmt.Errorf("sanitize: to struct: %w", err)
	}
	return s, nil
}

// ToList converts a sequence of documents into a protobuf ListValue.
func ToList(items []map[string]any) (*structpb.ListValue, error) {
	vals := make([]any, len(items))
	for i, it := range items {
		vals[i] = Map(it)
	}
	l, err := structpb.NewList(vals)
	if err != nil {
		return nil, fmt.Errorf("sanitize: to list: %w", err)
	}
	return l, nil
}

type walker struct {
	anomalies int
}

func (w *walker) visit(v any) any {
	switch t := v.(type) {
	case nil:
		return nil
	case string:
		return t
	case bool:
		return t
	case int64:
		return t
	case int:
		return int64(t)
	case int32:
		return int64(t)
	case float64:
		return number(t)
	case float32:
		return number(float64(t))
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return i
		}
		if f, err := t.Float64(); err == nil {
			return number(f)
		}
		w.anomalies++
		return nil
	case uuid.UUID:
		return t.String()
	case [16]byte:
		return uuid.UUID(t).String()
	case time.Time:
		return t.UTC().Format(time.RFC3339Nano)
	case []byte:
		return base64.StdEncoding.EncodeToString(t)
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = w.visit(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = w.visit(val)
		}
		return out
	case time.Duration:
		return number(t.Seconds())
	}
	rv := reflect.ValueOf(v)
	if s, ok := v.(fmt.Stringer); ok && !numericKind(rv.Kind()) {
		return s.String()
	}
	return w.visitReflect(rv)
}

// numericKind covers named numbers and bools, which keep their value even
// when they implement fmt.Stringer.
func numericKind(k reflect.Kind) bool {
	switch k {
	case reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}

func (w *walker) visitReflect(rv reflect.Value) any {
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return nil
		}
		return w.visit(rv.Elem().Interface())
	case reflect.String:
		return rv.String()
	case reflect.Bool:
		return rv.Bool()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int()
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		u := rv.Uint()
		if u <= math.MaxInt64 {
			return int64(u)
		}
		return number(float64(u))
	case reflect.Float32, reflect.Float64:
		return number(rv.Float())
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			w.anomalies++
			return nil
		}
		if rv.IsNil() {
			return nil
		}
		out := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			out[iter.Key().String()] = w.visit(iter.Value().Interface())
		}
		return out
	case reflect.Slice, reflect.Array:
		if rv.Kind() == reflect.Slice && rv.IsNil() {
			return nil
		}
		out := make([]any, rv.Len())
		for i := range out {
			out[i] = w.visit(rv.Index(i).Interface())
		}
		return out
	case reflect.Struct:
		return w.visitStruct(rv)
	}
	w.anomalies++
	return nil
}

// visitStruct goes through encoding/json so field tags decide the keys.
func (w *walker) visitStruct(rv reflect.Value) any {
	b, err := json.Marshal(rv.Interface())
	if err != nil {
		w.anomalies++
		return nil
	}
	var generic any
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	if err := dec.Decode(&generic); err != nil {
		w.anomalies++
		return nil
	}
	return w.visit(generic)
}

func number(f float64) any {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	if f == math.Trunc(f) && math.Abs(f) <= maxExactInt {
		return int64(f)
	}
	return f
}
