package llm

import (
	"context"
)

// SampleColumn is one column as shown to the model: its canonical name,
// the vendor's header text and a few example values.
type SampleColumn struct {
	Index    int      `json:"-"`
	Name     string   `json:"name"`
	Header   string   `json:"header"`
	Examples []string `json:"examples,omitempty"`
}

// MappingRequest is the bounded sample sent for one upload.
type MappingRequest struct {
	FilenameHint string
	SheetName    string
	Columns      []SampleColumn
	Stages       []string
	TotalRows    int
}

// MappingResponse is the normalized shape we want from the LLM: for each
// canonical field the name of the column holding it, or nil.
type MappingResponse struct {
	OrderNumber *string            `json:"order_number"`
	Quantity    *string            `json:"quantity"`
	Style       *string            `json:"style,omitempty"`
	Fabric      *string            `json:"fabric,omitempty"`
	Color       *string            `json:"color,omitempty"`
	Timeline    map[string]*string `json:"timeline,omitempty"`
	Confidence  float32            `json:"confidence,omitempty"` // optional (0..1)
}

// ColumnMapper is the interface our pipeline depends on.
type ColumnMapper interface {
	MapColumns(ctx context.Context, req MappingRequest) (MappingResponse, []byte /*rawJSON*/, error)
}
