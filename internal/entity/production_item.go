package entity

import (
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/production-tracker/constants"
)

// ProductionItem represents one validated production order row for data transfer between layers.
type ProductionItem struct {
	ID            uuid.UUID               `json:"id"`
	UploadID      uuid.UUID               `json:"upload_id"`
	Seq           int                     `json:"-"` // position within the upload
	SourceRow     int                     `json:"source_row"`
	OrderNumber   string                  `json:"order_number"`
	Style         string                  `json:"style"`
	Fabric        string                  `json:"fabric"`
	Color         string                  `json:"color"`
	Quantity      float64                 `json:"quantity"`
	Status        constants.ItemStatus    `json:"status"`
	Timeline      map[string]*string      `json:"timeline"`
	RawContext    map[string]any          `json:"raw_context,omitempty"`
	ParsingMethod constants.ParsingMethod `json:"parsing_method"`
	CreatedAt     time.Time               `json:"created_at"`
}

// Document renders the item as a generic map, ready for sanitizing.
// Empty optional strings become nil.
func (p *ProductionItem) Document() map[string]any {
	timeline := make(map[string]any, len(p.Timeline))
	for k, v := range p.Timeline {
		if v == nil {
			timeline[k] = nil
		} else {
			timeline[k] = *v
		}
	}
	return map[string]any{
		"id":             p.ID,
		"upload_id":      p.UploadID,
		"source_row":     p.SourceRow,
		"order_number":   p.OrderNumber,
		"style":          optional(p.Style),
		"fabric":         optional(p.Fabric),
		"color":          optional(p.Color),
		"quantity":       p.Quantity,
		"status":         string(p.Status),
		"timeline":       timeline,
		"raw_context":    p.RawContext,
		"parsing_method": string(p.ParsingMethod),
		"created_at":     p.CreatedAt,
	}
}

func optional(s string) any {
	if s == "" {
		return nil
	}
	return s
}
