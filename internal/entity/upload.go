package entity

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/production-tracker/constants"
)

// Upload records one submitted workbook and how it was processed.
type Upload struct {
	ID            uuid.UUID               `json:"id"`
	Filename      string                  `json:"filename"`
	ContentHash   string                  `json:"content_hash"`
	SizeBytes     int64                   `json:"size_bytes"`
	Status        constants.UploadStatus  `json:"status"`
	ParsingMethod constants.ParsingMethod `json:"parsing_method,omitempty"`
	ItemsSaved    int                     `json:"items_saved"`
	RejectedCount int                     `json:"rejected_count"`
	ErrorMessage  *string                 `json:"error_message,omitempty"`
	ColumnMapping json.RawMessage         `json:"column_mapping,omitempty"`
	StartedAt     time.Time               `json:"started_at"`
	FinishedAt    *time.Time              `json:"finished_at,omitempty"`
	ProcessingMS  int64                   `json:"processing_ms"`
}

// Document renders the upload as a generic map, ready for sanitizing.
func (u *Upload) Document() map[string]any {
	var mapping any
	if len(u.ColumnMapping) > 0 {
		_ = json.Unmarshal(u.ColumnMapping, &mapping)
	}
	var errMsg any
	if u.ErrorMessage != nil {
		errMsg = *u.ErrorMessage
	}
	var finished any
	if u.FinishedAt != nil {
		finished = *u.FinishedAt
	}
	return map[string]any{
		"id":             u.ID,
		"filename":       u.Filename,
		"content_hash":   u.ContentHash,
		"size_bytes":     u.SizeBytes,
		"status":         string(u.Status),
		"parsing_method": optional(string(u.ParsingMethod)),
		"items_saved":    u.ItemsSaved,
		"rejected_count": u.RejectedCount,
		"error_message":  errMsg,
		"column_mapping": mapping,
		"started_at":     u.StartedAt,
		"finished_at":    finished,
		"processing_ms":  u.ProcessingMS,
	}
}
