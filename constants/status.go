package constants

// ItemStatus is derived from an item's timeline, never set by hand.
type ItemStatus string

const (
	ItemStatusPending      ItemStatus = "pending"
	ItemStatusInProduction ItemStatus = "in_production"
	ItemStatusCompleted    ItemStatus = "completed"
)

// UploadStatus is the canonical status for rows in uploads.
type UploadStatus string

// Stable values (store these exact strings in DB).
const (
	UploadStatusReceived UploadStatus = "RECEIVED"
	UploadStatusComplete UploadStatus = "COMPLETE"
	UploadStatusFailed   UploadStatus = "FAILED" // terminal failure, nothing persisted
)

// ParsingMethod records which extraction strategy produced an upload's items.
type ParsingMethod string

const (
	ParsingMethodAI        ParsingMethod = "ai"
	ParsingMethodHeuristic ParsingMethod = "heuristic"
)
