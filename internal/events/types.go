package events

// Stream name constants
const (
	StreamAudioEvents = "audio:events"
)

// Schema version constant
const (
	SchemaVersionV1 = "v1"
)

// Event kind constants
const (
	KindStarted   = "started"
	KindProgress  = "progress"
	KindCompleted = "completed"
	KindFailed    = "failed"
)

// AudioJobEvent is the progress message published for each audio job
// transition. Consumed by the polling UI bridge and the admin dashboard.
type AudioJobEvent struct {
	// EventID is assigned at publish time for downstream correlation.
	EventID        string `json:"event_id"`
	Kind           string `json:"kind"`
	JobID          uint   `json:"job_id"`
	ContentType    string `json:"content_type"`
	CollectionID   uint   `json:"collection_id"`
	Status         string `json:"status"`
	TotalItems     int    `json:"total_items"`
	CompletedItems int    `json:"completed_items"`
	FailedItems    int    `json:"failed_items"`
}
