package media

import "time"

type OrphanKind string

const (
	// OrphanObjectWithoutRow: the object was written but its row insert failed.
	OrphanObjectWithoutRow OrphanKind = "blob_without_row"
	// OrphanRowWithoutObject: the row exists but its object is gone.
	OrphanRowWithoutObject OrphanKind = "row_without_blob"
)

type Orphan struct {
	Kind       OrphanKind `json:"kind"`
	MediaID    string     `json:"media_id"`
	Bucket     string     `json:"bucket"`
	ObjectKey  string     `json:"object_key"`
	Reason     string     `json:"reason"`
	Cause      string     `json:"cause,omitempty"`
	DetectedAt time.Time  `json:"detected_at"`
}

// LedgerKey identifies an orphan entry; repeated detections of the same
// mismatch collapse into one entry.
func (o Orphan) LedgerKey() string {
	return string(o.Kind) + ":" + o.MediaID
}
