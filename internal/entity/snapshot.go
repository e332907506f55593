package entity

import "time"

// Snapshot is the emitted billing document: all windows of one build in
// their final emission order plus a bounded per-record projection.
type Snapshot struct {
	Version     int        `json:"version"`
	GeneratedAt time.Time  `json:"generated_at"`
	Windows     []Window   `json:"windows"`
	UsageRows   []UsageRow `json:"usage_rows"`
}

// UsageRow restates a single source record with a verifiable reference
// independent of window-level hashing.
type UsageRow struct {
	TS        time.Time `json:"ts"`
	Owner     string    `json:"owner"`
	ServiceID string    `json:"service_id"`
	Operator  string    `json:"operator"`
	Units     int64     `json:"units"`
	Cost      int64     `json:"cost"`
	TxRef     string    `json:"tx_ref"`
}

// Build describes one completed snapshot build, kept for the serving
// surface's history endpoint.
type Build struct {
	ID          string    `json:"id"`
	GeneratedAt time.Time `json:"generated_at"`
	Windows     int       `json:"windows"`
	UsageRows   int       `json:"usage_rows"`
	Records     int       `json:"records"`
}
