package event

import "github.com/egpivo/metering-chain/internal/entity"

// BuildRequested asks the collector to assemble a fresh batch.
type BuildRequested struct{}

// BatchCollected carries a complete, already-collected batch of
// transfer records ready for aggregation.
type BatchCollected struct {
	Records []entity.TransferRecord
	Skipped int
}

// SnapshotBuilt announces a finished build.
type SnapshotBuilt struct {
	Build    entity.Build
	Snapshot entity.Snapshot
}
