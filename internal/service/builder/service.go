package builder

import (
	"context"
	"errors"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	"github.com/egpivo/metering-chain/internal/entity"
	"github.com/egpivo/metering-chain/internal/event"
	"github.com/egpivo/metering-chain/pkg/ebus"
)

// Service is the event-driven shell around the engine: it consumes
// collected batches from the bus and announces finished snapshots,
// each run tagged with a ULID for log correlation. The reconcile
// strategy is resolved per batch, since a replayer must see the very
// batch the build runs on.
type Service struct {
	cfg  Config
	mode Mode
	eBus *ebus.EBus
	log  *zap.SugaredLogger
}

func NewService(cfg Config, mode Mode, eBus *ebus.EBus, log *zap.SugaredLogger) *Service {
	return &Service{
		cfg:  cfg,
		mode: mode,
		eBus: eBus,
		log:  log,
	}
}

func (s *Service) HandleBatch(ctx context.Context, batch event.BatchCollected) error {
	buildID := ulid.Make().String()

	strategy, err := StrategyFor(s.mode, batch.Records)
	if err != nil {
		return err
	}

	snap, err := New(s.cfg, strategy).Build(batch.Records)
	if err != nil {
		if errors.Is(err, ErrNoRecords) {
			// build aborted, nothing emitted; the next batch may differ
			s.log.Warnw("build aborted", "build_id", buildID, "skipped", batch.Skipped)
			return nil
		}
		return err
	}

	s.log.Infow("snapshot built",
		"build_id", buildID,
		"windows", len(snap.Windows),
		"usage_rows", len(snap.UsageRows),
		"records", len(batch.Records),
		"skipped", batch.Skipped,
	)

	return s.eBus.Emit(ctx, event.SnapshotBuilt{
		Build: entity.Build{
			ID:          buildID,
			GeneratedAt: snap.GeneratedAt,
			Windows:     len(snap.Windows),
			UsageRows:   len(snap.UsageRows),
			Records:     len(batch.Records),
		},
		Snapshot: snap,
	})
}
