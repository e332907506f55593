package builder

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/egpivo/metering-chain/internal/entity"
	"github.com/egpivo/metering-chain/internal/event"
	"github.com/egpivo/metering-chain/pkg/ebus"
)

func TestService_HandleBatchEmitsSnapshot(t *testing.T) {
	eBus := ebus.New()

	var got []event.SnapshotBuilt
	eBus.Subscribe(event.SnapshotBuilt{}, ebus.Typed(func(_ context.Context, built event.SnapshotBuilt) error {
		got = append(got, built)
		return nil
	}))

	svc := NewService(Config{ServiceID: "svc", MinWindowUnits: 1}, ModeReplay, eBus, zap.NewNop().Sugar())

	err := svc.HandleBatch(context.Background(), event.BatchCollected{
		Records: []entity.TransferRecord{
			rec(t, "A", "2024-01-01T01:00:00Z", 10),
			rec(t, "B", "2024-01-01T02:00:00Z", 20),
		},
		Skipped: 1,
	})
	require.NoError(t, err)
	require.Len(t, got, 1)

	built := got[0]
	assert.NotEmpty(t, built.Build.ID)
	assert.Equal(t, 2, built.Build.Windows)
	assert.Equal(t, 2, built.Build.Records)
	assert.Len(t, built.Snapshot.Windows, 2)
	for _, w := range built.Snapshot.Windows {
		assert.Equal(t, entity.StatusFinalized, w.Status)
	}
}

func TestService_EmptyBatchAborts(t *testing.T) {
	eBus := ebus.New()
	eBus.Subscribe(event.SnapshotBuilt{}, ebus.Typed(func(context.Context, event.SnapshotBuilt) error {
		t.Fatal("no snapshot should be emitted for an empty batch")
		return nil
	}))

	svc := NewService(Config{ServiceID: "svc"}, ModeNone, eBus, zap.NewNop().Sugar())

	err := svc.HandleBatch(context.Background(), event.BatchCollected{})
	assert.NoError(t, err)
}

func TestService_UnknownModeFails(t *testing.T) {
	svc := NewService(Config{ServiceID: "svc"}, Mode("bogus"), ebus.New(), zap.NewNop().Sugar())

	err := svc.HandleBatch(context.Background(), event.BatchCollected{
		Records: []entity.TransferRecord{rec(t, "A", "2024-01-01T01:00:00Z", 10)},
	})
	assert.ErrorContains(t, err, "bogus")
}
