package builder

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/egpivo/metering-chain/internal/entity"
)

func ts(t *testing.T, s string) time.Time {
	t.Helper()
	parsed, err := time.Parse(time.RFC3339, s)
	require.NoError(t, err)
	return parsed
}

func rec(t *testing.T, owner, at string, units int64) entity.TransferRecord {
	t.Helper()
	return entity.TransferRecord{Owner: owner, Time: ts(t, at), Units: units}
}

func TestBuild_SingleOwnerWindow(t *testing.T) {
	b := New(Config{ServiceID: "svc", MinWindowUnits: 1, MaxWindows: 10}, DemoStrategy{})

	snap, err := b.Build([]entity.TransferRecord{
		rec(t, "A", "2024-01-01T10:00:00Z", 10),
		rec(t, "A", "2024-01-01T15:00:00Z", 5),
	})
	require.NoError(t, err)
	require.Len(t, snap.Windows, 1)

	w := snap.Windows[0]
	assert.Equal(t, "A", w.Owner)
	assert.Equal(t, "svc", w.ServiceID)
	assert.Equal(t, "2024-01-01", w.WindowID)
	assert.Equal(t, ts(t, "2024-01-01T00:00:00Z"), w.FromTS)
	assert.Equal(t, ts(t, "2024-01-02T00:00:00Z"), w.ToTS)
	assert.Equal(t, int64(15), w.GrossSpent)
	assert.Equal(t, int64(13), w.OperatorShare)
	assert.Equal(t, int64(2), w.ProtocolFee)
	assert.Equal(t, int64(0), w.ReserveLocked)
	assert.Equal(t, float64(100), w.TopNShare)
	assert.Equal(t, 1, w.OperatorCount)
	assert.Equal(t, int64(0), w.FromTxID)
	assert.Equal(t, int64(2), w.ToTxID)
	assert.Equal(t, int64(2), w.TxCount)
	assert.Equal(t, "337fa451bca9", w.EvidenceHash)

	// index 0 under the demo strategy carries a matching replay
	assert.Equal(t, entity.StatusFinalized, w.Status)
	require.NotNil(t, w.ReplaySummary)
	assert.Equal(t, w.Summary(), *w.ReplaySummary)
	require.NotNil(t, w.ReplayHash)
	assert.Equal(t, "25d133fcbdbf", *w.ReplayHash)

	require.Len(t, snap.UsageRows, 2)
	row := snap.UsageRows[0]
	assert.Equal(t, "A", row.Owner)
	assert.Equal(t, "A", row.Operator)
	assert.Equal(t, "svc", row.ServiceID)
	assert.Equal(t, int64(10), row.Units)
	assert.Equal(t, int64(10), row.Cost)
	assert.Equal(t, "c5abea85a97c", row.TxRef)
}

func TestBuild_SplitInvariantAndContiguity(t *testing.T) {
	b := New(Config{ServiceID: "svc", MinWindowUnits: 1}, nil)

	snap, err := b.Build([]entity.TransferRecord{
		rec(t, "A", "2024-01-01T01:00:00Z", 7),
		rec(t, "B", "2024-01-01T02:00:00Z", 19),
		rec(t, "B", "2024-01-01T03:00:00Z", 4),
		rec(t, "C", "2024-01-02T04:00:00Z", 11),
		rec(t, "A", "2024-01-02T05:00:00Z", 3),
		rec(t, "A", "2024-01-02T06:00:00Z", 1),
	})
	require.NoError(t, err)
	require.Len(t, snap.Windows, 4)

	cursor := int64(0)
	for _, w := range snap.Windows {
		assert.Equal(t, w.GrossSpent, w.OperatorShare+w.ProtocolFee, w.Owner)
		assert.Equal(t, w.TxCount, w.ToTxID-w.FromTxID, w.Owner)
		assert.Equal(t, cursor, w.FromTxID, w.Owner)
		cursor = w.ToTxID
		assert.Equal(t, entity.StatusProposed, w.Status)
		assert.Nil(t, w.ReplaySummary)
		assert.Nil(t, w.ReplayHash)
	}
}

func TestBuild_DropsInvalidRecords(t *testing.T) {
	b := New(Config{ServiceID: "svc", MinWindowUnits: 1}, nil)

	snap, err := b.Build([]entity.TransferRecord{
		rec(t, "A", "2024-01-01T01:00:00Z", 10),
		rec(t, "A", "2024-01-01T02:00:00Z", 0),
		rec(t, "B", "2024-01-01T03:00:00Z", -5),
		rec(t, "", "2024-01-01T04:00:00Z", 9),
	})
	require.NoError(t, err)
	require.Len(t, snap.Windows, 1)

	w := snap.Windows[0]
	assert.Equal(t, int64(10), w.GrossSpent)
	assert.Equal(t, int64(1), w.TxCount)
	// the zero-unit and negative records contribute to nothing
	assert.Equal(t, 1, w.OperatorCount)
	assert.Equal(t, float64(100), w.TopNShare)
	assert.Len(t, snap.UsageRows, 1)
}

func TestBuild_NoValidRecords(t *testing.T) {
	b := New(Config{ServiceID: "svc"}, nil)

	_, err := b.Build(nil)
	assert.ErrorIs(t, err, ErrNoRecords)

	_, err = b.Build([]entity.TransferRecord{
		rec(t, "A", "2024-01-01T01:00:00Z", 0),
	})
	assert.ErrorIs(t, err, ErrNoRecords)
}

func TestBuild_MinWindowUnitsKeepsDayStats(t *testing.T) {
	b := New(Config{ServiceID: "svc", MinWindowUnits: 10}, nil)

	snap, err := b.Build([]entity.TransferRecord{
		rec(t, "A", "2024-01-01T01:00:00Z", 75),
		rec(t, "B", "2024-01-01T02:00:00Z", 25),
		rec(t, "C", "2024-01-01T03:00:00Z", 4),
	})
	require.NoError(t, err)
	require.Len(t, snap.Windows, 2)

	// the dropped owner still counts toward the day's totals
	for _, w := range snap.Windows {
		assert.Equal(t, 3, w.OperatorCount)
	}
	assert.Equal(t, int64(75), snap.Windows[0].GrossSpent)
	assert.InDelta(t, 72.12, snap.Windows[0].TopNShare, 0.001)
	assert.InDelta(t, 24.04, snap.Windows[1].TopNShare, 0.001)
}

func TestBuild_SortOrderAndCap(t *testing.T) {
	records := []entity.TransferRecord{
		rec(t, "B", "2024-01-01T01:00:00Z", 50),
		rec(t, "A", "2024-01-02T01:00:00Z", 50),
		rec(t, "A", "2024-01-01T01:00:00Z", 50),
		rec(t, "C", "2024-01-01T01:00:00Z", 80),
		rec(t, "D", "2024-01-03T01:00:00Z", 5),
	}

	b := New(Config{ServiceID: "svc", MinWindowUnits: 1}, nil)
	snap, err := b.Build(records)
	require.NoError(t, err)

	got := make([][2]string, 0, len(snap.Windows))
	for _, w := range snap.Windows {
		got = append(got, [2]string{w.WindowID, w.Owner})
	}
	// gross desc, then window_id desc, then owner desc
	assert.Equal(t, [][2]string{
		{"2024-01-01", "C"},
		{"2024-01-02", "A"},
		{"2024-01-01", "B"},
		{"2024-01-01", "A"},
		{"2024-01-03", "D"},
	}, got)

	capped := New(Config{ServiceID: "svc", MinWindowUnits: 1, MaxWindows: 3}, nil)
	snap, err = capped.Build(records)
	require.NoError(t, err)
	require.Len(t, snap.Windows, 3)
	assert.Equal(t, got[:3], [][2]string{
		{snap.Windows[0].WindowID, snap.Windows[0].Owner},
		{snap.Windows[1].WindowID, snap.Windows[1].Owner},
		{snap.Windows[2].WindowID, snap.Windows[2].Owner},
	})
}

func TestBuild_StartTxIDSeedsCursor(t *testing.T) {
	b := New(Config{ServiceID: "svc", StartTxID: 100}, nil)

	snap, err := b.Build([]entity.TransferRecord{
		rec(t, "A", "2024-01-01T01:00:00Z", 10),
		rec(t, "A", "2024-01-01T02:00:00Z", 10),
	})
	require.NoError(t, err)
	require.Len(t, snap.Windows, 1)
	assert.Equal(t, int64(100), snap.Windows[0].FromTxID)
	assert.Equal(t, int64(102), snap.Windows[0].ToTxID)
}

func TestBuild_Idempotent(t *testing.T) {
	records := []entity.TransferRecord{
		rec(t, "A", "2024-01-01T01:00:00Z", 42),
		rec(t, "B", "2024-01-01T02:00:00Z", 17),
		rec(t, "A", "2024-01-02T03:00:00Z", 9),
	}

	first := New(Config{ServiceID: "svc", MinWindowUnits: 1}, DemoStrategy{})
	second := New(Config{ServiceID: "svc", MinWindowUnits: 1}, DemoStrategy{})

	s1, err := first.Build(records)
	require.NoError(t, err)
	s2, err := second.Build(records)
	require.NoError(t, err)

	// generated_at differs; everything committed must not
	assert.Equal(t, s1.Windows, s2.Windows)
	assert.Equal(t, s1.UsageRows, s2.UsageRows)
}

func TestBuild_UsageRowCap(t *testing.T) {
	records := make([]entity.TransferRecord, 0, 10)
	for i := 0; i < 10; i++ {
		records = append(records, rec(t, "A", "2024-01-01T01:00:00Z", int64(i+1)))
	}

	b := New(Config{ServiceID: "svc", UsageRowCap: 4}, nil)
	snap, err := b.Build(records)
	require.NoError(t, err)
	assert.Len(t, snap.UsageRows, 4)
}

func TestBuild_GeneratedAtUsesClock(t *testing.T) {
	at := ts(t, "2024-06-01T12:00:00Z")
	b := New(Config{ServiceID: "svc"}, nil, WithClock(func() time.Time { return at }))

	snap, err := b.Build([]entity.TransferRecord{
		rec(t, "A", "2024-01-01T01:00:00Z", 1),
	})
	require.NoError(t, err)
	assert.Equal(t, SnapshotVersion, snap.Version)
	assert.Equal(t, at, snap.GeneratedAt)
}
