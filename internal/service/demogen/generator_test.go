package demogen

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/egpivo/metering-chain/internal/entity"
)

type captureStore struct {
	records []entity.TransferRecord
}

func (c *captureStore) Store(_ context.Context, rec entity.TransferRecord) error {
	c.records = append(c.records, rec)
	return nil
}

func TestGenerator_DeterministicPerSeed(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	a := New(nil, 42, 3, time.Second).Records(start, 2, 5)
	b := New(nil, 42, 3, time.Second).Records(start, 2, 5)
	assert.Equal(t, a, b)

	c := New(nil, 43, 3, time.Second).Records(start, 2, 5)
	assert.NotEqual(t, a, c)
}

func TestGenerator_RecordShape(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	records := New(nil, 7, 2, time.Second).Records(start, 3, 4)
	require.Len(t, records, 3*2*4)

	owners := map[string]struct{}{}
	for _, r := range records {
		assert.Len(t, r.Owner, ownerIDLen)
		assert.Positive(t, r.Units)
		assert.False(t, r.Time.Before(start))
		assert.True(t, r.Time.Before(start.AddDate(0, 0, 3)))
		owners[r.Owner] = struct{}{}
	}
	assert.Len(t, owners, 2)
}

func TestGenerator_RunPublishes(t *testing.T) {
	store := &captureStore{}
	g := New(store, 1, 2, time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := g.Run(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.NotEmpty(t, store.records)
}
