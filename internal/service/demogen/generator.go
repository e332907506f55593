// Package demogen synthesizes transfer records for demo pipelines. The
// generator owns an explicitly seeded source so determinism is a
// property of the call, not of hidden process state.
package demogen

import (
	"context"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"github.com/egpivo/metering-chain/internal/entity"
)

// base58-style alphabet for owner-like ids, 44 chars long.
const ownerAlphabet = "123456789ABCDEFGHJKLMNPQRSTUVWXYZabcdefghijkmnopqrstuvwxyz"

const ownerIDLen = 44

type TransferStore interface {
	Store(ctx context.Context, rec entity.TransferRecord) error
}

type Generator struct {
	store    TransferStore
	rng      *rand.Rand
	owners   []string
	maxUnits int64
	interval time.Duration
}

// New builds a Generator over its own rand source. Two generators with
// the same seed and owner count produce identical record streams.
func New(store TransferStore, seed int64, owners int, interval time.Duration) *Generator {
	rng := rand.New(rand.NewSource(seed))

	ids := make([]string, owners)
	for i := range ids {
		ids[i] = ownerID(rng)
	}

	return &Generator{
		store:    store,
		rng:      rng,
		owners:   ids,
		maxUnits: 1_000_000,
		interval: interval,
	}
}

func ownerID(rng *rand.Rand) string {
	b := make([]byte, ownerIDLen)
	for i := range b {
		b[i] = ownerAlphabet[rng.Intn(len(ownerAlphabet))]
	}
	return string(b)
}

// Run publishes one record per owner per tick until cancelled.
func (g *Generator) Run(ctx context.Context) error {
	ticker := time.NewTicker(g.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			for _, owner := range g.owners {
				rec := g.record(owner, time.Now().UTC())
				if err := g.store.Store(ctx, rec); err != nil {
					return err
				}
			}
		}
	}
}

// Records synthesizes an offline batch spanning perDay records per
// owner per calendar day, starting at start. Deterministic per seed.
func (g *Generator) Records(start time.Time, days, perDay int) []entity.TransferRecord {
	out := make([]entity.TransferRecord, 0, days*perDay*len(g.owners))
	day := start.UTC().Truncate(24 * time.Hour)

	for d := 0; d < days; d++ {
		for _, owner := range g.owners {
			for i := 0; i < perDay; i++ {
				at := day.Add(time.Duration(g.rng.Intn(24*60*60)) * time.Second)
				out = append(out, g.record(owner, at))
			}
		}
		day = day.AddDate(0, 0, 1)
	}
	return out
}

func (g *Generator) record(owner string, at time.Time) entity.TransferRecord {
	id, _ := uuid.NewRandomFromReader(g.rng)
	return entity.TransferRecord{
		ID:    id,
		Owner: owner,
		Units: 1 + g.rng.Int63n(g.maxUnits),
		Time:  at,
	}
}
