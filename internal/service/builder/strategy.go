package builder

import (
	"fmt"

	"github.com/egpivo/metering-chain/internal/entity"
)

// Mode names a reconciliation policy selectable at the boundary.
type Mode string

const (
	// ModeNone attempts no replay; every window stays Proposed.
	ModeNone Mode = "none"
	// ModeDemo labels the first three windows, one per status.
	ModeDemo Mode = "demo"
	// ModeCycle repeats the demo labels every 20 windows.
	ModeCycle Mode = "cycle"
	// ModeReplay independently recomputes every window from the batch.
	ModeReplay Mode = "replay"
)

// StrategyFor resolves a mode against the batch the build will run on.
func StrategyFor(mode Mode, records []entity.TransferRecord) (Strategy, error) {
	switch mode {
	case ModeNone, "":
		return nil, nil
	case ModeDemo:
		return DemoStrategy{}, nil
	case ModeCycle:
		return CycleStrategy{}, nil
	case ModeReplay:
		return NewReplayer(records), nil
	default:
		return nil, fmt.Errorf("unknown reconcile mode %q", mode)
	}
}

// Strategy decides whether a replay is attempted for a window and, when
// attempted, produces the independently stated summary. idx is the
// window's position in emission order.
type Strategy interface {
	Replay(idx int, w entity.Window) (summary *entity.ReplaySummary, attempted bool)
}

// StatusFor derives the reconciliation label from replay presence and
// field-for-field equality. Pure function; no other inputs exist.
func StatusFor(w entity.Window, summary *entity.ReplaySummary, attempted bool) entity.Status {
	switch {
	case !attempted:
		return entity.StatusProposed
	case summary == nil:
		return entity.StatusDisputed
	case *summary == w.Summary():
		return entity.StatusFinalized
	default:
		return entity.StatusDisputed
	}
}

// DemoStrategy labels windows by emission index so a fixture snapshot
// shows every status: index 0 gets a matching replay, index 1 a replay
// attempt without evidence, index 2 a deliberately perturbed summary,
// everything else stays Proposed.
type DemoStrategy struct{}

func (DemoStrategy) Replay(idx int, w entity.Window) (*entity.ReplaySummary, bool) {
	switch idx {
	case 0:
		s := w.Summary()
		return &s, true
	case 1:
		return nil, true
	case 2:
		s := w.Summary()
		s.GrossSpent = clampDec(s.GrossSpent)
		s.OperatorShare = clampDec(s.OperatorShare)
		return &s, true
	default:
		return nil, false
	}
}

func clampDec(v int64) int64 {
	if v <= 0 {
		return 0
	}
	return v - 1
}

// CycleStrategy spreads the three demo labels across a large window
// set by emission index modulo Period, leaving the rest Proposed. It
// is what the extended demo fixtures use.
type CycleStrategy struct {
	Period int
}

func (c CycleStrategy) Replay(idx int, w entity.Window) (*entity.ReplaySummary, bool) {
	period := c.Period
	if period < 3 {
		period = 20
	}
	return DemoStrategy{}.Replay(idx%period, w)
}

// Replayer recomputes every window's summary from the raw batch in an
// independent pass: it re-groups the records by (day, owner) and
// re-derives gross, count and the split, restating only the positional
// tx ids from the window itself.
type Replayer struct {
	gross map[windowKey]int64
	count map[windowKey]int64
}

func NewReplayer(records []entity.TransferRecord) *Replayer {
	r := &Replayer{
		gross: make(map[windowKey]int64),
		count: make(map[windowKey]int64),
	}
	for _, rec := range records {
		if rec.Units <= 0 || rec.Owner == "" {
			continue
		}
		k := windowKey{day: rec.DayID(), owner: rec.Owner}
		r.gross[k] += rec.Units
		r.count[k]++
	}
	return r
}

func (r *Replayer) Replay(_ int, w entity.Window) (*entity.ReplaySummary, bool) {
	k := windowKey{day: w.WindowID, owner: w.Owner}
	g := r.gross[k]
	share := g * 9 / 10

	return &entity.ReplaySummary{
		FromTxID:      w.FromTxID,
		ToTxID:        w.ToTxID,
		TxCount:       r.count[k],
		GrossSpent:    g,
		OperatorShare: share,
		ProtocolFee:   g - share,
		ReserveLocked: 0,
	}, true
}
