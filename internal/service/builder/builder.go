// Package builder turns a complete batch of transfer records into the
// billing snapshot: per-(day, owner) windows with monetary splits,
// synthetic tx ranges, evidence hashes and reconciliation statuses.
package builder

import (
	"errors"
	"math"
	"sort"
	"strconv"
	"time"

	"github.com/egpivo/metering-chain/internal/entity"
	"github.com/egpivo/metering-chain/pkg/hashid"
)

// ErrNoRecords is returned when a batch holds no valid records at all;
// a build aborts rather than emit a vacuous snapshot.
var ErrNoRecords = errors.New("no valid transfer records in batch")

const (
	// SnapshotVersion is the emitted document version.
	SnapshotVersion = 1

	defaultUsageRowCap = 1000
)

type Config struct {
	// ServiceID tags every window and usage row.
	ServiceID string
	// MinWindowUnits drops windows whose gross falls below it.
	MinWindowUnits int64
	// MaxWindows caps the sorted window list; zero or negative disables
	// the cap.
	MaxWindows int
	// StartTxID seeds the tx-range cursor.
	StartTxID int64
	// UsageRowCap bounds the per-record projection; zero means the
	// default of 1000.
	UsageRowCap int
}

func (c Config) withDefaults() Config {
	if c.UsageRowCap == 0 {
		c.UsageRowCap = defaultUsageRowCap
	}
	return c
}

type Builder struct {
	cfg      Config
	strategy Strategy
	now      func() time.Time
}

type Option func(*Builder)

// WithClock overrides the generated_at clock, for tests.
func WithClock(now func() time.Time) Option {
	return func(b *Builder) {
		b.now = now
	}
}

// New builds a Builder. A nil strategy means no replay is ever
// attempted, leaving every window Proposed.
func New(cfg Config, strategy Strategy, opts ...Option) *Builder {
	b := &Builder{
		cfg:      cfg.withDefaults(),
		strategy: strategy,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

type windowKey struct {
	day   string
	owner string
}

// Build runs the single aggregation pass over the batch. The input is
// never mutated; identical input and configuration reproduce identical
// windows, hashes and statuses (only generated_at differs).
func (b *Builder) Build(records []entity.TransferRecord) (entity.Snapshot, error) {
	valid := make([]entity.TransferRecord, 0, len(records))
	for _, r := range records {
		if r.Units <= 0 || r.Owner == "" {
			continue
		}
		valid = append(valid, r)
	}
	if len(valid) == 0 {
		return entity.Snapshot{}, ErrNoRecords
	}

	gross := make(map[windowKey]int64)
	count := make(map[windowKey]int64)
	dayTotal := make(map[string]int64)
	dayOwners := make(map[string]map[string]struct{})

	for _, r := range valid {
		k := windowKey{day: r.DayID(), owner: r.Owner}
		gross[k] += r.Units
		count[k]++
		dayTotal[k.day] += r.Units
		if dayOwners[k.day] == nil {
			dayOwners[k.day] = make(map[string]struct{})
		}
		dayOwners[k.day][r.Owner] = struct{}{}
	}

	windows := make([]entity.Window, 0, len(gross))
	for k, g := range gross {
		if g < b.cfg.MinWindowUnits {
			continue
		}

		// day_total and operator_count come from the unfiltered day,
		// so dropped windows still count toward concentration.
		total := dayTotal[k.day]
		if total < 1 {
			total = 1
		}

		fromTS, _ := time.ParseInLocation(entity.DayLayout, k.day, time.UTC)
		share := g * 9 / 10

		windows = append(windows, entity.Window{
			Owner:         k.owner,
			ServiceID:     b.cfg.ServiceID,
			WindowID:      k.day,
			FromTS:        fromTS,
			ToTS:          fromTS.AddDate(0, 0, 1),
			GrossSpent:    g,
			OperatorShare: share,
			ProtocolFee:   g - share,
			ReserveLocked: 0,
			TopNShare:     math.Round(float64(g)/float64(total)*100*100) / 100,
			OperatorCount: len(dayOwners[k.day]),
			TxCount:       count[k],
		})
	}

	// Total order; the tie-break chain keeps truncation deterministic.
	sort.Slice(windows, func(i, j int) bool {
		wi, wj := windows[i], windows[j]
		if wi.GrossSpent != wj.GrossSpent {
			return wi.GrossSpent > wj.GrossSpent
		}
		if wi.WindowID != wj.WindowID {
			return wi.WindowID > wj.WindowID
		}
		return wi.Owner > wj.Owner
	})
	if b.cfg.MaxWindows > 0 && len(windows) > b.cfg.MaxWindows {
		windows = windows[:b.cfg.MaxWindows]
	}

	assignRanges(windows, b.cfg.StartTxID)

	for i := range windows {
		windows[i].EvidenceHash = hashid.Evidence(windows[i].EvidencePayload())
		b.reconcile(i, &windows[i])
	}

	return entity.Snapshot{
		Version:     SnapshotVersion,
		GeneratedAt: b.now().UTC(),
		Windows:     windows,
		UsageRows:   b.usageRows(valid),
	}, nil
}

// reconcile attaches the replay summary and derives the status label.
func (b *Builder) reconcile(idx int, w *entity.Window) {
	var (
		summary   *entity.ReplaySummary
		attempted bool
	)
	if b.strategy != nil {
		summary, attempted = b.strategy.Replay(idx, *w)
	}

	w.Status = StatusFor(*w, summary, attempted)
	w.ReplaySummary = summary
	if summary != nil {
		h := hashid.Replay(summary.Canonical())
		w.ReplayHash = &h
	}
}

func (b *Builder) usageRows(valid []entity.TransferRecord) []entity.UsageRow {
	n := len(valid)
	if n > b.cfg.UsageRowCap {
		n = b.cfg.UsageRowCap
	}

	rows := make([]entity.UsageRow, 0, n)
	for _, r := range valid[:n] {
		rows = append(rows, entity.UsageRow{
			TS:        r.Time.UTC(),
			Owner:     r.Owner,
			ServiceID: b.cfg.ServiceID,
			Operator:  r.Owner,
			Units:     r.Units,
			Cost:      r.Units,
			TxRef:     hashid.TxRef(txRefPayload(r)),
		})
	}
	return rows
}

func txRefPayload(r entity.TransferRecord) string {
	return r.Owner + ":" + r.Time.UTC().Format(time.RFC3339) + ":" + strconv.FormatInt(r.Units, 10)
}
