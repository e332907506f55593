package repository

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/egpivo/metering-chain/internal/entity"
)

// Columns maps the transfer fields onto CSV column names. Zero values
// fall back to the upstream export's defaults.
type Columns struct {
	Owner  string
	Time   string
	Amount string
}

func (c Columns) withDefaults() Columns {
	if c.Owner == "" {
		c.Owner = "to_owner"
	}
	if c.Time == "" {
		c.Time = "block_time"
	}
	if c.Amount == "" {
		c.Amount = "amount"
	}
	return c
}

// CSV reads a complete batch of transfer records from a CSV export.
// Malformed rows are skipped, not failed: ingestion is best effort and
// the builder decides whether what survived is enough.
type CSV struct {
	path  string
	cols  Columns
	scale int64
}

// NewCSV builds a CSV source. scale multiplies the decimal amount
// before floor-rounding to integer units; values below 1 mean 1.
func NewCSV(path string, cols Columns, scale int64) *CSV {
	if scale < 1 {
		scale = 1
	}
	return &CSV{
		path:  path,
		cols:  cols.withDefaults(),
		scale: scale,
	}
}

func (c *CSV) Batch(ctx context.Context) ([]entity.TransferRecord, int, error) {
	f, err := os.Open(c.path)
	if err != nil {
		return nil, 0, fmt.Errorf("open csv: %w", err)
	}
	defer f.Close()

	return c.decode(ctx, f)
}

func (c *CSV) decode(ctx context.Context, r io.Reader) ([]entity.TransferRecord, int, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, 0, fmt.Errorf("read csv header: %w", err)
	}

	idx := make(map[string]int, len(header))
	for i, name := range header {
		idx[strings.TrimSpace(name)] = i
	}
	for _, col := range []string{c.cols.Owner, c.cols.Time, c.cols.Amount} {
		if _, ok := idx[col]; !ok {
			return nil, 0, fmt.Errorf("missing csv column %q", col)
		}
	}

	records := make([]entity.TransferRecord, 0)
	skipped := 0
	for {
		if err := ctx.Err(); err != nil {
			return nil, skipped, err
		}

		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			skipped++
			continue
		}

		rec, ok := c.decodeRow(row, idx)
		if !ok {
			skipped++
			continue
		}
		records = append(records, rec)
	}

	return records, skipped, nil
}

func (c *CSV) decodeRow(row []string, idx map[string]int) (entity.TransferRecord, bool) {
	field := func(col string) string {
		i := idx[col]
		if i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	owner := field(c.cols.Owner)
	rawTime := field(c.cols.Time)
	rawAmount := field(c.cols.Amount)
	if owner == "" || rawTime == "" || rawAmount == "" {
		return entity.TransferRecord{}, false
	}

	at, err := parseTime(rawTime)
	if err != nil {
		return entity.TransferRecord{}, false
	}
	units, err := parseUnits(rawAmount, c.scale)
	if err != nil || units <= 0 {
		return entity.TransferRecord{}, false
	}

	return entity.TransferRecord{
		ID:    uuid.New(),
		Owner: owner,
		Units: units,
		Time:  at,
	}, true
}

// timeLayouts covers the export's timestamp variants: RFC3339 with a Z,
// space-separated with an explicit offset, and naive forms taken as UTC.
var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

func parseTime(raw string) (time.Time, error) {
	s := strings.TrimSpace(raw)
	if rest, ok := strings.CutSuffix(s, " UTC"); ok {
		s = rest + "Z"
	}

	for _, layout := range timeLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable timestamp %q", raw)
}

// parseUnits scales a decimal amount string and floors it to integer
// units, matching the upstream Decimal/ROUND_FLOOR arithmetic.
func parseUnits(raw string, scale int64) (int64, error) {
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return 0, fmt.Errorf("parse amount: %w", err)
	}
	return d.Mul(decimal.NewFromInt(scale)).Floor().IntPart(), nil
}
