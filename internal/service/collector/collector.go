// Package collector periodically drains the transfer topic and hands
// the engine a complete batch. There is no incremental mode: every
// cycle re-reads the whole topic so a build never sees a partial view.
package collector

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/egpivo/metering-chain/internal/entity"
	"github.com/egpivo/metering-chain/internal/event"
	"github.com/egpivo/metering-chain/pkg/ebus"
)

type BatchSource interface {
	Batch(ctx context.Context) ([]entity.TransferRecord, int, error)
}

type Collector struct {
	source   BatchSource
	eBus     *ebus.EBus
	log      *zap.SugaredLogger
	interval time.Duration
}

func New(source BatchSource, eBus *ebus.EBus, log *zap.SugaredLogger, interval time.Duration) *Collector {
	return &Collector{
		source:   source,
		eBus:     eBus,
		log:      log,
		interval: interval,
	}
}

func (c *Collector) Run(ctx context.Context) error {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	// first build should not wait a full interval
	if err := c.collect(ctx); err != nil {
		return fmt.Errorf("collector: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := c.collect(ctx); err != nil {
				return fmt.Errorf("collector: %w", err)
			}
		}
	}
}

// HandleRequest serves on-demand rebuilds from the bus.
func (c *Collector) HandleRequest(ctx context.Context, _ event.BuildRequested) error {
	return c.collect(ctx)
}

func (c *Collector) collect(ctx context.Context) error {
	records, skipped, err := c.source.Batch(ctx)
	if err != nil {
		return fmt.Errorf("collect batch: %w", err)
	}

	c.log.Debugw("batch collected", "records", len(records), "skipped", skipped)

	return c.eBus.Emit(ctx, event.BatchCollected{
		Records: records,
		Skipped: skipped,
	})
}
