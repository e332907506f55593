package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/IBM/sarama"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/egpivo/metering-chain/config"
	"github.com/egpivo/metering-chain/internal/entity"
	"github.com/egpivo/metering-chain/internal/event"
	"github.com/egpivo/metering-chain/internal/repository"
	"github.com/egpivo/metering-chain/internal/service/builder"
	"github.com/egpivo/metering-chain/internal/service/collector"
	"github.com/egpivo/metering-chain/internal/service/demogen"
	"github.com/egpivo/metering-chain/internal/service/interrupter"
	"github.com/egpivo/metering-chain/internal/service/web"
	"github.com/egpivo/metering-chain/pkg/app"
	"github.com/egpivo/metering-chain/pkg/ebus"
	"github.com/egpivo/metering-chain/pkg/utils"
)

func main() {
	cliApp := &cli.App{
		Name:  "metering",
		Usage: "turn token transfer batches into auditable billing windows",
		Commands: []*cli.Command{
			buildCommand(),
			serveCommand(),
			demoCommand(),
		},
	}

	if err := cliApp.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func builderFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "service-id", Value: "helium-iot", Usage: "service_id tag applied to every window"},
		&cli.Int64Flag{Name: "min-window-units", Value: 1, Usage: "drop windows below this gross_spent"},
		&cli.IntFlag{Name: "max-windows", Value: 80, Usage: "cap windows after sorting; 0 disables"},
		&cli.Int64Flag{Name: "start-tx-id", Value: 0, Usage: "seed for the tx-range cursor"},
		&cli.IntFlag{Name: "usage-cap", Value: 1000, Usage: "cap emitted usage rows"},
	}
}

func builderConfig(c *cli.Context) builder.Config {
	return builder.Config{
		ServiceID:      c.String("service-id"),
		MinWindowUnits: c.Int64("min-window-units"),
		MaxWindows:     c.Int("max-windows"),
		StartTxID:      c.Int64("start-tx-id"),
		UsageRowCap:    c.Int("usage-cap"),
	}
}

func buildCommand() *cli.Command {
	return &cli.Command{
		Name:  "build",
		Usage: "build a snapshot from a transfer CSV",
		Flags: append([]cli.Flag{
			&cli.StringFlag{Name: "input", Required: true, Usage: "input transfer CSV"},
			&cli.StringFlag{Name: "output", Required: true, Usage: "output snapshot JSON path"},
			&cli.StringFlag{Name: "mirror", Usage: "optional second path for the same snapshot"},
			&cli.StringFlag{Name: "owner-col", Value: "to_owner", Usage: "owner column in the CSV"},
			&cli.StringFlag{Name: "time-col", Value: "block_time", Usage: "timestamp column in the CSV"},
			&cli.StringFlag{Name: "amount-col", Value: "amount", Usage: "amount column in the CSV"},
			&cli.Int64Flag{Name: "amount-scale", Value: 1, Usage: "multiply amounts by this before flooring to units"},
			&cli.StringFlag{Name: "reconcile", Value: "demo", Usage: "reconcile mode: none, demo, cycle, replay"},
		}, builderFlags()...),
		Action: runBuild,
	}
}

func runBuild(c *cli.Context) error {
	src := repository.NewCSV(c.String("input"), repository.Columns{
		Owner:  c.String("owner-col"),
		Time:   c.String("time-col"),
		Amount: c.String("amount-col"),
	}, c.Int64("amount-scale"))

	records, skipped, err := src.Batch(c.Context)
	if err != nil {
		return err
	}

	snap, err := buildSnapshot(c, records)
	if err != nil {
		return err
	}

	out := c.String("output")
	if err := repository.NewSnapshotFile(out, c.String("mirror")).Store(c.Context, snap); err != nil {
		return err
	}

	fmt.Printf("wrote snapshot with %d windows to %s (%d rows skipped)\n", len(snap.Windows), out, skipped)
	return nil
}

func buildSnapshot(c *cli.Context, records []entity.TransferRecord) (entity.Snapshot, error) {
	strategy, err := builder.StrategyFor(builder.Mode(c.String("reconcile")), records)
	if err != nil {
		return entity.Snapshot{}, err
	}

	snap, err := builder.New(builderConfig(c), strategy).Build(records)
	if err != nil {
		return entity.Snapshot{}, fmt.Errorf("build snapshot: %w", err)
	}
	return snap, nil
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "run the collect-build-serve pipeline against Kafka",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Usage: "config file (YAML)", EnvVars: []string{"METERING_CONFIG"}},
			&cli.BoolFlag{Name: "debug", Usage: "verbose development logging"},
		},
		Action: runServe,
	}
}

func runServe(c *cli.Context) error {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return err
	}

	logger := utils.Must(newLogger(c.Bool("debug")))
	defer logger.Sync()
	log := logger.Sugar()

	eBus := ebus.New()

	kafkaCl := utils.Must(sarama.NewClient(cfg.Kafka.Brokers, cfg.Kafka.SaramaConfig()))
	defer kafkaCl.Close()
	prod := utils.Must(sarama.NewSyncProducerFromClient(kafkaCl))
	defer prod.Close()

	transfers := repository.NewTransfer(kafkaCl, prod, cfg.Kafka.Topic)
	snapshots := repository.NewSnapshotFile(cfg.Snapshot.Path, cfg.Snapshot.Mirror)

	engine := builder.NewService(builder.Config{
		ServiceID:      cfg.Builder.ServiceID,
		MinWindowUnits: cfg.Builder.MinWindowUnits,
		MaxWindows:     cfg.Builder.MaxWindows,
		StartTxID:      cfg.Builder.StartTxID,
		UsageRowCap:    cfg.Builder.UsageRowCap,
	}, builder.Mode(cfg.Builder.Reconcile), eBus, log)

	collect := collector.New(transfers, eBus, log, cfg.Builder.Interval)
	server := web.New(cfg.Web.Addr, cfg.Web.History, log, func(ctx context.Context) error {
		return eBus.Emit(ctx, event.BuildRequested{})
	})

	eBus.
		Subscribe(event.BuildRequested{}, ebus.Typed(collect.HandleRequest)).
		Subscribe(event.BatchCollected{}, ebus.Typed(engine.HandleBatch)).
		Subscribe(event.SnapshotBuilt{}, ebus.Typed(server.HandleSnapshot)).
		Subscribe(event.SnapshotBuilt{}, ebus.Typed(func(ctx context.Context, built event.SnapshotBuilt) error {
			return snapshots.Store(ctx, built.Snapshot)
		}))

	group := app.New().
		WithService(collect).
		WithService(server).
		WithService(interrupter.Interrupter{})

	if cfg.Demo.Enabled {
		group = group.WithService(demogen.New(transfers, cfg.Demo.Seed, cfg.Demo.Owners, cfg.Demo.Interval))
	}

	return group.Run(c.Context)
}

func demoCommand() *cli.Command {
	return &cli.Command{
		Name:  "demo",
		Usage: "build an extended demo snapshot from seeded synthetic transfers",
		Flags: append([]cli.Flag{
			&cli.StringFlag{Name: "output", Required: true, Usage: "output snapshot JSON path"},
			&cli.Int64Flag{Name: "seed", Value: 42, Usage: "generator seed"},
			&cli.IntFlag{Name: "owners", Value: 80, Usage: "distinct demo owners"},
			&cli.IntFlag{Name: "days", Value: 53, Usage: "day span to cover"},
			&cli.IntFlag{Name: "per-day", Value: 2, Usage: "records per owner per day"},
			&cli.StringFlag{Name: "start", Value: "2026-01-01", Usage: "first day (YYYY-MM-DD)"},
			&cli.StringFlag{Name: "reconcile", Value: "cycle", Usage: "reconcile mode: none, demo, cycle, replay"},
		}, builderFlags()...),
		Action: runDemo,
	}
}

func runDemo(c *cli.Context) error {
	start, err := time.ParseInLocation(entity.DayLayout, c.String("start"), time.UTC)
	if err != nil {
		return fmt.Errorf("parse start day: %w", err)
	}

	gen := demogen.New(nil, c.Int64("seed"), c.Int("owners"), time.Second)
	records := gen.Records(start, c.Int("days"), c.Int("per-day"))

	snap, err := buildSnapshot(c, records)
	if err != nil {
		return err
	}

	out := c.String("output")
	if err := repository.NewSnapshotFile(out, "").Store(c.Context, snap); err != nil {
		return err
	}

	fmt.Printf("wrote demo snapshot with %d windows to %s\n", len(snap.Windows), out)
	return nil
}

func newLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
