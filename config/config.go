// Package config loads runtime configuration from defaults, an
// optional YAML file and METERING_-prefixed environment variables, in
// that priority order.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/IBM/sarama"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const envPrefix = "METERING_"

type Config struct {
	Kafka    Kafka    `koanf:"kafka"`
	Web      Web      `koanf:"web"`
	Builder  Builder  `koanf:"builder"`
	Ingest   Ingest   `koanf:"ingest"`
	Snapshot Snapshot `koanf:"snapshot"`
	Demo     Demo     `koanf:"demo"`
}

type Kafka struct {
	Brokers []string `koanf:"brokers"`
	Topic   string   `koanf:"topic"`
}

func (k Kafka) SaramaConfig() *sarama.Config {
	cfg := sarama.NewConfig()
	cfg.Producer.Return.Successes = true

	return cfg
}

type Web struct {
	Addr    string `koanf:"addr"`
	History int    `koanf:"history"`
}

type Builder struct {
	ServiceID      string        `koanf:"service"`
	MinWindowUnits int64         `koanf:"minunits"`
	MaxWindows     int           `koanf:"maxwindows"`
	StartTxID      int64         `koanf:"starttx"`
	UsageRowCap    int           `koanf:"usagecap"`
	Interval       time.Duration `koanf:"interval"`
	Reconcile      string        `koanf:"reconcile"`
}

type Ingest struct {
	OwnerCol  string `koanf:"ownercol"`
	TimeCol   string `koanf:"timecol"`
	AmountCol string `koanf:"amountcol"`
	Scale     int64  `koanf:"scale"`
}

type Snapshot struct {
	Path   string `koanf:"path"`
	Mirror string `koanf:"mirror"`
}

type Demo struct {
	Enabled  bool          `koanf:"enabled"`
	Seed     int64         `koanf:"seed"`
	Owners   int           `koanf:"owners"`
	Interval time.Duration `koanf:"interval"`
}

// Default mirrors the upstream exporter's flag defaults.
func Default() Config {
	return Config{
		Kafka: Kafka{
			Brokers: []string{"127.0.0.1:9092"},
			Topic:   "transfers",
		},
		Web: Web{
			Addr:    "127.0.0.1:4242",
			History: 16,
		},
		Builder: Builder{
			ServiceID:      "helium-iot",
			MinWindowUnits: 1,
			MaxWindows:     80,
			UsageRowCap:    1000,
			Interval:       30 * time.Second,
			Reconcile:      "replay",
		},
		Ingest: Ingest{
			OwnerCol:  "to_owner",
			TimeCol:   "block_time",
			AmountCol: "amount",
			Scale:     1,
		},
		Snapshot: Snapshot{
			Path: "snapshot.json",
		},
		Demo: Demo{
			Seed:     42,
			Owners:   8,
			Interval: 250 * time.Millisecond,
		},
	}
}

// Load builds the effective config. path may be empty or point to a
// missing file; env vars still apply.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
				return nil, fmt.Errorf("load config file %s: %w", path, err)
			}
		}
	}

	// METERING_KAFKA_TOPIC -> kafka.topic
	transform := func(s string) string {
		s = strings.TrimPrefix(s, envPrefix)
		s = strings.ToLower(s)
		return strings.ReplaceAll(s, "_", ".")
	}
	if err := k.Load(env.Provider(envPrefix, ".", transform), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	cfg := Default()
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	return &cfg, nil
}
