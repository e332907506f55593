package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/egpivo/metering-chain/internal/entity"
)

// SnapshotFile persists a snapshot as indented JSON, optionally
// mirroring the same bytes to a second path for inspection.
type SnapshotFile struct {
	path   string
	mirror string
}

func NewSnapshotFile(path, mirror string) *SnapshotFile {
	return &SnapshotFile{
		path:   path,
		mirror: mirror,
	}
}

func (s *SnapshotFile) Store(ctx context.Context, snap entity.Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	js, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	if err := write(s.path, js); err != nil {
		return err
	}
	if s.mirror != "" {
		if err := write(s.mirror, js); err != nil {
			return err
		}
	}

	return nil
}

func write(path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("mkdir %s: %w", dir, err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write snapshot %s: %w", path, err)
	}
	return nil
}
