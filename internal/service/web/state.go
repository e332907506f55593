package web

import (
	"sync"

	"github.com/egpivo/metering-chain/internal/entity"
	"github.com/egpivo/metering-chain/pkg/ringbuf"
)

type state struct {
	mx       sync.RWMutex
	snapshot *entity.Snapshot
	builds   *ringbuf.Ring[entity.Build]
}

func newState(history int) *state {
	if history < 1 {
		history = 1
	}
	return &state{
		builds: ringbuf.New[entity.Build](history),
	}
}

func (s *state) update(snap entity.Snapshot, build entity.Build) {
	s.mx.Lock()
	defer s.mx.Unlock()

	s.snapshot = &snap
	s.builds.Push(build)
}

func (s *state) latest() *entity.Snapshot {
	s.mx.RLock()
	defer s.mx.RUnlock()

	return s.snapshot
}

// windowsFor returns the owner's windows from the latest build in
// emission order.
func (s *state) windowsFor(owner string) []entity.Window {
	s.mx.RLock()
	defer s.mx.RUnlock()

	if s.snapshot == nil {
		return nil
	}

	windows := make([]entity.Window, 0)
	for _, w := range s.snapshot.Windows {
		if w.Owner == owner {
			windows = append(windows, w)
		}
	}
	return windows
}

// history lists recent builds, newest first.
func (s *state) history() []entity.Build {
	s.mx.RLock()
	defer s.mx.RUnlock()

	builds := make([]entity.Build, 0, s.builds.Len())
	s.builds.Walk(func(b entity.Build) {
		builds = append(builds, b)
	})
	return builds
}
