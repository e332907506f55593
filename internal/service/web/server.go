package web

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/egpivo/metering-chain/internal/event"
)

// Server exposes the latest snapshot over HTTP and pushes per-owner
// window updates to websocket subscribers after every build.
type Server struct {
	web     *http.Server
	keeper  *keeper
	state   *state
	log     *zap.SugaredLogger
	rebuild func(ctx context.Context) error
}

// New builds the server. rebuild, when non-nil, is invoked by
// POST /rebuild to request an out-of-schedule build.
func New(addr string, history int, log *zap.SugaredLogger, rebuild func(ctx context.Context) error) *Server {
	serv := &Server{
		web: &http.Server{
			Addr: addr,
		},
		keeper:  newKeeper(),
		state:   newState(history),
		log:     log,
		rebuild: rebuild,
	}
	serv.web.Handler = serv.router()
	return serv
}

func (s *Server) Run(ctx context.Context) error {
	closed := make(chan error, 1)

	go func() {
		closed <- s.web.ListenAndServe()
	}()

	select {
	case err := <-closed:
		return err
	case <-ctx.Done():
		_ = s.web.Shutdown(context.Background())
		return ctx.Err()
	}
}

// HandleSnapshot publishes a finished build to HTTP state and to every
// websocket subscriber interested in one of its owners.
func (s *Server) HandleSnapshot(ctx context.Context, built event.SnapshotBuilt) error {
	s.state.update(built.Snapshot, built.Build)

	err := s.keeper.walkSubs(func(conn *websocket.Conn, owners map[string]struct{}) error {
		for owner := range owners {
			msg := NewMessage(OwnerWindows{
				Owner:   owner,
				BuildID: built.Build.ID,
				Windows: s.state.windowsFor(owner),
			})
			js, err := json.Marshal(msg)
			if err != nil {
				return fmt.Errorf("marshal json: %w", err)
			}

			if err := conn.WriteMessage(websocket.TextMessage, js); err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		s.log.Warnw("websocket push failed", "err", err)
	}

	return nil
}
