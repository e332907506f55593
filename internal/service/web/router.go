package web

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/websocket"
)

func (s *Server) router() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		upgrader := websocket.Upgrader{}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			s.log.Warnw("websocket upgrade failed", "err", err)
			return
		}

		s.keeper.addConn(conn)
		go s.keeper.keep(conn)
	})

	mux.HandleFunc("/snapshot", func(w http.ResponseWriter, r *http.Request) {
		snap := s.state.latest()
		if snap == nil {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		s.writeJSON(w, snap)
	})

	mux.HandleFunc("/windows", func(w http.ResponseWriter, r *http.Request) {
		owner := r.URL.Query().Get("owner")
		if owner == "" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		s.writeJSON(w, s.state.windowsFor(owner))
	})

	mux.HandleFunc("/builds", func(w http.ResponseWriter, r *http.Request) {
		s.writeJSON(w, s.state.history())
	})

	mux.HandleFunc("/rebuild", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || s.rebuild == nil {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		if err := s.rebuild(r.Context()); err != nil {
			s.log.Warnw("rebuild request failed", "err", err)
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusAccepted)
	})

	return mux
}

func (s *Server) writeJSON(w http.ResponseWriter, v any) {
	js, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(js)
}
