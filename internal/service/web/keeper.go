package web

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const keepaliveDeadline = 5 * time.Second

// keeper tracks live websocket connections and their owner
// subscriptions. A client subscribes by sending an owner id as a text
// message; a connection that stops answering pings is dropped.
type keeper struct {
	mx   sync.RWMutex
	subs map[*websocket.Conn]map[string]struct{}
}

func newKeeper() *keeper {
	return &keeper{
		subs: make(map[*websocket.Conn]map[string]struct{}),
	}
}

func (k *keeper) addConn(conn *websocket.Conn) {
	k.mx.Lock()
	defer k.mx.Unlock()
	k.subs[conn] = make(map[string]struct{})
}

func (k *keeper) subscribe(conn *websocket.Conn, owner string) {
	k.mx.Lock()
	defer k.mx.Unlock()
	if owners, ok := k.subs[conn]; ok {
		owners[owner] = struct{}{}
	}
}

func (k *keeper) walkSubs(fn func(conn *websocket.Conn, owners map[string]struct{}) error) error {
	k.mx.RLock()
	defer k.mx.RUnlock()

	for conn, owners := range k.subs {
		if err := fn(conn, owners); err != nil {
			return err
		}
	}

	return nil
}

func (k *keeper) close(conn *websocket.Conn) {
	k.mx.Lock()
	defer k.mx.Unlock()

	_ = conn.Close()
	delete(k.subs, conn)
}

// keep owns a connection's read loop and keepalive until it dies.
func (k *keeper) keep(conn *websocket.Conn) {
	defer k.close(conn)

	pinger := time.NewTicker(time.Second)
	defer pinger.Stop()

	lastAlive := time.Now()
	ponger := conn.PongHandler()
	conn.SetPongHandler(func(appData string) error {
		lastAlive = time.Now()
		return ponger(appData)
	})

	read := make(chan msg)
	go func() {
		defer close(read)
		for {
			mt, data, err := conn.ReadMessage()
			read <- msg{mType: mt, data: data, err: err}
			if err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-pinger.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(time.Second)); err != nil {
				return
			}
			if time.Since(lastAlive) > keepaliveDeadline {
				return
			}
		case m, ok := <-read:
			if !ok || m.err != nil || m.mType == websocket.CloseMessage {
				return
			}

			if m.mType == websocket.TextMessage {
				if owner := string(m.data); owner != "" {
					k.subscribe(conn, owner)
				}
			}
			lastAlive = time.Now()
		}
	}
}
