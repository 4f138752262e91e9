package registry

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/gophercall/gopher/internal/util"
)

// Peer is the JSON form of a directory entry.
type Peer struct {
	Name     string    `json:"name"`
	IP       string    `json:"ip"`
	Port     uint16    `json:"port"`
	LastSeen time.Time `json:"last_seen"`
}

const (
	feedWriteTimeout = 5 * time.Second
	feedPingPeriod   = 30 * time.Second
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// feedServer publishes the directory over HTTP: GET /peers returns it
// once, GET /ws pushes it on every change.
type feedServer struct {
	dir      *Directory
	listener net.Listener
	srv      *http.Server
}

func startFeed(addr string, dir *Directory) (*feedServer, error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}

	f := &feedServer{dir: dir, listener: listener}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /peers", f.handlePeers)
	mux.HandleFunc("GET /ws", f.handleWS)
	f.srv = &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	return f, nil
}

func (f *feedServer) addr() net.Addr { return f.listener.Addr() }

// run serves until ctx is done. Open feeds are closed with it.
func (f *feedServer) run(ctx context.Context) error {
	f.srv.BaseContext = func(net.Listener) context.Context { return ctx }

	errCh := make(chan error, 1)
	go func() { errCh <- f.srv.Serve(f.listener) }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), PollInterval)
	defer cancel()
	if err := f.srv.Shutdown(shutdownCtx); err != nil {
		f.srv.Close()
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (f *feedServer) snapshot() []Peer {
	entries := f.dir.Entries()
	peers := make([]Peer, len(entries))
	for i, e := range entries {
		peers[i] = Peer{
			Name:     e.Identity.Name,
			IP:       e.Identity.Address,
			Port:     e.Identity.Port,
			LastSeen: e.LastSeen,
		}
	}
	return peers
}

func (f *feedServer) handlePeers(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(f.snapshot()); err != nil {
		util.LogDebug("peers response: %v", err)
	}
}

// handleWS sends the directory immediately and again after every change
// until the client goes away or the server shuts down.
func (f *feedServer) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	ctx := r.Context()
	gone := make(chan struct{})

	// Reader: only needed to notice the client closing.
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(feedPingPeriod)
	defer ping.Stop()

	for {
		changed := f.dir.Changed()

		conn.SetWriteDeadline(time.Now().Add(feedWriteTimeout))
		if err := conn.WriteJSON(f.snapshot()); err != nil {
			return
		}

		if !f.waitChange(ctx, conn, changed, ping.C, gone) {
			return
		}
	}
}

// waitChange blocks until the directory changes, pinging the client
// meanwhile. It returns false once the feed should end.
func (f *feedServer) waitChange(ctx context.Context, conn *websocket.Conn, changed <-chan struct{}, ping <-chan time.Time, gone <-chan struct{}) bool {
	for {
		select {
		case <-changed:
			return true
		case <-ping:
			conn.SetWriteDeadline(time.Now().Add(feedWriteTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return false
			}
		case <-gone:
			return false
		case <-ctx.Done():
			f.closeConn(conn)
			return false
		}
	}
}

func (f *feedServer) closeConn(conn *websocket.Conn) {
	conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseGoingAway, "registry shutting down"),
		time.Now().Add(time.Second))
}
