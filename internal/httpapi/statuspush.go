package httpapi

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/daydream/camera-core/internal/status"
)

// StatusPusher serves an additive, non-authenticated debug surface that
// streams C8 status snapshots to connected local tooling over a
// websocket; it is not one of the core request/response surfaces. One
// goroutine per client drains a buffered channel, a single shared
// upgrader, clients fan out from one status.Manager.Watch subscription.
type StatusPusher struct {
	mgr *status.Manager

	mu      sync.Mutex
	clients map[*statusClient]struct{}
}

type statusClient struct {
	send chan []byte
}

var statusUpgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// NewStatusPusher subscribes to mgr and fans out every snapshot change
// to all currently connected debug clients.
func NewStatusPusher(mgr *status.Manager) *StatusPusher {
	p := &StatusPusher{mgr: mgr, clients: make(map[*statusClient]struct{})}
	mgr.Watch(p.broadcast)
	return p
}

func (p *StatusPusher) broadcast(snap status.Snapshot) {
	body, err := json.Marshal(snap)
	if err != nil {
		log.Println("statuspush: marshal error:", err)
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	for c := range p.clients {
		select {
		case c.send <- body:
		default:
			// Slow debug client: drop the update rather than block the
			// status manager's mutate path.
		}
	}
}

// ServeHTTP upgrades the connection and streams snapshots until the
// client disconnects.
func (p *StatusPusher) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := statusUpgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Println("statuspush: upgrade error:", err)
		return
	}

	c := &statusClient{send: make(chan []byte, 4)}
	p.register(c)
	defer p.unregister(c)

	if body, err := json.Marshal(p.mgr.Current()); err == nil {
		c.send <- body
	}

	go func() {
		defer conn.Close()
		for msg := range c.send {
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		}
	}()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (p *StatusPusher) register(c *statusClient) {
	p.mu.Lock()
	p.clients[c] = struct{}{}
	p.mu.Unlock()
}

func (p *StatusPusher) unregister(c *statusClient) {
	p.mu.Lock()
	if _, ok := p.clients[c]; ok {
		delete(p.clients, c)
		close(c.send)
	}
	p.mu.Unlock()
}
