package web

import (
	"encoding/json"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/chazu/mannequin/pkg/studio"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

const (
	writeWait  = 10 * time.Second
	pingPeriod = 30 * time.Second
	sendBuffer = 8
)

// hub fans playback frames out to websocket clients. Playback runs while at
// least one client is connected; the first client's fps sets the rate.
type hub struct {
	studio   *studio.Studio
	log      logrus.FieldLogger
	upgrader websocket.Upgrader

	// lifecycle is held across a client count change and the Play or Pause
	// it triggers.
	lifecycle sync.Mutex

	mu      sync.Mutex
	clients map[*client]bool
}

type client struct {
	conn *websocket.Conn
	send chan []byte
	done chan struct{}
}

func newHub(s *studio.Studio, log logrus.FieldLogger) *hub {
	return &hub{
		studio:  s,
		log:     log,
		clients: make(map[*client]bool),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
		},
	}
}

func (h *hub) serve(w http.ResponseWriter, r *http.Request) {
	fps, _ := strconv.Atoi(r.URL.Query().Get("fps"))

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.WithError(err).Warn("websocket upgrade")
		return
	}
	c := &client{conn: conn, send: make(chan []byte, sendBuffer), done: make(chan struct{})}
	go c.writePump(h.log)

	h.join(c, fps)

	// Drain reads until the peer goes away.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	h.leave(c)
	close(c.done)
}

// join registers c and starts playback for the first client.
func (h *hub) join(c *client, fps int) {
	h.lifecycle.Lock()
	defer h.lifecycle.Unlock()
	if h.register(c) {
		h.studio.Play(fps, h.broadcast)
	}
}

// leave unregisters c and stops playback after the last client.
func (h *hub) leave(c *client) {
	h.lifecycle.Lock()
	defer h.lifecycle.Unlock()
	if h.unregister(c) {
		h.studio.Pause()
	}
}

// register adds c and reports whether it is the first client.
func (h *hub) register(c *client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c] = true
	return len(h.clients) == 1
}

// unregister removes c and reports whether it was the last client.
func (h *hub) unregister(c *client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.clients[c] {
		return false
	}
	delete(h.clients, c)
	return len(h.clients) == 0
}

// broadcast queues f for every client. Slow clients drop frames.
func (h *hub) broadcast(f studio.Frame) {
	data, err := json.Marshal(f)
	if err != nil {
		h.log.WithError(err).Warn("encode frame")
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- data:
		default:
		}
	}
}

// closeAll disconnects every client.
func (h *hub) closeAll() {
	h.mu.Lock()
	clients := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()

	for _, c := range clients {
		c.conn.Close()
	}
}

func (c *client) writePump(log logrus.FieldLogger) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case <-c.done:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		case msg := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				log.WithError(err).Debug("websocket write")
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.WithError(err).Debug("websocket ping")
				return
			}
		}
	}
}
