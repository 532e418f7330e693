package main

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/bihua-university/catalog/internal/admin"
	"github.com/bihua-university/catalog/internal/syncx"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Connection is one websocket subscriber of the change feed.
type Connection struct {
	conn *websocket.Conn
	send syncx.UnboundedChan[[]byte]
	done chan struct{}
}

func (c *Connection) Start() {
	go func() {
		defer close(c.done)
		for x := range c.send.Out() {
			_ = c.conn.WriteMessage(websocket.TextMessage, x)
		}
	}()
}

func (c *Connection) SendRaw(b []byte) {
	c.send.In() <- b
}

// Hub fans admin events out to every connected subscriber.
type Hub struct {
	mu    sync.Mutex
	conns map[*Connection]struct{}
}

func NewHub() *Hub {
	return &Hub{conns: make(map[*Connection]struct{})}
}

func (h *Hub) Notify(e admin.Event) {
	b, err := json.Marshal(e)
	if err != nil {
		log.Printf("encode event: %v", err)
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.conns {
		c.SendRaw(b)
	}
}

func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.conns)
}

func (h *Hub) Serve(c *gin.Context) {
	wc, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Print("upgrade:", err)
		return
	}
	defer wc.Close()

	conn := &Connection{
		conn: wc,
		send: syncx.NewUnboundedChan[[]byte](8),
		done: make(chan struct{}),
	}
	conn.Start()

	h.mu.Lock()
	h.conns[conn] = struct{}{}
	h.mu.Unlock()

	// subscribers only listen; reading detects the close
	for {
		if _, _, err := wc.ReadMessage(); err != nil {
			break
		}
	}

	h.mu.Lock()
	delete(h.conns, conn)
	h.mu.Unlock()
	conn.send.Close()
	<-conn.done
}
