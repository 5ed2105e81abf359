package handlers

import (
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/incidentdesk/incidentdesk/internal/types"
	"github.com/incidentdesk/incidentdesk/internal/utils"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// FeedEvent is pushed to subscribed reviewers whenever an incident changes.
type FeedEvent struct {
	Type       string `json:"type"`
	IncidentID uint   `json:"incident_id,omitempty"`
	Status     string `json:"status,omitempty"`
}

// feedClient serializes all writes to one connection. Broadcasts and the
// ping loop share writeMu, so the connection only ever has one writer.
type feedClient struct {
	conn    *websocket.Conn
	writeMu sync.Mutex
}

func (c *feedClient) writeJSON(v any) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return c.conn.WriteJSON(v)
}

func (c *feedClient) ping() error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return c.conn.WriteMessage(websocket.PingMessage, nil)
}

// Feed is the live incident-event stream for privileged roles.
type Feed struct {
	allowedOrigins []string
	clients        map[*feedClient]bool
	mu             sync.RWMutex
}

func NewFeed(allowedOrigins []string) *Feed {
	return &Feed{
		allowedOrigins: allowedOrigins,
		clients:        make(map[*feedClient]bool),
	}
}

// Broadcast fans an event out to every connected client. Failed writes drop
// the client.
func (f *Feed) Broadcast(event FeedEvent) {
	f.mu.RLock()
	clients := make([]*feedClient, 0, len(f.clients))
	for client := range f.clients {
		clients = append(clients, client)
	}
	f.mu.RUnlock()

	for _, client := range clients {
		if err := client.writeJSON(event); err != nil {
			log.Printf("Failed to broadcast incident event: %v", err)
			f.remove(client)
			client.conn.Close()
		}
	}
}

func (f *Feed) remove(client *feedClient) {
	f.mu.Lock()
	delete(f.clients, client)
	f.mu.Unlock()
}

// Subscribe upgrades the connection for admin/superuser principals and
// keeps it alive with pings until the peer goes away.
func (f *Feed) Subscribe(ctx *gin.Context) {
	currentUser, err := utils.GetCurrentUser(ctx)

	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	if currentUser.Role != types.RoleAdmin && currentUser.Role != types.RoleSuperuser {
		ctx.JSON(http.StatusForbidden, gin.H{"error": "You do not have permission to subscribe to the incident feed"})
		return
	}

	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			for _, allowed := range f.allowedOrigins {
				if origin == allowed {
					return true
				}
			}
			return false
		},
	}

	conn, err := upgrader.Upgrade(ctx.Writer, ctx.Request, nil)

	if err != nil {
		log.Printf("WebSocket upgrade failed: %v", err)
		return
	}

	if err := conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		log.Printf("Failed to set initial read deadline: %v", err)
		conn.Close()
		return
	}

	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	client := &feedClient{conn: conn}

	f.mu.Lock()
	f.clients[client] = true
	f.mu.Unlock()

	done := make(chan struct{})

	defer func() {
		close(done)
		f.remove(client)
		conn.Close()
		log.Printf("Incident feed connection closed for user %d", currentUser.ID)
	}()

	if err := client.writeJSON(FeedEvent{Type: "connected"}); err != nil {
		log.Printf("Failed to send welcome message: %v", err)
		return
	}

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	go func() {
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				if err := client.ping(); err != nil {
					return
				}
			}
		}
	}()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("Incident feed error for user %d: %v", currentUser.ID, err)
			}
			break
		}
	}
}
