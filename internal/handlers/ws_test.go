package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/incidentdesk/incidentdesk/internal/middleware"
	"github.com/incidentdesk/incidentdesk/internal/types"
)

const feedTestOrigin = "http://localhost:3000"

func feedServer(t *testing.T, feed *Feed, user middleware.AuthenticatedUser) *httptest.Server {
	t.Helper()

	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.GET("/feed", func(ctx *gin.Context) {
		ctx.Set(types.ContextUserKey, user)
		feed.Subscribe(ctx)
	})

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func dialFeed(t *testing.T, srv *httptest.Server, origin string) (*websocket.Conn, *http.Response, error) {
	t.Helper()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/feed"
	return websocket.DefaultDialer.Dial(url, http.Header{"Origin": {origin}})
}

func readEvent(t *testing.T, conn *websocket.Conn) FeedEvent {
	t.Helper()

	if err := conn.SetReadDeadline(time.Now().Add(2 * time.Second)); err != nil {
		t.Fatalf("set read deadline: %v", err)
	}

	var event FeedEvent
	if err := conn.ReadJSON(&event); err != nil {
		t.Fatalf("read event: %v", err)
	}
	return event
}

func TestSubscribeRejectsUserRole(t *testing.T) {
	feed := NewFeed([]string{feedTestOrigin})
	srv := feedServer(t, feed, middleware.AuthenticatedUser{ID: 1, Role: types.RoleUser, IsActive: true})

	conn, resp, err := dialFeed(t, srv, feedTestOrigin)
	if err == nil {
		conn.Close()
		t.Fatal("user-role subscribe must not upgrade")
	}

	if resp == nil || resp.StatusCode != http.StatusForbidden {
		t.Fatalf("subscribe = %v, want 403", resp)
	}
}

func TestSubscribeRejectsUnknownOrigin(t *testing.T) {
	feed := NewFeed([]string{feedTestOrigin})
	srv := feedServer(t, feed, middleware.AuthenticatedUser{ID: 1, Role: types.RoleAdmin, IsActive: true})

	conn, resp, err := dialFeed(t, srv, "https://evil.example")
	if err == nil {
		conn.Close()
		t.Fatal("unknown origin must not upgrade")
	}

	if resp == nil || resp.StatusCode != http.StatusForbidden {
		t.Fatalf("subscribe = %v, want 403", resp)
	}
}

func TestBroadcastDeliversEveryConcurrentEvent(t *testing.T) {
	feed := NewFeed([]string{feedTestOrigin})
	srv := feedServer(t, feed, middleware.AuthenticatedUser{ID: 1, Role: types.RoleAdmin, IsActive: true})

	conn, _, err := dialFeed(t, srv, feedTestOrigin)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	if event := readEvent(t, conn); event.Type != "connected" {
		t.Fatalf("welcome = %q, want connected", event.Type)
	}

	const events = 8

	var wg sync.WaitGroup
	for i := 0; i < events; i++ {
		wg.Add(1)
		go func(id uint) {
			defer wg.Done()
			feed.Broadcast(FeedEvent{Type: "incident_created", IncidentID: id, Status: "open"})
		}(uint(i + 1))
	}
	wg.Wait()

	seen := make(map[uint]bool)
	for i := 0; i < events; i++ {
		event := readEvent(t, conn)
		if event.Type != "incident_created" {
			t.Fatalf("event type = %q, want incident_created", event.Type)
		}
		seen[event.IncidentID] = true
	}

	if len(seen) != events {
		t.Fatalf("received %d distinct events, want %d", len(seen), events)
	}
}

func TestSubscribeUnregistersClosedPeer(t *testing.T) {
	feed := NewFeed([]string{feedTestOrigin})
	srv := feedServer(t, feed, middleware.AuthenticatedUser{ID: 1, Role: types.RoleAdmin, IsActive: true})

	conn, _, err := dialFeed(t, srv, feedTestOrigin)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}

	if event := readEvent(t, conn); event.Type != "connected" {
		t.Fatalf("welcome = %q, want connected", event.Type)
	}

	conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		feed.mu.RLock()
		remaining := len(feed.clients)
		feed.mu.RUnlock()

		if remaining == 0 {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}

	t.Fatal("client was not unregistered after the peer closed")
}
