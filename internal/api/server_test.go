package api

import (
	"bufio"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	_ "github.com/mattn/go-sqlite3"

	"github.com/nerrad567/autoview-core/internal/automation"
	"github.com/nerrad567/autoview-core/internal/dependency"
	"github.com/nerrad567/autoview-core/internal/infrastructure/config"
	"github.com/nerrad567/autoview-core/internal/infrastructure/logging"
)

// testServer creates a Server with a real automation registry backed by
// in-memory SQLite.
func testServer(t *testing.T) (*Server, *automation.Registry) {
	t.Helper()

	db := setupTestDB(t)
	repo := automation.NewSQLiteRepository(db)
	registry := automation.NewRegistry(repo)
	if err := registry.RefreshCache(context.Background()); err != nil {
		t.Fatalf("RefreshCache: %v", err)
	}

	log := logging.New(config.LoggingConfig{Level: "error", Format: "text", Output: "stdout"}, "test")

	srv, err := New(Deps{
		Config: config.APIConfig{
			Host: "127.0.0.1",
			Port: 0,
			Timeouts: config.APITimeoutConfig{
				Read:  5,
				Write: 5,
				Idle:  5,
			},
		},
		WS: config.WebSocketConfig{
			MaxMessageSize: 8192,
			PingInterval:   30,
			PongTimeout:    10,
		},
		Analysis: config.AnalysisConfig{
			MaxGraphNodes:   500,
			RebuildDebounce: 0, // immediate analysis in tests
		},
		Logger:   log,
		Registry: registry,
		Engine:   dependency.NewEngine(),
		MQTT:     nil, // definition sync disabled in tests
		Version:  "test",
	})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	// Initialise hub for tests
	srv.hub = NewHub(srv.wsCfg, log)
	go srv.hub.Run(context.Background())

	return srv, registry
}

// setupTestDB creates an in-memory SQLite database with the automations schema.
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	schema := `
		CREATE TABLE automations (
			id TEXT PRIMARY KEY,
			alias TEXT NOT NULL,
			description TEXT,
			enabled INTEGER NOT NULL DEFAULT 1,
			definition TEXT NOT NULL DEFAULT '{}',
			created_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ', 'now')),
			updated_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ', 'now'))
		) STRICT;
		CREATE INDEX idx_automations_alias ON automations(alias);
		CREATE INDEX idx_automations_enabled ON automations(enabled);
	`

	if _, execErr := db.Exec(schema); execErr != nil {
		db.Close()
		t.Fatalf("failed to create test schema: %v", execErr)
	}

	t.Cleanup(func() { db.Close() })
	return db
}

// chainedDefinition returns a definition whose actions drive the given entity
// and whose trigger watches another, for building dependency scenarios.
func chainedDefinition(watch, drive string) map[string]any {
	return map[string]any{
		"trigger": []any{
			map[string]any{"platform": "state", "entity_id": watch},
		},
		"action": []any{
			map[string]any{
				"service":   "homeassistant.turn_on",
				"entity_id": drive,
			},
		},
	}
}

// seedAutomation inserts one automation through the registry.
func seedAutomation(t *testing.T, registry *automation.Registry, id, alias string, definition map[string]any) {
	t.Helper()

	auto := &automation.Automation{
		ID:         id,
		Alias:      alias,
		Enabled:    true,
		Definition: definition,
	}
	if err := registry.Create(context.Background(), auto); err != nil {
		t.Fatalf("Create(%s): %v", id, err)
	}
}

// ─── Health Endpoint Tests ─────────────────────────────────────────

func TestHealth(t *testing.T) {
	srv, _ := testServer(t)
	router := srv.buildRouter()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("health status = %d, want %d", w.Code, http.StatusOK)
	}

	var resp map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if resp["status"] != "ok" {
		t.Errorf("status = %v, want ok", resp["status"])
	}
	if resp["version"] != "test" {
		t.Errorf("version = %v, want test", resp["version"])
	}
}

func TestHealth_ContentType(t *testing.T) {
	srv, _ := testServer(t)
	router := srv.buildRouter()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	ct := w.Header().Get("Content-Type")
	if ct != "application/json" {
		t.Errorf("Content-Type = %q, want %q", ct, "application/json")
	}
}

// ─── Middleware Tests ──────────────────────────────────────────────

func TestRequestID_Generated(t *testing.T) {
	srv, _ := testServer(t)
	router := srv.buildRouter()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	requestID := w.Header().Get("X-Request-ID")
	if requestID == "" {
		t.Error("expected X-Request-ID header to be set")
	}
}

func TestRequestID_PreservesClient(t *testing.T) {
	srv, _ := testServer(t)
	router := srv.buildRouter()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	req.Header.Set("X-Request-ID", "client-123")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if got := w.Header().Get("X-Request-ID"); got != "client-123" {
		t.Errorf("X-Request-ID = %q, want %q", got, "client-123")
	}
}

func TestCORS_Preflight(t *testing.T) {
	srv, _ := testServer(t)
	router := srv.buildRouter()

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/health", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusNoContent {
		t.Errorf("preflight status = %d, want %d", w.Code, http.StatusNoContent)
	}

	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
		t.Errorf("ACAO = %q, want %q", got, "http://localhost:3000")
	}
}

// hijackableRecorder is a ResponseRecorder that also implements http.Hijacker,
// mimicking the real server's connection writer.
type hijackableRecorder struct {
	*httptest.ResponseRecorder
	hijacked bool
}

func (r *hijackableRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	r.hijacked = true
	return nil, nil, nil
}

func TestStatusWriter_Hijack(t *testing.T) {
	rec := &hijackableRecorder{ResponseRecorder: httptest.NewRecorder()}
	sw := &statusWriter{ResponseWriter: rec, status: http.StatusOK}

	if _, _, err := sw.Hijack(); err != nil {
		t.Fatalf("Hijack() error = %v, want delegation to underlying writer", err)
	}
	if !rec.hijacked {
		t.Error("Hijack() did not reach the underlying writer")
	}
}

func TestStatusWriter_HijackUnsupported(t *testing.T) {
	// A plain recorder does not implement http.Hijacker.
	sw := &statusWriter{ResponseWriter: httptest.NewRecorder(), status: http.StatusOK}

	if _, _, err := sw.Hijack(); err == nil {
		t.Error("Hijack() should fail when the underlying writer cannot hijack")
	}
}

func TestNotFound(t *testing.T) {
	srv, _ := testServer(t)
	router := srv.buildRouter()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/nonexistent", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("unknown route status = %d, want %d", w.Code, http.StatusNotFound)
	}
}

// ─── WebSocket Hub Tests ───────────────────────────────────────────

func TestHub_BroadcastToSubscribed(t *testing.T) {
	log := logging.New(config.LoggingConfig{Level: "error", Format: "text", Output: "stdout"}, "test")
	hub := NewHub(config.WebSocketConfig{MaxMessageSize: 8192, PingInterval: 30, PongTimeout: 10}, log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	// Create a mock client
	client := &WSClient{
		hub:           hub,
		send:          make(chan []byte, wsSendBufferSize),
		subscriptions: map[string]struct{}{ChannelGraphUpdated: {}},
	}
	hub.Register(client)

	// Broadcast
	hub.Broadcast(ChannelGraphUpdated, map[string]any{"automation_id": "auto-1"})

	// Should receive the message
	select {
	case msg := <-client.send:
		var wsMsg WSMessage
		if err := json.Unmarshal(msg, &wsMsg); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if wsMsg.EventType != ChannelGraphUpdated {
			t.Errorf("event_type = %q, want %q", wsMsg.EventType, ChannelGraphUpdated)
		}
	case <-time.After(time.Second):
		t.Error("timed out waiting for broadcast message")
	}
}

func TestHub_NoMessageForUnsubscribed(t *testing.T) {
	log := logging.New(config.LoggingConfig{Level: "error", Format: "text", Output: "stdout"}, "test")
	hub := NewHub(config.WebSocketConfig{MaxMessageSize: 8192, PingInterval: 30, PongTimeout: 10}, log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	// Client not subscribed to the graph channel
	client := &WSClient{
		hub:           hub,
		send:          make(chan []byte, wsSendBufferSize),
		subscriptions: map[string]struct{}{ChannelDependencyUpdated: {}},
	}
	hub.Register(client)

	hub.Broadcast(ChannelGraphUpdated, map[string]any{"automation_id": "auto-1"})

	// Should NOT receive the message
	select {
	case <-client.send:
		t.Error("unsubscribed client should not receive message")
	case <-time.After(100 * time.Millisecond):
		// no message received, as expected
	}
}

func TestHub_ClientCount(t *testing.T) {
	log := logging.New(config.LoggingConfig{Level: "error", Format: "text", Output: "stdout"}, "test")
	hub := NewHub(config.WebSocketConfig{MaxMessageSize: 8192, PingInterval: 30, PongTimeout: 10}, log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	if hub.ClientCount() != 0 {
		t.Errorf("initial client count = %d, want 0", hub.ClientCount())
	}

	client := &WSClient{
		hub:           hub,
		send:          make(chan []byte, wsSendBufferSize),
		subscriptions: make(map[string]struct{}),
	}
	hub.Register(client)

	if hub.ClientCount() != 1 {
		t.Errorf("after register count = %d, want 1", hub.ClientCount())
	}

	hub.Unregister(client)

	if hub.ClientCount() != 0 {
		t.Errorf("after unregister count = %d, want 0", hub.ClientCount())
	}
}

// ─── Server Lifecycle Tests ────────────────────────────────────────

// testServerWithRealListener creates a server that actually listens on a specific port.
func testServerWithRealListener(t *testing.T, port int) (*Server, string) {
	t.Helper()

	db := setupTestDB(t)
	repo := automation.NewSQLiteRepository(db)
	registry := automation.NewRegistry(repo)
	if err := registry.RefreshCache(context.Background()); err != nil {
		t.Fatalf("RefreshCache: %v", err)
	}

	log := logging.New(config.LoggingConfig{Level: "error", Format: "text", Output: "stdout"}, "test")

	srv, err := New(Deps{
		Config: config.APIConfig{
			Host: "127.0.0.1",
			Port: port,
			Timeouts: config.APITimeoutConfig{
				Read:  5,
				Write: 5,
				Idle:  5,
			},
		},
		WS: config.WebSocketConfig{
			MaxMessageSize: 8192,
			PingInterval:   30,
			PongTimeout:    10,
		},
		Logger:   log,
		Registry: registry,
		Engine:   dependency.NewEngine(),
		MQTT:     nil,
		Version:  "test",
	})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	// Start server in background
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	t.Cleanup(func() { srv.Close() })

	if err := srv.Start(ctx); err != nil {
		t.Fatalf("Start() error: %v", err)
	}

	// Wait for server to be ready
	time.Sleep(100 * time.Millisecond)

	addr := fmt.Sprintf("127.0.0.1:%d", port)
	return srv, addr
}

func TestServer_StartAndClose(t *testing.T) {
	db := setupTestDB(t)
	repo := automation.NewSQLiteRepository(db)
	registry := automation.NewRegistry(repo)
	_ = registry.RefreshCache(context.Background())

	log := logging.New(config.LoggingConfig{Level: "error", Format: "text", Output: "stdout"}, "test")

	// Use a specific port for this test
	port := 19080

	srv, err := New(Deps{
		Config: config.APIConfig{
			Host: "127.0.0.1",
			Port: port,
			Timeouts: config.APITimeoutConfig{
				Read:  5,
				Write: 5,
				Idle:  5,
			},
		},
		WS: config.WebSocketConfig{
			MaxMessageSize: 8192,
			PingInterval:   30,
			PongTimeout:    10,
		},
		Logger:   log,
		Registry: registry,
		Engine:   dependency.NewEngine(),
		Version:  "test",
	})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	// Start server
	if err := srv.Start(ctx); err != nil {
		t.Fatalf("Start() error: %v", err)
	}

	// Wait for server to be ready
	time.Sleep(100 * time.Millisecond)

	addr := fmt.Sprintf("127.0.0.1:%d", port)

	// Verify server responds
	resp, err := http.Get("http://" + addr + "/api/v1/health")
	if err != nil {
		t.Fatalf("health check failed: %v", err)
	}
	resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("health check status = %d, want 200", resp.StatusCode)
	}

	// Close server
	cancel()
	if err := srv.Close(); err != nil {
		t.Errorf("Close() error: %v", err)
	}

	// Verify server stopped by trying to connect (should fail)
	time.Sleep(100 * time.Millisecond)
	_, err = http.Get("http://" + addr + "/api/v1/health")
	if err == nil {
		t.Error("server still responding after Close()")
	}
}

func TestServer_HealthCheck(t *testing.T) {
	srv, _ := testServer(t)

	// Server not started, so the health check should report that
	ctx := context.Background()
	if err := srv.HealthCheck(ctx); err == nil {
		t.Error("HealthCheck() should fail before Start()")
	}
}

func TestServer_MissingDeps(t *testing.T) {
	log := logging.New(config.LoggingConfig{Level: "error", Format: "text", Output: "stdout"}, "test")

	if _, err := New(Deps{}); err == nil {
		t.Error("New() should fail without a logger")
	}

	if _, err := New(Deps{Logger: log}); err == nil {
		t.Error("New() should fail without a registry")
	}
}

// ─── WebSocket Integration Tests ───────────────────────────────────

// connectWebSocket is a helper that dials the server's WebSocket endpoint.
func connectWebSocket(t *testing.T, addr string) *websocket.Conn {
	t.Helper()

	wsURL := "ws://" + addr + "/api/v1/ws"
	ws, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("websocket connect failed: %v", err)
	}

	return ws
}

func TestWebSocket_FullConnection(t *testing.T) {
	srv, addr := testServerWithRealListener(t, 19081)
	defer srv.Close()

	ws := connectWebSocket(t, addr)
	defer ws.Close()

	// Subscribe to a channel
	subscribeMsg := WSMessage{
		Type: WSTypeSubscribe,
		ID:   "sub-1",
		Payload: WSSubscribePayload{
			Channels: []string{ChannelGraphUpdated},
		},
	}
	if err := ws.WriteJSON(subscribeMsg); err != nil {
		t.Fatalf("write subscribe message: %v", err)
	}

	// Read response
	ws.SetReadDeadline(time.Now().Add(2 * time.Second))
	var response WSMessage
	if err := ws.ReadJSON(&response); err != nil {
		t.Fatalf("read response: %v", err)
	}

	if response.Type != WSTypeResponse {
		t.Errorf("response type = %s, want %s", response.Type, WSTypeResponse)
	}
	if response.ID != "sub-1" {
		t.Errorf("response ID = %s, want sub-1", response.ID)
	}

	// Verify client is registered with the hub
	if srv.hub.ClientCount() != 1 {
		t.Errorf("hub client count = %d, want 1", srv.hub.ClientCount())
	}
}

func TestWebSocket_SubscribeUnsubscribe(t *testing.T) {
	srv, addr := testServerWithRealListener(t, 19082)
	defer srv.Close()

	ws := connectWebSocket(t, addr)
	defer ws.Close()

	// Subscribe
	if err := ws.WriteJSON(WSMessage{
		Type:    WSTypeSubscribe,
		ID:      "sub-1",
		Payload: WSSubscribePayload{Channels: []string{ChannelGraphUpdated, ChannelDependencyUpdated}},
	}); err != nil {
		t.Fatalf("write subscribe: %v", err)
	}

	ws.SetReadDeadline(time.Now().Add(2 * time.Second))
	var resp WSMessage
	if err := ws.ReadJSON(&resp); err != nil {
		t.Fatalf("read subscribe response: %v", err)
	}

	if resp.Type != WSTypeResponse {
		t.Errorf("subscribe response type = %s, want response", resp.Type)
	}

	// Unsubscribe from one channel
	if err := ws.WriteJSON(WSMessage{
		Type:    WSTypeUnsubscribe,
		ID:      "unsub-1",
		Payload: WSSubscribePayload{Channels: []string{ChannelDependencyUpdated}},
	}); err != nil {
		t.Fatalf("write unsubscribe: %v", err)
	}

	if err := ws.ReadJSON(&resp); err != nil {
		t.Fatalf("read unsubscribe response: %v", err)
	}

	if resp.Type != WSTypeResponse {
		t.Errorf("unsubscribe response type = %s, want response", resp.Type)
	}
}

func TestWebSocket_Ping(t *testing.T) {
	srv, addr := testServerWithRealListener(t, 19083)
	defer srv.Close()

	ws := connectWebSocket(t, addr)
	defer ws.Close()

	// Send ping
	if err := ws.WriteJSON(WSMessage{
		Type: WSTypePing,
		ID:   "ping-1",
	}); err != nil {
		t.Fatalf("write ping: %v", err)
	}

	ws.SetReadDeadline(time.Now().Add(2 * time.Second))
	var resp WSMessage
	if err := ws.ReadJSON(&resp); err != nil {
		t.Fatalf("read pong: %v", err)
	}

	if resp.Type != WSTypePong {
		t.Errorf("response type = %s, want pong", resp.Type)
	}
	if resp.ID != "ping-1" {
		t.Errorf("response ID = %s, want ping-1", resp.ID)
	}
}

func TestWebSocket_InvalidMessage(t *testing.T) {
	srv, addr := testServerWithRealListener(t, 19084)
	defer srv.Close()

	ws := connectWebSocket(t, addr)
	defer ws.Close()

	// Send invalid JSON
	if err := ws.WriteMessage(websocket.TextMessage, []byte("not json")); err != nil {
		t.Fatalf("write invalid message: %v", err)
	}

	ws.SetReadDeadline(time.Now().Add(2 * time.Second))
	var resp WSMessage
	if err := ws.ReadJSON(&resp); err != nil {
		t.Fatalf("read error response: %v", err)
	}

	if resp.Type != WSTypeError {
		t.Errorf("response type = %s, want error", resp.Type)
	}
}

func TestWebSocket_UnknownMessageType(t *testing.T) {
	srv, addr := testServerWithRealListener(t, 19085)
	defer srv.Close()

	ws := connectWebSocket(t, addr)
	defer ws.Close()

	// Send unknown message type
	if err := ws.WriteJSON(WSMessage{
		Type: "unknown_type",
		ID:   "test-1",
	}); err != nil {
		t.Fatalf("write unknown type: %v", err)
	}

	ws.SetReadDeadline(time.Now().Add(2 * time.Second))
	var resp WSMessage
	if err := ws.ReadJSON(&resp); err != nil {
		t.Fatalf("read error response: %v", err)
	}

	if resp.Type != WSTypeError {
		t.Errorf("response type = %s, want error", resp.Type)
	}
}

func TestWebSocket_Broadcast(t *testing.T) {
	srv, addr := testServerWithRealListener(t, 19086)
	defer srv.Close()

	ws := connectWebSocket(t, addr)
	defer ws.Close()

	// Subscribe to channel
	if err := ws.WriteJSON(WSMessage{
		Type:    WSTypeSubscribe,
		ID:      "sub-1",
		Payload: WSSubscribePayload{Channels: []string{"test.channel"}},
	}); err != nil {
		t.Fatalf("write subscribe: %v", err)
	}

	// Read subscribe response
	ws.SetReadDeadline(time.Now().Add(2 * time.Second))
	var resp WSMessage
	if err := ws.ReadJSON(&resp); err != nil {
		t.Fatalf("read subscribe response: %v", err)
	}

	// Broadcast a message
	srv.hub.Broadcast("test.channel", map[string]string{"key": "value"})

	// Read broadcast
	if err := ws.ReadJSON(&resp); err != nil {
		t.Fatalf("read broadcast: %v", err)
	}

	if resp.Type != WSTypeEvent {
		t.Errorf("broadcast type = %s, want event", resp.Type)
	}
	if resp.EventType != "test.channel" {
		t.Errorf("broadcast event_type = %s, want test.channel", resp.EventType)
	}
}
