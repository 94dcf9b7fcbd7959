package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/FocuswithJustin/ReformedChapter/internal/importer"
)

func waitForClients(t *testing.T, hub *Hub, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for hub.ClientCount() != n {
		if time.Now().After(deadline) {
			t.Fatalf("client count = %d, want %d", hub.ClientCount(), n)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func startWebSocketServer(t *testing.T, opts ...testServerOption) (*Server, string, context.CancelFunc) {
	t.Helper()
	s, _ := newTestServer(t, nil, opts...)
	ctx, cancel := context.WithCancel(context.Background())
	go s.hub.Run(ctx)

	ts := httptest.NewServer(s.Handler())
	t.Cleanup(func() {
		cancel()
		ts.Close()
	})
	return s, "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws", cancel
}

func TestWebSocketBroadcastsJobUpdates(t *testing.T) {
	s, url, _ := startWebSocketServer(t)

	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	waitForClients(t, s.hub, 1)

	s.hub.BroadcastJob(importer.Job{
		ID:       "job-1",
		Source:   "seed.json",
		Status:   importer.JobStatusCompleted,
		Stage:    importer.StageDone,
		Progress: 100,
		Report:   &importer.Report{Source: "seed.json", Read: 2, Inserted: 2},
	})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var msg ProgressMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if msg.Type != "complete" || msg.JobID != "job-1" || msg.Progress != 100 {
		t.Errorf("message = %+v", msg)
	}
	if msg.Report == nil || msg.Report.Inserted != 2 {
		t.Errorf("report = %+v", msg.Report)
	}
	if msg.Timestamp == "" {
		t.Error("expected timestamp")
	}
}

func TestWebSocketClientDisconnect(t *testing.T) {
	s, url, _ := startWebSocketServer(t)

	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	waitForClients(t, s.hub, 1)

	conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	conn.Close()
	waitForClients(t, s.hub, 0)
}

func TestWebSocketHubShutdownClosesClients(t *testing.T) {
	s, url, cancel := startWebSocketServer(t)

	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	waitForClients(t, s.hub, 1)

	cancel()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Fatal("expected connection to close after hub shutdown")
	}
}

func TestWebSocketRejectsOrigin(t *testing.T) {
	_, url, _ := startWebSocketServer(t, func(cfg *Config) {
		cfg.AllowedOrigins = []string{"https://reformedchapter.com"}
	})

	header := http.Header{"Origin": []string{"https://evil.example"}}
	_, resp, err := websocket.DefaultDialer.Dial(url, header)
	if err == nil {
		t.Fatal("expected handshake to fail")
	}
	if resp == nil || resp.StatusCode != http.StatusForbidden {
		t.Errorf("response = %v, want 403", resp)
	}

	header.Set("Origin", "https://reformedchapter.com")
	conn, _, err := websocket.DefaultDialer.Dial(url, header)
	if err != nil {
		t.Fatalf("allowed origin dial: %v", err)
	}
	conn.Close()
}

func TestIsOriginAllowed(t *testing.T) {
	allowed := []string{"https://reformedchapter.com"}
	tests := []struct {
		origin string
		list   []string
		want   bool
	}{
		{"https://anything.example", nil, true},
		{"", nil, true},
		{"https://reformedchapter.com", allowed, true},
		{"https://evil.example", allowed, false},
		{"", allowed, false},
	}
	for _, tt := range tests {
		if got := isOriginAllowed(tt.origin, tt.list); got != tt.want {
			t.Errorf("isOriginAllowed(%q, %v) = %v, want %v", tt.origin, tt.list, got, tt.want)
		}
	}
}

func TestProgressFromJob(t *testing.T) {
	tests := []struct {
		status  importer.JobStatus
		errText string
		want    string
		message string
	}{
		{importer.JobStatusRunning, "", "progress", "running"},
		{importer.JobStatusCompleted, "", "complete", "completed"},
		{importer.JobStatusFailed, "decode failed", "error", "decode failed"},
		{importer.JobStatusCancelled, "context canceled", "error", "context canceled"},
	}
	for _, tt := range tests {
		msg := progressFromJob(importer.Job{ID: "j", Status: tt.status, Error: tt.errText})
		if msg.Type != tt.want || msg.Message != tt.message {
			t.Errorf("%s: got type %q message %q", tt.status, msg.Type, msg.Message)
		}
	}
}

func TestHubJoinAfterShutdown(t *testing.T) {
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	hub.Run(ctx)

	if hub.join(&Client{hub: hub, send: make(chan []byte, 1)}) {
		t.Error("join should fail once the hub has stopped")
	}
	hub.leave(&Client{hub: hub})
}
