package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ayusman/mudra/internal/action"
	"github.com/ayusman/mudra/internal/gesture"
	"github.com/ayusman/mudra/internal/store"
)

func TestAPI_BindingWorkflow(t *testing.T) {
	s, err := store.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("store.New() error = %v", err)
	}
	defer s.Close()

	keyboard := action.NewKeyboardDispatcher(action.DefaultBindings())
	srv := New(Config{Store: s, BindingSink: keyboard})
	ts := httptest.NewServer(srv)
	defer ts.Close()

	client := ts.Client()

	// 1. Override a binding
	req, _ := http.NewRequest(http.MethodPut, ts.URL+"/api/bindings/next_slide", bytes.NewBufferString(`{"key":"right"}`))
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("PUT /api/bindings/next_slide error = %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("PUT status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	// 2. The running dispatcher picked it up
	if b, _ := keyboard.Binding(gesture.NextSlide); b.Key != "right" {
		t.Errorf("dispatcher binding = %q, want right", b.Key)
	}

	// 3. List reflects the override
	resp, _ = client.Get(ts.URL + "/api/bindings")
	var listed struct {
		Bindings []struct {
			Gesture  string `json:"gesture"`
			Key      string `json:"key"`
			Override bool   `json:"override"`
		} `json:"bindings"`
	}
	json.NewDecoder(resp.Body).Decode(&listed)
	resp.Body.Close()

	found := false
	for _, b := range listed.Bindings {
		if b.Gesture == "next_slide" {
			found = true
			if b.Key != "right" || !b.Override {
				t.Errorf("unexpected listed binding %+v", b)
			}
		}
	}
	if !found {
		t.Error("next_slide missing from binding list")
	}

	// 4. Reset to default
	req, _ = http.NewRequest(http.MethodDelete, ts.URL+"/api/bindings/next_slide", nil)
	resp, _ = client.Do(req)
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("DELETE status = %d, want %d", resp.StatusCode, http.StatusNoContent)
	}
	if b, _ := keyboard.Binding(gesture.NextSlide); b.Key != "down" {
		t.Errorf("dispatcher binding = %q, want down", b.Key)
	}
}

func TestAPI_GestureFeed(t *testing.T) {
	hub := NewHub()
	ts := httptest.NewServer(New(Config{Hub: hub}))
	defer ts.Close()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/gestures"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial error = %v", err)
	}
	defer conn.Close()

	deadline := time.Now().Add(5 * time.Second)
	for hub.Subscribers() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("subscriber never registered")
		}
		time.Sleep(5 * time.Millisecond)
	}

	hub.OnGesture(gesture.Event{Kind: gesture.PreviousSlide, Hand: "Left", At: time.Now()})

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var msg GestureMessage
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read error = %v", err)
	}
	if msg.Kind != gesture.PreviousSlide || msg.Name != "Previous Slide" || msg.Hand != "Left" {
		t.Errorf("unexpected message %+v", msg)
	}

	conn.Close()
	deadline = time.Now().Add(5 * time.Second)
	for hub.Subscribers() != 0 {
		if time.Now().After(deadline) {
			t.Fatal("subscriber not removed after disconnect")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestAPI_HealthCheck(t *testing.T) {
	srv := New(Config{})
	ts := httptest.NewServer(srv)
	defer ts.Close()

	resp, err := ts.Client().Get(ts.URL + "/api/health")
	if err != nil {
		t.Fatalf("GET /api/health error = %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	var health struct {
		Status string `json:"status"`
		Uptime string `json:"uptime"`
	}
	json.NewDecoder(resp.Body).Decode(&health)

	if health.Status != "ok" {
		t.Errorf("status = %s, want ok", health.Status)
	}
}

func TestServer_ServeStopsOnCancel(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- New(Config{}).Serve(ctx, ln) }()

	url := "http://" + ln.Addr().String() + "/api/health"
	deadline := time.Now().Add(5 * time.Second)
	for {
		resp, err := http.Get(url)
		if err == nil {
			resp.Body.Close()
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("server never came up: %v", err)
		}
		time.Sleep(10 * time.Millisecond)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Serve() error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
}
