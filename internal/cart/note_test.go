package cart

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"cart-engine/internal/storefront"
)

func TestNoteDebouncesToLastValue(t *testing.T) {
	var mu sync.Mutex
	var notes []string
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Note string `json:"note"`
		}
		json.NewDecoder(r.Body).Decode(&body)
		mu.Lock()
		notes = append(notes, body.Note)
		mu.Unlock()
	})

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := storefront.New(storefront.Config{StoreURL: server.URL, HTTPClient: server.Client()})
	if err != nil {
		t.Fatalf("storefront.New: %v", err)
	}

	note := NewNote(client, testLogger(), 30*time.Millisecond)
	note.Start(context.Background())
	defer note.Stop()

	note.OnInput("l")
	note.OnInput("leave at")
	note.OnInput("leave at the door")

	time.Sleep(150 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	if len(notes) != 1 {
		t.Fatalf("server saw %d note writes, want 1", len(notes))
	}
	if notes[0] != "leave at the door" {
		t.Errorf("persisted note = %q, want last value", notes[0])
	}
}

func TestNoteStopCancelsPendingWrite(t *testing.T) {
	var mu sync.Mutex
	var writes int
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		writes++
		mu.Unlock()
	})

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := storefront.New(storefront.Config{StoreURL: server.URL, HTTPClient: server.Client()})
	if err != nil {
		t.Fatalf("storefront.New: %v", err)
	}

	note := NewNote(client, testLogger(), 30*time.Millisecond)
	note.Start(context.Background())

	note.OnInput("never sent")
	note.Stop()

	time.Sleep(100 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	if writes != 0 {
		t.Errorf("server saw %d writes after Stop, want 0", writes)
	}
}
