package fcm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/fieldops/workorder-api/internal/core"
)

func TestNewClientValidation(t *testing.T) {
	if _, err := NewClient(Config{}); err == nil {
		t.Fatal("expected error when endpoint missing")
	}
	if _, err := NewClient(Config{Endpoint: "https://fcm.local/send"}); err == nil {
		t.Fatal("expected error when server key missing")
	}
}

func TestSendPostsPayload(t *testing.T) {
	var (
		mu       sync.Mutex
		payloads []payload
		auth     string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var p payload
		if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
			t.Errorf("decode payload: %v", err)
		}
		mu.Lock()
		payloads = append(payloads, p)
		auth = r.Header.Get("Authorization")
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client, err := NewClient(Config{Endpoint: srv.URL, ServerKey: "secret"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	msg := core.PushMessage{
		Title:      "Job 42 transferred",
		Body:       "Job 42 transferred",
		Data:       map[string]string{"type": "transfer"},
		Recipients: []string{"user-1", "user-2"},
	}
	if err := client.Send(context.Background(), msg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(payloads) != 1 {
		t.Fatalf("expected one request, got %d", len(payloads))
	}
	if auth != "key=secret" {
		t.Fatalf("unexpected authorization header: %q", auth)
	}
	got := payloads[0]
	if got.Notification.Title != "Job 42 transferred" {
		t.Fatalf("unexpected title: %q", got.Notification.Title)
	}
	if len(got.RegistrationIDs) != 2 {
		t.Fatalf("unexpected recipients: %v", got.RegistrationIDs)
	}
	if got.Data["type"] != "transfer" {
		t.Fatalf("unexpected data: %v", got.Data)
	}
	if got.Data["message_id"] == "" {
		t.Fatal("expected a generated message id in data")
	}
}

func TestSendChunksLargeRecipientLists(t *testing.T) {
	var (
		mu     sync.Mutex
		sizes  []int
		msgIDs []string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var p payload
		if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
			t.Errorf("decode payload: %v", err)
		}
		mu.Lock()
		sizes = append(sizes, len(p.RegistrationIDs))
		msgIDs = append(msgIDs, p.Data["message_id"])
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client, err := NewClient(Config{Endpoint: srv.URL, ServerKey: "secret"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	recipients := make([]string, 2000)
	for i := range recipients {
		recipients[i] = fmt.Sprintf("user-%d", i)
	}
	if err := client.Send(context.Background(), core.PushMessage{
		Title:      "t",
		Body:       "b",
		Recipients: recipients,
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(sizes) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(sizes))
	}
	total := 0
	for _, n := range sizes {
		total += n
		if n > maxRecipientsPerRequest {
			t.Fatalf("chunk of %d exceeds per-request cap", n)
		}
	}
	if total != 2000 {
		t.Fatalf("expected 2000 recipients delivered, got %d", total)
	}
	for _, id := range msgIDs {
		if id == "" || id != msgIDs[0] {
			t.Fatalf("expected all chunks to share one message id, got %v", msgIDs)
		}
	}
}

func TestSendSurfacesHTTPErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "invalid key", http.StatusUnauthorized)
	}))
	defer srv.Close()

	client, err := NewClient(Config{Endpoint: srv.URL, ServerKey: "bad"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	err = client.Send(context.Background(), core.PushMessage{
		Title:      "t",
		Body:       "b",
		Recipients: []string{"user-1"},
	})
	if err == nil {
		t.Fatal("expected error from non-2xx response")
	}
}

func TestChunkRecipients(t *testing.T) {
	cases := []struct {
		n    int
		want []int
	}{
		{1, []int{1}},
		{900, []int{900}},
		{901, []int{900, 1}},
		{1800, []int{900, 900}},
	}
	for _, tc := range cases {
		in := make([]string, tc.n)
		chunks := chunkRecipients(in, 900)
		if len(chunks) != len(tc.want) {
			t.Fatalf("n=%d: expected %d chunks, got %d", tc.n, len(tc.want), len(chunks))
		}
		for i, want := range tc.want {
			if len(chunks[i]) != want {
				t.Fatalf("n=%d chunk %d: expected %d, got %d", tc.n, i, want, len(chunks[i]))
			}
		}
	}
}
