package notifier

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestWebhookChannel_Send(t *testing.T) {
	var got map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("unexpected method %s", r.Method)
		}
		json.NewDecoder(r.Body).Decode(&got)
	}))
	defer srv.Close()

	w := NewWebhookChannel(srv.URL, "ops@example.com", "")
	if err := w.Send(context.Background(), "Cryptobot Order Placed", "bought"); err != nil {
		t.Fatalf("send: %v", err)
	}
	if got["to"] != "ops@example.com" || got["subject"] != "Cryptobot Order Placed" || got["body"] != "bought" {
		t.Errorf("unexpected payload %v", got)
	}
}

func TestWebhookChannel_Status(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusBadGateway)
	}))
	defer srv.Close()

	if err := NewWebhookChannel(srv.URL, "ops@example.com", "").Send(context.Background(), "s", "m"); err == nil {
		t.Fatal("expected an error for a 502 reply")
	}
}
