package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dyike/CortexSwing/pkg/dataflows"
)

func TestTelegramSend(t *testing.T) {
	var got map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/botTOKEN/sendMessage" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	client := dataflows.NewRestClient(srv.URL, 2*time.Second, &dataflows.RetryConfig{BaseDelay: time.Millisecond, MaxDelay: time.Millisecond, Multiplier: 1})
	tg := NewTelegram("TOKEN", "42", client, nil)
	if err := tg.Send(context.Background(), "BUY ALERT - PLTR"); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if got["chat_id"] != "42" || got["text"] != "BUY ALERT - PLTR" {
		t.Fatalf("unexpected payload %v", got)
	}
}

func TestTelegramSendFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"ok":false,"description":"internal"}`))
	}))
	defer srv.Close()

	client := dataflows.NewRestClient(srv.URL, 2*time.Second, &dataflows.RetryConfig{MaxRetries: 2, BaseDelay: time.Millisecond, MaxDelay: time.Millisecond, Multiplier: 1})
	tg := NewTelegram("TOKEN", "42", client, nil)
	if err := tg.Send(context.Background(), "hello"); err == nil {
		t.Fatalf("expected error on 500")
	}
}

func TestTelegramDisabledIsNoop(t *testing.T) {
	tg := NewTelegram("", "", nil, nil)
	if tg.Enabled() {
		t.Fatalf("expected disabled")
	}
	if err := tg.Send(context.Background(), "hello"); err != nil {
		t.Fatalf("disabled send should be a no-op, got %v", err)
	}
}
