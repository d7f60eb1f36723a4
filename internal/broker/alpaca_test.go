package broker

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dyike/CortexSwing/models"
	"github.com/dyike/CortexSwing/pkg/dataflows"
)

func TestAlpacaSubmit(t *testing.T) {
	var body orderRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v2/orders" || r.Header.Get("APCA-API-KEY-ID") != "key" || r.Header.Get("APCA-API-SECRET-KEY") != "secret" {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"ord-1","status":"accepted","symbol":"PLTR"}`))
	}))
	defer srv.Close()

	client := dataflows.NewRestClient(srv.URL, 2*time.Second, &dataflows.RetryConfig{BaseDelay: time.Millisecond, MaxDelay: time.Millisecond, Multiplier: 1})
	a := NewAlpaca(srv.URL, "key", "secret", client, nil)

	ack, err := a.Submit(context.Background(), "PLTR", 1, models.OrderSideBuy)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if ack.ID != "ord-1" || ack.Status != "accepted" {
		t.Fatalf("unexpected ack %+v", ack)
	}
	want := orderRequest{Symbol: "PLTR", Qty: "1", Side: "buy", Type: "market", TimeInForce: "gtc"}
	if body != want {
		t.Fatalf("order body = %+v, want %+v", body, want)
	}
}

func TestAlpacaRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"code":40310000,"message":"insufficient buying power"}`))
	}))
	defer srv.Close()

	client := dataflows.NewRestClient(srv.URL, 2*time.Second, &dataflows.RetryConfig{BaseDelay: time.Millisecond, MaxDelay: time.Millisecond, Multiplier: 1})
	err := NewAlpaca(srv.URL, "key", "secret", client, nil).PlaceOrder(context.Background(), "PLTR", 1, models.OrderSideBuy)
	if err == nil {
		t.Fatalf("expected rejection error")
	}
}

func TestAlpacaNotConfigured(t *testing.T) {
	a := NewAlpaca("http://127.0.0.1:0", "", "", nil, nil)
	if _, err := a.Submit(context.Background(), "PLTR", 1, models.OrderSideBuy); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
}
