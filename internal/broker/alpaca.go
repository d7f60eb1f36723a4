package broker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/dyike/CortexSwing/internal/logging"
	"github.com/dyike/CortexSwing/models"
	"github.com/dyike/CortexSwing/pkg/dataflows"
)

var ErrNotConfigured = errors.New("alpaca credentials not configured")

// Alpaca places market orders through the Alpaca trading API (paper by default).
type Alpaca struct {
	client    *resty.Client
	apiKey    string
	secretKey string
	logger    *zap.Logger
}

func NewAlpaca(baseURL, apiKey, secretKey string, client *resty.Client, logger *zap.Logger) *Alpaca {
	if client == nil {
		// Order submission is not idempotent, so only one retry for transport errors.
		client = dataflows.NewRestClient(baseURL, 15*time.Second, &dataflows.RetryConfig{
			MaxRetries: 1,
			BaseDelay:  time.Second,
			MaxDelay:   2 * time.Second,
			Multiplier: 2,
		})
	}
	return &Alpaca{client: client, apiKey: apiKey, secretKey: secretKey, logger: logging.OrNop(logger)}
}

func (a *Alpaca) Enabled() bool {
	return a.apiKey != "" && a.secretKey != ""
}

type orderRequest struct {
	Symbol      string `json:"symbol"`
	Qty         string `json:"qty"`
	Side        string `json:"side"`
	Type        string `json:"type"`
	TimeInForce string `json:"time_in_force"`
}

type OrderAck struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Symbol string `json:"symbol"`
}

type alpacaError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Submit sends a market GTC order and returns Alpaca's acknowledgement.
func (a *Alpaca) Submit(ctx context.Context, ticker string, qty int, side models.OrderSide) (*OrderAck, error) {
	if !a.Enabled() {
		return nil, ErrNotConfigured
	}
	if qty < 1 {
		return nil, fmt.Errorf("order quantity must be positive, got %d", qty)
	}

	var (
		ack    OrderAck
		apiErr alpacaError
	)
	resp, err := a.client.R().
		SetContext(ctx).
		SetHeader("APCA-API-KEY-ID", a.apiKey).
		SetHeader("APCA-API-SECRET-KEY", a.secretKey).
		SetBody(orderRequest{
			Symbol:      ticker,
			Qty:         fmt.Sprintf("%d", qty),
			Side:        string(side),
			Type:        "market",
			TimeInForce: "gtc",
		}).
		SetResult(&ack).
		SetError(&apiErr).
		Post("/v2/orders")
	if err != nil {
		return nil, fmt.Errorf("submit %s order for %s: %w", side, ticker, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("submit %s order for %s: status %d: %s", side, ticker, resp.StatusCode(), apiErr.Message)
	}
	return &ack, nil
}

// PlaceOrder is the best-effort form used by the trading loop: it logs the
// outcome and returns the error for the caller to log, never to roll back.
func (a *Alpaca) PlaceOrder(ctx context.Context, ticker string, qty int, side models.OrderSide) error {
	ack, err := a.Submit(ctx, ticker, qty, side)
	if err != nil {
		return err
	}
	a.logger.Info("order accepted",
		zap.String("ticker", ticker),
		zap.String("side", string(side)),
		zap.Int("qty", qty),
		zap.String("order_id", ack.ID),
		zap.String("status", ack.Status))
	return nil
}
