package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/dyike/CortexSwing/internal/logging"
	"github.com/dyike/CortexSwing/pkg/dataflows"
)

const TelegramBaseURL = "https://api.telegram.org"

// Telegram sends plain-text messages to one chat through the Bot API.
type Telegram struct {
	client *resty.Client
	token  string
	chatID string
	logger *zap.Logger
}

func NewTelegram(token, chatID string, client *resty.Client, logger *zap.Logger) *Telegram {
	if client == nil {
		client = dataflows.NewRestClient(TelegramBaseURL, 10*time.Second, &dataflows.RetryConfig{
			MaxRetries: 2,
			BaseDelay:  500 * time.Millisecond,
			MaxDelay:   5 * time.Second,
			Multiplier: 2,
		})
	}
	return &Telegram{client: client, token: token, chatID: chatID, logger: logging.OrNop(logger)}
}

func (t *Telegram) Enabled() bool {
	return t.token != "" && t.chatID != ""
}

type telegramResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
}

// Send delivers message. Without a token and chat id it is a no-op. Callers
// log a returned error and carry on.
func (t *Telegram) Send(ctx context.Context, message string) error {
	if !t.Enabled() {
		t.logger.Debug("telegram disabled, message dropped")
		return nil
	}

	var out telegramResponse
	resp, err := t.client.R().
		SetContext(ctx).
		SetBody(map[string]string{
			"chat_id": t.chatID,
			"text":    message,
		}).
		SetResult(&out).
		SetError(&out).
		Post("/bot" + t.token + "/sendMessage")
	if err != nil {
		return fmt.Errorf("telegram send: %w", err)
	}
	if resp.IsError() || !out.OK {
		return fmt.Errorf("telegram send: status %d: %s", resp.StatusCode(), out.Description)
	}
	return nil
}
