package rationale

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"go.uber.org/zap"

	"github.com/dyike/CortexSwing/config"
	"github.com/dyike/CortexSwing/internal/signal"
	"github.com/dyike/CortexSwing/models"
)

const deepSeekBaseURL = "https://api.deepseek.com/v1"

const systemPrompt = `You are a swing-trading assistant. Given the indicator readings and sentiment
behind a buy signal, explain in at most two sentences why the setup is attractive.
Be concrete and cite the numbers. Do not give disclaimers.`

// Writer produces the human-readable explanation attached to a buy signal.
type Writer interface {
	Write(ctx context.Context, sig models.TradingSignal) string
}

// Template writes the fixed-format rationale without any model call.
type Template struct {
	cfg config.StrategyConfig
}

func NewTemplate(cfg config.StrategyConfig) *Template {
	return &Template{cfg: cfg}
}

func (t *Template) Write(_ context.Context, sig models.TradingSignal) string {
	return signal.Describe(sig.Bar, sig.Sentiment, t.cfg)
}

type generator interface {
	Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error)
}

// LLMWriter asks a chat model for the rationale and falls back to the
// template when the call fails or returns nothing.
type LLMWriter struct {
	model    generator
	fallback *Template
	timeout  time.Duration
	logger   *zap.Logger
}

func NewLLMWriter(ctx context.Context, apiKey, modelName string, cfg config.StrategyConfig, logger *zap.Logger) (*LLMWriter, error) {
	maxTokens := 120
	chatModel, err := openai.NewChatModel(ctx, &openai.ChatModelConfig{
		BaseURL:   deepSeekBaseURL,
		APIKey:    apiKey,
		Model:     modelName,
		MaxTokens: &maxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("create chat model: %w", err)
	}
	return newLLMWriter(chatModel, cfg, logger), nil
}

func newLLMWriter(g generator, cfg config.StrategyConfig, logger *zap.Logger) *LLMWriter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LLMWriter{
		model:    g,
		fallback: NewTemplate(cfg),
		timeout:  20 * time.Second,
		logger:   logger,
	}
}

func (w *LLMWriter) Write(ctx context.Context, sig models.TradingSignal) string {
	ctx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	msg, err := w.model.Generate(ctx, []*schema.Message{
		schema.SystemMessage(systemPrompt),
		schema.UserMessage(Prompt(sig)),
	})
	if err != nil {
		w.logger.Warn("rationale model failed, using template", zap.String("ticker", sig.Ticker), zap.Error(err))
		return w.fallback.Write(ctx, sig)
	}
	text := ""
	if msg != nil {
		text = strings.TrimSpace(msg.Content)
	}
	if text == "" {
		return w.fallback.Write(ctx, sig)
	}
	return text
}

// Prompt renders the signal facts handed to the model.
func Prompt(sig models.TradingSignal) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Ticker: %s\n", sig.Ticker)
	fmt.Fprintf(&sb, "Date: %s\n", sig.Bar.Date.Format("2006-01-02"))
	fmt.Fprintf(&sb, "Close: %.2f\n", sig.Bar.Close)
	if sig.Bar.MA50 != nil {
		fmt.Fprintf(&sb, "MA50: %.2f\n", *sig.Bar.MA50)
	}
	if sig.Bar.RSI != nil {
		fmt.Fprintf(&sb, "RSI: %.1f\n", *sig.Bar.RSI)
	}
	if sig.Bar.VolumeAvg != nil {
		fmt.Fprintf(&sb, "Volume: %.0f (average %.0f)\n", sig.Bar.Volume, *sig.Bar.VolumeAvg)
	}
	fmt.Fprintf(&sb, "Market sentiment: %s\n", sig.Sentiment.Market)
	fmt.Fprintf(&sb, "News sentiment: %s\n", sig.Sentiment.News)
	fmt.Fprintf(&sb, "Conditions: %s\n", signal.FormatConditions(sig.Conditions))
	return sb.String()
}

// New picks the model-backed writer when an API key is configured.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) Writer {
	if cfg.DeepSeekAPIKey == "" {
		return NewTemplate(cfg.Strategy)
	}
	w, err := NewLLMWriter(ctx, cfg.DeepSeekAPIKey, cfg.RationaleModel, cfg.Strategy, logger)
	if err != nil {
		if logger != nil {
			logger.Warn("rationale model unavailable", zap.Error(err))
		}
		return NewTemplate(cfg.Strategy)
	}
	return w
}
