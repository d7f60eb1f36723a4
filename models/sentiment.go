package models

type Sentiment string

const (
	SentimentBullish  Sentiment = "bullish"
	SentimentBearish  Sentiment = "bearish"
	SentimentPositive Sentiment = "positive"
	SentimentNegative Sentiment = "negative"
	SentimentNeutral  Sentiment = "neutral"
)

// SentimentReading is the market and news mood for one ticker at decision time.
type SentimentReading struct {
	Market Sentiment `json:"market"`
	News   Sentiment `json:"news"`
}

func NeutralSentiment() SentimentReading {
	return SentimentReading{Market: SentimentNeutral, News: SentimentNeutral}
}

// BullishSentiment is the fixed reading backtests use, since historical
// sentiment cannot be reconstructed.
func BullishSentiment() SentimentReading {
	return SentimentReading{Market: SentimentBullish, News: SentimentPositive}
}
