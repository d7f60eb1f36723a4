package sentiment

import (
	"strings"
	"unicode"

	"github.com/dyike/CortexSwing/models"
)

// Polarity cut-offs for the averaged headline score.
const (
	positiveThreshold = 0.1
	negativeThreshold = -0.1
)

var positiveWords = map[string]float64{
	"beat": 0.6, "beats": 0.6, "surge": 0.8, "surges": 0.8, "soar": 0.8, "soars": 0.8,
	"rally": 0.7, "rallies": 0.7, "gain": 0.5, "gains": 0.5, "jump": 0.6, "jumps": 0.6,
	"rise": 0.4, "rises": 0.4, "record": 0.5, "upgrade": 0.7, "upgraded": 0.7,
	"outperform": 0.6, "strong": 0.5, "growth": 0.4, "profit": 0.4, "profitable": 0.5,
	"bullish": 0.8, "buy": 0.4, "wins": 0.5, "win": 0.5, "boost": 0.5, "boosts": 0.5,
	"expands": 0.4, "expansion": 0.4, "raises": 0.4, "higher": 0.3, "partnership": 0.3,
	"approval": 0.5, "approved": 0.5, "breakthrough": 0.7, "top": 0.3,
}

var negativeWords = map[string]float64{
	"miss": -0.6, "misses": -0.6, "plunge": -0.8, "plunges": -0.8, "tumble": -0.7,
	"tumbles": -0.7, "drop": -0.5, "drops": -0.5, "fall": -0.5, "falls": -0.5,
	"slump": -0.7, "slumps": -0.7, "downgrade": -0.7, "downgraded": -0.7, "loss": -0.5,
	"losses": -0.5, "weak": -0.5, "lawsuit": -0.6, "probe": -0.5, "investigation": -0.5,
	"bearish": -0.8, "sell": -0.4, "selloff": -0.7, "crash": -0.9, "fraud": -0.9,
	"warns": -0.5, "warning": -0.5, "cut": -0.4, "cuts": -0.4, "layoffs": -0.5,
	"lower": -0.3, "decline": -0.5, "declines": -0.5, "recall": -0.5, "bankruptcy": -0.9,
}

var negators = map[string]bool{
	"not": true, "no": true, "never": true, "without": true, "fails": true, "failed": true,
}

// Score rates one headline in [-1, 1]. Each lexicon hit contributes its
// weight, flipped when one of the two preceding words is a negator, and the
// result is the mean over hits. Headlines with no hits score 0.
func Score(headline string) float64 {
	words := strings.FieldsFunc(strings.ToLower(headline), func(r rune) bool {
		return !unicode.IsLetter(r) && r != '\''
	})

	var sum float64
	hits := 0
	for i, w := range words {
		weight, ok := positiveWords[w]
		if !ok {
			weight, ok = negativeWords[w]
		}
		if !ok {
			continue
		}
		if negated(words, i) {
			weight = -weight / 2
		}
		sum += weight
		hits++
	}
	if hits == 0 {
		return 0
	}
	return sum / float64(hits)
}

func negated(words []string, i int) bool {
	for j := i - 1; j >= 0 && j >= i-2; j-- {
		if negators[words[j]] || strings.HasSuffix(words[j], "n't") {
			return true
		}
	}
	return false
}

// Average is the mean headline score, 0 for no headlines.
func Average(headlines []string) float64 {
	if len(headlines) == 0 {
		return 0
	}
	var sum float64
	for _, h := range headlines {
		sum += Score(h)
	}
	return sum / float64(len(headlines))
}

// Classify maps an averaged score to a reading. The same polarity drives
// both the market and the news label.
func Classify(avg float64) models.SentimentReading {
	switch {
	case avg > positiveThreshold:
		return models.SentimentReading{Market: models.SentimentBullish, News: models.SentimentPositive}
	case avg < negativeThreshold:
		return models.SentimentReading{Market: models.SentimentBearish, News: models.SentimentNegative}
	}
	return models.NeutralSentiment()
}
