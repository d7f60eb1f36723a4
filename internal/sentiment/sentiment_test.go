package sentiment

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/dyike/CortexSwing/models"
	"github.com/dyike/CortexSwing/pkg/dataflows"
)

func testClient(url string) *resty.Client {
	return dataflows.NewRestClient(url, 2*time.Second, &dataflows.RetryConfig{MaxRetries: 0, BaseDelay: time.Millisecond, MaxDelay: time.Millisecond, Multiplier: 1})
}

func TestScore(t *testing.T) {
	tests := []struct {
		headline string
		sign     int
	}{
		{"Palantir shares surge after earnings beat", 1},
		{"Stock plunges on fraud probe", -1},
		{"Company did not beat estimates", -1},
		{"Company announces new office in Denver", 0},
	}
	for _, tt := range tests {
		got := Score(tt.headline)
		switch {
		case tt.sign > 0 && got <= 0, tt.sign < 0 && got >= 0, tt.sign == 0 && got != 0:
			t.Errorf("Score(%q) = %v, want sign %d", tt.headline, got, tt.sign)
		}
		if got < -1 || got > 1 {
			t.Errorf("Score(%q) = %v out of range", tt.headline, got)
		}
	}
}

func TestClassify(t *testing.T) {
	if got := Classify(0.5); got != (models.SentimentReading{Market: models.SentimentBullish, News: models.SentimentPositive}) {
		t.Errorf("Classify(0.5) = %+v", got)
	}
	if got := Classify(-0.5); got != (models.SentimentReading{Market: models.SentimentBearish, News: models.SentimentNegative}) {
		t.Errorf("Classify(-0.5) = %+v", got)
	}
	if got := Classify(0.1); got != models.NeutralSentiment() {
		t.Errorf("Classify(0.1) = %+v, want neutral", got)
	}
}

func TestNewsAPISource(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if r.URL.Path != "/v2/everything" || q.Get("q") != "PLTR" || q.Get("apiKey") != "secret" || q.Get("pageSize") != "10" || q.Get("language") != "en" {
			http.Error(w, `{"status":"error","code":"bad","message":"unexpected request"}`, http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok","articles":[{"title":"Palantir stock soars on record contract"},{"title":" "},{"title":"Analysts upgrade Palantir"}]}`))
	}))
	defer srv.Close()

	src := NewNewsAPISource("secret", testClient(srv.URL))
	titles, err := src.Headlines(context.Background(), "PLTR", 10)
	if err != nil {
		t.Fatalf("Headlines: %v", err)
	}
	if len(titles) != 2 {
		t.Fatalf("expected 2 titles, got %v", titles)
	}
}

func TestNewsAPISourceError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"status":"error","code":"apiKeyInvalid","message":"bad key"}`))
	}))
	defer srv.Close()

	if _, err := NewNewsAPISource("bad", testClient(srv.URL)).Headlines(context.Background(), "PLTR", 10); err == nil {
		t.Fatalf("expected error for 401")
	}
}

func TestParseRSSTitles(t *testing.T) {
	body := `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0"><channel><title>"PLTR stock" - Google News</title>
<item><title>Palantir jumps after strong quarter - Reuters</title><link>https://example.com/a</link></item>
<item><title>Palantir faces lawsuit over contract - Bloomberg</title><link>https://example.com/b</link></item>
<item><title>Third headline - CNBC</title></item>
</channel></rss>`

	titles, err := parseRSSTitles(body, 2)
	if err != nil {
		t.Fatalf("parseRSSTitles: %v", err)
	}
	if len(titles) != 2 {
		t.Fatalf("expected 2 titles, got %v", titles)
	}
	if titles[0] != "Palantir jumps after strong quarter" {
		t.Errorf("publisher suffix not stripped: %q", titles[0])
	}
}

type stubSource struct {
	name      string
	headlines []string
	err       error
	calls     int
}

func (s *stubSource) Name() string { return s.name }

func (s *stubSource) Headlines(context.Context, string, int) ([]string, error) {
	s.calls++
	return s.headlines, s.err
}

func TestAnalyzerFallsBackAndDegrades(t *testing.T) {
	failing := &stubSource{name: "primary", err: errors.New("rate limited")}
	backup := &stubSource{name: "backup", headlines: []string{"Shares rally on upgrade"}}

	got := NewAnalyzer(nil, failing, backup).FetchSentiment(context.Background(), "PLTR")
	if got.Market != models.SentimentBullish || got.News != models.SentimentPositive {
		t.Fatalf("expected bullish from backup source, got %+v", got)
	}
	if failing.calls != 1 || backup.calls != 1 {
		t.Fatalf("expected each source called once")
	}

	empty := &stubSource{name: "empty"}
	got = NewAnalyzer(nil, failing, empty).FetchSentiment(context.Background(), "PLTR")
	if got != models.NeutralSentiment() {
		t.Fatalf("expected neutral when nothing is available, got %+v", got)
	}
}
