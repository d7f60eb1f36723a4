package sentiment

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"

	"github.com/dyike/CortexSwing/pkg/dataflows"
)

const (
	NewsAPIBaseURL    = "https://newsapi.org"
	GoogleNewsBaseURL = "https://news.google.com"
)

// HeadlineSource returns recent English headlines mentioning a ticker.
type HeadlineSource interface {
	Name() string
	Headlines(ctx context.Context, ticker string, limit int) ([]string, error)
}

type NewsAPISource struct {
	client *resty.Client
	apiKey string
}

func NewNewsAPISource(apiKey string, client *resty.Client) *NewsAPISource {
	if client == nil {
		client = dataflows.NewRestClient(NewsAPIBaseURL, 15*time.Second, nil)
	}
	return &NewsAPISource{client: client, apiKey: apiKey}
}

func (s *NewsAPISource) Name() string { return "newsapi" }

type newsAPIResponse struct {
	Status   string `json:"status"`
	Code     string `json:"code"`
	Message  string `json:"message"`
	Articles []struct {
		Title string `json:"title"`
	} `json:"articles"`
}

func (s *NewsAPISource) Headlines(ctx context.Context, ticker string, limit int) ([]string, error) {
	var out newsAPIResponse
	resp, err := s.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"q":        ticker,
			"pageSize": strconv.Itoa(limit),
			"apiKey":   s.apiKey,
			"sortBy":   "publishedAt",
			"language": "en",
		}).
		SetResult(&out).
		SetError(&out).
		Get("/v2/everything")
	if err != nil {
		return nil, fmt.Errorf("newsapi request: %w", err)
	}
	if resp.IsError() || out.Status != "ok" {
		return nil, fmt.Errorf("newsapi status %d: %s %s", resp.StatusCode(), out.Code, out.Message)
	}

	titles := make([]string, 0, len(out.Articles))
	for _, a := range out.Articles {
		if t := strings.TrimSpace(a.Title); t != "" {
			titles = append(titles, t)
		}
		if len(titles) == limit {
			break
		}
	}
	return titles, nil
}

// GoogleNewsSource reads the public Google News RSS search feed.
type GoogleNewsSource struct {
	client *resty.Client
}

func NewGoogleNewsSource(client *resty.Client) *GoogleNewsSource {
	if client == nil {
		client = dataflows.NewRestClient(GoogleNewsBaseURL, 15*time.Second, nil)
	}
	return &GoogleNewsSource{client: client}
}

func (s *GoogleNewsSource) Name() string { return "google_news" }

func (s *GoogleNewsSource) Headlines(ctx context.Context, ticker string, limit int) ([]string, error) {
	resp, err := s.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"q":    ticker + " stock",
			"hl":   "en-US",
			"gl":   "US",
			"ceid": "US:en",
		}).
		Get("/rss/search")
	if err != nil {
		return nil, fmt.Errorf("google news request: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("google news status %d", resp.StatusCode())
	}

	return parseRSSTitles(resp.String(), limit)
}

func parseRSSTitles(body string, limit int) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse rss: %w", err)
	}

	var titles []string
	doc.Find("item").EachWithBreak(func(i int, item *goquery.Selection) bool {
		title := strings.TrimSpace(item.Find("title").First().Text())
		// Google appends " - Publisher" to every title.
		if idx := strings.LastIndex(title, " - "); idx > 0 {
			title = title[:idx]
		}
		if title != "" {
			titles = append(titles, title)
		}
		return len(titles) < limit
	})
	return titles, nil
}

// feedURL is the browser-visible form of a Google News query, used in logs.
func feedURL(ticker string) string {
	return GoogleNewsBaseURL + "/rss/search?q=" + url.QueryEscape(ticker+" stock")
}
