package dataflows

import (
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
)

// NewRestClient returns a resty client that retries transport errors, 429s
// and 5xx responses with the backoff described by retry.
func NewRestClient(baseURL string, timeout time.Duration, retry *RetryConfig) *resty.Client {
	if retry == nil {
		retry = DefaultRetryConfig()
	}
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetHeader("User-Agent", "CortexSwing/1.0").
		SetRetryCount(retry.MaxRetries).
		SetRetryWaitTime(retry.BaseDelay).
		SetRetryMaxWaitTime(retry.MaxDelay)

	client.AddRetryCondition(func(resp *resty.Response, err error) bool {
		if err != nil {
			return true
		}
		code := resp.StatusCode()
		return code == http.StatusTooManyRequests || code >= http.StatusInternalServerError
	})
	return client
}
