// Package weather fetches one-line forecasts from a wttr.in style
// text-by-city service.
package weather

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pkg/errors"
)

const DefaultBaseURL = "https://wttr.in"

const fetchTimeout = 10 * time.Second

type Client struct {
	baseURL string
	client  *http.Client
}

func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client:  &http.Client{Timeout: fetchTimeout},
	}
}

// Fetch returns the one-line forecast for the city.
func (c *Client) Fetch(ctx context.Context, city string) (string, error) {
	u := c.baseURL + "/" + url.PathEscape(city) + "?format=3"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return "", errors.Wrap(err, "failed building forecast request")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return "", errors.Wrap(err, "failed fetching forecast")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", errors.Errorf("weather service replied with status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", errors.Wrap(err, "failed reading forecast")
	}

	return strings.TrimSpace(string(body)), nil
}
