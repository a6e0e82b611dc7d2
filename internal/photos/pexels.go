// Package photos looks up stock photos used when an event has no image.
package photos

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

const defaultEndpoint = "https://api.pexels.com/v1/search"

// Pexels searches the Pexels API. Every failure degrades to "no photo".
type Pexels struct {
	apiKey   string
	endpoint string
	timeout  time.Duration
	client   *http.Client
	log      logrus.FieldLogger
}

// Option configures a Pexels client.
type Option func(*Pexels)

// WithEndpoint points the client at a different search URL.
func WithEndpoint(endpoint string) Option {
	return func(p *Pexels) { p.endpoint = endpoint }
}

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(p *Pexels) { p.client = c }
}

// NewPexels returns a client. An empty apiKey disables lookups.
func NewPexels(apiKey string, timeout time.Duration, log logrus.FieldLogger, opts ...Option) *Pexels {
	p := &Pexels{
		apiKey:   strings.TrimSpace(apiKey),
		endpoint: defaultEndpoint,
		timeout:  timeout,
		client:   http.DefaultClient,
		log:      log,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

type searchResponse struct {
	Photos []struct {
		Src struct {
			Large2x string `json:"large2x"`
			Large   string `json:"large"`
			Medium  string `json:"medium"`
		} `json:"src"`
	} `json:"photos"`
}

// Search returns the URL of the first landscape photo for query. ok is false
// when the lookup is disabled, fails, times out, or finds nothing.
func (p *Pexels) Search(ctx context.Context, query string) (string, bool) {
	query = strings.TrimSpace(query)
	if p == nil || p.apiKey == "" || query == "" {
		return "", false
	}
	photo, err := p.search(ctx, query)
	if err != nil {
		p.log.WithError(err).WithField("query", query).Warn("stock photo lookup failed")
		return "", false
	}
	return photo, photo != ""
}

func (p *Pexels) search(ctx context.Context, query string) (string, error) {
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	params := url.Values{}
	params.Set("query", query)
	params.Set("per_page", "1")
	params.Set("orientation", "landscape")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", p.apiKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("search request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("search status %d", resp.StatusCode)
	}
	var body searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if len(body.Photos) == 0 {
		return "", nil
	}
	src := body.Photos[0].Src
	for _, candidate := range []string{src.Large2x, src.Large, src.Medium} {
		if candidate != "" {
			return candidate, nil
		}
	}
	return "", nil
}
