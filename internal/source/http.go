package source

import (
	"context"
	"fmt"
	"time"

	"resty.dev/v3"

	"github.com/vk/predictflow/internal/ctxlog"
)

// ticksResponse is the wire shape of the /v1/ticks endpoint.
type ticksResponse struct {
	Symbol string `json:"symbol"`
	Ticks  []struct {
		Timestamp time.Time `json:"ts"`
		Price     float64   `json:"price"`
		Volume    float64   `json:"volume"`
	} `json:"ticks"`
}

// HTTPSource fetches ticks from a REST market-data API.
type HTTPSource struct {
	name   string
	client *resty.Client
}

// NewHTTPSource creates a source for the given API base URL.
func NewHTTPSource(name, baseURL string, timeout time.Duration) *HTTPSource {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout)
	return &HTTPSource{name: name, client: client}
}

// Name returns the source's configured name.
func (s *HTTPSource) Name() string { return s.name }

// Fetch retrieves all ticks for the symbol inside the window.
func (s *HTTPSource) Fetch(ctx context.Context, symbol string, w Window) ([]Tick, error) {
	logger := ctxlog.FromContext(ctx).With("source", s.name, "symbol", symbol)
	logger.Debug("Fetching ticks.", "start", w.Start, "end", w.End)

	var body ticksResponse
	resp, err := s.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"symbol": symbol,
			"start":  w.Start.Format(time.RFC3339),
			"end":    w.End.Format(time.RFC3339),
		}).
		SetResult(&body).
		Get("/v1/ticks")
	if err != nil {
		return nil, fmt.Errorf("fetching %s from %s: %w", symbol, s.name, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("fetching %s from %s: unexpected status %s", symbol, s.name, resp.Status())
	}

	ticks := make([]Tick, 0, len(body.Ticks))
	for _, t := range body.Ticks {
		ticks = append(ticks, Tick{
			Symbol:    symbol,
			Timestamp: t.Timestamp,
			Price:     t.Price,
			Volume:    t.Volume,
		})
	}
	logger.Debug("Fetch complete.", "ticks", len(ticks))
	return ticks, nil
}

// Close releases the underlying HTTP client's idle connections.
func (s *HTTPSource) Close() {
	s.client.Close()
}
