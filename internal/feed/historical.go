package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"time"

	"sbwatch/internal/model"
)

// Historical fetches minute bars for a time range; the level builder's data
// source.
type Historical interface {
	FetchBars(ctx context.Context, symbol string, start, end time.Time) ([]model.Bar, error)
	Name() string
}

// HTTPHistorical implements Historical against the market-data REST API.
type HTTPHistorical struct {
	BaseURL      string
	APIKey       string
	Dataset      string
	Schema       string
	PriceDivisor float64
	Client       *http.Client
}

// NewHTTPHistorical creates a fetcher with optional proxy support.
func NewHTTPHistorical(baseURL, apiKey, dataset, schema string, divisor float64, proxyURL string) *HTTPHistorical {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	if divisor <= 0 {
		divisor = 1
	}
	return &HTTPHistorical{
		BaseURL:      baseURL,
		APIKey:       apiKey,
		Dataset:      dataset,
		Schema:       schema,
		PriceDivisor: divisor,
		Client: &http.Client{
			Timeout:   30 * time.Second,
			Transport: transport,
		},
	}
}

func (f *HTTPHistorical) Name() string { return "http" }

// wireBar is the JSON shape returned by the range endpoint. Prices arrive as
// fixed-point integers scaled by the dataset's divisor.
type wireBar struct {
	TsEventMs int64   `json:"ts_ms"`
	Open      float64 `json:"open"`
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
	Close     float64 `json:"close"`
	Volume    float64 `json:"volume"`
}

func (f *HTTPHistorical) FetchBars(ctx context.Context, symbol string, start, end time.Time) ([]model.Bar, error) {
	endpoint := fmt.Sprintf("%s/v0/timeseries.get_range?dataset=%s&schema=%s&symbols=%s&start=%s&end=%s",
		f.BaseURL, url.QueryEscape(f.Dataset), url.QueryEscape(f.Schema), url.QueryEscape(symbol),
		url.QueryEscape(start.UTC().Format(time.RFC3339)), url.QueryEscape(end.UTC().Format(time.RFC3339)))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	if f.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+f.APIKey)
	}
	resp, err := f.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch bars: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch bars: status %d", resp.StatusCode)
	}

	var raw []wireBar
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode bars: %w", err)
	}

	bars := make([]model.Bar, 0, len(raw))
	for _, w := range raw {
		bars = append(bars, model.Bar{
			Start:     time.UnixMilli(w.TsEventMs).UTC(),
			Open:      w.Open / f.PriceDivisor,
			High:      w.High / f.PriceDivisor,
			Low:       w.Low / f.PriceDivisor,
			Close:     w.Close / f.PriceDivisor,
			Volume:    w.Volume,
			Finalized: true,
		})
	}
	sort.Slice(bars, func(i, j int) bool { return bars[i].Start.Before(bars[j].Start) })
	return bars, nil
}
