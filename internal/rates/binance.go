// Package rates provides the single spot conversion rate used to express
// native listing prices in USD.
package rates

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const tickerPath = "/api/v3/ticker/price"

// Options parameterise the Binance spot rate provider.
type Options struct {
	BaseURL string
	Symbol  string
	Timeout time.Duration
}

// Provider fetches a spot price from the Binance public ticker. An
// unavailable rate is a valid outcome, not an error: Spot returns nil and the
// caller degrades its cycle to a no-op.
type Provider struct {
	opts    Options
	client  *http.Client
	baseURL string
	logger  zerolog.Logger
}

// NewProvider constructs a rate provider.
func NewProvider(opts Options, logger zerolog.Logger) *Provider {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.binance.com"
	}
	if opts.Symbol == "" {
		opts.Symbol = "ETHUSDT"
	}
	return &Provider{
		opts:    opts,
		client:  &http.Client{Timeout: timeout},
		baseURL: baseURL,
		logger:  logger.With().Str("component", "rates").Logger(),
	}
}

// Spot returns the current spot rate for the configured symbol, or nil when
// the ticker is unreachable or returns an unusable body.
func (p *Provider) Spot(ctx context.Context) *float64 {
	endpoint := p.baseURL + tickerPath + "?" + url.Values{"symbol": {p.opts.Symbol}}.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		p.logger.Warn().Err(err).Msg("build rate request")
		return nil
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		if ctx.Err() == nil {
			p.logger.Warn().Err(err).Msg("rate fetch failed")
		}
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		p.logger.Warn().Int("status", resp.StatusCode).Msg("rate fetch returned non-200")
		return nil
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		p.logger.Warn().Err(err).Msg("read rate response")
		return nil
	}

	var ticker struct {
		Symbol string `json:"symbol"`
		Price  string `json:"price"`
	}
	if err := json.Unmarshal(body, &ticker); err != nil {
		p.logger.Warn().Err(err).Msg("decode rate response")
		return nil
	}

	rate, err := strconv.ParseFloat(ticker.Price, 64)
	if err != nil {
		p.logger.Warn().Str("price", ticker.Price).Msg("unparseable rate")
		return nil
	}
	return &rate
}
