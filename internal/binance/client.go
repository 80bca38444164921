// Package binance provides a read-only client for the Binance Futures
// public market-data endpoints (fapi). No API key is required.
package binance

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

const (
	// DefaultFuturesBaseURL is the Binance USD-M Futures API host.
	DefaultFuturesBaseURL = "https://fapi.binance.com"
	// DefaultSpotBaseURL is the Binance Spot API host, used only for
	// fiat reference tickers such as USDTBRL.
	DefaultSpotBaseURL = "https://api.binance.com"
)

// Client is an HTTP client for Binance public market data.
type Client struct {
	futuresBaseURL string
	spotBaseURL    string
	httpClient     *http.Client
}

// NewClient creates a new market-data client. Empty base URLs fall back to
// the production hosts. The timeout applies per request and should stay well
// below the engine tick period.
func NewClient(futuresBaseURL, spotBaseURL string, timeout time.Duration) *Client {
	if futuresBaseURL == "" {
		futuresBaseURL = DefaultFuturesBaseURL
	}
	if spotBaseURL == "" {
		spotBaseURL = DefaultSpotBaseURL
	}
	if timeout <= 0 {
		timeout = 4 * time.Second
	}
	return &Client{
		futuresBaseURL: futuresBaseURL,
		spotBaseURL:    spotBaseURL,
		httpClient:     &http.Client{Timeout: timeout},
	}
}

// GetKlines fetches candlestick data, ordered oldest to newest. The trailing
// candle is still open; indicator math must exclude it.
func (c *Client) GetKlines(ctx context.Context, symbol, interval string, limit int) ([]Kline, error) {
	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("interval", interval)
	params.Set("limit", strconv.Itoa(limit))

	endpoint := fmt.Sprintf("%s/fapi/v1/klines?%s", c.futuresBaseURL, params.Encode())

	body, err := c.get(ctx, endpoint)
	if err != nil {
		return nil, fmt.Errorf("fetching klines for %s: %w", symbol, err)
	}

	var rawKlines [][]interface{}
	if err := json.Unmarshal(body, &rawKlines); err != nil {
		return nil, fmt.Errorf("parsing klines for %s: %w", symbol, err)
	}

	klines := make([]Kline, len(rawKlines))
	for i, raw := range rawKlines {
		if len(raw) < 9 {
			return nil, fmt.Errorf("parsing klines for %s: tuple has %d fields", symbol, len(raw))
		}
		klines[i] = Kline{
			OpenTime:         parseInt(raw[0]),
			Open:             parseFloat(raw[1]),
			High:             parseFloat(raw[2]),
			Low:              parseFloat(raw[3]),
			Close:            parseFloat(raw[4]),
			Volume:           parseFloat(raw[5]),
			CloseTime:        parseInt(raw[6]),
			QuoteAssetVolume: parseFloat(raw[7]),
			NumberOfTrades:   int(parseInt(raw[8])),
		}
	}

	return klines, nil
}

// Get24hrTickers fetches the 24hr ticker statistics for every futures symbol.
func (c *Client) Get24hrTickers(ctx context.Context) ([]Ticker24hr, error) {
	endpoint := fmt.Sprintf("%s/fapi/v1/ticker/24hr", c.futuresBaseURL)

	body, err := c.get(ctx, endpoint)
	if err != nil {
		return nil, fmt.Errorf("fetching tickers: %w", err)
	}

	var tickers []Ticker24hr
	if err := json.Unmarshal(body, &tickers); err != nil {
		return nil, fmt.Errorf("parsing tickers: %w", err)
	}

	return tickers, nil
}

// GetExchangeInfo fetches contract metadata for every futures symbol.
func (c *Client) GetExchangeInfo(ctx context.Context) (*ExchangeInfo, error) {
	endpoint := fmt.Sprintf("%s/fapi/v1/exchangeInfo", c.futuresBaseURL)

	body, err := c.get(ctx, endpoint)
	if err != nil {
		return nil, fmt.Errorf("fetching exchange info: %w", err)
	}

	var info ExchangeInfo
	if err := json.Unmarshal(body, &info); err != nil {
		return nil, fmt.Errorf("parsing exchange info: %w", err)
	}

	return &info, nil
}

// GetSpotTicker fetches a single 24hr ticker from the Spot API.
func (c *Client) GetSpotTicker(ctx context.Context, symbol string) (*Ticker24hr, error) {
	endpoint := fmt.Sprintf("%s/api/v3/ticker/24hr?symbol=%s", c.spotBaseURL, url.QueryEscape(symbol))

	body, err := c.get(ctx, endpoint)
	if err != nil {
		return nil, fmt.Errorf("fetching spot ticker %s: %w", symbol, err)
	}

	var ticker Ticker24hr
	if err := json.Unmarshal(body, &ticker); err != nil {
		return nil, fmt.Errorf("parsing spot ticker %s: %w", symbol, err)
	}

	return &ticker, nil
}

func (c *Client) get(ctx context.Context, endpoint string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API error (%d): %s", resp.StatusCode, string(body))
	}

	return body, nil
}

func parseFloat(val interface{}) float64 {
	switch v := val.(type) {
	case string:
		f, _ := strconv.ParseFloat(v, 64)
		return f
	case float64:
		return v
	default:
		return 0
	}
}

func parseInt(val interface{}) int64 {
	switch v := val.(type) {
	case float64:
		return int64(v)
	case string:
		n, _ := strconv.ParseInt(v, 10, 64)
		return n
	default:
		return 0
	}
}
