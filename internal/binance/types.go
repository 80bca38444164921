package binance

import "context"

// Kline represents a candlestick
type Kline struct {
	OpenTime         int64   `json:"openTime"`
	Open             float64 `json:"open,string"`
	High             float64 `json:"high,string"`
	Low              float64 `json:"low,string"`
	Close            float64 `json:"close,string"`
	Volume           float64 `json:"volume,string"`
	CloseTime        int64   `json:"closeTime"`
	QuoteAssetVolume float64 `json:"quoteAssetVolume,string"`
	NumberOfTrades   int     `json:"numberOfTrades"`
}

// Ticker24hr represents 24hr ticker price change statistics
type Ticker24hr struct {
	Symbol             string  `json:"symbol"`
	PriceChangePercent float64 `json:"priceChangePercent,string"`
	LastPrice          float64 `json:"lastPrice,string"`
	QuoteVolume        float64 `json:"quoteVolume,string"`
}

// SymbolInfo represents contract metadata for a futures symbol
type SymbolInfo struct {
	Symbol       string `json:"symbol"`
	Pair         string `json:"pair"`
	ContractType string `json:"contractType"`
	Status       string `json:"status"`
	QuoteAsset   string `json:"quoteAsset"`
}

// ExchangeInfo represents the exchange information response
type ExchangeInfo struct {
	Symbols []SymbolInfo `json:"symbols"`
}

// MarketData is the read surface consumed by the signal engine. Tests
// substitute a fake; production uses *Client.
type MarketData interface {
	GetKlines(ctx context.Context, symbol, interval string, limit int) ([]Kline, error)
	Get24hrTickers(ctx context.Context) ([]Ticker24hr, error)
	GetExchangeInfo(ctx context.Context) (*ExchangeInfo, error)
	GetSpotTicker(ctx context.Context, symbol string) (*Ticker24hr, error)
}
