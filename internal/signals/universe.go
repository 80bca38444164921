package signals

import (
	"context"
	"fmt"
	"sync"
	"time"

	"futures-signal-dashboard/internal/binance"
)

// TradableUniverse caches the set of symbols eligible for signal generation:
// USDT-margined perpetual contracts currently open for trading. The set is
// refreshed lazily once its TTL expires.
type TradableUniverse struct {
	client binance.MarketData
	ttl    time.Duration
	now    func() time.Time

	mu        sync.Mutex
	symbols   map[string]struct{}
	fetchedAt time.Time
}

// NewTradableUniverse builds a universe cache with the given refresh TTL.
func NewTradableUniverse(client binance.MarketData, ttl time.Duration, now func() time.Time) *TradableUniverse {
	if now == nil {
		now = time.Now
	}
	return &TradableUniverse{
		client: client,
		ttl:    ttl,
		now:    now,
	}
}

// Contains reports whether the symbol is currently tradable, refreshing the
// cached set when stale. A refresh failure surfaces as an error rather than
// an optimistic guess.
func (u *TradableUniverse) Contains(ctx context.Context, symbol string) (bool, error) {
	set, err := u.set(ctx)
	if err != nil {
		return false, err
	}
	_, ok := set[symbol]
	return ok, nil
}

func (u *TradableUniverse) set(ctx context.Context) (map[string]struct{}, error) {
	u.mu.Lock()
	defer u.mu.Unlock()

	if u.symbols != nil && u.now().Sub(u.fetchedAt) < u.ttl {
		return u.symbols, nil
	}

	info, err := u.client.GetExchangeInfo(ctx)
	if err != nil {
		return nil, fmt.Errorf("refreshing tradable universe: %w", err)
	}

	set := make(map[string]struct{})
	for _, s := range info.Symbols {
		if s.ContractType == "PERPETUAL" && s.Status == "TRADING" && s.QuoteAsset == "USDT" {
			set[s.Symbol] = struct{}{}
		}
	}

	u.symbols = set
	u.fetchedAt = u.now()
	return set, nil
}
