package signals

import (
	"context"
	"testing"
	"time"

	"futures-signal-dashboard/internal/binance"
)

func binanceSymbol(sym, contract, status, quote string) binance.SymbolInfo {
	return binance.SymbolInfo{Symbol: sym, ContractType: contract, Status: status, QuoteAsset: quote}
}

func TestUniverseFiltersContracts(t *testing.T) {
	market := &fakeMarket{}
	market.info = perpetualInfo("BTCUSDT")
	market.info.Symbols = append(market.info.Symbols,
		// Wrong contract type, halted, and non-USDT quote respectively.
		binanceSymbol("BTCUSDT_250926", "CURRENT_QUARTER", "TRADING", "USDT"),
		binanceSymbol("ETHUSDT", "PERPETUAL", "BREAK", "USDT"),
		binanceSymbol("BTCBUSD", "PERPETUAL", "TRADING", "BUSD"),
	)

	u := NewTradableUniverse(market, time.Hour, nil)

	ok, err := u.Contains(context.Background(), "BTCUSDT")
	if err != nil || !ok {
		t.Errorf("BTCUSDT should be tradable, got %v / %v", ok, err)
	}
	for _, sym := range []string{"BTCUSDT_250926", "ETHUSDT", "BTCBUSD"} {
		ok, err := u.Contains(context.Background(), sym)
		if err != nil {
			t.Fatalf("Contains(%s): %v", sym, err)
		}
		if ok {
			t.Errorf("%s should not be tradable", sym)
		}
	}
}

func TestUniverseRefreshAfterTTL(t *testing.T) {
	market := &fakeMarket{info: perpetualInfo("BTCUSDT")}

	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	u := NewTradableUniverse(market, time.Hour, func() time.Time { return now })

	if _, err := u.Contains(context.Background(), "BTCUSDT"); err != nil {
		t.Fatal(err)
	}

	// A new listing appears; before the TTL expires the cache hides it.
	market.info = perpetualInfo("BTCUSDT", "NEWUSDT")
	now = now.Add(30 * time.Minute)
	if ok, _ := u.Contains(context.Background(), "NEWUSDT"); ok {
		t.Error("cached universe should not refresh before the TTL")
	}

	now = now.Add(31 * time.Minute)
	if ok, _ := u.Contains(context.Background(), "NEWUSDT"); !ok {
		t.Error("universe should refresh once the TTL has expired")
	}
}

func TestParameterCacheLifecycle(t *testing.T) {
	cache := NewParameterCache()

	p := Parameters{ID: "BTCUSDT", Direction: DirectionLong, Timestamp: time.Now()}
	cache.Put(p)

	got, ok := cache.Get("BTCUSDT")
	if !ok || got.Direction != DirectionLong {
		t.Fatalf("Get after Put = %+v, %v", got, ok)
	}

	cache.Invalidate("BTCUSDT")
	if _, ok := cache.Get("BTCUSDT"); ok {
		t.Error("entry should be gone after Invalidate")
	}
	if cache.Len() != 0 {
		t.Errorf("Len = %d, want 0", cache.Len())
	}
}
