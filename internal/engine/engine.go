// Package engine drives the signal lifecycle: a fixed-period tick that
// refreshes prices, evaluates exits, archives outcomes and replenishes the
// active board.
package engine

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"futures-signal-dashboard/internal/binance"
	"futures-signal-dashboard/internal/events"
	"futures-signal-dashboard/internal/history"
	"futures-signal-dashboard/internal/signals"
	"futures-signal-dashboard/internal/store"
)

// Status is the user-observable engine state. Degraded (connectivity lost)
// and no-setups (healthy but empty board) are distinct conditions.
type Status string

const (
	StatusOK       Status = "ok"
	StatusDegraded Status = "degraded"
	StatusNoSetups Status = "no_setups"
)

// Persistence keys in the durable store.
const (
	keyActiveBoard = "signals:active"
	keyHistory     = "signals:history"
	keyDailyAlerts = "signals:daily_alerts"
)

// Config holds engine tuning parameters.
type Config struct {
	TickInterval time.Duration
	BoardSize    int
	MaxSignalAge time.Duration
}

// MarketOverview is the headline market data shown alongside the board.
type MarketOverview struct {
	BTCPrice      float64 `json:"btcPrice"`
	BTCChange24h  float64 `json:"btcChange24h"`
	USDTBRLPrice  float64 `json:"usdtBrlPrice"`
	USDTBRLChange float64 `json:"usdtBrlChange"`
}

// Engine owns the active board and all lifecycle state. Board mutation
// happens only inside a tick, and ticks never overlap.
type Engine struct {
	cfg       Config
	client    binance.MarketData
	generator *signals.Generator
	cache     *signals.ParameterCache
	ledger    *signals.DailyAlertLedger
	archive   *history.Archive
	store     store.Store
	bus       *events.Bus
	logger    zerolog.Logger

	now func() time.Time

	mu          sync.RWMutex
	board       []signals.ActiveSignal
	status      Status
	market      MarketOverview
	lastUpdated time.Time

	stopChan chan struct{}
	doneChan chan struct{}
	stopOnce sync.Once
}

// New builds an engine. Defaults: 5s tick, board of 8, 2h signal age limit.
func New(cfg Config, client binance.MarketData, generator *signals.Generator, cache *signals.ParameterCache, ledger *signals.DailyAlertLedger, archive *history.Archive, st store.Store, bus *events.Bus, logger zerolog.Logger) *Engine {
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = 5 * time.Second
	}
	if cfg.BoardSize <= 0 {
		cfg.BoardSize = 8
	}
	if cfg.MaxSignalAge <= 0 {
		cfg.MaxSignalAge = 2 * time.Hour
	}

	return &Engine{
		cfg:       cfg,
		client:    client,
		generator: generator,
		cache:     cache,
		ledger:    ledger,
		archive:   archive,
		store:     st,
		bus:       bus,
		logger:    logger.With().Str("component", "lifecycle_engine").Logger(),
		now:       time.Now,
		status:    StatusNoSetups,
		stopChan:  make(chan struct{}),
		doneChan:  make(chan struct{}),
	}
}

// LoadState restores the board, history and daily ledger from the durable
// store. Missing or unreadable state is treated as empty.
func (e *Engine) LoadState(ctx context.Context) {
	var board []signals.ActiveSignal
	if err := e.store.GetJSON(ctx, keyActiveBoard, &board); err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			e.logger.Warn().Err(err).Msg("could not restore active board, starting empty")
		}
	} else {
		e.mu.Lock()
		e.board = board
		e.mu.Unlock()
		// Re-seed the parameter cache so restored signals are not regenerated.
		for _, sig := range board {
			e.cache.Put(sig.Parameters)
		}
		e.logger.Info().Int("signals", len(board)).Msg("active board restored")
	}

	var records []signals.HistoricalSignal
	if err := e.store.GetJSON(ctx, keyHistory, &records); err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			e.logger.Warn().Err(err).Msg("could not restore history, starting empty")
		}
	} else {
		e.archive.Restore(records)
		e.logger.Info().Int("records", len(records)).Msg("history restored")
	}

	var ledgerState signals.LedgerState
	if err := e.store.GetJSON(ctx, keyDailyAlerts, &ledgerState); err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			e.logger.Warn().Err(err).Msg("could not restore daily ledger, starting empty")
		}
	} else {
		e.ledger.Restore(ledgerState)
	}
}

// Start launches the tick loop. An immediate first tick runs before the
// interval timer takes over.
func (e *Engine) Start(ctx context.Context) {
	go e.run(ctx)
}

func (e *Engine) run(ctx context.Context) {
	defer close(e.doneChan)

	e.logger.Info().
		Dur("interval", e.cfg.TickInterval).
		Int("board_size", e.cfg.BoardSize).
		Msg("lifecycle engine started")

	e.tick(ctx)

	ticker := time.NewTicker(e.cfg.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-e.stopChan:
			e.logger.Info().Msg("lifecycle engine stopped")
			return
		case <-ctx.Done():
			e.logger.Info().Msg("lifecycle engine context cancelled")
			return
		case <-ticker.C:
			e.tick(ctx)
		}
	}
}

// Stop terminates the tick loop and waits for the in-flight tick to finish.
func (e *Engine) Stop() {
	e.stopOnce.Do(func() { close(e.stopChan) })
	<-e.doneChan
}

// Board returns a copy of the current active board, newest first.
func (e *Engine) Board() []signals.ActiveSignal {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]signals.ActiveSignal, len(e.board))
	copy(out, e.board)
	return out
}

// Status returns the current engine condition.
func (e *Engine) Status() Status {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.status
}

// Market returns the latest headline market data.
func (e *Engine) Market() MarketOverview {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.market
}

// LastUpdated returns the completion time of the most recent tick.
func (e *Engine) LastUpdated() time.Time {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.lastUpdated
}

type tickerData struct {
	price  float64
	change float64
	volume float64
}

// tick runs one full lifecycle pass. Price-dependent rules are skipped when
// the ticker snapshot cannot be fetched; the age limit applies regardless.
func (e *Engine) tick(ctx context.Context) {
	now := e.now()

	var priceMap map[string]tickerData
	var tickers []binance.Ticker24hr
	degraded := false

	tickers, err := e.client.Get24hrTickers(ctx)
	if err != nil {
		degraded = true
		e.logger.Warn().Err(err).Msg("ticker snapshot failed, running degraded tick")
		e.bus.PublishError("lifecycle_engine", err)
	} else {
		priceMap = make(map[string]tickerData, len(tickers))
		for _, t := range tickers {
			priceMap[t.Symbol] = tickerData{price: t.LastPrice, change: t.PriceChangePercent, volume: t.QuoteVolume}
		}
		e.updateMarketOverview(ctx, priceMap)
	}

	board := e.Board()
	var kept []signals.ActiveSignal
	historyChanged := false

	for _, sig := range board {
		// Age limit runs unconditionally, even with no market data.
		if now.Sub(sig.Timestamp) > e.cfg.MaxSignalAge {
			e.cache.Invalidate(sig.ID)
			e.logger.Info().Str("symbol", sig.ID).Msg("signal evicted by time limit")
			continue
		}

		td, ok := priceMap[sig.ID]
		if !ok {
			kept = append(kept, sig)
			continue
		}

		sig.Price = td.price
		sig.Change24h = td.change
		sig.QuoteVolume = td.volume
		price := td.price

		lossHit := (sig.Direction == signals.DirectionLong && price <= sig.StopLoss) ||
			(sig.Direction == signals.DirectionShort && price >= sig.StopLoss)

		newHit := false
		for i := 0; i < signals.TakeProfitCount; i++ {
			if sig.TPsHit[i] {
				continue
			}
			reached := (sig.Direction == signals.DirectionLong && price >= sig.TakeProfits[i]) ||
				(sig.Direction == signals.DirectionShort && price <= sig.TakeProfits[i])
			if reached {
				sig.TPsHit[i] = true
				newHit = true
			}
		}

		// A full ladder fill wins even if the stop was also crossed this tick.
		var status signals.Status
		switch {
		case sig.TPsHit[signals.TakeProfitCount-1]:
			status = signals.StatusWin
		case lossHit:
			status = signals.StatusLoss
		}

		if status != "" {
			e.cache.Invalidate(sig.ID)
			resolved := e.resolve(sig, status, now)
			e.archive.RecordTerminal(resolved)
			e.bus.PublishSignalResolved(sig.ID, string(status), resolved.ResultPercent)
			historyChanged = true
			continue
		}

		if newHit || sig.HighestTPHit() >= 0 {
			if snapshot, ok := e.partialSnapshot(sig, now); ok {
				if e.archive.RecordPartial(snapshot) {
					historyChanged = true
				}
			}
		}

		kept = append(kept, sig)
	}

	if historyChanged {
		e.persist(ctx, keyHistory, e.archive.Snapshot())
	}

	if !degraded {
		needed := e.cfg.BoardSize - len(kept)
		if needed > 0 {
			onBoard := make(map[string]struct{}, len(kept))
			for _, sig := range kept {
				onBoard[sig.ID] = struct{}{}
			}
			exclude := func(symbol string) bool {
				if _, ok := onBoard[symbol]; ok {
					return true
				}
				return e.ledger.Has(symbol)
			}

			fresh, err := e.generator.Generate(ctx, needed, exclude, tickers)
			if err != nil {
				e.logger.Warn().Err(err).Msg("replenishment failed")
			}
			for _, sig := range fresh {
				// Ledger write precedes board admission so a crash between
				// the two cannot re-alert the symbol today.
				e.ledger.Record(sig.ID)
				kept = append(kept, sig)
			}
			if len(fresh) > 0 {
				e.persist(ctx, keyDailyAlerts, e.ledger.Snapshot())
				e.logger.Info().Int("added", len(fresh)).Msg("board replenished")
			}
		}
	}

	sort.Slice(kept, func(i, j int) bool {
		return kept[i].Timestamp.After(kept[j].Timestamp)
	})

	status := StatusOK
	if degraded {
		status = StatusDegraded
	} else if len(kept) == 0 {
		status = StatusNoSetups
	}

	e.mu.Lock()
	e.board = kept
	e.status = status
	e.lastUpdated = now
	e.mu.Unlock()

	e.persist(ctx, keyActiveBoard, kept)
	e.bus.PublishBoardUpdate(len(kept), string(status))
}

// resolve builds the terminal history record for a WIN or LOSS.
func (e *Engine) resolve(sig signals.ActiveSignal, status signals.Status, now time.Time) signals.HistoricalSignal {
	entry := sig.EntryMid()

	var exit float64
	if status == signals.StatusLoss {
		exit = sig.StopLoss
	} else {
		exit = sig.TakeProfits[signals.TakeProfitCount-1]
	}

	resolvedAt := now
	return signals.HistoricalSignal{
		ActiveSignal:  sig,
		Status:        status,
		ResultPercent: favorablePercent(sig.Direction, entry, exit),
		ResolvedAt:    &resolvedAt,
	}
}

// partialSnapshot builds the PARTIAL_WIN record for the highest target hit.
func (e *Engine) partialSnapshot(sig signals.ActiveSignal, now time.Time) (signals.HistoricalSignal, bool) {
	highest := sig.HighestTPHit()
	if highest < 0 {
		return signals.HistoricalSignal{}, false
	}

	entry := sig.EntryMid()
	resolvedAt := now
	return signals.HistoricalSignal{
		ActiveSignal:  sig,
		Status:        signals.StatusPartialWin,
		ResultPercent: favorablePercent(sig.Direction, entry, sig.TakeProfits[highest]),
		ResolvedAt:    &resolvedAt,
	}, true
}

// favorablePercent is the raw price move from entry to exit, signed in the
// trade's favorable direction. Leverage is never applied.
func favorablePercent(direction signals.Direction, entry, exit float64) float64 {
	if entry == 0 {
		return 0
	}
	if direction == signals.DirectionLong {
		return (exit - entry) / entry * 100
	}
	return (entry - exit) / entry * 100
}

// updateMarketOverview refreshes the BTC headline from the futures snapshot
// and the USDT/BRL rate from the spot API. Both are best-effort.
func (e *Engine) updateMarketOverview(ctx context.Context, priceMap map[string]tickerData) {
	e.mu.Lock()
	if btc, ok := priceMap["BTCUSDT"]; ok {
		e.market.BTCPrice = btc.price
		e.market.BTCChange24h = btc.change
	}
	e.mu.Unlock()

	spot, err := e.client.GetSpotTicker(ctx, "USDTBRL")
	if err != nil {
		e.logger.Debug().Err(err).Msg("usdt/brl spot ticker unavailable")
		return
	}

	e.mu.Lock()
	e.market.USDTBRLPrice = spot.LastPrice
	e.market.USDTBRLChange = spot.PriceChangePercent
	e.mu.Unlock()
}

// persist writes a JSON document, logging failures. The engine keeps running
// on in-memory state when the store is down.
func (e *Engine) persist(ctx context.Context, key string, value interface{}) {
	if err := e.store.SetJSON(ctx, key, value); err != nil {
		e.logger.Warn().Err(err).Str("key", key).Msg("state persistence failed")
	}
}
