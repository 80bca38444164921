// Package sentiment derives an hourly altcoin market-breadth verdict from
// short-term candle direction across the highest-volume USDT pairs.
package sentiment

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"futures-signal-dashboard/internal/binance"
	"futures-signal-dashboard/internal/events"
)

// Verdict is the aggregate market direction.
type Verdict string

const (
	VerdictBullish Verdict = "BULLISH"
	VerdictBearish Verdict = "BEARISH"
	VerdictNeutral Verdict = "NEUTRAL"
)

const (
	topAltcoinCount = 30
	candleInterval  = "15m"
	candleCount     = 4
)

// Snapshot is the published sentiment state.
type Snapshot struct {
	Verdict   Verdict   `json:"verdict"`
	Bullish   int       `json:"bullish"`
	Bearish   int       `json:"bearish"`
	Sampled   int       `json:"sampled"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Service refreshes market sentiment on a fixed interval, independent of the
// signal tick. Individual symbol fetch failures are tolerated; the verdict
// is computed from whatever subset succeeded.
type Service struct {
	client   binance.MarketData
	bus      *events.Bus
	logger   zerolog.Logger
	interval time.Duration
	workers  int

	mu      sync.RWMutex
	current Snapshot

	stopChan chan struct{}
	doneChan chan struct{}
	stopOnce sync.Once
}

// NewService builds a sentiment service. interval defaults to one hour,
// workers to 8.
func NewService(client binance.MarketData, bus *events.Bus, interval time.Duration, workers int, logger zerolog.Logger) *Service {
	if interval <= 0 {
		interval = time.Hour
	}
	if workers <= 0 {
		workers = 8
	}
	return &Service{
		client:   client,
		bus:      bus,
		logger:   logger.With().Str("component", "sentiment").Logger(),
		interval: interval,
		workers:  workers,
		current:  Snapshot{Verdict: VerdictNeutral},
		stopChan: make(chan struct{}),
		doneChan: make(chan struct{}),
	}
}

// Start launches the refresh loop with an immediate first pass.
func (s *Service) Start(ctx context.Context) {
	go func() {
		defer close(s.doneChan)

		s.refresh(ctx)

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-s.stopChan:
				return
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.refresh(ctx)
			}
		}
	}()
}

// Stop terminates the refresh loop.
func (s *Service) Stop() {
	s.stopOnce.Do(func() { close(s.stopChan) })
	<-s.doneChan
}

// Current returns the latest snapshot.
func (s *Service) Current() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

func (s *Service) refresh(ctx context.Context) {
	snapshot, err := s.Compute(ctx)
	if err != nil {
		// A total upstream failure keeps the previous verdict; the board
		// tick has its own degraded handling.
		s.logger.Warn().Err(err).Msg("sentiment refresh failed")
		return
	}

	s.mu.Lock()
	s.current = snapshot
	s.mu.Unlock()

	s.bus.PublishSentimentUpdate(string(snapshot.Verdict), snapshot.Bullish, snapshot.Bearish)
	s.logger.Info().
		Str("verdict", string(snapshot.Verdict)).
		Int("bullish", snapshot.Bullish).
		Int("bearish", snapshot.Bearish).
		Int("sampled", snapshot.Sampled).
		Msg("market sentiment refreshed")
}

// Compute runs one full sentiment pass: the top altcoins by quote volume
// (BTC and ETH excluded) each contribute one vote from the direction of
// their last hour of 15m candles.
func (s *Service) Compute(ctx context.Context) (Snapshot, error) {
	tickers, err := s.client.Get24hrTickers(ctx)
	if err != nil {
		return Snapshot{}, err
	}

	var altcoins []binance.Ticker24hr
	for _, t := range tickers {
		if !strings.HasSuffix(t.Symbol, "USDT") {
			continue
		}
		if t.Symbol == "BTCUSDT" || t.Symbol == "ETHUSDT" {
			continue
		}
		altcoins = append(altcoins, t)
	}
	sort.Slice(altcoins, func(i, j int) bool {
		return altcoins[i].QuoteVolume > altcoins[j].QuoteVolume
	})
	if len(altcoins) > topAltcoinCount {
		altcoins = altcoins[:topAltcoinCount]
	}

	snapshot := Snapshot{Verdict: VerdictNeutral, UpdatedAt: time.Now()}
	if len(altcoins) == 0 {
		return snapshot, nil
	}

	jobs := make(chan string)
	var mu sync.Mutex
	var wg sync.WaitGroup

	for i := 0; i < s.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for symbol := range jobs {
				klines, err := s.client.GetKlines(ctx, symbol, candleInterval, candleCount)
				if err != nil || len(klines) == 0 {
					continue
				}
				open := klines[0].Open
				close := klines[len(klines)-1].Close

				mu.Lock()
				snapshot.Sampled++
				if close > open {
					snapshot.Bullish++
				} else if close < open {
					snapshot.Bearish++
				}
				mu.Unlock()
			}
		}()
	}

	for _, t := range altcoins {
		jobs <- t.Symbol
	}
	close(jobs)
	wg.Wait()

	if snapshot.Bullish > snapshot.Bearish {
		snapshot.Verdict = VerdictBullish
	} else if snapshot.Bearish > snapshot.Bullish {
		snapshot.Verdict = VerdictBearish
	}
	return snapshot, nil
}
