// Package assetinfo looks up coin metadata (supply, ATH, market cap) from
// the CoinGecko API, with in-process caching of both the symbol-to-id map
// and individual lookups.
package assetinfo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

const defaultBaseURL = "https://api.coingecko.com/api/v3"

// AssetInfo is the metadata surfaced on a signal's detail view.
type AssetInfo struct {
	Symbol      string  `json:"symbol"`
	Name        string  `json:"name"`
	ATH         float64 `json:"ath"`
	ATL         float64 `json:"atl"`
	MaxSupply   string  `json:"maxSupply"`
	TotalSupply string  `json:"totalSupply"`
	MarketCap   float64 `json:"marketCap"`
	LaunchDate  string  `json:"launchDate"`
	Category    string  `json:"category"`
	Website     string  `json:"website"`
}

// Service resolves base-asset symbols to CoinGecko coin ids and fetches
// their metadata. The id map is loaded once and kept for the process
// lifetime; lookups are cached per symbol.
type Service struct {
	baseURL    string
	httpClient *http.Client
	logger     zerolog.Logger

	mu     sync.Mutex
	idMap  map[string]string
	byName map[string]AssetInfo
}

func NewService(logger zerolog.Logger) *Service {
	return &Service{
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		logger:     logger.With().Str("component", "asset_info").Logger(),
		byName:     make(map[string]AssetInfo),
	}
}

type coinListEntry struct {
	ID     string `json:"id"`
	Symbol string `json:"symbol"`
	Name   string `json:"name"`
}

type coinDetail struct {
	Symbol     string `json:"symbol"`
	Name       string `json:"name"`
	MarketData struct {
		ATH         map[string]float64 `json:"ath"`
		ATL         map[string]float64 `json:"atl"`
		MaxSupply   *float64           `json:"max_supply"`
		TotalSupply *float64           `json:"total_supply"`
		MarketCap   map[string]float64 `json:"market_cap"`
	} `json:"market_data"`
	GenesisDate *string  `json:"genesis_date"`
	Categories  []string `json:"categories"`
	Links       struct {
		Homepage []string `json:"homepage"`
	} `json:"links"`
}

// Lookup returns metadata for a base asset symbol such as "BTC".
func (s *Service) Lookup(ctx context.Context, symbol string) (AssetInfo, error) {
	key := strings.ToLower(symbol)

	s.mu.Lock()
	cached, ok := s.byName[key]
	s.mu.Unlock()
	if ok {
		return cached, nil
	}

	id, err := s.coinID(ctx, key)
	if err != nil {
		return AssetInfo{}, err
	}

	var detail coinDetail
	if err := s.get(ctx, "/coins/"+id, &detail); err != nil {
		return AssetInfo{}, fmt.Errorf("fetching details for %s: %w", symbol, err)
	}

	info := AssetInfo{
		Symbol:      strings.ToUpper(detail.Symbol),
		Name:        detail.Name,
		ATH:         detail.MarketData.ATH["usd"],
		ATL:         detail.MarketData.ATL["usd"],
		MaxSupply:   formatSupply(detail.MarketData.MaxSupply),
		TotalSupply: formatSupply(detail.MarketData.TotalSupply),
		MarketCap:   detail.MarketData.MarketCap["usd"],
		LaunchDate:  "N/A",
		Category:    "N/A",
	}
	if detail.GenesisDate != nil && *detail.GenesisDate != "" {
		info.LaunchDate = *detail.GenesisDate
	}
	var categories []string
	for _, c := range detail.Categories {
		if c != "" {
			categories = append(categories, c)
		}
	}
	if len(categories) > 0 {
		info.Category = strings.Join(categories, ", ")
	}
	for _, h := range detail.Links.Homepage {
		if h != "" {
			info.Website = h
			break
		}
	}

	s.mu.Lock()
	s.byName[key] = info
	s.mu.Unlock()

	return info, nil
}

// coinID resolves a lowercase symbol to its CoinGecko id, loading the full
// coin list on first use. Duplicate symbols keep the first listed id.
func (s *Service) coinID(ctx context.Context, symbol string) (string, error) {
	s.mu.Lock()
	idMap := s.idMap
	s.mu.Unlock()

	if idMap == nil {
		var coins []coinListEntry
		if err := s.get(ctx, "/coins/list", &coins); err != nil {
			return "", fmt.Errorf("loading coin list: %w", err)
		}

		idMap = make(map[string]string, len(coins))
		for _, coin := range coins {
			sym := strings.ToLower(coin.Symbol)
			if _, exists := idMap[sym]; !exists {
				idMap[sym] = coin.ID
			}
		}

		s.mu.Lock()
		s.idMap = idMap
		s.mu.Unlock()
		s.logger.Info().Int("coins", len(idMap)).Msg("coin id map loaded")
	}

	id, ok := idMap[symbol]
	if !ok {
		return "", fmt.Errorf("unknown asset %q", symbol)
	}
	return id, nil
}

func (s *Service) get(ctx context.Context, path string, dest interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("requesting %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s returned status %d", path, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return fmt.Errorf("decoding %s: %w", path, err)
	}
	return nil
}

func formatSupply(v *float64) string {
	if v == nil {
		return "N/A"
	}
	return groupDigits(fmt.Sprintf("%.0f", *v))
}

// groupDigits inserts thousands separators into a plain integer string.
func groupDigits(s string) string {
	if len(s) <= 3 {
		return s
	}
	var b strings.Builder
	lead := len(s) % 3
	if lead > 0 {
		b.WriteString(s[:lead])
	}
	for i := lead; i < len(s); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(s[i : i+3])
	}
	return b.String()
}
