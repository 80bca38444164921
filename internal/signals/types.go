// Package signals holds the trading signal domain model, the setup
// generator and the supporting caches and ledgers that gate generation.
package signals

import "time"

// Direction of a futures setup.
type Direction string

const (
	DirectionLong  Direction = "LONG"
	DirectionShort Direction = "SHORT"
)

// Confidence grade assigned by the generator. VeryHigh requires momentum
// confirmation on top of the trend filter.
type Confidence string

const (
	ConfidenceHigh     Confidence = "High"
	ConfidenceVeryHigh Confidence = "Very High"
)

// Status of a signal that has left the active board.
type Status string

const (
	StatusWin        Status = "WIN"
	StatusLoss       Status = "LOSS"
	StatusPartialWin Status = "PARTIAL_WIN"
)

// TakeProfitCount is the number of laddered take-profit levels per signal.
const TakeProfitCount = 5

// Parameters is the immutable trade plan produced by the generator.
type Parameters struct {
	ID           string                  `json:"id"`
	Symbol       string                  `json:"symbol"`
	Pair         string                  `json:"pair"`
	Direction    Direction               `json:"direction"`
	Probability  int                     `json:"probability"`
	EntryZone    [2]float64              `json:"entryZone"`
	StopLoss     float64                 `json:"stopLoss"`
	TakeProfits  [TakeProfitCount]float64 `json:"takeProfits"`
	Confidence   Confidence              `json:"confidence"`
	RiskNotes    string                  `json:"riskNotes"`
	SafeLeverage int                     `json:"safeLeverage"`
	Timestamp    time.Time               `json:"timestamp"`
}

// ActiveSignal is a signal on the live board, enriched with market state
// refreshed on every tick.
type ActiveSignal struct {
	Parameters

	Price       float64                `json:"price"`
	Change24h   float64                `json:"change24h"`
	QuoteVolume float64                `json:"quoteVolume"`
	TPsHit      [TakeProfitCount]bool  `json:"tpsHit"`
}

// HistoricalSignal is a board signal after resolution, or a snapshot of a
// partially-filled one.
type HistoricalSignal struct {
	ActiveSignal

	Status        Status     `json:"status"`
	ResultPercent float64    `json:"resultPercent"`
	ResolvedAt    *time.Time `json:"resolvedAt,omitempty"`
}

// Key identifies a signal instance across the board and the archive. Two
// signals for the same symbol created at different times are distinct.
func (p Parameters) Key() string {
	return p.ID + "|" + p.Timestamp.UTC().Format(time.RFC3339Nano)
}

// EntryMid returns the midpoint of the entry zone, the reference price for
// result percentage calculations.
func (p Parameters) EntryMid() float64 {
	return (p.EntryZone[0] + p.EntryZone[1]) / 2
}

// HighestTPHit returns the index of the highest take-profit level reached,
// or -1 when none has been hit.
func (a ActiveSignal) HighestTPHit() int {
	for i := TakeProfitCount - 1; i >= 0; i-- {
		if a.TPsHit[i] {
			return i
		}
	}
	return -1
}
