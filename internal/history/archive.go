// Package history stores resolved and partially-resolved signals and derives
// the performance report served to the dashboard.
package history

import (
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"futures-signal-dashboard/internal/signals"
)

// Filter selects the reporting period.
type Filter string

const (
	FilterAll    Filter = "all"
	FilterDay    Filter = "day"
	FilterWeek   Filter = "week"
	FilterMonth  Filter = "month"
	FilterYear   Filter = "year"
	FilterCustom Filter = "custom"
)

// ValidFilter reports whether f names a known reporting period.
func ValidFilter(f Filter) bool {
	switch f {
	case FilterAll, FilterDay, FilterWeek, FilterMonth, FilterYear, FilterCustom:
		return true
	}
	return false
}

// Summary aggregates completed (WIN/LOSS) trades within the filtered period.
type Summary struct {
	TotalPnl    float64                   `json:"totalPnl"`
	WinRate     float64                   `json:"winRate"`
	TotalTrades int                       `json:"totalTrades"`
	BestTrade   *signals.HistoricalSignal `json:"bestTrade"`
	Wins        int                       `json:"wins"`
	Losses      int                       `json:"losses"`
}

// DayGroup is one UTC calendar day's worth of records.
type DayGroup struct {
	Signals  []signals.HistoricalSignal `json:"signals"`
	DailyPnl float64                    `json:"dailyPnl"`
	Wins     int                        `json:"wins"`
	Losses   int                        `json:"losses"`
}

// Report is the derived performance view for one filter period.
type Report struct {
	Summary      Summary              `json:"summary"`
	GroupedByDay map[string]*DayGroup `json:"groupedByDay"`
}

// Archive holds at most one record per signal instance (symbol plus creation
// timestamp). Terminal resolutions always overwrite an earlier partial
// record; partial snapshots are written only when the hit-vector changed.
type Archive struct {
	mu      sync.Mutex
	records map[string]signals.HistoricalSignal
	logger  zerolog.Logger
}

func NewArchive(logger zerolog.Logger) *Archive {
	return &Archive{
		records: make(map[string]signals.HistoricalSignal),
		logger:  logger.With().Str("component", "history_archive").Logger(),
	}
}

// RecordTerminal stores a WIN or LOSS resolution, replacing any earlier
// partial record for the same signal instance.
func (a *Archive) RecordTerminal(sig signals.HistoricalSignal) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.records[sig.Key()] = sig
	a.logger.Info().
		Str("symbol", sig.ID).
		Str("status", string(sig.Status)).
		Float64("result_percent", sig.ResultPercent).
		Msg("terminal resolution archived")
}

// RecordPartial stores a PARTIAL_WIN snapshot. It returns false, writing
// nothing, when the record would be identical to the stored one (same
// hit-vector) or when a terminal record already exists for the instance.
func (a *Archive) RecordPartial(sig signals.HistoricalSignal) bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	key := sig.Key()
	if existing, ok := a.records[key]; ok {
		if existing.Status == signals.StatusWin || existing.Status == signals.StatusLoss {
			return false
		}
		if existing.TPsHit == sig.TPsHit {
			return false
		}
	}

	a.records[key] = sig
	a.logger.Debug().
		Str("symbol", sig.ID).
		Int("highest_tp", sig.HighestTPHit()).
		Msg("partial snapshot archived")
	return true
}

// Snapshot returns all records for persistence.
func (a *Archive) Snapshot() []signals.HistoricalSignal {
	a.mu.Lock()
	defer a.mu.Unlock()

	out := make([]signals.HistoricalSignal, 0, len(a.records))
	for _, sig := range a.records {
		out = append(out, sig)
	}
	return out
}

// Restore loads persisted records, replacing current contents.
func (a *Archive) Restore(records []signals.HistoricalSignal) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.records = make(map[string]signals.HistoricalSignal, len(records))
	for _, sig := range records {
		a.records[sig.Key()] = sig
	}
}

// referenceTime is the instant a record is bucketed and filtered by.
func referenceTime(sig signals.HistoricalSignal) time.Time {
	if sig.ResolvedAt != nil {
		return *sig.ResolvedAt
	}
	return sig.Timestamp
}

// Report derives the aggregate view for the period selected by filter. For
// FilterCustom, customDate selects one UTC calendar day. now anchors the
// relative periods.
func (a *Archive) Report(filter Filter, customDate time.Time, now time.Time) Report {
	a.mu.Lock()
	records := make([]signals.HistoricalSignal, 0, len(a.records))
	for _, sig := range a.records {
		records = append(records, sig)
	}
	a.mu.Unlock()

	nowUTC := now.UTC()
	today := time.Date(nowUTC.Year(), nowUTC.Month(), nowUTC.Day(), 0, 0, 0, 0, time.UTC)
	// Weeks start on Sunday.
	startOfWeek := today.AddDate(0, 0, -int(nowUTC.Weekday()))
	startOfMonth := time.Date(nowUTC.Year(), nowUTC.Month(), 1, 0, 0, 0, 0, time.UTC)
	startOfYear := time.Date(nowUTC.Year(), time.January, 1, 0, 0, 0, 0, time.UTC)

	var filtered []signals.HistoricalSignal
	for _, sig := range records {
		ref := referenceTime(sig).UTC()

		keep := false
		switch filter {
		case FilterDay:
			keep = !ref.Before(today)
		case FilterWeek:
			keep = !ref.Before(startOfWeek)
		case FilterMonth:
			keep = !ref.Before(startOfMonth)
		case FilterYear:
			keep = !ref.Before(startOfYear)
		case FilterCustom:
			if customDate.IsZero() {
				break
			}
			c := customDate.UTC()
			dayStart := time.Date(c.Year(), c.Month(), c.Day(), 0, 0, 0, 0, time.UTC)
			dayEnd := dayStart.AddDate(0, 0, 1)
			keep = !ref.Before(dayStart) && ref.Before(dayEnd)
		default:
			keep = true
		}
		if keep {
			filtered = append(filtered, sig)
		}
	}

	report := Report{GroupedByDay: make(map[string]*DayGroup)}
	if len(filtered) == 0 {
		return report
	}

	var completed []signals.HistoricalSignal
	for _, sig := range filtered {
		if sig.Status == signals.StatusWin || sig.Status == signals.StatusLoss {
			completed = append(completed, sig)
		}
	}

	for _, sig := range completed {
		report.Summary.TotalPnl += sig.ResultPercent
		if sig.Status == signals.StatusWin {
			report.Summary.Wins++
		} else {
			report.Summary.Losses++
		}
	}
	report.Summary.TotalTrades = len(completed)
	if report.Summary.TotalTrades > 0 {
		report.Summary.WinRate = float64(report.Summary.Wins) / float64(report.Summary.TotalTrades) * 100
	}
	for i := range completed {
		if report.Summary.BestTrade == nil || completed[i].ResultPercent > report.Summary.BestTrade.ResultPercent {
			report.Summary.BestTrade = &completed[i]
		}
	}

	for _, sig := range filtered {
		key := referenceTime(sig).UTC().Format("2006-01-02")
		group, ok := report.GroupedByDay[key]
		if !ok {
			group = &DayGroup{}
			report.GroupedByDay[key] = group
		}
		group.Signals = append(group.Signals, sig)

		switch sig.Status {
		case signals.StatusWin:
			group.DailyPnl += sig.ResultPercent
			group.Wins++
		case signals.StatusLoss:
			group.DailyPnl += sig.ResultPercent
			group.Losses++
		case signals.StatusPartialWin:
			group.DailyPnl += sig.ResultPercent
		}
	}

	for _, group := range report.GroupedByDay {
		sort.Slice(group.Signals, func(i, j int) bool {
			return referenceTime(group.Signals[i]).After(referenceTime(group.Signals[j]))
		})
	}

	return report
}
