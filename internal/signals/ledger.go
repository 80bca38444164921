package signals

import (
	"sync"
	"time"
)

// LedgerState is the persisted form of the daily alert ledger.
type LedgerState struct {
	Date    string   `json:"date"`
	Symbols []string `json:"symbols"`
}

// DailyAlertLedger tracks which symbols have already been alerted today so a
// symbol is surfaced at most once per UTC day, even across restarts. The
// ledger resets itself when the UTC date rolls over.
type DailyAlertLedger struct {
	mu      sync.Mutex
	date    string
	symbols map[string]struct{}
	now     func() time.Time
}

// NewDailyAlertLedger builds a ledger using the given clock, or time.Now
// when nil.
func NewDailyAlertLedger(now func() time.Time) *DailyAlertLedger {
	if now == nil {
		now = time.Now
	}
	l := &DailyAlertLedger{
		symbols: make(map[string]struct{}),
		now:     now,
	}
	l.date = l.today()
	return l
}

func (l *DailyAlertLedger) today() string {
	return l.now().UTC().Format("2006-01-02")
}

// rollover resets the ledger when the UTC date has changed. Caller holds the
// lock.
func (l *DailyAlertLedger) rollover() {
	if today := l.today(); today != l.date {
		l.date = today
		l.symbols = make(map[string]struct{})
	}
}

// Has reports whether the symbol was already alerted today.
func (l *DailyAlertLedger) Has(symbol string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.rollover()
	_, ok := l.symbols[symbol]
	return ok
}

// Record marks the symbol as alerted today. It returns false when the symbol
// was already present.
func (l *DailyAlertLedger) Record(symbol string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.rollover()
	if _, ok := l.symbols[symbol]; ok {
		return false
	}
	l.symbols[symbol] = struct{}{}
	return true
}

// Symbols returns today's alerted symbols.
func (l *DailyAlertLedger) Symbols() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.rollover()
	out := make([]string, 0, len(l.symbols))
	for s := range l.symbols {
		out = append(out, s)
	}
	return out
}

// Snapshot returns the persistable state of the ledger.
func (l *DailyAlertLedger) Snapshot() LedgerState {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.rollover()
	state := LedgerState{Date: l.date, Symbols: make([]string, 0, len(l.symbols))}
	for s := range l.symbols {
		state.Symbols = append(state.Symbols, s)
	}
	return state
}

// Restore loads a persisted state. A state from a previous UTC day is
// discarded rather than merged.
func (l *DailyAlertLedger) Restore(state LedgerState) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if state.Date != l.today() {
		return
	}
	l.date = state.Date
	l.symbols = make(map[string]struct{}, len(state.Symbols))
	for _, s := range state.Symbols {
		l.symbols[s] = struct{}{}
	}
}
