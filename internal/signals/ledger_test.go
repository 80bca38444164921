package signals

import (
	"testing"
	"time"
)

func TestLedgerRecordOncePerDay(t *testing.T) {
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	ledger := NewDailyAlertLedger(func() time.Time { return now })

	if !ledger.Record("BTCUSDT") {
		t.Fatal("first record should succeed")
	}
	if ledger.Record("BTCUSDT") {
		t.Error("second record of the same symbol should be rejected")
	}
	if !ledger.Has("BTCUSDT") {
		t.Error("recorded symbol should be present")
	}
	if ledger.Has("ETHUSDT") {
		t.Error("unrecorded symbol should be absent")
	}
}

func TestLedgerRolloverAtMidnightUTC(t *testing.T) {
	now := time.Date(2025, 3, 10, 23, 59, 0, 0, time.UTC)
	ledger := NewDailyAlertLedger(func() time.Time { return now })

	ledger.Record("BTCUSDT")

	now = time.Date(2025, 3, 11, 0, 1, 0, 0, time.UTC)

	if ledger.Has("BTCUSDT") {
		t.Error("ledger should reset after the UTC date rolls over")
	}
	if !ledger.Record("BTCUSDT") {
		t.Error("symbol should be recordable again on the new day")
	}
}

func TestLedgerSnapshotRestore(t *testing.T) {
	now := time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }

	ledger := NewDailyAlertLedger(clock)
	ledger.Record("BTCUSDT")
	ledger.Record("SOLUSDT")

	state := ledger.Snapshot()
	if state.Date != "2025-03-10" {
		t.Errorf("snapshot date = %q, want 2025-03-10", state.Date)
	}
	if len(state.Symbols) != 2 {
		t.Errorf("snapshot symbols = %v, want 2 entries", state.Symbols)
	}

	restored := NewDailyAlertLedger(clock)
	restored.Restore(state)
	if !restored.Has("BTCUSDT") || !restored.Has("SOLUSDT") {
		t.Error("restored ledger missing recorded symbols")
	}
}

func TestLedgerRestoreDiscardsStaleState(t *testing.T) {
	now := time.Date(2025, 3, 11, 8, 0, 0, 0, time.UTC)
	ledger := NewDailyAlertLedger(func() time.Time { return now })

	ledger.Restore(LedgerState{Date: "2025-03-10", Symbols: []string{"BTCUSDT"}})

	if ledger.Has("BTCUSDT") {
		t.Error("state from a previous day must not be restored")
	}
}
