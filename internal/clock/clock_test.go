package clock

import (
	"testing"
	"time"
)

func TestManualSleepAdvancesAndRecords(t *testing.T) {
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	clk := NewManual(start)

	clk.Sleep(50 * time.Millisecond)
	clk.Sleep(100 * time.Millisecond)

	if got := clk.Now(); !got.Equal(start.Add(150 * time.Millisecond)) {
		t.Fatalf("expected now to advance by slept total, got %v", got)
	}
	slept := clk.Slept()
	if len(slept) != 2 || slept[0] != 50*time.Millisecond || slept[1] != 100*time.Millisecond {
		t.Fatalf("unexpected sleep record: %v", slept)
	}
}

func TestRealNowIsUTC(t *testing.T) {
	if loc := (Real{}).Now().Location(); loc != time.UTC {
		t.Fatalf("expected UTC, got %v", loc)
	}
}
