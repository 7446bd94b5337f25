package mailbox

import (
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestRetryDelaySchedule(t *testing.T) {
	want := []time.Duration{time.Second, 2 * time.Second, 4 * time.Second}
	if fetchAttempts != len(want)+1 {
		t.Fatalf("fetchAttempts = %d, want %d (initial attempt plus %d retries)",
			fetchAttempts, len(want)+1, len(want))
	}
	for attempt := 1; attempt < fetchAttempts; attempt++ {
		if got := retryDelay(attempt); got != want[attempt-1] {
			t.Errorf("retryDelay(%d) = %v, want %v", attempt, got, want[attempt-1])
		}
	}
}

func TestQuery(t *testing.T) {
	f := NewFetcher(nil, 90, 3000, zerolog.Nop())
	q := f.Query()

	if !strings.Contains(q, "newer_than:90d") {
		t.Errorf("query %q missing lookback window", q)
	}
	if !strings.Contains(q, "transaction OR ") {
		t.Errorf("query %q missing keyword disjunction", q)
	}
	if !strings.HasPrefix(q, "(") {
		t.Errorf("query %q keywords not grouped", q)
	}
}
