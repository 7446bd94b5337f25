package normalize

import "testing"

func TestConvert_SameCurrencyIsIdentity(t *testing.T) {
	for _, amount := range []float64{0, 0.01, 33.15, 999999.99} {
		if got := Convert(amount, "USD", "USD"); got != amount {
			t.Errorf("Convert(%v, USD, USD) = %v", amount, got)
		}
		if got := Convert(amount, "eur", "EUR"); got != amount {
			t.Errorf("Convert(%v, eur, EUR) = %v", amount, got)
		}
	}
}

func TestConvert_ThroughRateTable(t *testing.T) {
	tests := []struct {
		amount   float64
		from, to string
		want     float64
	}{
		{100, "EUR", "USD", 109},
		{100, "GBP", "USD", 127},
		{1000, "INR", "USD", 12},
		{109, "USD", "EUR", 100},
		{100, "EUR", "GBP", 85.83},
	}

	for _, tt := range tests {
		got := Convert(tt.amount, tt.from, tt.to)
		if got != tt.want {
			t.Errorf("Convert(%v, %s, %s) = %v, want %v", tt.amount, tt.from, tt.to, got, tt.want)
		}
	}
}

func TestConvert_UnknownCurrencyUnchanged(t *testing.T) {
	if got := Convert(42, "ZZZ", "USD"); got != 42 {
		t.Errorf("unknown source: got %v, want 42", got)
	}
	if got := Convert(42, "USD", "ZZZ"); got != 42 {
		t.Errorf("unknown target: got %v, want 42", got)
	}
}

func TestKnownCurrency(t *testing.T) {
	if !KnownCurrency("usd") || !KnownCurrency(" EUR ") {
		t.Error("expected case/space-insensitive lookup")
	}
	if KnownCurrency("") || KnownCurrency("DOGE") {
		t.Error("unexpected currency accepted")
	}
}
