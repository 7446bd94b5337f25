package normalize

import "testing"

func TestCleanMerchant(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"REMITLY", "Remitly"},
		{"AMZN", "Amazon"},
		{"AMZN MKTP", "Amazon"},
		{"WM SUPERCENTER", "Walmart"},
		{"TARGET #1234", "Target"},
		{"SHELL 00428", "Shell"},
		{"SQ *BLUE BOTTLE COFFEE", "Blue Bottle Coffee"},
		{"TST* LOCAL BISTRO", "Local Bistro"},
		{"Starbucks", "Starbucks"},
		{"McDonald's", "McDonald's"},
		{"MCDONALDS", "McDonald's"},
		{"  Netflix  ", "Netflix"},
		{"", ""},
		{"#99999", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := CleanMerchant(tt.input)
			if got != tt.want {
				t.Errorf("CleanMerchant(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestInferInstitution(t *testing.T) {
	tests := []struct {
		sender  string
		subject string
		want    string
	}{
		{"alerts@chase.com", "Card alert", "Chase"},
		{"no-reply@wellsfargo.com", "Deposit posted", "Wells Fargo"},
		{"service@paypal.com", "You sent a payment", "PayPal"},
		{"noreply@bofa.com", "Statement ready", "Bank of America"},
		{"info@shop.example", "american express charge", "American Express"},
		{"noreply@example.com", "Order confirmation", "Unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.sender, func(t *testing.T) {
			got := InferInstitution(tt.sender, tt.subject)
			if got != tt.want {
				t.Errorf("InferInstitution(%q, %q) = %q, want %q", tt.sender, tt.subject, got, tt.want)
			}
		})
	}
}
