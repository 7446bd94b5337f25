package normalize

import "strings"

// institutionKeywords maps sender/subject substrings to institution names.
// First match wins, checked in declaration order for the multi-word entries
// that would otherwise be shadowed. Read-only, loaded once.
var institutionKeywords = []struct {
	keyword string
	name    string
}{
	{"bank of america", "Bank of America"},
	{"bofa", "Bank of America"},
	{"wells fargo", "Wells Fargo"},
	{"american express", "American Express"},
	{"amex", "American Express"},
	{"capital one", "Capital One"},
	{"chase", "Chase"},
	{"citi", "Citi"},
	{"discover", "Discover"},
	{"barclays", "Barclays"},
	{"hsbc", "HSBC"},
	{"monzo", "Monzo"},
	{"revolut", "Revolut"},
	{"hdfc", "HDFC Bank"},
	{"icici", "ICICI Bank"},
	{"axis bank", "Axis Bank"},
	{"sbi", "SBI"},
	{"paypal", "PayPal"},
	{"venmo", "Venmo"},
	{"cash app", "Cash App"},
	{"wise", "Wise"},
}

// InferInstitution returns the institution for a message when the
// extraction left it blank, matching the sender address and subject against
// the keyword table. Unmatched messages get "Unknown".
func InferInstitution(sender, subject string) string {
	haystack := strings.ToLower(sender + " " + subject)
	for _, entry := range institutionKeywords {
		if strings.Contains(haystack, entry.keyword) {
			return entry.name
		}
	}
	return "Unknown"
}
