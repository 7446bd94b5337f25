package normalize

import (
	"regexp"
	"strings"
)

// merchantAliases maps common statement abbreviations to full brand names.
// Keys are matched case-insensitively against the cleaned merchant string.
// Read-only, loaded once.
var merchantAliases = map[string]string{
	"amzn":           "Amazon",
	"amzn mktp":      "Amazon",
	"amazon mktp":    "Amazon",
	"wm supercenter": "Walmart",
	"wal-mart":       "Walmart",
	"mcdonalds":      "McDonald's",
	"sbux":           "Starbucks",
	"ubr":            "Uber",
	"uber trip":      "Uber",
	"uber eats":      "Uber Eats",
	"doordash":       "DoorDash",
	"paypal":         "PayPal",
	"7-eleven":       "7-Eleven",
}

var (
	// Trailing store / terminal codes: "TARGET #1234", "SHELL 0042".
	trailingStoreCode = regexp.MustCompile(`\s+#?\d{3,}$`)
	// Processor prefixes: "SQ *COFFEE CO", "TST* BISTRO", "PAYPAL *STEAM".
	processorPrefix = regexp.MustCompile(`^(?i)(SQ|TST|PY|PP|PAYPAL)\s?\*\s?`)
)

// CleanMerchant normalizes a raw statement merchant string: processor
// prefixes and trailing store codes stripped, shouting case folded to title
// case, aliases applied.
func CleanMerchant(raw string) string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return ""
	}

	s = processorPrefix.ReplaceAllString(s, "")
	s = trailingStoreCode.ReplaceAllString(s, "")
	s = strings.TrimSpace(s)
	if !hasLetter(s) {
		// Pure digits/symbols ("#99999") carry no merchant identity.
		return ""
	}

	if alias, ok := merchantAliases[strings.ToLower(s)]; ok {
		return alias
	}

	if isShouting(s) {
		s = titleCase(s)
		// Alias keys are lowercase; a title-cased match still counts.
		if alias, ok := merchantAliases[strings.ToLower(s)]; ok {
			return alias
		}
	}

	return s
}

// isShouting reports whether the string has letters and none of them are
// lowercase. Statement descriptors are typically all-caps.
func isShouting(s string) bool {
	for _, r := range s {
		if r >= 'a' && r <= 'z' {
			return false
		}
	}
	return hasLetter(s)
}

func hasLetter(s string) bool {
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') {
			return true
		}
	}
	return false
}

func titleCase(s string) string {
	words := strings.Fields(strings.ToLower(s))
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
