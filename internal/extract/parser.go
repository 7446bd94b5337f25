package extract

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/dvloznov/mailspend/internal/domain"
)

// parseResponse turns raw model text into an Outcome for the message. Any
// structural problem becomes KindFailed; this function never returns an
// error because one bad model response must not abort the run.
func parseResponse(messageID, raw string) Outcome {
	clean := cleanModelJSON(raw)
	if clean == "" {
		return Failed(messageID, "empty response from model")
	}

	var envelope map[string]interface{}
	if err := json.Unmarshal([]byte(clean), &envelope); err != nil {
		return Failed(messageID, fmt.Sprintf("unmarshal response: %v", err))
	}

	isTx, ok := envelope["is_transaction"].(bool)
	if !ok {
		return Failed(messageID, "missing or non-boolean 'is_transaction'")
	}
	if !isTx {
		return NotTransaction(messageID)
	}

	txAny, ok := envelope["transactions"]
	if !ok {
		return Failed(messageID, "is_transaction true but 'transactions' missing")
	}
	txSlice, ok := txAny.([]interface{})
	if !ok {
		return Failed(messageID, fmt.Sprintf("'transactions' is %T, want array", txAny))
	}
	if len(txSlice) == 0 {
		return NotTransaction(messageID)
	}

	guesses := make([]domain.TransactionGuess, 0, len(txSlice))
	for i, item := range txSlice {
		obj, ok := item.(map[string]interface{})
		if !ok {
			return Failed(messageID, fmt.Sprintf("transaction %d is %T, want object", i, item))
		}
		guess, err := parseGuess(obj)
		if err != nil {
			return Failed(messageID, fmt.Sprintf("transaction %d: %v", i, err))
		}
		guesses = append(guesses, guess)
	}

	return Transactions(messageID, guesses)
}

// parseGuess maps one model transaction object onto a TransactionGuess.
// Only shape is checked here; value-level validation belongs to the
// normalizer.
func parseGuess(obj map[string]interface{}) (domain.TransactionGuess, error) {
	amount, err := getNumberField(obj, "amount")
	if err != nil {
		return domain.TransactionGuess{}, err
	}
	merchant, err := getStringField(obj, "merchant", true)
	if err != nil {
		return domain.TransactionGuess{}, err
	}
	date, err := getStringField(obj, "date", true)
	if err != nil {
		return domain.TransactionGuess{}, err
	}

	// Everything else is taken as-is; the normalizer defaults and coerces.
	currency, _ := getStringField(obj, "currency", false)
	category, _ := getStringField(obj, "category", false)
	timeStr, _ := getStringField(obj, "time", false)
	cardLast4, _ := getStringField(obj, "card_last4", false)
	accountLast4, _ := getStringField(obj, "account_last4", false)
	institution, _ := getStringField(obj, "institution", false)
	txType, _ := getStringField(obj, "transaction_type", false)
	description, _ := getStringField(obj, "description", false)
	location, _ := getStringField(obj, "location", false)

	confidence := -1.0 // out of range marks "absent" for the normalizer
	if v, err := getNumberField(obj, "confidence"); err == nil {
		confidence = v
	}

	return domain.TransactionGuess{
		Amount:          amount,
		Currency:        currency,
		Merchant:        merchant,
		Category:        category,
		Date:            date,
		Time:            timeStr,
		CardLast4:       cardLast4,
		AccountLast4:    accountLast4,
		Institution:     institution,
		TransactionType: txType,
		Description:     description,
		Location:        location,
		Confidence:      confidence,
	}, nil
}

func getStringField(m map[string]interface{}, key string, required bool) (string, error) {
	v, ok := m[key]
	if !ok || v == nil {
		if required {
			return "", fmt.Errorf("missing required field %q", key)
		}
		return "", nil
	}
	switch val := v.(type) {
	case string:
		s := strings.TrimSpace(val)
		if required && s == "" {
			return "", fmt.Errorf("required field %q is empty", key)
		}
		return s, nil
	default:
		return "", fmt.Errorf("field %q has type %T, want string", key, v)
	}
}

// getNumberField reads a numeric field, tolerating models that return the
// number as a decorated string ("$33.15", "1,299.00 INR").
func getNumberField(m map[string]interface{}, key string) (float64, error) {
	v, ok := m[key]
	if !ok || v == nil {
		return 0, fmt.Errorf("missing required field %q", key)
	}
	switch val := v.(type) {
	case float64:
		return val, nil
	case string:
		f, err := parseDecoratedNumber(val)
		if err != nil {
			return 0, fmt.Errorf("field %q: %w", key, err)
		}
		return f, nil
	default:
		return 0, fmt.Errorf("field %q has type %T, want number", key, v)
	}
}

// parseDecoratedNumber strips currency symbols, codes and separators before
// parsing, e.g. "$1,299.50" or "INR 850.00".
func parseDecoratedNumber(s string) (float64, error) {
	var b strings.Builder
	for _, r := range s {
		if (r >= '0' && r <= '9') || r == '.' || r == '-' {
			b.WriteRune(r)
		}
	}
	cleaned := b.String()
	if cleaned == "" {
		return 0, fmt.Errorf("no numeric content in %q", s)
	}
	f, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid number %q", s)
	}
	return f, nil
}

// cleanModelJSON strips Markdown fences and surrounding junk the model may
// emit despite instructions, keeping the outermost JSON object.
func cleanModelJSON(raw string) string {
	s := strings.TrimSpace(raw)

	// Handle ```json ... ``` or ``` ... ``` wrappers.
	if strings.HasPrefix(s, "```") {
		// Drop the first line (``` or ```json).
		if idx := strings.Index(s, "\n"); idx != -1 {
			s = s[idx+1:]
		} else {
			return s
		}
		s = strings.TrimSpace(s)
	}

	// Remove trailing ``` if present.
	if idx := strings.LastIndex(s, "```"); idx != -1 {
		s = s[:idx]
	}

	s = strings.TrimSpace(s)

	// Extra safety: if there's still junk around the JSON object,
	// keep only from the first '{' to the last '}'.
	if start := strings.Index(s, "{"); start != -1 {
		if end := strings.LastIndex(s, "}"); end != -1 && end > start {
			s = s[start : end+1]
			s = strings.TrimSpace(s)
		}
	}

	return s
}
