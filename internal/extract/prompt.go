package extract

import (
	"strings"

	"github.com/dvloznov/mailspend/internal/domain"
)

// buildPrompt constructs the full instruction contract for one message. The
// model must answer with strict JSON only, classify the message as
// non-transactional / single / multi-transaction, and fill every field with
// the stated fallback rules.
func buildPrompt(msg domain.CandidateMessage) string {
	basePrompt :=
		"You are a financial transaction extractor for consumer emails.\n\n" +
			"Task:\n" +
			"- Decide whether the email below describes one or more financial transactions\n" +
			"  (card charges, bank debits/credits, purchases, transfers, refunds, bills).\n" +
			"- Promotional offers, newsletters, balance teasers and shipping notices are NOT transactions.\n" +
			"- A periodic statement email may contain MANY transactions; extract each one.\n" +
			"- Output STRICT JSON only (no comments, no trailing commas, no extra text).\n\n" +
			"Output shape:\n" +
			"{\n" +
			"  \"is_transaction\": boolean,\n" +
			"  \"transactions\": [ ... zero or more objects ... ]\n" +
			"}\n\n" +
			"Each transaction object must have ALL of these fields:\n" +
			"- \"amount\": number, the transaction amount, always positive\n" +
			"- \"currency\": string, ISO 4217 code; if it cannot be determined use \"USD\"\n" +
			"- \"merchant\": string, the merchant or counterparty name\n" +
			"- \"category\": string, EXACTLY one of the categories listed below\n" +
			"- \"date\": string, ISO format \"YYYY-MM-DD\"\n" +
			"- \"time\": string \"HH:MM\" or \"\" if unknown\n" +
			"- \"card_last4\": string, last 4 digits of the card, or \"\"\n" +
			"- \"account_last4\": string, last 4 digits of the account, or \"\"\n" +
			"- \"institution\": string, the bank or issuer, or \"\"\n" +
			"- \"transaction_type\": string, one of \"debit\", \"credit\", \"refund\"\n" +
			"- \"description\": string, one short sentence describing the transaction\n" +
			"- \"location\": string, city/merchant location, or \"\"\n" +
			"- \"confidence\": number between 0.0 and 1.0\n\n"

	rulesPrompt :=
		"Rules:\n" +
			"- If the email is not transactional, return {\"is_transaction\": false, \"transactions\": []}.\n" +
			"- Never invent a category: pick the CLOSEST one from the list, falling back to \"other\".\n" +
			"- Never leave \"category\" or \"transaction_type\" empty.\n" +
			"- Use the email's own date if the transaction date is not stated.\n" +
			"Return ONLY valid raw JSON.\n" +
			"Do NOT wrap the response in code fences.\n" +
			"Do NOT use ```json or any Markdown.\n" +
			"Output must begin with \"{\" and end with \"}\".\n"

	var b strings.Builder
	b.WriteString(basePrompt)
	b.WriteString(categoriesPrompt())
	b.WriteString("\n")
	b.WriteString(rulesPrompt)
	b.WriteString("\nEmail:\n")
	b.WriteString("From: " + msg.Sender + "\n")
	b.WriteString("Subject: " + msg.Subject + "\n")
	b.WriteString("Date: " + msg.Date + "\n")
	b.WriteString("Body:\n" + msg.Body + "\n")
	return b.String()
}

// categoriesPrompt lists the fixed taxonomy the model is allowed to use.
func categoriesPrompt() string {
	var b strings.Builder
	b.WriteString("Use ONLY the following categories:\n")
	for _, c := range domain.Categories {
		b.WriteString("  - " + string(c) + "\n")
	}
	return b.String()
}
