package mailbox

import (
	"encoding/base64"
	"html"
	"strings"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
	gmailv1 "google.golang.org/api/gmail/v1"
)

var stripPolicy = bluemonday.StrictPolicy()

// boilerplatePrefixes mark footer lines that carry no transactional signal.
// Dropping them keeps the extraction prompt within its character budget.
var boilerplatePrefixes = []string{
	"unsubscribe",
	"to unsubscribe",
	"manage your preferences",
	"manage preferences",
	"view this email in your browser",
	"view in browser",
	"update your email preferences",
	"this email was sent to",
	"you are receiving this email",
	"you received this email",
	"privacy policy",
	"terms of service",
	"terms and conditions",
	"do not reply to this email",
	"please do not reply",
	"add us to your address book",
	"copyright ©",
	"all rights reserved",
}

// extractBody walks the MIME part tree and returns the best-effort plain
// text of the message: text/plain preferred, text/html stripped to text as a
// fallback.
func extractBody(part *gmailv1.MessagePart) string {
	if txt := extractPlainText(part); txt != "" {
		return txt
	}
	if h := extractHTML(part); h != "" {
		return htmlToText(h)
	}
	return ""
}

// extractPlainText recursively walks a MIME part tree and returns the first
// text/plain body found (base64url decoded). For multipart/alternative it
// prefers text/plain over text/html.
func extractPlainText(part *gmailv1.MessagePart) string {
	if part == nil {
		return ""
	}

	mime := strings.ToLower(part.MimeType)

	if mime == "text/plain" && part.Body != nil && part.Body.Data != "" {
		return decodeBase64URL(part.Body.Data)
	}

	if len(part.Parts) > 0 {
		for _, sub := range part.Parts {
			if strings.ToLower(sub.MimeType) == "text/plain" {
				if body := extractPlainText(sub); body != "" {
					return body
				}
			}
		}
		for _, sub := range part.Parts {
			if body := extractPlainText(sub); body != "" {
				return body
			}
		}
	}

	return ""
}

// extractHTML recursively walks a MIME part tree and returns the first
// text/html body found (base64url decoded).
func extractHTML(part *gmailv1.MessagePart) string {
	if part == nil {
		return ""
	}

	if strings.ToLower(part.MimeType) == "text/html" && part.Body != nil && part.Body.Data != "" {
		return decodeBase64URL(part.Body.Data)
	}

	for _, sub := range part.Parts {
		if body := extractHTML(sub); body != "" {
			return body
		}
	}

	return ""
}

// htmlToText converts an HTML body to readable text. Block-level closers
// become newlines so lines survive sanitization, then bluemonday strips the
// remaining markup and entities get decoded.
func htmlToText(raw string) string {
	for _, tag := range []string{"<br>", "<br/>", "<br />", "</p>", "</div>", "</tr>", "</li>", "</td>", "</h1>", "</h2>", "</h3>", "</h4>"} {
		raw = strings.ReplaceAll(raw, tag, tag+"\n")
		raw = strings.ReplaceAll(raw, strings.ToUpper(tag), tag+"\n")
	}
	stripped := stripPolicy.Sanitize(raw)
	return html.UnescapeString(stripped)
}

// CleanBody normalizes a decoded message body for extraction: boilerplate
// lines dropped, whitespace collapsed, hard-truncated to budget characters.
func CleanBody(body string, budget int) string {
	lines := strings.Split(body, "\n")
	kept := make([]string, 0, len(lines))
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		if isBoilerplate(trimmed) {
			continue
		}
		kept = append(kept, collapseSpaces(trimmed))
	}

	out := strings.Join(kept, "\n")
	if budget > 0 && len(out) > budget {
		out = truncateRuneSafe(out, budget)
	}
	return out
}

// truncateRuneSafe cuts s to at most n bytes without splitting a multi-byte
// rune; a split rune would feed invalid UTF-8 into the extraction prompt.
func truncateRuneSafe(s string, n int) string {
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

func isBoilerplate(line string) bool {
	lower := strings.ToLower(line)
	for _, prefix := range boilerplatePrefixes {
		if strings.HasPrefix(lower, prefix) {
			return true
		}
	}
	return false
}

func collapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func decodeBase64URL(data string) string {
	b, err := base64.URLEncoding.DecodeString(data)
	if err != nil {
		// Gmail uses unpadded base64url
		b, err = base64.RawURLEncoding.DecodeString(data)
		if err != nil {
			return ""
		}
	}
	return string(b)
}
