package mailbox

import (
	"encoding/base64"
	"strings"
	"testing"
	"unicode/utf8"

	gmailv1 "google.golang.org/api/gmail/v1"
)

func b64(s string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(s))
}

func TestExtractBody_PrefersPlainText(t *testing.T) {
	part := &gmailv1.MessagePart{
		MimeType: "multipart/alternative",
		Parts: []*gmailv1.MessagePart{
			{
				MimeType: "text/html",
				Body:     &gmailv1.MessagePartBody{Data: b64("<p>html version</p>")},
			},
			{
				MimeType: "text/plain",
				Body:     &gmailv1.MessagePartBody{Data: b64("plain version")},
			},
		},
	}

	got := extractBody(part)
	if got != "plain version" {
		t.Fatalf("extractBody = %q, want plain version", got)
	}
}

func TestExtractBody_FallsBackToHTML(t *testing.T) {
	part := &gmailv1.MessagePart{
		MimeType: "text/html",
		Body: &gmailv1.MessagePartBody{
			Data: b64("<div>You were charged <b>$12.99</b> &amp; thanks</div>"),
		},
	}

	got := extractBody(part)
	if !strings.Contains(got, "You were charged") {
		t.Errorf("expected stripped html text, got %q", got)
	}
	if !strings.Contains(got, "$12.99") {
		t.Errorf("expected amount preserved, got %q", got)
	}
	if !strings.Contains(got, "&") || strings.Contains(got, "&amp;") {
		t.Errorf("expected entities decoded, got %q", got)
	}
	if strings.Contains(got, "<") {
		t.Errorf("expected no tags, got %q", got)
	}
}

func TestExtractBody_NestedMultipart(t *testing.T) {
	part := &gmailv1.MessagePart{
		MimeType: "multipart/mixed",
		Parts: []*gmailv1.MessagePart{
			{
				MimeType: "multipart/alternative",
				Parts: []*gmailv1.MessagePart{
					{
						MimeType: "text/plain",
						Body:     &gmailv1.MessagePartBody{Data: b64("nested body")},
					},
				},
			},
		},
	}

	if got := extractBody(part); got != "nested body" {
		t.Fatalf("extractBody = %q, want nested body", got)
	}
}

func TestCleanBody_DropsBoilerplateAndCollapsesWhitespace(t *testing.T) {
	body := "Your card   was charged $5.00\n\n\n" +
		"Unsubscribe from these emails\n" +
		"This email was sent to you@example.com\n" +
		"   Thank you   for your    purchase   \n"

	got := CleanBody(body, 3000)

	if strings.Contains(strings.ToLower(got), "unsubscribe") {
		t.Errorf("boilerplate not dropped: %q", got)
	}
	if strings.Contains(strings.ToLower(got), "this email was sent") {
		t.Errorf("footer not dropped: %q", got)
	}
	if !strings.Contains(got, "Your card was charged $5.00") {
		t.Errorf("whitespace not collapsed: %q", got)
	}
	if !strings.Contains(got, "Thank you for your purchase") {
		t.Errorf("content line missing: %q", got)
	}
}

func TestCleanBody_Truncates(t *testing.T) {
	body := strings.Repeat("a", 5000)
	got := CleanBody(body, 3000)
	if len(got) != 3000 {
		t.Fatalf("len = %d, want 3000", len(got))
	}
}

func TestCleanBody_TruncatesOnRuneBoundary(t *testing.T) {
	// "€" is 3 bytes; a budget landing mid-rune must back off to the
	// previous boundary instead of emitting invalid UTF-8.
	body := strings.Repeat("€", 100)
	got := CleanBody(body, 10)
	if !utf8.ValidString(got) {
		t.Fatalf("truncated body is not valid UTF-8: %q", got)
	}
	if len(got) != 9 {
		t.Fatalf("len = %d, want 9 (three whole runes)", len(got))
	}
}

func TestCleanBody_ZeroBudgetMeansUnbounded(t *testing.T) {
	body := strings.Repeat("b", 4000)
	got := CleanBody(body, 0)
	if len(got) != 4000 {
		t.Fatalf("len = %d, want 4000", len(got))
	}
}

func TestDecodeBase64URL_PaddedAndUnpadded(t *testing.T) {
	padded := base64.URLEncoding.EncodeToString([]byte("hello"))
	unpadded := base64.RawURLEncoding.EncodeToString([]byte("hello"))

	if got := decodeBase64URL(padded); got != "hello" {
		t.Errorf("padded decode = %q", got)
	}
	if got := decodeBase64URL(unpadded); got != "hello" {
		t.Errorf("unpadded decode = %q", got)
	}
	if got := decodeBase64URL("!!not base64!!"); got != "" {
		t.Errorf("garbage decode = %q, want empty", got)
	}
}
