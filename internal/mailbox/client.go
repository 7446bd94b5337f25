package mailbox

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	gmailv1 "google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"
)

// NewService builds a Gmail service from a stored OAuth client secret and a
// previously cached token. Obtaining the token (the consent flow) is out of
// scope for this service; a missing or unreadable token surfaces as ErrAuth
// so callers report it the same way as an expired credential.
func NewService(ctx context.Context, credentialsPath, tokenPath string) (*gmailv1.Service, error) {
	b, err := os.ReadFile(credentialsPath)
	if err != nil {
		return nil, fmt.Errorf("NewService: read credentials at %s: %w", credentialsPath, err)
	}

	cfg, err := google.ConfigFromJSON(b, gmailv1.GmailReadonlyScope)
	if err != nil {
		return nil, fmt.Errorf("NewService: parse oauth config: %w", err)
	}

	tok, err := readToken(tokenPath)
	if err != nil {
		return nil, joinErr(ErrAuth, fmt.Errorf("NewService: read token at %s: %w", tokenPath, err))
	}

	client := cfg.Client(ctx, tok)
	svc, err := gmailv1.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return nil, fmt.Errorf("NewService: create gmail service: %w", err)
	}
	return svc, nil
}

func readToken(path string) (*oauth2.Token, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	var tok oauth2.Token
	if err := json.NewDecoder(f).Decode(&tok); err != nil {
		return nil, err
	}
	return &tok, nil
}
