package mailbox

import (
	"errors"
	"strings"

	"golang.org/x/oauth2"
	"google.golang.org/api/googleapi"
)

// Sentinel errors for the two mailbox failure classes the orchestrator
// treats specially. Anything else coming out of this package is transient.
var (
	// ErrAuth means the stored credential is expired or invalid. Fatal to
	// the run; never retried.
	ErrAuth = errors.New("mailbox: credential expired or invalid")

	// ErrRateLimited means the mailbox API throttled us. Retried with
	// backoff at single-message granularity.
	ErrRateLimited = errors.New("mailbox: rate limited")
)

// classify maps a Gmail API error onto the package's error taxonomy. The
// original error stays in the chain for logging.
func classify(err error) error {
	if err == nil {
		return nil
	}

	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) {
		return joinErr(ErrAuth, err)
	}

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case 401:
			return joinErr(ErrAuth, err)
		case 429:
			return joinErr(ErrRateLimited, err)
		case 403:
			// Gmail reports quota exhaustion as 403 with a rate-limit reason.
			for _, e := range apiErr.Errors {
				if strings.Contains(strings.ToLower(e.Reason), "ratelimit") {
					return joinErr(ErrRateLimited, err)
				}
			}
			return joinErr(ErrAuth, err)
		}
	}

	return err
}

func joinErr(sentinel, cause error) error {
	return errors.Join(sentinel, cause)
}
