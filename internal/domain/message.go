package domain

// CandidateMessage is a mailbox item matched by the broad transaction search
// filter, not yet known to contain a transaction. Body is already decoded,
// stripped and truncated by the fetcher. Immutable once fetched; its
// lifetime is one sync run.
type CandidateMessage struct {
	ID      string // source-assigned, stable across syncs
	Sender  string
	Subject string
	Date    string // source-native header value, kept verbatim
	Body    string
}
