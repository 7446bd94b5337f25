package mailbox

import (
	"errors"
	"fmt"
	"testing"

	"google.golang.org/api/googleapi"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{
			name: "nil stays nil",
			err:  nil,
			want: nil,
		},
		{
			name: "401 is auth",
			err:  &googleapi.Error{Code: 401},
			want: ErrAuth,
		},
		{
			name: "429 is rate limited",
			err:  &googleapi.Error{Code: 429},
			want: ErrRateLimited,
		},
		{
			name: "403 with rate limit reason",
			err: &googleapi.Error{
				Code:   403,
				Errors: []googleapi.ErrorItem{{Reason: "userRateLimitExceeded"}},
			},
			want: ErrRateLimited,
		},
		{
			name: "403 without rate limit reason is auth",
			err: &googleapi.Error{
				Code:   403,
				Errors: []googleapi.ErrorItem{{Reason: "forbidden"}},
			},
			want: ErrAuth,
		},
		{
			name: "wrapped api error still classified",
			err:  fmt.Errorf("get message: %w", &googleapi.Error{Code: 401}),
			want: ErrAuth,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := classify(tt.err)
			if tt.want == nil {
				if got != nil {
					t.Fatalf("classify() = %v, want nil", got)
				}
				return
			}
			if !errors.Is(got, tt.want) {
				t.Errorf("classify() = %v, want errors.Is %v", got, tt.want)
			}
		})
	}
}

func TestClassify_TransientPassesThrough(t *testing.T) {
	plain := errors.New("connection reset")
	got := classify(plain)
	if errors.Is(got, ErrAuth) || errors.Is(got, ErrRateLimited) {
		t.Fatalf("transient error misclassified: %v", got)
	}
	if got != plain {
		t.Fatalf("transient error should pass through unchanged, got %v", got)
	}
}
