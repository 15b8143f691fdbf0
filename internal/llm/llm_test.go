package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"malformed reply", fmt.Errorf("%w: no completion returned", ErrMalformedResponse), false},
		{"rate limited", &StatusError{Code: 429}, true},
		{"server error", fmt.Errorf("call: %w", &StatusError{Code: 529}), true},
		{"bad request", &StatusError{Code: 400, Body: "invalid"}, false},
		{"unauthorized", &StatusError{Code: 401}, false},
		{"deadline", context.DeadlineExceeded, true},
		{"cancelled", fmt.Errorf("call: %w", context.Canceled), false},
		{"transport", &net.OpError{Op: "dial", Err: errors.New("connection refused")}, true},
		{"sdk quota message", errors.New("Error 429, RESOURCE_EXHAUSTED"), true},
		{"decode failure", errors.New("failed to parse response"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsRetryable(tt.err))
		})
	}
}

func TestStatusError_TruncatesBody(t *testing.T) {
	long := make([]byte, 500)
	for i := range long {
		long[i] = 'x'
	}
	err := &StatusError{Code: 500, Body: string(long)}
	assert.Less(t, len(err.Error()), 300)
}
