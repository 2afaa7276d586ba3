package autherr

import (
	"context"
	"errors"
	"fmt"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReasonOf(t *testing.T) {
	tests := []struct {
		err  error
		name string
		want Reason
	}{
		{
			name: "nil error",
			err:  nil,
			want: "",
		},
		{
			name: "direct friendly error",
			err:  New(ReasonNoProfile, "profile 404"),
			want: ReasonNoProfile,
		},
		{
			name: "friendly error deep in chain",
			err:  fmt.Errorf("login failed: %w", fmt.Errorf("hop: %w", New(ReasonNoXbox, "XErr 2148916233"))),
			want: ReasonNoXbox,
		},
		{
			name: "dns error",
			err:  fmt.Errorf("request failed: %w", &net.DNSError{Err: "no such host", Name: "user.auth.xboxlive.com"}),
			want: ReasonConnect,
		},
		{
			name: "dial error",
			err:  &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connection refused")},
			want: ReasonConnect,
		},
		{
			name: "context deadline",
			err:  fmt.Errorf("hop: %w", context.DeadlineExceeded),
			want: ReasonConnect,
		},
		{
			name: "protocol error",
			err:  fmt.Errorf("callback: %w", ErrStateMismatch),
			want: ReasonUnknown,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ReasonOf(tt.err))
		})
	}
}

func TestFriendlyError_Unwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := Wrap(ReasonConnect, "unable to connect", cause)

	assert.ErrorIs(t, err, cause)
	assert.True(t, IsFriendly(fmt.Errorf("outer: %w", err)))
	assert.False(t, IsFriendly(cause))
	assert.Contains(t, err.Error(), "connect")
	assert.Contains(t, New(ReasonCancel, "denied").Error(), "denied")
}
