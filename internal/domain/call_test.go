package domain

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCallType(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in      string
		want    CallType
		wantErr bool
	}{
		{in: "audio", want: CallAudio},
		{in: "VIDEO", want: CallVideo},
		{in: " Video ", want: CallVideo},
		{in: "screen", wantErr: true},
		{in: "", wantErr: true},
	}
	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			t.Parallel()
			got, err := ParseCallType(tc.in)
			if tc.wantErr {
				assert.ErrorIs(t, err, ErrInvalidCallType)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestCallStatusTransitions(t *testing.T) {
	t.Parallel()

	all := []CallStatus{StatusCalling, StatusAccepted, StatusRejected, StatusEnded}
	allowed := map[CallStatus][]CallStatus{
		StatusCalling:  {StatusAccepted, StatusRejected, StatusEnded},
		StatusAccepted: {StatusEnded},
	}
	for _, from := range all {
		for _, to := range all {
			want := false
			for _, ok := range allowed[from] {
				if ok == to {
					want = true
				}
			}
			assert.Equal(t, want, from.CanTransition(to), "%s -> %s", from, to)
		}
	}
	assert.True(t, StatusRejected.Terminal())
	assert.True(t, StatusEnded.Terminal())
	assert.False(t, StatusCalling.Terminal())
	assert.False(t, StatusAccepted.Terminal())
}

func TestNewRoomIDSortedPairAndUnique(t *testing.T) {
	t.Parallel()

	a := NewRoomID("bob", "alice")
	b := NewRoomID("alice", "bob")

	assert.True(t, strings.HasPrefix(string(a), "alice:bob:"))
	assert.True(t, strings.HasPrefix(string(b), "alice:bob:"))
	assert.NotEqual(t, a, b)
}

func TestCallRoomCounterpart(t *testing.T) {
	t.Parallel()

	r := CallRoom{CallerID: "a", CalleeID: "b"}
	assert.Equal(t, UserID("b"), r.Counterpart("a"))
	assert.Equal(t, UserID("a"), r.Counterpart("b"))
	assert.True(t, r.IsParticipant("a"))
	assert.False(t, r.IsParticipant("c"))
}

func TestParseUserID(t *testing.T) {
	t.Parallel()

	uid, err := ParseUserID("  u1 ")
	require.NoError(t, err)
	assert.Equal(t, UserID("u1"), uid)

	_, err = ParseUserID("   ")
	assert.ErrorIs(t, err, ErrUserIDEmpty)

	_, err = ParseUserID(strings.Repeat("x", MaxUserIDLen+1))
	assert.ErrorIs(t, err, ErrUserIDTooLong)
}

func TestSignalTypeValid(t *testing.T) {
	t.Parallel()

	assert.True(t, SignalOffer.Valid())
	assert.True(t, SignalAnswer.Valid())
	assert.True(t, SignalCandidate.Valid())
	assert.False(t, SignalType("bye").Valid())
}
