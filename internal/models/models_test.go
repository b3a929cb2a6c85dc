package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestCoverageEnd(t *testing.T) {
	tests := []struct {
		name  string
		start time.Time
		term  int
		want  time.Time
	}{
		{"twelve months", date(2024, 1, 1), 12, date(2024, 12, 31)},
		{"one month", date(2024, 3, 15), 1, date(2024, 4, 14)},
		{"month end clamps", date(2024, 1, 31), 1, date(2024, 2, 28)},
		{"long term", date(2024, 6, 1), 600, date(2074, 5, 31)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CoverageEnd(tt.start, tt.term))
		})
	}
}

func TestParseDate(t *testing.T) {
	got, err := ParseDate("2024-01-01")
	require.NoError(t, err)
	assert.Equal(t, date(2024, 1, 1), got)

	got, err = ParseDate("2024-01-01T10:00:00+02:00")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC), got)

	_, err = ParseDate("01/02/2024")
	assert.Error(t, err)
	_, err = ParseDate("")
	assert.Error(t, err)
}

func TestPolicyStatusTerminal(t *testing.T) {
	assert.False(t, PolicyPending.Terminal())
	assert.False(t, PolicyApproved.Terminal())
	for _, s := range []PolicyStatus{PolicyRejected, PolicyCancelled, PolicyExpired, PolicyClaimed} {
		assert.True(t, s.Terminal(), s)
	}
}

func TestParseRole(t *testing.T) {
	r, err := ParseRole("agent")
	require.NoError(t, err)
	assert.Equal(t, RoleAgent, r)
	assert.Equal(t, VerificationAgent, r.VerificationType())
	assert.Equal(t, VerificationNone, RoleCustomer.VerificationType())

	_, err = ParseRole("superuser")
	assert.Error(t, err)
}
