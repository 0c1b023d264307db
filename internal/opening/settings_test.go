package opening

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMissingParentPolicy(t *testing.T) {
	cases := map[string]MissingParentPolicy{
		"":          MissingParentSkip,
		"skip":      MissingParentSkip,
		" Sentinel": MissingParentSentinel,
		"FAIL":      MissingParentFail,
	}
	for in, want := range cases {
		got, err := ParseMissingParentPolicy(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseMissingParentPolicy("ignore")
	assert.Error(t, err)
}

func TestActivityOptions(t *testing.T) {
	s := DefaultSettings()
	s.TaskQueue = "Supervisor"
	s.OpenAccountTaskQueue = "OpenAccount"

	accountsOpts := s.accountsOptions()
	assert.Equal(t, "Supervisor", accountsOpts.TaskQueue)
	assert.Equal(t, 5*time.Second, accountsOpts.StartToCloseTimeout)
	assert.Equal(t, time.Second, accountsOpts.RetryPolicy.InitialInterval)
	assert.Equal(t, 2.0, accountsOpts.RetryPolicy.BackoffCoefficient)
	assert.Equal(t, 30*time.Second, accountsOpts.RetryPolicy.MaximumInterval)
	assert.Zero(t, accountsOpts.RetryPolicy.MaximumAttempts)

	notifyOpts := s.notifyOptions()
	assert.Equal(t, "OpenAccount", notifyOpts.TaskQueue)
	assert.Equal(t, int32(5), notifyOpts.RetryPolicy.MaximumAttempts)
}

func TestNotifyOptionsOutliveRelayTimeout(t *testing.T) {
	s := DefaultSettings()
	s.NotifyTimeout = 3 * time.Second

	opts := s.notifyOptions()
	assert.Equal(t, 3*time.Second+NotifyTimeoutMargin, opts.StartToCloseTimeout)
	assert.Greater(t, opts.StartToCloseTimeout, s.NotifyTimeout)
}
