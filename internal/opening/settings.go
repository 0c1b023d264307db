package opening

import (
	"fmt"
	"strings"
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"
)

// MissingParentPolicy decides what happens to state notifications when the run has
// no parent workflow.
type MissingParentPolicy string

const (
	// MissingParentSkip logs and does not notify.
	MissingParentSkip MissingParentPolicy = "skip"
	// MissingParentSentinel notifies MissingParentSentinelID anyway.
	MissingParentSentinel MissingParentPolicy = "sentinel"
	// MissingParentFail fails the run before any work is done.
	MissingParentFail MissingParentPolicy = "fail"
)

// NotifyTimeoutMargin is added on top of NotifyTimeout for the ChangeState
// start-to-close timeout. The relay bounds its outbound call by NotifyTimeout,
// so the activity must outlive it to report the relay's own error.
const NotifyTimeoutMargin = 2 * time.Second

// MissingParentSentinelID is the placeholder target used by MissingParentSentinel.
const MissingParentSentinelID = "<missing parent workflow id>"

// ParseMissingParentPolicy accepts skip, sentinel or fail (case-insensitive); empty means skip.
func ParseMissingParentPolicy(s string) (MissingParentPolicy, error) {
	switch p := MissingParentPolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case "":
		return MissingParentSkip, nil
	case MissingParentSkip, MissingParentSentinel, MissingParentFail:
		return p, nil
	default:
		return "", fmt.Errorf("unknown missing parent policy %q", s)
	}
}

// Settings are the static options of the coordinator workflow.
type Settings struct {
	// TaskQueue runs get_client and open_investment. Empty uses the workflow's queue.
	TaskQueue string
	// OpenAccountTaskQueue runs ChangeState.
	OpenAccountTaskQueue string

	ActivityTimeout time.Duration
	// NotifyTimeout is the relay's per-call budget; ChangeState gets
	// NotifyTimeoutMargin more.
	NotifyTimeout   time.Duration

	// NotifyMaxAttempts bounds ChangeState retries; zero means unlimited.
	NotifyMaxAttempts int32

	RetryInitialInterval time.Duration
	RetryBackoff         float64
	RetryMaxInterval     time.Duration

	MissingParent MissingParentPolicy
}

// DefaultSettings returns the production defaults.
func DefaultSettings() Settings {
	return Settings{
		ActivityTimeout:      5 * time.Second,
		NotifyTimeout:        10 * time.Second,
		NotifyMaxAttempts:    5,
		RetryInitialInterval: time.Second,
		RetryBackoff:         2.0,
		RetryMaxInterval:     30 * time.Second,
		MissingParent:        MissingParentSkip,
	}
}

func (s Settings) retryPolicy(maxAttempts int32) *temporal.RetryPolicy {
	return &temporal.RetryPolicy{
		InitialInterval:    s.RetryInitialInterval,
		BackoffCoefficient: s.RetryBackoff,
		MaximumInterval:    s.RetryMaxInterval,
		MaximumAttempts:    maxAttempts,
	}
}

func (s Settings) accountsOptions() workflow.ActivityOptions {
	return workflow.ActivityOptions{
		TaskQueue:           s.TaskQueue,
		StartToCloseTimeout: s.ActivityTimeout,
		RetryPolicy:         s.retryPolicy(0),
	}
}

func (s Settings) notifyOptions() workflow.ActivityOptions {
	return workflow.ActivityOptions{
		TaskQueue:           s.OpenAccountTaskQueue,
		StartToCloseTimeout: s.NotifyTimeout + NotifyTimeoutMargin,
		RetryPolicy:         s.retryPolicy(s.NotifyMaxAttempts),
	}
}
