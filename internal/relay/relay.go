// Package relay forwards account-opening state changes to the workflow that
// started the opening.
package relay

import (
	"context"
	"log/slog"
	"time"

	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/temporal"
)

const (
	// ActivityChangeState is the activity name workflows schedule.
	ActivityChangeState = "ChangeState"
	// SignalUpdateAccountOpeningState is delivered to the target workflow.
	SignalUpdateAccountOpeningState = "update_account_opening_state"

	// ErrTypeNotification is the application error type for failed notifications.
	ErrTypeNotification = "NotificationError"

	DefaultTimeout = 5 * time.Second
)

// StateUpdate is the signal body received by the target workflow.
type StateUpdate struct {
	AccountName string `json:"account_name"`
	State       string `json:"state"`
}

// Signaler is the engine client capability the relay needs. client.Client satisfies it.
type Signaler interface {
	SignalWorkflow(ctx context.Context, workflowID string, runID string, signalName string, arg interface{}) error
}

// Routing describes where notifications are sent. It is attached to errors.
type Routing struct {
	Address              string
	Namespace            string
	TaskQueue            string
	OpenAccountTaskQueue string
	CertConfigured       bool
}

// Relay signals state changes through an injected engine client.
type Relay struct {
	client  Signaler
	routing Routing
	timeout time.Duration
	logger  *slog.Logger
}

// Option configures a Relay.
type Option func(*Relay)

// WithTimeout bounds each signal call.
func WithTimeout(d time.Duration) Option {
	return func(r *Relay) {
		if d > 0 {
			r.timeout = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Relay) {
		if l != nil {
			r.logger = l
		}
	}
}

func New(client Signaler, routing Routing, opts ...Option) *Relay {
	r := &Relay{
		client:  client,
		routing: routing,
		timeout: DefaultTimeout,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ActivityRegistry is the subset of worker.Worker used to register activities.
type ActivityRegistry interface {
	RegisterActivityWithOptions(a interface{}, options activity.RegisterOptions)
}

// Register adds ChangeState to r.
func (r *Relay) Register(reg ActivityRegistry) {
	reg.RegisterActivityWithOptions(r.ChangeState, activity.RegisterOptions{Name: ActivityChangeState})
}

// ChangeState signals targetID with the new state. Failures are returned as an
// application error whose cause is a *NotificationError; the relay does not retry.
func (r *Relay) ChangeState(ctx context.Context, targetID, accountName, state string) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	err := r.client.SignalWorkflow(ctx, targetID, "", SignalUpdateAccountOpeningState, StateUpdate{
		AccountName: accountName,
		State:       state,
	})
	if err == nil {
		r.logger.InfoContext(ctx, "account opening state relayed",
			"target_workflow_id", targetID, "account_name", accountName, "state", state)
		return nil
	}

	nerr := &NotificationError{
		Kind:        classify(err),
		TargetID:    targetID,
		AccountName: accountName,
		State:       state,
		Routing:     r.routing,
		Err:         err,
	}
	r.logger.ErrorContext(ctx, "account opening state relay failed",
		"target_workflow_id", targetID,
		"account_name", accountName,
		"state", state,
		"kind", string(nerr.Kind),
		"address", r.routing.Address,
		"namespace", r.routing.Namespace,
		"error", err,
	)
	if !nerr.Retryable() {
		return temporal.NewNonRetryableApplicationError(nerr.Error(), ErrTypeNotification, nerr)
	}
	return temporal.NewApplicationErrorWithCause(nerr.Error(), ErrTypeNotification, nerr)
}
