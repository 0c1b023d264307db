// Package service is the client-side entry point to account opening workflows:
// it starts runs, reads their state and delivers approvals.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	enumspb "go.temporal.io/api/enums/v1"
	"go.temporal.io/api/serviceerror"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/temporal"

	"wealth/internal/accounts"
	"wealth/internal/opening"
	"wealth/internal/platform/metrics"
	dErrors "wealth/pkg/domain-errors"
)

// WorkflowIDPrefix prefixes ids of runs started through Service.
const WorkflowIDPrefix = "OpenAccount-"

// Service wraps a Temporal client for the account opening workflow.
type Service struct {
	client    client.Client
	taskQueue string
	newID     func() string
	logger    *slog.Logger
	metrics   *metrics.Metrics
}

// Option configures a Service.
type Option func(*Service)

// WithIDGenerator replaces the UUID-based workflow id suffix.
func WithIDGenerator(fn func() string) Option {
	return func(s *Service) {
		if fn != nil {
			s.newID = fn
		}
	}
}

// WithMetrics records engine call outcomes.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

func New(c client.Client, taskQueue string, opts ...Option) *Service {
	s := &Service{
		client:    c,
		taskQueue: taskQueue,
		newID:     uuid.NewString,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start validates input and starts a new run, returning its workflow id.
func (s *Service) Start(ctx context.Context, input opening.OpenAccountInput) (string, error) {
	defer s.observe("start", time.Now())
	input.ClientID = strings.TrimSpace(input.ClientID)
	input.AccountName = strings.TrimSpace(input.AccountName)
	if input.ClientID == "" {
		return "", dErrors.New(dErrors.CodeValidation, "client_id is required")
	}
	if input.AccountName == "" {
		return "", dErrors.New(dErrors.CodeValidation, "account_name is required")
	}
	if input.InitialAmount < 0 {
		return "", dErrors.New(dErrors.CodeValidation, "initial_amount must not be negative")
	}

	id := WorkflowIDPrefix + s.newID()
	run, err := s.client.ExecuteWorkflow(ctx, client.StartWorkflowOptions{
		ID:        id,
		TaskQueue: s.taskQueue,
	}, opening.WorkflowType, input)
	if err != nil {
		return "", s.fail("start workflow", err)
	}

	s.metrics.IncrementOpeningsStarted()
	s.logger.InfoContext(ctx, "account opening started",
		"workflow_id", run.GetID(),
		"run_id", run.GetRunID(),
		"client_id", input.ClientID,
	)
	return run.GetID(), nil
}

// State returns the current state label.
func (s *Service) State(ctx context.Context, workflowID string) (opening.State, error) {
	defer s.observe("query state", time.Now())
	v, err := s.client.QueryWorkflow(ctx, workflowID, "", opening.QueryGetCurrentState)
	if err != nil {
		return "", s.fail("query state", err)
	}
	var state string
	if err := v.Get(&state); err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "decode state")
	}
	return opening.State(state), nil
}

// ClientDetails returns the client snapshot, blocking until the run has fetched it.
func (s *Service) ClientDetails(ctx context.Context, workflowID string) (*accounts.ClientSnapshot, error) {
	defer s.observe("get client details", time.Now())
	handle, err := s.client.UpdateWorkflow(ctx, client.UpdateWorkflowOptions{
		WorkflowID:   workflowID,
		UpdateName:   opening.UpdateGetClientDetails,
		WaitForStage: client.WorkflowUpdateStageCompleted,
	})
	if err != nil {
		return nil, s.fail("get client details", err)
	}
	var snapshot *accounts.ClientSnapshot
	if err := handle.Get(ctx, &snapshot); err != nil {
		return nil, s.fail("get client details", err)
	}
	return snapshot, nil
}

// UpdateClientDetails forwards changes to the run.
func (s *Service) UpdateClientDetails(ctx context.Context, workflowID string, changes map[string]any) error {
	defer s.observe("update client details", time.Now())
	handle, err := s.client.UpdateWorkflow(ctx, client.UpdateWorkflowOptions{
		WorkflowID:   workflowID,
		UpdateName:   opening.UpdateUpdateClientDetails,
		Args:         []any{changes},
		WaitForStage: client.WorkflowUpdateStageCompleted,
	})
	if err != nil {
		return s.fail("update client details", err)
	}
	var ignored string
	if err := handle.Get(ctx, &ignored); err != nil {
		return s.fail("update client details", err)
	}
	return nil
}

// VerifyKyc sends the KYC-verified signal.
func (s *Service) VerifyKyc(ctx context.Context, workflowID string) error {
	return s.signal(ctx, workflowID, opening.SignalVerifyKyc)
}

// ApproveCompliance sends the compliance-approved signal.
func (s *Service) ApproveCompliance(ctx context.Context, workflowID string) error {
	return s.signal(ctx, workflowID, opening.SignalComplianceApproved)
}

func (s *Service) signal(ctx context.Context, workflowID, name string) error {
	defer s.observe("signal", time.Now())
	if err := s.client.SignalWorkflow(ctx, workflowID, "", name, nil); err != nil {
		return s.fail("signal "+name, err)
	}
	s.metrics.IncrementSignal(name)
	s.logger.InfoContext(ctx, "approval signal sent", "workflow_id", workflowID, "signal", name)
	return nil
}

// Result returns the outcome of a finished run. A run still in progress is a conflict.
func (s *Service) Result(ctx context.Context, workflowID string) (*opening.OpenAccountResult, error) {
	defer s.observe("result", time.Now())
	desc, err := s.client.DescribeWorkflowExecution(ctx, workflowID, "")
	if err != nil {
		return nil, s.fail("describe workflow", err)
	}
	if desc.GetWorkflowExecutionInfo().GetStatus() == enumspb.WORKFLOW_EXECUTION_STATUS_RUNNING {
		return nil, dErrors.New(dErrors.CodeConflict, "account opening is still in progress")
	}

	var result opening.OpenAccountResult
	if err := s.client.GetWorkflow(ctx, workflowID, "").Get(ctx, &result); err != nil {
		return nil, s.fail("workflow result", err)
	}
	return &result, nil
}

func (s *Service) observe(op string, start time.Time) {
	s.metrics.ObserveEngineLatency(op, time.Since(start).Seconds())
}

// fail translates err and counts it under op.
func (s *Service) fail(op string, err error) error {
	translated := translate(err, op)
	var domainErr *dErrors.Error
	if errors.As(translated, &domainErr) {
		s.metrics.IncrementEngineError(op, string(domainErr.Code))
	}
	return translated
}

// translate maps engine errors onto domain error codes.
func translate(err error, op string) error {
	var appErr *temporal.ApplicationError
	if errors.As(err, &appErr) {
		msg := fmt.Sprintf("%s: %s", op, appErr.Message())
		switch appErr.Type() {
		case opening.ErrTypeNotImplemented:
			return dErrors.Wrap(err, dErrors.CodeNotImplemented, msg)
		case opening.ErrTypeInvalidInput, accounts.ErrTypeInvalidBalance:
			return dErrors.Wrap(err, dErrors.CodeValidation, msg)
		case accounts.ErrTypeClientNotFound:
			return dErrors.Wrap(err, dErrors.CodeNotFound, msg)
		default:
			return dErrors.Wrap(err, dErrors.CodeInternal, msg)
		}
	}

	var notFound *serviceerror.NotFound
	var alreadyStarted *serviceerror.WorkflowExecutionAlreadyStarted
	var unavailable *serviceerror.Unavailable
	var deadline *serviceerror.DeadlineExceeded
	switch {
	case errors.As(err, &notFound):
		return dErrors.Wrap(err, dErrors.CodeNotFound, op+": workflow not found")
	case errors.As(err, &alreadyStarted):
		return dErrors.Wrap(err, dErrors.CodeConflict, op+": workflow already started")
	case errors.As(err, &unavailable):
		return dErrors.Wrap(err, dErrors.CodeUnavailable, op+": engine unavailable")
	case errors.As(err, &deadline), errors.Is(err, context.DeadlineExceeded):
		return dErrors.Wrap(err, dErrors.CodeTimeout, op+": timed out")
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, op)
	}
}
