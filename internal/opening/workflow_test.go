package opening_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/converter"
	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/testsuite"
	"go.temporal.io/sdk/workflow"

	"wealth/internal/accounts"
	"wealth/internal/accounts/memory"
	"wealth/internal/opening"
	"wealth/internal/relay"
	"wealth/pkg/testutil"
)

type notification struct {
	target  string
	account string
	state   string
}

type WorkflowSuite struct {
	suite.Suite
	testsuite.WorkflowTestSuite
	env      *testsuite.TestWorkflowEnvironment
	notified []notification
}

func TestWorkflowSuite(t *testing.T) {
	suite.Run(t, new(WorkflowSuite))
}

func (s *WorkflowSuite) SetupTest() {
	s.notified = nil
	s.newEnv(opening.DefaultSettings())
}

func (s *WorkflowSuite) TearDownTest() {
	s.env.AssertExpectations(s.T())
}

func sentinelSettings() opening.Settings {
	settings := opening.DefaultSettings()
	settings.MissingParent = opening.MissingParentSentinel
	return settings
}

// newEnv builds an environment with real accounts activities and a recording relay.
func (s *WorkflowSuite) newEnv(settings opening.Settings) {
	s.env = s.NewTestWorkflowEnvironment()
	opening.NewWorkflow(settings).Register(s.env)

	svc := memory.NewSeeded()
	accounts.NewActivities(svc, svc).Register(s.env)

	s.env.RegisterActivityWithOptions(func(_ context.Context, target, account, state string) error {
		s.notified = append(s.notified, notification{target: target, account: account, state: state})
		return nil
	}, activity.RegisterOptions{Name: relay.ActivityChangeState})
}

func (s *WorkflowSuite) input() opening.OpenAccountInput {
	return opening.OpenAccountInput{ClientID: testutil.TestIDs.ClientID1, AccountName: "401K", InitialAmount: 1000}
}

func (s *WorkflowSuite) query() string {
	v, err := s.env.QueryWorkflow(opening.QueryGetCurrentState)
	s.Require().NoError(err)
	var state string
	s.Require().NoError(v.Get(&state))
	return state
}

func (s *WorkflowSuite) signalAt(d time.Duration, name string) {
	s.env.RegisterDelayedCallback(func() {
		s.env.SignalWorkflow(name, nil)
	}, d)
}

func (s *WorkflowSuite) result() opening.OpenAccountResult {
	s.Require().True(s.env.IsWorkflowCompleted())
	s.Require().NoError(s.env.GetWorkflowError())
	var result opening.OpenAccountResult
	s.Require().NoError(s.env.GetWorkflowResult(&result))
	return result
}

func (s *WorkflowSuite) states() []string {
	out := make([]string, 0, len(s.notified))
	for _, n := range s.notified {
		out = append(out, n.state)
	}
	return out
}

func (s *WorkflowSuite) TestHappyPath() {
	s.newEnv(sentinelSettings())

	var observed []string
	s.env.RegisterDelayedCallback(func() {
		observed = append(observed, s.query())
		s.env.SignalWorkflow(opening.SignalVerifyKyc, nil)
	}, time.Minute)
	s.env.RegisterDelayedCallback(func() {
		observed = append(observed, s.query())
		s.env.SignalWorkflow(opening.SignalComplianceApproved, nil)
	}, 2*time.Minute)

	s.env.ExecuteWorkflow(opening.WorkflowType, s.input())

	result := s.result()
	s.True(result.AccountCreated)
	s.Equal(opening.MessageCreated, result.Message)

	s.Equal([]string{"WaitingKyc", "WaitingCompliance"}, observed)
	s.Equal([]string{"WaitingKyc", "WaitingCompliance", "Creating", "Completed"}, s.states())
	for _, n := range s.notified {
		s.Equal(opening.MissingParentSentinelID, n.target)
		s.Equal("401K", n.account)
	}
	s.Equal(string(opening.StateCompleted), s.query())
}

func (s *WorkflowSuite) TestQueryBeforeInitialization() {
	s.env.OnActivity(accounts.ActivityGetClient, mock.Anything, testutil.TestIDs.ClientID1).
		After(time.Hour).
		Return(testutil.NewClientBuilder().Build(), nil).Once()

	var before string
	s.env.RegisterDelayedCallback(func() { before = s.query() }, time.Minute)
	s.signalAt(2*time.Hour, opening.SignalVerifyKyc)
	s.signalAt(3*time.Hour, opening.SignalComplianceApproved)

	s.env.ExecuteWorkflow(opening.WorkflowType, s.input())

	s.Equal(string(opening.StateInitializing), before)
	s.True(s.result().AccountCreated)
}

func (s *WorkflowSuite) TestComplianceBeforeKycWaitsForKyc() {
	var afterCompliance string
	s.env.RegisterDelayedCallback(func() {
		s.env.SignalWorkflow(opening.SignalComplianceApproved, nil)
	}, time.Minute)
	s.env.RegisterDelayedCallback(func() { afterCompliance = s.query() }, 90*time.Second)
	s.signalAt(2*time.Minute, opening.SignalVerifyKyc)

	s.env.ExecuteWorkflow(opening.WorkflowType, s.input())

	s.Equal(string(opening.StateWaitingKyc), afterCompliance)
	s.True(s.result().AccountCreated)
}

func (s *WorkflowSuite) TestSignalsBeforeInitializationAreHeld() {
	s.newEnv(sentinelSettings())
	s.env.OnActivity(accounts.ActivityGetClient, mock.Anything, testutil.TestIDs.ClientID1).
		After(time.Hour).
		Return(testutil.NewClientBuilder().Build(), nil).Once()

	s.signalAt(time.Minute, opening.SignalComplianceApproved)
	s.signalAt(2*time.Minute, opening.SignalVerifyKyc)

	s.env.ExecuteWorkflow(opening.WorkflowType, s.input())

	s.True(s.result().AccountCreated)
	s.Equal([]string{"WaitingKyc", "WaitingCompliance", "Creating", "Completed"}, s.states())
}

func (s *WorkflowSuite) TestRepeatedSignalsAreIdempotent() {
	s.newEnv(sentinelSettings())
	s.signalAt(time.Minute, opening.SignalVerifyKyc)
	s.signalAt(2*time.Minute, opening.SignalVerifyKyc)
	s.signalAt(3*time.Minute, opening.SignalComplianceApproved)
	s.signalAt(4*time.Minute, opening.SignalComplianceApproved)

	s.env.ExecuteWorkflow(opening.WorkflowType, s.input())

	s.True(s.result().AccountCreated)
	s.Equal([]string{"WaitingKyc", "WaitingCompliance", "Creating", "Completed"}, s.states())
}

func (s *WorkflowSuite) TestGetClientDetailsWaitsForInitialization() {
	s.env.OnActivity(accounts.ActivityGetClient, mock.Anything, testutil.TestIDs.ClientID1).
		After(time.Hour).
		Return(testutil.NewClientBuilder().Build(), nil).Once()

	start := s.env.Now()
	var (
		completedAt time.Time
		snapshot    accounts.ClientSnapshot
		updateErr   error
	)
	s.env.RegisterDelayedCallback(func() {
		s.env.UpdateWorkflow(opening.UpdateGetClientDetails, "details-1", &updateCallbacks{
			onComplete: func(success interface{}, err error) {
				completedAt = s.env.Now()
				updateErr = err
				if err == nil {
					updateErr = decodeUpdateResult(success, &snapshot)
				}
			},
		})
	}, time.Minute)
	s.signalAt(2*time.Hour, opening.SignalVerifyKyc)
	s.signalAt(3*time.Hour, opening.SignalComplianceApproved)

	s.env.ExecuteWorkflow(opening.WorkflowType, s.input())

	s.True(s.result().AccountCreated)
	s.Require().NoError(updateErr)
	s.False(completedAt.IsZero())
	s.GreaterOrEqual(completedAt.Sub(start), time.Hour)
	s.Equal("Don", snapshot.FirstName)
	s.Equal(testutil.TestIDs.ClientID1, snapshot.ClientID)
}

func (s *WorkflowSuite) TestUpdateClientDetailsIsNotImplemented() {
	var (
		updateErr error
		stateAfter string
	)
	s.env.RegisterDelayedCallback(func() {
		s.env.UpdateWorkflow(opening.UpdateUpdateClientDetails, "update-1", &updateCallbacks{
			onComplete: func(_ interface{}, err error) { updateErr = err },
		}, map[string]any{"email": "new@someplace.com"})
	}, time.Minute)
	s.env.RegisterDelayedCallback(func() { stateAfter = s.query() }, 2*time.Minute)
	s.signalAt(3*time.Minute, opening.SignalVerifyKyc)
	s.signalAt(4*time.Minute, opening.SignalComplianceApproved)

	s.env.ExecuteWorkflow(opening.WorkflowType, s.input())

	s.True(s.result().AccountCreated)
	s.Require().Error(updateErr)
	var appErr *temporal.ApplicationError
	s.Require().ErrorAs(updateErr, &appErr)
	s.Equal(opening.ErrTypeNotImplemented, appErr.Type())
	s.Equal(string(opening.StateWaitingKyc), stateAfter)
}

func (s *WorkflowSuite) TestMissingParentPolicies() {
	s.Run("skip does not relay", func() {
		s.notified = nil
		s.newEnv(opening.DefaultSettings())
		s.signalAt(time.Minute, opening.SignalVerifyKyc)
		s.signalAt(2*time.Minute, opening.SignalComplianceApproved)

		s.env.ExecuteWorkflow(opening.WorkflowType, s.input())

		s.True(s.result().AccountCreated)
		s.Empty(s.notified)
	})

	s.Run("fail stops before any work", func() {
		settings := opening.DefaultSettings()
		settings.MissingParent = opening.MissingParentFail
		s.notified = nil
		s.newEnv(settings)

		s.env.ExecuteWorkflow(opening.WorkflowType, s.input())

		s.True(s.env.IsWorkflowCompleted())
		err := s.env.GetWorkflowError()
		var appErr *temporal.ApplicationError
		s.Require().True(errors.As(err, &appErr))
		s.Equal(opening.ErrTypeMissingParent, appErr.Type())
		s.Empty(s.notified)
	})
}

func (s *WorkflowSuite) TestInvalidInput() {
	s.env.ExecuteWorkflow(opening.WorkflowType, opening.OpenAccountInput{ClientID: "123"})

	s.True(s.env.IsWorkflowCompleted())
	var appErr *temporal.ApplicationError
	s.Require().True(errors.As(s.env.GetWorkflowError(), &appErr))
	s.Equal(opening.ErrTypeInvalidInput, appErr.Type())
}

func (s *WorkflowSuite) TestActivityFailuresFailTheRun() {
	s.Run("unknown client", func() {
		s.newEnv(opening.DefaultSettings())
		in := s.input()
		in.ClientID = testutil.TestIDs.Unknown

		s.env.ExecuteWorkflow(opening.WorkflowType, in)

		s.True(s.env.IsWorkflowCompleted())
		var appErr *temporal.ApplicationError
		s.Require().True(errors.As(s.env.GetWorkflowError(), &appErr))
		s.Equal(accounts.ErrTypeClientNotFound, appErr.Type())
	})

	s.Run("relay failure", func() {
		s.newEnv(sentinelSettings())
		s.env.OnActivity(relay.ActivityChangeState, mock.Anything, opening.MissingParentSentinelID, "401K", "WaitingKyc").
			Return(temporal.NewNonRetryableApplicationError("workflow not found", relay.ErrTypeNotification, nil)).Once()

		s.env.ExecuteWorkflow(opening.WorkflowType, s.input())

		s.True(s.env.IsWorkflowCompleted())
		var appErr *temporal.ApplicationError
		s.Require().True(errors.As(s.env.GetWorkflowError(), &appErr))
		s.Equal(relay.ErrTypeNotification, appErr.Type())
	})

	s.Run("negative balance", func() {
		s.newEnv(opening.DefaultSettings())
		in := s.input()
		in.InitialAmount = -5
		s.signalAt(time.Minute, opening.SignalVerifyKyc)
		s.signalAt(2*time.Minute, opening.SignalComplianceApproved)

		s.env.ExecuteWorkflow(opening.WorkflowType, in)

		s.True(s.env.IsWorkflowCompleted())
		var appErr *temporal.ApplicationError
		s.Require().True(errors.As(s.env.GetWorkflowError(), &appErr))
		s.Equal(accounts.ErrTypeInvalidBalance, appErr.Type())
	})
}

func (s *WorkflowSuite) TestNilReceiptReportsFailure() {
	s.env.OnActivity(accounts.ActivityOpenInvestment, mock.Anything, mock.Anything).
		Return((*accounts.Receipt)(nil), nil).Once()
	s.signalAt(time.Minute, opening.SignalVerifyKyc)
	s.signalAt(2*time.Minute, opening.SignalComplianceApproved)

	s.env.ExecuteWorkflow(opening.WorkflowType, s.input())

	result := s.result()
	s.False(result.AccountCreated)
	s.Equal(opening.MessageFailed, result.Message)
}

func (s *WorkflowSuite) TestOpenInvestmentReceivesAccountRecord() {
	s.env.OnActivity(accounts.ActivityOpenInvestment, mock.Anything,
		accounts.InvestmentAccount{ClientID: "123", Name: "401K", Balance: 1000}).
		Return(&accounts.Receipt{InvestmentID: "i-12345678", Name: "401K", Balance: 1000}, nil).Once()
	s.signalAt(time.Minute, opening.SignalVerifyKyc)
	s.signalAt(2*time.Minute, opening.SignalComplianceApproved)

	s.env.ExecuteWorkflow(opening.WorkflowType, s.input())

	s.True(s.result().AccountCreated)
}

const parentWorkflowID = "supervisor-1"

func supervisorWorkflow(ctx workflow.Context, input opening.OpenAccountInput) (*opening.OpenAccountResult, error) {
	future, _, err := opening.StartChild(ctx, input)
	if err != nil {
		return nil, err
	}
	var result opening.OpenAccountResult
	if err := future.Get(ctx, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (s *WorkflowSuite) TestChildRelaysToParent() {
	s.env.RegisterWorkflowWithOptions(supervisorWorkflow, workflow.RegisterOptions{Name: "Supervisor"})
	s.env.SetStartWorkflowOptions(client.StartWorkflowOptions{ID: parentWorkflowID})

	childID := opening.ChildWorkflowID(parentWorkflowID, "123", "401K")
	s.Equal("OpenAccount-supervisor-1-123-401K", childID)

	s.env.RegisterDelayedCallback(func() {
		s.NoError(s.env.SignalWorkflowByID(childID, opening.SignalVerifyKyc, nil))
	}, time.Minute)
	s.env.RegisterDelayedCallback(func() {
		s.NoError(s.env.SignalWorkflowByID(childID, opening.SignalComplianceApproved, nil))
	}, 2*time.Minute)

	s.env.ExecuteWorkflow("Supervisor", s.input())

	s.True(s.result().AccountCreated)
	s.Equal([]string{"WaitingKyc", "WaitingCompliance", "Creating", "Completed"}, s.states())
	for _, n := range s.notified {
		s.Equal(parentWorkflowID, n.target)
	}
}

func stateCollector(ctx workflow.Context, want int) ([]opening.UpdateAccountOpeningStateInput, error) {
	ch := opening.StateUpdates(ctx)
	var got []opening.UpdateAccountOpeningStateInput
	for len(got) < want {
		var update opening.UpdateAccountOpeningStateInput
		ch.Receive(ctx, &update)
		got = append(got, update)
	}
	return got, nil
}

func (s *WorkflowSuite) TestStateUpdatesDecodeRelayBody() {
	s.env.RegisterWorkflowWithOptions(stateCollector, workflow.RegisterOptions{Name: "StateCollector"})
	s.env.RegisterDelayedCallback(func() {
		s.env.SignalWorkflow(relay.SignalUpdateAccountOpeningState, relay.StateUpdate{AccountName: "401K", State: "WaitingKyc"})
		s.env.SignalWorkflow(relay.SignalUpdateAccountOpeningState, relay.StateUpdate{AccountName: "401K", State: "Completed"})
	}, time.Minute)

	s.env.ExecuteWorkflow("StateCollector", 2)

	s.Require().True(s.env.IsWorkflowCompleted())
	s.Require().NoError(s.env.GetWorkflowError())
	var got []opening.UpdateAccountOpeningStateInput
	s.Require().NoError(s.env.GetWorkflowResult(&got))
	s.Equal([]opening.UpdateAccountOpeningStateInput{
		{AccountName: "401K", State: "WaitingKyc"},
		{AccountName: "401K", State: "Completed"},
	}, got)
}

type updateCallbacks struct {
	onReject   func(error)
	onComplete func(interface{}, error)
}

func (u *updateCallbacks) Accept() {}

func (u *updateCallbacks) Reject(err error) {
	if u.onReject != nil {
		u.onReject(err)
	}
}

func (u *updateCallbacks) Complete(success interface{}, err error) {
	if u.onComplete != nil {
		u.onComplete(success, err)
	}
}

func decodeUpdateResult(success interface{}, out interface{}) error {
	if v, ok := success.(converter.EncodedValue); ok {
		return v.Get(out)
	}
	data, err := json.Marshal(success)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, out)
}
