package service

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	promtestutil "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
	enumspb "go.temporal.io/api/enums/v1"
	"go.temporal.io/api/serviceerror"
	workflowpb "go.temporal.io/api/workflow/v1"
	"go.temporal.io/api/workflowservice/v1"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/mocks"
	"go.temporal.io/sdk/temporal"

	"wealth/internal/accounts"
	"wealth/internal/opening"
	"wealth/internal/platform/metrics"
	dErrors "wealth/pkg/domain-errors"
	"wealth/pkg/testutil"
)

const (
	testQueue      = "Supervisor"
	testWorkflowID = "OpenAccount-fixed"
)

type ServiceSuite struct {
	suite.Suite
	client  *mocks.Client
	service *Service
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.client = &mocks.Client{}
	s.service = New(s.client, testQueue, WithIDGenerator(func() string { return "fixed" }))
}

func (s *ServiceSuite) TearDownTest() {
	s.client.AssertExpectations(s.T())
}

func (s *ServiceSuite) TestStart() {
	s.Run("starts the workflow on the task queue", func() {
		s.SetupTest()
		input := opening.OpenAccountInput{ClientID: "123", AccountName: "Retirement", InitialAmount: 1000}
		run := &mocks.WorkflowRun{}
		run.On("GetID").Return(testWorkflowID)
		run.On("GetRunID").Return("run-1")

		s.client.On("ExecuteWorkflow", mock.Anything,
			mock.MatchedBy(func(o client.StartWorkflowOptions) bool {
				return o.ID == testWorkflowID && o.TaskQueue == testQueue
			}),
			opening.WorkflowType, input,
		).Return(run, nil).Once()

		id, err := s.service.Start(context.Background(), opening.OpenAccountInput{ClientID: " 123 ", AccountName: "Retirement ", InitialAmount: 1000})
		s.Require().NoError(err)
		s.Equal(testWorkflowID, id)
	})

	s.Run("rejects invalid input before calling the engine", func() {
		s.SetupTest()
		for _, in := range []opening.OpenAccountInput{
			{AccountName: "Retirement"},
			{ClientID: "123"},
			{ClientID: "123", AccountName: "Retirement", InitialAmount: -1},
		} {
			_, err := s.service.Start(context.Background(), in)
			s.True(dErrors.HasCode(err, dErrors.CodeValidation), "%+v", in)
		}
	})

	s.Run("already started is a conflict", func() {
		s.SetupTest()
		s.client.On("ExecuteWorkflow", mock.Anything, mock.Anything, opening.WorkflowType, mock.Anything).
			Return(nil, serviceerror.NewWorkflowExecutionAlreadyStarted("exists", "", "run-0")).Once()

		_, err := s.service.Start(context.Background(), opening.OpenAccountInput{ClientID: "123", AccountName: "Retirement"})
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})
}

func (s *ServiceSuite) TestState() {
	s.Run("decodes the query result", func() {
		s.SetupTest()
		value := &mocks.EncodedValue{}
		value.On("Get", mock.Anything).Run(func(args mock.Arguments) {
			*(args.Get(0).(*string)) = string(opening.StateWaitingCompliance)
		}).Return(nil)
		s.client.On("QueryWorkflow", mock.Anything, testWorkflowID, "", opening.QueryGetCurrentState).
			Return(value, nil).Once()

		state, err := s.service.State(context.Background(), testWorkflowID)
		s.Require().NoError(err)
		s.Equal(opening.StateWaitingCompliance, state)
	})

	s.Run("unknown workflow is not found", func() {
		s.SetupTest()
		s.client.On("QueryWorkflow", mock.Anything, "missing", "", opening.QueryGetCurrentState).
			Return(nil, serviceerror.NewNotFound("workflow not found")).Once()

		_, err := s.service.State(context.Background(), "missing")
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("engine unavailable", func() {
		s.SetupTest()
		s.client.On("QueryWorkflow", mock.Anything, testWorkflowID, "", opening.QueryGetCurrentState).
			Return(nil, serviceerror.NewUnavailable("frontend down")).Once()

		_, err := s.service.State(context.Background(), testWorkflowID)
		s.True(dErrors.HasCode(err, dErrors.CodeUnavailable))
	})
}

func (s *ServiceSuite) TestClientDetails() {
	s.Run("waits for the update to complete", func() {
		s.SetupTest()
		snapshot := testutil.NewClientBuilder().Build()
		handle := &mocks.WorkflowUpdateHandle{}
		handle.On("Get", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
			*(args.Get(1).(**accounts.ClientSnapshot)) = snapshot
		}).Return(nil)
		s.client.On("UpdateWorkflow", mock.Anything, mock.MatchedBy(func(o client.UpdateWorkflowOptions) bool {
			return o.WorkflowID == testWorkflowID &&
				o.UpdateName == opening.UpdateGetClientDetails &&
				o.WaitForStage == client.WorkflowUpdateStageCompleted
		})).Return(handle, nil).Once()

		got, err := s.service.ClientDetails(context.Background(), testWorkflowID)
		s.Require().NoError(err)
		s.Equal(snapshot, got)
	})

	s.Run("context deadline is a timeout", func() {
		s.SetupTest()
		s.client.On("UpdateWorkflow", mock.Anything, mock.Anything).
			Return(nil, context.DeadlineExceeded).Once()

		_, err := s.service.ClientDetails(context.Background(), testWorkflowID)
		s.True(dErrors.HasCode(err, dErrors.CodeTimeout))
	})
}

func (s *ServiceSuite) TestUpdateClientDetailsIsNotImplemented() {
	handle := &mocks.WorkflowUpdateHandle{}
	handle.On("Get", mock.Anything, mock.Anything).
		Return(temporal.NewNonRetryableApplicationError("update_client_details is not implemented", opening.ErrTypeNotImplemented, nil))
	changes := map[string]any{"email": "don@example.com"}
	s.client.On("UpdateWorkflow", mock.Anything, mock.MatchedBy(func(o client.UpdateWorkflowOptions) bool {
		return o.UpdateName == opening.UpdateUpdateClientDetails && len(o.Args) == 1
	})).Return(handle, nil).Once()

	err := s.service.UpdateClientDetails(context.Background(), testWorkflowID, changes)
	s.True(dErrors.HasCode(err, dErrors.CodeNotImplemented))
}

func (s *ServiceSuite) TestSignals() {
	s.Run("verify kyc", func() {
		s.SetupTest()
		s.client.On("SignalWorkflow", mock.Anything, testWorkflowID, "", opening.SignalVerifyKyc, nil).Return(nil).Once()
		s.NoError(s.service.VerifyKyc(context.Background(), testWorkflowID))
	})

	s.Run("approve compliance", func() {
		s.SetupTest()
		s.client.On("SignalWorkflow", mock.Anything, testWorkflowID, "", opening.SignalComplianceApproved, nil).Return(nil).Once()
		s.NoError(s.service.ApproveCompliance(context.Background(), testWorkflowID))
	})

	s.Run("completed workflow cannot be signalled", func() {
		s.SetupTest()
		s.client.On("SignalWorkflow", mock.Anything, "done", "", opening.SignalVerifyKyc, nil).
			Return(serviceerror.NewNotFound("workflow execution already completed")).Once()
		err := s.service.VerifyKyc(context.Background(), "done")
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("unexpected failure is internal", func() {
		s.SetupTest()
		s.client.On("SignalWorkflow", mock.Anything, testWorkflowID, "", opening.SignalVerifyKyc, nil).
			Return(errors.New("boom")).Once()
		err := s.service.VerifyKyc(context.Background(), testWorkflowID)
		s.True(dErrors.HasCode(err, dErrors.CodeInternal))
	})
}

func describe(status enumspb.WorkflowExecutionStatus) *workflowservice.DescribeWorkflowExecutionResponse {
	return &workflowservice.DescribeWorkflowExecutionResponse{
		WorkflowExecutionInfo: &workflowpb.WorkflowExecutionInfo{Status: status},
	}
}

func (s *ServiceSuite) TestResult() {
	s.Run("running workflow is a conflict", func() {
		s.SetupTest()
		s.client.On("DescribeWorkflowExecution", mock.Anything, testWorkflowID, "").
			Return(describe(enumspb.WORKFLOW_EXECUTION_STATUS_RUNNING), nil).Once()

		_, err := s.service.Result(context.Background(), testWorkflowID)
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
		s.client.AssertNotCalled(s.T(), "GetWorkflow", mock.Anything, mock.Anything, mock.Anything)
	})

	s.Run("completed workflow returns its result", func() {
		s.SetupTest()
		run := &mocks.WorkflowRun{}
		run.On("Get", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
			*(args.Get(1).(*opening.OpenAccountResult)) = opening.OpenAccountResult{AccountCreated: true, Message: opening.MessageCreated}
		}).Return(nil)
		s.client.On("DescribeWorkflowExecution", mock.Anything, testWorkflowID, "").
			Return(describe(enumspb.WORKFLOW_EXECUTION_STATUS_COMPLETED), nil).Once()
		s.client.On("GetWorkflow", mock.Anything, testWorkflowID, "").Return(run).Once()

		got, err := s.service.Result(context.Background(), testWorkflowID)
		s.Require().NoError(err)
		s.True(got.AccountCreated)
		s.Equal(opening.MessageCreated, got.Message)
	})

	s.Run("failed workflow maps its application error", func() {
		s.SetupTest()
		run := &mocks.WorkflowRun{}
		run.On("Get", mock.Anything, mock.Anything).
			Return(temporal.NewNonRetryableApplicationError("client 999 not found", accounts.ErrTypeClientNotFound, nil))
		s.client.On("DescribeWorkflowExecution", mock.Anything, testWorkflowID, "").
			Return(describe(enumspb.WORKFLOW_EXECUTION_STATUS_FAILED), nil).Once()
		s.client.On("GetWorkflow", mock.Anything, testWorkflowID, "").Return(run).Once()

		_, err := s.service.Result(context.Background(), testWorkflowID)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
		s.Contains(err.Error(), "client 999 not found")
	})
}

func (s *ServiceSuite) TestMetrics() {
	m := metrics.New(prometheus.NewRegistry())
	svc := New(s.client, testQueue, WithMetrics(m), WithIDGenerator(func() string { return "fixed" }))

	run := &mocks.WorkflowRun{}
	run.On("GetID").Return(testWorkflowID)
	run.On("GetRunID").Return("run-1")
	s.client.On("ExecuteWorkflow", mock.Anything, mock.Anything, opening.WorkflowType, mock.Anything).Return(run, nil).Once()
	s.client.On("SignalWorkflow", mock.Anything, testWorkflowID, "", opening.SignalVerifyKyc, nil).Return(nil).Once()
	s.client.On("QueryWorkflow", mock.Anything, "missing", "", opening.QueryGetCurrentState).
		Return(nil, serviceerror.NewNotFound("workflow not found")).Once()

	_, err := svc.Start(context.Background(), opening.OpenAccountInput{ClientID: "123", AccountName: "Retirement"})
	s.Require().NoError(err)
	s.Require().NoError(svc.VerifyKyc(context.Background(), testWorkflowID))
	_, err = svc.State(context.Background(), "missing")
	s.Require().Error(err)

	s.Equal(1.0, promtestutil.ToFloat64(m.OpeningsStarted))
	s.Equal(1.0, promtestutil.ToFloat64(m.SignalsSent.WithLabelValues(opening.SignalVerifyKyc)))
	s.Equal(1.0, promtestutil.ToFloat64(m.EngineErrors.WithLabelValues("query state", string(dErrors.CodeNotFound))))
}
