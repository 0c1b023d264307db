package relay_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
	"go.temporal.io/api/serviceerror"
	"go.temporal.io/sdk/mocks"
	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/testsuite"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"wealth/internal/relay"
)

type RelaySuite struct {
	suite.Suite
	testsuite.WorkflowTestSuite
	client  *mocks.Client
	routing relay.Routing
	relay   *relay.Relay
}

func TestRelaySuite(t *testing.T) {
	suite.Run(t, new(RelaySuite))
}

func (s *RelaySuite) SetupTest() {
	s.client = &mocks.Client{}
	s.routing = relay.Routing{
		Address:              "localhost:7233",
		Namespace:            "default",
		TaskQueue:            "Supervisor",
		OpenAccountTaskQueue: "Supervisor",
	}
	s.relay = relay.New(s.client, s.routing,
		relay.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		relay.WithTimeout(time.Second),
	)
}

func (s *RelaySuite) TearDownTest() {
	s.client.AssertExpectations(s.T())
}

func (s *RelaySuite) TestChangeStateSignalsTarget() {
	s.client.On("SignalWorkflow", mock.Anything, "parent-1", "", relay.SignalUpdateAccountOpeningState,
		relay.StateUpdate{AccountName: "Retirement", State: "Waiting KYC"}).
		Return(nil).Once()

	err := s.relay.ChangeState(context.Background(), "parent-1", "Retirement", "Waiting KYC")
	s.NoError(err)
}

func (s *RelaySuite) TestChangeStateAppliesTimeout() {
	s.client.On("SignalWorkflow", mock.Anything, "parent-1", "", relay.SignalUpdateAccountOpeningState, mock.Anything).
		Run(func(args mock.Arguments) {
			ctx := args.Get(0).(context.Context)
			deadline, ok := ctx.Deadline()
			s.True(ok)
			s.WithinDuration(time.Now().Add(time.Second), deadline, 100*time.Millisecond)
		}).
		Return(nil).Once()

	s.NoError(s.relay.ChangeState(context.Background(), "parent-1", "Retirement", "Creating"))
}

func (s *RelaySuite) TestFailureClassification() {
	cases := []struct {
		name         string
		err          error
		kind         relay.Kind
		nonRetryable bool
	}{
		{"workflow not found", serviceerror.NewNotFound("workflow not found"), relay.KindUnknownTarget, true},
		{"frontend unavailable", serviceerror.NewUnavailable("connection refused"), relay.KindUnavailable, false},
		{"invalid argument", serviceerror.NewInvalidArgument("bad signal name"), relay.KindInvalidRequest, true},
		{"deadline", context.DeadlineExceeded, relay.KindTimeout, false},
		{"grpc deadline status", status.Error(codes.DeadlineExceeded, "deadline"), relay.KindTimeout, false},
		{"wrapped not found", fmt.Errorf("signal: %w", serviceerror.NewNotFound("gone")), relay.KindUnknownTarget, true},
		{"unknown", errors.New("boom"), relay.KindInternal, false},
	}
	for _, tc := range cases {
		s.Run(tc.name, func() {
			c := &mocks.Client{}
			c.On("SignalWorkflow", mock.Anything, "parent-1", "", relay.SignalUpdateAccountOpeningState, mock.Anything).
				Return(tc.err).Once()
			r := relay.New(c, s.routing, relay.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))

			err := r.ChangeState(context.Background(), "parent-1", "Retirement", "Completed")
			s.Require().Error(err)

			var nerr *relay.NotificationError
			s.Require().ErrorAs(err, &nerr)
			s.Equal(tc.kind, nerr.Kind)
			s.Equal("parent-1", nerr.TargetID)
			s.Equal("Retirement", nerr.AccountName)
			s.Equal("Completed", nerr.State)
			s.Equal(s.routing, nerr.Routing)
			s.ErrorIs(err, tc.err)

			var appErr *temporal.ApplicationError
			s.Require().ErrorAs(err, &appErr)
			s.Equal(relay.ErrTypeNotification, appErr.Type())
			s.Equal(tc.nonRetryable, appErr.NonRetryable())
		})
	}
}

func (s *RelaySuite) TestErrorMessageCarriesRouting() {
	nerr := &relay.NotificationError{
		Kind:        relay.KindUnavailable,
		TargetID:    "parent-1",
		AccountName: "Retirement",
		State:       "Creating",
		Routing:     relay.Routing{Address: "temporal:7233", Namespace: "wealth", CertConfigured: true},
		Err:         errors.New("refused"),
	}
	msg := nerr.Error()
	s.Contains(msg, "temporal:7233")
	s.Contains(msg, "namespace=wealth")
	s.Contains(msg, "cert_configured=true")
	s.Contains(msg, "refused")
}

func (s *RelaySuite) TestRunsAsActivity() {
	s.client.On("SignalWorkflow", mock.Anything, "parent-1", "", relay.SignalUpdateAccountOpeningState,
		relay.StateUpdate{AccountName: "Retirement", State: "Completed"}).
		Return(nil).Once()

	env := s.NewTestActivityEnvironment()
	s.relay.Register(env)

	_, err := env.ExecuteActivity(relay.ActivityChangeState, "parent-1", "Retirement", "Completed")
	s.NoError(err)
}
