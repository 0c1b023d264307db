package accounts_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/suite"
	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/testsuite"

	"wealth/internal/accounts"
	"wealth/internal/accounts/memory"
	"wealth/pkg/testutil"
)

type ActivitiesSuite struct {
	suite.Suite
	testsuite.WorkflowTestSuite
	env     *testsuite.TestActivityEnvironment
	service *memory.Service
}

func TestActivitiesSuite(t *testing.T) {
	suite.Run(t, new(ActivitiesSuite))
}

func (s *ActivitiesSuite) SetupTest() {
	s.service = memory.NewSeeded()
	s.env = s.NewTestActivityEnvironment()
	accounts.NewActivities(s.service, s.service).Register(s.env)
}

func (s *ActivitiesSuite) TestGetClient() {
	s.Run("returns snapshot for known client", func() {
		val, err := s.env.ExecuteActivity(accounts.ActivityGetClient, testutil.TestIDs.ClientID1)
		s.Require().NoError(err)

		var got accounts.ClientSnapshot
		s.Require().NoError(val.Get(&got))
		s.Equal(*testutil.NewClientBuilder().Build(), got)
	})

	s.Run("unknown client is non-retryable", func() {
		_, err := s.env.ExecuteActivity(accounts.ActivityGetClient, testutil.TestIDs.Unknown)
		s.Require().Error(err)

		var appErr *temporal.ApplicationError
		s.Require().True(errors.As(err, &appErr))
		s.Equal(accounts.ErrTypeClientNotFound, appErr.Type())
		s.True(appErr.NonRetryable())
	})
}

func (s *ActivitiesSuite) TestOpenInvestment() {
	s.Run("creates account and returns receipt", func() {
		account := testutil.NewAccountBuilder().WithName("College Fund").WithBalance(2500).Build()

		val, err := s.env.ExecuteActivity(accounts.ActivityOpenInvestment, account)
		s.Require().NoError(err)

		var receipt accounts.Receipt
		s.Require().NoError(val.Get(&receipt))
		s.Equal("College Fund", receipt.Name)
		s.Equal(2500.0, receipt.Balance)
		s.Regexp(`^i-[0-9a-f]{8}$`, receipt.InvestmentID)
		s.Len(s.service.Investments(testutil.TestIDs.ClientID1), 1)
	})

	s.Run("negative balance is non-retryable", func() {
		account := testutil.NewAccountBuilder().WithBalance(-1).Build()

		_, err := s.env.ExecuteActivity(accounts.ActivityOpenInvestment, account)
		s.Require().Error(err)

		var appErr *temporal.ApplicationError
		s.Require().True(errors.As(err, &appErr))
		s.Equal(accounts.ErrTypeInvalidBalance, appErr.Type())
		s.True(appErr.NonRetryable())
	})
}

type noReceiptInvestments struct{}

func (noReceiptInvestments) OpenInvestment(context.Context, accounts.InvestmentAccount) (*accounts.Receipt, error) {
	return nil, nil
}

func (s *ActivitiesSuite) TestOpenInvestmentWithoutReceipt() {
	env := s.NewTestActivityEnvironment()
	accounts.NewActivities(s.service, noReceiptInvestments{}).Register(env)

	val, err := env.ExecuteActivity(accounts.ActivityOpenInvestment, testutil.NewAccountBuilder().Build())
	s.Require().NoError(err)

	receipt := &accounts.Receipt{InvestmentID: "placeholder"}
	s.Require().NoError(val.Get(&receipt))
	s.Nil(receipt)
}

type failingInvestments struct{ err error }

func (f failingInvestments) OpenInvestment(context.Context, accounts.InvestmentAccount) (*accounts.Receipt, error) {
	return nil, f.err
}

func (s *ActivitiesSuite) TestRemoteErrorRetryability() {
	cases := []struct {
		name         string
		err          error
		nonRetryable bool
	}{
		{"outage stays retryable", accounts.NewRemoteError(accounts.ErrorOutage, "open_investment", "service error: 503", nil), false},
		{"timeout stays retryable", accounts.NewRemoteError(accounts.ErrorTimeout, "open_investment", "request timeout", nil), false},
		{"bad data is final", accounts.NewRemoteError(accounts.ErrorBadData, "open_investment", "invalid request", nil), true},
		{"auth is final", accounts.NewRemoteError(accounts.ErrorAuthentication, "open_investment", "authentication failed", nil), true},
	}
	for _, tc := range cases {
		s.Run(tc.name, func() {
			env := s.NewTestActivityEnvironment()
			accounts.NewActivities(s.service, failingInvestments{err: tc.err}).Register(env)

			_, err := env.ExecuteActivity(accounts.ActivityOpenInvestment, testutil.NewAccountBuilder().Build())

			var appErr *temporal.ApplicationError
			s.Require().True(errors.As(err, &appErr))
			s.Equal(accounts.ErrTypeRemote, appErr.Type())
			s.Equal(tc.nonRetryable, appErr.NonRetryable())
		})
	}
}

func (s *ActivitiesSuite) TestRegisterUsesStableNames() {
	rec := &recordingRegistry{}
	accounts.NewActivities(s.service, s.service).Register(rec)
	s.ElementsMatch([]string{accounts.ActivityGetClient, accounts.ActivityOpenInvestment}, rec.names)
}

type recordingRegistry struct{ names []string }

func (r *recordingRegistry) RegisterActivityWithOptions(_ interface{}, options activity.RegisterOptions) {
	r.names = append(r.names, options.Name)
}
