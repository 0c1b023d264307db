package accounts

import (
	"context"
	"errors"

	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/temporal"

	dErrors "wealth/pkg/domain-errors"
)

const (
	ActivityGetClient      = "get_client"
	ActivityOpenInvestment = "open_investment"

	// Application error types surfaced to workflows.
	ErrTypeClientNotFound = "ClientNotFound"
	ErrTypeInvalidBalance = "InvalidBalance"
	ErrTypeRemote         = "AccountsRemoteError"
)

// ActivityRegistry is the subset of worker.Worker used to register activities.
type ActivityRegistry interface {
	RegisterActivityWithOptions(a interface{}, options activity.RegisterOptions)
}

// Activities exposes the accounts services to workflows.
type Activities struct {
	clients     ClientService
	investments InvestmentService
}

func NewActivities(clients ClientService, investments InvestmentService) *Activities {
	return &Activities{clients: clients, investments: investments}
}

// Register adds get_client and open_investment to r.
func (a *Activities) Register(r ActivityRegistry) {
	r.RegisterActivityWithOptions(a.GetClient, activity.RegisterOptions{Name: ActivityGetClient})
	r.RegisterActivityWithOptions(a.OpenInvestment, activity.RegisterOptions{Name: ActivityOpenInvestment})
}

// GetClient fetches the client snapshot for clientID.
func (a *Activities) GetClient(ctx context.Context, clientID string) (*ClientSnapshot, error) {
	logger := activity.GetLogger(ctx)
	logger.Info("fetching client", "client_id", clientID)

	client, err := a.clients.GetClient(ctx, clientID)
	if err != nil {
		logger.Warn("client lookup failed", "client_id", clientID, "error", err)
		return nil, toApplicationError(err)
	}
	return client, nil
}

// OpenInvestment creates the investment account. A nil receipt from the
// service is returned as a nil result so the workflow reports the failure.
func (a *Activities) OpenInvestment(ctx context.Context, account InvestmentAccount) (*Receipt, error) {
	logger := activity.GetLogger(ctx)
	logger.Info("opening investment account", "client_id", account.ClientID, "name", account.Name)

	if account.Balance < 0 {
		return nil, temporal.NewNonRetryableApplicationError("balance cannot be negative", ErrTypeInvalidBalance, nil)
	}
	receipt, err := a.investments.OpenInvestment(ctx, account)
	if err != nil {
		logger.Warn("open investment failed", "client_id", account.ClientID, "error", err)
		return nil, toApplicationError(err)
	}
	if receipt == nil {
		logger.Warn("investment service returned no receipt", "client_id", account.ClientID, "name", account.Name)
		return nil, nil
	}
	logger.Info("investment account opened", "client_id", account.ClientID, "investment_id", receipt.InvestmentID)
	return receipt, nil
}

// toApplicationError maps service errors onto engine retry semantics.
func toApplicationError(err error) error {
	var re *RemoteError
	switch {
	case dErrors.HasCode(err, dErrors.CodeNotFound):
		return temporal.NewNonRetryableApplicationError(err.Error(), ErrTypeClientNotFound, err)
	case dErrors.HasCode(err, dErrors.CodeValidation):
		return temporal.NewNonRetryableApplicationError(err.Error(), ErrTypeInvalidBalance, err)
	case errors.As(err, &re) && re.Category == ErrorNotFound:
		return temporal.NewNonRetryableApplicationError(err.Error(), ErrTypeClientNotFound, err)
	case errors.As(err, &re) && !re.Retryable:
		return temporal.NewNonRetryableApplicationError(err.Error(), ErrTypeRemote, err)
	case errors.As(err, &re):
		return temporal.NewApplicationErrorWithCause(err.Error(), ErrTypeRemote, err)
	default:
		return err
	}
}
