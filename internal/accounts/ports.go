package accounts

import "context"

// ClientService looks up client records. Unknown ids return a domain error with
// CodeNotFound.
type ClientService interface {
	GetClient(ctx context.Context, clientID string) (*ClientSnapshot, error)
}

// InvestmentService creates investment accounts. A negative balance returns a
// domain error with CodeValidation. A nil receipt with a nil error means the
// account was not created.
type InvestmentService interface {
	OpenInvestment(ctx context.Context, account InvestmentAccount) (*Receipt, error)
}
