// Package accounts holds the wealth-management collaborators used while opening an
// investment account: client lookup and investment account creation.
package accounts

// ClientSnapshot is the client record fetched once per account opening.
type ClientSnapshot struct {
	ClientID      string `json:"client_id"`
	FirstName     string `json:"first_name"`
	LastName      string `json:"last_name"`
	Address       string `json:"address"`
	Phone         string `json:"phone"`
	Email         string `json:"email"`
	MaritalStatus string `json:"marital_status"`
}

// InvestmentAccount is the account creation request.
type InvestmentAccount struct {
	ClientID string  `json:"client_id"`
	Name     string  `json:"name"`
	Balance  float64 `json:"balance"`
}

// Receipt is returned by the investment service after an account is created.
type Receipt struct {
	InvestmentID string  `json:"investment_id"`
	Name         string  `json:"name"`
	Balance      float64 `json:"balance"`
}
