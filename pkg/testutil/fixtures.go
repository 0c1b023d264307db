package testutil

import (
	"github.com/google/uuid"

	"wealth/internal/accounts"
)

// TestIDs holds the client ids seeded into the in-memory accounts service.
var TestIDs = struct {
	ClientID1 string
	ClientID2 string
	Unknown   string
}{
	ClientID1: "123",
	ClientID2: "234",
	Unknown:   "999",
}

// ClientBuilder provides a fluent interface for building client snapshots.
type ClientBuilder struct {
	client accounts.ClientSnapshot
}

// NewClientBuilder starts from the demo client 123.
func NewClientBuilder() *ClientBuilder {
	return &ClientBuilder{
		client: accounts.ClientSnapshot{
			ClientID:      TestIDs.ClientID1,
			FirstName:     "Don",
			LastName:      "Doe",
			Address:       "123 Main Street",
			Phone:         "999-555-1212",
			Email:         "jd@someplace.com",
			MaritalStatus: "married",
		},
	}
}

func (b *ClientBuilder) WithID(clientID string) *ClientBuilder {
	b.client.ClientID = clientID
	return b
}

func (b *ClientBuilder) WithName(firstName, lastName string) *ClientBuilder {
	b.client.FirstName = firstName
	b.client.LastName = lastName
	return b
}

func (b *ClientBuilder) WithEmail(email string) *ClientBuilder {
	b.client.Email = email
	return b
}

func (b *ClientBuilder) WithMaritalStatus(status string) *ClientBuilder {
	b.client.MaritalStatus = status
	return b
}

func (b *ClientBuilder) Build() *accounts.ClientSnapshot {
	c := b.client
	return &c
}

// AccountBuilder builds investment account requests.
type AccountBuilder struct {
	account accounts.InvestmentAccount
}

// NewAccountBuilder creates a builder with a small positive balance.
func NewAccountBuilder() *AccountBuilder {
	return &AccountBuilder{
		account: accounts.InvestmentAccount{
			ClientID: TestIDs.ClientID1,
			Name:     "Retirement",
			Balance:  1000,
		},
	}
}

func (b *AccountBuilder) WithClientID(clientID string) *AccountBuilder {
	b.account.ClientID = clientID
	return b
}

func (b *AccountBuilder) WithName(name string) *AccountBuilder {
	b.account.Name = name
	return b
}

func (b *AccountBuilder) WithBalance(balance float64) *AccountBuilder {
	b.account.Balance = balance
	return b
}

func (b *AccountBuilder) Build() accounts.InvestmentAccount {
	return b.account
}

// NewTestReceipt returns a receipt matching account with a fresh investment id.
func NewTestReceipt(account accounts.InvestmentAccount) *accounts.Receipt {
	return &accounts.Receipt{
		InvestmentID: uuid.NewString(),
		Name:         account.Name,
		Balance:      account.Balance,
	}
}
