// Package memory is an in-memory accounts backend seeded with demo clients.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"wealth/internal/accounts"
	dErrors "wealth/pkg/domain-errors"
)

// Service implements accounts.ClientService and accounts.InvestmentService.
type Service struct {
	mu          sync.RWMutex
	clients     map[string]accounts.ClientSnapshot
	investments map[string][]accounts.Receipt
	newID       func() string
}

var (
	_ accounts.ClientService     = (*Service)(nil)
	_ accounts.InvestmentService = (*Service)(nil)
)

// DemoClients are loaded by NewSeeded.
var DemoClients = []accounts.ClientSnapshot{
	{
		ClientID:      "123",
		FirstName:     "Don",
		LastName:      "Doe",
		Address:       "123 Main Street",
		Phone:         "999-555-1212",
		Email:         "jd@someplace.com",
		MaritalStatus: "married",
	},
	{
		ClientID:      "234",
		FirstName:     "Jane",
		LastName:      "Smith",
		Address:       "456 Oak Avenue",
		Phone:         "999-555-3434",
		Email:         "jsmith@someplace.com",
		MaritalStatus: "single",
	},
}

// New returns an empty service.
func New() *Service {
	return &Service{
		clients:     make(map[string]accounts.ClientSnapshot),
		investments: make(map[string][]accounts.Receipt),
		newID:       func() string { return "i-" + uuid.NewString()[:8] },
	}
}

// NewSeeded returns a service preloaded with DemoClients.
func NewSeeded() *Service {
	s := New()
	for _, c := range DemoClients {
		s.AddClient(c)
	}
	return s
}

// AddClient inserts or replaces a client record.
func (s *Service) AddClient(c accounts.ClientSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clients[c.ClientID] = c
}

func (s *Service) GetClient(_ context.Context, clientID string) (*accounts.ClientSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.clients[clientID]
	if !ok {
		return nil, dErrors.New(dErrors.CodeNotFound, fmt.Sprintf("client %s not found", clientID))
	}
	return &c, nil
}

func (s *Service) OpenInvestment(_ context.Context, account accounts.InvestmentAccount) (*accounts.Receipt, error) {
	if account.Balance < 0 {
		return nil, dErrors.New(dErrors.CodeValidation, "balance cannot be negative")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	existing := make(map[string]struct{}, len(s.investments[account.ClientID]))
	for _, r := range s.investments[account.ClientID] {
		existing[r.InvestmentID] = struct{}{}
	}
	id := s.newID()
	for {
		if _, taken := existing[id]; !taken {
			break
		}
		id = s.newID()
	}

	receipt := accounts.Receipt{InvestmentID: id, Name: account.Name, Balance: account.Balance}
	s.investments[account.ClientID] = append(s.investments[account.ClientID], receipt)
	return &receipt, nil
}

// Investments lists the receipts recorded for clientID.
func (s *Service) Investments(clientID string) []accounts.Receipt {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]accounts.Receipt, len(s.investments[clientID]))
	copy(out, s.investments[clientID])
	return out
}
