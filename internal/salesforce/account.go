package salesforce

import (
	"context"
	"fmt"
)

const sobjectAccount = "Account"

// Account is the subset of the Account sObject this service reads and writes.
type Account struct {
	ID                string `json:"Id"`
	Name              string `json:"Name"`
	NumberOfEmployees *int   `json:"NumberOfEmployees,omitempty"`
}

// Employees returns NumberOfEmployees, treating a null field as zero.
func (a *Account) Employees() int {
	if a == nil || a.NumberOfEmployees == nil {
		return 0
	}
	return *a.NumberOfEmployees
}

// FindAccountByName returns the first Account whose Name equals name exactly,
// or ErrNotFound.
func (s *Session) FindAccountByName(ctx context.Context, name string) (*Account, error) {
	soql := fmt.Sprintf("SELECT Id, Name, NumberOfEmployees FROM Account WHERE Name = '%s'", EscapeSOQL(name))

	var accounts []Account
	if _, err := s.Query(ctx, soql, &accounts); err != nil {
		return nil, fmt.Errorf("failed to query account %q: %w", name, err)
	}
	if len(accounts) == 0 {
		return nil, ErrNotFound
	}
	return &accounts[0], nil
}

// FirstAccount returns any one Account, used to verify connectivity.
func (s *Session) FirstAccount(ctx context.Context) (*Account, error) {
	var accounts []Account
	if _, err := s.Query(ctx, "SELECT Id, Name FROM Account LIMIT 1", &accounts); err != nil {
		return nil, fmt.Errorf("failed to query accounts: %w", err)
	}
	if len(accounts) == 0 {
		return nil, ErrNotFound
	}
	return &accounts[0], nil
}

// UpdateAccount applies a partial field update to the Account with the given ID.
func (s *Session) UpdateAccount(ctx context.Context, id string, fields map[string]any) error {
	if err := s.Update(ctx, sobjectAccount, id, fields); err != nil {
		return fmt.Errorf("failed to update account %s: %w", id, err)
	}
	return nil
}
