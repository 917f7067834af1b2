package mocks

import (
	"context"
	"time"

	"github.com/Harvey-AU/salesforce-account-updater/internal/cube"
	"github.com/Harvey-AU/salesforce-account-updater/internal/salesforce"
	"github.com/Harvey-AU/salesforce-account-updater/internal/updater"
	"github.com/stretchr/testify/mock"
)

// MockFetcher is a mock implementation of updater.Fetcher
type MockFetcher struct {
	mock.Mock
}

// FetchTopCompanies mocks the Cube ranking query
func (m *MockFetcher) FetchTopCompanies(ctx context.Context, asOf time.Time) ([]cube.Company, error) {
	args := m.Called(ctx, asOf)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]cube.Company), args.Error(1)
}

// MockAccounts is a mock implementation of updater.Accounts
type MockAccounts struct {
	mock.Mock
}

// FindAccountByName mocks the account lookup
func (m *MockAccounts) FindAccountByName(ctx context.Context, name string) (*salesforce.Account, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*salesforce.Account), args.Error(1)
}

// UpdateAccount mocks the partial field update
func (m *MockAccounts) UpdateAccount(ctx context.Context, id string, fields map[string]any) error {
	args := m.Called(ctx, id, fields)
	return args.Error(0)
}

// MockConnector is a mock implementation of updater.Connector
type MockConnector struct {
	mock.Mock
}

// Connect mocks the Salesforce login
func (m *MockConnector) Connect(ctx context.Context) (updater.Accounts, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(updater.Accounts), args.Error(1)
}

// MockNotifier is a mock implementation of updater.Notifier
type MockNotifier struct {
	mock.Mock
}

// Name returns the channel name
func (m *MockNotifier) Name() string {
	return "mock"
}

// NotifyRun mocks delivery of a run result
func (m *MockNotifier) NotifyRun(ctx context.Context, res updater.Result) error {
	args := m.Called(ctx, res)
	return args.Error(0)
}
