package cube_test

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/Harvey-AU/salesforce-account-updater/internal/cube"
	"github.com/Harvey-AU/salesforce-account-updater/internal/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestFetchTopCompanies_ThroughTransport(t *testing.T) {
	rt := new(mocks.MockRoundTripper)
	rt.On("RoundTrip", mock.MatchedBy(func(req *http.Request) bool {
		return req.Method == http.MethodPost &&
			req.URL.String() == "https://analytics.example.com/cubejs-api/v1/load" &&
			req.Header.Get("Authorization") == "tok"
	})).Return(mocks.CreateMockResponse(http.StatusOK,
		`{"data":[{"product_tour_company_metrics.company_name":"Acme","product_tour_company_metrics.total_sessions":"9"}]}`,
		map[string]string{"Content-Type": "application/json"}), nil).Once()

	client := cube.New("https://analytics.example.com/cubejs-api/v1/load", "Authorization: tok",
		cube.WithHTTPClient(mocks.NewMockHTTPClient(rt)))

	companies, err := client.FetchTopCompanies(context.Background(), time.Date(2025, 3, 9, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Len(t, companies, 1)
	assert.Equal(t, "Acme", companies[0].Name)
	assert.Equal(t, 9, companies[0].Sessions)
	rt.AssertExpectations(t)
}

func TestFetchTopCompanies_TransportError(t *testing.T) {
	rt := new(mocks.MockRoundTripper)
	rt.On("RoundTrip", mock.Anything).Return(nil, errors.New("connection reset")).Once()

	client := cube.New("https://analytics.example.com/load", "tok", cube.WithHTTPClient(mocks.NewMockHTTPClient(rt)))

	_, err := client.FetchTopCompanies(context.Background(), time.Now())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection reset")
}
