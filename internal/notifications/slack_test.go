package notifications

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Harvey-AU/salesforce-account-updater/internal/cube"
	"github.com/Harvey-AU/salesforce-account-updater/internal/updater"
	"github.com/slack-go/slack"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func webhookServer(t *testing.T, status int, got *map[string]any) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		if got != nil {
			require.NoError(t, json.NewDecoder(r.Body).Decode(got))
		}
		w.WriteHeader(status)
		_, _ = w.Write([]byte("ok"))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestSlackNotifier_NotifyRun(t *testing.T) {
	var payload map[string]any
	srv := webhookServer(t, http.StatusOK, &payload)

	n := NewSlackNotifier(srv.URL)
	err := n.NotifyRun(context.Background(), updater.Result{
		RunID:         "run-1",
		Status:        updater.StatusUpdated,
		TargetAccount: "Test",
		Company:       &cube.Company{Name: "Acme", Sessions: 42},
		Previous:      10,
		Current:       42,
	})
	require.NoError(t, err)

	assert.Equal(t, "Account Test updated: 10 -> 42", payload["text"])
	blocks, ok := payload["blocks"].([]any)
	require.True(t, ok, "blocks missing from payload")
	assert.Len(t, blocks, 3)

	raw, err := json.Marshal(payload["blocks"])
	require.NoError(t, err)
	assert.Contains(t, string(raw), "*Company*\\nAcme")
	assert.Contains(t, string(raw), "Run run-1")
}

func TestSlackNotifier_WebhookFailure(t *testing.T) {
	srv := webhookServer(t, http.StatusInternalServerError, nil)

	err := NewSlackNotifier(srv.URL).NotifyRun(context.Background(), updater.Result{Status: updater.StatusCRMError})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to post Slack webhook")
}

func TestSlackNotifier_Name(t *testing.T) {
	assert.Equal(t, "slack", NewSlackNotifier("http://example.invalid").Name())
}

func TestFallbackText(t *testing.T) {
	assert.Equal(t, "Account sync not_found: Test account not found in Salesforce",
		fallbackText(updater.Result{Status: updater.StatusNotFound, Error: "Test account not found in Salesforce"}))
}

func TestBuildMessageBlocks(t *testing.T) {
	tests := []struct {
		name      string
		res       updater.Result
		wantCount int
		wantTitle string
	}{
		{
			name:      "updated",
			res:       updater.Result{Status: updater.StatusUpdated, TargetAccount: "Test", Company: &cube.Company{Name: "Acme"}},
			wantCount: 3,
			wantTitle: ":white_check_mark: *Account Test updated*",
		},
		{
			name:      "no_data",
			res:       updater.Result{Status: updater.StatusNoData, Error: "no companies found in Cube data"},
			wantCount: 3,
			wantTitle: ":information_source: *No companies found in Cube data*",
		},
		{
			name:      "failure",
			res:       updater.Result{Status: updater.StatusUpstreamError, Error: "cube: status 500"},
			wantCount: 3,
			wantTitle: ":x: *Account sync failed (upstream_error)*",
		},
		{
			name:      "failure_without_message",
			res:       updater.Result{Status: updater.StatusCRMError},
			wantCount: 2,
			wantTitle: ":x: *Account sync failed (crm_error)*",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			blocks := buildMessageBlocks(tt.res)
			require.Len(t, blocks, tt.wantCount)

			header, ok := blocks[0].(*slack.SectionBlock)
			require.True(t, ok)
			assert.Equal(t, tt.wantTitle, header.Text.Text)

			_, ok = blocks[len(blocks)-1].(*slack.ContextBlock)
			assert.True(t, ok)
		})
	}
}
