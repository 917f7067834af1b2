package updater

import (
	"time"

	"github.com/Harvey-AU/salesforce-account-updater/internal/cube"
)

// Status is the outcome of a single run.
type Status string

const (
	// StatusUpdated means the target account was written.
	StatusUpdated Status = "updated"
	// StatusConfigMissing means required settings were absent; no API was contacted.
	StatusConfigMissing Status = "config_missing"
	// StatusUpstreamError means the Cube query failed.
	StatusUpstreamError Status = "upstream_error"
	// StatusNoData means Cube answered successfully with no named companies.
	StatusNoData Status = "no_data"
	// StatusNotFound means no account matched the target name.
	StatusNotFound Status = "not_found"
	// StatusCRMError covers login, query and update failures against Salesforce.
	StatusCRMError Status = "crm_error"
)

// Trigger names what started a run.
type Trigger string

const (
	TriggerSchedule Trigger = "schedule"
	TriggerManual   Trigger = "manual"
)

// Result describes what a run did. Run never returns an error; failures are
// carried here instead.
type Result struct {
	RunID         string        `json:"run_id"`
	Trigger       Trigger       `json:"trigger"`
	Status        Status        `json:"status"`
	TargetAccount string        `json:"target_account"`
	Company       *cube.Company `json:"company,omitempty"`
	AccountID     string        `json:"account_id,omitempty"`
	Previous      int           `json:"previous"`
	Current       int           `json:"current"`
	Delta         int           `json:"delta"`
	Error         string        `json:"error,omitempty"`
	StartedAt     time.Time     `json:"started_at"`
	FinishedAt    time.Time     `json:"finished_at"`

	Err error `json:"-"`
}

// OK reports whether the account was written.
func (r Result) OK() bool {
	return r.Status == StatusUpdated
}

// Duration is the wall time of the run.
func (r Result) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

func (r *Result) fail(status Status, err error) {
	r.Status = status
	r.Err = err
	if err != nil {
		r.Error = err.Error()
	}
}
