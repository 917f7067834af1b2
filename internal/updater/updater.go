// Package updater implements one sync run: fetch the Cube company ranking, pick
// a company at random and write its session count to the target Salesforce
// account's NumberOfEmployees field.
package updater

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"os"
	"sync"
	"time"

	"github.com/Harvey-AU/salesforce-account-updater/internal/config"
	"github.com/Harvey-AU/salesforce-account-updater/internal/cube"
	"github.com/Harvey-AU/salesforce-account-updater/internal/observability"
	"github.com/Harvey-AU/salesforce-account-updater/internal/report"
	"github.com/Harvey-AU/salesforce-account-updater/internal/salesforce"
	"github.com/getsentry/sentry-go"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/codes"
)

// DefaultTargetAccount is the account name used when none is configured.
const DefaultTargetAccount = "Test"

// FieldNumberOfEmployees is the Account field this service writes.
const FieldNumberOfEmployees = "NumberOfEmployees"

// Fetcher returns the ranked companies for a date.
type Fetcher interface {
	FetchTopCompanies(ctx context.Context, asOf time.Time) ([]cube.Company, error)
}

// Accounts reads and writes Salesforce accounts within one session.
type Accounts interface {
	FindAccountByName(ctx context.Context, name string) (*salesforce.Account, error)
	UpdateAccount(ctx context.Context, id string, fields map[string]any) error
}

// Connector opens an authenticated Salesforce session.
type Connector interface {
	Connect(ctx context.Context) (Accounts, error)
}

// ConnectorFunc adapts a function to Connector.
type ConnectorFunc func(ctx context.Context) (Accounts, error)

// Connect calls f(ctx).
func (f ConnectorFunc) Connect(ctx context.Context) (Accounts, error) {
	return f(ctx)
}

// Notifier is told about every finished run.
type Notifier interface {
	Name() string
	NotifyRun(ctx context.Context, res Result) error
}

// Updater runs the sync procedure. It holds no state between runs beyond its
// random source.
type Updater struct {
	cfg       *config.Config
	fetcher   Fetcher
	connector Connector
	notifiers []Notifier

	out io.Writer
	now func() time.Time

	rngMu sync.Mutex
	rng   *rand.Rand
}

// Option configures an Updater.
type Option func(*Updater)

// WithRand injects the random source used to pick a company.
func WithRand(r *rand.Rand) Option {
	return func(u *Updater) {
		u.rng = r
	}
}

// WithSeed makes company selection deterministic.
func WithSeed(seed uint64) Option {
	return WithRand(rand.New(rand.NewPCG(seed, seed)))
}

// WithOutput redirects the console report, os.Stdout by default.
func WithOutput(w io.Writer) Option {
	return func(u *Updater) {
		u.out = w
	}
}

// WithClock replaces time.Now, used to derive "yesterday".
func WithClock(now func() time.Time) Option {
	return func(u *Updater) {
		u.now = now
	}
}

// WithNotifier adds a notifier that receives every run result.
func WithNotifier(n Notifier) Option {
	return func(u *Updater) {
		if n != nil {
			u.notifiers = append(u.notifiers, n)
		}
	}
}

// New creates an Updater.
func New(cfg *config.Config, fetcher Fetcher, connector Connector, opts ...Option) *Updater {
	u := &Updater{
		cfg:       cfg,
		fetcher:   fetcher,
		connector: connector,
		out:       os.Stdout,
		now:       time.Now,
		rng:       rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
	}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

func (u *Updater) targetAccount() string {
	if u.cfg != nil && u.cfg.TargetAccountName != "" {
		return u.cfg.TargetAccountName
	}
	return DefaultTargetAccount
}

// Run performs one sync. It never returns an error and never panics; the
// outcome, including any failure, is described by the returned Result.
func (u *Updater) Run(ctx context.Context, trigger Trigger) (res Result) {
	res = Result{
		RunID:         uuid.NewString(),
		Trigger:       trigger,
		TargetAccount: u.targetAccount(),
		StartedAt:     u.now().UTC(),
	}

	if u.cfg != nil && u.cfg.RunTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, u.cfg.RunTimeout)
		defer cancel()
	}

	ctx, span := observability.StartRunSpan(ctx, observability.RunSpanInfo{
		RunID:         res.RunID,
		Trigger:       string(trigger),
		TargetAccount: res.TargetAccount,
	})
	defer span.End()

	logger := log.With().Str("run_id", res.RunID).Str("trigger", string(trigger)).Logger()

	defer func() {
		if p := recover(); p != nil {
			res.fail(StatusCRMError, fmt.Errorf("panic during run: %v", p))
		}
		res.FinishedAt = u.now().UTC()

		if !res.OK() {
			span.SetStatus(codes.Error, string(res.Status))
			if res.Err != nil {
				span.RecordError(res.Err)
			}
		}
		u.finish(ctx, logger, res)
	}()

	u.printf("\nStarting update at: %s\n%s\n", res.StartedAt.Format(time.RFC3339), report.Rule)

	u.execute(ctx, logger, &res)
	return res
}

func (u *Updater) execute(ctx context.Context, logger zerolog.Logger, res *Result) {
	if u.cfg == nil {
		res.fail(StatusConfigMissing, config.ErrMissingConfig)
		return
	}
	if err := u.cfg.Validate(); err != nil {
		res.fail(StatusConfigMissing, err)
		return
	}

	accounts, err := u.connector.Connect(ctx)
	if err != nil {
		res.fail(StatusCRMError, fmt.Errorf("failed to connect to Salesforce: %w", err))
		return
	}

	asOf := cube.Yesterday(u.now())
	companies, err := u.fetcher.FetchTopCompanies(ctx, asOf)
	if err != nil {
		res.fail(StatusUpstreamError, fmt.Errorf("failed to fetch companies from Cube: %w", err))
		return
	}
	u.print(report.CompanyReport(asOf.Format("2006-01-02"), companies))

	if len(companies) == 0 {
		res.fail(StatusNoData, errors.New("no companies found in Cube data"))
		return
	}

	selected := u.pick(companies)
	res.Company = &selected
	u.print(report.SourceData(selected))
	logger.Info().
		Str("company", selected.Name).
		Int("sessions", selected.Sessions).
		Int("candidates", len(companies)).
		Msg("Selected company")

	account, err := accounts.FindAccountByName(ctx, res.TargetAccount)
	if errors.Is(err, salesforce.ErrNotFound) {
		res.fail(StatusNotFound, fmt.Errorf("%s account not found in Salesforce", res.TargetAccount))
		return
	}
	if err != nil {
		res.fail(StatusCRMError, err)
		return
	}

	res.AccountID = account.ID
	res.Previous = account.Employees()
	res.Current = selected.Sessions
	res.Delta = res.Current - res.Previous
	u.print("\n" + report.UpdateDetails(res.TargetAccount, res.Previous, res.Current))

	if err := accounts.UpdateAccount(ctx, account.ID, map[string]any{
		FieldNumberOfEmployees: res.Current,
	}); err != nil {
		res.fail(StatusCRMError, err)
		return
	}

	res.Status = StatusUpdated
}

// pick selects one company uniformly at random.
func (u *Updater) pick(companies []cube.Company) cube.Company {
	u.rngMu.Lock()
	defer u.rngMu.Unlock()
	return companies[u.rng.IntN(len(companies))]
}

func (u *Updater) finish(ctx context.Context, logger zerolog.Logger, res Result) {
	observability.RecordRun(ctx, observability.RunMetrics{
		Status:   string(res.Status),
		Trigger:  string(res.Trigger),
		Duration: res.Duration(),
	})

	switch res.Status {
	case StatusUpdated:
		u.printf("\nUpdate Summary:\n%s\nStatus:     Success\nTimestamp:  %s\n%s\n",
			report.SubRule, res.FinishedAt.Format(time.RFC3339), report.Rule)
		logger.Info().
			Str("account_id", res.AccountID).
			Str("company", res.Company.Name).
			Int("previous", res.Previous).
			Int("current", res.Current).
			Str("delta", report.Delta(res.Previous, res.Current)).
			Dur("duration", res.Duration()).
			Msg("Account updated")
	case StatusNoData:
		logger.Warn().Msg("No companies found in Cube data, skipping update")
	default:
		u.printf("\nError: %s\n%s\n", res.Error, report.Rule)
		logger.Error().
			Err(res.Err).
			Str("status", string(res.Status)).
			Str("account", res.TargetAccount).
			Msg("Account sync failed")

		if res.Status != StatusConfigMissing && res.Err != nil {
			sentry.WithScope(func(scope *sentry.Scope) {
				scope.SetTag("run_status", string(res.Status))
				scope.SetTag("run_id", res.RunID)
				sentry.CaptureException(res.Err)
			})
		}
	}

	// Deliver even when the run itself timed out
	notifyCtx := context.WithoutCancel(ctx)
	for _, n := range u.notifiers {
		if err := n.NotifyRun(notifyCtx, res); err != nil {
			logger.Warn().Err(err).Str("channel", n.Name()).Msg("Failed to deliver run notification")
		}
	}
}

func (u *Updater) print(s string) {
	_, _ = io.WriteString(u.out, s)
}

func (u *Updater) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(u.out, format, args...)
}
