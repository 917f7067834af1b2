// Package scheduler triggers sync runs on a fixed hourly cadence and makes sure
// two runs never overlap.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Harvey-AU/salesforce-account-updater/internal/updater"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"
)

// Interval is the fixed time between scheduled runs.
const Interval = time.Hour

// ErrRunInProgress is returned by Trigger when another run has not finished yet.
var ErrRunInProgress = errors.New("sync run already in progress")

// Runner performs one sync run.
type Runner interface {
	Run(ctx context.Context, trigger updater.Trigger) updater.Result
}

// Scheduler owns the run loop and the single-flight guard shared by scheduled
// and manual triggers.
type Scheduler struct {
	runner   Runner
	interval time.Duration
	sem      *semaphore.Weighted

	mu   sync.RWMutex
	last *updater.Result
}

// New creates a scheduler for the given runner.
func New(runner Runner) *Scheduler {
	return &Scheduler{
		runner:   runner,
		interval: Interval,
		sem:      semaphore.NewWeighted(1),
	}
}

// Start runs immediately, then once per interval until ctx is cancelled.
func (s *Scheduler) Start(ctx context.Context) {
	log.Info().Dur("interval", s.interval).Msg("Scheduler started")

	s.tick(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("Scheduler stopped")
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

// tick runs one scheduled sync and swallows every failure after logging it.
func (s *Scheduler) tick(ctx context.Context) {
	defer func() {
		if p := recover(); p != nil {
			log.Error().Str("panic", fmt.Sprint(p)).Msg("Error in scheduled update")
		}
	}()

	res, err := s.Trigger(ctx, updater.TriggerSchedule)
	if errors.Is(err, ErrRunInProgress) {
		log.Warn().Msg("Previous run still in progress, skipping scheduled run")
		return
	}
	if err != nil {
		log.Error().Err(err).Msg("Error in scheduled update")
		return
	}

	log.Debug().
		Str("run_id", res.RunID).
		Str("status", string(res.Status)).
		Dur("duration", res.Duration()).
		Msg("Scheduled run finished")
}

// Trigger runs the sync now unless a run is already in flight.
func (s *Scheduler) Trigger(ctx context.Context, trigger updater.Trigger) (updater.Result, error) {
	if !s.sem.TryAcquire(1) {
		return updater.Result{}, ErrRunInProgress
	}
	defer s.sem.Release(1)

	res := s.runner.Run(ctx, trigger)

	s.mu.Lock()
	s.last = &res
	s.mu.Unlock()

	return res, nil
}

// LastResult returns the most recent finished run, if any.
func (s *Scheduler) LastResult() (updater.Result, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.last == nil {
		return updater.Result{}, false
	}
	return *s.last, true
}
