package runner

import (
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/campwatch/campground-ingest/pkg/logging"
)

// Scheduler re-invokes the ingestion run on a fixed interval, starting
// after an initial delay. A tick that finds a run already active is
// skipped; the registry is the single guard against overlap.
type Scheduler struct {
	registry     *Registry
	interval     time.Duration
	initialDelay time.Duration
	logger       zerolog.Logger

	mu      sync.Mutex
	timer   *time.Timer
	cron    *cron.Cron
	entryID cron.EntryID
}

// NewScheduler creates a scheduler bound to the registry.
func NewScheduler(registry *Registry, interval, initialDelay time.Duration) *Scheduler {
	return &Scheduler{
		registry:     registry,
		interval:     interval,
		initialDelay: initialDelay,
		logger:       logging.NewLogger("scheduler"),
	}
}

// Start arms the schedule: one trigger after the initial delay, then every
// interval. Re-arming an active schedule replaces it.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopLocked()

	s.timer = time.AfterFunc(s.initialDelay, func() {
		s.trigger()

		s.mu.Lock()
		defer s.mu.Unlock()
		if s.timer == nil {
			// Stopped between the trigger and here.
			return
		}
		s.cron = cron.New()
		s.entryID = s.cron.Schedule(cron.Every(s.interval), cron.FuncJob(s.trigger))
		s.cron.Start()
	})

	s.logger.Info().
		Dur("initial_delay", s.initialDelay).
		Dur("interval", s.interval).
		Msg("Recurring ingestion scheduled")
}

// Stop disarms the schedule. The active run, if any, is not touched.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked()
}

func (s *Scheduler) stopLocked() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	if s.cron != nil {
		s.cron.Remove(s.entryID)
		s.cron.Stop()
		s.cron = nil
	}
}

// trigger starts a scheduled run, skipping the tick when one is active.
func (s *Scheduler) trigger() {
	s.logger.Info().Msg("Running scheduled ingestion")
	if err := s.registry.Start(); err != nil {
		s.logger.Warn().Err(err).Msg("Scheduled run skipped")
	}
}
