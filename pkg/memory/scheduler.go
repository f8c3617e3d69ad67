package memory

import (
	"context"
	"errors"
	"fmt"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// SchedulerConfig holds the cron expressions for background maintenance.
// An empty expression disables that job.
type SchedulerConfig struct {
	OrganizeSchedule string
	SweepSchedule    string
	SweepRepair      bool
	Logger           zerolog.Logger
}

// Scheduler runs periodic organize and consistency-sweep passes over every
// user present in the store.
type Scheduler struct {
	cron   *cron.Cron
	svc    *Service
	logger zerolog.Logger
}

// NewScheduler creates the maintenance scheduler. Jobs are registered but
// do not run until Start.
func NewScheduler(svc *Service, cfg SchedulerConfig) (*Scheduler, error) {
	if svc == nil {
		return nil, errors.New("memory service is required")
	}

	s := &Scheduler{
		cron:   cron.New(),
		svc:    svc,
		logger: cfg.Logger,
	}

	if cfg.OrganizeSchedule != "" {
		if _, err := s.cron.AddFunc(cfg.OrganizeSchedule, s.organizeAll); err != nil {
			return nil, fmt.Errorf("invalid organize schedule: %w", err)
		}
	}
	if cfg.SweepSchedule != "" {
		repair := cfg.SweepRepair
		if _, err := s.cron.AddFunc(cfg.SweepSchedule, func() { s.sweepAll(repair) }); err != nil {
			return nil, fmt.Errorf("invalid sweep schedule: %w", err)
		}
	}

	return s, nil
}

// Start begins running scheduled jobs.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info().Int("jobs", len(s.cron.Entries())).Msg("Maintenance scheduler started")
}

// Stop stops the scheduler and waits for a running job to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.logger.Info().Msg("Maintenance scheduler stopped")
}

func (s *Scheduler) organizeAll() {
	ctx := context.Background()
	users, err := s.svc.Users(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("Scheduled organize could not list users")
		return
	}

	for _, user := range users {
		summary, err := s.svc.Organize(ctx, user)
		if errors.Is(err, ErrInsufficientData) {
			continue
		}
		if err != nil {
			s.logger.Error().Str("user_id", user).Err(err).Msg("Scheduled organize failed")
			continue
		}
		s.logger.Info().Str("user_id", user).Int("clusters", len(summary.Clusters)).
			Msg("Scheduled organize finished")
	}
}

func (s *Scheduler) sweepAll(repair bool) {
	ctx := context.Background()
	users, err := s.svc.Users(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("Scheduled sweep could not list users")
		return
	}

	for _, user := range users {
		report, err := s.svc.SweepConsistency(ctx, user, repair)
		if err != nil {
			s.logger.Error().Str("user_id", user).Err(err).Msg("Scheduled sweep failed")
			continue
		}
		if !report.Clean() {
			s.logger.Warn().Str("user_id", user).
				Int("missing", len(report.Missing)).
				Int("orphaned", len(report.Orphaned)).
				Bool("repaired", report.Repaired).
				Msg("Consistency drift detected")
		}
	}
}
