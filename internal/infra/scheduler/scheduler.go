package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"volume_guard_worker/internal/app"
)

// Guard is the part of the volume guard driven by the schedule.
type Guard interface {
	RunTick(ctx context.Context) (app.TickSummary, error)
	ResetNotification()
}

type VolumeGuardScheduler struct {
	cronEngine    *cron.Cron
	guard         Guard
	logger        *logrus.Entry
	cronSpecTick  string
	cronSpecReset string
	tickTimeout   time.Duration
}

func NewVolumeGuardScheduler(
	guard Guard,
	logger *logrus.Entry,
	location *time.Location,
	cronSpecTick string, // e.g., "* * * * *" (every minute)
	cronSpecReset string, // e.g., "0 0 * * *" (midnight in the account zone)
	tickTimeout time.Duration,
) *VolumeGuardScheduler {
	if location == nil {
		location = time.Local
	}
	return &VolumeGuardScheduler{
		cronEngine:    cron.New(cron.WithLocation(location)),
		guard:         guard,
		logger:        logger.WithField("component", "scheduler"),
		cronSpecTick:  cronSpecTick,
		cronSpecReset: cronSpecReset,
		tickTimeout:   tickTimeout,
	}
}

// Start registers both jobs and starts the cron engine.
func (s *VolumeGuardScheduler) Start() error {
	s.logger.Info("Starting volume guard scheduler...")

	if _, err := s.cronEngine.AddFunc(s.cronSpecTick, s.runTick); err != nil {
		return fmt.Errorf("could not add evaluation tick job: %w", err)
	}
	// The reset runs on its own schedule whether or not a breach happened.
	if _, err := s.cronEngine.AddFunc(s.cronSpecReset, s.resetNotification); err != nil {
		return fmt.Errorf("could not add notification reset job: %w", err)
	}

	s.cronEngine.Start()
	s.logger.WithFields(logrus.Fields{
		"tick_spec":  s.cronSpecTick,
		"reset_spec": s.cronSpecReset,
	}).Info("Volume guard scheduler started with jobs.")
	return nil
}

func (s *VolumeGuardScheduler) runTick() {
	s.logger.Debug("Cron job triggered for evaluation tick.")
	ctx, cancel := context.WithTimeout(context.Background(), s.tickTimeout)
	defer cancel()

	if _, err := s.guard.RunTick(ctx); err != nil {
		if errors.Is(err, app.ErrTickInProgress) {
			return
		}
		s.logger.WithError(err).Error("Evaluation tick failed")
	}
}

func (s *VolumeGuardScheduler) resetNotification() {
	s.logger.Info("Cron job triggered for daily notification reset.")
	s.guard.ResetNotification()
}

func (s *VolumeGuardScheduler) Stop() {
	s.logger.Info("Stopping volume guard scheduler...")
	ctx := s.cronEngine.Stop() // Stops the scheduler from adding new jobs, waits for running jobs.
	<-ctx.Done()
	s.logger.Info("Volume guard scheduler gracefully stopped.")
}
