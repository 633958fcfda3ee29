package services

import (
	"fmt"

	"github.com/robfig/cron/v3"

	"auction-relay/internal/domain"
	"auction-relay/pkg/logger"
)

// StatsReporter periodically logs registry counts.
type StatsReporter struct {
	cron     *cron.Cron
	registry domain.TopicRegistry
	schedule string
	log      logger.Logger
}

func NewStatsReporter(registry domain.TopicRegistry, schedule string, log logger.Logger) *StatsReporter {
	return &StatsReporter{
		cron:     cron.New(cron.WithLogger(logger.CronLogger(log))),
		registry: registry,
		schedule: schedule,
		log:      log,
	}
}

func (s *StatsReporter) Start() error {
	s.log.Info("Starting stats reporter", "schedule", s.schedule)

	if _, err := s.cron.AddFunc(s.schedule, s.report); err != nil {
		return fmt.Errorf("schedule stats job %q: %w", s.schedule, err)
	}

	s.cron.Start()
	return nil
}

// Stop waits for a running report to finish.
func (s *StatsReporter) Stop() {
	s.log.Info("Stopping stats reporter")
	<-s.cron.Stop().Done()
}

func (s *StatsReporter) report() {
	stats := s.registry.Stats()
	s.log.Info("Relay stats", "topics", stats.Topics, "connections", stats.Connections)
}
