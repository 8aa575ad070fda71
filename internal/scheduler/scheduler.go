// Package scheduler runs periodic email report sweeps.
package scheduler

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/walletapp/wallet-service/internal/service"
)

// Scheduler periodically emails every active user their own report
type Scheduler struct {
	cron *cron.Cron
	svc  *service.Service
	log  *logrus.Logger
}

// New creates a stopped scheduler
func New(svc *service.Service, log *logrus.Logger) *Scheduler {
	return &Scheduler{cron: cron.New(), svc: svc, log: log}
}

// Start registers the sweep under the given cron expression and starts
// the cron runner.
func (s *Scheduler) Start(spec string) error {
	if _, err := s.cron.AddFunc(spec, s.run); err != nil {
		return fmt.Errorf("invalid report schedule %q: %w", spec, err)
	}
	s.cron.Start()
	s.log.Infof("Report scheduler started: %s", spec)
	return nil
}

// Stop halts the cron runner; running sweeps finish on their own
func (s *Scheduler) Stop() {
	s.cron.Stop()
}

func (s *Scheduler) run() {
	if err := s.svc.SendScheduledReports(context.Background()); err != nil {
		s.log.Errorf("Scheduled report sweep failed: %v", err)
	}
}
