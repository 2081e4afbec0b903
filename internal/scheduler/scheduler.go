package scheduler

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/khasanov/eventbot/config"
	"github.com/khasanov/eventbot/internal/mirror"
	"github.com/khasanov/eventbot/internal/reminder"
)

// Scheduler drives the two recurring jobs: the reminder scan on a fixed
// interval and the daily mirror housekeeping pass. Jobs run in the
// deployment time zone; a scan that outruns its interval makes the next
// tick skip rather than overlap.
type Scheduler struct {
	cron   *cron.Cron
	cfg    *config.Config
	engine *reminder.Engine
	mirror *mirror.Mirror
}

func New(cfg *config.Config, engine *reminder.Engine, m *mirror.Mirror) *Scheduler {
	c := cron.New(
		cron.WithLocation(cfg.Timezone),
		cron.WithChain(
			cron.Recover(cron.DefaultLogger),
			cron.SkipIfStillRunning(cron.DefaultLogger),
		),
	)

	return &Scheduler{
		cron:   c,
		cfg:    cfg,
		engine: engine,
		mirror: m,
	}
}

func (s *Scheduler) Start(ctx context.Context) error {
	scanSpec := fmt.Sprintf("@every %s", s.cfg.ScanInterval)
	if _, err := s.cron.AddFunc(scanSpec, s.runScan); err != nil {
		return fmt.Errorf("add reminder scan: %w", err)
	}

	parts := strings.SplitN(s.cfg.HousekeepingTime, ":", 2)
	houseSpec := fmt.Sprintf("%s %s * * *", parts[1], parts[0])
	if _, err := s.cron.AddFunc(houseSpec, s.runHousekeeping); err != nil {
		return fmt.Errorf("add housekeeping: %w", err)
	}

	s.cron.Start()
	log.Printf("Scheduler started (TZ: %s, scan every %s, housekeeping at %s)",
		s.cfg.Timezone, s.cfg.ScanInterval, s.cfg.HousekeepingTime)

	<-ctx.Done()
	return nil
}

func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	log.Println("Scheduler stopped")
}

// runScan never lets an engine error escape: a failed scan is simply
// retried on the next tick.
func (s *Scheduler) runScan() {
	if err := s.engine.Scan(); err != nil {
		log.Printf("Reminder scan failed: %v", err)
	}
}

// runHousekeeping re-marks past mirror entries once a day. The mirror is
// its own failure domain: nothing here touches reminder delivery.
func (s *Scheduler) runHousekeeping() {
	if s.mirror == nil || !s.mirror.IsConfigured() {
		return
	}
	if err := s.mirror.ReorganizePast(time.Now().In(s.cfg.Timezone)); err != nil {
		log.Printf("Mirror housekeeping failed: %v", err)
	}
}
