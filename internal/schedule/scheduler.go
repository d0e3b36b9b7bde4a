// Package schedule runs the batch dataset-generation job: on a configured
// cron schedule, it fires one pipeline run per prompt in
// config.SchedulerConfig.Prompts. Scaled down to a single fixed schedule
// rather than a multi-schedule/per-workflow registry, since batch
// generation only ever needs one cadence.
package schedule

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/arabicverse/qasida/internal/config"
	"github.com/arabicverse/qasida/internal/llm"
	"github.com/arabicverse/qasida/internal/services"
)

// Service runs cfg.Scheduler.Prompts through a RetryExecutor on
// cfg.Scheduler.Schedule's cron cadence.
type Service struct {
	cron   *cron.Cron
	cfg    config.SchedulerConfig
	retry  *services.RetryExecutor
	policy llm.RetryPolicy
}

// New builds a scheduler bound to retry (the RetryExecutor that actually
// runs and records each batch prompt). The cron engine always runs with
// second-level precision (cron.WithSeconds()).
func New(cfg config.SchedulerConfig, retry *services.RetryExecutor, policy llm.RetryPolicy) *Service {
	return &Service{
		cron:   cron.New(cron.WithSeconds()),
		cfg:    cfg,
		retry:  retry,
		policy: policy,
	}
}

// parseCronExpr tries 6-field (with seconds) then 5-field (standard)
// parsing, falling back to the standard form when seconds are omitted.
func parseCronExpr(expr string) (cron.Schedule, error) {
	parser6 := cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	sched, err := parser6.Parse(expr)
	if err == nil {
		return sched, nil
	}
	parser5 := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	return parser5.Parse(expr)
}

// Start registers the batch job and starts the cron engine. A no-op if
// the scheduler is disabled or carries no prompts.
func (s *Service) Start(ctx context.Context) error {
	if !s.cfg.Enabled || len(s.cfg.Prompts) == 0 {
		slog.Info("scheduler: disabled or no prompts configured, not starting")
		return nil
	}

	sched, err := parseCronExpr(s.cfg.Schedule)
	if err != nil {
		return err
	}

	s.cron.Schedule(sched, cron.FuncJob(func() {
		s.runBatch(context.Background())
	}))
	s.cron.Start()
	slog.Info("scheduler: started", "cron", s.cfg.Schedule, "prompts", len(s.cfg.Prompts))
	return nil
}

// Stop gracefully stops the cron engine, waiting for any in-flight job.
func (s *Service) Stop() {
	stopCtx := s.cron.Stop()
	<-stopCtx.Done()
	slog.Info("scheduler: stopped")
}

// runBatch fires one pipeline run per configured prompt, sequentially —
// this is a nightly/periodic dataset-generation sweep, not a
// latency-sensitive path, so there is no value in fanning these out the
// way Best-of-N fans out candidates within a single run.
func (s *Service) runBatch(ctx context.Context) {
	start := time.Now()
	slog.Info("scheduler: batch run starting", "prompts", len(s.cfg.Prompts))

	var succeeded, failed int
	for i, p := range s.cfg.Prompts {
		ref := s.cfg.Schedule
		_, err := s.retry.ExecuteWithRetry(ctx, p, s.policy, "scheduled", ref)
		if err != nil {
			failed++
			slog.Error("scheduler: batch prompt failed", "index", i, "err", err)
			continue
		}
		succeeded++
	}

	slog.Info("scheduler: batch run completed",
		"succeeded", succeeded, "failed", failed, "duration", time.Since(start))
}
