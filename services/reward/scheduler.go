package reward

import (
	"context"
	"fmt"
	"time"

	"bakimla-reward/pkg/config"
	"bakimla-reward/pkg/db/option"
	"bakimla-reward/pkg/repository"
	"bakimla-reward/pkg/sequence"
	"bakimla-reward/pkg/task"
	"bakimla-reward/pkg/taskname"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

const reconcileBatchSize = 250

// Reconciler fans the nightly reconciliation out as one task per company.
type Reconciler struct {
	node     *snowflake.Node
	rewards  repository.Repository[Reward]
	jobs     repository.Repository[Job]
	sequence sequence.Generator
	enqueuer task.Enqueuer
	now      func() time.Time
}

type ReconcilerParams struct {
	fx.In
	DB       *gorm.DB
	Node     *snowflake.Node
	Sequence sequence.Generator
	Enqueuer task.Enqueuer
}

func NewReconciler(p ReconcilerParams) *Reconciler {
	return &Reconciler{
		node:     p.Node,
		rewards:  repository.ProvideStore[Reward](p.DB),
		jobs:     repository.ProvideStore[Job](p.DB),
		sequence: p.Sequence,
		enqueuer: p.Enqueuer,
		now:      time.Now,
	}
}

// EnqueueCompany records a pending job for the company and enqueues its task.
func (r *Reconciler) EnqueueCompany(ctx context.Context, companyID string) error {
	reference, err := r.sequence.NextJobCode(ctx)
	if err != nil {
		return fmt.Errorf("generate job reference: %w", err)
	}

	job := &Job{
		ID:        r.node.Generate().String(),
		Task:      taskname.RewardReconcile,
		CompanyID: companyID,
		Reference: reference,
		Status:    JobPending,
		CreatedAt: r.now(),
	}
	if err := r.jobs.Create(ctx, job); err != nil {
		return fmt.Errorf("create reconcile job: %w", err)
	}

	t, err := NewReconcileTask(ReconcilePayload{CompanyID: companyID, JobID: job.ID})
	if err != nil {
		return err
	}

	if _, err := r.enqueuer.Enqueue(ctx, t); err != nil {
		reconcileJobs.WithLabelValues(string(JobFailed)).Inc()
		if uerr := r.jobs.Update(ctx, job.ID, map[string]any{
			"status":    JobFailed,
			"error_msg": err.Error(),
		}); uerr != nil {
			zap.L().Warn("failed to mark reconcile job failed", zap.String("job_id", job.ID), zap.Error(uerr))
		}
		return err
	}

	reconcileJobs.WithLabelValues(string(JobPending)).Inc()
	zap.L().Debug("enqueued reconcile job",
		zap.String("company_id", companyID),
		zap.String("job_id", job.ID),
		zap.String("reference", reference),
	)
	return nil
}

// ReconcileAll walks every snapshot in id order and enqueues its company.
// It returns the number of companies enqueued; individual failures are logged.
func (r *Reconciler) ReconcileAll(ctx context.Context) (int, error) {
	cursor := ""
	total := 0

	for {
		var conds []option.Condition
		if cursor != "" {
			conds = append(conds, option.Condition{Field: "id", Operator: option.GT, Value: cursor})
		}

		batch, err := r.rewards.Find(ctx, &Reward{},
			option.ApplyOperator(conds...),
			option.WithSortBy(option.QuerySortBy{SortBy: "id", OrderBy: "asc"}),
			option.WithLimit(reconcileBatchSize),
		)
		if err != nil {
			return total, fmt.Errorf("list rewards: %w", err)
		}
		if len(batch) == 0 {
			break
		}

		var g errgroup.Group
		g.SetLimit(10)
		enqueued := make([]bool, len(batch))
		for i, rw := range batch {
			g.Go(func() error {
				if err := r.EnqueueCompany(ctx, rw.CompanyID); err != nil {
					zap.L().Error("failed enqueue reconcile job", zap.String("company_id", rw.CompanyID), zap.Error(err))
					return nil
				}
				enqueued[i] = true
				return nil
			})
		}
		_ = g.Wait()

		for _, ok := range enqueued {
			if ok {
				total++
			}
		}

		if len(batch) < reconcileBatchSize {
			break
		}
		cursor = batch[len(batch)-1].ID
	}

	zap.L().Info("finished enqueue reconcile jobs", zap.Int("total_companies", total))
	return total, nil
}

type Scheduler struct {
	reconciler *Reconciler
	hour       int
	minute     int
}

func NewScheduler(r *Reconciler, cfg *config.Config) *Scheduler {
	return &Scheduler{
		reconciler: r,
		hour:       cfg.Scheduler.Hour,
		minute:     cfg.Scheduler.Minute,
	}
}

func StartScheduler(lc fx.Lifecycle, cfg *config.Config, s *Scheduler) {
	if !cfg.Scheduler.Enabled {
		zap.L().Info("[Scheduler] reward reconciliation disabled")
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go s.run(ctx)
			return nil
		},
		OnStop: func(context.Context) error {
			cancel()
			return nil
		},
	})
}

func (s *Scheduler) run(ctx context.Context) {
	zap.L().Info("[Scheduler] started reward reconciliation scheduler",
		zap.Int("hour", s.hour),
		zap.Int("minute", s.minute),
	)

	for {
		now := time.Now()
		next := nextRunTime(now, s.hour, s.minute)

		sleepDuration := next.Sub(now)
		zap.L().Info("[Scheduler] next run scheduled",
			zap.Time("next_run", next),
			zap.Duration("sleep_for", sleepDuration),
		)

		timer := time.NewTimer(sleepDuration)
		select {
		case <-timer.C:
			s.runDaily(ctx)
		case <-ctx.Done():
			timer.Stop()
			zap.L().Warn("[Scheduler] stopped")
			return
		}
	}
}

func (s *Scheduler) runDaily(ctx context.Context) {
	start := time.Now()
	zap.L().Info("[Scheduler] running daily reward reconciliation")

	total, err := s.reconciler.ReconcileAll(ctx)
	if err != nil {
		zap.L().Error("[Scheduler] failed enqueue all companies", zap.Error(err))
		return
	}

	zap.L().Info("[Scheduler] finished enqueue all companies",
		zap.Int("total_companies", total),
		zap.Duration("duration", time.Since(start)),
	)
}

// nextRunTime returns the next hour:minute strictly after now.
func nextRunTime(now time.Time, hour, minute int) time.Time {
	next := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, now.Location())
	if !now.Before(next) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}
