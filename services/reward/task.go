package reward

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"bakimla-reward/pkg/errutil"
	"bakimla-reward/pkg/logger"
	"bakimla-reward/pkg/repository"
	"bakimla-reward/pkg/task"
	"bakimla-reward/pkg/taskname"

	"github.com/hibiken/asynq"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type AppointmentCompletedPayload struct {
	AppointmentID string `json:"appointment_id"`
	TraceID       string `json:"trace_id,omitempty"`
}

type ReconcilePayload struct {
	CompanyID string `json:"company_id"`
	JobID     string `json:"job_id,omitempty"`
}

func NewAppointmentCompletedTask(p AppointmentCompletedPayload) (*asynq.Task, error) {
	payload, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(taskname.AppointmentCompleted, payload,
		asynq.MaxRetry(5),
		asynq.Timeout(30*time.Second),
		asynq.Queue(task.QueueCritical),
	), nil
}

func NewReconcileTask(p ReconcilePayload) (*asynq.Task, error) {
	payload, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(taskname.RewardReconcile, payload,
		asynq.MaxRetry(3),
		asynq.Timeout(60*time.Second),
		asynq.Queue(task.QueueLow),
	), nil
}

// TaskHandler consumes reward tasks from asynq.
type TaskHandler struct {
	service *Service
	jobs    repository.Repository[Job]
	now     func() time.Time
}

type TaskHandlerParams struct {
	fx.In
	DB      *gorm.DB
	Service *Service
}

func NewTaskHandler(p TaskHandlerParams) *TaskHandler {
	return &TaskHandler{
		service: p.Service,
		jobs:    repository.ProvideStore[Job](p.DB),
		now:     time.Now,
	}
}

func (h *TaskHandler) Register(mux *asynq.ServeMux) {
	mux.HandleFunc(taskname.AppointmentCompleted, h.HandleAppointmentCompleted)
	mux.HandleFunc(taskname.RewardReconcile, h.HandleReconcile)
}

// HandleAppointmentCompleted records the completion reward. Redelivery is safe,
// the earn entry is unique per appointment.
func (h *TaskHandler) HandleAppointmentCompleted(ctx context.Context, t *asynq.Task) error {
	var payload AppointmentCompletedPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil || payload.AppointmentID == "" {
		zap.L().Error("invalid appointment completed payload", zap.ByteString("payload", t.Payload()), zap.Error(err))
		return fmt.Errorf("invalid payload: %w", asynq.SkipRetry)
	}

	log := logger.FromContext(ctx).With(
		zap.String("appointment_id", payload.AppointmentID),
		zap.String("origin_trace_id", payload.TraceID),
	)

	if _, err := h.service.recordCompletionReward(ctx, payload.AppointmentID); err != nil {
		if errutil.IsStatus(err, errutil.StatusNotFound) || errutil.IsStatus(err, errutil.StatusBadRequest) {
			log.Warn("dropping appointment completed task", zap.Error(err))
			return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
		}
		log.Error("failed to record completion reward", zap.Error(err))
		return err
	}

	return nil
}

// HandleReconcile re-projects one company snapshot and settles its job row.
func (h *TaskHandler) HandleReconcile(ctx context.Context, t *asynq.Task) error {
	var payload ReconcilePayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil || payload.CompanyID == "" {
		zap.L().Error("invalid reconcile payload", zap.ByteString("payload", t.Payload()), zap.Error(err))
		return fmt.Errorf("invalid payload: %w", asynq.SkipRetry)
	}

	log := logger.FromContext(ctx).With(
		zap.String("company_id", payload.CompanyID),
		zap.String("job_id", payload.JobID),
	)

	started := h.now()
	h.updateJob(ctx, payload.JobID, map[string]any{
		"status":     JobRunning,
		"started_at": started,
	})

	stats, err := h.service.GetStats(ctx, payload.CompanyID)
	if err != nil {
		reconcileJobs.WithLabelValues(string(JobFailed)).Inc()
		h.updateJob(ctx, payload.JobID, map[string]any{
			"status":       JobFailed,
			"error_msg":    err.Error(),
			"completed_at": h.now(),
		})
		log.Error("reconcile failed", zap.Error(err))
		return err
	}

	reconcileJobs.WithLabelValues(string(JobSuccess)).Inc()
	h.updateJob(ctx, payload.JobID, map[string]any{
		"status":       JobSuccess,
		"error_msg":    "",
		"completed_at": h.now(),
	})
	log.Info("reward reconciled",
		zap.Int64("completed_appointment_count", stats.CompletedAppointmentCount),
		zap.String("balance", stats.Balance.StringFixed(2)),
		zap.Duration("elapsed", time.Since(started)),
	)
	return nil
}

func (h *TaskHandler) updateJob(ctx context.Context, jobID string, fields map[string]any) {
	if jobID == "" {
		return
	}
	fields["updated_at"] = h.now()
	if err := h.jobs.Update(ctx, jobID, fields); err != nil {
		logger.FromContext(ctx).Warn("failed to update reward job", zap.String("job_id", jobID), zap.Error(err))
	}
}
