package appointment

import (
	"context"
	"fmt"
	"time"

	"bakimla-reward/pkg/errutil"
	"bakimla-reward/pkg/logger"
	"bakimla-reward/pkg/middleware"
	"bakimla-reward/pkg/repository"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// RewardRecorder accrues the completion reward. Implementations never fail the caller.
type RewardRecorder interface {
	RecordCompletionReward(ctx context.Context, appointmentID string)
}

type Service struct {
	appointments repository.Repository[Appointment]
	recorder     RewardRecorder
	now          func() time.Time
}

type ServiceParams struct {
	fx.In
	DB       *gorm.DB
	Recorder RewardRecorder
}

func NewService(p ServiceParams) *Service {
	return &Service{
		appointments: repository.ProvideStore[Appointment](p.DB),
		recorder:     p.Recorder,
		now:          time.Now,
	}
}

// Complete marks the appointment completed and accrues the reward. Completing an
// already completed appointment is a no-op apart from re-running the (idempotent) accrual.
func (s *Service) Complete(ctx context.Context, tenant middleware.Tenant, id string) (*Appointment, error) {
	log := logger.FromContext(ctx).With(
		zap.String("company_id", tenant.CompanyID),
		zap.String("appointment_id", id),
	)

	if tenant.CompanyID == "" {
		return nil, errutil.BadRequest("missing company context", nil)
	}

	appt, err := s.appointments.FindOne(ctx, &Appointment{ID: id, CompanyID: tenant.CompanyID})
	if err != nil {
		log.Error("failed to query appointment", zap.Error(err))
		return nil, fmt.Errorf("find appointment: %w", err)
	}
	if appt == nil {
		return nil, errutil.NotFound("appointment not found", nil)
	}

	switch appt.Status {
	case StatusCompleted:
		log.Info("appointment already completed")
	case StatusCancelled, StatusNoShow:
		return nil, errutil.Conflict(fmt.Sprintf("appointment is %s", appt.Status), nil)
	default:
		now := s.now()
		if err := s.appointments.Update(ctx, appt.ID, map[string]any{
			"status":       StatusCompleted,
			"completed_at": now,
			"updated_at":   now,
		}); err != nil {
			log.Error("failed to complete appointment", zap.Error(err))
			return nil, fmt.Errorf("complete appointment: %w", err)
		}
		appt.Status = StatusCompleted
		appt.CompletedAt = &now
		appt.UpdatedAt = now
	}

	s.recorder.RecordCompletionReward(ctx, appt.ID)

	return appt, nil
}
