package reward

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"bakimla-reward/pkg/config"
	"bakimla-reward/pkg/db/option"
	"bakimla-reward/pkg/db/pagination"
	"bakimla-reward/pkg/errutil"
	"bakimla-reward/pkg/featureflags"
	"bakimla-reward/pkg/lock"
	"bakimla-reward/pkg/logger"
	"bakimla-reward/pkg/repository"
	"bakimla-reward/pkg/sequence"
	"bakimla-reward/services/appointment"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// AppointmentReader is the appointment lookup the ledger depends on.
type AppointmentReader interface {
	Get(ctx context.Context, id string) (*appointment.Appointment, error)
}

type Service struct {
	db   *gorm.DB
	node *snowflake.Node

	reward      repository.Repository[Reward]
	transaction repository.Repository[RewardTransaction]

	appointments AppointmentReader
	qualifier    *Qualifier
	locker       lock.Locker
	sequence     sequence.Generator
	flags        featureflags.FeatureFlag

	unitAmount          decimal.Decimal
	withdrawalThreshold int64

	stats singleflight.Group
	now   func() time.Time
}

type ServiceParams struct {
	fx.In
	DB           *gorm.DB
	Node         *snowflake.Node
	Config       *config.Config
	Appointments AppointmentReader
	Locker       lock.Locker
	Sequence     sequence.Generator
	Flags        featureflags.FeatureFlag
}

func NewService(p ServiceParams) (*Service, error) {
	unit, err := decimal.NewFromString(p.Config.Reward.UnitAmount)
	if err != nil {
		return nil, fmt.Errorf("invalid REWARD.UNIT_AMOUNT %q: %w", p.Config.Reward.UnitAmount, err)
	}
	if !unit.IsPositive() {
		return nil, fmt.Errorf("REWARD.UNIT_AMOUNT must be positive, got %s", unit)
	}
	// entries are stored with two decimals; a finer unit would drift from count x unit
	if !unit.Equal(unit.Round(2)) {
		return nil, fmt.Errorf("REWARD.UNIT_AMOUNT must have at most 2 decimal places, got %s", unit)
	}

	qualifier, err := NewQualifier(p.Config.Reward.QualifyingRule)
	if err != nil {
		return nil, err
	}

	threshold := p.Config.Reward.WithdrawalThreshold
	if threshold <= 0 {
		threshold = 50
	}

	return &Service{
		db:   p.DB,
		node: p.Node,

		reward:      repository.ProvideStore[Reward](p.DB),
		transaction: repository.ProvideStore[RewardTransaction](p.DB),

		appointments: p.Appointments,
		qualifier:    qualifier,
		locker:       p.Locker,
		sequence:     p.Sequence,
		flags:        p.Flags,

		unitAmount:          unit,
		withdrawalThreshold: threshold,
		now:                 time.Now,
	}, nil
}

// RecordCompletionReward accrues the reward for a completed appointment.
// Failures are logged and never reach the caller.
func (s *Service) RecordCompletionReward(ctx context.Context, appointmentID string) {
	if _, err := s.recordCompletionReward(ctx, appointmentID); err != nil {
		logger.FromContext(ctx).Error("failed to record completion reward",
			zap.String("appointment_id", appointmentID),
			zap.Error(err),
		)
	}
}

// recordCompletionReward reports whether a new earn entry was appended.
func (s *Service) recordCompletionReward(ctx context.Context, appointmentID string) (bool, error) {
	log := logger.FromContext(ctx).With(zap.String("appointment_id", appointmentID))

	appt, err := s.appointments.Get(ctx, appointmentID)
	if err != nil {
		earnEvents.WithLabelValues(resultFailed).Inc()
		return false, err
	}

	ok, err := s.qualifier.Qualifies(appt)
	if err != nil {
		earnEvents.WithLabelValues(resultFailed).Inc()
		return false, fmt.Errorf("evaluate qualifying rule: %w", err)
	}
	if !ok {
		earnEvents.WithLabelValues(resultSkipped).Inc()
		log.Debug("appointment does not qualify for reward",
			zap.String("status", string(appt.Status)),
			zap.String("payment_method", string(appt.PaymentMethod)),
		)
		return false, nil
	}

	companyID := appt.CompanyID
	log = log.With(zap.String("company_id", companyID))

	// fast path for duplicate deliveries; the unique index is the real guard
	exist, err := s.transaction.FindOne(ctx, &RewardTransaction{
		CompanyID:     companyID,
		AppointmentID: &appt.ID,
		Type:          TypeEarn,
	})
	if err != nil {
		earnEvents.WithLabelValues(resultFailed).Inc()
		return false, fmt.Errorf("find earn transaction: %w", err)
	}
	if exist != nil {
		earnEvents.WithLabelValues(resultDuplicate).Inc()
		log.Info("reward already recorded", zap.String("transaction_id", exist.ID))
		return false, nil
	}

	meta, _ := json.Marshal(map[string]any{
		"store_id":       appt.StoreID,
		"payment_method": appt.PaymentMethod,
	})

	recorded := false
	err = s.withCompanyLock(ctx, companyID, func(tx *gorm.DB) error {
		if _, err := s.lockSnapshot(ctx, tx, companyID); err != nil {
			return err
		}

		entry, inserted, err := s.appendTransaction(ctx, tx, TransactionParams{
			CompanyID:     companyID,
			Type:          TypeEarn,
			Amount:        s.unitAmount,
			AppointmentID: appt.ID,
			Status:        StatusCompleted,
			Description:   "Completed appointment reward",
			Metadata:      datatypes.JSON(meta),
		})
		if err != nil {
			return err
		}
		if !inserted {
			return nil
		}

		snap, err := s.reward.WithTrx(tx).FindOne(ctx, &Reward{CompanyID: companyID})
		if err != nil {
			return err
		}
		if _, err := s.project(ctx, tx, snap); err != nil {
			return err
		}

		recorded = true
		log.Info("reward recorded", zap.String("transaction_id", entry.ID), zap.String("amount", entry.Amount.String()))
		return nil
	})
	if err != nil {
		earnEvents.WithLabelValues(resultFailed).Inc()
		return false, err
	}

	if recorded {
		earnEvents.WithLabelValues(resultRecorded).Inc()
	} else {
		earnEvents.WithLabelValues(resultDuplicate).Inc()
	}
	return recorded, nil
}

// GetStats reconciles the company's snapshot with its log and returns it.
// Concurrent calls for the same company share one reconciliation.
func (s *Service) GetStats(ctx context.Context, companyID string) (*Reward, error) {
	if companyID == "" {
		return nil, errutil.BadRequest("missing company context", nil)
	}

	v, err, _ := s.stats.Do(companyID, func() (any, error) {
		// shared by every joined caller, so the first caller's cancellation must not abort it
		return s.reconcile(context.WithoutCancel(ctx), companyID)
	})
	if err != nil {
		logger.FromContext(ctx).Error("failed to reconcile reward", zap.String("company_id", companyID), zap.Error(err))
		return nil, err
	}

	out := *v.(*Reward)
	return &out, nil
}

func (s *Service) reconcile(ctx context.Context, companyID string) (*Reward, error) {
	var out *Reward
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		snap, err := s.lockSnapshot(ctx, tx, companyID)
		if err != nil {
			return err
		}
		out, err = s.project(ctx, tx, snap)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// RequestWithdrawal cashes out the whole balance once the company has enough
// completed appointments. The withdrawal starts pending.
func (s *Service) RequestWithdrawal(ctx context.Context, companyID string) (*WithdrawalResult, error) {
	if companyID == "" {
		return nil, errutil.BadRequest("missing company context", nil)
	}
	log := logger.FromContext(ctx).With(zap.String("company_id", companyID))

	if !s.flags.Enabled(ctx, companyID, featureflags.RewardWithdrawal, true) {
		withdrawalRequests.WithLabelValues(resultRejected).Inc()
		return nil, errutil.UnprocessableEntity("withdrawals are currently disabled", nil)
	}

	var result WithdrawalResult
	err := s.withCompanyLock(ctx, companyID, func(tx *gorm.DB) error {
		snap, err := s.lockSnapshot(ctx, tx, companyID)
		if err != nil {
			return err
		}
		snap, err = s.project(ctx, tx, snap)
		if err != nil {
			return err
		}

		if snap.CompletedAppointmentCount < s.withdrawalThreshold {
			return errutil.UnprocessableEntity(
				fmt.Sprintf("at least %d completed appointments are required to withdraw", s.withdrawalThreshold),
				nil,
				errutil.WithDetails(errutil.Detail{
					Field:   "completedAppointmentCount",
					Message: fmt.Sprintf("%d of %d", snap.CompletedAppointmentCount, s.withdrawalThreshold),
				}),
			)
		}
		if !snap.Balance.IsPositive() {
			return errutil.UnprocessableEntity("no balance available to withdraw", nil)
		}

		reference, err := s.sequence.NextWithdrawalCode(ctx, companyID)
		if err != nil {
			return fmt.Errorf("generate withdrawal reference: %w", err)
		}

		meta, _ := json.Marshal(map[string]any{
			"completed_appointment_count": snap.CompletedAppointmentCount,
			"balance_before":              snap.Balance.StringFixed(2),
		})
		entry, _, err := s.appendTransaction(ctx, tx, TransactionParams{
			CompanyID:   companyID,
			Type:        TypeWithdrawal,
			Amount:      snap.Balance,
			Status:      StatusPending,
			Description: "Reward withdrawal request",
			Reference:   reference,
			Metadata:    datatypes.JSON(meta),
		})
		if err != nil {
			return err
		}

		snap, err = s.project(ctx, tx, snap)
		if err != nil {
			return err
		}

		result = WithdrawalResult{Transaction: entry, Reward: snap}
		return nil
	})
	if err != nil {
		var be errutil.BaseError
		if errors.As(err, &be) {
			withdrawalRequests.WithLabelValues(resultRejected).Inc()
			log.Info("withdrawal rejected", zap.String("reason", be.Message))
		} else {
			withdrawalRequests.WithLabelValues(resultFailed).Inc()
			log.Error("failed to request withdrawal", zap.Error(err))
		}
		return nil, err
	}

	withdrawalRequests.WithLabelValues(resultAccepted).Inc()
	withdrawnAmount.Add(result.Transaction.Amount.InexactFloat64())
	log.Info("withdrawal requested",
		zap.String("transaction_id", result.Transaction.ID),
		zap.String("reference", result.Transaction.Reference),
		zap.String("amount", result.Transaction.Amount.StringFixed(2)),
	)
	return &result, nil
}

// ListTransactions pages through the company's log, newest first.
func (s *Service) ListTransactions(ctx context.Context, companyID string, filter ListFilter) ([]*RewardTransaction, *pagination.PageInfo, error) {
	if companyID == "" {
		return nil, nil, errutil.BadRequest("missing company context", nil)
	}
	if filter.Type != "" && !filter.Type.Valid() {
		return nil, nil, errutil.ValidationFailed("invalid transaction type", nil, errutil.WithDetails(errutil.Detail{
			Field:   "type",
			Message: "must be one of earn, withdrawal",
		}))
	}
	if filter.Status != "" && filter.Status != StatusPending && filter.Status != StatusCompleted {
		return nil, nil, errutil.ValidationFailed("invalid transaction status", nil, errutil.WithDetails(errutil.Detail{
			Field:   "status",
			Message: "must be one of pending, completed",
		}))
	}

	if filter.Cursor != "" {
		if cursor, err := pagination.DecodeCursor(filter.Cursor); err != nil || cursor.ID == "" {
			return nil, nil, errutil.ValidationFailed("invalid cursor", err, errutil.WithDetails(errutil.Detail{
				Field:   "cursor",
				Message: "must be a next_cursor value returned by a previous page",
			}))
		}
	}

	page := pagination.Pagination{Cursor: filter.Cursor, Limit: filter.Limit}
	items, err := s.transaction.Find(ctx, &RewardTransaction{
		CompanyID: companyID,
		Type:      filter.Type,
		Status:    filter.Status,
	}, option.ApplyPagination(page))
	if err != nil {
		return nil, nil, fmt.Errorf("list transactions: %w", err)
	}

	items, info := pagination.BuildCursorPageInfo(items, filter.Limit, func(t *RewardTransaction) pagination.Cursor {
		return pagination.Cursor{ID: t.ID, CreatedAt: t.CreatedAt.UTC().Format(time.RFC3339Nano)}
	})
	return items, info, nil
}

// CompleteWithdrawal settles a pending withdrawal.
func (s *Service) CompleteWithdrawal(ctx context.Context, companyID, transactionID string) (*RewardTransaction, error) {
	if companyID == "" {
		return nil, errutil.BadRequest("missing company context", nil)
	}

	var out *RewardTransaction
	err := s.withCompanyLock(ctx, companyID, func(tx *gorm.DB) error {
		entry, err := s.transaction.WithTrx(tx).FindOne(ctx, &RewardTransaction{
			ID:        transactionID,
			CompanyID: companyID,
			Type:      TypeWithdrawal,
		}, option.WithLockingUpdate())
		if err != nil {
			return fmt.Errorf("find withdrawal: %w", err)
		}
		if entry == nil {
			return errutil.NotFound("withdrawal not found", nil)
		}
		if entry.Status == StatusCompleted {
			return errutil.Conflict("withdrawal already completed", nil)
		}

		now := s.now()
		if err := s.transaction.WithTrx(tx).Update(ctx, entry.ID, map[string]any{
			"status":     StatusCompleted,
			"updated_at": now,
		}); err != nil {
			return fmt.Errorf("complete withdrawal: %w", err)
		}

		entry.Status = StatusCompleted
		entry.UpdatedAt = now
		out = entry
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.FromContext(ctx).Info("withdrawal completed",
		zap.String("company_id", companyID),
		zap.String("transaction_id", transactionID),
	)
	return out, nil
}

// VerifyChain recomputes every hash of the company's log in sequence order.
// A gap in the sequence counts as a break.
func (s *Service) VerifyChain(ctx context.Context, companyID string) (*ChainVerification, error) {
	if companyID == "" {
		return nil, errutil.BadRequest("missing company context", nil)
	}

	entries, err := s.transaction.Find(ctx, &RewardTransaction{CompanyID: companyID}, option.WithSortBy(option.QuerySortBy{
		SortBy:  "sequence",
		OrderBy: "asc",
	}))
	if err != nil {
		return nil, fmt.Errorf("load chain: %w", err)
	}

	result := &ChainVerification{CompanyID: companyID, Valid: true}
	previous := GenesisHash
	for _, e := range entries {
		result.Checked++
		if e.Sequence != int64(result.Checked) || e.PreviousHash != previous || e.GenerateHash() != e.Hash {
			result.Valid = false
			result.BrokenAt = e.ID
			logger.FromContext(ctx).Warn("reward chain broken",
				zap.String("company_id", companyID),
				zap.String("transaction_id", e.ID),
			)
			break
		}
		previous = e.Hash
	}

	return result, nil
}
