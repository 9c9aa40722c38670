package reward

import (
	"context"
	"fmt"

	"bakimla-reward/pkg/db/option"
	"bakimla-reward/pkg/logger"
	"bakimla-reward/pkg/rediskey"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type aggregate struct {
	EarnCount int64           `gorm:"column:earn_count"`
	Earned    decimal.Decimal `gorm:"column:earned"`
	Withdrawn decimal.Decimal `gorm:"column:withdrawn"`
}

const aggregateSelect = `
COALESCE(SUM(CASE WHEN type = ? AND status = ? THEN 1 ELSE 0 END), 0) AS earn_count,
COALESCE(SUM(CASE WHEN type = ? AND status = ? THEN amount ELSE 0 END), 0) AS earned,
COALESCE(SUM(CASE WHEN type = ? THEN amount ELSE 0 END), 0) AS withdrawn`

// withCompanyLock runs fn in one database transaction, serialized per company
// by the distributed lock when it is enabled.
func (s *Service) withCompanyLock(ctx context.Context, companyID string, fn func(tx *gorm.DB) error) error {
	lease, err := s.locker.Acquire(ctx, rediskey.BuildRewardLockKey(companyID))
	if err != nil {
		return fmt.Errorf("lock company %s: %w", companyID, err)
	}
	defer func() {
		if err := lease.Release(context.WithoutCancel(ctx)); err != nil {
			logger.FromContext(ctx).Warn("failed to release reward lock", zap.String("company_id", companyID), zap.Error(err))
		}
	}()

	return s.db.WithContext(ctx).Transaction(fn)
}

// lockSnapshot makes sure the company's snapshot row exists and locks it for the
// rest of the transaction.
func (s *Service) lockSnapshot(ctx context.Context, tx *gorm.DB, companyID string) (*Reward, error) {
	now := s.now()
	seed := &Reward{
		ID:              s.node.Generate().String(),
		CompanyID:       companyID,
		TotalEarned:     decimal.Zero,
		WithdrawnAmount: decimal.Zero,
		Balance:         decimal.Zero,
		LastUpdate:      now,
	}
	if err := tx.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "company_id"}},
		DoNothing: true,
	}).Create(seed).Error; err != nil {
		return nil, fmt.Errorf("ensure snapshot: %w", err)
	}

	snap, err := s.reward.WithTrx(tx).FindOne(ctx, &Reward{CompanyID: companyID}, option.WithLockingUpdate())
	if err != nil {
		return nil, fmt.Errorf("lock snapshot: %w", err)
	}
	if snap == nil {
		return nil, fmt.Errorf("snapshot for company %s vanished", companyID)
	}
	return snap, nil
}

// project folds the company's log into the snapshot with one aggregation query.
// It is the only writer of the reward columns.
func (s *Service) project(ctx context.Context, tx *gorm.DB, snap *Reward) (*Reward, error) {
	var agg aggregate
	if err := tx.WithContext(ctx).
		Model(&RewardTransaction{}).
		Select(aggregateSelect,
			string(TypeEarn), string(StatusCompleted),
			string(TypeEarn), string(StatusCompleted),
			string(TypeWithdrawal),
		).
		Where("company_id = ?", snap.CompanyID).
		Scan(&agg).Error; err != nil {
		return nil, fmt.Errorf("aggregate transactions: %w", err)
	}

	balance := agg.Earned.Sub(agg.Withdrawn)
	if balance.IsNegative() {
		balance = decimal.Zero
	}

	now := s.now()
	if err := s.reward.WithTrx(tx).Update(ctx, snap.ID, map[string]any{
		"completed_appointment_count": agg.EarnCount,
		"total_earned":                agg.Earned,
		"withdrawn_amount":            agg.Withdrawn,
		"balance":                     balance,
		"last_update":                 now,
		"updated_at":                  now,
	}); err != nil {
		return nil, fmt.Errorf("persist snapshot: %w", err)
	}

	out := *snap
	out.CompletedAppointmentCount = agg.EarnCount
	out.TotalEarned = agg.Earned
	out.WithdrawnAmount = agg.Withdrawn
	out.Balance = balance
	out.LastUpdate = now
	out.UpdatedAt = now
	return &out, nil
}

// lastTransaction returns the head of the company's hash chain, nil for an empty log.
// Callers hold the snapshot row lock, so the head cannot move underneath them.
func (s *Service) lastTransaction(ctx context.Context, tx *gorm.DB, companyID string) (*RewardTransaction, error) {
	return s.transaction.WithTrx(tx).FindOne(ctx, &RewardTransaction{CompanyID: companyID}, option.WithSortBy(option.QuerySortBy{
		SortBy:  "sequence",
		OrderBy: "desc",
	}))
}

func (s *Service) appendTransaction(ctx context.Context, tx *gorm.DB, p TransactionParams) (*RewardTransaction, bool, error) {
	last, err := s.lastTransaction(ctx, tx, p.CompanyID)
	if err != nil {
		return nil, false, fmt.Errorf("find chain head: %w", err)
	}
	p.Sequence = 1
	if last != nil {
		p.PreviousHash = last.Hash
		p.Sequence = last.Sequence + 1
	}
	p.ID = s.node.Generate().String()
	p.CreatedAt = s.now()

	entry := NewRewardTransaction(p)
	// only a duplicate earn is swallowed; a sequence clash still fails the transaction
	res := tx.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "company_id"}, {Name: "appointment_id"}, {Name: "type"}},
		DoNothing: true,
	}).Create(entry)
	if res.Error != nil {
		return nil, false, fmt.Errorf("append %s transaction: %w", p.Type, res.Error)
	}
	return entry, res.RowsAffected > 0, nil
}
