package reward

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"bakimla-reward/pkg/config"
	"bakimla-reward/pkg/db/option"
	"bakimla-reward/pkg/db/pagination"
	"bakimla-reward/pkg/errutil"
	"bakimla-reward/pkg/featureflags"
	"bakimla-reward/pkg/lock"
	"bakimla-reward/pkg/repository"
	"bakimla-reward/pkg/sequence"
	"bakimla-reward/services/appointment"
	"bakimla-reward/services/testutil"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

type repoMock[T any] struct {
	withTrxFn     func(tx *gorm.DB) repository.Repository[T]
	findFn        func(ctx context.Context, query *T, opts ...option.QueryOption) ([]*T, error)
	findOneFn     func(ctx context.Context, query *T, opts ...option.QueryOption) (*T, error)
	createFn      func(ctx context.Context, resource *T) error
	updateFn      func(ctx context.Context, resourceID string, resource any) error
	batchCreateFn func(ctx context.Context, resources []*T) error
	countFn       func(ctx context.Context, query *T) (int64, error)
}

func (m *repoMock[T]) WithTrx(tx *gorm.DB) repository.Repository[T] {
	if m.withTrxFn != nil {
		return m.withTrxFn(tx)
	}
	return m
}

func (m *repoMock[T]) Find(ctx context.Context, query *T, opts ...option.QueryOption) ([]*T, error) {
	if m.findFn != nil {
		return m.findFn(ctx, query, opts...)
	}
	return nil, nil
}

func (m *repoMock[T]) FindOne(ctx context.Context, query *T, opts ...option.QueryOption) (*T, error) {
	if m.findOneFn != nil {
		return m.findOneFn(ctx, query, opts...)
	}
	return nil, nil
}

func (m *repoMock[T]) Create(ctx context.Context, resource *T) error {
	if m.createFn != nil {
		return m.createFn(ctx, resource)
	}
	return nil
}

func (m *repoMock[T]) Update(ctx context.Context, resourceID string, resource any) error {
	if m.updateFn != nil {
		return m.updateFn(ctx, resourceID, resource)
	}
	return nil
}

func (m *repoMock[T]) BatchCreate(ctx context.Context, resources []*T) error {
	if m.batchCreateFn != nil {
		return m.batchCreateFn(ctx, resources)
	}
	return nil
}

func (m *repoMock[T]) Count(ctx context.Context, query *T) (int64, error) {
	if m.countFn != nil {
		return m.countFn(ctx, query)
	}
	return 0, nil
}

type fakeSequence struct {
	mu sync.Mutex
	n  int64
}

func (f *fakeSequence) NextWithdrawalCode(ctx context.Context, companyID string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.n++
	return sequence.FormatCode("WDR", "261019", f.n, "AB"), nil
}

func (f *fakeSequence) NextJobCode(ctx context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.n++
	return sequence.FormatCode("JOB", "261019", f.n, "AB"), nil
}

type fixture struct {
	svc *Service
	db  *gorm.DB
}

func newFixture(t *testing.T, opts ...func(*config.Config, *ServiceParams)) *fixture {
	t.Helper()

	db := testutil.NewTestDB(t, &appointment.Appointment{}, &Reward{}, &RewardTransaction{}, &Job{})

	cfg := &config.Config{}
	cfg.Reward.UnitAmount = "1"
	cfg.Reward.WithdrawalThreshold = 50

	p := ServiceParams{
		DB:           db,
		Node:         testutil.NewNode(t),
		Config:       cfg,
		Appointments: appointment.NewStore(appointment.StoreParams{DB: db}),
		Locker:       lock.Noop{},
		Sequence:     &fakeSequence{},
		Flags:        featureflags.Static{},
	}
	for _, opt := range opts {
		opt(cfg, &p)
	}

	svc, err := NewService(p)
	require.NoError(t, err)

	return &fixture{svc: svc, db: db}
}

func (f *fixture) appointment(t *testing.T, companyID string, status appointment.Status, method appointment.PaymentMethod) string {
	t.Helper()

	appt := &appointment.Appointment{
		ID:            f.svc.node.Generate().String(),
		CompanyID:     companyID,
		StoreID:       "store-" + companyID,
		Status:        status,
		PaymentMethod: method,
		Price:         decimal.NewFromInt(250),
	}
	require.NoError(t, f.db.Create(appt).Error)
	return appt.ID
}

// earn records n qualifying completions for the company.
func (f *fixture) earn(t *testing.T, companyID string, n int) {
	t.Helper()

	for i := 0; i < n; i++ {
		id := f.appointment(t, companyID, appointment.StatusCompleted, appointment.PaymentCard)
		recorded, err := f.svc.recordCompletionReward(context.Background(), id)
		require.NoError(t, err)
		require.True(t, recorded)
	}
}

func requireStatus(t *testing.T, err error, code errutil.CoreStatus) {
	t.Helper()

	require.Error(t, err)
	var be errutil.BaseError
	require.True(t, errors.As(err, &be), "expected errutil.BaseError, got %v", err)
	require.Equal(t, code, be.Status())
}

func TestNewService(t *testing.T) {
	f := newFixture(t)

	require.NotNil(t, f.svc.reward)
	require.NotNil(t, f.svc.transaction)
	require.NotNil(t, f.svc.qualifier)
	require.True(t, f.svc.unitAmount.Equal(decimal.NewFromInt(1)))
	require.Equal(t, int64(50), f.svc.withdrawalThreshold)
}

func TestNewService_InvalidUnitAmount(t *testing.T) {
	db := testutil.NewTestDB(t)

	for _, unit := range []string{"abc", "0", "-1", "0.333", "1.005"} {
		cfg := &config.Config{}
		cfg.Reward.UnitAmount = unit

		_, err := NewService(ServiceParams{DB: db, Node: testutil.NewNode(t), Config: cfg})
		require.Error(t, err, unit)
	}
}

func TestRecordCompletionReward_Idempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.appointment(t, "company-1", appointment.StatusCompleted, appointment.PaymentCard)

	recorded, err := f.svc.recordCompletionReward(ctx, id)
	require.NoError(t, err)
	require.True(t, recorded)

	recorded, err = f.svc.recordCompletionReward(ctx, id)
	require.NoError(t, err)
	require.False(t, recorded)

	stats, err := f.svc.GetStats(ctx, "company-1")
	require.NoError(t, err)
	require.Equal(t, int64(1), stats.CompletedAppointmentCount)
	require.True(t, stats.TotalEarned.Equal(decimal.NewFromInt(1)))
	require.True(t, stats.Balance.Equal(decimal.NewFromInt(1)))
}

func TestRecordCompletionReward_NonQualifying(t *testing.T) {
	cases := []struct {
		name   string
		status appointment.Status
		method appointment.PaymentMethod
	}{
		{"cash", appointment.StatusCompleted, appointment.PaymentCash},
		{"pending", appointment.StatusPending, appointment.PaymentCard},
		{"cancelled", appointment.StatusCancelled, appointment.PaymentOnline},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)
			id := f.appointment(t, "company-1", tc.status, tc.method)

			recorded, err := f.svc.recordCompletionReward(context.Background(), id)
			require.NoError(t, err)
			require.False(t, recorded)

			var count int64
			require.NoError(t, f.db.Model(&RewardTransaction{}).Count(&count).Error)
			require.Zero(t, count)
		})
	}
}

func TestRecordCompletionReward_OnlinePaymentQualifies(t *testing.T) {
	f := newFixture(t)
	id := f.appointment(t, "company-1", appointment.StatusCompleted, appointment.PaymentOnline)

	recorded, err := f.svc.recordCompletionReward(context.Background(), id)
	require.NoError(t, err)
	require.True(t, recorded)
}

func TestRecordCompletionReward_UnknownAppointment(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.recordCompletionReward(context.Background(), "missing")
	requireStatus(t, err, errutil.StatusNotFound)

	// the public entry point absorbs the failure
	require.NotPanics(t, func() {
		f.svc.RecordCompletionReward(context.Background(), "missing")
	})
}

func TestRecordCompletionReward_ConcurrentDuplicateDelivery(t *testing.T) {
	f := newFixture(t)
	id := f.appointment(t, "company-1", appointment.StatusCompleted, appointment.PaymentCard)

	var (
		wg       sync.WaitGroup
		recorded atomic.Int32
		failed   atomic.Int32
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := f.svc.recordCompletionReward(context.Background(), id)
			if err != nil {
				failed.Add(1)
				return
			}
			if ok {
				recorded.Add(1)
			}
		}()
	}
	wg.Wait()

	require.Zero(t, failed.Load())
	require.Equal(t, int32(1), recorded.Load())

	stats, err := f.svc.GetStats(context.Background(), "company-1")
	require.NoError(t, err)
	require.Equal(t, int64(1), stats.CompletedAppointmentCount)
}

func TestTotalEarnedMatchesCountTimesUnit(t *testing.T) {
	f := newFixture(t, func(cfg *config.Config, _ *ServiceParams) {
		cfg.Reward.UnitAmount = "2.5"
	})
	f.earn(t, "company-1", 7)

	stats, err := f.svc.GetStats(context.Background(), "company-1")
	require.NoError(t, err)
	require.Equal(t, int64(7), stats.CompletedAppointmentCount)
	require.True(t, stats.TotalEarned.Equal(decimal.RequireFromString("17.5")), stats.TotalEarned.String())
	require.True(t, stats.TotalEarned.Equal(f.svc.unitAmount.Mul(decimal.NewFromInt(stats.CompletedAppointmentCount))))
}

func TestGetStats_MissingCompany(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.GetStats(context.Background(), "")
	requireStatus(t, err, errutil.StatusBadRequest)
}

func TestGetStats_NewCompanyStartsAtZero(t *testing.T) {
	f := newFixture(t)

	stats, err := f.svc.GetStats(context.Background(), "company-new")
	require.NoError(t, err)
	require.NotEmpty(t, stats.ID)
	require.Equal(t, "company-new", stats.CompanyID)
	require.Zero(t, stats.CompletedAppointmentCount)
	require.True(t, stats.TotalEarned.IsZero())
	require.True(t, stats.WithdrawnAmount.IsZero())
	require.True(t, stats.Balance.IsZero())

	// a second read reuses the same snapshot row
	again, err := f.svc.GetStats(context.Background(), "company-new")
	require.NoError(t, err)
	require.Equal(t, stats.ID, again.ID)
}

func TestGetStats_RepairsDriftedSnapshot(t *testing.T) {
	f := newFixture(t)
	f.earn(t, "company-1", 3)

	require.NoError(t, f.db.Model(&Reward{}).Where("company_id = ?", "company-1").Updates(map[string]any{
		"completed_appointment_count": 99,
		"balance":                     "999",
	}).Error)

	stats, err := f.svc.GetStats(context.Background(), "company-1")
	require.NoError(t, err)
	require.Equal(t, int64(3), stats.CompletedAppointmentCount)
	require.True(t, stats.Balance.Equal(decimal.NewFromInt(3)))

	var stored Reward
	require.NoError(t, f.db.Where("company_id = ?", "company-1").First(&stored).Error)
	require.Equal(t, int64(3), stored.CompletedAppointmentCount)
	require.True(t, stored.Balance.Equal(decimal.NewFromInt(3)))
}

// The reconciliation is shared with joined callers and outlives the caller that started it.
func TestGetStats_IgnoresCallerCancellation(t *testing.T) {
	f := newFixture(t)
	f.earn(t, "company-1", 2)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	stats, err := f.svc.GetStats(ctx, "company-1")
	require.NoError(t, err)
	require.Equal(t, int64(2), stats.CompletedAppointmentCount)
}

func TestGetStats_CompaniesAreIsolated(t *testing.T) {
	f := newFixture(t)
	f.earn(t, "company-1", 2)
	f.earn(t, "company-2", 5)

	one, err := f.svc.GetStats(context.Background(), "company-1")
	require.NoError(t, err)
	two, err := f.svc.GetStats(context.Background(), "company-2")
	require.NoError(t, err)

	require.Equal(t, int64(2), one.CompletedAppointmentCount)
	require.Equal(t, int64(5), two.CompletedAppointmentCount)
}

func TestRequestWithdrawal_BelowThreshold(t *testing.T) {
	f := newFixture(t)
	f.earn(t, "company-1", 49)

	_, err := f.svc.RequestWithdrawal(context.Background(), "company-1")
	requireStatus(t, err, errutil.StatusUnprocessableEntity)

	var withdrawals int64
	require.NoError(t, f.db.Model(&RewardTransaction{}).Where("type = ?", TypeWithdrawal).Count(&withdrawals).Error)
	require.Zero(t, withdrawals)

	stats, err := f.svc.GetStats(context.Background(), "company-1")
	require.NoError(t, err)
	require.True(t, stats.Balance.Equal(decimal.NewFromInt(49)))
}

func TestRequestWithdrawal_AtThreshold(t *testing.T) {
	f := newFixture(t)
	f.earn(t, "company-1", 50)

	result, err := f.svc.RequestWithdrawal(context.Background(), "company-1")
	require.NoError(t, err)

	require.Equal(t, TypeWithdrawal, result.Transaction.Type)
	require.Equal(t, StatusPending, result.Transaction.Status)
	require.Nil(t, result.Transaction.AppointmentID)
	require.True(t, result.Transaction.Amount.Equal(decimal.NewFromInt(50)))
	require.Equal(t, "WDR-261019-001AB", result.Transaction.Reference)

	require.Equal(t, int64(50), result.Reward.CompletedAppointmentCount)
	require.True(t, result.Reward.TotalEarned.Equal(decimal.NewFromInt(50)))
	require.True(t, result.Reward.WithdrawnAmount.Equal(decimal.NewFromInt(50)))
	require.True(t, result.Reward.Balance.IsZero())
}

func TestRequestWithdrawal_ZeroBalance(t *testing.T) {
	f := newFixture(t)
	f.earn(t, "company-1", 50)

	_, err := f.svc.RequestWithdrawal(context.Background(), "company-1")
	require.NoError(t, err)

	_, err = f.svc.RequestWithdrawal(context.Background(), "company-1")
	requireStatus(t, err, errutil.StatusUnprocessableEntity)

	// earning continues after a withdrawal; only the new amount is available
	f.earn(t, "company-1", 2)
	result, err := f.svc.RequestWithdrawal(context.Background(), "company-1")
	require.NoError(t, err)
	require.True(t, result.Transaction.Amount.Equal(decimal.NewFromInt(2)))
	require.True(t, result.Reward.WithdrawnAmount.Equal(decimal.NewFromInt(52)))
	require.True(t, result.Reward.Balance.IsZero())
}

func TestRequestWithdrawal_Disabled(t *testing.T) {
	f := newFixture(t, func(_ *config.Config, p *ServiceParams) {
		p.Flags = featureflags.Static{featureflags.RewardWithdrawal: false}
	})
	f.earn(t, "company-1", 50)

	_, err := f.svc.RequestWithdrawal(context.Background(), "company-1")
	requireStatus(t, err, errutil.StatusUnprocessableEntity)
}

func TestRequestWithdrawal_MissingCompany(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.RequestWithdrawal(context.Background(), "")
	requireStatus(t, err, errutil.StatusBadRequest)
}

func TestBalanceNeverNegative(t *testing.T) {
	f := newFixture(t)
	f.earn(t, "company-1", 1)

	// a withdrawal larger than the earnings, as left behind by a manual correction
	_, _, err := f.svc.appendTransaction(context.Background(), f.db, TransactionParams{
		CompanyID: "company-1",
		Type:      TypeWithdrawal,
		Amount:    decimal.NewFromInt(10),
		Status:    StatusCompleted,
	})
	require.NoError(t, err)

	stats, err := f.svc.GetStats(context.Background(), "company-1")
	require.NoError(t, err)
	require.True(t, stats.WithdrawnAmount.Equal(decimal.NewFromInt(10)))
	require.True(t, stats.Balance.IsZero())
}

func TestListTransactions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.earn(t, "company-1", 50)
	_, err := f.svc.RequestWithdrawal(ctx, "company-1")
	require.NoError(t, err)
	f.earn(t, "company-2", 1)

	items, info, err := f.svc.ListTransactions(ctx, "company-1", ListFilter{Limit: 3})
	require.NoError(t, err)
	require.Len(t, items, 3)
	require.True(t, info.HasMore)
	require.NotEmpty(t, info.NextCursor)
	require.Equal(t, TypeWithdrawal, items[0].Type)
	for i := 1; i < len(items); i++ {
		require.Greater(t, items[i-1].ID, items[i].ID)
	}

	next, _, err := f.svc.ListTransactions(ctx, "company-1", ListFilter{Limit: 3, Cursor: info.NextCursor})
	require.NoError(t, err)
	require.Len(t, next, 3)
	require.Greater(t, items[2].ID, next[0].ID)

	withdrawals, info, err := f.svc.ListTransactions(ctx, "company-1", ListFilter{Type: TypeWithdrawal})
	require.NoError(t, err)
	require.Len(t, withdrawals, 1)
	require.False(t, info.HasMore)

	earns, _, err := f.svc.ListTransactions(ctx, "company-1", ListFilter{Type: TypeEarn, Limit: pagination.MaxLimit})
	require.NoError(t, err)
	require.Len(t, earns, 50)
	for _, e := range earns {
		require.Equal(t, "company-1", e.CompanyID)
	}
}

func TestListTransactions_InvalidCursor(t *testing.T) {
	f := newFixture(t)
	f.earn(t, "company-1", 2)

	for _, cursor := range []string{"not-a-cursor", "e30="} {
		_, _, err := f.svc.ListTransactions(context.Background(), "company-1", ListFilter{Cursor: cursor})
		requireStatus(t, err, errutil.StatusValidationFailed)
	}
}

func TestListTransactions_InvalidFilter(t *testing.T) {
	f := newFixture(t)

	_, _, err := f.svc.ListTransactions(context.Background(), "company-1", ListFilter{Type: "refund"})
	requireStatus(t, err, errutil.StatusValidationFailed)

	_, _, err = f.svc.ListTransactions(context.Background(), "company-1", ListFilter{Status: "failed"})
	requireStatus(t, err, errutil.StatusValidationFailed)
}

func TestCompleteWithdrawal(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.earn(t, "company-1", 50)

	result, err := f.svc.RequestWithdrawal(ctx, "company-1")
	require.NoError(t, err)

	_, err = f.svc.CompleteWithdrawal(ctx, "company-2", result.Transaction.ID)
	requireStatus(t, err, errutil.StatusNotFound)

	done, err := f.svc.CompleteWithdrawal(ctx, "company-1", result.Transaction.ID)
	require.NoError(t, err)
	require.Equal(t, StatusCompleted, done.Status)

	_, err = f.svc.CompleteWithdrawal(ctx, "company-1", result.Transaction.ID)
	requireStatus(t, err, errutil.StatusConflict)

	_, err = f.svc.CompleteWithdrawal(ctx, "company-1", "missing")
	requireStatus(t, err, errutil.StatusNotFound)

	stats, err := f.svc.GetStats(ctx, "company-1")
	require.NoError(t, err)
	require.True(t, stats.Balance.IsZero())
	require.True(t, stats.WithdrawnAmount.Equal(decimal.NewFromInt(50)))

	chain, err := f.svc.VerifyChain(ctx, "company-1")
	require.NoError(t, err)
	require.True(t, chain.Valid)
}

func TestVerifyChain_AfterOperations(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.earn(t, "company-1", 50)
	_, err := f.svc.RequestWithdrawal(ctx, "company-1")
	require.NoError(t, err)
	f.earn(t, "company-1", 1)

	result, err := f.svc.VerifyChain(ctx, "company-1")
	require.NoError(t, err)
	require.True(t, result.Valid)
	require.Equal(t, 52, result.Checked)
	require.Empty(t, result.BrokenAt)
}

func TestVerifyChain_DetectsTampering(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.earn(t, "company-1", 3)

	items, _, err := f.svc.ListTransactions(ctx, "company-1", ListFilter{})
	require.NoError(t, err)
	require.Len(t, items, 3)
	middle := items[1]

	require.NoError(t, f.db.Model(&RewardTransaction{}).Where("id = ?", middle.ID).Update("amount", "100").Error)

	result, err := f.svc.VerifyChain(ctx, "company-1")
	require.NoError(t, err)
	require.False(t, result.Valid)
	require.Equal(t, middle.ID, result.BrokenAt)
	require.Equal(t, 2, result.Checked)
}

func TestVerifyChain_BrokenLink(t *testing.T) {
	now := time.Now()
	first := NewRewardTransaction(TransactionParams{
		ID:        "1",
		CompanyID: "company-1",
		Sequence:  1,
		Type:      TypeEarn,
		Amount:    decimal.NewFromInt(1),
		Status:    StatusCompleted,
		CreatedAt: now,
	})
	second := NewRewardTransaction(TransactionParams{
		ID:           "2",
		CompanyID:    "company-1",
		Sequence:     2,
		Type:         TypeEarn,
		Amount:       decimal.NewFromInt(1),
		Status:       StatusCompleted,
		PreviousHash: "not-the-previous-hash",
		CreatedAt:    now.Add(time.Second),
	})

	svc := &Service{
		transaction: &repoMock[RewardTransaction]{
			findFn: func(ctx context.Context, _ *RewardTransaction, opts ...option.QueryOption) ([]*RewardTransaction, error) {
				return []*RewardTransaction{first, second}, nil
			},
		},
	}

	result, err := svc.VerifyChain(context.Background(), "company-1")
	require.NoError(t, err)
	require.False(t, result.Valid)
	require.Equal(t, "2", result.BrokenAt)
}

func TestVerifyChain_SequenceGap(t *testing.T) {
	now := time.Now()
	first := NewRewardTransaction(TransactionParams{
		ID:        "1",
		CompanyID: "company-1",
		Sequence:  1,
		Type:      TypeEarn,
		Amount:    decimal.NewFromInt(1),
		Status:    StatusCompleted,
		CreatedAt: now,
	})
	third := NewRewardTransaction(TransactionParams{
		ID:           "3",
		CompanyID:    "company-1",
		Sequence:     3,
		Type:         TypeEarn,
		Amount:       decimal.NewFromInt(1),
		Status:       StatusCompleted,
		PreviousHash: first.Hash,
		CreatedAt:    now.Add(time.Second),
	})

	svc := &Service{
		transaction: &repoMock[RewardTransaction]{
			findFn: func(ctx context.Context, _ *RewardTransaction, opts ...option.QueryOption) ([]*RewardTransaction, error) {
				return []*RewardTransaction{first, third}, nil
			},
		},
	}

	result, err := svc.VerifyChain(context.Background(), "company-1")
	require.NoError(t, err)
	require.False(t, result.Valid)
	require.Equal(t, "3", result.BrokenAt)
}

// A node whose clock lags the others issues smaller ids; the chain must
// still follow append order.
func TestVerifyChain_LaggingNodeClock(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.earn(t, "company-1", 2)

	epoch := snowflake.Epoch
	snowflake.Epoch = epoch + int64(24*time.Hour/time.Millisecond)
	lagging, err := snowflake.NewNode(2)
	snowflake.Epoch = epoch
	require.NoError(t, err)
	f.svc.node = lagging
	f.earn(t, "company-1", 1)

	var entries []*RewardTransaction
	require.NoError(t, f.db.Order("sequence").Find(&entries).Error)
	require.Len(t, entries, 3)
	require.Less(t, entries[2].ID, entries[1].ID)
	require.Equal(t, []int64{1, 2, 3}, []int64{entries[0].Sequence, entries[1].Sequence, entries[2].Sequence})
	require.Equal(t, entries[1].Hash, entries[2].PreviousHash)

	result, err := f.svc.VerifyChain(ctx, "company-1")
	require.NoError(t, err)
	require.True(t, result.Valid)
	require.Equal(t, 3, result.Checked)
}

func TestVerifyChain_LoadError(t *testing.T) {
	svc := &Service{
		transaction: &repoMock[RewardTransaction]{
			findFn: func(ctx context.Context, _ *RewardTransaction, opts ...option.QueryOption) ([]*RewardTransaction, error) {
				return nil, errors.New("db down")
			},
		},
	}

	_, err := svc.VerifyChain(context.Background(), "company-1")
	require.Error(t, err)
	require.Equal(t, errutil.StatusInternal, errutil.StatusOf(err))
}
