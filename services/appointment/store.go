package appointment

import (
	"context"
	"fmt"

	"bakimla-reward/pkg/errutil"
	"bakimla-reward/pkg/repository"

	"go.uber.org/fx"
	"gorm.io/gorm"
)

// Store reads and writes appointments. The reward ledger depends on it for Get only.
type Store struct {
	appointments repository.Repository[Appointment]
}

type StoreParams struct {
	fx.In
	DB *gorm.DB
}

func NewStore(p StoreParams) *Store {
	return &Store{
		appointments: repository.ProvideStore[Appointment](p.DB),
	}
}

func (s *Store) Get(ctx context.Context, id string) (*Appointment, error) {
	if id == "" {
		return nil, errutil.BadRequest("appointment id is required", nil)
	}

	appt, err := s.appointments.FindOne(ctx, &Appointment{ID: id})
	if err != nil {
		return nil, fmt.Errorf("find appointment %s: %w", id, err)
	}
	if appt == nil {
		return nil, errutil.NotFound("appointment not found", nil)
	}
	return appt, nil
}

func (s *Store) Create(ctx context.Context, appt *Appointment) error {
	return s.appointments.Create(ctx, appt)
}

// CreateBatch inserts appointments in chunks of 100.
func (s *Store) CreateBatch(ctx context.Context, appts []*Appointment) error {
	if err := s.appointments.BatchCreate(ctx, appts); err != nil {
		return fmt.Errorf("create appointments: %w", err)
	}
	return nil
}
