package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	"bakimla-reward/pkg/config"
	"bakimla-reward/pkg/db"
	"bakimla-reward/pkg/gen"
	"bakimla-reward/pkg/logger"
	"bakimla-reward/pkg/task"
	"bakimla-reward/services/appointment"
	"bakimla-reward/services/reward"
	"bakimla-reward/services/store"
)

type options struct {
	owner        string
	storeName    string
	staff        string
	appointments int
	enqueue      bool
}

func main() {
	var o options
	flag.StringVar(&o.owner, "owner", "owner-demo", "company owner user id")
	flag.StringVar(&o.storeName, "store", "Demo Salon", "store name")
	flag.StringVar(&o.staff, "staff", "", "comma separated user ids added as store staff")
	flag.IntVar(&o.appointments, "appointments", 50, "completed card appointments to create")
	flag.BoolVar(&o.enqueue, "enqueue", true, "publish appointment:completed tasks for the worker")
	flag.Parse()

	opts := []fx.Option{
		config.Module,
		logger.Module,
		db.Module,
		gen.Module,
		store.Module,
		appointment.Reader,
		task.Client,
		fx.Supply(o),
		fx.Invoke(run),
		fxLogger,
	}

	if err := fx.ValidateApp(opts...); err != nil {
		log.Fatalf("fx validation failed: %v", err)
	}

	app := fx.New(opts...)
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	if err := app.Start(ctx); err != nil {
		log.Fatalf("seed failed: %v", err)
	}
	_ = app.Stop(ctx)
}

type seedParams struct {
	fx.In
	Options      options
	Node         *snowflake.Node
	Stores       *store.Service
	Appointments *appointment.Store
	Enqueuer     task.Enqueuer
}

func run(lc fx.Lifecycle, p seedParams) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return seed(ctx, p)
		},
	})
}

func seed(ctx context.Context, p seedParams) error {
	st, err := p.Stores.Create(ctx, p.Options.owner, p.Options.storeName)
	if err != nil {
		return fmt.Errorf("create store: %w", err)
	}
	zap.L().Info("seeded store", zap.String("store_id", st.ID), zap.String("slug", st.Slug))

	for _, userID := range strings.Split(p.Options.staff, ",") {
		userID = strings.TrimSpace(userID)
		if userID == "" {
			continue
		}
		if _, err := p.Stores.AddMember(ctx, st.ID, userID, store.RoleStaff); err != nil {
			return fmt.Errorf("add staff %s: %w", userID, err)
		}
	}

	now := time.Now()
	appts := make([]*appointment.Appointment, 0, p.Options.appointments)
	for i := 0; i < p.Options.appointments; i++ {
		completedAt := now.Add(-time.Duration(p.Options.appointments-i) * time.Hour)
		appts = append(appts, &appointment.Appointment{
			ID:            p.Node.Generate().String(),
			CompanyID:     st.OwnerID,
			StoreID:       st.ID,
			Status:        appointment.StatusCompleted,
			PaymentMethod: appointment.PaymentCard,
			Price:         decimal.NewFromInt(350),
			CompletedAt:   &completedAt,
		})
	}
	if err := p.Appointments.CreateBatch(ctx, appts); err != nil {
		return err
	}

	for _, appt := range appts {
		if !p.Options.enqueue {
			break
		}
		t, err := reward.NewAppointmentCompletedTask(reward.AppointmentCompletedPayload{AppointmentID: appt.ID})
		if err != nil {
			return err
		}
		if _, err := p.Enqueuer.Enqueue(ctx, t); err != nil {
			return err
		}
	}

	zap.L().Info("seeded appointments",
		zap.String("company_id", st.OwnerID),
		zap.Int("count", p.Options.appointments),
		zap.Bool("enqueued", p.Options.enqueue),
	)
	return nil
}

var fxLogger = fx.WithLogger(func(cfg *config.Config, logger *zap.Logger) fxevent.Logger {
	return fxevent.NopLogger
})
