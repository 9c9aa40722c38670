package reward

import (
	"bakimla-reward/pkg/db"
	"bakimla-reward/pkg/middleware"
	"bakimla-reward/services/appointment"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	"go.uber.org/fx"
)

var core = fx.Options(
	fx.Provide(
		NewService,
		func(s *appointment.Store) AppointmentReader { return s },
		db.AsMigration(migration),
	),
)

// Module serves the reward API and accrues rewards for appointment completions.
var Module = fx.Module("reward.service",
	core,
	fx.Provide(
		NewHandler,
		func(s *Service) appointment.RewardRecorder { return s },
	),
	fx.Invoke(registerRoutes),
)

// Worker consumes reward tasks and runs the nightly reconciliation.
var Worker = fx.Module("reward.worker",
	core,
	fx.Provide(
		NewTaskHandler,
		NewReconciler,
		NewScheduler,
	),
	fx.Invoke(
		registerTasks,
		StartScheduler,
	),
)

func migration() db.Migration {
	return db.Migration{Name: "reward", Models: []any{&Reward{}, &RewardTransaction{}, &Job{}}}
}

type routeParams struct {
	fx.In
	Router   *gin.Engine
	Resolver middleware.TenantResolver
	Handler  *Handler
}

func registerRoutes(p routeParams) {
	v1 := p.Router.Group("/v1", middleware.RequireTenant(p.Resolver))
	p.Handler.Register(v1)
}

func registerTasks(mux *asynq.ServeMux, h *TaskHandler) {
	h.Register(mux)
}
