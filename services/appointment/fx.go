package appointment

import (
	"bakimla-reward/pkg/db"
	"bakimla-reward/pkg/middleware"

	"github.com/gin-gonic/gin"
	"go.uber.org/fx"
)

// Reader is the part of the module the reward worker needs.
var Reader = fx.Module("appointment.store",
	fx.Provide(
		NewStore,
		db.AsMigration(migration),
	),
)

var Module = fx.Module("appointment.service",
	fx.Provide(NewService, NewHandler),
	fx.Invoke(registerRoutes),
)

func migration() db.Migration {
	return db.Migration{Name: "appointment", Models: []any{&Appointment{}}}
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
