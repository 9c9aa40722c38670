package store

import (
	"bakimla-reward/pkg/db"
	"bakimla-reward/pkg/middleware"

	"go.uber.org/fx"
)

var Module = fx.Module("store.service",
	fx.Provide(
		NewService,
		func(s *Service) middleware.TenantResolver { return s },
		db.AsMigration(migration),
	),
)

func migration() db.Migration {
	return db.Migration{Name: "store", Models: []any{&Store{}, &StoreMember{}}}
}
