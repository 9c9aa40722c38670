package main

import (
	"log"

	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	"bakimla-reward/pkg/config"
	"bakimla-reward/pkg/db"
	"bakimla-reward/pkg/featureflags"
	"bakimla-reward/pkg/gen"
	"bakimla-reward/pkg/hashistack/secretmanager"
	"bakimla-reward/pkg/hashistack/servicediscover"
	"bakimla-reward/pkg/health"
	"bakimla-reward/pkg/httpapi"
	"bakimla-reward/pkg/lock"
	"bakimla-reward/pkg/logger"
	"bakimla-reward/pkg/otelcol"
	"bakimla-reward/pkg/profiling"
	"bakimla-reward/pkg/redis"
	"bakimla-reward/pkg/sequence"
	"bakimla-reward/pkg/server"
	"bakimla-reward/services/appointment"
	"bakimla-reward/services/reward"
	"bakimla-reward/services/store"
)

func main() {
	opts := []fx.Option{
		secretmanager.Options(),
		config.Module,
		logger.Module,
		otelcol.Module,
		profiling.Module,
		db.Module,
		redis.Module,
		lock.Module,
		sequence.Module,
		gen.Module,
		featureflags.Module,
		health.Module,
		httpapi.Module,
		store.Module,
		appointment.Reader,
		appointment.Module,
		reward.Module,
		server.ProvideGRPCServer,
		server.ProvideHTTPServer,
		servicediscover.Module,
		fxLogger,
	}

	if err := fx.ValidateApp(opts...); err != nil {
		log.Fatalf("fx validation failed: %v", err)
	}

	app := fx.New(opts...)

	app.Run()
}

var fxLogger = fx.WithLogger(func(cfg *config.Config, logger *zap.Logger) fxevent.Logger {
	return fxevent.NopLogger
})
