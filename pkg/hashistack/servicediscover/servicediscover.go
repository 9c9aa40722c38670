package servicediscover

import (
	"context"
	"fmt"
	"net"
	"os"
	"strconv"

	"bakimla-reward/pkg/config"

	"github.com/hashicorp/consul/api"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("servicediscover",
	fx.Invoke(registerConsul),
)

type ServiceRegistry interface {
	Register(ctx context.Context) error
	Deregister(ctx context.Context) error
}

func registerConsul(lc fx.Lifecycle, cfg *config.Config) error {
	if cfg.Consul.Addr == "" {
		zap.L().Info("[Consul] service registration disabled")
		return nil
	}

	registry, err := NewConsulRegistry(cfg)
	if err != nil {
		return err
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := registry.Register(ctx); err != nil {
				zap.L().Error("[Consul] failed to register service", zap.Error(err))
				return err
			}
			zap.L().Info("[Consul] service registered", zap.String("id", registry.serviceID))
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return registry.Deregister(ctx)
		},
	})
	return nil
}

func NewConfig(cfg *config.Config) *api.Config {
	config := api.DefaultConfig()
	config.Address = cfg.Consul.Addr

	return config
}

type ConsulRegistry struct {
	client    *api.Client
	serviceID string
	service   *api.AgentServiceRegistration
}

func NewConsulRegistry(cfg *config.Config) (*ConsulRegistry, error) {
	client, err := api.NewClient(NewConfig(cfg))
	if err != nil {
		return nil, err
	}

	return &ConsulRegistry{
		client:    client,
		serviceID: ServiceID(cfg),
		service:   NewRegistration(cfg),
	}, nil
}

func ServiceID(cfg *config.Config) string {
	host, _ := os.Hostname()
	return fmt.Sprintf("%s-%s", cfg.AppName, host)
}

// NewRegistration describes the HTTP port with a readiness check.
func NewRegistration(cfg *config.Config) *api.AgentServiceRegistration {
	host := cfg.Consul.ServiceHost
	if host == "" {
		host, _ = os.Hostname()
	}
	port, _ := strconv.Atoi(cfg.Server.Addr)

	return &api.AgentServiceRegistration{
		ID:      ServiceID(cfg),
		Name:    cfg.AppName,
		Address: host,
		Port:    port,
		Tags:    []string{cfg.AppEnv, "http"},
		Check: &api.AgentServiceCheck{
			HTTP:                           fmt.Sprintf("http://%s/readyz", net.JoinHostPort(host, cfg.Server.Addr)),
			Interval:                       "10s",
			Timeout:                        "5s",
			DeregisterCriticalServiceAfter: "1m",
		},
	}
}

func (r *ConsulRegistry) Register(ctx context.Context) error {
	return r.client.Agent().ServiceRegisterOpts(r.service, api.ServiceRegisterOpts{}.WithContext(ctx))
}

func (r *ConsulRegistry) Deregister(ctx context.Context) error {
	return r.client.Agent().ServiceDeregisterOpts(r.serviceID, (&api.QueryOptions{}).WithContext(ctx))
}
