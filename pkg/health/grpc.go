package health

import (
	"context"

	"bakimla-reward/pkg/errutil"

	"github.com/gogo/status"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health/grpc_health_v1"
	"gorm.io/gorm"
)

// GRPCHealth serves grpc.health.v1 backed by a database ping.
type GRPCHealth struct {
	grpc_health_v1.UnimplementedHealthServer
	db *gorm.DB
}

func NewGRPCHealth(db *gorm.DB) *GRPCHealth {
	return &GRPCHealth{db: db}
}

func (s *GRPCHealth) Check(ctx context.Context, req *grpc_health_v1.HealthCheckRequest) (*grpc_health_v1.HealthCheckResponse, error) {
	if s.db == nil {
		return nil, errutil.ServiceUnavailable("database not configured", nil)
	}
	if err := pingDB(ctx, s.db); err != nil {
		return &grpc_health_v1.HealthCheckResponse{Status: grpc_health_v1.HealthCheckResponse_NOT_SERVING}, nil
	}

	return &grpc_health_v1.HealthCheckResponse{Status: grpc_health_v1.HealthCheckResponse_SERVING}, nil
}

func (s *GRPCHealth) Watch(req *grpc_health_v1.HealthCheckRequest, srv grpc_health_v1.Health_WatchServer) error {
	return status.Error(codes.Unimplemented, "Watch method not implemented")
}
