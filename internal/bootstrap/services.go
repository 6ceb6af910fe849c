package bootstrap

import (
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/fieldops/workorder-api/config"
	"github.com/fieldops/workorder-api/internal/core"
	"github.com/fieldops/workorder-api/internal/data"
	"github.com/fieldops/workorder-api/internal/notify/fcm"
	"github.com/fieldops/workorder-api/internal/service"
)

// ServiceContainer holds all application services.
type ServiceContainer struct {
	Routing *service.RoutingService
	Query   *service.QueryService
}

// ServiceDeps groups dependencies for service initialization.
type ServiceDeps struct {
	Config      *config.AppConfig
	DB          *sql.DB
	RedisClient redis.UniversalClient
	Logger      *slog.Logger
}

// BuildServices constructs the service container from shared dependencies.
func BuildServices(deps ServiceDeps) (*ServiceContainer, error) {
	if deps.Config == nil {
		return nil, fmt.Errorf("config is required")
	}
	if deps.DB == nil {
		return nil, fmt.Errorf("db is required")
	}

	var push core.PushSender
	if deps.Config.Push.Enabled() {
		client, err := fcm.NewClient(fcm.Config{
			Endpoint:  deps.Config.Push.Endpoint,
			ServerKey: deps.Config.Push.ServerKey,
			Timeout:   deps.Config.Push.Timeout,
		})
		if err != nil {
			return nil, fmt.Errorf("build push client: %w", err)
		}
		push = client
	}

	routing, err := service.NewRoutingService(service.RoutingServiceOptions{
		DB:     deps.DB,
		Store:  data.NewRoutingStore(),
		Groups: data.NewGroupDirectoryRepo(deps.DB),
		Push:   push,
		Logger: deps.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("build routing service: %w", err)
	}

	queryOpts := service.QueryServiceOptions{
		Assignments:   data.NewAssignmentRepo(deps.DB),
		ReturnCases:   data.NewReturnCaseRepo(deps.DB),
		Notifications: data.NewNotificationRepo(deps.DB),
		Logger:        deps.Logger,
	}
	if deps.RedisClient != nil {
		queryOpts.RecentSearches = data.NewRecentSearchRepo(deps.RedisClient)
	}
	query, err := service.NewQueryService(queryOpts)
	if err != nil {
		return nil, fmt.Errorf("build query service: %w", err)
	}

	return &ServiceContainer{Routing: routing, Query: query}, nil
}
