package usecase

import (
	"context"
	"time"

	"cv-platform-backend/internal/domain"
)

// Pinger is satisfied by *pgxpool.Pool.
type Pinger interface {
	Ping(ctx context.Context) error
}

type healthUsecase struct {
	db    Pinger
	redis func(ctx context.Context) error
}

// NewHealthUsecase reports database and cache reachability. redisCheck is nil when Redis is disabled.
func NewHealthUsecase(db Pinger, redisCheck func(ctx context.Context) error) domain.HealthUsecase {
	return &healthUsecase{db: db, redis: redisCheck}
}

func (u *healthUsecase) Check(ctx context.Context) domain.HealthStatus {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	status := domain.HealthStatus{Status: "ok", Database: "up", Redis: "disabled"}

	if u.db == nil || u.db.Ping(ctx) != nil {
		status.Database = "down"
		status.Status = "degraded"
	}
	if u.redis != nil {
		status.Redis = "up"
		if err := u.redis(ctx); err != nil {
			status.Redis = "down"
			status.Status = "degraded"
		}
	}
	return status
}
