package domain

import "context"

type HealthStatus struct {
	Status   string `json:"status"`
	Database string `json:"database"`
	Redis    string `json:"redis"`
}

type HealthUsecase interface {
	Check(ctx context.Context) HealthStatus
}
