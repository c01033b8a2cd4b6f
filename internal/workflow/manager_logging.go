package workflow

import (
	"context"

	"clipforge/internal/services"
)

func withStageContext(ctx context.Context, jobID, stageName, requestID string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	if jobID != "" {
		ctx = services.WithJobID(ctx, jobID)
	}
	if stageName != "" {
		ctx = services.WithStage(ctx, stageName)
	}
	if requestID != "" {
		ctx = services.WithRequestID(ctx, requestID)
	}
	return ctx
}
