package noop

import (
	"context"

	"agent-trader/internal/logger"
)

// Judge is the fallback used when no LLM provider is configured. Every
// stage sees a neutral response, so every analysis classifies to
// HOLD/NEUTRAL.
type Judge struct{}

func NewJudge() *Judge {
	return &Judge{}
}

func (j *Judge) Complete(ctx context.Context, system, user string) (string, error) {
	logger.Debug(ctx, "Noop judge called - returning neutral response")
	return "No provider configured; neutral stance with no actionable signal.", nil
}
