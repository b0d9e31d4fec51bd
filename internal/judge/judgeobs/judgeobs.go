package judgeobs

import (
	"context"
	"time"

	"agent-trader/internal/interfaces"
	"agent-trader/internal/logger"
	"agent-trader/internal/trace"
)

// observableJudge wraps a Judge with observability (logging & tracing).
type observableJudge struct {
	judge interfaces.Judge
}

var _ interfaces.Judge = (*observableJudge)(nil)

func Wrap(judge interfaces.Judge) interfaces.Judge {
	return &observableJudge{judge: judge}
}

func (oj *observableJudge) Complete(ctx context.Context, system, user string) (string, error) {
	ctx, span := trace.StartSpan(ctx, "judge.Complete")
	defer span.End()

	start := time.Now()
	out, err := oj.judge.Complete(ctx, system, user)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Judgment request failed", err,
			"prompt_length", len(system)+len(user),
			"duration_ms", time.Since(start).Milliseconds(),
		)
		return "", err
	}

	logger.DebugSkip(ctx, 1, "Judgment received",
		"prompt_length", len(system)+len(user),
		"response_length", len(out),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return out, nil
}
