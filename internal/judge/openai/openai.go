package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"agent-trader/internal/logger"
	"agent-trader/internal/store"
	"agent-trader/internal/trace"
	"agent-trader/internal/types"
)

// Judge calls the OpenAI chat completions API and returns the raw
// assistant text. Classification of that text happens in the
// orchestrator, not here.
type Judge struct {
	cfg      *store.Config
	endpoint string
}

func NewJudge(cfg *store.Config) *Judge {
	endpoint := "https://api.openai.com/v1/chat/completions"
	if ep := os.Getenv("OPENAI_API_ENDPOINT"); ep != "" {
		endpoint = ep
	}
	return &Judge{cfg: cfg, endpoint: endpoint}
}

func (j *Judge) Complete(ctx context.Context, system, user string) (string, error) {
	ctx, span := trace.StartSpan(ctx, "openai-complete")
	defer span.End()

	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		return "", fmt.Errorf("OPENAI_API_KEY missing: %w", types.ErrProvider)
	}

	body := map[string]any{
		"model": j.cfg.LLM.Model,
		"messages": []map[string]string{
			{"role": "system", "content": system},
			{"role": "user", "content": user},
		},
		"temperature": j.cfg.LLM.Temperature,
	}
	if j.cfg.LLM.MaxTokens > 0 {
		body["max_tokens"] = j.cfg.LLM.MaxTokens
	}
	bb, _ := json.Marshal(body)

	start := time.Now()
	req, err := http.NewRequestWithContext(ctx, "POST", j.endpoint, bytes.NewReader(bb))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	latency := time.Since(start)
	if err != nil {
		logger.ErrorWithErr(ctx, "OpenAI request failed", err, "latency_ms", latency.Milliseconds())
		return "", fmt.Errorf("openai request: %v: %w", err, types.ErrProvider)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		logger.Error(ctx, "OpenAI returned error status", "status_code", resp.StatusCode)
		return "", fmt.Errorf("openai http %d: %s: %w", resp.StatusCode, truncate(string(body), 200), types.ErrProvider)
	}

	var r struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&r); err != nil {
		return "", fmt.Errorf("decode openai response: %v: %w", err, types.ErrProvider)
	}
	if len(r.Choices) == 0 {
		return "", fmt.Errorf("openai response has no choices: %w", types.ErrProvider)
	}

	out := strings.TrimSpace(r.Choices[0].Message.Content)
	if out == "" {
		return "", fmt.Errorf("openai response is empty: %w", types.ErrProvider)
	}

	logger.Debug(ctx, "OpenAI completion received",
		"model", j.cfg.LLM.Model,
		"response_length", len(out),
		"latency_ms", latency.Milliseconds(),
	)
	return out, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
