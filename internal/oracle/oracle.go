// File: internal/oracle/oracle.go
package oracle

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/xkilldash9x/droidpilot/api/schemas"
	"github.com/xkilldash9x/droidpilot/internal/action"
	"github.com/xkilldash9x/droidpilot/internal/config"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Decision is the oracle's answer for one step.
type Decision struct {
	Proposal action.Proposal
	// Reasoning is the oracle's plan for this action ("thought").
	Reasoning string
	// Reflection is the oracle's assessment of progress so far.
	Reflection      string
	MissionComplete bool
	Raw             string
}

// LLMOracle asks a multimodal LLM for the next action. It is stateless
// across calls; every Request carries the full context.
type LLMOracle struct {
	client  schemas.LLMClient
	cfg     config.OracleConfig
	limiter *rate.Limiter
	logger  *zap.Logger
}

// NewLLMOracle wraps client. Calls are paced to cfg.RequestsPerMinute; zero disables pacing.
func NewLLMOracle(client schemas.LLMClient, cfg config.OracleConfig, logger *zap.Logger) *LLMOracle {
	limit := rate.Inf
	if cfg.RequestsPerMinute > 0 {
		limit = rate.Limit(cfg.RequestsPerMinute / 60.0)
	}
	return &LLMOracle{
		client:  client,
		cfg:     cfg,
		limiter: rate.NewLimiter(limit, 1),
		logger:  logger.Named("oracle"),
	}
}

// Decide sends one request to the LLM and parses its reply.
func (o *LLMOracle) Decide(ctx context.Context, req Request) (*Decision, error) {
	if err := o.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("oracle rate limiter: %w", err)
	}

	if o.cfg.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.cfg.RequestTimeout)
		defer cancel()
	}

	genReq := schemas.GenerationRequest{
		SystemPrompt: systemPrompt,
		UserPrompt:   renderUserPrompt(req),
		Tier:         schemas.TierPowerful,
		Options: schemas.GenerationOptions{
			ForceJSONFormat: true,
			Temperature:     o.cfg.Temperature,
		},
	}
	if len(req.Screenshot) > 0 {
		genReq.Images = []schemas.ImagePart{{MIMEType: "image/png", Data: req.Screenshot}}
	}

	start := time.Now()
	raw, err := o.client.Generate(ctx, genReq)
	if err != nil {
		return nil, fmt.Errorf("llm generation failed: %w", err)
	}
	o.logger.Debug("Oracle replied",
		zap.Int("step", req.Step),
		zap.Bool("revisit", req.Revisit),
		zap.Duration("latency", time.Since(start).Round(time.Millisecond)),
		zap.Int("response_bytes", len(raw)))

	decision, err := ParseDecision(raw)
	if err != nil {
		o.logger.Warn("Failed to parse oracle response",
			zap.String("raw_response", truncate(raw, 1000)),
			zap.Error(err))
		return nil, err
	}
	return decision, nil
}

// Close releases the underlying client.
func (o *LLMOracle) Close() error {
	return o.client.Close()
}

// effectiveRate is exposed for tests.
func (o *LLMOracle) effectiveRate() float64 {
	l := o.limiter.Limit()
	if l == rate.Inf {
		return math.Inf(1)
	}
	return float64(l)
}
