package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/kailas-cloud/roledex/internal/domain"
	"github.com/kailas-cloud/roledex/internal/metrics"
)

const scorerSystemPrompt = `You are evaluating how well a job vacancy matches an operational role need.
The role need describes what a human user of a software system must do.
The vacancy is from a real job database.

Score the match on three axes (0-5 each):
- task_score: Do the vacancy's tasks align with what the role need requires?
- domain_score: Do the vacancy's skills/description match the required domain expertise?
- seniority_score: Does the vacancy's apparent seniority match the required level?

Also provide a brief rationale (1 sentence).

Return JSON: {"scores": [{"task_score": N, "domain_score": N, "seniority_score": N, "rationale": "..."}]}
with one entry per vacancy, in input order.`

// Scorer grades role-need/vacancy pairs through an OpenAI-compatible chat API.
// It is the sole source of semantic judgment; it may return fewer scores than
// requested vacancies and callers must treat it as lossy.
type Scorer struct {
	client *openai.Client
	model  string
	logger *zap.Logger
}

// ScorerConfig holds the scoring provider settings.
type ScorerConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	Logger  *zap.Logger
}

// NewScorer creates an OpenAI-compatible scoring collaborator.
func NewScorer(cfg *ScorerConfig) *Scorer {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	return &Scorer{
		client: openai.NewClientWithConfig(clientCfg),
		model:  cfg.Model,
		logger: cfg.Logger,
	}
}

type needSummary struct {
	Description     string   `json:"description"`
	Category        string   `json:"category"`
	DomainExpertise []string `json:"domain_expertise"`
	Seniority       string   `json:"seniority"`
}

// ScoreBatch asks for three subscores per vacancy. The result is aligned by
// position with the input batch and may be shorter.
func (s *Scorer) ScoreBatch(
	ctx context.Context, need domain.RoleNeed, batch []domain.VacancySummary,
) ([]domain.AxisScores, error) {
	if len(batch) == 0 {
		return nil, nil
	}

	needJSON, err := json.MarshalIndent(needSummary{
		Description:     need.Description,
		Category:        string(need.Category),
		DomainExpertise: need.DomainExpertise,
		Seniority:       string(need.SenioritySignal),
	}, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal need: %w", err)
	}
	batchJSON, err := json.MarshalIndent(batch, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal vacancies: %w", err)
	}

	userPrompt := fmt.Sprintf(
		"Role need:\n%s\n\nScore each of these vacancies against the role need.\n\nVacancies:\n%s",
		needJSON, batchJSON,
	)

	start := time.Now()

	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: s.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: scorerSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userPrompt},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})

	duration := time.Since(start)

	if err != nil {
		metrics.ScoringRequestsTotal.WithLabelValues(s.model, "error").Inc()
		return nil, fmt.Errorf("scoring request: %v: %w", err, domain.ErrScoringProviderError)
	}
	if len(resp.Choices) == 0 {
		metrics.ScoringRequestsTotal.WithLabelValues(s.model, "error").Inc()
		return nil, fmt.Errorf("empty scoring response: %w", domain.ErrScoringProviderError)
	}

	scores, err := parseScores(resp.Choices[0].Message.Content)
	if err != nil {
		metrics.ScoringRequestsTotal.WithLabelValues(s.model, "error").Inc()
		return nil, fmt.Errorf("parse scoring response: %v: %w", err, domain.ErrScoringProviderError)
	}

	metrics.ScoringRequestsTotal.WithLabelValues(s.model, "success").Inc()
	metrics.ScoringRequestDuration.WithLabelValues(s.model).Observe(duration.Seconds())

	if len(scores) > len(batch) {
		scores = scores[:len(batch)]
	}
	if len(scores) < len(batch) {
		s.logger.Warn("Scorer under-returned",
			zap.String("need_id", need.ID),
			zap.Int("requested", len(batch)),
			zap.Int("returned", len(scores)),
		)
	}

	return scores, nil
}

// parseScores accepts {"scores": [...]}, a bare array, or a single object.
func parseScores(content string) ([]domain.AxisScores, error) {
	var wrapped struct {
		Scores []domain.AxisScores `json:"scores"`
	}
	if err := json.Unmarshal([]byte(content), &wrapped); err == nil && wrapped.Scores != nil {
		return wrapped.Scores, nil
	}

	var list []domain.AxisScores
	if err := json.Unmarshal([]byte(content), &list); err == nil {
		return list, nil
	}

	var single domain.AxisScores
	if err := json.Unmarshal([]byte(content), &single); err == nil {
		return []domain.AxisScores{single}, nil
	}

	return nil, fmt.Errorf("unrecognized scoring payload")
}
