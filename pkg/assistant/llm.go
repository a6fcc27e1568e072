package assistant

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/imuii-id/imuii-portal/pkg/apperrors"
	"github.com/imuii-id/imuii-portal/pkg/logging"
	"github.com/imuii-id/imuii-portal/pkg/models"
	"github.com/imuii-id/imuii-portal/pkg/retry"
)

// Catalog supplies the showcase the model searches over.
type Catalog interface {
	ShowcaseItems(ctx context.Context) ([]models.ShowcaseItem, error)
}

// LLMConfig holds configuration for the OpenAI-compatible assistant.
type LLMConfig struct {
	Endpoint    string // Base URL, e.g. "https://api.openai.com/v1"
	Model       string
	APIKey      string
	Temperature float64
	MaxProjects int // entries of the catalog included in the prompt
	MaxMatches  int // project cards attached to a reply
	Retry       *retry.Config
}

const (
	defaultMaxProjects = 200
	defaultMaxMatches  = 5
	maxSummaryRunes    = 240
)

const systemPrompt = `You help visitors of a student project showcase find projects.
You receive the catalog as JSON lines with id, type, title, description, tags and owner.
Answer in the language of the question. Only recommend entries from the catalog.
Respond with a single JSON object: {"message": "<answer for the visitor>", "project_ids": ["<id>", ...]}.
Use an empty project_ids list when nothing matches.`

// LLM answers with an OpenAI-compatible chat completion over the showcase catalog.
type LLM struct {
	client  *openai.Client
	model   string
	cfg     LLMConfig
	catalog Catalog
	logger  *zap.Logger
}

// NewLLM creates an LLM assistant.
func NewLLM(cfg LLMConfig, catalog Catalog, logger *zap.Logger) (*LLM, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("endpoint is required")
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("model is required")
	}
	if cfg.MaxProjects <= 0 {
		cfg.MaxProjects = defaultMaxProjects
	}
	if cfg.MaxMatches <= 0 {
		cfg.MaxMatches = defaultMaxMatches
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	clientConfig.BaseURL = strings.TrimSuffix(cfg.Endpoint, "/")

	return &LLM{
		client:  openai.NewClientWithConfig(clientConfig),
		model:   cfg.Model,
		cfg:     cfg,
		catalog: catalog,
		logger:  logger.Named("assistant.llm"),
	}, nil
}

type catalogLine struct {
	ID          models.ID       `json:"id"`
	Type        models.ItemType `json:"type"`
	Title       string          `json:"title"`
	Description string          `json:"description,omitempty"`
	Tags        []string        `json:"tags,omitempty"`
	Owner       string          `json:"owner,omitempty"`
}

type modelAnswer struct {
	Message    string      `json:"message"`
	ProjectIDs []models.ID `json:"project_ids"`
}

func (l *LLM) Ask(ctx context.Context, sessionID, message string) (*Reply, error) {
	items, err := l.catalog.ShowcaseItems(ctx)
	if err != nil {
		return nil, fmt.Errorf("load showcase for chat: %w", err)
	}

	catalog, err := buildCatalog(items, l.cfg.MaxProjects)
	if err != nil {
		return nil, err
	}

	req := openai.ChatCompletionRequest{
		Model: l.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleSystem, Content: "Catalog:\n" + catalog},
			{Role: openai.ChatMessageRoleUser, Content: message},
		},
		Temperature: float32(l.cfg.Temperature),
		User:        sessionID,
	}

	l.logger.Debug("LLM request",
		zap.String("model", l.model),
		zap.Int("catalog_size", len(items)),
		zap.Int("message_len", len(message)))

	start := time.Now()
	var resp openai.ChatCompletionResponse
	err = retry.DoIfRetryable(ctx, l.cfg.Retry, func() error {
		var callErr error
		resp, callErr = l.client.CreateChatCompletion(ctx, req)
		if callErr != nil {
			return classifyError(callErr)
		}
		return nil
	})
	if err != nil {
		l.logger.Error("LLM request failed",
			zap.Duration("elapsed", time.Since(start)),
			zap.String("error", logging.SanitizeError(err)))
		return nil, toAppError(err)
	}
	if len(resp.Choices) == 0 {
		return nil, &apperrors.APIError{StatusCode: http.StatusBadGateway, Message: "assistant returned no answer"}
	}

	l.logger.Info("LLM request completed",
		zap.Int("prompt_tokens", resp.Usage.PromptTokens),
		zap.Int("completion_tokens", resp.Usage.CompletionTokens),
		zap.Duration("elapsed", time.Since(start)))

	return l.buildReply(resp.Choices[0].Message.Content, items), nil
}

// buildReply keeps only ids that exist in the catalog, in the model's order.
func (l *LLM) buildReply(content string, items []models.ShowcaseItem) *Reply {
	answer, err := ParseJSONResponse[modelAnswer](content)
	if err != nil {
		// Free text answer without structured matches.
		l.logger.Debug("LLM answer is not JSON", zap.Error(err))
		return &Reply{Success: true, Message: strings.TrimSpace(stripThinking(content)), Projects: []Project{}}
	}

	byID := make(map[models.ID]*models.Item, len(items))
	for i := range items {
		if items[i].Type == models.ItemTypeProject {
			byID[items[i].ID] = &items[i].Item
		}
	}

	projects := make([]Project, 0, len(answer.ProjectIDs))
	seen := make(map[models.ID]bool)
	for _, id := range answer.ProjectIDs {
		item, ok := byID[id]
		if !ok || seen[id] {
			continue
		}
		seen[id] = true
		projects = append(projects, ProjectFromItem(item))
		if len(projects) == l.cfg.MaxMatches {
			break
		}
	}

	return &Reply{Success: true, Message: answer.Message, Projects: projects}
}

func buildCatalog(items []models.ShowcaseItem, limit int) (string, error) {
	var sb strings.Builder
	for i := range items {
		if i == limit {
			break
		}
		item := &items[i]
		line, err := json.Marshal(catalogLine{
			ID:          item.ID,
			Type:        item.Type,
			Title:       item.Title(),
			Description: truncateRunes(item.Summary(), maxSummaryRunes),
			Tags:        item.Tags,
			Owner:       ownerName(&item.Item),
		})
		if err != nil {
			return "", fmt.Errorf("encode catalog entry %s: %w", item.ID, err)
		}
		sb.Write(line)
		sb.WriteByte('\n')
	}
	return sb.String(), nil
}

func ownerName(item *models.Item) string {
	if owner := item.OwnerRef(); owner != nil {
		return owner.Name
	}
	return ""
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}

// llmError carries the retry classification of a failed completion call.
type llmError struct {
	status    int
	retryable bool
	cause     error
}

func (e *llmError) Error() string {
	if e.status > 0 {
		return fmt.Sprintf("llm HTTP %d: %v", e.status, e.cause)
	}
	return fmt.Sprintf("llm: %v", e.cause)
}

func (e *llmError) Unwrap() error     { return e.cause }
func (e *llmError) IsRetryable() bool { return e.retryable }

func classifyError(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return &llmError{status: apiErr.HTTPStatusCode, retryable: retryableStatus(apiErr.HTTPStatusCode), cause: err}
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return &llmError{status: reqErr.HTTPStatusCode, retryable: retryableStatus(reqErr.HTTPStatusCode), cause: err}
	}
	return &llmError{retryable: retry.IsRetryable(err), cause: err}
}

func retryableStatus(status int) bool {
	return status == http.StatusTooManyRequests || status >= 500
}

// toAppError maps a final completion failure onto the portal taxonomy.
func toAppError(err error) error {
	var le *llmError
	if errors.As(err, &le) {
		if le.status == 0 {
			return fmt.Errorf("%w: assistant: %s", apperrors.ErrTransport, logging.SanitizeError(le.cause))
		}
		return &apperrors.APIError{StatusCode: http.StatusBadGateway, Message: "assistant is unavailable"}
	}
	return err
}

var _ Assistant = (*LLM)(nil)
