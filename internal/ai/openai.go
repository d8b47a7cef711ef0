package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	catalogdomain "procurement_backend/internal/catalog/domain"
	"procurement_backend/platform/config"
	"procurement_backend/platform/logger"

	"github.com/sashabaranov/go-openai"
)

// OpenAIClient implements the semantic classifier/extractor capabilities on
// the OpenAI chat completion API. Every call is bounded by the configured
// timeout; callers fall back to the deterministic policy on any error, so
// this client reports failures instead of retrying.
type OpenAIClient struct {
	client  *openai.Client
	model   string
	timeout time.Duration
	log     *logger.Logger
}

// NewOpenAIClient creates the semantic client, or nil when no API key is configured.
// A nil *OpenAIClient must not be used as a non-nil interface value.
func NewOpenAIClient(cfg config.OpenAIConfig, log *logger.Logger) *OpenAIClient {
	if !cfg.IsAIEnabled() {
		return nil
	}
	return &OpenAIClient{
		client:  openai.NewClient(cfg.GetOpenAIKey()),
		model:   cfg.GetOpenAIModel(),
		timeout: cfg.GetAITimeout(),
		log:     log,
	}
}

// The OrNil converters return a nil interface for a nil client, so consumers
// checking `classifier == nil` see disabled AI instead of a typed nil.

func ContinuationClassifierOrNil(c *OpenAIClient) ContinuationClassifier {
	if c == nil {
		return nil
	}
	return c
}

func DispositionClassifierOrNil(c *OpenAIClient) DispositionClassifier {
	if c == nil {
		return nil
	}
	return c
}

func FieldExtractorOrNil(c *OpenAIClient) FieldExtractor {
	if c == nil {
		return nil
	}
	return c
}

const continuationPrompt = `You triage inbound B2B procurement messages.
Given the recent messages of an open procurement request and one new inbound
message, decide whether the new message continues the same request or starts a
new one. Respond with ONLY a JSON object:
{"isContinuation": true|false, "confidence": 0.0-1.0, "reason": "short explanation"}

Recent messages (oldest first):
%s

New message:
%s`

// ClassifyContinuation asks the model whether newText continues the candidate request.
func (c *OpenAIClient) ClassifyContinuation(ctx context.Context, history []string, newText string) (ContinuationDecision, error) {
	var decision ContinuationDecision
	prompt := fmt.Sprintf(continuationPrompt, formatHistory(history), newText)
	if err := c.completeJSON(ctx, prompt, &decision); err != nil {
		return ContinuationDecision{}, err
	}
	return decision, nil
}

const dispositionPrompt = `You review the state of a B2B procurement request and
propose a disposition. Allowed actions: keep, close, delete, create_new, merge.
Respond with ONLY a JSON object:
{"action": "...", "confidence": 0.0-1.0, "reason": "short explanation", "mergeWithRequestId": "uuid or empty"}

Request under review:
%s

Other open requests from the same client:
%s`

// AnalyzeDisposition proposes a disposition for the request.
func (c *OpenAIClient) AnalyzeDisposition(ctx context.Context, request RequestSummary, siblings []RequestSummary) (DispositionAdvice, error) {
	reqJSON, err := json.Marshal(request)
	if err != nil {
		return DispositionAdvice{}, err
	}
	sibJSON, err := json.Marshal(siblings)
	if err != nil {
		return DispositionAdvice{}, err
	}

	var advice DispositionAdvice
	prompt := fmt.Sprintf(dispositionPrompt, reqJSON, sibJSON)
	if err := c.completeJSON(ctx, prompt, &advice); err != nil {
		return DispositionAdvice{}, err
	}
	return advice, nil
}

const extractionPrompt = `Extract procurement fields from the message below.
Fields to look for (id, label, example values):
%s

Respond with ONLY a JSON object mapping field id to the detected value,
omitting fields that are not present. Message:
%s`

// Extract asks the model which of the category's fields are present.
func (c *OpenAIClient) Extract(ctx context.Context, content string, rule catalogdomain.CategoryRule) (map[string]string, error) {
	var fieldLines strings.Builder
	for _, field := range rule.Fields {
		fmt.Fprintf(&fieldLines, "- %s (%s): e.g. %s\n", field.ID, field.Label, strings.Join(field.Examples, ", "))
	}

	found := make(map[string]string)
	prompt := fmt.Sprintf(extractionPrompt, fieldLines.String(), content)
	if err := c.completeJSON(ctx, prompt, &found); err != nil {
		return nil, err
	}
	return found, nil
}

// completeJSON runs one bounded chat completion and unmarshals the reply into out.
func (c *OpenAIClient) completeJSON(ctx context.Context, prompt string, out interface{}) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: 0,
	})
	if err != nil {
		return fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return fmt.Errorf("chat completion returned no choices")
	}

	raw := strings.TrimSpace(resp.Choices[0].Message.Content)
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.TrimPrefix(raw, "```")
	raw = strings.TrimSuffix(raw, "```")

	if err := json.Unmarshal([]byte(strings.TrimSpace(raw)), out); err != nil {
		return fmt.Errorf("malformed model response: %w", err)
	}
	return nil
}

func formatHistory(history []string) string {
	if len(history) == 0 {
		return "(none)"
	}
	var b strings.Builder
	for i, msg := range history {
		fmt.Fprintf(&b, "%d. %s\n", i+1, msg)
	}
	return b.String()
}

// Compile-time checks.
var (
	_ ContinuationClassifier = (*OpenAIClient)(nil)
	_ DispositionClassifier  = (*OpenAIClient)(nil)
	_ FieldExtractor         = (*OpenAIClient)(nil)
)
