package judgment

import (
	"context"
	"encoding/json"
	"strings"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/avanta-group/claims-cli/internal/resilience"
)

const systemPrompt = `You are a motor-warranty coverage analyst. You receive one repair
cost-estimate line item and the list of categories the policy covers.
Decide whether the item falls under one of the covered categories.

Respond with ONLY a JSON object, no prose:
{"category": "<covered category name or null>", "covered": <bool>,
 "confidence": <0.0-1.0>, "rationale": "<one short sentence>"}

Descriptions may be German or French garage shorthand. Be conservative:
if you cannot tell what the item is, use low confidence rather than
guessing a category.`

// Client is the Anthropic-backed Matcher implementation.
type Client struct {
	client    sdk.Client
	model     string
	maxTokens int64
	limiter   *rate.Limiter
	retry     resilience.RetryConfig
}

// Option configures the client.
type Option func(*Client)

// WithModel overrides the default model.
func WithModel(model string) Option {
	return func(c *Client) { c.model = model }
}

// WithMaxTokens overrides the response token budget.
func WithMaxTokens(n int64) Option {
	return func(c *Client) { c.maxTokens = n }
}

// WithRequestsPerSec bounds the call rate across all workers.
func WithRequestsPerSec(rps float64) Option {
	return func(c *Client) {
		if rps > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(rps), 1)
		}
	}
}

// NewClient creates a judgment client backed by the Anthropic SDK.
func NewClient(apiKey string, opts ...Option) *Client {
	retry := resilience.DefaultRetryConfig()
	retry.OnRetry = resilience.RetryLogger("anthropic", "messages.create")

	c := &Client{
		client:    sdk.NewClient(option.WithAPIKey(apiKey)),
		model:     "claude-haiku-4-5-20251001",
		maxTokens: 1024,
		limiter:   rate.NewLimiter(rate.Limit(2), 1),
		retry:     retry,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// MatchItem sends one line item for classification. Transient API errors
// are retried with backoff; the context deadline bounds the whole attempt.
func (c *Client) MatchItem(ctx context.Context, req Request) (*Response, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, eris.Wrap(err, "judgment: rate limit wait")
		}
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return nil, eris.Wrap(err, "judgment: marshal request")
	}

	msg, err := resilience.DoVal(ctx, c.retry, func(ctx context.Context) (*sdk.Message, error) {
		return c.client.Messages.New(ctx, sdk.MessageNewParams{
			Model:     sdk.Model(c.model),
			MaxTokens: c.maxTokens,
			System: []sdk.TextBlockParam{
				{Text: systemPrompt},
			},
			Messages: []sdk.MessageParam{
				sdk.NewUserMessage(sdk.NewTextBlock(string(payload))),
			},
		})
	})
	if err != nil {
		return nil, eris.Wrap(err, "judgment: create message")
	}

	var text strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}

	resp, err := ParseResponse(text.String())
	if err != nil {
		return nil, err
	}

	zap.L().Debug("judgment: item classified",
		zap.String("description", req.Description),
		zap.String("category", resp.Category),
		zap.Bool("covered", resp.Covered),
		zap.Float64("confidence", resp.Confidence),
	)
	return resp, nil
}

// ParseResponse extracts the JSON verdict from model output. Tolerates
// surrounding prose or code fences but requires one complete object.
func ParseResponse(text string) (*Response, error) {
	start := strings.IndexByte(text, '{')
	end := strings.LastIndexByte(text, '}')
	if start < 0 || end <= start {
		return nil, eris.Errorf("judgment: no JSON object in response: %.120s", text)
	}

	var raw struct {
		Category   *string `json:"category"`
		Covered    bool    `json:"covered"`
		Confidence float64 `json:"confidence"`
		Rationale  string  `json:"rationale"`
	}
	if err := json.Unmarshal([]byte(text[start:end+1]), &raw); err != nil {
		return nil, eris.Wrap(err, "judgment: parse response")
	}

	resp := &Response{
		Covered:    raw.Covered,
		Confidence: clamp01(raw.Confidence),
		Rationale:  raw.Rationale,
	}
	if raw.Category != nil && !strings.EqualFold(*raw.Category, "none") && *raw.Category != "" {
		resp.Category = *raw.Category
	}
	if resp.Category == "" {
		resp.Covered = false
	}
	return resp, nil
}

func clamp01(f float64) float64 {
	switch {
	case f < 0:
		return 0
	case f > 1:
		return 1
	default:
		return f
	}
}
