package crm

import (
	"context"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// extractorPrompt instructs the model to answer with schema-conformant JSON
// only. The reply is still run through Sanitize before use.
const extractorPrompt = `You are a CRM data extractor. Given a user request,
return a single JSON object with only these optional keys: account, contact,
opportunity, products, product, pricebook, user, missing_fields, error.
Product entries use the fields name, code, quantity, unit_price, total_price.
Opportunity line_items use product_name, product_code, quantity, unit_price,
total_price. If nothing matches the request, return {"error": "<reason>"}.
Return JSON only: no markdown, no commentary.`

// Config holds LLM oracle settings
type Config struct {
	APIKey      string
	Model       string
	Temperature float32
	MaxTokens   int
	Timeout     time.Duration
}

// LLMOracle queries the CRM through a chat-completion model
type LLMOracle struct {
	client *openai.Client
	cfg    Config
	logger *zap.Logger
}

// NewLLMOracle creates an oracle backed by the OpenAI API
func NewLLMOracle(cfg Config, logger *zap.Logger) *LLMOracle {
	return &LLMOracle{
		client: openai.NewClient(cfg.APIKey),
		cfg:    cfg,
		logger: logger,
	}
}

// Query sends the intent to the model and sanitizes the reply
func (o *LLMOracle) Query(ctx context.Context, intent string) (*Response, error) {
	if o.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.cfg.Timeout)
		defer cancel()
	}

	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       o.cfg.Model,
		Temperature: o.cfg.Temperature,
		MaxTokens:   o.cfg.MaxTokens,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: extractorPrompt},
			{Role: openai.ChatMessageRoleUser, Content: intent},
		},
	})
	if err != nil {
		o.logger.Error("Oracle query failed", zap.Error(err))
		return nil, fmt.Errorf("oracle query: %w", err)
	}

	if len(resp.Choices) == 0 {
		return nil, ErrEmpty
	}

	sanitized, err := Sanitize(resp.Choices[0].Message.Content)
	if err != nil {
		o.logger.Error("Oracle response rejected", zap.Error(err))
		return nil, err
	}

	return sanitized, nil
}
