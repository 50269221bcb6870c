package extract

import (
	"context"
	"fmt"
	"log/slog"
	"unicode/utf8"

	"github.com/sashabaranov/go-openai"
)

const (
	DefaultModel = openai.GPT4oMini

	systemPrompt = "You are a financial assistant. Return only raw JSON."
	userPrompt   = "Analyze this invoice text and return a JSON object with these exact fields: " +
		"vendor (string), invoiceNumber (string), amount (number), date (YYYY-MM-DD), category (string).\n" +
		"Rules:\n" +
		"1. Vendor: standardize to the main brand (e.g. 'Whse 802' -> 'Costco').\n" +
		"2. Category: choose one of [Groceries, Equipment, Services, Utilities, Other].\n" +
		"3. Return ONLY valid JSON. No markdown.\n\n" +
		"INVOICE TEXT:\n"

	// maxPromptText bounds the document text sent to the model.
	maxPromptText = 12000
)

// OpenAIExtractor asks a chat completion model for the invoice fields.
type OpenAIExtractor struct {
	client *openai.Client
	model  string
	logger *slog.Logger
}

var _ Extractor = (*OpenAIExtractor)(nil)

func NewOpenAIExtractor(apiKey, model string) *OpenAIExtractor {
	return NewOpenAIExtractorWithClient(openai.NewClient(apiKey), model)
}

// NewOpenAIExtractorWithClient takes a preconfigured client, for a custom
// base URL or HTTP client.
func NewOpenAIExtractorWithClient(client *openai.Client, model string) *OpenAIExtractor {
	if model == "" {
		model = DefaultModel
	}
	return &OpenAIExtractor{
		client: client,
		model:  model,
		logger: slog.With("component", "extractor"),
	}
}

func (e *OpenAIExtractor) Extract(ctx context.Context, filename string, content []byte) (Fields, error) {
	text, err := DocumentText(filename, content)
	if err != nil {
		return Fields{}, err
	}
	text = truncateText(text, maxPromptText)

	resp, err := e.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       e.model,
		Temperature: 0.3,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userPrompt + text},
		},
	})
	if err != nil {
		e.logger.WarnContext(ctx, "Extraction request failed", "filename", filename, "error", err)
		return Fields{}, fmt.Errorf("%w: %v", ErrModel, err)
	}
	if len(resp.Choices) == 0 {
		return Fields{}, fmt.Errorf("%w: no choices in response", ErrModel)
	}

	fields, err := ParseResponse(resp.Choices[0].Message.Content)
	if err != nil {
		e.logger.WarnContext(ctx, "Extraction response not parseable", "filename", filename, "error", err)
		return Fields{}, err
	}
	e.logger.DebugContext(ctx, "Invoice fields extracted",
		"filename", filename,
		"vendor", fields.Vendor,
		"has_amount", fields.Amount != nil)
	return fields, nil
}

// truncateText cuts s to at most n bytes without splitting a rune.
func truncateText(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
