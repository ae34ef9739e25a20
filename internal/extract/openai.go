package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/outlaylabs/outlay/internal/config"
	"github.com/outlaylabs/outlay/internal/fault"
	"github.com/outlaylabs/outlay/internal/ledger"
)

// systemInstruction is the fixed extraction contract sent with every request.
const systemInstruction = "You are a helpful assistant that extracts shopping items and their prices from text. " +
	"You should estimate the price in USD based on the item name. " +
	"Title-case the item name. " +
	"Return only a JSON object with 'name' and 'price' properties."

const defaultExtractModel = "gpt-4o-mini"

// OpenAIExtractor asks a chat completion model for a {name, price} object.
type OpenAIExtractor struct {
	client *openai.Client
	model  string
}

// NewOpenAIExtractor builds the production extractor from runtime config.
func NewOpenAIExtractor(cfg config.OpenAIConfig, apiKey string) (*OpenAIExtractor, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY is not set")
	}

	clientConfig := openai.DefaultConfig(apiKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}
	if cfg.TimeoutMS > 0 {
		clientConfig.HTTPClient = &http.Client{Timeout: time.Duration(cfg.TimeoutMS) * time.Millisecond}
	}

	model := cfg.ExtractModel
	if model == "" {
		model = defaultExtractModel
	}

	return &OpenAIExtractor{
		client: openai.NewClientWithConfig(clientConfig),
		model:  model,
	}, nil
}

// Extract submits the truncated transcript and strictly parses the response.
// Anything short of a complete, well-formed candidate is ExtractionInvalid.
func (e *OpenAIExtractor) Extract(ctx context.Context, transcript string) (ledger.Candidate, error) {
	resp, err := e.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: e.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemInstruction},
			{Role: openai.ChatMessageRoleUser, Content: Truncate(transcript)},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		return ledger.Candidate{}, fault.Wrap(fault.KindExtractionInvalid, "extraction request failed", err)
	}
	if len(resp.Choices) == 0 {
		return ledger.Candidate{}, fault.New(fault.KindExtractionInvalid, "extraction returned no choices")
	}

	return ParseCandidate(resp.Choices[0].Message.Content)
}

// ParseCandidate decodes and validates a model response payload.
func ParseCandidate(payload string) (ledger.Candidate, error) {
	var body struct {
		Name  *string  `json:"name"`
		Price *float64 `json:"price"`
	}
	if err := json.Unmarshal([]byte(payload), &body); err != nil {
		return ledger.Candidate{}, fault.Wrap(fault.KindExtractionInvalid, "extraction response is not valid JSON", err)
	}
	if body.Name == nil || body.Price == nil {
		return ledger.Candidate{}, fault.New(fault.KindExtractionInvalid, "extraction response is missing name or price")
	}
	if math.IsNaN(*body.Price) || math.IsInf(*body.Price, 0) {
		return ledger.Candidate{}, fault.New(fault.KindExtractionInvalid, "extraction price is not a finite number")
	}

	candidate := ledger.Candidate{Name: *body.Name, Price: *body.Price}.Normalized()
	if err := candidate.Validate(); err != nil {
		return ledger.Candidate{}, fault.Wrap(fault.KindExtractionInvalid, "extraction produced an invalid candidate", err)
	}
	return candidate, nil
}
