package oracle

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// DefaultSentimentModel is the chat model used for sentiment classification
const DefaultSentimentModel = "gpt-4o-mini"

// maxSentimentInputChars bounds the text sent to the model
const maxSentimentInputChars = 5000

// Sentiment labels, ordered from most negative to most positive
const (
	SentimentVeryNegative = "very_negative"
	SentimentNegative     = "negative"
	SentimentNeutral      = "neutral"
	SentimentPositive     = "positive"
	SentimentVeryPositive = "very_positive"
)

// sentimentScores maps each label to its numeric score in [-1,1]
var sentimentScores = map[string]float64{
	SentimentVeryNegative: -1.0,
	SentimentNegative:     -0.5,
	SentimentNeutral:      0.0,
	SentimentPositive:     0.5,
	SentimentVeryPositive: 1.0,
}

// SentimentResult holds one classification outcome
type SentimentResult struct {
	Label      string  `json:"label"`
	Score      float64 `json:"score"`      // -1.0 to 1.0
	Confidence float64 `json:"confidence"` // 0.0 to 1.0
}

// SentimentAPI defines the interface for raw sentiment classification
type SentimentAPI interface {
	ClassifySentiment(ctx context.Context, text string) (label string, confidence float64, err error)
}

// SentimentClient classifies text into five sentiment levels.
// Empty or whitespace-only input yields a neutral zero-confidence result
// without an API call.
type SentimentClient struct {
	api SentimentAPI
}

type openAISentimentAdapter struct {
	client *openai.Client
	model  string
}

const sentimentSystemPrompt = `You are a sentiment classifier for customer support messages.
Classify the user's message into exactly one of: very_negative, negative, neutral, positive, very_positive.
Respond with JSON: {"label": "<label>", "confidence": <0.0-1.0>}`

func newOpenAISentimentAdapter(apiKey, model string) *openAISentimentAdapter {
	if model == "" {
		model = DefaultSentimentModel
	}
	return &openAISentimentAdapter{
		client: openai.NewClient(apiKey),
		model:  model,
	}
}

func (a *openAISentimentAdapter) ClassifySentiment(ctx context.Context, text string) (string, float64, error) {
	resp, err := a.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: a.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: sentimentSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: text},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Temperature: 0,
	})
	if err != nil {
		return "", 0, err
	}
	if len(resp.Choices) == 0 {
		return "", 0, fmt.Errorf("no completion choices returned")
	}

	var parsed struct {
		Label      string  `json:"label"`
		Confidence float64 `json:"confidence"`
	}
	if err := json.Unmarshal([]byte(resp.Choices[0].Message.Content), &parsed); err != nil {
		return "", 0, fmt.Errorf("failed to parse sentiment response: %w", err)
	}

	return parsed.Label, parsed.Confidence, nil
}

// SentimentConfig holds configuration for the sentiment client
type SentimentConfig struct {
	APIKey string
	Model  string
}

// NewSentimentClient creates a new sentiment client using defaults.
func NewSentimentClient(apiKey string) *SentimentClient {
	return NewSentimentClientWithConfig(SentimentConfig{APIKey: apiKey})
}

// NewSentimentClientWithConfig creates a new sentiment client with explicit configuration.
func NewSentimentClientWithConfig(cfg SentimentConfig) *SentimentClient {
	return &SentimentClient{api: newOpenAISentimentAdapter(cfg.APIKey, cfg.Model)}
}

// NewSentimentClientWithAPI creates a client backed by a custom API (for testing).
func NewSentimentClientWithAPI(api SentimentAPI) *SentimentClient {
	return &SentimentClient{api: api}
}

// Analyze classifies the sentiment of the given text.
func (c *SentimentClient) Analyze(ctx context.Context, text string) (*SentimentResult, error) {
	if strings.TrimSpace(text) == "" {
		return &SentimentResult{
			Label:      SentimentNeutral,
			Score:      0.0,
			Confidence: 0.0,
		}, nil
	}

	if len(text) > maxSentimentInputChars {
		text = text[:maxSentimentInputChars]
	}

	label, confidence, err := c.api.ClassifySentiment(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("failed to classify sentiment: %w", err)
	}

	score, ok := sentimentScores[label]
	if !ok {
		label = SentimentNeutral
		score = 0.0
	}
	if confidence < 0 {
		confidence = 0
	}
	if confidence > 1 {
		confidence = 1
	}

	return &SentimentResult{
		Label:      label,
		Score:      score,
		Confidence: confidence,
	}, nil
}
