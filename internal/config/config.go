package config

import (
	"fmt"
	"log"
	"strings"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Port  string `envconfig:"PORT" default:"8080"`
	Debug bool   `envconfig:"DEBUG" default:"false"`

	DatabaseURL string `envconfig:"DATABASE_URL" required:"true"`

	OpenAIAPIKey        string `envconfig:"OPENAI_API_KEY"`
	EmbeddingModel      string `envconfig:"EMBEDDING_MODEL" default:"text-embedding-3-small"`
	EmbeddingDimensions int    `envconfig:"EMBEDDING_DIMENSIONS" default:"384"`
	SentimentModel      string `envconfig:"SENTIMENT_MODEL" default:"gpt-4o-mini"`

	SemanticWeight float64 `envconfig:"SEMANTIC_WEIGHT" default:"0.7"`
	KeywordWeight  float64 `envconfig:"KEYWORD_WEIGHT" default:"0.3"`
	TopKResults    int     `envconfig:"TOP_K_RESULTS" default:"5"`

	L3ToL2Threshold  int     `envconfig:"L3_TO_L2_THRESHOLD" default:"10"`
	L2ToL1Threshold  int     `envconfig:"L2_TO_L1_THRESHOLD" default:"25"`
	MinFeedbackScore float64 `envconfig:"MIN_FEEDBACK_SCORE" default:"4.0"`

	CriticalKeywords    string `envconfig:"CRITICAL_KEYWORDS" default:"payment,security,breach,outage,down,emergency,critical"`
	HighUrgencyKeywords string `envconfig:"HIGH_URGENCY_KEYWORDS" default:"error,failed,broken,urgent,asap"`

	S3Endpoint  string `envconfig:"S3_ENDPOINT"`
	S3AccessKey string `envconfig:"S3_ACCESS_KEY_ID"`
	S3SecretKey string `envconfig:"S3_SECRET_ACCESS_KEY"`
	S3Bucket    string `envconfig:"S3_BUCKET" default:"supportiq-attachments"`
	S3Region    string `envconfig:"S3_REGION" default:"us-east-1"`
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("SUPPORTIQ", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}

	return &cfg, nil
}

func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	return cfg
}

func (c *Config) HasOpenAI() bool {
	return c.OpenAIAPIKey != ""
}

func (c *Config) HasS3() bool {
	return c.S3Endpoint != "" && c.S3AccessKey != "" && c.S3SecretKey != ""
}

// CriticalKeywordList parses the critical keyword configuration into an
// ordered, lowercase-trimmed list. Scan order matters for urgency scoring.
func (c *Config) CriticalKeywordList() []string {
	return splitKeywords(c.CriticalKeywords)
}

// HighUrgencyKeywordList parses the high-urgency keyword configuration.
func (c *Config) HighUrgencyKeywordList() []string {
	return splitKeywords(c.HighUrgencyKeywords)
}

func splitKeywords(raw string) []string {
	parts := strings.Split(raw, ",")
	keywords := make([]string, 0, len(parts))
	for _, p := range parts {
		k := strings.ToLower(strings.TrimSpace(p))
		if k != "" {
			keywords = append(keywords, k)
		}
	}
	return keywords
}
