package service

import (
	"context"
	"fmt"
	"math"
	"regexp"
	"strings"

	"github.com/whyvarun/support-IQ/internal/domain"
	"github.com/whyvarun/support-IQ/internal/oracle"
)

// SentimentOracle defines the interface for sentiment classification
type SentimentOracle interface {
	Analyze(ctx context.Context, text string) (*oracle.SentimentResult, error)
}

// UrgencyResult is the outcome of scoring one ticket
type UrgencyResult struct {
	Score       int // 1-10
	Level       domain.UrgencyLevel
	Tier        domain.Tier
	Factors     map[string]float64
	Explanation string
	Category    string
	Sentiment   *oracle.SentimentResult
}

// categoryWeight pairs a detected category with its base urgency weight
type categoryEntry struct {
	name     string
	keywords []string
}

// categoryDetection is scanned in order; the first category with a
// keyword hit wins. Order matters and must not be turned into a map.
var categoryDetection = []categoryEntry{
	{"payment", []string{"payment", "billing", "invoice", "charge", "refund", "transaction"}},
	{"security", []string{"security", "breach", "hack", "virus", "malware", "phishing", "vulnerability"}},
	{"outage", []string{"outage", "down", "offline", "unavailable", "503", "500 error"}},
	{"authentication", []string{"login", "password", "auth", "sso", "mfa", "2fa", "locked out"}},
	{"email", []string{"email", "outlook", "inbox", "smtp", "mail"}},
	{"network", []string{"vpn", "network", "wifi", "internet", "connection", "dns"}},
	{"hardware", []string{"printer", "laptop", "monitor", "keyboard", "mouse", "hardware"}},
	{"database", []string{"database", "sql", "query", "replication", "backup"}},
	{"performance", []string{"slow", "performance", "lag", "timeout", "memory"}},
}

// categoryWeights maps a category to its base urgency weight (out of 10)
var categoryWeights = map[string]int{
	"payment":        8,
	"security":       9,
	"outage":         10,
	"authentication": 6,
	"email":          4,
	"network":        5,
	"hardware":       3,
	"software":       4,
	"database":       7,
	"performance":    5,
	"general":        3,
}

// urgentPatterns are independent text indicators; each matching pattern
// contributes 0.25 to the indicator factor, capped at 1.0.
var urgentPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b(asap|immediately|urgent|emergency)\b`),
	regexp.MustCompile(`(?i)\b(not working|broken|down|failed)\b`),
	regexp.MustCompile(`(?i)\b(cannot|can't|unable to)\s+(access|login|connect)`),
	regexp.MustCompile(`(?i)\b(blocked|stuck|frozen)\b`),
	regexp.MustCompile(`!!!+|\?\?\?+`),
}

// UrgencyCalculator scores tickets 1-10 from sentiment, keyword,
// category, user-tier and text-indicator factors.
type UrgencyCalculator struct {
	sentiment        SentimentOracle
	criticalKeywords []string
	highKeywords     []string
}

// NewUrgencyCalculator creates a new UrgencyCalculator instance
func NewUrgencyCalculator(sentiment SentimentOracle, criticalKeywords, highKeywords []string) *UrgencyCalculator {
	return &UrgencyCalculator{
		sentiment:        sentiment,
		criticalKeywords: criticalKeywords,
		highKeywords:     highKeywords,
	}
}

// UrgencyInput is the input for urgency scoring
type UrgencyInput struct {
	Title       string
	Description string
	Category    string
	UserTier    string
}

// Calculate scores a ticket. The sentiment oracle is called once on the
// combined lowercased text; oracle failures propagate.
func (c *UrgencyCalculator) Calculate(ctx context.Context, input UrgencyInput) (*UrgencyResult, error) {
	combined := strings.ToLower(input.Title + " " + input.Description)
	factors := make(map[string]float64, 5)

	// 1. Sentiment factor (0-3): very negative (-1) maps to 3, positive (1) to 0
	sentiment, err := c.sentiment.Analyze(ctx, combined)
	if err != nil {
		return nil, err
	}
	sentimentFactor := math.Max(0, (1-sentiment.Score)*1.5)
	factors["sentiment"] = round2(sentimentFactor)

	// 2. Keyword factor (0-4): first critical keyword wins at 4.0,
	// otherwise first high-urgency keyword at 2.5
	keywordFactor := 0.0
	var matchedKeywords []string
	for _, keyword := range c.criticalKeywords {
		if strings.Contains(combined, keyword) {
			keywordFactor = 4.0
			matchedKeywords = append(matchedKeywords, keyword)
			break
		}
	}
	if keywordFactor == 0 {
		for _, keyword := range c.highKeywords {
			if strings.Contains(combined, keyword) {
				keywordFactor = 2.5
				matchedKeywords = append(matchedKeywords, keyword)
				break
			}
		}
	}
	factors["keywords"] = keywordFactor

	// 3. Category factor (0-2)
	category := input.Category
	if category == "" {
		category = detectCategory(combined)
	}
	base, ok := categoryWeights[category]
	if !ok {
		base = 3
	}
	factors["category"] = round2(float64(base) / 10 * 2)

	// 4. User tier factor (0-1)
	userFactor := 0.0
	switch input.UserTier {
	case string(domain.UserTierPremium):
		userFactor = 1.0
	case string(domain.UserTierStandard):
		userFactor = 0.5
	}
	factors["user_tier"] = userFactor

	// 5. Text indicator factor (0-1): 0.25 per matching pattern, capped
	indicatorFactor := 0.0
	for _, pattern := range urgentPatterns {
		if pattern.MatchString(combined) {
			indicatorFactor += 0.25
		}
	}
	indicatorFactor = math.Min(indicatorFactor, 1.0)
	factors["text_indicators"] = round2(indicatorFactor)

	raw := 0.0
	for _, v := range factors {
		raw += v
	}
	score := int(math.RoundToEven(raw))
	if score < 1 {
		score = 1
	}
	if score > 10 {
		score = 10
	}

	level := urgencyLevelForScore(score)
	tier := tierForScore(score)

	return &UrgencyResult{
		Score:       score,
		Level:       level,
		Tier:        tier,
		Factors:     factors,
		Explanation: buildExplanation(score, level, factors, matchedKeywords, category),
		Category:    category,
		Sentiment:   sentiment,
	}, nil
}

// detectCategory scans the ordered detection table with early exit.
func detectCategory(text string) string {
	for _, entry := range categoryDetection {
		for _, keyword := range entry.keywords {
			if strings.Contains(text, keyword) {
				return entry.name
			}
		}
	}
	return "general"
}

func urgencyLevelForScore(score int) domain.UrgencyLevel {
	switch {
	case score >= 8:
		return domain.UrgencyCritical
	case score >= 6:
		return domain.UrgencyHigh
	case score >= 4:
		return domain.UrgencyMedium
	default:
		return domain.UrgencyLow
	}
}

func tierForScore(score int) domain.Tier {
	switch {
	case score >= 8:
		return domain.TierL3
	case score >= 5:
		return domain.TierL2
	default:
		return domain.TierL1
	}
}

func buildExplanation(score int, level domain.UrgencyLevel, factors map[string]float64, keywords []string, category string) string {
	parts := []string{fmt.Sprintf("Urgency Score: %d/10 (%s)", score, strings.ToUpper(string(level)))}

	if len(keywords) > 0 {
		parts = append(parts, "Critical keywords detected: "+strings.Join(keywords, ", "))
	}
	if factors["sentiment"] > 1.5 {
		parts = append(parts, "Negative sentiment detected in message")
	}
	if category != "general" {
		parts = append(parts, "Category: "+category)
	}
	if factors["text_indicators"] > 0 {
		parts = append(parts, "Urgent language patterns detected")
	}

	return strings.Join(parts, " | ")
}

// round2 rounds to two decimals, ties to even.
func round2(v float64) float64 {
	return math.RoundToEven(v*100) / 100
}
