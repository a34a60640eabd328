package domain

import "time"

// Tier represents a knowledge accessibility level.
// L1 is the most self-service tier, L3 the most specialized.
type Tier string

const (
	TierL1 Tier = "L1"
	TierL2 Tier = "L2"
	TierL3 Tier = "L3"
)

// TierOrder lists the tiers from most to least accessible.
var TierOrder = []Tier{TierL1, TierL2, TierL3}

// Rank returns the position of the tier in TierOrder (0-based).
// Unknown tiers rank below L1.
func (t Tier) Rank() int {
	for i, tier := range TierOrder {
		if tier == t {
			return i
		}
	}
	return -1
}

// IsValidTier checks if a Tier is one of L1/L2/L3
func IsValidTier(t Tier) bool {
	return t.Rank() >= 0
}

// KnowledgeEntry represents a solution document in the tiered knowledge base
type KnowledgeEntry struct {
	ID               string
	Tier             Tier
	Title            string
	Content          string
	Keywords         []string
	Category         string
	UsageCount       int
	SuccessRate      float64 // running average in [0,1]
	AvgFeedbackScore float64 // running average of 1-5 ratings, 0 until feedback observed
	HasEmbedding     bool
	IsActive         bool
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// ValidateKnowledgeEntry validates a KnowledgeEntry instance
func ValidateKnowledgeEntry(e *KnowledgeEntry) error {
	if e == nil {
		return ErrMissingRequiredField
	}
	if e.ID == "" || e.Title == "" || e.Content == "" {
		return ErrMissingRequiredField
	}
	if !IsValidTier(e.Tier) {
		return ErrInvalidTier
	}
	if e.UsageCount < 0 {
		return ErrInvalidUsageCount
	}
	return nil
}
