package domain

import "time"

// PromotionRecord is an append-only record of a knowledge entry moving
// between tiers. Records are never mutated after creation; they are only
// removed when the referenced entry is deleted (cascade).
type PromotionRecord struct {
	ID          string
	EntryID     string
	FromTier    Tier
	ToTier      Tier
	Reason      string
	UsageCount  int     // snapshot at promotion time
	AvgFeedback float64 // snapshot at promotion time
	Automatic   bool
	PromotedAt  time.Time
}

// ValidatePromotionRecord validates a PromotionRecord instance.
// Promotions always move toward L1, one tier at a time for the automatic path.
func ValidatePromotionRecord(p *PromotionRecord) error {
	if p == nil {
		return ErrMissingRequiredField
	}
	if p.ID == "" || p.EntryID == "" {
		return ErrMissingRequiredField
	}
	if !IsValidTier(p.FromTier) || !IsValidTier(p.ToTier) {
		return ErrInvalidTier
	}
	if p.ToTier.Rank() >= p.FromTier.Rank() {
		return ErrInvalidPromotion
	}
	return nil
}
