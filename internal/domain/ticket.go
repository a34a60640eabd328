package domain

import "time"

// TicketStatus represents the lifecycle state of a support ticket
type TicketStatus string

const (
	TicketStatusOpen       TicketStatus = "open"
	TicketStatusInProgress TicketStatus = "in_progress"
	TicketStatusResolved   TicketStatus = "resolved"
	TicketStatusClosed     TicketStatus = "closed"
	TicketStatusEscalated  TicketStatus = "escalated"
)

// UrgencyLevel is the discrete urgency classification derived from the score
type UrgencyLevel string

const (
	UrgencyLow      UrgencyLevel = "low"
	UrgencyMedium   UrgencyLevel = "medium"
	UrgencyHigh     UrgencyLevel = "high"
	UrgencyCritical UrgencyLevel = "critical"
)

// UserTier is the requester's subscription tier
type UserTier string

const (
	UserTierPremium  UserTier = "premium"
	UserTierStandard UserTier = "standard"
	UserTierBasic    UserTier = "basic"
)

// Ticket represents a support request
type Ticket struct {
	ID             string
	Title          string
	Description    string
	Status         TicketStatus
	UrgencyScore   int // 1-10
	UrgencyLevel   UrgencyLevel
	SentimentScore float64 // -1.0 to 1.0
	SentimentLabel string
	Category       string
	AssignedTier   Tier
	UserEmail      string
	CreatedAt      time.Time
	UpdatedAt      time.Time
	ResolvedAt     *time.Time
}

// Resolution records how a ticket was resolved, plus requester feedback
type Resolution struct {
	ID                    string
	TicketID              string
	Solution              string
	Source                string // e.g. "L1_KB", "L2_KB", "L3_KB", "manual"
	ResolutionTimeMinutes int
	FeedbackScore         int // 1-5, 0 when not provided
	FeedbackComment       string
	ResolvedBy            string
	CreatedAt             time.Time
}

// Attachment is a file attached to a ticket, stored in object storage
type Attachment struct {
	ID          string
	TicketID    string
	Filename    string
	ContentType string
	SizeBytes   int64
	StorageKey  string
	SHA256      string
	CreatedAt   time.Time
}

func isValidTicketStatus(s TicketStatus) bool {
	switch s {
	case TicketStatusOpen, TicketStatusInProgress, TicketStatusResolved,
		TicketStatusClosed, TicketStatusEscalated:
		return true
	}
	return false
}

// ValidateTicket validates a Ticket instance
func ValidateTicket(t *Ticket) error {
	if t == nil {
		return ErrMissingRequiredField
	}
	if t.ID == "" || t.Title == "" || t.Description == "" {
		return ErrMissingRequiredField
	}
	if !isValidTicketStatus(t.Status) {
		return ErrInvalidTicketStatus
	}
	if t.UrgencyScore < 1 || t.UrgencyScore > 10 {
		return ErrInvalidUrgencyScore
	}
	return nil
}
