package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTicketStatusConstants(t *testing.T) {
	tests := []struct {
		name     string
		status   TicketStatus
		expected string
	}{
		{"Open", TicketStatusOpen, "open"},
		{"InProgress", TicketStatusInProgress, "in_progress"},
		{"Resolved", TicketStatusResolved, "resolved"},
		{"Closed", TicketStatusClosed, "closed"},
		{"Escalated", TicketStatusEscalated, "escalated"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, string(tt.status))
		})
	}
}

func TestUrgencyLevelConstants(t *testing.T) {
	tests := []struct {
		name     string
		level    UrgencyLevel
		expected string
	}{
		{"Low", UrgencyLow, "low"},
		{"Medium", UrgencyMedium, "medium"},
		{"High", UrgencyHigh, "high"},
		{"Critical", UrgencyCritical, "critical"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, string(tt.level))
		})
	}
}

func TestValidateTicket(t *testing.T) {
	now := time.Now()
	valid := func() *Ticket {
		return &Ticket{
			ID:           "t-1",
			Title:        "Checkout fails",
			Description:  "Payment errors at checkout",
			Status:       TicketStatusOpen,
			UrgencyScore: 7,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
	}

	tests := []struct {
		name     string
		mutate   func(*Ticket)
		expected error
	}{
		{"valid ticket", func(tk *Ticket) {}, nil},
		{"missing id", func(tk *Ticket) { tk.ID = "" }, ErrMissingRequiredField},
		{"missing title", func(tk *Ticket) { tk.Title = "" }, ErrMissingRequiredField},
		{"missing description", func(tk *Ticket) { tk.Description = "" }, ErrMissingRequiredField},
		{"invalid status", func(tk *Ticket) { tk.Status = "pending" }, ErrInvalidTicketStatus},
		{"urgency below range", func(tk *Ticket) { tk.UrgencyScore = 0 }, ErrInvalidUrgencyScore},
		{"urgency above range", func(tk *Ticket) { tk.UrgencyScore = 11 }, ErrInvalidUrgencyScore},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ticket := valid()
			tt.mutate(ticket)
			err := ValidateTicket(ticket)
			if tt.expected == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.expected)
			}
		})
	}

	t.Run("nil ticket", func(t *testing.T) {
		assert.ErrorIs(t, ValidateTicket(nil), ErrMissingRequiredField)
	})
}
