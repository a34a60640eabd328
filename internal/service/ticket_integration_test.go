//go:build integration

package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/whyvarun/support-IQ/internal/domain"
	"github.com/whyvarun/support-IQ/internal/repository"
	"github.com/whyvarun/support-IQ/internal/testutil"
)

type ticketIntegrationStack struct {
	tickets   *TicketService
	knowledge *KnowledgeService
	embedder  *staticEmbedder
}

func buildTicketStack(ctx context.Context, t *testing.T, pc *testutil.PostgresContainer) (*ticketIntegrationStack, func()) {
	t.Helper()
	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")

	knowledgeRepo := repository.NewKnowledgeRepository(pool)
	ticketRepo := repository.NewTicketRepository(pool)
	promotionRepo := repository.NewPromotionRepository(pool)
	txRunner := repository.NewTxRunner(pool)

	embedder := newStaticEmbedder()
	knowledgeSvc := NewKnowledgeService(knowledgeRepo, embedder, txRunner)
	searchSvc := NewSearchService(knowledgeRepo, embedder, DefaultSearchConfig())
	promotionSvc := NewPromotionService(knowledgeRepo, promotionRepo, txRunner, DefaultPromotionConfig())
	urgencyCalc := NewUrgencyCalculator(neutralSentiment{},
		[]string{"payment", "security", "outage", "down"},
		[]string{"error", "failed", "urgent"})

	ticketSvc := NewTicketService(ticketRepo, urgencyCalc, searchSvc, knowledgeSvc, promotionSvc, embedder, txRunner)

	return &ticketIntegrationStack{
		tickets:   ticketSvc,
		knowledge: knowledgeSvc,
		embedder:  embedder,
	}, pool.Close
}

func TestTicketServiceIntegration_Lifecycle(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	stack, closePool := buildTicketStack(ctx, t, pc)
	defer closePool()

	entry, err := stack.knowledge.CreateEntry(ctx, CreateEntryInput{
		Tier:    domain.TierL2,
		Title:   "Payment gateway restart",
		Content: "Restart the gateway when checkout stalls",
	})
	require.NoError(t, err)

	var ticketID string

	t.Run("intake scores and persists the ticket", func(t *testing.T) {
		out, err := stack.tickets.CreateTicket(ctx, CreateTicketInput{
			Title:       "Payment system down",
			Description: "Customers cannot checkout, this is urgent",
			UserTier:    string(domain.UserTierPremium),
			UserEmail:   "ops@example.com",
		})

		require.NoError(t, err)
		ticketID = out.Ticket.ID
		assert.GreaterOrEqual(t, out.Ticket.UrgencyScore, 6)
		assert.Equal(t, "payment", out.Ticket.Category)
		assert.NotEmpty(t, out.SearchedTiers)

		persisted, err := stack.tickets.GetTicket(ctx, ticketID)
		require.NoError(t, err)
		assert.Equal(t, domain.TicketStatusOpen, persisted.Status)
		assert.Equal(t, out.Ticket.UrgencyScore, persisted.UrgencyScore)
		assert.Equal(t, out.Ticket.AssignedTier, persisted.AssignedTier)
	})

	t.Run("resolving feeds the knowledge entry", func(t *testing.T) {
		out, err := stack.tickets.ResolveTicket(ctx, ResolveTicketInput{
			TicketID:      ticketID,
			Solution:      "Restarted the payment gateway",
			Source:        "L2_KB",
			KnowledgeID:   entry.ID,
			FeedbackScore: intPtr(5),
			ResolvedBy:    "agent-7",
		})

		require.NoError(t, err)
		assert.Equal(t, ticketID, out.TicketID)

		resolved, err := stack.tickets.GetTicket(ctx, ticketID)
		require.NoError(t, err)
		assert.Equal(t, domain.TicketStatusResolved, resolved.Status)
		require.NotNil(t, resolved.ResolvedAt)

		after, err := stack.knowledge.GetEntry(ctx, entry.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, after.UsageCount)
		assert.Equal(t, 5.0, after.AvgFeedbackScore)
	})

	t.Run("a second resolution is rejected", func(t *testing.T) {
		_, err := stack.tickets.ResolveTicket(ctx, ResolveTicketInput{
			TicketID: ticketID,
			Solution: "again",
		})
		assert.ErrorIs(t, err, domain.ErrAlreadyResolved)
	})

	t.Run("resolved tickets surface through similarity lookup", func(t *testing.T) {
		out, err := stack.tickets.CreateTicket(ctx, CreateTicketInput{
			Title:       "Payment system down",
			Description: "Customers cannot checkout, this is urgent",
		})
		require.NoError(t, err)

		similar, err := stack.tickets.FindSimilar(ctx, out.Ticket.ID, 5)
		require.NoError(t, err)
		require.NotEmpty(t, similar)
		assert.Equal(t, ticketID, similar[0].ID)
		assert.Greater(t, similar[0].Similarity, 0.99)
		assert.Equal(t, "Restarted the payment gateway", similar[0].Solution)
	})
}

func TestTicketServiceIntegration_ListWithCursor(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	stack, closePool := buildTicketStack(ctx, t, pc)
	defer closePool()

	// The urgent ticket is created first, so it is the oldest row.
	urgent, err := stack.tickets.CreateTicket(ctx, CreateTicketInput{
		Title:       "Payment outage",
		Description: "Checkout is down for every customer, this is urgent",
	})
	require.NoError(t, err)
	time.Sleep(10 * time.Millisecond)

	for i := 0; i < 3; i++ {
		_, err := stack.tickets.CreateTicket(ctx, CreateTicketInput{
			Title:       "Ticket " + uuid.NewString()[:8],
			Description: "Something broke in run " + uuid.NewString()[:8],
		})
		require.NoError(t, err)
		time.Sleep(10 * time.Millisecond) // Ensure different timestamps
	}

	t.Run("most urgent ticket leads regardless of age", func(t *testing.T) {
		page, err := stack.tickets.ListTickets(ctx, ListTicketsInput{})
		require.NoError(t, err)
		require.Len(t, page.Items, 4)

		assert.Equal(t, urgent.Ticket.ID, page.Items[0].ID)
		assert.Greater(t, page.Items[0].UrgencyScore, page.Items[1].UrgencyScore)
		assert.True(t, page.Items[0].CreatedAt.Before(page.Items[1].CreatedAt))

		// Equal urgency falls back to recency.
		assert.True(t, page.Items[1].CreatedAt.After(page.Items[2].CreatedAt))
		assert.True(t, page.Items[2].CreatedAt.After(page.Items[3].CreatedAt))
	})

	t.Run("pages across the urgency boundary", func(t *testing.T) {
		first, err := stack.tickets.ListTickets(ctx, ListTicketsInput{Limit: 2})
		require.NoError(t, err)
		require.Len(t, first.Items, 2)
		assert.True(t, first.HasMore)
		require.NotEmpty(t, first.NextCursor)
		assert.Equal(t, urgent.Ticket.ID, first.Items[0].ID)

		second, err := stack.tickets.ListTickets(ctx, ListTicketsInput{Limit: 2, Cursor: first.NextCursor})
		require.NoError(t, err)
		require.Len(t, second.Items, 2)
		assert.False(t, second.HasMore)
		assert.Empty(t, second.NextCursor)
		assert.True(t, second.Items[0].CreatedAt.After(second.Items[1].CreatedAt))
	})

	t.Run("filters by status", func(t *testing.T) {
		page, err := stack.tickets.ListTickets(ctx, ListTicketsInput{
			Filter: TicketFilter{Status: domain.TicketStatusResolved},
		})
		require.NoError(t, err)
		assert.Empty(t, page.Items)
	})
}
