package service

import (
	"context"
	"fmt"
	"time"

	"github.com/whyvarun/support-IQ/internal/domain"
	"github.com/whyvarun/support-IQ/internal/pagination"
	"github.com/whyvarun/support-IQ/internal/telemetry"
)

// TicketFilter narrows a ticket listing
type TicketFilter struct {
	Status       domain.TicketStatus
	UrgencyLevel domain.UrgencyLevel
	Tier         domain.Tier
}

// TicketPageResult is one page of a ticket listing
type TicketPageResult struct {
	Items      []*domain.Ticket
	NextCursor string
	HasMore    bool
}

// SimilarTicket is a resolved ticket ranked by embedding similarity
type SimilarTicket struct {
	ID            string  `json:"id"`
	Title         string  `json:"title"`
	Description   string  `json:"description"`
	Status        string  `json:"status"`
	Category      string  `json:"category"`
	Solution      string  `json:"solution,omitempty"`
	FeedbackScore int     `json:"feedback_score,omitempty"`
	Similarity    float64 `json:"similarity"`
}

// TicketRepositoryInterface defines the repository interface for ticket persistence
type TicketRepositoryInterface interface {
	Create(ctx context.Context, t *domain.Ticket) error
	GetByID(ctx context.Context, id string) (*domain.Ticket, error)
	ListWithCursor(ctx context.Context, filter TicketFilter, cursor *pagination.Cursor, limit int) (*TicketPageResult, error)
	StoreEmbedding(ctx context.Context, ticketID string, embedding []float32) error
	GetEmbedding(ctx context.Context, ticketID string) ([]float32, error)
	MarkResolved(ctx context.Context, ticketID string, resolvedAt time.Time) error
	CreateResolution(ctx context.Context, r *domain.Resolution) error
	FindSimilarResolved(ctx context.Context, embedding []float32, limit int) ([]*SimilarTicket, error)
}

// UrgencyScorer scores a ticket's urgency
type UrgencyScorer interface {
	Calculate(ctx context.Context, input UrgencyInput) (*UrgencyResult, error)
}

// TieredSearcher runs a cascading knowledge search
type TieredSearcher interface {
	SearchTiered(ctx context.Context, input TieredSearchInput) (*TieredSearchOutput, error)
}

// UsageRecorder folds a resolution outcome into a knowledge entry
type UsageRecorder interface {
	RecordUsage(ctx context.Context, entryID string, wasSuccessful bool, feedbackScore *int) error
}

// PromotionSweeper runs the automatic promotion check
type PromotionSweeper interface {
	CheckAndPromote(ctx context.Context) ([]*PromotedEntry, error)
}

// TicketService handles the ticket lifecycle: intake with automatic
// triage, resolution with knowledge feedback, and similarity lookups.
type TicketService struct {
	ticketRepo TicketRepositoryInterface
	urgency    UrgencyScorer
	searcher   TieredSearcher
	usage      UsageRecorder
	promoter   PromotionSweeper
	embedding  EmbeddingOracle
	txRunner   TxRunner
	uuidGen    UUIDGenerator
}

// NewTicketService creates a new TicketService instance
func NewTicketService(
	ticketRepo TicketRepositoryInterface,
	urgency UrgencyScorer,
	searcher TieredSearcher,
	usage UsageRecorder,
	promoter PromotionSweeper,
	embedding EmbeddingOracle,
	txRunner TxRunner,
) *TicketService {
	return &TicketService{
		ticketRepo: ticketRepo,
		urgency:    urgency,
		searcher:   searcher,
		usage:      usage,
		promoter:   promoter,
		embedding:  embedding,
		txRunner:   txRunner,
		uuidGen:    &DefaultUUIDGenerator{},
	}
}

// NewTicketServiceWithUUIDGen creates a TicketService with a custom UUID generator (for testing)
func NewTicketServiceWithUUIDGen(
	ticketRepo TicketRepositoryInterface,
	urgency UrgencyScorer,
	searcher TieredSearcher,
	usage UsageRecorder,
	promoter PromotionSweeper,
	embedding EmbeddingOracle,
	txRunner TxRunner,
	uuidGen UUIDGenerator,
) *TicketService {
	svc := NewTicketService(ticketRepo, urgency, searcher, usage, promoter, embedding, txRunner)
	svc.uuidGen = uuidGen
	return svc
}

// CreateTicketInput represents the input for ticket intake
type CreateTicketInput struct {
	Title       string
	Description string
	Category    string
	UserTier    string
	UserEmail   string
}

// CreateTicketOutput bundles the ticket with its triage analysis and
// suggested solutions
type CreateTicketOutput struct {
	Ticket             *domain.Ticket
	Urgency            *UrgencyResult
	SuggestedSolutions []*SearchResult
	SearchedTiers      []domain.Tier
	Message            string
}

// CreateTicket scores the ticket, assigns it a tier, embeds it for
// similarity lookups and suggests solutions from the knowledge base,
// cascading from the assigned tier.
func (s *TicketService) CreateTicket(ctx context.Context, input CreateTicketInput) (*CreateTicketOutput, error) {
	ctx, span := telemetry.StartSpan(ctx, "TicketService.CreateTicket", telemetry.SpanAttributes{
		Operation: "create",
	})
	defer span.End()

	if input.Title == "" || input.Description == "" {
		return nil, domain.ErrMissingRequiredField
	}

	urgency, err := s.urgency.Calculate(ctx, UrgencyInput{
		Title:       input.Title,
		Description: input.Description,
		Category:    input.Category,
		UserTier:    input.UserTier,
	})
	if err != nil {
		span.SetError(err)
		return nil, err
	}

	category := input.Category
	if category == "" {
		category = urgency.Category
	}

	now := time.Now().UTC()
	ticket := &domain.Ticket{
		ID:             s.uuidGen.NewString(),
		Title:          input.Title,
		Description:    input.Description,
		Status:         domain.TicketStatusOpen,
		UrgencyScore:   urgency.Score,
		UrgencyLevel:   urgency.Level,
		SentimentScore: urgency.Sentiment.Score,
		SentimentLabel: urgency.Sentiment.Label,
		Category:       category,
		AssignedTier:   urgency.Tier,
		UserEmail:      input.UserEmail,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := domain.ValidateTicket(ticket); err != nil {
		return nil, err
	}

	if err := s.ticketRepo.Create(ctx, ticket); err != nil {
		return nil, err
	}

	combined := input.Title + " " + input.Description
	embedding, err := s.embedding.Encode(ctx, combined)
	if err != nil {
		span.SetError(err)
		return nil, err
	}
	if err := s.ticketRepo.StoreEmbedding(ctx, ticket.ID, embedding); err != nil {
		return nil, err
	}

	search, err := s.searcher.SearchTiered(ctx, TieredSearchInput{
		Query:     combined,
		StartTier: urgency.Tier,
		Cascade:   true,
	})
	if err != nil {
		span.SetError(err)
		return nil, err
	}

	return &CreateTicketOutput{
		Ticket:             ticket,
		Urgency:            urgency,
		SuggestedSolutions: search.Results,
		SearchedTiers:      search.SearchedTiers,
		Message:            fmt.Sprintf("Ticket created with urgency score %d/10 (%s)", urgency.Score, urgency.Level),
	}, nil
}

// GetTicket retrieves a ticket by ID
func (s *TicketService) GetTicket(ctx context.Context, id string) (*domain.Ticket, error) {
	ctx, span := telemetry.StartSpan(ctx, "TicketService.GetTicket", telemetry.SpanAttributes{
		TicketID:  id,
		Operation: "get",
	})
	defer span.End()

	return s.ticketRepo.GetByID(ctx, id)
}

// ListTicketsInput represents the input for a ticket listing
type ListTicketsInput struct {
	Filter TicketFilter
	Cursor string
	Limit  int
}

// ListTickets returns tickets ordered by urgency then recency, with
// cursor pagination.
func (s *TicketService) ListTickets(ctx context.Context, input ListTicketsInput) (*TicketPageResult, error) {
	ctx, span := telemetry.StartSpan(ctx, "TicketService.ListTickets", telemetry.SpanAttributes{
		Operation: "list",
	})
	defer span.End()

	cursor, err := pagination.DecodeCursor(input.Cursor)
	if err != nil {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeValidation, "invalid cursor", err)
	}

	limit := input.Limit
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}

	return s.ticketRepo.ListWithCursor(ctx, input.Filter, cursor, limit)
}

// ResolveTicketInput represents the input for resolving a ticket
type ResolveTicketInput struct {
	TicketID        string
	Solution        string
	Source          string
	KnowledgeID     string
	FeedbackScore   *int
	FeedbackComment string
	ResolvedBy      string
}

// ResolveTicketOutput reports the resolution and any promotions it triggered
type ResolveTicketOutput struct {
	TicketID              string
	ResolutionTimeMinutes int
	AutoPromotions        []*PromotedEntry
}

// ResolveTicket records the resolution, marks the ticket resolved, folds
// the outcome into the knowledge entry that solved it and then sweeps
// for automatic promotions.
func (s *TicketService) ResolveTicket(ctx context.Context, input ResolveTicketInput) (*ResolveTicketOutput, error) {
	ctx, span := telemetry.StartSpan(ctx, "TicketService.ResolveTicket", telemetry.SpanAttributes{
		TicketID:  input.TicketID,
		Operation: "resolve",
	})
	defer span.End()

	if input.FeedbackScore != nil && (*input.FeedbackScore < 1 || *input.FeedbackScore > 5) {
		return nil, domain.ErrInvalidFeedbackScore
	}

	ticket, err := s.ticketRepo.GetByID(ctx, input.TicketID)
	if err != nil {
		return nil, err
	}
	if ticket.Status == domain.TicketStatusResolved {
		return nil, domain.ErrAlreadyResolved
	}

	now := time.Now().UTC()
	resolutionTime := int(now.Sub(ticket.CreatedAt).Minutes())

	feedbackScore := 0
	if input.FeedbackScore != nil {
		feedbackScore = *input.FeedbackScore
	}
	resolution := &domain.Resolution{
		ID:                    s.uuidGen.NewString(),
		TicketID:              ticket.ID,
		Solution:              input.Solution,
		Source:                input.Source,
		ResolutionTimeMinutes: resolutionTime,
		FeedbackScore:         feedbackScore,
		FeedbackComment:       input.FeedbackComment,
		ResolvedBy:            input.ResolvedBy,
		CreatedAt:             now,
	}

	err = s.txRunner.WithTx(ctx, func(repos TxRepositories) error {
		if err := repos.Tickets().CreateResolution(ctx, resolution); err != nil {
			return err
		}
		return repos.Tickets().MarkResolved(ctx, ticket.ID, now)
	})
	if err != nil {
		return nil, err
	}

	if input.KnowledgeID != "" {
		if err := s.usage.RecordUsage(ctx, input.KnowledgeID, true, input.FeedbackScore); err != nil {
			span.SetError(err)
			return nil, err
		}
	}

	promotions, err := s.promoter.CheckAndPromote(ctx)
	if err != nil {
		span.SetError(err)
		return nil, err
	}

	return &ResolveTicketOutput{
		TicketID:              ticket.ID,
		ResolutionTimeMinutes: resolutionTime,
		AutoPromotions:        promotions,
	}, nil
}

// FindSimilar returns resolved tickets closest to the given ticket's
// embedding, with any recorded solutions.
func (s *TicketService) FindSimilar(ctx context.Context, ticketID string, limit int) ([]*SimilarTicket, error) {
	ctx, span := telemetry.StartSpan(ctx, "TicketService.FindSimilar", telemetry.SpanAttributes{
		TicketID:  ticketID,
		Operation: "find_similar",
	})
	defer span.End()

	if limit <= 0 {
		limit = 5
	}
	if limit > 20 {
		limit = 20
	}

	embedding, err := s.ticketRepo.GetEmbedding(ctx, ticketID)
	if err != nil {
		return nil, err
	}

	return s.ticketRepo.FindSimilarResolved(ctx, embedding, limit)
}
