package service

import (
	"context"
	"sort"

	"github.com/whyvarun/support-IQ/internal/domain"
	"github.com/whyvarun/support-IQ/internal/telemetry"
)

// SearchResult is one ranked knowledge entry for a query
type SearchResult struct {
	ID               string   `json:"id"`
	Tier             string   `json:"tier"`
	Title            string   `json:"title"`
	Content          string   `json:"content"`
	Keywords         []string `json:"keywords"`
	Category         string   `json:"category"`
	UsageCount       int      `json:"usage_count"`
	AvgFeedbackScore float64  `json:"avg_feedback_score"`
	SemanticScore    float64  `json:"semantic_score"`
	KeywordScore     float64  `json:"keyword_score"`
	HybridScore      float64  `json:"hybrid_score"`
}

// HybridWeights controls the blend of semantic and lexical relevance
type HybridWeights struct {
	Semantic float64
	Keyword  float64
}

// SearchRepositoryInterface defines the repository interface for hybrid search.
// The repository scores candidates in SQL: semantic similarity via pgvector
// cosine distance, lexical relevance via full-text ranking. Entries without
// an embedding are excluded, not scored as zero. Results come back ordered
// by hybrid score descending with ties broken by id ascending.
type SearchRepositoryInterface interface {
	HybridSearch(ctx context.Context, embedding []float32, query string, tier domain.Tier, weights HybridWeights, limit int) ([]*SearchResult, error)
}

// EmbeddingOracle defines the interface for query embedding generation
type EmbeddingOracle interface {
	Encode(ctx context.Context, text string) ([]float32, error)
}

// SearchConfig controls search behavior
type SearchConfig struct {
	SemanticWeight     float64
	KeywordWeight      float64
	TopK               int
	MinScoreThreshold  float64
	StopEarlyThreshold float64
}

// DefaultSearchConfig returns the default search configuration
func DefaultSearchConfig() SearchConfig {
	return SearchConfig{
		SemanticWeight:     0.7,
		KeywordWeight:      0.3,
		TopK:               5,
		MinScoreThreshold:  0.5,
		StopEarlyThreshold: 0.7,
	}
}

// SearchService performs hybrid search with tiered cascading
type SearchService struct {
	repo      SearchRepositoryInterface
	embedding EmbeddingOracle
	cfg       SearchConfig
}

// NewSearchService creates a new SearchService instance
func NewSearchService(repo SearchRepositoryInterface, embedding EmbeddingOracle, cfg SearchConfig) *SearchService {
	if cfg.TopK <= 0 {
		cfg.TopK = DefaultSearchConfig().TopK
	}
	if cfg.MinScoreThreshold <= 0 {
		cfg.MinScoreThreshold = DefaultSearchConfig().MinScoreThreshold
	}
	if cfg.StopEarlyThreshold <= 0 {
		cfg.StopEarlyThreshold = DefaultSearchConfig().StopEarlyThreshold
	}
	return &SearchService{repo: repo, embedding: embedding, cfg: cfg}
}

// TieredSearchInput is the input for a cascading search
type TieredSearchInput struct {
	Query     string
	StartTier domain.Tier
	Cascade   bool
}

// TieredSearchOutput is the outcome of a cascading search
type TieredSearchOutput struct {
	Results       []*SearchResult `json:"results"`
	SearchedTiers []domain.Tier   `json:"searched_tiers"`
	TotalFound    int             `json:"total_found"`
	Query         string          `json:"query"`
}

// HybridSearch runs the hybrid ranker against a single tier (or all tiers
// when tier is empty). An empty query embeds to the zero vector, which
// yields zero semantic scores rather than an error.
func (s *SearchService) HybridSearch(ctx context.Context, query string, tier domain.Tier, limit int) ([]*SearchResult, error) {
	ctx, span := telemetry.StartSpan(ctx, "SearchService.HybridSearch", telemetry.SpanAttributes{
		Tier:      string(tier),
		Operation: "search",
	})
	defer span.End()

	if limit <= 0 {
		limit = s.cfg.TopK
	}

	embedding, err := s.embedding.Encode(ctx, query)
	if err != nil {
		return nil, err
	}

	weights := HybridWeights{Semantic: s.cfg.SemanticWeight, Keyword: s.cfg.KeywordWeight}
	return s.repo.HybridSearch(ctx, embedding, query, tier, weights, limit)
}

// SearchTiered searches from the start tier toward L3, cascading until a
// tier yields a qualified result. A tier's results qualify at or above the
// acceptance threshold; when cascading, a tier whose best qualified result
// reaches the stop-early threshold ends the cascade. The stop-early check
// is per-tier, not against the accumulated set.
func (s *SearchService) SearchTiered(ctx context.Context, input TieredSearchInput) (*TieredSearchOutput, error) {
	ctx, span := telemetry.StartSpan(ctx, "SearchService.SearchTiered", telemetry.SpanAttributes{
		Tier:      string(input.StartTier),
		Operation: "search_tiered",
	})
	defer span.End()

	startTier := input.StartTier
	if !domain.IsValidTier(startTier) {
		startTier = domain.TierL1
	}

	embedding, err := s.embedding.Encode(ctx, input.Query)
	if err != nil {
		return nil, err
	}
	weights := HybridWeights{Semantic: s.cfg.SemanticWeight, Keyword: s.cfg.KeywordWeight}

	var allResults []*SearchResult
	var searchedTiers []domain.Tier

	for _, tier := range domain.TierOrder[startTier.Rank():] {
		results, err := s.repo.HybridSearch(ctx, embedding, input.Query, tier, weights, s.cfg.TopK)
		if err != nil {
			return nil, err
		}

		searchedTiers = append(searchedTiers, tier)

		var qualified []*SearchResult
		for _, r := range results {
			if r.HybridScore >= s.cfg.MinScoreThreshold {
				qualified = append(qualified, r)
			}
		}

		if len(qualified) > 0 {
			allResults = append(allResults, qualified...)

			if !input.Cascade {
				break
			}
			if qualified[0].HybridScore >= s.cfg.StopEarlyThreshold {
				break
			}
		}
	}

	sort.SliceStable(allResults, func(i, j int) bool {
		return allResults[i].HybridScore > allResults[j].HybridScore
	})

	totalFound := len(allResults)
	if len(allResults) > s.cfg.TopK {
		allResults = allResults[:s.cfg.TopK]
	}
	if allResults == nil {
		allResults = []*SearchResult{}
	}

	return &TieredSearchOutput{
		Results:       allResults,
		SearchedTiers: searchedTiers,
		TotalFound:    totalFound,
		Query:         input.Query,
	}, nil
}
