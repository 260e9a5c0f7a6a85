package search

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"

	"github.com/mohammad-safakhou/copilot/config"
	"github.com/mohammad-safakhou/copilot/internal/search/jina"
	"github.com/mohammad-safakhou/copilot/internal/search/serper"
	"github.com/mohammad-safakhou/copilot/models"
)

const maxVariants = 3

// Searcher runs one raw web search.
type Searcher interface {
	Search(ctx context.Context, query string, num int) ([]models.SearchResult, error)
}

// Reranker scores documents against a query.
type Reranker interface {
	Rerank(ctx context.Context, query string, documents []string, topN int) ([]jina.Score, error)
}

// Response is the outcome of one search pipeline run. The pipeline never
// aborts: failures are recorded in Err and the remaining fields describe
// whatever could still be produced.
type Response struct {
	Query            string                `json:"query"`
	RephrasedQueries []string              `json:"rephrased_queries"`
	Results          string                `json:"results"`
	Sources          []models.SearchResult `json:"sources"`
	TotalFound       int                   `json:"total_found"`
	DeepMode         bool                  `json:"deep_mode"`
	Err              string                `json:"error,omitempty"`
}

// Service is the multi-step search pipeline: query expansion, per-variant
// provider calls, merge, rerank and synthesis.
type Service struct {
	searcher Searcher
	reranker Reranker
	cache    *Cache
	logger   *log.Logger

	hasSerperKey bool
	hasJinaKey   bool
}

// NewService wires the pipeline from configuration. cache may be nil.
func NewService(cfg config.SearchConfig, cache *Cache, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.New(log.Writer(), "[SEARCH] ", log.LstdFlags)
	}
	s := &Service{
		searcher:     serper.New(cfg.SerperAPIKey, cfg.Timeout),
		cache:        cache,
		logger:       logger,
		hasSerperKey: cfg.SerperAPIKey != "",
		hasJinaKey:   cfg.JinaAPIKey != "",
	}
	if cfg.JinaAPIKey != "" {
		s.reranker = jina.New(cfg.JinaAPIKey, cfg.Timeout)
	}
	return s
}

// NewServiceWith builds a pipeline around explicit collaborators, for tests.
func NewServiceWith(searcher Searcher, reranker Reranker, cache *Cache, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.New(log.Writer(), "[SEARCH] ", log.LstdFlags)
	}
	return &Service{
		searcher:     searcher,
		reranker:     reranker,
		cache:        cache,
		logger:       logger,
		hasSerperKey: searcher != nil,
		hasJinaKey:   reranker != nil,
	}
}

// Search runs the full pipeline. Deep mode enables query expansion and the
// hosted reranker; otherwise a single query with local overlap scoring.
func (s *Service) Search(ctx context.Context, query string, numResults int, deepMode bool) Response {
	if numResults <= 0 {
		numResults = 5
	}
	searchesTotal.Inc()

	if s.cache != nil {
		if resp, ok := s.cache.Get(ctx, query, numResults, deepMode); ok {
			cacheHitsTotal.Inc()
			return resp
		}
	}

	variants := []string{query}
	if deepMode {
		variants = ExpandQuery(query)
	}
	if len(variants) > maxVariants {
		variants = variants[:maxVariants]
	}

	// Merge per-variant results without dedup; downstream ranking decides.
	var all []models.SearchResult
	var degraded bool
	for _, v := range variants {
		results, placeholder := s.providerSearch(ctx, v, numResults)
		if placeholder {
			degraded = true
		}
		all = append(all, results...)
	}
	if len(all) == 0 {
		return Response{
			Query:            query,
			RephrasedQueries: variants,
			Results:          "No search results found",
			DeepMode:         deepMode,
			Err:              "no organic results from search provider",
		}
	}

	var ranked []models.SearchResult
	if deepMode && s.reranker != nil && len(all) > 1 {
		ranked = s.rerank(ctx, query, all)
	} else {
		ranked = RankLocal(query, all)
	}
	if len(ranked) > numResults {
		ranked = ranked[:numResults]
	}

	resp := Response{
		Query:            query,
		RephrasedQueries: variants,
		Results:          SynthesizeAnswer(query, ranked),
		Sources:          ranked,
		TotalFound:       len(all),
		DeepMode:         deepMode,
	}
	if degraded {
		resp.Err = "search provider unavailable, placeholder results included"
	}
	// Degraded responses stay out of the cache so a transient provider
	// outage does not serve placeholders for the full TTL.
	if s.cache != nil && !degraded {
		s.cache.Put(ctx, query, numResults, deepMode, resp)
	}
	return resp
}

// providerSearch calls the search provider for one variant. A transport
// failure yields a single synthetic placeholder result so the pipeline never
// stops on empty results; the second return reports that degradation.
func (s *Service) providerSearch(ctx context.Context, query string, num int) ([]models.SearchResult, bool) {
	results, err := s.searcher.Search(ctx, query, num)
	if err != nil {
		s.logger.Printf("provider search failed for %q: %v", query, err)
		return []models.SearchResult{{
			Title:          fmt.Sprintf("Search result for: %s", query),
			Snippet:        fmt.Sprintf("Information about %s - search service temporarily unavailable", query),
			URL:            "https://example.com",
			RelevanceScore: 1.0,
		}}, true
	}
	return results, false
}

// rerank asks the hosted reranker to order the candidates; any failure falls
// back to local overlap scoring.
func (s *Service) rerank(ctx context.Context, query string, results []models.SearchResult) []models.SearchResult {
	docs := make([]string, len(results))
	for i, r := range results {
		docs[i] = strings.TrimSpace(r.Title + " " + r.Snippet)
	}
	topN := len(docs)
	if topN > 10 {
		topN = 10
	}
	scores, err := s.reranker.Rerank(ctx, query, docs, topN)
	if err != nil || len(scores) == 0 {
		if err != nil {
			s.logger.Printf("rerank failed, using local ranking: %v", err)
		}
		return RankLocal(query, results)
	}

	reranked := make([]models.SearchResult, 0, len(scores))
	for _, sc := range scores {
		if sc.Index < 0 || sc.Index >= len(results) {
			continue
		}
		r := results[sc.Index]
		r.RelevanceScore = sc.RelevanceScore
		reranked = append(reranked, r)
	}
	if len(reranked) == 0 {
		return RankLocal(query, results)
	}
	sort.SliceStable(reranked, func(i, j int) bool {
		return reranked[i].RelevanceScore > reranked[j].RelevanceScore
	})
	return reranked
}

// Health describes the observed state of the search service.
type Health struct {
	Status       string `json:"status"`
	Message      string `json:"message"`
	HasSerperKey bool   `json:"has_serper_key"`
	HasJinaKey   bool   `json:"has_jina_key"`
}

// HealthCheck runs a minimal probe query.
func (s *Service) HealthCheck(ctx context.Context) Health {
	resp := s.Search(ctx, "test query", 1, false)
	h := Health{HasSerperKey: s.hasSerperKey, HasJinaKey: s.hasJinaKey}
	if resp.Err != "" {
		h.Status = "degraded"
		h.Message = resp.Err
	} else {
		h.Status = "healthy"
		h.Message = "Search service is operational"
	}
	return h
}
