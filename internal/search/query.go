package search

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/search/query"
)

// Sort orders search results.
type Sort string

// Orders.
const (
	SortRelevance Sort = "relevance"
	SortRecent    Sort = "recent"
	SortPopular   Sort = "popular"
	SortRating    Sort = "rating"
)

// Valid reports whether s is a known order.
func (s Sort) Valid() bool {
	switch s {
	case SortRelevance, SortRecent, SortPopular, SortRating:
		return true
	}
	return false
}

// Params configures a search.
type Params struct {
	Query     string
	Category  string   // exact category
	Tags      []string // any of these tags
	MinRating float64

	Limit  int
	Offset int
	Sort   Sort

	Facets    bool
	Highlight bool
}

// DefaultParams returns the parameters used by the search screen.
func DefaultParams() Params {
	return Params{Limit: 20, Sort: SortRelevance, Facets: true, Highlight: true}
}

// Result is one page of hits.
type Result struct {
	Query  string `json:"query"`
	Total  uint64 `json:"total"`
	TookMs int64  `json:"took_ms"`
	Hits   []Hit  `json:"hits"`
	Facets Facets `json:"facets,omitzero"`
}

// Hit is one matching idea.
type Hit struct {
	ID         string            `json:"id"`
	Score      float64           `json:"score"`
	Title      string            `json:"title"`
	Author     string            `json:"author,omitempty"`
	Category   string            `json:"category,omitempty"`
	Tags       []string          `json:"tags,omitempty"`
	Rating     float64           `json:"rating"`
	Highlights map[string]string `json:"highlights,omitempty"`
}

// Facets counts hits per category and tag.
type Facets struct {
	Categories []FacetCount `json:"categories,omitempty"`
	Tags       []FacetCount `json:"tags,omitempty"`
}

// FacetCount is one facet value.
type FacetCount struct {
	Value string `json:"value"`
	Count int    `json:"count"`
}

// Search runs params against the index.
func (s *Index) Search(ctx context.Context, params Params) (*Result, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if params.Limit <= 0 {
		params.Limit = DefaultParams().Limit
	}

	req := bleve.NewSearchRequestOptions(buildQuery(params), params.Limit, params.Offset, false)
	req.SortBy(sortFields(params.Sort))
	if params.Facets {
		req.AddFacet("category", bleve.NewFacetRequest("category", 20))
		req.AddFacet("tags", bleve.NewFacetRequest("tags", 20))
	}
	if params.Highlight {
		req.Highlight = bleve.NewHighlight()
		req.Highlight.AddField("title")
		req.Highlight.AddField("description")
	}
	req.Fields = []string{"title", "author", "category", "tags", "rating"}

	res, err := s.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("execute search: %w", err)
	}

	out := &Result{
		Query:  params.Query,
		Total:  res.Total,
		TookMs: res.Took.Milliseconds(),
		Hits:   make([]Hit, 0, len(res.Hits)),
	}
	for _, h := range res.Hits {
		hit := Hit{ID: h.ID, Score: h.Score}
		hit.Title, _ = h.Fields["title"].(string)
		hit.Author, _ = h.Fields["author"].(string)
		hit.Category, _ = h.Fields["category"].(string)
		hit.Rating, _ = h.Fields["rating"].(float64)
		hit.Tags = stringList(h.Fields["tags"])

		if len(h.Fragments) > 0 {
			hit.Highlights = make(map[string]string, len(h.Fragments))
			for field, frags := range h.Fragments {
				if len(frags) > 0 {
					hit.Highlights[field] = frags[0]
				}
			}
		}
		out.Hits = append(out.Hits, hit)
	}

	if params.Facets {
		out.Facets.Categories = facetTerms(res, "category")
		out.Facets.Tags = facetTerms(res, "tags")
	}
	return out, nil
}

func buildQuery(params Params) query.Query {
	var must []query.Query

	if q := strings.TrimSpace(params.Query); q != "" {
		title := bleve.NewMatchQuery(q)
		title.SetField("title")
		title.SetBoost(3.0)

		desc := bleve.NewMatchQuery(q)
		desc.SetField("description")

		author := bleve.NewMatchQuery(q)
		author.SetField("author")
		author.SetBoost(1.5)

		// Typo tolerance on titles.
		fuzzy := bleve.NewFuzzyQuery(strings.ToLower(q))
		fuzzy.SetFuzziness(1)
		fuzzy.SetField("title")
		fuzzy.SetBoost(0.8)

		text := []query.Query{title, desc, author, fuzzy}
		if len(q) >= 2 {
			prefix := bleve.NewPrefixQuery(strings.ToLower(q))
			prefix.SetField("title")
			prefix.SetBoost(0.5)
			text = append(text, prefix)
		}
		must = append(must, bleve.NewDisjunctionQuery(text...))
	}

	if params.Category != "" {
		tq := bleve.NewTermQuery(params.Category)
		tq.SetField("category")
		must = append(must, tq)
	}

	if len(params.Tags) > 0 {
		tags := make([]query.Query, len(params.Tags))
		for i, tag := range params.Tags {
			tq := bleve.NewTermQuery(tag)
			tq.SetField("tags")
			tags[i] = tq
		}
		must = append(must, bleve.NewDisjunctionQuery(tags...))
	}

	if params.MinRating > 0 {
		lo, hi := params.MinRating, math.MaxFloat64
		inclusive := true
		rq := bleve.NewNumericRangeInclusiveQuery(&lo, &hi, &inclusive, &inclusive)
		rq.SetField("rating")
		must = append(must, rq)
	}

	switch len(must) {
	case 0:
		return bleve.NewMatchAllQuery()
	case 1:
		return must[0]
	default:
		return bleve.NewConjunctionQuery(must...)
	}
}

func sortFields(s Sort) []string {
	switch s {
	case SortRecent:
		return []string{"-created_at"}
	case SortPopular:
		return []string{"-favorites", "-created_at"}
	case SortRating:
		return []string{"-rating", "-created_at"}
	default:
		return []string{"-_score", "-created_at"}
	}
}

func facetTerms(res *bleve.SearchResult, field string) []FacetCount {
	facet, ok := res.Facets[field]
	if !ok || facet.Terms == nil {
		return nil
	}
	var out []FacetCount
	for _, term := range facet.Terms.Terms() {
		out = append(out, FacetCount{Value: term.Term, Count: term.Count})
	}
	return out
}

// stringList reads a stored multi-value field, which Bleve returns as a
// plain string when only one value was indexed.
func stringList(v any) []string {
	switch v := v.(type) {
	case string:
		return []string{v}
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}
