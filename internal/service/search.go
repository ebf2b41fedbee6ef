package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/goodaideas/goodaideas/internal/backend"
	"github.com/goodaideas/goodaideas/internal/domain"
	"github.com/goodaideas/goodaideas/internal/search"
	"github.com/goodaideas/goodaideas/internal/wire"
)

// warmLimit caps how many ideas an empty index is seeded with.
const warmLimit = 500

// SearchService keeps the offline index fed with fetched ideas and
// answers searches from it.
type SearchService struct {
	index  *search.Index
	rows   backend.Rows
	logger *slog.Logger

	warmMu sync.Mutex
}

// NewSearchService creates a search service over index.
func NewSearchService(index *search.Index, rows backend.Rows, logger *slog.Logger) *SearchService {
	return &SearchService{
		index:  index,
		rows:   rows,
		logger: logger,
	}
}

// IndexIdeas adds or refreshes ideas in the index. Failures are logged.
func (s *SearchService) IndexIdeas(ideas []domain.Idea) {
	if s == nil || len(ideas) == 0 {
		return
	}
	docs := make([]*search.IdeaDocument, len(ideas))
	for i, idea := range ideas {
		docs[i] = search.NewIdeaDocument(idea)
	}
	if err := s.index.PutAll(docs); err != nil {
		s.logger.Warn("failed to index ideas", "count", len(docs), "error", err)
	}
}

// Remove drops an idea from the index.
func (s *SearchService) Remove(ideaID string) {
	if s == nil {
		return
	}
	if err := s.index.Delete(ideaID); err != nil {
		s.logger.Warn("failed to remove idea from index", "idea_id", ideaID, "error", err)
	}
}

// Warm seeds an empty index with the most recent ideas.
func (s *SearchService) Warm(ctx context.Context) error {
	s.warmMu.Lock()
	defer s.warmMu.Unlock()

	n, err := s.index.Count()
	if err != nil {
		return fmt.Errorf("count index: %w", err)
	}
	if n > 0 {
		return nil
	}

	rows, err := s.rows.Select(ctx, backend.Query{
		Table: TableIdeas,
		Order: []backend.Order{{Column: "created_at", Desc: true}},
		Limit: warmLimit,
	})
	if err != nil {
		return err
	}
	ideas := wire.DecodeList(s.logger, TableIdeas, rows, wire.DecodeIdea)

	userIDs := make([]string, len(ideas))
	for i, idea := range ideas {
		userIDs[i] = idea.UserID
	}
	authors, err := lookupAuthors(ctx, s.rows, userIDs)
	if err != nil {
		s.logger.Warn("failed to load idea authors", "error", err)
	}
	for i := range ideas {
		if ideas[i].Author == nil {
			ideas[i].Author = authors[ideas[i].UserID]
		}
	}

	s.IndexIdeas(ideas)
	s.logger.Info("search index warmed", "ideas", len(ideas))
	return nil
}

// Search runs params against the index, seeding it first when empty. A
// failed seed is logged and the search runs on whatever is indexed.
func (s *SearchService) Search(ctx context.Context, params search.Params) (*search.Result, error) {
	params.Query = strings.TrimSpace(params.Query)
	if err := s.Warm(ctx); err != nil {
		s.logger.Warn("failed to warm search index", "error", err)
	}
	return s.index.Search(ctx, params)
}
