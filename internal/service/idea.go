package service

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/goodaideas/goodaideas/internal/backend"
	"github.com/goodaideas/goodaideas/internal/domain"
	domainerrors "github.com/goodaideas/goodaideas/internal/errors"
	"github.com/goodaideas/goodaideas/internal/id"
	"github.com/goodaideas/goodaideas/internal/moderation"
	"github.com/goodaideas/goodaideas/internal/state"
	"github.com/goodaideas/goodaideas/internal/util"
	"github.com/goodaideas/goodaideas/internal/validation"
	"github.com/goodaideas/goodaideas/internal/wire"
)

// Listing limits.
const (
	DefaultIdeaLimit = 50
	MaxIdeaLimit     = 100
)

const listScope = "ideas:list"

// IdeaService lists, shows, creates, rates and favorites ideas.
type IdeaService struct {
	rows         backend.Rows
	store        *state.Store
	moderator    *moderation.Moderator
	challenges   *ChallengeService
	achievements *AchievementService
	index        *SearchService
	seq          *state.Sequencer
	logger       *slog.Logger
	now          func() time.Time
}

// NewIdeaService creates an idea service. challenges, achievements and
// index may be nil.
func NewIdeaService(
	rows backend.Rows,
	store *state.Store,
	moderator *moderation.Moderator,
	challenges *ChallengeService,
	achievements *AchievementService,
	index *SearchService,
	logger *slog.Logger,
) *IdeaService {
	return &IdeaService{
		rows:         rows,
		store:        store,
		moderator:    moderator,
		challenges:   challenges,
		achievements: achievements,
		index:        index,
		seq:          state.NewSequencer(),
		logger:       logger,
		now:          time.Now,
	}
}

// List returns ideas matching filter. When a newer List starts before
// this one resolves, this one returns ErrStale.
func (s *IdeaService) List(ctx context.Context, filter domain.IdeaFilter) ([]domain.Idea, error) {
	ticket := s.seq.Begin(listScope)

	q, err := listQuery(filter)
	if err != nil {
		return nil, err
	}
	rows, err := s.rows.Select(ctx, q)
	if !s.seq.Current(ticket) {
		return nil, domainerrors.ErrStale
	}
	if err != nil {
		s.logger.Warn("failed to list ideas", "error", err)
		return nil, err
	}

	ideas := wire.DecodeList(s.logger, TableIdeas, rows, wire.DecodeIdea)
	s.attachAuthors(ctx, ideas)
	if !s.seq.Current(ticket) {
		return nil, domainerrors.ErrStale
	}
	s.index.IndexIdeas(ideas)
	return ideas, nil
}

func listQuery(filter domain.IdeaFilter) (backend.Query, error) {
	q := backend.Query{Table: TableIdeas}

	if c := strings.TrimSpace(filter.Category); c != "" && !strings.EqualFold(c, "all") {
		q.Filters = append(q.Filters, backend.Eq("category", c))
	}
	if tags := util.NormalizeTags(filter.Tags); len(tags) > 0 {
		q.Filters = append(q.Filters, backend.Filter{Column: "tags", Op: backend.OpContains, Value: tags})
	}
	if filter.UserID != "" {
		q.Filters = append(q.Filters, backend.Eq("user_id", filter.UserID))
	}

	switch filter.Sort {
	case domain.SortPopular:
		q.Order = []backend.Order{{Column: "favorites_count", Desc: true}, {Column: "created_at", Desc: true}}
	case domain.SortRating:
		q.Order = []backend.Order{{Column: "rating", Desc: true}, {Column: "created_at", Desc: true}}
	case domain.SortRecent, "":
		q.Order = []backend.Order{{Column: "created_at", Desc: true}}
	default:
		return q, domainerrors.Validationf("unknown sort %q", filter.Sort)
	}

	switch {
	case filter.Limit <= 0:
		q.Limit = DefaultIdeaLimit
	case filter.Limit > MaxIdeaLimit:
		q.Limit = MaxIdeaLimit
	default:
		q.Limit = filter.Limit
	}
	return q, nil
}

func (s *IdeaService) attachAuthors(ctx context.Context, ideas []domain.Idea) {
	userIDs := make([]string, 0, len(ideas))
	for _, idea := range ideas {
		if idea.Author == nil {
			userIDs = append(userIDs, idea.UserID)
		}
	}
	if len(userIDs) == 0 {
		return
	}
	authors, err := lookupAuthors(ctx, s.rows, userIDs)
	if err != nil {
		s.logger.Warn("failed to load idea authors", "error", err)
		return
	}
	for i := range ideas {
		if ideas[i].Author == nil {
			ideas[i].Author = authors[ideas[i].UserID]
		}
	}
}

// fetch loads one idea row.
func (s *IdeaService) fetch(ctx context.Context, ideaID string) (*domain.Idea, error) {
	if !id.IsValidUUID(ideaID) {
		return nil, domainerrors.Validation("Invalid ID format")
	}
	row, err := s.rows.SelectOne(ctx, backend.Query{
		Table:   TableIdeas,
		Filters: []backend.Filter{backend.Eq("id", ideaID)},
	})
	if domainerrors.Is(err, domainerrors.ErrNotFound) {
		return nil, domainerrors.NotFound("Idea not found")
	}
	if err != nil {
		return nil, err
	}
	return wire.DecodeIdea(row)
}

// Versions returns an idea's saved revisions, newest first.
func (s *IdeaService) Versions(ctx context.Context, ideaID string) ([]domain.IdeaVersion, error) {
	if !id.IsValidUUID(ideaID) {
		return nil, domainerrors.Validation("Invalid ID format")
	}
	rows, err := s.rows.Select(ctx, backend.Query{
		Table:   TableVersions,
		Filters: []backend.Filter{backend.Eq("idea_id", ideaID)},
		Order:   []backend.Order{{Column: "version_number", Desc: true}},
	})
	if err != nil {
		return nil, err
	}
	return wire.DecodeList(s.logger, TableVersions, rows, wire.DecodeIdeaVersion), nil
}

// Get returns an idea with its rating and comment aggregates. For a
// signed-in user the view is recorded and their favorite and rating are
// included.
func (s *IdeaService) Get(ctx context.Context, ideaID string) (*domain.IdeaDetail, error) {
	idea, err := s.fetch(ctx, ideaID)
	if err != nil {
		return nil, err
	}
	one := []domain.Idea{*idea}
	s.attachAuthors(ctx, one)
	detail := &domain.IdeaDetail{Idea: one[0]}

	ratingRows, err := s.rows.Select(ctx, backend.Query{
		Table:   TableRatings,
		Filters: []backend.Filter{backend.Eq("idea_id", ideaID)},
	})
	if err != nil {
		return nil, err
	}
	ratings := wire.DecodeList(s.logger, TableRatings, ratingRows, wire.DecodeRating)
	detail.AverageRating = domain.Average(ratings)
	detail.RatingCount = len(ratings)

	if detail.CommentCount, err = count(ctx, s.rows, TableComments, backend.Eq("idea_id", ideaID)); err != nil {
		return nil, err
	}

	uid := s.store.Snapshot().Session.UserID()
	if uid == "" {
		return detail, nil
	}
	for _, r := range ratings {
		if r.UserID == uid {
			detail.UserRating = r.Score
		}
	}
	fav, err := s.isFavorite(ctx, ideaID, uid)
	if err != nil {
		return nil, err
	}
	detail.IsFavorite = fav
	s.RecordView(ctx, ideaID)
	return detail, nil
}

// RecordView notes that the signed-in user opened an idea. Failures are
// logged only.
func (s *IdeaService) RecordView(ctx context.Context, ideaID string) {
	uid := s.store.Snapshot().Session.UserID()
	if uid == "" {
		return
	}
	_, err := s.rows.Insert(ctx, TableViews, []backend.Row{{
		"idea_id":   ideaID,
		"user_id":   uid,
		"viewed_at": wire.Timestamp(s.now()),
	}})
	if err != nil {
		s.logger.Warn("failed to record view", "idea_id", ideaID, "error", err)
	}
}

// CreateIdeaInput is a new idea.
type CreateIdeaInput struct {
	Title       string   `json:"title" validate:"notblank,min=3,max=120"`
	Description string   `json:"description,omitempty" validate:"max=5000"`
	Category    string   `json:"category,omitempty" validate:"max=50"`
	Tags        []string `json:"tags,omitempty" validate:"max=5,dive,max=30"`
}

// Create shares a new idea as the signed-in user. Content is screened and
// stripped of unsafe markup first.
func (s *IdeaService) Create(ctx context.Context, in CreateIdeaInput) (*domain.Idea, error) {
	uid, err := requireUser(s.store, "Please log in to share an idea")
	if err != nil {
		return nil, err
	}

	in.Title = strings.TrimSpace(in.Title)
	in.Category = strings.TrimSpace(in.Category)
	in.Tags = util.NormalizeTags(in.Tags)
	if err := validation.Default().Validate(in); err != nil {
		return nil, err
	}
	if err := s.moderator.Check(in.Title + "\n" + in.Description); err != nil {
		return nil, err
	}

	idea := domain.Idea{
		UserID:      uid,
		Title:       s.moderator.Plain(in.Title),
		Description: s.moderator.Rich(in.Description),
		Category:    in.Category,
		Tags:        in.Tags,
	}
	if idea.Title == "" {
		return nil, domainerrors.Validation("Title is required")
	}

	saved, err := s.rows.Insert(ctx, TableIdeas, []backend.Row{wire.EncodeIdea(idea)})
	if err != nil {
		s.logger.Error("failed to create idea", "error", err)
		s.store.AddNotification(domain.NotifyError, domainerrors.UserMessage(err))
		return nil, err
	}
	if len(saved) == 0 {
		return nil, domainerrors.Internal("idea was not returned after insert")
	}
	created, err := wire.DecodeIdea(saved[0])
	if err != nil {
		return nil, err
	}
	if p := s.store.Snapshot().Profile; p != nil {
		created.Author = &domain.Author{Username: p.Username, AvatarURL: p.AvatarURL}
	}

	s.logger.Info("idea created", "idea_id", created.ID, "user_id", uid)
	s.store.AddNotification(domain.NotifySuccess, "Your idea was shared successfully!")
	s.index.IndexIdeas([]domain.Idea{*created})
	s.afterAction(ctx, domain.ChallengeShare)
	return created, nil
}

// Rate stores the signed-in user's score for an idea and returns the new
// average. Only a user's first rating of an idea counts toward the daily
// challenge.
func (s *IdeaService) Rate(ctx context.Context, ideaID string, score int) (float64, error) {
	uid, err := requireUser(s.store, "Please log in to rate ideas")
	if err != nil {
		return 0, err
	}
	if !id.IsValidUUID(ideaID) {
		return 0, domainerrors.Validation("Invalid ID format")
	}
	if err := validation.Default().Var("rating", score, "gte=1,lte=5"); err != nil {
		return 0, err
	}

	mine := []backend.Filter{backend.Eq("idea_id", ideaID), backend.Eq("user_id", uid)}
	prior, err := count(ctx, s.rows, TableRatings, mine...)
	if err != nil {
		return 0, err
	}

	_, err = s.rows.Upsert(ctx, TableRatings, backend.Row{
		"idea_id": ideaID,
		"user_id": uid,
		"rating":  score,
	}, "idea_id,user_id")
	if err != nil {
		s.logger.Error("failed to save rating", "idea_id", ideaID, "error", err)
		return 0, err
	}

	rows, err := s.rows.Select(ctx, backend.Query{
		Table:   TableRatings,
		Filters: []backend.Filter{backend.Eq("idea_id", ideaID)},
	})
	if err != nil {
		return 0, err
	}
	avg := domain.Average(wire.DecodeList(s.logger, TableRatings, rows, wire.DecodeRating))

	if prior == 0 {
		s.afterAction(ctx, domain.ChallengeRate)
	}
	return avg, nil
}

// ToggleFavorite adds or removes an idea from the signed-in user's
// favorites and reports whether it is now a favorite.
func (s *IdeaService) ToggleFavorite(ctx context.Context, ideaID string) (bool, error) {
	uid, err := requireUser(s.store, "Please log in to save favorites")
	if err != nil {
		return false, err
	}
	if !id.IsValidUUID(ideaID) {
		return false, domainerrors.Validation("Invalid ID format")
	}

	fav, err := s.isFavorite(ctx, ideaID, uid)
	if err != nil {
		return false, err
	}
	if fav {
		err := s.rows.Delete(ctx, TableFavorites, []backend.Filter{
			backend.Eq("idea_id", ideaID),
			backend.Eq("user_id", uid),
		})
		return err != nil, err
	}
	_, err = s.rows.Insert(ctx, TableFavorites, []backend.Row{{"idea_id": ideaID, "user_id": uid}})
	return err == nil, err
}

func (s *IdeaService) isFavorite(ctx context.Context, ideaID, uid string) (bool, error) {
	n, err := count(ctx, s.rows, TableFavorites, backend.Eq("idea_id", ideaID), backend.Eq("user_id", uid))
	return n > 0, err
}

// ShareText builds the share text and network links for an idea whose
// page lives under baseURL.
func (s *IdeaService) ShareText(ctx context.Context, ideaID, baseURL string) (moderation.Share, error) {
	idea, err := s.fetch(ctx, ideaID)
	if err != nil {
		return moderation.Share{}, err
	}
	link := strings.TrimRight(baseURL, "/") + "/ideas/" + idea.ID
	return moderation.ShareText(idea.Title, idea.Description, link), nil
}

// afterAction advances the daily challenge for kind and checks for new
// achievements. Failures are logged; the action itself already succeeded.
func (s *IdeaService) afterAction(ctx context.Context, kind domain.ChallengeKind) {
	progress(ctx, s.challenges, s.achievements, s.logger, kind, s.now())
}

func progress(ctx context.Context, challenges *ChallengeService, achievements *AchievementService, logger *slog.Logger, kind domain.ChallengeKind, now time.Time) {
	if challenges != nil {
		if _, err := challenges.Progress(ctx, kind, now); err != nil {
			logger.Warn("failed to advance challenge", "kind", kind, "error", err)
		}
	}
	if achievements != nil {
		if _, err := achievements.Evaluate(ctx); err != nil {
			logger.Warn("failed to evaluate achievements", "error", err)
		}
	}
}
