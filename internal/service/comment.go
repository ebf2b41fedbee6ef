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
	"github.com/goodaideas/goodaideas/internal/wire"
)

// MaxCommentLength bounds a comment after cleaning.
const MaxCommentLength = 2000

// CommentService lists and adds comments on ideas.
type CommentService struct {
	rows         backend.Rows
	store        *state.Store
	moderator    *moderation.Moderator
	challenges   *ChallengeService
	achievements *AchievementService
	logger       *slog.Logger
	now          func() time.Time
}

// NewCommentService creates a comment service. challenges and achievements
// may be nil.
func NewCommentService(
	rows backend.Rows,
	store *state.Store,
	moderator *moderation.Moderator,
	challenges *ChallengeService,
	achievements *AchievementService,
	logger *slog.Logger,
) *CommentService {
	return &CommentService{
		rows:         rows,
		store:        store,
		moderator:    moderator,
		challenges:   challenges,
		achievements: achievements,
		logger:       logger,
		now:          time.Now,
	}
}

// List returns an idea's comments, newest first.
func (s *CommentService) List(ctx context.Context, ideaID string) ([]domain.Comment, error) {
	if !id.IsValidUUID(ideaID) {
		return nil, domainerrors.Validation("Invalid ID format")
	}
	rows, err := s.rows.Select(ctx, backend.Query{
		Table:   TableComments,
		Filters: []backend.Filter{backend.Eq("idea_id", ideaID)},
		Order:   []backend.Order{{Column: "created_at", Desc: true}},
	})
	if err != nil {
		return nil, err
	}
	comments := wire.DecodeList(s.logger, TableComments, rows, wire.DecodeComment)

	userIDs := make([]string, len(comments))
	for i, c := range comments {
		userIDs[i] = c.UserID
	}
	authors, err := lookupAuthors(ctx, s.rows, userIDs)
	if err != nil {
		s.logger.Warn("failed to load comment authors", "idea_id", ideaID, "error", err)
		return comments, nil
	}
	for i := range comments {
		if comments[i].Author == nil {
			comments[i].Author = authors[comments[i].UserID]
		}
	}
	return comments, nil
}

// Add posts a comment as the signed-in user.
func (s *CommentService) Add(ctx context.Context, ideaID, content string) (*domain.Comment, error) {
	uid, err := requireUser(s.store, "Please log in to comment")
	if err != nil {
		return nil, err
	}
	if !id.IsValidUUID(ideaID) {
		return nil, domainerrors.Validation("Invalid ID format")
	}
	if strings.TrimSpace(content) == "" {
		return nil, domainerrors.Validation("Comment cannot be empty")
	}
	clean, err := s.moderator.Clean(content)
	if err != nil {
		return nil, err
	}
	if len([]rune(clean)) > MaxCommentLength {
		return nil, domainerrors.Validationf("Comment must not exceed %d characters", MaxCommentLength)
	}

	saved, err := s.rows.Insert(ctx, TableComments, []backend.Row{{
		"idea_id": ideaID,
		"user_id": uid,
		"content": clean,
	}})
	if err != nil {
		s.logger.Error("failed to add comment", "idea_id", ideaID, "error", err)
		s.store.AddNotification(domain.NotifyError, domainerrors.UserMessage(err))
		return nil, err
	}
	if len(saved) == 0 {
		return nil, domainerrors.Internal("comment was not returned after insert")
	}
	c, err := wire.DecodeComment(saved[0])
	if err != nil {
		return nil, err
	}
	if p := s.store.Snapshot().Profile; p != nil {
		c.Author = &domain.Author{Username: p.Username, AvatarURL: p.AvatarURL}
	}

	s.store.AddNotification(domain.NotifySuccess, "Comment added successfully!")
	progress(ctx, s.challenges, s.achievements, s.logger, domain.ChallengeComment, s.now())
	return c, nil
}
