package wire

import (
	"log/slog"
	"strconv"
	"time"

	"github.com/goodaideas/goodaideas/internal/backend"
	"github.com/goodaideas/goodaideas/internal/domain"
)

type profileShape struct {
	ID       string `json:"id" validate:"notblank"`
	Username string `json:"username" validate:"max=64"`
	Points   int    `json:"points" validate:"gte=0"`
}

// DecodeProfile decodes a users row.
func DecodeProfile(row backend.Row) (*domain.Profile, error) {
	r := newReader(row)
	p := &domain.Profile{
		ID:        r.String("id"),
		Username:  r.String("username"),
		AvatarURL: r.String("avatar_url"),
		Points:    r.Int("points"),
		CreatedAt: r.Time("created_at"),
	}
	if err := r.finish(profileShape{ID: p.ID, Username: p.Username, Points: p.Points}); err != nil {
		return nil, err
	}
	return p, nil
}

type settingsShape struct {
	UserID   string `json:"user_id" validate:"notblank"`
	Theme    string `json:"theme" validate:"omitempty,oneof=light dark system"`
	FontSize string `json:"font_size" validate:"omitempty,oneof=small medium large"`
}

// DecodeRemoteSettings decodes a user_settings row into a patch. Groups the
// row does not carry stay nil, so merging never clears local values.
func DecodeRemoteSettings(row backend.Row) (*domain.RemoteSettings, error) {
	r := newReader(row)
	rs := &domain.RemoteSettings{
		UserID:    r.String("user_id"),
		UpdatedAt: r.Time("updated_at"),
	}

	theme := r.String("theme")
	if theme != "" {
		rs.Patch.Theme = domain.Ptr(domain.Theme(theme))
	}
	fontSize := r.String("font_size")
	if fontSize != "" {
		rs.Patch.FontSize = domain.Ptr(domain.FontSize(fontSize))
	}
	if n, ok := r.nested("notifications"); ok {
		rs.Patch.Channels = &domain.NotificationChannelsPatch{
			Email: n.BoolPtr("email"),
			Push:  n.BoolPtr("push"),
			InApp: n.BoolPtr("inApp"),
		}
	}
	if a, ok := r.nested("accessibility"); ok {
		rs.Patch.Accessibility = &domain.AccessibilityPatch{
			ReduceMotion: a.BoolPtr("reduceMotion"),
			HighContrast: a.BoolPtr("highContrast"),
		}
	}

	if err := r.finish(settingsShape{UserID: rs.UserID, Theme: theme, FontSize: fontSize}); err != nil {
		return nil, err
	}
	return rs, nil
}

type collectionShape struct {
	ID      string   `json:"id" validate:"notblank"`
	Name    string   `json:"name" validate:"notblank,max=80"`
	IdeaIDs []string `json:"idea_ids" validate:"dive,notblank"`
}

// DecodeCollection decodes a collections row. Duplicate idea ids collapse
// to their first occurrence.
func DecodeCollection(row backend.Row) (*domain.Collection, error) {
	r := newReader(row)
	c := &domain.Collection{
		ID:        r.String("id"),
		UserID:    r.String("user_id"),
		Name:      r.String("name"),
		CreatedAt: r.Time("created_at"),
	}
	for _, ideaID := range r.Strings("idea_ids") {
		c, _ = withIdea(c, ideaID)
	}
	if c.IdeaIDs == nil {
		c.IdeaIDs = []string{}
	}
	if err := r.finish(collectionShape{ID: c.ID, Name: c.Name, IdeaIDs: c.IdeaIDs}); err != nil {
		return nil, err
	}
	return c, nil
}

func withIdea(c *domain.Collection, ideaID string) (*domain.Collection, bool) {
	next, added := c.WithIdea(ideaID)
	return &next, added
}

type ideaShape struct {
	ID     string   `json:"id" validate:"notblank"`
	UserID string   `json:"user_id" validate:"notblank"`
	Title  string   `json:"title" validate:"notblank"`
	Rating float64  `json:"rating" validate:"gte=0,lte=5"`
	Tags   []string `json:"tags" validate:"dive,notblank"`
}

// DecodeIdea decodes an ideas row. An embedded author object is read when
// present.
func DecodeIdea(row backend.Row) (*domain.Idea, error) {
	r := newReader(row)
	idea := &domain.Idea{
		ID:             r.String("id"),
		UserID:         r.String("user_id"),
		Title:          r.String("title"),
		Description:    r.String("description"),
		Category:       r.String("category"),
		Tags:           r.Strings("tags"),
		Rating:         r.Float("rating"),
		FavoritesCount: r.Int("favorites_count"),
		CommentsCount:  r.Int("comments_count"),
		ViewsCount:     r.Int("views_count"),
		CreatedAt:      r.Time("created_at"),
	}
	if a, ok := r.nested("author"); ok {
		idea.Author = &domain.Author{Username: a.String("username"), AvatarURL: a.String("avatar_url")}
	}
	if err := r.finish(ideaShape{ID: idea.ID, UserID: idea.UserID, Title: idea.Title, Rating: idea.Rating, Tags: idea.Tags}); err != nil {
		return nil, err
	}
	return idea, nil
}

type commentShape struct {
	ID      string `json:"id" validate:"notblank"`
	IdeaID  string `json:"idea_id" validate:"notblank"`
	Content string `json:"content" validate:"notblank"`
}

// DecodeComment decodes a comments row.
func DecodeComment(row backend.Row) (*domain.Comment, error) {
	r := newReader(row)
	c := &domain.Comment{
		ID:        r.String("id"),
		IdeaID:    r.String("idea_id"),
		UserID:    r.String("user_id"),
		Content:   r.String("content"),
		CreatedAt: r.Time("created_at"),
	}
	if a, ok := r.nested("author"); ok {
		c.Author = &domain.Author{Username: a.String("username"), AvatarURL: a.String("avatar_url")}
	}
	if err := r.finish(commentShape{ID: c.ID, IdeaID: c.IdeaID, Content: c.Content}); err != nil {
		return nil, err
	}
	return c, nil
}

type ratingShape struct {
	IdeaID string `json:"idea_id" validate:"notblank"`
	Score  int    `json:"rating" validate:"gte=1,lte=5"`
}

// DecodeRating decodes an idea_ratings row.
func DecodeRating(row backend.Row) (*domain.Rating, error) {
	r := newReader(row)
	rt := &domain.Rating{IdeaID: r.String("idea_id"), UserID: r.String("user_id"), Score: r.Int("rating")}
	if err := r.finish(ratingShape{IdeaID: rt.IdeaID, Score: rt.Score}); err != nil {
		return nil, err
	}
	return rt, nil
}

type messageShape struct {
	ID      string `json:"id" validate:"notblank"`
	TeamID  string `json:"team_id" validate:"notblank"`
	Content string `json:"content" validate:"notblank"`
}

// DecodeMessage decodes a team_messages row.
func DecodeMessage(row backend.Row) (*domain.TeamMessage, error) {
	r := newReader(row)
	m := &domain.TeamMessage{
		ID:        r.String("id"),
		TeamID:    r.String("team_id"),
		UserID:    r.String("user_id"),
		Content:   r.String("content"),
		CreatedAt: r.Time("created_at"),
	}
	if a, ok := r.nested("author"); ok {
		m.Author = &domain.Author{Username: a.String("username"), AvatarURL: a.String("avatar_url")}
	}
	if err := r.finish(messageShape{ID: m.ID, TeamID: m.TeamID, Content: m.Content}); err != nil {
		return nil, err
	}
	return m, nil
}

type challengeShape struct {
	ID       string `json:"id" validate:"notblank"`
	Kind     string `json:"type" validate:"oneof=rate share comment"`
	Progress int    `json:"progress" validate:"gte=0"`
	Total    int    `json:"total" validate:"gte=1"`
	Points   int    `json:"points" validate:"gte=0"`
}

// DecodeChallenge decodes a daily_challenges row.
func DecodeChallenge(row backend.Row) (*domain.Challenge, error) {
	r := newReader(row)
	c := &domain.Challenge{
		ID:          r.String("id"),
		UserID:      r.String("user_id"),
		Kind:        domain.ChallengeKind(r.String("type")),
		Title:       r.String("title"),
		Description: r.String("description"),
		Points:      r.Int("points"),
		Progress:    r.Int("progress"),
		Total:       r.Int("total"),
		Completed:   r.Bool("completed", false),
		Date:        r.String("date"),
	}
	if err := r.finish(challengeShape{ID: c.ID, Kind: string(c.Kind), Progress: c.Progress, Total: c.Total, Points: c.Points}); err != nil {
		return nil, err
	}
	c.Progress = min(c.Progress, c.Total)
	return c, nil
}

type achievementShape struct {
	Key    string `json:"achievement" validate:"notblank"`
	UserID string `json:"user_id" validate:"notblank"`
}

// DecodeAchievement decodes a user_achievements row.
func DecodeAchievement(row backend.Row) (*domain.Achievement, error) {
	r := newReader(row)
	a := &domain.Achievement{
		ID:          r.String("id"),
		UserID:      r.String("user_id"),
		Key:         r.String("achievement"),
		Title:       r.String("title"),
		Description: r.String("description"),
		Points:      r.Int("points"),
		UnlockedAt:  r.Time("unlocked_at"),
	}
	if err := r.finish(achievementShape{Key: a.Key, UserID: a.UserID}); err != nil {
		return nil, err
	}
	return a, nil
}

type routineShape struct {
	ID   string `json:"id" validate:"notblank"`
	Name string `json:"name"`
}

// DecodeRoutine decodes a daily_routines row. The schedule is a list of
// {time, activity} objects.
func DecodeRoutine(row backend.Row) (*domain.DailyRoutine, error) {
	r := newReader(row)
	rt := &domain.DailyRoutine{
		ID:          r.String("id"),
		UserID:      r.String("user_id"),
		Name:        r.String("name"),
		IsOptimized: r.Bool("is_optimized", false),
		Schedule:    []domain.RoutineBlock{},
	}
	if items, ok := row["schedule"].([]any); ok {
		for i, item := range items {
			obj, ok := item.(map[string]any)
			if !ok {
				r.fail("schedule", "must be a list of objects")
				break
			}
			br := &reader{row: obj, prefix: "schedule." + strconv.Itoa(i) + ".", errs: r.errs}
			rt.Schedule = append(rt.Schedule, domain.RoutineBlock{Time: br.String("time"), Activity: br.String("activity")})
		}
	} else if r.has("schedule") {
		r.fail("schedule", "must be a list of objects")
	}
	if err := r.finish(routineShape{ID: rt.ID, Name: rt.Name}); err != nil {
		return nil, err
	}
	return rt, nil
}

type goalShape struct {
	ID     string  `json:"id" validate:"notblank"`
	Title  string  `json:"title" validate:"notblank"`
	Target float64 `json:"target" validate:"gte=0"`
}

// DecodeGoal decodes a goals row.
func DecodeGoal(row backend.Row) (*domain.Goal, error) {
	r := newReader(row)
	g := &domain.Goal{
		ID:       r.String("id"),
		UserID:   r.String("user_id"),
		Title:    r.String("title"),
		Category: r.String("category"),
		Target:   r.Float("target"),
		Current:  r.Float("current"),
	}
	g.Deadline = r.Time("deadline")
	if err := r.finish(goalShape{ID: g.ID, Title: g.Title, Target: g.Target}); err != nil {
		return nil, err
	}
	return g, nil
}

type leaderboardShape struct {
	UserID string `json:"id" validate:"notblank"`
	Points int    `json:"points" validate:"gte=0"`
}

// DecodeLeaderboardEntry decodes a users row for ranking. Rank and rank
// change are filled in by the caller.
func DecodeLeaderboardEntry(row backend.Row) (*domain.LeaderboardEntry, error) {
	r := newReader(row)
	e := &domain.LeaderboardEntry{
		UserID:    r.String("id"),
		Username:  r.String("username"),
		AvatarURL: r.String("avatar_url"),
		Points:    r.Int("points"),
	}
	if err := r.finish(leaderboardShape{UserID: e.UserID, Points: e.Points}); err != nil {
		return nil, err
	}
	return e, nil
}

type activityShape struct {
	ID     string `json:"id" validate:"notblank"`
	UserID string `json:"user_id" validate:"notblank"`
	Type   string `json:"type" validate:"notblank"`
}

// DecodeActivity decodes an activity_feed row. The author may be embedded
// as "user" or "author".
func DecodeActivity(row backend.Row) (*domain.Activity, error) {
	r := newReader(row)
	a := &domain.Activity{
		ID:        r.String("id"),
		UserID:    r.String("user_id"),
		Type:      domain.ActivityType(r.String("type")),
		Content:   r.Object("content"),
		CreatedAt: r.Time("created_at"),
	}
	for _, key := range []string{"user", "author"} {
		if u, ok := r.nested(key); ok {
			a.Author = &domain.Author{Username: u.String("username"), AvatarURL: u.String("avatar_url")}
			break
		}
	}
	if a.Content == nil {
		a.Content = map[string]any{}
	}
	if err := r.finish(activityShape{ID: a.ID, UserID: a.UserID, Type: string(a.Type)}); err != nil {
		return nil, err
	}
	return a, nil
}

type ideaVersionShape struct {
	ID            string `json:"id" validate:"notblank"`
	IdeaID        string `json:"idea_id" validate:"notblank"`
	VersionNumber int    `json:"version_number" validate:"gte=1"`
}

// DecodeIdeaVersion decodes an idea_versions row.
func DecodeIdeaVersion(row backend.Row) (*domain.IdeaVersion, error) {
	r := newReader(row)
	v := &domain.IdeaVersion{
		ID:            r.String("id"),
		IdeaID:        r.String("idea_id"),
		VersionNumber: r.Int("version_number"),
		Title:         r.String("title"),
		Description:   r.String("description"),
		Changes:       r.Object("changes"),
		CreatedAt:     r.Time("created_at"),
	}
	if err := r.finish(ideaVersionShape{ID: v.ID, IdeaID: v.IdeaID, VersionNumber: v.VersionNumber}); err != nil {
		return nil, err
	}
	return v, nil
}

// DecodeList decodes every row with decode, skipping and logging rows that
// fail instead of failing the whole list.
func DecodeList[T any](logger *slog.Logger, table string, rows []backend.Row, decode func(backend.Row) (*T, error)) []T {
	out := make([]T, 0, len(rows))
	for _, row := range rows {
		v, err := decode(row)
		if err != nil {
			if logger != nil {
				logger.Warn("skipping malformed row", "table", table, "id", row["id"], "error", err)
			}
			continue
		}
		out = append(out, *v)
	}
	return out
}

// Timestamp formats t the way rows carry timestamps.
func Timestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}
