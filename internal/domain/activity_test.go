package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestActivity_Summary(t *testing.T) {
	tests := []struct {
		typ     ActivityType
		content map[string]any
		want    string
	}{
		{ActivityComment, map[string]any{"idea_title": "Solar kettle"}, `commented on "Solar kettle"`},
		{ActivityLike, map[string]any{"idea_title": "Solar kettle"}, `liked "Solar kettle"`},
		{ActivityRating, map[string]any{"idea_title": "Solar kettle", "rating": float64(4)}, `rated "Solar kettle" 4 stars`},
		{ActivityFollow, map[string]any{"followed_user": "bob"}, "started following bob"},
		{ActivityAchievement, map[string]any{"achievement_title": "First Idea"}, `earned the "First Idea" achievement`},
		{ActivityIdea, map[string]any{"idea_title": "Focus timer"}, `shared a new idea: "Focus timer"`},
		{"poke", nil, "performed an action"},
	}

	for _, tt := range tests {
		t.Run(string(tt.typ), func(t *testing.T) {
			assert.Equal(t, tt.want, Activity{Type: tt.typ, Content: tt.content}.Summary())
		})
	}
}

func TestIdeaVersion_ChangeList(t *testing.T) {
	v := IdeaVersion{Changes: map[string]any{"title": "renamed", "description": "expanded"}}

	assert.Equal(t, []string{"description: expanded", "title: renamed"}, v.ChangeList())
	assert.Empty(t, IdeaVersion{}.ChangeList())
}
