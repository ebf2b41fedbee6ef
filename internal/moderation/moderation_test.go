package moderation_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainerrors "github.com/goodaideas/goodaideas/internal/errors"
	"github.com/goodaideas/goodaideas/internal/moderation"
)

func TestCheck(t *testing.T) {
	m := moderation.New("spam")

	assert.NoError(t, m.Check("A tidy idea"))
	assert.ErrorIs(t, m.Check("This is OFFENSIVE"), domainerrors.ErrValidation)
	assert.EqualError(t, m.Check("buy spam now"), "Content may be inappropriate")
}

func TestClean(t *testing.T) {
	m := moderation.New()

	got, err := m.Clean(`<script>alert(1)</script><b>Tom</b> &amp; Jerry`)
	require.NoError(t, err)
	assert.Equal(t, "Tom & Jerry", got)

	_, err = m.Clean("<i></i>  ")
	assert.ErrorIs(t, err, domainerrors.ErrValidation)

	_, err = m.Clean("inappropriate")
	assert.ErrorIs(t, err, moderation.ErrFlagged)
}

func TestRich(t *testing.T) {
	m := moderation.New()

	got := m.Rich(`<p onclick="x()">Hi <a href="https://example.com">there</a><script>bad()</script></p>`)
	assert.NotContains(t, got, "script")
	assert.NotContains(t, got, "onclick")
	assert.Contains(t, got, `href="https://example.com"`)
	assert.Contains(t, got, "noopener")
	assert.Contains(t, got, "noreferrer")
}

func TestToMarkdown(t *testing.T) {
	assert.Equal(t, "plain text", moderation.ToMarkdown("plain text"))
	assert.Equal(t, "**bold** move", moderation.ToMarkdown("<p><strong>bold</strong> move</p>"))
}

func TestShareText(t *testing.T) {
	s := moderation.ShareText("Focus timer", "<p>Work in <em>sprints</em></p>", "https://goodaideas.app/ideas/1")

	assert.Equal(t, `Check out "Focus timer" - Work in *sprints*`, s.Text)
	assert.Contains(t, s.Markdown, "**Focus timer**")
	assert.Contains(t, s.Twitter, "https://twitter.com/intent/tweet?text=Check+out")
	assert.Contains(t, s.Facebook, "u=https%3A%2F%2Fgoodaideas.app%2Fideas%2F1")
	assert.Contains(t, s.LinkedIn, "share-offsite")

	bare := moderation.ShareText("Solo", "", "https://x.test")
	assert.Equal(t, `Check out "Solo"`, bare.Text)
	assert.Equal(t, "https://x.test", bare.URL)
}
