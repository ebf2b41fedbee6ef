package realtime_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/goodaideas/goodaideas/internal/domain"
	"github.com/goodaideas/goodaideas/internal/realtime"
)

func msg(id string) domain.TeamMessage {
	return domain.TeamMessage{ID: id, TeamID: "t1", Content: "m" + id}
}

func TestMirror_ApplyDedupesByID(t *testing.T) {
	m := realtime.NewMirror(domain.TeamMessage.Key)

	assert.True(t, m.Apply(msg("1")))
	assert.False(t, m.Apply(msg("1")))
	assert.True(t, m.Apply(msg("2")))
	assert.False(t, m.Apply(msg("1")))

	assert.Equal(t, []domain.TeamMessage{msg("1"), msg("2")}, m.Items())
}

func TestMirror_SeedKeepsLiveArrivals(t *testing.T) {
	m := realtime.NewMirror(domain.TeamMessage.Key)
	m.Apply(msg("3"))
	m.Apply(msg("4"))

	m.Seed([]domain.TeamMessage{msg("1"), msg("2"), msg("3")})

	assert.Equal(t, []domain.TeamMessage{msg("1"), msg("2"), msg("3"), msg("4")}, m.Items())
	assert.False(t, m.Apply(msg("2")))
}

func TestMirror_OnChangeAndReset(t *testing.T) {
	m := realtime.NewMirror(domain.TeamMessage.Key)
	var lens []int
	m.OnChange(func(items []domain.TeamMessage) { lens = append(lens, len(items)) })

	m.Apply(msg("1"))
	m.Apply(msg("1"))
	m.Reset()
	m.Apply(msg("1"))

	assert.Equal(t, []int{1, 0, 1}, lens)
	assert.Equal(t, 1, m.Len())
}
