package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestInbox_PrependIsNewestFirst(t *testing.T) {
	var in Inbox
	in = in.Prepend(Notification{ID: "a", CreatedAt: time.Unix(1, 0)})
	in = in.Prepend(Notification{ID: "b", CreatedAt: time.Unix(2, 0)})

	assert.Equal(t, "b", in.Items[0].ID)
	assert.Equal(t, 2, in.Unread)
	assert.Equal(t, in.CountUnread(), in.Unread)
}

func TestInbox_MarkReadTwiceNeverGoesNegative(t *testing.T) {
	in := Inbox{}.Prepend(Notification{ID: "a"})

	in, changed := in.MarkRead("a")
	assert.True(t, changed)
	assert.Equal(t, 0, in.Unread)
	assert.True(t, in.Items[0].Read)

	in, changed = in.MarkRead("a")
	assert.False(t, changed)
	assert.Equal(t, 0, in.Unread)

	_, changed = in.MarkRead("missing")
	assert.False(t, changed)
}

func TestInbox_MarkReadDoesNotAlias(t *testing.T) {
	before := Inbox{}.Prepend(Notification{ID: "a"})
	after, _ := before.MarkRead("a")

	assert.False(t, before.Items[0].Read)
	assert.True(t, after.Items[0].Read)
}

func TestInbox_MarkAllRead(t *testing.T) {
	in := Inbox{}.Prepend(Notification{ID: "a"}).Prepend(Notification{ID: "b"})
	in = in.MarkAllRead()

	assert.Equal(t, 0, in.Unread)
	assert.Equal(t, 0, in.CountUnread())
}
