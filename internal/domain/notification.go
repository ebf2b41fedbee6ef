package domain

import (
	"slices"
	"time"
)

// NotificationType classifies an inbox entry.
type NotificationType string

// Notification types raised by the client.
const (
	NotifyInfo        NotificationType = "info"
	NotifySuccess     NotificationType = "success"
	NotifyWarning     NotificationType = "warning"
	NotifyError       NotificationType = "error"
	NotifyConnection  NotificationType = "connection"
	NotifyAchievement NotificationType = "achievement"
	NotifyChallenge   NotificationType = "challenge"
)

// Notification is one inbox entry.
type Notification struct {
	ID        string           `json:"id"`
	Type      NotificationType `json:"type"`
	Message   string           `json:"message"`
	Read      bool             `json:"read"`
	CreatedAt time.Time        `json:"createdAt"`
}

// Inbox is the newest-first list of notifications plus the unread count.
// Unread always equals the number of items with Read == false.
type Inbox struct {
	Items  []Notification `json:"items"`
	Unread int            `json:"unread"`
}

// Prepend returns a copy of the inbox with n at the front.
func (in Inbox) Prepend(n Notification) Inbox {
	items := make([]Notification, 0, len(in.Items)+1)
	items = append(items, n)
	items = append(items, in.Items...)

	unread := in.Unread
	if !n.Read {
		unread++
	}
	return Inbox{Items: items, Unread: unread}
}

// MarkRead returns a copy with the matching unread item marked read, and
// whether anything changed. Unknown or already-read ids change nothing.
func (in Inbox) MarkRead(id string) (Inbox, bool) {
	i := slices.IndexFunc(in.Items, func(n Notification) bool { return n.ID == id })
	if i < 0 || in.Items[i].Read {
		return in, false
	}

	items := slices.Clone(in.Items)
	items[i].Read = true
	return Inbox{Items: items, Unread: max(0, in.Unread-1)}, true
}

// MarkAllRead returns a copy with every item read.
func (in Inbox) MarkAllRead() Inbox {
	items := slices.Clone(in.Items)
	for i := range items {
		items[i].Read = true
	}
	return Inbox{Items: items}
}

// CountUnread recomputes the unread count from the items.
func (in Inbox) CountUnread() int {
	n := 0
	for _, item := range in.Items {
		if !item.Read {
			n++
		}
	}
	return n
}
