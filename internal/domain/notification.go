package domain

import "time"

// Notification is one entry of a user's inbox.
type Notification struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Link      string    `json:"link,omitempty"`
	Read      bool      `json:"read"`
	TaskID    *string   `json:"task_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Inbox is a page of notifications with its derived unread count.
type Inbox struct {
	Items               []Notification `json:"items"`
	UnreadCount         int            `json:"unread_count"`
	PollIntervalSeconds int            `json:"poll_interval_seconds"`
}

// NewInbox derives the unread count from the fetched page.
func NewInbox(items []Notification, pollSeconds int) *Inbox {
	unread := 0
	for _, n := range items {
		if !n.Read {
			unread++
		}
	}
	if items == nil {
		items = []Notification{}
	}
	return &Inbox{Items: items, UnreadCount: unread, PollIntervalSeconds: pollSeconds}
}
