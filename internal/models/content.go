package models

import (
	"fmt"
	"time"
)

// PostStatus represents an insight post's lifecycle state
type PostStatus string

const (
	PostDraft     PostStatus = "draft"
	PostScheduled PostStatus = "scheduled"
	PostPublished PostStatus = "published"
)

// ParsePostStatus validates and converts a string to a PostStatus
func ParsePostStatus(s string) (PostStatus, error) {
	switch p := PostStatus(s); p {
	case PostDraft, PostScheduled, PostPublished:
		return p, nil
	default:
		return "", fmt.Errorf("invalid post status: %q", s)
	}
}

// InsightPost is a content record scheduled for publication
type InsightPost struct {
	ID          int64      `json:"id" db:"id"`
	Title       string     `json:"title" db:"title"`
	Body        string     `json:"body" db:"body"` // markdown
	Status      PostStatus `json:"status" db:"status"`
	Channels    []string   `json:"channels"` // newsletter, blog, linkedin
	ScheduledAt *time.Time `json:"scheduled_at,omitempty" db:"scheduled_at"`
	PublishedAt *time.Time `json:"published_at,omitempty" db:"published_at"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at" db:"updated_at"`
}

// Due reports whether a scheduled post should be published as of now
func (p *InsightPost) Due(now time.Time) bool {
	return p.Status == PostScheduled && p.ScheduledAt != nil && !p.ScheduledAt.After(now)
}
