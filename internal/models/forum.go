package models

import "time"

type Topic struct {
	ID           int64      `json:"id"`
	AuthorID     int64      `json:"author_id"`
	Title        string     `json:"title"`
	Category     string     `json:"category"`
	IsPinned     bool       `json:"is_pinned"`
	IsLocked     bool       `json:"is_locked"`
	RepliesCount int        `json:"replies_count"`
	ViewsCount   int        `json:"views_count"`
	LastReplyAt  *time.Time `json:"last_reply_at"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

type Post struct {
	ID          int64     `json:"id"`
	TopicID     int64     `json:"topic_id"`
	AuthorID    int64     `json:"author_id"`
	Body        string    `json:"body"`
	BodyHTML    string    `json:"body_html"`
	IsFirstPost bool      `json:"is_first_post"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type TopicDetail struct {
	Topic
	Posts []Post `json:"posts"`
}

const (
	ForumEventPostCreated  = "post_created"
	ForumEventPostDeleted  = "post_deleted"
	ForumEventTopicDeleted = "topic_deleted"
)

// ForumEvent is pushed to live subscribers of a topic.
type ForumEvent struct {
	Type    string `json:"type"`
	TopicID int64  `json:"topic_id"`
	PostID  int64  `json:"post_id,omitempty"`
	Post    *Post  `json:"post,omitempty"`
	Topic   *Topic `json:"topic,omitempty"`
}
