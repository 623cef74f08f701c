package post

import "time"

// Post is a short community update published by a user.
type Post struct {
	ID          int64     `json:"id"`
	UserID      int64     `json:"user_id"`
	Username    string    `json:"username"`
	Content     string    `json:"content"`
	PublishedAt time.Time `json:"published_at"`
}
