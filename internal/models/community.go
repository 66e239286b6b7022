package models

import "time"

// CommunityPost is a kid's post on the moderated feed
type CommunityPost struct {
	ID            int64      `json:"id"`
	UserID        int64      `json:"user_id"`
	PostType      string     `json:"post_type"`
	Title         string     `json:"title"`
	Content       string     `json:"content"`
	ImageURL      string     `json:"image_url"`
	Approved      bool       `json:"approved"`
	ApprovedBy    *int64     `json:"approved_by"`
	ApprovedAt    *time.Time `json:"approved_at"`
	CreatedAt     time.Time  `json:"created_at"`
	AuthorName    string     `json:"author_name,omitempty"`
	AuthorAvatar  string     `json:"author_avatar,omitempty"`
	ReactionCount int        `json:"reaction_count"`
}

// ReactionCount is the number of reactions with one emoji
type ReactionCount struct {
	Emoji string `json:"emoji"`
	Count int    `json:"count"`
}
