package models

import "time"

// ProgressRecord is a user's mastery of one (subject, topic)
type ProgressRecord struct {
	ID          int64      `json:"id"`
	UserID      int64      `json:"user_id"`
	Subject     string     `json:"subject"`
	Topic       string     `json:"topic"`
	Score       int        `json:"score"`
	Stars       int        `json:"stars"`
	Completed   bool       `json:"completed"`
	CompletedAt *time.Time `json:"completed_at"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// Badge is an achievement derived from completed topics
type Badge struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	BadgeName string    `json:"badge_name"`
	BadgeType string    `json:"badge_type"`
	EarnedAt  time.Time `json:"earned_at"`
}

// ProgressStats aggregates a user's progress records and badges
type ProgressStats struct {
	TotalStars      int `json:"totalStars"`
	CompletedTopics int `json:"completedTopics"`
	TotalBadges     int `json:"totalBadges"`
}

// KidProgressStats adds the lesson count the parent dashboard shows
type KidProgressStats struct {
	ProgressStats
	CompletedLessons int `json:"completedLessons"`
}

// ProgressBundle is everything a viewer gets for one user's progress
type ProgressBundle struct {
	Progress []ProgressRecord `json:"progress"`
	Badges   []Badge          `json:"badges"`
	Stats    ProgressStats    `json:"stats"`
}

// KidProgress is the parent's view of a linked kid
type KidProgress struct {
	Progress   []ProgressRecord `json:"progress"`
	Badges     []Badge          `json:"badges"`
	Activities []Activity       `json:"activities"`
	Stats      KidProgressStats `json:"stats"`
}

// ChildSummary is one row of the parent/teacher dashboard
type ChildSummary struct {
	ID              int64  `json:"id"`
	Name            string `json:"name"`
	Email           string `json:"email"`
	Avatar          string `json:"avatar"`
	TotalActivities int    `json:"total_activities"`
	TotalStars      int    `json:"total_stars"`
	TotalBadges     int    `json:"total_badges"`
}

// ComputeStats derives the summary numbers from already loaded rows
func ComputeStats(progress []ProgressRecord, badges []Badge) ProgressStats {
	stats := ProgressStats{TotalBadges: len(badges)}
	for _, p := range progress {
		stats.TotalStars += p.Stars
		if p.Completed {
			stats.CompletedTopics++
		}
	}
	return stats
}

// ProgressUpdate is the result of recording progress.
// Badge is nil when the update did not earn one.
type ProgressUpdate struct {
	Progress *ProgressRecord `json:"progress"`
	Badge    *Badge          `json:"badge"`
}
