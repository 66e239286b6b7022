package models

import (
	"encoding/json"
	"time"
)

// Activity is an append-only log entry of something a user did
type Activity struct {
	ID           int64           `json:"id"`
	UserID       int64           `json:"user_id"`
	ActivityType string          `json:"activity_type"`
	ActivityName string          `json:"activity_name"`
	Details      json.RawMessage `json:"details"`
	Timestamp    time.Time       `json:"timestamp"`
}
