package repository

import (
	"context"
	"fmt"
	"strings"

	"kidquest/internal/database"
)

// BadWordRepository looks up words in the content filter
type BadWordRepository struct {
	db database.DBTX
}

// NewBadWordRepository creates a new bad word repository
func NewBadWordRepository(db database.DBTX) *BadWordRepository {
	return &BadWordRepository{db: db}
}

// lookupBatch keeps IN lists under SQLite's bound parameter limit
const lookupBatch = 500

// FindBadWords returns the subset of candidates present in the filter
func (r *BadWordRepository) FindBadWords(ctx context.Context, candidates []string) ([]string, error) {
	var found []string
	for start := 0; start < len(candidates); start += lookupBatch {
		end := start + lookupBatch
		if end > len(candidates) {
			end = len(candidates)
		}
		batch, err := r.findBatch(ctx, candidates[start:end])
		if err != nil {
			return nil, err
		}
		found = append(found, batch...)
	}
	return found, nil
}

func (r *BadWordRepository) findBatch(ctx context.Context, candidates []string) ([]string, error) {
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(candidates)), ", ")
	args := make([]interface{}, len(candidates))
	for i, c := range candidates {
		args[i] = c
	}

	query := `SELECT word FROM bad_words WHERE word IN (` + placeholders + `)`
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to check bad words: %w", err)
	}
	defer rows.Close()

	var found []string
	for rows.Next() {
		var word string
		if err := rows.Scan(&word); err != nil {
			return nil, fmt.Errorf("failed to scan bad word: %w", err)
		}
		found = append(found, word)
	}
	return found, rows.Err()
}
