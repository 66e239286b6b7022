package database

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"
)

// BadWordsURL is the public word list the community filter is seeded from
const BadWordsURL = "https://raw.githubusercontent.com/LDNOOBW/List-of-Dirty-Naughty-Obscene-and-Otherwise-Bad-Words/refs/heads/master/en"

// SeedBadWords downloads the word list and stores it, unless the table is already populated
func (db *DB) SeedBadWords(ctx context.Context, client *http.Client, url string, logger *zap.Logger) error {
	var count int
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM bad_words").Scan(&count); err != nil {
		return fmt.Errorf("failed to check bad words count: %w", err)
	}

	if count > 0 {
		logger.Info("Bad words filter already populated", zap.Int("count", count))
		return nil
	}

	logger.Info("Downloading bad words list", zap.String("url", url))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to build bad words request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to download bad words list: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("bad status code from bad words URL: %d", resp.StatusCode)
	}

	words, err := readWordList(resp.Body)
	if err != nil {
		return err
	}

	added, err := db.InsertBadWords(ctx, words)
	if err != nil {
		return err
	}

	logger.Info("Bad words filter populated", zap.Int("count", added))
	return nil
}

// InsertBadWords stores words in one transaction, skipping ones already present
func (db *DB) InsertBadWords(ctx context.Context, words []string) (int, error) {
	added := 0
	err := db.InTx(ctx, func(tx *Tx) error {
		query := db.Dialect.InsertIgnore("INSERT INTO bad_words (word) VALUES (?)")
		for _, word := range words {
			result, err := tx.ExecContext(ctx, query, word)
			if err != nil {
				return fmt.Errorf("failed to insert bad word: %w", err)
			}
			if n, _ := result.RowsAffected(); n > 0 {
				added++
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return added, nil
}

func readWordList(r io.Reader) ([]string, error) {
	var words []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		word := strings.TrimSpace(strings.ToLower(scanner.Text()))
		if word == "" {
			continue
		}
		words = append(words, word)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading bad words: %w", err)
	}
	return words, nil
}
