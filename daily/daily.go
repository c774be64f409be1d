// Package daily stores one set of practice math questions per calendar day
// and generates the set on first request.
package daily

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

// DateLayout is the format of a set's date key.
const DateLayout = "2006-01-02"

// Level size bounds.
const (
	MinLevel1 = 40
	MinLevel2 = 8
	MinLevel3 = 8
	MaxLevel  = 200

	maxQuestion = 500
	maxAnswer   = 200
)

var (
	ErrNotFound    = errors.New("no daily set for this date")
	ErrInvalidDate = errors.New("date must be YYYY-MM-DD")
	ErrInvalidSet  = errors.New("invalid daily set")
)

type Item struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// Set is one day's questions, easiest level first.
type Set struct {
	Date   string `json:"date"`
	Level1 []Item `json:"level1"`
	Level2 []Item `json:"level2"`
	Level3 []Item `json:"level3"`
}

// Usage counts the tokens a remote generator spent on a set.
type Usage struct {
	InputTokens  int
	OutputTokens int
	TotalTokens  int
}

// Meta describes how and when a set was produced.
type Meta struct {
	Date         string  `json:"date"`
	CreatedAt    string  `json:"created_at"`
	Model        *string `json:"model"`
	InputTokens  *int    `json:"input_tokens"`
	OutputTokens *int    `json:"output_tokens"`
	TotalTokens  *int    `json:"total_tokens"`
}

// Result is what a Generator produced for a date.
type Result struct {
	Set   Set
	Model string
	Usage *Usage
}

// Generator produces a fresh set for a date.
type Generator interface {
	Generate(ctx context.Context, date string) (Result, error)
}

// ValidDate reports whether s is a real calendar date in DateLayout.
func ValidDate(s string) bool {
	_, err := time.Parse(DateLayout, s)
	return err == nil
}

// Validate checks level sizes, that every item is filled in and that no
// level repeats a question.
func (s *Set) Validate() error {
	if !ValidDate(s.Date) {
		return fmt.Errorf("%w: %w", ErrInvalidSet, ErrInvalidDate)
	}
	levels := []struct {
		name  string
		items []Item
		min   int
	}{
		{"level1", s.Level1, MinLevel1},
		{"level2", s.Level2, MinLevel2},
		{"level3", s.Level3, MinLevel3},
	}
	for _, l := range levels {
		if len(l.items) < l.min || len(l.items) > MaxLevel {
			return fmt.Errorf("%w: %s has %d questions, want %d-%d", ErrInvalidSet, l.name, len(l.items), l.min, MaxLevel)
		}
		seen := make(map[string]bool, len(l.items))
		for i, item := range l.items {
			q := strings.TrimSpace(item.Question)
			a := strings.TrimSpace(item.Answer)
			switch {
			case q == "" || a == "":
				return fmt.Errorf("%w: %s item %d is blank", ErrInvalidSet, l.name, i)
			case utf8.RuneCountInString(q) > maxQuestion || utf8.RuneCountInString(a) > maxAnswer:
				return fmt.Errorf("%w: %s item %d is too long", ErrInvalidSet, l.name, i)
			}
			key := strings.ToLower(q)
			if seen[key] {
				return fmt.Errorf("%w: %s contains duplicate questions", ErrInvalidSet, l.name)
			}
			seen[key] = true
		}
	}
	return nil
}
