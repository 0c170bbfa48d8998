// Package grouping buckets flat item lists under named group rows for the
// ports and node views.
//
// Each item has a display label. The label's leading word (its token) becomes
// the bucket when at least two items share it; otherwise the full label does.
// This keeps "api-gateway" and "api-worker" together under "api" while a lone
// "web-frontend" keeps its full name.
package grouping

import (
	"strings"
	"unicode"

	"github.com/arch-ai/spark/internal/models"
)

type bucket struct {
	name  string
	items []int
}

// Group partitions the indices 0..n-1 using label(i). Groups appear in order
// of first occurrence and items keep their relative order. Every index is
// emitted exactly once.
func Group(n int, label func(i int) string) []models.GroupedRow {
	if n <= 0 {
		return nil
	}

	labels := make([]string, n)
	tokens := make([]string, n)
	tokenKeys := make([]string, n)
	tokenCounts := make(map[string]int, n)
	for i := 0; i < n; i++ {
		labels[i] = strings.TrimSpace(label(i))
		tokens[i] = Token(labels[i])
		tokenKeys[i] = strings.ToLower(tokens[i])
		if tokenKeys[i] != "" {
			tokenCounts[tokenKeys[i]]++
		}
	}

	var buckets []*bucket
	byKey := make(map[string]*bucket)
	for i := 0; i < n; i++ {
		key, name := "label::"+strings.ToLower(labels[i]), labels[i]
		if tokenKeys[i] != "" && tokenCounts[tokenKeys[i]] > 1 {
			key, name = "token::"+tokenKeys[i], tokens[i]
		}
		b, ok := byKey[key]
		if !ok {
			b = &bucket{name: name}
			byKey[key] = b
			buckets = append(buckets, b)
		}
		b.items = append(b.items, i)
	}

	rows := make([]models.GroupedRow, 0, n+len(buckets))
	for _, b := range buckets {
		rows = append(rows, models.GroupedRow{Kind: models.RowGroup, Name: b.name, Count: len(b.items)})
		for _, idx := range b.items {
			rows = append(rows, models.GroupedRow{Kind: models.RowItem, Index: idx})
		}
	}
	return rows
}

// Token returns the leading word of label, ending at the first whitespace or
// one of '|', ':', '-', '_'. An empty leading word yields the whole label.
func Token(label string) string {
	trimmed := strings.TrimSpace(label)
	end := strings.IndexFunc(trimmed, func(r rune) bool {
		return unicode.IsSpace(r) || r == '|' || r == ':' || r == '-' || r == '_'
	})
	if end < 0 {
		return trimmed
	}
	if token := strings.TrimSpace(trimmed[:end]); token != "" {
		return token
	}
	return trimmed
}
