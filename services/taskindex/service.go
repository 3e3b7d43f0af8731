package taskindex

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"trackup/models"

	"github.com/lithammer/fuzzysearch/fuzzy"
)

// Index finds tasks by free-text description.
type Index interface {
	Index(ctx context.Context, task *models.Task) error
	Remove(ctx context.Context, taskID string) error
	// Search returns matching task IDs, best match first.
	Search(ctx context.Context, query string, limit int) ([]string, error)
}

type TaskLister interface {
	GetTasks(ctx context.Context, assignee string) ([]*models.Task, error)
}

// FuzzyIndex matches query terms against live task titles. It keeps no state
// of its own, so Index and Remove are no-ops.
type FuzzyIndex struct {
	tasks TaskLister
}

func NewFuzzyIndex(tasks TaskLister) *FuzzyIndex {
	return &FuzzyIndex{tasks: tasks}
}

func (f *FuzzyIndex) Index(ctx context.Context, task *models.Task) error { return nil }

func (f *FuzzyIndex) Remove(ctx context.Context, taskID string) error { return nil }

func (f *FuzzyIndex) Search(ctx context.Context, query string, limit int) ([]string, error) {
	tasks, err := f.tasks.GetTasks(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks for search: %w", err)
	}

	terms := strings.Fields(strings.ToLower(query))
	if len(terms) == 0 {
		return nil, nil
	}

	type hit struct {
		id    string
		score int
	}

	var hits []hit
	for _, task := range tasks {
		if score := matchScore(task.Title, terms); score > 0 {
			hits = append(hits, hit{id: task.ID, score: score})
		}
	}

	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].score > hits[j].score
	})

	if limit > 0 && len(hits) > limit {
		hits = hits[:limit]
	}

	ids := make([]string, len(hits))
	for i, h := range hits {
		ids[i] = h.id
	}
	return ids, nil
}

// matchScore counts how many query terms match the title, either as a fuzzy
// subsequence of a single word or of the whole title.
func matchScore(title string, terms []string) int {
	var words []string
	for _, word := range strings.Fields(strings.ToLower(title)) {
		if clean := strings.Trim(word, ".,!?;:()[]{}\"'"); clean != "" {
			words = append(words, clean)
		}
	}

	score := 0
	for _, term := range terms {
		if len(fuzzy.FindFold(term, words)) > 0 || (len(term) > 2 && fuzzy.MatchFold(term, title)) {
			score++
		}
	}
	return score
}
