package domain

import "time"

// Progress is a read-only summary of an aggregate.
type Progress struct {
	Model             string           `json:"model"`
	TotalKeywords     int              `json:"total_keywords"`
	CompletedKeywords int              `json:"completed_keywords"`
	Items             int              `json:"items"`
	CategoriesDone    map[Category]int `json:"categories_done"`
	LastUpdated       time.Time        `json:"last_updated"`
}

// Progress computes the current summary. Completed keywords are recounted, not read from Meta.
func (a *Aggregate) Progress() Progress {
	done := make(map[Category]int, len(Categories()))
	for _, c := range Categories() {
		done[c] = 0
	}
	for _, it := range a.Items {
		for _, c := range Categories() {
			if it.CategoryDone(c) {
				done[c]++
			}
		}
	}
	return Progress{
		Model:             a.Meta.Model,
		TotalKeywords:     a.Meta.TotalKeywords,
		CompletedKeywords: a.RecomputeCompletedKeywords(),
		Items:             len(a.Items),
		CategoriesDone:    done,
		LastUpdated:       a.Meta.LastUpdated,
	}
}
