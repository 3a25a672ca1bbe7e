package domain

import (
	"bytes"
	"encoding/json"
	"slices"
	"time"
)

// Timestamp layouts accepted for meta.last_updated. Zone-less values are UTC.
var lastUpdatedLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
}

// QueriesPerCategory is the exact size of a completed QuerySet.
const QueriesPerCategory = 10

// QuerySet is the validated list of unique search queries for one keyword/category pair.
type QuerySet []string

// Complete reports whether the set holds exactly QueriesPerCategory queries.
func (qs QuerySet) Complete() bool {
	return len(qs) == QueriesPerCategory
}

// CategorySet maps categories to their query sets.
// JSON keys are written in Categories() order, followed by unknown keys sorted.
type CategorySet map[Category]QuerySet

// MarshalJSON keeps the fixed category order so saved files diff cleanly.
func (cs CategorySet) MarshalJSON() ([]byte, error) {
	keys := make([]Category, 0, len(cs))
	for _, c := range Categories() {
		if _, ok := cs[c]; ok {
			keys = append(keys, c)
		}
	}
	var extra []Category
	for c := range cs {
		if !c.Valid() {
			extra = append(extra, c)
		}
	}
	slices.Sort(extra)
	keys = append(keys, extra...)

	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, c := range keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := marshalNoEscape(string(c))
		if err != nil {
			return nil, err
		}
		v, err := marshalNoEscape(cs[c])
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON never fails: a malformed categories value decodes to an empty set
// and entries that are not string lists are dropped.
func (cs *CategorySet) UnmarshalJSON(data []byte) error {
	set := make(CategorySet)
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		*cs = set
		return nil
	}
	for k, v := range raw {
		var qs QuerySet
		if err := json.Unmarshal(v, &qs); err != nil || qs == nil {
			continue
		}
		set[Category(k)] = qs
	}
	*cs = set
	return nil
}

func marshalNoEscape(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// Item is one keyword and its accumulated query sets.
type Item struct {
	Keyword    string      `json:"keyword"`
	Categories CategorySet `json:"categories"`
}

// CategoryDone reports whether the category holds a complete QuerySet.
func (it *Item) CategoryDone(c Category) bool {
	qs, ok := it.Categories[c]
	return ok && qs.Complete()
}

// Done reports whether all fixed categories are complete.
func (it *Item) Done() bool {
	for _, c := range Categories() {
		if !it.CategoryDone(c) {
			return false
		}
	}
	return true
}

// Install stores a query set for the category. The slice is copied.
func (it *Item) Install(c Category, qs QuerySet) {
	if it.Categories == nil {
		it.Categories = make(CategorySet)
	}
	it.Categories[c] = slices.Clone(qs)
}

// UnmarshalJSON keeps the keyword and categories of any object. A keyword that is
// not a string decodes to "" and Normalize drops the item.
func (it *Item) UnmarshalJSON(data []byte) error {
	var raw struct {
		Keyword    json.RawMessage `json:"keyword"`
		Categories CategorySet     `json:"categories"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		*it = Item{}
		return nil
	}
	var keyword string
	_ = json.Unmarshal(raw.Keyword, &keyword)
	*it = Item{Keyword: keyword, Categories: raw.Categories}
	return nil
}

// Meta is the aggregate header.
type Meta struct {
	Model             string    `json:"model"`
	TotalKeywords     int       `json:"total_keywords"`
	CompletedKeywords int       `json:"completed_keywords"`
	LastUpdated       time.Time `json:"last_updated"`
}

// UnmarshalJSON never fails. Fields of an unexpected type decode to their zero value,
// counts may be any JSON number and last_updated may lack a zone.
// Every save recomputes the counts and restamps last_updated.
func (m *Meta) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		*m = Meta{}
		return nil
	}
	var out Meta
	_ = json.Unmarshal(raw["model"], &out.Model)
	out.TotalKeywords = lenientInt(raw["total_keywords"])
	out.CompletedKeywords = lenientInt(raw["completed_keywords"])
	out.LastUpdated = lenientTime(raw["last_updated"])
	*m = out
	return nil
}

func lenientInt(data json.RawMessage) int {
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return 0
	}
	f, err := n.Float64()
	if err != nil || f < 0 {
		return 0
	}
	return int(f)
}

func lenientTime(data json.RawMessage) time.Time {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return time.Time{}
	}
	for _, layout := range lastUpdatedLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}

// Aggregate is the full persisted dataset: metadata plus items unique by keyword.
type Aggregate struct {
	Meta  Meta    `json:"meta"`
	Items []*Item `json:"items"`
}

// NewAggregate returns an empty aggregate stamped with now in UTC.
func NewAggregate(model string, now time.Time) *Aggregate {
	return &Aggregate{
		Meta: Meta{
			Model:       model,
			LastUpdated: now.UTC(),
		},
		Items: []*Item{},
	}
}

// Normalize repairs a decoded aggregate: nil and keyword-less items are dropped and
// missing categories become empty sets.
func (a *Aggregate) Normalize() {
	items := make([]*Item, 0, len(a.Items))
	for _, it := range a.Items {
		if it == nil || it.Keyword == "" {
			continue
		}
		if it.Categories == nil {
			it.Categories = make(CategorySet)
		}
		items = append(items, it)
	}
	a.Items = items
}

// Find returns the item for keyword or nil. Lookup is case-sensitive.
func (a *Aggregate) Find(keyword string) *Item {
	for _, it := range a.Items {
		if it.Keyword == keyword {
			return it
		}
	}
	return nil
}

// HasKeyword reports whether an item exists for keyword.
func (a *Aggregate) HasKeyword(keyword string) bool {
	return a.Find(keyword) != nil
}

// EnsureItem returns the item for keyword, appending an empty one on first encounter.
func (a *Aggregate) EnsureItem(keyword string) *Item {
	it := a.Find(keyword)
	if it == nil {
		it = &Item{Keyword: keyword}
		a.Items = append(a.Items, it)
	}
	if it.Categories == nil {
		it.Categories = make(CategorySet)
	}
	return it
}

// RecomputeCompletedKeywords counts items with every fixed category complete.
func (a *Aggregate) RecomputeCompletedKeywords() int {
	n := 0
	for _, it := range a.Items {
		if it.Done() {
			n++
		}
	}
	return n
}

// Touch refreshes completed_keywords and last_updated.
func (a *Aggregate) Touch(now time.Time) {
	a.Meta.CompletedKeywords = a.RecomputeCompletedKeywords()
	a.Meta.LastUpdated = now.UTC()
}
