package search

import (
	"math"
	"sort"
	"strings"
	"unicode"

	"github.com/pders01/feedagg/internal/storage"
)

// Engine ranks stored items without an external index. It is the fallback
// when no bleve index path is configured.
type Engine struct {
	store storage.Store
}

func NewEngine(store storage.Store) *Engine {
	return &Engine{store: store}
}

// Search scores every stored item that contains at least one query term.
func (e *Engine) Search(query string, limit int) ([]*Result, error) {
	terms := tokenize(query)
	if len(strings.TrimSpace(query)) < 2 || len(terms) == 0 {
		return []*Result{}, nil
	}

	feeds, err := e.store.ListFeeds(false)
	if err != nil {
		return nil, err
	}
	byID := make(map[int64]*storage.Feed, len(feeds))
	for _, f := range feeds {
		byID[f.ID] = f
	}

	seen := make(map[int64]bool)
	var results []*Result
	for _, term := range terms {
		items, err := e.store.QueryItems(storage.ItemQuery{Search: term})
		if err != nil {
			return nil, err
		}
		for _, item := range items {
			if seen[item.ID] {
				continue
			}
			seen[item.ID] = true
			if score := scoreItem(item, terms); score > 0 {
				results = append(results, &Result{Feed: byID[item.FeedID], Item: item, Score: score})
			}
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	if results == nil {
		results = []*Result{}
	}
	return results, nil
}

func scoreItem(item *storage.Item, terms []string) float64 {
	score := scoreField(item.Title, terms, 4.0) + scoreField(item.Summary, terms, 2.0)
	if item.Published != nil {
		score *= 1.05
	}
	return score
}

// scoreField weights whole-word hits over substring hits and rewards
// fields where several terms match.
func scoreField(text string, terms []string, weight float64) float64 {
	if text == "" {
		return 0
	}

	lower := strings.ToLower(text)
	words := tokenize(text)

	var score float64
	matched := 0
	for _, term := range terms {
		if strings.Contains(lower, term) {
			score += 2.0
			matched++
		}
		for _, w := range words {
			switch {
			case w == term:
				score += 1.5
				matched++
			case strings.HasPrefix(w, term) || strings.HasSuffix(w, term):
				score += 1.0
				matched++
			}
		}
	}
	if matched == 0 {
		return 0
	}

	if len(terms) > 1 && matched > 1 {
		score *= 1.0 + float64(matched)/float64(len(terms))
	}
	if len(words) > 0 {
		score *= 1.0 + math.Log(1.0+float64(matched)/float64(len(words)))
	}
	return score * weight
}

// tokenize lowercases text and splits it on anything that is not a letter
// or digit. Single-character tokens are dropped.
func tokenize(text string) []string {
	var terms []string
	var current strings.Builder

	flush := func() {
		if term := current.String(); len([]rune(term)) > 1 {
			terms = append(terms, term)
		}
		current.Reset()
	}
	for _, r := range text {
		if unicode.IsLetter(r) || unicode.IsNumber(r) {
			current.WriteRune(unicode.ToLower(r))
		} else if current.Len() > 0 {
			flush()
		}
	}
	flush()
	return terms
}
