package search

import (
	"context"
	"sort"
	"strings"
	"time"
	"unicode"

	porterstemmer "github.com/blevesearch/go-porterstemmer"

	"github.com/kailas-cloud/drillscout/internal/cache"
	"github.com/kailas-cloud/drillscout/internal/domain/drill"
	"github.com/kailas-cloud/drillscout/internal/domain/search/result"
)

// DefaultStrongTextScore is the lexical score from which text hits are returned without vector search.
const DefaultStrongTextScore = 2.0

// Lexical weights. Occurrences count at most maxOccurrences per stem and field.
const (
	titleWeight       = 2
	descriptionWeight = 1
	phraseBonus       = 1
	maxOccurrences    = 2
)

var stopWords = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "are": {}, "as": {}, "at": {}, "be": {}, "by": {},
	"for": {}, "from": {}, "how": {}, "i": {}, "in": {}, "is": {}, "it": {}, "my": {},
	"of": {}, "on": {}, "or": {}, "the": {}, "this": {}, "to": {}, "with": {}, "your": {},
}

// TextQuery selects drills lexically. An empty Text lists the category.
type TextQuery struct {
	CategoryID string
	Text       string
	// MinScore drops hits scoring below it. Ignored for listings.
	MinScore float64
}

// TextSearch scores drills by term overlap with title and description.
type TextSearch struct {
	rows rowLoader
}

// NewTextSearch creates the lexical stage reading through the listing cache.
func NewTextSearch(catalog Catalog, listing *cache.TTL[[]drill.Drill], timeout time.Duration) *TextSearch {
	return &TextSearch{rows: newRowLoader(CacheListing, listing, catalog.ListDrills, timeout)}
}

// Search returns one page of matches and the full match count.
func (t *TextSearch) Search(ctx context.Context, q TextQuery, skip, limit int) (result.Page, error) {
	rows, err := t.rows.load(ctx, q.CategoryID)
	if err != nil {
		return result.Page{}, err
	}

	stems := queryStems(q.Text)
	if len(stems) == 0 && strings.TrimSpace(q.Text) == "" {
		hits := make([]result.Hit, len(rows))
		for i := range rows {
			hits[i] = result.Hit{Drill: rows[i]}
		}
		return result.Page{Hits: result.Window(hits, skip, limit), Total: len(hits)}, nil
	}

	phrase := normalizePhrase(q.Text)
	var hits []result.Hit
	for i := range rows {
		score := lexicalScore(&rows[i], stems, phrase)
		if score <= 0 || score < q.MinScore {
			continue
		}
		hits = append(hits, result.Hit{Drill: rows[i], Score: score})
	}

	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		ti, tj := hits[i].Drill.CreatedAt(), hits[j].Drill.CreatedAt()
		if !ti.Equal(tj) {
			return ti.After(tj)
		}
		return hits[i].Drill.ID() < hits[j].Drill.ID()
	})

	return result.Page{Hits: result.Window(hits, skip, limit), Total: len(hits)}, nil
}

func lexicalScore(d *drill.Drill, stems []string, phrase string) float64 {
	if len(stems) == 0 {
		return 0
	}
	title := stemCounts(d.Title())
	desc := stemCounts(d.Description())

	score := 0
	for _, s := range stems {
		score += titleWeight*min(title[s], maxOccurrences) + descriptionWeight*min(desc[s], maxOccurrences)
	}
	if score > 0 && phrase != "" && strings.Contains(" "+normalizePhrase(d.Title())+" ", " "+phrase+" ") {
		score += phraseBonus
	}
	return float64(score)
}

// words lower-cases s and splits it on anything that is not a letter or digit.
func words(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

func stem(w string) string {
	return porterstemmer.StemString(w)
}

// queryStems returns the distinct non-stop-word stems of the query, in order.
func queryStems(text string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, w := range words(text) {
		if _, stop := stopWords[w]; stop {
			continue
		}
		s := stem(w)
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

func stemCounts(text string) map[string]int {
	counts := make(map[string]int)
	for _, w := range words(text) {
		if _, stop := stopWords[w]; stop {
			continue
		}
		counts[stem(w)]++
	}
	return counts
}

func normalizePhrase(s string) string {
	return strings.Join(words(s), " ")
}
