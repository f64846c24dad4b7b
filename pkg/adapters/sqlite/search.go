package sqlite

import (
	"math"
	"regexp"
	"sort"
	"strings"

	"github.com/ritotombe/supportflow/pkg/domain"
)

const excerptLimit = 200

var tokenPattern = regexp.MustCompile(`[a-z0-9]+`)

// Article is a knowledge base entry.
type Article struct {
	ID        string
	AccountID string
	Title     string
	Content   string
	Tags      string
}

func tokens(s string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, t := range tokenPattern.FindAllString(strings.ToLower(s), -1) {
		set[t] = struct{}{}
	}
	return set
}

// OverlapScore is the share of distinct query tokens present in text, in [0,1].
func OverlapScore(text, query string) float64 {
	if text == "" || query == "" {
		return 0
	}
	q := tokens(query)
	if len(q) == 0 {
		return 0
	}
	t := tokens(text)
	hits := 0
	for tok := range q {
		if _, ok := t[tok]; ok {
			hits++
		}
	}
	return float64(hits) / float64(len(q))
}

// Rank scores articles against query and keeps the topK best with a positive score.
// Equal scores keep the articles' input order.
func Rank(articles []Article, query string, topK int, minConfidence float64) domain.SearchResult {
	scored := make([]domain.Snippet, 0, len(articles))
	for _, a := range articles {
		score := math.Max(OverlapScore(a.Title, query), OverlapScore(a.Content, query))
		if score <= 0 {
			continue
		}
		scored = append(scored, domain.Snippet{
			ID:      a.ID,
			Title:   a.Title,
			Excerpt: excerpt(a.Content),
			Score:   math.Round(score*1000) / 1000,
		})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})
	if topK >= 0 && len(scored) > topK {
		scored = scored[:topK]
	}

	best := 0.0
	if len(scored) > 0 {
		best = scored[0].Score
	}
	return domain.SearchResult{
		Results:        scored,
		BestScore:      best,
		MeetsThreshold: best >= minConfidence,
	}
}

func excerpt(content string) string {
	r := []rune(content)
	if len(r) <= excerptLimit {
		return content
	}
	return string(r[:excerptLimit]) + "..."
}
