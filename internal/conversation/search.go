package conversation

import (
	"sort"
	"strings"
)

// Relevance weights for the three searchable fields. Title matches
// dominate, tags come next, message content counts least.
const (
	titleWeight   = 2.0
	tagWeight     = 1.5
	contentWeight = 1.0
)

const defaultSearchLimit = 10

// Search ranks the owner's conversations against the query. Hard filters
// (date range, tags, cuisine, dietary) exclude non-matching conversations
// outright; the text query then scores the survivors. With a text query a
// conversation must score above zero to appear; without one every filter
// survivor scores 1.0. Results are sorted by descending relevance and
// paginated with offset/limit.
func (s *Store) Search(q SearchQuery) ([]SearchResult, error) {
	ids, err := s.IDs()
	if err != nil {
		return nil, err
	}

	terms := strings.Fields(strings.ToLower(q.Query))

	var results []SearchResult
	for _, id := range ids {
		c, err := s.Load(id)
		if err != nil {
			continue
		}
		if c.OwnerID != q.OwnerID {
			continue
		}
		if !matchesFilters(c, q) {
			continue
		}

		score, matching := scoreConversation(c, terms)
		if len(terms) > 0 && score <= 0 {
			continue
		}
		if len(terms) == 0 {
			score = 1.0
		}
		results = append(results, SearchResult{
			Conversation:     c,
			RelevanceScore:   score,
			MatchingMessages: matching,
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].RelevanceScore > results[j].RelevanceScore
	})

	limit := q.Limit
	if limit <= 0 {
		limit = defaultSearchLimit
	}
	if q.Offset >= len(results) {
		return nil, nil
	}
	results = results[q.Offset:]
	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// matchesFilters applies the hard constraints: date window plus non-empty
// intersection for each of tags, cuisine preferences, and dietary
// restrictions that the query specifies.
func matchesFilters(c *Conversation, q SearchQuery) bool {
	if q.DateFrom != nil && c.CreatedAt.Before(*q.DateFrom) {
		return false
	}
	if q.DateTo != nil && c.CreatedAt.After(*q.DateTo) {
		return false
	}
	if len(q.Tags) > 0 && !intersects(q.Tags, c.Metadata.Tags) {
		return false
	}
	if len(q.CuisinePreferences) > 0 && !intersects(q.CuisinePreferences, c.Metadata.CuisinePreferences) {
		return false
	}
	if len(q.DietaryRestrictions) > 0 && !intersects(q.DietaryRestrictions, c.Metadata.DietaryRestrictions) {
		return false
	}
	return true
}

func intersects(want, have []string) bool {
	for _, w := range want {
		for _, h := range have {
			if strings.EqualFold(w, h) {
				return true
			}
		}
	}
	return false
}

// scoreConversation sums per-term field matches, weighted by field, then
// normalizes by the number of query terms. It also collects the ids of
// messages whose content matched any term.
func scoreConversation(c *Conversation, terms []string) (float64, []string) {
	if len(terms) == 0 {
		return 0, nil
	}

	title := strings.ToLower(c.Metadata.Title)
	tags := make([]string, len(c.Metadata.Tags))
	for i, t := range c.Metadata.Tags {
		tags[i] = strings.ToLower(t)
	}

	var score float64
	matched := make(map[string]bool)
	var matching []string

	for _, term := range terms {
		if strings.Contains(title, term) {
			score += titleWeight
		}
		for _, tag := range tags {
			if strings.Contains(tag, term) {
				score += tagWeight
				break
			}
		}
		for i := range c.Messages {
			m := &c.Messages[i]
			if strings.Contains(strings.ToLower(m.Content), term) {
				score += contentWeight
				if !matched[m.ID] {
					matched[m.ID] = true
					matching = append(matching, m.ID)
				}
			}
		}
	}

	return score / float64(len(terms)), matching
}
