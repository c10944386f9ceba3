package insights

import (
	"sort"
)

// MaxRecommendations caps the ranked list
const MaxRecommendations = 8

var levelWeight = map[Level]int{High: 3, Medium: 2, Low: 1}

// Priority ranks high impact and low effort first
func Priority(impact, effort Level) int {
	ease := 1
	if w, ok := levelWeight[effort]; ok {
		ease = 4 - w
	}
	return levelWeight[impact]*10 + ease*5
}

// Synthesize evaluates rules against agg and ranks the pooled
// recommendations. It never fails; a rule that panics is skipped.
func Synthesize(agg Aggregate, rules []Rule) Synthesis {
	out := Synthesis{
		Insights:        []Insight{},
		Recommendations: []Recommendation{},
	}

	pool := baseRecommendations(agg)
	for _, rule := range rules {
		o, ok := evaluate(rule, agg)
		if !ok {
			continue
		}
		for _, in := range o.Insights {
			in.Rule = rule.Name
			out.Insights = append(out.Insights, in)
		}
		pool = append(pool, o.Recommendations...)
	}

	out.Recommendations = Rank(pool, MaxRecommendations)
	return out
}

func evaluate(rule Rule, agg Aggregate) (o Outcome, ok bool) {
	defer func() {
		if recover() != nil {
			o, ok = Outcome{}, false
		}
	}()
	if rule.When == nil || rule.Build == nil || !rule.When(agg) {
		return Outcome{}, false
	}
	return rule.Build(agg), true
}

// Rank scores, dedupes and orders recommendations, keeping the first limit.
// Ties fall back to category precedence, then insertion order.
func Rank(recs []Recommendation, limit int) []Recommendation {
	seen := make(map[string]bool, len(recs))
	ranked := make([]Recommendation, 0, len(recs))
	for _, r := range recs {
		if r.Text == "" || seen[r.Text] {
			continue
		}
		seen[r.Text] = true
		r.Priority = Priority(r.Impact, r.Effort)
		ranked = append(ranked, r)
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Priority != ranked[j].Priority {
			return ranked[i].Priority > ranked[j].Priority
		}
		return categoryRank(ranked[i].Category) < categoryRank(ranked[j].Category)
	})

	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked
}

func categoryRank(c RecCategory) int {
	if r, ok := precedence[c]; ok {
		return r
	}
	return len(precedence)
}
