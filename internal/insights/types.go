// Package insights scans the combined analyses for cross-dimensional patterns,
// opportunities and risks, and ranks the pooled recommendations.
package insights

import (
	"github.com/keagan/reelscore/internal/adapters"
	"github.com/keagan/reelscore/internal/engagement"
	"github.com/keagan/reelscore/internal/media"
	"github.com/keagan/reelscore/internal/quality"
	"github.com/keagan/reelscore/internal/signals"
)

// Category classifies an insight
type Category string

const (
	Pattern     Category = "pattern"
	Opportunity Category = "opportunity"
	Risk        Category = "risk"
	Trigger     Category = "trigger"
	Advantage   Category = "advantage"
)

// Level grades impact and effort
type Level string

const (
	Low    Level = "low"
	Medium Level = "medium"
	High   Level = "high"
)

// RecCategory groups recommendations; declaration order is tie-break precedence
type RecCategory string

const (
	Technical  RecCategory = "technical"
	PlatformRC RecCategory = "platform"
	Content    RecCategory = "content"
	Audio      RecCategory = "audio"
	Visual     RecCategory = "visual"
	Engagement RecCategory = "engagement"
	RiskRC     RecCategory = "risk"
)

var precedence = map[RecCategory]int{
	Technical:  0,
	PlatformRC: 1,
	Content:    2,
	Audio:      3,
	Visual:     4,
	Engagement: 5,
	RiskRC:     6,
}

// Insight is one synthesized finding. Confidence holds severity for risks.
type Insight struct {
	Rule        string   `json:"rule"`
	Category    Category `json:"category"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Confidence  float64  `json:"confidence"`
	Impact      Level    `json:"impact"`
	Mitigation  string   `json:"mitigation,omitempty"`
}

// Recommendation is an actionable suggestion
type Recommendation struct {
	Category RecCategory `json:"category"`
	Text     string      `json:"text"`
	Impact   Level       `json:"impact"`
	Effort   Level       `json:"effort"`
	Priority int         `json:"priority"`
}

// Aggregate is the read-only view of every upstream analysis
type Aggregate struct {
	Metadata   media.VideoMetadata
	Quality    quality.Report
	Visual     adapters.Result[adapters.VisualSummary]
	Transcript adapters.Result[adapters.Transcript]
	Sentiment  adapters.Result[adapters.SentimentResult]
	Signals    signals.Signals
	Engagement engagement.Prediction
}

// Outcome is what a rule contributes
type Outcome struct {
	Insights        []Insight
	Recommendations []Recommendation
}

// Rule pairs a predicate with a builder. Build runs only when When holds.
type Rule struct {
	Name  string
	When  func(Aggregate) bool
	Build func(Aggregate) Outcome
}

// Synthesis is the synthesizer output
type Synthesis struct {
	Insights        []Insight        `json:"insights"`
	Recommendations []Recommendation `json:"recommendations"`
}
