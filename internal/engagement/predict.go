package engagement

import (
	"math"

	"github.com/keagan/reelscore/internal/adapters"
	"github.com/keagan/reelscore/internal/media"
	"github.com/keagan/reelscore/internal/quality"
	"github.com/keagan/reelscore/internal/signals"
	"github.com/keagan/reelscore/pkg/util"
)

// Input gathers what the model reads. Audience and narrative are optional.
type Input struct {
	Metadata            media.VideoMetadata
	Quality             quality.Report
	Sentiment           adapters.SentimentResult
	VisualEmotions      []string
	DistinctElements    int
	ObjectCount         int
	Triggers            []string
	AudienceSpecificity *float64
	NarrativeRichness   *float64
}

// NewInput assembles model input from the upstream analyses
func NewInput(meta media.VideoMetadata, report quality.Report, visual adapters.Result[adapters.VisualSummary], sentiment adapters.Result[adapters.SentimentResult], sig signals.Signals) Input {
	in := Input{
		Metadata:            meta,
		Quality:             report,
		Sentiment:           sentiment.Value,
		DistinctElements:    sig.DistinctElements,
		ObjectCount:         sig.ObjectCount,
		AudienceSpecificity: sig.AudienceSpecificity,
		NarrativeRichness:   sig.NarrativeRichness,
	}
	if !visual.Fallback {
		in.VisualEmotions = visual.Value.Emotions
	}
	for _, t := range sig.Triggers {
		in.Triggers = append(in.Triggers, t.Name)
	}
	return in
}

// Multipliers is the audit trail of the views product
type Multipliers struct {
	Duration  float64 `json:"duration"`
	Quality   float64 `json:"quality"`
	Sentiment float64 `json:"sentiment"`
	Visual    float64 `json:"visual"`
	Audience  float64 `json:"audience"`
	Narrative float64 `json:"narrative"`
}

// ViralFactor is one applied viral score adjustment
type ViralFactor struct {
	Reason string `json:"reason"`
	Delta  int    `json:"delta"`
}

// Metrics are predicted audience counts
type Metrics struct {
	Views    int64 `json:"views"`
	Likes    int64 `json:"likes"`
	Comments int64 `json:"comments"`
	Shares   int64 `json:"shares"`
}

// Prediction is the model output
type Prediction struct {
	PredictedViews        int64                        `json:"predicted_views"`
	PredictedLikes        int64                        `json:"predicted_likes"`
	PredictedComments     int64                        `json:"predicted_comments"`
	PredictedShares       int64                        `json:"predicted_shares"`
	EngagementRatePercent float64                      `json:"engagement_rate_percent"`
	ViralScore            int                          `json:"viral_score"`
	Multipliers           Multipliers                  `json:"multipliers"`
	ViralFactors          []ViralFactor                `json:"viral_factors"`
	PerPlatform           map[quality.Platform]Metrics `json:"per_platform"`
}

// Predict runs the default model
func Predict(in Input) Prediction {
	return DefaultModel.Predict(in)
}

// Predict computes the prediction. It is a pure function of in.
func (m Model) Predict(in Input) Prediction {
	mult := Multipliers{
		Duration:  m.durationMultiplier(in.Metadata.DurationSeconds),
		Quality:   m.QualityMultiplier(in.Quality.Resolution.Score),
		Sentiment: m.sentimentMultiplier(in.Sentiment.Label),
		Visual:    m.visualMultiplier(in.DistinctElements, in.ObjectCount),
		Audience:  1.0,
		Narrative: 1.0,
	}
	if in.AudienceSpecificity != nil {
		mult.Audience = m.AudienceBase + m.AudienceSpan*util.ClampFloat(*in.AudienceSpecificity, 0, 1)
	}
	if in.NarrativeRichness != nil {
		mult.Narrative = 1.0 + m.NarrativeSpan*util.ClampFloat(*in.NarrativeRichness, 0, 1)
	}

	views := math.Round(m.BaseViews * mult.Duration * mult.Quality * mult.Sentiment *
		mult.Visual * mult.Audience * mult.Narrative)
	rate := m.BaseRate * mult.Sentiment * mult.Narrative

	total := m.split(views, rate)
	p := Prediction{
		PredictedViews:        total.Views,
		PredictedLikes:        total.Likes,
		PredictedComments:     total.Comments,
		PredictedShares:       total.Shares,
		EngagementRatePercent: util.Round2(rate * 100),
		Multipliers:           mult,
		ViralFactors:          []ViralFactor{},
		PerPlatform:           make(map[quality.Platform]Metrics, len(in.Quality.Platforms)),
	}

	score := m.ViralBase
	for _, rule := range m.ViralRules {
		if rule.Applies(in) {
			score += rule.Delta
			p.ViralFactors = append(p.ViralFactors, ViralFactor{Reason: rule.Reason, Delta: rule.Delta})
		}
	}
	p.ViralScore = util.ClampInt(score, m.ViralMin, m.ViralMax)

	for _, fit := range in.Quality.Platforms {
		reach, ok := m.PlatformReach[fit.Platform]
		if !ok {
			reach = m.PlatformDefault
		}
		pv := math.Round(views * float64(fit.Score) / 100 * reach)
		p.PerPlatform[fit.Platform] = m.split(pv, rate)
	}

	return p
}

// QualityMultiplier maps the resolution score onto [QualityFloor, QualityCeiling]
func (m Model) QualityMultiplier(resolutionScore int) float64 {
	score := util.ClampInt(resolutionScore, 0, 100)
	return math.Max(m.QualityFloor, m.QualityCeiling-m.QualitySlope*float64(100-score))
}

func (m Model) durationMultiplier(seconds int) float64 {
	for _, step := range m.DurationSteps {
		if seconds <= step.MaxSeconds {
			return step.Multiplier
		}
	}
	return m.DurationDefault
}

func (m Model) sentimentMultiplier(label adapters.SentimentLabel) float64 {
	if v, ok := m.SentimentMultipliers[label]; ok {
		return v
	}
	return 1.0
}

func (m Model) visualMultiplier(distinct, objects int) float64 {
	switch {
	case distinct > m.RichElementThreshold:
		return m.RichElementBoost
	case objects > m.ObjectThreshold:
		return m.ObjectBoost
	default:
		return 1.0
	}
}

func (m Model) split(views, rate float64) Metrics {
	views = math.Max(0, views)
	return Metrics{
		Views:    int64(views),
		Likes:    int64(math.Round(views * rate * m.LikeShare)),
		Comments: int64(math.Round(views * rate * m.CommentShare)),
		Shares:   int64(math.Round(views * rate * m.ShareShare)),
	}
}
