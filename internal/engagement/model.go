// Package engagement predicts audience metrics and a viral score from the
// technical, visual and audio analyses with a multiplicative model.
package engagement

import (
	"github.com/keagan/reelscore/internal/adapters"
	"github.com/keagan/reelscore/internal/quality"
	"github.com/keagan/reelscore/internal/signals"
)

// DurationStep applies Multiplier to clips of at most MaxSeconds
type DurationStep struct {
	MaxSeconds int
	Multiplier float64
}

// ViralRule adjusts the viral score when Applies holds
type ViralRule struct {
	Reason  string
	Delta   int
	Applies func(Input) bool
}

// Model holds every constant of the prediction
type Model struct {
	BaseViews float64

	DurationSteps   []DurationStep
	DurationDefault float64

	// quality multiplier = max(QualityFloor, QualityCeiling - QualitySlope*(100-score))
	QualityCeiling float64
	QualitySlope   float64
	QualityFloor   float64

	SentimentMultipliers map[adapters.SentimentLabel]float64

	RichElementThreshold int
	RichElementBoost     float64
	ObjectThreshold      int
	ObjectBoost          float64

	AudienceBase    float64
	AudienceSpan    float64
	NarrativeSpan   float64
	BaseRate        float64
	LikeShare       float64
	CommentShare    float64
	ShareShare      float64
	ViralBase       int
	ViralMin        int
	ViralMax        int
	ViralRules      []ViralRule
	PlatformReach   map[quality.Platform]float64
	PlatformDefault float64
}

func hasEmotion(name string) func(Input) bool {
	return func(in Input) bool {
		for _, e := range in.VisualEmotions {
			if e == name {
				return true
			}
		}
		return false
	}
}

func hasTrigger(name string) func(Input) bool {
	return func(in Input) bool {
		for _, t := range in.Triggers {
			if t == name {
				return true
			}
		}
		return false
	}
}

// DefaultModel is the calibrated heuristic model
var DefaultModel = Model{
	BaseViews: 1000,

	DurationSteps: []DurationStep{
		{MaxSeconds: 30, Multiplier: 1.8},
		{MaxSeconds: 60, Multiplier: 1.5},
		{MaxSeconds: 180, Multiplier: 1.2},
		{MaxSeconds: 600, Multiplier: 1.0},
	},
	DurationDefault: 0.7,

	QualityCeiling: 1.4,
	QualitySlope:   0.0144,
	QualityFloor:   0.8,

	SentimentMultipliers: map[adapters.SentimentLabel]float64{
		adapters.Positive: 1.3,
		adapters.Neutral:  1.0,
		adapters.Negative: 0.7,
	},

	RichElementThreshold: 3,
	RichElementBoost:     1.3,
	ObjectThreshold:      5,
	ObjectBoost:          1.2,

	AudienceBase:  0.9,
	AudienceSpan:  0.4,
	NarrativeSpan: 0.25,

	BaseRate:     0.06,
	LikeShare:    0.6,
	CommentShare: 0.15,
	ShareShare:   0.25,

	ViralBase: 50,
	ViralMin:  1,
	ViralMax:  100,
	ViralRules: []ViralRule{
		{"duration in the 15-60s sweet spot", 15, func(in Input) bool {
			return in.Metadata.DurationSeconds >= 15 && in.Metadata.DurationSeconds <= 60
		}},
		{"positive sentiment", 10, func(in Input) bool { return in.Sentiment.Label == adapters.Positive }},
		{"high sentiment confidence", 10, func(in Input) bool { return in.Sentiment.Confidence > 0.8 }},
		{"surprise in visuals", 15, hasEmotion("surprise")},
		{"joy in visuals", 10, hasEmotion("joy")},
		{"curiosity trigger", 20, hasTrigger(signals.TriggerCuriosity)},
		{"urgency trigger", 15, hasTrigger(signals.TriggerUrgency)},
		{"social proof trigger", 15, hasTrigger(signals.TriggerSocialProof)},
		{"controversy trigger", 15, hasTrigger(signals.TriggerControversy)},
		{"duration over 5 minutes", -15, func(in Input) bool { return in.Metadata.DurationSeconds > 300 }},
		{"negative sentiment", -10, func(in Input) bool { return in.Sentiment.Label == adapters.Negative }},
		{"width under 720px", -10, func(in Input) bool { return in.Metadata.Width < 720 }},
	},

	PlatformReach: map[quality.Platform]float64{
		quality.YouTube:   1.0,
		quality.TikTok:    1.5,
		quality.Instagram: 1.2,
		quality.Facebook:  0.8,
	},
	PlatformDefault: 1.0,
}
