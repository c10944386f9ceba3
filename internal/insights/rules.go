package insights

import (
	"fmt"
	"math"
	"strings"

	"github.com/keagan/reelscore/internal/adapters"
	"github.com/keagan/reelscore/internal/quality"
	"github.com/keagan/reelscore/internal/signals"
	"github.com/keagan/reelscore/pkg/util"
)

// Thresholds used by the default rules
const (
	ColorEnergyThreshold   = 55.0
	ColorPacingConfidence  = 0.72
	CognitiveLoadThreshold = 70
	DeadAirThreshold       = 0.3
	QuietAudioThresholdDB  = -30.0
	AdvantageThreshold     = 85
	CrossPostFitThreshold  = 80
	WeakMetricThreshold    = 70
	LowViralThreshold      = 50
)

var positiveVisualEmotions = []string{"joy", "surprise", "excitement", "happiness", "amusement", "awe"}
var negativeVisualEmotions = []string{"sadness", "anger", "fear", "disgust", "tension"}

// DefaultRules is the built-in rule set, evaluated in order
var DefaultRules = []Rule{
	{
		Name: "color_energy_slow_pacing",
		When: func(a Aggregate) bool {
			return a.Signals.ColorEnergyKnown && a.Signals.ColorEnergy >= ColorEnergyThreshold &&
				a.Signals.Pacing == signals.PacingSlow
		},
		Build: func(a Aggregate) Outcome {
			return Outcome{
				Insights: []Insight{{
					Category: Pattern,
					Title:    "Vivid colour with slow pacing",
					Description: fmt.Sprintf("Colour energy of %.0f with %.1f cuts per minute reads as cinematic but can lose scrollers early.",
						a.Signals.ColorEnergy, a.Signals.CutsPerMinute),
					Confidence: ColorPacingConfidence,
					Impact:     Medium,
				}},
				Recommendations: []Recommendation{{
					Category: Visual,
					Text:     "Tighten the opening seconds with quicker cuts to match the vivid grade",
					Impact:   Medium,
					Effort:   Low,
				}},
			}
		},
	},
	{
		Name: "emotional_alignment",
		When: func(a Aggregate) bool {
			return !a.Visual.Fallback && !a.Sentiment.Fallback && len(a.Visual.Value.Emotions) > 0
		},
		Build: emotionalAlignment,
	},
	{
		Name: "native_short_form",
		When: func(a Aggregate) bool {
			return a.Metadata.AspectRatio == 0.56 && a.Metadata.DurationSeconds <= 60
		},
		Build: func(a Aggregate) Outcome {
			return Outcome{Insights: []Insight{{
				Category:    Pattern,
				Title:       "Native short-form format",
				Description: fmt.Sprintf("Vertical 9:16 at %ds fits short-form feeds without reframing.", a.Metadata.DurationSeconds),
				Confidence:  0.8,
				Impact:      High,
			}}}
		},
	},
	{
		Name: "hook_window_expression",
		When: func(a Aggregate) bool { return len(a.Signals.HookExpressions) > 0 },
		Build: func(a Aggregate) Outcome {
			best := a.Signals.HookExpressions[0]
			for _, cue := range a.Signals.HookExpressions[1:] {
				if cue.Intensity > best.Intensity {
					best = cue
				}
			}
			return Outcome{
				Insights: []Insight{{
					Category: Opportunity,
					Title:    "Expressive moment inside the hook window",
					Description: fmt.Sprintf("A %s expression at %.1fs falls within the first %.0fs; lead with it or use it as the thumbnail.",
						best.Expression, best.TimestampSeconds, a.Signals.HookWindowSeconds),
					Confidence: util.Round2(best.Intensity),
					Impact:     High,
				}},
				Recommendations: []Recommendation{{
					Category: Visual,
					Text:     fmt.Sprintf("Open on the %s reaction at %.1fs and use it as the thumbnail", best.Expression, best.TimestampSeconds),
					Impact:   High,
					Effort:   Low,
				}},
			}
		},
	},
	{
		Name: "captions",
		When: func(a Aggregate) bool { return a.Signals.HasSpeech },
		Build: func(a Aggregate) Outcome {
			return Outcome{
				Insights: []Insight{{
					Category:    Opportunity,
					Title:       "Speech-led video without guaranteed sound",
					Description: "Most feed viewing starts muted; burned-in captions keep the spoken message visible.",
					Confidence:  0.8,
					Impact:      Medium,
				}},
				Recommendations: []Recommendation{{
					Category: Content,
					Text:     "Add burned-in captions for muted autoplay",
					Impact:   Medium,
					Effort:   Low,
				}},
			}
		},
	},
	{
		Name: "cross_post",
		When: func(a Aggregate) bool { return len(strongPlatforms(a.Quality)) >= 2 },
		Build: func(a Aggregate) Outcome {
			names := strongPlatforms(a.Quality)
			return Outcome{
				Insights: []Insight{{
					Category:    Opportunity,
					Title:       "Cross-post without re-editing",
					Description: fmt.Sprintf("Technical fit is strong on %s.", strings.Join(names, ", ")),
					Confidence:  0.7,
					Impact:      Medium,
				}},
				Recommendations: []Recommendation{{
					Category: PlatformRC,
					Text:     fmt.Sprintf("Publish the same cut to %s", strings.Join(names, ", ")),
					Impact:   Medium,
					Effort:   Low,
				}},
			}
		},
	},
	{
		Name: "cognitive_load",
		When: func(a Aggregate) bool { return a.Signals.CognitiveLoad > CognitiveLoadThreshold },
		Build: func(a Aggregate) Outcome {
			mitigation := "Cut on-screen elements or slow the edit so each idea gets a beat"
			return Outcome{
				Insights: []Insight{{
					Category:    Risk,
					Title:       "High cognitive load",
					Description: fmt.Sprintf("Cognitive load of %d combines fast cuts, dense speech and busy frames.", a.Signals.CognitiveLoad),
					Confidence:  util.Round2(float64(a.Signals.CognitiveLoad) / 100),
					Impact:      High,
					Mitigation:  mitigation,
				}},
				Recommendations: []Recommendation{{Category: RiskRC, Text: mitigation, Impact: High, Effort: Medium}},
			}
		},
	},
	{
		Name: "dead_air",
		When: func(a Aggregate) bool {
			return a.Signals.SilenceKnown && a.Signals.SilenceRatio > DeadAirThreshold
		},
		Build: func(a Aggregate) Outcome {
			mitigation := "Trim silent stretches or lay music under them"
			return Outcome{
				Insights: []Insight{{
					Category:    Risk,
					Title:       "Dead air",
					Description: fmt.Sprintf("%.0f%% of the runtime is silent.", a.Signals.SilenceRatio*100),
					Confidence:  a.Signals.SilenceRatio,
					Impact:      Medium,
					Mitigation:  mitigation,
				}},
				Recommendations: []Recommendation{{Category: Audio, Text: mitigation, Impact: Medium, Effort: Low}},
			}
		},
	},
	{
		Name: "quiet_audio",
		When: func(a Aggregate) bool {
			return a.Signals.LoudnessKnown && a.Signals.MeanVolumeDB < QuietAudioThresholdDB
		},
		Build: func(a Aggregate) Outcome {
			mitigation := "Normalize loudness to around -14 LUFS before export"
			severity := math.Min(1, 0.5+(QuietAudioThresholdDB-a.Signals.MeanVolumeDB)/20)
			return Outcome{
				Insights: []Insight{{
					Category:    Risk,
					Title:       "Quiet audio",
					Description: fmt.Sprintf("Mean volume of %.1f dB is well below feed loudness.", a.Signals.MeanVolumeDB),
					Confidence:  util.Round2(severity),
					Impact:      Medium,
					Mitigation:  mitigation,
				}},
				Recommendations: []Recommendation{{Category: Audio, Text: mitigation, Impact: Medium, Effort: Low}},
			}
		},
	},
	{
		Name: "missing_audio",
		When: func(a Aggregate) bool { return !a.Metadata.HasAudio },
		Build: func(a Aggregate) Outcome {
			mitigation := "Add a trending sound or a voiceover"
			return Outcome{
				Insights: []Insight{{
					Category:    Risk,
					Title:       "No audio track",
					Description: "Silent uploads are down-ranked by sound-on feeds.",
					Confidence:  0.7,
					Impact:      High,
					Mitigation:  mitigation,
				}},
				Recommendations: []Recommendation{{Category: Audio, Text: mitigation, Impact: High, Effort: Low}},
			}
		},
	},
	{
		Name: "psychological_triggers",
		When: func(a Aggregate) bool { return len(a.Signals.Triggers) > 0 },
		Build: func(a Aggregate) Outcome {
			var o Outcome
			for _, t := range a.Signals.Triggers {
				impact := Medium
				if t.Name == signals.TriggerCuriosity {
					impact = High
				}
				o.Insights = append(o.Insights, Insight{
					Category:    Trigger,
					Title:       strings.ReplaceAll(t.Name, "_", " ") + " trigger",
					Description: fmt.Sprintf("Detected through: %s.", strings.Join(t.Evidence, ", ")),
					Confidence:  util.Round2(0.6 + 0.1*math.Min(3, float64(len(t.Evidence)))),
					Impact:      impact,
				})
			}
			return o
		},
	},
	{
		Name: "production_advantage",
		When: func(a Aggregate) bool { return a.Quality.Overall >= AdvantageThreshold },
		Build: func(a Aggregate) Outcome {
			return Outcome{Insights: []Insight{{
				Category:    Advantage,
				Title:       "Production quality",
				Description: fmt.Sprintf("Overall technical score of %d puts the clip ahead of typical uploads.", a.Quality.Overall),
				Confidence:  util.Round2(float64(a.Quality.Overall) / 100),
				Impact:      Medium,
			}}}
		},
	},
	{
		Name: "weak_hook",
		When: func(a Aggregate) bool {
			return a.Engagement.ViralScore < LowViralThreshold && !a.Signals.HasTrigger(signals.TriggerCuriosity)
		},
		Build: func(a Aggregate) Outcome {
			return Outcome{
				Insights: []Insight{{
					Category:    Opportunity,
					Title:       "Room for a stronger hook",
					Description: fmt.Sprintf("Viral score of %d with no curiosity trigger.", a.Engagement.ViralScore),
					Confidence:  0.6,
					Impact:      High,
				}},
				Recommendations: []Recommendation{{
					Category: Engagement,
					Text:     "Open with a question or a bold claim to create curiosity",
					Impact:   High,
					Effort:   Low,
				}},
			}
		},
	},
}

func emotionalAlignment(a Aggregate) Outcome {
	label := a.Sentiment.Value.Label
	visualPositive := containsAny(a.Visual.Value.Emotions, positiveVisualEmotions)
	visualNegative := containsAny(a.Visual.Value.Emotions, negativeVisualEmotions)

	switch {
	case label == adapters.Positive && visualPositive, label == adapters.Negative && visualNegative:
		return Outcome{Insights: []Insight{{
			Category:    Pattern,
			Title:       "Speech and visuals share one tone",
			Description: fmt.Sprintf("%s narration matches the %s visuals.", label, strings.Join(a.Visual.Value.Emotions, ", ")),
			Confidence:  util.Round2(a.Sentiment.Value.Confidence),
			Impact:      Medium,
		}}}
	case label == adapters.Positive && visualNegative && !visualPositive, label == adapters.Negative && visualPositive && !visualNegative:
		mitigation := "Align the narration tone with what is on screen"
		return Outcome{
			Insights: []Insight{{
				Category:    Risk,
				Title:       "Tone mismatch",
				Description: fmt.Sprintf("%s narration runs against %s visuals.", label, strings.Join(a.Visual.Value.Emotions, ", ")),
				Confidence:  0.6,
				Impact:      Medium,
				Mitigation:  mitigation,
			}},
			Recommendations: []Recommendation{{Category: Content, Text: mitigation, Impact: Medium, Effort: Medium}},
		}
	}
	return Outcome{}
}

func strongPlatforms(r quality.Report) []string {
	var names []string
	for _, fit := range r.Platforms {
		if fit.Score >= CrossPostFitThreshold {
			names = append(names, string(fit.Platform))
		}
	}
	return names
}

func containsAny(have, want []string) bool {
	for _, h := range have {
		for _, w := range want {
			if h == w {
				return true
			}
		}
	}
	return false
}

// metricAdvice is the fix for each weak technical dimension
var metricAdvice = map[string]Recommendation{
	"resolution":   {Category: Technical, Text: "Re-export at 1080p or higher", Impact: High, Effort: Medium},
	"bitrate":      {Category: Technical, Text: "Re-encode at a bitrate suited to the resolution", Impact: Medium, Effort: Low},
	"compression":  {Category: Technical, Text: "Export from the master with lighter compression", Impact: Medium, Effort: Low},
	"aspect_ratio": {Category: Technical, Text: "Reframe to 16:9, 9:16 or 1:1", Impact: Medium, Effort: Medium},
	"duration":     {Category: Technical, Text: "Trim toward the 15-60 second range", Impact: High, Effort: Medium},
}

// baseRecommendations pools fixes for weak metrics and failed platform bonuses
func baseRecommendations(a Aggregate) []Recommendation {
	var recs []Recommendation
	for _, nm := range a.Quality.Metrics() {
		if nm.Score >= WeakMetricThreshold {
			continue
		}
		if rec, ok := metricAdvice[nm.Dimension]; ok {
			recs = append(recs, rec)
		}
	}

	for _, fit := range a.Quality.Platforms {
		impact := Low
		switch {
		case fit.Score < 60:
			impact = High
		case fit.Score < 80:
			impact = Medium
		}
		for _, text := range fit.Recommendations {
			recs = append(recs, Recommendation{Category: PlatformRC, Text: text, Impact: impact, Effort: Medium})
		}
	}
	return recs
}
