// Package signals derives secondary features from the raw analyses: pacing,
// loudness, silence, colour energy, psychological triggers and the optional
// audience and narrative signals consumed by the engagement model.
package signals

import (
	"math"
	"sort"

	"github.com/keagan/reelscore/internal/adapters"
	"github.com/keagan/reelscore/internal/media"
	"github.com/keagan/reelscore/pkg/util"
)

// Pacing buckets
const (
	PacingUnknown  = "unknown"
	PacingSlow     = "slow"
	PacingModerate = "moderate"
	PacingFast     = "fast"
)

const (
	slowCutsPerMinute = 6.0
	fastCutsPerMinute = 15.0

	// HookWindowSeconds is the minimum length of the opening hook window
	HookWindowSeconds = 3.0
	hookWindowShare   = 0.15
	hookMinIntensity  = 0.5

	minWordsForAudience  = 10
	minWordsForNarrative = 20
)

// Probes carries the best-effort ffmpeg measurements. The OK flags are false
// when the probe failed or was skipped.
type Probes struct {
	SceneCuts      []float64
	ScenesOK       bool
	MeanVolumeDB   float64
	MaxVolumeDB    float64
	VolumeOK       bool
	SilenceSeconds float64
	SilenceOK      bool
}

// Input is everything the derivation looks at
type Input struct {
	Metadata   media.VideoMetadata
	Frames     []media.Frame
	Visual     adapters.Result[adapters.VisualSummary]
	Transcript adapters.Result[adapters.Transcript]
	Sentiment  adapters.Result[adapters.SentimentResult]
	Probes     Probes
}

// Signals are the derived features of one clip
type Signals struct {
	Pacing              string                   `json:"pacing"`
	CutsPerMinute       float64                  `json:"cuts_per_minute"`
	ColorEnergy         float64                  `json:"color_energy"`
	ColorEnergyKnown    bool                     `json:"color_energy_known"`
	MeanVolumeDB        float64                  `json:"mean_volume_db"`
	LoudnessKnown       bool                     `json:"loudness_known"`
	SilenceRatio        float64                  `json:"silence_ratio"`
	SilenceKnown        bool                     `json:"silence_known"`
	HasSpeech           bool                     `json:"has_speech"`
	WordCount           int                      `json:"word_count"`
	WordsPerMinute      float64                  `json:"words_per_minute"`
	DistinctElements    int                      `json:"distinct_elements"`
	ObjectCount         int                      `json:"object_count"`
	Triggers            []Trigger                `json:"triggers"`
	AudienceSpecificity *float64                 `json:"audience_specificity,omitempty"`
	NarrativeRichness   *float64                 `json:"narrative_richness,omitempty"`
	CognitiveLoad       int                      `json:"cognitive_load"`
	HookWindowSeconds   float64                  `json:"hook_window_seconds"`
	HookExpressions     []adapters.ExpressionCue `json:"hook_expressions"`
}

// HasTrigger reports whether the named trigger was detected
func (s Signals) HasTrigger(name string) bool {
	for _, t := range s.Triggers {
		if t.Name == name {
			return true
		}
	}
	return false
}

// Derive computes every signal. It never fails; unknown inputs leave the
// matching Known flag false.
func Derive(in Input) Signals {
	s := Signals{
		Pacing:          PacingUnknown,
		Triggers:        []Trigger{},
		HookExpressions: []adapters.ExpressionCue{},
	}
	minutes := float64(in.Metadata.DurationSeconds) / 60

	if in.Probes.ScenesOK && minutes > 0 {
		s.CutsPerMinute = util.Round2(float64(len(in.Probes.SceneCuts)) / minutes)
		s.Pacing = pacingFor(s.CutsPerMinute)
	}

	if len(in.Frames) > 0 {
		s.ColorEnergy = colorEnergy(in.Frames)
		s.ColorEnergyKnown = true
	}

	if in.Probes.VolumeOK {
		s.MeanVolumeDB = in.Probes.MeanVolumeDB
		s.LoudnessKnown = true
	}

	if in.Probes.SilenceOK && in.Metadata.PreciseDuration > 0 {
		s.SilenceRatio = util.Round2(util.ClampFloat(in.Probes.SilenceSeconds/in.Metadata.PreciseDuration, 0, 1))
		s.SilenceKnown = true
	}

	var words []string
	if !in.Transcript.Fallback {
		words = tokenize(in.Transcript.Value.Text)
	}
	s.WordCount = len(words)
	s.HasSpeech = len(words) > 0
	if minutes > 0 {
		s.WordsPerMinute = util.Round2(float64(len(words)) / minutes)
	}

	if !in.Visual.Fallback {
		s.DistinctElements = distinctElements(in.Visual.Value)
		s.ObjectCount = len(in.Visual.Value.DetectedObjects)
	}

	s.Triggers = detectTriggers(triggerCorpus(in))

	if len(words) >= minWordsForAudience {
		v := audienceSpecificity(words, in.Sentiment)
		s.AudienceSpecificity = &v
	}
	if len(words) >= minWordsForNarrative {
		v := narrativeRichness(words, in.Transcript.Value, in.Sentiment)
		s.NarrativeRichness = &v
	}

	s.CognitiveLoad = cognitiveLoad(s)

	s.HookWindowSeconds = math.Max(HookWindowSeconds, hookWindowShare*in.Metadata.PreciseDuration)
	if !in.Visual.Fallback {
		for _, cue := range in.Visual.Value.Expressions {
			if cue.TimestampSeconds <= s.HookWindowSeconds && cue.Intensity >= hookMinIntensity {
				s.HookExpressions = append(s.HookExpressions, cue)
			}
		}
	}

	return s
}

func pacingFor(cutsPerMinute float64) string {
	switch {
	case cutsPerMinute < slowCutsPerMinute:
		return PacingSlow
	case cutsPerMinute < fastCutsPerMinute:
		return PacingModerate
	default:
		return PacingFast
	}
}

// colorEnergy blends colourfulness and contrast into 0-100
func colorEnergy(frames []media.Frame) float64 {
	var sum float64
	for _, f := range frames {
		sum += 0.6*f.Stats.Colorfulness + 0.4*f.Stats.Contrast
	}
	return util.Round2(util.ClampFloat(sum/float64(len(frames))*100, 0, 100))
}

func distinctElements(v adapters.VisualSummary) int {
	set := make(map[string]struct{})
	for _, o := range v.DetectedObjects {
		set["object:"+o.Name] = struct{}{}
	}
	for _, c := range v.DominantColors {
		set["color:"+c] = struct{}{}
	}
	for _, e := range v.Emotions {
		set["emotion:"+e] = struct{}{}
	}
	return len(set)
}

func audienceSpecificity(words []string, sentiment adapters.Result[adapters.SentimentResult]) float64 {
	direct := 0
	for _, w := range words {
		switch w {
		case "you", "your", "you're", "yourself", "you'll", "you've":
			direct++
		}
	}
	address := math.Min(1, float64(direct)/float64(len(words))*20)

	keywords := 0.0
	if !sentiment.Fallback {
		keywords = math.Min(1, float64(len(sentiment.Value.Keywords))/10)
	}

	return util.Round2(0.5*address + 0.5*keywords)
}

var storyMarkers = map[string]bool{
	"first": true, "then": true, "after": true, "finally": true, "when": true,
	"because": true, "so": true, "but": true, "until": true, "suddenly": true,
}

func narrativeRichness(words []string, t adapters.Transcript, sentiment adapters.Result[adapters.SentimentResult]) float64 {
	markers := 0
	for _, w := range words {
		if storyMarkers[w] {
			markers++
		}
	}
	structure := math.Min(1, float64(markers)/float64(len(words))*10)
	beats := math.Min(1, float64(len(t.Segments))/10)

	arc := 0.0
	if !sentiment.Fallback {
		strong := 0
		for _, v := range sentiment.Value.Emotions {
			if v >= 30 {
				strong++
			}
		}
		arc = math.Min(1, float64(strong)/4)
	}

	return util.Round2(0.5*structure + 0.25*beats + 0.25*arc)
}

// cognitiveLoad adds cut rate, speech rate and visual density into 0-100
func cognitiveLoad(s Signals) int {
	load := math.Min(40, s.CutsPerMinute*2) +
		math.Min(30, s.WordsPerMinute/6) +
		math.Min(30, float64(s.DistinctElements)*3)
	return util.ClampInt(int(math.Round(load)), 0, 100)
}

// SortedEmotions lists emotion names by descending intensity, then name
func SortedEmotions(emotions map[string]int) []string {
	names := make([]string, 0, len(emotions))
	for k := range emotions {
		names = append(names, k)
	}
	sort.Slice(names, func(i, j int) bool {
		if emotions[names[i]] != emotions[names[j]] {
			return emotions[names[i]] > emotions[names[j]]
		}
		return names[i] < names[j]
	})
	return names
}
