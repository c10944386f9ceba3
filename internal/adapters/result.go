package adapters

import (
	"context"
	"strings"

	"github.com/keagan/reelscore/pkg/util"
)

// TranscriptPlaceholder replaces the text of an unavailable transcript
const TranscriptPlaceholder = "[transcript unavailable: low confidence]"

// FallbackVisual returns the placeholder used when visual analysis is
// unavailable. Each call returns fresh slices.
func FallbackVisual() VisualSummary {
	return VisualSummary{
		Available:       false,
		Description:     "not available",
		DetectedObjects: []DetectedObject{},
		DominantColors:  []string{},
		Emotions:        []string{},
		Expressions:     []ExpressionCue{},
		QualityLabel:    "not available",
	}
}

// FallbackTranscript returns the placeholder transcript
func FallbackTranscript() Transcript {
	return Transcript{
		Text:       TranscriptPlaceholder,
		Segments:   []Segment{},
		Confidence: 0,
	}
}

// FallbackSentiment returns a neutral, zero-confidence result with an empty
// emotion map owned by the caller.
func FallbackSentiment() SentimentResult {
	return SentimentResult{
		Label:      Neutral,
		Confidence: 0,
		Emotions:   map[string]int{},
		Keywords:   []string{},
	}
}

// Result is either a genuine adapter value or a fallback sentinel. Reason is
// set only for fallbacks.
type Result[T any] struct {
	Value    T      `json:"value"`
	Fallback bool   `json:"fallback"`
	Reason   string `json:"reason,omitempty"`
}

// Ok wraps a genuine value
func Ok[T any](v T) Result[T] {
	return Result[T]{Value: v}
}

// Degraded wraps a fallback value with the reason it was used
func Degraded[T any](v T, reason string) Result[T] {
	return Result[T]{Value: v, Fallback: true, Reason: reason}
}

// Describe makes one visual analysis attempt
func Describe(ctx context.Context, a VisualAnalyzer, frames []FrameInput) Result[VisualSummary] {
	if a == nil {
		return Degraded(FallbackVisual(), "visual analyzer not configured")
	}
	if len(frames) == 0 {
		return Degraded(FallbackVisual(), "no frames available")
	}

	v, err := a.DescribeFrames(ctx, frames)
	if err != nil {
		return Degraded(FallbackVisual(), err.Error())
	}
	return Ok(normalizeVisual(v))
}

// Transcribe makes one transcription attempt
func Transcribe(ctx context.Context, t Transcriber, wav []byte) Result[Transcript] {
	if t == nil {
		return Degraded(FallbackTranscript(), "transcriber not configured")
	}
	if len(wav) == 0 {
		return Degraded(FallbackTranscript(), "no audio available")
	}

	tr, err := t.Transcribe(ctx, wav)
	if err != nil {
		return Degraded(FallbackTranscript(), err.Error())
	}
	return Ok(normalizeTranscript(tr))
}

// Sentiment makes one sentiment attempt. Blank text skips the call.
func Sentiment(ctx context.Context, s SentimentAnalyzer, text string) Result[SentimentResult] {
	if s == nil {
		return Degraded(FallbackSentiment(), "sentiment analyzer not configured")
	}
	if strings.TrimSpace(text) == "" {
		return Degraded(FallbackSentiment(), "empty transcript")
	}

	r, err := s.AnalyzeSentiment(ctx, text)
	if err != nil {
		return Degraded(FallbackSentiment(), err.Error())
	}
	return Ok(NormalizeSentiment(r))
}

func normalizeVisual(v VisualSummary) VisualSummary {
	v.Available = true
	if v.DetectedObjects == nil {
		v.DetectedObjects = []DetectedObject{}
	}
	for i := range v.DetectedObjects {
		v.DetectedObjects[i].Confidence = util.ClampFloat(v.DetectedObjects[i].Confidence, 0, 1)
	}
	if v.DominantColors == nil {
		v.DominantColors = []string{}
	}
	emotions := make([]string, 0, len(v.Emotions))
	for _, e := range v.Emotions {
		if name := strings.ToLower(strings.TrimSpace(e)); name != "" {
			emotions = append(emotions, name)
		}
	}
	v.Emotions = emotions
	if v.Expressions == nil {
		v.Expressions = []ExpressionCue{}
	}
	for i := range v.Expressions {
		v.Expressions[i].Intensity = util.ClampFloat(v.Expressions[i].Intensity, 0, 1)
	}
	return v
}

func normalizeTranscript(t Transcript) Transcript {
	if t.Segments == nil {
		t.Segments = []Segment{}
	}
	t.Confidence = util.ClampFloat(t.Confidence, 0, 1)
	return t
}

// NormalizeSentiment maps unknown labels to Neutral and clamps every score
func NormalizeSentiment(r SentimentResult) SentimentResult {
	r.Label = ParseLabel(string(r.Label))
	r.Confidence = util.ClampFloat(r.Confidence, 0, 1)

	emotions := make(map[string]int, len(r.Emotions))
	for k, v := range r.Emotions {
		name := strings.ToLower(strings.TrimSpace(k))
		if name == "" {
			continue
		}
		emotions[name] = util.ClampInt(v, 0, 100)
	}
	r.Emotions = emotions

	if r.Keywords == nil {
		r.Keywords = []string{}
	}
	return r
}

// ParseLabel matches a label case-insensitively, defaulting to Neutral
func ParseLabel(s string) SentimentLabel {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "positive":
		return Positive
	case "negative":
		return Negative
	default:
		return Neutral
	}
}
