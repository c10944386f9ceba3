package signals

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keagan/reelscore/internal/adapters"
	"github.com/keagan/reelscore/internal/media"
)

func fallbackInput(meta media.VideoMetadata) Input {
	return Input{
		Metadata:   meta,
		Visual:     adapters.Degraded(adapters.FallbackVisual(), "disabled"),
		Transcript: adapters.Degraded(adapters.FallbackTranscript(), "disabled"),
		Sentiment:  adapters.Degraded(adapters.FallbackSentiment(), "disabled"),
	}
}

func TestDeriveAllFallbacks(t *testing.T) {
	s := Derive(fallbackInput(media.VideoMetadata{DurationSeconds: 30, PreciseDuration: 30}))

	assert.Equal(t, PacingUnknown, s.Pacing)
	assert.False(t, s.ColorEnergyKnown)
	assert.False(t, s.LoudnessKnown)
	assert.False(t, s.SilenceKnown)
	assert.False(t, s.HasSpeech)
	assert.Empty(t, s.Triggers)
	assert.NotNil(t, s.Triggers)
	assert.Nil(t, s.AudienceSpecificity)
	assert.Nil(t, s.NarrativeRichness)
	assert.Zero(t, s.CognitiveLoad)
	assert.InDelta(t, 4.5, s.HookWindowSeconds, 1e-9)
}

func TestDeriveProbesAndFrames(t *testing.T) {
	in := fallbackInput(media.VideoMetadata{DurationSeconds: 120, PreciseDuration: 120})
	in.Probes = Probes{
		SceneCuts:      []float64{10, 40, 80},
		ScenesOK:       true,
		MeanVolumeDB:   -34.5,
		VolumeOK:       true,
		SilenceSeconds: 48,
		SilenceOK:      true,
	}
	in.Frames = []media.Frame{
		{Stats: media.FrameStats{Colorfulness: 0.8, Contrast: 0.5}},
		{Stats: media.FrameStats{Colorfulness: 0.6, Contrast: 0.7}},
	}

	s := Derive(in)
	assert.Equal(t, 1.5, s.CutsPerMinute)
	assert.Equal(t, PacingSlow, s.Pacing)
	assert.True(t, s.ColorEnergyKnown)
	assert.InDelta(t, 66.0, s.ColorEnergy, 1e-9)
	assert.Equal(t, -34.5, s.MeanVolumeDB)
	assert.Equal(t, 0.4, s.SilenceRatio)
	assert.InDelta(t, 18.0, s.HookWindowSeconds, 1e-9)
}

func TestPacingBuckets(t *testing.T) {
	assert.Equal(t, PacingSlow, pacingFor(5.9))
	assert.Equal(t, PacingModerate, pacingFor(6))
	assert.Equal(t, PacingFast, pacingFor(15))
}

func TestDeriveSpeechSignals(t *testing.T) {
	in := fallbackInput(media.VideoMetadata{DurationSeconds: 30, PreciseDuration: 30})
	in.Transcript = adapters.Ok(adapters.Transcript{
		Text: "You won't believe what happens when you try this secret trick. " +
			"First I mixed the batter, then I waited, but suddenly it rose. " +
			"Everyone is making it right now, so grab yours before it's gone!",
		Segments: []adapters.Segment{{}, {}, {}, {}, {}},
	})
	in.Sentiment = adapters.Ok(adapters.SentimentResult{
		Label:    adapters.Positive,
		Emotions: map[string]int{"joy": 80, "surprise": 60, "trust": 10},
		Keywords: []string{"trick", "batter", "recipe", "baking", "kitchen"},
	})

	s := Derive(in)
	assert.True(t, s.HasSpeech)
	assert.Greater(t, s.WordCount, minWordsForNarrative)

	names := make([]string, 0, len(s.Triggers))
	for _, tr := range s.Triggers {
		names = append(names, tr.Name)
	}
	assert.Equal(t, []string{TriggerCuriosity, TriggerUrgency, TriggerSocialProof}, names)
	assert.Contains(t, s.Triggers[0].Evidence, "you won't believe")
	assert.True(t, s.HasTrigger(TriggerUrgency))
	assert.False(t, s.HasTrigger(TriggerControversy))

	require.NotNil(t, s.AudienceSpecificity)
	assert.Greater(t, *s.AudienceSpecificity, 0.0)
	assert.LessOrEqual(t, *s.AudienceSpecificity, 1.0)

	require.NotNil(t, s.NarrativeRichness)
	assert.Greater(t, *s.NarrativeRichness, 0.0)
	assert.LessOrEqual(t, *s.NarrativeRichness, 1.0)
}

func TestFallbackTranscriptIsIgnored(t *testing.T) {
	in := fallbackInput(media.VideoMetadata{DurationSeconds: 30})
	in.Transcript = adapters.Degraded(adapters.Transcript{Text: "secret hurry viral"}, "low confidence")

	s := Derive(in)
	assert.False(t, s.HasSpeech)
	assert.Empty(t, s.Triggers)
}

func TestHookExpressionsAndElements(t *testing.T) {
	in := fallbackInput(media.VideoMetadata{DurationSeconds: 10, PreciseDuration: 10})
	in.Visual = adapters.Ok(adapters.VisualSummary{
		Available:       true,
		DetectedObjects: []adapters.DetectedObject{{Name: "dog"}, {Name: "ball"}},
		DominantColors:  []string{"green"},
		Emotions:        []string{"joy"},
		Expressions: []adapters.ExpressionCue{
			{TimestampSeconds: 1, Expression: "surprise", Intensity: 0.9},
			{TimestampSeconds: 2, Expression: "smile", Intensity: 0.2},
			{TimestampSeconds: 7, Expression: "laugh", Intensity: 0.9},
		},
	})

	s := Derive(in)
	assert.Equal(t, 4, s.DistinctElements)
	assert.Equal(t, 2, s.ObjectCount)
	require.Len(t, s.HookExpressions, 1)
	assert.Equal(t, "surprise", s.HookExpressions[0].Expression)
}

func TestCognitiveLoadCapped(t *testing.T) {
	load := cognitiveLoad(Signals{CutsPerMinute: 100, WordsPerMinute: 1000, DistinctElements: 50})
	assert.Equal(t, 100, load)
}

func TestTokenize(t *testing.T) {
	assert.Equal(t, []string{"don't", "miss", "it", "best", "selling"}, tokenize("Don’t miss it — best-selling!"))
}

func TestSortedEmotions(t *testing.T) {
	assert.Equal(t, []string{"joy", "anger", "fear"}, SortedEmotions(map[string]int{"fear": 10, "joy": 90, "anger": 10}))
}
