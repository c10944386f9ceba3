package adapters

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubVisual struct {
	summary VisualSummary
	err     error
}

func (s stubVisual) DescribeFrames(context.Context, []FrameInput) (VisualSummary, error) {
	return s.summary, s.err
}

type stubSentiment struct {
	calls int
	out   SentimentResult
}

func (s *stubSentiment) AnalyzeSentiment(context.Context, string) (SentimentResult, error) {
	s.calls++
	return s.out, nil
}

func TestDescribeFallsBack(t *testing.T) {
	frames := []FrameInput{{Image: []byte{1}, MIMEType: "image/jpeg"}}

	r := Describe(context.Background(), stubVisual{err: errors.New("503 unavailable")}, frames)
	assert.True(t, r.Fallback)
	assert.Equal(t, "503 unavailable", r.Reason)
	assert.False(t, r.Value.Available)
	assert.Equal(t, "not available", r.Value.Description)
	assert.NotNil(t, r.Value.DetectedObjects)

	r = Describe(context.Background(), stubVisual{}, nil)
	assert.True(t, r.Fallback)
}

func TestDescribeNormalizes(t *testing.T) {
	v := stubVisual{summary: VisualSummary{
		Description:     "a dog on a beach",
		DetectedObjects: []DetectedObject{{Name: "dog", Confidence: 1.7}},
	}}

	r := Describe(context.Background(), v, []FrameInput{{}})
	require.False(t, r.Fallback)
	assert.True(t, r.Value.Available)
	assert.Equal(t, 1.0, r.Value.DetectedObjects[0].Confidence)
	assert.NotNil(t, r.Value.DominantColors)
	assert.NotNil(t, r.Value.Expressions)
}

func TestDisabledTranscriberUsesPlaceholder(t *testing.T) {
	r := Transcribe(context.Background(), Disabled{}, []byte("RIFF"))
	assert.True(t, r.Fallback)
	assert.Equal(t, ErrAdapterDisabled.Error(), r.Reason)
	assert.Equal(t, TranscriptPlaceholder, r.Value.Text)
	assert.Zero(t, r.Value.Confidence)

	r = Transcribe(context.Background(), Disabled{}, nil)
	assert.Equal(t, "no audio available", r.Reason)
}

func TestSentimentSkipsBlankText(t *testing.T) {
	s := &stubSentiment{}
	r := Sentiment(context.Background(), s, "   ")
	assert.True(t, r.Fallback)
	assert.Zero(t, s.calls)
	assert.Equal(t, Neutral, r.Value.Label)
	assert.Empty(t, r.Value.Emotions)
	assert.NotNil(t, r.Value.Emotions)
}

func TestSentimentNormalizes(t *testing.T) {
	s := &stubSentiment{out: SentimentResult{
		Label:      "POSITIVE",
		Confidence: 1.2,
		Emotions:   map[string]int{" Joy ": 140, "fear": -3, "": 50},
	}}

	r := Sentiment(context.Background(), s, "what a great day")
	require.False(t, r.Fallback)
	assert.Equal(t, 1, s.calls)
	assert.Equal(t, Positive, r.Value.Label)
	assert.Equal(t, 1.0, r.Value.Confidence)
	assert.Equal(t, map[string]int{"joy": 100, "fear": 0}, r.Value.Emotions)
	assert.NotNil(t, r.Value.Keywords)
}

func TestNilAdapters(t *testing.T) {
	assert.True(t, Describe(context.Background(), nil, []FrameInput{{}}).Fallback)
	assert.True(t, Transcribe(context.Background(), nil, []byte{1}).Fallback)
	assert.True(t, Sentiment(context.Background(), nil, "hi").Fallback)
}

func TestParseLabel(t *testing.T) {
	assert.Equal(t, Negative, ParseLabel(" negative"))
	assert.Equal(t, Neutral, ParseLabel("mixed"))
}

func TestFallbackValuesAreIndependent(t *testing.T) {
	first := Sentiment(context.Background(), nil, "anything")
	require.True(t, first.Fallback)
	first.Value.Emotions["anger"] = 99
	first.Value.Keywords = append(first.Value.Keywords, "leak")

	second := Sentiment(context.Background(), nil, "anything")
	assert.Equal(t, Neutral, second.Value.Label)
	assert.Equal(t, 0.0, second.Value.Confidence)
	assert.Empty(t, second.Value.Emotions)
	assert.Empty(t, second.Value.Keywords)
	assert.Empty(t, FallbackSentiment().Emotions)

	v := Describe(context.Background(), nil, nil)
	v.Value.Emotions = append(v.Value.Emotions, "joy")
	assert.Empty(t, FallbackVisual().Emotions)
}

func TestDescribeLowercasesEmotions(t *testing.T) {
	v := stubVisual{summary: VisualSummary{Emotions: []string{"Joy", " SURPRISE ", ""}}}

	r := Describe(context.Background(), v, []FrameInput{{}})
	require.False(t, r.Fallback)
	assert.Equal(t, []string{"joy", "surprise"}, r.Value.Emotions)
}
