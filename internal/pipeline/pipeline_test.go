package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric/noop"

	"github.com/keagan/reelscore/internal/adapters"
	"github.com/keagan/reelscore/internal/events"
	"github.com/keagan/reelscore/internal/ffmpeg"
	"github.com/keagan/reelscore/internal/media"
)

type fakeDecoder struct {
	mu       sync.Mutex
	info     *ffmpeg.VideoInfo
	probeErr error
	frameErr error
	probes   int
	noScenes bool
}

func (f *fakeDecoder) ProbeVideo(context.Context, string) (*ffmpeg.VideoInfo, error) {
	f.mu.Lock()
	f.probes++
	f.mu.Unlock()
	return f.info, f.probeErr
}

func (f *fakeDecoder) ExtractFrame(context.Context, string, time.Duration) (image.Image, error) {
	if f.frameErr != nil {
		return nil, f.frameErr
	}
	img := image.NewRGBA(image.Rect(0, 0, 32, 18))
	for y := 0; y < 18; y++ {
		for x := 0; x < 32; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 8), G: 90, B: uint8(y * 14), A: 255})
		}
	}
	return img, nil
}

func (f *fakeDecoder) DecodeAudio(_ context.Context, _ string, sampleRate, channels int) (*ffmpeg.PCMAudio, error) {
	samples := make([]float32, 1600*channels)
	for i := range samples {
		samples[i] = 0.25
	}
	return &ffmpeg.PCMAudio{Samples: samples, SampleRate: sampleRate, Channels: channels}, nil
}

func (f *fakeDecoder) DetectScenes(context.Context, string, float64) ([]time.Duration, error) {
	if f.noScenes {
		return nil, errors.New("scene filter unavailable")
	}
	return []time.Duration{4 * time.Second, 12 * time.Second, 21 * time.Second}, nil
}

func (f *fakeDecoder) AnalyzeVolume(context.Context, string) (*ffmpeg.VolumeStats, error) {
	return &ffmpeg.VolumeStats{MeanVolume: -18, MaxVolume: -1.5}, nil
}

func (f *fakeDecoder) DetectSilence(context.Context, string, float64, float64) ([]ffmpeg.SilenceSegment, error) {
	return []ffmpeg.SilenceSegment{{Start: 10, End: 13, Duration: 3}}, nil
}

func landscapeInfo(hasAudio bool) *ffmpeg.VideoInfo {
	return &ffmpeg.VideoInfo{
		HasVideo: true, HasAudio: hasAudio,
		Width: 1920, Height: 1080,
		Duration: 30 * time.Second,
		FPS:      30, VideoCodec: "h264",
		AudioSampleRate: 16000, AudioChannels: 2,
	}
}

type stubAdapters struct {
	mu            sync.Mutex
	transcribeErr error
	sentimentText string
	visualCalls   int
	sentimentHits int
}

func (s *stubAdapters) DescribeFrames(_ context.Context, frames []adapters.FrameInput) (adapters.VisualSummary, error) {
	s.mu.Lock()
	s.visualCalls++
	s.mu.Unlock()
	return adapters.VisualSummary{
		Available:       true,
		Description:     "a cook plating pasta",
		DetectedObjects: []adapters.DetectedObject{{Name: "plate", Confidence: 0.9}},
		Emotions:        []string{"joy"},
		Expressions:     []adapters.ExpressionCue{{TimestampSeconds: frames[0].TimestampSeconds, Expression: "smile", Intensity: 0.8}},
	}, nil
}

func (s *stubAdapters) Transcribe(context.Context, []byte) (adapters.Transcript, error) {
	if s.transcribeErr != nil {
		return adapters.Transcript{}, s.transcribeErr
	}
	return adapters.Transcript{Text: "you won't believe this secret pasta trick", Confidence: 0.92}, nil
}

func (s *stubAdapters) AnalyzeSentiment(_ context.Context, text string) (adapters.SentimentResult, error) {
	s.mu.Lock()
	s.sentimentHits++
	s.sentimentText = text
	s.mu.Unlock()
	return adapters.SentimentResult{Label: adapters.Positive, Confidence: 0.9, Emotions: map[string]int{"joy": 80}}, nil
}

type memoryCache struct {
	mu   sync.Mutex
	data map[string][]byte
	sets int
}

func (c *memoryCache) Get(_ context.Context, key string, dst any) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	raw, ok := c.data[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(raw, dst)
}

func (c *memoryCache) Set(_ context.Context, key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = raw
	c.sets++
	return nil
}

type recordingPublisher struct {
	events []events.Event
}

func (p *recordingPublisher) Publish(_ context.Context, ev events.Event) error {
	p.events = append(p.events, ev)
	return nil
}

func tempVideo(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "clip.mp4")
	require.NoError(t, os.WriteFile(path, make([]byte, 3_750_000), 0o644))
	return path
}

func newTestPipeline(t *testing.T, dec Decoder, ad Adapters, options ...Option) *Pipeline {
	t.Helper()
	options = append([]Option{WithMeter(noop.NewMeterProvider().Meter("test"))}, options...)
	p, err := New(zerolog.Nop(), dec, ad, DefaultOptions(), options...)
	require.NoError(t, err)
	return p
}

func TestAnalyzeWithHealthyAdapters(t *testing.T) {
	stub := &stubAdapters{}
	p := newTestPipeline(t, &fakeDecoder{info: landscapeInfo(true)}, Adapters{Visual: stub, Transcriber: stub, Sentiment: stub})

	res, err := p.Analyze(context.Background(), media.Input{Path: tempVideo(t)}, "")
	require.NoError(t, err)

	assert.NotEqual(t, uuid.Nil, res.ID)
	assert.Empty(t, res.Fallbacks)
	assert.Equal(t, "clip.mp4", res.Source.Name)
	assert.Equal(t, 30, res.Metadata.DurationSeconds)
	assert.Len(t, res.Frames, len(media.DefaultSamplePoints))
	assert.Len(t, res.Platforms, 4)

	assert.False(t, res.Visual.Fallback)
	assert.Equal(t, "you won't believe this secret pasta trick", res.Transcript.Value.Text)
	assert.Equal(t, adapters.Positive, res.Sentiment.Value.Label)
	assert.Equal(t, res.Transcript.Value.Text, stub.sentimentText)

	assert.Equal(t, 6.0, res.Signals.CutsPerMinute)
	assert.True(t, res.Signals.LoudnessKnown)
	assert.Equal(t, 0.1, res.Signals.SilenceRatio)
	assert.True(t, res.Signals.HasSpeech)
	assert.NotEmpty(t, res.Signals.Triggers)

	assert.Greater(t, res.Engagement.PredictedViews, int64(0))
	assert.NotEmpty(t, res.Insights)
	assert.LessOrEqual(t, len(res.Recommendations), 8)
}

func TestAnalyzeDisabledAdaptersStillCompletes(t *testing.T) {
	d := adapters.Disabled{}
	p := newTestPipeline(t, &fakeDecoder{info: landscapeInfo(true)}, Adapters{Visual: d, Transcriber: d, Sentiment: d})

	res, err := p.Analyze(context.Background(), media.Input{Path: tempVideo(t)}, "gs://uploads/clip.mp4")
	require.NoError(t, err)

	assert.Equal(t, "gs://uploads/clip.mp4", res.Source.URI)
	assert.Equal(t, []string{StageVisual, StageTranscript, StageSentiment}, res.Fallbacks)

	assert.True(t, res.Transcript.Fallback)
	assert.Equal(t, adapters.TranscriptPlaceholder, res.Transcript.Value.Text)
	assert.Equal(t, adapters.Neutral, res.Sentiment.Value.Label)
	assert.Zero(t, res.Sentiment.Value.Confidence)
	assert.Empty(t, res.Sentiment.Value.Emotions)
	assert.NotNil(t, res.Sentiment.Value.Emotions)

	assert.False(t, res.Signals.HasSpeech)
	assert.Greater(t, res.Engagement.ViralScore, 0)
	assert.NotNil(t, res.Insights)
	assert.NotEmpty(t, res.Recommendations)
}

func TestFailingTranscriberSkipsSentiment(t *testing.T) {
	stub := &stubAdapters{transcribeErr: errors.New("upstream 503")}
	p := newTestPipeline(t, &fakeDecoder{info: landscapeInfo(true)}, Adapters{Visual: stub, Transcriber: stub, Sentiment: stub})

	res, err := p.Analyze(context.Background(), media.Input{Path: tempVideo(t)}, "")
	require.NoError(t, err)

	assert.Equal(t, "upstream 503", res.Transcript.Reason)
	assert.True(t, res.Sentiment.Fallback)
	assert.Zero(t, stub.sentimentHits)
	assert.Equal(t, []string{StageTranscript, StageSentiment}, res.Fallbacks)
	assert.True(t, res.UsedFallback(StageSentiment))
	assert.False(t, res.UsedFallback(StageVisual))
}

func TestNilAdaptersFallBack(t *testing.T) {
	p := newTestPipeline(t, &fakeDecoder{info: landscapeInfo(true)}, Adapters{})

	res, err := p.Analyze(context.Background(), media.Input{Path: tempVideo(t)}, "")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{StageVisual, StageTranscript, StageSentiment}, res.Fallbacks)
}

func TestSilentVideoDegradesAudioStages(t *testing.T) {
	stub := &stubAdapters{}
	p := newTestPipeline(t, &fakeDecoder{info: landscapeInfo(false)}, Adapters{Visual: stub, Transcriber: stub, Sentiment: stub})

	res, err := p.Analyze(context.Background(), media.Input{Path: tempVideo(t)}, "")
	require.NoError(t, err)

	assert.Equal(t, []string{StageAudio, StageTranscript, StageSentiment, StageVolume, StageSilence}, res.Fallbacks)
	assert.False(t, res.Signals.LoudnessKnown)
	assert.False(t, res.Signals.SilenceKnown)
	assert.False(t, res.Visual.Fallback)
}

func TestFrameFailureDegradesVisual(t *testing.T) {
	stub := &stubAdapters{}
	dec := &fakeDecoder{info: landscapeInfo(true), frameErr: errors.New("seek failed"), noScenes: true}
	p := newTestPipeline(t, dec, Adapters{Visual: stub, Transcriber: stub, Sentiment: stub})

	res, err := p.Analyze(context.Background(), media.Input{Path: tempVideo(t)}, "")
	require.NoError(t, err)

	assert.Equal(t, []string{StageFrames, StageVisual, StageScenes}, res.Fallbacks)
	assert.Zero(t, stub.visualCalls)
	assert.Empty(t, res.Frames)
	assert.False(t, res.Signals.ColorEnergyKnown)
	assert.Equal(t, "unknown", res.Signals.Pacing)
}

func TestUnreadableMediaIsFatal(t *testing.T) {
	dec := &fakeDecoder{probeErr: errors.New("moov atom not found")}
	p := newTestPipeline(t, dec, Adapters{})

	_, err := p.Analyze(context.Background(), media.Input{Path: tempVideo(t)}, "")
	assert.ErrorIs(t, err, media.ErrUnreadableMedia)

	_, err = p.Analyze(context.Background(), media.Input{}, "")
	assert.Error(t, err)
}

func TestCancelledContextAbortsRun(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := newTestPipeline(t, &fakeDecoder{info: landscapeInfo(true)}, Adapters{})
	_, err := p.Analyze(ctx, media.Input{Path: tempVideo(t)}, "")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCacheAndPublisher(t *testing.T) {
	c := &memoryCache{data: map[string][]byte{}}
	pub := &recordingPublisher{}
	dec := &fakeDecoder{info: landscapeInfo(true)}
	stub := &stubAdapters{}
	p := newTestPipeline(t, dec, Adapters{Visual: stub, Transcriber: stub, Sentiment: stub}, WithCache(c), WithPublisher(pub))
	path := tempVideo(t)

	first, err := p.Analyze(context.Background(), media.Input{Path: path}, "")
	require.NoError(t, err)
	assert.NotEmpty(t, first.Source.SHA256)
	assert.Equal(t, 1, c.sets)
	require.Len(t, pub.events, 1)
	assert.Equal(t, events.AnalysisCompleted, pub.events[0].Type)
	assert.Equal(t, first.ID.String(), pub.events[0].Key)

	second, err := p.Analyze(context.Background(), media.Input{Path: path}, "")
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, first.Engagement.PredictedViews, second.Engagement.PredictedViews)
	assert.Equal(t, 1, dec.probes)
	assert.Equal(t, 1, stub.visualCalls)
	assert.Len(t, pub.events, 1)
}

func TestDegradedResultsAreNotCached(t *testing.T) {
	c := &memoryCache{data: map[string][]byte{}}
	path := tempVideo(t)

	d := adapters.Disabled{}
	degraded := newTestPipeline(t, &fakeDecoder{info: landscapeInfo(true)},
		Adapters{Visual: d, Transcriber: d, Sentiment: d}, WithCache(c))
	first, err := degraded.Analyze(context.Background(), media.Input{Path: path}, "")
	require.NoError(t, err)
	assert.Equal(t, []string{StageVisual, StageTranscript, StageSentiment}, first.Fallbacks)
	assert.Equal(t, 0, c.sets)

	stub := &stubAdapters{}
	healthy := newTestPipeline(t, &fakeDecoder{info: landscapeInfo(true)},
		Adapters{Visual: stub, Transcriber: stub, Sentiment: stub}, WithCache(c))
	second, err := healthy.Analyze(context.Background(), media.Input{Path: path}, "")
	require.NoError(t, err)
	assert.Empty(t, second.Fallbacks)
	assert.NotEqual(t, first.ID, second.ID)
	assert.Equal(t, 1, stub.visualCalls)
	assert.Equal(t, 1, c.sets)
}

func TestCacheKeyFollowsAdapterProfile(t *testing.T) {
	c := &memoryCache{data: map[string][]byte{}}
	path := tempVideo(t)
	stub := &stubAdapters{}
	ad := Adapters{Visual: stub, Transcriber: stub, Sentiment: stub}

	opts := DefaultOptions()
	opts.AdapterProfile = "gemini/gemini-2.5-flash"
	flash, err := New(zerolog.Nop(), &fakeDecoder{info: landscapeInfo(true)}, ad, opts,
		WithCache(c), WithMeter(noop.NewMeterProvider().Meter("test")))
	require.NoError(t, err)

	opts.AdapterProfile = "gemini/gemini-2.5-pro"
	pro, err := New(zerolog.Nop(), &fakeDecoder{info: landscapeInfo(true)}, ad, opts,
		WithCache(c), WithMeter(noop.NewMeterProvider().Meter("test")))
	require.NoError(t, err)

	first, err := flash.Analyze(context.Background(), media.Input{Path: path}, "")
	require.NoError(t, err)
	second, err := pro.Analyze(context.Background(), media.Input{Path: path}, "")
	require.NoError(t, err)

	assert.NotEqual(t, first.ID, second.ID)
	assert.Equal(t, 2, stub.visualCalls)
	assert.Len(t, c.data, 2)
}

func TestSilentVideoWithHealthyVisualIsCached(t *testing.T) {
	c := &memoryCache{data: map[string][]byte{}}
	stub := &stubAdapters{}
	p := newTestPipeline(t, &fakeDecoder{info: landscapeInfo(false)},
		Adapters{Visual: stub, Transcriber: stub, Sentiment: stub}, WithCache(c))

	result, err := p.Analyze(context.Background(), media.Input{Path: tempVideo(t)}, "")
	require.NoError(t, err)
	assert.True(t, result.UsedFallback(StageTranscript))
	assert.False(t, result.UsedFallback(StageVisual))
	assert.Equal(t, 1, c.sets)
}

func TestFallbackSentimentIsNotShared(t *testing.T) {
	p := newTestPipeline(t, &fakeDecoder{info: landscapeInfo(false)}, Adapters{})

	first, err := p.Analyze(context.Background(), media.Input{Path: tempVideo(t)}, "")
	require.NoError(t, err)
	first.Sentiment.Value.Emotions["anger"] = 99

	second, err := p.Analyze(context.Background(), media.Input{Path: tempVideo(t)}, "")
	require.NoError(t, err)
	assert.Empty(t, second.Sentiment.Value.Emotions)
	assert.Equal(t, adapters.Neutral, second.Sentiment.Value.Label)
}

func TestProgressReportsStages(t *testing.T) {
	var mu sync.Mutex
	seen := map[string]bool{}
	stub := &stubAdapters{}
	p := newTestPipeline(t, &fakeDecoder{info: landscapeInfo(true)},
		Adapters{Visual: stub, Transcriber: stub, Sentiment: stub},
		WithProgress(func(stage string) {
			mu.Lock()
			seen[stage] = true
			mu.Unlock()
		}))

	_, err := p.Analyze(context.Background(), media.Input{Path: tempVideo(t)}, "")
	require.NoError(t, err)

	for _, stage := range Stages {
		assert.True(t, seen[stage], stage)
	}
}

func TestNewValidatesOptions(t *testing.T) {
	_, err := New(zerolog.Nop(), nil, Adapters{}, DefaultOptions())
	assert.Error(t, err)

	opts := DefaultOptions()
	opts.SamplePoints = []float64{0.5}
	_, err = New(zerolog.Nop(), &fakeDecoder{}, Adapters{}, opts)
	assert.ErrorIs(t, err, media.ErrInvalidSamplePoints)
}

func TestClockControlsCreatedAt(t *testing.T) {
	at := time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)
	p := newTestPipeline(t, &fakeDecoder{info: landscapeInfo(true)}, Adapters{}, WithClock(func() time.Time { return at }))

	res, err := p.Analyze(context.Background(), media.Input{Path: tempVideo(t)}, "")
	require.NoError(t, err)
	assert.Equal(t, at, res.CreatedAt)
}
