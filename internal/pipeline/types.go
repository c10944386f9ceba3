package pipeline

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/keagan/reelscore/internal/adapters"
	"github.com/keagan/reelscore/internal/engagement"
	"github.com/keagan/reelscore/internal/events"
	"github.com/keagan/reelscore/internal/ffmpeg"
	"github.com/keagan/reelscore/internal/insights"
	"github.com/keagan/reelscore/internal/media"
	"github.com/keagan/reelscore/internal/quality"
	"github.com/keagan/reelscore/internal/signals"
)

// Stage names, used for progress, metrics and the fallback list
const (
	StageMetadata   = "metadata"
	StageQuality    = "quality"
	StageFrames     = "frames"
	StageVisual     = "visual"
	StageAudio      = "audio"
	StageTranscript = "transcript"
	StageSentiment  = "sentiment"
	StageScenes     = "scenes"
	StageVolume     = "volume"
	StageSilence    = "silence"
	StageSignals    = "signals"
	StageEngagement = "engagement"
	StageInsights   = "insights"
)

// Stages lists every stage in reporting order
var Stages = []string{
	StageMetadata, StageQuality, StageFrames, StageVisual, StageAudio,
	StageTranscript, StageSentiment, StageScenes, StageVolume, StageSilence,
	StageSignals, StageEngagement, StageInsights,
}

// Decoder is the local media toolchain the pipeline drives
type Decoder interface {
	media.Prober
	media.FrameGrabber
	media.AudioDecoder
	DetectScenes(ctx context.Context, input string, threshold float64) ([]time.Duration, error)
	AnalyzeVolume(ctx context.Context, input string) (*ffmpeg.VolumeStats, error)
	DetectSilence(ctx context.Context, input string, noiseDB, minDuration float64) ([]ffmpeg.SilenceSegment, error)
}

// Adapters are the external analysis services. Nil members fall back.
type Adapters struct {
	Visual      adapters.VisualAnalyzer
	Transcriber adapters.Transcriber
	Sentiment   adapters.SentimentAnalyzer
}

// Cache stores finished results by content hash
type Cache interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, value any) error
}

// Publisher announces finished results
type Publisher interface {
	Publish(ctx context.Context, ev events.Event) error
}

// ProgressFunc is called as each stage finishes. Concurrent stages may call it
// from different goroutines.
type ProgressFunc func(stage string)

// Options configures one pipeline
type Options struct {
	SamplePoints      []float64
	Frames            media.FrameOptions
	Audio             media.AudioOptions
	SceneThreshold    float64
	SilenceNoiseDB    float64
	SilenceMinSeconds float64
	Rules             []insights.Rule
	// AdapterProfile names the adapter backend, e.g. "gemini/gemini-2.5-flash".
	// It is part of the cache key.
	AdapterProfile string
}

// DefaultOptions returns the settings used when none are given
func DefaultOptions() Options {
	return Options{
		SamplePoints:      media.DefaultSamplePoints,
		Frames:            media.DefaultFrameOptions(),
		SceneThreshold:    0.4,
		SilenceNoiseDB:    -35,
		SilenceMinSeconds: 0.5,
		Rules:             insights.DefaultRules,
	}
}

// SourceInfo identifies the analysed file
type SourceInfo struct {
	URI      string `json:"uri"`
	Name     string `json:"name"`
	MIMEType string `json:"mime_type"`
	SHA256   string `json:"sha256,omitempty"`
}

// FrameSummary is what the result keeps of a sampled frame
type FrameSummary struct {
	TimestampSeconds float64          `json:"timestamp_seconds"`
	Position         float64          `json:"position"`
	Stats            media.FrameStats `json:"stats"`
}

// AnalysisResult is the union of every stage output for one run
type AnalysisResult struct {
	ID              uuid.UUID                                 `json:"id"`
	CreatedAt       time.Time                                 `json:"created_at"`
	Source          SourceInfo                                `json:"source"`
	Metadata        media.VideoMetadata                       `json:"metadata"`
	Technical       quality.Report                            `json:"technical"`
	Platforms       []quality.PlatformFit                     `json:"platforms"`
	Frames          []FrameSummary                            `json:"frames"`
	Visual          adapters.Result[adapters.VisualSummary]   `json:"visual"`
	Transcript      adapters.Result[adapters.Transcript]      `json:"transcript"`
	Sentiment       adapters.Result[adapters.SentimentResult] `json:"sentiment"`
	Signals         signals.Signals                           `json:"signals"`
	Engagement      engagement.Prediction                     `json:"engagement"`
	Insights        []insights.Insight                        `json:"insights"`
	Recommendations []insights.Recommendation                 `json:"recommendations"`
	Fallbacks       []string                                  `json:"fallbacks"`
}

// UsedFallback reports whether stage degraded
func (r *AnalysisResult) UsedFallback(stage string) bool {
	for _, s := range r.Fallbacks {
		if s == stage {
			return true
		}
	}
	return false
}
