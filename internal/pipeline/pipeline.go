package pipeline

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/sync/errgroup"

	"github.com/keagan/reelscore/internal/adapters"
	"github.com/keagan/reelscore/internal/cache"
	"github.com/keagan/reelscore/internal/engagement"
	"github.com/keagan/reelscore/internal/events"
	"github.com/keagan/reelscore/internal/insights"
	"github.com/keagan/reelscore/internal/media"
	"github.com/keagan/reelscore/internal/quality"
	"github.com/keagan/reelscore/internal/signals"
	"github.com/keagan/reelscore/pkg/util"
)

const meterName = "github.com/keagan/reelscore/internal/pipeline"

// Pipeline orchestrates one analysis run per call. It holds no per-run state
// and is safe for concurrent use.
type Pipeline struct {
	logger    zerolog.Logger
	opts      Options
	decoder   Decoder
	adapters  Adapters
	cache     Cache
	publisher Publisher
	progress  ProgressFunc
	metrics   *pipelineMetrics
	now       func() time.Time
	profile   string
}

// Option customizes a Pipeline
type Option func(*Pipeline)

// WithCache enables result caching by content hash
func WithCache(c Cache) Option {
	return func(p *Pipeline) { p.cache = c }
}

// WithPublisher announces each finished result
func WithPublisher(pub Publisher) Option {
	return func(p *Pipeline) { p.publisher = pub }
}

// WithProgress reports finished stages
func WithProgress(fn ProgressFunc) Option {
	return func(p *Pipeline) { p.progress = fn }
}

// WithMeter records stage metrics on meter instead of the global provider
func WithMeter(meter metric.Meter) Option {
	return func(p *Pipeline) { p.metrics = newPipelineMetrics(meter, p.logger) }
}

// WithClock overrides the result timestamp source
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) {
		if now != nil {
			p.now = now
		}
	}
}

// New creates a new pipeline instance
func New(logger zerolog.Logger, decoder Decoder, ad Adapters, opts Options, options ...Option) (*Pipeline, error) {
	if decoder == nil {
		return nil, errors.New("pipeline requires a decoder")
	}
	if len(opts.SamplePoints) == 0 {
		opts.SamplePoints = media.DefaultSamplePoints
	}
	if err := media.ValidateSamplePoints(opts.SamplePoints); err != nil {
		return nil, err
	}
	if opts.Rules == nil {
		opts.Rules = insights.DefaultRules
	}

	p := &Pipeline{
		logger:   logger.With().Str("component", "pipeline").Logger(),
		opts:     opts,
		decoder:  decoder,
		adapters: ad,
		now:      time.Now,
		profile:  cacheProfile(opts),
	}
	for _, o := range options {
		o(p)
	}
	if p.metrics == nil {
		p.metrics = newPipelineMetrics(otel.Meter(meterName), p.logger)
	}
	return p, nil
}

// Analyze runs the full analysis pipeline on input. Only unreadable media and
// context cancellation fail the run; every other stage degrades to a fallback.
func (p *Pipeline) Analyze(ctx context.Context, in media.Input, uri string) (*AnalysisResult, error) {
	if in.Path == "" {
		return nil, fmt.Errorf("input path cannot be empty")
	}
	if uri == "" {
		uri = in.Path
	}

	p.logger.Info().
		Str("input", uri).
		Msg("starting analysis pipeline")

	var hash string
	if p.cache != nil {
		if h, err := util.HashFile(in.Path); err != nil {
			p.logger.Warn().Err(err).Msg("failed to hash input, cache disabled for this run")
		} else {
			hash = h
			if cached, ok := p.lookup(ctx, hash); ok {
				return cached, nil
			}
		}
	}

	// Stage 1: metadata (fatal)
	start := time.Now()
	meta, err := media.ExtractMetadata(ctx, p.decoder, in)
	if err != nil {
		return nil, fmt.Errorf("failed to extract metadata: %w", err)
	}
	p.finish(ctx, StageMetadata, start)

	p.logger.Info().
		Int("duration", meta.DurationSeconds).
		Int("width", meta.Width).
		Int("height", meta.Height).
		Bool("has_audio", meta.HasAudio).
		Msg("video metadata extracted")

	// Stage 2: technical scoring, inline
	start = time.Now()
	report := quality.Score(meta)
	p.finish(ctx, StageQuality, start)

	// Stage 3: concurrent branches
	b := p.runBranches(ctx, in.Path, meta)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Stage 4: join
	start = time.Now()
	sig := signals.Derive(signals.Input{
		Metadata:   meta,
		Frames:     b.frames,
		Visual:     b.visual,
		Transcript: b.transcript,
		Sentiment:  b.sentiment,
		Probes:     b.probes,
	})
	p.finish(ctx, StageSignals, start)

	start = time.Now()
	prediction := engagement.Predict(engagement.NewInput(meta, report, b.visual, b.sentiment, sig))
	p.finish(ctx, StageEngagement, start)

	start = time.Now()
	synthesis := insights.Synthesize(insights.Aggregate{
		Metadata:   meta,
		Quality:    report,
		Visual:     b.visual,
		Transcript: b.transcript,
		Sentiment:  b.sentiment,
		Signals:    sig,
		Engagement: prediction,
	}, p.opts.Rules)
	p.finish(ctx, StageInsights, start)

	result := &AnalysisResult{
		ID:        uuid.New(),
		CreatedAt: p.now().UTC(),
		Source: SourceInfo{
			URI:      uri,
			Name:     meta.OriginalName,
			MIMEType: meta.MIMEType,
			SHA256:   hash,
		},
		Metadata:        meta,
		Technical:       report,
		Platforms:       report.Platforms,
		Frames:          summarizeFrames(b.frames),
		Visual:          b.visual,
		Transcript:      b.transcript,
		Sentiment:       b.sentiment,
		Signals:         sig,
		Engagement:      prediction,
		Insights:        synthesis.Insights,
		Recommendations: synthesis.Recommendations,
		Fallbacks:       p.collectFallbacks(ctx, b),
	}

	p.logger.Info().
		Str("id", result.ID.String()).
		Int("overall", report.Overall).
		Int("viral_score", prediction.ViralScore).
		Int("insights", len(result.Insights)).
		Strs("fallbacks", result.Fallbacks).
		Msg("analysis pipeline complete")

	if hash != "" {
		if !cacheable(result) {
			p.logger.Debug().Strs("fallbacks", result.Fallbacks).Msg("adapter fallbacks present, result not cached")
		} else if err := p.cache.Set(ctx, cache.Key(p.profile, hash), result); err != nil {
			p.logger.Warn().Err(err).Msg("failed to cache result")
		}
	}
	p.publish(ctx, result)

	return result, nil
}

// branches holds what each concurrent branch wrote. Every field is written
// by exactly one goroutine.
type branches struct {
	frames     []media.Frame
	framesErr  error
	visual     adapters.Result[adapters.VisualSummary]
	audioErr   error
	transcript adapters.Result[adapters.Transcript]
	sentiment  adapters.Result[adapters.SentimentResult]
	probes     signals.Probes
	scenesErr  error
	volumeErr  error
	silenceErr error
}

func (p *Pipeline) runBranches(ctx context.Context, path string, meta media.VideoMetadata) *branches {
	b := &branches{}
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		p.visualBranch(gctx, path, meta, b)
		return nil
	})
	g.Go(func() error {
		p.audioBranch(gctx, path, meta, b)
		return nil
	})
	g.Go(func() error {
		start := time.Now()
		cuts, err := p.decoder.DetectScenes(gctx, path, p.opts.SceneThreshold)
		if err != nil {
			b.scenesErr = err
			return nil
		}
		b.probes.SceneCuts = make([]float64, len(cuts))
		for i, c := range cuts {
			b.probes.SceneCuts[i] = c.Seconds()
		}
		b.probes.ScenesOK = true
		p.finish(gctx, StageScenes, start)
		return nil
	})

	if meta.HasAudio {
		g.Go(func() error {
			start := time.Now()
			stats, err := p.decoder.AnalyzeVolume(gctx, path)
			if err != nil {
				b.volumeErr = err
				return nil
			}
			b.probes.MeanVolumeDB = stats.MeanVolume
			b.probes.MaxVolumeDB = stats.MaxVolume
			b.probes.VolumeOK = true
			p.finish(gctx, StageVolume, start)
			return nil
		})
		g.Go(func() error {
			start := time.Now()
			segments, err := p.decoder.DetectSilence(gctx, path, p.opts.SilenceNoiseDB, p.opts.SilenceMinSeconds)
			if err != nil {
				b.silenceErr = err
				return nil
			}
			for _, s := range segments {
				b.probes.SilenceSeconds += s.Duration
			}
			b.probes.SilenceOK = true
			p.finish(gctx, StageSilence, start)
			return nil
		})
	} else {
		b.volumeErr = media.ErrNoAudio
		b.silenceErr = media.ErrNoAudio
	}

	_ = g.Wait()
	return b
}

func (p *Pipeline) visualBranch(ctx context.Context, path string, meta media.VideoMetadata, b *branches) {
	start := time.Now()
	frames, err := media.SampleFrames(ctx, p.decoder, path, meta.PreciseDuration, p.opts.SamplePoints, p.opts.Frames)
	if err != nil {
		b.framesErr = err
		b.visual = adapters.Degraded(adapters.FallbackVisual(), "frames unavailable: "+err.Error())
		return
	}
	b.frames = frames
	p.finish(ctx, StageFrames, start)

	start = time.Now()
	inputs := make([]adapters.FrameInput, len(frames))
	for i, f := range frames {
		inputs[i] = adapters.FrameInput{Image: f.Image, MIMEType: f.MIMEType, TimestampSeconds: f.TimestampSeconds}
	}
	b.visual = adapters.Describe(ctx, p.adapters.Visual, inputs)
	p.finish(ctx, StageVisual, start)
}

func (p *Pipeline) audioBranch(ctx context.Context, path string, meta media.VideoMetadata, b *branches) {
	start := time.Now()
	container, err := media.ExtractAudio(ctx, p.decoder, path, meta, p.opts.Audio)
	if err != nil {
		b.audioErr = err
		b.transcript = adapters.Degraded(adapters.FallbackTranscript(), "audio unavailable: "+err.Error())
		b.sentiment = adapters.Degraded(adapters.FallbackSentiment(), "no transcript")
		return
	}
	p.finish(ctx, StageAudio, start)

	start = time.Now()
	b.transcript = adapters.Transcribe(ctx, p.adapters.Transcriber, container.WAV)
	p.finish(ctx, StageTranscript, start)

	if b.transcript.Fallback {
		b.sentiment = adapters.Degraded(adapters.FallbackSentiment(), "no transcript")
		return
	}
	start = time.Now()
	b.sentiment = adapters.Sentiment(ctx, p.adapters.Sentiment, b.transcript.Value.Text)
	p.finish(ctx, StageSentiment, start)
}

// collectFallbacks lists degraded stages in a fixed order and logs each once
func (p *Pipeline) collectFallbacks(ctx context.Context, b *branches) []string {
	type entry struct {
		stage  string
		failed bool
		reason string
	}
	reason := func(err error) string {
		if err == nil {
			return ""
		}
		return err.Error()
	}
	entries := []entry{
		{StageFrames, b.framesErr != nil, reason(b.framesErr)},
		{StageVisual, b.visual.Fallback, b.visual.Reason},
		{StageAudio, b.audioErr != nil, reason(b.audioErr)},
		{StageTranscript, b.transcript.Fallback, b.transcript.Reason},
		{StageSentiment, b.sentiment.Fallback, b.sentiment.Reason},
		{StageScenes, b.scenesErr != nil, reason(b.scenesErr)},
		{StageVolume, b.volumeErr != nil, reason(b.volumeErr)},
		{StageSilence, b.silenceErr != nil, reason(b.silenceErr)},
	}

	fallbacks := []string{}
	for _, e := range entries {
		if !e.failed {
			continue
		}
		fallbacks = append(fallbacks, e.stage)
		p.metrics.recordFallback(ctx, e.stage)
		p.logger.Warn().
			Str("stage", e.stage).
			Str("reason", e.reason).
			Msg("stage used fallback")
	}
	return fallbacks
}

func (p *Pipeline) finish(ctx context.Context, stage string, start time.Time) {
	p.metrics.recordStage(ctx, stage, time.Since(start))
	p.logger.Debug().
		Str("stage", stage).
		Dur("elapsed", time.Since(start)).
		Msg("stage complete")
	if p.progress != nil {
		p.progress(stage)
	}
}

func (p *Pipeline) lookup(ctx context.Context, hash string) (*AnalysisResult, bool) {
	var cached AnalysisResult
	found, err := p.cache.Get(ctx, cache.Key(p.profile, hash), &cached)
	if err != nil {
		p.logger.Warn().Err(err).Msg("cache lookup failed")
		return nil, false
	}
	if !found {
		return nil, false
	}
	p.metrics.recordCacheHit(ctx)
	p.logger.Info().
		Str("id", cached.ID.String()).
		Str("sha256", hash).
		Msg("returning cached analysis")
	return &cached, true
}

func (p *Pipeline) publish(ctx context.Context, result *AnalysisResult) {
	if p.publisher == nil {
		return
	}
	err := p.publisher.Publish(ctx, events.Event{
		Type:       events.AnalysisCompleted,
		Key:        result.ID.String(),
		OccurredAt: result.CreatedAt,
		Payload:    result,
	})
	if err != nil {
		p.logger.Warn().Err(err).Str("id", result.ID.String()).Msg("failed to publish analysis event")
	}
}

// cacheProfile fingerprints the options that change the result for a file
func cacheProfile(opts Options) string {
	adapter := opts.AdapterProfile
	if adapter == "" {
		adapter = "none"
	}
	h := sha256.New()
	fmt.Fprintf(h, "%s|%v|%d|%d|%d|%g|%g|%g",
		adapter, opts.SamplePoints,
		opts.Frames.MaxWidth, opts.Frames.JPEGQuality, opts.Audio.SampleRate,
		opts.SceneThreshold, opts.SilenceNoiseDB, opts.SilenceMinSeconds)
	return hex.EncodeToString(h.Sum(nil))[:16]
}

// cacheable reports whether result may be served to later runs. Adapter
// fallbacks are not cached unless transcript and sentiment fell back because
// the video has no audio.
func cacheable(result *AnalysisResult) bool {
	for _, stage := range result.Fallbacks {
		switch stage {
		case StageVisual:
			return false
		case StageTranscript, StageSentiment:
			if result.Metadata.HasAudio {
				return false
			}
		}
	}
	return true
}

func summarizeFrames(frames []media.Frame) []FrameSummary {
	out := make([]FrameSummary, len(frames))
	for i, f := range frames {
		out[i] = FrameSummary{TimestampSeconds: f.TimestampSeconds, Position: f.Position, Stats: f.Stats}
	}
	return out
}
