package quality

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keagan/reelscore/internal/media"
)

func fullHD() media.VideoMetadata {
	return media.VideoMetadata{
		DurationSeconds:      30,
		Width:                1920,
		Height:               1080,
		AspectRatio:          1.78,
		EstimatedBitrateKbps: 1920 * 1080 / 10,
		CompressionRatio:     0.005,
	}
}

func TestScoreReferenceClip(t *testing.T) {
	r := Score(fullHD())

	assert.Equal(t, Metric{95, "Excellent"}, r.Resolution)
	assert.Equal(t, 90, r.Bitrate.Score)
	assert.Equal(t, 95, r.Compression.Score)
	assert.Equal(t, 95, r.AspectRatio.Score)
	assert.Equal(t, 95, r.Duration.Score)
	assert.Equal(t, 94, r.Overall)
}

func TestResolutionTiers(t *testing.T) {
	tests := []struct {
		w, h int
		want int
	}{
		{3840, 2160, 95},
		{1920, 1080, 95},
		{1920, 1000, 80},
		{1280, 720, 80},
		{854, 480, 60},
		{853, 480, 30},
		{640, 360, 30},
	}
	for _, tt := range tests {
		m := fullHD()
		m.Width, m.Height = tt.w, tt.h
		assert.Equal(t, tt.want, Score(m).Resolution.Score, "%dx%d", tt.w, tt.h)
	}
}

func TestBitrateBands(t *testing.T) {
	optimal := 1920 * 1080 / 10
	tests := []struct {
		factor float64
		want   int
	}{
		{1.0, 90},
		{0.8, 90},
		{1.5, 90},
		{0.6, 70},
		{2.0, 70},
		{0.3, 40},
		{2.5, 40},
	}
	for _, tt := range tests {
		m := fullHD()
		m.EstimatedBitrateKbps = int(float64(optimal) * tt.factor)
		assert.Equal(t, tt.want, Score(m).Bitrate.Score, "factor %v", tt.factor)
	}
}

func TestCompressionAspectDurationTiers(t *testing.T) {
	m := fullHD()
	for ratio, want := range map[float64]int{0.01: 95, 0.03: 80, 0.1: 60, 0.5: 30} {
		m.CompressionRatio = ratio
		assert.Equal(t, want, Score(m).Compression.Score, "ratio %v", ratio)
	}

	m = fullHD()
	for aspect, want := range map[float64]int{1.78: 95, 0.56: 90, 1.00: 85, 1.33: 70} {
		m.AspectRatio = aspect
		assert.Equal(t, want, Score(m).AspectRatio.Score, "aspect %v", aspect)
	}

	m = fullHD()
	for d, want := range map[int]int{14: 40, 15: 95, 60: 95, 61: 80, 300: 80, 301: 60, 600: 60, 601: 40} {
		m.DurationSeconds = d
		assert.Equal(t, want, Score(m).Duration.Score, "duration %d", d)
	}
}

func TestPlatformFit(t *testing.T) {
	r := Score(fullHD())
	require.Len(t, r.Platforms, 4)

	yt, ok := r.Platform(YouTube)
	require.True(t, ok)
	assert.Equal(t, 80, yt.Score)
	assert.Equal(t, []string{"Aim for 8-15 minutes to maximise YouTube watch time"}, yt.Recommendations)

	tt, _ := r.Platform(TikTok)
	assert.Equal(t, 70, tt.Score)
	assert.Len(t, tt.Recommendations, 2)

	ig, _ := r.Platform(Instagram)
	assert.Equal(t, 75, ig.Score)

	fb, _ := r.Platform(Facebook)
	assert.Equal(t, 100, fb.Score)
	assert.Empty(t, fb.Recommendations)
	assert.NotNil(t, fb.Recommendations)

	assert.Equal(t, Facebook, r.BestPlatform().Platform)
}

func TestVerticalShortFitsTikTok(t *testing.T) {
	m := media.VideoMetadata{DurationSeconds: 20, Width: 1080, Height: 1920, AspectRatio: 0.56}
	r := Score(m)

	tt, _ := r.Platform(TikTok)
	assert.Equal(t, 100, tt.Score)
	assert.Equal(t, TikTok, r.BestPlatform().Platform)
}

func TestPlatformScoreClamped(t *testing.T) {
	tables := Default
	tables.Platforms = []PlatformTable{{
		Platform: YouTube,
		Base:     90,
		Bonuses: []Bonus{
			{Points: 40, Check: func(media.VideoMetadata) bool { return true }},
		},
	}, {
		Platform: TikTok,
		Base:     10,
		Bonuses: []Bonus{
			{Points: -40, Check: func(media.VideoMetadata) bool { return true }},
		},
	}}

	r := tables.Score(fullHD())
	assert.Equal(t, 100, r.Platforms[0].Score)
	assert.Equal(t, 0, r.Platforms[1].Score)
}

func TestScoresInRange(t *testing.T) {
	for _, w := range []int{1, 320, 854, 1280, 1920, 7680} {
		for _, d := range []int{1, 15, 45, 120, 480, 3600} {
			m := media.VideoMetadata{
				DurationSeconds:      d,
				Width:                w,
				Height:               w * 9 / 16,
				AspectRatio:          1.78,
				EstimatedBitrateKbps: w * 7,
				CompressionRatio:     float64(d) / 1000,
			}
			r := Score(m)
			for _, nm := range r.Metrics() {
				assert.GreaterOrEqual(t, nm.Score, 0)
				assert.LessOrEqual(t, nm.Score, 100)
			}
			for _, fit := range r.Platforms {
				assert.GreaterOrEqual(t, fit.Score, 0)
				assert.LessOrEqual(t, fit.Score, 100)
			}
		}
	}
}

func TestScoreIdempotent(t *testing.T) {
	m := fullHD()
	assert.Equal(t, Score(m), Score(m))
}
