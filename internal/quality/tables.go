package quality

import (
	"math"

	"github.com/keagan/reelscore/internal/media"
)

// Platform names a distribution channel
type Platform string

const (
	YouTube   Platform = "youtube"
	TikTok    Platform = "tiktok"
	Instagram Platform = "instagram"
	Facebook  Platform = "facebook"
)

// ResolutionTier matches when both minimums are met
type ResolutionTier struct {
	MinWidth  int
	MinHeight int
	Metric    Metric
}

// RangeTier matches min <= v <= max
type RangeTier struct {
	Min    float64
	Max    float64
	Metric Metric
}

func (t RangeTier) match(v float64) bool { return v >= t.Min && v <= t.Max }

// CeilingTier matches v <= Max
type CeilingTier struct {
	Max    float64
	Metric Metric
}

// MatchTier matches an exact rounded value
type MatchTier struct {
	Value  float64
	Metric Metric
}

// Bonus adds Points to a platform fit when Check holds; otherwise Advice is
// emitted as a recommendation.
type Bonus struct {
	Points int
	Check  func(media.VideoMetadata) bool
	Advice string
}

// OptimalSpecs are the target values of a platform
type OptimalSpecs struct {
	AspectRatio        float64 `json:"aspect_ratio"`
	MinWidth           int     `json:"min_width"`
	MinHeight          int     `json:"min_height"`
	MinDurationSeconds int     `json:"min_duration_seconds"`
	MaxDurationSeconds int     `json:"max_duration_seconds"`
}

// PlatformTable holds the fit rules of one platform
type PlatformTable struct {
	Platform Platform
	Base     int
	Optimal  OptimalSpecs
	Bonuses  []Bonus
}

// Tables groups every scoring table. Tiers are evaluated in order and the
// first match wins; the floor applies when nothing matches.
type Tables struct {
	Resolution      []ResolutionTier
	ResolutionFloor Metric

	// BitratePixelFactor scales width*height into the optimal bitrate
	BitratePixelFactor float64
	Bitrate            []RangeTier
	BitrateFloor       Metric

	Compression      []CeilingTier
	CompressionFloor Metric

	AspectRatio      []MatchTier
	AspectRatioFloor Metric

	Duration      []RangeTier
	DurationFloor Metric

	Platforms []PlatformTable
}

func aspectIs(values ...float64) func(media.VideoMetadata) bool {
	return func(m media.VideoMetadata) bool {
		for _, v := range values {
			if sameRatio(m.AspectRatio, v) {
				return true
			}
		}
		return false
	}
}

func sameRatio(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

// Default is the calibrated table set used by Score
var Default = Tables{
	Resolution: []ResolutionTier{
		{MinWidth: 1920, MinHeight: 1080, Metric: Metric{95, "Excellent"}},
		{MinWidth: 1280, MinHeight: 720, Metric: Metric{80, "Good"}},
		{MinWidth: 854, MinHeight: 480, Metric: Metric{60, "Acceptable"}},
	},
	ResolutionFloor: Metric{30, "Low"},

	BitratePixelFactor: 0.1,
	Bitrate: []RangeTier{
		{Min: 0.8, Max: 1.5, Metric: Metric{90, "Optimal"}},
		{Min: 0.5, Max: 2.0, Metric: Metric{70, "Acceptable"}},
	},
	BitrateFloor: Metric{40, "Poor"},

	Compression: []CeilingTier{
		{Max: 0.01, Metric: Metric{95, "Excellent"}},
		{Max: 0.05, Metric: Metric{80, "Good"}},
		{Max: 0.1, Metric: Metric{60, "Fair"}},
	},
	CompressionFloor: Metric{30, "Heavy"},

	AspectRatio: []MatchTier{
		{Value: 1.78, Metric: Metric{95, "Landscape 16:9"}},
		{Value: 0.56, Metric: Metric{90, "Vertical 9:16"}},
		{Value: 1.00, Metric: Metric{85, "Square 1:1"}},
	},
	AspectRatioFloor: Metric{70, "Non-standard"},

	// integer seconds, so 61 is the first value past 60
	Duration: []RangeTier{
		{Min: 15, Max: 60, Metric: Metric{95, "Short-form sweet spot"}},
		{Min: 61, Max: 300, Metric: Metric{80, "Mid-length"}},
		{Min: 301, Max: 600, Metric: Metric{60, "Long"}},
	},
	DurationFloor: Metric{40, "Outside typical range"},

	Platforms: []PlatformTable{
		{
			Platform: YouTube,
			Base:     50,
			Optimal:  OptimalSpecs{AspectRatio: 1.78, MinWidth: 1920, MinHeight: 1080, MinDurationSeconds: 480, MaxDurationSeconds: 900},
			Bonuses: []Bonus{
				{20, func(m media.VideoMetadata) bool { return m.Width >= 1920 }, "Export at 1920x1080 or higher for YouTube"},
				{20, func(m media.VideoMetadata) bool { return m.DurationSeconds >= 480 && m.DurationSeconds <= 900 }, "Aim for 8-15 minutes to maximise YouTube watch time"},
				{10, aspectIs(1.78), "Use a 16:9 landscape frame for YouTube"},
			},
		},
		{
			Platform: TikTok,
			Base:     50,
			Optimal:  OptimalSpecs{AspectRatio: 0.56, MinWidth: 720, MinHeight: 1280, MaxDurationSeconds: 60},
			Bonuses: []Bonus{
				{30, aspectIs(0.56), "Reframe to 9:16 vertical for TikTok"},
				{20, func(m media.VideoMetadata) bool { return m.DurationSeconds <= 60 }, "Cut to 60 seconds or less for TikTok"},
				{10, func(m media.VideoMetadata) bool { return m.Height >= 1280 }, "Export at least 1280 pixels tall for TikTok"},
			},
		},
		{
			Platform: Instagram,
			Base:     50,
			Optimal:  OptimalSpecs{AspectRatio: 1.00, MinWidth: 1080, MinHeight: 1080, MaxDurationSeconds: 90},
			Bonuses: []Bonus{
				{25, aspectIs(1.00, 0.56), "Use a square or 9:16 frame for Instagram"},
				{15, func(m media.VideoMetadata) bool { return m.DurationSeconds <= 90 }, "Keep Instagram Reels under 90 seconds"},
				{10, func(m media.VideoMetadata) bool { return m.Width >= 1080 }, "Export at least 1080 pixels wide for Instagram"},
			},
		},
		{
			Platform: Facebook,
			Base:     50,
			Optimal:  OptimalSpecs{AspectRatio: 1.78, MinWidth: 1280, MinHeight: 720, MaxDurationSeconds: 180},
			Bonuses: []Bonus{
				{20, aspectIs(1.78, 1.00), "Use a 16:9 or square frame for the Facebook feed"},
				{15, func(m media.VideoMetadata) bool { return m.DurationSeconds <= 180 }, "Keep Facebook feed videos under 3 minutes"},
				{15, func(m media.VideoMetadata) bool { return m.Width >= 1280 }, "Export at least 1280 pixels wide for Facebook"},
			},
		},
	},
}
