// Package quality scores video metadata against fixed technical tables.
// Everything here is a pure function of media.VideoMetadata.
package quality

import (
	"math"

	"github.com/keagan/reelscore/internal/media"
	"github.com/keagan/reelscore/pkg/util"
)

// Metric is one scored technical dimension
type Metric struct {
	Score int    `json:"score"`
	Label string `json:"label"`
}

// NamedMetric pairs a metric with its dimension name
type NamedMetric struct {
	Dimension string
	Metric
}

// PlatformFit is the fit of the clip to one platform
type PlatformFit struct {
	Platform        Platform     `json:"platform"`
	Score           int          `json:"score"`
	Recommendations []string     `json:"recommendations"`
	OptimalSpecs    OptimalSpecs `json:"optimal_specs"`
}

// Report is the full technical scoring of a clip
type Report struct {
	Resolution  Metric        `json:"resolution"`
	Bitrate     Metric        `json:"bitrate"`
	Compression Metric        `json:"compression"`
	AspectRatio Metric        `json:"aspect_ratio"`
	Duration    Metric        `json:"duration"`
	Overall     int           `json:"overall"`
	Platforms   []PlatformFit `json:"platforms"`
}

// Metrics lists the five dimensions in a fixed order
func (r Report) Metrics() []NamedMetric {
	return []NamedMetric{
		{"resolution", r.Resolution},
		{"bitrate", r.Bitrate},
		{"compression", r.Compression},
		{"aspect_ratio", r.AspectRatio},
		{"duration", r.Duration},
	}
}

// Platform returns the fit for p
func (r Report) Platform(p Platform) (PlatformFit, bool) {
	for _, fit := range r.Platforms {
		if fit.Platform == p {
			return fit, true
		}
	}
	return PlatformFit{}, false
}

// BestPlatform returns the highest fit; ties keep table order
func (r Report) BestPlatform() PlatformFit {
	var best PlatformFit
	for i, fit := range r.Platforms {
		if i == 0 || fit.Score > best.Score {
			best = fit
		}
	}
	return best
}

// Score applies the default tables
func Score(meta media.VideoMetadata) Report {
	return Default.Score(meta)
}

// Score scores meta against t
func (t Tables) Score(meta media.VideoMetadata) Report {
	r := Report{
		Resolution:  t.resolution(meta),
		Bitrate:     t.bitrate(meta),
		Compression: t.compression(meta),
		AspectRatio: t.aspectRatio(meta),
		Duration:    t.duration(meta),
	}

	sum := 0
	for _, m := range r.Metrics() {
		sum += m.Score
	}
	r.Overall = util.ClampInt(int(math.Round(float64(sum)/5)), 0, 100)

	r.Platforms = make([]PlatformFit, 0, len(t.Platforms))
	for _, pt := range t.Platforms {
		r.Platforms = append(r.Platforms, pt.fit(meta))
	}
	return r
}

func (t Tables) resolution(m media.VideoMetadata) Metric {
	for _, tier := range t.Resolution {
		if m.Width >= tier.MinWidth && m.Height >= tier.MinHeight {
			return clampMetric(tier.Metric)
		}
	}
	return clampMetric(t.ResolutionFloor)
}

func (t Tables) bitrate(m media.VideoMetadata) Metric {
	optimal := float64(m.Width*m.Height) * t.BitratePixelFactor
	if optimal <= 0 {
		return clampMetric(t.BitrateFloor)
	}
	ratio := float64(m.EstimatedBitrateKbps) / optimal
	for _, tier := range t.Bitrate {
		if tier.match(ratio) {
			return clampMetric(tier.Metric)
		}
	}
	return clampMetric(t.BitrateFloor)
}

func (t Tables) compression(m media.VideoMetadata) Metric {
	for _, tier := range t.Compression {
		if m.CompressionRatio <= tier.Max {
			return clampMetric(tier.Metric)
		}
	}
	return clampMetric(t.CompressionFloor)
}

func (t Tables) aspectRatio(m media.VideoMetadata) Metric {
	for _, tier := range t.AspectRatio {
		if sameRatio(m.AspectRatio, tier.Value) {
			return clampMetric(tier.Metric)
		}
	}
	return clampMetric(t.AspectRatioFloor)
}

func (t Tables) duration(m media.VideoMetadata) Metric {
	d := float64(m.DurationSeconds)
	for _, tier := range t.Duration {
		if tier.match(d) {
			return clampMetric(tier.Metric)
		}
	}
	return clampMetric(t.DurationFloor)
}

func (pt PlatformTable) fit(m media.VideoMetadata) PlatformFit {
	score := pt.Base
	recs := []string{}
	for _, b := range pt.Bonuses {
		if b.Check(m) {
			score += b.Points
		} else {
			recs = append(recs, b.Advice)
		}
	}
	return PlatformFit{
		Platform:        pt.Platform,
		Score:           util.ClampInt(score, 0, 100),
		Recommendations: recs,
		OptimalSpecs:    pt.Optimal,
	}
}

func clampMetric(m Metric) Metric {
	m.Score = util.ClampInt(m.Score, 0, 100)
	return m
}
