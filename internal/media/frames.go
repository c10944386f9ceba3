package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"math"
	"time"

	"github.com/nfnt/resize"

	"github.com/keagan/reelscore/pkg/util"
)

// DefaultSamplePoints are the fractions of duration sampled by the full pipeline
var DefaultSamplePoints = []float64{0.1, 0.25, 0.5, 0.75, 0.9}

// MinSamplePoints is the smallest usable sample set
const MinSamplePoints = 3

// endGuard keeps the last seek inside the stream; seeking exactly to the end
// yields no frame.
const endGuard = 0.1

var (
	ErrInvalidSamplePoints = errors.New("sample points must be at least 3 ascending fractions in [0,1]")
	ErrFrameExtraction     = errors.New("frame extraction failed")
)

// FrameExtractionError reports the sample point that could not be rasterized
type FrameExtractionError struct {
	Index    int
	Position float64
	Err      error
}

func (e *FrameExtractionError) Error() string {
	return fmt.Sprintf("frame %d at position %.2f: %v", e.Index, e.Position, e.Err)
}

func (e *FrameExtractionError) Unwrap() error { return e.Err }

func (e *FrameExtractionError) Is(target error) bool { return target == ErrFrameExtraction }

// FrameGrabber rasterizes the image displayed at a timestamp
type FrameGrabber interface {
	ExtractFrame(ctx context.Context, input string, timestamp time.Duration) (image.Image, error)
}

// FrameOptions controls frame encoding
type FrameOptions struct {
	MaxWidth    int
	JPEGQuality int
}

// DefaultFrameOptions matches the sampling defaults of the config file
func DefaultFrameOptions() FrameOptions {
	return FrameOptions{MaxWidth: 768, JPEGQuality: 85}
}

// Frame is one sampled still
type Frame struct {
	TimestampSeconds float64    `json:"timestamp_seconds"`
	Position         float64    `json:"position"`
	Width            int        `json:"width"`
	Height           int        `json:"height"`
	MIMEType         string     `json:"mime_type"`
	Stats            FrameStats `json:"stats"`
	Image            []byte     `json:"-"`
}

// EvenSamplePoints spreads n points evenly inside the clip, excluding both ends
func EvenSamplePoints(n int) []float64 {
	points := make([]float64, n)
	for i := range points {
		points[i] = float64(i+1) / float64(n+1)
	}
	return points
}

// ValidateSamplePoints checks the ordering and range requirements
func ValidateSamplePoints(points []float64) error {
	if len(points) < MinSamplePoints {
		return fmt.Errorf("%w: got %d", ErrInvalidSamplePoints, len(points))
	}
	for i, p := range points {
		if math.IsNaN(p) || p < 0 || p > 1 {
			return fmt.Errorf("%w: point %d = %v", ErrInvalidSamplePoints, i, p)
		}
		if i > 0 && p <= points[i-1] {
			return fmt.Errorf("%w: point %d not ascending", ErrInvalidSamplePoints, i)
		}
	}
	return nil
}

// SampleFrames seeks to each proportional point of the clip and returns one
// encoded still per point, in order. Any failed point fails the whole call.
func SampleFrames(ctx context.Context, grabber FrameGrabber, path string, duration float64, points []float64, opts FrameOptions) ([]Frame, error) {
	if err := ValidateSamplePoints(points); err != nil {
		return nil, err
	}
	if duration <= 0 {
		return nil, &FrameExtractionError{Index: 0, Position: points[0], Err: fmt.Errorf("duration must be positive")}
	}
	if opts.JPEGQuality <= 0 || opts.JPEGQuality > 100 {
		opts.JPEGQuality = DefaultFrameOptions().JPEGQuality
	}

	frames := make([]Frame, 0, len(points))
	for i, p := range points {
		ts := seekTime(p, duration)

		img, err := grabber.ExtractFrame(ctx, path, util.SecondsToDuration(ts))
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, &FrameExtractionError{Index: i, Position: p, Err: err}
		}

		frame, err := encodeFrame(img, opts)
		if err != nil {
			return nil, &FrameExtractionError{Index: i, Position: p, Err: err}
		}
		frame.TimestampSeconds = ts
		frame.Position = p
		frames = append(frames, frame)
	}

	return frames, nil
}

func seekTime(point, duration float64) float64 {
	ts := point * duration
	if limit := math.Max(0, duration-endGuard); ts > limit {
		ts = limit
	}
	return ts
}

func encodeFrame(img image.Image, opts FrameOptions) (Frame, error) {
	if opts.MaxWidth > 0 && img.Bounds().Dx() > opts.MaxWidth {
		img = resize.Resize(uint(opts.MaxWidth), 0, img, resize.Bilinear)
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: opts.JPEGQuality}); err != nil {
		return Frame{}, fmt.Errorf("encode jpeg: %w", err)
	}

	return Frame{
		Width:    img.Bounds().Dx(),
		Height:   img.Bounds().Dy(),
		MIMEType: "image/jpeg",
		Stats:    measureFrame(img),
		Image:    buf.Bytes(),
	}, nil
}
