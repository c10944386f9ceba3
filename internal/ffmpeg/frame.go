package ffmpeg

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"time"

	"github.com/keagan/reelscore/pkg/util"
)

// ExtractFrame seeks to timestamp and rasterizes the frame displayed there.
// Every call is a fresh seek against the input file.
func (e *Executor) ExtractFrame(ctx context.Context, input string, timestamp time.Duration) (image.Image, error) {
	if input == "" {
		return nil, fmt.Errorf("input path is required")
	}
	if timestamp < 0 {
		return nil, fmt.Errorf("timestamp cannot be negative")
	}

	args := []string{
		"-ss", util.FormatDuration(timestamp),
		"-i", input,
		"-frames:v", "1",
		"-an",
		"-f", "image2pipe",
		"-vcodec", "png",
		"-",
	}

	data, err := e.Capture(ctx, args)
	if err != nil {
		return nil, fmt.Errorf("frame extraction at %s failed: %w", util.FormatDuration(timestamp), err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("no frame decoded at %s", util.FormatDuration(timestamp))
	}

	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode frame: %w", err)
	}

	e.logger.Debug().
		Dur("timestamp", timestamp).
		Int("width", img.Bounds().Dx()).
		Int("height", img.Bounds().Dy()).
		Msg("frame extracted")

	return img, nil
}
