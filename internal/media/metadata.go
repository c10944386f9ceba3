// Package media turns an opaque video file into the structural inputs of the
// scoring pipeline: metadata, sampled still frames and a mono PCM container.
package media

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"

	"github.com/keagan/reelscore/internal/ffmpeg"
	"github.com/keagan/reelscore/pkg/util"
)

// AssumedFrameRate is used for compression estimates when the container
// does not expose a usable frame rate.
const AssumedFrameRate = 30.0

var ErrUnreadableMedia = errors.New("unreadable media")

// UnreadableMediaError is fatal for an analysis run: nothing downstream can
// be scored without metadata.
type UnreadableMediaError struct {
	Path   string
	Reason string
	Err    error
}

func (e *UnreadableMediaError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("unreadable media %s: %s: %v", e.Path, e.Reason, e.Err)
	}
	return fmt.Sprintf("unreadable media %s: %s", e.Path, e.Reason)
}

func (e *UnreadableMediaError) Unwrap() error { return e.Err }

func (e *UnreadableMediaError) Is(target error) bool { return target == ErrUnreadableMedia }

// Prober reads container headers
type Prober interface {
	ProbeVideo(ctx context.Context, path string) (*ffmpeg.VideoInfo, error)
}

// Input identifies the file under analysis
type Input struct {
	Path     string
	Name     string
	MIMEType string
}

// VideoMetadata is computed once per run and passed by value
type VideoMetadata struct {
	DurationSeconds      int     `json:"duration_seconds"`
	PreciseDuration      float64 `json:"precise_duration"`
	Width                int     `json:"width"`
	Height               int     `json:"height"`
	AspectRatio          float64 `json:"aspect_ratio"`
	ByteSize             int64   `json:"byte_size"`
	MIMEType             string  `json:"mime_type"`
	OriginalName         string  `json:"original_name"`
	EstimatedBitrateKbps int     `json:"estimated_bitrate_kbps"`
	EstimatedFrameRate   float64 `json:"estimated_frame_rate"`
	CompressionRatio     float64 `json:"compression_ratio"`
	VideoCodec           string  `json:"video_codec"`
	HasAudio             bool    `json:"has_audio"`
	AudioCodec           string  `json:"audio_codec,omitempty"`
	AudioSampleRate      int     `json:"audio_sample_rate,omitempty"`
	AudioChannels        int     `json:"audio_channels,omitempty"`
}

// ExtractMetadata probes the container header and derives the metadata the
// scorers depend on.
func ExtractMetadata(ctx context.Context, prober Prober, in Input) (VideoMetadata, error) {
	stat, err := os.Stat(in.Path)
	if err != nil {
		return VideoMetadata{}, &UnreadableMediaError{Path: in.Path, Reason: "cannot open file", Err: err}
	}
	if stat.IsDir() {
		return VideoMetadata{}, &UnreadableMediaError{Path: in.Path, Reason: "path is a directory"}
	}

	info, err := prober.ProbeVideo(ctx, in.Path)
	if err != nil {
		if ctx.Err() != nil {
			return VideoMetadata{}, ctx.Err()
		}
		return VideoMetadata{}, &UnreadableMediaError{Path: in.Path, Reason: "cannot open container", Err: err}
	}

	if in.Name == "" {
		in.Name = filepath.Base(in.Path)
	}
	if in.MIMEType == "" {
		in.MIMEType = util.MIMETypeFromPath(in.Path)
	}

	return deriveMetadata(in, info, stat.Size())
}

// deriveMetadata applies the metadata formulas to probe output
func deriveMetadata(in Input, info *ffmpeg.VideoInfo, size int64) (VideoMetadata, error) {
	if !info.HasVideo || info.Width <= 0 || info.Height <= 0 {
		return VideoMetadata{}, &UnreadableMediaError{Path: in.Path, Reason: "no decodable video stream"}
	}

	precise := info.Duration.Seconds()
	if precise <= 0 || math.IsNaN(precise) || math.IsInf(precise, 0) {
		return VideoMetadata{}, &UnreadableMediaError{Path: in.Path, Reason: "duration unavailable"}
	}

	duration := int(math.Round(precise))
	if duration < 1 {
		duration = 1
	}

	fps := info.FPS
	if fps <= 0 || fps > 1000 || math.IsNaN(fps) {
		fps = AssumedFrameRate
	}

	w, h := float64(info.Width), float64(info.Height)
	uncompressed := w * h * 3 * fps * float64(duration)

	return VideoMetadata{
		DurationSeconds:      duration,
		PreciseDuration:      precise,
		Width:                info.Width,
		Height:               info.Height,
		AspectRatio:          util.Round2(w / h),
		ByteSize:             size,
		MIMEType:             in.MIMEType,
		OriginalName:         in.Name,
		EstimatedBitrateKbps: int(math.Round(float64(size) * 8 / float64(duration) / 1000)),
		EstimatedFrameRate:   fps,
		CompressionRatio:     float64(size) / uncompressed,
		VideoCodec:           info.VideoCodec,
		HasAudio:             info.HasAudio,
		AudioCodec:           info.AudioCodec,
		AudioSampleRate:      info.AudioSampleRate,
		AudioChannels:        info.AudioChannels,
	}, nil
}
