package media

import (
	"context"
	"errors"
	"fmt"

	"github.com/keagan/reelscore/internal/ffmpeg"
	"github.com/keagan/reelscore/internal/wav"
)

// DefaultSampleRate is used when the probe did not report one
const DefaultSampleRate = 44100

// ErrNoAudio marks a clip whose audio is absent or undecodable. It is
// recoverable: callers continue with an empty transcript.
var ErrNoAudio = errors.New("no audio available")

// AudioDecoder decodes an audio stream to interleaved float32 samples
type AudioDecoder interface {
	DecodeAudio(ctx context.Context, input string, sampleRate, channels int) (*ffmpeg.PCMAudio, error)
}

// AudioContainer is a mono 16-bit PCM WAV payload ready for transcription
type AudioContainer struct {
	WAV             []byte  `json:"-"`
	SampleRate      int     `json:"sample_rate"`
	SampleCount     int     `json:"sample_count"`
	DurationSeconds float64 `json:"duration_seconds"`
}

// AudioOptions overrides decode parameters. Zero SampleRate keeps the source rate.
type AudioOptions struct {
	SampleRate int
}

// ExtractAudio decodes the first audio stream, downmixes it to mono and
// wraps it in a WAV container.
func ExtractAudio(ctx context.Context, dec AudioDecoder, path string, meta VideoMetadata, opts AudioOptions) (*AudioContainer, error) {
	if !meta.HasAudio {
		return nil, ErrNoAudio
	}

	rate := opts.SampleRate
	if rate <= 0 {
		rate = meta.AudioSampleRate
	}
	if rate <= 0 {
		rate = DefaultSampleRate
	}
	channels := meta.AudioChannels
	if channels <= 0 {
		channels = 1
	}

	pcm, err := dec.DecodeAudio(ctx, path, rate, channels)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: %v", ErrNoAudio, err)
	}

	mono := Downmix(pcm.Samples, pcm.Channels)
	if len(mono) == 0 {
		return nil, fmt.Errorf("%w: decoded stream is empty", ErrNoAudio)
	}
	if pcm.SampleRate > 0 {
		rate = pcm.SampleRate
	}

	return &AudioContainer{
		WAV:             wav.Encode(mono, rate),
		SampleRate:      rate,
		SampleCount:     len(mono),
		DurationSeconds: float64(len(mono)) / float64(rate),
	}, nil
}

// Downmix averages interleaved frames into one channel, clamped to [-1,1].
// A trailing partial frame is dropped.
func Downmix(interleaved []float32, channels int) []float32 {
	if channels <= 1 {
		out := make([]float32, len(interleaved))
		for i, s := range interleaved {
			out[i] = clampSample(s)
		}
		return out
	}

	frames := len(interleaved) / channels
	out := make([]float32, frames)
	for i := 0; i < frames; i++ {
		var sum float32
		for c := 0; c < channels; c++ {
			sum += interleaved[i*channels+c]
		}
		out[i] = clampSample(sum / float32(channels))
	}
	return out
}

func clampSample(s float32) float32 {
	switch {
	case s > 1:
		return 1
	case s < -1:
		return -1
	case s != s:
		return 0
	}
	return s
}
