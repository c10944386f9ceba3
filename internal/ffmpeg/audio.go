package ffmpeg

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync"
)

// PCMAudio is an interleaved float32 sample stream as decoded by ffmpeg
type PCMAudio struct {
	Samples    []float32
	SampleRate int
	Channels   int
}

// DecodeAudio decodes the first audio stream to interleaved little-endian
// float32 PCM at the given sample rate and channel count.
func (e *Executor) DecodeAudio(ctx context.Context, input string, sampleRate, channels int) (*PCMAudio, error) {
	if input == "" {
		return nil, fmt.Errorf("input path is required")
	}
	if sampleRate <= 0 {
		return nil, fmt.Errorf("sample rate must be positive")
	}
	if channels <= 0 {
		channels = 1
	}

	e.logger.Info().
		Str("input", input).
		Int("sample_rate", sampleRate).
		Int("channels", channels).
		Msg("decoding audio")

	args := []string{
		"-i", input,
		"-vn", // no video
		"-map", "0:a:0",
		"-acodec", "pcm_f32le",
		"-ar", fmt.Sprintf("%d", sampleRate),
		"-ac", fmt.Sprintf("%d", channels),
		"-f", "f32le",
		"-",
	}

	data, err := e.Capture(ctx, args)
	if err != nil {
		return nil, fmt.Errorf("audio decode failed: %w", err)
	}

	samples, err := parseFloat32LE(data)
	if err != nil {
		return nil, err
	}

	return &PCMAudio{
		Samples:    samples,
		SampleRate: sampleRate,
		Channels:   channels,
	}, nil
}

// parseFloat32LE converts raw f32le bytes into samples
func parseFloat32LE(data []byte) ([]float32, error) {
	if len(data)%4 != 0 {
		return nil, fmt.Errorf("truncated pcm stream: %d bytes", len(data))
	}
	samples := make([]float32, len(data)/4)
	for i := range samples {
		samples[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return samples, nil
}

// SilenceSegment represents a period of silence in audio
type SilenceSegment struct {
	Start    float64
	End      float64
	Duration float64
}

// DetectSilence finds silence segments in audio/video file
func (e *Executor) DetectSilence(ctx context.Context, input string, noiseThreshold float64, minDuration float64) ([]SilenceSegment, error) {
	e.logger.Info().
		Str("input", input).
		Float64("noise_threshold", noiseThreshold).
		Float64("min_duration", minDuration).
		Msg("detecting silence")

	output, err := e.runAnalysisFilter(ctx, input, "-af",
		fmt.Sprintf("silencedetect=noise=%.6fdB:d=%.6f", noiseThreshold, minDuration))
	if err != nil {
		return nil, fmt.Errorf("silence detection failed: %w", err)
	}

	return parseSilenceOutput(output), nil
}

// parseSilenceOutput extracts silence segments from ffmpeg output
func parseSilenceOutput(output string) []SilenceSegment {
	var segments []SilenceSegment
	var currentStart float64

	lines := strings.Split(output, "\n")
	for _, line := range lines {
		if strings.Contains(line, "silence_start:") {
			parts := strings.Split(line, "silence_start:")
			if len(parts) == 2 {
				currentStart, _ = strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
			}
		} else if strings.Contains(line, "silence_end:") {
			parts := strings.Split(line, "silence_end:")
			if len(parts) == 2 {
				fields := strings.Fields(strings.TrimSpace(parts[1]))
				if len(fields) == 0 {
					continue
				}
				end, _ := strconv.ParseFloat(fields[0], 64)

				var duration float64
				if strings.Contains(line, "silence_duration:") {
					durParts := strings.Split(line, "silence_duration:")
					if len(durParts) == 2 {
						duration, _ = strconv.ParseFloat(strings.TrimSpace(durParts[1]), 64)
					}
				} else {
					duration = end - currentStart
				}

				segments = append(segments, SilenceSegment{
					Start:    currentStart,
					End:      end,
					Duration: duration,
				})
			}
		}
	}

	return segments
}

// VolumeStats holds volume analysis results
type VolumeStats struct {
	MeanVolume float64
	MaxVolume  float64
}

// AnalyzeVolume calculates volume statistics for audio/video file
func (e *Executor) AnalyzeVolume(ctx context.Context, input string) (*VolumeStats, error) {
	e.logger.Info().Str("input", input).Msg("analyzing volume")

	output, err := e.runAnalysisFilter(ctx, input, "-af", "volumedetect")
	if err != nil {
		return nil, fmt.Errorf("volume analysis failed: %w", err)
	}

	return parseVolumeOutput(output)
}

// parseVolumeOutput extracts volume stats from ffmpeg output
func parseVolumeOutput(output string) (*VolumeStats, error) {
	stats := &VolumeStats{}
	found := false

	lines := strings.Split(output, "\n")
	for _, line := range lines {
		if strings.Contains(line, "mean_volume:") {
			parts := strings.Split(line, "mean_volume:")
			if len(parts) == 2 {
				if fields := strings.Fields(strings.TrimSpace(parts[1])); len(fields) > 0 {
					stats.MeanVolume, _ = strconv.ParseFloat(fields[0], 64)
					found = true
				}
			}
		} else if strings.Contains(line, "max_volume:") {
			parts := strings.Split(line, "max_volume:")
			if len(parts) == 2 {
				if fields := strings.Fields(strings.TrimSpace(parts[1])); len(fields) > 0 {
					stats.MaxVolume, _ = strconv.ParseFloat(fields[0], 64)
				}
			}
		}
	}

	if !found {
		return nil, fmt.Errorf("no volume statistics in ffmpeg output")
	}

	return stats, nil
}

// runAnalysisFilter runs a filter against the null muxer and returns the
// collected stderr, which is where ffmpeg analysis filters report.
func (e *Executor) runAnalysisFilter(ctx context.Context, input, flag, filter string) (string, error) {
	var stderrBuf bytes.Buffer
	var mu sync.Mutex

	opts := RunOptions{
		Args: []string{
			"-i", input,
			flag, filter,
			"-f", "null",
			"-",
		},
		LogHandler: func(line string) {
			mu.Lock()
			stderrBuf.WriteString(line + "\n")
			mu.Unlock()
		},
	}

	err := e.Run(ctx, opts)

	mu.Lock()
	output := stderrBuf.String()
	mu.Unlock()

	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		if !isNullSinkError(err) {
			return "", err
		}
	}

	if output == "" {
		return "", fmt.Errorf("filter %q produced no output", filter)
	}

	return output, nil
}
