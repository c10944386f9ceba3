package pipeline

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/keagan/reelscore/internal/adapters"
	"github.com/keagan/reelscore/internal/adapters/gemini"
	"github.com/keagan/reelscore/internal/config"
	"github.com/keagan/reelscore/internal/ffmpeg"
	"github.com/keagan/reelscore/internal/insights"
	"github.com/keagan/reelscore/internal/media"
)

// OptionsFromConfig maps application config onto pipeline options
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		SamplePoints: cfg.Sampling.Points,
		Frames: media.FrameOptions{
			MaxWidth:    cfg.Sampling.MaxWidth,
			JPEGQuality: cfg.Sampling.JPEGQuality,
		},
		Audio:             media.AudioOptions{SampleRate: cfg.Sampling.AudioSampleRate},
		SceneThreshold:    cfg.Probes.SceneThreshold,
		SilenceNoiseDB:    cfg.Probes.SilenceNoiseDB,
		SilenceMinSeconds: cfg.Probes.SilenceMinSeconds,
		Rules:             insights.DefaultRules,
		AdapterProfile:    adapterProfile(cfg.AI),
	}
}

func adapterProfile(ai config.AIConfig) string {
	if ai.Provider == "gemini" {
		return "gemini/" + ai.Model
	}
	return "none"
}

// AdaptersFromConfig builds the external analysis adapters. Provider "none"
// yields disabled adapters so every run degrades to fallbacks.
func AdaptersFromConfig(ctx context.Context, logger zerolog.Logger, cfg *config.Config) (Adapters, error) {
	switch cfg.AI.Provider {
	case "", "none":
		d := adapters.Disabled{}
		return Adapters{Visual: d, Transcriber: d, Sentiment: d}, nil
	case "gemini":
		client, err := gemini.New(ctx, logger, gemini.Options{
			APIKey:         cfg.AI.GeminiAPIKey,
			Model:          cfg.AI.Model,
			Timeout:        cfg.AI.Timeout,
			MaxInlineBytes: int(cfg.AI.MaxInlineBytes),
		})
		if err != nil {
			return Adapters{}, err
		}
		return Adapters{Visual: client, Transcriber: client, Sentiment: client}, nil
	default:
		return Adapters{}, fmt.Errorf("unknown ai provider %q", cfg.AI.Provider)
	}
}

// NewFromConfig wires the ffmpeg executor and adapters described by cfg
func NewFromConfig(ctx context.Context, logger zerolog.Logger, cfg *config.Config, options ...Option) (*Pipeline, error) {
	exec, err := ffmpeg.New(logger, cfg.FFmpeg.BinaryPath, cfg.FFmpeg.Threads)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize ffmpeg: %w", err)
	}

	ad, err := AdaptersFromConfig(ctx, logger, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize adapters: %w", err)
	}

	return New(logger, exec, ad, OptionsFromConfig(cfg), options...)
}
