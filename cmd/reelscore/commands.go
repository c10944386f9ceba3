package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/keagan/reelscore/internal/config"
	"github.com/keagan/reelscore/internal/ffmpeg"
	"github.com/keagan/reelscore/internal/media"
	"github.com/keagan/reelscore/internal/quality"
	"github.com/keagan/reelscore/pkg/util"
)

var sampleRate int

var scoreCmd = &cobra.Command{
	Use:   "score [input video]",
	Short: "Score technical quality and platform fit from metadata only",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		cfg := config.FromContext(ctx)

		resolved, closeSource, err := resolveSource(ctx, cfg, args[0])
		if err != nil {
			return err
		}
		defer closeSource()
		defer resolved.Cleanup()

		exec, err := ffmpeg.New(log.Logger, cfg.FFmpeg.BinaryPath, cfg.FFmpeg.Threads)
		if err != nil {
			return err
		}

		meta, err := media.ExtractMetadata(ctx, exec, resolved.Input)
		if err != nil {
			return err
		}

		report := quality.Score(meta)
		best := report.BestPlatform()
		log.Info().
			Int("overall", report.Overall).
			Str("best_platform", string(best.Platform)).
			Int("best_fit", best.Score).
			Msg("scoring complete")

		return writeJSON(outputPath, struct {
			Metadata media.VideoMetadata `json:"metadata"`
			Quality  quality.Report      `json:"quality"`
		}{meta, report})
	},
}

var extractAudioCmd = &cobra.Command{
	Use:   "extract-audio [input video] [output.wav]",
	Short: "Decode the audio track to a mono 16-bit WAV file",
	Long:  "Decode the audio track to a mono 16-bit WAV file. Without an output path the file is written to the work directory.",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		cfg := config.FromContext(ctx)

		resolved, closeSource, err := resolveSource(ctx, cfg, args[0])
		if err != nil {
			return err
		}
		defer closeSource()
		defer resolved.Cleanup()

		exec, err := ffmpeg.New(log.Logger, cfg.FFmpeg.BinaryPath, cfg.FFmpeg.Threads)
		if err != nil {
			return err
		}

		meta, err := media.ExtractMetadata(ctx, exec, resolved.Input)
		if err != nil {
			return err
		}

		rate := sampleRate
		if rate == 0 {
			rate = cfg.Sampling.AudioSampleRate
		}
		audio, err := media.ExtractAudio(ctx, exec, resolved.Input.Path, meta, media.AudioOptions{SampleRate: rate})
		if err != nil {
			return err
		}

		out := defaultWAVPath(cfg.WorkDir, meta.OriginalName)
		if len(args) == 2 {
			out = args[1]
		}
		if err := util.EnsureDir(filepath.Dir(out)); err != nil {
			return err
		}
		if err := os.WriteFile(out, audio.WAV, 0644); err != nil {
			return fmt.Errorf("write wav: %w", err)
		}

		log.Info().
			Str("output", out).
			Int("sample_rate", audio.SampleRate).
			Int("samples", audio.SampleCount).
			Float64("duration", audio.DurationSeconds).
			Msg("audio extracted")
		return nil
	},
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Config management commands",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := *config.FromContext(cmd.Context())
		if cfg.AI.GeminiAPIKey != "" {
			cfg.AI.GeminiAPIKey = "********"
		}
		data, err := yaml.Marshal(&cfg)
		if err != nil {
			return err
		}
		_, err = cmd.OutOrStdout().Write(data)
		return err
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Write the default configuration to a file",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := "./config.yaml"
		if len(args) == 1 {
			path = args[0]
		}
		if util.FileExists(path) {
			return fmt.Errorf("%s already exists", path)
		}
		if err := util.EnsureDir(filepath.Dir(path)); err != nil {
			return err
		}
		if err := config.Default().Save(path); err != nil {
			return err
		}
		log.Info().Str("path", path).Msg("config written")
		return nil
	},
}

// defaultWAVPath places <name>.wav under the work directory
func defaultWAVPath(workDir, name string) string {
	base := strings.TrimSuffix(filepath.Base(name), filepath.Ext(name))
	if base == "" || base == "." {
		base = "audio"
	}
	return filepath.Join(workDir, base+".wav")
}

func init() {
	scoreCmd.Flags().StringVarP(&outputPath, "output", "o", "", "write the JSON result to this file (default: stdout)")
	extractAudioCmd.Flags().IntVar(&sampleRate, "sample-rate", 0, "output sample rate in Hz (default: source rate)")

	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configInitCmd)
}
