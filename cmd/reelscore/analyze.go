package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/keagan/reelscore/internal/cache"
	"github.com/keagan/reelscore/internal/config"
	"github.com/keagan/reelscore/internal/events"
	"github.com/keagan/reelscore/internal/logging"
	"github.com/keagan/reelscore/internal/pipeline"
	"github.com/keagan/reelscore/internal/source"
	"github.com/keagan/reelscore/pkg/util"
)

var (
	outputPath string
	noProgress bool
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze [input video or gs://bucket/object]",
	Short: "Run the full analysis pipeline",
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

		var options []pipeline.Option

		if cfg.Cache.Enabled {
			client, err := cache.Connect(ctx, cfg.Cache.URL)
			if err != nil {
				return err
			}
			defer client.Close()
			options = append(options, pipeline.WithCache(cache.NewRedisResultStore(client, cfg.Cache.TTL)))
		}

		if cfg.Events.Enabled {
			pub, err := events.NewKafkaPublisher(cfg.Events.Brokers, map[string]string{events.AnalysisCompleted: cfg.Events.Topic})
			if err != nil {
				return err
			}
			defer pub.Close()
			options = append(options, pipeline.WithPublisher(pub))
		}

		var bar *progressbar.ProgressBar
		if !noProgress {
			bar = newStageBar()
			options = append(options, pipeline.WithProgress(func(stage string) {
				bar.Describe(stage)
				_ = bar.Add(1)
			}))
		}

		pipe, err := pipeline.NewFromConfig(ctx, log.Logger, cfg, options...)
		if err != nil {
			return err
		}

		result, err := pipe.Analyze(ctx, resolved.Input, resolved.URI)
		if bar != nil {
			_ = bar.Finish()
			fmt.Fprintln(os.Stderr)
		}
		if err != nil {
			return err
		}

		logger := logging.WithComponent("analyze")
		logger.Info().
			Str("id", result.ID.String()).
			Int("overall", result.Technical.Overall).
			Int("viral_score", result.Engagement.ViralScore).
			Int64("predicted_views", result.Engagement.PredictedViews).
			Msg("analysis complete")

		return writeJSON(outputPath, result)
	},
}

func init() {
	analyzeCmd.Flags().StringVarP(&outputPath, "output", "o", "", "write the JSON result to this file (default: stdout)")
	analyzeCmd.Flags().BoolVar(&noProgress, "no-progress", false, "hide the stage progress bar")
}

func newStageBar() *progressbar.ProgressBar {
	return progressbar.NewOptions(len(pipeline.Stages),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSetDescription("Analyzing"),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "█",
			SaucerHead:    "█",
			SaucerPadding: "░",
			BarStart:      "▐",
			BarEnd:        "▌",
		}),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetRenderBlankState(true),
	)
}

// resolveSource validates the target and returns a local copy plus a closer
// for any object storage client it opened.
func resolveSource(ctx context.Context, cfg *config.Config, uri string) (*source.Resolved, func(), error) {
	constraints := source.Constraints{
		AllowedMIMETypes: cfg.Input.AllowedMIMETypes,
		MaxBytes:         cfg.Input.MaxBytes,
	}
	closer := func() {}

	var opts []source.Option
	if strings.HasPrefix(uri, "gs://") {
		store, err := source.NewGCSStore(ctx)
		if err != nil {
			return nil, closer, err
		}
		closer = func() { _ = store.Close() }
		opts = append(opts, source.WithObjectStore(store))
	}

	resolver := source.NewResolver(log.Logger, cfg.TempDir, constraints, opts...)
	resolved, err := resolver.Resolve(ctx, uri)
	if err != nil {
		closer()
		return nil, func() {}, err
	}
	return resolved, closer, nil
}

func writeJSON(path string, v any) error {
	var w io.Writer = os.Stdout
	if path != "" {
		if err := util.EnsureDir(filepath.Dir(path)); err != nil {
			return err
		}
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("create output: %w", err)
		}
		defer f.Close()
		w = f
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
