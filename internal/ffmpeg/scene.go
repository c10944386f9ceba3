package ffmpeg

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// MinSceneGap merges cuts closer than this; flashes and strobes otherwise
// count as several cuts.
const MinSceneGap = 250 * time.Millisecond

// DetectScenes returns the timestamps where the frame-difference score
// exceeds threshold, in ascending order.
func (e *Executor) DetectScenes(ctx context.Context, input string, threshold float64) ([]time.Duration, error) {
	if threshold <= 0 || threshold > 1 {
		return nil, fmt.Errorf("scene threshold must be in (0,1], got %v", threshold)
	}

	start := time.Now()
	output, err := e.runAnalysisFilter(ctx, input, "-vf",
		fmt.Sprintf("select='gt(scene,%f)',showinfo", threshold))
	if err != nil {
		return nil, fmt.Errorf("scene detection failed: %w", err)
	}

	cuts := mergeCloseCuts(parseSceneOutput(output), MinSceneGap)
	e.logger.Debug().
		Float64("threshold", threshold).
		Int("cuts", len(cuts)).
		Dur("elapsed", time.Since(start)).
		Msg("scene detection complete")
	return cuts, nil
}

// parseSceneOutput reads pts_time fields from showinfo lines
func parseSceneOutput(output string) []time.Duration {
	var cuts []time.Duration

	for _, line := range strings.Split(output, "\n") {
		if !strings.Contains(line, "Parsed_showinfo") {
			continue
		}
		_, rest, ok := strings.Cut(line, "pts_time:")
		if !ok {
			continue
		}
		fields := strings.Fields(rest)
		if len(fields) == 0 {
			continue
		}
		if seconds, err := strconv.ParseFloat(fields[0], 64); err == nil && seconds >= 0 {
			cuts = append(cuts, time.Duration(seconds*float64(time.Second)))
		}
	}

	return cuts
}

// mergeCloseCuts sorts cuts and drops any within gap of the previous kept cut
func mergeCloseCuts(cuts []time.Duration, gap time.Duration) []time.Duration {
	if len(cuts) == 0 {
		return []time.Duration{}
	}
	sort.Slice(cuts, func(i, j int) bool { return cuts[i] < cuts[j] })

	merged := []time.Duration{cuts[0]}
	for _, c := range cuts[1:] {
		if c-merged[len(merged)-1] >= gap {
			merged = append(merged, c)
		}
	}
	return merged
}
