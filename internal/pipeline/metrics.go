package pipeline

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	metricNameStageDuration = "reelscore_stage_duration_seconds"
	metricNameFallbacks     = "reelscore_stage_fallback_total"
	metricNameCacheHits     = "reelscore_cache_hit_total"
)

type pipelineMetrics struct {
	duration  metric.Float64Histogram
	fallbacks metric.Int64Counter
	cacheHits metric.Int64Counter
}

func newPipelineMetrics(meter metric.Meter, logger zerolog.Logger) *pipelineMetrics {
	m := &pipelineMetrics{}
	if meter == nil {
		return m
	}

	var err error
	if m.duration, err = meter.Float64Histogram(metricNameStageDuration,
		metric.WithDescription("Wall time of each analysis stage"), metric.WithUnit("s")); err != nil {
		logger.Warn().Err(err).Msg("pipeline metrics: register stage histogram")
	}
	if m.fallbacks, err = meter.Int64Counter(metricNameFallbacks,
		metric.WithDescription("Number of stages that degraded to fallback content")); err != nil {
		logger.Warn().Err(err).Msg("pipeline metrics: register fallback counter")
	}
	if m.cacheHits, err = meter.Int64Counter(metricNameCacheHits,
		metric.WithDescription("Number of analyses served from cache")); err != nil {
		logger.Warn().Err(err).Msg("pipeline metrics: register cache counter")
	}
	return m
}

func (m *pipelineMetrics) recordStage(ctx context.Context, stage string, elapsed time.Duration) {
	if m == nil || m.duration == nil {
		return
	}
	m.duration.Record(ctx, elapsed.Seconds(), metric.WithAttributes(attribute.String("stage", stage)))
}

func (m *pipelineMetrics) recordFallback(ctx context.Context, stage string) {
	if m == nil || m.fallbacks == nil {
		return
	}
	m.fallbacks.Add(ctx, 1, metric.WithAttributes(attribute.String("stage", stage)))
}

func (m *pipelineMetrics) recordCacheHit(ctx context.Context) {
	if m == nil || m.cacheHits == nil {
		return
	}
	m.cacheHits.Add(ctx, 1)
}
