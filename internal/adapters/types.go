// Package adapters defines the boundary with external analysis services and
// wraps every call so a failure degrades to a named fallback value.
package adapters

import (
	"context"
	"errors"
)

var ErrAdapterDisabled = errors.New("adapter disabled")

// FrameInput is one encoded still handed to a visual analyzer
type FrameInput struct {
	Image            []byte
	MIMEType         string
	TimestampSeconds float64
}

// DetectedObject is a named object with detector confidence in [0,1]
type DetectedObject struct {
	Name       string  `json:"name"`
	Confidence float64 `json:"confidence"`
}

// ExpressionCue is a facial expression observed at a point in the clip
type ExpressionCue struct {
	TimestampSeconds float64 `json:"timestamp_seconds"`
	Expression       string  `json:"expression"`
	Intensity        float64 `json:"intensity"`
}

// VisualSummary describes a sequence of frames
type VisualSummary struct {
	Available       bool             `json:"available"`
	Description     string           `json:"description"`
	DetectedObjects []DetectedObject `json:"detected_objects"`
	DominantColors  []string         `json:"dominant_colors"`
	Emotions        []string         `json:"emotions"`
	Expressions     []ExpressionCue  `json:"expressions"`
	QualityLabel    string           `json:"quality_label"`
}

// Segment is a timed piece of a transcript
type Segment struct {
	StartSeconds float64 `json:"start_seconds"`
	EndSeconds   float64 `json:"end_seconds"`
	Text         string  `json:"text"`
}

// Transcript is the speech content of the clip
type Transcript struct {
	Text       string    `json:"text"`
	Segments   []Segment `json:"segments"`
	Language   string    `json:"language,omitempty"`
	Confidence float64   `json:"confidence"`
}

// SentimentLabel is the overall polarity
type SentimentLabel string

const (
	Positive SentimentLabel = "Positive"
	Neutral  SentimentLabel = "Neutral"
	Negative SentimentLabel = "Negative"
)

// SentimentResult is the polarity and emotion breakdown of a text
type SentimentResult struct {
	Label      SentimentLabel `json:"label"`
	Confidence float64        `json:"confidence"`
	Emotions   map[string]int `json:"emotions"`
	Keywords   []string       `json:"keywords"`
}

// VisualAnalyzer summarizes an ordered set of frames
type VisualAnalyzer interface {
	DescribeFrames(ctx context.Context, frames []FrameInput) (VisualSummary, error)
}

// Transcriber turns a WAV payload into text
type Transcriber interface {
	Transcribe(ctx context.Context, wav []byte) (Transcript, error)
}

// SentimentAnalyzer classifies transcript text
type SentimentAnalyzer interface {
	AnalyzeSentiment(ctx context.Context, text string) (SentimentResult, error)
}

// Disabled implements every adapter interface and always fails
type Disabled struct{}

func (Disabled) DescribeFrames(context.Context, []FrameInput) (VisualSummary, error) {
	return VisualSummary{}, ErrAdapterDisabled
}

func (Disabled) Transcribe(context.Context, []byte) (Transcript, error) {
	return Transcript{}, ErrAdapterDisabled
}

func (Disabled) AnalyzeSentiment(context.Context, string) (SentimentResult, error) {
	return SentimentResult{}, ErrAdapterDisabled
}
