// Package gemini implements the visual, transcription and sentiment adapters
// on top of the Gemini API.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"google.golang.org/genai"

	"github.com/keagan/reelscore/internal/adapters"
)

// DefaultMaxInlineBytes stays under the inline request limit of the API
const DefaultMaxInlineBytes = 18 << 20

var (
	ErrPayloadTooLarge = errors.New("payload exceeds inline request limit")
	ErrEmptyResponse   = errors.New("empty response from model")
)

// Options configures the client
type Options struct {
	APIKey         string
	Model          string
	Timeout        time.Duration
	MaxInlineBytes int
}

// Client serves all three adapter interfaces with one Gemini client
type Client struct {
	client         *genai.Client
	model          string
	timeout        time.Duration
	maxInlineBytes int
	logger         zerolog.Logger
}

var (
	_ adapters.VisualAnalyzer    = (*Client)(nil)
	_ adapters.Transcriber       = (*Client)(nil)
	_ adapters.SentimentAnalyzer = (*Client)(nil)
)

// New creates a Gemini-backed adapter client
func New(ctx context.Context, logger zerolog.Logger, opts Options) (*Client, error) {
	if opts.APIKey == "" {
		return nil, fmt.Errorf("gemini api key is required")
	}
	if opts.Model == "" {
		return nil, fmt.Errorf("gemini model is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  opts.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	maxInline := opts.MaxInlineBytes
	if maxInline <= 0 {
		maxInline = DefaultMaxInlineBytes
	}

	return &Client{
		client:         client,
		model:          opts.Model,
		timeout:        opts.Timeout,
		maxInlineBytes: maxInline,
		logger:         logger.With().Str("component", "gemini").Str("model", opts.Model).Logger(),
	}, nil
}

// DescribeFrames sends every frame inline with the visual prompt
func (c *Client) DescribeFrames(ctx context.Context, frames []adapters.FrameInput) (adapters.VisualSummary, error) {
	parts := []*genai.Part{genai.NewPartFromText(visualPrompt(frames))}
	size := 0
	for _, f := range frames {
		size += len(f.Image)
		parts = append(parts, genai.NewPartFromBytes(f.Image, f.MIMEType))
	}
	if size > c.maxInlineBytes {
		return adapters.VisualSummary{}, fmt.Errorf("%w: %d frame bytes", ErrPayloadTooLarge, size)
	}

	text, err := c.generate(ctx, "visual", parts)
	if err != nil {
		return adapters.VisualSummary{}, err
	}
	return parseVisual(text, frames)
}

// Transcribe sends the WAV payload inline
func (c *Client) Transcribe(ctx context.Context, wav []byte) (adapters.Transcript, error) {
	if len(wav) > c.maxInlineBytes {
		return adapters.Transcript{}, fmt.Errorf("%w: %d audio bytes", ErrPayloadTooLarge, len(wav))
	}

	parts := []*genai.Part{
		genai.NewPartFromText(transcriptPrompt),
		genai.NewPartFromBytes(wav, "audio/wav"),
	}

	text, err := c.generate(ctx, "transcript", parts)
	if err != nil {
		return adapters.Transcript{}, err
	}
	return parseTranscript(text)
}

// AnalyzeSentiment classifies transcript text
func (c *Client) AnalyzeSentiment(ctx context.Context, text string) (adapters.SentimentResult, error) {
	parts := []*genai.Part{genai.NewPartFromText(sentimentPrompt(text))}

	reply, err := c.generate(ctx, "sentiment", parts)
	if err != nil {
		return adapters.SentimentResult{}, err
	}
	return parseSentiment(reply)
}

func (c *Client) generate(ctx context.Context, task string, parts []*genai.Part) (string, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	contents := []*genai.Content{
		genai.NewContentFromParts(parts, genai.RoleUser),
	}
	config := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
	}

	start := time.Now()
	result, err := c.client.Models.GenerateContent(ctx, c.model, contents, config)
	if err != nil {
		return "", fmt.Errorf("%s request failed: %w", task, err)
	}

	text := result.Text()
	c.logger.Debug().
		Str("task", task).
		Dur("elapsed", time.Since(start)).
		Int("response_len", len(text)).
		Msg("model response received")

	if text == "" {
		return "", fmt.Errorf("%s: %w", task, ErrEmptyResponse)
	}
	return text, nil
}
