package gemini

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"unicode/utf8"

	"github.com/keagan/reelscore/internal/adapters"
	"github.com/keagan/reelscore/pkg/util"
)

const transcriptPrompt = `Transcribe the speech in this audio clip.

Respond with JSON only, in this format:
{
  "text": "full transcript",
  "language": "ISO 639-1 code",
  "confidence": number (0-1),
  "segments": [{"start": seconds, "end": seconds, "text": "segment text"}]
}

If there is no intelligible speech, return an empty "text" and no segments.`

func visualPrompt(frames []adapters.FrameInput) string {
	var b strings.Builder
	b.WriteString("You are given still frames sampled from one short video, in order.\n")
	for i, f := range frames {
		fmt.Fprintf(&b, "Frame %d: %.1fs\n", i, f.TimestampSeconds)
	}
	b.WriteString(`
Describe the video for a social media performance review.

Respond with JSON only, in this format:
{
  "description": "2-3 sentence summary of what is shown",
  "objects": [{"name": "object", "confidence": number (0-1)}],
  "dominant_colors": ["color name"],
  "emotions": ["emotion conveyed by the visuals, e.g. joy, surprise, calm"],
  "expressions": [{"frame": frame index, "expression": "facial expression", "intensity": number (0-1)}],
  "quality": "one word production quality label"
}`)
	return b.String()
}

func sentimentPrompt(text string) string {
	return fmt.Sprintf(`Classify the sentiment of this video transcript.

TRANSCRIPT:
%s

Respond with JSON only, in this format:
{
  "label": "positive" | "neutral" | "negative",
  "confidence": number (0-1),
  "emotions": {"joy": 0-100, "surprise": 0-100, "anger": 0-100, "fear": 0-100, "sadness": 0-100, "trust": 0-100},
  "keywords": ["salient keyword"]
}`, truncate(text, 8000))
}

// extractJSON returns the outermost object in a model reply
func extractJSON(response string) (string, error) {
	start := strings.Index(response, "{")
	end := strings.LastIndex(response, "}")
	if start == -1 || end == -1 || end < start {
		return "", fmt.Errorf("no JSON found in response: %s", truncate(response, 200))
	}
	return response[start : end+1], nil
}

// decodeReply unmarshals a reply, retrying once on a sanitized copy
func decodeReply(response string, v any) error {
	raw, err := extractJSON(response)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		if sanitizedErr := json.Unmarshal([]byte(sanitizeJSON(raw)), v); sanitizedErr != nil {
			return fmt.Errorf("failed to unmarshal reply: %w (sanitized version also failed: %v)", err, sanitizedErr)
		}
	}
	return nil
}

// sanitizeJSON escapes stray quotes inside single-line string values
func sanitizeJSON(raw string) string {
	lines := strings.Split(raw, "\n")
	out := make([]string, 0, len(lines))

	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		colon := strings.Index(line, ":")
		if colon != -1 {
			key := line[:colon+1]
			value := strings.TrimSpace(line[colon+1:])
			if strings.HasPrefix(value, "\"") {
				if last := strings.LastIndex(value, "\""); last > 0 {
					content := strings.ReplaceAll(value[1:last], `\"`, `"`)
					content = strings.ReplaceAll(content, `"`, `\"`)
					line = key + " \"" + content + "\"" + value[last+1:]
				}
			}
		}
		out = append(out, line)
	}
	return strings.Join(out, "\n")
}

type visualReply struct {
	Description string `json:"description"`
	Objects     []struct {
		Name       string  `json:"name"`
		Confidence float64 `json:"confidence"`
	} `json:"objects"`
	DominantColors []string `json:"dominant_colors"`
	Emotions       []string `json:"emotions"`
	Expressions    []struct {
		Frame      int     `json:"frame"`
		Expression string  `json:"expression"`
		Intensity  float64 `json:"intensity"`
	} `json:"expressions"`
	Quality string `json:"quality"`
}

func parseVisual(response string, frames []adapters.FrameInput) (adapters.VisualSummary, error) {
	var reply visualReply
	if err := decodeReply(response, &reply); err != nil {
		return adapters.VisualSummary{}, err
	}
	if strings.TrimSpace(reply.Description) == "" {
		return adapters.VisualSummary{}, fmt.Errorf("visual description is required but was empty")
	}

	summary := adapters.VisualSummary{
		Description:     strings.TrimSpace(reply.Description),
		DetectedObjects: make([]adapters.DetectedObject, 0, len(reply.Objects)),
		DominantColors:  cleanList(reply.DominantColors),
		Emotions:        cleanList(reply.Emotions),
		Expressions:     make([]adapters.ExpressionCue, 0, len(reply.Expressions)),
		QualityLabel:    strings.TrimSpace(reply.Quality),
	}

	for _, o := range reply.Objects {
		name := strings.ToLower(strings.TrimSpace(o.Name))
		if name == "" {
			continue
		}
		summary.DetectedObjects = append(summary.DetectedObjects, adapters.DetectedObject{Name: name, Confidence: o.Confidence})
	}

	for _, e := range reply.Expressions {
		// cues that point at frames we never sent are dropped
		if e.Frame < 0 || e.Frame >= len(frames) || strings.TrimSpace(e.Expression) == "" {
			continue
		}
		summary.Expressions = append(summary.Expressions, adapters.ExpressionCue{
			TimestampSeconds: frames[e.Frame].TimestampSeconds,
			Expression:       strings.ToLower(strings.TrimSpace(e.Expression)),
			Intensity:        e.Intensity,
		})
	}

	return summary, nil
}

type transcriptReply struct {
	Text       string  `json:"text"`
	Language   string  `json:"language"`
	Confidence float64 `json:"confidence"`
	Segments   []struct {
		Start float64 `json:"start"`
		End   float64 `json:"end"`
		Text  string  `json:"text"`
	} `json:"segments"`
}

func parseTranscript(response string) (adapters.Transcript, error) {
	var reply transcriptReply
	if err := decodeReply(response, &reply); err != nil {
		return adapters.Transcript{}, err
	}

	t := adapters.Transcript{
		Text:       strings.TrimSpace(reply.Text),
		Language:   strings.TrimSpace(reply.Language),
		Confidence: reply.Confidence,
		Segments:   make([]adapters.Segment, 0, len(reply.Segments)),
	}
	for _, s := range reply.Segments {
		if s.End < s.Start {
			s.End = s.Start
		}
		t.Segments = append(t.Segments, adapters.Segment{StartSeconds: s.Start, EndSeconds: s.End, Text: strings.TrimSpace(s.Text)})
	}
	return t, nil
}

type sentimentReply struct {
	Label      string             `json:"label"`
	Confidence float64            `json:"confidence"`
	Emotions   map[string]float64 `json:"emotions"`
	Keywords   []string           `json:"keywords"`
}

func parseSentiment(response string) (adapters.SentimentResult, error) {
	var reply sentimentReply
	if err := decodeReply(response, &reply); err != nil {
		return adapters.SentimentResult{}, err
	}
	if strings.TrimSpace(reply.Label) == "" {
		return adapters.SentimentResult{}, fmt.Errorf("sentiment label is required but was empty")
	}

	emotions := make(map[string]int, len(reply.Emotions))
	for k, v := range reply.Emotions {
		emotions[k] = int(math.Round(util.ClampFloat(v, 0, 100)))
	}

	return adapters.NormalizeSentiment(adapters.SentimentResult{
		Label:      adapters.ParseLabel(reply.Label),
		Confidence: reply.Confidence,
		Emotions:   emotions,
		Keywords:   cleanList(reply.Keywords),
	}), nil
}

func cleanList(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]bool, len(in))
	for _, s := range in {
		s = strings.ToLower(strings.TrimSpace(s))
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	cut := maxLen
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
