package signals

import (
	"strings"
	"unicode"
)

// Trigger names
const (
	TriggerCuriosity   = "curiosity"
	TriggerUrgency     = "urgency"
	TriggerSocialProof = "social_proof"
	TriggerControversy = "controversy"
)

// Trigger is a psychological trigger found in the clip's words
type Trigger struct {
	Name     string   `json:"name"`
	Evidence []string `json:"evidence"`
}

// triggerLexicon is ordered; detection output follows this order
var triggerLexicon = []struct {
	name    string
	phrases []string
}{
	{TriggerCuriosity, []string{"secret", "you won't believe", "what happens", "revealed", "mystery", "the truth", "nobody tells", "wait for it", "guess what", "plot twist"}},
	{TriggerUrgency, []string{"right now", "act now", "today only", "limited", "hurry", "last chance", "don't miss", "ends soon", "before it's gone"}},
	{TriggerSocialProof, []string{"everyone", "million", "viral", "trending", "thousands of", "best selling", "five star", "reviews", "people are"}},
	{TriggerControversy, []string{"unpopular opinion", "controversial", "hot take", "overrated", "myth", "debate", "wrong about", "nobody agrees"}},
}

// triggerCorpus joins every genuine text source
func triggerCorpus(in Input) string {
	var parts []string
	if !in.Transcript.Fallback {
		parts = append(parts, in.Transcript.Value.Text)
	}
	if !in.Sentiment.Fallback {
		parts = append(parts, in.Sentiment.Value.Keywords...)
	}
	if !in.Visual.Fallback {
		parts = append(parts, in.Visual.Value.Description)
	}
	return strings.Join(parts, " ")
}

func detectTriggers(text string) []Trigger {
	found := []Trigger{}
	words := tokenize(text)
	if len(words) == 0 {
		return found
	}
	padded := " " + strings.Join(words, " ") + " "

	for _, entry := range triggerLexicon {
		var evidence []string
		for _, phrase := range entry.phrases {
			if strings.Contains(padded, " "+phrase+" ") {
				evidence = append(evidence, phrase)
			}
		}
		if len(evidence) > 0 {
			found = append(found, Trigger{Name: entry.name, Evidence: evidence})
		}
	}
	return found
}

// tokenize lowercases text and splits on anything but letters, digits and
// apostrophes. Curly apostrophes are folded to ASCII.
func tokenize(text string) []string {
	text = strings.ToLower(strings.ReplaceAll(text, "’", "'"))
	words := strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '\''
	})
	out := words[:0]
	for _, w := range words {
		w = strings.Trim(w, "'")
		if w != "" {
			out = append(out, w)
		}
	}
	return out
}
