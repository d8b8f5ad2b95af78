package llm

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/csheth/sanctuary/internal/i18n"
)

// SilentReply stands in for an empty but otherwise successful conversation reply.
const SilentReply = "The sanctuary remains silent. Please attempt to re-engage."

const systemInstruction = `You are an Elite Intellectual Researcher. Before answering any query about the uploaded PDF, you must:
1. Analyze the author's philosophical/scientific school of thought.
2. Determine the book's specific context (Historical, Technical, or Literary).
3. Synthesize answers that align with the author's depth, maintaining a high cultural and intellectual tone.
4. Remember all previous interactions in the current session for a seamless deep dialogue.
Your tone is sophisticated, academic, and deeply analytical. When generating flashcards, ensure the 'definition' is scholarly, profound, and axiomatic.`

func buildExtractionPrompt(lang i18n.Language) string {
	return fmt.Sprintf(
		"Based on your deep authorial analysis, synthesize %d 'Knowledge Axioms'. Output in %s in JSON format.",
		AxiomCount, lang.EnglishName(),
	)
}

// parseAxioms accepts a bare JSON array or an {"axioms": [...]} wrapper,
// optionally fenced in Markdown. Every entry must carry both fields.
func parseAxioms(raw string) ([]Axiom, error) {
	raw = stripCodeFence(raw)
	if raw == "" {
		return nil, fmt.Errorf("%w: empty axiom payload", ErrMalformedResponse)
	}

	candidates := []string{raw}
	if start := strings.Index(raw, "["); start >= 0 {
		if end := strings.LastIndex(raw, "]"); end > start {
			candidates = append(candidates, raw[start:end+1])
		}
	}

	for _, candidate := range candidates {
		var arr []Axiom
		if err := json.Unmarshal([]byte(candidate), &arr); err == nil {
			return validateAxioms(arr)
		}
		var wrapper struct {
			Axioms []Axiom `json:"axioms"`
		}
		if err := json.Unmarshal([]byte(candidate), &wrapper); err == nil && wrapper.Axioms != nil {
			return validateAxioms(wrapper.Axioms)
		}
	}
	return nil, fmt.Errorf("%w: unable to parse axiom payload", ErrMalformedResponse)
}

func validateAxioms(items []Axiom) ([]Axiom, error) {
	if len(items) == 0 {
		return nil, fmt.Errorf("%w: no axioms returned", ErrMalformedResponse)
	}
	result := make([]Axiom, 0, len(items))
	for i, item := range items {
		axiom := Axiom{
			Term:       strings.TrimSpace(item.Term),
			Definition: strings.TrimSpace(item.Definition),
		}
		if axiom.Term == "" || axiom.Definition == "" {
			return nil, fmt.Errorf("%w: axiom %d is missing a term or definition", ErrMalformedResponse, i+1)
		}
		result = append(result, axiom)
	}
	return result, nil
}

func stripCodeFence(raw string) string {
	raw = strings.TrimSpace(raw)
	if !strings.HasPrefix(raw, "```") {
		return raw
	}
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.TrimPrefix(raw, "```")
	raw = strings.TrimSuffix(strings.TrimSpace(raw), "```")
	return strings.TrimSpace(raw)
}

func normalizeReply(reply string) string {
	reply = strings.TrimSpace(reply)
	if reply == "" {
		return SilentReply
	}
	return reply
}

func clipBody(body []byte) string {
	const limit = 512
	if len(body) <= limit {
		return string(body)
	}
	return string(body[:limit]) + "…"
}
