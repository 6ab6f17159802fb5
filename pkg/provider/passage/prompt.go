package passage

import (
	"encoding/json"
	"fmt"
	"strings"
)

// SystemInstruction is the system prompt shared by the LLM-backed generators.
// The response contract (single JSON object, no code fences) matches what the
// reading frontend expects to render.
const SystemInstruction = `You are a children's reading passage writer.
- Write short, warm, age-appropriate passages for early readers.
- Your entire response MUST be a single, valid JSON object.
- Do NOT use markdown code fences or any other text outside the JSON object.
- The JSON object has exactly two keys: "subject" (a short string describing
  the passage subject for an illustrator) and "sentences" (an array of strings,
  one complete sentence per element).`

// BuildUserPrompt renders req as the user message for an LLM-backed
// generator.
func BuildUserPrompt(req GenerateRequest) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Write a passage in language %q (script: %s) for grade %d.\n",
		req.Language, req.Script, req.Grade.Grade)
	if req.Grade.WordCountMin > 0 || req.Grade.WordCountMax > 0 {
		fmt.Fprintf(&b, "Total length: between %d and %d words.\n",
			req.Grade.WordCountMin, req.Grade.WordCountMax)
	}
	if len(req.Grade.SentenceTypes) > 0 {
		fmt.Fprintf(&b, "Allowed sentence structures: %s.\n",
			strings.Join(req.Grade.SentenceTypes, ", "))
	}
	if req.TopicHint != "" {
		fmt.Fprintf(&b, "Topic: %s.\n", req.TopicHint)
	}

	if len(req.Placements) > 0 {
		b.WriteString("Embed each of these practice words exactly once, in the given sentence (0-based index):\n")
		for _, p := range req.Placements {
			fmt.Fprintf(&b, "- %q in sentence %d", p.Word, p.SentenceSlot)
			if p.AvoidTemplateID != "" {
				fmt.Fprintf(&b, " (use a different sentence pattern than last time)")
			}
			b.WriteString("\n")
		}
		if req.Rules.MinCharsBetween > 0 {
			fmt.Fprintf(&b, "Keep at least %d characters between any two practice words.\n",
				req.Rules.MinCharsBetween)
		}
		if req.Rules.MaxCluster > 0 {
			fmt.Fprintf(&b, "Never place more than %d practice words in a row.\n",
				req.Rules.MaxCluster)
		}
	}

	return b.String()
}

// ParseResponse decodes an LLM response body into a [Passage]. It tolerates
// markdown code fences around the JSON, which some models emit despite
// instructions.
func ParseResponse(text string) (*Passage, error) {
	cleaned := strings.TrimSpace(text)
	if after, ok := strings.CutPrefix(cleaned, "```json"); ok {
		cleaned = after
	} else if after, ok := strings.CutPrefix(cleaned, "```"); ok {
		cleaned = after
	}
	cleaned = strings.TrimSuffix(strings.TrimSpace(cleaned), "```")
	cleaned = strings.TrimSpace(cleaned)

	var body struct {
		Subject   string   `json:"subject"`
		Sentences []string `json:"sentences"`
	}
	if err := json.Unmarshal([]byte(cleaned), &body); err != nil {
		return nil, fmt.Errorf("passage: decode response: %w", err)
	}
	if len(body.Sentences) == 0 {
		return nil, fmt.Errorf("passage: response contains no sentences")
	}
	for i, s := range body.Sentences {
		if strings.TrimSpace(s) == "" {
			return nil, fmt.Errorf("passage: sentence %d is empty", i)
		}
	}
	return &Passage{
		SubjectImageHint: body.Subject,
		Sentences:        body.Sentences,
	}, nil
}
