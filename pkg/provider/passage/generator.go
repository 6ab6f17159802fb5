// Package passage defines the Generator interface for illustrated reading
// passage generation.
//
// A generator wraps a remote generative model (Gemini, OpenAI, a local
// Ollama instance) and produces short passages with practice words embedded
// at the positions the session planner requested. The scheduler treats each
// returned sentence as one display/reading unit and never validates its
// content beyond count and emptiness — content correctness is the
// generator's concern.
//
// Implementors must be safe for concurrent use.
package passage

import "context"

// PlacementRequest asks the generator to embed one practice word into the
// passage under the planner's constraints.
type PlacementRequest struct {
	// Word is the practice word to embed.
	Word string

	// Language is the word's language code ("en", "hi").
	Language string

	// SentenceSlot is the zero-based index of the sentence the word should
	// appear in.
	SentenceSlot int

	// AvoidTemplateID is the sentence template the word most recently
	// appeared in. The generator should pick a different template when it
	// can; empty means no constraint.
	AvoidTemplateID string

	// HighlightStyle is the visual emphasis the frontend applies to the word
	// ("karaoke").
	HighlightStyle string
}

// GradeProfile describes the reading level the passage should target.
type GradeProfile struct {
	// Grade is the school grade level (1-based).
	Grade int

	// WordCountMin and WordCountMax bound the passage length in words.
	// During a grade bridge these carry the bridge override.
	WordCountMin int
	WordCountMax int

	// SentenceTypes lists allowed sentence structures ("simple", "compound").
	SentenceTypes []string
}

// GenerateRequest carries everything the generator needs for one passage.
type GenerateRequest struct {
	// Language is the passage language code.
	Language string

	// Script is the expected writing system ("Latin", "Devanagari"); all
	// generated text must use it.
	Script string

	// Grade is the target reading level.
	Grade GradeProfile

	// TopicHint steers the passage subject (e.g. "animals", "space").
	TopicHint string

	// Placements are the practice words to embed and where.
	Placements []PlacementRequest

	// Rules constrain how the placements may sit within a sentence.
	Rules PlacementRules
}

// PlacementRules are the spacing constraints for embedded practice words
// within a sentence. Zero values mean no constraint.
type PlacementRules struct {
	// MinCharsBetween is the minimum number of characters separating two
	// practice words in the same sentence.
	MinCharsBetween int

	// MaxCluster is the longest allowed run of consecutive practice words.
	MaxCluster int
}

// Passage is a generated reading passage.
type Passage struct {
	// SubjectImageHint is a short description of the passage subject for the
	// illustration service.
	SubjectImageHint string

	// Sentences are the reading units in display order.
	Sentences []string
}

// Generator produces reading passages with embedded practice words.
type Generator interface {
	// Generate produces one passage for req. Implementations should honour
	// the placement requests on a best-effort basis; the caller has already
	// relaxed constraints it is willing to give up.
	Generate(ctx context.Context, req GenerateRequest) (*Passage, error)
}
