// Package config provides the configuration schema, loader, and generator
// registry for the Lexio word-mastery scheduler.
package config

// LogLevel controls log verbosity for the Lexio server.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// Config is the root configuration structure for Lexio.
// It is typically loaded from a YAML file using [Load] or [LoadFromReader].
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Store     StoreConfig     `yaml:"store"`
	Generator GeneratorConfig `yaml:"generator"`
	Practice  PracticeConfig  `yaml:"practice"`
	Languages []Language      `yaml:"languages"`
	Bridges   []BridgeConfig  `yaml:"bridges"`
}

// ServerConfig holds network and logging settings for the Lexio server.
type ServerConfig struct {
	// ListenAddr is the TCP address the server listens on (e.g., ":8080").
	ListenAddr string `yaml:"listen_addr"`

	// LogLevel controls verbosity.
	LogLevel LogLevel `yaml:"log_level"`
}

// StoreConfig selects the word record store backend.
type StoreConfig struct {
	// PostgresDSN is the PostgreSQL connection string for the word record
	// store. When empty, an in-memory store is used (records do not survive
	// a restart).
	PostgresDSN string `yaml:"postgres_dsn"`
}

// GeneratorConfig declares which passage generator implementation to use.
// Name is used to look up the constructor in the [Registry].
type GeneratorConfig struct {
	// Name selects the registered generator implementation
	// (e.g., "openai", "gemini", "ollama", "mock").
	Name string `yaml:"name"`

	// APIKey is the authentication key for the generator's API if any.
	APIKey string `yaml:"api_key"`

	// BaseURL overrides the generator's default API endpoint.
	BaseURL string `yaml:"base_url"`

	// Model selects a specific model within the provider (e.g., "gpt-4o-mini").
	Model string `yaml:"model"`

	// Options holds provider-specific configuration values not covered by the
	// standard fields above.
	Options map[string]any `yaml:"options"`

	// Fallbacks lists additional generator entries tried in order when this
	// one fails or its circuit breaker is open. Fallbacks of fallbacks are
	// ignored.
	Fallbacks []GeneratorConfig `yaml:"fallbacks"`
}

// PracticeConfig is the full word-mastery policy: how attempts are scored,
// how words move between states, and how practice is spaced and placed.
// Zero values are filled from [Default] at load time, so a config file only
// needs to override what it changes.
type PracticeConfig struct {
	Scoring     ScoringConfig     `yaml:"scoring"`
	Mastery     MasteryConfig     `yaml:"mastery"`
	Spacing     SpacingConfig     `yaml:"spacing"`
	Insertion   InsertionConfig   `yaml:"insertion"`
	Session     SessionConfig     `yaml:"session"`
	Instruction InstructionConfig `yaml:"instruction"`
}

// ScoringConfig holds the quality gates an attempt must pass to be scored at
// all. An attempt failing any gate is UNCERTAIN: it is retried in-session and
// never mutates a word record.
type ScoringConfig struct {
	// ASRConfidenceMin is the minimum recogniser confidence (0.0–1.0).
	ASRConfidenceMin float64 `yaml:"asr_confidence_min"`

	// SNRMinDb is the minimum signal-to-noise ratio in decibels.
	SNRMinDb float64 `yaml:"snr_min_db"`

	// TimingPercentileLow and TimingPercentileHigh bound the accepted band of
	// the attempt duration within the expected distribution.
	TimingPercentileLow  float64 `yaml:"timing_percentile_low"`
	TimingPercentileHigh float64 `yaml:"timing_percentile_high"`

	// Phoneme holds the phoneme-quality gate.
	Phoneme PhonemeConfig `yaml:"phoneme"`
}

// PhonemeConfig gates attempts on per-phoneme quality scores.
type PhonemeConfig struct {
	// AvgMin is the minimum acceptable mean phoneme quality.
	AvgMin float64 `yaml:"avg_min"`

	// LowThreshold marks an individual phoneme as low quality.
	LowThreshold float64 `yaml:"low_threshold"`

	// AllowLowCountMax is how many low-quality phonemes are tolerated before
	// the attempt is unscorable.
	AllowLowCountMax int `yaml:"allow_low_count_max"`
}

// MasteryConfig holds promotion, demotion, and maintenance rules.
type MasteryConfig struct {
	// Unflagged is the promotion window for Seen/PracticingUnflagged words.
	Unflagged PromotionWindow `yaml:"unflagged"`

	// Flagged is the stricter, shorter promotion window for PracticingFlagged
	// words (previously mastered, then mistaken).
	Flagged PromotionWindow `yaml:"flagged"`

	// DemotionWindowDays is the trailing window inspected for demotion from
	// Mastered.
	DemotionWindowDays int `yaml:"demotion_window_days"`

	// DemotionMinErrors is the number of clear errors within the window that
	// demotes a Mastered word to UnderReview.
	DemotionMinErrors int `yaml:"demotion_min_errors"`

	// MaintenanceIntervalsDays are the periodic check intervals for Mastered
	// words, ordered ascending. A GREEN check advances to the next interval; a
	// clear RED re-enters UnderReview immediately.
	MaintenanceIntervalsDays []int `yaml:"maintenance_intervals_days"`
}

// PromotionWindow describes the rolling-window statistics required to promote
// a word to Mastered.
type PromotionWindow struct {
	// LastK is the number of most recent attempts inspected.
	LastK int `yaml:"last_k"`

	// MinCorrect is the minimum GREEN count within the window.
	MinCorrect int `yaml:"min_correct"`

	// MinDistinctDays is the minimum number of distinct calendar days the
	// window's attempts must span.
	MinDistinctDays int `yaml:"min_distinct_days"`

	// MinDistinctSentences is the minimum number of distinct sentence
	// templates the word must have been attempted in.
	MinDistinctSentences int `yaml:"min_distinct_sentences"`
}

// SpacingConfig drives the half-life review model and its fixed checkpoint
// overrides.
type SpacingConfig struct {
	// HalfLifeStartUnflaggedDays seeds the half-life when a word enters
	// PracticingUnflagged.
	HalfLifeStartUnflaggedDays float64 `yaml:"half_life_start_unflagged_days"`

	// HalfLifeStartFlaggedDays seeds the half-life when a word enters
	// PracticingFlagged.
	HalfLifeStartFlaggedDays float64 `yaml:"half_life_start_flagged_days"`

	// OnSuccessMultiply and OnFailureMultiply scale the half-life after a
	// scored attempt.
	OnSuccessMultiply float64 `yaml:"on_success_multiply"`
	OnFailureMultiply float64 `yaml:"on_failure_multiply"`

	// HalfLifeMinDays and HalfLifeMaxDays clamp the half-life.
	HalfLifeMinDays float64 `yaml:"half_life_min_days"`
	HalfLifeMaxDays float64 `yaml:"half_life_max_days"`

	// FlaggedCheckpointsDays and UnflaggedCheckpointsDays are fixed re-surface
	// offsets in days from the moment a word entered practice (0 means
	// immediately). The due time for a word is the earlier of the
	// half-life-derived time and the next unvisited checkpoint.
	FlaggedCheckpointsDays   []float64 `yaml:"flagged_checkpoints_days"`
	UnflaggedCheckpointsDays []float64 `yaml:"unflagged_checkpoints_days"`
}

// InsertionConfig constrains how practice words are placed into generated
// passages.
type InsertionConfig struct {
	// DensityMinPct and DensityMaxPct bound the share of practice words in a
	// sentence's word count, in percent.
	DensityMinPct int `yaml:"density_min_pct"`
	DensityMaxPct int `yaml:"density_max_pct"`

	// BridgeDensityMinPct and BridgeDensityMaxPct replace the density band
	// during a grade-level bridge period.
	BridgeDensityMinPct int `yaml:"bridge_density_min_pct"`
	BridgeDensityMaxPct int `yaml:"bridge_density_max_pct"`

	// MaxPerSentence caps practice words per sentence.
	MaxPerSentence int `yaml:"max_per_sentence"`

	// MinCharsBetween is the minimum character gap between two practice words
	// in the same sentence.
	MinCharsBetween int `yaml:"min_chars_between"`

	// MaxCluster is the longest allowed run of consecutive practice words.
	MaxCluster int `yaml:"max_cluster"`

	// HighlightStyle is passed through to the frontend for practice words.
	HighlightStyle string `yaml:"highlight_style"`
}

// SessionConfig holds per-session planning limits.
type SessionConfig struct {
	// DailyCapMin and DailyCapMax bound the number of practice items surfaced
	// per day for younger grades. Overflow defers to the next day.
	DailyCapMin int `yaml:"daily_cap_min"`
	DailyCapMax int `yaml:"daily_cap_max"`

	// YoungGradeMax is the highest grade the daily cap applies to.
	YoungGradeMax int `yaml:"young_grade_max"`

	// RetestAfterSentencesMin and RetestAfterSentencesMax bound the in-session
	// micro-retest delay for unresolved UnderReview words.
	RetestAfterSentencesMin int `yaml:"retest_after_sentences_min"`
	RetestAfterSentencesMax int `yaml:"retest_after_sentences_max"`
}

// InstructionConfig describes when a word needs explicit instruction and what
// the micro-lesson looks like.
type InstructionConfig struct {
	// EnterMinErrors is the clear-error count that moves a not-yet-mastered
	// word into NeedsInstruction.
	EnterMinErrors int `yaml:"enter_min_errors"`

	// EnterMinDistinctDays is the number of distinct days those errors must
	// span.
	EnterMinDistinctDays int `yaml:"enter_min_distinct_days"`

	// ExitGreenChecks is the number of GREEN checks required after the lesson
	// before the word re-enters normal flow.
	ExitGreenChecks int `yaml:"exit_green_checks"`

	// LessonMinSeconds and LessonMaxSeconds bound the micro-lesson length.
	LessonMinSeconds int `yaml:"lesson_min_seconds"`
	LessonMaxSeconds int `yaml:"lesson_max_seconds"`

	// LessonSteps is the fixed step sequence of the micro-lesson.
	LessonSteps []string `yaml:"lesson_steps"`
}

// Language describes one supported practice language.
type Language struct {
	// Code is the language code used in word records and sessions ("en", "hi").
	Code string `yaml:"code"`

	// Name is the display name.
	Name string `yaml:"name"`

	// Script is the writing system ("Latin", "Devanagari").
	Script string `yaml:"script"`

	// ASRLocaleHint is forwarded to the capture frontend ("en-IN", "hi-IN").
	ASRLocaleHint string `yaml:"asr_locale_hint"`

	// VariantPacks lists the lexical/pronunciation variant packs applied when
	// matching a transcript against a target word.
	VariantPacks []string `yaml:"variant_packs"`

	// Phoneme overrides the global phoneme scoring gate for this language.
	// Nil means use the global gate.
	Phoneme *PhonemeConfig `yaml:"phoneme"`
}

// BridgeConfig eases difficulty between two grade levels. While a bridge is
// active the planner uses the bridge density band and the word-count override.
type BridgeConfig struct {
	// FromGrade and ToGrade identify the transition.
	FromGrade int `yaml:"from_grade"`
	ToGrade   int `yaml:"to_grade"`

	// WordRangeMin and WordRangeMax override the passage word-count range
	// during the bridge.
	WordRangeMin int `yaml:"word_range_min"`
	WordRangeMax int `yaml:"word_range_max"`

	// OnrampSessions is how many sessions the bridge lasts after entering the
	// target grade.
	OnrampSessions int `yaml:"onramp_sessions"`
}

// LanguageByCode returns the language profile for code, or nil when the code
// is not configured.
func (c *Config) LanguageByCode(code string) *Language {
	for i := range c.Languages {
		if c.Languages[i].Code == code {
			return &c.Languages[i]
		}
	}
	return nil
}

// BridgeFor returns the bridge profile entered when moving from fromGrade, or
// nil when no bridge is configured for that transition.
func (c *Config) BridgeFor(fromGrade int) *BridgeConfig {
	for i := range c.Bridges {
		if c.Bridges[i].FromGrade == fromGrade {
			return &c.Bridges[i]
		}
	}
	return nil
}
