package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"
	"sort"

	"gopkg.in/yaml.v3"
)

// ValidGeneratorNames lists known passage generator provider names.
// Used by [Validate] to warn about unrecognised names.
var ValidGeneratorNames = []string{
	"openai", "gemini", "anthropic", "ollama", "deepseek", "mistral", "groq", "mock",
}

// Load reads the YAML configuration file at path, overlays it on [Default],
// and returns the validated result. It is a convenience wrapper around
// [LoadFromReader] and [Validate].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r on top of [Default] and
// validates the result. Useful in tests where configs are constructed from
// string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	// Server
	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}

	// Generator name — warn only; third-party registrations are allowed.
	if name := cfg.Generator.Name; name != "" && !slices.Contains(ValidGeneratorNames, name) {
		slog.Warn("unknown generator name — may be a typo or third-party provider",
			"name", name,
			"known", ValidGeneratorNames,
		)
	}
	if cfg.Generator.Name == "" {
		slog.Warn("generator.name is empty; session planning will produce placement requests but no passages can be generated")
	}
	for i, fb := range cfg.Generator.Fallbacks {
		if fb.Name == "" {
			errs = append(errs, fmt.Errorf("generator.fallbacks[%d].name is required", i))
		}
	}
	if cfg.Store.PostgresDSN == "" {
		slog.Warn("store.postgres_dsn is empty; word records are kept in memory and will not survive a restart")
	}

	errs = append(errs, validateScoring(&cfg.Practice.Scoring)...)
	errs = append(errs, validateMastery(&cfg.Practice.Mastery)...)
	errs = append(errs, validateSpacing(&cfg.Practice.Spacing)...)
	errs = append(errs, validateInsertion(&cfg.Practice.Insertion)...)
	errs = append(errs, validateSession(&cfg.Practice.Session)...)

	if cfg.Practice.Instruction.EnterMinErrors < 1 {
		errs = append(errs, fmt.Errorf("practice.instruction.enter_min_errors must be >= 1"))
	}

	// Languages
	if len(cfg.Languages) == 0 {
		errs = append(errs, fmt.Errorf("languages must list at least one language"))
	}
	codesSeen := make(map[string]int, len(cfg.Languages))
	for i, lang := range cfg.Languages {
		prefix := fmt.Sprintf("languages[%d]", i)
		if lang.Code == "" {
			errs = append(errs, fmt.Errorf("%s.code is required", prefix))
		} else if prev, ok := codesSeen[lang.Code]; ok {
			errs = append(errs, fmt.Errorf("%s.code %q is a duplicate of languages[%d]", prefix, lang.Code, prev))
		} else {
			codesSeen[lang.Code] = i
		}
		if lang.Script == "" {
			errs = append(errs, fmt.Errorf("%s.script is required", prefix))
		}
	}

	// Bridges
	fromSeen := make(map[int]int, len(cfg.Bridges))
	for i, b := range cfg.Bridges {
		prefix := fmt.Sprintf("bridges[%d]", i)
		if b.ToGrade != b.FromGrade+1 {
			errs = append(errs, fmt.Errorf("%s: to_grade must be from_grade+1, got %d -> %d", prefix, b.FromGrade, b.ToGrade))
		}
		if prev, ok := fromSeen[b.FromGrade]; ok {
			errs = append(errs, fmt.Errorf("%s: from_grade %d duplicates bridges[%d]", prefix, b.FromGrade, prev))
		}
		fromSeen[b.FromGrade] = i
		if b.WordRangeMin > b.WordRangeMax {
			errs = append(errs, fmt.Errorf("%s: word_range_min %d exceeds word_range_max %d", prefix, b.WordRangeMin, b.WordRangeMax))
		}
	}

	return errors.Join(errs...)
}

func validateScoring(s *ScoringConfig) []error {
	var errs []error
	if s.ASRConfidenceMin < 0 || s.ASRConfidenceMin > 1 {
		errs = append(errs, fmt.Errorf("practice.scoring.asr_confidence_min %.2f is out of range [0, 1]", s.ASRConfidenceMin))
	}
	if s.TimingPercentileLow >= s.TimingPercentileHigh {
		errs = append(errs, fmt.Errorf("practice.scoring timing percentile band [%.0f, %.0f] is empty", s.TimingPercentileLow, s.TimingPercentileHigh))
	}
	if s.Phoneme.LowThreshold > s.Phoneme.AvgMin {
		errs = append(errs, fmt.Errorf("practice.scoring.phoneme.low_threshold %.2f exceeds avg_min %.2f", s.Phoneme.LowThreshold, s.Phoneme.AvgMin))
	}
	return errs
}

func validateMastery(m *MasteryConfig) []error {
	var errs []error
	for _, w := range []struct {
		name string
		win  PromotionWindow
	}{
		{"unflagged", m.Unflagged},
		{"flagged", m.Flagged},
	} {
		if w.win.LastK < 1 {
			errs = append(errs, fmt.Errorf("practice.mastery.%s.last_k must be >= 1", w.name))
		}
		if w.win.MinCorrect > w.win.LastK {
			errs = append(errs, fmt.Errorf("practice.mastery.%s.min_correct %d exceeds last_k %d", w.name, w.win.MinCorrect, w.win.LastK))
		}
	}
	if m.DemotionMinErrors < 1 {
		errs = append(errs, fmt.Errorf("practice.mastery.demotion_min_errors must be >= 1"))
	}
	if len(m.MaintenanceIntervalsDays) == 0 {
		errs = append(errs, fmt.Errorf("practice.mastery.maintenance_intervals_days must not be empty"))
	} else if !sort.IntsAreSorted(m.MaintenanceIntervalsDays) {
		errs = append(errs, fmt.Errorf("practice.mastery.maintenance_intervals_days must be ascending"))
	}
	return errs
}

func validateSpacing(s *SpacingConfig) []error {
	var errs []error
	if s.HalfLifeMinDays <= 0 || s.HalfLifeMinDays > s.HalfLifeMaxDays {
		errs = append(errs, fmt.Errorf("practice.spacing half-life clamp [%.1f, %.1f] is invalid", s.HalfLifeMinDays, s.HalfLifeMaxDays))
	}
	if s.OnSuccessMultiply <= 1 {
		errs = append(errs, fmt.Errorf("practice.spacing.on_success_multiply %.2f must be > 1", s.OnSuccessMultiply))
	}
	if s.OnFailureMultiply <= 0 || s.OnFailureMultiply >= 1 {
		errs = append(errs, fmt.Errorf("practice.spacing.on_failure_multiply %.2f must be in (0, 1)", s.OnFailureMultiply))
	}
	if !slices.IsSorted(s.FlaggedCheckpointsDays) {
		errs = append(errs, fmt.Errorf("practice.spacing.flagged_checkpoints_days must be ascending"))
	}
	if !slices.IsSorted(s.UnflaggedCheckpointsDays) {
		errs = append(errs, fmt.Errorf("practice.spacing.unflagged_checkpoints_days must be ascending"))
	}
	return errs
}

func validateInsertion(i *InsertionConfig) []error {
	var errs []error
	if i.DensityMinPct > i.DensityMaxPct {
		errs = append(errs, fmt.Errorf("practice.insertion density band [%d, %d] is empty", i.DensityMinPct, i.DensityMaxPct))
	}
	if i.BridgeDensityMinPct > i.BridgeDensityMaxPct {
		errs = append(errs, fmt.Errorf("practice.insertion bridge density band [%d, %d] is empty", i.BridgeDensityMinPct, i.BridgeDensityMaxPct))
	}
	if i.MaxPerSentence < 1 {
		errs = append(errs, fmt.Errorf("practice.insertion.max_per_sentence must be >= 1"))
	}
	return errs
}

func validateSession(s *SessionConfig) []error {
	var errs []error
	if s.DailyCapMin > s.DailyCapMax {
		errs = append(errs, fmt.Errorf("practice.session daily cap band [%d, %d] is empty", s.DailyCapMin, s.DailyCapMax))
	}
	if s.RetestAfterSentencesMin > s.RetestAfterSentencesMax {
		errs = append(errs, fmt.Errorf("practice.session retest band [%d, %d] is empty", s.RetestAfterSentencesMin, s.RetestAfterSentencesMax))
	}
	return errs
}
