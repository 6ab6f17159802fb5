package config_test

import (
	"strings"
	"testing"

	"github.com/kalini-labs/lexio/internal/config"
)

func TestValidate_InvalidLogLevel(t *testing.T) {
	t.Parallel()
	yaml := `
server:
  log_level: verbose
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected error for invalid log_level, got nil")
	}
	if !strings.Contains(err.Error(), "log_level") {
		t.Errorf("error should mention log_level, got: %v", err)
	}
}

func TestValidate_EmptyTimingBand(t *testing.T) {
	t.Parallel()
	yaml := `
practice:
  scoring:
    timing_percentile_low: 95
    timing_percentile_high: 5
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected error for inverted timing band, got nil")
	}
	if !strings.Contains(err.Error(), "timing percentile") {
		t.Errorf("error should mention the timing band, got: %v", err)
	}
}

func TestValidate_WindowMinCorrectExceedsLastK(t *testing.T) {
	t.Parallel()
	yaml := `
practice:
  mastery:
    unflagged:
      last_k: 4
      min_correct: 6
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected error for min_correct > last_k, got nil")
	}
	if !strings.Contains(err.Error(), "min_correct") {
		t.Errorf("error should mention min_correct, got: %v", err)
	}
}

func TestValidate_SpacingMultipliers(t *testing.T) {
	t.Parallel()
	for name, yaml := range map[string]string{
		"success must grow": `
practice:
  spacing:
    on_success_multiply: 0.9
`,
		"failure must shrink": `
practice:
  spacing:
    on_failure_multiply: 1.5
`,
	} {
		t.Run(name, func(t *testing.T) {
			if _, err := config.LoadFromReader(strings.NewReader(yaml)); err == nil {
				t.Fatal("expected error, got nil")
			}
		})
	}
}

func TestValidate_CheckpointsMustAscend(t *testing.T) {
	t.Parallel()
	yaml := `
practice:
  spacing:
    flagged_checkpoints_days: [0, 3, 1, 7]
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected error for unsorted checkpoints, got nil")
	}
	if !strings.Contains(err.Error(), "ascending") {
		t.Errorf("error should mention ascending order, got: %v", err)
	}
}

func TestValidate_NoLanguages(t *testing.T) {
	t.Parallel()
	yaml := `
languages: []
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected error for empty languages, got nil")
	}
	if !strings.Contains(err.Error(), "languages") {
		t.Errorf("error should mention languages, got: %v", err)
	}
}

func TestValidate_DuplicateLanguageCodes(t *testing.T) {
	t.Parallel()
	yaml := `
languages:
  - code: en
    script: Latin
  - code: en
    script: Latin
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected error for duplicate language codes, got nil")
	}
	if !strings.Contains(err.Error(), "duplicate") {
		t.Errorf("error should mention duplicate, got: %v", err)
	}
}

func TestValidate_LanguageRequiresScript(t *testing.T) {
	t.Parallel()
	yaml := `
languages:
  - code: en
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected error for missing script, got nil")
	}
	if !strings.Contains(err.Error(), "script") {
		t.Errorf("error should mention script, got: %v", err)
	}
}

func TestValidate_BridgeGradeStep(t *testing.T) {
	t.Parallel()
	yaml := `
bridges:
  - from_grade: 2
    to_grade: 4
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected error for non-adjacent bridge grades, got nil")
	}
	if !strings.Contains(err.Error(), "to_grade") {
		t.Errorf("error should mention to_grade, got: %v", err)
	}
}

func TestValidate_MultipleErrors(t *testing.T) {
	t.Parallel()
	yaml := `
server:
  log_level: loud
practice:
  insertion:
    max_per_sentence: 0
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected errors, got nil")
	}
	errStr := err.Error()
	if !strings.Contains(errStr, "log_level") {
		t.Errorf("error should mention log_level, got: %v", err)
	}
	if !strings.Contains(errStr, "max_per_sentence") {
		t.Errorf("error should mention max_per_sentence, got: %v", err)
	}
}

func TestValidGeneratorNames(t *testing.T) {
	t.Parallel()
	if len(config.ValidGeneratorNames) == 0 {
		t.Fatal("ValidGeneratorNames should not be empty")
	}
	found := false
	for _, n := range config.ValidGeneratorNames {
		if n == "openai" {
			found = true
			break
		}
	}
	if !found {
		t.Error(`ValidGeneratorNames should contain "openai"`)
	}
}
