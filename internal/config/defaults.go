package config

// Policy defaults. These mirror version 1.1 of the practice framework the
// reading app ships with; a config file can override any of them.
const (
	DefaultASRConfidenceMin     = 0.85
	DefaultSNRMinDb             = 15.0
	DefaultTimingPercentileLow  = 5.0
	DefaultTimingPercentileHigh = 95.0

	DefaultPhonemeAvgMin           = 0.6
	DefaultPhonemeLowThreshold     = 0.4
	DefaultPhonemeAllowLowCountMax = 1

	DefaultDemotionWindowDays = 30
	DefaultDemotionMinErrors  = 2

	DefaultHalfLifeStartUnflaggedDays = 2.0
	DefaultHalfLifeStartFlaggedDays   = 1.0
	DefaultOnSuccessMultiply          = 1.4
	DefaultOnFailureMultiply          = 0.5
	DefaultHalfLifeMinDays            = 1.0
	DefaultHalfLifeMaxDays            = 60.0

	DefaultDensityMinPct       = 15
	DefaultDensityMaxPct       = 25
	DefaultBridgeDensityMinPct = 10
	DefaultBridgeDensityMaxPct = 15
	DefaultMaxPerSentence      = 3
	DefaultMinCharsBetween     = 8
	DefaultMaxCluster          = 3
	DefaultHighlightStyle      = "karaoke"

	DefaultDailyCapMin             = 20
	DefaultDailyCapMax             = 30
	DefaultYoungGradeMax           = 3
	DefaultRetestAfterSentencesMin = 3
	DefaultRetestAfterSentencesMax = 5

	DefaultInstructionMinErrors       = 3
	DefaultInstructionMinDistinctDays = 2
	DefaultInstructionExitGreens      = 2
)

// Default returns the built-in configuration. [Load] starts from this and
// overlays the YAML file on top, so unset fields keep these values.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			ListenAddr: ":8080",
			LogLevel:   LogInfo,
		},
		Practice: PracticeConfig{
			Scoring: ScoringConfig{
				ASRConfidenceMin:     DefaultASRConfidenceMin,
				SNRMinDb:             DefaultSNRMinDb,
				TimingPercentileLow:  DefaultTimingPercentileLow,
				TimingPercentileHigh: DefaultTimingPercentileHigh,
				Phoneme: PhonemeConfig{
					AvgMin:           DefaultPhonemeAvgMin,
					LowThreshold:     DefaultPhonemeLowThreshold,
					AllowLowCountMax: DefaultPhonemeAllowLowCountMax,
				},
			},
			Mastery: MasteryConfig{
				Unflagged: PromotionWindow{
					LastK:                8,
					MinCorrect:           6,
					MinDistinctDays:      3,
					MinDistinctSentences: 2,
				},
				Flagged: PromotionWindow{
					LastK:                4,
					MinCorrect:           3,
					MinDistinctDays:      2,
					MinDistinctSentences: 2,
				},
				DemotionWindowDays:       DefaultDemotionWindowDays,
				DemotionMinErrors:        DefaultDemotionMinErrors,
				MaintenanceIntervalsDays: []int{14, 30, 60},
			},
			Spacing: SpacingConfig{
				HalfLifeStartUnflaggedDays: DefaultHalfLifeStartUnflaggedDays,
				HalfLifeStartFlaggedDays:   DefaultHalfLifeStartFlaggedDays,
				OnSuccessMultiply:          DefaultOnSuccessMultiply,
				OnFailureMultiply:          DefaultOnFailureMultiply,
				HalfLifeMinDays:            DefaultHalfLifeMinDays,
				HalfLifeMaxDays:            DefaultHalfLifeMaxDays,
				FlaggedCheckpointsDays:     []float64{0, 1, 3, 7, 14},
				UnflaggedCheckpointsDays:   []float64{0, 2, 5, 12, 24},
			},
			Insertion: InsertionConfig{
				DensityMinPct:       DefaultDensityMinPct,
				DensityMaxPct:       DefaultDensityMaxPct,
				BridgeDensityMinPct: DefaultBridgeDensityMinPct,
				BridgeDensityMaxPct: DefaultBridgeDensityMaxPct,
				MaxPerSentence:      DefaultMaxPerSentence,
				MinCharsBetween:     DefaultMinCharsBetween,
				MaxCluster:          DefaultMaxCluster,
				HighlightStyle:      DefaultHighlightStyle,
			},
			Session: SessionConfig{
				DailyCapMin:             DefaultDailyCapMin,
				DailyCapMax:             DefaultDailyCapMax,
				YoungGradeMax:           DefaultYoungGradeMax,
				RetestAfterSentencesMin: DefaultRetestAfterSentencesMin,
				RetestAfterSentencesMax: DefaultRetestAfterSentencesMax,
			},
			Instruction: InstructionConfig{
				EnterMinErrors:       DefaultInstructionMinErrors,
				EnterMinDistinctDays: DefaultInstructionMinDistinctDays,
				ExitGreenChecks:      DefaultInstructionExitGreens,
				LessonMinSeconds:     20,
				LessonMaxSeconds:     40,
				LessonSteps: []string{
					"Model slow read of the full sentence",
					"Child echo read",
					"Chunk up to the target word within the sentence",
					"Normal-speed read",
					"Two quick sentence checks",
				},
			},
		},
		Languages: []Language{
			{
				Code:          "en",
				Name:          "English",
				Script:        "Latin",
				ASRLocaleHint: "en-IN",
				VariantPacks:  []string{"indian_english_pron_variants"},
			},
			{
				Code:          "hi",
				Name:          "Hindi",
				Script:        "Devanagari",
				ASRLocaleHint: "hi-IN",
				VariantPacks:  []string{"standard_hindi_variants"},
			},
		},
	}
}
