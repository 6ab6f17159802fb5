package config

// GradeLevel carries the curriculum reading targets for one school grade:
// the passage word-count range and the sentence structures the grade has
// been taught.
type GradeLevel struct {
	WordRangeMin  int
	WordRangeMax  int
	SentenceTypes []string
}

// gradeLevels is the built-in grade curriculum table the reading app ships
// with.
var gradeLevels = map[int]GradeLevel{
	1: {WordRangeMin: 10, WordRangeMax: 20, SentenceTypes: []string{"simple"}},
	2: {WordRangeMin: 30, WordRangeMax: 50, SentenceTypes: []string{"simple"}},
	3: {WordRangeMin: 50, WordRangeMax: 65, SentenceTypes: []string{"simple", "compound"}},
	4: {WordRangeMin: 65, WordRangeMax: 80, SentenceTypes: []string{"simple", "compound"}},
	5: {WordRangeMin: 80, WordRangeMax: 100, SentenceTypes: []string{"simple", "compound", "complex"}},
	6: {WordRangeMin: 100, WordRangeMax: 115, SentenceTypes: []string{"simple", "compound", "complex"}},
	7: {WordRangeMin: 115, WordRangeMax: 130, SentenceTypes: []string{"simple", "compound", "complex"}},
	8: {WordRangeMin: 130, WordRangeMax: 150, SentenceTypes: []string{"simple", "compound", "complex"}},
}

// GradeLevelFor returns the curriculum targets for grade, clamped to the
// supported range.
func GradeLevelFor(grade int) GradeLevel {
	if grade < 1 {
		grade = 1
	}
	if grade > 8 {
		grade = 8
	}
	return gradeLevels[grade]
}
