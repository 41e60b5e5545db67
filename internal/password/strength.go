package password

import (
	"math"
	"strings"
	"unicode/utf8"
)

// Strength levels.
const (
	LevelWeak       = "weak"
	LevelMedium     = "medium"
	LevelStrong     = "strong"
	LevelVeryStrong = "very_strong"
)

// StrengthAssessment is a pure function of the input string.
type StrengthAssessment struct {
	Score       int      `json:"score"`
	Level       string   `json:"level"`
	EntropyBits float64  `json:"entropy_bits"`
	Feedback    []string `json:"feedback"`
}

var denyList = []string{
	"password", "123456", "qwerty", "admin", "letmein",
	"welcome", "monkey", "dragon", "master", "football",
}

type classes struct {
	upper, lower, digit, symbol bool
}

func classify(s string) classes {
	var c classes
	for _, r := range s {
		switch {
		case r >= 'A' && r <= 'Z':
			c.upper = true
		case r >= 'a' && r <= 'z':
			c.lower = true
		case r >= '0' && r <= '9':
			c.digit = true
		default:
			c.symbol = true
		}
	}
	return c
}

// score counts one point per present class and collects hints for
// the missing ones.
func (c classes) score(feedback *[]string) int {
	n := 0
	for _, cl := range []struct {
		present bool
		hint    string
	}{
		{c.upper, "Add uppercase letters"},
		{c.lower, "Add lowercase letters"},
		{c.digit, "Add numbers"},
		{c.symbol, "Add special characters"},
	} {
		if cl.present {
			n++
		} else {
			*feedback = append(*feedback, cl.hint)
		}
	}
	return n
}

// Entropy estimates len * log2(pool) with pools of 26 upper, 26 lower,
// 10 digits and 32 symbols.
func Entropy(s string) float64 {
	c := classify(s)
	pool := 0
	if c.lower {
		pool += 26
	}
	if c.upper {
		pool += 26
	}
	if c.digit {
		pool += 10
	}
	if c.symbol {
		pool += 32
	}
	if pool == 0 {
		return 0
	}
	return float64(utf8.RuneCountInString(s)) * math.Log2(float64(pool))
}

// AnalyzeStrength scores a password submitted for a breach check. The level
// is taken before the score is floored at zero.
func AnalyzeStrength(pw string) StrengthAssessment {
	var feedback []string
	score := 0

	switch n := utf8.RuneCountInString(pw); {
	case n >= 12:
		score += 2
	case n >= 8:
		score++
	default:
		feedback = append(feedback, "Password should be at least 8 characters long")
	}

	score += classify(pw).score(&feedback)

	lower := strings.ToLower(pw)
	for _, word := range denyList {
		if strings.Contains(lower, word) {
			score -= 2
			feedback = append(feedback, "Avoid common words and patterns")
			break
		}
	}

	if hasRun(pw, 3) {
		score--
		feedback = append(feedback, "Avoid repeated characters")
	}

	level := LevelWeak
	switch {
	case score >= 5:
		level = LevelStrong
	case score >= 3:
		level = LevelMedium
	}

	return StrengthAssessment{
		Score:       max(score, 0),
		Level:       level,
		EntropyBits: Entropy(pw),
		Feedback:    nonNil(feedback),
	}
}

// AnalyzePasskey scores generated secrets on a wider scale that rewards
// length and entropy.
func AnalyzePasskey(pk string) StrengthAssessment {
	var feedback []string
	score := 0

	switch n := utf8.RuneCountInString(pk); {
	case n >= 16:
		score += 3
	case n >= 12:
		score += 2
	case n >= 8:
		score++
	default:
		feedback = append(feedback, "Passkey should be at least 8 characters long")
	}

	score += classify(pk).score(&feedback)

	entropy := Entropy(pk)
	score += min(3, int(math.Floor(entropy/10)))

	level := LevelWeak
	switch {
	case score >= 8:
		level = LevelVeryStrong
	case score >= 6:
		level = LevelStrong
	case score >= 4:
		level = LevelMedium
	}

	return StrengthAssessment{
		Score:       score,
		Level:       level,
		EntropyBits: entropy,
		Feedback:    nonNil(feedback),
	}
}

// hasRun reports n or more identical consecutive characters.
func hasRun(s string, n int) bool {
	var prev rune = -1
	run := 0
	for _, r := range s {
		if r == prev {
			run++
		} else {
			prev, run = r, 1
		}
		if run >= n {
			return true
		}
	}
	return false
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
