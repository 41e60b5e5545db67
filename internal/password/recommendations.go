package password

// Recommendations are derived from the verdict in a fixed order.
func Recommendations(compromised bool, s StrengthAssessment) []string {
	var out []string
	if compromised {
		out = append(out,
			"This password has been compromised. Change it immediately.",
			"Consider using a password manager.",
		)
	}
	switch s.Level {
	case LevelWeak:
		out = append(out, "Password is too weak. Follow the strength feedback.")
	case LevelMedium:
		out = append(out, "Consider strengthening your password further.")
	}
	return append(out,
		"Use a unique password for each account.",
		"Enable two-factor authentication where possible.",
		"Regularly check for data breaches.",
	)
}
