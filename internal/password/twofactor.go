package password

// TwoFactorMethod describes one second-factor option.
type TwoFactorMethod struct {
	Name          string   `json:"name"`
	Description   string   `json:"description"`
	Apps          []string `json:"apps,omitempty"`
	Keys          []string `json:"keys,omitempty"`
	SetupSteps    []string `json:"setup_steps"`
	SecurityLevel string   `json:"security_level"`
	Warning       string   `json:"warning,omitempty"`
}

// TwoFactorRecommendations returns the static second-factor catalogue keyed
// by method.
func TwoFactorRecommendations() map[string]TwoFactorMethod {
	return map[string]TwoFactorMethod{
		"authenticator_apps": {
			Name:        "Authenticator Apps",
			Description: "Time-based one-time password (TOTP) apps",
			Apps:        []string{"Google Authenticator", "Microsoft Authenticator", "Authy", "1Password", "Bitwarden"},
			SetupSteps: []string{
				"Download an authenticator app",
				"Scan the QR code provided by the service",
				"Enter the 6-digit code to verify setup",
				"Store backup codes in a secure location",
			},
			SecurityLevel: "high",
		},
		"hardware_keys": {
			Name:        "Hardware Security Keys",
			Description: "Physical security keys (FIDO2/U2F)",
			Keys:        []string{"YubiKey", "Google Titan", "Feitian", "SoloKey"},
			SetupSteps: []string{
				"Purchase a compatible hardware key",
				"Register the key with your account",
				"Test the key to ensure it works",
				"Keep a backup key in a secure location",
			},
			SecurityLevel: "very_high",
		},
		"sms_2fa": {
			Name:        "SMS 2FA",
			Description: "Text message verification",
			SetupSteps: []string{
				"Enter your phone number",
				"Receive a verification code via SMS",
				"Enter the code to verify setup",
			},
			SecurityLevel: "medium",
			Warning:       "SMS 2FA is vulnerable to SIM swapping attacks",
		},
		"email_2fa": {
			Name:        "Email 2FA",
			Description: "Email verification codes",
			SetupSteps: []string{
				"Enter your email address",
				"Receive a verification code via email",
				"Enter the code to verify setup",
			},
			SecurityLevel: "low",
			Warning:       "Email 2FA is less secure than authenticator apps",
		},
	}
}
