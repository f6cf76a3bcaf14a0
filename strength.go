package portal

import "strings"

// PasswordStrength is advisory UI feedback, never a validation gate.
type PasswordStrength struct {
	Score int    `json:"score"`
	Label string `json:"label"`
}

const strengthSymbols = "@$!%*?&"

// ScorePassword rates a password against six independent criteria and folds
// the count into the three-step meter shown next to the password field.
func ScorePassword(password string) PasswordStrength {
	if password == "" {
		return PasswordStrength{}
	}

	criteria := 0
	if len(password) >= 8 {
		criteria++
	}
	if len(password) >= 12 {
		criteria++
	}
	if hasLowercase.MatchString(password) {
		criteria++
	}
	if hasUppercase.MatchString(password) {
		criteria++
	}
	if hasDigit.MatchString(password) {
		criteria++
	}
	if strings.ContainsAny(password, strengthSymbols) {
		criteria++
	}

	switch {
	case criteria <= 2:
		return PasswordStrength{Score: 33, Label: "Weak"}
	case criteria <= 4:
		return PasswordStrength{Score: 66, Label: "Medium"}
	default:
		return PasswordStrength{Score: 100, Label: "Strong"}
	}
}
