package auth

import (
	"strings"
	"unicode"
)

type passwordRule struct {
	desc string
	ok   func(string) bool
}

// Account-creation password policy: all four rules must hold.
var passwordRules = []passwordRule{
	{"at least 8 characters", func(pw string) bool { return len(pw) >= 8 }},
	{"both uppercase and lowercase letters", func(pw string) bool {
		return strings.ContainsFunc(pw, unicode.IsUpper) && strings.ContainsFunc(pw, unicode.IsLower)
	}},
	{"a mixture of letters and numbers", func(pw string) bool {
		return strings.ContainsFunc(pw, unicode.IsLetter) && strings.ContainsFunc(pw, unicode.IsDigit)
	}},
	{"at least one special character from '!', '@', '#', '?', '$'", func(pw string) bool {
		return strings.ContainsAny(pw, "!@#?$")
	}},
}

// CheckPasswordStrength returns a description of every rule the candidate
// password fails. Empty result means the password is acceptable.
func CheckPasswordStrength(pw string) []string {
	var failed []string
	for _, r := range passwordRules {
		if !r.ok(pw) {
			failed = append(failed, r.desc)
		}
	}
	return failed
}
