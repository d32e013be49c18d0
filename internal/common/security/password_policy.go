package security

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

const (
	MinPasswordLength = 8
	MaxPasswordLength = 100

	// SpecialCharacters is the symbol set accepted by the special-character rule.
	SpecialCharacters = `!@#$%^&*()_+-=[]{};':"\|,.<>/?`
)

// PolicyRule identifies a password rule.
type PolicyRule string

const (
	RuleNotBlank    PolicyRule = "not_blank"
	RuleMinLength   PolicyRule = "min_length"
	RuleMaxLength   PolicyRule = "max_length"
	RuleUppercase   PolicyRule = "uppercase"
	RuleLowercase   PolicyRule = "lowercase"
	RuleDigit       PolicyRule = "digit"
	RuleSpecialChar PolicyRule = "special_character"
)

// PolicyResult is Accept (zero Rule) or Reject with the failing rule.
type PolicyResult struct {
	Rule    PolicyRule
	Message string
}

func (r PolicyResult) Accepted() bool { return r.Rule == "" }

type passwordRule struct {
	rule    PolicyRule
	message string
	ok      func(string) bool
}

// PasswordPolicy evaluates rules in order and stops at the first failure.
type PasswordPolicy struct {
	rules []passwordRule
}

func DefaultPasswordPolicy() PasswordPolicy {
	return PasswordPolicy{rules: []passwordRule{
		{RuleNotBlank, "Password cannot be empty", func(p string) bool {
			return strings.TrimSpace(p) != ""
		}},
		{RuleMinLength, fmt.Sprintf("Password must be at least %d characters long", MinPasswordLength), func(p string) bool {
			return utf8.RuneCountInString(p) >= MinPasswordLength
		}},
		{RuleMaxLength, fmt.Sprintf("Password must not exceed %d characters", MaxPasswordLength), func(p string) bool {
			return utf8.RuneCountInString(p) <= MaxPasswordLength
		}},
		{RuleUppercase, "Password must contain at least one uppercase letter", containsAny(func(r rune) bool {
			return r >= 'A' && r <= 'Z'
		})},
		{RuleLowercase, "Password must contain at least one lowercase letter", containsAny(func(r rune) bool {
			return r >= 'a' && r <= 'z'
		})},
		{RuleDigit, "Password must contain at least one digit", containsAny(func(r rune) bool {
			return r >= '0' && r <= '9'
		})},
		{RuleSpecialChar, "Password must contain at least one special character (!@#$%^&*()_+-=[]{}etc.)", func(p string) bool {
			return strings.ContainsAny(p, SpecialCharacters)
		}},
	}}
}

func (p PasswordPolicy) Evaluate(candidate string) PolicyResult {
	for _, r := range p.rules {
		if !r.ok(candidate) {
			return PolicyResult{Rule: r.rule, Message: r.message}
		}
	}
	return PolicyResult{}
}

func containsAny(match func(rune) bool) func(string) bool {
	return func(s string) bool {
		return strings.IndexFunc(s, match) >= 0
	}
}
