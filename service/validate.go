package service

import (
	"strings"

	"github.com/Skryldev/member-directory/models"
)

// ValidatePayload applies the create/update checks in order: every value
// present and truthy, every value a string, email containing "@" and ".".
// Email uniqueness needs the store and is checked by MemberService.
func ValidatePayload(p models.MemberPayload) (models.MemberInput, error) {
	if !truthy(p.Name) || !truthy(p.Email) || !truthy(p.Level) {
		return models.MemberInput{}, ErrMissingInformation
	}

	name, ok1 := p.Name.(string)
	email, ok2 := p.Email.(string)
	level, ok3 := p.Level.(string)
	if !ok1 || !ok2 || !ok3 {
		return models.MemberInput{}, ErrInvalidInputType
	}

	if !strings.Contains(email, "@") || !strings.Contains(email, ".") {
		return models.MemberInput{}, ErrInvalidEmail
	}

	return models.MemberInput{Name: name, Email: email, Level: level}, nil
}

// truthy reports whether a decoded JSON value counts as supplied: null,
// false, 0, "", [] and {} do not.
func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case string:
		return t != ""
	case bool:
		return t
	case float64:
		return t != 0
	case []any:
		return len(t) > 0
	case map[string]any:
		return len(t) > 0
	default:
		return true
	}
}
