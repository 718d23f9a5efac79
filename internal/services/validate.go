package services

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"choretracker/internal/domain"
)

const (
	minPasswordLength = 8
	// bcrypt input limit; the hasher prehashes, but the boundary still rejects longer input.
	maxPasswordLength = 72
	maxNameLength     = 100
	maxEmailLength    = 255
	maxTextLength     = 1000
)

var emailRegexp = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validEmail(email string) bool {
	return len(email) <= maxEmailLength && emailRegexp.MatchString(email)
}

// problems collects field-level validation messages.
type problems []string

func (p *problems) add(msg string) {
	*p = append(*p, msg)
}

func (p *problems) email(field, value string) {
	if !validEmail(value) {
		p.add(field + " must be a valid email address")
	}
}

func (p *problems) name(field, value string, required bool) {
	n := utf8.RuneCountInString(value)
	switch {
	case required && n == 0:
		p.add(field + " is required")
	case n > maxNameLength:
		p.add(field + " must be at most 100 characters")
	}
}

func (p *problems) err() error {
	return domain.NewValidationError(*p...)
}

func validatePassword(p *problems, password string) {
	if len(password) < minPasswordLength || len(password) > maxPasswordLength {
		p.add("password must be between 8 and 72 bytes")
	}
}

func validateProfile(p *problems, profile domain.Profile) {
	p.name("first_name", strings.TrimSpace(profile.FirstName), false)
	p.name("last_name", strings.TrimSpace(profile.LastName), false)
	for field, value := range map[string]string{
		"phone_number": profile.PhoneNumber,
		"address":      profile.Address,
		"city":         profile.City,
		"state":        profile.State,
		"zip_code":     profile.ZipCode,
		"country":      profile.Country,
	} {
		if utf8.RuneCountInString(strings.TrimSpace(value)) > maxNameLength*2 {
			p.add(field + " must be at most 200 characters")
		}
	}
}

// uniqueIDs trims ids and drops blanks and duplicates, keeping the first occurrence order.
func uniqueIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	unique := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		unique = append(unique, id)
	}
	return unique
}
