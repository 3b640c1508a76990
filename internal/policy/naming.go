package policy

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// Naming bounds the trimmed length of a name and rejects reserved or forbidden words.
// Reserved words match the whole name; forbidden words match any substring. Both ignore case.
type Naming struct {
	Subject   string
	Min, Max  int
	Reserved  []string
	Forbidden []string
}

var (
	TaskNaming  = Naming{Subject: "task title", Min: 3, Max: 200}
	IssueNaming = Naming{Subject: "issue title", Min: 3, Max: 200}
	RoleNaming  = Naming{
		Subject:  "role name",
		Min:      3,
		Max:      30,
		Reserved: []string{"admin", "administrator", "owner", "root", "system", "superuser"},
	}
	TemplateNaming = Naming{
		Subject:   "template name",
		Min:       3,
		Max:       100,
		Forbidden: []string{"untitled", "deprecated", "do not use"},
	}
)

// Check returns every reason name is rejected.
func (p Naming) Check(name string) []string {
	trimmed := strings.TrimSpace(name)
	n := utf8.RuneCountInString(trimmed)
	var reasons []string
	if n < p.Min || n > p.Max {
		reasons = append(reasons, fmt.Sprintf("%s must be between %d and %d characters, got %d", p.Subject, p.Min, p.Max, n))
	}
	lower := strings.ToLower(trimmed)
	for _, w := range p.Reserved {
		if lower == w {
			reasons = append(reasons, fmt.Sprintf("%s %q is reserved", p.Subject, trimmed))
			break
		}
	}
	for _, w := range p.Forbidden {
		if strings.Contains(lower, w) {
			reasons = append(reasons, fmt.Sprintf("%s must not contain %q", p.Subject, w))
		}
	}
	return reasons
}

func (p Naming) IsSatisfiedBy(name string) bool { return len(p.Check(name)) == 0 }

func (p Naming) AssertIsValid(name string) error {
	return violation(p.Subject, p.Check(name))
}
