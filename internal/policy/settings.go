package policy

import (
	"fmt"
	"slices"
)

var (
	Themes    = []string{"light", "dark", "system"}
	Languages = []string{"en", "zh-TW", "zh-CN", "ja", "es"}
)

// SettingsValues are the user-adjustable workspace preferences.
type SettingsValues struct {
	Theme    string
	Language string
}

// Settings validates every field and reports all problems at once.
type Settings struct{}

func (Settings) Errors(v SettingsValues) []string {
	var errs []string
	if !slices.Contains(Themes, v.Theme) {
		errs = append(errs, fmt.Sprintf("theme %q is not one of %v", v.Theme, Themes))
	}
	if !slices.Contains(Languages, v.Language) {
		errs = append(errs, fmt.Sprintf("language %q is not one of %v", v.Language, Languages))
	}
	return errs
}

func (p Settings) IsSatisfiedBy(v SettingsValues) bool { return len(p.Errors(v)) == 0 }

func (p Settings) AssertIsValid(v SettingsValues) error {
	return violation("settings", p.Errors(v))
}
