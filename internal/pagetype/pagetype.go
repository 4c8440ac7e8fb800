// Package pagetype classifies a page by its slug text and optional action
// attribute. The classifier is a pure function so diagram rendering stays
// reproducible and the rules stay unit-testable on their own.
package pagetype

import "strings"

// Type is the detected page archetype.
type Type string

const (
	List      Type = "list"
	Detail    Type = "detail"
	Create    Type = "create"
	Edit      Type = "edit"
	Delete    Type = "delete"
	Search    Type = "search"
	Dashboard Type = "dashboard"
	Settings  Type = "settings"
	General   Type = "general"
)

// rules are evaluated top to bottom; the first keyword substring match wins.
var rules = []struct {
	keywords []string
	t        Type
}{
	{[]string{"list", "index"}, List},
	{[]string{"detail", "view", "show"}, Detail},
	{[]string{"create", "new", "add"}, Create},
	{[]string{"edit", "update", "modify"}, Edit},
	{[]string{"delete", "remove"}, Delete},
	{[]string{"search", "filter"}, Search},
	{[]string{"dashboard", "overview"}, Dashboard},
	{[]string{"settings", "config"}, Settings},
}

// Classify returns the page type for a slug. An explicit action attribute
// takes precedence over the slug text; General is the fallback.
func Classify(slug, action string) Type {
	if action != "" {
		if t, ok := match(action); ok {
			return t
		}
	}
	if t, ok := match(slug); ok {
		return t
	}
	return General
}

func match(text string) (Type, bool) {
	lower := strings.ToLower(text)
	for _, r := range rules {
		for _, kw := range r.keywords {
			if strings.Contains(lower, kw) {
				return r.t, true
			}
		}
	}
	return General, false
}
