package valueobjects

import (
	"fmt"
	"strings"
)

// Category is the kind of request a ticket was opened for. The value is the
// config key used in tickets.category_parents.
type Category string

const (
	CategoryArmedBranch   Category = "armed_branch"
	CategoryInformational Category = "informational"
	CategoryGeneral       Category = "general"
	CategoryFactional     Category = "factional"
	// CategoryUnknown is what a topic that cannot be decoded yields.
	CategoryUnknown Category = "unknown"
)

type categoryInfo struct {
	label string
	emoji string
}

var categories = map[Category]categoryInfo{
	CategoryArmedBranch:   {label: "Braccio Armato", emoji: "🔫"},
	CategoryInformational: {label: "Informativa", emoji: "📄"},
	CategoryGeneral:       {label: "Generale", emoji: "💬"},
	CategoryFactional:     {label: "Fazionati", emoji: "🛠️"},
}

// legacyLabels are labels written by earlier deployments.
var legacyLabels = map[string]Category{
	"prossimamente...": CategoryFactional,
}

// All returns the openable and non-openable categories in panel order.
func All() []Category {
	return []Category{CategoryArmedBranch, CategoryInformational, CategoryGeneral, CategoryFactional}
}

func (c Category) String() string {
	return string(c)
}

func (c Category) IsValid() bool {
	_, ok := categories[c]
	return ok
}

// Label is the Italian display name written into the channel topic.
func (c Category) Label() string {
	if info, ok := categories[c]; ok {
		return info.label
	}
	return "Sconosciuta"
}

// Emoji prefixes the channel name.
func (c Category) Emoji() string {
	return categories[c].emoji
}

// IsOpenable reports whether users can open tickets of this category yet.
// Factional tickets are announced on the panel but not open.
func (c Category) IsOpenable() bool {
	return c.IsValid() && c != CategoryFactional
}

// NewCategory parses a config key.
func NewCategory(s string) (Category, error) {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	if !c.IsValid() {
		return "", fmt.Errorf("invalid category: %s", s)
	}
	return c, nil
}

// CategoryFromLabel maps a topic label back to its category. Unrecognised
// labels yield CategoryUnknown.
func CategoryFromLabel(label string) Category {
	label = strings.TrimSpace(label)
	for c, info := range categories {
		if strings.EqualFold(info.label, label) {
			return c
		}
	}
	if c, ok := legacyLabels[strings.ToLower(label)]; ok {
		return c
	}
	return CategoryUnknown
}
