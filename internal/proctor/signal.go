// Package proctor turns raw browser observations into session-ending signals.
package proctor

import (
	"fmt"
	"strings"
)

// Category groups signals by the detection primitive that produced them.
type Category string

const (
	CategoryVisibility    Category = "visibility"
	CategoryFocus         Category = "focus"
	CategoryMultiInstance Category = "multi_instance"
	CategoryClipboard     Category = "clipboard"
	CategoryContextMenu   Category = "context_menu"
	CategoryKeyboard      Category = "keyboard"
	CategoryGeometry      Category = "geometry"
)

// Categories lists every signal source.
var Categories = []Category{
	CategoryVisibility,
	CategoryFocus,
	CategoryMultiInstance,
	CategoryClipboard,
	CategoryContextMenu,
	CategoryKeyboard,
	CategoryGeometry,
}

// ParseCategory maps a wire name onto a Category.
func ParseCategory(s string) (Category, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, c := range Categories {
		if string(c) == s {
			return c, nil
		}
	}
	return "", fmt.Errorf("unknown signal category %q", s)
}

// Signal is an ephemeral tamper/exit detection. It is evaluated once.
type Signal struct {
	Category Category `json:"category"`
	Reason   string   `json:"reason"`
}

func (s Signal) String() string {
	return string(s.Category) + ": " + s.Reason
}
