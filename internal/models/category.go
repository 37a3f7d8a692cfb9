package models

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// CategoryKind is the closed set of category behaviors
type CategoryKind string

const (
	CategoryGeneral CategoryKind = "general"
	CategoryBible   CategoryKind = "bible"
)

var bibleSpellings = map[string]bool{
	"bíblia": true,
	"biblia": true,
}

// NormalizeCategory trims, composes and case-folds a free-text category
func NormalizeCategory(category string) string {
	trimmed := strings.TrimSpace(category)
	if trimmed == "" {
		return ""
	}
	return cases.Fold().String(norm.NFC.String(trimmed))
}

// ResolveCategory maps a free-text category to its kind
func ResolveCategory(category string) CategoryKind {
	if bibleSpellings[NormalizeCategory(category)] {
		return CategoryBible
	}
	return CategoryGeneral
}
