// Package translate detects query languages and translates text to and
// from the pivot language, memoizing translations in a bounded LRU
// cache. Translation never fails a request: every failure path degrades
// to returning the input unchanged.
package translate

import "strings"

// Language is an ISO 639-1 code from the supported set.
type Language string

const (
	English Language = "en"
	Hindi   Language = "hi"
	Marathi Language = "mr"
)

// Pivot is the language all generation happens in. Queries are
// translated to it, answers back from it.
const Pivot = English

// Supported returns the languages the service accepts, pivot first.
func Supported() []Language {
	return []Language{English, Hindi, Marathi}
}

// Normalize maps a raw code onto the supported set. Anything outside it
// falls back to the pivot rather than erroring.
func Normalize(code string) Language {
	switch lang := Language(strings.ToLower(strings.TrimSpace(code))); lang {
	case English, Hindi, Marathi:
		return lang
	default:
		return Pivot
	}
}
