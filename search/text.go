package search

import "unicode/utf8"

// ExcerptLength is the number of characters kept in a result excerpt.
const ExcerptLength = 200

// excerpt returns the first ExcerptLength characters of text,
// followed by an ellipsis when anything was cut.
func excerpt(text string) string {
	if utf8.RuneCountInString(text) <= ExcerptLength {
		return text
	}
	n := 0
	for i := range text {
		if n == ExcerptLength {
			return text[:i] + "..."
		}
		n++
	}
	return text
}
