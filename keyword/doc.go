// Package keyword scores chunks against free-text queries using term
// statistics only.
//
// A chunk's score adds up body term frequency, a bonus for terms found in
// the title, a bonus for an early first occurrence and a bonus for the
// share of distinct query terms matched. Chunks that match no term are
// reported as "no match" rather than scored zero.
package keyword
