package sources

import (
	"strings"
	"unicode"
)

const maxSearchTerms = 6

var stopwords = map[string]bool{
	"a": true, "an": true, "the": true, "is": true, "are": true, "was": true, "were": true,
	"what": true, "whats": true, "who": true, "whom": true, "when": true, "where": true,
	"which": true, "why": true, "how": true, "do": true, "does": true, "did": true,
	"of": true, "in": true, "on": true, "at": true, "for": true, "to": true, "from": true,
	"about": true, "and": true, "or": true, "me": true, "tell": true, "please": true,
	"can": true, "you": true, "i": true, "my": true, "give": true, "show": true,
	"latest": true, "current": true, "today": true, "now": true, "right": true,
	"news": true, "update": true, "updates": true,
}

// searchTerms reduces a conversational question to the words an upstream
// keyword search can use.
func searchTerms(query string) string {
	fields := strings.FieldsFunc(strings.ToLower(query), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '-' && r != '.'
	})
	terms := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.Trim(f, "-.")
		if f == "" || stopwords[f] {
			continue
		}
		terms = append(terms, f)
		if len(terms) == maxSearchTerms {
			break
		}
	}
	return strings.Join(terms, " ")
}
