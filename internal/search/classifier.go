package search

import (
	"strings"
	"unicode"

	"chat-gateway/internal/config"
	"chat-gateway/internal/domain"
)

// Classifier maps a query to a domain using ordered keyword sets. The order
// of the sets is the priority: the first set with a matching keyword wins and
// general is returned when none match.
type Classifier struct {
	rules []rule
}

type rule struct {
	domain   domain.Domain
	keywords []string
}

// NewClassifier builds a classifier from the policy's domain table, keeping
// its order.
func NewClassifier(table []config.DomainKeywords) *Classifier {
	rules := make([]rule, 0, len(table))
	for _, entry := range table {
		r := rule{domain: entry.Name}
		for _, kw := range entry.Keywords {
			if n := normalize(kw); n != "" {
				r.keywords = append(r.keywords, n)
			}
		}
		rules = append(rules, r)
	}
	return &Classifier{rules: rules}
}

// Classify returns the domain for query.
func (c *Classifier) Classify(query string) domain.Domain {
	padded := " " + normalize(query) + " "
	for _, r := range c.rules {
		for _, kw := range r.keywords {
			if strings.Contains(padded, " "+kw+" ") {
				return r.domain
			}
		}
	}
	return domain.DomainGeneral
}

// normalize lower-cases s and reduces it to space separated words so that
// keywords only match on word boundaries ("ai" must not match "said").
func normalize(s string) string {
	fields := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	return strings.Join(fields, " ")
}
