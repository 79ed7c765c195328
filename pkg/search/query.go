package search

import (
	"fmt"
	"strings"
)

// Term is one search term with a human-readable label for showing active
// filters in a UI.
type Term struct {
	Term  string
	Label string
}

// BuildQuery returns (term, label) pairs for the recognized search
// parameters. Pairs keep insertion order, author before free text, so labels
// render consistently. Absent or empty parameters emit nothing. This is a
// pure mapping: it never touches the index or the store.
func BuildQuery(params map[string]string) []Term {
	var terms []Term

	if author := params["author"]; author != "" {
		terms = append(terms, Term{
			Term:  fmt.Sprintf("author:%q", author),
			Label: "by " + author,
		})
	}

	if q := params["q"]; q != "" {
		terms = append(terms, Term{
			Term:  q,
			Label: fmt.Sprintf("containing %q", q),
		})
	}

	return terms
}

// JoinTerms combines terms into a single query expression. Concatenation is
// an implicit AND in the index's query language.
func JoinTerms(terms []Term) string {
	parts := make([]string, 0, len(terms))
	for _, t := range terms {
		parts = append(parts, t.Term)
	}
	return strings.Join(parts, " ")
}
