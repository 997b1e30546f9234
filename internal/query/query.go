// Package query turns free-text keyword input into an explicit boolean
// search query understood by Reddit's search endpoint.
package query

import (
	"fmt"
	"regexp"
	"strings"
)

// ValidationError describes why a keyword query was rejected.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Reason
}

var (
	operatorWordRe      = regexp.MustCompile(`(?i)\b(and|or|not)\b`)
	adjacentOpsRe       = regexp.MustCompile(`\b(AND|OR|NOT)\s+(AND|OR)\b`)
	leadingOpRe         = regexp.MustCompile(`^\s*(AND|OR)\b`)
	trailingOpRe        = regexp.MustCompile(`\b(AND|OR|NOT)\s*$`)
	emptyGroupRe        = regexp.MustCompile(`\(\s*\)`)
	groupLeadingOpRe    = regexp.MustCompile(`\(\s*(AND|OR)\b`)
	phrasePlaceholder   = "\x00ph%d\x00"
	phrasePlaceholderRe = regexp.MustCompile("\x00ph([0-9]+)\x00")
	quotedPhraseRe      = regexp.MustCompile(`"[^"]*"`)
	whitespaceRe        = regexp.MustCompile(`\s+`)
)

// Parse normalizes user shorthand into an explicit boolean query: operators
// are uppercased, bare whitespace-separated terms become implicit ANDs, and
// double-quoted phrases pass through verbatim. Parse assumes the input has
// already passed Validate.
func Parse(input string) string {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return ""
	}

	// Pull quoted phrases out before term-splitting so their contents are
	// never treated as separate terms or operators.
	var phrases []string
	masked := quotedPhraseRe.ReplaceAllStringFunc(trimmed, func(m string) string {
		phrases = append(phrases, m)
		return fmt.Sprintf(phrasePlaceholder, len(phrases)-1)
	})

	masked = operatorWordRe.ReplaceAllStringFunc(masked, strings.ToUpper)

	// Space out parentheses so they tokenize on whitespace.
	masked = strings.ReplaceAll(masked, "(", " ( ")
	masked = strings.ReplaceAll(masked, ")", " ) ")

	tokens := strings.Fields(masked)
	var out []string
	for i, tok := range tokens {
		if i > 0 && needsImplicitAnd(tokens[i-1], tok) {
			out = append(out, "AND")
		}
		out = append(out, tok)
	}

	joined := strings.Join(out, " ")

	// Re-attach parentheses to their groups.
	joined = strings.ReplaceAll(joined, "( ", "(")
	joined = strings.ReplaceAll(joined, " )", ")")

	joined = phrasePlaceholderRe.ReplaceAllStringFunc(joined, func(m string) string {
		sub := phrasePlaceholderRe.FindStringSubmatch(m)
		var idx int
		fmt.Sscanf(sub[1], "%d", &idx)
		return phrases[idx]
	})

	return whitespaceRe.ReplaceAllString(joined, " ")
}

func isOperator(tok string) bool {
	return tok == "AND" || tok == "OR" || tok == "NOT"
}

// needsImplicitAnd reports whether an AND joins prev and next. Two adjacent
// terms get one; anything touching an operator or group boundary does not,
// except that a term followed by NOT or an opening parenthesis still needs
// the conjunction.
func needsImplicitAnd(prev, next string) bool {
	prevIsTerm := !isOperator(prev) && prev != "("
	nextStartsTerm := next != ")" && next != "AND" && next != "OR"
	return prevIsTerm && nextStartsTerm
}

// Validate checks a keyword query before it is stored or sent upstream.
// It returns nil for a valid query, or a *ValidationError naming the first
// violation found.
func Validate(input string) error {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return &ValidationError{Reason: "query must not be empty"}
	}

	depth := 0
	for _, r := range trimmed {
		switch r {
		case '(':
			depth++
		case ')':
			depth--
			if depth < 0 {
				return &ValidationError{Reason: "unbalanced parentheses"}
			}
		}
	}
	if depth != 0 {
		return &ValidationError{Reason: "unbalanced parentheses"}
	}

	upper := operatorWordRe.ReplaceAllStringFunc(trimmed, strings.ToUpper)

	if adjacentOpsRe.MatchString(upper) {
		return &ValidationError{Reason: "two boolean operators in a row"}
	}
	if leadingOpRe.MatchString(upper) {
		return &ValidationError{Reason: "query must not start with AND or OR"}
	}
	if trailingOpRe.MatchString(upper) {
		return &ValidationError{Reason: "query must not end with an operator"}
	}
	if emptyGroupRe.MatchString(upper) {
		return &ValidationError{Reason: "empty parenthesis group"}
	}
	if groupLeadingOpRe.MatchString(upper) {
		return &ValidationError{Reason: "parenthesis group must not open with AND or OR"}
	}

	return nil
}
