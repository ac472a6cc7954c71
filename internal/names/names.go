// Package names holds every rule that decides what a player name is:
// cleanup of extractor output, ghost filtering, validity checks, chat
// nickname normalisation and tokenisation for family/twin grouping.
// Player identity is the exact name string, so these rules are the only
// reconciliation policy the tracker has.
package names

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var (
	clanTagPattern     = regexp.MustCompile(`^\[?[^\]]+\]\s*`)
	parentheticalRegex = regexp.MustCompile(`\s*\([^)]*\)`)
	nonNameChars       = regexp.MustCompile(`[^\w\s']`)
	unitSuffix         = regexp.MustCompile(`\bBT\b`)
	whitespaceRun      = regexp.MustCompile(`\s+`)
)

// Headless client placeholders that show up on scoreboards.
var ghostNames = map[string]struct{}{
	"headlessclient":     {},
	"headlessclient (2)": {},
	"hc1":                {},
	"hc2":                {},
	"hc3":                {},
}

// Clean strips a leading clan tag and upper-cases the first letter of each
// whitespace separated token. The rest of each token is left alone.
func Clean(raw string) string {
	name := strings.TrimSpace(clanTagPattern.ReplaceAllString(raw, ""))
	tokens := strings.Fields(name)
	for i, tok := range tokens {
		tokens[i] = upperFirst(tok)
	}
	return strings.Join(tokens, " ")
}

// upperFirst upper-cases only the leading rune, so "smith-jones" stays
// "Smith-jones".
func upperFirst(tok string) string {
	_, size := utf8.DecodeRuneInString(tok)
	// casers carry state, one per call
	return cases.Upper(language.Und).String(tok[:size]) + tok[size:]
}

func IsGhost(name string) bool {
	_, ok := ghostNames[strings.ToLower(strings.TrimSpace(name))]
	return ok
}

// Keep reports whether a cleaned name should be persisted at all.
func Keep(cleaned string) bool {
	return strings.TrimSpace(cleaned) != "" && !IsGhost(cleaned)
}

// CleanDisplayName turns a chat nickname such as "John Smith (Medic) BT"
// into the form stored on scoreboards.
func CleanDisplayName(raw string) string {
	s := parentheticalRegex.ReplaceAllString(raw, "")
	s = nonNameChars.ReplaceAllString(s, "")
	s = unitSuffix.ReplaceAllString(s, "")
	s = strings.TrimSpace(s)
	return whitespaceRun.ReplaceAllString(s, " ")
}

// FirstToken and LastToken return "" for blank names.
func FirstToken(name string) string {
	tokens := strings.Fields(name)
	if len(tokens) == 0 {
		return ""
	}
	return tokens[0]
}

func LastToken(name string) string {
	tokens := strings.Fields(name)
	if len(tokens) == 0 {
		return ""
	}
	return tokens[len(tokens)-1]
}

func hasDigit(s string) bool {
	return strings.IndexFunc(s, unicode.IsDigit) >= 0
}
