// Package extract turns loosely structured municipal bill text into a
// typed bill record. The source format has no stable grammar, so every
// field is extracted through a cascade of named pattern alternatives tried
// in priority order; later alternatives exist to absorb formatting drift
// between bill revisions. Extraction never fails: a field that cannot be
// located is left absent, not guessed.
package extract

import "regexp"

// captureRule is one named, independently testable pattern alternative.
// All rules in a cascade share the same capture-group layout; rules that
// cannot supply a group use an empty `()` placeholder to keep positions
// stable.
type captureRule struct {
	re   *regexp.Regexp
	name string
}

// newRule compiles a pattern alternative. Patterns are package constants,
// so a compile failure is a programming error and panics at init.
func newRule(name, pattern string) captureRule {
	return captureRule{name: name, re: regexp.MustCompile(pattern)}
}

// cascade is an ordered list of pattern alternatives for one field.
type cascade struct {
	field string
	rules []captureRule
}

func newCascade(field string, rules ...captureRule) cascade {
	return cascade{field: field, rules: rules}
}

// first tries each rule in priority order and returns the submatches of
// the first one that matches, along with the winning rule's name.
func (c cascade) first(text string) ([]string, string, bool) {
	for _, r := range c.rules {
		if m := r.re.FindStringSubmatch(text); m != nil {
			return m, r.name, true
		}
	}
	return nil, "", false
}

// all tries each rule in priority order and returns every match of the
// first rule that matches at all. Used for repeated rows such as meter
// readings and step charges.
func (c cascade) all(text string) ([][]string, string, bool) {
	for _, r := range c.rules {
		if ms := r.re.FindAllStringSubmatch(text, -1); len(ms) > 0 {
			return ms, r.name, true
		}
	}
	return nil, "", false
}
