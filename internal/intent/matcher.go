package intent

import (
	"fmt"
	"regexp"
	"strings"
)

// Mode selects how rule keywords are located in an utterance.
type Mode string

const (
	// ModeWord matches keywords only where they are not flanked by a
	// letter, digit or underscore in any script, so "on" does not fire
	// inside "phone" or "noon" and "été" still matches in "en été".
	ModeWord Mode = "word"

	// ModeSubstring matches keywords anywhere, including inside other
	// words. Kept for compatibility with phrase lists tuned against raw
	// containment checks.
	ModeSubstring Mode = "substring"
)

// ParseMode validates a configured mode name. The empty string selects ModeWord.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(s)) {
	case "", ModeWord:
		return ModeWord, nil
	case ModeSubstring:
		return ModeSubstring, nil
	default:
		return "", fmt.Errorf("unknown matching mode %q", s)
	}
}

// polarityToken enables a toggle intent when present.
const polarityToken = "on"

// defaultRules is the canonical rule table, highest priority first.
// Patterns are regular expression fragments.
var defaultRules = []struct {
	kind     Kind
	patterns []string
}{
	{QueryTime, []string{"time"}},
	{SetAlarm, []string{"alarm"}},
	{QueryDate, []string{"date"}},
	{QueryBattery, []string{"battery"}},
	{ToggleFlashlight, []string{"flashlight", "torch"}},
	{ToggleWifi, []string{"wi-?fi"}},
	{ToggleBluetooth, []string{"bluetooth"}},
	{OpenSettings, []string{"settings"}},
	{OpenCamera, []string{"camera"}},
}

type rule struct {
	kind Kind
	re   *regexp.Regexp
}

// Matcher classifies normalized utterances against a fixed ordered rule
// table. It holds no mutable state and is safe for concurrent use.
type Matcher struct {
	mode     Mode
	rules    []rule
	polarity *regexp.Regexp
}

// NewMatcher compiles the canonical rule table for mode. extra adds
// literal keywords to existing rules; it never changes rule order.
func NewMatcher(mode Mode, extra map[Kind][]string) (*Matcher, error) {
	mode, err := ParseMode(string(mode))
	if err != nil {
		return nil, err
	}

	for k := range extra {
		if _, ok := ParseKind(string(k)); !ok {
			return nil, fmt.Errorf("keywords for unknown intent %q", k)
		}
	}

	m := &Matcher{mode: mode, polarity: compile(mode, []string{polarityToken})}
	for _, r := range defaultRules {
		patterns := append([]string(nil), r.patterns...)
		for _, kw := range extra[r.kind] {
			kw = Normalize(kw)
			if kw == "" {
				continue
			}
			patterns = append(patterns, regexp.QuoteMeta(kw))
		}
		m.rules = append(m.rules, rule{kind: r.kind, re: compile(mode, patterns)})
	}
	return m, nil
}

// MustMatcher is NewMatcher for the default keyword table, which always compiles.
func MustMatcher(mode Mode) *Matcher {
	m, err := NewMatcher(mode, nil)
	if err != nil {
		panic(err)
	}
	return m
}

// RE2's \b only knows ASCII word characters, so word mode spells out a
// Unicode boundary instead.
const (
	wordStart = `(?:^|[^\p{L}\p{N}_])`
	wordEnd   = `(?:$|[^\p{L}\p{N}_])`
)

func compile(mode Mode, patterns []string) *regexp.Regexp {
	alt := "(?:" + strings.Join(patterns, "|") + ")"
	if mode == ModeWord {
		alt = wordStart + alt + wordEnd
	}
	return regexp.MustCompile(alt)
}

// Mode returns the keyword matching mode.
func (m *Matcher) Mode() Mode { return m.mode }

// Match returns the intent of the first rule whose keywords occur in the
// already normalized utterance, or Unrecognized.
func (m *Matcher) Match(normalized string) Intent {
	for _, r := range m.rules {
		if !r.re.MatchString(normalized) {
			continue
		}
		in := Intent{Kind: r.kind}
		if r.kind.IsToggle() {
			in.Enable = m.polarity.MatchString(normalized)
		}
		return in
	}
	return Intent{Kind: Unrecognized}
}

// Classify normalizes a raw utterance and matches it.
func (m *Matcher) Classify(utterance string) Intent {
	return m.Match(Normalize(utterance))
}
