package format

import (
	"regexp"

	"github.com/c360studio/songbook/model"
)

var tonePattern = regexp.MustCompile(`^[A-H](?:#|b)?`)

// ParseChord reads a chord written as a root tone followed by free-form
// modifier text. The modifier text is kept verbatim as a generic modifier;
// normalization interprets it later.
func ParseChord(s string) (model.Chord, error) {
	if s == "" {
		return model.Chord{}, NewParseError("empty chord", "")
	}
	loc := tonePattern.FindStringIndex(s)
	if loc == nil {
		return model.Chord{}, NewParseError("invalid chord root", s)
	}
	chord := model.Chord{Root: model.Note(s[:loc[1]])}
	if rest := s[loc[1]:]; rest != "" {
		chord.Modifiers = []model.ChordModifier{model.GenericModifier{Text: rest}}
	}
	return chord, nil
}

// IsChordToken reports whether s is a chord whose modifiers are all
// recognised, e.g. "Am7" or "D/F#" but not "Hello".
func IsChordToken(s string) bool {
	chord, err := ParseChord(s)
	if err != nil {
		return false
	}
	if len(chord.Modifiers) == 0 {
		return true
	}
	_, ok := model.ParseModifiers(chord.Modifiers[0].String())
	return ok
}
