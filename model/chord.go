// Package model provides the in-memory representation of a chorded song:
// strophes made of lyric segments, the chords attached to them, strophe
// marks and song-level annotations.
package model

import (
	"regexp"
	"strconv"
	"strings"
)

// Note is a chord root or bass tone. Both the English B and the
// Czech/German H naming are accepted.
type Note string

// Notes recognised as chord roots.
const (
	NoteC      Note = "C"
	NoteCSharp Note = "C#"
	NoteDFlat  Note = "Db"
	NoteD      Note = "D"
	NoteDSharp Note = "D#"
	NoteEFlat  Note = "Eb"
	NoteE      Note = "E"
	NoteF      Note = "F"
	NoteFSharp Note = "F#"
	NoteFFlat  Note = "Fb"
	NoteG      Note = "G"
	NoteGSharp Note = "G#"
	NoteGFlat  Note = "Gb"
	NoteA      Note = "A"
	NoteASharp Note = "A#"
	NoteAFlat  Note = "Ab"
	NoteBFlat  Note = "Bb"
	NoteB      Note = "B"
	NoteH      Note = "H"
)

var notePattern = regexp.MustCompile(`^[A-H](?:#|b)?$`)

// IsValid reports whether n is a letter A to H with an optional sharp or flat.
func (n Note) IsValid() bool {
	return notePattern.MatchString(string(n))
}

// String returns the note name.
func (n Note) String() string {
	return string(n)
}

// ValidNote reports whether s names a known note.
func ValidNote(s string) bool {
	return Note(s).IsValid()
}

// ChordModifier alters the quality of a chord (minor, seventh, bass note...).
type ChordModifier interface {
	// Level groups modifiers: 0 for basic quality and bass, 1 for
	// extensions. Generic modifiers report -1.
	Level() int

	// String renders the modifier as it follows the root in chord notation.
	String() string
}

// Minor is the "m" modifier.
type Minor struct{}

func (Minor) Level() int     { return 0 }
func (Minor) String() string { return "m" }

// DominantSeventh is the "7" modifier.
type DominantSeventh struct{}

func (DominantSeventh) Level() int     { return 1 }
func (DominantSeventh) String() string { return "7" }

// MajorSeventh is the "maj7" modifier.
type MajorSeventh struct{}

func (MajorSeventh) Level() int     { return 1 }
func (MajorSeventh) String() string { return "maj7" }

// AddedNote adds a chord factor, e.g. 9 or 6.
type AddedNote struct {
	Factor int
}

func (AddedNote) Level() int       { return 1 }
func (m AddedNote) String() string { return strconv.Itoa(m.Factor) }

// Suspended replaces the third with the given factor (sus2, sus4).
type Suspended struct {
	Factor int
}

func (Suspended) Level() int       { return 1 }
func (m Suspended) String() string { return "sus" + strconv.Itoa(m.Factor) }

// Alteration directions.
const (
	Augmented  = "+"
	Diminished = "dim"
)

// Altered raises ("+") or lowers ("dim") a chord factor, the fifth by default.
type Altered struct {
	Direction string
	Factor    int
}

func (Altered) Level() int { return 1 }

func (m Altered) String() string {
	if m.Factor == 0 || m.Factor == 5 {
		return m.Direction
	}
	return m.Direction + strconv.Itoa(m.Factor)
}

// BassNote puts a different note in the bass ("/F#").
type BassNote struct {
	Note Note
}

func (BassNote) Level() int       { return 0 }
func (m BassNote) String() string { return "/" + string(m.Note) }

// GenericModifier keeps modifier text that has not been interpreted.
type GenericModifier struct {
	Text string
}

func (GenericModifier) Level() int       { return -1 }
func (m GenericModifier) String() string { return m.Text }

// Chord is a root note followed by any number of modifiers.
type Chord struct {
	Root      Note
	Modifiers []ChordModifier
}

// String renders the chord in the usual compact notation, e.g. "Am7/G".
func (c Chord) String() string {
	var sb strings.Builder
	sb.WriteString(string(c.Root))
	for _, m := range c.Modifiers {
		sb.WriteString(m.String())
	}
	return sb.String()
}

// IsGeneric reports whether any modifier is still uninterpreted text.
func (c Chord) IsGeneric() bool {
	for _, m := range c.Modifiers {
		if _, ok := m.(GenericModifier); ok {
			return true
		}
	}
	return false
}

// ParseModifiers interprets modifier text such as "m7/G" into typed
// modifiers. It returns false if any part of the text is not recognised.
func ParseModifiers(text string) ([]ChordModifier, bool) {
	var mods []ChordModifier
	rest := text
	for rest != "" {
		mod, n := nextModifier(rest)
		if n == 0 {
			return nil, false
		}
		mods = append(mods, mod)
		rest = rest[n:]
	}
	return mods, true
}

// nextModifier reads one modifier from the start of s and returns it with
// the number of bytes consumed, or 0 if nothing matches.
func nextModifier(s string) (ChordModifier, int) {
	switch {
	case strings.HasPrefix(s, "maj7"):
		return MajorSeventh{}, 4
	case strings.HasPrefix(s, "sus"):
		f, n := leadingInt(s[3:])
		if n == 0 {
			return nil, 0
		}
		return Suspended{Factor: f}, 3 + n
	case strings.HasPrefix(s, "dim"):
		f, n := leadingInt(s[3:])
		if n == 0 {
			f = 5
		}
		return Altered{Direction: Diminished, Factor: f}, 3 + n
	case strings.HasPrefix(s, "+"):
		f, n := leadingInt(s[1:])
		if n == 0 {
			f = 5
		}
		return Altered{Direction: Augmented, Factor: f}, 1 + n
	case strings.HasPrefix(s, "/"):
		for _, l := range []int{2, 1} {
			if len(s) > l && ValidNote(s[1:1+l]) {
				return BassNote{Note: Note(s[1 : 1+l])}, 1 + l
			}
		}
		return nil, 0
	case strings.HasPrefix(s, "m") && !strings.HasPrefix(s, "maj"):
		return Minor{}, 1
	case strings.HasPrefix(s, "7"):
		return DominantSeventh{}, 1
	}
	if f, n := leadingInt(s); n > 0 {
		return AddedNote{Factor: f}, n
	}
	return nil, 0
}

func leadingInt(s string) (int, int) {
	n := 0
	for n < len(s) && s[n] >= '0' && s[n] <= '9' {
		n++
	}
	if n == 0 {
		return 0, 0
	}
	v, err := strconv.Atoi(s[:n])
	if err != nil {
		return 0, 0
	}
	return v, n
}
