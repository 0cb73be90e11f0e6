package model

import (
	"fmt"
	"strconv"
)

// StropheMark labels a strophe: a verse number, a letter, chorus, coda or nothing.
type StropheMark interface {
	// String renders the mark; short selects the compact form ("R" vs "Chorus").
	String(short bool) string
}

// NumberedMark labels a verse by number.
type NumberedMark struct {
	Number int
}

func (m NumberedMark) String(bool) string { return strconv.Itoa(m.Number) }

// ParseNumberedMark parses a decimal verse number.
func ParseNumberedMark(s string) (NumberedMark, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return NumberedMark{}, fmt.Errorf("invalid numbered strophe mark %q: %w", s, err)
	}
	return NumberedMark{Number: n}, nil
}

// LetteredMark labels a strophe with one of the letters A to E.
type LetteredMark struct {
	Letter string
}

func (m LetteredMark) String(bool) string { return m.Letter }

// ParseLetteredMark accepts exactly one of "A".."E".
func ParseLetteredMark(s string) (LetteredMark, error) {
	switch s {
	case "A", "B", "C", "D", "E":
		return LetteredMark{Letter: s}, nil
	default:
		return LetteredMark{}, fmt.Errorf("invalid lettered strophe mark %q", s)
	}
}

// ChorusMark labels the chorus.
type ChorusMark struct{}

func (ChorusMark) String(short bool) string {
	if short {
		return "R"
	}
	return "Chorus"
}

// CodaMark labels the coda.
type CodaMark struct{}

func (CodaMark) String(short bool) string {
	if short {
		return "C"
	}
	return "Coda"
}

// EmptyMark is used for unlabeled strophes.
type EmptyMark struct{}

func (EmptyMark) String(bool) string { return "" }
