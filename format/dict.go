package format

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/c360studio/songbook/model"
)

// DictName is the registry name of the JSON format.
const DictName = "dict"

// Dict serialises the structured song model as JSON. A book is a JSON
// array of songs.
type Dict struct {
	Indent int
}

// NewDict creates the JSON format. Recognised params: indent (0 for
// compact output).
func NewDict(params Params) (*Dict, error) {
	r := newParamReader(params)
	f := &Dict{Indent: r.Int("indent", 2)}
	if err := r.Done(); err != nil {
		return nil, err
	}
	return f, nil
}

// Name returns the registry name.
func (f *Dict) Name() string { return DictName }

// CanRead returns true.
func (f *Dict) CanRead() bool { return true }

// CanWrite returns true.
func (f *Dict) CanWrite() bool { return true }

// Load parses one song object.
func (f *Dict) Load(text string) (*model.Song, error) {
	var d model.SongDict
	if err := decodeStrict(text, &d); err != nil {
		return nil, err
	}
	return songFromDict(d)
}

// LoadBook parses an array of songs, or a single song object.
func (f *Dict) LoadBook(text string) ([]*model.Song, error) {
	if !strings.HasPrefix(strings.TrimSpace(text), "[") {
		song, err := f.Load(text)
		if err != nil {
			return nil, err
		}
		return []*model.Song{song}, nil
	}

	var dicts []model.SongDict
	if err := decodeStrict(text, &dicts); err != nil {
		return nil, err
	}
	return songsFromDicts(dicts)
}

// Dump serialises one song.
func (f *Dict) Dump(song *model.Song) (string, error) {
	return f.marshal(song.ToDict())
}

// DumpBook serialises songs as an array.
func (f *Dict) DumpBook(songs []*model.Song) (string, error) {
	return f.marshal(songsToDicts(songs))
}

func (f *Dict) marshal(v any) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if f.Indent > 0 {
		enc.SetIndent("", strings.Repeat(" ", f.Indent))
	}
	if err := enc.Encode(v); err != nil {
		return "", err
	}
	return strings.TrimSuffix(buf.String(), "\n"), nil
}

func decodeStrict(text string, v any) error {
	if strings.TrimSpace(text) == "" {
		return NewParseError("empty song", "")
	}
	dec := json.NewDecoder(strings.NewReader(text))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return NewParseError("invalid JSON: "+err.Error(), text)
	}
	return nil
}

func songFromDict(d model.SongDict) (*model.Song, error) {
	song, err := model.FromDict(d)
	if err != nil {
		return nil, NewParseError(err.Error(), d.ID)
	}
	return song, nil
}

func songsFromDicts(dicts []model.SongDict) ([]*model.Song, error) {
	if len(dicts) == 0 {
		return nil, NewParseError("empty song", "")
	}
	songs := make([]*model.Song, 0, len(dicts))
	for _, d := range dicts {
		song, err := songFromDict(d)
		if err != nil {
			return nil, err
		}
		songs = append(songs, song)
	}
	return songs, nil
}

func songsToDicts(songs []*model.Song) []model.SongDict {
	dicts := make([]model.SongDict, len(songs))
	for i, song := range songs {
		dicts[i] = song.ToDict()
	}
	return dicts
}
