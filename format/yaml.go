package format

import (
	"bytes"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/c360studio/songbook/model"
)

// YAMLName is the registry name of the YAML format.
const YAMLName = "yaml"

// YAML serialises the structured song model as YAML. A book is a
// sequence of songs.
type YAML struct {
	Indent int
}

// NewYAML creates the YAML format. Recognised params: indent.
func NewYAML(params Params) (*YAML, error) {
	r := newParamReader(params)
	f := &YAML{Indent: r.Int("indent", 2)}
	if f.Indent == 0 {
		r.fail(&ParamError{Key: "indent", Reason: "must be positive"})
	}
	if err := r.Done(); err != nil {
		return nil, err
	}
	return f, nil
}

// Name returns the registry name.
func (f *YAML) Name() string { return YAMLName }

// CanRead returns true.
func (f *YAML) CanRead() bool { return true }

// CanWrite returns true.
func (f *YAML) CanWrite() bool { return true }

// Load parses one song mapping.
func (f *YAML) Load(text string) (*model.Song, error) {
	var d model.SongDict
	if err := decodeYAML(text, &d); err != nil {
		return nil, err
	}
	return songFromDict(d)
}

// LoadBook parses a sequence of songs, or a single song mapping.
func (f *YAML) LoadBook(text string) ([]*model.Song, error) {
	var node yaml.Node
	if err := yaml.Unmarshal([]byte(text), &node); err != nil {
		return nil, NewParseError("invalid YAML: "+err.Error(), text)
	}
	if len(node.Content) == 0 || node.Content[0].Kind != yaml.SequenceNode {
		song, err := f.Load(text)
		if err != nil {
			return nil, err
		}
		return []*model.Song{song}, nil
	}

	var dicts []model.SongDict
	if err := decodeYAML(text, &dicts); err != nil {
		return nil, err
	}
	return songsFromDicts(dicts)
}

// Dump serialises one song.
func (f *YAML) Dump(song *model.Song) (string, error) {
	return f.marshal(song.ToDict())
}

// DumpBook serialises songs as a sequence.
func (f *YAML) DumpBook(songs []*model.Song) (string, error) {
	return f.marshal(songsToDicts(songs))
}

func (f *YAML) marshal(v any) (string, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(f.Indent)
	if err := enc.Encode(v); err != nil {
		return "", err
	}
	if err := enc.Close(); err != nil {
		return "", err
	}
	return strings.TrimSuffix(buf.String(), "\n"), nil
}

func decodeYAML(text string, v any) error {
	if strings.TrimSpace(text) == "" {
		return NewParseError("empty song", "")
	}
	dec := yaml.NewDecoder(strings.NewReader(text))
	dec.KnownFields(true)
	if err := dec.Decode(v); err != nil {
		return NewParseError("invalid YAML: "+err.Error(), text)
	}
	return nil
}
