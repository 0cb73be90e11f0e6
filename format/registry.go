package format

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Info describes a registered format.
type Info struct {
	// Name is the format identifier used on the command line.
	Name string

	// Extension is the file extension (with dot) used for per-song output.
	Extension string

	// MIMEType is the media type of the serialised form.
	MIMEType string

	// Description describes the format.
	Description string

	// CanRead and CanWrite advertise the format's capabilities.
	CanRead  bool
	CanWrite bool
}

// Factory creates a configured format instance.
type Factory func(params Params) (Format, error)

type entry struct {
	info    Info
	factory Factory
}

// Registry manages the known song formats.
type Registry struct {
	mu      sync.RWMutex
	formats map[string]entry
}

// DefaultRegistry is the global registry with the built-in formats.
var DefaultRegistry = NewRegistry()

// NewRegistry creates a registry with the built-in formats.
func NewRegistry() *Registry {
	r := &Registry{
		formats: make(map[string]entry),
	}

	r.Register(Info{
		Name:        DefaultName,
		Extension:   ".txt",
		MIMEType:    "text/plain",
		Description: "Plain text with [chord] marks inline",
		CanRead:     true,
		CanWrite:    true,
	}, func(p Params) (Format, error) { return NewDefault(p) })

	r.Register(Info{
		Name:        ChordSheetName,
		Extension:   ".chords.txt",
		MIMEType:    "text/plain",
		Description: "Plain text with chords typeset above the lyrics",
		CanRead:     true,
		CanWrite:    true,
	}, func(p Params) (Format, error) { return NewChordSheet(p) })

	r.Register(Info{
		Name:        DictName,
		Extension:   ".json",
		MIMEType:    "application/json",
		Description: "Structured song model as JSON",
		CanRead:     true,
		CanWrite:    true,
	}, func(p Params) (Format, error) { return NewDict(p) })

	r.Register(Info{
		Name:        YAMLName,
		Extension:   ".yaml",
		MIMEType:    "application/yaml",
		Description: "Structured song model as YAML",
		CanRead:     true,
		CanWrite:    true,
	}, func(p Params) (Format, error) { return NewYAML(p) })

	r.Register(Info{
		Name:        HTMLName,
		Extension:   ".html",
		MIMEType:    "text/html",
		Description: "HTML page with chords above the lyrics",
		CanRead:     true,
		CanWrite:    true,
	}, func(p Params) (Format, error) { return NewHTML(p) })

	return r
}

// Register adds or replaces a format.
func (r *Registry) Register(info Info, factory Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.formats[info.Name] = entry{info: info, factory: factory}
}

// Lookup returns the description of a format.
func (r *Registry) Lookup(name string) (Info, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.formats[name]
	return e.info, ok
}

// New creates the named format configured with params.
func (r *Registry) New(name string, params Params) (Format, error) {
	r.mu.RLock()
	e, ok := r.formats[name]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w %q (known: %s)", ErrUnknownFormat, name, strings.Join(r.Names(), ", "))
	}
	f, err := e.factory(params)
	if err != nil {
		return nil, fmt.Errorf("create format %s: %w", name, err)
	}
	return f, nil
}

// List returns every registered format sorted by name.
func (r *Registry) List() []Info {
	r.mu.RLock()
	defer r.mu.RUnlock()

	infos := make([]Info, 0, len(r.formats))
	for _, e := range r.formats {
		infos = append(infos, e.info)
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })
	return infos
}

// Names returns the sorted format names.
func (r *Registry) Names() []string {
	infos := r.List()
	names := make([]string, len(infos))
	for i, info := range infos {
		names[i] = info.Name
	}
	return names
}

// ForExtension returns the format whose extension matches the end of
// filename, whatever its capabilities; callers check CanRead or CanWrite
// for the direction they need. The longest matching extension wins, so
// "song.chords.txt" resolves to the chord sheet format.
func (r *Registry) ForExtension(filename string) (Info, bool) {
	lower := strings.ToLower(filename)
	var best Info
	found := false
	for _, info := range r.List() {
		if info.Extension == "" || !strings.HasSuffix(lower, info.Extension) {
			continue
		}
		if !found || len(info.Extension) > len(best.Extension) {
			best = info
			found = true
		}
	}
	return best, found
}
