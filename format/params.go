package format

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Params are the options passed to a format factory, e.g. from
// "-p heading_indent=4" on the command line.
type Params map[string]string

// ParamError reports an unknown or malformed format parameter.
type ParamError struct {
	Key    string
	Reason string
}

func (e *ParamError) Error() string {
	return fmt.Sprintf("parameter %q: %s", e.Key, e.Reason)
}

// ParseParams parses "key=value" pairs. Later pairs override earlier ones.
func ParseParams(pairs []string) (Params, error) {
	params := make(Params, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid parameter %q: expected key=value", pair)
		}
		params[key] = unescape(value)
	}
	return params, nil
}

// Merge returns a copy of p overridden by other.
func (p Params) Merge(other Params) Params {
	out := make(Params, len(p)+len(other))
	for k, v := range p {
		out[k] = v
	}
	for k, v := range other {
		out[k] = v
	}
	return out
}

// unescape interprets the escapes \n, \t, \f and \\ so that separators can
// be given on the command line.
func unescape(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	r := strings.NewReplacer(`\\`, `\`, `\n`, "\n", `\t`, "\t", `\f`, "\f")
	return r.Replace(s)
}

// paramReader reads typed values from Params and remembers which keys
// were consumed, so factories can reject unknown ones.
type paramReader struct {
	params Params
	used   map[string]bool
	err    error
}

func newParamReader(p Params) *paramReader {
	return &paramReader{params: p, used: make(map[string]bool)}
}

func (r *paramReader) String(key, def string) string {
	r.used[key] = true
	if v, ok := r.params[key]; ok {
		return v
	}
	return def
}

func (r *paramReader) Int(key string, def int) int {
	r.used[key] = true
	v, ok := r.params[key]
	if !ok {
		return def
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || n < 0 {
		r.fail(&ParamError{Key: key, Reason: fmt.Sprintf("expected a non-negative integer, got %q", v)})
		return def
	}
	return n
}

func (r *paramReader) Bool(key string, def bool) bool {
	r.used[key] = true
	v, ok := r.params[key]
	if !ok {
		return def
	}
	b, err := strconv.ParseBool(strings.TrimSpace(v))
	if err != nil {
		r.fail(&ParamError{Key: key, Reason: fmt.Sprintf("expected a boolean, got %q", v)})
		return def
	}
	return b
}

func (r *paramReader) fail(err error) {
	if r.err == nil {
		r.err = err
	}
}

// Done returns the first conversion error, or an error for the first
// (alphabetically) parameter that was never read.
func (r *paramReader) Done() error {
	if r.err != nil {
		return r.err
	}
	var unknown []string
	for k := range r.params {
		if !r.used[k] {
			unknown = append(unknown, k)
		}
	}
	if len(unknown) == 0 {
		return nil
	}
	sort.Strings(unknown)
	return &ParamError{Key: unknown[0], Reason: "unknown parameter"}
}
