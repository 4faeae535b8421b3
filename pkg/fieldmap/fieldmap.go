// Package fieldmap turns the flat label/value text scraped from a result
// fragment into a mapping of field name to value.
package fieldmap

import (
	"slices"
	"strings"
)

const (
	DefaultDelimiter = ":"
	// CatchAll holds text that appears before any label.
	CatchAll = "Note"
	// PhoneNumber is the site's echo of the queried number.
	PhoneNumber = "Phone Number"
)

type options struct {
	delimiter string
	catchAll  string
	exclude   []string
}

type Option func(*options)

// WithExclude replaces the default set of labels left out of the result.
func WithExclude(labels ...string) Option {
	return func(o *options) {
		o.exclude = labels
	}
}

func WithDelimiter(delimiter string) Option {
	return func(o *options) {
		o.delimiter = delimiter
	}
}

func WithCatchAll(label string) Option {
	return func(o *options) {
		o.catchAll = label
	}
}

// WithoutCatchAll drops tokens that appear before the first label.
func WithoutCatchAll() Option {
	return WithCatchAll("")
}

// Dictify converts a token sequence like
//
//	["Phone Number:", "123", "Carrier:", "XYZ", "Empty:", "Is Wireless:", "y"]
//
// into {"Carrier": "XYZ", "Is Wireless": "y"}. A token ending in the delimiter
// starts a new label and resets its value, every other token is appended to the
// value of the current label separated by a single space.
func Dictify(tokens []string, opts ...Option) map[string]string {
	o := options{
		delimiter: DefaultDelimiter,
		catchAll:  CatchAll,
		exclude:   []string{PhoneNumber},
	}
	for _, opt := range opts {
		opt(&o)
	}

	values := map[string]*strings.Builder{}
	current := o.catchAll
	hasLabel := o.catchAll != ""

	for _, tok := range tokens {
		if o.delimiter != "" && strings.HasSuffix(tok, o.delimiter) {
			current = strings.TrimSuffix(tok, o.delimiter)
			hasLabel = true
			delete(values, current)
			continue
		}
		if !hasLabel {
			continue
		}
		b, ok := values[current]
		if !ok {
			b = &strings.Builder{}
			values[current] = b
		} else {
			b.WriteByte(' ')
		}
		b.WriteString(tok)
	}

	out := make(map[string]string, len(values))
	for k, b := range values {
		if slices.Contains(o.exclude, k) {
			continue
		}
		out[k] = b.String()
	}
	return out
}

// SortedKeys returns the keys of a mapping in lexical order.
func SortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
