// Package metadata reads `key: value` lines from an article's front-matter
// block.
package metadata

import (
	"errors"
	"fmt"
	"strings"
)

// Recognized front-matter keys.
const (
	KeyTitle = "title"
	KeyCover = "cover"
)

// ErrUnsupportedTarget is returned by Unmarshal for targets other than *Fields.
var ErrUnsupportedTarget = errors.New("unsupported metadata target")

// Fields holds the values found in a front-matter block. Only the first
// occurrence of each key is kept.
type Fields map[string]string

// Parse extracts `key: value` pairs from block by line-prefix matching. Lines
// without a colon are ignored and later duplicates never replace an earlier
// value.
func Parse(block string) Fields {
	fields := Fields{}

	for line := range strings.SplitSeq(block, "\n") {
		parts := strings.SplitN(strings.TrimSpace(line), ":", 2)
		if len(parts) != 2 {
			continue
		}

		key := strings.ToLower(strings.TrimSpace(parts[0]))
		val := strings.TrimSpace(parts[1])

		if key == "" || val == "" {
			continue
		}

		if _, seen := fields[key]; seen {
			continue
		}

		fields[key] = unquote(val)
	}

	return fields
}

// Unmarshal satisfies the front-matter decoder signature so Parse can stand in
// for a YAML decoder. v must be a *Fields.
func Unmarshal(data []byte, v any) error {
	target, ok := v.(*Fields)
	if !ok {
		return fmt.Errorf("%w: %T", ErrUnsupportedTarget, v)
	}

	*target = Parse(string(data))

	return nil
}

// Title returns the title field, if any.
func (f Fields) Title() string {
	return f[KeyTitle]
}

// Cover returns the cover field, if any.
func (f Fields) Cover() string {
	return f[KeyCover]
}

func unquote(val string) string {
	if len(val) >= 2 {
		first, last := val[0], val[len(val)-1]
		if (first == '"' && last == '"') || (first == '\'' && last == '\'') {
			return val[1 : len(val)-1]
		}
	}

	return val
}
