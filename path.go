package moq

import (
	"fmt"
	"strings"
)

// Path is a validated, immutable broadcast identifier: slash-separated,
// non-empty segments with no leading, trailing, or doubled separators.
// The lite dialect carries it as one string, the IETF dialect as a
// count-prefixed tuple of its segments.
type Path string

// ParsePath validates s as a broadcast path.
func ParsePath(s string) (Path, error) {
	if s == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidPath)
	}
	for _, seg := range strings.Split(s, "/") {
		if seg == "" {
			return "", fmt.Errorf("%w: %q", ErrInvalidPath, s)
		}
	}
	return Path(s), nil
}

// PathFromSegments builds a Path from decoded namespace segments.
func PathFromSegments(segments []string) (Path, error) {
	if len(segments) == 0 {
		return "", fmt.Errorf("%w: empty", ErrInvalidPath)
	}
	for _, seg := range segments {
		if seg == "" || strings.Contains(seg, "/") {
			return "", fmt.Errorf("%w: segment %q", ErrInvalidPath, seg)
		}
	}
	return Path(strings.Join(segments, "/")), nil
}

func (p Path) String() string { return string(p) }

// Segments splits the path for tuple encoding.
func (p Path) Segments() []string {
	if p == "" {
		return nil
	}
	return strings.Split(string(p), "/")
}

// HasPrefix reports whether prefix is a whole-segment prefix of p: "a"
// matches "a/1" but not "ab". The empty prefix matches everything.
func (p Path) HasPrefix(prefix Path) bool {
	if prefix == "" {
		return true
	}
	if p == prefix {
		return true
	}
	return strings.HasPrefix(string(p), string(prefix)+"/")
}
