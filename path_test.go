package moq

import (
	"errors"
	"testing"
)

func TestParsePath(t *testing.T) {
	t.Parallel()

	valid := []string{"room", "room/alice", "a/b/c", "with space/ok"}
	for _, s := range valid {
		p, err := ParsePath(s)
		if err != nil {
			t.Fatalf("ParsePath(%q): %v", s, err)
		}
		if p.String() != s {
			t.Fatalf("ParsePath(%q) = %q", s, p)
		}
	}

	invalid := []string{"", "/room", "room/", "room//alice", "//"}
	for _, s := range invalid {
		if _, err := ParsePath(s); !errors.Is(err, ErrInvalidPath) {
			t.Fatalf("ParsePath(%q): got %v, want ErrInvalidPath", s, err)
		}
	}
}

func TestPathFromSegments(t *testing.T) {
	t.Parallel()

	p, err := PathFromSegments([]string{"room", "alice"})
	if err != nil {
		t.Fatalf("PathFromSegments: %v", err)
	}
	if got, want := p.String(), "room/alice"; got != want {
		t.Fatalf("got %q, want %q", got, want)
	}

	for _, segs := range [][]string{nil, {}, {""}, {"room", ""}, {"a/b"}} {
		if _, err := PathFromSegments(segs); !errors.Is(err, ErrInvalidPath) {
			t.Fatalf("PathFromSegments(%q): got %v, want ErrInvalidPath", segs, err)
		}
	}
}

func TestPathSegments(t *testing.T) {
	t.Parallel()

	p := Path("room/alice/video")
	segs := p.Segments()
	if len(segs) != 3 || segs[0] != "room" || segs[1] != "alice" || segs[2] != "video" {
		t.Fatalf("Segments() = %q", segs)
	}
	if Path("").Segments() != nil {
		t.Fatalf("empty path should have no segments")
	}
}

func TestPathHasPrefix(t *testing.T) {
	t.Parallel()

	tests := []struct {
		path, prefix Path
		want         bool
	}{
		{"a/1", "a", true},
		{"a/1", "a/1", true},
		{"a/1/x", "a/1", true},
		{"ab", "a", false},
		{"b/1", "a", false},
		{"a", "a/1", false},
		{"anything", "", true},
	}
	for _, tt := range tests {
		if got := tt.path.HasPrefix(tt.prefix); got != tt.want {
			t.Errorf("%q.HasPrefix(%q) = %v, want %v", tt.path, tt.prefix, got, tt.want)
		}
	}
}
