package wire

import (
	"errors"
	"testing"
)

func TestParseVersion(t *testing.T) {
	t.Parallel()
	for _, v := range Versions {
		got, err := ParseVersion(uint64(v))
		if err != nil || got != v {
			t.Fatalf("ParseVersion(%#x) = %v, %v", uint64(v), got, err)
		}
	}

	_, err := ParseVersion(0xff00dead)
	var uv *ErrUnknownVersion
	if !errors.As(err, &uv) {
		t.Fatalf("err = %v, want ErrUnknownVersion", err)
	}
}

func TestVersionFamilies(t *testing.T) {
	t.Parallel()
	for _, v := range []Version{VersionLite01, VersionLite02, VersionLite03} {
		if !v.Lite() || v.IETF() {
			t.Fatalf("%s: family flags wrong", v)
		}
		if v.ALPN() != "moql" {
			t.Fatalf("%s: ALPN = %q, want moql", v, v.ALPN())
		}
	}
	for _, v := range []Version{VersionIETF14, VersionIETF15, VersionIETF16} {
		if v.Lite() || !v.IETF() {
			t.Fatalf("%s: family flags wrong", v)
		}
	}
	// IETF ALPNs are per draft.
	if VersionIETF14.ALPN() == VersionIETF15.ALPN() {
		t.Fatal("IETF drafts must have distinct ALPNs")
	}
}

func TestSelectVersion(t *testing.T) {
	t.Parallel()
	v, ok := SelectVersion(
		[]Version{VersionIETF16, VersionIETF15},
		[]uint64{0xff00dead, uint64(VersionIETF15)},
	)
	if !ok || v != VersionIETF15 {
		t.Fatalf("selected %v (ok=%v), want ietf-15", v, ok)
	}

	if _, ok := SelectVersion([]Version{VersionLite03}, []uint64{uint64(VersionIETF15)}); ok {
		t.Fatal("cross-family selection should fail")
	}
}
