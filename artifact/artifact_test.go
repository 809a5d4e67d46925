package artifact

import (
	"bytes"
	"encoding/binary"
	"errors"
	"os"
	"path/filepath"
	"testing"

	bin "github.com/concordium/concordium-build/internal/binary"
	"github.com/concordium/concordium-build/wasm"
)

// minimalModule assembles a module with one empty type section.
func minimalModule() []byte {
	w := bin.NewWriter()
	w.WriteU32LE(wasm.Magic)
	w.WriteU32LE(wasm.Version)
	w.Byte(wasm.SectionType)
	w.WriteU32(1)
	w.Byte(0) // zero signatures
	return w.Bytes()
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	module := minimalModule()
	cs := &wasm.CustomSection{Name: "concordium-schema", Contents: []byte{0xFF, 0xFF, 3, 0, 0, 0, 0}}

	for _, v := range []Version{V0, V1} {
		for _, custom := range []*wasm.CustomSection{nil, cs} {
			encoded := Encode(v, module, custom)

			if length := binary.BigEndian.Uint32(encoded[4:8]); int(length) != len(encoded)-8 {
				t.Errorf("%s: length field %d, want %d", v, length, len(encoded)-8)
			}

			gotVersion, payload, err := Decode(encoded)
			if err != nil {
				t.Fatalf("%s: Decode: %v", v, err)
			}
			if gotVersion != v {
				t.Errorf("version: got %s, want %s", gotVersion, v)
			}

			gotModule, gotCustom, err := SplitPayload(payload)
			if err != nil {
				t.Fatalf("%s: SplitPayload: %v", v, err)
			}
			if !bytes.Equal(gotModule, module) {
				t.Errorf("%s: module bytes differ", v)
			}
			switch {
			case custom == nil && gotCustom != nil:
				t.Errorf("%s: unexpected custom section %+v", v, gotCustom)
			case custom != nil && gotCustom == nil:
				t.Errorf("%s: missing custom section", v)
			case custom != nil:
				if gotCustom.Name != custom.Name || !bytes.Equal(gotCustom.Contents, custom.Contents) {
					t.Errorf("%s: custom section: got %+v", v, gotCustom)
				}
			}
		}
	}
}

func TestDecode_Rejects(t *testing.T) {
	module := minimalModule()
	encoded := Encode(V1, module, nil)

	if _, _, err := Decode(encoded[:7]); !errors.Is(err, ErrTruncated) {
		t.Errorf("truncated: got %v", err)
	}

	tampered := append([]byte(nil), encoded...)
	tampered[7]++ // length no longer matches
	if _, _, err := Decode(tampered); !errors.Is(err, ErrLengthMismatch) {
		t.Errorf("length mismatch: got %v", err)
	}

	badTag := append([]byte(nil), encoded...)
	badTag[0] = 9
	if _, _, err := Decode(badTag); err == nil {
		t.Error("expected error for unsupported version tag")
	}
}

func TestVersion(t *testing.T) {
	if V0.Extension() != "v0" || V1.Extension() != "v1" {
		t.Error("unexpected extensions")
	}
	for _, s := range []string{"0", "v0", "V0"} {
		if v, err := ParseVersion(s); err != nil || v != V0 {
			t.Errorf("ParseVersion(%q) = %v, %v", s, v, err)
		}
	}
	if v, err := ParseVersion("V1"); err != nil || v != V1 {
		t.Errorf("ParseVersion(V1) = %v, %v", v, err)
	}
	if _, err := ParseVersion("V2"); err == nil {
		t.Error("expected error for unsupported version")
	}
}

func TestResolveOutputPath(t *testing.T) {
	got, err := ResolveOutputPath("", "/tmp/x/out.wasm", V1)
	if err != nil || got != "/tmp/x/out.wasm.v1" {
		t.Errorf("default path: got %q, %v", got, err)
	}

	got, err = ResolveOutputPath("build/my.wasm.v0", "", V0)
	if err != nil || got != "build/my.wasm.v0" {
		t.Errorf("explicit path: got %q, %v", got, err)
	}

	for _, bad := range []string{"build/", ".", ".."} {
		if _, err := ResolveOutputPath(bad, "", V1); err == nil {
			t.Errorf("expected error for %q", bad)
		}
	}

	dir := t.TempDir()
	if _, err := ResolveOutputPath(dir, "", V1); err == nil {
		t.Error("expected error for an existing directory")
	}
}

func TestWrite_CreatesParent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "out.wasm.v1")
	if err := Write(path, []byte{1, 2, 3}); err != nil {
		t.Fatalf("Write: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil || !bytes.Equal(data, []byte{1, 2, 3}) {
		t.Errorf("read back: %v, %v", data, err)
	}
}
