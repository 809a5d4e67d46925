// Package artifact implements the versioned module format accepted by the
// chain for deployment:
//
//	[4-byte version tag][4-byte big-endian length][module bytes][optional custom section]
//
// The length field covers everything after the first eight bytes.
package artifact

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/concordium/concordium-build/internal/binary"
	"github.com/concordium/concordium-build/wasm"
)

// Version selects the module format: the allowed-imports set used during
// validation, the export strictness, and the leading 4-byte tag of the
// encoded artifact.
type Version uint32

// Supported module format versions.
const (
	V0 Version = 0
	V1 Version = 1
)

func (v Version) String() string {
	return fmt.Sprintf("V%d", uint32(v))
}

// Extension returns the file extension used for the default output path.
func (v Version) Extension() string {
	if v == V0 {
		return "v0"
	}
	return "v1"
}

// ParseVersion parses a module format version from its textual forms
// ("0", "1", "v0", "V1").
func ParseVersion(s string) (Version, error) {
	switch strings.ToLower(s) {
	case "0", "v0":
		return V0, nil
	case "1", "v1":
		return V1, nil
	default:
		return 0, fmt.Errorf("unsupported module version %q (expected V0 or V1)", s)
	}
}

// Encode serializes a versioned module: version tag, big-endian length
// placeholder, the module's own bytes, then the optional custom section. The
// length field is patched to the total length minus eight.
func Encode(v Version, moduleBytes []byte, cs *wasm.CustomSection) []byte {
	w := binary.NewWriter()
	w.WriteU32BE(uint32(v))
	w.WriteU32BE(0) // length placeholder
	w.WriteBytes(moduleBytes)
	if cs != nil {
		w.WriteBytes(cs.Encode())
	}
	out := w.Bytes()
	patchLength(out)
	return out
}

func patchLength(out []byte) {
	size := uint32(len(out) - 8)
	out[4] = byte(size >> 24)
	out[5] = byte(size >> 16)
	out[6] = byte(size >> 8)
	out[7] = byte(size)
}

// Decode errors.
var (
	ErrTruncated      = errors.New("versioned module: truncated header")
	ErrLengthMismatch = errors.New("versioned module: length field does not match payload size")
)

// Decode reads a versioned module, returning the format version and the
// payload (module bytes plus any trailing custom section). The length field
// must match the payload size exactly.
func Decode(data []byte) (Version, []byte, error) {
	if len(data) < 8 {
		return 0, nil, ErrTruncated
	}
	r := binary.NewBytesReader(data)
	tag, err := r.ReadU32BE()
	if err != nil {
		return 0, nil, err
	}
	if tag != uint32(V0) && tag != uint32(V1) {
		return 0, nil, fmt.Errorf("versioned module: unsupported version tag %d", tag)
	}
	length, err := r.ReadU32BE()
	if err != nil {
		return 0, nil, err
	}
	payload := data[8:]
	if uint32(len(payload)) != length {
		return 0, nil, ErrLengthMismatch
	}
	return Version(tag), payload, nil
}

// SplitPayload separates a decoded payload into the module bytes proper and
// the trailing custom section, if one was appended by Encode. Modules are
// stripped before encoding, so any trailing custom section is the embedded
// one.
func SplitPayload(payload []byte) ([]byte, *wasm.CustomSection, error) {
	r := binary.NewBytesReader(payload)
	if _, err := r.ReadU32LE(); err != nil { // magic
		return nil, nil, r.WrapError("module header", err)
	}
	if _, err := r.ReadU32LE(); err != nil { // version
		return nil, nil, r.WrapError("module header", err)
	}

	moduleEnd := r.Position()
	var trailing *wasm.CustomSection
	for {
		start := r.Position()
		id, err := r.ReadByte()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, nil, r.WrapError("section header", err)
		}
		size, err := r.ReadU32()
		if err != nil {
			return nil, nil, r.WrapError("section size", err)
		}
		body, err := r.ReadBytes(int(size))
		if err != nil {
			return nil, nil, r.WrapError("section data", err)
		}
		if id == wasm.SectionCustom && r.Position() == len(payload) {
			br := binary.NewBytesReader(body)
			name, err := br.ReadName()
			if err != nil {
				return nil, nil, fmt.Errorf("trailing custom section: %w", err)
			}
			contents, err := br.ReadRemaining()
			if err != nil {
				return nil, nil, fmt.Errorf("trailing custom section: %w", err)
			}
			trailing = &wasm.CustomSection{Name: name, Contents: contents}
			moduleEnd = start
			break
		}
		moduleEnd = r.Position()
	}
	return payload[:moduleEnd], trailing, nil
}

// ResolveOutputPath determines where the artifact is written. An explicit
// path must name a file, not a directory; when no path is given the default
// is the compiled binary's path with the version extension appended.
func ResolveOutputPath(out, compiledPath string, v Version) (string, error) {
	if out == "" {
		return compiledPath + "." + v.Extension(), nil
	}
	if strings.HasSuffix(out, string(os.PathSeparator)) || strings.HasSuffix(out, "/") {
		return "", fmt.Errorf(
			"output path %q requires a filename (expected input: `./my/path/my_smart_contract.wasm.%s`)",
			out, v.Extension())
	}
	base := filepath.Base(out)
	if base == "." || base == ".." {
		return "", fmt.Errorf("output path %q requires a filename", out)
	}
	if info, err := os.Stat(out); err == nil && info.IsDir() {
		return "", fmt.Errorf("output path %q is a directory, a filename is required", out)
	}
	return out, nil
}

// Write creates the parent directory if needed and writes the artifact bytes.
func Write(path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating output directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing module: %w", err)
	}
	return nil
}
