package wasm

import (
	"errors"
	"fmt"
	"io"

	"github.com/concordium/concordium-build/internal/binary"
)

// Parsing errors returned by ParseSkeleton.
var (
	ErrInvalidMagic   = errors.New("invalid wasm magic number")
	ErrInvalidVersion = errors.New("invalid wasm version")
)

// Skeleton is the parsed-but-unvalidated structural view of a compiled
// module. Section payloads are kept as raw bytes so that re-encoding is
// byte-faithful; only the tables this tool needs (types, imports, exports,
// custom sections) are decoded.
type Skeleton struct {
	Sections []Section
	Types    []FuncType
	Imports  []Import
	Exports  []Export
}

// Section is one module section in binary order. For custom sections Custom
// is set and Data is nil; for all other sections Data holds the raw payload.
type Section struct {
	ID     byte
	Data   []byte
	Custom *CustomSection
}

// CustomSection holds a named custom section's contents.
type CustomSection struct {
	Name     string
	Contents []byte
}

// FuncType represents a core function signature.
type FuncType struct {
	Params  []ValType
	Results []ValType
}

// Import represents an imported item. TypeIdx is meaningful for function
// imports only.
type Import struct {
	Module  string
	Name    string
	Kind    byte
	TypeIdx uint32
}

// Export describes an exported item.
type Export struct {
	Name string
	Kind byte
	Idx  uint32
}

// ParseSkeleton parses a WebAssembly binary into a section skeleton.
func ParseSkeleton(data []byte) (*Skeleton, error) {
	r := binary.NewBytesReader(data)

	magic, err := r.ReadU32LE()
	if err != nil {
		return nil, r.WrapError("header", err)
	}
	if magic != Magic {
		return nil, ErrInvalidMagic
	}

	version, err := r.ReadU32LE()
	if err != nil {
		return nil, r.WrapError("header", err)
	}
	if version != Version {
		return nil, ErrInvalidVersion
	}

	sk := &Skeleton{}
	var lastOrder int

	for {
		sectionID, err := r.ReadByte()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, r.WrapError("section header", err)
		}

		// Custom sections can appear anywhere; everything else must be in
		// canonical order and appear at most once.
		if sectionID != SectionCustom {
			order := sectionOrder(sectionID)
			if order < 0 {
				return nil, fmt.Errorf("unknown section ID: 0x%02x", sectionID)
			}
			if order <= lastOrder {
				return nil, fmt.Errorf("section %d appears out of order", sectionID)
			}
			lastOrder = order
		}

		size, err := r.ReadU32()
		if err != nil {
			return nil, r.WrapError("section size", err)
		}
		payload, err := r.ReadBytes(int(size))
		if err != nil {
			return nil, r.WrapError("section data", err)
		}

		switch sectionID {
		case SectionCustom:
			cs, err := parseCustomSection(payload)
			if err != nil {
				return nil, fmt.Errorf("custom section: %w", err)
			}
			sk.Sections = append(sk.Sections, Section{ID: SectionCustom, Custom: cs})
		case SectionType:
			if err := parseTypeSection(payload, sk); err != nil {
				return nil, fmt.Errorf("type section: %w", err)
			}
			sk.Sections = append(sk.Sections, Section{ID: sectionID, Data: payload})
		case SectionImport:
			if err := parseImportSection(payload, sk); err != nil {
				return nil, fmt.Errorf("import section: %w", err)
			}
			sk.Sections = append(sk.Sections, Section{ID: sectionID, Data: payload})
		case SectionExport:
			if err := parseExportSection(payload, sk); err != nil {
				return nil, fmt.Errorf("export section: %w", err)
			}
			sk.Sections = append(sk.Sections, Section{ID: sectionID, Data: payload})
		default:
			sk.Sections = append(sk.Sections, Section{ID: sectionID, Data: payload})
		}
	}

	return sk, nil
}

// sectionOrder returns the canonical ordering for a section ID, or -1 for an
// unknown ID. DataCount sits between Element and Code in the binary format.
func sectionOrder(id byte) int {
	switch id {
	case SectionType:
		return 1
	case SectionImport:
		return 2
	case SectionFunction:
		return 3
	case SectionTable:
		return 4
	case SectionMemory:
		return 5
	case SectionGlobal:
		return 6
	case SectionExport:
		return 7
	case SectionStart:
		return 8
	case SectionElement:
		return 9
	case SectionDataCount:
		return 10
	case SectionCode:
		return 11
	case SectionData:
		return 12
	default:
		return -1
	}
}

func parseCustomSection(payload []byte) (*CustomSection, error) {
	r := binary.NewBytesReader(payload)
	name, err := r.ReadName()
	if err != nil {
		return nil, err
	}
	contents, err := r.ReadRemaining()
	if err != nil {
		return nil, err
	}
	return &CustomSection{Name: name, Contents: contents}, nil
}

func parseTypeSection(payload []byte, sk *Skeleton) error {
	r := binary.NewBytesReader(payload)
	count, err := r.ReadU32()
	if err != nil {
		return err
	}
	sk.Types = make([]FuncType, 0, count)
	for i := uint32(0); i < count; i++ {
		form, err := r.ReadByte()
		if err != nil {
			return err
		}
		if form != FuncTypeByte {
			return fmt.Errorf("type %d: unsupported type form 0x%02x", i, form)
		}
		params, err := readValTypes(r)
		if err != nil {
			return err
		}
		results, err := readValTypes(r)
		if err != nil {
			return err
		}
		sk.Types = append(sk.Types, FuncType{Params: params, Results: results})
	}
	return nil
}

func readValTypes(r *binary.Reader) ([]ValType, error) {
	count, err := r.ReadU32()
	if err != nil {
		return nil, err
	}
	out := make([]ValType, 0, count)
	for i := uint32(0); i < count; i++ {
		b, err := r.ReadByte()
		if err != nil {
			return nil, err
		}
		switch ValType(b) {
		case ValI32, ValI64, ValF32, ValF64:
			out = append(out, ValType(b))
		default:
			return nil, fmt.Errorf("unsupported value type 0x%02x", b)
		}
	}
	return out, nil
}

func parseImportSection(payload []byte, sk *Skeleton) error {
	r := binary.NewBytesReader(payload)
	count, err := r.ReadU32()
	if err != nil {
		return err
	}
	sk.Imports = make([]Import, 0, count)
	for i := uint32(0); i < count; i++ {
		module, err := r.ReadName()
		if err != nil {
			return err
		}
		name, err := r.ReadName()
		if err != nil {
			return err
		}
		kind, err := r.ReadByte()
		if err != nil {
			return err
		}
		imp := Import{Module: module, Name: name, Kind: kind}
		switch kind {
		case KindFunc:
			typeIdx, err := r.ReadU32()
			if err != nil {
				return err
			}
			imp.TypeIdx = typeIdx
		case KindTable:
			if _, err := r.ReadByte(); err != nil { // element type
				return err
			}
			if err := skipLimits(r); err != nil {
				return err
			}
		case KindMemory:
			if err := skipLimits(r); err != nil {
				return err
			}
		case KindGlobal:
			if _, err := r.ReadBytes(2); err != nil { // valtype + mutability
				return err
			}
		default:
			return fmt.Errorf("import %d: unknown descriptor kind 0x%02x", i, kind)
		}
		sk.Imports = append(sk.Imports, imp)
	}
	return nil
}

func skipLimits(r *binary.Reader) error {
	flags, err := r.ReadByte()
	if err != nil {
		return err
	}
	if _, err := r.ReadU32(); err != nil { // min
		return err
	}
	if flags&0x01 != 0 {
		if _, err := r.ReadU32(); err != nil { // max
			return err
		}
	}
	return nil
}

func parseExportSection(payload []byte, sk *Skeleton) error {
	r := binary.NewBytesReader(payload)
	count, err := r.ReadU32()
	if err != nil {
		return err
	}
	sk.Exports = make([]Export, 0, count)
	for i := uint32(0); i < count; i++ {
		name, err := r.ReadName()
		if err != nil {
			return err
		}
		kind, err := r.ReadByte()
		if err != nil {
			return err
		}
		idx, err := r.ReadU32()
		if err != nil {
			return err
		}
		if kind > KindGlobal {
			return fmt.Errorf("export %q: unknown descriptor kind 0x%02x", name, kind)
		}
		sk.Exports = append(sk.Exports, Export{Name: name, Kind: kind, Idx: idx})
	}
	return nil
}

// CustomSections returns all custom sections in binary order.
func (sk *Skeleton) CustomSections() []CustomSection {
	var out []CustomSection
	for _, sec := range sk.Sections {
		if sec.ID == SectionCustom && sec.Custom != nil {
			out = append(out, *sec.Custom)
		}
	}
	return out
}

// Strip removes all custom sections from the skeleton.
func (sk *Skeleton) Strip() {
	kept := sk.Sections[:0]
	for _, sec := range sk.Sections {
		if sec.ID != SectionCustom {
			kept = append(kept, sec)
		}
	}
	sk.Sections = kept
}

// ImportFuncType returns the signature of a function import.
func (sk *Skeleton) ImportFuncType(imp Import) (FuncType, bool) {
	if imp.Kind != KindFunc || int(imp.TypeIdx) >= len(sk.Types) {
		return FuncType{}, false
	}
	return sk.Types[imp.TypeIdx], true
}

// Encode writes the skeleton back to canonical WebAssembly binary form.
// Parsing and re-encoding an unmodified skeleton reproduces the input bytes.
func (sk *Skeleton) Encode() []byte {
	w := binary.NewWriter()
	w.WriteU32LE(Magic)
	w.WriteU32LE(Version)
	for _, sec := range sk.Sections {
		if sec.ID == SectionCustom && sec.Custom != nil {
			w.WriteBytes(sec.Custom.Encode())
			continue
		}
		w.Byte(sec.ID)
		w.WriteU32(uint32(len(sec.Data)))
		w.WriteBytes(sec.Data)
	}
	return w.Bytes()
}

// Encode returns the custom section in wire form: section ID zero, payload
// size, then the length-prefixed name followed by the raw contents.
func (cs CustomSection) Encode() []byte {
	body := binary.NewWriter()
	body.WriteName(cs.Name)
	body.WriteBytes(cs.Contents)

	w := binary.NewWriter()
	w.Byte(SectionCustom)
	w.WriteU32(uint32(body.Len()))
	w.WriteBytes(body.Bytes())
	return w.Bytes()
}
