package schema

import (
	"encoding/base64"
	"errors"
	"fmt"
	"sort"

	"github.com/concordium/concordium-build/internal/binary"
)

// VersionedMagic prefixes a versioned schema byte stream, distinguishing it
// from legacy unversioned schemas.
var VersionedMagic = [2]byte{0xFF, 0xFF}

// ErrNotVersioned is returned when Deserialize is given bytes without the
// versioned magic prefix.
var ErrNotVersioned = errors.New("schema: missing versioned magic prefix")

// Serialize encodes the schema as a versioned byte stream: the two magic
// bytes, the version tag, then the contract map in sorted name order.
func (ms *ModuleSchema) Serialize() []byte {
	w := binary.NewWriter()
	w.WriteBytes(VersionedMagic[:])
	w.Byte(byte(ms.Version))
	serializeContracts(w, ms.Version, ms.Contracts)
	return w.Bytes()
}

// Base64 returns the whole-schema base64 form (standard alphabet, no
// padding), suitable for embedding as a single string.
func (ms *ModuleSchema) Base64() string {
	return base64.RawStdEncoding.EncodeToString(ms.Serialize())
}

// Deserialize decodes a versioned schema byte stream.
func Deserialize(data []byte) (*ModuleSchema, error) {
	if len(data) < 3 || data[0] != VersionedMagic[0] || data[1] != VersionedMagic[1] {
		return nil, ErrNotVersioned
	}
	if data[2] > byte(V3) {
		return nil, fmt.Errorf("schema: unsupported version tag %d", data[2])
	}
	version := Version(data[2])
	r := binary.NewBytesReader(data[3:])
	contracts, err := deserializeContracts(r, version)
	if err != nil {
		return nil, err
	}
	return &ModuleSchema{Version: version, Contracts: contracts}, nil
}

// DeserializeUnversioned decodes a legacy schema byte stream that carries no
// magic or version tag; the caller supplies the version.
func DeserializeUnversioned(data []byte, version Version) (*ModuleSchema, error) {
	r := binary.NewBytesReader(data)
	contracts, err := deserializeContracts(r, version)
	if err != nil {
		return nil, err
	}
	return &ModuleSchema{Version: version, Contracts: contracts}, nil
}

func serializeContracts(w *binary.Writer, v Version, contracts map[string]*Contract) {
	names := make([]string, 0, len(contracts))
	for name := range contracts {
		names = append(names, name)
	}
	sort.Strings(names)
	w.WriteU32LE(uint32(len(names)))
	for _, name := range names {
		writeString(w, name)
		contracts[name].serialize(w, v.caps())
	}
}

func deserializeContracts(r *binary.Reader, v Version) (map[string]*Contract, error) {
	count, err := r.ReadU32LE()
	if err != nil {
		return nil, r.WrapError("contract count", err)
	}
	contracts := make(map[string]*Contract, count)
	for i := uint32(0); i < count; i++ {
		name, err := readString(r)
		if err != nil {
			return nil, r.WrapError("contract name", err)
		}
		c, err := deserializeContract(r, v.caps())
		if err != nil {
			return nil, fmt.Errorf("contract %q: %w", name, err)
		}
		contracts[name] = c
	}
	return contracts, nil
}

// Serialize encodes a single contract schema for the given version. This is
// the per-contract payload produced by schema-generation entry points.
func (c *Contract) Serialize(v Version) []byte {
	w := binary.NewWriter()
	c.serialize(w, v.caps())
	return w.Bytes()
}

// DeserializeContract decodes a single contract schema of the given version.
func DeserializeContract(v Version, data []byte) (*Contract, error) {
	r := binary.NewBytesReader(data)
	c, err := deserializeContract(r, v.caps())
	if err != nil {
		return nil, err
	}
	if rest, _ := r.ReadRemaining(); len(rest) != 0 {
		return nil, fmt.Errorf("contract schema: %d trailing bytes", len(rest))
	}
	return c, nil
}

func (c *Contract) serialize(w *binary.Writer, caps capabilities) {
	if caps.hasState {
		writeOptionType(w, c.State)
	}
	writeOption(w, c.Init != nil, func() { c.Init.serialize(w, caps) })
	if caps.hasEvent {
		writeOptionType(w, c.Event)
	}
	names := make([]string, 0, len(c.Receive))
	for name := range c.Receive {
		names = append(names, name)
	}
	sort.Strings(names)
	w.WriteU32LE(uint32(len(names)))
	for _, name := range names {
		writeString(w, name)
		c.Receive[name].serialize(w, caps)
	}
}

func deserializeContract(r *binary.Reader, caps capabilities) (*Contract, error) {
	c := &Contract{}
	var err error
	if caps.hasState {
		if c.State, err = readOptionType(r); err != nil {
			return nil, fmt.Errorf("state: %w", err)
		}
	}
	hasInit, err := readOptionTag(r)
	if err != nil {
		return nil, fmt.Errorf("init: %w", err)
	}
	if hasInit {
		if c.Init, err = deserializeFunction(r, caps); err != nil {
			return nil, fmt.Errorf("init: %w", err)
		}
	}
	if caps.hasEvent {
		if c.Event, err = readOptionType(r); err != nil {
			return nil, fmt.Errorf("event: %w", err)
		}
	}
	count, err := r.ReadU32LE()
	if err != nil {
		return nil, fmt.Errorf("entrypoint count: %w", err)
	}
	c.Receive = make(map[string]*Function, count)
	for i := uint32(0); i < count; i++ {
		name, err := readString(r)
		if err != nil {
			return nil, fmt.Errorf("entrypoint name: %w", err)
		}
		fn, err := deserializeFunction(r, caps)
		if err != nil {
			return nil, fmt.Errorf("entrypoint %q: %w", name, err)
		}
		c.Receive[name] = fn
	}
	return c, nil
}

func (f *Function) serialize(w *binary.Writer, caps capabilities) {
	writeOptionType(w, f.Parameter)
	if caps.hasReturnValue {
		writeOptionType(w, f.ReturnValue)
	}
	if caps.hasError {
		writeOptionType(w, f.Error)
	}
}

func deserializeFunction(r *binary.Reader, caps capabilities) (*Function, error) {
	f := &Function{}
	var err error
	if f.Parameter, err = readOptionType(r); err != nil {
		return nil, fmt.Errorf("parameter: %w", err)
	}
	if caps.hasReturnValue {
		if f.ReturnValue, err = readOptionType(r); err != nil {
			return nil, fmt.Errorf("return value: %w", err)
		}
	}
	if caps.hasError {
		if f.Error, err = readOptionType(r); err != nil {
			return nil, fmt.Errorf("error: %w", err)
		}
	}
	return f, nil
}

// Serialize returns the compact binary form of a type descriptor. This is
// the payload carried, base64-encoded, in the JSON schema documents.
func (t *Type) Serialize() []byte {
	w := binary.NewWriter()
	t.serialize(w)
	return w.Bytes()
}

// DeserializeType decodes a single type descriptor and requires the input to
// be fully consumed.
func DeserializeType(data []byte) (*Type, error) {
	r := binary.NewBytesReader(data)
	t, err := deserializeType(r)
	if err != nil {
		return nil, err
	}
	if rest, _ := r.ReadRemaining(); len(rest) != 0 {
		return nil, fmt.Errorf("type descriptor: %d trailing bytes", len(rest))
	}
	return t, nil
}

func (t *Type) serialize(w *binary.Writer) {
	w.Byte(byte(t.Tag))
	switch t.Tag {
	case TagPair:
		t.Elem.serialize(w)
		t.Second.serialize(w)
	case TagList, TagSet:
		w.Byte(byte(t.Size))
		t.Elem.serialize(w)
	case TagMap:
		w.Byte(byte(t.Size))
		t.Elem.serialize(w)
		t.Second.serialize(w)
	case TagArray:
		w.WriteU32LE(t.Len)
		t.Elem.serialize(w)
	case TagStruct:
		t.Fields.serialize(w)
	case TagEnum:
		w.WriteU32LE(uint32(len(t.Variants)))
		for _, v := range t.Variants {
			writeString(w, v.Name)
			v.Fields.serialize(w)
		}
	case TagString, TagContractName, TagReceiveName, TagByteList:
		w.Byte(byte(t.Size))
	case TagULeb128, TagILeb128, TagByteArray:
		w.WriteU32LE(t.Len)
	case TagTaggedEnum:
		w.WriteU32LE(uint32(len(t.Tagged)))
		for _, v := range t.Tagged {
			w.Byte(v.Tag)
			writeString(w, v.Name)
			v.Fields.serialize(w)
		}
	}
}

func deserializeType(r *binary.Reader) (*Type, error) {
	tag, err := r.ReadByte()
	if err != nil {
		return nil, err
	}
	t := &Type{Tag: TypeTag(tag)}
	switch t.Tag {
	case TagUnit, TagBool, TagU8, TagU16, TagU32, TagU64, TagI8, TagI16,
		TagI32, TagI64, TagAmount, TagAccountAddress, TagContractAddress,
		TagTimestamp, TagDuration, TagU128, TagI128:
		return t, nil
	case TagPair:
		if t.Elem, err = deserializeType(r); err != nil {
			return nil, err
		}
		if t.Second, err = deserializeType(r); err != nil {
			return nil, err
		}
	case TagList, TagSet:
		if t.Size, err = readSizeLength(r); err != nil {
			return nil, err
		}
		if t.Elem, err = deserializeType(r); err != nil {
			return nil, err
		}
	case TagMap:
		if t.Size, err = readSizeLength(r); err != nil {
			return nil, err
		}
		if t.Elem, err = deserializeType(r); err != nil {
			return nil, err
		}
		if t.Second, err = deserializeType(r); err != nil {
			return nil, err
		}
	case TagArray:
		if t.Len, err = r.ReadU32LE(); err != nil {
			return nil, err
		}
		if t.Elem, err = deserializeType(r); err != nil {
			return nil, err
		}
	case TagStruct:
		if t.Fields, err = deserializeFields(r); err != nil {
			return nil, err
		}
	case TagEnum:
		count, err := r.ReadU32LE()
		if err != nil {
			return nil, err
		}
		t.Variants = make([]Variant, 0, count)
		for i := uint32(0); i < count; i++ {
			name, err := readString(r)
			if err != nil {
				return nil, err
			}
			fields, err := deserializeFields(r)
			if err != nil {
				return nil, err
			}
			t.Variants = append(t.Variants, Variant{Name: name, Fields: fields})
		}
	case TagString, TagContractName, TagReceiveName, TagByteList:
		if t.Size, err = readSizeLength(r); err != nil {
			return nil, err
		}
	case TagULeb128, TagILeb128, TagByteArray:
		if t.Len, err = r.ReadU32LE(); err != nil {
			return nil, err
		}
	case TagTaggedEnum:
		count, err := r.ReadU32LE()
		if err != nil {
			return nil, err
		}
		t.Tagged = make([]TaggedVariant, 0, count)
		for i := uint32(0); i < count; i++ {
			vtag, err := r.ReadByte()
			if err != nil {
				return nil, err
			}
			name, err := readString(r)
			if err != nil {
				return nil, err
			}
			fields, err := deserializeFields(r)
			if err != nil {
				return nil, err
			}
			t.Tagged = append(t.Tagged, TaggedVariant{Tag: vtag, Name: name, Fields: fields})
		}
	default:
		return nil, r.WrapError("type descriptor", fmt.Errorf("unknown tag %d", tag))
	}
	return t, nil
}

func (f *Fields) serialize(w *binary.Writer) {
	w.Byte(byte(f.Kind))
	switch f.Kind {
	case FieldsNamed:
		w.WriteU32LE(uint32(len(f.Named)))
		for _, field := range f.Named {
			writeString(w, field.Name)
			field.Type.serialize(w)
		}
	case FieldsUnnamed:
		w.WriteU32LE(uint32(len(f.Unnamed)))
		for _, ty := range f.Unnamed {
			ty.serialize(w)
		}
	}
}

func deserializeFields(r *binary.Reader) (*Fields, error) {
	kind, err := r.ReadByte()
	if err != nil {
		return nil, err
	}
	f := &Fields{Kind: FieldsKind(kind)}
	switch f.Kind {
	case FieldsNamed:
		count, err := r.ReadU32LE()
		if err != nil {
			return nil, err
		}
		f.Named = make([]NamedField, 0, count)
		for i := uint32(0); i < count; i++ {
			name, err := readString(r)
			if err != nil {
				return nil, err
			}
			ty, err := deserializeType(r)
			if err != nil {
				return nil, err
			}
			f.Named = append(f.Named, NamedField{Name: name, Type: ty})
		}
	case FieldsUnnamed:
		count, err := r.ReadU32LE()
		if err != nil {
			return nil, err
		}
		f.Unnamed = make([]*Type, 0, count)
		for i := uint32(0); i < count; i++ {
			ty, err := deserializeType(r)
			if err != nil {
				return nil, err
			}
			f.Unnamed = append(f.Unnamed, ty)
		}
	case FieldsNone:
	default:
		return nil, r.WrapError("fields", fmt.Errorf("unknown kind %d", kind))
	}
	return f, nil
}

func writeOptionType(w *binary.Writer, t *Type) {
	writeOption(w, t != nil, func() { t.serialize(w) })
}

func writeOption(w *binary.Writer, present bool, body func()) {
	if present {
		w.Byte(1)
		body()
	} else {
		w.Byte(0)
	}
}

func readOptionTag(r *binary.Reader) (bool, error) {
	b, err := r.ReadByte()
	if err != nil {
		return false, err
	}
	switch b {
	case 0:
		return false, nil
	case 1:
		return true, nil
	default:
		return false, r.WrapError("option", fmt.Errorf("invalid tag %d", b))
	}
}

func readOptionType(r *binary.Reader) (*Type, error) {
	present, err := readOptionTag(r)
	if err != nil || !present {
		return nil, err
	}
	return deserializeType(r)
}

func readSizeLength(r *binary.Reader) (SizeLength, error) {
	b, err := r.ReadByte()
	if err != nil {
		return 0, err
	}
	if b > byte(SizeU64) {
		return 0, r.WrapError("size length", fmt.Errorf("invalid value %d", b))
	}
	return SizeLength(b), nil
}

func writeString(w *binary.Writer, s string) {
	w.WriteU32LE(uint32(len(s)))
	w.WriteBytes([]byte(s))
}

func readString(r *binary.Reader) (string, error) {
	length, err := r.ReadU32LE()
	if err != nil {
		return "", err
	}
	data, err := r.ReadBytes(int(length))
	if err != nil {
		return "", err
	}
	return string(data), nil
}
