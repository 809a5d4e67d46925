package schema

import "fmt"

// Version tags the module schema format. Later versions carry more per
// function information; see the capability table below.
type Version uint8

// Supported schema versions.
const (
	V0 Version = iota // parameter-only functions, optional contract state
	V1                // adds return values
	V2                // adds error types
	V3                // adds contract event types
)

func (v Version) String() string {
	return fmt.Sprintf("V%d", uint8(v))
}

// ParseVersion parses a schema version from its textual forms ("0".."3",
// "v0".."v3").
func ParseVersion(s string) (Version, error) {
	switch s {
	case "0", "v0", "V0":
		return V0, nil
	case "1", "v1", "V1":
		return V1, nil
	case "2", "v2", "V2":
		return V2, nil
	case "3", "v3", "V3":
		return V3, nil
	default:
		return 0, fmt.Errorf("unsupported schema version %q (expected V0..V3)", s)
	}
}

// capabilities describes what a schema version can express. The four
// versions share one codec parameterized by this table instead of four
// near-identical per-version paths.
type capabilities struct {
	hasState       bool // contract-level state descriptor
	hasReturnValue bool // function return value descriptor
	hasError       bool // function error descriptor
	hasEvent       bool // contract-level event descriptor
}

func (v Version) caps() capabilities {
	switch v {
	case V0:
		return capabilities{hasState: true}
	case V1:
		return capabilities{hasReturnValue: true}
	case V2:
		return capabilities{hasReturnValue: true, hasError: true}
	default:
		return capabilities{hasReturnValue: true, hasError: true, hasEvent: true}
	}
}

// ModuleSchema is a version-tagged mapping from contract name to contract
// schema.
type ModuleSchema struct {
	Version   Version
	Contracts map[string]*Contract
}

// Contract describes one contract's interface. State is meaningful for V0
// only and Event for V3 only; other versions ignore them.
type Contract struct {
	Init    *Function
	State   *Type
	Event   *Type
	Receive map[string]*Function
}

// Function describes an init or receive function. ReturnValue is meaningful
// for V1 and later, Error for V2 and later.
type Function struct {
	Parameter   *Type
	ReturnValue *Type
	Error       *Type
}

// TypeTag identifies a type descriptor variant.
type TypeTag byte

// Type descriptor tags.
const (
	TagUnit            TypeTag = 0
	TagBool            TypeTag = 1
	TagU8              TypeTag = 2
	TagU16             TypeTag = 3
	TagU32             TypeTag = 4
	TagU64             TypeTag = 5
	TagI8              TypeTag = 6
	TagI16             TypeTag = 7
	TagI32             TypeTag = 8
	TagI64             TypeTag = 9
	TagAmount          TypeTag = 10
	TagAccountAddress  TypeTag = 11
	TagContractAddress TypeTag = 12
	TagTimestamp       TypeTag = 13
	TagDuration        TypeTag = 14
	TagPair            TypeTag = 15
	TagList            TypeTag = 16
	TagSet             TypeTag = 17
	TagMap             TypeTag = 18
	TagArray           TypeTag = 19
	TagStruct          TypeTag = 20
	TagEnum            TypeTag = 21
	TagString          TypeTag = 22
	TagU128            TypeTag = 23
	TagI128            TypeTag = 24
	TagContractName    TypeTag = 25
	TagReceiveName     TypeTag = 26
	TagULeb128         TypeTag = 27
	TagILeb128         TypeTag = 28
	TagByteList        TypeTag = 29
	TagByteArray       TypeTag = 30
	TagTaggedEnum      TypeTag = 31
)

// SizeLength selects the width of a collection's length prefix.
type SizeLength byte

// Length prefix widths.
const (
	SizeU8  SizeLength = 0
	SizeU16 SizeLength = 1
	SizeU32 SizeLength = 2
	SizeU64 SizeLength = 3
)

// Type is a recursive type descriptor. Which fields are meaningful depends
// on Tag:
//
//	Size     List, Set, Map, String, ContractName, ReceiveName, ByteList
//	Len      Array, ByteArray length; ULeb128, ILeb128 byte constraint
//	Elem     Pair first, List/Set/Array element, Map key
//	Second   Pair second, Map value
//	Fields   Struct
//	Variants Enum
//	Tagged   TaggedEnum
type Type struct {
	Tag      TypeTag
	Size     SizeLength
	Len      uint32
	Elem     *Type
	Second   *Type
	Fields   *Fields
	Variants []Variant
	Tagged   []TaggedVariant
}

// FieldsKind discriminates field list shapes.
type FieldsKind byte

// Field list shapes.
const (
	FieldsNamed   FieldsKind = 0
	FieldsUnnamed FieldsKind = 1
	FieldsNone    FieldsKind = 2
)

// Fields describes a struct's or enum variant's payload.
type Fields struct {
	Kind    FieldsKind
	Named   []NamedField
	Unnamed []*Type
}

// NamedField is one field of a named field list.
type NamedField struct {
	Name string
	Type *Type
}

// Variant is one case of an enum.
type Variant struct {
	Name   string
	Fields *Fields
}

// TaggedVariant is one case of a tagged enum, with an explicit tag byte.
type TaggedVariant struct {
	Tag    byte
	Name   string
	Fields *Fields
}
