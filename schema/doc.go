// Package schema models smart contract interface schemas and converts them
// between their compact binary form and a JSON representation usable by
// external tooling.
//
// A module schema is version-tagged (V0 through V3) and maps contract names
// to per-contract schemas: an optional init function descriptor, an optional
// state descriptor (V0), an optional event descriptor (V3), and a mapping
// from entrypoint name to function descriptor. Type descriptors are a
// recursive structure serialized to a compact tag-prefixed byte form; the
// JSON documents carry them as opaque base64 strings.
//
// The versioned binary stream is distinguished from legacy unversioned
// schemas by the 0xFF 0xFF magic prefix.
package schema
