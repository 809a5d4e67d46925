package main

import (
	"encoding/binary"
	"fmt"
	"os"

	"github.com/concordium/concordium-build/artifact"
	"github.com/concordium/concordium-build/schema"
	"github.com/concordium/concordium-build/wasm"
)

// loadModuleSchema reads a module file, either a raw wasm binary or a
// versioned module, and decodes the schema embedded in it.
func loadModuleSchema(path string) (*schema.ModuleSchema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	sk, err := parseModuleFile(data)
	if err != nil {
		return nil, err
	}
	ms, err := schema.FindEmbedded(sk)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return ms, nil
}

// parseModuleFile accepts either a raw wasm binary or a versioned module and
// returns the parsed skeleton.
func parseModuleFile(data []byte) (*wasm.Skeleton, error) {
	if len(data) >= 4 && binary.LittleEndian.Uint32(data) == wasm.Magic {
		return wasm.ParseSkeleton(data)
	}
	_, payload, err := artifact.Decode(data)
	if err != nil {
		return nil, err
	}
	return wasm.ParseSkeleton(payload)
}

// loadSchemaFile reads a binary schema file. Versioned streams decode
// directly; legacy unversioned streams require an explicit schema version.
func loadSchemaFile(path, versionFlag string) (*schema.ModuleSchema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if len(data) >= 2 && data[0] == schema.VersionedMagic[0] && data[1] == schema.VersionedMagic[1] {
		return schema.Deserialize(data)
	}
	if versionFlag == "" {
		return nil, fmt.Errorf("%s is an unversioned schema, --schema-version is required", path)
	}
	v, err := schema.ParseVersion(versionFlag)
	if err != nil {
		return nil, err
	}
	return schema.DeserializeUnversioned(data, v)
}

// loadSchemaSource resolves the --module/--schema flag pair used by the
// schema inspection commands. Exactly one of the two must be given.
func loadSchemaSource(modulePath, schemaPath, versionFlag string) (*schema.ModuleSchema, error) {
	switch {
	case modulePath != "" && schemaPath != "":
		return nil, fmt.Errorf("--module and --schema are mutually exclusive")
	case modulePath != "":
		return loadModuleSchema(modulePath)
	case schemaPath != "":
		return loadSchemaFile(schemaPath, versionFlag)
	default:
		return nil, fmt.Errorf("one of --module or --schema is required")
	}
}
