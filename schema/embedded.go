package schema

import (
	"errors"
	"fmt"

	"github.com/concordium/concordium-build/wasm"
)

// Custom section names used for embedded schemas. SectionName is the current
// versioned form; the legacy names carry unversioned payloads whose schema
// version is implied by the name.
const (
	SectionName         = "concordium-schema"
	LegacySectionNameV0 = "concordium-schema-v1"
	LegacySectionNameV1 = "concordium-schema-v2"
)

// ErrNoEmbeddedSchema is returned when a module carries no schema custom
// section.
var ErrNoEmbeddedSchema = errors.New("no schema embedded in the module")

// EmbedSection wraps a schema into the custom section attached to deployed
// modules.
func EmbedSection(ms *ModuleSchema) wasm.CustomSection {
	return wasm.CustomSection{Name: SectionName, Contents: ms.Serialize()}
}

// FindEmbedded locates and decodes the schema embedded in a module skeleton.
// Versioned sections take precedence over legacy unversioned ones.
func FindEmbedded(sk *wasm.Skeleton) (*ModuleSchema, error) {
	var legacy *wasm.CustomSection
	var legacyVersion Version
	for _, cs := range sk.CustomSections() {
		switch cs.Name {
		case SectionName:
			ms, err := Deserialize(cs.Contents)
			if err != nil {
				return nil, fmt.Errorf("embedded schema: %w", err)
			}
			return ms, nil
		case LegacySectionNameV0:
			section := cs
			legacy, legacyVersion = &section, V0
		case LegacySectionNameV1:
			section := cs
			legacy, legacyVersion = &section, V1
		}
	}
	if legacy != nil {
		ms, err := DeserializeUnversioned(legacy.Contents, legacyVersion)
		if err != nil {
			return nil, fmt.Errorf("embedded legacy schema: %w", err)
		}
		return ms, nil
	}
	return nil, ErrNoEmbeddedSchema
}
