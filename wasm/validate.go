package wasm

import "fmt"

// AllowedImports describes the host functions a module may import. All
// imports must be functions from a single host module.
type AllowedImports struct {
	// HostModule is the only import module name permitted.
	HostModule string
	// Names is the set of permitted function names within HostModule.
	Names map[string]struct{}
}

// Allows reports whether the given import is permitted.
func (a AllowedImports) Allows(module, name string) bool {
	if module != a.HostModule {
		return false
	}
	_, ok := a.Names[name]
	return ok
}

// Module is the validated view of a skeleton. It is produced by Validate and
// exposes only what downstream packaging needs.
type Module struct {
	Types   []FuncType
	Imports []Import
	Exports []Export
}

// FuncExports returns the function exports of the module, in export-table
// order.
func (m *Module) FuncExports() []Export {
	var out []Export
	for _, exp := range m.Exports {
		if exp.Kind == KindFunc {
			out = append(out, exp)
		}
	}
	return out
}

// Validate checks the skeleton's import table against the allowed set and
// returns the validated module view. Only function imports from the allowed
// host module are accepted.
func Validate(allowed AllowedImports, sk *Skeleton) (*Module, error) {
	for _, imp := range sk.Imports {
		if imp.Kind != KindFunc {
			return nil, fmt.Errorf(
				"import %s.%s: only function imports are allowed", imp.Module, imp.Name)
		}
		if !allowed.Allows(imp.Module, imp.Name) {
			return nil, fmt.Errorf(
				"import %s.%s is not allowed by the target platform version", imp.Module, imp.Name)
		}
		if _, ok := sk.ImportFuncType(imp); !ok {
			return nil, fmt.Errorf(
				"import %s.%s references type index %d which is out of bounds",
				imp.Module, imp.Name, imp.TypeIdx)
		}
	}
	return &Module{Types: sk.Types, Imports: sk.Imports, Exports: sk.Exports}, nil
}
