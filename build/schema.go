package build

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	cerrors "github.com/concordium/concordium-build/errors"
	"github.com/concordium/concordium-build/schema"
	"github.com/concordium/concordium-build/wasm"
)

// schemaExportPrefix names the per-contract schema-generation entry points
// the build-schema feature adds to the module.
const schemaExportPrefix = "concordium_schema_function_init_"

// Generator extracts a structured schema from a schema-build binary.
type Generator func(ctx context.Context, wasmBytes []byte) (*schema.ModuleSchema, error)

// GeneratorFor returns the extraction function for a schema version.
func GeneratorFor(v schema.Version) Generator {
	return func(ctx context.Context, wasmBytes []byte) (*schema.ModuleSchema, error) {
		return extractSchema(ctx, wasmBytes, v)
	}
}

// BuildSchema compiles the contract with the schema feature enabled, into a
// target subdirectory separate from the plain contract build, and extracts
// the structured schema from the resulting binary.
func BuildSchema(ctx context.Context, tc Toolchain, opts Options, gen Generator) (*schema.ModuleSchema, error) {
	meta, err := tc.Metadata(ctx, opts.Dir)
	if err != nil {
		return nil, cerrors.New(cerrors.PhaseSchemaBuild, cerrors.KindCompilationFailed).
			Detail("could not access compiler metadata").Cause(err).Build()
	}

	targetDir := filepath.Join(meta.TargetDirectory, "concordium", "schema")
	Logger().Debug("building contract schema",
		zap.String("package", meta.PackageName),
		zap.String("target_dir", targetDir))

	err = tc.Compile(ctx, CompileRequest{
		Dir:       opts.Dir,
		TargetDir: targetDir,
		Features:  []string{schemaBuildFeature},
		ExtraArgs: opts.CargoArgs,
	})
	if err != nil {
		return nil, cerrors.CompilationFailed(cerrors.PhaseSchemaBuild, err)
	}

	path := artifactPath(targetDir, meta.PackageName)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, cerrors.ArtifactNotFound(cerrors.PhaseSchemaBuild, path, err)
	}
	return gen(ctx, data)
}

// extractSchema runs the module's schema-generation entry points and decodes
// the per-contract schema bytes they point at. Each entry point takes no
// arguments and returns an i64 packing (offset << 32) | length into linear
// memory.
func extractSchema(ctx context.Context, wasmBytes []byte, v schema.Version) (*schema.ModuleSchema, error) {
	sk, err := wasm.ParseSkeleton(wasmBytes)
	if err != nil {
		return nil, cerrors.SchemaExtractionFailed("could not parse the schema build output", err)
	}

	rt := wazero.NewRuntimeWithConfig(ctx, wazero.NewRuntimeConfig().WithCloseOnContextDone(true))
	defer rt.Close(ctx)

	if err := instantiateHostStubs(ctx, rt, sk); err != nil {
		return nil, cerrors.SchemaExtractionFailed("could not satisfy the module's host imports", err)
	}

	mod, err := rt.Instantiate(ctx, wasmBytes)
	if err != nil {
		return nil, cerrors.SchemaExtractionFailed("could not instantiate the schema build output", err)
	}
	defer mod.Close(ctx)

	contracts := map[string]*schema.Contract{}
	for _, exp := range sk.Exports {
		if exp.Kind != wasm.KindFunc || !strings.HasPrefix(exp.Name, schemaExportPrefix) {
			continue
		}
		contractName := strings.TrimPrefix(exp.Name, schemaExportPrefix)

		fn := mod.ExportedFunction(exp.Name)
		if fn == nil {
			return nil, cerrors.SchemaExtractionFailed(
				fmt.Sprintf("schema entry point %q is not callable", exp.Name), nil)
		}
		results, err := fn.Call(ctx)
		if err != nil {
			return nil, cerrors.SchemaExtractionFailed(
				fmt.Sprintf("schema entry point %q trapped", exp.Name), err)
		}
		if len(results) != 1 {
			return nil, cerrors.SchemaExtractionFailed(
				fmt.Sprintf("schema entry point %q returned %d values, expected 1", exp.Name, len(results)), nil)
		}

		offset := uint32(results[0] >> 32)
		length := uint32(results[0])
		mem := mod.Memory()
		if mem == nil {
			return nil, cerrors.SchemaExtractionFailed("the schema build output has no memory", nil)
		}
		data, ok := mem.Read(offset, length)
		if !ok {
			return nil, cerrors.SchemaExtractionFailed(
				fmt.Sprintf("schema bytes for %q are out of memory bounds", contractName), nil)
		}
		c, err := schema.DeserializeContract(v, data)
		if err != nil {
			return nil, cerrors.SchemaExtractionFailed(
				fmt.Sprintf("could not decode the schema for contract %q", contractName), err)
		}
		contracts[contractName] = c
	}

	if len(contracts) == 0 {
		return nil, cerrors.SchemaExtractionFailed(
			"the module exposes no schema-generation entry points; was it built with the build-schema feature?", nil)
	}
	return &schema.ModuleSchema{Version: v, Contracts: contracts}, nil
}

// instantiateHostStubs registers a no-op host function for every function
// import of the skeleton, matching its signature. Schema-generation entry
// points never call host functions, but instantiation requires every import
// to resolve.
func instantiateHostStubs(ctx context.Context, rt wazero.Runtime, sk *wasm.Skeleton) error {
	byModule := map[string][]wasm.Import{}
	for _, imp := range sk.Imports {
		if imp.Kind == wasm.KindFunc {
			byModule[imp.Module] = append(byModule[imp.Module], imp)
		}
	}
	for module, imports := range byModule {
		builder := rt.NewHostModuleBuilder(module)
		for _, imp := range imports {
			ft, ok := sk.ImportFuncType(imp)
			if !ok {
				return fmt.Errorf("import %s.%s has no resolvable type", imp.Module, imp.Name)
			}
			results := valueTypes(ft.Results)
			builder.NewFunctionBuilder().
				WithGoModuleFunction(api.GoModuleFunc(func(ctx context.Context, mod api.Module, stack []uint64) {
					for i := range results {
						stack[i] = 0
					}
				}), valueTypes(ft.Params), results).
				Export(imp.Name)
		}
		if _, err := builder.Instantiate(ctx); err != nil {
			return fmt.Errorf("registering host module %q: %w", module, err)
		}
	}
	return nil
}

func valueTypes(vts []wasm.ValType) []api.ValueType {
	out := make([]api.ValueType, len(vts))
	for i, vt := range vts {
		switch vt {
		case wasm.ValI32:
			out[i] = api.ValueTypeI32
		case wasm.ValI64:
			out[i] = api.ValueTypeI64
		case wasm.ValF32:
			out[i] = api.ValueTypeF32
		case wasm.ValF64:
			out[i] = api.ValueTypeF64
		}
	}
	return out
}
