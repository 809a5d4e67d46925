package build

import (
	"context"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/concordium/concordium-build/artifact"
	cerrors "github.com/concordium/concordium-build/errors"
	"github.com/concordium/concordium-build/schema"
	"github.com/concordium/concordium-build/wasm"
)

// SchemaBuildOptions selects whether a schema is built and whether it is
// embedded into the deployed module.
type SchemaBuildOptions int

// Schema build modes.
const (
	SchemaDoNotBuild SchemaBuildOptions = iota
	SchemaJustBuild
	SchemaBuildAndEmbed
)

// Build reports whether the schema should be built.
func (o SchemaBuildOptions) Build() bool {
	return o == SchemaJustBuild || o == SchemaBuildAndEmbed
}

// Embed reports whether the schema should be embedded.
func (o SchemaBuildOptions) Embed() bool {
	return o == SchemaBuildAndEmbed
}

// Options configures one build invocation.
type Options struct {
	// Version selects the module format to validate against and encode.
	Version artifact.Version
	// Schema selects schema building/embedding.
	Schema SchemaBuildOptions
	// Out is the output path for the versioned module; empty derives the
	// path from the compiled artifact plus the version extension.
	Out string
	// Dir is the project directory; empty means the current directory.
	Dir string
	// CargoArgs are passed through to the compiler verbatim.
	CargoArgs []string
	// Toolchain overrides the compiler; nil uses cargo.
	Toolchain Toolchain
}

// Result is a successful build's outcome.
type Result struct {
	// TotalSize is the byte length of the written versioned module.
	TotalSize int
	// OutputPath is where the artifact was written.
	OutputPath string
	// Schema is present when schema building was requested.
	Schema *schema.ModuleSchema
}

// schemaVersionFor maps a module format version to the schema version its
// builds produce: V0 modules carry V0 schemas, V1 modules carry V3 schemas.
func schemaVersionFor(v artifact.Version) schema.Version {
	if v == artifact.V0 {
		return schema.V0
	}
	return schema.V3
}

// BuildContract drives the full packaging pipeline: optional schema build,
// production compile, parse, strip, validate, versioned encode with optional
// embedded schema, and write. Each stage completes before the next begins;
// any failure aborts the invocation.
func BuildContract(ctx context.Context, opts Options) (*Result, error) {
	log := Logger()
	tc := opts.Toolchain
	if tc == nil {
		tc = Cargo{}
	}

	// An unusable explicit output path is reported before any compilation
	// work is spent.
	if opts.Out != "" {
		if _, err := artifact.ResolveOutputPath(opts.Out, "", opts.Version); err != nil {
			return nil, cerrors.OutputPathInvalid(err)
		}
	}

	// The schema build runs first so that an extraction failure is caught
	// before spending the production compile.
	var ms *schema.ModuleSchema
	var custom *wasm.CustomSection
	if opts.Schema.Build() {
		log.Debug("schema build requested", zap.Bool("embed", opts.Schema.Embed()))
		built, err := BuildSchema(ctx, tc, opts, GeneratorFor(schemaVersionFor(opts.Version)))
		if err != nil {
			return nil, err
		}
		ms = built
		if opts.Schema.Embed() {
			section := schema.EmbedSection(ms)
			custom = &section
		}
	}

	meta, err := tc.Metadata(ctx, opts.Dir)
	if err != nil {
		return nil, cerrors.New(cerrors.PhaseCompile, cerrors.KindCompilationFailed).
			Detail("could not access compiler metadata").Cause(err).Build()
	}
	targetDir := filepath.Join(meta.TargetDirectory, "concordium")

	log.Debug("compiling contract",
		zap.String("package", meta.PackageName),
		zap.String("target_dir", targetDir),
		zap.Stringer("version", opts.Version))
	err = tc.Compile(ctx, CompileRequest{
		Dir:       opts.Dir,
		TargetDir: targetDir,
		ExtraArgs: opts.CargoArgs,
	})
	if err != nil {
		return nil, cerrors.CompilationFailed(cerrors.PhaseCompile, err)
	}

	compiledPath := artifactPath(targetDir, meta.PackageName)
	data, err := os.ReadFile(compiledPath)
	if err != nil {
		return nil, cerrors.ArtifactNotFound(cerrors.PhaseRead, compiledPath, err)
	}

	sk, err := wasm.ParseSkeleton(data)
	if err != nil {
		return nil, cerrors.New(cerrors.PhaseParse, cerrors.KindParseFailed).
			Detail("could not parse the skeleton of the module").Cause(err).Build()
	}

	// User-supplied custom sections must not leak into the deployed
	// artifact.
	sk.Strip()

	mod, err := wasm.Validate(allowedImports(opts.Version), sk)
	if err != nil {
		return nil, cerrors.New(cerrors.PhaseValidate, cerrors.KindValidationFailed).
			Detail("could not validate the module as a %s contract", opts.Version).
			Cause(err).Build()
	}
	if err := ValidateExports(mod, opts.Version); err != nil {
		return nil, err
	}

	encoded := artifact.Encode(opts.Version, sk.Encode(), custom)

	outPath, err := artifact.ResolveOutputPath(opts.Out, compiledPath, opts.Version)
	if err != nil {
		return nil, cerrors.OutputPathInvalid(err)
	}
	if err := artifact.Write(outPath, encoded); err != nil {
		return nil, cerrors.New(cerrors.PhaseWrite, cerrors.KindIO).
			Detail("could not write the versioned module").Cause(err).Build()
	}

	log.Debug("build finished",
		zap.String("output", outPath),
		zap.Int("size", len(encoded)))
	return &Result{TotalSize: len(encoded), OutputPath: outPath, Schema: ms}, nil
}
